package client

import (
	"bytes"
	"context"
	"encoding/json/jsontext"
	"encoding/json/v2"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/eumtools/siteprov-server/internal/domain"
)

// Config configures the provisioning client. DirectMode selects the wire
// shape: when false (a provisioning API is configured) form sessions submit
// tagged shapes to /Sites; when true they write native shapes straight to
// the list item endpoint.
type Config struct {
	BaseURL    string
	Token      string
	SitesList  string // target list for direct-mode submissions
	DirectMode bool
	HTTPClient *http.Client
}

// Client talks to the provisioning server: the legacy /Sites surface, the
// metadata endpoints, and the direct list item endpoints.
type Client struct {
	cfg  Config
	http *http.Client
}

// New creates a provisioning client.
func New(cfg Config) *Client {
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	return &Client{cfg: cfg, http: httpClient}
}

// NewFormSession starts a form session in the mode the client is configured
// for: tagged shapes through the API, or native shapes straight to the list.
func (c *Client) NewFormSession() *FormSession {
	if c.cfg.DirectMode {
		return NewFormSession(c, DirectStoreShapeEncoder{}, func(ctx context.Context, fields map[string]any) error {
			return c.AddListItem(ctx, c.cfg.SitesList, fields)
		})
	}
	return NewFormSession(c, APIShapeEncoder{}, c.SubmitSiteRequest)
}

// envelope is the /api/v1 response wrapper.
type envelope struct {
	Data    jsontext.Value `json:"data"`
	Error   string         `json:"error"`
	Success bool           `json:"success"`
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, body any) ([]byte, int, error) {
	u := c.cfg.BaseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, 0, fmt.Errorf("encode request body: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, reader)
	if err != nil {
		return nil, 0, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.cfg.Token)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, resp.StatusCode, fmt.Errorf("read response: %w", err)
	}
	return data, resp.StatusCode, nil
}

// getEnveloped performs a GET against an /api/v1 endpoint and decodes the
// envelope's data member into out.
func (c *Client) getEnveloped(ctx context.Context, path string, query url.Values, out any) error {
	data, status, err := c.do(ctx, http.MethodGet, path, query, nil)
	if err != nil {
		return err
	}

	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	if status >= 400 || !env.Success {
		if env.Error != "" {
			return fmt.Errorf("server error: %s", env.Error)
		}
		return fmt.Errorf("server returned status %d", status)
	}
	if out == nil {
		return nil
	}
	return json.Unmarshal(env.Data, out)
}

// ListSites fetches the site listing from GET /Sites.
func (c *Client) ListSites(ctx context.Context, parentURL string) ([]domain.SiteListItem, error) {
	query := url.Values{}
	if parentURL != "" {
		query.Set("parentUrl", parentURL)
	}

	data, status, err := c.do(ctx, http.MethodGet, "/Sites", query, nil)
	if err != nil {
		return nil, err
	}
	if status >= 400 {
		return nil, fmt.Errorf("%s", string(data))
	}

	var sites []domain.SiteListItem
	if err := json.Unmarshal(data, &sites); err != nil {
		return nil, fmt.Errorf("decode site listing: %w", err)
	}
	return sites, nil
}

// SubmitSiteRequest posts a tagged field map to POST /Sites.
func (c *Client) SubmitSiteRequest(ctx context.Context, fields map[string]any) error {
	data, status, err := c.do(ctx, http.MethodPost, "/Sites", nil, fields)
	if err != nil {
		return err
	}
	if status >= 400 {
		// The server reports failures as a flat message.
		return fmt.Errorf("%s", string(data))
	}
	return nil
}

// AddListItem writes native field shapes to the list store's own item
// endpoint.
func (c *Client) AddListItem(ctx context.Context, list string, fields map[string]any) error {
	data, status, err := c.do(ctx, http.MethodPost, "/api/v1/lists/"+url.PathEscape(list)+"/items", nil, fields)
	if err != nil {
		return err
	}
	if status >= 400 {
		var env envelope
		if err := json.Unmarshal(data, &env); err == nil && env.Error != "" {
			return fmt.Errorf("server error: %s", env.Error)
		}
		return fmt.Errorf("server returned status %d", status)
	}
	return nil
}

// Blacklist fetches the blacklisted phrase list.
func (c *Client) Blacklist(ctx context.Context) ([]string, error) {
	var phrases []string
	if err := c.getEnveloped(ctx, "/api/v1/blacklist", nil, &phrases); err != nil {
		return nil, err
	}
	return phrases, nil
}

// Divisions fetches the provisioning divisions.
func (c *Client) Divisions(ctx context.Context) ([]domain.Division, error) {
	var divisions []domain.Division
	if err := c.getEnveloped(ctx, "/api/v1/divisions", nil, &divisions); err != nil {
		return nil, err
	}
	return divisions, nil
}

// SiteTemplates fetches the templates available to a division.
func (c *Client) SiteTemplates(ctx context.Context, divisionID int) ([]domain.SiteTemplate, error) {
	query := url.Values{}
	if divisionID != 0 {
		query.Set("divisionId", strconv.Itoa(divisionID))
	}

	var templates []domain.SiteTemplate
	if err := c.getEnveloped(ctx, "/api/v1/sitetemplates", query, &templates); err != nil {
		return nil, err
	}
	return templates, nil
}

// ContentTypeFields fetches the form fields of a content type.
func (c *Client) ContentTypeFields(ctx context.Context, name string, office365Group bool) ([]domain.ContentTypeField, error) {
	query := url.Values{}
	if office365Group {
		query.Set("office365Group", "true")
	}

	var fields []domain.ContentTypeField
	path := "/api/v1/contenttypes/" + url.PathEscape(name) + "/fields"
	if err := c.getEnveloped(ctx, path, query, &fields); err != nil {
		return nil, err
	}
	return fields, nil
}

// CheckAlias reports whether an alias is still available.
func (c *Client) CheckAlias(ctx context.Context, alias string) (bool, error) {
	query := url.Values{}
	query.Set("alias", alias)

	var result struct {
		Available bool `json:"available"`
	}
	if err := c.getEnveloped(ctx, "/api/v1/aliases/check", query, &result); err != nil {
		return false, err
	}
	return result.Available, nil
}
