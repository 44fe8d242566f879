// Package service provides the business logic layer for the site provisioning
// workflow: listing and creating site requests, and serving the metadata that
// drives the request form.
package service

import (
	"context"
	"log/slog"
	"sort"
	"strings"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"github.com/eumtools/siteprov-server/internal/domain"
	"github.com/eumtools/siteprov-server/internal/errors"
	"github.com/eumtools/siteprov-server/internal/listcodec"
	"github.com/eumtools/siteprov-server/internal/store"
)

// Flat failure messages returned to API callers, verbatim.
const (
	MsgFailedRetrievingSites = "Failed retrieving sites."
	MsgFailedSavingRequest   = "Failed saving site request."
)

// SiteConfig carries the list names and query settings the site service
// operates with.
type SiteConfig struct {
	SitesList  string
	HideColumn string // hide-from-listing marker field
	WebAppURL  string // absolute prefix of site URLs, used to match both parent URL forms
	PageSize   int
}

// SiteService lists sites and creates site requests against the Sites list.
type SiteService struct {
	store  store.ListStore
	codec  listcodec.Codec
	cfg    SiteConfig
	logger *slog.Logger
}

// NewSiteService creates a new site service.
func NewSiteService(st store.ListStore, codec listcodec.Codec, cfg SiteConfig, logger *slog.Logger) *SiteService {
	return &SiteService{
		store:  st,
		codec:  codec,
		cfg:    cfg,
		logger: logger,
	}
}

// ListSites returns every non-hidden created site, ordered by title
// ascending. A non-empty parentURL additionally filters to sites whose
// parent URL equals the given value in either its relative or absolute form.
//
// The store pages its results; this loop follows the cursor until the store
// reports no more pages, accumulating everything before projecting. The
// accumulated set is re-sorted by title: per-page order is a store guarantee
// but cross-page concatenation order is only accumulation order.
func (s *SiteService) ListSites(ctx context.Context, parentURL string) ([]domain.SiteListItem, error) {
	q := store.Query{
		Filters: []store.Filter{
			store.IsNotNull(domain.FieldSiteCreated),
			store.Neq(s.cfg.HideColumn, domain.HiddenSentinel),
		},
		OrderBy:  domain.FieldTitle,
		PageSize: s.cfg.PageSize,
	}
	if parentURL != "" {
		q.Filters = append(q.Filters, store.EqAny(domain.FieldParentURL, parentURLForms(parentURL, s.cfg.WebAppURL)...))
	}

	var items []domain.Item
	for {
		page, err := s.store.GetItems(ctx, s.cfg.SitesList, q)
		if err != nil {
			s.logger.Error("site listing query failed", "list", s.cfg.SitesList, "error", err)
			return nil, errors.Retrieval(MsgFailedRetrievingSites, err)
		}

		items = append(items, page.Items...)
		if page.NextCursor == "" {
			break
		}
		q.Cursor = page.NextCursor
	}

	col := collate.New(language.Und, collate.IgnoreCase)
	sort.SliceStable(items, func(i, j int) bool {
		a, _ := items[i].String(domain.FieldTitle)
		b, _ := items[j].String(domain.FieldTitle)
		return col.CompareString(a, b) < 0
	})

	sites := make([]domain.SiteListItem, 0, len(items))
	for _, item := range items {
		sites = append(sites, projectSite(item))
	}
	return sites, nil
}

// parentURLForms returns the parent URL in both the form given and its
// relative/absolute counterpart, so stored values match either way.
func parentURLForms(parentURL, webAppURL string) []string {
	forms := []string{parentURL}
	switch {
	case webAppURL == "":
	case strings.HasPrefix(parentURL, webAppURL):
		if rel := strings.TrimPrefix(parentURL, webAppURL); rel != "" {
			forms = append(forms, rel)
		}
	case strings.HasPrefix(parentURL, "/"):
		forms = append(forms, webAppURL+parentURL)
	}
	return forms
}

func projectSite(item domain.Item) domain.SiteListItem {
	rec := domain.SiteListItem{ID: item.ID}

	rec.Title, _ = item.String(domain.FieldTitle)
	rec.SiteURL, _ = item.String(domain.FieldSiteURL)
	rec.ParentURL, _ = item.String(domain.FieldParentURL)
	rec.GroupSummary, _ = item.String(domain.FieldGroupSummary)
	rec.Alias, _ = item.String(domain.FieldAlias)
	rec.Visibility, _ = item.String(domain.FieldSiteVisibility)
	rec.Purpose, _ = item.String(domain.FieldSitePurpose)
	rec.Created, _ = item.String(domain.FieldSiteCreated)

	if ref, ok := item.Lookup(domain.FieldDivision); ok {
		rec.Division = ref
	}
	if ref, ok := item.Lookup(domain.FieldSiteTemplate); ok {
		rec.SiteTemplate = ref
	}

	return rec
}

// CreateSiteRequest translates the inbound record to native field values,
// stamps the Author field from the requestor identity, and creates the item
// in a single write. The store create is atomic; nothing is rolled back on
// failure.
func (s *SiteService) CreateSiteRequest(ctx context.Context, username string, fields map[string]domain.FieldValue) (*domain.Item, error) {
	native, err := s.codec.EncodeItem(fields)
	if err != nil {
		s.logger.Warn("site request encoding failed", "error", err)
		return nil, errors.Write(MsgFailedSavingRequest, err)
	}

	user, err := s.store.EnsureUser(ctx, username)
	if err != nil {
		s.logger.Error("requestor resolution failed", "username", username, "error", err)
		return nil, errors.Write(MsgFailedSavingRequest, err)
	}
	native[domain.FieldAuthor] = domain.PersonRef{ID: user.ID}

	item, err := s.store.AddItem(ctx, s.cfg.SitesList, native)
	if err != nil {
		s.logger.Error("site request write failed", "list", s.cfg.SitesList, "error", err)
		return nil, errors.Write(MsgFailedSavingRequest, err)
	}

	s.logger.Info("site request created", "id", item.ID, "requestor", username)
	return item, nil
}
