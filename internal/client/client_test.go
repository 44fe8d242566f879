package client

import (
	"context"
	"encoding/json/v2"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eumtools/siteprov-server/internal/domain"
)

func newTestServer(t *testing.T) (*httptest.Server, *map[string]any) {
	t.Helper()

	var lastPosted map[string]any

	mux := http.NewServeMux()
	mux.HandleFunc("GET /Sites", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer test-token" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		if r.URL.Query().Get("parentUrl") == "/sites/broken" {
			w.WriteHeader(http.StatusBadRequest)
			w.Write([]byte("Failed retrieving sites."))
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`[{"Id":1,"Title":"Alpha"},{"Id":2,"Title":"Beta"}]`))
	})
	mux.HandleFunc("POST /Sites", func(w http.ResponseWriter, r *http.Request) {
		var fields map[string]any
		require.NoError(t, json.UnmarshalRead(r.Body, &fields))
		lastPosted = fields
		w.Header().Set("Content-Type", "application/json")
		json.MarshalWrite(w, fields)
	})
	mux.HandleFunc("POST /api/v1/lists/Sites/items", func(w http.ResponseWriter, r *http.Request) {
		var fields map[string]any
		require.NoError(t, json.UnmarshalRead(r.Body, &fields))
		lastPosted = fields
		w.WriteHeader(http.StatusCreated)
		w.Write([]byte(`{"success":true,"data":{"Id":5}}`))
	})
	mux.HandleFunc("GET /api/v1/blacklist", func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(`{"success":true,"data":["forbidden"]}`))
	})
	mux.HandleFunc("GET /api/v1/divisions", func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(`{"success":true,"data":[{"Id":1,"Title":"Finance"}]}`))
	})
	mux.HandleFunc("GET /api/v1/sitetemplates", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "1", r.URL.Query().Get("divisionId"))
		w.Write([]byte(`{"success":true,"data":[{"Id":10,"Title":"Team Site","ContentTypeName":"EUM Site Request"}]}`))
	})
	mux.HandleFunc("GET /api/v1/contenttypes/{name}/fields", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "EUM Site Request", r.PathValue("name"))
		w.Write([]byte(`{"success":true,"data":[{"InternalName":"Title","Title":"Title","TypeAsString":"Text","Required":true}]}`))
	})
	mux.HandleFunc("GET /api/v1/aliases/check", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("alias") == "taken" {
			w.Write([]byte(`{"success":true,"data":{"alias":"taken","available":false}}`))
			return
		}
		w.Write([]byte(`{"success":true,"data":{"alias":"fresh","available":true}}`))
	})

	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server, &lastPosted
}

func newTestClient(t *testing.T, direct bool) (*Client, *map[string]any) {
	server, posted := newTestServer(t)
	client := New(Config{
		BaseURL:    server.URL,
		Token:      "test-token",
		SitesList:  "Sites",
		DirectMode: direct,
	})
	return client, posted
}

func TestClientListSites(t *testing.T) {
	client, _ := newTestClient(t, false)

	sites, err := client.ListSites(context.Background(), "")

	require.NoError(t, err)
	require.Len(t, sites, 2)
	assert.Equal(t, "Alpha", sites[0].Title)
}

func TestClientListSitesFailureSurfacesFlatMessage(t *testing.T) {
	client, _ := newTestClient(t, false)

	_, err := client.ListSites(context.Background(), "/sites/broken")

	require.Error(t, err)
	assert.Equal(t, "Failed retrieving sites.", err.Error())
}

func TestClientMetadataEndpoints(t *testing.T) {
	client, _ := newTestClient(t, false)
	ctx := context.Background()

	phrases, err := client.Blacklist(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"forbidden"}, phrases)

	divisions, err := client.Divisions(ctx)
	require.NoError(t, err)
	require.Len(t, divisions, 1)
	assert.Equal(t, "Finance", divisions[0].Title)

	templates, err := client.SiteTemplates(ctx, 1)
	require.NoError(t, err)
	require.Len(t, templates, 1)
	assert.Equal(t, "EUM Site Request", templates[0].ContentTypeName)

	fields, err := client.ContentTypeFields(ctx, "EUM Site Request", false)
	require.NoError(t, err)
	require.Len(t, fields, 1)
	assert.True(t, fields[0].Required)

	available, err := client.CheckAlias(ctx, "taken")
	require.NoError(t, err)
	assert.False(t, available)

	available, err = client.CheckAlias(ctx, "fresh")
	require.NoError(t, err)
	assert.True(t, available)
}

// The two session modes submit through different endpoints with different
// wire shapes; both run against the same metadata.
func TestClientFormSessionAPIMode(t *testing.T) {
	client, posted := newTestClient(t, false)
	ctx := context.Background()

	session := client.NewFormSession()
	require.NoError(t, session.Begin(ctx))
	require.NoError(t, session.SelectDivision(ctx, 1))
	require.NoError(t, session.SelectTemplate(ctx, 10))
	require.NoError(t, session.SetText(domain.FieldTitle, "Quarterly Planning"))
	require.NoError(t, session.SetPersonMulti("EUMOwners", []string{"101", "202"}))

	require.NoError(t, session.Submit(ctx))

	require.Equal(t, StateSuccess, session.State())
	assert.Equal(t, "Quarterly Planning", (*posted)[domain.FieldTitle])
	assert.Equal(t, map[string]any{"value": "101,202", "type": "PersonMulti"}, (*posted)["EUMOwners"])
}

func TestClientFormSessionDirectMode(t *testing.T) {
	client, posted := newTestClient(t, true)
	ctx := context.Background()

	session := client.NewFormSession()
	require.NoError(t, session.Begin(ctx))
	require.NoError(t, session.SelectDivision(ctx, 1))
	require.NoError(t, session.SelectTemplate(ctx, 10))
	require.NoError(t, session.SetText(domain.FieldTitle, "Quarterly Planning"))
	require.NoError(t, session.SetPersonMulti("EUMOwners", []string{"101", "202"}))

	require.NoError(t, session.Submit(ctx))

	require.Equal(t, StateSuccess, session.State())
	assert.NotContains(t, *posted, "EUMOwners")
	assert.Equal(t, map[string]any{"results": []any{"101", "202"}}, (*posted)["EUMOwnersId"])
	assert.Equal(t, "1", (*posted)["EUMDivisionId"], "seeded division lookup takes the direct key")
}
