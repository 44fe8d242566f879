package store_test

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/eumtools/siteprov-server/internal/domain"
	"github.com/eumtools/siteprov-server/internal/store"
)

func setupTestStore(t *testing.T, opts store.Options) (*store.Store, func()) {
	t.Helper()

	tmpDir, err := os.MkdirTemp("", "liststore-test-*")
	require.NoError(t, err)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	s, err := store.New(filepath.Join(tmpDir, "data"), opts, logger)
	require.NoError(t, err)

	cleanup := func() {
		_ = s.Close()
		_ = os.RemoveAll(tmpDir)
	}

	return s, cleanup
}

func TestStore_AddItem_AssignsAscendingIDs(t *testing.T) {
	s, cleanup := setupTestStore(t, store.Options{})
	defer cleanup()

	ctx := context.Background()

	first, err := s.AddItem(ctx, "Sites", map[string]any{"Title": "Alpha"})
	require.NoError(t, err)
	require.Equal(t, 1, first.ID)

	second, err := s.AddItem(ctx, "Sites", map[string]any{"Title": "Beta"})
	require.NoError(t, err)
	require.Equal(t, 2, second.ID)

	// Each list keeps its own counter.
	other, err := s.AddItem(ctx, "Divisions", map[string]any{"Title": "Finance"})
	require.NoError(t, err)
	require.Equal(t, 1, other.ID)
}

func TestStore_GetItem(t *testing.T) {
	s, cleanup := setupTestStore(t, store.Options{})
	defer cleanup()

	ctx := context.Background()

	created, err := s.AddItem(ctx, "Sites", map[string]any{
		"Title":      "Team Alpha",
		"EUMSiteURL": "https://contoso.sharepoint.com/sites/alpha",
	})
	require.NoError(t, err)

	got, err := s.GetItem(ctx, "Sites", created.ID)
	require.NoError(t, err)

	title, ok := got.String(domain.FieldTitle)
	require.True(t, ok)
	require.Equal(t, "Team Alpha", title)

	url, ok := got.String(domain.FieldSiteURL)
	require.True(t, ok)
	require.Equal(t, "https://contoso.sharepoint.com/sites/alpha", url)
}

func TestStore_GetItem_NotFound(t *testing.T) {
	s, cleanup := setupTestStore(t, store.Options{})
	defer cleanup()

	_, err := s.GetItem(context.Background(), "Sites", 42)
	require.ErrorIs(t, err, store.ErrNotFound)
}

func TestStore_AddItem_ResolvesLookupTitle(t *testing.T) {
	s, cleanup := setupTestStore(t, store.Options{
		LookupTargets: map[string]string{
			domain.FieldDivision: "Divisions",
		},
	})
	defer cleanup()

	ctx := context.Background()

	div, err := s.AddItem(ctx, "Divisions", map[string]any{"Title": "Finance"})
	require.NoError(t, err)

	site, err := s.AddItem(ctx, "Sites", map[string]any{
		"Title":       "Budget Site",
		"EUMDivision": domain.LookupRef{ID: div.ID},
	})
	require.NoError(t, err)

	ref, ok := site.Lookup(domain.FieldDivision)
	require.True(t, ok)
	require.Equal(t, div.ID, ref.ID)
	require.Equal(t, "Finance", ref.Title)

	// The resolved title survives the store round trip.
	reread, err := s.GetItem(ctx, "Sites", site.ID)
	require.NoError(t, err)
	ref, ok = reread.Lookup(domain.FieldDivision)
	require.True(t, ok)
	require.Equal(t, "Finance", ref.Title)
}

func TestStore_AddItem_UnknownLookupID(t *testing.T) {
	s, cleanup := setupTestStore(t, store.Options{
		LookupTargets: map[string]string{
			domain.FieldDivision: "Divisions",
		},
	})
	defer cleanup()

	_, err := s.AddItem(context.Background(), "Sites", map[string]any{
		"Title":       "Orphan",
		"EUMDivision": domain.LookupRef{ID: 99},
	})
	require.ErrorIs(t, err, store.ErrInvalidInput)
}

func TestStore_GetItems_OrdersByTitle(t *testing.T) {
	s, cleanup := setupTestStore(t, store.Options{})
	defer cleanup()

	ctx := context.Background()

	for _, title := range []string{"zulu", "Alpha", "mike"} {
		_, err := s.AddItem(ctx, "Sites", map[string]any{"Title": title})
		require.NoError(t, err)
	}

	page, err := s.GetItems(ctx, "Sites", store.Query{OrderBy: domain.FieldTitle, PageSize: 10})
	require.NoError(t, err)
	require.Len(t, page.Items, 3)
	require.Empty(t, page.NextCursor)

	var titles []string
	for _, it := range page.Items {
		title, _ := it.String(domain.FieldTitle)
		titles = append(titles, title)
	}
	// Case-insensitive ascending order.
	require.Equal(t, []string{"Alpha", "mike", "zulu"}, titles)
}

func TestStore_GetItems_ColonTitlesOrderByNormalizedKey(t *testing.T) {
	s, cleanup := setupTestStore(t, store.Options{})
	defer cleanup()

	ctx := context.Background()

	for _, title := range []string{"bd", "b:c", "bb"} {
		_, err := s.AddItem(ctx, "Sites", map[string]any{"Title": title})
		require.NoError(t, err)
	}

	page, err := s.GetItems(ctx, "Sites", store.Query{OrderBy: domain.FieldTitle, PageSize: 10})
	require.NoError(t, err)
	require.Len(t, page.Items, 3)

	var titles []string
	for _, it := range page.Items {
		title, _ := it.String(domain.FieldTitle)
		titles = append(titles, title)
	}
	// Colons are stripped by store.TitleSortKey, so "b:c" sorts as "bc".
	require.Equal(t, "bc", store.TitleSortKey("B:C"))
	require.Equal(t, []string{"bb", "b:c", "bd"}, titles)
}

func TestStore_GetItems_Paging(t *testing.T) {
	s, cleanup := setupTestStore(t, store.Options{})
	defer cleanup()

	ctx := context.Background()

	const total = 7
	for i := 0; i < total; i++ {
		_, err := s.AddItem(ctx, "Sites", map[string]any{
			"Title":      fmt.Sprintf("Site %02d", i),
			"EUMSiteURL": fmt.Sprintf("https://example.org/sites/%d", i),
		})
		require.NoError(t, err)
	}

	var collected []domain.Item
	cursor := ""
	pages := 0
	for {
		page, err := s.GetItems(ctx, "Sites", store.Query{
			OrderBy:  domain.FieldTitle,
			PageSize: 3,
			Cursor:   cursor,
		})
		require.NoError(t, err)
		collected = append(collected, page.Items...)
		pages++

		if page.NextCursor == "" {
			break
		}
		cursor = page.NextCursor
	}

	require.Equal(t, 3, pages)
	require.Len(t, collected, total)

	seen := make(map[int]bool)
	for _, it := range collected {
		require.False(t, seen[it.ID], "item %d returned twice", it.ID)
		seen[it.ID] = true
	}
}

func TestStore_GetItems_ExactPageBoundary(t *testing.T) {
	s, cleanup := setupTestStore(t, store.Options{})
	defer cleanup()

	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := s.AddItem(ctx, "Sites", map[string]any{"Title": fmt.Sprintf("Site %d", i)})
		require.NoError(t, err)
	}

	// Page size equals item count; no trailing empty page.
	page, err := s.GetItems(ctx, "Sites", store.Query{OrderBy: domain.FieldTitle, PageSize: 3})
	require.NoError(t, err)
	require.Len(t, page.Items, 3)
	require.Empty(t, page.NextCursor)
}

func TestStore_GetItems_Filters(t *testing.T) {
	s, cleanup := setupTestStore(t, store.Options{})
	defer cleanup()

	ctx := context.Background()

	_, err := s.AddItem(ctx, "Sites", map[string]any{
		"Title": "Visible", "EUMSiteURL": "https://example.org/a",
	})
	require.NoError(t, err)
	_, err = s.AddItem(ctx, "Sites", map[string]any{
		"Title": "Pending",
	})
	require.NoError(t, err)
	_, err = s.AddItem(ctx, "Sites", map[string]any{
		"Title": "Hidden site", "EUMSiteURL": "https://example.org/b",
		"EUMHideFromSiteList": "Hidden",
	})
	require.NoError(t, err)

	page, err := s.GetItems(ctx, "Sites", store.Query{
		Filters: []store.Filter{
			store.IsNotNull(domain.FieldSiteURL),
			store.Neq("EUMHideFromSiteList", "Hidden"),
		},
		OrderBy:  domain.FieldTitle,
		PageSize: 10,
	})
	require.NoError(t, err)
	require.Len(t, page.Items, 1)

	title, _ := page.Items[0].String(domain.FieldTitle)
	require.Equal(t, "Visible", title)
}

func TestStore_GetItems_InvalidCursor(t *testing.T) {
	s, cleanup := setupTestStore(t, store.Options{})
	defer cleanup()

	_, err := s.GetItems(context.Background(), "Sites", store.Query{
		OrderBy:  domain.FieldTitle,
		PageSize: 10,
		Cursor:   "not-base64!!!",
	})
	require.ErrorIs(t, err, store.ErrInvalidInput)
}

func TestStore_EnsureUser(t *testing.T) {
	s, cleanup := setupTestStore(t, store.Options{})
	defer cleanup()

	ctx := context.Background()

	first, err := s.EnsureUser(ctx, "jsmith")
	require.NoError(t, err)
	require.Equal(t, "jsmith", first.Username)
	require.NotZero(t, first.ID)

	// Same username resolves to the same record.
	again, err := s.EnsureUser(ctx, "jsmith")
	require.NoError(t, err)
	require.Equal(t, first.ID, again.ID)

	other, err := s.EnsureUser(ctx, "mjones")
	require.NoError(t, err)
	require.NotEqual(t, first.ID, other.ID)
}

func TestStore_ContentTypes(t *testing.T) {
	s, cleanup := setupTestStore(t, store.Options{})
	defer cleanup()

	ctx := context.Background()

	ct := &domain.ContentType{
		ID:   "0x0100A1",
		Name: "Site Request",
		Fields: []domain.ContentTypeField{
			{InternalName: "Title", Title: "Site Name", Type: domain.FormFieldText, Required: true},
			{InternalName: "EUMDivision", Title: "Division", Type: domain.FormFieldLookup, LookupList: "Divisions"},
		},
	}

	require.NoError(t, s.SaveContentType(ctx, ct))

	got, err := s.GetContentType(ctx, "Site Request")
	require.NoError(t, err)
	require.Equal(t, ct.ID, got.ID)
	require.Len(t, got.Fields, 2)
	require.Equal(t, "EUMDivision", got.Fields[1].InternalName)

	_, err = s.GetContentType(ctx, "Missing")
	require.ErrorIs(t, err, store.ErrNotFound)
}
