package sqlite_test

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/eumtools/siteprov-server/internal/domain"
	"github.com/eumtools/siteprov-server/internal/store"
	"github.com/eumtools/siteprov-server/internal/store/sqlite"
)

func setupTestStore(t *testing.T, opts store.Options) *sqlite.Store {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	s, err := sqlite.Open(filepath.Join(t.TempDir(), "test.db"), opts, logger)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	return s
}

func TestSQLite_AddItem_AssignsAscendingIDs(t *testing.T) {
	s := setupTestStore(t, store.Options{})
	ctx := context.Background()

	first, err := s.AddItem(ctx, "Sites", map[string]any{"Title": "Alpha"})
	require.NoError(t, err)
	require.Equal(t, 1, first.ID)

	second, err := s.AddItem(ctx, "Sites", map[string]any{"Title": "Beta"})
	require.NoError(t, err)
	require.Equal(t, 2, second.ID)

	other, err := s.AddItem(ctx, "Divisions", map[string]any{"Title": "Finance"})
	require.NoError(t, err)
	require.Equal(t, 1, other.ID)
}

func TestSQLite_GetItem_NotFound(t *testing.T) {
	s := setupTestStore(t, store.Options{})

	_, err := s.GetItem(context.Background(), "Sites", 42)
	require.ErrorIs(t, err, store.ErrNotFound)
}

func TestSQLite_AddItem_ResolvesLookupTitle(t *testing.T) {
	s := setupTestStore(t, store.Options{
		LookupTargets: map[string]string{
			domain.FieldDivision: "Divisions",
		},
	})
	ctx := context.Background()

	div, err := s.AddItem(ctx, "Divisions", map[string]any{"Title": "Finance"})
	require.NoError(t, err)

	site, err := s.AddItem(ctx, "Sites", map[string]any{
		"Title":       "Budget Site",
		"EUMDivision": domain.LookupRef{ID: div.ID},
	})
	require.NoError(t, err)

	reread, err := s.GetItem(ctx, "Sites", site.ID)
	require.NoError(t, err)
	ref, ok := reread.Lookup(domain.FieldDivision)
	require.True(t, ok)
	require.Equal(t, "Finance", ref.Title)
}

func TestSQLite_GetItems_PagingAndOrder(t *testing.T) {
	s := setupTestStore(t, store.Options{})
	ctx := context.Background()

	titles := []string{"zulu", "Alpha", "mike", "Bravo", "echo"}
	for _, title := range titles {
		_, err := s.AddItem(ctx, "Sites", map[string]any{"Title": title})
		require.NoError(t, err)
	}

	var got []string
	cursor := ""
	for {
		page, err := s.GetItems(ctx, "Sites", store.Query{
			OrderBy:  domain.FieldTitle,
			PageSize: 2,
			Cursor:   cursor,
		})
		require.NoError(t, err)
		for _, it := range page.Items {
			title, _ := it.String(domain.FieldTitle)
			got = append(got, title)
		}
		if page.NextCursor == "" {
			break
		}
		cursor = page.NextCursor
	}

	require.Equal(t, []string{"Alpha", "Bravo", "echo", "mike", "zulu"}, got)
}

func TestSQLite_GetItems_ColonTitlesOrderByNormalizedKey(t *testing.T) {
	s := setupTestStore(t, store.Options{})
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
	// Same normalized order as the Badger backend: "b:c" sorts as "bc".
	require.Equal(t, []string{"bb", "b:c", "bd"}, titles)
}

func TestSQLite_GetItems_Filters(t *testing.T) {
	s := setupTestStore(t, store.Options{})
	ctx := context.Background()

	_, err := s.AddItem(ctx, "Sites", map[string]any{
		"Title": "Visible", "EUMSiteURL": "https://example.org/a",
	})
	require.NoError(t, err)
	_, err = s.AddItem(ctx, "Sites", map[string]any{"Title": "Pending"})
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

func TestSQLite_GetItems_ExactPageBoundary(t *testing.T) {
	s := setupTestStore(t, store.Options{})
	ctx := context.Background()

	for i := 0; i < 4; i++ {
		_, err := s.AddItem(ctx, "Sites", map[string]any{"Title": fmt.Sprintf("Site %d", i)})
		require.NoError(t, err)
	}

	page, err := s.GetItems(ctx, "Sites", store.Query{OrderBy: domain.FieldTitle, PageSize: 4})
	require.NoError(t, err)
	require.Len(t, page.Items, 4)
	require.Empty(t, page.NextCursor)
}

func TestSQLite_EnsureUser(t *testing.T) {
	s := setupTestStore(t, store.Options{})
	ctx := context.Background()

	first, err := s.EnsureUser(ctx, "jsmith")
	require.NoError(t, err)
	require.NotZero(t, first.ID)

	again, err := s.EnsureUser(ctx, "JSmith")
	require.NoError(t, err)
	require.Equal(t, first.ID, again.ID)
}

func TestSQLite_ContentTypes(t *testing.T) {
	s := setupTestStore(t, store.Options{})
	ctx := context.Background()

	ct := &domain.ContentType{
		ID:   "0x0100A1",
		Name: "Site Request",
		Fields: []domain.ContentTypeField{
			{InternalName: "Title", Title: "Site Name", Type: domain.FormFieldText, Required: true},
		},
	}
	require.NoError(t, s.SaveContentType(ctx, ct))

	// Replace is an upsert.
	ct.Fields = append(ct.Fields, domain.ContentTypeField{
		InternalName: "EUMAlias", Title: "Alias", Type: domain.FormFieldText,
	})
	require.NoError(t, s.SaveContentType(ctx, ct))

	got, err := s.GetContentType(ctx, "Site Request")
	require.NoError(t, err)
	require.Len(t, got.Fields, 2)
}
