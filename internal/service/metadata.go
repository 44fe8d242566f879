package service

import (
	"context"
	"log/slog"
	"slices"
	"strings"

	"github.com/eumtools/siteprov-server/internal/domain"
	"github.com/eumtools/siteprov-server/internal/errors"
	"github.com/eumtools/siteprov-server/internal/store"
)

// hideMarkerPrefix names content type fields that exist only to hide another
// form field: a field "Hide_Form_X" removes X from the form, and the marker
// itself is never shown.
const hideMarkerPrefix = "Hide_Form_"

// MetadataConfig carries the list names the metadata service reads from.
type MetadataConfig struct {
	SitesList         string
	DivisionsList     string
	SiteTemplatesList string
	BlacklistList     string
	PageSize          int
}

// MetadataService serves the list metadata that drives the request form:
// divisions, site templates, content type fields, the phrase blacklist, and
// alias availability.
type MetadataService struct {
	store  store.ListStore
	cfg    MetadataConfig
	logger *slog.Logger
}

// NewMetadataService creates a new metadata service.
func NewMetadataService(st store.ListStore, cfg MetadataConfig, logger *slog.Logger) *MetadataService {
	return &MetadataService{store: st, cfg: cfg, logger: logger}
}

// allItems drains every page of the named list in title order.
func (s *MetadataService) allItems(ctx context.Context, list string, filters ...store.Filter) ([]domain.Item, error) {
	q := store.Query{
		Filters:  filters,
		OrderBy:  domain.FieldTitle,
		PageSize: s.cfg.PageSize,
	}

	var items []domain.Item
	for {
		page, err := s.store.GetItems(ctx, list, q)
		if err != nil {
			return nil, err
		}
		items = append(items, page.Items...)
		if page.NextCursor == "" {
			return items, nil
		}
		q.Cursor = page.NextCursor
	}
}

// Divisions returns all provisioning divisions ordered by title.
func (s *MetadataService) Divisions(ctx context.Context) ([]domain.Division, error) {
	items, err := s.allItems(ctx, s.cfg.DivisionsList)
	if err != nil {
		s.logger.Error("divisions query failed", "error", err)
		return nil, errors.Retrieval("failed retrieving divisions", err)
	}

	divisions := make([]domain.Division, 0, len(items))
	for _, item := range items {
		div := domain.Division{ID: item.ID}
		div.Title, _ = item.String(domain.FieldTitle)
		div.Prefix, _ = item.String(domain.FieldDivisionPrefix)
		divisions = append(divisions, div)
	}
	return divisions, nil
}

// SiteTemplates returns the site templates available to a division. A zero
// divisionID returns every template. Templates with no division lookup are
// available to all divisions.
func (s *MetadataService) SiteTemplates(ctx context.Context, divisionID int) ([]domain.SiteTemplate, error) {
	items, err := s.allItems(ctx, s.cfg.SiteTemplatesList)
	if err != nil {
		s.logger.Error("site templates query failed", "error", err)
		return nil, errors.Retrieval("failed retrieving site templates", err)
	}

	templates := make([]domain.SiteTemplate, 0, len(items))
	for _, item := range items {
		tpl := projectTemplate(item)
		if divisionID != 0 && len(tpl.DivisionIDs) > 0 && !slices.Contains(tpl.DivisionIDs, divisionID) {
			continue
		}
		templates = append(templates, tpl)
	}
	return templates, nil
}

func projectTemplate(item domain.Item) domain.SiteTemplate {
	tpl := domain.SiteTemplate{ID: item.ID}
	tpl.Title, _ = item.String(domain.FieldTitle)
	tpl.ContentTypeName, _ = item.String(domain.FieldContentTypeName)
	tpl.Office365Group = item.Bool(domain.FieldOffice365Group)

	if refs, ok := item.Lookups(domain.FieldDivisions); ok {
		for _, ref := range refs {
			tpl.DivisionIDs = append(tpl.DivisionIDs, ref.ID)
		}
	}

	tpl.SiteVisibilityDefaultValue, _ = item.String(domain.FieldSiteVisibility)
	tpl.SiteVisibilityShowChoice = item.Bool(domain.FieldShowSiteVisibility)
	tpl.CreateTeamDefaultValue = item.Bool(domain.FieldCreateTeam)
	tpl.CreateTeamShowToggle = item.Bool(domain.FieldShowCreateTeam)
	tpl.CreateOneNoteDefaultValue = item.Bool(domain.FieldCreateOneNote)
	tpl.CreateOneNoteShowToggle = item.Bool(domain.FieldShowCreateOneNote)
	tpl.CreatePlannerDefaultValue = item.Bool(domain.FieldCreatePlanner)
	tpl.CreatePlannerShowToggle = item.Bool(domain.FieldShowCreatePlanner)

	return tpl
}

// ContentTypeFields returns the form fields of a content type, with hidden
// fields, hide-marker fields, and the fields suppressed by the marker set
// removed. The office365Group flag applies the group-vs-classic visibility
// rule: group sites take an alias (the site URL is derived from it), classic
// sites take a site URL directly.
func (s *MetadataService) ContentTypeFields(ctx context.Context, name string, office365Group bool) ([]domain.ContentTypeField, error) {
	ct, err := s.store.GetContentType(ctx, name)
	if err != nil {
		s.logger.Error("content type fetch failed", "content_type", name, "error", err)
		return nil, errors.Retrieval("failed retrieving content type fields", err)
	}

	suppressed := make(map[string]bool)
	for _, f := range ct.Fields {
		if hidden, ok := strings.CutPrefix(f.InternalName, hideMarkerPrefix); ok {
			suppressed[hidden] = true
		}
	}

	if office365Group {
		suppressed[domain.FieldSiteURL] = true
	} else {
		suppressed[domain.FieldAlias] = true
		suppressed[domain.FieldSiteVisibility] = true
	}

	fields := make([]domain.ContentTypeField, 0, len(ct.Fields))
	for _, f := range ct.Fields {
		if f.Hidden || suppressed[f.InternalName] || strings.HasPrefix(f.InternalName, hideMarkerPrefix) {
			continue
		}
		fields = append(fields, f)
	}
	return fields, nil
}

// Blacklist returns the configured blacklisted phrases. The blacklist list
// holds one record whose title is a comma-separated phrase list; only the
// first record is read.
func (s *MetadataService) Blacklist(ctx context.Context) ([]string, error) {
	items, err := s.allItems(ctx, s.cfg.BlacklistList)
	if err != nil {
		s.logger.Error("blacklist query failed", "error", err)
		return nil, errors.Retrieval("failed retrieving blacklist", err)
	}
	if len(items) == 0 {
		return nil, nil
	}

	csv, ok := items[0].String(domain.FieldTitle)
	if !ok || csv == "" {
		return nil, nil
	}

	var phrases []string
	for _, phrase := range strings.Split(csv, ",") {
		if trimmed := strings.TrimSpace(phrase); trimmed != "" {
			phrases = append(phrases, trimmed)
		}
	}
	return phrases, nil
}

// CheckAlias reports whether an alias is still available: no existing site
// may carry the alias or a site URL ending in it. Comparison is
// case-insensitive.
func (s *MetadataService) CheckAlias(ctx context.Context, alias string) (bool, error) {
	if alias == "" {
		return false, errors.Validation("alias must not be empty")
	}

	items, err := s.allItems(ctx, s.cfg.SitesList)
	if err != nil {
		s.logger.Error("alias check query failed", "alias", alias, "error", err)
		return false, errors.Retrieval("failed checking alias availability", err)
	}

	want := strings.ToLower(alias)
	for _, item := range items {
		if existing, ok := item.String(domain.FieldAlias); ok && strings.ToLower(existing) == want {
			return false, nil
		}
		if url, ok := item.String(domain.FieldSiteURL); ok {
			if strings.HasSuffix(strings.ToLower(strings.TrimRight(url, "/")), "/"+want) {
				return false, nil
			}
		}
	}
	return true, nil
}
