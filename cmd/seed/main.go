// Package main provides a tool to seed the list store with provisioning
// metadata: divisions, site templates, the request content type, the phrase
// blacklist, and optional sample sites.
//
// Usage:
//
//	go run ./cmd/seed -file seed.yaml
//	STORE_DRIVER=sqlite STORE_PATH=./data go run ./cmd/seed -file seed.yaml
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"github.com/eumtools/siteprov-server/internal/config"
	"github.com/eumtools/siteprov-server/internal/domain"
	"github.com/eumtools/siteprov-server/internal/store"
	"github.com/eumtools/siteprov-server/internal/store/sqlite"
)

// fixtures is the seed file layout.
type fixtures struct {
	Divisions []struct {
		Title  string `yaml:"title"`
		Prefix string `yaml:"prefix"`
	} `yaml:"divisions"`

	SiteTemplates []struct {
		Title             string   `yaml:"title"`
		Divisions         []string `yaml:"divisions"`
		ContentType       string   `yaml:"contentType"`
		Office365Group    bool     `yaml:"office365Group"`
		VisibilityDefault string   `yaml:"visibilityDefault"`
		ShowVisibility    bool     `yaml:"showVisibility"`
		CreateTeam        bool     `yaml:"createTeam"`
		ShowCreateTeam    bool     `yaml:"showCreateTeam"`
		CreateOneNote     bool     `yaml:"createOneNote"`
		ShowCreateOneNote bool     `yaml:"showCreateOneNote"`
		CreatePlanner     bool     `yaml:"createPlanner"`
		ShowCreatePlanner bool     `yaml:"showCreatePlanner"`
	} `yaml:"siteTemplates"`

	ContentTypes []struct {
		Name   string `yaml:"name"`
		Fields []struct {
			InternalName string   `yaml:"internalName"`
			Title        string   `yaml:"title"`
			Type         string   `yaml:"type"`
			Required     bool     `yaml:"required"`
			Hidden       bool     `yaml:"hidden"`
			Default      string   `yaml:"default"`
			Choices      []string `yaml:"choices"`
			TermSetID    string   `yaml:"termSetId"`
			LookupList   string   `yaml:"lookupList"`
		} `yaml:"fields"`
	} `yaml:"contentTypes"`

	Blacklist []string `yaml:"blacklist"`

	Sites []struct {
		Title     string `yaml:"title"`
		SiteURL   string `yaml:"siteUrl"`
		ParentURL string `yaml:"parentUrl"`
		Alias     string `yaml:"alias"`
		Division  string `yaml:"division"`
		Created   string `yaml:"created"`
	} `yaml:"sites"`
}

var fixtureFile = flag.String("file", "seed.yaml", "Path to the seed fixture file")

func main() {
	flag.Parse()

	cfg, err := config.LoadConfig(flag.Args())
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	raw, err := os.ReadFile(*fixtureFile)
	if err != nil {
		log.Fatalf("Failed to read fixture file: %v", err)
	}

	var fx fixtures
	if err := yaml.Unmarshal(raw, &fx); err != nil {
		log.Fatalf("Failed to parse fixture file: %v", err)
	}

	s, err := openStore(cfg)
	if err != nil {
		log.Fatalf("Failed to open store: %v", err)
	}
	defer s.Close()

	ctx := context.Background()

	divisionIDs := seedDivisions(ctx, s, cfg, &fx)
	seedTemplates(ctx, s, cfg, &fx, divisionIDs)
	seedContentTypes(ctx, s, &fx)
	seedBlacklist(ctx, s, cfg, &fx)
	seedSites(ctx, s, cfg, &fx, divisionIDs)

	fmt.Println("\nSeeding complete!")
}

func openStore(cfg *config.Config) (store.ListStore, error) {
	opts := store.Options{
		LookupTargets: map[string]string{
			domain.FieldDivision:     cfg.Lists.Divisions,
			domain.FieldSiteTemplate: cfg.Lists.SiteTemplates,
		},
	}
	logger := slog.Default()

	if cfg.Store.Driver == "sqlite" {
		db, err := sqlite.Open(filepath.Join(cfg.Store.Path, "siteprov.db"), opts, logger)
		if err != nil {
			return nil, err
		}
		return db, nil
	}

	db, err := store.New(filepath.Join(cfg.Store.Path, "db"), opts, logger)
	if err != nil {
		return nil, err
	}
	return db, nil
}

// seedDivisions creates the division records and returns title -> item id.
func seedDivisions(ctx context.Context, s store.ListStore, cfg *config.Config, fx *fixtures) map[string]int {
	ids := make(map[string]int, len(fx.Divisions))
	for _, div := range fx.Divisions {
		fields := map[string]any{domain.FieldTitle: div.Title}
		if div.Prefix != "" {
			fields[domain.FieldDivisionPrefix] = div.Prefix
		}
		item, err := s.AddItem(ctx, cfg.Lists.Divisions, fields)
		if err != nil {
			log.Fatalf("Failed to create division %s: %v", div.Title, err)
		}
		ids[div.Title] = item.ID
		fmt.Printf("Created division: %s (id %d)\n", div.Title, item.ID)
	}
	return ids
}

func seedTemplates(ctx context.Context, s store.ListStore, cfg *config.Config, fx *fixtures, divisionIDs map[string]int) {
	for _, tpl := range fx.SiteTemplates {
		fields := map[string]any{
			domain.FieldTitle:           tpl.Title,
			domain.FieldContentTypeName: tpl.ContentType,
			domain.FieldOffice365Group:  tpl.Office365Group,

			domain.FieldCreateTeam:         tpl.CreateTeam,
			domain.FieldShowCreateTeam:     tpl.ShowCreateTeam,
			domain.FieldCreateOneNote:      tpl.CreateOneNote,
			domain.FieldShowCreateOneNote:  tpl.ShowCreateOneNote,
			domain.FieldCreatePlanner:      tpl.CreatePlanner,
			domain.FieldShowCreatePlanner:  tpl.ShowCreatePlanner,
			domain.FieldShowSiteVisibility: tpl.ShowVisibility,
		}
		if tpl.VisibilityDefault != "" {
			fields[domain.FieldSiteVisibility] = tpl.VisibilityDefault
		}

		var refs []domain.LookupRef
		for _, name := range tpl.Divisions {
			id, ok := divisionIDs[name]
			if !ok {
				log.Fatalf("Template %s references unknown division %s", tpl.Title, name)
			}
			refs = append(refs, domain.LookupRef{ID: id, Title: name})
		}
		if len(refs) > 0 {
			fields[domain.FieldDivisions] = refs
		}

		item, err := s.AddItem(ctx, cfg.Lists.SiteTemplates, fields)
		if err != nil {
			log.Fatalf("Failed to create site template %s: %v", tpl.Title, err)
		}
		fmt.Printf("Created site template: %s (id %d)\n", tpl.Title, item.ID)
	}
}

func seedContentTypes(ctx context.Context, s store.ListStore, fx *fixtures) {
	for _, ct := range fx.ContentTypes {
		schema := &domain.ContentType{
			ID:   "0x0100" + strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")),
			Name: ct.Name,
		}
		for _, f := range ct.Fields {
			field := domain.ContentTypeField{
				InternalName: f.InternalName,
				Title:        f.Title,
				Type:         f.Type,
				Required:     f.Required,
				Hidden:       f.Hidden,
				DefaultValue: f.Default,
				Choices:      f.Choices,
				LookupList:   f.LookupList,
			}
			// Taxonomy fields need a term set id; generate one when the
			// fixture doesn't pin it.
			if f.Type == domain.FormFieldTaxonomy || f.Type == domain.FormFieldTaxonomyMulti {
				field.TermSetID = f.TermSetID
				if field.TermSetID == "" {
					field.TermSetID = uuid.NewString()
				}
			}
			schema.Fields = append(schema.Fields, field)
		}

		if err := s.SaveContentType(ctx, schema); err != nil {
			log.Fatalf("Failed to save content type %s: %v", ct.Name, err)
		}
		fmt.Printf("Saved content type: %s (%d fields)\n", ct.Name, len(schema.Fields))
	}
}

// seedBlacklist writes the single blacklist record: one title holding the
// comma-separated phrase list.
func seedBlacklist(ctx context.Context, s store.ListStore, cfg *config.Config, fx *fixtures) {
	if len(fx.Blacklist) == 0 {
		return
	}
	_, err := s.AddItem(ctx, cfg.Lists.Blacklist, map[string]any{
		domain.FieldTitle: strings.Join(fx.Blacklist, ","),
	})
	if err != nil {
		log.Fatalf("Failed to create blacklist record: %v", err)
	}
	fmt.Printf("Created blacklist record (%d phrases)\n", len(fx.Blacklist))
}

func seedSites(ctx context.Context, s store.ListStore, cfg *config.Config, fx *fixtures, divisionIDs map[string]int) {
	for _, site := range fx.Sites {
		fields := map[string]any{domain.FieldTitle: site.Title}
		if site.SiteURL != "" {
			fields[domain.FieldSiteURL] = domain.URLValue{URL: site.SiteURL, Description: site.SiteURL}
		}
		if site.ParentURL != "" {
			fields[domain.FieldParentURL] = domain.URLValue{URL: site.ParentURL, Description: site.ParentURL}
		}
		if site.Alias != "" {
			fields[domain.FieldAlias] = site.Alias
		}
		if site.Created != "" {
			fields[domain.FieldSiteCreated] = site.Created
		}
		if site.Division != "" {
			id, ok := divisionIDs[site.Division]
			if !ok {
				log.Fatalf("Site %s references unknown division %s", site.Title, site.Division)
			}
			fields[domain.FieldDivision] = domain.LookupRef{ID: id, Title: site.Division}
		}

		item, err := s.AddItem(ctx, cfg.Lists.Sites, fields)
		if err != nil {
			log.Fatalf("Failed to create site %s: %v", site.Title, err)
		}
		fmt.Printf("Created site: %s (id %d)\n", site.Title, item.ID)
	}
}
