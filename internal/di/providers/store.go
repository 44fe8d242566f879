package providers

import (
	"fmt"
	"path/filepath"

	"github.com/samber/do/v2"

	"github.com/eumtools/siteprov-server/internal/config"
	"github.com/eumtools/siteprov-server/internal/domain"
	"github.com/eumtools/siteprov-server/internal/logger"
	"github.com/eumtools/siteprov-server/internal/store"
	"github.com/eumtools/siteprov-server/internal/store/sqlite"
)

// StoreHandle wraps the list store with shutdown capability.
type StoreHandle struct {
	store.ListStore
	close func() error
}

// Shutdown implements do.Shutdownable.
func (h *StoreHandle) Shutdown() error {
	return h.close()
}

// storeOptions wires the lookup fields of the site request form to the
// metadata lists their ids reference, so lookups written without a display
// title resolve at write time.
func storeOptions(cfg *config.Config) store.Options {
	return store.Options{
		LookupTargets: map[string]string{
			domain.FieldDivision:     cfg.Lists.Divisions,
			domain.FieldSiteTemplate: cfg.Lists.SiteTemplates,
		},
	}
}

// ProvideStore provides the list store selected by the configured driver.
func ProvideStore(i do.Injector) (*StoreHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)

	opts := storeOptions(cfg)

	switch cfg.Store.Driver {
	case "badger":
		dbPath := filepath.Join(cfg.Store.Path, "db")
		db, err := store.New(dbPath, opts, log.Logger)
		if err != nil {
			return nil, err
		}
		log.Info("List store initialized", "driver", "badger", "path", dbPath)
		return &StoreHandle{ListStore: db, close: db.Close}, nil

	case "sqlite":
		dbPath := filepath.Join(cfg.Store.Path, "siteprov.db")
		db, err := sqlite.Open(dbPath, opts, log.Logger)
		if err != nil {
			return nil, err
		}
		log.Info("List store initialized", "driver", "sqlite", "path", dbPath)
		return &StoreHandle{ListStore: db, close: db.Close}, nil

	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.Store.Driver)
	}
}
