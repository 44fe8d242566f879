// Package store provides the list store backing the site provisioning
// workflow: named lists of items with typed field values, paged structured
// queries, user resolution, and content type schemas. The package-level Store
// is the Badger-backed implementation; store/sqlite provides the same
// contract on SQLite.
package store

import (
	"context"
	"strings"

	"github.com/eumtools/siteprov-server/internal/domain"
)

// ListStore is the capability the services program against.
type ListStore interface {
	// AddItem creates one item in the named list with a store-assigned
	// ascending integer id. The write is atomic: on error nothing is stored.
	AddItem(ctx context.Context, list string, fields map[string]any) (*domain.Item, error)

	// GetItem fetches a single item by id. Returns ErrNotFound when absent.
	GetItem(ctx context.Context, list string, id int) (*domain.Item, error)

	// GetItems runs a paged structured query against the named list. The
	// returned page carries an opaque cursor; an empty cursor means no pages
	// remain. Items within and across pages follow the query's ascending
	// order key.
	GetItems(ctx context.Context, list string, q Query) (*Page, error)

	// EnsureUser resolves a username to a store user, creating the user
	// record on first use.
	EnsureUser(ctx context.Context, username string) (*domain.User, error)

	// SaveContentType stores or replaces a content type schema by name.
	SaveContentType(ctx context.Context, ct *domain.ContentType) error

	// GetContentType fetches a content type schema by name.
	GetContentType(ctx context.Context, name string) (*domain.ContentType, error)

	Close() error
}

// Page is one page of query results.
type Page struct {
	Items []domain.Item `json:"items"`
	// NextCursor is the opaque continuation token; empty when no more pages
	// remain.
	NextCursor string `json:"next_cursor,omitempty"`
}

// TitleSortKey normalizes a title for ordering, identically across backends.
// Colons are stripped so they cannot collide with the Badger key separator;
// the SQLite backend applies the same normalization so cursors and ordering
// agree regardless of driver.
func TitleSortKey(title string) string {
	return strings.ReplaceAll(strings.ToLower(title), ":", "")
}

// Options configures store behavior shared by all backends.
type Options struct {
	// LookupTargets maps lookup field internal names to the list their ids
	// reference. Lookup references written without a display title are
	// resolved against the target list at write time.
	LookupTargets map[string]string
}
