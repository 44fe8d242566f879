package store

import (
	"context"
	"encoding/json/v2"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/dgraph-io/badger/v4"

	"github.com/eumtools/siteprov-server/internal/domain"
)

// Key layout:
//
//	item:<list>:<id, zero-padded>      -> item fields JSON
//	idx:<list>:title:<sortkey>:<id>    -> item id (ordered iteration by title)
//	user:<username>                    -> user JSON
//	ct:<name>                          -> content type JSON
//	seq:<scope>                        -> next id counter
const (
	itemKeyPrefix  = "item:"
	indexKeyPrefix = "idx:"
	userKeyPrefix  = "user:"
	ctKeyPrefix    = "ct:"
	seqKeyPrefix   = "seq:"

	// idPadWidth keeps lexicographic key order aligned with numeric id order.
	idPadWidth = 10
)

// Store is the Badger-backed list store.
type Store struct {
	db     *badger.DB
	opts   Options
	logger *slog.Logger
}

// New opens (or creates) a Badger-backed store at the given path.
func New(path string, opts Options, logger *slog.Logger) (*Store, error) {
	badgerOpts := badger.DefaultOptions(path)
	badgerOpts.Logger = nil            // Badger's internal logging is too chatty
	badgerOpts.SyncWrites = true       // provisioning requests must survive a crash
	badgerOpts.CompactL0OnClose = true

	db, err := badger.Open(badgerOpts)
	if err != nil {
		return nil, fmt.Errorf("open badger store: %w", err)
	}

	return &Store{db: db, opts: opts, logger: logger}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

func itemKey(list string, id int) []byte {
	return fmt.Appendf(nil, "%s%s:%0*d", itemKeyPrefix, list, idPadWidth, id)
}

func titleIndexKey(list, title string, id int) []byte {
	return fmt.Appendf(nil, "%s%s:title:%s:%0*d", indexKeyPrefix, list, TitleSortKey(title), idPadWidth, id)
}

func titleIndexPrefix(list string) []byte {
	return fmt.Appendf(nil, "%s%s:title:", indexKeyPrefix, list)
}

// AddItem creates one item in the named list. Lookup references without a
// display title are resolved against their target list inside the same
// transaction, so readers never observe an unresolved reference.
func (s *Store) AddItem(ctx context.Context, list string, fields map[string]any) (*domain.Item, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	item := &domain.Item{Fields: make(map[string]any, len(fields))}
	for name, value := range fields {
		item.Fields[name] = value
	}

	err := s.db.Update(func(txn *badger.Txn) error {
		id, err := s.nextID(txn, list)
		if err != nil {
			return err
		}
		item.ID = id

		if err := s.resolveLookupTitles(txn, item.Fields); err != nil {
			return err
		}

		data, err := json.Marshal(item.Fields)
		if err != nil {
			return fmt.Errorf("marshal item fields: %w", err)
		}

		if err := txn.Set(itemKey(list, id), data); err != nil {
			return fmt.Errorf("set item key: %w", err)
		}

		title, _ := item.String(domain.FieldTitle)
		if err := txn.Set(titleIndexKey(list, title, id), []byte(strconv.Itoa(id))); err != nil {
			return fmt.Errorf("set title index: %w", err)
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Debug("item created", "list", list, "id", item.ID)
	return item, nil
}

// nextID increments the per-list id counter inside the transaction.
func (s *Store) nextID(txn *badger.Txn, scope string) (int, error) {
	key := []byte(seqKeyPrefix + scope)

	next := 1
	entry, err := txn.Get(key)
	switch {
	case err == nil:
		err = entry.Value(func(val []byte) error {
			current, parseErr := strconv.Atoi(string(val))
			if parseErr != nil {
				return fmt.Errorf("corrupt sequence for %s: %w", scope, parseErr)
			}
			next = current + 1
			return nil
		})
		if err != nil {
			return 0, err
		}
	case errors.Is(err, badger.ErrKeyNotFound):
		// First item in this scope.
	default:
		return 0, fmt.Errorf("read sequence: %w", err)
	}

	if err := txn.Set(key, []byte(strconv.Itoa(next))); err != nil {
		return 0, fmt.Errorf("advance sequence: %w", err)
	}
	return next, nil
}

// resolveLookupTitles fills in display titles for lookup references whose
// field has a registered target list.
func (s *Store) resolveLookupTitles(txn *badger.Txn, fields map[string]any) error {
	for name, value := range fields {
		target, known := s.opts.LookupTargets[name]
		if !known {
			continue
		}

		switch ref := value.(type) {
		case domain.LookupRef:
			resolved, err := s.resolveTitle(txn, target, ref)
			if err != nil {
				return err
			}
			fields[name] = resolved
		case *domain.LookupRef:
			if ref == nil {
				continue
			}
			resolved, err := s.resolveTitle(txn, target, *ref)
			if err != nil {
				return err
			}
			fields[name] = resolved
		case []domain.LookupRef:
			for i := range ref {
				resolved, err := s.resolveTitle(txn, target, ref[i])
				if err != nil {
					return err
				}
				ref[i] = resolved
			}
		}
	}
	return nil
}

func (s *Store) resolveTitle(txn *badger.Txn, list string, ref domain.LookupRef) (domain.LookupRef, error) {
	if ref.Title != "" {
		return ref, nil
	}

	item, err := s.getItemTxn(txn, list, ref.ID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return ref, ErrInvalidInput.WithMessage(
				fmt.Sprintf("lookup id %d not found in list %s", ref.ID, list))
		}
		return ref, err
	}

	if title, ok := item.String(domain.FieldTitle); ok {
		ref.Title = title
	}
	return ref, nil
}

// GetItem fetches one item by id.
func (s *Store) GetItem(ctx context.Context, list string, id int) (*domain.Item, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var item *domain.Item
	err := s.db.View(func(txn *badger.Txn) error {
		found, err := s.getItemTxn(txn, list, id)
		if err != nil {
			return err
		}
		item = found
		return nil
	})
	if err != nil {
		return nil, err
	}
	return item, nil
}

func (s *Store) getItemTxn(txn *badger.Txn, list string, id int) (*domain.Item, error) {
	entry, err := txn.Get(itemKey(list, id))
	if err != nil {
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil, ErrNotFound.WithMessage(fmt.Sprintf("item %d not found in list %s", id, list))
		}
		return nil, fmt.Errorf("get item: %w", err)
	}

	item := &domain.Item{ID: id}
	err = entry.Value(func(val []byte) error {
		return json.Unmarshal(val, &item.Fields)
	})
	if err != nil {
		return nil, fmt.Errorf("decode item %d: %w", id, err)
	}
	return item, nil
}

// GetItems runs a paged query over the list, iterating the title index in
// ascending order. Filters are evaluated against the loaded items; the page
// cursor resumes iteration after the last returned index key. The cursor is
// only set when at least one further matching item exists, so callers never
// chase an empty trailing page.
func (s *Store) GetItems(ctx context.Context, list string, q Query) (*Page, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if q.OrderBy != "" && q.OrderBy != domain.FieldTitle {
		return nil, ErrInvalidInput.WithMessage(fmt.Sprintf("unsupported order key %q", q.OrderBy))
	}

	pageSize := q.PageSize
	if pageSize <= 0 {
		pageSize = 100
	}

	resumeAfter, err := DecodeCursor(q.Cursor)
	if err != nil {
		return nil, ErrInvalidInput.WithCause(err)
	}

	page := &Page{}
	err = s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		prefix := titleIndexPrefix(list)
		opts.Prefix = prefix

		it := txn.NewIterator(opts)
		defer it.Close()

		var lastKey string
		if resumeAfter != "" {
			it.Seek([]byte(resumeAfter))
			// The cursor names the last key of the previous page.
			if it.ValidForPrefix(prefix) && string(it.Item().Key()) == resumeAfter {
				it.Next()
			}
		} else {
			it.Seek(prefix)
		}

		for ; it.ValidForPrefix(prefix); it.Next() {
			var id int
			err := it.Item().Value(func(val []byte) error {
				parsed, parseErr := strconv.Atoi(string(val))
				if parseErr != nil {
					return fmt.Errorf("corrupt index entry %q: %w", it.Item().Key(), parseErr)
				}
				id = parsed
				return nil
			})
			if err != nil {
				return err
			}

			item, err := s.getItemTxn(txn, list, id)
			if err != nil {
				return err
			}

			if !q.Matches(*item) {
				continue
			}

			if len(page.Items) == pageSize {
				// A further matching item exists; resume here next page.
				page.NextCursor = EncodeCursor(lastKey)
				return nil
			}

			page.Items = append(page.Items, *item)
			lastKey = string(it.Item().KeyCopy(nil))
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	return page, nil
}

// EnsureUser resolves a username to a user record, creating it on first use.
func (s *Store) EnsureUser(ctx context.Context, username string) (*domain.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if username == "" {
		return nil, ErrInvalidInput.WithMessage("username must not be empty")
	}

	var user domain.User
	err := s.db.Update(func(txn *badger.Txn) error {
		key := []byte(userKeyPrefix + strings.ToLower(username))

		entry, err := txn.Get(key)
		if err == nil {
			return entry.Value(func(val []byte) error {
				return json.Unmarshal(val, &user)
			})
		}
		if !errors.Is(err, badger.ErrKeyNotFound) {
			return fmt.Errorf("get user: %w", err)
		}

		id, err := s.nextID(txn, "!users")
		if err != nil {
			return err
		}
		user = domain.User{ID: id, Username: username}

		data, err := json.Marshal(user)
		if err != nil {
			return fmt.Errorf("marshal user: %w", err)
		}
		return txn.Set(key, data)
	})
	if err != nil {
		return nil, err
	}

	return &user, nil
}

// SaveContentType stores or replaces a content type schema.
func (s *Store) SaveContentType(ctx context.Context, ct *domain.ContentType) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if ct.Name == "" {
		return ErrInvalidInput.WithMessage("content type name must not be empty")
	}

	data, err := json.Marshal(ct)
	if err != nil {
		return fmt.Errorf("marshal content type: %w", err)
	}

	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(ctKeyPrefix+ct.Name), data)
	})
}

// GetContentType fetches a content type schema by name.
func (s *Store) GetContentType(ctx context.Context, name string) (*domain.ContentType, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var ct domain.ContentType
	err := s.db.View(func(txn *badger.Txn) error {
		entry, err := txn.Get([]byte(ctKeyPrefix + name))
		if err != nil {
			if errors.Is(err, badger.ErrKeyNotFound) {
				return ErrNotFound.WithMessage(fmt.Sprintf("content type %q not found", name))
			}
			return fmt.Errorf("get content type: %w", err)
		}
		return entry.Value(func(val []byte) error {
			return json.Unmarshal(val, &ct)
		})
	})
	if err != nil {
		return nil, err
	}

	return &ct, nil
}
