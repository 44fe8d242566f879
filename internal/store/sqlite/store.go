// Package sqlite provides a SQLite-backed implementation of store.ListStore.
// It keeps the same contract as the Badger store: lists of JSON field maps
// with per-list ascending ids, title-ordered keyset pagination, user
// resolution, and content type schemas.
package sqlite

import (
	"context"
	"database/sql"
	_ "embed"
	"encoding/json/v2"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/eumtools/siteprov-server/internal/domain"
	"github.com/eumtools/siteprov-server/internal/store"
)

//go:embed schema.sql
var schemaSQL string

// Store provides SQLite-backed list persistence.
type Store struct {
	db     *sql.DB
	opts   store.Options
	logger *slog.Logger
}

// Open creates a SQLite store at the given path. It configures WAL mode,
// sets pragmas, and runs schema migrations.
func Open(path string, opts store.Options, logger *slog.Logger) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	db.SetMaxOpenConns(4)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(time.Hour)

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA foreign_keys=ON",
		"PRAGMA busy_timeout=5000",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("exec pragma %q: %w", pragma, err)
		}
	}

	if _, err := db.Exec(schemaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("exec schema: %w", err)
	}

	return &Store{db: db, opts: opts, logger: logger}, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// AddItem creates one item in the named list inside a single transaction.
func (s *Store) AddItem(ctx context.Context, list string, fields map[string]any) (*domain.Item, error) {
	item := &domain.Item{Fields: make(map[string]any, len(fields))}
	for name, value := range fields {
		item.Fields[name] = value
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	var maxID sql.NullInt64
	err = tx.QueryRowContext(ctx,
		`SELECT MAX(id) FROM items WHERE list = ?`, list).Scan(&maxID)
	if err != nil {
		return nil, fmt.Errorf("next id: %w", err)
	}
	item.ID = int(maxID.Int64) + 1

	if err := s.resolveLookupTitles(ctx, tx, item.Fields); err != nil {
		return nil, err
	}

	data, err := json.Marshal(item.Fields)
	if err != nil {
		return nil, fmt.Errorf("marshal item fields: %w", err)
	}

	title, _ := item.String(domain.FieldTitle)
	_, err = tx.ExecContext(ctx,
		`INSERT INTO items (list, id, title_sort, fields) VALUES (?, ?, ?, ?)`,
		list, item.ID, store.TitleSortKey(title), string(data))
	if err != nil {
		return nil, fmt.Errorf("insert item: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}

	s.logger.Debug("item created", "list", list, "id", item.ID)
	return item, nil
}

func (s *Store) resolveLookupTitles(ctx context.Context, tx *sql.Tx, fields map[string]any) error {
	for name, value := range fields {
		target, known := s.opts.LookupTargets[name]
		if !known {
			continue
		}

		switch ref := value.(type) {
		case domain.LookupRef:
			resolved, err := s.resolveTitle(ctx, tx, target, ref)
			if err != nil {
				return err
			}
			fields[name] = resolved
		case *domain.LookupRef:
			if ref == nil {
				continue
			}
			resolved, err := s.resolveTitle(ctx, tx, target, *ref)
			if err != nil {
				return err
			}
			fields[name] = resolved
		case []domain.LookupRef:
			for i := range ref {
				resolved, err := s.resolveTitle(ctx, tx, target, ref[i])
				if err != nil {
					return err
				}
				ref[i] = resolved
			}
		}
	}
	return nil
}

func (s *Store) resolveTitle(ctx context.Context, tx *sql.Tx, list string, ref domain.LookupRef) (domain.LookupRef, error) {
	if ref.Title != "" {
		return ref, nil
	}

	item, err := getItemTx(ctx, tx, list, ref.ID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ref, store.ErrInvalidInput.WithMessage(
				fmt.Sprintf("lookup id %d not found in list %s", ref.ID, list))
		}
		return ref, err
	}

	if title, ok := item.String(domain.FieldTitle); ok {
		ref.Title = title
	}
	return ref, nil
}

type rowQuerier interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func getItemTx(ctx context.Context, q rowQuerier, list string, id int) (*domain.Item, error) {
	var data string
	err := q.QueryRowContext(ctx,
		`SELECT fields FROM items WHERE list = ? AND id = ?`, list, id).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNotFound.WithMessage(fmt.Sprintf("item %d not found in list %s", id, list))
	}
	if err != nil {
		return nil, fmt.Errorf("get item: %w", err)
	}

	item := &domain.Item{ID: id}
	if err := json.Unmarshal([]byte(data), &item.Fields); err != nil {
		return nil, fmt.Errorf("decode item %d: %w", id, err)
	}
	return item, nil
}

// GetItem fetches one item by id.
func (s *Store) GetItem(ctx context.Context, list string, id int) (*domain.Item, error) {
	return getItemTx(ctx, s.db, list, id)
}

// GetItems runs a paged query in (title_sort, id) keyset order. Filters are
// evaluated in Go against the decoded items so the semantics match the
// Badger backend exactly. The cursor encodes the keyset position of the last
// returned row and is only set when a further matching row exists.
func (s *Store) GetItems(ctx context.Context, list string, q store.Query) (*store.Page, error) {
	if q.OrderBy != "" && q.OrderBy != domain.FieldTitle {
		return nil, store.ErrInvalidInput.WithMessage(fmt.Sprintf("unsupported order key %q", q.OrderBy))
	}

	pageSize := q.PageSize
	if pageSize <= 0 {
		pageSize = 100
	}

	afterTitle, afterID, err := decodeKeyset(q.Cursor)
	if err != nil {
		return nil, store.ErrInvalidInput.WithCause(err)
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, title_sort, fields FROM items
		WHERE list = ? AND (title_sort, id) > (?, ?)
		ORDER BY title_sort, id`,
		list, afterTitle, afterID)
	if err != nil {
		return nil, fmt.Errorf("query items: %w", err)
	}
	defer rows.Close()

	page := &store.Page{}
	var lastTitle string
	var lastID int
	for rows.Next() {
		var (
			id        int
			titleSort string
			data      string
		)
		if err := rows.Scan(&id, &titleSort, &data); err != nil {
			return nil, fmt.Errorf("scan item: %w", err)
		}

		item := domain.Item{ID: id}
		if err := json.Unmarshal([]byte(data), &item.Fields); err != nil {
			return nil, fmt.Errorf("decode item %d: %w", id, err)
		}

		if !q.Matches(item) {
			continue
		}

		if len(page.Items) == pageSize {
			page.NextCursor = encodeKeyset(lastTitle, lastID)
			return page, nil
		}

		page.Items = append(page.Items, item)
		lastTitle, lastID = titleSort, id
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate items: %w", err)
	}

	return page, nil
}

// encodeKeyset packs a (title_sort, id) resume position into an opaque
// cursor. Title sort keys may contain any character, so the id leads.
func encodeKeyset(titleSort string, id int) string {
	return store.EncodeCursor(strconv.Itoa(id) + "|" + titleSort)
}

func decodeKeyset(cursor string) (string, int, error) {
	if cursor == "" {
		return "", 0, nil
	}

	raw, err := store.DecodeCursor(cursor)
	if err != nil {
		return "", 0, err
	}

	idPart, titlePart, found := strings.Cut(raw, "|")
	if !found {
		return "", 0, fmt.Errorf("malformed cursor")
	}
	id, err := strconv.Atoi(idPart)
	if err != nil {
		return "", 0, fmt.Errorf("malformed cursor id: %w", err)
	}
	return titlePart, id, nil
}

// EnsureUser resolves a username to a user record, creating it on first use.
func (s *Store) EnsureUser(ctx context.Context, username string) (*domain.User, error) {
	if username == "" {
		return nil, store.ErrInvalidInput.WithMessage("username must not be empty")
	}

	key := strings.ToLower(username)

	var user domain.User
	err := s.db.QueryRowContext(ctx,
		`SELECT id, username FROM users WHERE username_key = ?`, key).
		Scan(&user.ID, &user.Username)
	if err == nil {
		return &user, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("get user: %w", err)
	}

	res, err := s.db.ExecContext(ctx,
		`INSERT INTO users (username_key, username) VALUES (?, ?)`, key, username)
	if err != nil {
		// Lost a race with a concurrent insert; read the winner.
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			err = s.db.QueryRowContext(ctx,
				`SELECT id, username FROM users WHERE username_key = ?`, key).
				Scan(&user.ID, &user.Username)
			if err != nil {
				return nil, fmt.Errorf("get user after conflict: %w", err)
			}
			return &user, nil
		}
		return nil, fmt.Errorf("insert user: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("user id: %w", err)
	}
	return &domain.User{ID: int(id), Username: username}, nil
}

// SaveContentType stores or replaces a content type schema.
func (s *Store) SaveContentType(ctx context.Context, ct *domain.ContentType) error {
	if ct.Name == "" {
		return store.ErrInvalidInput.WithMessage("content type name must not be empty")
	}

	data, err := json.Marshal(ct)
	if err != nil {
		return fmt.Errorf("marshal content type: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO content_types (name, schema) VALUES (?, ?)
		ON CONFLICT(name) DO UPDATE SET schema = excluded.schema`,
		ct.Name, string(data))
	if err != nil {
		return fmt.Errorf("save content type: %w", err)
	}
	return nil
}

// GetContentType fetches a content type schema by name.
func (s *Store) GetContentType(ctx context.Context, name string) (*domain.ContentType, error) {
	var data string
	err := s.db.QueryRowContext(ctx,
		`SELECT schema FROM content_types WHERE name = ?`, name).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNotFound.WithMessage(fmt.Sprintf("content type %q not found", name))
	}
	if err != nil {
		return nil, fmt.Errorf("get content type: %w", err)
	}

	var ct domain.ContentType
	if err := json.Unmarshal([]byte(data), &ct); err != nil {
		return nil, fmt.Errorf("decode content type: %w", err)
	}
	return &ct, nil
}
