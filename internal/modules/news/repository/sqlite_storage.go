package repository

import (
	"context"
	"database/sql"
	stderrors "errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"

	_ "github.com/mattn/go-sqlite3"
	"github.com/reshetovitsme/folkomatic/internal/modules/news/domain"
	"github.com/reshetovitsme/folkomatic/internal/shared/errors"
	"github.com/samber/lo"
	"github.com/samber/oops"
)

var tableName = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// SQLiteStorage implements Repository on one table of a SQLite file.
// The table keeps the historical (Title, Summary, Link, Img) layout: all text,
// no primary key, no retention. Rows are only ever inserted.
type SQLiteStorage struct {
	db    *sql.DB
	table string
}

// NewSQLiteStorage opens (or creates) the database at path and ensures table.
func NewSQLiteStorage(ctx context.Context, path, table string) (Repository, error) {
	if !tableName.MatchString(table) {
		return nil, oops.With("table", table).Wrap(errors.ErrInvalidName)
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, oops.With("dir", dir, "context", "failed to create database directory").Wrap(err)
		}
	}

	db, err := sql.Open("sqlite3", path+"?_busy_timeout=5000")
	if err != nil {
		return nil, oops.With("path", path, "context", "failed to open database").Wrap(err)
	}
	// Every operation borrows the single connection and returns it before
	// the caller reaches its next suspension point.
	db.SetMaxOpenConns(1)

	s := &SQLiteStorage{db: db, table: table}
	if err := s.EnsureTable(ctx, table); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// EnsureTable is idempotent. A failing CREATE (e.g. a concurrent creator) is
// logged; only an invalid name is reported to the caller.
func (s *SQLiteStorage) EnsureTable(ctx context.Context, name string) error {
	if !tableName.MatchString(name) {
		return oops.With("table", name).Wrap(errors.ErrInvalidName)
	}

	query := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %q (Title TEXT, Summary TEXT, Link TEXT, Img TEXT)`, name)
	if _, err := s.db.ExecContext(ctx, query); err != nil {
		slog.Error("Failed to create table", "table", name, "error", err)
	}
	return nil
}

func (s *SQLiteStorage) FilterNew(ctx context.Context, items []domain.NewsItem) ([]domain.NewsItem, error) {
	if len(items) == 0 {
		return []domain.NewsItem{}, nil
	}

	rows, err := s.db.QueryContext(ctx, fmt.Sprintf(`SELECT Title FROM %q`, s.table))
	if err != nil {
		return nil, oops.With("table", s.table, "context", "failed to read titles").Wrap(err)
	}
	defer rows.Close()

	seen := make(map[string]struct{})
	for rows.Next() {
		var title sql.NullString
		if err := rows.Scan(&title); err != nil {
			return nil, oops.With("table", s.table, "context", "failed to scan title").Wrap(err)
		}
		seen[title.String] = struct{}{}
	}
	if err := rows.Err(); err != nil {
		return nil, oops.With("table", s.table).Wrap(err)
	}

	return lo.Filter(items, func(item domain.NewsItem, _ int) bool {
		_, ok := seen[item.Title]
		return !ok
	}), nil
}

// Append inserts every item on its own. There is no transaction and no
// uniqueness constraint: the caller is expected to have filtered first.
func (s *SQLiteStorage) Append(ctx context.Context, items []domain.NewsItem) (int, error) {
	query := fmt.Sprintf(`INSERT INTO %q (Title, Summary, Link, Img) VALUES (?, ?, ?, ?)`, s.table)

	var (
		inserted int
		errs     []error
	)
	for _, item := range items {
		if _, err := s.db.ExecContext(ctx, query, item.Title, item.Summary, item.Link, item.ImageURL); err != nil {
			slog.Error("Failed to record news item", "table", s.table, "title", item.Title, "error", err)
			errs = append(errs, oops.With("title", item.Title).Wrap(err))
			continue
		}
		inserted++
	}

	if len(errs) > 0 {
		return inserted, oops.
			With("table", s.table, "failed", len(errs), "inserted", inserted).
			Wrap(stderrors.Join(append([]error{errors.ErrPersist}, errs...)...))
	}
	return inserted, nil
}

func (s *SQLiteStorage) List(ctx context.Context, limit int) ([]domain.NewsItem, error) {
	query := fmt.Sprintf(`SELECT Title, Summary, Link, Img FROM %q ORDER BY rowid DESC LIMIT ?`, s.table)
	rows, err := s.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, oops.With("table", s.table, "context", "failed to list records").Wrap(err)
	}
	defer rows.Close()

	items := []domain.NewsItem{}
	for rows.Next() {
		var title, summary, link, img sql.NullString
		if err := rows.Scan(&title, &summary, &link, &img); err != nil {
			return nil, oops.With("table", s.table, "context", "failed to scan record").Wrap(err)
		}
		items = append(items, domain.NewsItem{
			Title:    title.String,
			Summary:  summary.String,
			Link:     link.String,
			ImageURL: img.String,
		})
	}
	return items, rows.Err()
}

func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}
