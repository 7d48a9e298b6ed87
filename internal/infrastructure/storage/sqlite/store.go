// Package sqlite stores sheets as tables of a SQLite database file.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	sq "github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"

	"stockbook/internal/domain/sheet"
	"stockbook/pkg/logger"
)

var _ sheet.Store = (*Store)(nil)

const rowIDColumn = "row_id"

// Store keeps each sheet in its own table: an INTEGER row_id followed by one
// TEXT column per header column.
type Store struct {
	db *sqlx.DB

	mu     sync.RWMutex
	tables map[string]sheet.Table
}

// Open opens (or creates) the database at path. Transactions take the write
// lock when they begin, so lookups and writes of concurrent requests do not
// interleave.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create database dir: %w", err)
		}
	}
	db, err := sqlx.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000&_txlock=immediate")
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", path, err)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite %s: %w", path, err)
	}
	return &Store{db: db, tables: make(map[string]sheet.Table)}, nil
}

type txKey struct{}

func (s *Store) querier(ctx context.Context) sqlx.ExtContext {
	if tx, ok := ctx.Value(txKey{}).(*sqlx.Tx); ok {
		return tx
	}
	return s.db
}

// RunInTransaction runs fn in a database transaction. Nested calls join it.
func (s *Store) RunInTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if _, ok := ctx.Value(txKey{}).(*sqlx.Tx); ok {
		return fn(ctx)
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	if err := fn(context.WithValue(ctx, txKey{}, tx)); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil && rbErr != sql.ErrTxDone {
			logger.Error(ctx, "rollback failed", "error", rbErr, "original_error", err)
		}
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

func tableName(sheetName string) string { return strings.ToLower(sheetName) }

func columnName(column string) string { return strings.ToLower(column) }

func quote(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

func (s *Store) table(name string) (sheet.Table, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.tables[name]
	if !ok {
		return sheet.Table{}, fmt.Errorf("%s: %w", name, sheet.ErrSheetNotFound)
	}
	return t, nil
}

func createTableSQL(t sheet.Table) string {
	cols := make([]string, 0, len(t.Columns)+1)
	cols = append(cols, quote(rowIDColumn)+" INTEGER PRIMARY KEY AUTOINCREMENT")
	for _, c := range t.Columns {
		cols = append(cols, quote(columnName(c.Name))+" TEXT NOT NULL DEFAULT ''")
	}
	return fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (%s)", quote(tableName(t.Name)), strings.Join(cols, ", "))
}

func (s *Store) EnsureSheet(ctx context.Context, t sheet.Table) error {
	err := s.RunInTransaction(ctx, func(ctx context.Context) error {
		q := s.querier(ctx)
		if _, err := q.ExecContext(ctx, createTableSQL(t)); err != nil {
			return fmt.Errorf("create table %s: %w", tableName(t.Name), err)
		}

		// Add columns that a table created by an older schema lacks.
		var existing []string
		if err := sqlx.SelectContext(ctx, q, &existing,
			"SELECT name FROM pragma_table_info(?)", tableName(t.Name)); err != nil {
			return fmt.Errorf("inspect table %s: %w", tableName(t.Name), err)
		}
		have := make(map[string]bool, len(existing))
		for _, c := range existing {
			have[c] = true
		}
		for _, c := range t.Columns {
			if have[columnName(c.Name)] {
				continue
			}
			stmt := fmt.Sprintf("ALTER TABLE %s ADD COLUMN %s TEXT NOT NULL DEFAULT ''",
				quote(tableName(t.Name)), quote(columnName(c.Name)))
			if _, err := q.ExecContext(ctx, stmt); err != nil {
				return fmt.Errorf("add column %s.%s: %w", tableName(t.Name), columnName(c.Name), err)
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.tables[t.Name] = t
	s.mu.Unlock()
	return nil
}

func (s *Store) Rows(ctx context.Context, name string) (*sheet.Data, error) {
	t, err := s.table(name)
	if err != nil {
		return nil, err
	}

	header := t.Header()
	cols := make([]string, 0, len(header)+1)
	cols = append(cols, quote(rowIDColumn))
	for _, column := range header {
		cols = append(cols, quote(columnName(column)))
	}
	query, args, err := sq.Select(cols...).
		From(quote(tableName(name))).
		OrderBy(quote(rowIDColumn)).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	rows, err := s.querier(ctx).QueryxContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("select %s: %w", tableName(name), err)
	}
	defer rows.Close()

	data := &sheet.Data{Name: name, Header: header}
	for rows.Next() {
		values, err := rows.SliceScan()
		if err != nil {
			return nil, fmt.Errorf("scan %s: %w", tableName(name), err)
		}
		ref, _ := values[0].(int64)
		cells := make([]string, len(header))
		for i := range header {
			cells[i] = text(values[i+1])
		}
		data.Rows = append(data.Rows, sheet.Row{Ref: sheet.RowRef(ref), Cells: cells})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate %s: %w", tableName(name), err)
	}
	return data, nil
}

func text(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case []byte:
		return string(t)
	case nil:
		return ""
	default:
		return fmt.Sprint(t)
	}
}

func (s *Store) Append(ctx context.Context, name string, cells []string) error {
	t, err := s.table(name)
	if err != nil {
		return err
	}

	header := t.Header()
	cols := make([]string, len(header))
	vals := make([]any, len(header))
	for i, column := range header {
		cols[i] = quote(columnName(column))
		vals[i] = ""
		if i < len(cells) {
			vals[i] = cells[i]
		}
	}
	query, args, err := sq.Insert(quote(tableName(name))).Columns(cols...).Values(vals...).ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}
	if _, err := s.querier(ctx).ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("insert into %s: %w", tableName(name), err)
	}
	return nil
}

func (s *Store) Delete(ctx context.Context, name string, refs ...sheet.RowRef) error {
	if len(refs) == 0 {
		return nil
	}
	if _, err := s.table(name); err != nil {
		return err
	}

	ids := make([]int64, len(refs))
	for i, r := range refs {
		ids[i] = int64(r)
	}
	query, args, err := sq.Delete(quote(tableName(name))).Where(sq.Eq{quote(rowIDColumn): ids}).ToSql()
	if err != nil {
		return fmt.Errorf("build delete: %w", err)
	}
	res, err := s.querier(ctx).ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("delete from %s: %w", tableName(name), err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("delete from %s: no rows matched", tableName(name))
	}
	return nil
}

func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *Store) Close() error {
	return s.db.Close()
}
