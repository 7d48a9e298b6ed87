package postgres

import (
	"context"
	"fmt"
	"strings"
	"sync"

	sq "github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/jackc/pgx/v5"

	"stockbook/internal/domain/sheet"
)

var _ sheet.Store = (*Store)(nil)

// rowIDColumn is the surrogate key behind sheet.RowRef.
const rowIDColumn = "row_id"

// storeLockKey is the advisory lock shared by all writers of the store.
const storeLockKey int64 = 0x53544f434b // "STOCK"

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

// Store keeps each sheet in its own table: a BIGSERIAL row_id followed by one
// TEXT column per header column, in header order. Table and column names are
// the lower-cased sheet and column names.
type Store struct {
	pool *Pool
	txm  *TxManager

	mu     sync.RWMutex
	tables map[string]sheet.Table
}

// NewStore creates a store on pool. Transactions are serialized with an
// advisory lock so key lookups and writes cannot interleave.
func NewStore(pool *Pool) *Store {
	opts := DefaultTxOptions()
	opts.LockKey = storeLockKey
	return &Store{
		pool:   pool,
		txm:    NewTxManager(pool, opts),
		tables: make(map[string]sheet.Table),
	}
}

func (s *Store) RunInTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return s.txm.RunInTransaction(ctx, fn)
}

func tableName(sheetName string) string {
	return strings.ToLower(sheetName)
}

func columnName(column string) string {
	return strings.ToLower(column)
}

func quote(name string) string {
	return pgx.Identifier{name}.Sanitize()
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

// createTableSQL returns the DDL that creates t and adds any columns that a
// table created by an older schema lacks.
func createTableSQL(t sheet.Table) []string {
	cols := make([]string, 0, len(t.Columns)+1)
	cols = append(cols, quote(rowIDColumn)+" BIGSERIAL PRIMARY KEY")
	for _, c := range t.Columns {
		cols = append(cols, quote(columnName(c.Name))+" TEXT NOT NULL DEFAULT ''")
	}

	stmts := []string{
		fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (%s)", quote(tableName(t.Name)), strings.Join(cols, ", ")),
	}
	for _, c := range t.Columns {
		stmts = append(stmts, fmt.Sprintf("ALTER TABLE %s ADD COLUMN IF NOT EXISTS %s TEXT NOT NULL DEFAULT ''",
			quote(tableName(t.Name)), quote(columnName(c.Name))))
	}
	return stmts
}

func (s *Store) EnsureSheet(ctx context.Context, t sheet.Table) error {
	err := s.RunInTransaction(ctx, func(ctx context.Context) error {
		q := s.txm.GetQuerier(ctx)
		for _, stmt := range createTableSQL(t) {
			if _, err := q.Exec(ctx, stmt); err != nil {
				return fmt.Errorf("ensure table %s: %w", tableName(t.Name), err)
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

func selectRowsQuery(t sheet.Table) sq.SelectBuilder {
	cols := make([]string, 0, len(t.Columns)+1)
	cols = append(cols, quote(rowIDColumn))
	for _, c := range t.Columns {
		cols = append(cols, quote(columnName(c.Name)))
	}
	return psql.Select(cols...).
		From(quote(tableName(t.Name))).
		OrderBy(quote(rowIDColumn))
}

func (s *Store) Rows(ctx context.Context, name string) (*sheet.Data, error) {
	t, err := s.table(name)
	if err != nil {
		return nil, err
	}

	query, args, err := selectRowsQuery(t).ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var records []map[string]any
	if err := pgxscan.Select(ctx, s.txm.GetQuerier(ctx), &records, query, args...); err != nil {
		return nil, fmt.Errorf("select %s: %w", tableName(name), err)
	}

	header := t.Header()
	data := &sheet.Data{Name: name, Header: header, Rows: make([]sheet.Row, 0, len(records))}
	for _, rec := range records {
		ref, _ := rec[rowIDColumn].(int64)
		cells := make([]string, len(header))
		for i, column := range header {
			if v, ok := rec[columnName(column)].(string); ok {
				cells[i] = v
			}
		}
		data.Rows = append(data.Rows, sheet.Row{Ref: sheet.RowRef(ref), Cells: cells})
	}
	return data, nil
}

func insertRowQuery(t sheet.Table, cells []string) sq.InsertBuilder {
	header := t.Header()
	cols := make([]string, len(header))
	vals := make([]any, len(header))
	for i, column := range header {
		cols[i] = quote(columnName(column))
		if i < len(cells) {
			vals[i] = cells[i]
		} else {
			vals[i] = ""
		}
	}
	return psql.Insert(quote(tableName(t.Name))).Columns(cols...).Values(vals...)
}

func (s *Store) Append(ctx context.Context, name string, cells []string) error {
	t, err := s.table(name)
	if err != nil {
		return err
	}
	query, args, err := insertRowQuery(t, cells).ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}
	if _, err := s.txm.GetQuerier(ctx).Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("insert into %s: %w", tableName(name), err)
	}
	return nil
}

func deleteRowsQuery(t sheet.Table, refs []sheet.RowRef) sq.DeleteBuilder {
	ids := make([]int64, len(refs))
	for i, r := range refs {
		ids[i] = int64(r)
	}
	return psql.Delete(quote(tableName(t.Name))).Where(sq.Eq{quote(rowIDColumn): ids})
}

func (s *Store) Delete(ctx context.Context, name string, refs ...sheet.RowRef) error {
	if len(refs) == 0 {
		return nil
	}
	t, err := s.table(name)
	if err != nil {
		return err
	}
	query, args, err := deleteRowsQuery(t, refs).ToSql()
	if err != nil {
		return fmt.Errorf("build delete: %w", err)
	}
	tag, err := s.txm.GetQuerier(ctx).Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("delete from %s: %w", tableName(name), err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("delete from %s: no rows matched", tableName(name))
	}
	return nil
}

func (s *Store) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

func (s *Store) Close() error {
	s.pool.Close()
	return nil
}

// Pool exposes the connection pool for metrics.
func (s *Store) Pool() *Pool {
	return s.pool
}
