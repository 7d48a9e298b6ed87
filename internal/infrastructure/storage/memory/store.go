// Package memory provides an in-process sheet store.
package memory

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"stockbook/internal/domain/sheet"
)

var _ sheet.Store = (*Store)(nil)

type table struct {
	header []string
	rows   []sheet.Row
}

func (t *table) clone() *table {
	rows := make([]sheet.Row, len(t.rows))
	for i, r := range t.rows {
		rows[i] = sheet.Row{Ref: r.Ref, Cells: slices.Clone(r.Cells)}
	}
	return &table{header: slices.Clone(t.header), rows: rows}
}

// Store keeps sheets in memory. Row refs are assigned from a counter and never
// reused, so they stay valid until the row is deleted.
type Store struct {
	mu      sync.Mutex
	sheets  map[string]*table
	nextRef sheet.RowRef
}

// New creates an empty store.
func New() *Store {
	return &Store{sheets: make(map[string]*table)}
}

// txKey marks a context that already holds the store lock.
type txKey struct{}

func (s *Store) inTx(ctx context.Context) bool {
	owner, _ := ctx.Value(txKey{}).(*Store)
	return owner == s
}

// lock acquires the store lock unless ctx runs inside one of our transactions.
func (s *Store) lock(ctx context.Context) func() {
	if s.inTx(ctx) {
		return func() {}
	}
	s.mu.Lock()
	return s.mu.Unlock
}

// RunInTransaction holds the store lock for the duration of fn and restores
// the previous contents when fn fails.
func (s *Store) RunInTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if s.inTx(ctx) {
		return fn(ctx)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	snapshot := make(map[string]*table, len(s.sheets))
	for name, t := range s.sheets {
		snapshot[name] = t.clone()
	}
	nextRef := s.nextRef

	if err := fn(context.WithValue(ctx, txKey{}, s)); err != nil {
		s.sheets = snapshot
		s.nextRef = nextRef
		return err
	}
	return nil
}

func (s *Store) EnsureSheet(ctx context.Context, t sheet.Table) error {
	defer s.lock(ctx)()
	if _, ok := s.sheets[t.Name]; !ok {
		s.sheets[t.Name] = &table{header: t.Header()}
	}
	return nil
}

func (s *Store) Rows(ctx context.Context, name string) (*sheet.Data, error) {
	defer s.lock(ctx)()
	t, ok := s.sheets[name]
	if !ok {
		return nil, fmt.Errorf("%s: %w", name, sheet.ErrSheetNotFound)
	}
	c := t.clone()
	return &sheet.Data{Name: name, Header: c.header, Rows: c.rows}, nil
}

func (s *Store) Append(ctx context.Context, name string, cells []string) error {
	defer s.lock(ctx)()
	t, ok := s.sheets[name]
	if !ok {
		return fmt.Errorf("%s: %w", name, sheet.ErrSheetNotFound)
	}
	s.nextRef++
	t.rows = append(t.rows, sheet.Row{Ref: s.nextRef, Cells: slices.Clone(cells)})
	return nil
}

func (s *Store) Delete(ctx context.Context, name string, refs ...sheet.RowRef) error {
	defer s.lock(ctx)()
	t, ok := s.sheets[name]
	if !ok {
		return fmt.Errorf("%s: %w", name, sheet.ErrSheetNotFound)
	}
	if len(refs) == 0 {
		return nil
	}

	drop := make(map[sheet.RowRef]struct{}, len(refs))
	for _, r := range refs {
		drop[r] = struct{}{}
	}
	kept := t.rows[:0]
	for _, r := range t.rows {
		if _, ok := drop[r.Ref]; !ok {
			kept = append(kept, r)
		}
	}
	if removed := len(t.rows) - len(kept); removed != len(drop) {
		t.rows = kept
		return fmt.Errorf("%s: %d of %d rows not found", name, len(drop)-removed, len(drop))
	}
	t.rows = kept
	return nil
}

// Load replaces a sheet with the given header and rows. Intended for fixtures.
func (s *Store) Load(name string, header []string, rows ...[]string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t := &table{header: slices.Clone(header)}
	for _, cells := range rows {
		s.nextRef++
		t.rows = append(t.rows, sheet.Row{Ref: s.nextRef, Cells: slices.Clone(cells)})
	}
	s.sheets[name] = t
}

func (s *Store) Ping(context.Context) error { return nil }

func (s *Store) Close() error { return nil }
