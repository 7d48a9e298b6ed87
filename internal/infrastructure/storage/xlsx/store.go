// Package xlsx stores sheets as worksheets of one Excel workbook on disk.
package xlsx

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"sort"
	"sync"

	"github.com/xuri/excelize/v2"

	"stockbook/internal/domain/sheet"
	"stockbook/pkg/logger"
)

var _ sheet.Store = (*Store)(nil)

// defaultSheet is the worksheet excelize creates in a new workbook.
const defaultSheet = "Sheet1"

// Store is a sheet.Store backed by an .xlsx file.
//
// Every operation runs under one workbook-wide lock. Changes are written to
// disk when the outermost transaction commits; a failed transaction reloads
// the workbook from disk. A RowRef is the 1-based worksheet row number, so it
// is only meaningful until the next delete in the same sheet.
type Store struct {
	mu    sync.Mutex
	path  string
	file  *excelize.File
	dirty bool
}

// Open opens the workbook at path, creating it when it does not exist.
func Open(path string) (*Store, error) {
	s := &Store{path: path}

	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		if dir := filepath.Dir(path); dir != "" {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("create workbook dir: %w", err)
			}
		}
		s.file = excelize.NewFile()
		if err := s.file.SaveAs(path); err != nil {
			return nil, fmt.Errorf("create workbook %s: %w", path, err)
		}
		return s, nil
	}

	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("open workbook %s: %w", path, err)
	}
	s.file = f
	return s, nil
}

type txKey struct{}

func (s *Store) inTx(ctx context.Context) bool {
	owner, _ := ctx.Value(txKey{}).(*Store)
	return owner == s
}

// RunInTransaction holds the workbook lock while fn runs. Nested calls join
// the outer transaction.
func (s *Store) RunInTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if s.inTx(ctx) {
		return fn(ctx)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.dirty = false
	if err := fn(context.WithValue(ctx, txKey{}, s)); err != nil {
		if s.dirty {
			if rbErr := s.reload(); rbErr != nil {
				logger.Error(ctx, "workbook reload failed", "path", s.path, "error", rbErr, "original_error", err)
			}
		}
		return err
	}

	if !s.dirty {
		return nil
	}
	if err := s.file.SaveAs(s.path); err != nil {
		if rbErr := s.reload(); rbErr != nil {
			logger.Error(ctx, "workbook reload failed", "path", s.path, "error", rbErr)
		}
		return fmt.Errorf("save workbook: %w", err)
	}
	s.dirty = false
	return nil
}

func (s *Store) reload() error {
	_ = s.file.Close()
	f, err := excelize.OpenFile(s.path)
	if err != nil {
		return err
	}
	s.file = f
	s.dirty = false
	return nil
}

func (s *Store) exists(name string) bool {
	idx, err := s.file.GetSheetIndex(name)
	return err == nil && idx >= 0
}

func (s *Store) EnsureSheet(ctx context.Context, t sheet.Table) error {
	return s.RunInTransaction(ctx, func(ctx context.Context) error {
		if s.exists(t.Name) {
			return nil
		}
		if _, err := s.file.NewSheet(t.Name); err != nil {
			return fmt.Errorf("create sheet %s: %w", t.Name, err)
		}
		header := t.Header()
		if err := s.file.SetSheetRow(t.Name, "A1", &header); err != nil {
			return fmt.Errorf("write header %s: %w", t.Name, err)
		}
		s.dirty = true

		// Drop the placeholder worksheet of a freshly created workbook.
		if t.Name != defaultSheet && s.exists(defaultSheet) {
			rows, err := s.file.GetRows(defaultSheet)
			if err == nil && len(rows) == 0 {
				if err := s.file.DeleteSheet(defaultSheet); err != nil {
					return fmt.Errorf("delete %s: %w", defaultSheet, err)
				}
			}
		}
		logger.Debug(ctx, "sheet created", "sheet", t.Name)
		return nil
	})
}

func (s *Store) Rows(ctx context.Context, name string) (*sheet.Data, error) {
	var data *sheet.Data
	err := s.RunInTransaction(ctx, func(context.Context) error {
		rows, err := s.read(name)
		if err != nil {
			return err
		}
		data = &sheet.Data{Name: name}
		if len(rows) == 0 {
			return nil
		}
		data.Header = rows[0]
		data.Rows = make([]sheet.Row, 0, len(rows)-1)
		for i, cells := range rows[1:] {
			// Row 1 is the header; data starts at row 2.
			data.Rows = append(data.Rows, sheet.Row{Ref: sheet.RowRef(i + 2), Cells: cells})
		}
		return nil
	})
	return data, err
}

func (s *Store) read(name string) ([][]string, error) {
	if !s.exists(name) {
		return nil, fmt.Errorf("%s: %w", name, sheet.ErrSheetNotFound)
	}
	rows, err := s.file.GetRows(name)
	if err != nil {
		return nil, fmt.Errorf("read sheet %s: %w", name, err)
	}
	return rows, nil
}

func (s *Store) Append(ctx context.Context, name string, cells []string) error {
	return s.RunInTransaction(ctx, func(context.Context) error {
		rows, err := s.read(name)
		if err != nil {
			return err
		}
		next := max(len(rows)+1, 2)
		cell, err := excelize.CoordinatesToCellName(1, next)
		if err != nil {
			return err
		}
		values := slices.Clone(cells)
		if err := s.file.SetSheetRow(name, cell, &values); err != nil {
			return fmt.Errorf("append to %s: %w", name, err)
		}
		s.dirty = true
		return nil
	})
}

func (s *Store) Delete(ctx context.Context, name string, refs ...sheet.RowRef) error {
	if len(refs) == 0 {
		return nil
	}
	return s.RunInTransaction(ctx, func(context.Context) error {
		rows, err := s.read(name)
		if err != nil {
			return err
		}

		// Bottom-up, so earlier removals do not shift later refs.
		sorted := slices.Clone(refs)
		sort.Slice(sorted, func(i, j int) bool { return sorted[i] > sorted[j] })
		sorted = slices.Compact(sorted)

		for _, ref := range sorted {
			if ref < 2 || int(ref) > len(rows) {
				return fmt.Errorf("%s: row %d out of range", name, ref)
			}
			if err := s.file.RemoveRow(name, int(ref)); err != nil {
				return fmt.Errorf("remove row %d from %s: %w", ref, name, err)
			}
			s.dirty = true
		}
		return nil
	})
}

func (s *Store) Ping(context.Context) error {
	_, err := os.Stat(s.path)
	return err
}

func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.file.Close()
}
