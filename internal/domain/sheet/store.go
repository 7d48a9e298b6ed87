package sheet

import (
	"context"
	"errors"

	"stockbook/internal/core/tx"
)

// ErrSheetNotFound is returned when a sheet has not been created.
var ErrSheetNotFound = errors.New("sheet not found")

// RowRef is an opaque, store-specific handle to a row.
// A handle is only valid inside the transaction that read it.
type RowRef int64

// Row is one data row (the header is not a row).
type Row struct {
	Ref   RowRef
	Cells []string
}

// Cell returns the i-th cell, or "" when the row is shorter than the header.
func (r Row) Cell(i int) string {
	if i < 0 || i >= len(r.Cells) {
		return ""
	}
	return r.Cells[i]
}

// Data is a snapshot of a sheet: its header and its data rows in storage order.
type Data struct {
	Name   string
	Header []string
	Rows   []Row
}

// ColumnIndex returns the position of a header column, or -1.
func (d *Data) ColumnIndex(column string) int {
	for i, h := range d.Header {
		if h == column {
			return i
		}
	}
	return -1
}

// Store is the injectable table repository every request goes through.
type Store interface {
	tx.Manager

	// EnsureSheet creates the sheet with its header row when it does not exist.
	EnsureSheet(ctx context.Context, table Table) error

	// Rows returns the header and all data rows of a sheet.
	Rows(ctx context.Context, name string) (*Data, error)

	// Append adds one row at the end of the sheet.
	Append(ctx context.Context, name string, cells []string) error

	// Delete removes the referenced rows.
	Delete(ctx context.Context, name string, refs ...RowRef) error

	// Ping reports whether the backing storage is reachable.
	Ping(ctx context.Context) error

	// Close releases the storage.
	Close() error
}

// EnsureAll creates every sheet in tables.
func EnsureAll(ctx context.Context, store Store, tables []Table) error {
	for _, t := range tables {
		if err := store.EnsureSheet(ctx, t); err != nil {
			return err
		}
	}
	return nil
}
