package sheet

import (
	"fmt"
	"strings"
)

// Record is the wire form of a row: field name to decoded value.
type Record map[string]any

// String returns the field as a string ("" when absent).
func (r Record) String(field string) string {
	return Stringify(r[field])
}

// ToRecord decodes a row using the sheet's own header for field names and the
// schema for cell kinds. Columns missing from the schema decode as text.
func ToRecord(table Table, header []string, row Row) (Record, error) {
	rec := make(Record, len(header)+1)
	for i, column := range header {
		if column == "" {
			continue
		}
		value, err := DecodeCell(table.KindOf(column), row.Cell(i))
		if err != nil {
			return nil, fmt.Errorf("%s row %d column %s: %w", table.Name, row.Ref, column, err)
		}
		rec[ColumnToField(column)] = value
	}
	return rec, nil
}

// FromRecord encodes a wire object into cells ordered by header.
// Fields that are absent encode like null; extra fields are ignored.
func FromRecord(table Table, header []string, rec Record) ([]string, error) {
	cells := make([]string, len(header))
	for i, column := range header {
		cell, err := EncodeCell(table.KindOf(column), rec[ColumnToField(column)])
		if err != nil {
			return nil, fmt.Errorf("field %s: %w", ColumnToField(column), err)
		}
		cells[i] = cell
	}
	return cells, nil
}

// KeyOf returns the trimmed key cell of a row.
func KeyOf(row Row, keyIndex int) string {
	return strings.TrimSpace(row.Cell(keyIndex))
}
