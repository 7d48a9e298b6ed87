package sheet

import "fmt"

// Index maps trimmed natural keys to rows of one sheet.
//
// A key may occur more than once. Reads resolve it with First, deletes with
// Last, and All returns every occurrence in storage order.
type Index struct {
	data     *Data
	keyIndex int
	all      map[string][]int
}

// NewIndex builds an index over data keyed by column.
func NewIndex(data *Data, column string) (*Index, error) {
	keyIndex := data.ColumnIndex(column)
	if keyIndex < 0 {
		return nil, fmt.Errorf("sheet %s has no column %s", data.Name, column)
	}

	idx := &Index{
		data:     data,
		keyIndex: keyIndex,
		all:      make(map[string][]int, len(data.Rows)),
	}
	for i, row := range data.Rows {
		key := KeyOf(row, keyIndex)
		idx.all[key] = append(idx.all[key], i)
	}
	return idx, nil
}

// First returns the earliest row stored under key.
func (idx *Index) First(key string) (Row, bool) {
	positions := idx.all[key]
	if len(positions) == 0 {
		return Row{}, false
	}
	return idx.data.Rows[positions[0]], true
}

// Last returns the latest row stored under key.
func (idx *Index) Last(key string) (Row, bool) {
	positions := idx.all[key]
	if len(positions) == 0 {
		return Row{}, false
	}
	return idx.data.Rows[positions[len(positions)-1]], true
}

// Has reports whether key is present.
func (idx *Index) Has(key string) bool {
	return len(idx.all[key]) > 0
}

// All returns every row stored under key, in storage order.
func (idx *Index) All(key string) []Row {
	positions := idx.all[key]
	rows := make([]Row, len(positions))
	for i, p := range positions {
		rows[i] = idx.data.Rows[p]
	}
	return rows
}

// Refs returns the handles of every row stored under key.
func (idx *Index) Refs(key string) []RowRef {
	positions := idx.all[key]
	refs := make([]RowRef, len(positions))
	for i, p := range positions {
		refs[i] = idx.data.Rows[p].Ref
	}
	return refs
}
