// Package resource maps generic requests (method, resource, id, payload) onto
// sheet operations.
package resource

import (
	"sort"

	"stockbook/internal/domain/invoice"
	"stockbook/internal/domain/sheet"
)

// Definition describes how one resource is stored.
type Definition struct {
	// Name is the plural route name, e.g. "inward-invoices".
	Name string

	// Singular is used in status and error messages, e.g. "inward-invoice".
	Singular string

	Table sheet.Table

	// KeyColumn holds the natural key. Item rows repeat it.
	KeyColumn string

	// Items is the child sheet, if the resource has line items.
	Items *sheet.Table

	// ItemView shapes a decoded item row for responses.
	ItemView func(rec sheet.Record) any

	// Validate checks a raw payload before it is written.
	Validate func(payload []byte) error
}

// KeyField is the wire name of the key column.
func (d Definition) KeyField() string {
	return sheet.ColumnToField(d.KeyColumn)
}

// Registry holds the known resources by name.
type Registry struct {
	defs map[string]Definition
}

// NewRegistry creates a registry of the given definitions.
func NewRegistry(defs ...Definition) *Registry {
	r := &Registry{defs: make(map[string]Definition, len(defs))}
	for _, d := range defs {
		r.defs[d.Name] = d
	}
	return r
}

// Lookup returns the definition of a resource.
func (r *Registry) Lookup(name string) (Definition, bool) {
	d, ok := r.defs[name]
	return d, ok
}

// Names returns the registered resource names, sorted.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.defs))
	for name := range r.defs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// DefaultRegistry returns the resources served by the inventory API.
func DefaultRegistry() *Registry {
	inwardItems := sheet.InwardInvoiceItemsTable
	outwardItems := sheet.OutwardInvoiceItemsTable
	itemView := func(rec sheet.Record) any { return invoice.ItemFromRecord(rec) }

	return NewRegistry(
		Definition{
			Name:      "products",
			Singular:  "product",
			Table:     sheet.ProductsTable,
			KeyColumn: sheet.ColProductCode,
		},
		Definition{
			Name:      "inward-invoices",
			Singular:  "inward-invoice",
			Table:     sheet.InwardInvoicesTable,
			KeyColumn: sheet.ColInvoiceNumber,
			Items:     &inwardItems,
			ItemView:  itemView,
			Validate:  invoice.ValidateInwardPayload,
		},
		Definition{
			Name:      "outward-invoices",
			Singular:  "outward-invoice",
			Table:     sheet.OutwardInvoicesTable,
			KeyColumn: sheet.ColInvoiceNumber,
			Items:     &outwardItems,
			ItemView:  itemView,
			Validate:  invoice.ValidateOutwardPayload,
		},
		named("transporters", "transporter", sheet.TransportersTable),
		named("customers", "customer", sheet.CustomersTable),
		named("destinations", "destination", sheet.DestinationsTable),
	)
}

func named(name, singular string, table sheet.Table) Definition {
	return Definition{
		Name:      name,
		Singular:  singular,
		Table:     table,
		KeyColumn: sheet.ColName,
	}
}
