// Package report_repo reads report data from the sheet store.
package report_repo

import (
	"context"
	"fmt"
	"strings"

	"stockbook/internal/domain/invoice"
	"stockbook/internal/domain/reports"
	"stockbook/internal/domain/sheet"
)

var _ reports.Repository = (*Repo)(nil)

// Repo implements reports.Repository on top of a sheet.Store.
type Repo struct {
	store sheet.Store
}

// New creates a report repository.
func New(store sheet.Store) *Repo {
	return &Repo{store: store}
}

// Snapshot reads every sheet the reports use inside one transaction.
func (r *Repo) Snapshot(ctx context.Context) (*reports.Snapshot, error) {
	var snap reports.Snapshot
	err := r.store.RunInTransaction(ctx, func(ctx context.Context) error {
		var err error
		if snap.Products, err = r.products(ctx); err != nil {
			return err
		}

		inwardItems, err := r.items(ctx, sheet.InwardInvoiceItemsTable)
		if err != nil {
			return err
		}
		err = r.each(ctx, sheet.InwardInvoicesTable, func(rec sheet.Record) {
			inv := invoice.InwardFromRecord(rec)
			inv.Items = inwardItems[strings.TrimSpace(inv.InvoiceNumber)]
			snap.Inward = append(snap.Inward, inv)
		})
		if err != nil {
			return err
		}

		outwardItems, err := r.items(ctx, sheet.OutwardInvoiceItemsTable)
		if err != nil {
			return err
		}
		err = r.each(ctx, sheet.OutwardInvoicesTable, func(rec sheet.Record) {
			inv := invoice.OutwardFromRecord(rec)
			inv.Items = outwardItems[strings.TrimSpace(inv.InvoiceNumber)]
			snap.Outward = append(snap.Outward, inv)
		})
		if err != nil {
			return err
		}

		if snap.Customers, err = r.names(ctx, sheet.CustomersTable); err != nil {
			return err
		}
		snap.Destinations, err = r.names(ctx, sheet.DestinationsTable)
		return err
	})
	if err != nil {
		return nil, err
	}
	return &snap, nil
}

func (r *Repo) products(ctx context.Context) ([]reports.Product, error) {
	var out []reports.Product
	err := r.each(ctx, sheet.ProductsTable, func(rec sheet.Record) {
		out = append(out, reports.Product{
			Code:        rec.String("productCode"),
			Description: rec.String("productDescription"),
		})
	})
	return out, err
}

// items groups item rows by trimmed invoice number, keeping storage order.
func (r *Repo) items(ctx context.Context, table sheet.Table) (map[string][]invoice.Item, error) {
	out := make(map[string][]invoice.Item)
	err := r.each(ctx, table, func(rec sheet.Record) {
		key := strings.TrimSpace(rec.String("invoiceNumber"))
		out[key] = append(out[key], invoice.ItemFromRecord(rec))
	})
	return out, err
}

func (r *Repo) names(ctx context.Context, table sheet.Table) ([]string, error) {
	var out []string
	err := r.each(ctx, table, func(rec sheet.Record) {
		out = append(out, rec.String("name"))
	})
	return out, err
}

func (r *Repo) each(ctx context.Context, table sheet.Table, fn func(sheet.Record)) error {
	data, err := r.store.Rows(ctx, table.Name)
	if err != nil {
		return fmt.Errorf("read %s: %w", table.Name, err)
	}
	for _, row := range data.Rows {
		rec, err := sheet.ToRecord(table, data.Header, row)
		if err != nil {
			return err
		}
		fn(rec)
	}
	return nil
}
