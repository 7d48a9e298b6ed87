package reports

import (
	"context"
)

// Repository defines report data access interface.
type Repository interface {
	// Snapshot reads products, invoices with their items, and the customer
	// and destination lists in one consistent read.
	Snapshot(ctx context.Context) (*Snapshot, error)
}
