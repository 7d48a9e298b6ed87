// Package tx provides transaction management abstractions.
// Domain code depends on this interface; every table store implements it.
package tx

import (
	"context"
)

// Manager defines the contract for transaction management.
type Manager interface {
	// RunInTransaction executes fn within a transaction.
	// If fn returns an error, every change made through ctx is discarded.
	// If fn succeeds, the changes are committed.
	//
	// Nested calls reuse the existing transaction from context.
	RunInTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}
