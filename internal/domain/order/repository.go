package order

import (
	"context"
	"time"

	"obrador/internal/core/id"
)

// Repository persists orders with lines, history and return records.
type Repository interface {
	// Create inserts the order with its table parts.
	Create(ctx context.Context, o *Order) error

	// GetByID loads the order with lines, history and returns.
	GetByID(ctx context.Context, orderID id.ID) (*Order, error)

	// GetByIDForUpdate loads the order with a row lock. Must run inside a
	// transaction.
	GetByIDForUpdate(ctx context.Context, orderID id.ID) (*Order, error)

	// Update persists the document row plus replaced lines and any new
	// history or return records. Fails with a concurrency conflict when the
	// stored version does not match.
	Update(ctx context.Context, o *Order) error

	// List retrieves orders matching the filter, newest first.
	List(ctx context.Context, filter ListFilter) ([]*Order, error)
}

// ListFilter narrows order listings.
type ListFilter struct {
	WarehouseID string
	States      []State
	FromDate    *time.Time
	ToDate      *time.Time
	Limit       int
	Offset      int
}

// DraftRepository persists per-actor order drafts.
type DraftRepository interface {
	// Save upserts the actor's draft for the order key.
	Save(ctx context.Context, d *Draft) error

	// Get returns the draft or a not-found error.
	Get(ctx context.Context, actor, key string) (*Draft, error)

	// Delete removes the draft; deleting a missing draft is not an error.
	Delete(ctx context.Context, actor, key string) error
}
