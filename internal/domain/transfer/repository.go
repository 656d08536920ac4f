package transfer

import (
	"context"
	"time"

	"obrador/internal/core/id"
)

// Repository defines persistence for transfer documents.
type Repository interface {
	// Create persists a new transfer with its lines.
	Create(ctx context.Context, t *Transfer) error

	// GetByID retrieves a transfer with lines.
	GetByID(ctx context.Context, transferID id.ID) (*Transfer, error)

	// GetByIDForUpdate retrieves a transfer with a row lock. Must be called
	// inside a transaction; confirmation serializes on this lock.
	GetByIDForUpdate(ctx context.Context, transferID id.ID) (*Transfer, error)

	// UpdateState persists a state change with optimistic version check.
	// Returns a concurrency conflict error when the stored version differs.
	UpdateState(ctx context.Context, t *Transfer) error

	// List retrieves transfers matching the filter.
	List(ctx context.Context, filter ListFilter) ([]*Transfer, error)
}

// ListFilter narrows transfer listings. WarehouseID matches either side.
type ListFilter struct {
	WarehouseID string
	States      []State
	FromDate    *time.Time
	ToDate      *time.Time
	Limit       int
	Offset      int
}
