package ledger

import (
	"context"
	"time"

	"obrador/internal/core/id"
)

// Repository defines persistence for the movement log.
// The interface has no update or delete operations; corrections are
// appended as offsetting movements.
type Repository interface {
	// AppendMovements batch inserts movements (used within a transaction
	// for transfer confirmation and return registration).
	AppendMovements(ctx context.Context, movements []Movement) error

	// ListByWarehouse returns movements for a warehouse in append order.
	ListByWarehouse(ctx context.Context, warehouseID string, filter MovementFilter) ([]Movement, error)

	// ListByKey returns movements for a (warehouse, product[, lot]) key in
	// append order. The aggregator folds over this.
	ListByKey(ctx context.Context, warehouseID, productKey string, lot *string) ([]Movement, error)

	// ListByTransfer returns the movement pair(s) emitted by a transfer.
	ListByTransfer(ctx context.Context, transferID id.ID) ([]Movement, error)

	// ListByOrder returns the return movements emitted for an order.
	ListByOrder(ctx context.Context, orderID id.ID) ([]Movement, error)
}

// MovementFilter narrows the movement journal.
type MovementFilter struct {
	ProductKey string
	Kind       *Kind
	FromDate   *time.Time
	ToDate     *time.Time
	Limit      int
	Offset     int
}
