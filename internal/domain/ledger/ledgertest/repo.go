// Package ledgertest provides an in-memory ledger.Repository for tests.
package ledgertest

import (
	"context"
	"sync"

	"obrador/internal/core/id"
	"obrador/internal/domain/ledger"
)

// Repo is an append-only in-memory movement log.
type Repo struct {
	mu        sync.Mutex
	movements []ledger.Movement

	// FailNext makes the next AppendMovements call return this error once.
	FailNext error
}

// NewRepo creates an empty in-memory repository.
func NewRepo() *Repo {
	return &Repo{}
}

// AppendMovements implements ledger.Repository.
func (r *Repo) AppendMovements(_ context.Context, movements []ledger.Movement) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.FailNext != nil {
		err := r.FailNext
		r.FailNext = nil
		return err
	}
	r.movements = append(r.movements, movements...)
	return nil
}

// ListByWarehouse implements ledger.Repository.
func (r *Repo) ListByWarehouse(_ context.Context, warehouseID string, filter ledger.MovementFilter) ([]ledger.Movement, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []ledger.Movement
	for _, m := range r.movements {
		if m.WarehouseID != warehouseID {
			continue
		}
		if filter.ProductKey != "" && m.ProductKey != filter.ProductKey {
			continue
		}
		if filter.Kind != nil && m.Kind != *filter.Kind {
			continue
		}
		out = append(out, m)
	}

	if filter.Offset > 0 {
		if filter.Offset >= len(out) {
			return nil, nil
		}
		out = out[filter.Offset:]
	}
	if filter.Limit > 0 && filter.Limit < len(out) {
		out = out[:filter.Limit]
	}
	return out, nil
}

// ListByKey implements ledger.Repository.
func (r *Repo) ListByKey(_ context.Context, warehouseID, productKey string, lot *string) ([]ledger.Movement, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []ledger.Movement
	for _, m := range r.movements {
		if m.WarehouseID != warehouseID || m.ProductKey != productKey {
			continue
		}
		if lot != nil && m.Lot != *lot {
			continue
		}
		out = append(out, m)
	}
	return out, nil
}

// ListByTransfer implements ledger.Repository.
func (r *Repo) ListByTransfer(_ context.Context, transferID id.ID) ([]ledger.Movement, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []ledger.Movement
	for _, m := range r.movements {
		if m.TransferRef != nil && *m.TransferRef == transferID {
			out = append(out, m)
		}
	}
	return out, nil
}

// ListByOrder implements ledger.Repository.
func (r *Repo) ListByOrder(_ context.Context, orderID id.ID) ([]ledger.Movement, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []ledger.Movement
	for _, m := range r.movements {
		if m.OrderRef != nil && *m.OrderRef == orderID {
			out = append(out, m)
		}
	}
	return out, nil
}

// All returns a copy of the full log in append order.
func (r *Repo) All() []ledger.Movement {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]ledger.Movement, len(r.movements))
	copy(out, r.movements)
	return out
}

var _ ledger.Repository = (*Repo)(nil)
