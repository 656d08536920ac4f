// Package ordertest provides in-memory order repositories for tests.
package ordertest

import (
	"context"
	"sync"

	"obrador/internal/core/apperror"
	"obrador/internal/core/id"
	"obrador/internal/domain/order"
)

// Repo is an in-memory order.Repository.
type Repo struct {
	mu     sync.Mutex
	orders map[id.ID]*order.Order

	// FailNextUpdate makes the next Update call return this error once.
	FailNextUpdate error
}

// NewRepo creates an empty in-memory repository.
func NewRepo() *Repo {
	return &Repo{orders: make(map[id.ID]*order.Order)}
}

func clone(o *order.Order) *order.Order {
	cp := *o
	cp.Lines = append([]order.Line(nil), o.Lines...)
	cp.History = append([]order.HistoryEntry(nil), o.History...)
	cp.Returns = append([]order.ReturnRecord(nil), o.Returns...)
	return &cp
}

// Create implements order.Repository.
func (r *Repo) Create(_ context.Context, o *order.Order) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.orders[o.ID] = clone(o)
	return nil
}

// GetByID implements order.Repository.
func (r *Repo) GetByID(_ context.Context, orderID id.ID) (*order.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	o, ok := r.orders[orderID]
	if !ok {
		return nil, apperror.NewNotFound("order", orderID)
	}
	return clone(o), nil
}

// GetByIDForUpdate implements order.Repository.
func (r *Repo) GetByIDForUpdate(ctx context.Context, orderID id.ID) (*order.Order, error) {
	return r.GetByID(ctx, orderID)
}

// Update implements order.Repository with an optimistic version check.
func (r *Repo) Update(_ context.Context, o *order.Order) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.FailNextUpdate != nil {
		err := r.FailNextUpdate
		r.FailNextUpdate = nil
		return err
	}
	stored, ok := r.orders[o.ID]
	if !ok {
		return apperror.NewNotFound("order", o.ID)
	}
	if stored.Version >= o.Version {
		return apperror.NewConcurrencyConflict("order", o.ID)
	}
	r.orders[o.ID] = clone(o)
	return nil
}

// List implements order.Repository.
func (r *Repo) List(_ context.Context, filter order.ListFilter) ([]*order.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*order.Order
	for _, o := range r.orders {
		if filter.WarehouseID != "" && o.WarehouseID != filter.WarehouseID {
			continue
		}
		if len(filter.States) > 0 && !containsState(filter.States, o.State) {
			continue
		}
		out = append(out, clone(o))
	}
	return out, nil
}

func containsState(states []order.State, s order.State) bool {
	for _, st := range states {
		if st == s {
			return true
		}
	}
	return false
}

var _ order.Repository = (*Repo)(nil)

// DraftRepo is an in-memory order.DraftRepository.
type DraftRepo struct {
	mu     sync.Mutex
	drafts map[string]*order.Draft
}

// NewDraftRepo creates an empty draft repository.
func NewDraftRepo() *DraftRepo {
	return &DraftRepo{drafts: make(map[string]*order.Draft)}
}

func draftKey(actor, key string) string { return actor + "\x00" + key }

// Save implements order.DraftRepository.
func (r *DraftRepo) Save(_ context.Context, d *order.Draft) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *d
	r.drafts[draftKey(d.Actor, d.Key)] = &cp
	return nil
}

// Get implements order.DraftRepository.
func (r *DraftRepo) Get(_ context.Context, actor, key string) (*order.Draft, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	d, ok := r.drafts[draftKey(actor, key)]
	if !ok {
		return nil, apperror.NewNotFound("draft", key)
	}
	cp := *d
	return &cp, nil
}

// Delete implements order.DraftRepository.
func (r *DraftRepo) Delete(_ context.Context, actor, key string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.drafts, draftKey(actor, key))
	return nil
}

// Len returns the number of stored drafts.
func (r *DraftRepo) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.drafts)
}

var _ order.DraftRepository = (*DraftRepo)(nil)
