package order

import (
	"context"
	"fmt"
	"time"

	"obrador/internal/core/apperror"
	"obrador/internal/core/id"
	"obrador/internal/core/tx"
	"obrador/internal/domain/audit"
	"obrador/pkg/logger"
	"obrador/pkg/numerator"
)

// Lifecycle manages the order state machine (OrderLifecycle): registration,
// line edits during preparation, closing with a package count, shipment,
// cancellation and return registration.
type Lifecycle struct {
	repo      Repository
	drafts    DraftRepository
	numerator numerator.Generator
	txManager tx.Manager
	auditor   audit.Recorder
}

// NewLifecycle creates an order lifecycle service.
func NewLifecycle(
	repo Repository,
	drafts DraftRepository,
	numGen numerator.Generator,
	txManager tx.Manager,
	auditor audit.Recorder,
) *Lifecycle {
	if auditor == nil {
		auditor = audit.Nop()
	}
	return &Lifecycle{
		repo:      repo,
		drafts:    drafts,
		numerator: numGen,
		txManager: txManager,
		auditor:   auditor,
	}
}

// Create registers a new order in state awaiting.
func (l *Lifecycle) Create(ctx context.Context, o *Order) error {
	if o.State == "" {
		o.State = StateAwaiting
	}
	if o.State != StateAwaiting {
		return apperror.NewValidation("new order must be awaiting").
			WithDetail("field", "state").
			WithDetail("state", string(o.State))
	}

	if err := o.Validate(); err != nil {
		return err
	}

	if o.Number == "" {
		number, err := l.numerator.NextNumber(ctx, numerator.DefaultConfig("ORD"), time.Now())
		if err != nil {
			return fmt.Errorf("generate number: %w", err)
		}
		o.Number = number
	}

	o.History = append(o.History, HistoryEntry{
		Kind:  HistoryStatus,
		Value: string(StateAwaiting),
		Actor: o.CreatedBy,
		At:    o.CreatedAt,
	})

	err := l.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		if err := l.repo.Create(ctx, o); err != nil {
			return fmt.Errorf("create order: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	logger.Info(ctx, "order created",
		"id", o.ID,
		"number", o.Number,
		"warehouse", o.WarehouseID,
		"lines", len(o.Lines),
	)

	return nil
}

// GetByID retrieves an order with lines, history and returns.
func (l *Lifecycle) GetByID(ctx context.Context, orderID id.ID) (*Order, error) {
	return l.repo.GetByID(ctx, orderID)
}

// List retrieves orders matching the filter.
func (l *Lifecycle) List(ctx context.Context, filter ListFilter) ([]*Order, error) {
	return l.repo.List(ctx, filter)
}

// UpdateLines replaces the order's lines wholesale. The first edit of an
// awaiting order moves it to in_preparation; editing a prepared order
// re-opens preparation. Shipped and terminal orders reject edits.
func (l *Lifecycle) UpdateLines(ctx context.Context, orderID id.ID, lines []Line, actor string) (*Order, error) {
	var updated *Order

	err := l.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		o, err := l.repo.GetByIDForUpdate(ctx, orderID)
		if err != nil {
			return err
		}

		switch o.State {
		case StateInPreparation:
			// stays in preparation
		case StateAwaiting, StatePrepared:
			if !o.State.CanTransition(StateInPreparation) {
				return apperror.NewInvalidState("order", string(o.State), "update lines")
			}
			o.transitionTo(StateInPreparation, actor, time.Now().UTC())
		default:
			return apperror.NewInvalidState("order", string(o.State), "update lines")
		}

		o.Lines = lines
		o.UpdatedBy = actor
		if err := o.Validate(); err != nil {
			return err
		}
		o.Touch()

		if err := l.repo.Update(ctx, o); err != nil {
			return err
		}

		updated = o
		return nil
	})
	if err != nil {
		return nil, err
	}

	// The submitted edit supersedes any saved draft for this order.
	if l.drafts != nil {
		if err := l.drafts.Delete(ctx, actor, orderID.String()); err != nil {
			logger.Warn(ctx, "draft cleanup failed", "order_id", orderID, "error", err)
		}
	}

	if err := l.auditor.RecordChange(ctx, audit.Entry{
		EntityType: "Order",
		EntityID:   orderID,
		Action:     "update_lines",
		Actor:      actor,
		Payload:    updated,
	}); err != nil {
		logger.Warn(ctx, "audit record failed", "error", err)
	}

	logger.Info(ctx, "order lines updated",
		"id", orderID,
		"number", updated.Number,
		"state", updated.State,
		"lines", len(updated.Lines),
	)

	return updated, nil
}

// Close transitions an in-preparation order to prepared. A package count of
// at least one is mandatory; the count lands both on the document and in the
// status history.
func (l *Lifecycle) Close(ctx context.Context, orderID id.ID, packageCount int, actor string) (*Order, error) {
	if packageCount < 1 {
		return nil, apperror.NewValidation("package count must be at least 1").
			WithDetail("field", "packageCount").
			WithDetail("packageCount", packageCount)
	}

	var closed *Order

	err := l.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		o, err := l.repo.GetByIDForUpdate(ctx, orderID)
		if err != nil {
			return err
		}

		if !o.State.CanTransition(StatePrepared) {
			return apperror.NewInvalidState("order", string(o.State), "close")
		}

		now := time.Now().UTC()
		o.recordPackageCount(packageCount, actor, now)
		o.transitionTo(StatePrepared, actor, now)
		o.UpdatedBy = actor

		if err := l.repo.Update(ctx, o); err != nil {
			return err
		}

		closed = o
		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.Info(ctx, "order closed",
		"id", orderID,
		"number", closed.Number,
		"packages", packageCount,
	)

	return closed, nil
}

// SetPackageCount corrects the bultos of a prepared order without touching
// its state. Every change appends its own history entry.
func (l *Lifecycle) SetPackageCount(ctx context.Context, orderID id.ID, packageCount int, actor string) (*Order, error) {
	if packageCount < 1 {
		return nil, apperror.NewValidation("package count must be at least 1").
			WithDetail("field", "packageCount").
			WithDetail("packageCount", packageCount)
	}

	var updated *Order

	err := l.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		o, err := l.repo.GetByIDForUpdate(ctx, orderID)
		if err != nil {
			return err
		}

		if o.State != StatePrepared {
			return apperror.NewInvalidState("order", string(o.State), "set package count")
		}

		o.recordPackageCount(packageCount, actor, time.Now().UTC())
		o.UpdatedBy = actor

		if err := l.repo.Update(ctx, o); err != nil {
			return err
		}

		updated = o
		return nil
	})
	if err != nil {
		return nil, err
	}

	return updated, nil
}

// MarkShipped transitions a prepared order to shipped.
func (l *Lifecycle) MarkShipped(ctx context.Context, orderID id.ID, actor string) (*Order, error) {
	return l.transition(ctx, orderID, StateShipped, "ship", actor)
}

// Cancel transitions the order to cancelled. Awaiting orders cannot be
// cancelled here: the shop withdraws them before the factory sees them.
func (l *Lifecycle) Cancel(ctx context.Context, orderID id.ID, actor string) (*Order, error) {
	return l.transition(ctx, orderID, StateCancelled, "cancel", actor)
}

func (l *Lifecycle) transition(ctx context.Context, orderID id.ID, to State, action, actor string) (*Order, error) {
	var updated *Order

	err := l.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		o, err := l.repo.GetByIDForUpdate(ctx, orderID)
		if err != nil {
			return err
		}

		if !o.State.CanTransition(to) {
			return apperror.NewInvalidState("order", string(o.State), action)
		}

		o.transitionTo(to, actor, time.Now().UTC())
		o.UpdatedBy = actor

		if err := l.repo.Update(ctx, o); err != nil {
			return err
		}

		updated = o
		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.Info(ctx, "order "+string(to), "id", orderID, "number", updated.Number)

	return updated, nil
}

// RegisterReturn validates and persists a return record and moves the order
// to the matching returned state. Runs inside the caller's transaction so the
// return processor can emit restock movements atomically with it.
func (l *Lifecycle) RegisterReturn(ctx context.Context, orderID id.ID, rec *ReturnRecord) (*Order, error) {
	var updated *Order

	err := l.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		o, err := l.repo.GetByIDForUpdate(ctx, orderID)
		if err != nil {
			return err
		}

		var target State
		var action string
		switch rec.Kind {
		case ReturnPartial:
			target, action = StateReturnedPartial, "return partial"
		case ReturnTotal:
			target, action = StateReturnedTotal, "return total"
		default:
			return apperror.NewValidation("unknown return kind").
				WithDetail("field", "kind").
				WithDetail("kind", string(rec.Kind))
		}

		if !o.State.CanTransition(target) {
			return apperror.NewInvalidState("order", string(o.State), action)
		}

		for i := range rec.Lines {
			rec.Lines[i].LineNo = i + 1
			if err := rec.Lines[i].Validate(); err != nil {
				return err
			}
			pl := o.FindProductLine(rec.Lines[i].Product)
			if pl == nil {
				return apperror.NewValidation("returned product is not on the order").
					WithDetail("field", "returnLines").
					WithDetail("product", rec.Lines[i].Product)
			}
			limit := pl.Quantity
			if pl.QuantitySent != nil && *pl.QuantitySent > limit {
				limit = *pl.QuantitySent
			}
			if rec.Lines[i].Quantity > limit {
				return apperror.NewValidation("returned quantity exceeds the order line").
					WithDetail("field", "returnLines").
					WithDetail("product", rec.Lines[i].Product)
			}
		}

		now := time.Now().UTC()
		rec.ID = id.New()
		rec.OrderID = o.ID
		rec.CreatedAt = now

		o.Returns = append(o.Returns, *rec)
		o.transitionTo(target, rec.Actor, now)
		o.UpdatedBy = rec.Actor

		if err := l.repo.Update(ctx, o); err != nil {
			return err
		}

		updated = o
		return nil
	})
	if err != nil {
		return nil, err
	}

	return updated, nil
}

// SaveDraft upserts a per-actor draft of unsent order edits.
func (l *Lifecycle) SaveDraft(ctx context.Context, d *Draft) error {
	if err := d.Validate(); err != nil {
		return err
	}
	d.UpdatedAt = time.Now().UTC()
	return l.drafts.Save(ctx, d)
}

// GetDraft returns the actor's draft for the key.
func (l *Lifecycle) GetDraft(ctx context.Context, actor, key string) (*Draft, error) {
	return l.drafts.Get(ctx, actor, key)
}

// DiscardDraft removes the actor's draft for the key.
func (l *Lifecycle) DiscardDraft(ctx context.Context, actor, key string) error {
	return l.drafts.Delete(ctx, actor, key)
}
