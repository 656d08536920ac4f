package transfer

import (
	"context"
	"fmt"
	"time"

	"obrador/internal/core/apperror"
	"obrador/internal/core/id"
	"obrador/internal/core/tx"
	"obrador/internal/domain/audit"
	"obrador/internal/domain/ledger"
	"obrador/pkg/logger"
	"obrador/pkg/numerator"
)

// Coordinator manages the transfer state machine (TransferCoordinator).
// Confirmation is the sole trigger for ledger movement emission and the one
// irreversible, exactly-once boundary of the core.
type Coordinator struct {
	repo      Repository
	movements *ledger.Store
	numerator numerator.Generator
	txManager tx.Manager
	auditor   audit.Recorder
}

// NewCoordinator creates a transfer coordinator.
func NewCoordinator(
	repo Repository,
	movements *ledger.Store,
	numGen numerator.Generator,
	txManager tx.Manager,
	auditor audit.Recorder,
) *Coordinator {
	if auditor == nil {
		auditor = audit.Nop()
	}
	return &Coordinator{
		repo:      repo,
		movements: movements,
		numerator: numGen,
		txManager: txManager,
		auditor:   auditor,
	}
}

// Create persists a new transfer. Transfers start in state sent (dispatched)
// unless explicitly staged as pending.
func (c *Coordinator) Create(ctx context.Context, t *Transfer) error {
	if t.State == "" {
		t.State = StateSent
	}
	if t.State != StateSent && t.State != StatePending {
		return apperror.NewValidation("new transfer must be pending or sent").
			WithDetail("field", "state").
			WithDetail("state", string(t.State))
	}

	if err := t.Validate(); err != nil {
		return err
	}

	if t.Number == "" {
		number, err := c.numerator.NextNumber(ctx, numerator.DefaultConfig("TR"), time.Now())
		if err != nil {
			return fmt.Errorf("generate number: %w", err)
		}
		t.Number = number
	}

	err := c.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		if err := c.repo.Create(ctx, t); err != nil {
			return fmt.Errorf("create transfer: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	logger.Info(ctx, "transfer created",
		"id", t.ID,
		"number", t.Number,
		"origin", t.OriginWarehouseID,
		"dest", t.DestWarehouseID,
		"state", t.State,
	)

	return nil
}

// GetByID retrieves a transfer with lines.
func (c *Coordinator) GetByID(ctx context.Context, transferID id.ID) (*Transfer, error) {
	return c.repo.GetByID(ctx, transferID)
}

// List retrieves transfers where the warehouse is origin or destination.
func (c *Coordinator) List(ctx context.Context, filter ListFilter) ([]*Transfer, error) {
	return c.repo.List(ctx, filter)
}

// ConfirmReceived transitions a transfer to received and, in the same
// transaction, emits the matched movement pair for every line: one
// transfer_out at origin and one transfer_in at destination, both
// referencing the transfer.
//
// Only the destination warehouse may confirm. Re-confirming an already
// received transfer is a no-op: movements are never re-emitted.
func (c *Coordinator) ConfirmReceived(ctx context.Context, transferID id.ID, actorWarehouseID, actor string) (*Transfer, error) {
	var confirmed *Transfer

	err := c.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		t, err := c.repo.GetByIDForUpdate(ctx, transferID)
		if err != nil {
			return err
		}

		// Idempotent repeat: the durable received marker is checked before
		// any emission, so a client retry cannot double the movements.
		if t.State == StateReceived {
			confirmed = t
			return nil
		}

		if !t.State.CanTransition(StateReceived) {
			return apperror.NewInvalidState("transfer", string(t.State), "confirm")
		}

		if actorWarehouseID != t.DestWarehouseID {
			return apperror.NewValidation("only the destination warehouse may confirm").
				WithDetail("field", "warehouseId").
				WithDetail("destWarehouseId", t.DestWarehouseID).
				WithDetail("actorWarehouseId", actorWarehouseID)
		}

		now := time.Now().UTC()
		movements := buildTransferMovements(t, actor, now)
		if err := c.movements.Append(ctx, movements); err != nil {
			return err
		}

		t.MarkReceived(actor, now)
		if err := c.repo.UpdateState(ctx, t); err != nil {
			return err
		}

		confirmed = t
		return nil
	})
	if err != nil {
		return nil, err
	}

	if err := c.auditor.RecordChange(ctx, audit.Entry{
		EntityType: "Transfer",
		EntityID:   transferID,
		Action:     "confirm",
		Actor:      actor,
		Payload:    confirmed,
	}); err != nil {
		logger.Warn(ctx, "audit record failed", "error", err)
	}

	logger.Info(ctx, "transfer confirmed",
		"id", transferID,
		"number", confirmed.Number,
		"lines", len(confirmed.Lines),
	)

	return confirmed, nil
}

// buildTransferMovements emits the out/in leg pair for each line.
func buildTransferMovements(t *Transfer, actor string, at time.Time) []ledger.Movement {
	ref := t.ID
	movements := make([]ledger.Movement, 0, len(t.Lines)*2)

	for _, line := range t.Lines {
		out := ledger.NewMovement(t.OriginWarehouseID, line.ProductKey, ledger.KindTransferOut, line.Quantity)
		out.WeightKg = line.WeightKg
		out.Lot = line.Lot
		out.Reason = "transfer " + t.Number
		out.TransferRef = &ref
		out.CreatedBy = actor
		out.CreatedAt = at

		in := ledger.NewMovement(t.DestWarehouseID, line.ProductKey, ledger.KindTransferIn, line.Quantity)
		in.WeightKg = line.WeightKg
		in.Lot = line.Lot
		in.Reason = "transfer " + t.Number
		in.TransferRef = &ref
		in.CreatedBy = actor
		in.CreatedAt = at

		movements = append(movements, out, in)
	}

	return movements
}

// Cancel transitions a transfer to cancelled. Allowed only before
// confirmation; received transfers already moved stock and cannot be
// cancelled, only countered by an opposite transfer.
func (c *Coordinator) Cancel(ctx context.Context, transferID id.ID) (*Transfer, error) {
	var cancelled *Transfer

	err := c.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		t, err := c.repo.GetByIDForUpdate(ctx, transferID)
		if err != nil {
			return err
		}

		if !t.State.CanTransition(StateCancelled) {
			return apperror.NewInvalidState("transfer", string(t.State), "cancel")
		}

		t.MarkCancelled(time.Now().UTC())
		if err := c.repo.UpdateState(ctx, t); err != nil {
			return err
		}

		cancelled = t
		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.Info(ctx, "transfer cancelled", "id", transferID, "number", cancelled.Number)

	return cancelled, nil
}
