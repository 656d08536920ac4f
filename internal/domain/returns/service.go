// Package returns processes partial and total customer-order returns,
// restocking resale-fit items through the movement ledger.
package returns

import (
	"context"
	"time"

	"obrador/internal/core/apperror"
	"obrador/internal/core/id"
	"obrador/internal/core/tx"
	"obrador/internal/domain/audit"
	"obrador/internal/domain/ledger"
	"obrador/internal/domain/order"
	"obrador/pkg/logger"
)

// Request describes a return to process.
type Request struct {
	Reason string
	Actor  string

	// Lines are the returned items. Required for partial returns; for total
	// returns an empty slice means "everything on the order".
	Lines []order.ReturnLine

	// FitForResale applies to total returns without explicit lines: it
	// decides whether the mirrored lines restock or are scrapped.
	FitForResale bool
}

// Processor registers returns against orders. All state changes go through
// the order lifecycle so the order transition, the return record and the
// restock movements commit or roll back together.
type Processor struct {
	orders    *order.Lifecycle
	movements *ledger.Store
	txManager tx.Manager
	auditor   audit.Recorder
}

// NewProcessor creates a return processor.
func NewProcessor(
	orders *order.Lifecycle,
	movements *ledger.Store,
	txManager tx.Manager,
	auditor audit.Recorder,
) *Processor {
	if auditor == nil {
		auditor = audit.Nop()
	}
	return &Processor{
		orders:    orders,
		movements: movements,
		txManager: txManager,
		auditor:   auditor,
	}
}

// RegisterPartial processes a partial return: a subset of the order's lines
// comes back, resale-fit quantities re-enter stock at the order's warehouse.
func (p *Processor) RegisterPartial(ctx context.Context, orderID id.ID, req Request) (*order.Order, error) {
	if len(req.Lines) == 0 {
		return nil, apperror.NewValidation("partial return requires at least one line").
			WithDetail("field", "lines")
	}
	return p.register(ctx, orderID, order.ReturnPartial, req)
}

// RegisterTotal processes a total return. With no lines given the whole
// order comes back with the request's resale fitness; explicit lines
// override per-item fitness.
func (p *Processor) RegisterTotal(ctx context.Context, orderID id.ID, req Request) (*order.Order, error) {
	return p.register(ctx, orderID, order.ReturnTotal, req)
}

func (p *Processor) register(ctx context.Context, orderID id.ID, kind order.ReturnKind, req Request) (*order.Order, error) {
	if req.Reason == "" {
		return nil, apperror.NewValidation("return reason is required").
			WithDetail("field", "reason")
	}

	var result *order.Order

	err := p.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		lines := req.Lines
		if kind == order.ReturnTotal && len(lines) == 0 {
			o, err := p.orders.GetByID(ctx, orderID)
			if err != nil {
				return err
			}
			lines = totalReturnLines(o, req.FitForResale)
		}

		rec := &order.ReturnRecord{
			Kind:   kind,
			Reason: req.Reason,
			Actor:  req.Actor,
			Lines:  lines,
		}

		o, err := p.orders.RegisterReturn(ctx, orderID, rec)
		if err != nil {
			return err
		}

		movements := buildReturnMovements(o, rec, time.Now().UTC())
		if len(movements) > 0 {
			if err := p.movements.Append(ctx, movements); err != nil {
				return err
			}
		}

		result = o
		return nil
	})
	if err != nil {
		return nil, err
	}

	if err := p.auditor.RecordChange(ctx, audit.Entry{
		EntityType: "Order",
		EntityID:   orderID,
		Action:     "return_" + string(kind),
		Actor:      req.Actor,
		Payload:    result,
	}); err != nil {
		logger.Warn(ctx, "audit record failed", "error", err)
	}

	logger.Info(ctx, "return registered",
		"order_id", orderID,
		"number", result.Number,
		"kind", kind,
		"lines", len(req.Lines),
	)

	return result, nil
}

// totalReturnLines mirrors the order's product lines. Lines with a recorded
// sent quantity return that amount, not the ordered one.
func totalReturnLines(o *order.Order, fitForResale bool) []order.ReturnLine {
	products := o.ProductLines()
	lines := make([]order.ReturnLine, 0, len(products))
	for _, pl := range products {
		qty := pl.Quantity
		if pl.QuantitySent != nil {
			qty = *pl.QuantitySent
		}
		lines = append(lines, order.ReturnLine{
			Product:      pl.Product,
			Quantity:     qty,
			WeightKg:     pl.WeightKg,
			Lot:          pl.Lot,
			FitForResale: fitForResale,
		})
	}
	return lines
}

// buildReturnMovements emits one return_in at the order's warehouse for each
// resale-fit line. Unfit items stay on the record only.
func buildReturnMovements(o *order.Order, rec *order.ReturnRecord, at time.Time) []ledger.Movement {
	ref := o.ID
	movements := make([]ledger.Movement, 0, len(rec.Lines))

	for _, line := range rec.Lines {
		if !line.FitForResale {
			continue
		}

		m := ledger.NewMovement(o.WarehouseID, line.Product, ledger.KindReturnIn, line.Quantity)
		m.WeightKg = line.WeightKg
		m.Lot = line.Lot
		m.Reason = "return " + o.Number
		m.OrderRef = &ref
		m.CreatedBy = rec.Actor
		m.CreatedAt = at

		movements = append(movements, m)
	}

	return movements
}
