// Package transfer provides the inter-warehouse transfer document and its
// confirm/cancel lifecycle.
package transfer

import (
	"time"

	"obrador/internal/core/apperror"
	"obrador/internal/core/entity"
	"obrador/internal/core/types"
)

// State is the closed set of transfer states.
type State string

const (
	// StatePending is a staged transfer not yet dispatched.
	StatePending State = "pending"
	// StateSent is a dispatched transfer awaiting confirmation. This is the
	// common case: transfers are usually recorded as already on the truck.
	StateSent State = "sent"
	// StateReceived is terminal; confirmation emitted the ledger movements.
	StateReceived State = "received"
	// StateCancelled is terminal; no movements were ever emitted.
	StateCancelled State = "cancelled"
)

// transitions is the explicit transition table. Anything not listed here
// is rejected with an invalid-state error.
var transitions = map[State][]State{
	StatePending:   {StateSent, StateReceived, StateCancelled},
	StateSent:      {StateReceived, StateCancelled},
	StateReceived:  {},
	StateCancelled: {},
}

// IsValid reports whether s is a known state.
func (s State) IsValid() bool {
	_, ok := transitions[s]
	return ok
}

// CanTransition reports whether the move s -> to is in the transition table.
func (s State) CanTransition(to State) bool {
	for _, allowed := range transitions[s] {
		if allowed == to {
			return true
		}
	}
	return false
}

// IsTerminal reports whether no further transitions exist from s.
func (s State) IsTerminal() bool {
	return len(transitions[s]) == 0
}

// Line is a product line within a transfer.
type Line struct {
	LineNo     int            `db:"line_no" json:"lineNo"`
	ProductKey string         `db:"product_key" json:"productKey"`
	Quantity   types.Quantity `db:"quantity" json:"quantity"`
	WeightKg   *types.Weight  `db:"weight_kg" json:"weightKg,omitempty"`
	Lot        string         `db:"lot" json:"lot,omitempty"`
	Comment    string         `db:"comment" json:"comment,omitempty"`
}

// Transfer is a cross-warehouse stock relocation request.
// Owned jointly by origin and destination; either may read it, only the
// destination may confirm.
type Transfer struct {
	entity.Document

	OriginWarehouseID string `db:"origin_warehouse_id" json:"originWarehouseId"`
	DestWarehouseID   string `db:"dest_warehouse_id" json:"destWarehouseId"`

	State State `db:"state" json:"state"`

	Observations string `db:"observations" json:"observations,omitempty"`

	ReceivedAt *time.Time `db:"received_at" json:"receivedAt,omitempty"`
	ReceivedBy string     `db:"received_by" json:"receivedBy,omitempty"`

	CancelledAt *time.Time `db:"cancelled_at" json:"cancelledAt,omitempty"`

	// Table part
	Lines []Line `db:"-" json:"lines"`
}

// New creates a transfer in the given initial state (sent or pending).
func New(origin, dest string, staged bool) *Transfer {
	state := StateSent
	if staged {
		state = StatePending
	}
	return &Transfer{
		Document:          entity.NewDocument(),
		OriginWarehouseID: origin,
		DestWarehouseID:   dest,
		State:             state,
		Lines:             make([]Line, 0),
	}
}

// AddLine appends a product line.
func (t *Transfer) AddLine(productKey string, quantity types.Quantity, weightKg *types.Weight, lot, comment string) {
	t.Lines = append(t.Lines, Line{
		LineNo:     len(t.Lines) + 1,
		ProductKey: productKey,
		Quantity:   quantity,
		WeightKg:   weightKg,
		Lot:        lot,
		Comment:    comment,
	})
}

// Validate checks transfer invariants.
func (t *Transfer) Validate() error {
	if t.OriginWarehouseID == "" {
		return apperror.NewValidation("origin warehouse is required").
			WithDetail("field", "originWarehouseId")
	}
	if t.DestWarehouseID == "" {
		return apperror.NewValidation("destination warehouse is required").
			WithDetail("field", "destWarehouseId")
	}
	if t.OriginWarehouseID == t.DestWarehouseID {
		return apperror.NewValidation("origin and destination must differ").
			WithDetail("field", "destWarehouseId").
			WithDetail("warehouse", t.OriginWarehouseID)
	}
	if len(t.Lines) == 0 {
		return apperror.NewValidation("at least one line is required").
			WithDetail("field", "lines")
	}
	if !t.State.IsValid() {
		return apperror.NewValidation("unknown transfer state").
			WithDetail("field", "state").
			WithDetail("state", string(t.State))
	}

	for i, line := range t.Lines {
		if line.ProductKey == "" {
			return apperror.NewValidation("product is required").
				WithDetail("field", "lines").
				WithDetail("lineNo", i+1)
		}
		if !line.Quantity.IsPositive() {
			return apperror.NewValidation("quantity must be positive").
				WithDetail("field", "lines").
				WithDetail("lineNo", i+1)
		}
		if line.WeightKg != nil && line.WeightKg.IsNegative() {
			return apperror.NewValidation("weight must not be negative").
				WithDetail("field", "lines").
				WithDetail("lineNo", i+1)
		}
	}

	return nil
}

// InvolvesWarehouse reports whether wh is the origin or the destination.
func (t *Transfer) InvolvesWarehouse(wh string) bool {
	return t.OriginWarehouseID == wh || t.DestWarehouseID == wh
}

// MarkReceived transitions the transfer to received.
func (t *Transfer) MarkReceived(actor string, at time.Time) {
	t.State = StateReceived
	t.ReceivedAt = &at
	t.ReceivedBy = actor
	t.Touch()
}

// MarkCancelled transitions the transfer to cancelled.
func (t *Transfer) MarkCancelled(at time.Time) {
	t.State = StateCancelled
	t.CancelledAt = &at
	t.Touch()
}
