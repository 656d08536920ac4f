// Package order provides the customer order document and its preparation,
// shipment, cancellation and return lifecycle.
package order

import (
	"time"

	"obrador/internal/core/apperror"
	"obrador/internal/core/entity"
	"obrador/internal/core/types"
)

// State is the closed set of order states.
type State string

const (
	// StateAwaiting is a freshly registered order the factory has not touched.
	StateAwaiting State = "awaiting"
	// StateInPreparation is set implicitly by the first line edit.
	StateInPreparation State = "in_preparation"
	// StatePrepared is set by closing the order with a package count.
	StatePrepared State = "prepared"
	// StateShipped marks the order as dispatched to the customer.
	StateShipped State = "shipped"
	// StateCancelled is terminal.
	StateCancelled State = "cancelled"
	// StateReturnedPartial records a partial return; no further returns allowed.
	StateReturnedPartial State = "returned_partial"
	// StateReturnedTotal is terminal.
	StateReturnedTotal State = "returned_total"
)

// transitions is the explicit transition table for the order state machine.
// Editing a prepared order's lines re-opens preparation (prepared ->
// in_preparation); once shipped or terminal, lines are frozen.
var transitions = map[State][]State{
	StateAwaiting:        {StateInPreparation},
	StateInPreparation:   {StatePrepared, StateCancelled},
	StatePrepared:        {StateShipped, StateInPreparation, StateCancelled, StateReturnedPartial, StateReturnedTotal},
	StateShipped:         {StateCancelled, StateReturnedPartial, StateReturnedTotal},
	StateCancelled:       {},
	StateReturnedPartial: {},
	StateReturnedTotal:   {},
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

// HistoryKind distinguishes status-history entry types.
type HistoryKind string

const (
	// HistoryStatus records a state transition.
	HistoryStatus HistoryKind = "status"
	// HistoryPackageCount records a bultos change at closing time.
	HistoryPackageCount HistoryKind = "package-count"
)

// HistoryEntry is one append-only status-history record.
type HistoryEntry struct {
	Kind  HistoryKind `db:"kind" json:"kind"`
	Value string      `db:"value" json:"value"`
	Actor string      `db:"actor" json:"actor"`
	At    time.Time   `db:"at" json:"at"`
}

// Line is an order line: either a product line or a free-text comment line.
// Comment lines participate in no stock math.
type Line struct {
	LineNo int `db:"line_no" json:"lineNo"`

	// Comment line
	IsComment bool   `db:"is_comment" json:"isComment,omitempty"`
	Comment   string `db:"comment" json:"comment,omitempty"`

	// Product line
	Product  string         `db:"product" json:"product,omitempty"`
	Quantity types.Quantity `db:"quantity" json:"quantity,omitempty"`
	Format   string         `db:"format" json:"format,omitempty"`
	WeightKg *types.Weight  `db:"weight_kg" json:"weightKg,omitempty"`
	Lot      string         `db:"lot" json:"lot,omitempty"`

	// Prepared is set by the factory as the line is picked.
	Prepared bool `db:"prepared" json:"prepared,omitempty"`

	// QuantitySent records the actually expedited quantity when it differs
	// from the ordered one.
	QuantitySent *types.Quantity `db:"quantity_sent" json:"quantitySent,omitempty"`
}

// Validate checks line invariants.
func (l *Line) Validate() error {
	if l.IsComment {
		return nil
	}
	if l.Product == "" {
		return apperror.NewValidation("product is required").
			WithDetail("field", "lines").
			WithDetail("lineNo", l.LineNo)
	}
	if !l.Quantity.IsPositive() {
		return apperror.NewValidation("quantity must be positive").
			WithDetail("field", "lines").
			WithDetail("lineNo", l.LineNo)
	}
	if l.WeightKg != nil && l.WeightKg.IsNegative() {
		return apperror.NewValidation("weight must not be negative").
			WithDetail("field", "lines").
			WithDetail("lineNo", l.LineNo)
	}
	return nil
}

// Order is a customer order routed from a shop to the factory.
type Order struct {
	entity.Document

	// WarehouseID is the fulfilling warehouse; return movements restock here.
	WarehouseID string `db:"warehouse_id" json:"warehouseId"`

	CustomerName string `db:"customer_name" json:"customerName,omitempty"`

	State State `db:"state" json:"state"`

	// PackageCount is the bultos the order was split into at closing time.
	PackageCount int `db:"package_count" json:"packageCount"`

	DeliveryDate *time.Time `db:"delivery_date" json:"deliveryDate,omitempty"`

	Observations string `db:"observations" json:"observations,omitempty"`

	// Table parts
	Lines   []Line         `db:"-" json:"lines"`
	History []HistoryEntry `db:"-" json:"statusHistory"`
	Returns []ReturnRecord `db:"-" json:"returns,omitempty"`
}

// New creates an order in state awaiting.
func New(warehouseID, customerName string) *Order {
	return &Order{
		Document:     entity.NewDocument(),
		WarehouseID:  warehouseID,
		CustomerName: customerName,
		State:        StateAwaiting,
		Lines:        make([]Line, 0),
		History:      make([]HistoryEntry, 0),
	}
}

// Validate checks order invariants.
func (o *Order) Validate() error {
	if o.WarehouseID == "" {
		return apperror.NewValidation("warehouse is required").
			WithDetail("field", "warehouseId")
	}
	if !o.State.IsValid() {
		return apperror.NewValidation("unknown order state").
			WithDetail("field", "state").
			WithDetail("state", string(o.State))
	}
	for i := range o.Lines {
		o.Lines[i].LineNo = i + 1
		if err := o.Lines[i].Validate(); err != nil {
			return err
		}
	}
	return nil
}

// ProductLines returns only the stock-bearing lines.
func (o *Order) ProductLines() []Line {
	out := make([]Line, 0, len(o.Lines))
	for _, l := range o.Lines {
		if !l.IsComment {
			out = append(out, l)
		}
	}
	return out
}

// FindProductLine returns the first product line matching the key, or nil.
func (o *Order) FindProductLine(productKey string) *Line {
	for i := range o.Lines {
		if !o.Lines[i].IsComment && o.Lines[i].Product == productKey {
			return &o.Lines[i]
		}
	}
	return nil
}

// transitionTo moves the order to a new state and appends a history entry.
// The caller must have checked CanTransition; this keeps history append-only
// and in lockstep with state.
func (o *Order) transitionTo(to State, actor string, at time.Time) {
	o.State = to
	o.History = append(o.History, HistoryEntry{
		Kind:  HistoryStatus,
		Value: string(to),
		Actor: actor,
		At:    at,
	})
	o.Touch()
}

// recordPackageCount sets bultos and appends the dedicated history entry.
func (o *Order) recordPackageCount(count int, actor string, at time.Time) {
	o.PackageCount = count
	o.History = append(o.History, HistoryEntry{
		Kind:  HistoryPackageCount,
		Value: itoa(count),
		Actor: actor,
		At:    at,
	})
	o.Touch()
}

// itoa avoids importing strconv into the hot path for a two-digit count.
func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	neg := n < 0
	if neg {
		n = -n
	}
	var buf [20]byte
	i := len(buf)
	for n > 0 {
		i--
		buf[i] = byte('0' + n%10)
		n /= 10
	}
	if neg {
		i--
		buf[i] = '-'
	}
	return string(buf[i:])
}
