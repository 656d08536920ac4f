package order

import (
	"time"

	"obrador/internal/core/apperror"
	"obrador/internal/core/id"
	"obrador/internal/core/types"
)

// ReturnKind distinguishes partial and total returns.
type ReturnKind string

const (
	// ReturnPartial returns a subset of the order lines.
	ReturnPartial ReturnKind = "partial"
	// ReturnTotal returns the whole order.
	ReturnTotal ReturnKind = "total"
)

// ReturnLine is one returned item.
type ReturnLine struct {
	LineNo     int            `db:"line_no" json:"lineNo"`
	Product    string         `db:"product" json:"product"`
	Quantity   types.Quantity `db:"quantity" json:"quantity"`
	WeightKg   *types.Weight  `db:"weight_kg" json:"weightKg,omitempty"`
	Lot        string         `db:"lot" json:"lot,omitempty"`
	Reason     string         `db:"reason" json:"reason,omitempty"`
	// FitForResale items go back into stock via a return_in movement;
	// unfit items are recorded but never restocked.
	FitForResale bool `db:"fit_for_resale" json:"fitForResale"`
}

// Validate checks return-line invariants.
func (l *ReturnLine) Validate() error {
	if l.Product == "" {
		return apperror.NewValidation("product is required").
			WithDetail("field", "returnLines").
			WithDetail("lineNo", l.LineNo)
	}
	if !l.Quantity.IsPositive() {
		return apperror.NewValidation("returned quantity must be positive").
			WithDetail("field", "returnLines").
			WithDetail("lineNo", l.LineNo)
	}
	return nil
}

// ReturnRecord documents a processed return attached to the order.
type ReturnRecord struct {
	ID        id.ID        `db:"id" json:"id"`
	OrderID   id.ID        `db:"order_id" json:"orderId"`
	Kind      ReturnKind   `db:"kind" json:"kind"`
	Reason    string       `db:"reason" json:"reason,omitempty"`
	Actor     string       `db:"actor" json:"actor"`
	CreatedAt time.Time    `db:"created_at" json:"createdAt"`
	Lines     []ReturnLine `db:"-" json:"lines"`
}
