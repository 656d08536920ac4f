// Package ledger provides the append-only stock movement ledger.
// Per-warehouse, per-product balances are always derived from the log;
// no separately mutated counter is authoritative.
package ledger

import (
	"time"

	"obrador/internal/core/apperror"
	"obrador/internal/core/id"
	"obrador/internal/core/types"
)

// Kind is the closed set of movement kinds.
type Kind string

const (
	// KindEntry is a manual stock entry (production output, supplier delivery).
	KindEntry Kind = "entry"
	// KindExit is a manual stock exit (spoilage, internal consumption).
	KindExit Kind = "exit"
	// KindTransferIn is the destination leg of a confirmed transfer.
	KindTransferIn Kind = "transfer_in"
	// KindTransferOut is the origin leg of a confirmed transfer.
	KindTransferOut Kind = "transfer_out"
	// KindReturnIn restocks goods returned fit for resale.
	KindReturnIn Kind = "return_in"
	// KindReturnOut records goods leaving stock back to a customer.
	KindReturnOut Kind = "return_out"
)

// knownKinds is the validation set; anything else is rejected on append.
var knownKinds = map[Kind]struct{}{
	KindEntry:       {},
	KindExit:        {},
	KindTransferIn:  {},
	KindTransferOut: {},
	KindReturnIn:    {},
	KindReturnOut:   {},
}

// IsValid reports whether k is one of the six movement kinds.
func (k Kind) IsValid() bool {
	_, ok := knownKinds[k]
	return ok
}

// Sign returns +1 for kinds that increase stock and -1 for kinds that decrease it.
func (k Kind) Sign() int {
	switch k {
	case KindEntry, KindTransferIn, KindReturnIn:
		return 1
	default:
		return -1
	}
}

// Movement is an immutable ledger entry recording a single stock change.
// Movements are never updated or deleted; corrections are made by appending
// offsetting movements.
type Movement struct {
	// ID is a UUIDv7, so append order and id order coincide.
	ID id.ID `db:"id" json:"id"`

	// Dimensions
	WarehouseID string `db:"warehouse_id" json:"warehouseId"`
	ProductKey  string `db:"product_key" json:"productKey"`
	Lot         string `db:"lot" json:"lot,omitempty"`

	Kind Kind `db:"kind" json:"kind"`

	// Quantity is stored unsigned; Kind determines the sign.
	Quantity types.Quantity `db:"quantity" json:"quantity"`

	// WeightKg is optional; produce sold by weight carries it.
	WeightKg *types.Weight `db:"weight_kg" json:"weightKg,omitempty"`

	// Unit is the display unit ("ud", "kg", "caja").
	Unit string `db:"unit" json:"unit,omitempty"`

	// Reason is free text explaining manual entries/exits.
	Reason string `db:"reason" json:"reason,omitempty"`

	// TransferRef back-references the transfer that generated this leg.
	TransferRef *id.ID `db:"transfer_ref" json:"transferRef,omitempty"`

	// OrderRef back-references the order whose return generated this movement.
	OrderRef *id.ID `db:"order_ref" json:"orderRef,omitempty"`

	CreatedBy string    `db:"created_by" json:"createdBy,omitempty"`
	CreatedAt time.Time `db:"created_at" json:"createdAt"`
}

// NewMovement creates a movement with generated ID and timestamp.
func NewMovement(warehouseID, productKey string, kind Kind, quantity types.Quantity) Movement {
	return Movement{
		ID:          id.New(),
		WarehouseID: warehouseID,
		ProductKey:  productKey,
		Kind:        kind,
		Quantity:    quantity,
		CreatedAt:   time.Now().UTC(),
	}
}

// SignedQuantity returns quantity with sign based on kind.
func (m *Movement) SignedQuantity() types.Quantity {
	if m.Kind.Sign() < 0 {
		return m.Quantity.Neg()
	}
	return m.Quantity
}

// SignedWeight returns the weight with sign based on kind, or zero when absent.
func (m *Movement) SignedWeight() types.Weight {
	if m.WeightKg == nil {
		return types.ZeroWeight()
	}
	if m.Kind.Sign() < 0 {
		return m.WeightKg.Neg()
	}
	return *m.WeightKg
}

// Validate checks movement invariants before append.
func (m *Movement) Validate() error {
	if m.WarehouseID == "" {
		return apperror.NewValidation("warehouse is required").
			WithDetail("field", "warehouseId")
	}
	if m.ProductKey == "" {
		return apperror.NewValidation("product is required").
			WithDetail("field", "productKey")
	}
	if !m.Kind.IsValid() {
		return apperror.NewValidation("unknown movement kind").
			WithDetail("field", "kind").
			WithDetail("kind", string(m.Kind))
	}
	if !m.Quantity.IsPositive() {
		return apperror.NewValidation("quantity must be positive").
			WithDetail("field", "quantity")
	}
	if m.WeightKg != nil && m.WeightKg.IsNegative() {
		return apperror.NewValidation("weight must not be negative").
			WithDetail("field", "weightKg")
	}
	return nil
}

// Balance is the derived stock for a (warehouse, product[, lot]) key.
// It is a pure fold over movements; negative values are legitimate
// (oversold stock is recorded, not rejected).
type Balance struct {
	WarehouseID string         `json:"warehouseId"`
	ProductKey  string         `json:"productKey"`
	Lot         string         `json:"lot,omitempty"`
	Quantity    types.Quantity `json:"quantity"`
	WeightKg    types.Weight   `json:"weightKg"`
}
