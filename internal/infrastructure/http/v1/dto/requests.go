// Package dto defines the request and response shapes of the v1 API.
package dto

import (
	"encoding/json"
	"time"

	"obrador/internal/core/types"
)

// CreateMovementRequest records a manual stock entry or exit.
// Transfer and return movements are emitted by their own endpoints; only
// "entry" and "exit" are accepted here.
type CreateMovementRequest struct {
	WarehouseID string         `json:"warehouseId" binding:"required"`
	ProductKey  string         `json:"productKey" binding:"required"`
	Kind        string         `json:"kind" binding:"required"`
	Quantity    types.Quantity `json:"quantity" binding:"required"`
	WeightKg    *types.Weight  `json:"weightKg,omitempty"`
	Unit        string         `json:"unit,omitempty"`
	Lot         string         `json:"lot,omitempty"`
	Reason      string         `json:"reason,omitempty"`
}

// TransferLineRequest is one product line of a transfer.
type TransferLineRequest struct {
	ProductKey string         `json:"productKey" binding:"required"`
	Quantity   types.Quantity `json:"quantity" binding:"required"`
	WeightKg   *types.Weight  `json:"weightKg,omitempty"`
	Lot        string         `json:"lot,omitempty"`
	Comment    string         `json:"comment,omitempty"`
}

// CreateTransferRequest opens a transfer between two warehouses.
// Staged transfers start in "pending" and must be marked sent separately;
// the common case goes straight to "sent".
type CreateTransferRequest struct {
	OriginWarehouseID string                `json:"originWarehouseId" binding:"required"`
	DestWarehouseID   string                `json:"destWarehouseId" binding:"required"`
	Staged            bool                  `json:"staged,omitempty"`
	Observations      string                `json:"observations,omitempty"`
	Lines             []TransferLineRequest `json:"lines" binding:"required"`
}

// OrderLineRequest is one line of a customer order. Comment lines carry
// only text; product lines carry the stock fields.
type OrderLineRequest struct {
	IsComment    bool            `json:"isComment,omitempty"`
	Comment      string          `json:"comment,omitempty"`
	Product      string          `json:"product,omitempty"`
	Quantity     types.Quantity  `json:"quantity,omitempty"`
	Format       string          `json:"format,omitempty"`
	WeightKg     *types.Weight   `json:"weightKg,omitempty"`
	Lot          string          `json:"lot,omitempty"`
	Prepared     bool            `json:"prepared,omitempty"`
	QuantitySent *types.Quantity `json:"quantitySent,omitempty"`
}

// CreateOrderRequest opens a customer order in "awaiting".
type CreateOrderRequest struct {
	WarehouseID  string             `json:"warehouseId" binding:"required"`
	CustomerName string             `json:"customerName" binding:"required"`
	DeliveryDate *time.Time         `json:"deliveryDate,omitempty"`
	Observations string             `json:"observations,omitempty"`
	Lines        []OrderLineRequest `json:"lines,omitempty"`
}

// UpdateOrderLinesRequest replaces the order's lines wholesale.
type UpdateOrderLinesRequest struct {
	Lines []OrderLineRequest `json:"lines" binding:"required"`
}

// CloseOrderRequest finishes preparation with the number of packages.
type CloseOrderRequest struct {
	PackageCount int `json:"packageCount" binding:"required"`
}

// PackageCountRequest corrects the package count of a prepared order.
type PackageCountRequest struct {
	PackageCount int `json:"packageCount" binding:"required"`
}

// ReturnLineRequest is one returned item.
type ReturnLineRequest struct {
	Product      string         `json:"product" binding:"required"`
	Quantity     types.Quantity `json:"quantity" binding:"required"`
	WeightKg     *types.Weight  `json:"weightKg,omitempty"`
	Lot          string         `json:"lot,omitempty"`
	Reason       string         `json:"reason,omitempty"`
	FitForResale bool           `json:"fitForResale,omitempty"`
}

// ReturnRequest registers a partial or total return against an order.
// Lines are required for partial returns; a total return with no lines
// mirrors the order's product lines, restocking them when FitForResale
// is set.
type ReturnRequest struct {
	Reason       string              `json:"reason" binding:"required"`
	FitForResale bool                `json:"fitForResale,omitempty"`
	Lines        []ReturnLineRequest `json:"lines,omitempty"`
}

// DraftRequest stores an in-progress order form for later recovery.
type DraftRequest struct {
	Payload json.RawMessage `json:"payload" binding:"required"`
}
