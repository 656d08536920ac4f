package handlers

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"obrador/internal/core/apperror"
	"obrador/internal/domain/transfer"
	"obrador/internal/infrastructure/http/v1/dto"
)

// TransferHandler serves the inter-warehouse transfer endpoints.
type TransferHandler struct {
	coordinator *transfer.Coordinator
}

func NewTransferHandler(coordinator *transfer.Coordinator) *TransferHandler {
	return &TransferHandler{coordinator: coordinator}
}

// Create opens a transfer. No stock moves until the destination confirms.
func (h *TransferHandler) Create(c *gin.Context) {
	var req dto.CreateTransferRequest
	if !bindJSON(c, &req) {
		return
	}

	t := transfer.New(req.OriginWarehouseID, req.DestWarehouseID, req.Staged)
	t.Observations = req.Observations
	t.CreatedBy = actor(c)
	for _, l := range req.Lines {
		t.AddLine(l.ProductKey, l.Quantity, l.WeightKg, l.Lot, l.Comment)
	}

	if err := h.coordinator.Create(c.Request.Context(), t); err != nil {
		_ = c.Error(err)
		return
	}

	created(c, t)
}

// Get returns one transfer with its lines.
func (h *TransferHandler) Get(c *gin.Context) {
	transferID, valid := pathID(c)
	if !valid {
		return
	}

	t, err := h.coordinator.GetByID(c.Request.Context(), transferID)
	if err != nil {
		_ = c.Error(err)
		return
	}
	ok(c, t)
}

// List returns transfers involving a warehouse, newest first.
func (h *TransferHandler) List(c *gin.Context) {
	filter := transfer.ListFilter{
		WarehouseID: c.Query("warehouse"),
	}

	for _, s := range c.QueryArray("state") {
		state := transfer.State(s)
		if !state.IsValid() {
			_ = c.Error(apperror.NewValidation("unknown transfer state").
				WithDetail("field", "state").
				WithDetail("state", s))
			return
		}
		filter.States = append(filter.States, state)
	}

	for name, dst := range map[string]**time.Time{"from": &filter.FromDate, "to": &filter.ToDate} {
		if v := c.Query(name); v != "" {
			t, err := parseQueryTime(v)
			if err != nil {
				_ = c.Error(apperror.NewValidation("invalid date").
					WithDetail("field", name).
					WithCause(err))
				return
			}
			*dst = &t
		}
	}

	filter.Limit, _ = strconv.Atoi(c.DefaultQuery("limit", "50"))
	filter.Offset, _ = strconv.Atoi(c.DefaultQuery("offset", "0"))

	transfers, err := h.coordinator.List(c.Request.Context(), filter)
	if err != nil {
		_ = c.Error(err)
		return
	}
	ok(c, dto.NewListResponse(transfers))
}

// Confirm marks the transfer received at its destination and emits the
// movement pair for every line. Confirming twice is a no-op.
func (h *TransferHandler) Confirm(c *gin.Context) {
	transferID, valid := pathID(c)
	if !valid {
		return
	}

	t, err := h.coordinator.ConfirmReceived(
		c.Request.Context(), transferID, actorWarehouse(c), actor(c),
	)
	if err != nil {
		_ = c.Error(err)
		return
	}
	ok(c, t)
}

// Cancel voids a transfer that was never received.
func (h *TransferHandler) Cancel(c *gin.Context) {
	transferID, valid := pathID(c)
	if !valid {
		return
	}

	t, err := h.coordinator.Cancel(c.Request.Context(), transferID)
	if err != nil {
		_ = c.Error(err)
		return
	}
	ok(c, t)
}
