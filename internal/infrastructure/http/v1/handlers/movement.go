package handlers

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"obrador/internal/core/apperror"
	"obrador/internal/domain/ledger"
	"obrador/internal/infrastructure/http/v1/dto"
)

// MovementHandler serves the stock movement journal.
type MovementHandler struct {
	store *ledger.Store
}

func NewMovementHandler(store *ledger.Store) *MovementHandler {
	return &MovementHandler{store: store}
}

// Create appends a manual entry or exit movement.
// Transfer and return legs are emitted by their own flows and cannot be
// written through this endpoint.
func (h *MovementHandler) Create(c *gin.Context) {
	var req dto.CreateMovementRequest
	if !bindJSON(c, &req) {
		return
	}

	kind := ledger.Kind(req.Kind)
	if kind != ledger.KindEntry && kind != ledger.KindExit {
		_ = c.Error(apperror.NewValidation("only entry and exit movements can be recorded manually").
			WithDetail("field", "kind").
			WithDetail("kind", req.Kind))
		return
	}

	m := ledger.NewMovement(req.WarehouseID, req.ProductKey, kind, req.Quantity)
	m.WeightKg = req.WeightKg
	m.Unit = req.Unit
	m.Lot = req.Lot
	m.Reason = req.Reason
	m.CreatedBy = actor(c)

	if err := h.store.Append(c.Request.Context(), []ledger.Movement{m}); err != nil {
		_ = c.Error(err)
		return
	}

	created(c, dto.IDResponse{ID: m.ID.String()})
}

// ListByWarehouse returns the movement journal of one warehouse, oldest first.
func (h *MovementHandler) ListByWarehouse(c *gin.Context) {
	filter, valid := movementFilterFromQuery(c)
	if !valid {
		return
	}

	movements, err := h.store.ListByWarehouse(c.Request.Context(), c.Param("warehouse"), filter)
	if err != nil {
		_ = c.Error(err)
		return
	}

	ok(c, dto.NewListResponse(movements))
}

func movementFilterFromQuery(c *gin.Context) (ledger.MovementFilter, bool) {
	filter := ledger.MovementFilter{
		ProductKey: c.Query("product"),
	}

	if k := c.Query("kind"); k != "" {
		kind := ledger.Kind(k)
		if !kind.IsValid() {
			_ = c.Error(apperror.NewValidation("unknown movement kind").
				WithDetail("field", "kind").
				WithDetail("kind", k))
			return filter, false
		}
		filter.Kind = &kind
	}

	for name, dst := range map[string]**time.Time{"from": &filter.FromDate, "to": &filter.ToDate} {
		if v := c.Query(name); v != "" {
			t, err := parseQueryTime(v)
			if err != nil {
				_ = c.Error(apperror.NewValidation("invalid date").
					WithDetail("field", name).
					WithCause(err))
				return filter, false
			}
			*dst = &t
		}
	}

	filter.Limit, _ = strconv.Atoi(c.DefaultQuery("limit", "100"))
	filter.Offset, _ = strconv.Atoi(c.DefaultQuery("offset", "0"))

	return filter, true
}

// parseQueryTime accepts RFC3339 timestamps or plain dates.
func parseQueryTime(v string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, v); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02", v)
}
