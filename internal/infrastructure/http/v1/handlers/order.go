package handlers

import (
	"context"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"obrador/internal/core/apperror"
	"obrador/internal/core/id"
	"obrador/internal/domain/order"
	"obrador/internal/domain/returns"
	"obrador/internal/infrastructure/http/v1/dto"
)

// OrderHandler serves the customer order lifecycle and returns.
type OrderHandler struct {
	lifecycle *order.Lifecycle
	returns   *returns.Processor
}

func NewOrderHandler(lifecycle *order.Lifecycle, processor *returns.Processor) *OrderHandler {
	return &OrderHandler{lifecycle: lifecycle, returns: processor}
}

// Create opens an order in "awaiting".
func (h *OrderHandler) Create(c *gin.Context) {
	var req dto.CreateOrderRequest
	if !bindJSON(c, &req) {
		return
	}

	o := order.New(req.WarehouseID, req.CustomerName)
	o.DeliveryDate = req.DeliveryDate
	o.Observations = req.Observations
	o.CreatedBy = actor(c)
	o.Lines = orderLinesFromDTO(req.Lines)

	if err := h.lifecycle.Create(c.Request.Context(), o); err != nil {
		_ = c.Error(err)
		return
	}

	created(c, o)
}

// Get returns one order with lines, history and returns.
func (h *OrderHandler) Get(c *gin.Context) {
	orderID, valid := pathID(c)
	if !valid {
		return
	}

	o, err := h.lifecycle.GetByID(c.Request.Context(), orderID)
	if err != nil {
		_ = c.Error(err)
		return
	}
	ok(c, o)
}

// List returns orders matching the filter, newest first.
func (h *OrderHandler) List(c *gin.Context) {
	filter := order.ListFilter{
		WarehouseID: c.Query("warehouse"),
	}

	for _, s := range c.QueryArray("state") {
		state := order.State(s)
		if !state.IsValid() {
			_ = c.Error(apperror.NewValidation("unknown order state").
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

	orders, err := h.lifecycle.List(c.Request.Context(), filter)
	if err != nil {
		_ = c.Error(err)
		return
	}
	ok(c, dto.NewListResponse(orders))
}

// UpdateLines replaces the order's lines. The first edit of an awaiting
// order moves it to "in_preparation"; editing a prepared order reopens it.
func (h *OrderHandler) UpdateLines(c *gin.Context) {
	orderID, valid := pathID(c)
	if !valid {
		return
	}

	var req dto.UpdateOrderLinesRequest
	if !bindJSON(c, &req) {
		return
	}

	o, err := h.lifecycle.UpdateLines(
		c.Request.Context(), orderID, orderLinesFromDTO(req.Lines), actor(c),
	)
	if err != nil {
		_ = c.Error(err)
		return
	}
	ok(c, o)
}

// Close finishes preparation, recording the package count and moving the
// order to "prepared".
func (h *OrderHandler) Close(c *gin.Context) {
	orderID, valid := pathID(c)
	if !valid {
		return
	}

	var req dto.CloseOrderRequest
	if !bindJSON(c, &req) {
		return
	}

	o, err := h.lifecycle.Close(c.Request.Context(), orderID, req.PackageCount, actor(c))
	if err != nil {
		_ = c.Error(err)
		return
	}
	ok(c, o)
}

// SetPackageCount corrects the package count of a prepared order.
func (h *OrderHandler) SetPackageCount(c *gin.Context) {
	orderID, valid := pathID(c)
	if !valid {
		return
	}

	var req dto.PackageCountRequest
	if !bindJSON(c, &req) {
		return
	}

	o, err := h.lifecycle.SetPackageCount(c.Request.Context(), orderID, req.PackageCount, actor(c))
	if err != nil {
		_ = c.Error(err)
		return
	}
	ok(c, o)
}

// Ship marks a prepared order as shipped.
func (h *OrderHandler) Ship(c *gin.Context) {
	orderID, valid := pathID(c)
	if !valid {
		return
	}

	o, err := h.lifecycle.MarkShipped(c.Request.Context(), orderID, actor(c))
	if err != nil {
		_ = c.Error(err)
		return
	}
	ok(c, o)
}

// Cancel voids an order that has entered preparation.
func (h *OrderHandler) Cancel(c *gin.Context) {
	orderID, valid := pathID(c)
	if !valid {
		return
	}

	o, err := h.lifecycle.Cancel(c.Request.Context(), orderID, actor(c))
	if err != nil {
		_ = c.Error(err)
		return
	}
	ok(c, o)
}

// ReturnPartial registers a partial return. Items marked fit for resale
// go back into stock at the order's warehouse.
func (h *OrderHandler) ReturnPartial(c *gin.Context) {
	h.registerReturn(c, h.returns.RegisterPartial)
}

// ReturnTotal registers a total return. With no lines given, the whole
// order is returned.
func (h *OrderHandler) ReturnTotal(c *gin.Context) {
	h.registerReturn(c, h.returns.RegisterTotal)
}

func (h *OrderHandler) registerReturn(
	c *gin.Context,
	register func(ctx context.Context, orderID id.ID, req returns.Request) (*order.Order, error),
) {
	orderID, valid := pathID(c)
	if !valid {
		return
	}

	var req dto.ReturnRequest
	if !bindJSON(c, &req) {
		return
	}

	lines := make([]order.ReturnLine, 0, len(req.Lines))
	for _, l := range req.Lines {
		lines = append(lines, order.ReturnLine{
			Product:      l.Product,
			Quantity:     l.Quantity,
			WeightKg:     l.WeightKg,
			Lot:          l.Lot,
			Reason:       l.Reason,
			FitForResale: l.FitForResale,
		})
	}

	o, err := register(c.Request.Context(), orderID, returns.Request{
		Reason:       req.Reason,
		Actor:        actor(c),
		Lines:        lines,
		FitForResale: req.FitForResale,
	})
	if err != nil {
		_ = c.Error(err)
		return
	}
	ok(c, o)
}

func orderLinesFromDTO(in []dto.OrderLineRequest) []order.Line {
	lines := make([]order.Line, 0, len(in))
	for _, l := range in {
		lines = append(lines, order.Line{
			IsComment:    l.IsComment,
			Comment:      l.Comment,
			Product:      l.Product,
			Quantity:     l.Quantity,
			Format:       l.Format,
			WeightKg:     l.WeightKg,
			Lot:          l.Lot,
			Prepared:     l.Prepared,
			QuantitySent: l.QuantitySent,
		})
	}
	return lines
}
