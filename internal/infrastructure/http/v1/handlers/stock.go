package handlers

import (
	"strings"

	"github.com/gin-gonic/gin"

	"obrador/internal/domain/ledger"
	"obrador/internal/infrastructure/http/v1/dto"
)

// StockHandler serves derived balances. Balances are folded from the
// movement log on every request; nothing here is a stored counter.
type StockHandler struct {
	aggregator *ledger.Aggregator
}

func NewStockHandler(aggregator *ledger.Aggregator) *StockHandler {
	return &StockHandler{aggregator: aggregator}
}

// WarehouseStock returns every non-empty balance of one warehouse.
func (h *StockHandler) WarehouseStock(c *gin.Context) {
	balances, err := h.aggregator.WarehouseBalances(c.Request.Context(), c.Param("warehouse"))
	if err != nil {
		_ = c.Error(err)
		return
	}
	ok(c, dto.NewListResponse(balances))
}

// ProductStock returns the balance of one product in one warehouse.
// Pass ?lot= to narrow to a single lot.
func (h *StockHandler) ProductStock(c *gin.Context) {
	var lot *string
	if v, exists := c.GetQuery("lot"); exists {
		lot = &v
	}

	balance, err := h.aggregator.Balance(
		c.Request.Context(), c.Param("warehouse"), c.Param("product"), lot,
	)
	if err != nil {
		_ = c.Error(err)
		return
	}
	ok(c, balance)
}

// ProductAcrossWarehouses returns one product's balance per warehouse.
// ?warehouses=a,b,c narrows the set; empty means all warehouses seen in
// the ledger.
func (h *StockHandler) ProductAcrossWarehouses(c *gin.Context) {
	var warehouseIDs []string
	if v := c.Query("warehouses"); v != "" {
		warehouseIDs = strings.Split(v, ",")
	}

	balances, err := h.aggregator.BalanceAcrossWarehouses(
		c.Request.Context(), c.Param("product"), warehouseIDs,
	)
	if err != nil {
		_ = c.Error(err)
		return
	}
	ok(c, balances)
}
