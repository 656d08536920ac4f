package ledger

import (
	"context"
	"fmt"

	"obrador/internal/core/types"
)

// Aggregator computes balances by folding over the movement log (StockAggregator).
// It is a pure function of the log: identical log contents produce identical
// balances regardless of caller or call order. Negative results are returned
// as-is; oversold stock is a fact the ledger records, not an error.
type Aggregator struct {
	repo Repository
}

// NewAggregator creates a new stock aggregator.
func NewAggregator(repo Repository) *Aggregator {
	return &Aggregator{repo: repo}
}

// Balance folds the movements for a (warehouse, product[, lot]) key into the
// current quantity and weight balance.
func (a *Aggregator) Balance(ctx context.Context, warehouseID, productKey string, lot *string) (Balance, error) {
	b := Balance{WarehouseID: warehouseID, ProductKey: productKey, WeightKg: types.ZeroWeight()}
	if lot != nil {
		b.Lot = *lot
	}

	if warehouseID == "" || productKey == "" {
		return b, fmt.Errorf("warehouse id and product key are required")
	}

	movements, err := a.repo.ListByKey(ctx, warehouseID, productKey, lot)
	if err != nil {
		return b, fmt.Errorf("list movements: %w", err)
	}

	for i := range movements {
		b.Quantity += movements[i].SignedQuantity()
		b.WeightKg = b.WeightKg.Add(movements[i].SignedWeight())
	}

	return b, nil
}

// BalanceAcrossWarehouses returns the balance of a product per warehouse,
// for multi-warehouse stock views.
func (a *Aggregator) BalanceAcrossWarehouses(ctx context.Context, productKey string, warehouseIDs []string) (map[string]Balance, error) {
	if productKey == "" {
		return nil, fmt.Errorf("product key is required")
	}

	result := make(map[string]Balance, len(warehouseIDs))
	for _, wh := range warehouseIDs {
		b, err := a.Balance(ctx, wh, productKey, nil)
		if err != nil {
			return nil, err
		}
		result[wh] = b
	}
	return result, nil
}

// WarehouseBalances folds the whole journal of a warehouse into per-product
// balances, in first-seen product order.
func (a *Aggregator) WarehouseBalances(ctx context.Context, warehouseID string) ([]Balance, error) {
	movements, err := a.repo.ListByWarehouse(ctx, warehouseID, MovementFilter{})
	if err != nil {
		return nil, fmt.Errorf("list movements: %w", err)
	}

	index := make(map[string]int)
	balances := make([]Balance, 0)

	for i := range movements {
		m := &movements[i]
		key := m.ProductKey + "\x00" + m.Lot
		pos, ok := index[key]
		if !ok {
			pos = len(balances)
			index[key] = pos
			balances = append(balances, Balance{
				WarehouseID: warehouseID,
				ProductKey:  m.ProductKey,
				Lot:         m.Lot,
				WeightKg:    types.ZeroWeight(),
			})
		}
		balances[pos].Quantity += m.SignedQuantity()
		balances[pos].WeightKg = balances[pos].WeightKg.Add(m.SignedWeight())
	}

	return balances, nil
}
