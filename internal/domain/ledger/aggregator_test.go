package ledger_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"obrador/internal/core/types"
	"obrador/internal/domain/ledger"
	"obrador/internal/domain/ledger/ledgertest"
)

func seedMovement(t *testing.T, repo *ledgertest.Repo, wh, product string, kind ledger.Kind, qty float64, weight string) {
	t.Helper()
	m := ledger.NewMovement(wh, product, kind, types.NewQuantityFromFloat64(qty))
	if weight != "" {
		w := types.MustWeight(weight)
		m.WeightKg = &w
	}
	require.NoError(t, repo.AppendMovements(context.Background(), []ledger.Movement{m}))
}

func TestAggregatorBalanceFold(t *testing.T) {
	repo := ledgertest.NewRepo()
	agg := ledger.NewAggregator(repo)

	seedMovement(t, repo, "wh-factory", "queso-fresco", ledger.KindEntry, 10, "2.500")
	seedMovement(t, repo, "wh-factory", "queso-fresco", ledger.KindExit, 3, "0.750")
	seedMovement(t, repo, "wh-factory", "queso-fresco", ledger.KindTransferOut, 2, "0.500")
	seedMovement(t, repo, "wh-factory", "queso-fresco", ledger.KindReturnIn, 1, "0.250")
	// other keys must not leak into the fold
	seedMovement(t, repo, "wh-factory", "queso-curado", ledger.KindEntry, 99, "")
	seedMovement(t, repo, "wh-shop-1", "queso-fresco", ledger.KindEntry, 50, "")

	b, err := agg.Balance(context.Background(), "wh-factory", "queso-fresco", nil)
	require.NoError(t, err)

	assert.Equal(t, types.NewQuantityFromFloat64(6), b.Quantity)
	assert.True(t, b.WeightKg.Equal(types.MustWeight("1.500")), "got %s", b.WeightKg)
}

func TestAggregatorBalanceNegativeNotClamped(t *testing.T) {
	repo := ledgertest.NewRepo()
	agg := ledger.NewAggregator(repo)

	seedMovement(t, repo, "wh-shop-1", "queso-fresco", ledger.KindEntry, 2, "")
	seedMovement(t, repo, "wh-shop-1", "queso-fresco", ledger.KindExit, 5, "")

	b, err := agg.Balance(context.Background(), "wh-shop-1", "queso-fresco", nil)
	require.NoError(t, err)

	// oversold stock surfaces as a negative balance
	assert.Equal(t, types.NewQuantityFromFloat64(-3), b.Quantity)
}

func TestAggregatorBalanceEmptyLogIsZero(t *testing.T) {
	agg := ledger.NewAggregator(ledgertest.NewRepo())

	b, err := agg.Balance(context.Background(), "wh-factory", "queso-fresco", nil)
	require.NoError(t, err)
	assert.True(t, b.Quantity.IsZero())
	assert.True(t, b.WeightKg.IsZero())
}

func TestAggregatorBalanceByLot(t *testing.T) {
	repo := ledgertest.NewRepo()
	agg := ledger.NewAggregator(repo)

	m1 := ledger.NewMovement("wh-factory", "queso-fresco", ledger.KindEntry, types.NewQuantityFromFloat64(10))
	m1.Lot = "L-2026-08-01"
	m2 := ledger.NewMovement("wh-factory", "queso-fresco", ledger.KindEntry, types.NewQuantityFromFloat64(4))
	m2.Lot = "L-2026-08-15"
	require.NoError(t, repo.AppendMovements(context.Background(), []ledger.Movement{m1, m2}))

	lot := "L-2026-08-01"
	b, err := agg.Balance(context.Background(), "wh-factory", "queso-fresco", &lot)
	require.NoError(t, err)
	assert.Equal(t, types.NewQuantityFromFloat64(10), b.Quantity)

	all, err := agg.Balance(context.Background(), "wh-factory", "queso-fresco", nil)
	require.NoError(t, err)
	assert.Equal(t, types.NewQuantityFromFloat64(14), all.Quantity)
}

func TestAggregatorBalanceAcrossWarehouses(t *testing.T) {
	repo := ledgertest.NewRepo()
	agg := ledger.NewAggregator(repo)

	seedMovement(t, repo, "wh-factory", "queso-fresco", ledger.KindEntry, 10, "")
	seedMovement(t, repo, "wh-shop-1", "queso-fresco", ledger.KindEntry, 3, "")

	result, err := agg.BalanceAcrossWarehouses(context.Background(), "queso-fresco", []string{"wh-factory", "wh-shop-1", "wh-shop-2"})
	require.NoError(t, err)

	assert.Equal(t, types.NewQuantityFromFloat64(10), result["wh-factory"].Quantity)
	assert.Equal(t, types.NewQuantityFromFloat64(3), result["wh-shop-1"].Quantity)
	assert.True(t, result["wh-shop-2"].Quantity.IsZero())
}

func TestAggregatorWarehouseBalances(t *testing.T) {
	repo := ledgertest.NewRepo()
	agg := ledger.NewAggregator(repo)

	seedMovement(t, repo, "wh-factory", "queso-fresco", ledger.KindEntry, 10, "")
	seedMovement(t, repo, "wh-factory", "membrillo", ledger.KindEntry, 6, "")
	seedMovement(t, repo, "wh-factory", "queso-fresco", ledger.KindExit, 4, "")

	balances, err := agg.WarehouseBalances(context.Background(), "wh-factory")
	require.NoError(t, err)

	require.Len(t, balances, 2)
	// first-seen product order
	assert.Equal(t, "queso-fresco", balances[0].ProductKey)
	assert.Equal(t, types.NewQuantityFromFloat64(6), balances[0].Quantity)
	assert.Equal(t, "membrillo", balances[1].ProductKey)
	assert.Equal(t, types.NewQuantityFromFloat64(6), balances[1].Quantity)
}
