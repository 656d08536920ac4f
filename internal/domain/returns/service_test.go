package returns_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"obrador/internal/core/apperror"
	"obrador/internal/core/tx"
	"obrador/internal/core/types"
	"obrador/internal/domain/ledger"
	"obrador/internal/domain/ledger/ledgertest"
	"obrador/internal/domain/order"
	"obrador/internal/domain/order/ordertest"
	"obrador/internal/domain/returns"
	"obrador/pkg/numerator"
)

type fixture struct {
	processor *returns.Processor
	lifecycle *order.Lifecycle
	orders    *ordertest.Repo
	movements *ledgertest.Repo
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	orders := ordertest.NewRepo()
	movements := ledgertest.NewRepo()
	store := ledger.NewStore(movements)
	lifecycle := order.NewLifecycle(orders, ordertest.NewDraftRepo(), numerator.NewMock(), tx.Nop(), nil)
	processor := returns.NewProcessor(lifecycle, store, tx.Nop(), nil)
	return &fixture{processor: processor, lifecycle: lifecycle, orders: orders, movements: movements}
}

// shippedOrder registers, prepares and ships an order with two product lines.
func (f *fixture) shippedOrder(t *testing.T) *order.Order {
	t.Helper()
	o := order.New("wh-shop-1", "Bar Paquita")
	o.CreatedBy = "maria"
	o.Lines = []order.Line{
		{Product: "queso-fresco", Quantity: types.NewQuantityFromFloat64(6)},
		{Product: "membrillo", Quantity: types.NewQuantityFromFloat64(2)},
		{IsComment: true, Comment: "entregar por la puerta de atras"},
	}
	ctx := context.Background()
	require.NoError(t, f.lifecycle.Create(ctx, o))
	_, err := f.lifecycle.UpdateLines(ctx, o.ID, o.Lines, "paco")
	require.NoError(t, err)
	_, err = f.lifecycle.Close(ctx, o.ID, 1, "paco")
	require.NoError(t, err)
	shipped, err := f.lifecycle.MarkShipped(ctx, o.ID, "paco")
	require.NoError(t, err)
	return shipped
}

func TestRegisterPartialRestocksFitItems(t *testing.T) {
	f := newFixture(t)
	o := f.shippedOrder(t)

	result, err := f.processor.RegisterPartial(context.Background(), o.ID, returns.Request{
		Reason: "cliente devuelve parte",
		Actor:  "maria",
		Lines: []order.ReturnLine{
			{Product: "queso-fresco", Quantity: types.NewQuantityFromFloat64(2), FitForResale: true},
			{Product: "membrillo", Quantity: types.NewQuantityFromFloat64(1), FitForResale: false, Reason: "envase golpeado"},
		},
	})
	require.NoError(t, err)

	assert.Equal(t, order.StateReturnedPartial, result.State)
	require.Len(t, result.Returns, 1)
	rec := result.Returns[0]
	assert.Equal(t, order.ReturnPartial, rec.Kind)
	assert.Len(t, rec.Lines, 2)

	// only the resale-fit line re-enters stock
	all := f.movements.All()
	require.Len(t, all, 1)
	assert.Equal(t, ledger.KindReturnIn, all[0].Kind)
	assert.Equal(t, "wh-shop-1", all[0].WarehouseID)
	assert.Equal(t, "queso-fresco", all[0].ProductKey)
	assert.Equal(t, types.NewQuantityFromFloat64(2), all[0].Quantity)
	require.NotNil(t, all[0].OrderRef)
	assert.Equal(t, o.ID, *all[0].OrderRef)
}

func TestRegisterPartialRequiresLines(t *testing.T) {
	f := newFixture(t)
	o := f.shippedOrder(t)

	_, err := f.processor.RegisterPartial(context.Background(), o.ID, returns.Request{
		Reason: "devolucion",
		Actor:  "maria",
	})
	require.Error(t, err)
	assert.True(t, apperror.IsValidation(err))
}

func TestRegisterReturnRequiresReason(t *testing.T) {
	f := newFixture(t)
	o := f.shippedOrder(t)

	_, err := f.processor.RegisterPartial(context.Background(), o.ID, returns.Request{
		Actor: "maria",
		Lines: []order.ReturnLine{{Product: "queso-fresco", Quantity: types.NewQuantityFromFloat64(1), FitForResale: true}},
	})
	require.Error(t, err)
	assert.True(t, apperror.IsValidation(err))

	_, err = f.processor.RegisterTotal(context.Background(), o.ID, returns.Request{Actor: "maria"})
	require.Error(t, err)
	assert.True(t, apperror.IsValidation(err))

	assert.Empty(t, f.movements.All())
}

func TestRegisterPartialQuantityExceedsLine(t *testing.T) {
	f := newFixture(t)
	o := f.shippedOrder(t)

	// the order only shipped 2 membrillo
	_, err := f.processor.RegisterPartial(context.Background(), o.ID, returns.Request{
		Reason: "devolucion",
		Actor:  "maria",
		Lines: []order.ReturnLine{
			{Product: "membrillo", Quantity: types.NewQuantityFromFloat64(5), FitForResale: true},
		},
	})
	require.Error(t, err)
	assert.True(t, apperror.IsValidation(err))
	assert.Empty(t, f.movements.All())
}

func TestRegisterPartialUnfitEmitsNothing(t *testing.T) {
	f := newFixture(t)
	o := f.shippedOrder(t)

	result, err := f.processor.RegisterPartial(context.Background(), o.ID, returns.Request{
		Reason: "producto en mal estado",
		Actor:  "maria",
		Lines: []order.ReturnLine{
			{Product: "queso-fresco", Quantity: types.NewQuantityFromFloat64(1), FitForResale: false},
		},
	})
	require.NoError(t, err)

	assert.Equal(t, order.StateReturnedPartial, result.State)
	assert.Empty(t, f.movements.All())
}

func TestRegisterTotalUnfitEmitsNothing(t *testing.T) {
	f := newFixture(t)
	o := f.shippedOrder(t)

	result, err := f.processor.RegisterTotal(context.Background(), o.ID, returns.Request{
		Reason: "producto caducado",
		Actor:  "maria",
	})
	require.NoError(t, err)

	assert.Equal(t, order.StateReturnedTotal, result.State)
	require.Len(t, result.Returns, 1)
	assert.Len(t, result.Returns[0].Lines, 2)
	assert.Empty(t, f.movements.All())
}

func TestRegisterPartialUnknownProduct(t *testing.T) {
	f := newFixture(t)
	o := f.shippedOrder(t)

	_, err := f.processor.RegisterPartial(context.Background(), o.ID, returns.Request{
		Reason: "devolucion",
		Actor:  "maria",
		Lines: []order.ReturnLine{
			{Product: "chorizo", Quantity: types.NewQuantityFromFloat64(1), FitForResale: true},
		},
	})
	require.Error(t, err)
	assert.True(t, apperror.IsValidation(err))
	assert.Empty(t, f.movements.All())

	// failed return leaves the order untouched
	stored, err := f.lifecycle.GetByID(context.Background(), o.ID)
	require.NoError(t, err)
	assert.Equal(t, order.StateShipped, stored.State)
	assert.Empty(t, stored.Returns)
}

func TestRegisterTotalDefaultsToWholeOrder(t *testing.T) {
	f := newFixture(t)
	o := f.shippedOrder(t)

	result, err := f.processor.RegisterTotal(context.Background(), o.ID, returns.Request{
		Reason:       "pedido rechazado entero",
		Actor:        "maria",
		FitForResale: true,
	})
	require.NoError(t, err)

	assert.Equal(t, order.StateReturnedTotal, result.State)
	require.Len(t, result.Returns, 1)
	assert.Equal(t, order.ReturnTotal, result.Returns[0].Kind)
	// comment lines never become return lines
	assert.Len(t, result.Returns[0].Lines, 2)

	all := f.movements.All()
	require.Len(t, all, 2)
	for _, m := range all {
		assert.Equal(t, ledger.KindReturnIn, m.Kind)
		assert.Equal(t, "wh-shop-1", m.WarehouseID)
	}

	agg := ledger.NewAggregator(f.movements)
	b, err := agg.Balance(context.Background(), "wh-shop-1", "queso-fresco", nil)
	require.NoError(t, err)
	assert.Equal(t, types.NewQuantityFromFloat64(6), b.Quantity)
}

func TestRegisterTotalUsesSentQuantity(t *testing.T) {
	f := newFixture(t)
	o := f.shippedOrder(t)

	// the factory sent less than ordered; the return mirrors what shipped
	sent := types.NewQuantityFromFloat64(4)
	stored, err := f.orders.GetByID(context.Background(), o.ID)
	require.NoError(t, err)
	stored.Lines[0].QuantitySent = &sent
	stored.SetVersion(stored.Version + 1)
	require.NoError(t, f.orders.Update(context.Background(), stored))

	result, err := f.processor.RegisterTotal(context.Background(), o.ID, returns.Request{
		Reason:       "pedido rechazado",
		Actor:        "maria",
		FitForResale: true,
	})
	require.NoError(t, err)

	var qty types.Quantity
	for _, l := range result.Returns[0].Lines {
		if l.Product == "queso-fresco" {
			qty = l.Quantity
		}
	}
	assert.Equal(t, sent, qty)
}

func TestRegisterReturnFromPrepared(t *testing.T) {
	f := newFixture(t)

	o := order.New("wh-shop-1", "Bar Paquita")
	o.CreatedBy = "maria"
	o.Lines = []order.Line{{Product: "queso-fresco", Quantity: types.NewQuantityFromFloat64(3)}}
	ctx := context.Background()
	require.NoError(t, f.lifecycle.Create(ctx, o))
	_, err := f.lifecycle.UpdateLines(ctx, o.ID, o.Lines, "paco")
	require.NoError(t, err)
	_, err = f.lifecycle.Close(ctx, o.ID, 1, "paco")
	require.NoError(t, err)

	// a prepared order can come back without ever shipping
	result, err := f.processor.RegisterTotal(ctx, o.ID, returns.Request{Reason: "anulado en mostrador", Actor: "maria"})
	require.NoError(t, err)
	assert.Equal(t, order.StateReturnedTotal, result.State)
}

func TestRegisterReturnTerminalStatesRejected(t *testing.T) {
	f := newFixture(t)
	o := f.shippedOrder(t)

	_, err := f.processor.RegisterTotal(context.Background(), o.ID, returns.Request{Reason: "rechazado", Actor: "maria"})
	require.NoError(t, err)
	before := len(f.movements.All())

	// a returned order cannot be returned again
	_, err = f.processor.RegisterTotal(context.Background(), o.ID, returns.Request{Reason: "rechazado", Actor: "maria"})
	require.Error(t, err)
	assert.True(t, apperror.IsInvalidState(err))

	_, err = f.processor.RegisterPartial(context.Background(), o.ID, returns.Request{
		Reason: "devolucion",
		Actor:  "maria",
		Lines:  []order.ReturnLine{{Product: "queso-fresco", Quantity: types.NewQuantityFromFloat64(1), FitForResale: true}},
	})
	require.Error(t, err)
	assert.True(t, apperror.IsInvalidState(err))

	assert.Len(t, f.movements.All(), before)
}

func TestRegisterReturnAwaitingRejected(t *testing.T) {
	f := newFixture(t)

	o := order.New("wh-shop-1", "Bar Paquita")
	o.Lines = []order.Line{{Product: "queso-fresco", Quantity: types.NewQuantityFromFloat64(3)}}
	require.NoError(t, f.lifecycle.Create(context.Background(), o))

	_, err := f.processor.RegisterTotal(context.Background(), o.ID, returns.Request{Reason: "rechazado", Actor: "maria"})
	require.Error(t, err)
	assert.True(t, apperror.IsInvalidState(err))
	assert.Empty(t, f.movements.All())
}

func TestPartialAfterPartialRejected(t *testing.T) {
	f := newFixture(t)
	o := f.shippedOrder(t)

	_, err := f.processor.RegisterPartial(context.Background(), o.ID, returns.Request{
		Reason: "devolucion",
		Actor:  "maria",
		Lines:  []order.ReturnLine{{Product: "membrillo", Quantity: types.NewQuantityFromFloat64(1), FitForResale: true}},
	})
	require.NoError(t, err)

	_, err = f.processor.RegisterPartial(context.Background(), o.ID, returns.Request{
		Reason: "devolucion",
		Actor:  "maria",
		Lines:  []order.ReturnLine{{Product: "queso-fresco", Quantity: types.NewQuantityFromFloat64(1), FitForResale: true}},
	})
	require.Error(t, err)
	assert.True(t, apperror.IsInvalidState(err))
}
