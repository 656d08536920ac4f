package order_test

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"obrador/internal/core/apperror"
	"obrador/internal/core/id"
	"obrador/internal/core/tx"
	"obrador/internal/core/types"
	"obrador/internal/domain/order"
	"obrador/internal/domain/order/ordertest"
	"obrador/pkg/numerator"
)

func newLifecycle(t *testing.T) (*order.Lifecycle, *ordertest.Repo, *ordertest.DraftRepo) {
	t.Helper()
	repo := ordertest.NewRepo()
	drafts := ordertest.NewDraftRepo()
	l := order.NewLifecycle(repo, drafts, numerator.NewMock(), tx.Nop(), nil)
	return l, repo, drafts
}

func newAwaitingOrder(t *testing.T, l *order.Lifecycle) *order.Order {
	t.Helper()
	o := order.New("wh-shop-1", "Bar Paquita")
	o.CreatedBy = "maria"
	o.Lines = []order.Line{
		{Product: "queso-fresco", Quantity: types.NewQuantityFromFloat64(3)},
		{Product: "membrillo", Quantity: types.NewQuantityFromFloat64(2)},
	}
	require.NoError(t, l.Create(context.Background(), o))
	return o
}

func prepareOrder(t *testing.T, l *order.Lifecycle, o *order.Order) {
	t.Helper()
	_, err := l.UpdateLines(context.Background(), o.ID, o.Lines, "paco")
	require.NoError(t, err)
	_, err = l.Close(context.Background(), o.ID, 2, "paco")
	require.NoError(t, err)
}

func TestLifecycleCreate(t *testing.T) {
	l, repo, _ := newLifecycle(t)

	o := newAwaitingOrder(t, l)

	assert.Equal(t, order.StateAwaiting, o.State)
	assert.Contains(t, o.Number, "ORD-")

	stored, err := repo.GetByID(context.Background(), o.ID)
	require.NoError(t, err)
	require.Len(t, stored.History, 1)
	assert.Equal(t, order.HistoryStatus, stored.History[0].Kind)
	assert.Equal(t, string(order.StateAwaiting), stored.History[0].Value)
	assert.Equal(t, "maria", stored.History[0].Actor)
}

func TestLifecycleUpdateLinesMovesToPreparation(t *testing.T) {
	l, _, _ := newLifecycle(t)
	o := newAwaitingOrder(t, l)

	lines := append(o.Lines, order.Line{IsComment: true, Comment: "sin sal"})
	updated, err := l.UpdateLines(context.Background(), o.ID, lines, "paco")
	require.NoError(t, err)

	assert.Equal(t, order.StateInPreparation, updated.State)
	assert.Len(t, updated.Lines, 3)

	// history records the implicit transition
	last := updated.History[len(updated.History)-1]
	assert.Equal(t, string(order.StateInPreparation), last.Value)
	assert.Equal(t, "paco", last.Actor)
}

func TestLifecycleUpdateLinesStaysInPreparation(t *testing.T) {
	l, _, _ := newLifecycle(t)
	o := newAwaitingOrder(t, l)

	first, err := l.UpdateLines(context.Background(), o.ID, o.Lines, "paco")
	require.NoError(t, err)
	historyLen := len(first.History)

	second, err := l.UpdateLines(context.Background(), o.ID, o.Lines, "paco")
	require.NoError(t, err)

	assert.Equal(t, order.StateInPreparation, second.State)
	// repeated edits do not pile up status entries
	assert.Len(t, second.History, historyLen)
}

func TestLifecycleUpdateLinesReopensPrepared(t *testing.T) {
	l, _, _ := newLifecycle(t)
	o := newAwaitingOrder(t, l)
	prepareOrder(t, l, o)

	updated, err := l.UpdateLines(context.Background(), o.ID, o.Lines, "paco")
	require.NoError(t, err)
	assert.Equal(t, order.StateInPreparation, updated.State)
}

func TestLifecycleUpdateLinesRejectedAfterShipment(t *testing.T) {
	l, _, _ := newLifecycle(t)
	o := newAwaitingOrder(t, l)
	prepareOrder(t, l, o)

	_, err := l.MarkShipped(context.Background(), o.ID, "paco")
	require.NoError(t, err)

	_, err = l.UpdateLines(context.Background(), o.ID, o.Lines, "paco")
	require.Error(t, err)
	assert.True(t, apperror.IsInvalidState(err))
}

func TestLifecycleUpdateLinesDiscardsDraft(t *testing.T) {
	l, _, drafts := newLifecycle(t)
	o := newAwaitingOrder(t, l)

	require.NoError(t, l.SaveDraft(context.Background(), &order.Draft{
		Actor:   "paco",
		Key:     o.ID.String(),
		Payload: json.RawMessage(`{"lines":[]}`),
	}))
	require.Equal(t, 1, drafts.Len())

	_, err := l.UpdateLines(context.Background(), o.ID, o.Lines, "paco")
	require.NoError(t, err)

	assert.Equal(t, 0, drafts.Len())
}

func TestLifecycleCloseRequiresPackageCount(t *testing.T) {
	l, _, _ := newLifecycle(t)
	o := newAwaitingOrder(t, l)
	_, err := l.UpdateLines(context.Background(), o.ID, o.Lines, "paco")
	require.NoError(t, err)

	_, err = l.Close(context.Background(), o.ID, 0, "paco")
	require.Error(t, err)
	assert.True(t, apperror.IsValidation(err))

	closed, err := l.Close(context.Background(), o.ID, 3, "paco")
	require.NoError(t, err)
	assert.Equal(t, order.StatePrepared, closed.State)
	assert.Equal(t, 3, closed.PackageCount)

	// bultos land in history next to the status change
	n := len(closed.History)
	require.GreaterOrEqual(t, n, 2)
	assert.Equal(t, order.HistoryPackageCount, closed.History[n-2].Kind)
	assert.Equal(t, "3", closed.History[n-2].Value)
	assert.Equal(t, string(order.StatePrepared), closed.History[n-1].Value)
}

func TestLifecycleCloseFromAwaitingFails(t *testing.T) {
	l, _, _ := newLifecycle(t)
	o := newAwaitingOrder(t, l)

	_, err := l.Close(context.Background(), o.ID, 1, "paco")
	require.Error(t, err)
	assert.True(t, apperror.IsInvalidState(err))
}

func TestLifecycleSetPackageCount(t *testing.T) {
	l, _, _ := newLifecycle(t)
	o := newAwaitingOrder(t, l)
	prepareOrder(t, l, o)

	updated, err := l.SetPackageCount(context.Background(), o.ID, 5, "paco")
	require.NoError(t, err)

	assert.Equal(t, order.StatePrepared, updated.State)
	assert.Equal(t, 5, updated.PackageCount)

	last := updated.History[len(updated.History)-1]
	assert.Equal(t, order.HistoryPackageCount, last.Kind)
	assert.Equal(t, "5", last.Value)
}

func TestLifecycleSetPackageCountOnlyWhenPrepared(t *testing.T) {
	l, _, _ := newLifecycle(t)
	o := newAwaitingOrder(t, l)

	_, err := l.SetPackageCount(context.Background(), o.ID, 2, "paco")
	require.Error(t, err)
	assert.True(t, apperror.IsInvalidState(err))
}

func TestLifecycleShipAndCancel(t *testing.T) {
	l, _, _ := newLifecycle(t)

	t.Run("ship prepared", func(t *testing.T) {
		o := newAwaitingOrder(t, l)
		prepareOrder(t, l, o)

		shipped, err := l.MarkShipped(context.Background(), o.ID, "paco")
		require.NoError(t, err)
		assert.Equal(t, order.StateShipped, shipped.State)
	})

	t.Run("ship awaiting fails", func(t *testing.T) {
		o := newAwaitingOrder(t, l)
		_, err := l.MarkShipped(context.Background(), o.ID, "paco")
		require.Error(t, err)
		assert.True(t, apperror.IsInvalidState(err))
	})

	t.Run("cancel shipped", func(t *testing.T) {
		o := newAwaitingOrder(t, l)
		prepareOrder(t, l, o)
		_, err := l.MarkShipped(context.Background(), o.ID, "paco")
		require.NoError(t, err)

		cancelled, err := l.Cancel(context.Background(), o.ID, "paco")
		require.NoError(t, err)
		assert.Equal(t, order.StateCancelled, cancelled.State)
	})

	t.Run("cancel awaiting fails", func(t *testing.T) {
		o := newAwaitingOrder(t, l)
		_, err := l.Cancel(context.Background(), o.ID, "paco")
		require.Error(t, err)
		assert.True(t, apperror.IsInvalidState(err))
	})

	t.Run("cancel twice fails", func(t *testing.T) {
		o := newAwaitingOrder(t, l)
		prepareOrder(t, l, o)
		_, err := l.Cancel(context.Background(), o.ID, "paco")
		require.NoError(t, err)

		_, err = l.Cancel(context.Background(), o.ID, "paco")
		require.Error(t, err)
		assert.True(t, apperror.IsInvalidState(err))
	})
}

func TestLifecycleNotFound(t *testing.T) {
	l, _, _ := newLifecycle(t)

	_, err := l.GetByID(context.Background(), id.New())
	require.Error(t, err)
	assert.True(t, apperror.IsNotFound(err))
}

func TestLifecycleDrafts(t *testing.T) {
	l, _, _ := newLifecycle(t)

	d := &order.Draft{
		Actor:   "maria",
		Key:     "new",
		Payload: json.RawMessage(`{"customerName":"Bar Paquita","lines":[]}`),
	}
	require.NoError(t, l.SaveDraft(context.Background(), d))
	assert.False(t, d.UpdatedAt.IsZero())

	got, err := l.GetDraft(context.Background(), "maria", "new")
	require.NoError(t, err)
	assert.JSONEq(t, string(d.Payload), string(got.Payload))

	// drafts are per actor
	_, err = l.GetDraft(context.Background(), "paco", "new")
	require.Error(t, err)
	assert.True(t, apperror.IsNotFound(err))

	require.NoError(t, l.DiscardDraft(context.Background(), "maria", "new"))
	_, err = l.GetDraft(context.Background(), "maria", "new")
	require.Error(t, err)
	assert.True(t, apperror.IsNotFound(err))
}

func TestLifecycleSaveDraftValidates(t *testing.T) {
	l, _, _ := newLifecycle(t)

	err := l.SaveDraft(context.Background(), &order.Draft{Actor: "maria", Key: "new", Payload: json.RawMessage(`{`)})
	require.Error(t, err)
	assert.True(t, apperror.IsValidation(err))

	err = l.SaveDraft(context.Background(), &order.Draft{Key: "new", Payload: json.RawMessage(`{}`)})
	require.Error(t, err)
	assert.True(t, apperror.IsValidation(err))
}
