package order

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"obrador/internal/core/apperror"
	"obrador/internal/core/types"
)

func TestStateTransitions(t *testing.T) {
	tests := []struct {
		from    State
		to      State
		allowed bool
	}{
		{StateAwaiting, StateInPreparation, true},
		{StateAwaiting, StatePrepared, false},
		{StateAwaiting, StateCancelled, false},
		{StateInPreparation, StatePrepared, true},
		{StateInPreparation, StateCancelled, true},
		{StateInPreparation, StateShipped, false},
		{StatePrepared, StateShipped, true},
		{StatePrepared, StateInPreparation, true},
		{StatePrepared, StateCancelled, true},
		{StatePrepared, StateReturnedPartial, true},
		{StatePrepared, StateReturnedTotal, true},
		{StateShipped, StateCancelled, true},
		{StateShipped, StateReturnedPartial, true},
		{StateShipped, StateReturnedTotal, true},
		{StateShipped, StateInPreparation, false},
		{StateCancelled, StateInPreparation, false},
		{StateReturnedTotal, StateReturnedPartial, false},
		{StateReturnedPartial, StateReturnedPartial, false},
		{StateReturnedPartial, StateReturnedTotal, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.from)+"_to_"+string(tt.to), func(t *testing.T) {
			assert.Equal(t, tt.allowed, tt.from.CanTransition(tt.to))
		})
	}
}

func TestStateIsTerminal(t *testing.T) {
	assert.True(t, StateCancelled.IsTerminal())
	assert.True(t, StateReturnedTotal.IsTerminal())
	assert.True(t, StateReturnedPartial.IsTerminal())
	assert.False(t, StateAwaiting.IsTerminal())
	assert.False(t, StatePrepared.IsTerminal())
	assert.False(t, StateShipped.IsTerminal())
}

func TestOrderValidate(t *testing.T) {
	o := New("wh-shop-1", "Bar Paquita")
	o.Lines = []Line{
		{Product: "queso-fresco", Quantity: types.NewQuantityFromFloat64(3)},
		{IsComment: true, Comment: "sin sal si puede ser"},
	}
	require.NoError(t, o.Validate())

	t.Run("missing warehouse", func(t *testing.T) {
		o := New("", "Bar Paquita")
		err := o.Validate()
		require.Error(t, err)
		assert.True(t, apperror.IsValidation(err))
	})

	t.Run("product line without product", func(t *testing.T) {
		o := New("wh-shop-1", "Bar Paquita")
		o.Lines = []Line{{Quantity: types.NewQuantityFromFloat64(1)}}
		err := o.Validate()
		require.Error(t, err)
		assert.True(t, apperror.IsValidation(err))
	})

	t.Run("non-positive quantity", func(t *testing.T) {
		o := New("wh-shop-1", "Bar Paquita")
		o.Lines = []Line{{Product: "queso-fresco"}}
		err := o.Validate()
		require.Error(t, err)
		assert.True(t, apperror.IsValidation(err))
	})

	t.Run("comment line needs no product or quantity", func(t *testing.T) {
		o := New("wh-shop-1", "Bar Paquita")
		o.Lines = []Line{{IsComment: true, Comment: "entregar antes de las 9"}}
		require.NoError(t, o.Validate())
	})
}

func TestOrderValidateAssignsLineNumbers(t *testing.T) {
	o := New("wh-shop-1", "Bar Paquita")
	o.Lines = []Line{
		{Product: "queso-fresco", Quantity: types.NewQuantityFromFloat64(1)},
		{IsComment: true, Comment: "nota"},
		{Product: "membrillo", Quantity: types.NewQuantityFromFloat64(2)},
	}
	require.NoError(t, o.Validate())

	assert.Equal(t, 1, o.Lines[0].LineNo)
	assert.Equal(t, 2, o.Lines[1].LineNo)
	assert.Equal(t, 3, o.Lines[2].LineNo)
}

func TestOrderProductLines(t *testing.T) {
	o := New("wh-shop-1", "Bar Paquita")
	o.Lines = []Line{
		{Product: "queso-fresco", Quantity: types.NewQuantityFromFloat64(1)},
		{IsComment: true, Comment: "nota"},
		{Product: "membrillo", Quantity: types.NewQuantityFromFloat64(2)},
	}

	products := o.ProductLines()
	require.Len(t, products, 2)
	assert.Equal(t, "queso-fresco", products[0].Product)
	assert.Equal(t, "membrillo", products[1].Product)

	assert.NotNil(t, o.FindProductLine("membrillo"))
	assert.Nil(t, o.FindProductLine("chorizo"))
}

func TestTransitionToAppendsHistory(t *testing.T) {
	o := New("wh-shop-1", "Bar Paquita")
	now := time.Now().UTC()

	o.transitionTo(StateInPreparation, "maria", now)
	o.transitionTo(StatePrepared, "maria", now.Add(time.Minute))

	require.Len(t, o.History, 2)
	assert.Equal(t, HistoryStatus, o.History[0].Kind)
	assert.Equal(t, string(StateInPreparation), o.History[0].Value)
	assert.Equal(t, string(StatePrepared), o.History[1].Value)
	assert.Equal(t, "maria", o.History[1].Actor)
	assert.Equal(t, StatePrepared, o.State)
}

func TestRecordPackageCount(t *testing.T) {
	o := New("wh-shop-1", "Bar Paquita")
	o.recordPackageCount(3, "paco", time.Now().UTC())
	o.recordPackageCount(4, "paco", time.Now().UTC())

	assert.Equal(t, 4, o.PackageCount)
	require.Len(t, o.History, 2)
	assert.Equal(t, HistoryPackageCount, o.History[0].Kind)
	assert.Equal(t, "3", o.History[0].Value)
	assert.Equal(t, "4", o.History[1].Value)
}
