package transfer

import (
	"testing"

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
		{StatePending, StateSent, true},
		{StatePending, StateReceived, true},
		{StatePending, StateCancelled, true},
		{StateSent, StateReceived, true},
		{StateSent, StateCancelled, true},
		{StateReceived, StateCancelled, false},
		{StateReceived, StateSent, false},
		{StateCancelled, StateReceived, false},
		{StateCancelled, StateSent, false},
		{StateSent, StatePending, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.from)+"_to_"+string(tt.to), func(t *testing.T) {
			assert.Equal(t, tt.allowed, tt.from.CanTransition(tt.to))
		})
	}
}

func TestStateIsTerminal(t *testing.T) {
	assert.False(t, StatePending.IsTerminal())
	assert.False(t, StateSent.IsTerminal())
	assert.True(t, StateReceived.IsTerminal())
	assert.True(t, StateCancelled.IsTerminal())
}

func TestTransferValidate(t *testing.T) {
	mk := func() *Transfer {
		tr := New("wh-factory", "wh-shop-1", false)
		tr.AddLine("queso-fresco", types.NewQuantityFromFloat64(5), nil, "", "")
		return tr
	}

	require.NoError(t, mk().Validate())

	t.Run("same origin and destination", func(t *testing.T) {
		tr := New("wh-factory", "wh-factory", false)
		tr.AddLine("queso-fresco", types.NewQuantityFromFloat64(5), nil, "", "")

		err := tr.Validate()
		require.Error(t, err)
		assert.True(t, apperror.IsValidation(err))
	})

	t.Run("no lines", func(t *testing.T) {
		tr := New("wh-factory", "wh-shop-1", false)
		err := tr.Validate()
		require.Error(t, err)
		assert.True(t, apperror.IsValidation(err))
	})

	t.Run("non-positive quantity", func(t *testing.T) {
		tr := New("wh-factory", "wh-shop-1", false)
		tr.AddLine("queso-fresco", 0, nil, "", "")

		err := tr.Validate()
		require.Error(t, err)
		assert.True(t, apperror.IsValidation(err))
	})

	t.Run("missing product", func(t *testing.T) {
		tr := New("wh-factory", "wh-shop-1", false)
		tr.AddLine("", types.NewQuantityFromFloat64(1), nil, "", "")

		err := tr.Validate()
		require.Error(t, err)
		assert.True(t, apperror.IsValidation(err))
	})
}

func TestTransferInvolvesWarehouse(t *testing.T) {
	tr := New("wh-factory", "wh-shop-1", false)
	assert.True(t, tr.InvolvesWarehouse("wh-factory"))
	assert.True(t, tr.InvolvesWarehouse("wh-shop-1"))
	assert.False(t, tr.InvolvesWarehouse("wh-shop-2"))
}
