package ledger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"obrador/internal/core/apperror"
	"obrador/internal/core/types"
)

func TestKindSign(t *testing.T) {
	tests := []struct {
		kind Kind
		sign int
	}{
		{KindEntry, 1},
		{KindTransferIn, 1},
		{KindReturnIn, 1},
		{KindExit, -1},
		{KindTransferOut, -1},
		{KindReturnOut, -1},
	}

	for _, tt := range tests {
		t.Run(string(tt.kind), func(t *testing.T) {
			assert.Equal(t, tt.sign, tt.kind.Sign())
		})
	}
}

func TestKindIsValid(t *testing.T) {
	assert.True(t, KindEntry.IsValid())
	assert.True(t, KindReturnOut.IsValid())
	assert.False(t, Kind("adjustment").IsValid())
	assert.False(t, Kind("").IsValid())
}

func TestMovementSignedQuantity(t *testing.T) {
	in := NewMovement("wh-factory", "queso-fresco", KindEntry, types.NewQuantityFromFloat64(5))
	assert.Equal(t, types.NewQuantityFromFloat64(5), in.SignedQuantity())

	out := NewMovement("wh-factory", "queso-fresco", KindExit, types.NewQuantityFromFloat64(5))
	assert.Equal(t, types.NewQuantityFromFloat64(-5), out.SignedQuantity())
}

func TestMovementValidate(t *testing.T) {
	valid := NewMovement("wh-factory", "queso-fresco", KindEntry, types.NewQuantityFromFloat64(2))
	require.NoError(t, valid.Validate())

	tests := []struct {
		name   string
		mutate func(m *Movement)
	}{
		{"missing warehouse", func(m *Movement) { m.WarehouseID = "" }},
		{"missing product", func(m *Movement) { m.ProductKey = "" }},
		{"unknown kind", func(m *Movement) { m.Kind = "correction" }},
		{"zero quantity", func(m *Movement) { m.Quantity = 0 }},
		{"negative quantity", func(m *Movement) { m.Quantity = types.NewQuantityFromFloat64(-1) }},
		{"negative weight", func(m *Movement) {
			w := types.MustWeight("-0.5")
			m.WeightKg = &w
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := NewMovement("wh-factory", "queso-fresco", KindEntry, types.NewQuantityFromFloat64(2))
			tt.mutate(&m)

			err := m.Validate()
			require.Error(t, err)
			assert.True(t, apperror.IsValidation(err))
		})
	}
}
