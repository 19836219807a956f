package inventory

import (
	"errors"
	"testing"

	"github.com/erp/stockledger/internal/domain/shared"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewMovementEntry(t *testing.T) {
	rec := newTestRecord(t, 40, 0, 10, 1000)

	t.Run("implied direction overrides the spec", func(t *testing.T) {
		m, err := NewMovementEntry(rec, MovementSpec{
			Type:      MovementTypeTransferOut,
			Direction: DirectionIncrease,
			Quantity:  5,
		}, testNow)

		require.NoError(t, err)
		assert.Equal(t, DirectionDecrease, m.Direction)
		assert.Equal(t, int64(-5), m.SignedQuantity())
		assert.Equal(t, int64(40), m.BalanceAfter)
		assert.Equal(t, rec.Key(), m.Key())
	})

	t.Run("adjustment requires a direction", func(t *testing.T) {
		_, err := NewMovementEntry(rec, MovementSpec{Type: MovementTypeAdjustment, Quantity: 5}, testNow)
		assert.True(t, errors.Is(err, shared.ErrInvalidInput))
	})

	t.Run("quantity must be positive", func(t *testing.T) {
		_, err := NewMovementEntry(rec, MovementSpec{Type: MovementTypeIn, Quantity: 0}, testNow)
		assert.True(t, errors.Is(err, shared.ErrInvalidQuantity))
	})

	t.Run("negative unit cost rejected", func(t *testing.T) {
		_, err := NewMovementEntry(rec, MovementSpec{
			Type:     MovementTypeIn,
			Quantity: 1,
			UnitCost: decimal.NewNullDecimal(decimal.NewFromInt(-1)),
		}, testNow)
		assert.True(t, errors.Is(err, shared.ErrInvalidInput))
	})
}

func TestSumSigned(t *testing.T) {
	entries := []MovementEntry{
		{MovementType: MovementTypeIn, Direction: DirectionIncrease, Quantity: 100},
		{MovementType: MovementTypeTransferOut, Direction: DirectionDecrease, Quantity: 30},
		{MovementType: MovementTypeAdjustment, Direction: DirectionDecrease, Quantity: 5},
		{MovementType: MovementTypeAdjustment, Direction: DirectionIncrease, Quantity: 2},
		{MovementType: MovementTypeTransferIn, Direction: DirectionIncrease, Quantity: 8},
		{MovementType: MovementTypeOut, Direction: DirectionDecrease, Quantity: 10},
	}

	assert.Equal(t, int64(65), SumSigned(entries))
	assert.Equal(t, int64(0), SumSigned(nil))
}
