package orders

import (
	"math"
	"testing"

	"github.com/ariefcatur/go-realtime-points/internal/apperr"
	"github.com/stretchr/testify/require"
)

func TestPriceOrder(t *testing.T) {
	catalog := map[int64]StockLine{
		1: {Price: 150, Stock: 2},
		2: {Price: 40, Unlimited: true},
	}

	t.Run("totals from catalog prices", func(t *testing.T) {
		total, err := PriceOrder(catalog, []ItemInput{{ProductID: 1, Quantity: 1}, {ProductID: 2, Quantity: 3}})

		require.NoError(t, err)
		require.Equal(t, int64(270), total)
	})

	t.Run("repeated product counts against stock once", func(t *testing.T) {
		_, err := PriceOrder(catalog, []ItemInput{{ProductID: 1, Quantity: 2}, {ProductID: 1, Quantity: 1}})

		require.ErrorIs(t, err, apperr.ErrValidation)
	})

	t.Run("unlimited ignores stock", func(t *testing.T) {
		_, err := PriceOrder(catalog, []ItemInput{{ProductID: 2, Quantity: 1000}})

		require.NoError(t, err)
	})

	t.Run("unknown product", func(t *testing.T) {
		_, err := PriceOrder(catalog, []ItemInput{{ProductID: 9, Quantity: 1}})

		require.ErrorIs(t, err, apperr.ErrNotFound)
	})

	t.Run("non positive quantity", func(t *testing.T) {
		_, err := PriceOrder(catalog, []ItemInput{{ProductID: 1, Quantity: 0}})

		require.ErrorIs(t, err, apperr.ErrValidation)
	})

	t.Run("empty order", func(t *testing.T) {
		_, err := PriceOrder(catalog, nil)

		require.ErrorIs(t, err, apperr.ErrValidation)
	})

	t.Run("quantity above the line cap", func(t *testing.T) {
		_, err := PriceOrder(catalog, []ItemInput{{ProductID: 2, Quantity: MaxQuantity + 1}})

		require.ErrorIs(t, err, apperr.ErrValidation)
	})

	t.Run("total that would overflow is rejected", func(t *testing.T) {
		// Given an unlimited product priced so a capped quantity overflows int64
		huge := map[int64]StockLine{7: {Price: math.MaxInt64 / 2, Unlimited: true}}

		// When ordering three of it
		total, err := PriceOrder(huge, []ItemInput{{ProductID: 7, Quantity: 3}})

		// Then pricing fails instead of wrapping negative
		require.ErrorIs(t, err, apperr.ErrValidation)
		require.Zero(t, total)
	})

	t.Run("overflow across lines is rejected", func(t *testing.T) {
		huge := map[int64]StockLine{
			7: {Price: math.MaxInt64 / 2, Unlimited: true},
			8: {Price: math.MaxInt64 / 2, Unlimited: true},
			9: {Price: 10, Unlimited: true},
		}

		_, err := PriceOrder(huge, []ItemInput{{ProductID: 7, Quantity: 1}, {ProductID: 8, Quantity: 1}, {ProductID: 9, Quantity: 1}})

		require.ErrorIs(t, err, apperr.ErrValidation)
	})
}
