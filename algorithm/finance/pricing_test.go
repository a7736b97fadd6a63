package finance

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wyfcoding/cosmethod/algorithm/types"
	"github.com/wyfcoding/cosmethod/xerrors"
)

func TestBlackScholes(t *testing.T) {
	call, err := BlackScholes(types.OptionTypeCall, 100, 100, 1, 0.05, 0.2, 0)
	require.NoError(t, err)
	assert.InDelta(t, 10.450583572185565, call, 1e-10)

	put, err := BlackScholes(types.OptionTypePut, 100, 100, 1, 0.05, 0.2, 0)
	require.NoError(t, err)
	assert.InDelta(t, 5.573526022256971, put, 1e-10)

	_, err = BlackScholes(types.OptionTypeCall, 100, 100, 0, 0.05, 0.2, 0)
	assert.True(t, errors.Is(err, xerrors.ErrInvalidInput))
	_, err = BlackScholes("STRADDLE", 100, 100, 1, 0.05, 0.2, 0)
	assert.True(t, errors.Is(err, xerrors.ErrInvalidOptionType))
}

func TestImpliedVolatilityRoundTrip(t *testing.T) {
	for _, typ := range []types.OptionType{types.OptionTypeCall, types.OptionTypePut} {
		for _, k := range []float64{80, 100, 125} {
			for _, vol := range []float64{0.1, 0.2, 0.8} {
				p, err := BlackScholes(typ, 100, k, 0.75, 0.03, vol, 0.01)
				require.NoError(t, err)
				iv, err := ImpliedVolatility(typ, 100, k, 0.75, 0.03, 0.01, p)
				require.NoError(t, err, "%s K=%g vol=%g", typ, k, vol)
				assert.InDelta(t, vol, iv, 1e-6, "%s K=%g vol=%g", typ, k, vol)
			}
		}
	}
}

func TestImpliedVolatilityBounds(t *testing.T) {
	_, err := ImpliedVolatility(types.OptionTypeCall, 100, 100, 1, 0, 0, 0)
	assert.True(t, errors.Is(err, xerrors.ErrInvalidInput))
	_, err = ImpliedVolatility(types.OptionTypeCall, 100, 100, 1, 0, 0, 101)
	assert.True(t, errors.Is(err, xerrors.ErrInvalidInput))
	_, err = ImpliedVolatility("X", 100, 100, 1, 0, 0, 5)
	assert.True(t, errors.Is(err, xerrors.ErrInvalidOptionType))
}

func TestBlackScholesCalculator(t *testing.T) {
	calc := NewBlackScholesCalculator()
	d := decimal.NewFromFloat
	price, err := calc.CalculatePrice(types.OptionTypeCall, d(100), d(100), d(1), d(0.05), d(0.2), decimal.Zero)
	require.NoError(t, err)
	assert.Equal(t, "10.4506", price.StringFixed(4))

	iv, err := calc.CalculateImpliedVolatility(types.OptionTypeCall, d(100), d(100), d(1), d(0.05), decimal.Zero, price)
	require.NoError(t, err)
	assert.Equal(t, "0.2000", iv.StringFixed(4))
}
