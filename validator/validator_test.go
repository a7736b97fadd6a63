package validator

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/wyfcoding/cosmethod/xerrors"
)

type params struct {
	Vol  float64 `validate:"gt=0,finite"`
	Skew float64 `validate:"finite"`
}

func TestStruct(t *testing.T) {
	assert.NoError(t, Struct(params{Vol: 0.2, Skew: -1}, xerrors.ErrInvalidParameter))

	err := Struct(params{Vol: 0.2, Skew: math.NaN()}, xerrors.ErrInvalidParameter)
	assert.True(t, errors.Is(err, xerrors.ErrInvalidParameter))
	e, _ := xerrors.FromError(err)
	assert.Contains(t, e.Detail, "params.Skew")

	err = Struct(params{Vol: -1, Skew: math.Inf(1)}, xerrors.ErrInvalidParameter)
	e, _ = xerrors.FromError(err)
	assert.Contains(t, e.Detail, "params.Vol")
	assert.Contains(t, e.Detail, "params.Skew")
}

func TestFiniteHelpers(t *testing.T) {
	assert.True(t, IsFinite(1, -2, 0))
	assert.False(t, IsFinite(1, math.NaN()))
	assert.True(t, IsPositive(1, 2))
	assert.False(t, IsPositive(1, 0))
	assert.False(t, IsPositive(math.Inf(1)))
	assert.True(t, IsPositive())
}
