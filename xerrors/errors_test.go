package xerrors

import (
	"errors"
	"fmt"
	"net/http"
	"slices"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"google.golang.org/grpc/codes"
)

func TestIsMatchesByCode(t *testing.T) {
	err := ErrDegenerateRange.WithDetail("a=%g b=%g", 1.0, 1.0).WithContext("model", "gbm")
	assert.True(t, errors.Is(err, ErrDegenerateRange))
	assert.False(t, errors.Is(err, ErrNonFiniteResult))

	wrapped := fmt.Errorf("pricing: %w", err)
	assert.True(t, errors.Is(wrapped, ErrDegenerateRange))
	e, ok := FromError(wrapped)
	assert.True(t, ok)
	assert.Equal(t, "gbm", e.Context["model"])
	assert.Contains(t, e.Error(), "a=1 b=1")
}

func TestDerivedErrorsDoNotMutateSentinels(t *testing.T) {
	detail := ErrInvalidInput.Detail
	_ = ErrInvalidInput.WithDetail("changed").WithContext("k", 1)
	assert.Equal(t, detail, ErrInvalidInput.Detail)
	assert.NotContains(t, ErrInvalidInput.Context, "k")
}

//go:noinline
func deriveFirst() *Error { return ErrInvalidInput.WithDetail("first") }

//go:noinline
func deriveSecond() *Error { return ErrInvalidInput.WithDetail("second") }

func TestDerivedErrorsOwnTheirStacks(t *testing.T) {
	sentinel := slices.Clone(ErrInvalidInput.Stack)
	e1 := deriveFirst()
	first := slices.Clone(e1.Stack)
	e2 := deriveSecond()

	assert.Equal(t, first, e1.Stack)
	assert.Equal(t, sentinel, ErrInvalidInput.Stack)
	assert.Contains(t, strings.Join(e1.Stack, "\n"), "deriveFirst")
	assert.NotContains(t, strings.Join(e1.Stack, "\n"), "deriveSecond")
	assert.Contains(t, strings.Join(e2.Stack, "\n"), "deriveSecond")
}

// 并发派生同一哨兵错误，配合 -race 运行。
func TestConcurrentDerivation(t *testing.T) {
	var wg sync.WaitGroup
	errs := make([]*Error, 8)
	for i := range errs {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := range 100 {
				errs[i] = ErrNonFiniteResult.WithDetail("worker %d iteration %d", i, j).WithContext("index", j)
			}
		}()
	}
	wg.Wait()
	for i, e := range errs {
		assert.Equal(t, fmt.Sprintf("worker %d iteration 99", i), e.Detail)
		assert.Equal(t, 99, e.Context["index"])
		assert.NotEmpty(t, e.Stack)
	}
}

func TestProtocolMapping(t *testing.T) {
	assert.Equal(t, http.StatusBadRequest, ErrShapeMismatch.HTTPStatus())
	assert.Equal(t, http.StatusUnprocessableEntity, ErrNonFiniteResult.HTTPStatus())
	assert.Equal(t, http.StatusInternalServerError, Internal("boom", nil).HTTPStatus())

	assert.Equal(t, codes.InvalidArgument, ErrInvalidParameter.GRPCCode())
	assert.Equal(t, codes.FailedPrecondition, ErrNotConverged.GRPCCode())
	assert.Equal(t, codes.FailedPrecondition, ErrNotConverged.ToGRPCStatus().Code())
}

func TestWrap(t *testing.T) {
	assert.Nil(t, Wrap(nil, ErrInternal, "x"))

	base := errors.New("io")
	w := WrapInternal(base, "load failed")
	assert.ErrorIs(t, w, base)
	assert.Equal(t, ErrInternal, w.Type)

	w2 := Wrap(ErrInvalidConfig, ErrInternal, "engine")
	assert.True(t, errors.Is(w2, ErrInvalidConfig))
	assert.Equal(t, "engine", w2.Message)
	assert.NotEmpty(t, w2.Stack)
}
