package async

import (
	"errors"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestForEachRunsAll(t *testing.T) {
	var sum atomic.Int64
	require.NoError(t, ForEach(100, 4, nil, func(i int) error {
		sum.Add(int64(i))
		return nil
	}))
	assert.Equal(t, int64(4950), sum.Load())
	assert.NoError(t, ForEach(0, 4, nil, func(int) error { return errors.New("never") }))
}

func TestForEachLimitsConcurrency(t *testing.T) {
	var running, peak atomic.Int32
	require.NoError(t, ForEach(64, 3, nil, func(int) error {
		n := running.Add(1)
		for {
			p := peak.Load()
			if n <= p || peak.CompareAndSwap(p, n) {
				break
			}
		}
		running.Add(-1)
		return nil
	}))
	assert.LessOrEqual(t, peak.Load(), int32(3))
}

func TestForEachReturnsError(t *testing.T) {
	boom := errors.New("boom")
	err := ForEach(10, 2, nil, func(i int) error {
		if i == 7 {
			return boom
		}
		return nil
	})
	assert.ErrorIs(t, err, boom)

	err = ForEach(3, 1, nil, func(i int) error {
		if i == 1 {
			return boom
		}
		return nil
	})
	assert.ErrorIs(t, err, boom)
}

func TestRunGroupRecoversPanic(t *testing.T) {
	g := NewRunGroup(2, nil)
	g.Go(func() error { return nil })
	g.Go(func() error { panic("bad coefficient") })
	err := g.Wait()
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrPanicRecovered)
	assert.Contains(t, err.Error(), "bad coefficient")
}
