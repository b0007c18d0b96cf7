package resource

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLazyInitializesOnce(t *testing.T) {
	var calls atomic.Int32
	l := NewLazy(func(context.Context) (*int, error) {
		calls.Add(1)
		v := 42
		return &v, nil
	}, nil)

	var wg sync.WaitGroup
	results := make([]*int, 16)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			v, err := l.Get(context.Background())
			assert.NoError(t, err)
			results[i] = v
		}(i)
	}
	wg.Wait()

	assert.Equal(t, int32(1), calls.Load())
	for _, r := range results {
		assert.Same(t, results[0], r)
	}
	assert.True(t, l.Ready())
}

func TestLazyRetriesAfterFailure(t *testing.T) {
	attempt := 0
	l := NewLazy(func(context.Context) (string, error) {
		attempt++
		if attempt == 1 {
			return "", errors.New("dial failed")
		}
		return "conn", nil
	}, nil)

	_, err := l.Get(context.Background())
	require.Error(t, err)
	assert.False(t, l.Ready())

	v, err := l.Get(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "conn", v)
}

func TestLazyClose(t *testing.T) {
	closed := ""
	l := NewLazy(func(context.Context) (string, error) { return "pool", nil },
		func(v string) error { closed = v; return nil })

	require.NoError(t, l.Close())
	assert.Empty(t, closed, "close must not create the value")

	l2 := NewLazy(func(context.Context) (string, error) { return "pool", nil },
		func(v string) error { closed = v; return nil })
	_, err := l2.Get(context.Background())
	require.NoError(t, err)
	require.NoError(t, l2.Close())
	assert.Equal(t, "pool", closed)

	_, err = l2.Get(context.Background())
	assert.ErrorIs(t, err, ErrClosed)
}
