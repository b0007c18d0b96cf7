// Package resource provides explicit initialize-once accessors for
// process-wide clients such as the Redis client and the Postgres pool.
package resource

import (
	"context"
	"errors"
	"sync"
)

var ErrClosed = errors.New("resource closed")

// Lazy creates a value on first use and hands the same value to every later
// caller. A failed init is not cached; the next Get retries it.
type Lazy[T any] struct {
	mu     sync.Mutex
	init   func(ctx context.Context) (T, error)
	close  func(T) error
	value  T
	ready  bool
	closed bool
}

// NewLazy returns an accessor around init. closeFn, if non-nil, releases the
// value on Close.
func NewLazy[T any](init func(ctx context.Context) (T, error), closeFn func(T) error) *Lazy[T] {
	return &Lazy[T]{init: init, close: closeFn}
}

// Get returns the value, initializing it if needed. Concurrent callers
// block until the first initialization finishes.
func (l *Lazy[T]) Get(ctx context.Context) (T, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	var zero T
	if l.closed {
		return zero, ErrClosed
	}
	if l.ready {
		return l.value, nil
	}

	v, err := l.init(ctx)
	if err != nil {
		return zero, err
	}
	l.value = v
	l.ready = true
	return v, nil
}

// Ready reports whether the value has been created.
func (l *Lazy[T]) Ready() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.ready
}

// Close releases the value if it was created. Later Get calls fail with
// ErrClosed.
func (l *Lazy[T]) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.closed {
		return nil
	}
	l.closed = true
	if !l.ready || l.close == nil {
		return nil
	}
	return l.close(l.value)
}
