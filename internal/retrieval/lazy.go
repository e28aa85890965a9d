package retrieval

import (
	"context"
	"sync"
	"sync/atomic"
)

// lazy holds a value initialized at most once. Readers take the atomic fast
// path after initialization; the mutex is held only while load runs.
// Errors for which sticky returns true are cached like values; any other
// error leaves the cell empty so the next call runs load again.
type lazy[T any] struct {
	done atomic.Bool
	mu   sync.Mutex
	val  T
	err  error
}

func (l *lazy[T]) get(ctx context.Context, load func(context.Context) (T, error), sticky func(error) bool) (T, error) {
	if l.done.Load() {
		return l.val, l.err
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if l.done.Load() {
		return l.val, l.err
	}

	v, err := load(ctx)
	if err != nil {
		if sticky(err) {
			l.err = err
			l.done.Store(true)
		}
		var zero T
		return zero, err
	}
	l.val = v
	l.done.Store(true)
	return v, nil
}
