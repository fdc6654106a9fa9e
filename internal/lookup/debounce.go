package lookup

import (
	"context"
	"errors"
	"sync"
	"time"
)

// DefaultDebounce is the typeahead quiet period.
const DefaultDebounce = 500 * time.Millisecond

// ErrSuperseded is returned to a call replaced by a newer one for the same key.
var ErrSuperseded = errors.New("lookup: superseded by a newer query")

// Debouncer lets only the last of a burst of calls per key proceed. Each new
// call for a key cancels the one still waiting.
type Debouncer struct {
	Window time.Duration

	mu      sync.Mutex
	pending map[string]*waiter
}

type waiter struct {
	cancelled chan struct{}
}

// NewDebouncer returns a Debouncer with the given window; non-positive
// windows disable debouncing.
func NewDebouncer(window time.Duration) *Debouncer {
	return &Debouncer{Window: window}
}

// Wait blocks for the window and returns nil if no newer call for key arrived
// meanwhile, ErrSuperseded if one did, or the context error.
func (d *Debouncer) Wait(ctx context.Context, key string) error {
	if d == nil || d.Window <= 0 {
		return nil
	}
	w := &waiter{cancelled: make(chan struct{})}
	d.mu.Lock()
	if d.pending == nil {
		d.pending = make(map[string]*waiter)
	}
	if prev, ok := d.pending[key]; ok {
		close(prev.cancelled)
	}
	d.pending[key] = w
	d.mu.Unlock()

	timer := time.NewTimer(d.Window)
	defer timer.Stop()
	select {
	case <-w.cancelled:
		return ErrSuperseded
	case <-ctx.Done():
		d.release(key, w)
		return ctx.Err()
	case <-timer.C:
		if !d.release(key, w) {
			return ErrSuperseded
		}
		return nil
	}
}

// release drops w if it is still the current waiter for key.
func (d *Debouncer) release(key string, w *waiter) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.pending[key] != w {
		return false
	}
	delete(d.pending, key)
	return true
}
