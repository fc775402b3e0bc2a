package atomkit

import "sync"

// InitContext is handed to lazy initializers and pool factories. It
// carries a cancellation signal that fires when the initialization is
// superseded (a newer write landed first) or the owning cell is
// disposed, and collects cleanup callbacks to run at disposal.
type InitContext struct {
	mu       sync.Mutex
	canceled bool
	done     chan struct{}
	cleanups []func()
}

func newInitContext() *InitContext {
	return &InitContext{done: make(chan struct{})}
}

// Canceled reports whether the initialization has been abandoned.
// Long-running initializers should poll this (or select on Done) and
// bail out early.
func (ic *InitContext) Canceled() bool {
	ic.mu.Lock()
	defer ic.mu.Unlock()
	return ic.canceled
}

// Done returns a channel closed on cancellation, for use in select
// statements.
func (ic *InitContext) Done() <-chan struct{} {
	return ic.done
}

// OnCleanup registers a callback to run when the owning cell is
// disposed. Callbacks run in registration order.
func (ic *InitContext) OnCleanup(fn func()) {
	if fn == nil {
		return
	}
	ic.mu.Lock()
	defer ic.mu.Unlock()
	ic.cleanups = append(ic.cleanups, fn)
}

func (ic *InitContext) cancel() {
	ic.mu.Lock()
	if ic.canceled {
		ic.mu.Unlock()
		return
	}
	ic.canceled = true
	close(ic.done)
	ic.mu.Unlock()
}

func (ic *InitContext) runCleanups() {
	ic.mu.Lock()
	fns := ic.cleanups
	ic.cleanups = nil
	ic.mu.Unlock()
	for _, fn := range fns {
		fn()
	}
}
