package atomkit

import "sync"

// Emitter is an ordered pub/sub primitive. Listener registration order
// is preserved; fan-out is FIFO in registration order by default, with
// an explicit LIFO variant for cleanup-style dispatch. An emitter may
// be settled with a final payload, after which the payload is frozen
// and replayed to every future subscriber.
type Emitter[T any] struct {
	mu      sync.Mutex
	entries []emitterEntry[T]
	settled bool
	final   T
}

type emitterEntry[T any] struct {
	// subID identifies the subscription for removal.
	subID uint64
	// listenerID identifies the logical listener for notification
	// scheduling and deduplication. Usually equal to subID, but cells
	// that subscribe to many sources reuse one listener ID across all
	// of their subscriptions.
	listenerID uint64
	fn         func(T)
}

// NewEmitter returns an empty emitter.
func NewEmitter[T any]() *Emitter[T] {
	return &Emitter[T]{}
}

// On registers a listener and returns an idempotent unsubscribe
// function. If the emitter has already settled, the final payload is
// replayed to fn immediately and no registration occurs.
func (e *Emitter[T]) On(fn func(T)) func() {
	id := nextID()
	return e.onAs(id, id, fn)
}

// onAs registers a listener under an explicit listener identity.
func (e *Emitter[T]) onAs(subID, listenerID uint64, fn func(T)) func() {
	e.mu.Lock()
	if e.settled {
		v := e.final
		e.mu.Unlock()
		fn(v)
		return func() {}
	}
	e.entries = append(e.entries, emitterEntry[T]{subID: subID, listenerID: listenerID, fn: fn})
	e.mu.Unlock()

	return func() {
		e.mu.Lock()
		defer e.mu.Unlock()
		for i, entry := range e.entries {
			if entry.subID == subID {
				// Preserve registration order for the remaining listeners.
				e.entries = append(e.entries[:i:i], e.entries[i+1:]...)
				return
			}
		}
	}
}

// Emit fans out v to all listeners in registration order. Emitting on a
// settled emitter is a no-op.
func (e *Emitter[T]) Emit(v T) {
	for _, entry := range e.snapshot() {
		entry.fn(v)
	}
}

// EmitLIFO fans out v in reverse registration order.
func (e *Emitter[T]) EmitLIFO(v T) {
	entries := e.snapshot()
	for i := len(entries) - 1; i >= 0; i-- {
		entries[i].fn(v)
	}
}

// Dispatch hands each listener to deliver along with its listener ID,
// letting the caller route the notification through a scheduler. The
// listener set is snapshotted before delivery begins.
func (e *Emitter[T]) Dispatch(v T, deliver func(listenerID uint64, notify func())) {
	for _, entry := range e.snapshot() {
		fn := entry.fn
		deliver(entry.listenerID, func() { fn(v) })
	}
}

// Settle emits v to all current listeners, then freezes v as the final
// payload: future subscribers receive it immediately, and all further
// Emit/Settle calls are no-ops.
func (e *Emitter[T]) Settle(v T) {
	e.mu.Lock()
	if e.settled {
		e.mu.Unlock()
		return
	}
	e.settled = true
	e.final = v
	entries := e.entries
	e.entries = nil
	e.mu.Unlock()

	for _, entry := range entries {
		entry.fn(v)
	}
}

// Settled reports whether a final payload has been frozen.
func (e *Emitter[T]) Settled() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.settled
}

// Len returns the number of registered listeners.
func (e *Emitter[T]) Len() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.entries)
}

func (e *Emitter[T]) snapshot() []emitterEntry[T] {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.settled || len(e.entries) == 0 {
		return nil
	}
	out := make([]emitterEntry[T], len(e.entries))
	copy(out, e.entries)
	return out
}
