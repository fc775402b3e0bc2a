package atomkit

import "sync"

// futureCache memoizes the settle-state of every tracked deferred
// value, keyed by future identity. It is the only process-wide mutable
// structure in the engine, and it is append-only per key: an entry only
// ever transitions pending to settled, exactly once. The memo is what
// lets a selection read a future's outcome synchronously.
var futureCache sync.Map // uint64 -> *futureCacheEntry

type futureCacheEntry struct {
	mu     sync.Mutex
	status SettleStatus
	value  any
	err    error
}

func (e *futureCacheEntry) snapshot() (SettleStatus, any, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.status, e.value, e.err
}

func (e *futureCacheEntry) settle(value any, err error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.status != Pending {
		return
	}
	if err != nil {
		e.status = Rejected
		e.err = err
	} else {
		e.status = Fulfilled
		e.value = value
	}
}

// Track registers d with the future cache, attaching its settle
// continuation exactly once per distinct future identity; repeated
// calls return the memoized state without creating duplicate
// continuations. It returns the currently known settle-state.
func Track(d Deferred) (SettleStatus, any, error) {
	return trackFuture(d).snapshot()
}

func trackFuture(d Deferred) *futureCacheEntry {
	if cached, ok := futureCache.Load(d.futureID()); ok {
		return cached.(*futureCacheEntry)
	}
	entry := &futureCacheEntry{}
	if status, value, err := d.settleState(); status != Pending {
		entry.status = status
		entry.value = value
		entry.err = err
	}
	actual, loaded := futureCache.LoadOrStore(d.futureID(), entry)
	cached := actual.(*futureCacheEntry)
	if !loaded {
		d.subscribeSettle(cached.settle)
	}
	return cached
}

// Unwrap resolves v synchronously. A non-deferred value is returned
// as-is. A tracked fulfilled future yields its value; a rejected one
// yields its error; a pending one yields itself as the third return,
// signaling that the caller must suspend until it settles.
func Unwrap(v any) (value any, err error, pending Deferred) {
	d, ok := v.(Deferred)
	if !ok {
		return v, nil, nil
	}
	status, val, serr := Track(d)
	switch status {
	case Fulfilled:
		return val, nil, nil
	case Rejected:
		return nil, serr, nil
	default:
		return nil, nil, d
	}
}
