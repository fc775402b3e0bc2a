package atomkit

import (
	"errors"
	"sync"
)

// atomInit is the tagged initializer union, resolved exactly once at
// first access and never re-inspected.
type atomInit[T any] struct {
	literal    T
	future     *Future[T]
	lazy       func(*InitContext) (T, error)
	lazyFuture func(*InitContext) *Future[T]
}

// Atom is a lazily-initialized mutable reactive cell. It holds exactly
// one of a resolved value, a loading status with an in-flight future,
// or an error, and notifies subscribers on every transition. All
// methods are safe for concurrent use.
type Atom[T any] struct {
	id   uint64
	key  string
	core cellCore[T]

	initMu      sync.Mutex
	initialized bool
	init        atomInit[T]
	hasLazy     bool
	ictx        *InitContext
}

// NewAtom creates an atom initialized with a literal value.
func NewAtom[T any](v T, opts ...AtomOption[T]) *Atom[T] {
	return newAtomWith(atomInit[T]{literal: v}, false, opts)
}

// NewFutureAtom creates an atom that starts loading from f on first
// access.
func NewFutureAtom[T any](f *Future[T], opts ...AtomOption[T]) *Atom[T] {
	if f == nil {
		panic(usagePanic{errors.New("atomkit: NewFutureAtom called with nil future")})
	}
	return newAtomWith(atomInit[T]{future: f}, false, opts)
}

// NewLazyAtom creates an atom whose initial value is produced by fn on
// first access. A non-nil error from fn is captured into the error
// status. fn receives a context carrying a cancellation signal and a
// cleanup registrar; the signal fires when Set or Reset supersedes the
// initialization.
func NewLazyAtom[T any](fn func(*InitContext) (T, error), opts ...AtomOption[T]) *Atom[T] {
	if fn == nil {
		panic(usagePanic{errors.New("atomkit: NewLazyAtom called with nil initializer")})
	}
	return newAtomWith(atomInit[T]{lazy: fn}, true, opts)
}

// NewLazyFutureAtom creates an atom whose initializer returns a future
// to load from, invoked on first access.
func NewLazyFutureAtom[T any](fn func(*InitContext) *Future[T], opts ...AtomOption[T]) *Atom[T] {
	if fn == nil {
		panic(usagePanic{errors.New("atomkit: NewLazyFutureAtom called with nil initializer")})
	}
	return newAtomWith(atomInit[T]{lazyFuture: fn}, true, opts)
}

func newAtomWith[T any](init atomInit[T], hasLazy bool, opts []AtomOption[T]) *Atom[T] {
	cfg := buildConfig(opts)
	a := newAtomCore(init, hasLazy, cfg)
	notifyCreated(KindMutable, cfg.key, cfg.meta, a)
	return a
}

// newAtomCore builds an atom without registering it with the creation
// observer. Events and pools own internal atoms that register under
// their own cell kind instead.
func newAtomCore[T any](init atomInit[T], hasLazy bool, cfg atomConfig[T]) *Atom[T] {
	a := &Atom[T]{
		id:      nextID(),
		key:     cfg.key,
		init:    init,
		hasLazy: hasLazy,
	}
	a.core = newCellCore(cfg.equals, cfg.fallback)
	return a
}

// ensureInit runs the initializer on first access. Initialization
// results apply through the version guard, so a write that lands while
// a slow initializer is still running wins.
func (a *Atom[T]) ensureInit() {
	a.initMu.Lock()
	if a.initialized {
		a.initMu.Unlock()
		return
	}
	a.initialized = true
	init := a.init
	var ictx *InitContext
	if a.hasLazy {
		ictx = newInitContext()
		a.ictx = ictx
	}
	a.initMu.Unlock()

	switch {
	case init.future != nil:
		a.adoptFuture(init.future, true, false)
	case init.lazy != nil:
		captured := a.core.currentVersion()
		v, err := init.lazy(ictx)
		if err != nil {
			a.core.rejectIfCurrent(captured, err)
		} else {
			a.core.resolveIfCurrent(captured, v, false)
		}
	case init.lazyFuture != nil:
		f := init.lazyFuture(ictx)
		if f == nil {
			panic(usagePanic{errors.New("atomkit: lazy initializer returned a nil future")})
		}
		a.adoptFuture(f, true, false)
	default:
		a.core.setValue(init.literal, true, false)
	}
}

// claimInit marks the atom initialized without running the
// initializer. A write to a never-accessed lazy atom supersedes the
// initializer entirely.
func (a *Atom[T]) claimInit() {
	a.initMu.Lock()
	a.initialized = true
	a.initMu.Unlock()
}

// invalidateInit cancels the current init context and runs its
// cleanups in registration order. With uninitialize set, the next
// access re-runs the initializer with a fresh context.
func (a *Atom[T]) invalidateInit(uninitialize bool) {
	a.initMu.Lock()
	ictx := a.ictx
	a.ictx = nil
	if uninitialize {
		a.initialized = false
	}
	a.initMu.Unlock()
	if ictx != nil {
		ictx.cancel()
		ictx.runCleanups()
	}
}

// adoptFuture moves the cell into loading on f and applies f's
// settlement only if the cell has not moved on by then.
func (a *Atom[T]) adoptFuture(f *Future[T], silentLoading, markDirty bool) {
	captured := a.core.setLoading(f, silentLoading)
	f.OnSettle(func(v T, err error) {
		if err != nil {
			a.core.rejectIfCurrent(captured, err)
		} else {
			a.core.resolveIfCurrent(captured, v, markDirty)
		}
	})
}

// Set writes a literal value and marks the cell dirty. A value equal
// to the current resolved value under the configured equality is a
// no-op with no version bump and no notification. Set cancels any
// outstanding lazy initialization.
func (a *Atom[T]) Set(v T) {
	a.claimInit()
	a.invalidateInit(false)
	a.core.setValue(v, false, true)
}

// SetFuture puts the cell into loading on f; the eventual settlement
// applies only if no newer write has landed in the meantime.
func (a *Atom[T]) SetFuture(f *Future[T]) {
	if f == nil {
		panic(usagePanic{errors.New("atomkit: SetFuture called with nil future")})
	}
	a.claimInit()
	a.invalidateInit(false)
	a.adoptFuture(f, false, true)
}

// Update applies a reducer to the previously resolved value. While the
// cell is loading, the reducer is chained onto the pending future
// instead of applied immediately. A non-nil error from the reducer is
// captured into the error status, never propagated to the caller.
func (a *Atom[T]) Update(fn func(T) (T, error)) {
	if fn == nil {
		panic(usagePanic{errors.New("atomkit: Update called with nil reducer")})
	}
	a.ensureInit()
	a.invalidateInit(false)
	if f := a.core.currentFuture(); f != nil {
		a.adoptFuture(mapFuture(f, fn), false, true)
		return
	}
	v, err := fn(a.core.getValue())
	if err != nil {
		a.core.setError(err, false)
		return
	}
	a.core.setValue(v, false, true)
}

// Reset restores the initial status: value, error, last-resolved memo
// and dirty flag are cleared, the init context is cancelled with its
// cleanups run, and the next access re-runs the initializer from
// scratch.
func (a *Atom[T]) Reset() {
	a.invalidateInit(true)
	a.core.reset()
}

// Value returns the resolved value. During loading or error it serves
// the last-resolved value, then the configured fallback, and otherwise
// the zero value. Triggers lazy initialization.
func (a *Atom[T]) Value() T {
	a.ensureInit()
	return a.core.getValue()
}

// Loading reports whether the cell is waiting on a future.
func (a *Atom[T]) Loading() bool {
	a.ensureInit()
	return a.core.isLoading()
}

// Err returns the current error status, nil outside the error status.
func (a *Atom[T]) Err() error {
	a.ensureInit()
	return a.core.getErr()
}

// Stale reports that Value is serving the fallback or a last-known
// value. Always false unless a fallback was configured.
func (a *Atom[T]) Stale() bool {
	a.ensureInit()
	return a.core.stale()
}

// Dirty reports whether an explicit write has landed since creation or
// the last Reset.
func (a *Atom[T]) Dirty() bool {
	a.ensureInit()
	return a.core.isDirty()
}

// State returns a tagged snapshot of the cell.
func (a *Atom[T]) State() CellState[T] {
	a.ensureInit()
	return a.core.state()
}

// Future converts the cell to its deferred form: the in-flight future
// while loading, an already-resolved future when resolved, a rejected
// one in error.
func (a *Atom[T]) Future() *Future[T] {
	a.ensureInit()
	a.core.mu.Lock()
	loading, err, value, f := a.core.loading, a.core.err, a.core.value, a.core.future
	a.core.mu.Unlock()
	switch {
	case loading:
		return f
	case err != nil:
		return RejectedFuture[T](err)
	default:
		return ResolvedFuture(value)
	}
}

// On subscribes to state transitions. The listener receives a snapshot
// per notification. The returned unsubscribe is idempotent.
func (a *Atom[T]) On(fn func(CellState[T])) func() {
	a.ensureInit()
	return a.core.watchers.On(func(struct{}) {
		fn(a.core.state())
	})
}

// Key returns the debug key configured with WithKey.
func (a *Atom[T]) Key() string { return a.key }

func (a *Atom[T]) cellID() uint64 { return a.id }

// observe registers a bare change listener under an explicit listener
// identity, letting one downstream cell deduplicate notifications from
// many dependencies through the scheduler hook.
func (a *Atom[T]) observe(listenerID uint64, fn func()) func() {
	a.ensureInit()
	return a.core.watchers.onAs(nextID(), listenerID, func(struct{}) { fn() })
}

func (a *Atom[T]) selectionRead() selected[T] {
	a.ensureInit()
	return a.core.selectionRead()
}

// dispose cancels the init context and runs cleanups. Used by pools
// when an entry is removed or evicted.
func (a *Atom[T]) dispose() {
	a.invalidateInit(false)
}

// valueIfInitialized reads without triggering lazy initialization.
func (a *Atom[T]) valueIfInitialized() (T, bool) {
	a.initMu.Lock()
	inited := a.initialized
	a.initMu.Unlock()
	if !inited {
		var zero T
		return zero, false
	}
	return a.core.getValue(), true
}

// loadingNoInit reports an in-flight load without triggering lazy
// initialization. Pools consult this at eviction-timer fire time.
func (a *Atom[T]) loadingNoInit() bool {
	a.initMu.Lock()
	inited := a.initialized
	a.initMu.Unlock()
	return inited && a.core.isLoading()
}
