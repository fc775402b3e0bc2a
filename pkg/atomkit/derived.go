package atomkit

import (
	"errors"
	"sync"
)

// Derived is a read-only cell whose value is produced by running a
// computation inside a selection. It subscribes to exactly the
// dependencies the last run read, so atoms behind an untaken branch
// cannot trigger recomputation. Recomputations superseded by a newer
// state transition are discarded through the version counter.
type Derived[T any] struct {
	id      uint64
	key     string
	compute func(*Ctx) T
	core    cellCore[T]

	// computeMu serializes recomputations so two concurrent triggers
	// cannot interleave dependency rewiring.
	computeMu sync.Mutex

	mu      sync.Mutex
	started bool
	queued  bool
	unsubs  map[uint64]func()
	// wait is the single outstanding future exposed while loading,
	// resolved by the first computation that lands a value. Reused
	// across consecutive pending computes so concurrent recomputations
	// never create a second orphaned future.
	wait *Future[T]
}

// NewDerived creates a derived atom around compute. The computation
// runs lazily on first access and again on every notification from a
// currently-subscribed dependency.
func NewDerived[T any](compute func(*Ctx) T, opts ...AtomOption[T]) *Derived[T] {
	if compute == nil {
		panic(usagePanic{errors.New("atomkit: NewDerived called with nil computation")})
	}
	cfg := buildConfig(opts)
	d := &Derived[T]{
		id:      nextID(),
		key:     cfg.key,
		compute: compute,
		unsubs:  make(map[uint64]func()),
	}
	d.core = newCellCore(cfg.equals, cfg.fallback)
	notifyCreated(KindDerived, cfg.key, cfg.meta, d)
	return d
}

func (d *Derived[T]) ensureStarted() {
	d.mu.Lock()
	if d.started {
		d.mu.Unlock()
		return
	}
	d.started = true
	d.mu.Unlock()
	d.recompute()
}

func (d *Derived[T]) onDepChange() {
	d.recompute()
}

// recompute runs compute passes until no further trigger is queued.
// Dependency notifications raised while a pass is running (a lazy
// dependency re-initializing inside Get, a settled future replaying
// its continuation) land as a queued flag instead of re-entering the
// compute lock, so a notification produced by the pass itself cannot
// deadlock the running goroutine.
func (d *Derived[T]) recompute() {
	d.mu.Lock()
	d.queued = true
	d.mu.Unlock()
	if !d.computeMu.TryLock() {
		// the in-flight run observes the flag and loops
		return
	}

	// Retry subscriptions run after computeMu is released: an
	// already-settled deferred replays its continuation synchronously,
	// which would otherwise re-enter recompute under the lock.
	var retries []func()
	for {
		d.mu.Lock()
		if !d.queued {
			// released under mu so a trigger racing this check either
			// lands on the flag before it or wins the lock itself
			d.computeMu.Unlock()
			d.mu.Unlock()
			break
		}
		d.queued = false
		d.mu.Unlock()

		res := runSelection(d.compute)
		d.syncDeps(res.deps)
		switch {
		case res.pending != nil:
			if retry := d.enterLoading(res.pending); retry != nil {
				retries = append(retries, retry)
			}
		case res.err != nil:
			d.fail(res.err)
		case len(res.staleDeps) > 0:
			retries = append(retries, d.enterStale(res.value, res.staleDeps))
		default:
			d.settle(res.value)
		}
	}

	for _, retry := range retries {
		retry()
	}
}

// syncDeps diffs the freshly observed dependency set against the
// previous one, unsubscribing from dropped cells and subscribing to
// newly-read ones under this cell's listener identity.
func (d *Derived[T]) syncDeps(deps []Observable) {
	d.mu.Lock()
	dropped := d.unsubs
	next := make(map[uint64]func(), len(deps))
	var added []Observable
	for _, dep := range deps {
		id := dep.cellID()
		if u, ok := dropped[id]; ok {
			next[id] = u
			delete(dropped, id)
		} else {
			added = append(added, dep)
		}
	}
	d.unsubs = next
	d.mu.Unlock()

	for _, u := range dropped {
		u()
	}
	for _, dep := range added {
		u := dep.observe(d.id, d.onDepChange)
		d.mu.Lock()
		d.unsubs[dep.cellID()] = u
		d.mu.Unlock()
	}
}

func (d *Derived[T]) waitFuture() *Future[T] {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.wait == nil {
		d.wait = NewFuture[T]()
	}
	return d.wait
}

// enterLoading moves the cell into loading on the outstanding wait
// future and retries once the pending dependency settles, unless a
// newer transition has landed by then. Entering loading always
// notifies: downstream cells depend on loading transitions
// propagating, not just final values.
func (d *Derived[T]) enterLoading(pending Deferred) func() {
	ver := d.core.setLoading(d.waitFuture(), false)
	if pending.futureID() == neverSettles.futureID() {
		// nothing settles here; only a dependency notification can
		// resume the computation
		return nil
	}
	return func() {
		pending.subscribeSettle(func(any, error) {
			if d.core.isCurrent(ver) {
				d.recompute()
			}
		})
	}
}

// enterStale records a value computed from fallback-substituted inputs
// as the served stale value, stays in loading, and recomputes once any
// of those inputs settles.
func (d *Derived[T]) enterStale(v T, staleDeps []Deferred) func() {
	ver := d.core.setLoadingStale(d.waitFuture(), v)
	return func() {
		whenAnySettles(staleDeps).subscribeSettle(func(any, error) {
			if d.core.isCurrent(ver) {
				d.recompute()
			}
		})
	}
}

func (d *Derived[T]) settle(v T) {
	d.mu.Lock()
	wait := d.wait
	d.wait = nil
	d.mu.Unlock()
	d.core.setValue(v, false, false)
	if wait != nil {
		wait.Resolve(v)
	}
}

func (d *Derived[T]) fail(err error) {
	d.mu.Lock()
	wait := d.wait
	d.wait = nil
	d.mu.Unlock()
	d.core.setError(err, false)
	if wait != nil {
		wait.Reject(err)
	}
}

// Refresh forces a recomputation regardless of dependency activity.
func (d *Derived[T]) Refresh() {
	d.mu.Lock()
	d.started = true
	d.mu.Unlock()
	d.recompute()
}

// Value returns the computed value, serving the stale value while
// revalidating. Triggers the first computation.
func (d *Derived[T]) Value() T {
	d.ensureStarted()
	return d.core.getValue()
}

// Loading reports an in-progress computation awaiting a dependency.
func (d *Derived[T]) Loading() bool {
	d.ensureStarted()
	return d.core.isLoading()
}

// Err returns the current error status, nil outside the error status.
func (d *Derived[T]) Err() error {
	d.ensureStarted()
	return d.core.getErr()
}

// Stale reports that Value serves a fallback or not-yet-revalidated
// value.
func (d *Derived[T]) Stale() bool {
	d.ensureStarted()
	return d.core.stale()
}

// State returns a tagged snapshot of the cell.
func (d *Derived[T]) State() CellState[T] {
	d.ensureStarted()
	return d.core.state()
}

// Future converts the cell to its deferred form: the outstanding wait
// future while loading, otherwise an already-settled future.
func (d *Derived[T]) Future() *Future[T] {
	d.ensureStarted()
	d.core.mu.Lock()
	loading, err, value, f := d.core.loading, d.core.err, d.core.value, d.core.future
	d.core.mu.Unlock()
	switch {
	case loading:
		return f
	case err != nil:
		return RejectedFuture[T](err)
	default:
		return ResolvedFuture(value)
	}
}

// On subscribes to state transitions, including entering loading. The
// returned unsubscribe is idempotent.
func (d *Derived[T]) On(fn func(CellState[T])) func() {
	d.ensureStarted()
	return d.core.watchers.On(func(struct{}) {
		fn(d.core.state())
	})
}

// Key returns the debug key configured with WithKey.
func (d *Derived[T]) Key() string { return d.key }

func (d *Derived[T]) cellID() uint64 { return d.id }

func (d *Derived[T]) observe(listenerID uint64, fn func()) func() {
	d.ensureStarted()
	return d.core.watchers.onAs(nextID(), listenerID, func(struct{}) { fn() })
}

func (d *Derived[T]) selectionRead() selected[T] {
	d.ensureStarted()
	return d.core.selectionRead()
}

var (
	_ Readable[int] = (*Atom[int])(nil)
	_ Readable[int] = (*Derived[int])(nil)
)
