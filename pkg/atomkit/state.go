package atomkit

import "sync"

// cellCore is the versioned state shared by mutable and derived cells.
// Exactly one of {resolved value, loading, error} is the active status
// at any instant. The version counter increases by exactly one on every
// state-changing operation and is the sole mechanism for detecting that
// an in-flight asynchronous continuation has been superseded: the
// staleness check and the apply happen inside a single critical
// section.
type cellCore[T any] struct {
	mu       sync.Mutex
	version  uint64
	value    T
	hasValue bool
	loading  bool
	err      error
	// future is the in-flight deferred while loading.
	future *Future[T]
	// last memoizes the most recent resolved value for
	// stale-while-revalidate reads; cleared only by reset.
	last    T
	hasLast bool
	dirty   bool
	// fallback, when configured, is served during loading/error if no
	// resolution has happened yet, and flips stale() on.
	fallback *T
	// staleServe overrides the served value while a derived cell
	// revalidates a result computed from fallback-substituted inputs.
	// Cleared on every other transition.
	staleServe *T
	equals     func(a, b T) bool
	watchers   *Emitter[struct{}]
}

func newCellCore[T any](equals func(a, b T) bool, fallback *T) cellCore[T] {
	if equals == nil {
		equals = EqualsStrict[T]()
	}
	return cellCore[T]{
		equals:   equals,
		fallback: fallback,
		watchers: NewEmitter[struct{}](),
	}
}

func (c *cellCore[T]) notify() {
	c.watchers.Dispatch(struct{}{}, dispatchNotify)
}

// setValue writes a resolved value. It is a no-op when the cell already
// holds a resolved value the equality predicate considers equal: no
// version bump, no notification. markDirty distinguishes explicit
// writes from initialization.
func (c *cellCore[T]) setValue(v T, silent, markDirty bool) bool {
	c.mu.Lock()
	if c.hasValue && !c.loading && c.err == nil && c.equals(c.value, v) {
		c.mu.Unlock()
		return false
	}
	c.applyValueLocked(v, markDirty)
	c.mu.Unlock()
	if !silent {
		c.notify()
	}
	return true
}

func (c *cellCore[T]) applyValueLocked(v T, markDirty bool) {
	c.value = v
	c.hasValue = true
	c.loading = false
	c.err = nil
	c.future = nil
	c.staleServe = nil
	c.last = v
	c.hasLast = true
	if markDirty {
		c.dirty = true
	}
	c.version++
}

// setLoading clears value and error, stores f as the current future,
// and returns the new version for continuations to capture.
func (c *cellCore[T]) setLoading(f *Future[T], silent bool) uint64 {
	c.mu.Lock()
	var zero T
	c.value = zero
	c.hasValue = false
	c.loading = true
	c.err = nil
	c.future = f
	c.staleServe = nil
	c.version++
	v := c.version
	c.mu.Unlock()
	if !silent {
		c.notify()
	}
	return v
}

// setLoadingStale enters loading while continuing to serve v, the
// value just computed from fallback-substituted inputs, as the stale
// value.
func (c *cellCore[T]) setLoadingStale(f *Future[T], v T) uint64 {
	c.mu.Lock()
	var zero T
	c.value = zero
	c.hasValue = false
	c.loading = true
	c.err = nil
	c.future = f
	c.staleServe = &v
	c.version++
	ver := c.version
	c.mu.Unlock()
	c.notify()
	return ver
}

func (c *cellCore[T]) setError(err error, silent bool) uint64 {
	c.mu.Lock()
	var zero T
	c.value = zero
	c.hasValue = false
	c.loading = false
	c.err = err
	c.future = nil
	c.staleServe = nil
	c.version++
	v := c.version
	c.mu.Unlock()
	if !silent {
		c.notify()
	}
	return v
}

// reset restores the empty status, clearing the last-resolved memo and
// the dirty flag. No-op (no version bump, no notification) if already
// at the initial status.
func (c *cellCore[T]) reset() bool {
	c.mu.Lock()
	if !c.hasValue && !c.loading && c.err == nil && !c.hasLast && !c.dirty {
		c.mu.Unlock()
		return false
	}
	var zero T
	c.value = zero
	c.hasValue = false
	c.loading = false
	c.err = nil
	c.future = nil
	c.staleServe = nil
	c.last = zero
	c.hasLast = false
	c.dirty = false
	c.version++
	c.mu.Unlock()
	c.notify()
	return true
}

// resolveIfCurrent applies a resolved value only if the cell's version
// still matches the captured one; a stale continuation is discarded
// without side effects. Check and apply share one critical section.
func (c *cellCore[T]) resolveIfCurrent(captured uint64, v T, markDirty bool) bool {
	c.mu.Lock()
	if c.version != captured {
		c.mu.Unlock()
		return false
	}
	c.applyValueLocked(v, markDirty)
	c.mu.Unlock()
	c.notify()
	return true
}

// rejectIfCurrent routes an asynchronous rejection to the error status
// only if the captured version is still current; stale rejections are
// silently dropped.
func (c *cellCore[T]) rejectIfCurrent(captured uint64, err error) bool {
	c.mu.Lock()
	if c.version != captured {
		c.mu.Unlock()
		return false
	}
	var zero T
	c.value = zero
	c.hasValue = false
	c.loading = false
	c.err = err
	c.future = nil
	c.staleServe = nil
	c.version++
	c.mu.Unlock()
	c.notify()
	return true
}

func (c *cellCore[T]) isCurrent(captured uint64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.version == captured
}

func (c *cellCore[T]) currentVersion() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.version
}

// getValue returns the resolved value, or during loading/error the
// last-resolved value if one exists, then the configured fallback, and
// otherwise the zero value.
func (c *cellCore[T]) getValue() T {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.valueLocked()
}

func (c *cellCore[T]) valueLocked() T {
	if c.loading || c.err != nil {
		if c.staleServe != nil {
			return *c.staleServe
		}
		if c.hasLast {
			return c.last
		}
		if c.fallback != nil {
			return *c.fallback
		}
		var zero T
		return zero
	}
	return c.value
}

func (c *cellCore[T]) isLoading() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.loading
}

func (c *cellCore[T]) getErr() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.err
}

// stale reports that getValue is serving a fallback or last-known value
// rather than a fresh one. True only when a fallback was configured and
// the cell is loading or erroring.
func (c *cellCore[T]) stale() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.staleLocked()
}

func (c *cellCore[T]) staleLocked() bool {
	return (c.fallback != nil || c.staleServe != nil) && (c.loading || c.err != nil)
}

func (c *cellCore[T]) isDirty() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.dirty
}

func (c *cellCore[T]) currentFuture() *Future[T] {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.future
}

// selectionRead classifies the cell for a selection: substitute when
// fallback-bearing (configured fallback or a stale-serving derived),
// suspend when pending, abort when erroring.
func (c *cellCore[T]) selectionRead() selected[T] {
	c.mu.Lock()
	defer c.mu.Unlock()
	fallbackBearing := c.fallback != nil || c.staleServe != nil
	switch {
	case c.loading:
		if fallbackBearing {
			return selected[T]{value: c.valueLocked(), staleDep: c.future}
		}
		return selected[T]{suspend: c.future}
	case c.err != nil:
		if fallbackBearing {
			return selected[T]{value: c.valueLocked()}
		}
		return selected[T]{err: c.err}
	default:
		return selected[T]{value: c.value}
	}
}

// Status is the coarse observable state of a cell.
type Status string

const (
	StatusLoading Status = "loading"
	StatusReady   Status = "ready"
	StatusError   Status = "error"
)

// CellState is a tagged snapshot of a cell. Exactly one of Value
// (ready) and Err (error) is meaningful for the terminal statuses;
// StaleValue carries the served fallback/last-known value when Stale.
type CellState[T any] struct {
	Status     Status
	Value      T
	Err        error
	Stale      bool
	StaleValue T
}

func (c *cellCore[T]) state() CellState[T] {
	c.mu.Lock()
	defer c.mu.Unlock()
	var s CellState[T]
	switch {
	case c.loading:
		s.Status = StatusLoading
	case c.err != nil:
		s.Status = StatusError
		s.Err = c.err
	default:
		s.Status = StatusReady
		s.Value = c.value
	}
	if c.staleLocked() {
		s.Stale = true
		s.StaleValue = c.valueLocked()
	}
	return s
}
