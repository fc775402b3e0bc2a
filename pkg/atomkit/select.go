package atomkit

import (
	"fmt"
)

// Observable is the type-erased view of a cell used for dependency
// tracking.
type Observable interface {
	cellID() uint64
	observe(listenerID uint64, fn func()) func()
}

// Readable is a cell a selection can read: mutable atoms, derived
// atoms, and events all implement it.
type Readable[T any] interface {
	Observable
	selectionRead() selected[T]
}

// selected is the outcome of one cell read inside a selection. Exactly
// one of value, err and suspend is meaningful; staleDep accompanies a
// fallback-substituted value and names the deferred to retry on.
type selected[T any] struct {
	value    T
	err      error
	suspend  Deferred
	staleDep Deferred
}

// suspendMarker aborts a selection whose dependency is still pending.
type suspendMarker struct{ d Deferred }

// abortError aborts a selection whose dependency is in error.
type abortError struct{ err error }

// Ctx is a live selection. It records every cell read through it, so a
// derived atom can subscribe to exactly the dependencies the last
// computation touched. A Ctx is only valid for the duration of the
// computation it was created for.
type Ctx struct {
	active    bool
	deps      []Observable
	depSeen   map[uint64]struct{}
	staleDeps []Deferred
}

func (c *Ctx) require() {
	if c == nil || !c.active {
		panic(usagePanic{ErrNoSelection})
	}
}

func (c *Ctx) record(r Observable) {
	id := r.cellID()
	if _, ok := c.depSeen[id]; ok {
		return
	}
	c.depSeen[id] = struct{}{}
	c.deps = append(c.deps, r)
}

// selection is the result of one computation run. Exactly one of
// value, err and pending is populated; deps lists every cell read
// before the outcome was decided, staleDeps the deferreds behind
// fallback-substituted reads.
type selection[T any] struct {
	value     T
	err       error
	pending   Deferred
	deps      []Observable
	staleDeps []Deferred
}

// runSelection executes fn exactly once, synchronously. The first
// pending or erroring dependency read aborts the computation; code
// after the offending read does not execute, but cells read before it
// are still recorded. A panic from fn itself becomes the selection's
// error; usage-error panics are re-raised untouched.
func runSelection[T any](fn func(*Ctx) T) (res selection[T]) {
	c := &Ctx{active: true, depSeen: make(map[uint64]struct{})}
	defer func() {
		c.active = false
		res.deps = c.deps
		res.staleDeps = c.staleDeps
		if r := recover(); r != nil {
			switch m := r.(type) {
			case suspendMarker:
				res.pending = m.d
			case abortError:
				res.err = m.err
			case usagePanic:
				panic(r)
			default:
				res.err = panicToError(r)
			}
		}
	}()
	v := fn(c)
	if _, ok := any(v).(Deferred); ok {
		panic(usagePanic{ErrDeferredResult})
	}
	res.value = v
	return
}

func panicToError(r any) error {
	if err, ok := r.(error); ok {
		return err
	}
	return fmt.Errorf("atomkit: computation panic: %v", r)
}

// Get reads one cell inside a selection, recording it as a dependency.
// A pending read suspends the computation; an erroring read aborts it.
// Cells with a configured fallback never suspend: their fallback or
// last-resolved value is substituted.
func Get[T any](c *Ctx, r Readable[T]) T {
	c.require()
	c.record(r)
	res := r.selectionRead()
	if res.suspend != nil {
		// The future may have settled between the cell's state read
		// and now; the cache answers synchronously without waiting for
		// the cell's own continuation to apply.
		switch st, v, err := Track(res.suspend); st {
		case Fulfilled:
			if tv, ok := v.(T); ok {
				return tv
			}
			panic(suspendMarker{res.suspend})
		case Rejected:
			panic(abortError{err})
		default:
			panic(suspendMarker{res.suspend})
		}
	}
	if res.err != nil {
		panic(abortError{res.err})
	}
	if res.staleDep != nil {
		c.staleDeps = append(c.staleDeps, res.staleDep)
	}
	return res.value
}

// All reads every input, in order. Any pending or erroring input
// aborts via the usual Get rules.
func All[T any](c *Ctx, rs ...Readable[T]) []T {
	c.require()
	out := make([]T, len(rs))
	for i, r := range rs {
		out[i] = Get(c, r)
	}
	return out
}

// Race returns the first settled input of either kind: the first
// resolved value wins, the first error aborts. With every input still
// pending, the computation suspends until any of them settles.
func Race[T any](c *Ctx, rs ...Readable[T]) T {
	c.require()
	if len(rs) == 0 {
		panic(usagePanic{fmt.Errorf("atomkit: Race requires at least one input")})
	}
	var pend []Deferred
	for _, r := range rs {
		c.record(r)
		res := r.selectionRead()
		if res.suspend != nil {
			pend = append(pend, res.suspend)
			continue
		}
		if res.err != nil {
			panic(abortError{res.err})
		}
		if res.staleDep != nil {
			c.staleDeps = append(c.staleDeps, res.staleDep)
		}
		return res.value
	}
	panic(suspendMarker{whenAnySettles(pend)})
}

// Any returns the first resolved input, skipping erroring ones. It
// aborts with an AggregateError only once every input has failed;
// while at least one input is still pending it suspends instead.
func Any[T any](c *Ctx, rs ...Readable[T]) T {
	c.require()
	if len(rs) == 0 {
		panic(abortError{&AggregateError{}})
	}
	var (
		pend []Deferred
		errs []error
	)
	for _, r := range rs {
		c.record(r)
		res := r.selectionRead()
		switch {
		case res.suspend != nil:
			pend = append(pend, res.suspend)
		case res.err != nil:
			errs = append(errs, res.err)
		default:
			if res.staleDep != nil {
				c.staleDeps = append(c.staleDeps, res.staleDep)
			}
			return res.value
		}
	}
	if len(pend) > 0 {
		panic(suspendMarker{whenAnySettles(pend)})
	}
	panic(abortError{&AggregateError{Errors: errs}})
}

// Settled waits for every input to settle and returns a per-input
// status record. Erroring inputs do not abort the computation.
func Settled[T any](c *Ctx, rs ...Readable[T]) []Settlement[T] {
	c.require()
	out := make([]Settlement[T], len(rs))
	var pend []Deferred
	for i, r := range rs {
		c.record(r)
		res := r.selectionRead()
		switch {
		case res.suspend != nil:
			pend = append(pend, res.suspend)
			out[i] = Settlement[T]{Status: Pending}
		case res.err != nil:
			out[i] = Settlement[T]{Status: Rejected, Err: res.err}
		default:
			if res.staleDep != nil {
				c.staleDeps = append(c.staleDeps, res.staleDep)
			}
			out[i] = Settlement[T]{Status: Fulfilled, Value: res.value}
		}
	}
	if len(pend) > 0 {
		panic(suspendMarker{whenAllSettle(pend)})
	}
	return out
}

// Ready reads a cell and suspends while its value is nil or zero,
// resuming once a later notification delivers a non-zero value. The
// suspension marker never settles on its own; the recorded dependency
// is what triggers the retry.
func Ready[T any](c *Ctx, r Readable[T]) T {
	v := Get(c, r)
	if isZeroValue(v) {
		panic(suspendMarker{neverSettles})
	}
	return v
}

// ReadyWhen reads a cell and applies sel; it suspends until sel
// reports ok.
func ReadyWhen[T, U any](c *Ctx, r Readable[T], sel func(T) (U, bool)) U {
	v := Get(c, r)
	u, ok := sel(v)
	if !ok {
		panic(suspendMarker{neverSettles})
	}
	return u
}

// Safe runs fn and converts a synchronous failure into an error return.
// A suspension propagates untouched, so pending dependencies are never
// silently swallowed; usage-error panics are re-raised as well.
func Safe[T any](c *Ctx, fn func() T) (v T, err error) {
	c.require()
	defer func() {
		if r := recover(); r != nil {
			switch m := r.(type) {
			case suspendMarker:
				panic(r)
			case usagePanic:
				panic(r)
			case abortError:
				err = m.err
			default:
				err = panicToError(r)
			}
		}
	}()
	v = fn()
	return
}
