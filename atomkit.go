// Package atomkit provides the public API for the atomkit reactive
// dataflow engine.
//
// This is the recommended import for most applications:
//
//	import "github.com/atomkit-dev/atomkit"
//
// Usage:
//
//	count := atomkit.NewAtom(0)
//	doubled := atomkit.NewDerived(func(c *atomkit.Ctx) int {
//	    return atomkit.Get(c, count) * 2
//	})
//	count.Set(21)
//	_ = doubled.Value() // 42
package atomkit

import (
	"time"

	"github.com/jonboulle/clockwork"

	core "github.com/atomkit-dev/atomkit/pkg/atomkit"
)

// =============================================================================
// Cells (re-export from pkg/atomkit)
// =============================================================================

// Atom is a mutable reactive cell.
type Atom[T any] = core.Atom[T]

// Derived is a computed cell that tracks its dependencies.
type Derived[T any] = core.Derived[T]

// Event is a fire-observable value stream backed by a cell.
type Event[T any] = core.Event[T]

// Pool is a keyed collection of lazily constructed atoms with idle
// eviction.
type Pool[K, V any] = core.Pool[K, V]

// NewAtom creates a mutable cell holding the given initial value.
//
// Example:
//
//	count := atomkit.NewAtom(0)
//	count.Set(1)
//	value := count.Value() // 1
func NewAtom[T any](v T, opts ...AtomOption[T]) *Atom[T] {
	return core.NewAtom(v, opts...)
}

// NewFutureAtom creates a mutable cell that starts loading until the
// given future settles.
func NewFutureAtom[T any](f *Future[T], opts ...AtomOption[T]) *Atom[T] {
	return core.NewFutureAtom(f, opts...)
}

// NewLazyAtom creates a mutable cell whose initializer runs on first
// read.
func NewLazyAtom[T any](fn func(*InitContext) (T, error), opts ...AtomOption[T]) *Atom[T] {
	return core.NewLazyAtom(fn, opts...)
}

// NewLazyFutureAtom creates a mutable cell whose initializer produces
// a future on first read.
func NewLazyFutureAtom[T any](fn func(*InitContext) *Future[T], opts ...AtomOption[T]) *Atom[T] {
	return core.NewLazyFutureAtom(fn, opts...)
}

// NewDerived creates a computed cell that recomputes whenever one of
// the cells it read changes.
//
// Example:
//
//	doubled := atomkit.NewDerived(func(c *atomkit.Ctx) int {
//	    return atomkit.Get(c, count) * 2
//	})
func NewDerived[T any](compute func(*Ctx) T, opts ...AtomOption[T]) *Derived[T] {
	return core.NewDerived(compute, opts...)
}

// NewEvent creates an event cell. Fire publishes a payload; Next and
// Get expose it as futures.
func NewEvent[T any](opts ...EventOption[T]) *Event[T] {
	return core.NewEvent(opts...)
}

// NewPool creates a keyed pool whose entries are built by factory on
// first access.
func NewPool[K, V any](factory func(K, *InitContext) (V, error), opts ...PoolOption[K, V]) *Pool[K, V] {
	return core.NewPool(factory, opts...)
}

// NewFuturePool creates a keyed pool whose factory returns futures.
func NewFuturePool[K, V any](factory func(K, *InitContext) *Future[V], opts ...PoolOption[K, V]) *Pool[K, V] {
	return core.NewFuturePool(factory, opts...)
}

// Cell construction options
type AtomOption[T any] = core.AtomOption[T]
type EventOption[T any] = core.EventOption[T]
type PoolOption[K, V any] = core.PoolOption[K, V]

func WithEquals[T any](equals func(a, b T) bool) AtomOption[T] {
	return core.WithEquals(equals)
}

func WithEqualsShallow[T any]() AtomOption[T] { return core.WithEqualsShallow[T]() }
func WithEqualsDeep[T any]() AtomOption[T]    { return core.WithEqualsDeep[T]() }

// WithFallback configures a value to serve while the cell is loading
// or in error.
func WithFallback[T any](v T) AtomOption[T] { return core.WithFallback(v) }

// WithKey attaches a stable identifier used by observers and tooling.
func WithKey[T any](key string) AtomOption[T] { return core.WithKey[T](key) }

// WithMeta attaches arbitrary metadata visible to observers.
func WithMeta[T any](meta map[string]any) AtomOption[T] { return core.WithMeta[T](meta) }

func WithEventEquals[T any](eq func(a, b T) bool) EventOption[T] {
	return core.WithEventEquals(eq)
}

// WithOnce seals the event after its first fire.
func WithOnce[T any]() EventOption[T] { return core.WithOnce[T]() }

func WithEventKey[T any](key string) EventOption[T]           { return core.WithEventKey[T](key) }
func WithEventMeta[T any](meta map[string]any) EventOption[T] { return core.WithEventMeta[T](meta) }

// WithGCTime configures the idle timeout after which an unused pool
// entry is evicted.
func WithGCTime[K, V any](d time.Duration) PoolOption[K, V] {
	return core.WithGCTime[K, V](d)
}

func WithPoolEquals[K, V any](eq func(a, b K) bool) PoolOption[K, V] {
	return core.WithPoolEquals[K, V](eq)
}

func WithClock[K, V any](clock clockwork.Clock) PoolOption[K, V] {
	return core.WithClock[K, V](clock)
}

func WithPoolKey[K, V any](key string) PoolOption[K, V] { return core.WithPoolKey[K, V](key) }

func WithPoolMeta[K, V any](meta map[string]any) PoolOption[K, V] {
	return core.WithPoolMeta[K, V](meta)
}

// =============================================================================
// Selections
// =============================================================================

// Ctx is the active selection context. Reads performed through it are
// recorded as dependencies.
type Ctx = core.Ctx

// Readable is any cell a selection can read.
type Readable[T any] = core.Readable[T]

// Observable is the untyped view of a cell.
type Observable = core.Observable

// Get reads a cell inside a selection, recording the dependency.
// Pending cells suspend the selection; failed cells abort it.
func Get[T any](c *Ctx, r Readable[T]) T { return core.Get(c, r) }

// All reads every cell, suspending until all are resolved.
func All[T any](c *Ctx, rs ...Readable[T]) []T { return core.All(c, rs...) }

// Race returns the first settled cell's outcome.
func Race[T any](c *Ctx, rs ...Readable[T]) T { return core.Race(c, rs...) }

// Any returns the first fulfilled cell, aborting with AggregateError
// when every cell has failed.
func Any[T any](c *Ctx, rs ...Readable[T]) T { return core.Any(c, rs...) }

// Settled reads every cell without aborting on failures.
func Settled[T any](c *Ctx, rs ...Readable[T]) []Settlement[T] {
	return core.Settled(c, rs...)
}

// Ready suspends until the cell holds a non-zero value.
func Ready[T any](c *Ctx, r Readable[T]) T { return core.Ready(c, r) }

// ReadyWhen suspends until sel accepts the cell's value.
func ReadyWhen[T, U any](c *Ctx, r Readable[T], sel func(T) (U, bool)) U {
	return core.ReadyWhen(c, r, sel)
}

// Safe runs fn, converting aborts and panics to an error while still
// propagating suspension.
func Safe[T any](c *Ctx, fn func() T) (T, error) { return core.Safe(c, fn) }

// =============================================================================
// Futures
// =============================================================================

// Future is a write-once asynchronous value.
type Future[T any] = core.Future[T]

// Deferred is the untyped view of a future.
type Deferred = core.Deferred

type Settlement[T any] = core.Settlement[T]
type SettleStatus = core.SettleStatus

const (
	Pending   = core.Pending
	Fulfilled = core.Fulfilled
	Rejected  = core.Rejected
)

func NewFuture[T any]() *Future[T]               { return core.NewFuture[T]() }
func ResolvedFuture[T any](v T) *Future[T]       { return core.ResolvedFuture(v) }
func RejectedFuture[T any](err error) *Future[T] { return core.RejectedFuture[T](err) }

func AllFutures[T any](fs ...*Future[T]) *Future[[]T] { return core.AllFutures(fs...) }
func RaceFutures[T any](fs ...*Future[T]) *Future[T]  { return core.RaceFutures(fs...) }
func AnyFutures[T any](fs ...*Future[T]) *Future[T]   { return core.AnyFutures(fs...) }
func SettledFutures[T any](fs ...*Future[T]) *Future[[]Settlement[T]] {
	return core.SettledFutures(fs...)
}

// Track memoizes the settle state of a deferred value, registering at
// most one continuation per future identity.
var Track = core.Track

// Unwrap splits an arbitrary value into its settled value, error, or
// pending deferred.
var Unwrap = core.Unwrap

// =============================================================================
// Cell state
// =============================================================================

type CellState[T any] = core.CellState[T]
type Status = core.Status

const (
	StatusLoading = core.StatusLoading
	StatusReady   = core.StatusReady
	StatusError   = core.StatusError
)

// InitContext carries cancellation and cleanup registration into lazy
// initializers and pool factories.
type InitContext = core.InitContext

// =============================================================================
// Pools
// =============================================================================

type PoolEvent[K, V any] = core.PoolEvent[K, V]
type PoolEventKind = core.PoolEventKind

const (
	EntryCreated = core.EntryCreated
	EntryChanged = core.EntryChanged
	EntryRemoved = core.EntryRemoved
)

// =============================================================================
// Process hooks
// =============================================================================

// Observer receives a notification for every cell construction.
type Observer = core.Observer

// Scheduler routes change notifications.
type Scheduler = core.Scheduler

type CellInfo = core.CellInfo
type CellKind = core.CellKind

const (
	KindMutable = core.KindMutable
	KindDerived = core.KindDerived
	KindEvent   = core.KindEvent
)

// SetObserver installs the process-wide cell observer.
var SetObserver = core.SetObserver

// SetScheduler installs the process-wide notification scheduler.
var SetScheduler = core.SetScheduler

// NewCoalescingScheduler batches notifications and deduplicates them
// per listener until Flush.
var NewCoalescingScheduler = core.NewCoalescingScheduler

// CoalescingScheduler batches and deduplicates notifications.
type CoalescingScheduler = core.CoalescingScheduler

// Emitter is an ordered listener registry.
type Emitter[T any] = core.Emitter[T]

func NewEmitter[T any]() *Emitter[T] { return core.NewEmitter[T]() }

// =============================================================================
// Equality helpers
// =============================================================================

func EqualsStrict[T any]() func(a, b T) bool  { return core.EqualsStrict[T]() }
func EqualsShallow[T any]() func(a, b T) bool { return core.EqualsShallow[T]() }
func EqualsDeep[T any]() func(a, b T) bool    { return core.EqualsDeep[T]() }

// =============================================================================
// Errors
// =============================================================================

var ErrNoSelection = core.ErrNoSelection
var ErrDeferredResult = core.ErrDeferredResult

// AggregateError is returned by Any when every input failed.
type AggregateError = core.AggregateError
