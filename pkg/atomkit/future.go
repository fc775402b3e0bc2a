package atomkit

import (
	"context"
	"sync"
	"sync/atomic"
)

// SettleStatus is the lifecycle state of a deferred value. A future
// starts Pending and transitions exactly once to either Fulfilled or
// Rejected; the transition is irreversible.
type SettleStatus int32

const (
	Pending SettleStatus = iota
	Fulfilled
	Rejected
)

func (s SettleStatus) String() string {
	switch s {
	case Pending:
		return "pending"
	case Fulfilled:
		return "fulfilled"
	case Rejected:
		return "rejected"
	}
	return "unknown"
}

// Deferred is the type-erased view of a Future used by the future cache
// and the selection machinery.
type Deferred interface {
	futureID() uint64
	settleState() (SettleStatus, any, error)
	subscribeSettle(fn func(value any, err error))
}

type outcome[T any] struct {
	value T
	err   error
}

// Future is a settle-once deferred value. Resolve and Reject may be
// called from any goroutine; only the first call has an effect.
// Continuations registered with OnSettle run synchronously in the
// settling goroutine, or immediately when the future has already
// settled.
type Future[T any] struct {
	id   uint64
	done chan struct{}
	subs *Emitter[outcome[T]]

	mu    sync.Mutex
	state SettleStatus
	out   outcome[T]
}

// NewFuture returns a pending future.
func NewFuture[T any]() *Future[T] {
	return &Future[T]{
		id:   nextID(),
		done: make(chan struct{}),
		subs: NewEmitter[outcome[T]](),
	}
}

// ResolvedFuture returns a future already fulfilled with v.
func ResolvedFuture[T any](v T) *Future[T] {
	f := NewFuture[T]()
	f.Resolve(v)
	return f
}

// RejectedFuture returns a future already rejected with err.
func RejectedFuture[T any](err error) *Future[T] {
	f := NewFuture[T]()
	f.Reject(err)
	return f
}

// Resolve fulfills the future with v. No effect if already settled.
func (f *Future[T]) Resolve(v T) {
	f.settle(outcome[T]{value: v})
}

// Reject rejects the future with err. No effect if already settled.
func (f *Future[T]) Reject(err error) {
	f.settle(outcome[T]{err: err})
}

func (f *Future[T]) settle(out outcome[T]) {
	f.mu.Lock()
	if f.state != Pending {
		f.mu.Unlock()
		return
	}
	if out.err != nil {
		f.state = Rejected
	} else {
		f.state = Fulfilled
	}
	f.out = out
	close(f.done)
	f.mu.Unlock()

	f.subs.Settle(out)
}

// State returns the current settle status.
func (f *Future[T]) State() SettleStatus {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state
}

// Result returns the settled value and error. Both are zero while the
// future is pending.
func (f *Future[T]) Result() (T, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.out.value, f.out.err
}

// OnSettle registers a continuation invoked once the future settles,
// immediately if it already has. The returned function unregisters the
// continuation; it is idempotent and a no-op after settlement.
func (f *Future[T]) OnSettle(fn func(value T, err error)) func() {
	return f.subs.On(func(out outcome[T]) {
		fn(out.value, out.err)
	})
}

// Done returns a channel closed when the future settles.
func (f *Future[T]) Done() <-chan struct{} {
	return f.done
}

// Await blocks until the future settles or ctx is done.
func (f *Future[T]) Await(ctx context.Context) (T, error) {
	select {
	case <-f.done:
		return f.Result()
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}

// ID returns the unique identifier for this future.
func (f *Future[T]) ID() uint64 {
	return f.id
}

func (f *Future[T]) futureID() uint64 { return f.id }

func (f *Future[T]) settleState() (SettleStatus, any, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state, f.out.value, f.out.err
}

func (f *Future[T]) subscribeSettle(fn func(value any, err error)) {
	f.subs.On(func(out outcome[T]) {
		fn(out.value, out.err)
	})
}

var _ Deferred = (*Future[int])(nil)

// mapFuture derives a future by passing f's fulfillment value through
// fn. Rejections pass through untouched; an error from fn rejects the
// derived future.
func mapFuture[T any](f *Future[T], fn func(T) (T, error)) *Future[T] {
	out := NewFuture[T]()
	f.OnSettle(func(v T, err error) {
		if err != nil {
			out.Reject(err)
			return
		}
		mapped, err := fn(v)
		if err != nil {
			out.Reject(err)
			return
		}
		out.Resolve(mapped)
	})
	return out
}

// AllFutures fulfills with every input's value once all inputs fulfill,
// or rejects with the first rejection.
func AllFutures[T any](fs ...*Future[T]) *Future[[]T] {
	out := NewFuture[[]T]()
	if len(fs) == 0 {
		out.Resolve(nil)
		return out
	}
	values := make([]T, len(fs))
	var remaining atomic.Int64
	remaining.Store(int64(len(fs)))
	for i, f := range fs {
		i := i
		f.OnSettle(func(v T, err error) {
			if err != nil {
				out.Reject(err)
				return
			}
			values[i] = v
			if remaining.Add(-1) == 0 {
				out.Resolve(values)
			}
		})
	}
	return out
}

// RaceFutures settles with the first input to settle, of either kind.
func RaceFutures[T any](fs ...*Future[T]) *Future[T] {
	out := NewFuture[T]()
	for _, f := range fs {
		f.OnSettle(func(v T, err error) {
			if err != nil {
				out.Reject(err)
				return
			}
			out.Resolve(v)
		})
	}
	return out
}

// AnyFutures fulfills with the first input to fulfill, or rejects with
// an AggregateError once every input has rejected.
func AnyFutures[T any](fs ...*Future[T]) *Future[T] {
	out := NewFuture[T]()
	if len(fs) == 0 {
		out.Reject(&AggregateError{})
		return out
	}
	errs := make([]error, len(fs))
	var remaining atomic.Int64
	remaining.Store(int64(len(fs)))
	for i, f := range fs {
		i := i
		f.OnSettle(func(v T, err error) {
			if err == nil {
				out.Resolve(v)
				return
			}
			errs[i] = err
			if remaining.Add(-1) == 0 {
				out.Reject(&AggregateError{Errors: errs})
			}
		})
	}
	return out
}

// Settlement records the terminal state of one input to
// SettledFutures.
type Settlement[T any] struct {
	Status SettleStatus
	Value  T
	Err    error
}

// SettledFutures fulfills once every input has settled, with a
// per-input status record. It never rejects.
func SettledFutures[T any](fs ...*Future[T]) *Future[[]Settlement[T]] {
	out := NewFuture[[]Settlement[T]]()
	if len(fs) == 0 {
		out.Resolve(nil)
		return out
	}
	results := make([]Settlement[T], len(fs))
	var remaining atomic.Int64
	remaining.Store(int64(len(fs)))
	for i, f := range fs {
		i := i
		f.OnSettle(func(v T, err error) {
			if err != nil {
				results[i] = Settlement[T]{Status: Rejected, Err: err}
			} else {
				results[i] = Settlement[T]{Status: Fulfilled, Value: v}
			}
			if remaining.Add(-1) == 0 {
				out.Resolve(results)
			}
		})
	}
	return out
}

// whenAnySettles returns a deferred that fulfills as soon as any input
// settles, of either kind. Used as a retry marker for suspended
// computations.
func whenAnySettles(ds []Deferred) Deferred {
	join := NewFuture[struct{}]()
	for _, d := range ds {
		d.subscribeSettle(func(any, error) {
			join.Resolve(struct{}{})
		})
	}
	return join
}

// whenAllSettle returns a deferred that fulfills once every input has
// settled.
func whenAllSettle(ds []Deferred) Deferred {
	join := NewFuture[struct{}]()
	if len(ds) == 0 {
		join.Resolve(struct{}{})
		return join
	}
	var remaining atomic.Int64
	remaining.Store(int64(len(ds)))
	for _, d := range ds {
		d.subscribeSettle(func(any, error) {
			if remaining.Add(-1) == 0 {
				join.Resolve(struct{}{})
			}
		})
	}
	return join
}

// neverSettles is the shared pending marker thrown by Ready while the
// observed value is still nil: there is nothing to retry on besides the
// dependency notifying again.
var neverSettles = NewFuture[struct{}]()
