package atomkit

import "sync"

type eventConfig[T any] struct {
	equals func(a, b T) bool
	once   bool
	key    string
	meta   map[string]any
}

// EventOption configures an event at construction time.
type EventOption[T any] func(*eventConfig[T])

// WithEventEquals deduplicates fires: a payload equal to the previous
// one under eq is a no-op. The default treats every payload as
// different.
func WithEventEquals[T any](eq func(a, b T) bool) EventOption[T] {
	return func(c *eventConfig[T]) { c.equals = eq }
}

// WithOnce seals the event after its first fire; later fires are
// no-ops.
func WithOnce[T any]() EventOption[T] {
	return func(c *eventConfig[T]) { c.once = true }
}

// WithEventKey attaches a stable debug key.
func WithEventKey[T any](key string) EventOption[T] {
	return func(c *eventConfig[T]) { c.key = key }
}

// WithEventMeta attaches arbitrary metadata.
func WithEventMeta[T any](meta map[string]any) EventOption[T] {
	return func(c *eventConfig[T]) { c.meta = meta }
}

// Event is a fireable, atom-compatible signal. Read in a selection it
// is pending until the first fire and thereafter carries the latest
// meaningful payload. Each meaningful fire resolves the initial
// deferred (first fire) or replaces the underlying cell's value with
// an already-resolved one.
type Event[T any] struct {
	id     uint64
	key    string
	equals func(a, b T) bool
	once   bool

	atom    *Atom[T]
	initial *Future[T]
	fires   *Emitter[T]

	mu        sync.Mutex
	next      *Future[T]
	last      T
	hasLast   bool
	fireCount int
}

// NewEvent creates an event. Every payload counts as a distinct fire
// unless WithEventEquals configures deduplication.
func NewEvent[T any](opts ...EventOption[T]) *Event[T] {
	var cfg eventConfig[T]
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}
	initial := NewFuture[T]()
	e := &Event[T]{
		id:      nextID(),
		key:     cfg.key,
		equals:  cfg.equals,
		once:    cfg.once,
		initial: initial,
		fires:   NewEmitter[T](),
	}
	e.atom = newAtomCore(atomInit[T]{future: initial}, false, atomConfig[T]{key: cfg.key})
	notifyCreated(KindEvent, cfg.key, cfg.meta, e)
	return e
}

// Fire emits a payload. No-op once a WithOnce event has fired, or when
// the payload equals the previous one under the configured equality.
// Each meaningful fire increments FireCount, records Last, settles any
// outstanding Next future, and notifies payload listeners.
func (e *Event[T]) Fire(v T) {
	e.mu.Lock()
	if e.once && e.fireCount > 0 {
		e.mu.Unlock()
		return
	}
	if e.fireCount > 0 && e.equals != nil && e.equals(e.last, v) {
		e.mu.Unlock()
		return
	}
	e.fireCount++
	first := e.fireCount == 1
	e.last = v
	e.hasLast = true
	next := e.next
	e.next = nil
	e.mu.Unlock()

	if first {
		e.initial.Resolve(v)
	} else {
		e.atom.SetFuture(ResolvedFuture(v))
	}
	if next != nil {
		next.Resolve(v)
	}
	e.fires.Dispatch(v, dispatchNotify)
}

// Next returns a future for the next meaningful fire. It is created
// lazily and is independent of Get's fire-indexed future; a sealed
// event's Next stays pending forever.
func (e *Event[T]) Next() *Future[T] {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.next == nil {
		e.next = NewFuture[T]()
	}
	return e.next
}

// Get returns the event's deferred form: pending until the first fire,
// then carrying the latest payload.
func (e *Event[T]) Get() *Future[T] {
	return e.atom.Future()
}

// Last returns the most recent meaningful payload, if any.
func (e *Event[T]) Last() (T, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.last, e.hasLast
}

// FireCount returns the number of meaningful fires so far.
func (e *Event[T]) FireCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.fireCount
}

// Sealed reports that a WithOnce event has fired.
func (e *Event[T]) Sealed() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.once && e.fireCount > 0
}

// On subscribes to meaningful fires, receiving each payload. The
// returned unsubscribe is idempotent.
func (e *Event[T]) On(fn func(T)) func() {
	return e.fires.On(fn)
}

// Key returns the debug key configured with WithEventKey.
func (e *Event[T]) Key() string { return e.key }

func (e *Event[T]) cellID() uint64 { return e.id }

func (e *Event[T]) observe(listenerID uint64, fn func()) func() {
	return e.atom.observe(listenerID, fn)
}

func (e *Event[T]) selectionRead() selected[T] {
	return e.atom.selectionRead()
}

var _ Readable[int] = (*Event[int])(nil)
