package atomkit

import (
	"errors"
	"reflect"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
)

// PoolEventKind classifies a pool lifecycle notification.
type PoolEventKind int

const (
	EntryCreated PoolEventKind = iota
	EntryChanged
	EntryRemoved
)

func (k PoolEventKind) String() string {
	switch k {
	case EntryCreated:
		return "created"
	case EntryChanged:
		return "changed"
	case EntryRemoved:
		return "removed"
	}
	return "unknown"
}

// PoolEvent describes one entry lifecycle transition. Value carries
// the entry's last known value when HasValue is set; a never-accessed
// entry has none.
type PoolEvent[K, V any] struct {
	Kind     PoolEventKind
	Params   K
	Value    V
	HasValue bool
}

type poolConfig[K, V any] struct {
	gcTime time.Duration
	equals func(a, b K) bool
	clock  clockwork.Clock
	key    string
	meta   map[string]any
}

// PoolOption configures a pool at construction time.
type PoolOption[K, V any] func(*poolConfig[K, V])

// WithGCTime sets the idle timeout after which an untouched entry is
// evicted. Zero disables eviction.
func WithGCTime[K, V any](d time.Duration) PoolOption[K, V] {
	return func(c *poolConfig[K, V]) { c.gcTime = d }
}

// WithPoolEquals sets the parameter equality used to find an existing
// entry. The default is deep equality.
func WithPoolEquals[K, V any](eq func(a, b K) bool) PoolOption[K, V] {
	return func(c *poolConfig[K, V]) { c.equals = eq }
}

// WithClock substitutes the clock driving idle eviction. Tests pass a
// clockwork fake clock.
func WithClock[K, V any](clock clockwork.Clock) PoolOption[K, V] {
	return func(c *poolConfig[K, V]) { c.clock = clock }
}

// WithPoolKey attaches a stable debug key.
func WithPoolKey[K, V any](key string) PoolOption[K, V] {
	return func(c *poolConfig[K, V]) { c.key = key }
}

// WithPoolMeta attaches arbitrary metadata.
func WithPoolMeta[K, V any](meta map[string]any) PoolOption[K, V] {
	return func(c *poolConfig[K, V]) { c.meta = meta }
}

type poolEntry[K, V any] struct {
	params  K
	atom    *Atom[V]
	timer   clockwork.Timer
	unsub   func()
	removed *Emitter[PoolEvent[K, V]]
}

// Pool is a keyed cache of atoms, one per distinct parameter value.
// Entries are created lazily on first Get, kept alive while touched,
// and evicted after the idle timeout, except while their atom is still
// loading. All methods are safe for concurrent use.
type Pool[K, V any] struct {
	id      uint64
	key     string
	factory func(K, *InitContext) (V, error)
	futures func(K, *InitContext) *Future[V]
	gcTime  time.Duration
	equals  func(a, b K) bool
	clock   clockwork.Clock
	events  *Emitter[PoolEvent[K, V]]

	mu      sync.Mutex
	entries []*poolEntry[K, V]
	// index is the identity fast path for comparable parameter types;
	// non-comparable parameters fall through to the equality scan.
	index map[any]*poolEntry[K, V]
}

// NewPool creates a pool whose entries are initialized by factory on
// first access. The factory receives the parameters and an init
// context carrying a cancellation signal and cleanup registrar.
func NewPool[K, V any](factory func(K, *InitContext) (V, error), opts ...PoolOption[K, V]) *Pool[K, V] {
	if factory == nil {
		panic(usagePanic{errors.New("atomkit: NewPool called with nil factory")})
	}
	p := newPool[K, V](opts)
	p.factory = factory
	return p
}

// NewFuturePool creates a pool whose factory returns a future to load
// each entry from. Entries stay un-evictable while that future is
// pending.
func NewFuturePool[K, V any](factory func(K, *InitContext) *Future[V], opts ...PoolOption[K, V]) *Pool[K, V] {
	if factory == nil {
		panic(usagePanic{errors.New("atomkit: NewFuturePool called with nil factory")})
	}
	p := newPool[K, V](opts)
	p.futures = factory
	return p
}

func newPool[K, V any](opts []PoolOption[K, V]) *Pool[K, V] {
	cfg := poolConfig[K, V]{
		equals: EqualsDeep[K](),
		clock:  clockwork.NewRealClock(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}
	return &Pool[K, V]{
		id:     nextID(),
		key:    cfg.key,
		gcTime: cfg.gcTime,
		equals: cfg.equals,
		clock:  cfg.clock,
		events: NewEmitter[PoolEvent[K, V]](),
		index:  make(map[any]*poolEntry[K, V]),
	}
}

// keyComparable reports whether the dynamic value can serve as a map
// key. A comparable type can still hold an unhashable value (an
// interface field carrying a slice), so the value is inspected rather
// than its type; unhashable params fall through to the equality scan.
func keyComparable(k any) bool {
	v := reflect.ValueOf(k)
	return v.IsValid() && v.Comparable()
}

func (p *Pool[K, V]) lookupLocked(params K) *poolEntry[K, V] {
	if keyComparable(params) {
		if e, ok := p.index[params]; ok {
			return e
		}
	}
	for _, e := range p.entries {
		if p.equals(e.params, params) {
			return e
		}
	}
	return nil
}

func (p *Pool[K, V]) findOrCreate(params K) *poolEntry[K, V] {
	p.mu.Lock()
	if e := p.lookupLocked(params); e != nil {
		p.touchLocked(e)
		p.mu.Unlock()
		return e
	}

	e := &poolEntry[K, V]{
		params:  params,
		removed: NewEmitter[PoolEvent[K, V]](),
	}
	if p.futures != nil {
		e.atom = newAtomCore(atomInit[V]{lazyFuture: func(ic *InitContext) *Future[V] {
			return p.futures(params, ic)
		}}, true, atomConfig[V]{key: p.key})
	} else {
		e.atom = newAtomCore(atomInit[V]{lazy: func(ic *InitContext) (V, error) {
			return p.factory(params, ic)
		}}, true, atomConfig[V]{key: p.key})
	}
	// subscribe without triggering lazy initialization; value changes
	// restart the idle timer and surface as change events
	e.unsub = e.atom.core.watchers.On(func(struct{}) {
		p.touch(e)
		v, ok := e.atom.valueIfInitialized()
		p.events.Emit(PoolEvent[K, V]{Kind: EntryChanged, Params: params, Value: v, HasValue: ok})
	})
	p.entries = append(p.entries, e)
	if keyComparable(params) {
		p.index[params] = e
	}
	p.touchLocked(e)
	p.mu.Unlock()

	notifyCreated(KindMutable, p.key, nil, e.atom)
	p.events.Emit(PoolEvent[K, V]{Kind: EntryCreated, Params: params})
	return e
}

func (p *Pool[K, V]) touch(e *poolEntry[K, V]) {
	p.mu.Lock()
	p.touchLocked(e)
	p.mu.Unlock()
}

func (p *Pool[K, V]) touchLocked(e *poolEntry[K, V]) {
	if p.gcTime <= 0 {
		return
	}
	if e.timer != nil {
		e.timer.Stop()
	}
	e.timer = p.clock.AfterFunc(p.gcTime, func() { p.maybeEvict(e) })
}

// maybeEvict runs at idle-timer fire time. An entry whose atom is
// still loading is never collected; its timer restarts instead, so
// slow factories cannot be evicted out from under in-flight work.
func (p *Pool[K, V]) maybeEvict(e *poolEntry[K, V]) {
	p.mu.Lock()
	if !p.containsLocked(e) {
		p.mu.Unlock()
		return
	}
	if e.atom.loadingNoInit() {
		p.touchLocked(e)
		p.mu.Unlock()
		return
	}
	p.detachLocked(e)
	p.mu.Unlock()
	p.finalize(e)
}

func (p *Pool[K, V]) containsLocked(e *poolEntry[K, V]) bool {
	for _, cur := range p.entries {
		if cur == e {
			return true
		}
	}
	return false
}

func (p *Pool[K, V]) detachLocked(e *poolEntry[K, V]) {
	for i, cur := range p.entries {
		if cur == e {
			p.entries = append(p.entries[:i], p.entries[i+1:]...)
			break
		}
	}
	if keyComparable(e.params) {
		delete(p.index, e.params)
	}
}

// finalize cancels the entry's init context, runs its cleanups, and
// fires the remove lifecycle event with the last known value, to the
// entry-scoped listeners first.
func (p *Pool[K, V]) finalize(e *poolEntry[K, V]) {
	if e.timer != nil {
		e.timer.Stop()
	}
	if e.unsub != nil {
		e.unsub()
	}
	e.atom.dispose()
	v, ok := e.atom.valueIfInitialized()
	ev := PoolEvent[K, V]{Kind: EntryRemoved, Params: e.params, Value: v, HasValue: ok}
	e.removed.Emit(ev)
	p.events.Emit(ev)
}

// Get finds or creates the entry for params, restarts its idle timer,
// and returns its resolved value, running the factory on first access.
func (p *Pool[K, V]) Get(params K) V {
	return p.findOrCreate(params).atom.Value()
}

// GetAtom finds or creates the entry for params and returns its atom
// without forcing initialization.
func (p *Pool[K, V]) GetAtom(params K) *Atom[V] {
	return p.findOrCreate(params).atom
}

// Set writes a value into the entry for params, creating it first if
// needed.
func (p *Pool[K, V]) Set(params K, v V) {
	e := p.findOrCreate(params)
	e.atom.Set(v)
	p.touch(e)
}

// Has reports whether an entry exists for params, without creating
// one.
func (p *Pool[K, V]) Has(params K) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.lookupLocked(params) != nil
}

// Remove deletes the entry for params: its init context is cancelled,
// cleanups run, and a remove lifecycle event fires with the last
// value. Reports whether an entry existed.
func (p *Pool[K, V]) Remove(params K) bool {
	p.mu.Lock()
	e := p.lookupLocked(params)
	if e == nil {
		p.mu.Unlock()
		return false
	}
	p.detachLocked(e)
	p.mu.Unlock()
	p.finalize(e)
	return true
}

// Clear removes every entry, firing a remove event per entry.
func (p *Pool[K, V]) Clear() {
	p.mu.Lock()
	entries := p.entries
	p.entries = nil
	p.index = make(map[any]*poolEntry[K, V])
	p.mu.Unlock()
	for _, e := range entries {
		p.finalize(e)
	}
}

// ForEach visits every live entry.
func (p *Pool[K, V]) ForEach(fn func(params K, atom *Atom[V])) {
	p.mu.Lock()
	snapshot := make([]*poolEntry[K, V], len(p.entries))
	copy(snapshot, p.entries)
	p.mu.Unlock()
	for _, e := range snapshot {
		fn(e.params, e.atom)
	}
}

// Len returns the number of live entries.
func (p *Pool[K, V]) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.entries)
}

// On subscribes to the pool's lifecycle events. The returned
// unsubscribe is idempotent.
func (p *Pool[K, V]) On(fn func(PoolEvent[K, V])) func() {
	return p.events.On(fn)
}

// OnRemove subscribes to the removal of the specific entry for params.
// If no entry exists, the returned unsubscribe is a no-op.
func (p *Pool[K, V]) OnRemove(params K, fn func(PoolEvent[K, V])) func() {
	p.mu.Lock()
	e := p.lookupLocked(params)
	p.mu.Unlock()
	if e == nil {
		return func() {}
	}
	return e.removed.On(fn)
}

// Key returns the debug key configured with WithPoolKey.
func (p *Pool[K, V]) Key() string { return p.key }
