package devtools

import (
	"sync"
	"time"

	"github.com/atomkit-dev/atomkit/pkg/atomkit"
)

// CellRecord is one entry in the devtools cell inventory.
type CellRecord struct {
	Seq       uint64         `json:"seq"`
	Kind      string         `json:"kind"`
	Key       string         `json:"key,omitempty"`
	Meta      map[string]any `json:"meta,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
}

// Registry collects every cell creation into an inventory and fans the
// records out to live subscribers. It implements atomkit.Observer and
// chains to an optional downstream observer.
type Registry struct {
	next atomkit.Observer
	feed *atomkit.Emitter[CellRecord]

	mu    sync.Mutex
	seq   uint64
	cells []CellRecord
}

// NewRegistry returns an empty registry. next, when non-nil, receives
// every creation notification after it is recorded.
func NewRegistry(next atomkit.Observer) *Registry {
	return &Registry{
		next: next,
		feed: atomkit.NewEmitter[CellRecord](),
	}
}

// CellCreated implements atomkit.Observer.
func (r *Registry) CellCreated(info atomkit.CellInfo) {
	r.mu.Lock()
	r.seq++
	rec := CellRecord{
		Seq:       r.seq,
		Kind:      string(info.Kind),
		Key:       info.Key,
		Meta:      info.Meta,
		CreatedAt: time.Now().UTC(),
	}
	r.cells = append(r.cells, rec)
	r.mu.Unlock()

	r.feed.Emit(rec)
	if r.next != nil {
		r.next.CellCreated(info)
	}
}

// Cells returns a snapshot of the inventory in creation order.
func (r *Registry) Cells() []CellRecord {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]CellRecord, len(r.cells))
	copy(out, r.cells)
	return out
}

// Len returns the number of recorded cells.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.cells)
}

// Subscribe registers a live listener for future creations. The
// returned unsubscribe is idempotent.
func (r *Registry) Subscribe(fn func(CellRecord)) func() {
	return r.feed.On(fn)
}

// Install wires the registry into the process-wide creation hook,
// chaining to whatever observer was installed before. The returned
// function restores the previous observer.
func (r *Registry) Install() (restore func()) {
	prev := atomkit.SetObserver(r)
	r.mu.Lock()
	if r.next == nil {
		r.next = prev
	}
	r.mu.Unlock()
	return func() {
		atomkit.SetObserver(prev)
	}
}
