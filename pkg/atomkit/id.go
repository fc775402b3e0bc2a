package atomkit

import "sync/atomic"

// globalIDCounter is the source of unique IDs for all reactive
// primitives, subscriptions, and futures. IDs are monotonically
// increasing and never reused.
var globalIDCounter uint64

func nextID() uint64 {
	return atomic.AddUint64(&globalIDCounter, 1)
}
