// Package atomkit implements a fine-grained reactive dataflow engine:
// mutable and derived reactive cells with synchronous and asynchronous
// values, automatic dependency tracking, race-safe asynchronous
// resolution, a keyed cache of parametrized cells with idle eviction,
// and a fireable signal primitive.
//
// # Core Types
//
// Atom[T] is a mutable reactive cell:
//
//	count := NewAtom(0)
//	value := count.Value() // Read
//	count.Set(5)           // Write (notifies subscribers on change)
//	count.Update(func(n int) (int, error) { return n + 1, nil })
//
// Atoms may be initialized lazily, the initializer running on first
// access rather than at construction:
//
//	cfg := NewLazyAtom(func(ctx *InitContext) (Config, error) {
//	    ctx.OnCleanup(func() { conn.Close() })
//	    return loadConfig()
//	})
//
// Derived[T] is a read-only cell computed from other cells. It
// subscribes only to the cells actually read on the last computation:
//
//	doubled := NewDerived(func(ctx *Ctx) int {
//	    return Get(ctx, count) * 2
//	})
//
// Future[T] is a settle-once deferred value. Reading a cell that is
// still loading from inside a derived computation abandons the
// computation and retries once the underlying future settles; awaiting
// happens only at the Future boundary, never inside the engine.
//
// Event[T] is a fireable, atom-compatible signal. Pool[K, V] is a keyed
// cache of atoms with idle-timeout eviction that never collects entries
// whose atom is still loading.
//
// # Concurrency
//
// Every cell carries a version counter bumped on each state transition.
// Asynchronous continuations capture the version at the point they were
// scheduled and are discarded without side effects if the cell has
// moved on by the time they run. The staleness check and the apply
// happen inside a single critical section per cell.
//
// # Process-wide hooks
//
// SetObserver installs a creation hook invoked on every cell
// construction, and SetScheduler installs a notification-scheduling
// hook invoked per listener at notify time. Both are nullable and
// replaceable; their absence does not change engine behavior.
package atomkit
