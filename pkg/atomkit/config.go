package atomkit

import "sync/atomic"

// CellKind identifies the flavor of a reactive cell reported to the
// creation hook.
type CellKind string

const (
	KindMutable CellKind = "mutable"
	KindDerived CellKind = "derived"
	KindEvent   CellKind = "event"
)

// CellInfo describes a freshly constructed cell.
type CellInfo struct {
	Kind CellKind
	Key  string
	Meta map[string]any
	// Cell is the constructed instance (*Atom[T], *Derived[T], or
	// *Event[T]).
	Cell any
}

// Observer is the process-wide creation hook, invoked synchronously on
// every cell construction. Implementations must not block.
type Observer interface {
	CellCreated(info CellInfo)
}

// Scheduler is the process-wide notification-scheduling hook, invoked
// per listener at notify time. listenerID identifies the logical
// listener, enabling deduplication when many cells change together. An
// implementation decides when (and whether) to run notify.
type Scheduler interface {
	Schedule(listenerID uint64, notify func())
}

type observerBox struct{ obs Observer }
type schedulerBox struct{ sched Scheduler }

var (
	processObserver  atomic.Pointer[observerBox]
	processScheduler atomic.Pointer[schedulerBox]
)

// SetObserver installs the creation hook and returns the previous one.
// Passing nil removes the hook. Absence does not change engine
// behavior.
func SetObserver(o Observer) (previous Observer) {
	old := processObserver.Swap(&observerBox{obs: o})
	if old == nil {
		return nil
	}
	return old.obs
}

// SetScheduler installs the notification-scheduling hook and returns
// the previous one. Passing nil removes the hook, restoring direct
// synchronous delivery.
func SetScheduler(s Scheduler) (previous Scheduler) {
	old := processScheduler.Swap(&schedulerBox{sched: s})
	if old == nil {
		return nil
	}
	return old.sched
}

func currentScheduler() Scheduler {
	if box := processScheduler.Load(); box != nil {
		return box.sched
	}
	return nil
}

func notifyCreated(kind CellKind, key string, meta map[string]any, cell any) {
	box := processObserver.Load()
	if box == nil || box.obs == nil {
		return
	}
	box.obs.CellCreated(CellInfo{Kind: kind, Key: key, Meta: meta, Cell: cell})
}

// dispatchNotify routes one listener notification through the
// process-wide scheduler, or delivers directly when none is installed.
func dispatchNotify(listenerID uint64, notify func()) {
	if s := currentScheduler(); s != nil {
		s.Schedule(listenerID, notify)
		return
	}
	notify()
}
