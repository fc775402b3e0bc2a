package atomkit

import (
	"testing"
)

func TestCoalescingSchedulerDedupesByListener(t *testing.T) {
	sched := NewCoalescingScheduler()
	prev := SetScheduler(sched)
	defer SetScheduler(prev)

	a := NewAtom(1)
	b := NewAtom(2)
	computes := 0
	d := NewDerived(func(c *Ctx) int {
		computes++
		return Get(c, a) + Get(c, b)
	})
	d.Value()
	computes = 0

	// Both writes land before any notification is delivered
	a.Set(10)
	b.Set(20)
	if computes != 0 {
		t.Fatalf("expected notifications held until flush, got %d computes", computes)
	}

	SetScheduler(prev)
	sched.Flush()
	if computes != 1 {
		t.Errorf("expected one coalesced recompute for two writes, got %d", computes)
	}
	if d.Value() != 30 {
		t.Errorf("expected 30, got %d", d.Value())
	}
}

func TestCoalescingSchedulerFIFO(t *testing.T) {
	sched := NewCoalescingScheduler()
	var order []string

	sched.Schedule(1, func() { order = append(order, "first") })
	sched.Schedule(2, func() { order = append(order, "second") })
	sched.Schedule(1, func() { order = append(order, "duplicate") })

	if got := sched.Pending(); got != 2 {
		t.Fatalf("expected 2 queued after dedupe, got %d", got)
	}
	if delivered := sched.Flush(); delivered != 2 {
		t.Errorf("expected 2 deliveries, got %d", delivered)
	}
	if len(order) != 2 || order[0] != "first" || order[1] != "second" {
		t.Errorf("expected FIFO delivery without the duplicate, got %v", order)
	}
}

func TestCoalescingSchedulerRequeueDuringFlush(t *testing.T) {
	sched := NewCoalescingScheduler()
	runs := 0
	sched.Schedule(1, func() {
		runs++
		if runs == 1 {
			// A listener notified again mid-flush queues once more
			sched.Schedule(1, func() { runs++ })
		}
	})

	if delivered := sched.Flush(); delivered != 2 {
		t.Errorf("expected the re-notified listener delivered in the same flush, got %d", delivered)
	}
	if runs != 2 {
		t.Errorf("expected 2 runs, got %d", runs)
	}
}
