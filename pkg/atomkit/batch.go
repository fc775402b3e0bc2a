package atomkit

import (
	"sync"

	"github.com/eapache/queue"
)

// CoalescingScheduler is a Scheduler that queues notifications instead
// of delivering them inline, deduplicating by listener ID so a listener
// subscribed to many cells changing together is notified once per
// flush. Delivery order is FIFO by first enqueue.
//
// Install it for the duration of a batch of updates:
//
//	sched := NewCoalescingScheduler()
//	prev := SetScheduler(sched)
//	a.Set(1)
//	b.Set(2)
//	SetScheduler(prev)
//	sched.Flush()
type CoalescingScheduler struct {
	mu     sync.Mutex
	queue  *queue.Queue
	queued map[uint64]struct{}
}

type queuedNotify struct {
	listenerID uint64
	notify     func()
}

// NewCoalescingScheduler returns an empty scheduler.
func NewCoalescingScheduler() *CoalescingScheduler {
	return &CoalescingScheduler{
		queue:  queue.New(),
		queued: make(map[uint64]struct{}),
	}
}

// Schedule implements Scheduler. A listener already queued and not yet
// flushed is not queued again.
func (s *CoalescingScheduler) Schedule(listenerID uint64, notify func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, dup := s.queued[listenerID]; dup {
		return
	}
	s.queued[listenerID] = struct{}{}
	s.queue.Add(queuedNotify{listenerID: listenerID, notify: notify})
}

// Flush delivers all queued notifications in FIFO order and returns the
// number delivered. Notifications scheduled during the flush (for
// example by derived cells recomputing) are delivered in the same
// flush.
func (s *CoalescingScheduler) Flush() int {
	delivered := 0
	for {
		s.mu.Lock()
		if s.queue.Length() == 0 {
			s.mu.Unlock()
			return delivered
		}
		item := s.queue.Remove().(queuedNotify)
		delete(s.queued, item.listenerID)
		s.mu.Unlock()

		item.notify()
		delivered++
	}
}

// Pending returns the number of queued notifications.
func (s *CoalescingScheduler) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.queue.Length()
}
