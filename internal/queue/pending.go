package queue

import (
	"container/heap"
	"context"
	"sync"
	"time"
)

// PendingEntry is one dispatch record in the pending queue. Entries are
// intentionally decoupled from task state: an entry may outlive its task
// (after cancellation or re-prioritization), in which case the popping
// worker consults the Store and discards it.
type PendingEntry struct {
	Priority int
	ID       string
	seq      uint64
}

// PendingQueue orders pending task IDs for dispatch: higher priority first,
// submission order among equal priorities. Pop blocks with a timeout so
// workers can periodically observe stop and pause signals.
type PendingQueue struct {
	mu      sync.Mutex
	entries entryHeap
	seq     uint64
	wake    chan struct{}
}

// NewPendingQueue constructs an empty pending queue.
func NewPendingQueue() *PendingQueue {
	return &PendingQueue{wake: make(chan struct{}, 1)}
}

// Push enqueues a (priority, id) pair. Re-prioritization is a fresh push;
// the stale entry for the old priority is tolerated and discarded on pop.
func (q *PendingQueue) Push(priority int, id string) {
	q.mu.Lock()
	q.seq++
	heap.Push(&q.entries, PendingEntry{Priority: priority, ID: id, seq: q.seq})
	q.mu.Unlock()
	q.signal()
}

// Requeue puts a popped entry back unchanged, preserving its original
// submission order. Used by workers that popped while the engine is paused.
func (q *PendingQueue) Requeue(entry PendingEntry) {
	q.mu.Lock()
	heap.Push(&q.entries, entry)
	q.mu.Unlock()
	q.signal()
}

// Pop removes the highest-priority entry, blocking up to timeout for one to
// arrive. The second return is false on timeout or context cancellation.
func (q *PendingQueue) Pop(ctx context.Context, timeout time.Duration) (PendingEntry, bool) {
	deadline := time.NewTimer(timeout)
	defer deadline.Stop()

	for {
		q.mu.Lock()
		if q.entries.Len() > 0 {
			entry := heap.Pop(&q.entries).(PendingEntry)
			remaining := q.entries.Len()
			q.mu.Unlock()
			if remaining > 0 {
				q.signal()
			}
			return entry, true
		}
		q.mu.Unlock()

		select {
		case <-ctx.Done():
			return PendingEntry{}, false
		case <-deadline.C:
			return PendingEntry{}, false
		case <-q.wake:
		}
	}
}

// Len returns the number of queued entries, stale ones included.
func (q *PendingQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.entries.Len()
}

func (q *PendingQueue) signal() {
	select {
	case q.wake <- struct{}{}:
	default:
	}
}

type entryHeap []PendingEntry

func (h entryHeap) Len() int { return len(h) }

func (h entryHeap) Less(i, j int) bool {
	if h[i].Priority != h[j].Priority {
		return h[i].Priority > h[j].Priority
	}
	return h[i].seq < h[j].seq
}

func (h entryHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *entryHeap) Push(x any) {
	*h = append(*h, x.(PendingEntry))
}

func (h *entryHeap) Pop() any {
	old := *h
	n := len(old)
	entry := old[n-1]
	*h = old[:n-1]
	return entry
}
