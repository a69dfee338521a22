// Package matchqueue is the FIFO handoff between the order book and the
// proof worker pool, adapted from the mempool's three-queue push/drain
// pattern down to a single queue of claimed matches.
package matchqueue

import (
	"sync"

	"github.com/duskpool/core/pkg/orderbook"
)

// Queue is a mutex-protected FIFO of matches awaiting proof generation.
// Notify carries a wakeup signal to idle proof workers; it is buffered so
// Push never blocks on a worker that hasn't drained it yet.
type Queue struct {
	mu      sync.Mutex
	pending []orderbook.Match
	Notify  chan struct{}
}

// New constructs an empty queue.
func New() *Queue {
	return &Queue{Notify: make(chan struct{}, 1)}
}

// Push appends matches to the tail of the queue, preserving emission order,
// and wakes one idle worker if any is waiting on Notify.
func (q *Queue) Push(matches ...orderbook.Match) {
	if len(matches) == 0 {
		return
	}
	q.mu.Lock()
	q.pending = append(q.pending, matches...)
	q.mu.Unlock()

	select {
	case q.Notify <- struct{}{}:
	default:
	}
}

// Pop removes and returns the oldest match, or false if the queue is empty.
func (q *Queue) Pop() (orderbook.Match, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.pending) == 0 {
		return orderbook.Match{}, false
	}
	m := q.pending[0]
	q.pending = q.pending[1:]
	return m, true
}

// Drain removes and returns every pending match in FIFO order, leaving the
// queue empty. Used by the administrative processPendingMatches trigger.
func (q *Queue) Drain() []orderbook.Match {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := q.pending
	q.pending = nil
	return out
}

// Len reports the number of matches currently queued.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.pending)
}
