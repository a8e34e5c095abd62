package supervisor

import (
	"sync"

	"github.com/ethanbaker/transcribe/pkg/protocol"
)

// eventQueue is an unbounded ordered buffer between the decoder
// goroutine and the run's event channel. The decoder must never block
// on a slow consumer (a stalled consumer would back up the pipe and
// stall the worker), so pushes always succeed and a pump goroutine
// drains toward the subscriber at its own pace.
type eventQueue struct {
	mu     sync.Mutex
	cond   *sync.Cond
	items  []protocol.Event
	closed bool
}

func newEventQueue() *eventQueue {
	q := &eventQueue{}
	q.cond = sync.NewCond(&q.mu)
	return q
}

// push appends one event; never blocks
func (q *eventQueue) push(ev protocol.Event) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return
	}
	q.items = append(q.items, ev)
	q.cond.Signal()
}

// pop removes the next event in order, blocking until one is
// available. ok is false once the queue is closed and drained.
func (q *eventQueue) pop() (protocol.Event, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	for len(q.items) == 0 && !q.closed {
		q.cond.Wait()
	}
	if len(q.items) == 0 {
		return protocol.Event{}, false
	}
	ev := q.items[0]
	q.items = q.items[1:]
	return ev, true
}

// close marks the queue finished; pending items are still popped
func (q *eventQueue) close() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.closed = true
	q.cond.Broadcast()
}
