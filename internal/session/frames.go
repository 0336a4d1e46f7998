package session

import "sync"

// frameQueue collects frame callbacks until the next display refresh
type frameQueue struct {
	mu      sync.Mutex
	next    uint64
	pending map[uint64]func()
}

func newFrameQueue() *frameQueue {
	return &frameQueue{pending: make(map[uint64]func())}
}

// RequestFrame queues callback for the next refresh
func (q *frameQueue) RequestFrame(callback func()) func() {
	q.mu.Lock()
	defer q.mu.Unlock()

	id := q.next
	q.next++
	q.pending[id] = callback

	return func() {
		q.mu.Lock()
		defer q.mu.Unlock()
		delete(q.pending, id)
	}
}

// fire runs every queued callback. Callbacks may queue new ones for the following refresh.
func (q *frameQueue) fire() int {
	q.mu.Lock()
	pending := q.pending
	q.pending = make(map[uint64]func())
	q.mu.Unlock()

	for _, cb := range pending {
		cb()
	}
	return len(pending)
}

// Len returns the number of queued callbacks
func (q *frameQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.pending)
}
