package sinks

import (
	"context"
	"sync"

	"github.com/Fuyucch1/Vinted-Notifications/app/pipeline"
)

// Queue is a bounded FIFO between the dispatcher and one sink's delivery
// loop. When full, the oldest pending notification is dropped to make
// room: for a listings notifier the newest events are the ones worth
// keeping.
type Queue struct {
	mu       sync.Mutex
	entries  []pipeline.Notification
	capacity int
	dropped  int64
	wake     chan struct{}
}

func NewQueue(capacity int) *Queue {
	return &Queue{
		capacity: capacity,
		wake:     make(chan struct{}, 1),
	}
}

// Enqueue never blocks. It reports false only when an older notification
// had to be dropped to accept this one.
func (q *Queue) Enqueue(n pipeline.Notification) bool {
	q.mu.Lock()

	accepted := true
	if len(q.entries) >= q.capacity {
		q.entries = q.entries[1:]
		q.dropped++
		accepted = false
	}
	q.entries = append(q.entries, n)
	q.mu.Unlock()

	select {
	case q.wake <- struct{}{}:
	default:
	}

	return accepted
}

// Dequeue blocks until a notification is available or the context ends.
func (q *Queue) Dequeue(ctx context.Context) (pipeline.Notification, error) {
	for {
		q.mu.Lock()
		if len(q.entries) > 0 {
			n := q.entries[0]
			q.entries = q.entries[1:]
			q.mu.Unlock()
			return n, nil
		}
		q.mu.Unlock()

		select {
		case <-ctx.Done():
			return pipeline.Notification{}, ctx.Err()
		case <-q.wake:
		}
	}
}

func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.entries)
}

func (q *Queue) Dropped() int64 {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.dropped
}
