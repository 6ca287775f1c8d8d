package sinks

import (
	"context"
	"testing"
	"time"

	"github.com/Fuyucch1/Vinted-Notifications/app/pipeline"
)

func TestQueueFIFO(t *testing.T) {
	q := NewQueue(10)

	q.Enqueue(pipeline.Notification{Title: "first"})
	q.Enqueue(pipeline.Notification{Title: "second"})

	ctx := context.Background()

	n, err := q.Dequeue(ctx)
	if err != nil {
		t.Fatalf("Expected dequeue to succeed, got %v", err)
	}
	if n.Title != "first" {
		t.Errorf("Expected 'first', got '%s'", n.Title)
	}

	n, _ = q.Dequeue(ctx)
	if n.Title != "second" {
		t.Errorf("Expected 'second', got '%s'", n.Title)
	}
}

func TestQueueDropsOldestWhenFull(t *testing.T) {
	q := NewQueue(2)

	q.Enqueue(pipeline.Notification{Title: "a"})
	q.Enqueue(pipeline.Notification{Title: "b"})

	if accepted := q.Enqueue(pipeline.Notification{Title: "c"}); accepted {
		t.Error("Expected enqueue on a full queue to report a drop")
	}

	if q.Dropped() != 1 {
		t.Errorf("Expected 1 dropped notification, got %d", q.Dropped())
	}

	n, _ := q.Dequeue(context.Background())
	if n.Title != "b" {
		t.Errorf("Expected oldest entry 'a' to be dropped, got head '%s'", n.Title)
	}
}

func TestQueueDequeueBlocksUntilEnqueue(t *testing.T) {
	q := NewQueue(5)

	done := make(chan pipeline.Notification, 1)
	go func() {
		n, err := q.Dequeue(context.Background())
		if err == nil {
			done <- n
		}
	}()

	time.Sleep(20 * time.Millisecond)
	q.Enqueue(pipeline.Notification{Title: "late"})

	select {
	case n := <-done:
		if n.Title != "late" {
			t.Errorf("Expected 'late', got '%s'", n.Title)
		}
	case <-time.After(time.Second):
		t.Fatal("Expected blocked dequeue to wake up")
	}
}

func TestQueueDequeueHonorsContext(t *testing.T) {
	q := NewQueue(5)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	if _, err := q.Dequeue(ctx); err == nil {
		t.Error("Expected context error from dequeue on an empty queue")
	}
}
