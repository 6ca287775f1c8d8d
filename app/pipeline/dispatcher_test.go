package pipeline

import (
	"testing"
)

// boundedSink accepts events up to a fixed capacity.
type boundedSink struct {
	name     string
	capacity int
	events   []Notification
}

func (s *boundedSink) Name() string { return s.name }

func (s *boundedSink) Enqueue(n Notification) bool {
	if len(s.events) >= s.capacity {
		return false
	}
	s.events = append(s.events, n)
	return true
}

func TestDispatcher_FanOut(t *testing.T) {
	events := make(chan Notification, 10)
	dispatcher := NewDispatcher(events)

	a := &boundedSink{name: "a", capacity: 10}
	b := &boundedSink{name: "b", capacity: 10}
	dispatcher.Register(a)
	dispatcher.Register(b)

	dispatcher.Dispatch(Notification{Title: "Jacket"})
	dispatcher.Dispatch(Notification{Title: "Shoes"})

	for _, sink := range []*boundedSink{a, b} {
		if len(sink.events) != 2 {
			t.Fatalf("Expected sink %s to receive 2 events, got %d", sink.name, len(sink.events))
		}
		if sink.events[0].Title != "Jacket" || sink.events[1].Title != "Shoes" {
			t.Errorf("Expected arrival order preserved for sink %s, got %v", sink.name, sink.events)
		}
	}
}

func TestDispatcher_FullSinkDoesNotBlockOthers(t *testing.T) {
	events := make(chan Notification, 10)
	dispatcher := NewDispatcher(events)

	full := &boundedSink{name: "full", capacity: 0}
	a := &boundedSink{name: "a", capacity: 10}
	b := &boundedSink{name: "b", capacity: 10}
	dispatcher.Register(full)
	dispatcher.Register(a)
	dispatcher.Register(b)

	dispatcher.Dispatch(Notification{Title: "Jacket"})

	if len(full.events) != 0 {
		t.Error("Full sink should not have accepted the event")
	}
	if len(a.events) != 1 || len(b.events) != 1 {
		t.Errorf("Other sinks must still receive the event: a=%d b=%d", len(a.events), len(b.events))
	}
}

func TestDispatcher_RegisterDeregister(t *testing.T) {
	events := make(chan Notification, 10)
	dispatcher := NewDispatcher(events)

	a := &boundedSink{name: "a", capacity: 10}
	dispatcher.Register(a)
	// Double registration is a no-op
	dispatcher.Register(&boundedSink{name: "a", capacity: 10})

	if !dispatcher.IsRegistered("a") {
		t.Error("Expected sink 'a' to be registered")
	}
	if got := len(dispatcher.RegisteredSinks()); got != 1 {
		t.Errorf("Expected 1 registered sink, got %d", got)
	}

	dispatcher.Dispatch(Notification{Title: "Jacket"})
	if len(a.events) != 1 {
		t.Errorf("Expected original sink to receive the event, got %d", len(a.events))
	}

	dispatcher.Deregister("a")
	if dispatcher.IsRegistered("a") {
		t.Error("Expected sink 'a' to be deregistered")
	}

	dispatcher.Dispatch(Notification{Title: "Shoes"})
	if len(a.events) != 1 {
		t.Error("Deregistered sink must not receive further events")
	}
}
