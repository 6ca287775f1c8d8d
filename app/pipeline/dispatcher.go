package pipeline

import (
	"context"
	"log/slog"
	"sync"
)

// Dispatcher fans each notification out to every registered sink in
// arrival order. Sinks come and go while dispatch runs; a sink whose
// queue is full drops that event and never stalls the others.
type Dispatcher struct {
	events <-chan Notification
	mu     sync.RWMutex
	sinks  map[string]Sink
}

func NewDispatcher(events <-chan Notification) *Dispatcher {
	return &Dispatcher{
		events: events,
		sinks:  make(map[string]Sink),
	}
}

func (d *Dispatcher) Register(sink Sink) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, ok := d.sinks[sink.Name()]; ok {
		return
	}
	d.sinks[sink.Name()] = sink
	slog.Info("Sink registered", "sink", sink.Name())
}

func (d *Dispatcher) Deregister(name string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, ok := d.sinks[name]; !ok {
		return
	}
	delete(d.sinks, name)
	slog.Info("Sink deregistered", "sink", name)
}

func (d *Dispatcher) IsRegistered(name string) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	_, ok := d.sinks[name]
	return ok
}

func (d *Dispatcher) RegisteredSinks() []string {
	d.mu.RLock()
	defer d.mu.RUnlock()

	names := make([]string, 0, len(d.sinks))
	for name := range d.sinks {
		names = append(names, name)
	}
	return names
}

func (d *Dispatcher) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case n := <-d.events:
			d.Dispatch(n)
		}
	}
}

// Dispatch offers one event to every currently registered sink. Enqueue
// is non-blocking per the Sink contract, so one dead consumer cannot
// block delivery to the rest.
func (d *Dispatcher) Dispatch(n Notification) {
	d.mu.RLock()
	sinks := make([]Sink, 0, len(d.sinks))
	for _, sink := range d.sinks {
		sinks = append(sinks, sink)
	}
	d.mu.RUnlock()

	for _, sink := range sinks {
		if !sink.Enqueue(n) {
			slog.Warn("Sink rejected notification", "sink", sink.Name(), "title", n.Title)
		}
	}
}
