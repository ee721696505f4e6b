// Package eventstest records published events for assertions.
package eventstest

import (
	"context"
	"sync"
)

type Event struct {
	RoutingKey string
	Payload    interface{}
}

// Recorder implements events.Publisher. Set Err to make Publish fail.
type Recorder struct {
	mu     sync.Mutex
	events []Event
	Err    error
}

func (r *Recorder) Publish(_ context.Context, routingKey string, payload interface{}) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Err != nil {
		return r.Err
	}
	r.events = append(r.events, Event{RoutingKey: routingKey, Payload: payload})
	return nil
}

func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Event(nil), r.events...)
}

func (r *Recorder) Keys() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	keys := make([]string, len(r.events))
	for i, e := range r.events {
		keys[i] = e.RoutingKey
	}
	return keys
}
