// Package realtime is the client side of the booking socket: a connection that reconnects
// with backoff and a registry that fans inbound events out to scoped subscriptions.
package realtime

import (
	"sync"

	"pawhub/models"
)

// Handler receives one inbound event.
type Handler func(models.RealtimeEvent)

// Registry routes events to subscribers by event type. Any number of owners may subscribe to
// the same type; each owner holds its own Subscription.
type Registry struct {
	mu   sync.RWMutex
	next uint64
	subs map[uint64]*Subscription
}

func NewRegistry() *Registry {
	return &Registry{subs: make(map[uint64]*Subscription)}
}

// Subscription is a registered handler. Close releases it; calling Close more than once is
// harmless.
type Subscription struct {
	id      uint64
	types   map[string]struct{}
	handler Handler
	reg     *Registry
	once    sync.Once
}

// Subscribe registers h for the given event types, or for every type when none are given.
func (r *Registry) Subscribe(h Handler, types ...string) *Subscription {
	sub := &Subscription{handler: h, reg: r, types: make(map[string]struct{}, len(types))}
	for _, t := range types {
		sub.types[t] = struct{}{}
	}

	r.mu.Lock()
	r.next++
	sub.id = r.next
	r.subs[sub.id] = sub
	r.mu.Unlock()
	return sub
}

func (s *Subscription) Close() {
	if s == nil {
		return
	}
	s.once.Do(func() {
		s.reg.mu.Lock()
		delete(s.reg.subs, s.id)
		s.reg.mu.Unlock()
	})
}

func (s *Subscription) wants(eventType string) bool {
	if len(s.types) == 0 {
		return true
	}
	_, ok := s.types[eventType]
	return ok
}

// Dispatch delivers ev to every matching subscription. Handlers run outside the lock so they
// may close their own subscription.
func (r *Registry) Dispatch(ev models.RealtimeEvent) {
	r.mu.RLock()
	targets := make([]Handler, 0, len(r.subs))
	for _, s := range r.subs {
		if s.wants(ev.Type) {
			targets = append(targets, s.handler)
		}
	}
	r.mu.RUnlock()

	for _, h := range targets {
		h(ev)
	}
}

// Len is the number of live subscriptions.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.subs)
}
