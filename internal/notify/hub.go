// Package notify fans record change notifications out to subscribers.
package notify

import (
	"sync"

	"github.com/rs/zerolog"
	"github.com/the-nook/nook-api/internal/models"
)

const defaultBuffer = 16

// Subscription receives changes for a single record until closed
type Subscription struct {
	C <-chan models.Change

	ch   chan models.Change
	key  string
	hub  *Hub
	once sync.Once
}

// Close stops delivery and closes C. Safe to call more than once.
func (s *Subscription) Close() {
	s.once.Do(func() {
		s.hub.remove(s)
	})
}

// Hub routes published changes to subscriptions keyed by collection and id
type Hub struct {
	mu     sync.RWMutex
	subs   map[string]map[*Subscription]struct{}
	buffer int
	closed bool
	log    zerolog.Logger
}

// NewHub creates an empty hub
func NewHub(log zerolog.Logger) *Hub {
	return &Hub{
		subs:   make(map[string]map[*Subscription]struct{}),
		buffer: defaultBuffer,
		log:    log.With().Str("component", "notify").Logger(),
	}
}

func key(collection, id string) string {
	return collection + "/" + id
}

// Subscribe registers interest in one record. The caller owns the returned
// subscription and must Close it.
func (h *Hub) Subscribe(collection, id string) *Subscription {
	ch := make(chan models.Change, h.buffer)
	sub := &Subscription{C: ch, ch: ch, key: key(collection, id), hub: h}

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		close(ch)
		return sub
	}
	set, ok := h.subs[sub.key]
	if !ok {
		set = make(map[*Subscription]struct{})
		h.subs[sub.key] = set
	}
	set[sub] = struct{}{}
	return sub
}

// Publish delivers a change to every subscription on its record. A
// subscriber whose buffer is full misses the change.
func (h *Hub) Publish(change models.Change) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for sub := range h.subs[key(change.Collection, change.ID)] {
		select {
		case sub.ch <- change:
		default:
			h.log.Debug().
				Str("collection", change.Collection).
				Str("id", change.ID).
				Msg("Subscriber buffer full, change dropped")
		}
	}
}

// Subscribers returns the number of open subscriptions on a record
func (h *Hub) Subscribers(collection, id string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs[key(collection, id)])
}

// Close closes every open subscription
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for k, set := range h.subs {
		for sub := range set {
			close(sub.ch)
		}
		delete(h.subs, k)
	}
	h.closed = true
}

func (h *Hub) remove(sub *Subscription) {
	h.mu.Lock()
	defer h.mu.Unlock()
	set, ok := h.subs[sub.key]
	if !ok {
		return
	}
	if _, ok := set[sub]; !ok {
		return
	}
	delete(set, sub)
	close(sub.ch)
	if len(set) == 0 {
		delete(h.subs, sub.key)
	}
}
