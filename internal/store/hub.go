package store

import (
	"context"
	"sync"
)

// Hub fans "owner changed" signals out to in-process listeners. Signals are
// coalesced: a listener that has not drained its channel receives one.
type Hub struct {
	mu        sync.Mutex
	nextID    uint64
	listeners map[string]map[uint64]chan struct{}
}

func NewHub() *Hub {
	return &Hub{listeners: make(map[string]map[uint64]chan struct{})}
}

// Listen registers a listener for ownerID. The returned func unregisters it
// and may be called more than once.
func (h *Hub) Listen(ownerID string) (<-chan struct{}, func()) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.nextID++
	id := h.nextID
	ch := make(chan struct{}, 1)
	if h.listeners[ownerID] == nil {
		h.listeners[ownerID] = make(map[uint64]chan struct{})
	}
	h.listeners[ownerID][id] = ch

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			h.mu.Lock()
			defer h.mu.Unlock()
			delete(h.listeners[ownerID], id)
			if len(h.listeners[ownerID]) == 0 {
				delete(h.listeners, ownerID)
			}
		})
	}
}

// Notify implements Notifier.
func (h *Hub) Notify(_ context.Context, c Change) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, ch := range h.listeners[c.OwnerID] {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}

// Listeners returns how many listeners are registered for ownerID.
func (h *Hub) Listeners(ownerID string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.listeners[ownerID])
}

// TotalListeners returns the number of listeners across all owners.
func (h *Hub) TotalListeners() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	n := 0
	for _, set := range h.listeners {
		n += len(set)
	}
	return n
}
