package events

import (
	"context"
	"slices"
	"sync"

	log "github.com/sirupsen/logrus"

	"floor_service/internal/floor"
)

// Hub fans committed status changes out to subscribers. Publish never
// blocks: a subscriber with a full buffer misses the event.
type Hub struct {
	mu          sync.RWMutex
	subscribers []subscriber
	closed      bool
}

type subscriber struct {
	ch    chan floor.StatusChange
	kinds []floor.EntityKind
}

func NewHub() *Hub {
	return &Hub{}
}

// Subscribe returns a channel receiving changes for kinds, or for every kind
// when none are given.
func (h *Hub) Subscribe(buffer int, kinds ...floor.EntityKind) <-chan floor.StatusChange {
	h.mu.Lock()
	defer h.mu.Unlock()

	if buffer <= 0 {
		buffer = 10
	}
	ch := make(chan floor.StatusChange, buffer)
	if h.closed {
		close(ch)
		return ch
	}
	h.subscribers = append(h.subscribers, subscriber{ch: ch, kinds: kinds})
	return ch
}

func (h *Hub) Publish(ctx context.Context, change floor.StatusChange) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for _, sub := range h.subscribers {
		if len(sub.kinds) > 0 && !slices.Contains(sub.kinds, change.Kind) {
			continue
		}
		select {
		case sub.ch <- change:
		default:
			log.WithFields(log.Fields{"kind": change.Kind, "id": change.ID}).Warn("status subscriber full, event dropped")
		}
	}
}

// Close closes every subscriber channel; later publishes are dropped.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return
	}
	h.closed = true
	for _, sub := range h.subscribers {
		close(sub.ch)
	}
	h.subscribers = nil
}

// Handler consumes one status change.
type Handler interface {
	Handle(ctx context.Context, change floor.StatusChange) error
}

// Run feeds changes to h until ctx is done or changes is closed. Handler
// errors are logged and the loop continues.
func Run(ctx context.Context, name string, changes <-chan floor.StatusChange, h Handler) {
	for {
		select {
		case <-ctx.Done():
			return
		case change, ok := <-changes:
			if !ok {
				return
			}
			if err := h.Handle(ctx, change); err != nil {
				log.WithError(err).WithFields(log.Fields{
					"subscriber": name,
					"kind":       change.Kind,
					"id":         change.ID,
				}).Error("status change handler failed")
			}
		}
	}
}
