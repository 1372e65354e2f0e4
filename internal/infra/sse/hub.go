// Package sse fans notifications out to connected Server-Sent Events streams.
package sse

import (
	"encoding/json"
	"fmt"
	"io"
	"sync"
	"time"

	"landten/internal/domain/notification"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

const defaultBuffer = 16

// Event is one SSE frame.
type Event struct {
	Name string
	Data []byte
}

// Hub keeps the live subscribers of each landlord. Delivery is fire-and-forget:
// a subscriber whose buffer is full misses the event.
type Hub struct {
	mu     sync.RWMutex
	subs   map[uuid.UUID]map[*Subscription]struct{}
	buffer int
	log    *logrus.Entry
}

func NewHub(buffer int, log *logrus.Entry) *Hub {
	if buffer <= 0 {
		buffer = defaultBuffer
	}
	return &Hub{
		subs:   make(map[uuid.UUID]map[*Subscription]struct{}),
		buffer: buffer,
		log:    log,
	}
}

// Subscription is one open stream.
type Subscription struct {
	LandlordID uuid.UUID
	ch         chan Event
	hub        *Hub
	once       sync.Once
}

// Events delivers published events until Close.
func (s *Subscription) Events() <-chan Event { return s.ch }

// Close unregisters the subscription. Safe to call more than once.
func (s *Subscription) Close() {
	s.once.Do(func() {
		s.hub.mu.Lock()
		if set, ok := s.hub.subs[s.LandlordID]; ok {
			delete(set, s)
			if len(set) == 0 {
				delete(s.hub.subs, s.LandlordID)
			}
		}
		s.hub.mu.Unlock()
		close(s.ch)
	})
}

func (h *Hub) Subscribe(landlordID uuid.UUID) *Subscription {
	sub := &Subscription{LandlordID: landlordID, ch: make(chan Event, h.buffer), hub: h}
	h.mu.Lock()
	set, ok := h.subs[landlordID]
	if !ok {
		set = make(map[*Subscription]struct{})
		h.subs[landlordID] = set
	}
	set[sub] = struct{}{}
	h.mu.Unlock()
	return sub
}

// Subscribers counts open streams for a landlord.
func (h *Hub) Subscribers(landlordID uuid.UUID) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs[landlordID])
}

type payload struct {
	ID        uuid.UUID     `json:"id"`
	Type      string        `json:"type"`
	Title     string        `json:"title"`
	Message   string        `json:"message"`
	PaymentID uuid.NullUUID `json:"payment_id"`
	TenantID  uuid.NullUUID `json:"tenant_id"`
	CreatedAt string        `json:"created_at"`
}

// Publish pushes n to every live stream of its landlord.
func (h *Hub) Publish(n *notification.Notification) {
	data, err := json.Marshal(payload{
		ID:        n.ID,
		Type:      string(n.Type),
		Title:     n.Title,
		Message:   n.Message,
		PaymentID: n.PaymentID,
		TenantID:  n.TenantID,
		CreatedAt: n.CreatedAt.UTC().Format(time.RFC3339),
	})
	if err != nil {
		h.log.WithError(err).Error("Failed to encode notification event")
		return
	}
	h.Broadcast(n.LandlordID, Event{Name: string(n.Type), Data: data})
}

// Broadcast sends ev to every live stream of landlordID without blocking.
func (h *Hub) Broadcast(landlordID uuid.UUID, ev Event) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for sub := range h.subs[landlordID] {
		select {
		case sub.ch <- ev:
		default:
			h.log.WithField("landlord_id", landlordID).Debug("Subscriber buffer full, dropping event")
		}
	}
}

// Write encodes ev in text/event-stream framing.
func Write(w io.Writer, ev Event) error {
	_, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", ev.Name, ev.Data)
	return err
}
