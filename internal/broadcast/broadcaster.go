package broadcast

import (
	"log/slog"
	"sync"

	"ridedispatch/internal/domain"
	"ridedispatch/internal/metrics"
)

// subscriptionBuffer bounds how far a subscriber may lag before events to it
// are dropped.
const subscriptionBuffer = 16

// Broadcaster fans lifecycle events out to topic subscribers. Delivery is
// at-most-once and best-effort: no subscriber, no delivery. Within one ride,
// events are published synchronously after each committed transition, so
// subscribers observe them in commit order.
type Broadcaster interface {
	Publish(topic string, event domain.Event)
	Subscribe(topic string) *Subscription
}

// Hub is the in-process Broadcaster implementation.
type Hub struct {
	mu     sync.RWMutex
	topics map[string]map[*Subscription]struct{}
	logger *slog.Logger
}

// NewHub creates a new Hub.
func NewHub(logger *slog.Logger) *Hub {
	if logger == nil {
		logger = slog.Default()
	}
	return &Hub{
		topics: make(map[string]map[*Subscription]struct{}),
		logger: logger,
	}
}

// Subscription is one subscriber's membership in a topic. Events arrive on C;
// Close removes the membership and closes the channel.
type Subscription struct {
	Topic string
	C     chan domain.Event

	hub  *Hub
	once sync.Once
}

// Subscribe registers a new subscriber on the topic.
func (h *Hub) Subscribe(topic string) *Subscription {
	sub := &Subscription{
		Topic: topic,
		C:     make(chan domain.Event, subscriptionBuffer),
		hub:   h,
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.topics[topic] == nil {
		h.topics[topic] = make(map[*Subscription]struct{})
	}
	h.topics[topic][sub] = struct{}{}
	return sub
}

// Close removes the subscription from its topic. Safe to call twice.
func (s *Subscription) Close() {
	s.once.Do(func() {
		s.hub.mu.Lock()
		if subs, ok := s.hub.topics[s.Topic]; ok {
			delete(subs, s)
			if len(subs) == 0 {
				delete(s.hub.topics, s.Topic)
			}
		}
		s.hub.mu.Unlock()
		close(s.C)
	})
}

// Publish delivers the event to every current subscriber of the topic
// without blocking. A full subscriber channel drops the event.
func (h *Hub) Publish(topic string, event domain.Event) {
	metrics.EventsPublished.WithLabelValues(string(event.Type)).Inc()

	h.mu.RLock()
	defer h.mu.RUnlock()

	subs, ok := h.topics[topic]
	if !ok || len(subs) == 0 {
		metrics.EventsDropped.Inc()
		return
	}

	for sub := range subs {
		select {
		case sub.C <- event:
		default:
			metrics.EventsDropped.Inc()
			h.logger.Warn("dropping event for slow subscriber",
				"topic", topic, "type", event.Type)
		}
	}
}

var _ Broadcaster = (*Hub)(nil)
