package broadcast

import (
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"ridedispatch/internal/domain"
	"ridedispatch/internal/metrics"
)

const (
	writeTimeout = 5 * time.Second
	pingInterval = 30 * time.Second
)

// Session bridges hub topics to one websocket client. Clients join their own
// rider/driver topic at connect time and may join or leave ride-scoped topics
// with {"action": "join_ride", "ride_id": "..."} messages.
type Session struct {
	hub    *Hub
	conn   *websocket.Conn
	logger *slog.Logger

	mu     sync.Mutex
	subs   map[string]*Subscription
	events chan domain.Event
	done   chan struct{}
	closed bool
}

// NewSession creates a session subscribed to the given topics.
func NewSession(hub *Hub, conn *websocket.Conn, logger *slog.Logger, topics ...string) *Session {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Session{
		hub:    hub,
		conn:   conn,
		logger: logger,
		subs:   make(map[string]*Subscription),
		events: make(chan domain.Event, 2*subscriptionBuffer),
		done:   make(chan struct{}),
	}
	for _, topic := range topics {
		s.join(topic)
	}
	return s
}

// Run pumps events to the client and processes control messages until the
// connection drops. It blocks until the session ends.
func (s *Session) Run() {
	metrics.WSConnections.Inc()
	defer metrics.WSConnections.Dec()
	defer s.Close()

	go s.writeLoop()
	s.readLoop()
}

// Close tears down all subscriptions and the connection. Safe to call twice.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true

	for _, sub := range s.subs {
		sub.Close()
	}
	close(s.done)
	_ = s.conn.Close()
}

// join subscribes to a topic and forwards its events into the session queue.
func (s *Session) join(topic string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	if _, ok := s.subs[topic]; ok {
		return
	}

	sub := s.hub.Subscribe(topic)
	s.subs[topic] = sub

	go func() {
		for ev := range sub.C {
			select {
			case s.events <- ev:
			default:
				metrics.EventsDropped.Inc()
			}
		}
	}()
}

// leave drops a topic subscription.
func (s *Session) leave(topic string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if sub, ok := s.subs[topic]; ok {
		sub.Close()
		delete(s.subs, topic)
	}
}

func (s *Session) writeLoop() {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.done:
			return
		case ev := <-s.events:
			_ = s.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := s.conn.WriteJSON(ev); err != nil {
				s.logger.Debug("websocket write failed", "err", err)
				s.Close()
				return
			}
		case <-ticker.C:
			_ = s.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := s.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				s.Close()
				return
			}
		}
	}
}

// clientMessage is the control frame clients send to manage ride topics.
type clientMessage struct {
	Action string `json:"action"`
	RideID string `json:"ride_id"`
}

func (s *Session) readLoop() {
	for {
		var msg clientMessage
		if err := s.conn.ReadJSON(&msg); err != nil {
			return
		}

		switch msg.Action {
		case "join_ride":
			if msg.RideID != "" {
				s.join(domain.TopicRide(msg.RideID))
			}
		case "leave_ride":
			if msg.RideID != "" {
				s.leave(domain.TopicRide(msg.RideID))
			}
		}
	}
}
