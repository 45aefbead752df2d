package broadcast

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/sirupsen/logrus"

	"scavengerhunt/internal/metrics"
)

// Message is an envelope encoded once per publish and shared by every sink.
// On the wire it is {"t": kind, kind: payload}.
type Message struct {
	Kind string
	Data []byte
}

func Encode(kind string, payload any) (Message, error) {
	data, err := json.Marshal(map[string]any{"t": kind, kind: payload})
	if err != nil {
		return Message{}, fmt.Errorf("encode %s: %w", kind, err)
	}
	return Message{Kind: kind, Data: data}, nil
}

// Sink is one connected subscriber. Deliver must not block; a returned error
// means the subscriber is gone.
type Sink interface {
	Deliver(msg Message) error
}

// Hub is the registry of live subscribers, each tied to the player it joined as.
type Hub struct {
	mu      sync.Mutex
	sinks   map[Sink]string
	players map[string]int // live sinks per player
	leave   func(playerID string)
	log     logrus.FieldLogger
	metrics metrics.Collector
}

func NewHub(log logrus.FieldLogger, m metrics.Collector) *Hub {
	if log == nil {
		log = logrus.StandardLogger()
	}
	if m == nil {
		m = metrics.NoOp{}
	}
	return &Hub{
		sinks:   make(map[Sink]string),
		players: make(map[string]int),
		leave:   func(string) {},
		log:     log.WithField("component", "broadcast"),
		metrics: m,
	}
}

// SetLeaveFunc sets what runs when a subscriber goes away.
func (h *Hub) SetLeaveFunc(fn func(playerID string)) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.leave = fn
}

func (h *Hub) Subscribe(s Sink, playerID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.sinks[s]; ok {
		return
	}
	h.sinks[s] = playerID
	h.players[playerID]++
	h.metrics.SubscriberAdded()
	h.log.WithField("player_id", playerID).Debug("subscribed")
}

// removeLocked drops s and reports whether it was its player's last sink.
func (h *Hub) removeLocked(s Sink, playerID string) bool {
	delete(h.sinks, s)
	h.metrics.SubscriberRemoved()
	h.players[playerID]--
	if h.players[playerID] > 0 {
		return false
	}
	delete(h.players, playerID)
	return true
}

// Unsubscribe removes s. When s was the last sink for its player, the player
// is removed from the round too. Removing a sink that is not registered does
// nothing.
func (h *Hub) Unsubscribe(s Sink) {
	h.mu.Lock()
	playerID, ok := h.sinks[s]
	last := false
	if ok {
		last = h.removeLocked(s, playerID)
	}
	leave := h.leave
	h.mu.Unlock()

	if !ok {
		return
	}
	h.log.WithFields(logrus.Fields{"player_id": playerID, "last": last}).Debug("unsubscribed")
	if last {
		leave(playerID)
	}
}

// Publish delivers payload to every subscriber. A sink that fails is dropped
// without affecting delivery to the others, and its player is removed once
// no other sink is attached to it.
func (h *Hub) Publish(kind string, payload any) {
	msg, err := Encode(kind, payload)
	if err != nil {
		h.log.WithError(err).Error("dropping broadcast")
		return
	}

	h.mu.Lock()
	var gone []string
	for s, playerID := range h.sinks {
		if err := s.Deliver(msg); err != nil {
			h.metrics.SinkDropped()
			h.log.WithError(err).WithField("player_id", playerID).Warn("dropping subscriber")
			if h.removeLocked(s, playerID) {
				gone = append(gone, playerID)
			}
		}
	}
	leave := h.leave
	h.mu.Unlock()

	// Publish usually runs under the round lock, and leave takes it again.
	for _, playerID := range gone {
		go leave(playerID)
	}
}

func (h *Hub) Count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.sinks)
}
