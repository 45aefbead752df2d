package session

import (
	"context"
	"fmt"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/sirupsen/logrus"

	"scavengerhunt/internal/broadcast"
	"scavengerhunt/internal/players"
	"scavengerhunt/internal/round"
)

const (
	KindPlayer = "player"

	defaultQueue = 32
)

type Engine interface {
	Join(name string) players.Player
	Rejoin(id, name string) players.Player
	Snapshot() round.Round
}

type Registry interface {
	Subscribe(s broadcast.Sink, playerID string)
	Unsubscribe(s broadcast.Sink)
}

// Writer sends one encoded message to the client.
type Writer interface {
	WriteMessage(ctx context.Context, data []byte) error
}

type Config struct {
	Heartbeat time.Duration
	Queue     int
}

// Manager runs Subscription Sessions against a shared engine and hub.
type Manager struct {
	engine Engine
	hub    Registry
	clock  clockwork.Clock
	log    logrus.FieldLogger
	config Config
}

func NewManager(engine Engine, hub Registry, clock clockwork.Clock, log logrus.FieldLogger, cfg Config) *Manager {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	if log == nil {
		log = logrus.StandardLogger()
	}
	if cfg.Heartbeat <= 0 {
		cfg.Heartbeat = 5 * time.Second
	}
	if cfg.Queue <= 0 {
		cfg.Queue = defaultQueue
	}
	return &Manager{
		engine: engine,
		hub:    hub,
		clock:  clock,
		log:    log.WithField("component", "session"),
		config: cfg,
	}
}

// Serve joins name to the round and streams to w until ctx is done or a
// write fails. On return the player has been removed from the round.
// A non-empty playerID reattaches under that id.
func (m *Manager) Serve(ctx context.Context, w Writer, name, playerID string) error {
	var p players.Player
	if playerID != "" {
		p = m.engine.Rejoin(playerID, name)
	} else {
		p = m.engine.Join(name)
	}
	log := m.log.WithFields(logrus.Fields{"player_id": p.ID, "name": p.Name})

	out := NewOutbox(m.config.Queue)
	m.hub.Subscribe(out, p.ID)
	defer func() {
		out.Close()
		m.hub.Unsubscribe(out)
		log.Info("session closed")
	}()
	log.Info("session opened")

	if err := m.send(ctx, w, KindPlayer, p); err != nil {
		return err
	}
	if err := m.sendSnapshot(ctx, w); err != nil {
		return err
	}

	heartbeat := m.clock.NewTicker(m.config.Heartbeat)
	defer heartbeat.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-heartbeat.Chan():
			if err := m.sendSnapshot(ctx, w); err != nil {
				return err
			}
		case <-out.Notify():
			if msg, ok := out.Latest(); ok {
				if err := w.WriteMessage(ctx, msg.Data); err != nil {
					return fmt.Errorf("write round: %w", err)
				}
			}
		case msg := <-out.Events():
			if err := w.WriteMessage(ctx, msg.Data); err != nil {
				return fmt.Errorf("write %s: %w", msg.Kind, err)
			}
		}
	}
}

func (m *Manager) sendSnapshot(ctx context.Context, w Writer) error {
	return m.send(ctx, w, round.KindRound, m.engine.Snapshot())
}

func (m *Manager) send(ctx context.Context, w Writer, kind string, payload any) error {
	msg, err := broadcast.Encode(kind, payload)
	if err != nil {
		return err
	}
	if err := w.WriteMessage(ctx, msg.Data); err != nil {
		return fmt.Errorf("write %s: %w", kind, err)
	}
	return nil
}
