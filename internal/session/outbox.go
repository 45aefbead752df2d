package session

import (
	"errors"
	"sync"

	"scavengerhunt/internal/broadcast"
	"scavengerhunt/internal/round"
)

var ErrClosed = errors.New("session closed")

// Outbox is the broadcast.Sink for one session. Round snapshots collapse to
// the most recent one; announcements queue and are dropped when the queue
// is full. Deliver never blocks.
type Outbox struct {
	mu     sync.Mutex
	latest *broadcast.Message
	notify chan struct{}
	events chan broadcast.Message
	closed bool
}

func NewOutbox(queue int) *Outbox {
	return &Outbox{
		notify: make(chan struct{}, 1),
		events: make(chan broadcast.Message, queue),
	}
}

func (o *Outbox) Deliver(msg broadcast.Message) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.closed {
		return ErrClosed
	}

	if msg.Kind == round.KindRound {
		o.latest = &msg
		select {
		case o.notify <- struct{}{}:
		default:
		}
		return nil
	}

	select {
	case o.events <- msg:
	default:
	}
	return nil
}

// Latest returns the pending snapshot, if any, and clears it.
func (o *Outbox) Latest() (broadcast.Message, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.latest == nil {
		return broadcast.Message{}, false
	}
	msg := *o.latest
	o.latest = nil
	return msg, true
}

func (o *Outbox) Notify() <-chan struct{} { return o.notify }

func (o *Outbox) Events() <-chan broadcast.Message { return o.events }

func (o *Outbox) Close() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.closed = true
}
