package events

import "time"

type Kind string

const (
	KindItemFound Kind = "item_found"
	KindGameStart Kind = "game_start"
	KindGameStop  Kind = "game_stop"
)

// Announcement is a transient point event. It is pushed to whoever is
// connected at the time and never stored on the round.
type Announcement struct {
	Message   string         `json:"message"`
	Kind      Kind           `json:"kind"`
	Metadata  map[string]any `json:"metadata,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
}

func New(kind Kind, message string, metadata map[string]any, at time.Time) Announcement {
	return Announcement{
		Message:   message,
		Kind:      kind,
		Metadata:  metadata,
		Timestamp: at,
	}
}
