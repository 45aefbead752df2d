package round

import (
	"time"

	"scavengerhunt/internal/catalog"
	"scavengerhunt/internal/players"
)

type Phase string

const (
	PhaseWaiting   = Phase("waiting")
	PhaseCountdown = Phase("countdown")
	PhaseActive    = Phase("active")
	PhaseFinished  = Phase("finished")
)

type Config struct {
	CountdownSecs int
	ItemsPerRound int
}

func DefaultConfig() Config {
	return Config{
		CountdownSecs: 5,
		ItemsPerRound: 3,
	}
}

// Round is a point-in-time copy of the shared game session.
type Round struct {
	Players      []players.Player `json:"players"`
	Start        *time.Time       `json:"start"`
	Finish       *time.Time       `json:"finish"` // set only after Start
	Countdown    *int             `json:"countdown"`
	CurrentItems []catalog.Item   `json:"currentItems"`
	GameActive   bool             `json:"gameActive"`
	Winner       *players.Player  `json:"winner"`
	Phase        Phase            `json:"phase"`
}

type Status struct {
	Round        Round `json:"round"`
	ReadyCount   int   `json:"readyCount"`
	TotalPlayers int   `json:"totalPlayers"`
	AllReady     bool  `json:"allReady"`
	IsGameActive bool  `json:"isGameActive"`
}

// state is the mutable round owned by the engine. Reset swaps in a fresh one.
type state struct {
	roster     *players.Roster
	start      *time.Time
	finish     *time.Time
	countdown  *int
	items      []catalog.Item
	gameActive bool
	winner     *players.Player
	phase      Phase
}

func newState() *state {
	return &state{
		roster: players.NewRoster(),
		phase:  PhaseWaiting,
	}
}

func (s *state) snapshot() Round {
	r := Round{
		Players:    s.roster.List(),
		GameActive: s.gameActive,
		Phase:      s.phase,
	}
	if s.start != nil {
		v := *s.start
		r.Start = &v
	}
	if s.finish != nil {
		v := *s.finish
		r.Finish = &v
	}
	if s.countdown != nil {
		v := *s.countdown
		r.Countdown = &v
	}
	if s.items != nil {
		r.CurrentItems = make([]catalog.Item, len(s.items))
		copy(r.CurrentItems, s.items)
	}
	if s.winner != nil {
		w := s.winner.Clone()
		r.Winner = &w
	}
	return r
}
