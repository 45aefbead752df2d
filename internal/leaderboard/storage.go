package leaderboard

import (
	"sort"
	"sync"
	"time"
)

// TimestampLayout matches the ISO-8601 form browsers produce with toISOString.
const TimestampLayout = "2006-01-02T15:04:05.000Z07:00"

type Entry struct {
	Name      string  `json:"name"`
	Timestamp string  `json:"timestamp"`
	Speed     float64 `json:"speed"` // seconds
}

func NewEntry(name string, speed float64, at time.Time) Entry {
	return Entry{Name: name, Speed: speed, Timestamp: at.UTC().Format(TimestampLayout)}
}

// Seed returns the historical entries the board starts with.
func Seed() []Entry {
	return []Entry{
		{Name: "Julian", Timestamp: "2025-02-05T00:00:00.000Z", Speed: 44},
		{Name: "Julian 2", Timestamp: "2025-02-06T00:00:00.000Z", Speed: 60},
		{Name: "Julian 3", Timestamp: "2025-02-07T00:00:00.000Z", Speed: 99},
		{Name: "Julian 4", Timestamp: "2025-04-15T00:00:00.000Z", Speed: 200},
	}
}

// Store is an append-only collection of completed runs.
type Store struct {
	mu      sync.RWMutex
	entries []Entry
}

func NewStore(seed ...Entry) *Store {
	s := &Store{}
	s.entries = append(s.entries, seed...)
	return s
}

// Append adds an entry; no dedup, no cap.
func (s *Store) Append(e Entry) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = append(s.entries, e)
}

// List returns every entry with the larger speed values first. Entries with
// equal speed keep their insertion order.
func (s *Store) List() []Entry {
	s.mu.RLock()
	list := make([]Entry, len(s.entries))
	copy(list, s.entries)
	s.mu.RUnlock()

	sort.SliceStable(list, func(i, j int) bool {
		return list[i].Speed > list[j].Speed
	})
	return list
}

func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}
