package round

import (
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/sirupsen/logrus"

	"scavengerhunt/internal/catalog"
	"scavengerhunt/internal/events"
	"scavengerhunt/internal/leaderboard"
	"scavengerhunt/internal/metrics"
	"scavengerhunt/internal/players"
)

// Payload kinds handed to the Publisher.
const (
	KindRound        = "round"
	KindAnnouncement = "announcement"
)

// Item indexes at or above this are rejected by RecordItemFound.
const maxItemIndex = 64

// Publisher fans a payload out to every subscriber. Publish is called while
// the engine lock is held, so it must not block or call back into the engine.
type Publisher interface {
	Publish(kind string, payload any)
}

// Archiver receives each completed run for durable storage.
type Archiver interface {
	Archive(e leaderboard.Entry)
}

type Deps struct {
	Catalog     *catalog.Catalog
	Leaderboard *leaderboard.Store
	Publisher   Publisher
	Clock       clockwork.Clock
	Logger      logrus.FieldLogger
	Archiver    Archiver
	Metrics     metrics.Collector
}

type nopPublisher struct{}

func (nopPublisher) Publish(string, any) {}

// Engine owns the single shared round. Every mutation and the broadcast
// that follows it happen under mu, so subscribers see snapshots in order.
type Engine struct {
	mu      sync.Mutex
	st      *state
	timer   *countdown
	config  Config
	catalog *catalog.Catalog
	board   *leaderboard.Store
	pub     Publisher
	clock   clockwork.Clock
	log     logrus.FieldLogger
	archive Archiver
	metrics metrics.Collector
}

func NewEngine(cfg Config, deps Deps) *Engine {
	e := &Engine{
		st:      newState(),
		config:  cfg,
		catalog: deps.Catalog,
		board:   deps.Leaderboard,
		pub:     deps.Publisher,
		clock:   deps.Clock,
		log:     deps.Logger,
		archive: deps.Archiver,
		metrics: deps.Metrics,
	}
	if e.catalog == nil {
		e.catalog = catalog.Default()
	}
	if e.board == nil {
		e.board = leaderboard.NewStore()
	}
	if e.pub == nil {
		e.pub = nopPublisher{}
	}
	if e.clock == nil {
		e.clock = clockwork.NewRealClock()
	}
	if e.log == nil {
		e.log = logrus.StandardLogger()
	}
	if e.metrics == nil {
		e.metrics = metrics.NoOp{}
	}
	e.log = e.log.WithField("component", "round")
	return e
}

// Join adds a new player under a freshly generated id.
func (e *Engine) Join(name string) players.Player {
	return e.Rejoin(uuid.NewString(), name)
}

// Rejoin adds a player under a caller-supplied id. If the id is already in
// the round the existing player is returned and nothing is broadcast.
func (e *Engine) Rejoin(id, name string) players.Player {
	e.mu.Lock()
	defer e.mu.Unlock()

	p, added := e.st.roster.Add(id, name)
	if added {
		e.log.WithFields(logrus.Fields{"player_id": id, "name": name}).Info("player joined")
		e.publishRoundLocked()
	}
	return p.Clone()
}

// Leave removes a player. Unknown ids are ignored.
func (e *Engine) Leave(id string) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.st.roster.Remove(id) {
		return
	}
	e.log.WithField("player_id", id).Info("player left")
	e.publishRoundLocked()
}

// SetReady updates a player's ready flag. Once every player is ready and no
// countdown or round has begun, the countdown starts.
func (e *Engine) SetReady(id string, isReady bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.st.roster.SetReady(id, isReady) == nil {
		e.log.WithField("player_id", id).Debug("ready update for unknown player")
		return
	}
	e.publishRoundLocked()

	if e.st.roster.AllReady() && e.st.countdown == nil && e.st.start == nil {
		e.startCountdownLocked()
	}
}

// StartCountdown picks the round's items and begins the pre-round countdown,
// replacing any countdown already running.
func (e *Engine) StartCountdown() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.startCountdownLocked()
}

func (e *Engine) startCountdownLocked() {
	e.stopCountdownLocked()

	n := e.config.CountdownSecs
	e.st.countdown = &n
	e.st.items = e.catalog.Pick(e.config.ItemsPerRound)
	e.st.phase = PhaseCountdown

	ct := newCountdown(e.clock)
	e.timer = ct
	go e.runCountdown(ct)

	e.log.WithField("seconds", n).Info("countdown started")
	e.publishRoundLocked()
}

// tick advances the countdown by one second. It reports whether the
// countdown should keep running.
func (e *Engine) tick(ct *countdown) bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	// A reset or restart has replaced this countdown.
	if e.timer != ct || e.st.countdown == nil {
		return false
	}

	next := *e.st.countdown - 1
	if next > 0 {
		e.st.countdown = &next
		e.publishRoundLocked()
		return true
	}

	zero := 0
	now := e.clock.Now()
	e.st.countdown = &zero
	e.st.start = &now
	e.st.gameActive = true
	e.st.phase = PhaseActive
	e.stopCountdownLocked()

	e.log.Info("round started")
	e.announceLocked(events.KindGameStart, "Game started! Find the items!", nil)
	e.publishRoundLocked()
	return false
}

// RecordItemFound stores a player's time for one item and, once the player
// has found every item, records the run on the leaderboard.
func (e *Engine) RecordItemFound(playerID string, itemIndex int, seconds float64) {
	e.mu.Lock()
	defer e.mu.Unlock()

	log := e.log.WithFields(logrus.Fields{"player_id": playerID, "item_index": itemIndex})
	if itemIndex < 0 || itemIndex >= maxItemIndex {
		log.Warn("item index out of range")
		return
	}
	p := e.st.roster.Get(playerID)
	if p == nil {
		log.Debug("item found by unknown player")
		return
	}

	p.RecordItemTime(itemIndex, seconds)

	itemName := ""
	if itemIndex < len(e.st.items) {
		itemName = e.st.items[itemIndex].Name
	}
	msg := fmt.Sprintf("%s found an item!", p.Name)
	if itemName != "" {
		msg = fmt.Sprintf("%s found the %s!", p.Name, itemName)
	}
	e.announceLocked(events.KindItemFound, msg, map[string]any{
		"playerId":   p.ID,
		"playerName": p.Name,
		"itemIndex":  itemIndex,
		"itemName":   itemName,
		"timeTaken":  seconds,
	})
	log.WithField("seconds", seconds).Info("item found")

	if p.ItemsFound == e.config.ItemsPerRound && p.TotalTime != nil {
		entry := leaderboard.NewEntry(p.Name, math.Round(*p.TotalTime), e.clock.Now())
		e.board.Append(entry)
		if e.archive != nil {
			e.archive.Archive(entry)
		}
		e.metrics.RunCompleted()
		log.WithField("speed", entry.Speed).Info("run completed")
	}

	e.publishRoundLocked()
}

// Start begins the round immediately, skipping the countdown.
func (e *Engine) Start() (Round, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.st.start != nil || e.st.countdown != nil {
		return Round{}, ErrAlreadyStarted
	}
	if e.st.roster.Count() == 0 {
		return Round{}, ErrNoPlayers
	}

	if e.st.items == nil {
		e.st.items = e.catalog.Pick(e.config.ItemsPerRound)
	}
	now := e.clock.Now()
	e.st.start = &now
	e.st.finish = nil
	e.st.gameActive = true
	e.st.phase = PhaseActive

	e.log.Info("round started by admin")
	e.announceLocked(events.KindGameStart, "Game started! Find the items!", nil)
	e.publishRoundLocked()
	return e.st.snapshot(), nil
}

// Stop ends the round. A round stopped during its countdown goes back to
// waiting and never gets a finish time.
func (e *Engine) Stop() Round {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.stopCountdownLocked()
	if e.st.start != nil {
		now := e.clock.Now()
		e.st.finish = &now
		e.st.phase = PhaseFinished
	} else {
		e.st.countdown = nil
		e.st.phase = PhaseWaiting
	}
	e.st.gameActive = false

	e.log.Info("round stopped")
	e.announceLocked(events.KindGameStop, "Game stopped!", nil)
	e.publishRoundLocked()
	return e.st.snapshot()
}

// Reset discards the round, players included, and cancels any countdown.
func (e *Engine) Reset() Round {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.stopCountdownLocked()
	e.st = newState()

	e.log.Info("round reset")
	e.publishRoundLocked()
	return e.st.snapshot()
}

func (e *Engine) Snapshot() Round {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.st.snapshot()
}

func (e *Engine) Status() Status {
	e.mu.Lock()
	defer e.mu.Unlock()
	return Status{
		Round:        e.st.snapshot(),
		ReadyCount:   e.st.roster.ReadyCount(),
		TotalPlayers: e.st.roster.Count(),
		AllReady:     e.st.roster.AllReady(),
		IsGameActive: e.st.gameActive,
	}
}

func (e *Engine) Leaderboard() []leaderboard.Entry {
	return e.board.List()
}

// SubmitLeaderboardEntry appends an externally reported run.
func (e *Engine) SubmitLeaderboardEntry(name string, speed float64, at time.Time) leaderboard.Entry {
	if at.IsZero() {
		at = e.clock.Now()
	}
	entry := leaderboard.NewEntry(name, speed, at)
	e.board.Append(entry)
	if e.archive != nil {
		e.archive.Archive(entry)
	}
	return entry
}

func (e *Engine) publishRoundLocked() {
	e.pub.Publish(KindRound, e.st.snapshot())
}

func (e *Engine) announceLocked(kind events.Kind, message string, metadata map[string]any) {
	a := events.New(kind, message, metadata, e.clock.Now())
	e.pub.Publish(KindAnnouncement, a)
	e.metrics.AnnouncementSent(string(kind))
}
