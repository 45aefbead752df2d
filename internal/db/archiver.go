package db

import (
	"context"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/sirupsen/logrus"

	"scavengerhunt/internal/leaderboard"
)

const (
	archiveBuffer   = 1000
	archiveBatch    = 50
	archiveInterval = 500 * time.Millisecond
)

type runWriter interface {
	BatchRecordRuns(ctx context.Context, runs []Run) error
}

// Archiver buffers completed runs and writes them in batches, either when a
// batch fills or on a timer. Archive never blocks the caller.
type Archiver struct {
	store  runWriter
	buffer chan Run
	clock  clockwork.Clock
	log    logrus.FieldLogger
}

func NewArchiver(store runWriter, clock clockwork.Clock, log logrus.FieldLogger) *Archiver {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Archiver{
		store:  store,
		buffer: make(chan Run, archiveBuffer),
		clock:  clock,
		log:    log.WithField("component", "archiver"),
	}
}

func (a *Archiver) Archive(e leaderboard.Entry) {
	at, err := time.Parse(leaderboard.TimestampLayout, e.Timestamp)
	if err != nil {
		at = a.clock.Now()
	}
	select {
	case a.buffer <- Run{Name: e.Name, Speed: e.Speed, RecordedAt: at}:
	default:
		a.log.WithField("name", e.Name).Warn("archive buffer full, dropping run")
	}
}

// Run drains the buffer until ctx is done, flushing what is left on exit.
func (a *Archiver) Run(ctx context.Context) {
	ticker := a.clock.NewTicker(archiveInterval)
	defer ticker.Stop()

	batch := make([]Run, 0, archiveBatch)
	flush := func(ctx context.Context) {
		if len(batch) == 0 {
			return
		}
		if err := a.store.BatchRecordRuns(ctx, batch); err != nil {
			a.log.WithError(err).WithField("runs", len(batch)).Error("batch write failed")
		}
		batch = batch[:0]
	}

	for {
		select {
		case <-ctx.Done():
			for {
				select {
				case r := <-a.buffer:
					batch = append(batch, r)
				default:
					flush(context.Background())
					return
				}
			}
		case r := <-a.buffer:
			batch = append(batch, r)
			if len(batch) >= archiveBatch {
				flush(ctx)
			}
		case <-ticker.Chan():
			flush(ctx)
		}
	}
}
