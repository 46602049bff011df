package session

import (
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
)

const DefaultSweepInterval = time.Minute

// Sweeper runs the expiry sweep on a fixed schedule. It is owned by the
// server's lifecycle: started on boot, stopped on shutdown. Read endpoints
// never sweep.
type Sweeper struct {
	store    *Store
	interval time.Duration
	onSweep  func(removed []string)
	cron     *cron.Cron
	entryID  cron.EntryID
	logger   zerolog.Logger
	running  bool
}

// NewSweeper creates a sweeper over the given store. onSweep, if non-nil, is
// invoked after every sweep that removed at least one session.
func NewSweeper(store *Store, interval time.Duration, logger zerolog.Logger, onSweep func(removed []string)) *Sweeper {
	if interval <= 0 {
		interval = DefaultSweepInterval
	}

	return &Sweeper{
		store:    store,
		interval: interval,
		onSweep:  onSweep,
		cron:     cron.New(),
		logger:   logger.With().Str("component", "session-sweeper").Logger(),
	}
}

// Start schedules the periodic sweep.
func (sw *Sweeper) Start() error {
	if sw.running {
		return fmt.Errorf("sweeper is already running")
	}

	id, err := sw.cron.AddFunc(fmt.Sprintf("@every %s", sw.interval), sw.SweepNow)
	if err != nil {
		return fmt.Errorf("failed to schedule sweep: %w", err)
	}
	sw.entryID = id
	sw.cron.Start()
	sw.running = true

	sw.logger.Info().
		Dur("interval", sw.interval).
		Dur("timeout", sw.store.Timeout()).
		Msg("Session sweeper started")

	return nil
}

// Stop cancels the schedule and waits for an in-flight sweep to finish.
func (sw *Sweeper) Stop() error {
	if !sw.running {
		return fmt.Errorf("sweeper is not running")
	}

	ctx := sw.cron.Stop()
	<-ctx.Done()
	sw.running = false

	sw.logger.Info().Msg("Session sweeper stopped")
	return nil
}

// IsRunning reports whether the schedule is active.
func (sw *Sweeper) IsRunning() bool {
	return sw.running
}

// SweepNow runs one sweep immediately.
func (sw *Sweeper) SweepNow() {
	removed := sw.store.SweepExpired()
	if len(removed) == 0 {
		return
	}

	sw.logger.Debug().
		Strs("session_ids", removed).
		Msg("Swept expired sessions")

	if sw.onSweep != nil {
		sw.onSweep(removed)
	}
}
