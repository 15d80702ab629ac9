// Package scheduler runs the periodic reminder check. The check itself is a
// stub for now; the loop and lifecycle are real so reminders can be filled
// in without touching the service wiring.
package scheduler

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
)

// DefaultInterval is how often reminders are checked.
const DefaultInterval = time.Hour

// Scheduler ticks at a fixed interval until its context is cancelled.
type Scheduler struct {
	interval time.Duration
}

// New creates a Scheduler. A non-positive interval uses the default.
func New(interval time.Duration) *Scheduler {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Scheduler{interval: interval}
}

// Run blocks until ctx is cancelled, checking reminders every interval.
func (s *Scheduler) Run(ctx context.Context) error {
	log.Info().Dur("interval", s.interval).Msg("Reminder scheduler started")

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("Reminder scheduler stopped")
			return nil
		case <-ticker.C:
			s.checkReminders(ctx)
		}
	}
}

// checkReminders is where due reminders will be looked up and dispatched.
// TODO: query due reminders from the store once the reminder record kind
// lands.
func (s *Scheduler) checkReminders(ctx context.Context) {
	log.Debug().Msg("Checking for active user reminders")
}
