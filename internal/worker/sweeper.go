package worker

import (
	"context"
	"time"

	"github.com/argussec/argus/internal/domain/ratelimit"
	"github.com/argussec/argus/internal/domain/session"
	"github.com/argussec/argus/internal/pkg/logger"
	"github.com/argussec/argus/internal/services"
	"github.com/robfig/cron/v3"
)

// Sweeper runs the periodic maintenance jobs: session expiry, counter and
// request-log cleanup, event retention and threat cache eviction.
type Sweeper struct {
	sessions session.Repository
	counters ratelimit.CounterRepository
	activity ratelimit.ActivityRepository
	events   *services.EventService
	threat   *services.ThreatService
	logger   *logger.Logger
	cron     *cron.Cron
}

// NewSweeper creates the maintenance worker
func NewSweeper(
	sessions session.Repository,
	counters ratelimit.CounterRepository,
	activity ratelimit.ActivityRepository,
	events *services.EventService,
	threat *services.ThreatService,
	log *logger.Logger,
) *Sweeper {
	return &Sweeper{
		sessions: sessions,
		counters: counters,
		activity: activity,
		events:   events,
		threat:   threat,
		logger:   log,
		cron:     cron.New(),
	}
}

// Start schedules the maintenance jobs and runs one sweep immediately
func (s *Sweeper) Start(ctx context.Context) error {
	s.logger.Info("Starting maintenance sweeper")

	if _, err := s.cron.AddFunc("@every 1h", func() { s.sweep(ctx) }); err != nil {
		return err
	}
	if _, err := s.cron.AddFunc("@every 5m", func() { s.expireSessions(ctx) }); err != nil {
		return err
	}

	s.cron.Start()
	go s.sweep(ctx)
	return nil
}

// Stop waits for running jobs to finish
func (s *Sweeper) Stop() {
	stopCtx := s.cron.Stop()
	<-stopCtx.Done()
	s.logger.Info("Maintenance sweeper stopped")
}

func (s *Sweeper) expireSessions(ctx context.Context) {
	expired, err := s.sessions.ExpireDue(ctx, time.Now())
	if err != nil {
		s.logger.ErrorWithErr(err, "Failed to expire sessions")
		return
	}
	if expired > 0 {
		s.logger.WithFields(map[string]interface{}{
			"expired": expired,
		}).Info("Expired sessions")
	}
}

func (s *Sweeper) sweep(ctx context.Context) {
	now := time.Now()

	// Counters older than the longest rate limit window are dead weight
	if purged, err := s.counters.PurgeBefore(ctx, now.Add(-2*time.Hour)); err != nil {
		s.logger.ErrorWithErr(err, "Failed to purge rate limit counters")
	} else if purged > 0 {
		s.logger.WithFields(map[string]interface{}{
			"purged": purged,
		}).Info("Purged rate limit counters")
	}

	// Abuse heuristics read at most an hour of history
	if purged, err := s.activity.PurgeBefore(ctx, now.Add(-24*time.Hour)); err != nil {
		s.logger.ErrorWithErr(err, "Failed to purge request logs")
	} else if purged > 0 {
		s.logger.WithFields(map[string]interface{}{
			"purged": purged,
		}).Info("Purged request logs")
	}

	if _, err := s.events.PurgeExpired(ctx); err != nil {
		s.logger.ErrorWithErr(err, "Failed to purge resolved events")
	}

	if evicted := s.threat.EvictExpired(); evicted > 0 {
		s.logger.WithFields(map[string]interface{}{
			"evicted": evicted,
		}).Info("Evicted expired threat cache entries")
	}

	s.expireSessions(ctx)
}
