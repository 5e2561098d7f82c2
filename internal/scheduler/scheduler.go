package scheduler

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

// SessionStore is the session maintenance surface of storage
type SessionStore interface {
	CountSessions(ctx context.Context) (int, error)
	CleanupExpiredSessions(ctx context.Context) error
}

// Gauge receives the open session count
type Gauge interface {
	SetActiveSessions(count float64)
}

const (
	// GaugeSchedule refreshes the active session gauge
	GaugeSchedule = "@every 1m"
	// CleanupSchedule drops idle sessions
	CleanupSchedule = "@every 10m"
)

// Scheduler runs periodic maintenance jobs
type Scheduler struct {
	cron     *cron.Cron
	ctx      context.Context
	cancel   context.CancelFunc
	sessions SessionStore
	gauge    Gauge
	logger   *logrus.Logger
}

// New creates a scheduler; call Start to run it
func New(sessions SessionStore, gauge Gauge, logger *logrus.Logger) *Scheduler {
	ctx, cancel := context.WithCancel(context.Background())

	return &Scheduler{
		cron:     cron.New(cron.WithLocation(time.UTC)),
		ctx:      ctx,
		cancel:   cancel,
		sessions: sessions,
		gauge:    gauge,
		logger:   logger,
	}
}

// Start registers the jobs and starts the cron runner
func (s *Scheduler) Start() error {
	if _, err := s.cron.AddFunc(GaugeSchedule, s.RefreshSessionGauge); err != nil {
		return err
	}
	if _, err := s.cron.AddFunc(CleanupSchedule, s.CleanupSessions); err != nil {
		return err
	}

	s.cron.Start()
	s.logger.WithField("jobs", len(s.cron.Entries())).Info("Scheduler started")
	return nil
}

// Stop waits for running jobs and cancels their context
func (s *Scheduler) Stop() {
	if s.cron != nil {
		<-s.cron.Stop().Done()
	}
	if s.cancel != nil {
		s.cancel()
	}
	s.logger.Info("Scheduler stopped")
}

// RefreshSessionGauge publishes the number of open chat sessions
func (s *Scheduler) RefreshSessionGauge() {
	count, err := s.sessions.CountSessions(s.ctx)
	if err != nil {
		s.logger.WithError(err).Warn("Failed to count chat sessions")
		return
	}
	if s.gauge != nil {
		s.gauge.SetActiveSessions(float64(count))
	}
}

// CleanupSessions drops sessions idle past their TTL
func (s *Scheduler) CleanupSessions() {
	if err := s.sessions.CleanupExpiredSessions(s.ctx); err != nil {
		s.logger.WithError(err).Error("Failed to clean up chat sessions")
		return
	}
	s.logger.Debug("Expired chat sessions cleaned up")
}
