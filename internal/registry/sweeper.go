package registry

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

const (
	DefaultCleanupInterval = 60 * time.Second
	DefaultPingInterval    = 30 * time.Second
)

// Sweeper runs the periodic cleanup and ping passes over a registry for the
// lifetime of the process. The two jobs do not coordinate; both are safe to
// overlap.
type Sweeper struct {
	logger   *zap.Logger
	registry Registry
	cron     *cron.Cron

	cleanupInterval time.Duration
	pingInterval    time.Duration
}

func NewSweeper(
	logger *zap.Logger,
	registry Registry,
	cleanupInterval time.Duration,
	pingInterval time.Duration,
) *Sweeper {
	cronLogger := NewCronLogger(logger)

	return &Sweeper{
		logger:   logger,
		registry: registry,
		cron: cron.New(
			cron.WithLogger(cronLogger),
			cron.WithChain(
				cron.Recover(cronLogger),
				cron.SkipIfStillRunning(cronLogger),
			),
		),
		cleanupInterval: cleanupInterval,
		pingInterval:    pingInterval,
	}
}

func (s *Sweeper) Start() error {
	_, err := s.cron.AddFunc(every(s.cleanupInterval), s.cleanup)
	if err != nil {
		return fmt.Errorf("schedule cleanup: %w", err)
	}

	_, err = s.cron.AddFunc(every(s.pingInterval), s.ping)
	if err != nil {
		return fmt.Errorf("schedule ping: %w", err)
	}

	s.cron.Start()

	s.logger.Info("registry sweeper started",
		zap.Duration("cleanupInterval", s.cleanupInterval),
		zap.Duration("pingInterval", s.pingInterval))

	return nil
}

// Stop prevents new runs and waits for running ones until ctx is done.
func (s *Sweeper) Stop(ctx context.Context) {
	select {
	case <-s.cron.Stop().Done():
	case <-ctx.Done():
	}
}

func (s *Sweeper) cleanup() {
	removed := s.registry.Cleanup()
	if removed > 0 {
		s.logger.Info("stale connections removed", zap.Int("removed", removed))
	}
}

func (s *Sweeper) ping() {
	pinged := s.registry.PingAll()

	s.logger.Debug("pinged connections", zap.Int("pinged", pinged))
}

func every(d time.Duration) string {
	return "@every " + d.String()
}

// CronLogger adapts zap to the cron.Logger interface.
type CronLogger struct {
	logger *zap.SugaredLogger
}

func NewCronLogger(logger *zap.Logger) *CronLogger {
	return &CronLogger{
		logger.Sugar(),
	}
}

func (l *CronLogger) Info(msg string, keysAndValues ...any) {
	l.logger.Debugw(msg, keysAndValues...)
}

func (l *CronLogger) Error(err error, msg string, keysAndValues ...any) {
	l.logger.Errorw(msg, append(keysAndValues, "error", err)...)
}
