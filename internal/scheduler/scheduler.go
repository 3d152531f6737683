// Package scheduler runs the periodic history sync.
package scheduler

import (
	"context"
	"errors"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// ErrNoSyncFunction is returned by Start when nothing was registered.
var ErrNoSyncFunction = errors.New("scheduler: sync function not set")

// Scheduler triggers the sync function on a cron schedule.
type Scheduler struct {
	cron     *cron.Cron
	ctx      context.Context
	cancel   context.CancelFunc
	syncFunc func(ctx context.Context) error
	logger   *zap.Logger
}

func New(logger *zap.Logger) *Scheduler {
	if logger == nil {
		logger = zap.NewNop()
	}
	ctx, cancel := context.WithCancel(context.Background())

	return &Scheduler{
		cron:   cron.New(cron.WithLocation(time.UTC)),
		ctx:    ctx,
		cancel: cancel,
		logger: logger,
	}
}

func (s *Scheduler) SetSyncFunction(f func(ctx context.Context) error) {
	s.syncFunc = f
}

// Start registers the sync job with a standard cron spec or a descriptor
// such as "@every 5m" and starts the scheduler.
func (s *Scheduler) Start(spec string) error {
	if s.syncFunc == nil {
		return ErrNoSyncFunction
	}

	_, err := s.cron.AddFunc(spec, func() {
		s.logger.Debug("history sync triggered")
		if err := s.syncFunc(s.ctx); err != nil {
			s.logger.Warn("history sync failed", zap.Error(err))
		}
	})
	if err != nil {
		return err
	}

	s.cron.Start()
	s.logger.Info("scheduler started", zap.String("schedule", spec))
	return nil
}

// Stop waits for a running job to return.
func (s *Scheduler) Stop() {
	if s.cron != nil {
		ctx := s.cron.Stop()
		<-ctx.Done()
	}
	if s.cancel != nil {
		s.cancel()
	}
	s.logger.Info("scheduler stopped")
}

func (s *Scheduler) IsRunning() bool {
	return s.cron != nil && len(s.cron.Entries()) > 0
}
