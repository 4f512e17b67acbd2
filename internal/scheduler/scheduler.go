package scheduler

import (
	"time"

	"services/symbol-data-service/internal/dispatch"
	"services/symbol-data-service/internal/service"

	"github.com/go-co-op/gocron"
	"go.uber.org/zap"
)

// Submitter is the dispatcher surface the scheduler needs
type Submitter interface {
	Submit(taskName string, args ...interface{}) (dispatch.Handle, error)
}

// Scheduler periodically enqueues the symbol refresh job so the external
// worker keeps imported symbols current
type Scheduler struct {
	cron       *gocron.Scheduler
	dispatcher Submitter
	interval   time.Duration
	logger     *zap.Logger
}

// New creates a new scheduler
func New(dispatcher Submitter, interval time.Duration, logger *zap.Logger) *Scheduler {
	return &Scheduler{
		cron:       gocron.NewScheduler(time.UTC),
		dispatcher: dispatcher,
		interval:   interval,
		logger:     logger,
	}
}

// Start begins the refresh schedule in the background
func (s *Scheduler) Start() {
	_, err := s.cron.Every(s.interval).Do(func() {
		// Fire and forget; the worker fans out per-symbol updates itself.
		if _, err := s.dispatcher.Submit(service.TaskUpdateSymbols); err != nil {
			s.logger.Error("Failed to enqueue symbol refresh", zap.Error(err))
			return
		}
		s.logger.Debug("Symbol refresh enqueued")
	})
	if err != nil {
		s.logger.Error("Failed to schedule symbol refresh",
			zap.Error(err),
			zap.Duration("interval", s.interval))
		return
	}

	s.cron.StartAsync()
	s.logger.Info("Scheduler started", zap.Duration("interval", s.interval))
}

// Stop halts the refresh schedule
func (s *Scheduler) Stop() {
	s.cron.Stop()
	s.logger.Info("Scheduler stopped")
}
