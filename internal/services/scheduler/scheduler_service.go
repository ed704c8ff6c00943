// -----------------------------------------------------------------------
// Scheduler - optional in-process daily scrape trigger
// -----------------------------------------------------------------------

package scheduler

import (
	"context"
	"sync/atomic"

	"github.com/robfig/cron/v3"
	"github.com/ternarybob/arbor"

	"github.com/menufeed/menufeed/internal/common"
	"github.com/menufeed/menufeed/internal/services/pipeline"
)

// Service runs the scrape pipeline on a cron schedule. Disabled by default;
// the HTTP trigger endpoint is the primary entry point and both share the
// overlap guard.
type Service struct {
	config   *common.SchedulerConfig
	pipeline *pipeline.Service
	cron     *cron.Cron
	running  int32
	logger   arbor.ILogger
}

// NewService creates a scheduler over the pipeline.
func NewService(config *common.SchedulerConfig, pipelineService *pipeline.Service, logger arbor.ILogger) *Service {
	return &Service{
		config:   config,
		pipeline: pipelineService,
		cron:     cron.New(),
		logger:   logger,
	}
}

// Start registers the schedule and begins firing. A disabled scheduler is a
// no-op so callers can wire it unconditionally.
func (s *Service) Start() error {
	if !s.config.Enabled {
		s.logger.Debug().Msg("Scheduler disabled")
		return nil
	}

	_, err := s.cron.AddFunc(s.config.Schedule, s.runScheduled)
	if err != nil {
		return err
	}

	s.cron.Start()
	s.logger.Info().
		Str("schedule", s.config.Schedule).
		Msg("Menu scrape scheduler started")

	return nil
}

// Stop stops the scheduler. Does not interrupt a run already in flight.
func (s *Service) Stop() {
	s.cron.Stop()
	if s.config.Enabled {
		s.logger.Info().Msg("Menu scrape scheduler stopped")
	}
}

// TryRun executes one pipeline run unless another is already in flight. Both
// the scheduler and the HTTP trigger come through here, so concurrent
// triggers never race two Chrome processes.
func (s *Service) TryRun(ctx context.Context) (*pipeline.Result, error) {
	if !atomic.CompareAndSwapInt32(&s.running, 0, 1) {
		return nil, common.ErrRunInProgress
	}
	defer atomic.StoreInt32(&s.running, 0)

	return s.pipeline.Run(ctx)
}

func (s *Service) runScheduled() {
	s.logger.Info().Msg("Scheduled menu scrape firing")

	result, err := s.TryRun(context.Background())
	if err != nil {
		s.logger.Error().Err(err).Msg("Scheduled menu scrape failed")
		return
	}

	s.logger.Info().
		Str("path", result.Path).
		Int64("total_ms", result.TotalTime).
		Msg("Scheduled menu scrape completed")
}
