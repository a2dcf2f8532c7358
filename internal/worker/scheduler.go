package worker

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"paperpulse/internal/usecase"
)

const defaultRunInterval = 6 * time.Hour

// Scheduler triggers pipeline runs on a fixed interval. Triggers that land
// while a run is still in flight coalesce into that run instead of
// stacking.
type Scheduler struct {
	pipeline usecase.PipelineUsecase
	interval time.Duration
	logger   *slog.Logger
	stopChan chan struct{}
	doneChan chan struct{}
}

// NewScheduler creates a new Scheduler.
func NewScheduler(pipeline usecase.PipelineUsecase, interval time.Duration, logger *slog.Logger) *Scheduler {
	if interval <= 0 {
		interval = defaultRunInterval
	}
	return &Scheduler{
		pipeline: pipeline,
		interval: interval,
		logger:   logger,
		stopChan: make(chan struct{}),
		doneChan: make(chan struct{}),
	}
}

// Start launches the scheduling loop. The first run fires immediately so a
// fresh deployment populates feeds without waiting a full interval.
func (s *Scheduler) Start() {
	s.logger.Info("scheduler_started", slog.Duration("interval", s.interval))
	go s.run()
}

// Stop halts the loop and waits for it to exit. A run already in flight
// finishes on its own.
func (s *Scheduler) Stop() {
	close(s.stopChan)
	<-s.doneChan
	s.logger.Info("scheduler_stopped")
}

func (s *Scheduler) run() {
	defer close(s.doneChan)

	s.trigger()

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stopChan:
			return
		case <-ticker.C:
			s.trigger()
		}
	}
}

func (s *Scheduler) trigger() {
	status, err := s.pipeline.Run(context.Background())
	switch {
	case errors.Is(err, usecase.ErrPipelineRunning):
		s.logger.Info("scheduled_run_coalesced")
	case err != nil:
		s.logger.Error("scheduled_run_failed", slog.String("error", err.Error()))
	default:
		s.logger.Info("scheduled_run_completed",
			slog.Int("papers_stored", status.PapersStored),
			slog.Int("users_served", status.UsersServed))
	}
}
