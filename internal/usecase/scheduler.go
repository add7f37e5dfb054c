package usecase

import (
	"context"
	"log/slog"
	"time"

	"github.com/CRMbyRSM/hubspot-beta-tracker/internal/ports"
)

// Scheduler wires the interval driver with the scan use case.
type Scheduler struct {
	driver   ports.Scheduler
	pipeline *Pipeline
	logger   *slog.Logger
}

// NewScheduler returns a helper to start/stop recurring scans.
func NewScheduler(driver ports.Scheduler, pipeline *Pipeline, logger *slog.Logger) *Scheduler {
	return &Scheduler{driver: driver, pipeline: pipeline, logger: logger}
}

// Start registers the scan job with the provided scheduler. Failed scans
// are logged and the schedule keeps going.
func (s *Scheduler) Start(ctx context.Context) error {
	if s.driver == nil || s.pipeline == nil {
		return nil
	}

	job := func(trigger time.Time) {
		report, err := s.pipeline.RunScan(ctx)
		if err != nil {
			if s.logger != nil {
				s.logger.Error("scheduled scan failed", "trigger", trigger, "error", err)
			}
			return
		}
		if s.logger != nil {
			s.logger.Info("scheduled scan finished",
				"trigger", trigger,
				"scan_number", report.ScanNumber,
				"changed", !report.Changes.Empty())
		}
	}

	return s.driver.Start(ctx, job)
}

// Stop gracefully tears down the underlying scheduler.
func (s *Scheduler) Stop(ctx context.Context) error {
	if s.driver == nil {
		return nil
	}

	return s.driver.Stop(ctx)
}
