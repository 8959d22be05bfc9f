package search

import (
	"context"
	"fmt"

	"github.com/robfig/cron/v3"

	"github.com/rebuildup/my-web-2025-sub006/pkg/infrastructure/logging"
)

// Schedules for background jobs; an empty schedule disables that job
type Schedules struct {
	Rebuild      string
	CachePersist string
	ExpirySweep  string
}

// Scheduler runs periodic index and cache maintenance
type Scheduler struct {
	cron    *cron.Cron
	service *Service
	logger  *logging.Logger
	jobs    int
}

var scheduleParser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)

// NewScheduler registers the configured jobs against svc
func NewScheduler(svc *Service, schedules Schedules, logger *logging.Logger) (*Scheduler, error) {
	if logger == nil {
		logger = logging.GetGlobalLogger()
	}
	s := &Scheduler{
		cron:    cron.New(cron.WithParser(scheduleParser)),
		service: svc,
		logger:  logger.WithComponent("search.maintenance"),
	}

	jobs := []struct {
		name     string
		schedule string
		run      func()
	}{
		{"rebuild", schedules.Rebuild, s.rebuild},
		{"cache_persist", schedules.CachePersist, s.persistCache},
		{"expiry_sweep", schedules.ExpirySweep, s.sweep},
	}
	for _, job := range jobs {
		if job.schedule == "" {
			continue
		}
		if _, err := s.cron.AddFunc(job.schedule, job.run); err != nil {
			return nil, fmt.Errorf("invalid %s schedule %q: %w", job.name, job.schedule, err)
		}
		s.jobs++
		s.logger.WithFields(map[string]interface{}{
			"job":      job.name,
			"schedule": job.schedule,
		}).Debug("scheduled maintenance job")
	}
	return s, nil
}

// Jobs returns the number of scheduled jobs
func (s *Scheduler) Jobs() int {
	return s.jobs
}

// Start runs the scheduler in the background
func (s *Scheduler) Start() {
	s.cron.Start()
}

// Stop stops scheduling and waits for running jobs, or until ctx is done
func (s *Scheduler) Stop(ctx context.Context) error {
	done := s.cron.Stop()
	select {
	case <-done.Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Scheduler) rebuild() {
	s.service.UpdateIndex(context.Background(), "")
}

func (s *Scheduler) persistCache() {
	if err := s.service.CachePersist(); err != nil {
		s.logger.WithError(err).Warn("scheduled cache persist failed")
	}
}

func (s *Scheduler) sweep() {
	if n := s.service.CacheSweep(); n > 0 {
		s.logger.WithField("removed", n).Debug("swept expired cache entries")
	}
}
