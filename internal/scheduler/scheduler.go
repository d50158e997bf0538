package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"hospitality-commands/internal/common/config"
	"hospitality-commands/internal/common/logger"
	"hospitality-commands/internal/common/metrics"
)

const DailyJobName = "daily_update"

// Job is one scheduled unit of work.
type Job func(ctx context.Context) error

// Scheduler runs a single job once a day at a fixed hour in a fixed zone.
// It shares no state with request handling.
type Scheduler struct {
	hour     int
	location *time.Location
	job      Job
	logger   logger.Logger
	now      func() time.Time

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
	done    chan struct{}
}

func New(cfg config.SchedulerConfig, log logger.Logger) (*Scheduler, error) {
	if cfg.DailyHour < 0 || cfg.DailyHour > 23 {
		return nil, fmt.Errorf("scheduler daily_hour out of range: %d", cfg.DailyHour)
	}
	loc := time.Local
	if cfg.Timezone != "" {
		l, err := time.LoadLocation(cfg.Timezone)
		if err != nil {
			return nil, fmt.Errorf("load scheduler timezone: %w", err)
		}
		loc = l
	}

	s := &Scheduler{
		hour:     cfg.DailyHour,
		location: loc,
		logger:   log.With(map[string]interface{}{"component": "scheduler"}),
		now:      time.Now,
	}
	s.job = s.dailyUpdate
	return s, nil
}

// WithJob replaces the daily job.
func (s *Scheduler) WithJob(job Job) *Scheduler {
	s.job = job
	return s
}

// dailyUpdate is a placeholder: nothing is configured to run yet.
func (s *Scheduler) dailyUpdate(ctx context.Context) error {
	s.logger.Info("daily update job ran (no actual work configured)", nil)
	return nil
}

// NextRun returns the first instant strictly after now at hour:00 in loc.
func NextRun(now time.Time, hour int, loc *time.Location) time.Time {
	local := now.In(loc)
	next := time.Date(local.Year(), local.Month(), local.Day(), hour, 0, 0, 0, loc)
	if !next.After(local) {
		next = time.Date(local.Year(), local.Month(), local.Day()+1, hour, 0, 0, 0, loc)
	}
	return next
}

func (s *Scheduler) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// Start launches the loop. Calling Start on a running scheduler is a no-op.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return
	}

	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.done = make(chan struct{})
	s.running = true

	go s.loop(ctx, s.done)

	s.logger.Info("scheduler started", map[string]interface{}{
		"job":     DailyJobName,
		"hour":    s.hour,
		"nextRun": NextRun(s.now(), s.hour, s.location).Format(time.RFC3339),
	})
}

// Stop cancels the loop and waits for an in-flight job to return.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	cancel, done := s.cancel, s.done
	s.running = false
	s.mu.Unlock()

	cancel()
	<-done
	s.logger.Info("scheduler stopped", nil)
}

func (s *Scheduler) loop(ctx context.Context, done chan struct{}) {
	defer close(done)

	for {
		wait := NextRun(s.now(), s.hour, s.location).Sub(s.now())
		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
			s.RunOnce(ctx)
		}
	}
}

// RunOnce executes the job immediately. A panicking or failing job is
// logged and does not stop the schedule.
func (s *Scheduler) RunOnce(ctx context.Context) {
	status := "success"
	defer func() {
		if r := recover(); r != nil {
			status = "panic"
			s.logger.Error("scheduled job panicked", map[string]interface{}{
				"job":   DailyJobName,
				"panic": fmt.Sprint(r),
			})
		}
		metrics.ScheduledJobRuns.WithLabelValues(DailyJobName, status).Inc()
	}()

	if err := s.job(ctx); err != nil {
		status = "error"
		s.logger.Error("scheduled job failed", map[string]interface{}{
			"job":   DailyJobName,
			"error": err.Error(),
		})
	}
}
