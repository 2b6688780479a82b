package scheduler

import (
	"context"
	"time"

	"github.com/go-co-op/gocron"
	"go.uber.org/zap"

	"github.com/i474232898/weather-diary/internal/archive"
	"github.com/i474232898/weather-diary/internal/weather"
)

// Scheduler periodically scrapes the recent diary pages and repartitions.
type Scheduler struct {
	scheduler *gocron.Scheduler
	service   *archive.Service
	interval  time.Duration
	logger    *zap.Logger
	now       func() time.Time
}

// New creates a new Scheduler.
func New(interval time.Duration, service *archive.Service, logger *zap.Logger) *Scheduler {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := gocron.NewScheduler(time.UTC)
	return &Scheduler{
		scheduler: s,
		service:   service,
		interval:  interval,
		logger:    logger,
		now:       time.Now,
	}
}

// window returns the previous and current month: days published late
// still land in the archive on the next run.
func (s *Scheduler) window() (weather.Month, weather.Month) {
	now := s.now().UTC()
	cur := weather.Month{Year: now.Year(), Month: now.Month()}
	prev := now.AddDate(0, 0, -now.Day())
	return weather.Month{Year: prev.Year(), Month: prev.Month()}, cur
}

func (s *Scheduler) run() {
	from, to := s.window()
	s.logger.Info("scheduler: running diary refresh job",
		zap.String("from", from.String()),
		zap.String("to", to.String()),
	)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	report, err := s.service.Refresh(ctx, from, to)
	if err != nil {
		s.logger.Error("scheduler: refresh failed", zap.Error(err))
		return
	}
	s.logger.Info("scheduler: completed diary refresh job",
		zap.Int("appended", report.Appended),
		zap.Int("failed", len(report.Failed)),
	)
}

// Start schedules the periodic job and starts the underlying scheduler.
func (s *Scheduler) Start() error {
	minutes := int(s.interval.Minutes())
	if minutes <= 0 {
		minutes = 24 * 60
	}

	if _, err := s.scheduler.Every(minutes).Minutes().Do(s.run); err != nil {
		return err
	}

	s.scheduler.StartAsync()
	return nil
}

// Stop stops the scheduler and cancels any future jobs.
func (s *Scheduler) Stop() {
	if s.scheduler != nil {
		s.scheduler.Stop()
	}
}
