package scheduler

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
)

// CronTriggerConfig decides when sweeps are submitted. With a non-empty
// DailySchedule ("minute hour * * *") the sweep runs once a day at that time;
// otherwise it runs every Interval.
type CronTriggerConfig struct {
	Interval      time.Duration
	DailySchedule string
	CheckInterval time.Duration
	Location      *time.Location
}

// DefaultCronTriggerConfig returns an hourly trigger
func DefaultCronTriggerConfig() CronTriggerConfig {
	return CronTriggerConfig{
		Interval:      time.Hour,
		CheckInterval: time.Minute,
		Location:      time.UTC,
	}
}

// ParseCronSchedule reads the minute and hour fields of a daily cron
// expression. Other fields must be "*".
func ParseCronSchedule(expr string) (hour, minute int, err error) {
	parts := strings.Fields(expr)
	if len(parts) != 5 {
		return 0, 0, fmt.Errorf("%w: cron expression %q must have 5 fields", ErrInvalidConfig, expr)
	}
	for _, p := range parts[2:] {
		if p != "*" {
			return 0, 0, fmt.Errorf("%w: only daily cron expressions are supported, got %q", ErrInvalidConfig, expr)
		}
	}

	minute, err = strconv.Atoi(parts[0])
	if err != nil || minute < 0 || minute > 59 {
		return 0, 0, fmt.Errorf("%w: minute must be 0-59, got %q", ErrInvalidConfig, parts[0])
	}
	hour, err = strconv.Atoi(parts[1])
	if err != nil || hour < 0 || hour > 23 {
		return 0, 0, fmt.Errorf("%w: hour must be 0-23, got %q", ErrInvalidConfig, parts[1])
	}
	return hour, minute, nil
}

// CronTrigger submits overdue sweeps to a Scheduler on a timetable
type CronTrigger struct {
	config    CronTriggerConfig
	scheduler *Scheduler
	logger    *zap.Logger
	now       func() time.Time

	daily      bool
	hour       int
	minute     int
	lastRunDay string
	lastRunAt  time.Time

	cancel    context.CancelFunc
	wg        sync.WaitGroup
	mu        sync.Mutex
	isRunning bool
}

// NewCronTrigger validates the timetable and creates a trigger
func NewCronTrigger(cfg CronTriggerConfig, scheduler *Scheduler, logger *zap.Logger) (*CronTrigger, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	if cfg.CheckInterval <= 0 {
		cfg.CheckInterval = time.Minute
	}

	c := &CronTrigger{
		config:    cfg,
		scheduler: scheduler,
		logger:    logger,
		now:       time.Now,
	}
	if cfg.DailySchedule != "" {
		hour, minute, err := ParseCronSchedule(cfg.DailySchedule)
		if err != nil {
			return nil, err
		}
		c.daily, c.hour, c.minute = true, hour, minute
	} else if cfg.Interval <= 0 {
		return nil, fmt.Errorf("%w: sweep interval must be positive", ErrInvalidConfig)
	}
	return c, nil
}

// Start starts the trigger loop
func (c *CronTrigger) Start(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.isRunning {
		return nil
	}
	c.isRunning = true

	ctx, c.cancel = context.WithCancel(ctx)
	c.wg.Add(1)
	go c.runLoop(ctx)

	if c.daily {
		c.logger.Info("Sweep trigger started",
			zap.Int("daily_hour", c.hour),
			zap.Int("daily_minute", c.minute),
		)
	} else {
		c.logger.Info("Sweep trigger started", zap.Duration("interval", c.config.Interval))
	}
	return nil
}

// Stop stops the trigger loop
func (c *CronTrigger) Stop(ctx context.Context) error {
	c.mu.Lock()
	if !c.isRunning {
		c.mu.Unlock()
		return nil
	}
	c.isRunning = false
	c.cancel()
	c.mu.Unlock()

	done := make(chan struct{})
	go func() {
		c.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		c.logger.Info("Sweep trigger stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (c *CronTrigger) runLoop(ctx context.Context) {
	defer c.wg.Done()

	tick := c.config.CheckInterval
	if !c.daily {
		tick = c.config.Interval
	}
	ticker := time.NewTicker(tick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.checkAndTrigger(c.now())
		}
	}
}

// shouldRun reports whether a sweep is due at now
func (c *CronTrigger) shouldRun(now time.Time) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.daily {
		return c.lastRunAt.IsZero() || now.Sub(c.lastRunAt) >= c.config.Interval
	}
	local := now.In(c.config.Location)
	if local.Format("2006-01-02") == c.lastRunDay {
		return false
	}
	return local.Hour() == c.hour && local.Minute() == c.minute
}

func (c *CronTrigger) markRun(now time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lastRunAt = now
	c.lastRunDay = now.In(c.config.Location).Format("2006-01-02")
}

func (c *CronTrigger) checkAndTrigger(now time.Time) {
	if !c.shouldRun(now) {
		return
	}
	c.markRun(now)

	job, err := c.scheduler.ScheduleSweep(now)
	if err != nil {
		c.logger.Error("Failed to schedule overdue sweep", zap.Error(err))
		return
	}
	c.logger.Info("Overdue sweep scheduled", zap.String("job_id", job.ID.String()))
}

// TriggerNow submits a sweep immediately, outside the timetable
func (c *CronTrigger) TriggerNow(asOf time.Time) (*Job, error) {
	if asOf.IsZero() {
		asOf = c.now()
	}
	return c.scheduler.ScheduleSweep(asOf)
}
