package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/invest/ledger/internal/infrastructure/config"
	"go.uber.org/zap"
)

// JobStatus represents the status of a scheduled job
type JobStatus string

const (
	JobStatusPending JobStatus = "PENDING"
	JobStatusRunning JobStatus = "RUNNING"
	JobStatusSuccess JobStatus = "SUCCESS"
	JobStatusFailed  JobStatus = "FAILED"
)

// JobKind identifies what a job does
type JobKind string

const (
	JobKindOverdueSweep JobKind = "OVERDUE_SWEEP"
)

// Job is one queued unit of background work. AsOf pins the business date so
// a retried sweep evaluates the same cutoff as the first attempt.
type Job struct {
	ID          uuid.UUID
	Kind        JobKind
	AsOf        time.Time
	Status      JobStatus
	Error       string
	StartedAt   *time.Time
	CompletedAt *time.Time
	RetryCount  int
	MaxRetries  int
	NextRetryAt *time.Time
}

// NewJob creates a pending job
func NewJob(kind JobKind, asOf time.Time, maxRetries int) *Job {
	return &Job{
		ID:         uuid.New(),
		Kind:       kind,
		AsOf:       asOf,
		Status:     JobStatusPending,
		MaxRetries: maxRetries,
	}
}

// Start marks the job as running
func (j *Job) Start() {
	now := time.Now()
	j.Status = JobStatusRunning
	j.StartedAt = &now
	j.Error = ""
}

// Complete marks the job as successful
func (j *Job) Complete() {
	now := time.Now()
	j.Status = JobStatusSuccess
	j.CompletedAt = &now
}

// Fail marks the job as failed
func (j *Job) Fail(err string) {
	now := time.Now()
	j.Status = JobStatusFailed
	j.CompletedAt = &now
	j.Error = err
}

// ShouldRetry returns true if the job should be retried
func (j *Job) ShouldRetry() bool {
	return j.Status == JobStatusFailed && j.RetryCount < j.MaxRetries
}

// ScheduleRetry puts the job back to pending after delay
func (j *Job) ScheduleRetry(delay time.Duration) {
	j.RetryCount++
	j.Status = JobStatusPending
	next := time.Now().Add(delay)
	j.NextRetryAt = &next
	j.Error = ""
}

// JobExecutor runs jobs
type JobExecutor interface {
	Execute(ctx context.Context, job *Job) error
}

// SchedulerConfig holds worker pool settings
type SchedulerConfig struct {
	MaxConcurrentJobs int
	JobTimeout        time.Duration
	RetryAttempts     int
	RetryDelay        time.Duration
	QueueSize         int
}

// DefaultSchedulerConfig returns default worker pool settings
func DefaultSchedulerConfig() SchedulerConfig {
	return SchedulerConfig{
		MaxConcurrentJobs: 1,
		JobTimeout:        30 * time.Minute,
		RetryAttempts:     3,
		RetryDelay:        time.Minute,
		QueueSize:         16,
	}
}

// SchedulerConfigFrom maps application config onto the worker pool, keeping
// defaults for unset values
func SchedulerConfigFrom(cfg config.SchedulerConfig) SchedulerConfig {
	out := DefaultSchedulerConfig()
	if cfg.MaxConcurrentJobs > 0 {
		out.MaxConcurrentJobs = cfg.MaxConcurrentJobs
	}
	if cfg.JobTimeout > 0 {
		out.JobTimeout = cfg.JobTimeout
	}
	if cfg.RetryAttempts >= 0 {
		out.RetryAttempts = cfg.RetryAttempts
	}
	if cfg.RetryDelay > 0 {
		out.RetryDelay = cfg.RetryDelay
	}
	return out
}

// Scheduler executes submitted jobs on a fixed worker pool
type Scheduler struct {
	config   SchedulerConfig
	executor JobExecutor
	logger   *zap.Logger

	jobs      chan *Job
	cancel    context.CancelFunc
	wg        sync.WaitGroup
	mu        sync.Mutex
	isRunning bool
}

// NewScheduler creates a new scheduler instance
func NewScheduler(cfg SchedulerConfig, executor JobExecutor, logger *zap.Logger) *Scheduler {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.MaxConcurrentJobs <= 0 {
		cfg.MaxConcurrentJobs = 1
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = DefaultSchedulerConfig().QueueSize
	}
	return &Scheduler{
		config:   cfg,
		executor: executor,
		logger:   logger,
		jobs:     make(chan *Job, cfg.QueueSize),
	}
}

// Start launches the workers
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.isRunning {
		return nil
	}
	s.isRunning = true

	ctx, s.cancel = context.WithCancel(ctx)
	for i := 0; i < s.config.MaxConcurrentJobs; i++ {
		s.wg.Add(1)
		go s.worker(ctx, i)
	}

	s.logger.Info("Job scheduler started",
		zap.Int("workers", s.config.MaxConcurrentJobs),
		zap.Duration("job_timeout", s.config.JobTimeout),
	)
	return nil
}

// Stop cancels running jobs and waits for the workers until ctx expires
func (s *Scheduler) Stop(ctx context.Context) error {
	s.mu.Lock()
	if !s.isRunning {
		s.mu.Unlock()
		return nil
	}
	s.isRunning = false
	s.cancel()
	s.mu.Unlock()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		s.logger.Info("Job scheduler stopped gracefully")
		return nil
	case <-ctx.Done():
		s.logger.Warn("Job scheduler stop timed out")
		return ctx.Err()
	}
}

// IsRunning reports whether workers are active
func (s *Scheduler) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.isRunning
}

// SubmitJob queues a job without blocking
func (s *Scheduler) SubmitJob(job *Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.isRunning {
		return ErrSchedulerNotRunning
	}

	select {
	case s.jobs <- job:
		s.logger.Debug("Job submitted",
			zap.String("job_id", job.ID.String()),
			zap.String("kind", string(job.Kind)),
		)
		return nil
	default:
		return ErrJobQueueFull
	}
}

// ScheduleSweep submits an overdue sweep pinned to asOf
func (s *Scheduler) ScheduleSweep(asOf time.Time) (*Job, error) {
	job := NewJob(JobKindOverdueSweep, asOf, s.config.RetryAttempts)
	if err := s.SubmitJob(job); err != nil {
		return nil, err
	}
	return job, nil
}

func (s *Scheduler) worker(ctx context.Context, workerID int) {
	defer s.wg.Done()

	for {
		select {
		case <-ctx.Done():
			return
		case job := <-s.jobs:
			s.processJob(ctx, job, workerID)
		}
	}
}

func (s *Scheduler) processJob(ctx context.Context, job *Job, workerID int) {
	if job.NextRetryAt != nil {
		if wait := time.Until(*job.NextRetryAt); wait > 0 {
			select {
			case <-ctx.Done():
				return
			case <-time.After(wait):
			}
		}
	}

	job.Start()
	log := s.logger.With(
		zap.Int("worker_id", workerID),
		zap.String("job_id", job.ID.String()),
		zap.String("kind", string(job.Kind)),
		zap.Time("as_of", job.AsOf),
	)
	log.Info("Processing job")

	jobCtx, cancel := context.WithTimeout(ctx, s.config.JobTimeout)
	defer cancel()

	if err := s.executor.Execute(jobCtx, job); err != nil {
		job.Fail(err.Error())
		log.Error("Job failed", zap.Error(err))

		if ctx.Err() == nil && job.ShouldRetry() {
			job.ScheduleRetry(s.config.RetryDelay)
			log.Info("Job scheduled for retry",
				zap.Int("retry_count", job.RetryCount),
				zap.Int("max_retries", job.MaxRetries),
			)
			select {
			case s.jobs <- job:
			default:
				log.Warn("Failed to re-queue job for retry")
			}
		}
		return
	}

	job.Complete()
	log.Info("Job completed successfully")
}
