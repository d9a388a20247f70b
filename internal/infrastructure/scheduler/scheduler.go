// Package scheduler runs background maintenance jobs on a small worker pool.
package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
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

// TaskFunc is the unit of work a job runs
type TaskFunc func(ctx context.Context) error

// Job is one run of a named task
type Job struct {
	ID          uuid.UUID
	Name        string
	Run         TaskFunc
	Status      JobStatus
	Error       string
	StartedAt   *time.Time
	CompletedAt *time.Time
	RetryCount  int
	MaxRetries  int
}

// NewJob creates a pending job for a task
func NewJob(name string, run TaskFunc, maxRetries int) *Job {
	return &Job{
		ID:         uuid.New(),
		Name:       name,
		Run:        run,
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

// Config holds scheduler configuration
type Config struct {
	Workers       int
	QueueSize     int
	JobTimeout    time.Duration
	RetryAttempts int
	RetryDelay    time.Duration
}

// DefaultConfig returns default scheduler configuration
func DefaultConfig() Config {
	return Config{
		Workers:       1,
		QueueSize:     16,
		JobTimeout:    5 * time.Minute,
		RetryAttempts: 3,
		RetryDelay:    time.Minute,
	}
}

// Scheduler executes submitted jobs on a fixed pool of workers and retries
// failed ones after RetryDelay
type Scheduler struct {
	config Config
	logger *zap.Logger

	jobs      chan *Job
	cancel    context.CancelFunc
	wg        sync.WaitGroup
	mu        sync.Mutex
	isRunning bool
	retries   map[uuid.UUID]*time.Timer
	onDone    func(*Job)
}

// NewScheduler creates a new scheduler instance
func NewScheduler(config Config, logger *zap.Logger) *Scheduler {
	defaults := DefaultConfig()
	if config.Workers <= 0 {
		config.Workers = defaults.Workers
	}
	if config.QueueSize <= 0 {
		config.QueueSize = defaults.QueueSize
	}
	if config.JobTimeout <= 0 {
		config.JobTimeout = defaults.JobTimeout
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Scheduler{
		config:  config,
		logger:  logger,
		jobs:    make(chan *Job, config.QueueSize),
		retries: make(map[uuid.UUID]*time.Timer),
	}
}

// OnJobDone registers a callback invoked after every final job outcome
func (s *Scheduler) OnJobDone(fn func(*Job)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onDone = fn
}

// Start starts the worker pool
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.isRunning {
		s.mu.Unlock()
		return nil
	}
	s.isRunning = true
	s.mu.Unlock()

	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel

	for i := 0; i < s.config.Workers; i++ {
		s.wg.Add(1)
		go s.worker(ctx, i)
	}

	s.logger.Info("Job scheduler started",
		zap.Int("workers", s.config.Workers),
		zap.Duration("job_timeout", s.config.JobTimeout),
	)
	return nil
}

// Stop cancels pending retries and waits for running jobs to finish
func (s *Scheduler) Stop(ctx context.Context) error {
	s.mu.Lock()
	if !s.isRunning {
		s.mu.Unlock()
		return nil
	}
	s.isRunning = false
	for id, timer := range s.retries {
		timer.Stop()
		delete(s.retries, id)
	}
	s.mu.Unlock()

	if s.cancel != nil {
		s.cancel()
	}

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

// Submit queues a job for execution
func (s *Scheduler) Submit(job *Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.isRunning {
		return ErrSchedulerNotRunning
	}

	select {
	case s.jobs <- job:
		s.logger.Debug("Job submitted",
			zap.String("job_id", job.ID.String()),
			zap.String("job", job.Name),
		)
		return nil
	default:
		return ErrJobQueueFull
	}
}

// SubmitTask wraps a task in a job with the configured retry budget
func (s *Scheduler) SubmitTask(name string, run TaskFunc) (*Job, error) {
	job := NewJob(name, run, s.config.RetryAttempts)
	if err := s.Submit(job); err != nil {
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
	job.Start()
	s.logger.Info("Processing job",
		zap.Int("worker_id", workerID),
		zap.String("job_id", job.ID.String()),
		zap.String("job", job.Name),
	)

	jobCtx, cancel := context.WithTimeout(ctx, s.config.JobTimeout)
	err := s.run(jobCtx, job)
	cancel()

	if err == nil {
		job.Complete()
		s.logger.Info("Job completed",
			zap.String("job_id", job.ID.String()),
			zap.String("job", job.Name),
		)
		s.finish(job)
		return
	}

	job.Fail(err.Error())
	s.logger.Error("Job failed",
		zap.Int("worker_id", workerID),
		zap.String("job_id", job.ID.String()),
		zap.String("job", job.Name),
		zap.Int("retry_count", job.RetryCount),
		zap.Error(err),
	)
	if !job.ShouldRetry() || ctx.Err() != nil {
		s.finish(job)
		return
	}
	s.scheduleRetry(job)
}

// run executes the task, turning a panic into a job failure
func (s *Scheduler) run(ctx context.Context, job *Job) (err error) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("Job panicked",
				zap.String("job", job.Name),
				zap.Any("panic", r),
				zap.Stack("stack"),
			)
			err = errPanic{value: r}
		}
	}()
	return job.Run(ctx)
}

func (s *Scheduler) scheduleRetry(job *Job) {
	job.RetryCount++
	job.Status = JobStatusPending

	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.isRunning {
		return
	}
	s.retries[job.ID] = time.AfterFunc(s.config.RetryDelay, func() {
		s.mu.Lock()
		delete(s.retries, job.ID)
		s.mu.Unlock()
		if err := s.Submit(job); err != nil {
			s.logger.Warn("Failed to re-queue job for retry",
				zap.String("job_id", job.ID.String()),
				zap.Error(err),
			)
		}
	})
	s.logger.Info("Job scheduled for retry",
		zap.String("job_id", job.ID.String()),
		zap.Int("retry_count", job.RetryCount),
		zap.Int("max_retries", job.MaxRetries),
		zap.Duration("delay", s.config.RetryDelay),
	)
}

func (s *Scheduler) finish(job *Job) {
	s.mu.Lock()
	fn := s.onDone
	s.mu.Unlock()
	if fn != nil {
		fn(job)
	}
}

type errPanic struct {
	value any
}

func (e errPanic) Error() string {
	return fmt.Sprintf("job panicked: %v", e.value)
}
