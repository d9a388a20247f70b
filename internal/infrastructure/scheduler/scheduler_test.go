package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func startScheduler(t *testing.T, cfg Config) (*Scheduler, chan *Job) {
	t.Helper()
	s := NewScheduler(cfg, zaptest.NewLogger(t))
	done := make(chan *Job, 8)
	s.OnJobDone(func(j *Job) { done <- j })
	require.NoError(t, s.Start(context.Background()))
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = s.Stop(ctx)
	})
	return s, done
}

func waitJob(t *testing.T, done chan *Job) *Job {
	t.Helper()
	select {
	case j := <-done:
		return j
	case <-time.After(2 * time.Second):
		t.Fatal("job did not finish")
		return nil
	}
}

func TestScheduler_RunsJob(t *testing.T) {
	s, done := startScheduler(t, DefaultConfig())

	var calls atomic.Int32
	job, err := s.SubmitTask("sweep", func(context.Context) error {
		calls.Add(1)
		return nil
	})
	require.NoError(t, err)

	finished := waitJob(t, done)
	assert.Equal(t, job.ID, finished.ID)
	assert.Equal(t, JobStatusSuccess, finished.Status)
	assert.NotNil(t, finished.CompletedAt)
	assert.Equal(t, int32(1), calls.Load())
}

func TestScheduler_RetriesFailedJob(t *testing.T) {
	s, done := startScheduler(t, Config{RetryAttempts: 2, RetryDelay: 10 * time.Millisecond})

	var calls atomic.Int32
	_, err := s.SubmitTask("flaky", func(context.Context) error {
		if calls.Add(1) < 3 {
			return errors.New("database unavailable")
		}
		return nil
	})
	require.NoError(t, err)

	finished := waitJob(t, done)
	assert.Equal(t, JobStatusSuccess, finished.Status)
	assert.Equal(t, 2, finished.RetryCount)
	assert.Equal(t, int32(3), calls.Load())
}

func TestScheduler_GivesUpAfterRetries(t *testing.T) {
	s, done := startScheduler(t, Config{RetryAttempts: 1, RetryDelay: time.Millisecond})

	_, err := s.SubmitTask("broken", func(context.Context) error {
		return errors.New("boom")
	})
	require.NoError(t, err)

	finished := waitJob(t, done)
	assert.Equal(t, JobStatusFailed, finished.Status)
	assert.Equal(t, "boom", finished.Error)
	assert.Equal(t, 1, finished.RetryCount)
}

func TestScheduler_RecoversPanics(t *testing.T) {
	s, done := startScheduler(t, DefaultConfig())

	_, err := s.SubmitTask("panicky", func(context.Context) error {
		panic("nil map")
	})
	require.NoError(t, err)

	finished := waitJob(t, done)
	assert.Equal(t, JobStatusFailed, finished.Status)
	assert.Contains(t, finished.Error, "nil map")
}

func TestScheduler_JobTimeout(t *testing.T) {
	s, done := startScheduler(t, Config{JobTimeout: 20 * time.Millisecond})

	_, err := s.SubmitTask("slow", func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	})
	require.NoError(t, err)

	finished := waitJob(t, done)
	assert.Equal(t, JobStatusFailed, finished.Status)
	assert.Equal(t, context.DeadlineExceeded.Error(), finished.Error)
}

func TestScheduler_SubmitWhenStopped(t *testing.T) {
	s := NewScheduler(DefaultConfig(), zaptest.NewLogger(t))
	_, err := s.SubmitTask("sweep", func(context.Context) error { return nil })
	assert.ErrorIs(t, err, ErrSchedulerNotRunning)

	require.NoError(t, s.Start(context.Background()))
	require.NoError(t, s.Stop(context.Background()))
	require.NoError(t, s.Stop(context.Background()))
	_, err = s.SubmitTask("sweep", func(context.Context) error { return nil })
	assert.ErrorIs(t, err, ErrSchedulerNotRunning)
}

func TestScheduler_QueueFull(t *testing.T) {
	s := NewScheduler(Config{QueueSize: 1}, zaptest.NewLogger(t))
	// Not started workers: mark running by hand so jobs stay queued.
	s.isRunning = true

	_, err := s.SubmitTask("a", func(context.Context) error { return nil })
	require.NoError(t, err)
	_, err = s.SubmitTask("b", func(context.Context) error { return nil })
	assert.ErrorIs(t, err, ErrJobQueueFull)
}
