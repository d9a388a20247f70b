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

// DailySchedule is a wall-clock time of day
type DailySchedule struct {
	Hour   int
	Minute int
}

// String returns the schedule as HH:MM
func (d DailySchedule) String() string {
	return fmt.Sprintf("%02d:%02d", d.Hour, d.Minute)
}

// ParseDailySchedule parses a cron expression "minute hour * * *". Only the
// minute and hour fields are honoured; "*" in either keeps the default 00:00.
func ParseDailySchedule(expr string) (DailySchedule, error) {
	var sched DailySchedule
	parts := strings.Fields(expr)
	if len(parts) == 0 {
		return sched, nil
	}
	if len(parts) < 2 {
		return sched, fmt.Errorf("%w: %q needs minute and hour fields", ErrInvalidSchedule, expr)
	}

	var err error
	if sched.Minute, err = parseField(parts[0], 59); err != nil {
		return DailySchedule{}, fmt.Errorf("%w: minute %v", ErrInvalidSchedule, err)
	}
	if sched.Hour, err = parseField(parts[1], 23); err != nil {
		return DailySchedule{}, fmt.Errorf("%w: hour %v", ErrInvalidSchedule, err)
	}
	return sched, nil
}

func parseField(field string, max int) (int, error) {
	if field == "*" {
		return 0, nil
	}
	v, err := strconv.Atoi(field)
	if err != nil {
		return 0, fmt.Errorf("%q is not a number", field)
	}
	if v < 0 || v > max {
		return 0, fmt.Errorf("must be 0-%d, got %d", max, v)
	}
	return v, nil
}

// CronTriggerConfig holds configuration for the cron trigger
type CronTriggerConfig struct {
	// CheckInterval is how often to check if a task is due
	CheckInterval time.Duration
	// Location is the time zone schedules are expressed in
	Location *time.Location
}

// DefaultCronTriggerConfig returns default cron trigger configuration
func DefaultCronTriggerConfig() CronTriggerConfig {
	return CronTriggerConfig{
		CheckInterval: time.Minute,
		Location:      time.Local,
	}
}

type dailyTask struct {
	name     string
	schedule DailySchedule
	run      TaskFunc
	lastRun  string
}

// CronTrigger submits registered tasks to the scheduler once a day at their
// scheduled time
type CronTrigger struct {
	config    CronTriggerConfig
	scheduler *Scheduler
	logger    *zap.Logger
	now       func() time.Time

	cancel    context.CancelFunc
	wg        sync.WaitGroup
	mu        sync.Mutex
	isRunning bool
	tasks     []*dailyTask
}

// NewCronTrigger creates a new cron trigger
func NewCronTrigger(config CronTriggerConfig, scheduler *Scheduler, logger *zap.Logger) *CronTrigger {
	if config.CheckInterval <= 0 {
		config.CheckInterval = time.Minute
	}
	if config.Location == nil {
		config.Location = time.Local
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CronTrigger{
		config:    config,
		scheduler: scheduler,
		logger:    logger,
		now:       time.Now,
	}
}

// WithClock overrides the time source
func (c *CronTrigger) WithClock(now func() time.Time) *CronTrigger {
	c.now = now
	return c
}

// Daily registers a task to run every day at the given time
func (c *CronTrigger) Daily(name string, at DailySchedule, run TaskFunc) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.tasks = append(c.tasks, &dailyTask{name: name, schedule: at, run: run})
}

// Start starts the trigger loop
func (c *CronTrigger) Start(ctx context.Context) error {
	c.mu.Lock()
	if c.isRunning {
		c.mu.Unlock()
		return nil
	}
	c.isRunning = true
	names := make([]string, len(c.tasks))
	for i, t := range c.tasks {
		names[i] = t.name + "@" + t.schedule.String()
	}
	c.mu.Unlock()

	ctx, cancel := context.WithCancel(ctx)
	c.cancel = cancel

	c.wg.Add(1)
	go c.runLoop(ctx)

	c.logger.Info("Cron trigger started",
		zap.Strings("tasks", names),
		zap.String("location", c.config.Location.String()),
		zap.Duration("check_interval", c.config.CheckInterval),
	)
	return nil
}

// Stop stops the cron trigger
func (c *CronTrigger) Stop(ctx context.Context) error {
	c.mu.Lock()
	if !c.isRunning {
		c.mu.Unlock()
		return nil
	}
	c.isRunning = false
	c.mu.Unlock()

	if c.cancel != nil {
		c.cancel()
	}

	done := make(chan struct{})
	go func() {
		c.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		c.logger.Info("Cron trigger stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (c *CronTrigger) runLoop(ctx context.Context) {
	defer c.wg.Done()

	ticker := time.NewTicker(c.config.CheckInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.checkAndTrigger()
		}
	}
}

// checkAndTrigger submits every task that is due and has not run today.
// A task whose time already passed today runs on the first check.
func (c *CronTrigger) checkAndTrigger() {
	now := c.now().In(c.config.Location)
	today := now.Format("2006-01-02")
	minuteOfDay := now.Hour()*60 + now.Minute()

	c.mu.Lock()
	var due []*dailyTask
	for _, t := range c.tasks {
		if t.lastRun == today || minuteOfDay < t.schedule.Hour*60+t.schedule.Minute {
			continue
		}
		t.lastRun = today
		due = append(due, t)
	}
	c.mu.Unlock()

	for _, t := range due {
		if _, err := c.scheduler.SubmitTask(t.name, t.run); err != nil {
			c.logger.Error("Failed to submit scheduled task",
				zap.String("task", t.name),
				zap.Error(err),
			)
			c.mu.Lock()
			t.lastRun = ""
			c.mu.Unlock()
		}
	}
}

// TriggerNow submits a registered task immediately regardless of its schedule
func (c *CronTrigger) TriggerNow(name string) (*Job, error) {
	c.mu.Lock()
	var task *dailyTask
	for _, t := range c.tasks {
		if t.name == name {
			task = t
			break
		}
	}
	c.mu.Unlock()
	if task == nil {
		return nil, fmt.Errorf("%w: %s", ErrUnknownTask, name)
	}
	return c.scheduler.SubmitTask(task.name, task.run)
}
