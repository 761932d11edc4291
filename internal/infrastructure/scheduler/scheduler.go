package scheduler

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/crm/dashboard/internal/infrastructure/logger"
	"go.uber.org/zap"
)

// JobObserver records job outcomes, e.g. as Prometheus metrics
type JobObserver interface {
	ObserveJob(job string, success bool, elapsed time.Duration)
}

// SchedulerConfig holds scheduler configuration
type SchedulerConfig struct {
	Timezone       string
	TickInterval   time.Duration
	RequestTimeout time.Duration
	RunOnStart     bool // fire the health check once at Start
	Jobs           []JobDefinition
}

// DefaultSchedulerConfig returns the analytics refresh schedule in Europe/Moscow
func DefaultSchedulerConfig() SchedulerConfig {
	return SchedulerConfig{
		Timezone:       "Europe/Moscow",
		TickInterval:   15 * time.Second,
		RequestTimeout: 2 * time.Minute,
		Jobs: AnalyticsJobs("0 2 * * *", "0 */4 * * *", "*/30 * * * *",
			"/api/analytics/refresh", "/api/analytics/health"),
	}
}

// Scheduler fires cron jobs from a ticker loop. Every due job runs at most
// once per tick and its next run is recomputed from the tick time.
type Scheduler struct {
	config   SchedulerConfig
	location *time.Location
	executor JobExecutor
	observer JobObserver
	logger   *zap.Logger
	clock    func() time.Time

	jobs   []*Job
	tickMu sync.Mutex // serializes Tick

	cancel    context.CancelFunc
	wg        sync.WaitGroup
	mu        sync.Mutex
	isRunning bool
}

// Option configures a Scheduler
type Option func(*Scheduler)

// WithObserver sets the job observer
func WithObserver(o JobObserver) Option {
	return func(s *Scheduler) {
		s.observer = o
	}
}

// WithClock overrides the time source
func WithClock(clock func() time.Time) Option {
	return func(s *Scheduler) {
		s.clock = clock
	}
}

// NewScheduler parses the job schedules and computes their first run times
func NewScheduler(config SchedulerConfig, executor JobExecutor, logger *zap.Logger, opts ...Option) (*Scheduler, error) {
	if executor == nil {
		return nil, fmt.Errorf("%w: executor is required", ErrInvalidConfig)
	}
	if len(config.Jobs) == 0 {
		return nil, fmt.Errorf("%w: no jobs configured", ErrInvalidConfig)
	}
	if config.TickInterval <= 0 {
		config.TickInterval = 15 * time.Second
	}
	if config.TickInterval > time.Minute {
		return nil, fmt.Errorf("%w: tick interval %s exceeds the cron resolution of 1m", ErrInvalidConfig, config.TickInterval)
	}
	if config.Timezone == "" {
		config.Timezone = "UTC"
	}
	loc, err := time.LoadLocation(config.Timezone)
	if err != nil {
		return nil, fmt.Errorf("%w: unknown timezone %q: %v", ErrInvalidConfig, config.Timezone, err)
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	s := &Scheduler{
		config:   config,
		location: loc,
		executor: executor,
		logger:   logger,
		clock:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}

	now := s.clock().In(loc)
	seen := make(map[string]bool, len(config.Jobs))
	for _, def := range config.Jobs {
		if seen[def.Name] {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateJob, def.Name)
		}
		seen[def.Name] = true

		job, err := newJob(def, now)
		if err != nil {
			return nil, err
		}
		s.jobs = append(s.jobs, job)
	}

	return s, nil
}

// Location returns the timezone the cron expressions are evaluated in
func (s *Scheduler) Location() *time.Location {
	return s.location
}

// Start starts the scheduler loop
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

	fields := []zap.Field{
		zap.String("timezone", s.location.String()),
		zap.Duration("tick_interval", s.config.TickInterval),
	}
	for _, snap := range s.Status() {
		fields = append(fields, zap.Time(snap.Name+"_next_run", snap.NextRun))
	}
	s.logger.Info("Analytics scheduler started", fields...)

	if s.config.RunOnStart {
		if _, err := s.RunNow(ctx, JobHealthCheck); err != nil {
			s.logger.Warn("Startup health check skipped", zap.Error(err))
		}
	}

	s.wg.Add(1)
	go s.runLoop(ctx)

	return nil
}

// Stop gracefully stops the scheduler
func (s *Scheduler) Stop(ctx context.Context) error {
	s.mu.Lock()
	if !s.isRunning {
		s.mu.Unlock()
		return nil
	}
	s.isRunning = false
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
		s.logger.Info("Analytics scheduler stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// IsRunning reports whether the loop is active
func (s *Scheduler) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.isRunning
}

func (s *Scheduler) runLoop(ctx context.Context) {
	defer s.wg.Done()

	ticker := time.NewTicker(s.config.TickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Tick(ctx, s.clock())
		}
	}
}

// Tick runs every job due at now exactly once and returns the names of the
// jobs that fired. Missed runs collapse into a single call.
func (s *Scheduler) Tick(ctx context.Context, now time.Time) []string {
	s.tickMu.Lock()
	defer s.tickMu.Unlock()

	now = now.In(s.location)

	var fired []string
	for _, job := range s.jobs {
		if !job.due(now) {
			continue
		}
		scheduledFor := job.NextRun

		s.mu.Lock()
		job.NextRun = job.schedule.Next(now)
		s.mu.Unlock()

		s.logger.Debug("Job due",
			zap.String("job", job.Name),
			zap.Time("scheduled_for", scheduledFor),
		)
		s.execute(ctx, job, now)
		fired = append(fired, job.Name)
	}
	return fired
}

// RunNow executes the named job immediately without touching its schedule
func (s *Scheduler) RunNow(ctx context.Context, name string) (Result, error) {
	job := s.find(name)
	if job == nil {
		return Result{}, fmt.Errorf("%w: %s", ErrJobNotFound, name)
	}

	s.tickMu.Lock()
	defer s.tickMu.Unlock()
	return s.execute(ctx, job, s.clock().In(s.location))
}

func (s *Scheduler) execute(ctx context.Context, job *Job, at time.Time) (Result, error) {
	jobCtx := ctx
	if s.config.RequestTimeout > 0 {
		var cancel context.CancelFunc
		jobCtx, cancel = context.WithTimeout(ctx, s.config.RequestTimeout)
		defer cancel()
	}

	jobLog := s.logger.With(zap.String("job", job.Name))
	res, err := s.executor.Execute(logger.Inject(jobCtx, jobLog), job.JobDefinition)

	s.mu.Lock()
	job.record(at, res, err)
	s.mu.Unlock()

	if s.observer != nil {
		s.observer.ObserveJob(job.Name, err == nil, res.Latency)
	}

	fields := []zap.Field{
		zap.String("method", job.Method),
		zap.String("path", job.Path),
		zap.Int("status", res.StatusCode),
		zap.Duration("latency", res.Latency),
	}
	if err != nil {
		jobLog.Error("Scheduled job failed", append(fields, zap.Error(err))...)
		return res, err
	}
	jobLog.Info("Scheduled job completed", fields...)
	return res, nil
}

func (s *Scheduler) find(name string) *Job {
	for _, job := range s.jobs {
		if job.Name == name {
			return job
		}
	}
	return nil
}

// Status returns a snapshot of every job ordered by next run
func (s *Scheduler) Status() []JobSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]JobSnapshot, 0, len(s.jobs))
	for _, job := range s.jobs {
		out = append(out, job.snapshot())
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].NextRun.Before(out[j].NextRun)
	})
	return out
}
