package scheduler

import (
	"fmt"
	"net/http"
	"time"

	"github.com/robfig/cron/v3"
)

// JobStatus represents the outcome of a job's last run
type JobStatus string

const (
	JobStatusPending JobStatus = "PENDING"
	JobStatusSuccess JobStatus = "SUCCESS"
	JobStatusFailed  JobStatus = "FAILED"
)

// Job names used by the analytics refresh schedule
const (
	JobDailyRefresh    = "daily-refresh"
	JobPeriodicRefresh = "periodic-refresh"
	JobHealthCheck     = "health-check"
)

// JobDefinition describes a recurring HTTP call against the analytics service
type JobDefinition struct {
	Name   string
	Spec   string // standard 5-field cron expression
	Method string
	Path   string
	Body   []byte // sent as application/json when non-nil
}

// Job is a parsed JobDefinition plus its run state
type Job struct {
	JobDefinition

	schedule cron.Schedule

	NextRun   time.Time
	LastRun   *time.Time
	Status    JobStatus
	LastCode  int
	LastError string
	LastTook  time.Duration
	RunCount  int
	FailCount int
}

// JobSnapshot is a read-only view of a job returned by Status
type JobSnapshot struct {
	Name      string        `json:"name"`
	Spec      string        `json:"spec"`
	Method    string        `json:"method"`
	Path      string        `json:"path"`
	NextRun   time.Time     `json:"next_run"`
	LastRun   *time.Time    `json:"last_run,omitempty"`
	Status    JobStatus     `json:"status"`
	LastCode  int           `json:"last_code,omitempty"`
	LastError string        `json:"last_error,omitempty"`
	LastTook  time.Duration `json:"last_took"`
	RunCount  int           `json:"run_count"`
	FailCount int           `json:"fail_count"`
}

var parser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)

// ParseSchedule parses a standard 5-field cron expression
func ParseSchedule(spec string) (cron.Schedule, error) {
	sched, err := parser.Parse(spec)
	if err != nil {
		return nil, fmt.Errorf("%w %q: %v", ErrInvalidCron, spec, err)
	}
	return sched, nil
}

func newJob(def JobDefinition, now time.Time) (*Job, error) {
	if def.Name == "" {
		return nil, fmt.Errorf("%w: job name is required", ErrInvalidConfig)
	}
	if def.Method == "" {
		def.Method = http.MethodGet
	}
	sched, err := ParseSchedule(def.Spec)
	if err != nil {
		return nil, fmt.Errorf("job %s: %w", def.Name, err)
	}
	return &Job{
		JobDefinition: def,
		schedule:      sched,
		NextRun:       sched.Next(now),
		Status:        JobStatusPending,
	}, nil
}

// due reports whether the job should fire at now
func (j *Job) due(now time.Time) bool {
	return !now.Before(j.NextRun)
}

func (j *Job) record(at time.Time, res Result, err error) {
	t := at
	j.LastRun = &t
	j.LastCode = res.StatusCode
	j.LastTook = res.Latency
	j.RunCount++
	if err != nil {
		j.Status = JobStatusFailed
		j.LastError = err.Error()
		j.FailCount++
		return
	}
	j.Status = JobStatusSuccess
	j.LastError = ""
}

func (j *Job) snapshot() JobSnapshot {
	s := JobSnapshot{
		Name:      j.Name,
		Spec:      j.Spec,
		Method:    j.Method,
		Path:      j.Path,
		NextRun:   j.NextRun,
		Status:    j.Status,
		LastCode:  j.LastCode,
		LastError: j.LastError,
		LastTook:  j.LastTook,
		RunCount:  j.RunCount,
		FailCount: j.FailCount,
	}
	if j.LastRun != nil {
		t := *j.LastRun
		s.LastRun = &t
	}
	return s
}

// AnalyticsJobs returns the three analytics refresh jobs
func AnalyticsJobs(dailySpec, periodicSpec, healthSpec, refreshPath, healthPath string) []JobDefinition {
	return []JobDefinition{
		{
			Name:   JobDailyRefresh,
			Spec:   dailySpec,
			Method: http.MethodPost,
			Path:   refreshPath,
			Body:   []byte(`{"scope":"daily"}`),
		},
		{
			Name:   JobPeriodicRefresh,
			Spec:   periodicSpec,
			Method: http.MethodPost,
			Path:   refreshPath,
			Body:   []byte(`{"scope":"incremental"}`),
		},
		{
			Name:   JobHealthCheck,
			Spec:   healthSpec,
			Method: http.MethodGet,
			Path:   healthPath,
		},
	}
}
