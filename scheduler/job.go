package scheduler

import (
	"time"

	"github.com/benbjohnson/clock"
	"github.com/pkg/errors"

	"github.com/stepflow/stepflow/common/logger"
)

// NoTimeLimit disables the working-time budget for a job.
const NoTimeLimit time.Duration = -1

// JobConfig carries the identity and scheduling attributes used to construct a Job.
type JobConfig struct {
	// ID is a stable unique identifier, used for logging and to deduplicate
	// shared dependencies when reloading persisted state.
	ID string
	// FuncName is the symbolic name of the task implementation, as registered
	// in a Resolver. It is the only representation of the task that survives
	// persistence.
	FuncName string
	// Args and Kwargs configure the task. They must remain representable as
	// plain JSON values for the job to be persistable.
	Args   []interface{}
	Kwargs map[string]interface{}
	// StartAt is the earliest time the job may be stepped. The zero value
	// means the job is eligible immediately.
	StartAt time.Time
	// MaxWorkingTime bounds how long the job may remain active, measured from
	// construction. The zero value and NoTimeLimit both disable the budget.
	MaxWorkingTime time.Duration
	// MaxTries is the number of retries allowed after step failures: a failed
	// attempt is retried while CurrentTries < MaxTries. Defaults to 1 (one
	// retry, so at most two attempts).
	MaxTries int
	// Dependencies must all reach COMPLETED before this job may be stepped.
	Dependencies []*Job
}

// Job wraps a task with identity, scheduling attributes and lifecycle status.
// A Job is created once, enqueued once, and from then on mutated only by the
// scheduler that owns the queue.
type Job struct {
	ID             string
	FuncName       string
	Args           []interface{}
	Kwargs         map[string]interface{}
	StartAt        time.Time
	MaxWorkingTime time.Duration
	// StartTime is when the job was constructed; it is the origin for the
	// working-time budget and is reset on reload from the state file.
	StartTime    time.Time
	MaxTries     int
	CurrentTries int
	Dependencies []*Job
	Status       JobStatus
	// Result holds the most recent step payload; Error the terminal error text.
	Result string
	Error  string

	factory TaskFactory
	task    Task
	clk     clock.Clock
	log     logger.Log
}

func NewJob(config JobConfig, factory TaskFactory, clk clock.Clock, logFactory logger.LogFactory) *Job {
	now := clk.Now()
	startAt := config.StartAt
	if startAt.IsZero() {
		startAt = now
	}
	maxWorkingTime := config.MaxWorkingTime
	if maxWorkingTime <= 0 {
		maxWorkingTime = NoTimeLimit
	}
	maxTries := config.MaxTries
	if maxTries <= 0 {
		maxTries = 1
	}
	return &Job{
		ID:             config.ID,
		FuncName:       config.FuncName,
		Args:           config.Args,
		Kwargs:         config.Kwargs,
		StartAt:        startAt,
		MaxWorkingTime: maxWorkingTime,
		StartTime:      now,
		MaxTries:       maxTries,
		Dependencies:   config.Dependencies,
		Status:         JobStatusPending,
		factory:        factory,
		clk:            clk,
		log:            logFactory("Job").WithField("job_id", config.ID),
	}
}

// UpdateStatus assigns a new lifecycle status along with the terminal result
// and error text, if any.
func (j *Job) UpdateStatus(status JobStatus, result string, errText string) {
	j.Status = status
	j.Result = result
	j.Error = errText
}

// CanRetry returns true if the job has attempts remaining after a step failure.
func (j *Job) CanRetry() bool {
	return j.CurrentTries < j.MaxTries
}

// HasExceededMaxTime returns true if the job's working-time budget has run out.
func (j *Job) HasExceededMaxTime() bool {
	if j.MaxWorkingTime == NoTimeLimit {
		return false
	}
	return j.clk.Now().Sub(j.StartTime) > j.MaxWorkingTime
}

func (j *Job) IsStartTimeReached() bool {
	return !j.clk.Now().Before(j.StartAt)
}

func (j *Job) AreDependenciesCompleted() bool {
	for _, dep := range j.Dependencies {
		if dep.Status != JobStatusCompleted {
			return false
		}
	}
	return true
}

func (j *Job) HasFailedDependency() bool {
	for _, dep := range j.Dependencies {
		if dep.Status == JobStatusFailed {
			return true
		}
	}
	return false
}

// IsRunnable returns true if the job's start time has arrived and all of its
// dependencies have completed.
func (j *Job) IsRunnable() bool {
	return j.IsStartTimeReached() && j.AreDependenciesCompleted()
}

// Run advances the job's task by exactly one step. A nil return means either
// one step of progress was made or the job was not runnable (the caller is
// expected to return it to the queue). ErrDone means the task finished its
// final step. Any other error means the current attempt has failed.
func (j *Job) Run() error {
	if !j.IsRunnable() {
		j.log.Debugf("Job %s is not runnable; returning to the queue", j.ID)
		return nil
	}

	// Transition to RUNNING without disturbing the last step payload.
	j.Status = JobStatusRunning

	if j.task == nil {
		task, err := j.factory()
		if err != nil {
			return errors.Wrapf(err, "error creating task for job %s", j.ID)
		}
		j.task = task
	}

	result, err := j.task.Step()
	if err != nil {
		return err
	}
	if result != "" {
		j.Result = result
	}
	return nil
}

// RestartTask discards the current task so the next call to Run rebuilds a
// fresh one from the factory. Used when retrying after a step failure.
func (j *Job) RestartTask() {
	j.log.Infof("Job %s re-start", j.ID)
	j.task = nil
}

// CloseTask releases the current task, if any.
func (j *Job) CloseTask() {
	if j.task != nil {
		j.log.Debugf("Closing task for job %s", j.ID)
		j.task.Close()
		j.task = nil
	}
}
