package scheduler

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/pkg/errors"

	"github.com/stepflow/stepflow/common/gerror"
	"github.com/stepflow/stepflow/common/logger"
)

const (
	// DefaultPoolSize is the default soft cap on the number of jobs that can
	// be admitted through Schedule.
	DefaultPoolSize = 10

	// defaultIdlePollInterval is how long the scheduler sleeps after a full
	// queue rotation in which no job made progress (all jobs waiting on a
	// start time or on dependencies).
	defaultIdlePollInterval = 50 * time.Millisecond
)

type SchedulerConfig struct {
	// PoolSize is a soft admission limit checked only by Schedule. AddJob
	// bypasses it so that retries and state-file loads always succeed.
	PoolSize int
	// StateFilePath is where the queue is serialized on Stop and read on
	// LoadJobs.
	StateFilePath string
	// IdlePollInterval overrides the sleep applied when a whole rotation of
	// the queue makes no progress. Zero selects the default.
	IdlePollInterval time.Duration
}

// Scheduler owns a FIFO queue of jobs and advances them cooperatively on a
// single goroutine: each turn pops the head job, checks its gates, steps its
// task once, and re-enqueues or finalizes it depending on the outcome.
type Scheduler struct {
	config        SchedulerConfig
	resolver      *Resolver
	clk           clock.Clock
	logFactory    logger.LogFactory
	stopRequested atomic.Bool

	mu    sync.Mutex
	queue []*Job

	logger.Log
}

func NewScheduler(resolver *Resolver, clk clock.Clock, logFactory logger.LogFactory, config SchedulerConfig) *Scheduler {
	if config.PoolSize <= 0 {
		config.PoolSize = DefaultPoolSize
	}
	if config.IdlePollInterval <= 0 {
		config.IdlePollInterval = defaultIdlePollInterval
	}
	return &Scheduler{
		config:     config,
		resolver:   resolver,
		clk:        clk,
		logFactory: logFactory,
		Log:        logFactory("Scheduler"),
	}
}

// NewJob constructs a job bound to this scheduler's clock and log factory,
// resolving the task implementation through the scheduler's resolver.
func (s *Scheduler) NewJob(config JobConfig) (*Job, error) {
	fn, err := s.resolver.Resolve(config.FuncName)
	if err != nil {
		return nil, err
	}
	job := NewJob(config, func() (Task, error) {
		return fn(config.Args, config.Kwargs)
	}, s.clk, s.logFactory)
	return job, nil
}

// Schedule admits a job to the queue, subject to the pool-size cap.
func (s *Scheduler) Schedule(job *Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.queue) >= s.config.PoolSize {
		return gerror.NewErrQueueFull("scheduler queue is full").
			EDetail("pool_size", s.config.PoolSize)
	}
	s.queue = append(s.queue, job)
	s.Debugf("Job %s scheduled", job.ID)
	return nil
}

// AddJob appends a job to the tail of the queue, bypassing the pool-size cap.
// Used for retry re-enqueues and for loading jobs from the state file.
func (s *Scheduler) AddJob(job *Job) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.queue = append(s.queue, job)
	s.Debugf("Job %s added to the queue", job.ID)
}

// QueueLen returns the number of jobs currently queued.
func (s *Scheduler) QueueLen() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.queue)
}

// Run drives the queue until it is empty, advancing one job by one step per
// turn in strict FIFO rotation. Jobs that are not yet runnable are rotated to
// the back of the queue; if a whole rotation makes no progress the scheduler
// sleeps briefly before polling again. Returns once every job has reached a
// terminal state, or early (after saving state) if RequestStop was called.
func (s *Scheduler) Run() {
	idleTurns := 0
	for {
		if s.stopRequested.Load() {
			s.stopRequested.Store(false)
			err := s.Stop()
			if err != nil {
				s.Errorf("Error saving state on stop: %v", err)
			}
			return
		}

		s.mu.Lock()
		if len(s.queue) == 0 {
			s.mu.Unlock()
			return
		}
		job := s.queue[0]
		s.queue = s.queue[1:]
		s.mu.Unlock()

		if job.HasExceededMaxTime() {
			s.Errorf("Job %s: Max working time exceeded", job.ID)
			job.UpdateStatus(JobStatusFailed, "", "Max working time exceeded")
			job.CloseTask()
			idleTurns = 0
			continue
		}

		if job.HasFailedDependency() {
			s.Errorf("Cannot run job %s: Dependency failed", job.ID)
			job.UpdateStatus(JobStatusFailed, "", "Dependency failed")
			job.CloseTask()
			idleTurns = 0
			continue
		}

		err := job.Run()
		switch {
		case errors.Is(err, ErrDone):
			job.UpdateStatus(JobStatusCompleted, job.Result, "")
			job.CloseTask()
			s.Infof("Job %s: Completed", job.ID)
			idleTurns = 0

		case err != nil:
			s.Errorf("Error running job %s: %v", job.ID, err)
			job.CloseTask()
			if job.CanRetry() {
				job.RestartTask()
				job.CurrentTries++
				s.AddJob(job)
			} else {
				s.Errorf("Job %s: Max retry exceeded", job.ID)
				job.UpdateStatus(JobStatusFailed, "", err.Error())
			}
			idleTurns = 0

		default:
			// A finished job is never re-enqueued. A job that was not
			// runnable this turn is still PENDING and counts as an idle turn.
			if !job.Status.HasFinished() {
				s.AddJob(job)
			}
			if job.Status == JobStatusPending {
				idleTurns++
			} else {
				idleTurns = 0
			}
		}

		queueLen := s.QueueLen()
		if queueLen > 0 && idleTurns >= queueLen {
			s.clk.Sleep(s.config.IdlePollInterval)
			idleTurns = 0
		}
	}
}

// RequestStop asks a running scheduler to save its state and exit before the
// next turn. Safe to call from another goroutine (e.g. a signal handler).
func (s *Scheduler) RequestStop() {
	s.stopRequested.Store(true)
}

// Stop serializes the not-yet-finished jobs in the queue to the state file.
func (s *Scheduler) Stop() error {
	s.Infof("Stopping and saving unfinished jobs")
	return s.SaveJobs()
}

// Restart saves the current queue, clears it, reloads jobs from the state
// file and resumes running them.
func (s *Scheduler) Restart() error {
	err := s.Stop()
	if err != nil {
		return errors.Wrap(err, "error saving state")
	}
	s.mu.Lock()
	s.queue = nil
	s.mu.Unlock()
	err = s.LoadJobs()
	if err != nil {
		s.Errorf("Error loading jobs from state file: %v", err)
	}
	s.Run()
	return nil
}
