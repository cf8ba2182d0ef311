package scheduler

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stepflow/stepflow/common/gerror"
	"github.com/stepflow/stepflow/common/logger"
)

// funcTask adapts closures to the Task interface for tests.
type funcTask struct {
	step   func() (string, error)
	closed int
}

func (t *funcTask) Step() (string, error) { return t.step() }
func (t *funcTask) Close()                { t.closed++ }

// oneStepTask returns a factory for a task that yields a single result and
// then signals done, invoking onStep when the work happens.
func oneStepTask(result string, onStep func()) TaskFactory {
	return func() (Task, error) {
		stepped := false
		return &funcTask{step: func() (string, error) {
			if stepped {
				return "", ErrDone
			}
			stepped = true
			if onStep != nil {
				onStep()
			}
			return result, nil
		}}, nil
	}
}

func newTestScheduler(t *testing.T, clk clock.Clock) *Scheduler {
	return NewScheduler(NewResolver(), clk, logger.NoOpLogFactory, SchedulerConfig{
		StateFilePath:    filepath.Join(t.TempDir(), "state.json"),
		IdlePollInterval: time.Millisecond,
	})
}

func newTestJob(s *Scheduler, id string, factory TaskFactory, config JobConfig) *Job {
	config.ID = id
	if config.FuncName == "" {
		config.FuncName = "test_task"
	}
	return NewJob(config, factory, s.clk, logger.NoOpLogFactory)
}

func TestSimpleChain(t *testing.T) {
	var (
		s     = newTestScheduler(t, clock.New())
		order []string
	)

	jobA := newTestJob(s, "a", oneStepTask("a done", func() { order = append(order, "a") }), JobConfig{})
	jobB := newTestJob(s, "b", oneStepTask("b done", func() { order = append(order, "b") }), JobConfig{})
	jobC := newTestJob(s, "c", func() (Task, error) {
		return &funcTask{step: func() (string, error) {
			// C must not be stepped until both dependencies have finalized
			require.Equal(t, JobStatusCompleted, jobA.Status)
			require.Equal(t, JobStatusCompleted, jobB.Status)
			order = append(order, "c")
			return "", ErrDone
		}}, nil
	}, JobConfig{Dependencies: []*Job{jobA, jobB}})

	require.NoError(t, s.Schedule(jobA))
	require.NoError(t, s.Schedule(jobB))
	require.NoError(t, s.Schedule(jobC))
	s.Run()

	assert.Equal(t, JobStatusCompleted, jobA.Status)
	assert.Equal(t, JobStatusCompleted, jobB.Status)
	assert.Equal(t, JobStatusCompleted, jobC.Status)
	assert.Equal(t, []string{"a", "b", "c"}, order)
	assert.Equal(t, 0, s.QueueLen())
}

func TestRetryThenSucceed(t *testing.T) {
	s := newTestScheduler(t, clock.New())

	attempts := 0
	factory := func() (Task, error) {
		attempts++
		if attempts == 1 {
			return &funcTask{step: func() (string, error) {
				return "", errors.New("transient failure")
			}}, nil
		}
		return &funcTask{step: func() (string, error) {
			return "", ErrDone
		}}, nil
	}

	job := newTestJob(s, "retry", factory, JobConfig{MaxTries: 2})
	require.NoError(t, s.Schedule(job))
	s.Run()

	assert.Equal(t, JobStatusCompleted, job.Status)
	assert.Equal(t, 1, job.CurrentTries)
	assert.Equal(t, 2, attempts)
}

func TestRetryExhaustion(t *testing.T) {
	s := newTestScheduler(t, clock.New())

	factory := func() (Task, error) {
		return &funcTask{step: func() (string, error) {
			return "", errors.New("broken forever")
		}}, nil
	}

	job := newTestJob(s, "hopeless", factory, JobConfig{MaxTries: 2})
	require.NoError(t, s.Schedule(job))
	s.Run()

	assert.Equal(t, JobStatusFailed, job.Status)
	assert.Contains(t, job.Error, "broken forever")
	assert.Equal(t, 2, job.CurrentTries)
	assert.Equal(t, 0, s.QueueLen())
}

func TestFailedDependencyPropagation(t *testing.T) {
	s := newTestScheduler(t, clock.New())

	jobA := newTestJob(s, "a", func() (Task, error) {
		return &funcTask{step: func() (string, error) {
			return "", errors.New("a is broken")
		}}, nil
	}, JobConfig{MaxTries: 1})

	spyStepped := false
	spy := &funcTask{step: func() (string, error) {
		spyStepped = true
		return "", ErrDone
	}}
	jobB := newTestJob(s, "b", func() (Task, error) {
		return spy, nil
	}, JobConfig{Dependencies: []*Job{jobA}})

	require.NoError(t, s.Schedule(jobA))
	require.NoError(t, s.Schedule(jobB))
	s.Run()

	assert.Equal(t, JobStatusFailed, jobA.Status)
	assert.Equal(t, JobStatusFailed, jobB.Status)
	assert.Equal(t, "Dependency failed", jobB.Error)
	assert.False(t, spyStepped, "a job with a failed dependency must never be stepped")
}

func TestMaxWorkingTimeExceeded(t *testing.T) {
	s := newTestScheduler(t, clock.New())

	task := &funcTask{step: func() (string, error) {
		time.Sleep(60 * time.Millisecond)
		return "still going", nil
	}}
	job := newTestJob(s, "slow", func() (Task, error) { return task, nil },
		JobConfig{MaxWorkingTime: 50 * time.Millisecond})

	require.NoError(t, s.Schedule(job))
	s.Run()

	assert.Equal(t, JobStatusFailed, job.Status)
	assert.Equal(t, "Max working time exceeded", job.Error)
	assert.Equal(t, 1, task.closed)
}

func TestStartTimeGate(t *testing.T) {
	s := newTestScheduler(t, clock.New())

	startAt := time.Now().Add(80 * time.Millisecond)
	var steppedAt time.Time
	job := newTestJob(s, "later", oneStepTask("", func() { steppedAt = time.Now() }),
		JobConfig{StartAt: startAt})

	require.NoError(t, s.Schedule(job))
	s.Run()

	assert.Equal(t, JobStatusCompleted, job.Status)
	assert.False(t, steppedAt.Before(startAt), "job was stepped before its start time")
}

func TestCompletedJobKeepsLastResult(t *testing.T) {
	s := newTestScheduler(t, clock.New())

	job := newTestJob(s, "payload", oneStepTask("final payload", nil), JobConfig{})
	require.NoError(t, s.Schedule(job))
	s.Run()

	assert.Equal(t, JobStatusCompleted, job.Status)
	assert.Equal(t, "final payload", job.Result)
	assert.Empty(t, job.Error)
}

func TestPoolSizeCapOnlyAppliesToSchedule(t *testing.T) {
	s := NewScheduler(NewResolver(), clock.New(), logger.NoOpLogFactory, SchedulerConfig{
		PoolSize:         1,
		StateFilePath:    filepath.Join(t.TempDir(), "state.json"),
		IdlePollInterval: time.Millisecond,
	})

	jobA := newTestJob(s, "a", oneStepTask("", nil), JobConfig{})
	jobB := newTestJob(s, "b", oneStepTask("", nil), JobConfig{})

	require.NoError(t, s.Schedule(jobA))
	err := s.Schedule(jobB)
	require.Error(t, err)
	assert.True(t, gerror.IsQueueFull(err))

	// AddJob bypasses the admission cap (retries and state loads rely on it)
	s.AddJob(jobB)
	assert.Equal(t, 2, s.QueueLen())

	s.Run()
	assert.Equal(t, JobStatusCompleted, jobA.Status)
	assert.Equal(t, JobStatusCompleted, jobB.Status)
}

func TestRequestStopSavesQueue(t *testing.T) {
	s := newTestScheduler(t, clock.New())

	turns := 0
	job := newTestJob(s, "looper", func() (Task, error) {
		return &funcTask{step: func() (string, error) {
			turns++
			if turns > 100 {
				return "", errors.New("scheduler did not stop")
			}
			s.RequestStop()
			return "", nil
		}}, nil
	}, JobConfig{})

	require.NoError(t, s.Schedule(job))
	s.Run()

	// The job was re-enqueued and then saved when the stop request was seen
	assert.Equal(t, 1, turns)
	assert.Equal(t, 1, s.QueueLen())
	assert.FileExists(t, s.config.StateFilePath)
}
