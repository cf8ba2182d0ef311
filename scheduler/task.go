package scheduler

import (
	"github.com/pkg/errors"
)

// ErrDone is returned from Task.Step when the task has produced its final result.
// It is a terminal signal, not a failure; check for it with errors.Is.
// A task that has returned ErrDone must not be stepped again.
var ErrDone = errors.New("task done")

// Task is a finite, resumable unit of work. The scheduler advances a task by
// exactly one Step per turn, interleaving progress across all queued jobs.
//
// Step performs one unit of work. A nil error means more work remains and the
// caller must call Step again to continue. ErrDone means the task finished
// normally. Any other error fails the current attempt, after which the task
// is no longer usable and must be closed.
//
// Close releases any resources held between steps (open files, streaming
// response bodies, partial buffers). It must be idempotent and must not fail;
// it can be called at any point in the task's life.
type Task interface {
	Step() (result string, err error)
	Close()
}

// TaskFactory produces a fresh Task bound to a job's arguments. The scheduler
// invokes it lazily on the first step of an attempt, and again after a retry
// has discarded the previous task. An error fails the attempt the same way a
// failed Step does.
type TaskFactory func() (Task, error)

// TaskFunc constructs a Task from the positional and named arguments carried
// by a job. Implementations are registered against a symbolic name in a
// Resolver so that persisted jobs can be rebuilt after a restart.
type TaskFunc func(args []interface{}, kwargs map[string]interface{}) (Task, error)
