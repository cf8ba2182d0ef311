package scheduler

import (
	"fmt"
	"sync"

	"github.com/stepflow/stepflow/common/gerror"
)

// Resolver maps the symbolic task names that appear in persisted and
// declarative job records to task implementations. A deployment registers
// the set of tasks it supports at process start; names unknown to the
// resolver fail the record that references them.
type Resolver struct {
	mu    sync.RWMutex
	funcs map[string]TaskFunc
}

func NewResolver() *Resolver {
	return &Resolver{funcs: make(map[string]TaskFunc)}
}

// Register adds a task implementation under the given symbolic name.
// Only one implementation can be registered per name.
func (r *Resolver) Register(name string, fn TaskFunc) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.funcs[name]; ok {
		return gerror.NewErrAlreadyExists("task already registered").EDetail("name", name)
	}
	r.funcs[name] = fn
	return nil
}

// MustRegister is like Register but panics on a duplicate name. Intended for
// wiring up the static task set at process start.
func (r *Resolver) MustRegister(name string, fn TaskFunc) {
	err := r.Register(name, fn)
	if err != nil {
		panic(fmt.Sprintf("error registering task %q: %v", name, err))
	}
}

// Resolve returns the task implementation registered under name.
func (r *Resolver) Resolve(name string) (TaskFunc, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	fn, ok := r.funcs[name]
	if !ok {
		return nil, gerror.NewErrUnknownTask("no task registered").EDetail("name", name)
	}
	return fn, nil
}
