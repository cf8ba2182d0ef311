// Package tasks provides the built-in task implementations that can be
// referenced by name from declarative job files and from persisted queue
// state.
package tasks

import (
	"github.com/stepflow/stepflow/common/gerror"
	"github.com/stepflow/stepflow/common/logger"
	"github.com/stepflow/stepflow/scheduler"
)

// NewResolver returns a resolver with every built-in task registered under
// its symbolic name.
func NewResolver(logFactory logger.LogFactory) *scheduler.Resolver {
	r := scheduler.NewResolver()
	r.MustRegister("create_directory", CreateDirectory)
	r.MustRegister("delete_directory", DeleteDirectory)
	r.MustRegister("create_file", CreateFile)
	r.MustRegister("delete_file", DeleteFile)
	r.MustRegister("write_to_file", WriteToFile)
	r.MustRegister("read_from_file", ReadFromFile)
	r.MustRegister("html_to_txt_pipeline", HTMLToText(logFactory))
	return r
}

// oneShot adapts a function performing a single unit of work to the task
// step contract: the first step runs the function, the second signals done.
type oneShot struct {
	fn   func() (string, error)
	done bool
}

func (t *oneShot) Step() (string, error) {
	if t.done {
		return "", scheduler.ErrDone
	}
	t.done = true
	return t.fn()
}

func (t *oneShot) Close() {}

func stringArg(args []interface{}, index int, name string) (string, error) {
	if index >= len(args) {
		return "", gerror.NewErrValidationFailed("missing required argument").EDetail("arg", name)
	}
	str, ok := args[index].(string)
	if !ok {
		return "", gerror.NewErrValidationFailed("argument must be a string").EDetail("arg", name)
	}
	return str, nil
}
