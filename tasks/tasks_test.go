package tasks

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stepflow/stepflow/common/gerror"
	"github.com/stepflow/stepflow/common/logger"
	"github.com/stepflow/stepflow/scheduler"
)

// runToCompletion drives a task the way the scheduler would, one step at a
// time, returning the payload of the last productive step.
func runToCompletion(t *testing.T, task scheduler.Task) string {
	t.Helper()
	var lastResult string
	for i := 0; ; i++ {
		require.Less(t, i, 10000, "task did not finish")
		result, err := task.Step()
		if err == scheduler.ErrDone {
			task.Close()
			return lastResult
		}
		require.NoError(t, err)
		if result != "" {
			lastResult = result
		}
	}
}

func TestNewResolverRegistersBuiltins(t *testing.T) {
	r := NewResolver(logger.NoOpLogFactory)
	for _, name := range []string{
		"create_directory", "delete_directory", "create_file", "delete_file",
		"write_to_file", "read_from_file", "html_to_txt_pipeline",
	} {
		fn, err := r.Resolve(name)
		require.NoError(t, err, name)
		require.NotNil(t, fn, name)
	}
}

func TestCreateAndDeleteDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "dir")

	task, err := CreateDirectory([]interface{}{path}, nil)
	require.NoError(t, err)
	assert.Contains(t, runToCompletion(t, task), "Directory created")
	assert.DirExists(t, path)

	// Creating again reports that it already exists rather than failing
	task, err = CreateDirectory([]interface{}{path}, nil)
	require.NoError(t, err)
	assert.Contains(t, runToCompletion(t, task), "Directory exists")

	task, err = DeleteDirectory([]interface{}{path}, nil)
	require.NoError(t, err)
	assert.Contains(t, runToCompletion(t, task), "Directory deleted")
	assert.NoDirExists(t, path)

	task, err = DeleteDirectory([]interface{}{path}, nil)
	require.NoError(t, err)
	assert.Equal(t, "Directory not found", runToCompletion(t, task))
}

func TestCreateWriteReadDeleteFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "f.txt")

	task, err := CreateFile([]interface{}{path}, nil)
	require.NoError(t, err)
	assert.Contains(t, runToCompletion(t, task), "File created")
	assert.FileExists(t, path)

	task, err = WriteToFile([]interface{}{path, "line one\nline two"}, nil)
	require.NoError(t, err)
	assert.Contains(t, runToCompletion(t, task), "Content written")

	// Each step of the read task yields one line
	task, err = ReadFromFile([]interface{}{path}, nil)
	require.NoError(t, err)
	first, err := task.Step()
	require.NoError(t, err)
	assert.Equal(t, "line one", first)
	second, err := task.Step()
	require.NoError(t, err)
	assert.Equal(t, "line two", second)
	_, err = task.Step()
	assert.Equal(t, scheduler.ErrDone, err)
	task.Close()

	task, err = DeleteFile([]interface{}{path}, nil)
	require.NoError(t, err)
	assert.Contains(t, runToCompletion(t, task), "File deleted")
	assert.NoFileExists(t, path)

	task, err = DeleteFile([]interface{}{path}, nil)
	require.NoError(t, err)
	assert.Equal(t, "File not found", runToCompletion(t, task))
}

func TestReadFromMissingFile(t *testing.T) {
	task, err := ReadFromFile([]interface{}{filepath.Join(t.TempDir(), "nope.txt")}, nil)
	require.NoError(t, err)
	assert.Equal(t, "File not found", runToCompletion(t, task))
}

func TestArgumentValidation(t *testing.T) {
	_, err := CreateFile(nil, nil)
	require.Error(t, err)
	assert.True(t, gerror.IsValidationFailed(err))

	_, err = WriteToFile([]interface{}{"path-only"}, nil)
	require.Error(t, err)
	assert.True(t, gerror.IsValidationFailed(err))

	_, err = CreateDirectory([]interface{}{42}, nil)
	require.Error(t, err)
	assert.True(t, gerror.IsValidationFailed(err))
}

func TestOneShotStepsOnceThenSignalsDone(t *testing.T) {
	path := filepath.Join(t.TempDir(), "f.txt")
	task, err := CreateFile([]interface{}{path}, nil)
	require.NoError(t, err)

	_, err = task.Step()
	require.NoError(t, err)
	_, err = task.Step()
	assert.Equal(t, scheduler.ErrDone, err)
	_, err = task.Step()
	assert.Equal(t, scheduler.ErrDone, err)
}

func TestWriteToMissingDirectoryFails(t *testing.T) {
	task, err := WriteToFile([]interface{}{filepath.Join(t.TempDir(), "no", "such", "dir", "f.txt"), "x"}, nil)
	require.NoError(t, err)

	_, err = task.Step()
	require.Error(t, err)
	assert.True(t, os.IsNotExist(errorCause(err)))
}

func errorCause(err error) error {
	type causer interface{ Cause() error }
	for err != nil {
		c, ok := err.(causer)
		if !ok {
			break
		}
		err = c.Cause()
	}
	return err
}
