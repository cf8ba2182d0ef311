package scheduler

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stepflow/stepflow/common/gerror"
)

func TestResolverRegisterAndResolve(t *testing.T) {
	r := NewResolver()
	require.NoError(t, r.Register("noop", noopTaskFunc))

	fn, err := r.Resolve("noop")
	require.NoError(t, err)
	require.NotNil(t, fn)

	_, err = r.Resolve("missing")
	require.Error(t, err)
	assert.True(t, gerror.IsUnknownTask(err))
}

func TestResolverRejectsDuplicateNames(t *testing.T) {
	r := NewResolver()
	require.NoError(t, r.Register("noop", noopTaskFunc))

	err := r.Register("noop", noopTaskFunc)
	require.Error(t, err)
	assert.True(t, gerror.IsAlreadyExists(err))
}

func TestJobRegistryDeduplicates(t *testing.T) {
	registry := NewJobRegistry()
	assert.Nil(t, registry.GetJob("a"))

	job, _ := newMockedJob(JobConfig{ID: "a"})
	registry.RegisterJob(job)
	assert.Same(t, job, registry.GetJob("a"))
}

func TestJobStatusParsing(t *testing.T) {
	for _, name := range []string{"PENDING", "RUNNING", "COMPLETED", "FAILED"} {
		status, ok := ParseJobStatus(name)
		require.True(t, ok, name)
		assert.Equal(t, name, status.String())
		assert.True(t, status.Valid())
	}

	_, ok := ParseJobStatus("pending")
	assert.False(t, ok, "status names are case sensitive in the state file")

	assert.True(t, JobStatusCompleted.HasFinished())
	assert.True(t, JobStatusFailed.HasFinished())
	assert.False(t, JobStatusPending.HasFinished())
	assert.False(t, JobStatusRunning.HasFinished())
}
