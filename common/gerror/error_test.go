package gerror

import (
	"errors"
	"fmt"
	"testing"

	"github.com/hashicorp/go-multierror"

	"github.com/stretchr/testify/require"
)

func TestError(t *testing.T) {
	err := NewErrAlreadyExists("task already registered")
	err = err.Wrap(fmt.Errorf("i'm a scary internal error"))
	require.Equal(t, "task already registered: i'm a scary internal error", err.Error())
	require.Equal(t, "task already registered", err.Message())

	err = err.EDetail("name", "create_file")
	require.Equal(t, "task already registered [name=create_file]: i'm a scary internal error", err.Error())
	require.Equal(t, "task already registered", err.Message())

	err = err.Wrap(NewErrNotFound("task does not exist").EDetail("name", "delete_file").Wrap(fmt.Errorf("i'm a scary internal error")))
	require.Equal(t, "task already registered [name=create_file]: task does not exist [name=delete_file]: i'm a scary internal error", err.Error())
	require.Equal(t, "task already registered", err.Message())
}

func TestMultiError(t *testing.T) {
	// Compose a multierror with our tested error in the middle
	var results *multierror.Error

	results = multierror.Append(results, fmt.Errorf("error 1: %w", errors.New("1")))
	results = multierror.Append(results, NewErrUnknownTask("no task registered with name \"bogus\""))
	results = multierror.Append(results, fmt.Errorf("error 3: %w", errors.New("3")))

	// Assert that our Is chaining returns an error in the middle of the chain
	err := results.ErrorOrNil()
	require.True(t, IsUnknownTask(err))

	// Wrap up the above error with another multierror
	var outerResults *multierror.Error
	outerResults = multierror.Append(err, fmt.Errorf("outer error 1: %w", errors.New("11")))

	// And assert our Is chaining returns the error we are after.
	outerErr := outerResults.ErrorOrNil()
	require.True(t, IsUnknownTask(outerErr))
}
