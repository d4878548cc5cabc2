package healthcheck

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ayaseen/cluster-probes/pkg/types"
)

type stubCheck struct {
	BaseCheck
	run func(ctx context.Context) (Result, error)
}

func newStub(id string, category types.Category, run func(ctx context.Context) (Result, error)) *stubCheck {
	return &stubCheck{
		BaseCheck: NewBaseCheck(id, "Stub "+id, "stub probe", category),
		run:       run,
	}
}

func (s *stubCheck) Run(ctx context.Context) (Result, error) {
	return s.run(ctx)
}

func passing(id string) *stubCheck {
	return newStub(id, types.CategoryCluster, func(ctx context.Context) (Result, error) {
		return NewResult(id, types.StatusOK, "fine"), nil
	})
}

func failing(id string) *stubCheck {
	return newStub(id, types.CategoryStorage, func(ctx context.Context) (Result, error) {
		return Fail(id, "Broken", errors.New("boom"))
	})
}

func testRunner(config Config) *Runner {
	logger, _ := test.NewNullLogger()
	config.SkipProgressBar = true
	return NewRunner(config, logrus.NewEntry(logger))
}

func TestRunnerNoChecks(t *testing.T) {
	r := testRunner(Config{})
	require.Error(t, r.Run(context.Background()))
	assert.False(t, r.Passed())
}

func TestRunnerAllPass(t *testing.T) {
	r := testRunner(Config{})
	r.AddChecks([]Check{passing("a"), passing("b")})

	require.NoError(t, r.Run(context.Background()))
	assert.True(t, r.Passed())
	assert.NoError(t, r.Errors())
	assert.Len(t, r.GetResults(), 2)
	assert.Equal(t, 2, r.CountByStatus()[types.StatusOK])
}

func TestRunnerOneFailureFailsRun(t *testing.T) {
	r := testRunner(Config{})
	r.AddChecks([]Check{passing("a"), failing("b"), passing("c")})

	require.NoError(t, r.Run(context.Background()))
	assert.False(t, r.Passed())

	results := r.GetResults()
	assert.Len(t, results, 3, "a failure must not stop the other probes")
	assert.Equal(t, types.StatusCritical, results["b"].Status)

	err := r.Errors()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "b: broken: boom")
}

func TestRunnerWarningStillPasses(t *testing.T) {
	r := testRunner(Config{})
	r.AddCheck(newStub("warn", types.CategoryStorage, func(ctx context.Context) (Result, error) {
		return NewResult("warn", types.StatusWarning, "nothing to check"), nil
	}))

	require.NoError(t, r.Run(context.Background()))
	assert.True(t, r.Passed())
}

func TestRunnerErrorWithPassingStatusBecomesCritical(t *testing.T) {
	r := testRunner(Config{})
	r.AddCheck(newStub("sloppy", types.CategoryCluster, func(ctx context.Context) (Result, error) {
		return NewResult("sloppy", types.StatusOK, "looks fine"), errors.New("but it is not")
	}))

	require.NoError(t, r.Run(context.Background()))
	assert.Equal(t, types.StatusCritical, r.GetResults()["sloppy"].Status)
	assert.False(t, r.Passed())
}

func TestRunnerRecoversPanics(t *testing.T) {
	r := testRunner(Config{})
	r.AddCheck(newStub("panics", types.CategoryCluster, func(ctx context.Context) (Result, error) {
		panic("nil map")
	}))

	require.NoError(t, r.Run(context.Background()))
	result := r.GetResults()["panics"]
	assert.Equal(t, types.StatusCritical, result.Status)
	assert.Contains(t, result.Message, "nil map")
}

func TestRunnerTimeout(t *testing.T) {
	r := testRunner(Config{Timeout: 20 * time.Millisecond})
	r.AddCheck(newStub("slow", types.CategoryCluster, func(ctx context.Context) (Result, error) {
		<-ctx.Done()
		time.Sleep(50 * time.Millisecond)
		return NewResult("slow", types.StatusOK, "too late"), nil
	}))

	require.NoError(t, r.Run(context.Background()))
	result := r.GetResults()["slow"]
	assert.Equal(t, types.StatusCritical, result.Status)
	assert.Equal(t, "Check timed out", result.Message)
	assert.ErrorIs(t, r.Errors(), context.DeadlineExceeded)
}

func TestRunnerFailFast(t *testing.T) {
	r := testRunner(Config{FailFast: true})
	r.AddChecks([]Check{passing("a"), failing("b"), passing("c")})

	require.NoError(t, r.Run(context.Background()))
	results := r.GetResults()
	assert.Contains(t, results, "a")
	assert.Contains(t, results, "b")
	assert.NotContains(t, results, "c")
	assert.False(t, r.Passed())
}

func TestRunnerParallel(t *testing.T) {
	r := testRunner(Config{Parallel: true})
	for _, id := range []string{"a", "b", "c", "d"} {
		r.AddCheck(passing(id))
	}

	require.NoError(t, r.Run(context.Background()))
	assert.Len(t, r.GetResults(), 4)
	assert.True(t, r.Passed())
}

func TestRunnerCategoryFilter(t *testing.T) {
	r := testRunner(Config{CategoryFilter: []types.Category{types.CategoryCluster}})
	r.AddChecks([]Check{passing("a"), failing("storage")})

	require.NoError(t, r.Run(context.Background()))
	assert.NotContains(t, r.GetResults(), "storage")
	assert.True(t, r.Passed(), "filtered out probes do not count")

	r = testRunner(Config{CategoryFilter: []types.Category{types.CategoryAdmission}})
	r.AddCheck(passing("a"))
	assert.Error(t, r.Run(context.Background()))
}

func TestRunnerRecordsExecutionTime(t *testing.T) {
	r := testRunner(Config{})
	r.AddCheck(newStub("timed", types.CategoryCluster, func(ctx context.Context) (Result, error) {
		time.Sleep(5 * time.Millisecond)
		return NewResult("timed", types.StatusOK, "fine"), nil
	}))

	require.NoError(t, r.Run(context.Background()))
	assert.GreaterOrEqual(t, r.GetResults()["timed"].ExecutionTime, 5*time.Millisecond)
}

func TestRunnerProgressGoesToProgressOutput(t *testing.T) {
	var progress bytes.Buffer
	logger, _ := test.NewNullLogger()
	r := NewRunner(Config{ProgressOutput: &progress}, logrus.NewEntry(logger))
	r.AddChecks([]Check{passing("a"), passing("b")})

	require.NoError(t, r.Run(context.Background()))
	assert.Contains(t, progress.String(), "Cluster probes in progress ...")
}

func TestFail(t *testing.T) {
	result, err := Fail("x", "Failed to list nodes", errors.New("forbidden"))
	assert.Equal(t, types.StatusCritical, result.Status)
	assert.Equal(t, "Failed to list nodes", result.Message)
	assert.EqualError(t, err, "failed to list nodes: forbidden")

	_, err = Fail("x", "Cluster API URL is not known", nil)
	assert.EqualError(t, err, "cluster API URL is not known")
}
