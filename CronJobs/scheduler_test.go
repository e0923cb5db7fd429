package CronJobs

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestScheduler(t *testing.T) *JobScheduler {
	t.Helper()
	s := NewJobScheduler(time.UTC)
	s.StopWait = time.Second
	return s
}

func TestRegisterRejectsInvalidSpec(t *testing.T) {
	s := newTestScheduler(t)
	err := s.Register("bad", "not a cron spec", func() error { return nil })
	assert.Error(t, err)
}

func TestRegisterReplacesExisting(t *testing.T) {
	s := newTestScheduler(t)
	require.NoError(t, s.Register("job", "0 1 * * *", func() error { return nil }))
	require.NoError(t, s.Register("job", "0 2 * * *", func() error { return nil }))

	jobs := s.Jobs()
	require.Len(t, jobs, 1)
	assert.Equal(t, "0 2 * * *", jobs[0].Spec)
}

func TestRunNowExecutesHandler(t *testing.T) {
	s := newTestScheduler(t)
	runs := 0
	require.NoError(t, s.Register("counter", "0 1 * * *", func() error {
		runs++
		return nil
	}))

	result := s.RunNow("counter")
	assert.True(t, result.Ran)
	assert.Empty(t, result.Skipped)
	assert.Empty(t, result.Error)
	assert.Equal(t, 1, runs)
}

func TestRunNowReportsHandlerError(t *testing.T) {
	s := newTestScheduler(t)
	require.NoError(t, s.Register("failing", "0 1 * * *", func() error {
		return errors.New("boom")
	}))

	result := s.RunNow("failing")
	assert.True(t, result.Ran)
	assert.Equal(t, "boom", result.Error)

	jobs := s.Jobs()
	require.Len(t, jobs, 1)
	assert.Equal(t, "boom", jobs[0].LastErr)
}

func TestRunNowUnknownJob(t *testing.T) {
	s := newTestScheduler(t)
	result := s.RunNow("nope")
	assert.False(t, result.Ran)
	assert.Equal(t, "not registered", result.Skipped)
}

func TestRunNowRecoversPanic(t *testing.T) {
	s := newTestScheduler(t)
	require.NoError(t, s.Register("panicky", "0 1 * * *", func() error {
		panic("unexpected")
	}))

	result := s.RunNow("panicky")
	assert.True(t, result.Ran)
	assert.Contains(t, result.Error, "panicked")

	// The scheduler survives and can run the job again.
	result = s.RunNow("panicky")
	assert.True(t, result.Ran)
}

func TestConcurrentRunIsSkipped(t *testing.T) {
	s := newTestScheduler(t)
	release := make(chan struct{})
	started := make(chan struct{})
	require.NoError(t, s.Register("slow", "0 1 * * *", func() error {
		close(started)
		<-release
		return nil
	}))

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		s.RunNow("slow")
	}()

	<-started
	result := s.RunNow("slow")
	assert.False(t, result.Ran)
	assert.Equal(t, "previous run still in progress", result.Skipped)

	close(release)
	wg.Wait()
}

func TestStartIsReentrant(t *testing.T) {
	s := newTestScheduler(t)
	require.NoError(t, s.Register("job", "0 1 * * *", func() error { return nil }))

	s.Start()
	s.Start() // no-op
	s.Stop()
	s.Stop() // no-op
}

func TestJobsReadableWhileJobRuns(t *testing.T) {
	s := newTestScheduler(t)
	release := make(chan struct{})
	started := make(chan struct{})
	require.NoError(t, s.Register("slow", "0 1 * * *", func() error {
		close(started)
		<-release
		return nil
	}))

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		s.RunNow("slow")
	}()
	<-started

	jobs := s.Jobs()
	require.Len(t, jobs, 1)
	assert.True(t, jobs[0].LastRun.IsZero())

	close(release)
	wg.Wait()

	jobs = s.Jobs()
	require.Len(t, jobs, 1)
	assert.False(t, jobs[0].LastRun.IsZero())
}

func TestJobsReportNextRun(t *testing.T) {
	s := newTestScheduler(t)
	require.NoError(t, s.Register("job", "0 1 * * *", func() error { return nil }))
	s.Start()
	defer s.Stop()

	jobs := s.Jobs()
	require.Len(t, jobs, 1)
	assert.Equal(t, "job", jobs[0].Name)
	assert.False(t, jobs[0].NextRun.IsZero())
}
