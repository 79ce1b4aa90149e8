package scheduler

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingRefresher struct {
	calls atomic.Int32
	err   error
}

func (r *countingRefresher) Refresh(context.Context) error {
	r.calls.Add(1)
	return r.err
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestNormalizeSpec(t *testing.T) {
	tests := map[string]string{
		"02:00":        "0 2 * * *",
		"23:45":        "45 23 * * *",
		"*/15 * * * *": "*/15 * * * *",
		"":             "",
		"25:99":        "0 2 * * *",
	}
	for in, want := range tests {
		assert.Equal(t, want, normalizeSpec(in, quietLogger()), "spec %q", in)
	}
}

func TestRunNowRunsJobsAfterSuccess(t *testing.T) {
	refresher := &countingRefresher{}
	var jobs atomic.Int32
	s := NewScheduler(refresher, "", time.Second, quietLogger(), func(context.Context) error {
		jobs.Add(1)
		return nil
	})

	require.NoError(t, s.RunNow(context.Background()))
	assert.Equal(t, int32(1), refresher.calls.Load())
	assert.Equal(t, int32(1), jobs.Load())
	assert.False(t, s.Status().LastRun.IsZero())
}

type blockingRefresher struct {
	started chan struct{}
	release chan struct{}
	calls   atomic.Int32
}

func (r *blockingRefresher) Refresh(context.Context) error {
	r.calls.Add(1)
	r.started <- struct{}{}
	<-r.release
	return nil
}

func TestRunNowRejectsOverlappingRuns(t *testing.T) {
	refresher := &blockingRefresher{started: make(chan struct{}), release: make(chan struct{})}
	s := NewScheduler(refresher, "", time.Second, quietLogger())

	done := make(chan error, 1)
	go func() { done <- s.RunNow(context.Background()) }()
	<-refresher.started
	assert.True(t, s.Status().Refreshing)

	assert.ErrorIs(t, s.RunNow(context.Background()), ErrRefreshInProgress)

	close(refresher.release)
	require.NoError(t, <-done)
	assert.Equal(t, int32(1), refresher.calls.Load())
	assert.False(t, s.Status().Refreshing)

	go func() {
		<-refresher.started
	}()
	require.NoError(t, s.RunNow(context.Background()))
	assert.Equal(t, int32(2), refresher.calls.Load())
}

func TestRunNowSkipsJobsAfterFailure(t *testing.T) {
	refresher := &countingRefresher{err: errors.New("down")}
	var jobs atomic.Int32
	s := NewScheduler(refresher, "", time.Second, quietLogger(), func(context.Context) error {
		jobs.Add(1)
		return nil
	})

	assert.Error(t, s.RunNow(context.Background()))
	assert.Equal(t, int32(0), jobs.Load())
	assert.Equal(t, "down", s.Status().LastError)
}

func TestStartRejectsBadSpec(t *testing.T) {
	s := NewScheduler(&countingRefresher{}, "not a cron", time.Second, quietLogger())
	assert.Error(t, s.Start())
}

func TestStartAndStop(t *testing.T) {
	s := NewScheduler(&countingRefresher{}, "*/5 * * * *", time.Second, quietLogger())
	require.NoError(t, s.Start())

	status := s.Status()
	assert.True(t, status.Running)
	assert.False(t, status.NextRun.IsZero())

	s.Stop()
	assert.False(t, s.Status().Running)
}

func TestStartWithEmptySpecIsNoop(t *testing.T) {
	s := NewScheduler(&countingRefresher{}, "", time.Second, quietLogger())
	require.NoError(t, s.Start())
	assert.False(t, s.Status().Running)
	s.Stop()
}
