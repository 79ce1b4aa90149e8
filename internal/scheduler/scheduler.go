package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
)

// ErrRefreshInProgress is returned by RunNow while another refresh is running.
var ErrRefreshInProgress = errors.New("catalog refresh already in progress")

// Refresher reloads the listing catalog.
type Refresher interface {
	Refresh(ctx context.Context) error
}

// Job is an extra task run right after every successful refresh.
type Job func(ctx context.Context) error

// Scheduler handles scheduled catalog refreshes
type Scheduler struct {
	cron      *cron.Cron
	catalog   Refresher
	spec      string
	timeout   time.Duration
	afterJobs []Job
	logger    *slog.Logger

	// refreshing serializes RunNow so overlapping refreshes never diff
	// against the same snapshot.
	refreshing sync.Mutex

	mu        sync.Mutex
	isRunning bool
	inFlight  bool
	lastRun   time.Time
	lastErr   error
}

// Status describes the last scheduled run.
type Status struct {
	Running    bool      `json:"running"`
	Refreshing bool      `json:"refreshing"`
	Spec       string    `json:"spec"`
	LastRun    time.Time `json:"last_run"`
	LastError  string    `json:"last_error,omitempty"`
	NextRun    time.Time `json:"next_run"`
}

// NewScheduler creates a new scheduler. spec is a five-field cron
// expression or a daily "HH:MM" time.
func NewScheduler(catalog Refresher, spec string, timeout time.Duration, logger *slog.Logger, afterJobs ...Job) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	if timeout <= 0 {
		timeout = time.Minute
	}
	return &Scheduler{
		cron:      cron.New(),
		catalog:   catalog,
		spec:      normalizeSpec(spec, logger),
		timeout:   timeout,
		afterJobs: afterJobs,
		logger:    logger,
	}
}

// Start starts the scheduler. An empty spec disables scheduled refreshes.
func (s *Scheduler) Start() error {
	if s.spec == "" {
		s.logger.Info("scheduled catalog refresh disabled")
		return nil
	}

	_, err := s.cron.AddFunc(s.spec, func() {
		err := s.RunNow(context.Background())
		switch {
		case errors.Is(err, ErrRefreshInProgress):
			s.logger.Info("scheduled catalog refresh skipped, previous run still active")
		case err != nil:
			s.logger.Error("scheduled catalog refresh failed", "err", err)
		}
	})
	if err != nil {
		return fmt.Errorf("invalid refresh schedule %q: %w", s.spec, err)
	}

	s.cron.Start()
	s.mu.Lock()
	s.isRunning = true
	s.mu.Unlock()
	s.logger.Info("scheduler started", "cron", s.spec)

	return nil
}

// Stop stops the scheduler and waits for a running refresh to finish
func (s *Scheduler) Stop() {
	s.mu.Lock()
	running := s.isRunning
	s.isRunning = false
	s.mu.Unlock()

	if running {
		<-s.cron.Stop().Done()
		s.logger.Info("scheduler stopped")
	}
}

// RunNow refreshes the catalog immediately and then runs the follow-up jobs.
// It returns ErrRefreshInProgress without refreshing when a run is active.
func (s *Scheduler) RunNow(ctx context.Context) error {
	if !s.refreshing.TryLock() {
		return ErrRefreshInProgress
	}
	defer s.refreshing.Unlock()

	s.mu.Lock()
	s.inFlight = true
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		s.inFlight = false
		s.mu.Unlock()
	}()

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	err := s.catalog.Refresh(ctx)
	if err == nil {
		for _, job := range s.afterJobs {
			if jobErr := job(ctx); jobErr != nil {
				s.logger.Warn("post-refresh job failed", "err", jobErr)
			}
		}
	}

	s.mu.Lock()
	s.lastRun = time.Now()
	s.lastErr = err
	s.mu.Unlock()

	return err
}

func (s *Scheduler) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()

	status := Status{
		Running:    s.isRunning,
		Refreshing: s.inFlight,
		Spec:       s.spec,
		LastRun:    s.lastRun,
	}
	if s.lastErr != nil {
		status.LastError = s.lastErr.Error()
	}
	if entries := s.cron.Entries(); len(entries) > 0 {
		status.NextRun = entries[0].Next
	}
	return status
}

// normalizeSpec converts HH:MM format to a daily cron specification
// Example: "02:00" -> "0 2 * * *"
func normalizeSpec(spec string, logger *slog.Logger) string {
	spec = strings.TrimSpace(spec)
	if !strings.Contains(spec, ":") {
		return spec
	}

	var hour, minute int
	n, _ := fmt.Sscanf(spec, "%d:%d", &hour, &minute)
	if n == 2 && hour >= 0 && hour < 24 && minute >= 0 && minute < 60 {
		return fmt.Sprintf("%d %d * * *", minute, hour)
	}

	logger.Warn("failed to parse refresh time, using default 02:00", "value", spec)
	return "0 2 * * *"
}
