// Package jobmgr runs detached jobs with their own cancellation scope,
// optional start delay, panic recovery and in-memory tracking.
//
// Typical usage:
//
//	jm := jobmgr.NewManager(logger)
//	defer jm.Shutdown(context.Background())
//
//	id, err := jm.Go(ctx, "cleanup", 5*time.Second, func(ctx context.Context) error {
//	    // do work until ctx is cancelled
//	    return nil
//	})
//
// A job never inherits cancellation from the context passed to Go: it keeps the
// caller's values but is only cancelled by Stop or Shutdown. Failures are written
// to the manager's logger and never returned to the caller.
package jobmgr

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/gofrs/uuid/v5"
	"github.com/rs/zerolog"
)

var (
	// ErrClosed is returned by Go after Shutdown.
	ErrClosed = errors.New("job manager is shut down")
	// ErrNotRunning is returned by Stop for unknown job ids.
	ErrNotRunning = errors.New("job not running")
)

// Runner is the body of a job.
type Runner func(ctx context.Context) error

// Job is a snapshot of a tracked job.
type Job struct {
	ID        uuid.UUID
	Name      string
	Delay     time.Duration
	StartedAt time.Time
}

type entry struct {
	job    Job
	cancel context.CancelFunc
}

// Manager orchestrates starting, stopping and tracking jobs.
// It is safe for concurrent use.
type Manager struct {
	logger zerolog.Logger

	root context.Context
	stop context.CancelFunc
	wg   sync.WaitGroup

	mu     sync.Mutex
	jobs   map[uuid.UUID]*entry
	closed bool
}

// NewManager creates a Manager. Every job failure is reported to logger.
func NewManager(logger zerolog.Logger) *Manager {
	root, stop := context.WithCancel(context.Background())
	return &Manager{
		logger: logger.With().Str("component", "jobmgr").Logger(),
		root:   root,
		stop:   stop,
		jobs:   make(map[uuid.UUID]*entry),
	}
}

// Go runs runner on its own goroutine after delay and returns immediately.
// parent contributes values only; the job is cancelled by Stop or Shutdown.
func (m *Manager) Go(parent context.Context, name string, delay time.Duration, runner Runner) (uuid.UUID, error) {
	if parent == nil {
		parent = context.Background()
	}

	id, err := uuid.NewV4()
	if err != nil {
		return uuid.Nil, fmt.Errorf("job id: %w", err)
	}

	ctx, cancel := context.WithCancel(context.WithoutCancel(parent))
	unlink := context.AfterFunc(m.root, cancel)

	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		unlink()
		cancel()
		return uuid.Nil, ErrClosed
	}
	e := &entry{
		job:    Job{ID: id, Name: name, Delay: delay, StartedAt: time.Now()},
		cancel: cancel,
	}
	m.jobs[id] = e
	m.wg.Add(1)
	m.mu.Unlock()

	go func() {
		defer m.wg.Done()
		defer unlink()
		defer cancel()
		defer m.forget(id)

		m.run(ctx, e.job, runner)
	}()

	return id, nil
}

func (m *Manager) run(ctx context.Context, job Job, runner Runner) {
	l := m.logger.With().Str("job", job.Name).Str("job_id", job.ID.String()).Logger()

	if job.Delay > 0 {
		t := time.NewTimer(job.Delay)
		select {
		case <-ctx.Done():
			t.Stop()
			l.Debug().Msg("job cancelled before start")
			return
		case <-t.C:
		}
	}

	l.Debug().Msg("job running")

	err := safeRun(ctx, runner)
	switch {
	case err == nil:
		l.Debug().Msg("job done")
	case errors.Is(err, context.Canceled) && ctx.Err() != nil:
		l.Warn().Err(err).Msg("job cancelled")
	default:
		l.Error().Err(err).Msg("job failed")
	}
}

func safeRun(ctx context.Context, runner Runner) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return runner(ctx)
}

func (m *Manager) forget(id uuid.UUID) {
	m.mu.Lock()
	delete(m.jobs, id)
	m.mu.Unlock()
}

// Stop cancels a running or pending job by id.
func (m *Manager) Stop(id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.jobs[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotRunning, id)
	}

	e.cancel()
	delete(m.jobs, id)
	return nil
}

// List returns the tracked jobs ordered by start time.
func (m *Manager) List() []Job {
	m.mu.Lock()
	out := make([]Job, 0, len(m.jobs))
	for _, e := range m.jobs {
		out = append(out, e.job)
	}
	m.mu.Unlock()

	sort.Slice(out, func(i, j int) bool {
		return out[i].StartedAt.Before(out[j].StartedAt)
	})
	return out
}

// Status returns a human-readable summary of active jobs.
//
//	"Running jobs: cleanup, reply.Delete"
//
// If none are running: "No jobs are running."
func (m *Manager) Status() string {
	active := m.List()
	if len(active) == 0 {
		return "No jobs are running."
	}
	names := make([]string, len(active))
	for i, j := range active {
		names[i] = j.Name
	}
	return fmt.Sprintf("Running jobs: %s", strings.Join(names, ", "))
}

// Shutdown cancels every job and waits for them to return or for ctx to end.
func (m *Manager) Shutdown(ctx context.Context) error {
	m.mu.Lock()
	m.closed = true
	m.mu.Unlock()

	m.stop()

	done := make(chan struct{})
	go func() {
		m.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
