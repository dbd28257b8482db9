// Package scheduler runs the periodic maintenance pass: cache sweeping,
// registry consistency, and visitor evaluation. It owns its own timer and
// cancellation; nothing here ever runs on a request path.
package scheduler

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/mvfy/verify/internal/domain"
	"github.com/mvfy/verify/internal/observability"
)

// Job is one unit of maintenance work. Jobs must be idempotent; a failed run
// is reported and the next tick proceeds normally.
type Job struct {
	Name string
	Run  func(ctx context.Context) error
}

// Scheduler fires all jobs at a fixed interval. Overlapping runs are
// disallowed: a tick arriving while a pass is executing is skipped, never
// queued.
type Scheduler struct {
	interval time.Duration
	jobs     []Job
	events   domain.EventPublisher

	running atomic.Bool
	cancel  context.CancelFunc
	done    chan struct{}
	mu      sync.Mutex
}

// New creates a scheduler (DI constructor). events may be nil.
func New(interval time.Duration, events domain.EventPublisher, jobs ...Job) *Scheduler {
	return &Scheduler{
		interval: interval,
		jobs:     jobs,
		events:   events,
	}
}

// Start launches the periodic timer. Returns immediately; ticks run on their
// own goroutine until Stop or context cancellation.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cancel != nil {
		return
	}

	ctx, s.cancel = context.WithCancel(ctx)
	s.done = make(chan struct{})

	go s.loop(ctx)
}

// Stop cancels the timer and waits for any in-flight pass to finish.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	cancel, done := s.cancel, s.done
	s.cancel = nil
	s.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
}

func (s *Scheduler) loop(ctx context.Context) {
	defer close(s.done)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if !s.running.CompareAndSwap(false, true) {
				observability.FromContext(ctx).Warn("maintenance tick skipped, previous run still executing")
				continue
			}
			s.runAll(ctx)
			s.running.Store(false)
		}
	}
}

// RunOnce executes every job once, synchronously. Exported so tests and
// operators can drive the maintenance pass without a timer.
func (s *Scheduler) RunOnce(ctx context.Context) {
	if !s.running.CompareAndSwap(false, true) {
		return
	}
	defer s.running.Store(false)

	s.runAll(ctx)
}

// runAll executes each job, isolating failures: an error or panic in one job
// is reported and never propagates or blocks the remaining jobs.
func (s *Scheduler) runAll(ctx context.Context) {
	logger := observability.FromContext(ctx)
	start := time.Now()

	for _, job := range s.jobs {
		if ctx.Err() != nil {
			return
		}

		if err := s.runJob(ctx, job); err != nil {
			logger.Error("maintenance job failed",
				observability.String("job", job.Name),
				observability.Error(err))
			s.publish(ctx, "maintenance.job_failed", map[string]any{
				"job":   job.Name,
				"error": err.Error(),
			})
		}
	}

	s.publish(ctx, "maintenance.pass_finished", map[string]any{
		"elapsed_ms": time.Since(start).Milliseconds(),
		"jobs":       len(s.jobs),
	})
}

func (s *Scheduler) runJob(ctx context.Context, job Job) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()

	return job.Run(ctx)
}

func (s *Scheduler) publish(ctx context.Context, eventType string, data map[string]any) {
	if s.events != nil {
		s.events.Publish(ctx, eventType, data)
	}
}
