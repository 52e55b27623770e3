// Package scheduler drives the cycle runner on a fixed interval with an
// at-most-one-concurrent-cycle guarantee.
package scheduler

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/growthsignals/redditwatch/internal/metrics"
)

// CycleRunner is the unit of work the scheduler triggers.
type CycleRunner interface {
	RunCycle(ctx context.Context)
}

// Scheduler triggers cycles on a ticker. A tick that fires while a cycle is
// still in flight is skipped entirely, never queued. Stop cancels future
// triggers but lets an in-flight cycle finish naturally.
type Scheduler struct {
	runner   CycleRunner
	interval time.Duration
	logger   *zap.Logger

	inFlight atomic.Bool
	cycleWG  sync.WaitGroup

	mu       sync.Mutex
	stopCh   chan struct{}
	loopDone chan struct{}
	started  bool
	stopped  bool
}

// New constructs a Scheduler.
func New(runner CycleRunner, interval time.Duration, logger *zap.Logger) *Scheduler {
	return &Scheduler{
		runner:   runner,
		interval: interval,
		logger:   logger,
	}
}

// RunOnce executes exactly one cycle synchronously. If a scheduled cycle is
// already in flight, the call is skipped and reported false.
func (s *Scheduler) RunOnce(ctx context.Context) bool {
	if !s.inFlight.CompareAndSwap(false, true) {
		s.logger.Warn("cycle already in progress, run-once skipped")
		return false
	}
	defer s.inFlight.Store(false)

	s.runner.RunCycle(context.WithoutCancel(ctx))
	return true
}

// Start begins continuous scheduling. It returns immediately; triggers fire
// every interval until Stop is called or ctx ends.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started || s.stopped {
		return
	}
	s.started = true
	s.stopCh = make(chan struct{})
	s.loopDone = make(chan struct{})

	s.logger.Info("scheduler started", zap.Duration("interval", s.interval))
	go s.loop(ctx)
}

func (s *Scheduler) loop(ctx context.Context) {
	defer close(s.loopDone)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-s.stopCh:
			return
		case <-ticker.C:
			s.trigger(ctx)
		}
	}
}

// trigger launches a cycle unless one is already running. The cycle runs in
// its own goroutine so a long cycle cannot back the ticker up: overlapping
// ticks are observed and dropped, not delayed.
//
// The cycle itself runs on a context detached from the scheduling context:
// canceling the scheduling context (shutdown signal) stops future triggers
// but must never abort work already started, or run-record accounting for
// the remaining sources would be lost.
func (s *Scheduler) trigger(ctx context.Context) {
	if !s.inFlight.CompareAndSwap(false, true) {
		s.logger.Warn("previous cycle still running, skipping tick")
		metrics.ObserveCycleSkipped()
		return
	}

	cycleCtx := context.WithoutCancel(ctx)
	s.cycleWG.Add(1)
	go func() {
		defer s.cycleWG.Done()
		defer s.inFlight.Store(false)
		s.runner.RunCycle(cycleCtx)
	}()
}

// Stop cancels future triggers. An in-flight cycle is not interrupted; use
// Wait to block until it completes.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.started || s.stopped {
		s.stopped = true
		return
	}
	s.stopped = true
	close(s.stopCh)
	<-s.loopDone
	s.logger.Info("scheduler stopped")
}

// Wait blocks until any in-flight cycle has finished.
func (s *Scheduler) Wait() {
	s.cycleWG.Wait()
}

// Running reports whether a cycle is currently in flight.
func (s *Scheduler) Running() bool {
	return s.inFlight.Load()
}
