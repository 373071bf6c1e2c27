package watcher

import (
	"context"
	"sync"

	"github.com/conneroisu/simplest/internal/logging"
	"github.com/conneroisu/simplest/internal/metrics"
)

// BuildFunc runs one rebuild.
type BuildFunc func(ctx context.Context) error

// Scheduler runs at most one build at a time. Requests made while a build
// is running collapse into a single follow-up build; in-flight builds are
// never aborted.
type Scheduler struct {
	build   BuildFunc
	logger  logging.Logger
	metrics metrics.Recorder

	mu      sync.Mutex
	idle    *sync.Cond
	ctx     context.Context
	running bool
	pending bool
	stopped bool
	runs    int
}

// NewScheduler creates a scheduler whose builds run with ctx.
func NewScheduler(ctx context.Context, build BuildFunc, logger logging.Logger, rec metrics.Recorder) *Scheduler {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	s := &Scheduler{
		build:   build,
		logger:  logger.WithComponent("scheduler"),
		metrics: metrics.OrNoop(rec),
		ctx:     ctx,
	}
	s.idle = sync.NewCond(&s.mu)
	return s
}

// Trigger requests a build. It starts one when the scheduler is idle and
// otherwise marks a follow-up as pending.
func (s *Scheduler) Trigger() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stopped || s.ctx.Err() != nil {
		return
	}
	if s.running {
		if s.pending {
			s.metrics.IncRebuildCoalesced()
		}
		s.pending = true
		return
	}

	s.running = true
	go s.loop()
}

func (s *Scheduler) loop() {
	for {
		if err := s.build(s.ctx); err != nil {
			s.logger.Error(s.ctx, err, "Rebuild failed")
		}

		s.mu.Lock()
		s.runs++
		if !s.pending || s.stopped || s.ctx.Err() != nil {
			s.pending = false
			s.running = false
			s.idle.Broadcast()
			s.mu.Unlock()
			return
		}
		s.pending = false
		s.mu.Unlock()
	}
}

// Wait blocks until no build is running or pending.
func (s *Scheduler) Wait() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for s.running {
		s.idle.Wait()
	}
}

// Stop refuses further requests, drops any pending follow-up and waits for
// the running build to finish.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	s.stopped = true
	s.pending = false
	s.mu.Unlock()
	s.Wait()
}

// Runs returns the number of builds completed so far.
func (s *Scheduler) Runs() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.runs
}
