package scheduler

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/baysound/sf-events/internal/logger"
)

// ErrAlreadyStarted is returned by a second Start call.
var ErrAlreadyStarted = errors.New("scheduler already started")

// RunFunc performs one extraction run
type RunFunc func(ctx context.Context) error

// Status is a point-in-time view of the scheduler
type Status struct {
	Running   bool      `json:"running"`
	Busy      bool      `json:"busy"`
	Interval  string    `json:"interval"`
	Runs      int64     `json:"runs"`
	Skipped   int64     `json:"skipped"`
	LastStart time.Time `json:"last_start,omitempty"`
	LastEnd   time.Time `json:"last_end,omitempty"`
	LastError string    `json:"last_error,omitempty"`
}

// Scheduler invokes a RunFunc periodically, one run at a time
type Scheduler struct {
	run      RunFunc
	interval time.Duration
	log      *logger.Logger

	busy    atomic.Bool
	runs    atomic.Int64
	skipped atomic.Int64

	mu        sync.Mutex
	started   bool
	cancel    context.CancelFunc
	wg        sync.WaitGroup
	lastStart time.Time
	lastEnd   time.Time
	lastErr   string
}

// New creates a scheduler. A non-positive interval defaults to six hours.
func New(run RunFunc, interval time.Duration) *Scheduler {
	if interval <= 0 {
		interval = 6 * time.Hour
	}
	return &Scheduler{
		run:      run,
		interval: interval,
		log:      logger.Default().With(logger.Fields{"component": "scheduler"}),
	}
}

// SetLogger replaces the scheduler's logger.
func (s *Scheduler) SetLogger(l *logger.Logger) {
	if l != nil {
		s.log = l
	}
}

// Start runs immediately and then on every tick until ctx is canceled or
// Stop is called. It returns without blocking.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started {
		return ErrAlreadyStarted
	}
	s.started = true

	ctx, s.cancel = context.WithCancel(ctx)

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()

		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		s.trigger(ctx)

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.trigger(ctx)
			}
		}
	}()

	s.log.Info("Scheduler started", logger.Fields{"interval": s.interval.String()})
	return nil
}

// Stop cancels the loop and waits for an in-flight run to return.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	cancel := s.cancel
	s.cancel = nil
	s.mu.Unlock()
	if cancel == nil {
		return
	}
	cancel()
	s.wg.Wait()
	s.log.Info("Scheduler stopped", nil)
}

// RunNow starts a run in the background unless one is already in flight.
// It reports whether a run was started.
func (s *Scheduler) RunNow(ctx context.Context) bool {
	if !s.busy.CompareAndSwap(false, true) {
		s.skipped.Add(1)
		return false
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.execute(ctx)
	}()
	return true
}

func (s *Scheduler) trigger(ctx context.Context) {
	if !s.busy.CompareAndSwap(false, true) {
		s.skipped.Add(1)
		s.log.Warn("Previous run still in flight, skipping tick", nil, nil)
		return
	}
	s.execute(ctx)
}

// execute expects busy to be held by the caller.
func (s *Scheduler) execute(ctx context.Context) {
	defer s.busy.Store(false)

	start := time.Now()
	s.mu.Lock()
	s.lastStart = start
	s.mu.Unlock()

	err := s.safeRun(ctx)

	s.mu.Lock()
	s.lastEnd = time.Now()
	if err != nil {
		s.lastErr = err.Error()
	} else {
		s.lastErr = ""
	}
	s.mu.Unlock()
	s.runs.Add(1)

	fields := logger.Fields{"duration": time.Since(start).String()}
	if err != nil {
		s.log.Error("Scheduled run failed", fields, err)
		return
	}
	s.log.Info("Scheduled run completed", fields)
}

func (s *Scheduler) safeRun(ctx context.Context) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = errors.New("run panicked")
		}
	}()
	return s.run(ctx)
}

// Status returns the current scheduler state.
func (s *Scheduler) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Status{
		Running:   s.started && s.cancel != nil,
		Busy:      s.busy.Load(),
		Interval:  s.interval.String(),
		Runs:      s.runs.Load(),
		Skipped:   s.skipped.Load(),
		LastStart: s.lastStart,
		LastEnd:   s.lastEnd,
		LastError: s.lastErr,
	}
}
