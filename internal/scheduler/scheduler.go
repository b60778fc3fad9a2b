// Package scheduler runs the queue-drain loop as a start/stoppable task.
package scheduler

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"
)

// TickFunc performs one processing cycle and reports how many work items
// it handled. A non-zero return re-ticks immediately; zero idles the loop.
type TickFunc func(context.Context) int

// Scheduler repeatedly invokes a tick function, idling for a fixed
// interval after an empty cycle. Stop cancels the tick context and
// interrupts the idle wait promptly.
type Scheduler struct {
	idle   time.Duration
	tickFn TickFunc

	running atomic.Bool

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

func New(idle time.Duration, tickFn TickFunc) (*Scheduler, error) {
	if idle <= 0 {
		return nil, errors.New("idle interval must be > 0")
	}
	if tickFn == nil {
		return nil, errors.New("tickFn must not be nil")
	}
	return &Scheduler{
		idle:   idle,
		tickFn: tickFn,
		done:   make(chan struct{}),
	}, nil
}

func (s *Scheduler) Start() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running.Load() {
		return false
	}

	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	s.done = make(chan struct{})
	s.running.Store(true)

	go func() {
		defer close(s.done)

		slog.Info("processor loop started", "idle_interval", s.idle.String())

		timer := time.NewTimer(s.idle)
		defer timer.Stop()

		for {
			processed := s.safeTick(ctx)

			if ctx.Err() != nil {
				slog.Info("processor loop stopping")
				return
			}

			// A non-empty cycle means more work is likely waiting; only an
			// empty cycle backs off.
			wait := s.idle
			if processed > 0 {
				wait = 0
			}

			if !timer.Stop() {
				select {
				case <-timer.C:
				default:
				}
			}
			timer.Reset(wait)

			select {
			case <-ctx.Done():
				slog.Info("processor loop stopping")
				return
			case <-timer.C:
			}
		}
	}()

	return true
}

func (s *Scheduler) Stop() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running.Load() {
		return false
	}

	s.cancel()
	<-s.done
	s.running.Store(false)

	slog.Info("processor loop stopped")
	return true
}

func (s *Scheduler) IsRunning() bool {
	return s.running.Load()
}

func (s *Scheduler) safeTick(ctx context.Context) (processed int) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("processor tick panic recovered", "panic", r)
			processed = 0
		}
	}()

	start := time.Now()
	processed = s.tickFn(ctx)
	slog.Debug("processor tick completed",
		"processed", processed,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return processed
}
