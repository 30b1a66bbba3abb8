// Package goroutine runs background work with a bounded number of goroutines
// and waits for it on shutdown.
package goroutine

import (
	"context"
	"errors"
	"log/slog"
	"runtime"
	"runtime/debug"
	"sync"

	"github.com/shandysiswandi/twofa/internal/pkg/stacktrace"
	"go.uber.org/atomic"
)

// DefaultMaxGoroutine is multiplied by NumCPU when NewManager gets a
// non-positive limit.
const DefaultMaxGoroutine int = 100

// ErrPanic wraps a recovered panic in the errors returned by Wait.
var ErrPanic = errors.New("goroutine panicked")

// Manager runs tasks with a concurrency limit and collects their errors.
type Manager struct {
	wg      sync.WaitGroup
	sema    chan struct{}
	running atomic.Int64
	dropped atomic.Int64

	mu     sync.Mutex
	errs   []error
	closed bool
}

func NewManager(maxGoroutine int) *Manager {
	if maxGoroutine < 1 {
		maxGoroutine = runtime.NumCPU() * DefaultMaxGoroutine
	}

	return &Manager{sema: make(chan struct{}, maxGoroutine)}
}

// Go starts f unless the manager is closed or full. It reports whether f was
// scheduled; a dropped task is logged with name.
func (g *Manager) Go(ctx context.Context, name string, f func(ctx context.Context) error) bool {
	if g == nil {
		return false
	}

	g.mu.Lock()
	if g.closed {
		g.mu.Unlock()
		slog.WarnContext(ctx, "goroutine manager is closed, task skipped", "task", name)
		return false
	}

	select {
	case g.sema <- struct{}{}:
	default:
		g.mu.Unlock()
		g.dropped.Inc()
		slog.WarnContext(ctx, "maximum goroutine limit reached, task skipped", "task", name)
		return false
	}

	g.wg.Add(1)
	g.mu.Unlock()

	g.running.Inc()
	go func() {
		defer func() {
			g.running.Dec()
			<-g.sema
			g.wg.Done()
		}()
		defer g.recover(ctx, name)

		if err := ctx.Err(); err != nil {
			slog.WarnContext(ctx, "goroutine canceled before start", "task", name, "because", err)
			return
		}
		if err := f(ctx); err != nil {
			g.collect(err)
		}
	}()

	return true
}

func (g *Manager) recover(ctx context.Context, name string) {
	rvr := recover()
	if rvr == nil {
		return
	}

	stack := debug.Stack()
	if frames := stacktrace.InternalFrames(stack); len(frames) > 0 {
		slog.ErrorContext(ctx, "panic occurred in goroutine", "task", name, "because", rvr, "stack", frames)
	} else {
		slog.ErrorContext(ctx, "panic occurred in goroutine", "task", name, "because", rvr, "stack", string(stack))
	}

	g.collect(ErrPanic)
}

func (g *Manager) collect(err error) {
	g.mu.Lock()
	g.errs = append(g.errs, err)
	g.mu.Unlock()
}

// Running returns the number of tasks currently executing.
func (g *Manager) Running() int64 { return g.running.Load() }

// Dropped returns how many tasks were rejected because the limit was reached.
func (g *Manager) Dropped() int64 { return g.dropped.Load() }

// Wait closes the manager, blocks until every task returns and joins their errors.
func (g *Manager) Wait() error {
	if g == nil {
		return nil
	}

	g.mu.Lock()
	g.closed = true
	g.mu.Unlock()

	g.wg.Wait()

	g.mu.Lock()
	defer g.mu.Unlock()

	return errors.Join(g.errs...)
}
