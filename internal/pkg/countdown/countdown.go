package countdown

import (
	"context"
	"time"

	"github.com/shandysiswandi/twofa/internal/pkg/clock"
	"github.com/shandysiswandi/twofa/internal/pkg/otp"
	"go.uber.org/atomic"
)

// DefaultInterval is how often a display is refreshed.
const DefaultInterval = time.Second

// Generator derives codes and countdown values.
type Generator interface {
	Code(secret string, now time.Time) (string, error)
	Remaining(now time.Time) int
	Counter(now time.Time) uint64
}

// Target is one entry shown on a display.
type Target struct {
	Key    string
	Label  string
	Secret string
}

// Frame is the rendered state of one Target at one instant.
type Frame struct {
	Key       string
	Label     string
	Code      string
	Remaining int
	Step      uint64
	Err       error
}

// Failed reports whether the code could not be derived.
func (f Frame) Failed() bool {
	return f.Err != nil
}

// Tick is everything a view needs to redraw once.
type Tick struct {
	At        time.Time
	Remaining int
	Frames    []Frame
	Err       error
}

// Source returns the targets to display. It is called on every tick so a
// corrected secret shows up without restarting the view.
type Source func(ctx context.Context) ([]Target, error)

// Emit receives each tick. Returning an error stops the run.
type Emit func(Tick) error

// Option customises a Driver.
type Option func(*Driver)

// WithInterval overrides the refresh interval.
func WithInterval(d time.Duration) Option {
	return func(dr *Driver) {
		if d > 0 {
			dr.interval = d
		}
	}
}

// WithClock overrides the clock used to stamp ticks.
func WithClock(c clock.Clocker) Option {
	return func(dr *Driver) {
		if c != nil {
			dr.clock = c
		}
	}
}

// Driver refreshes a display on a fixed interval.
type Driver struct {
	gen      Generator
	clock    clock.Clocker
	interval time.Duration

	ticks    atomic.Int64
	failures atomic.Int64
}

// New builds a Driver around gen.
func New(gen Generator, opts ...Option) *Driver {
	d := &Driver{
		gen:      gen,
		clock:    clock.New(),
		interval: DefaultInterval,
	}
	for _, opt := range opts {
		opt(d)
	}

	return d
}

// Ticks returns how many ticks were emitted.
func (d *Driver) Ticks() int64 { return d.ticks.Load() }

// Failures returns how many frames or sources failed.
func (d *Driver) Failures() int64 { return d.failures.Load() }

// Run emits one tick immediately and then one per interval until ctx is done
// or emit returns an error. A failing source or secret never ends the run;
// the affected frames carry otp.ErrorMarker instead of a code.
func (d *Driver) Run(ctx context.Context, src Source, emit Emit) error {
	ticker := time.NewTicker(d.interval)
	defer ticker.Stop()

	if err := emit(d.Tick(ctx, src)); err != nil {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if ctx.Err() != nil {
				return nil
			}
			if err := emit(d.Tick(ctx, src)); err != nil {
				return err
			}
		}
	}
}

// Tick computes a single refresh.
func (d *Driver) Tick(ctx context.Context, src Source) Tick {
	now := d.clock.Now()
	d.ticks.Inc()

	t := Tick{At: now, Remaining: d.gen.Remaining(now)}

	targets, err := src(ctx)
	if err != nil {
		d.failures.Inc()
		t.Err = err
		return t
	}

	t.Frames = make([]Frame, 0, len(targets))
	for _, target := range targets {
		t.Frames = append(t.Frames, d.Frame(target, now))
	}

	return t
}

// Frame derives the state of target at now.
func (d *Driver) Frame(target Target, now time.Time) Frame {
	f := Frame{
		Key:       target.Key,
		Label:     target.Label,
		Remaining: d.gen.Remaining(now),
		Step:      d.gen.Counter(now),
	}

	code, err := d.gen.Code(target.Secret, now)
	if err != nil {
		d.failures.Inc()
		f.Code = otp.ErrorMarker
		f.Err = err
		return f
	}

	f.Code = code
	return f
}
