package clock

import "time"

// Clocker abstracts time so callers can replace real time in tests.
type Clocker interface {
	Now() time.Time
}

// TimeClocker reads the system clock.
type TimeClocker struct{}

// New returns the system clock.
func New() *TimeClocker {
	return &TimeClocker{}
}

// Now returns time.Now truncated to the second, which is the resolution
// every code and countdown is computed at.
func (*TimeClocker) Now() time.Time {
	return time.Now().Truncate(time.Second)
}

// Func adapts a plain function into a Clocker.
type Func func() time.Time

// Now calls f.
func (f Func) Now() time.Time {
	return f()
}

// Fixed returns a Clocker that always reports t.
func Fixed(t time.Time) Clocker {
	return Func(func() time.Time { return t })
}
