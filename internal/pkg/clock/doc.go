// Package clock provides a small time abstraction.
//
// Business code depends on Clocker instead of calling time.Now directly so
// that code derivation and countdowns can be tested against fixed instants.
package clock
