package otp

import (
	"time"

	"github.com/pquerna/otp"
	"github.com/pquerna/otp/hotp"
)

const (
	// DefaultPeriod is the step duration in seconds.
	DefaultPeriod = 30
	// ErrorMarker is what a display shows in place of a code it could not derive.
	ErrorMarker = "ERROR"
)

var defaultEngine = NewEngine(DefaultPeriod, otp.DigitsSix)

// Generate returns the 6 digit code for secret at now using a 30 second step
// and HMAC-SHA1.
func Generate(secret string, now time.Time) (string, error) {
	return defaultEngine.Code(secret, now)
}

// TimeRemaining returns the seconds left in the 30 second step containing now,
// always within [1, 30].
func TimeRemaining(now time.Time) int {
	return defaultEngine.Remaining(now)
}

// Engine derives codes for a fixed step duration and digit count.
type Engine struct {
	period uint
	digits otp.Digits
}

// NewEngine builds an engine. A zero period falls back to 30 seconds and any
// digit count other than 6 or 8 falls back to 6.
func NewEngine(period uint, digits otp.Digits) *Engine {
	if period == 0 {
		period = DefaultPeriod
	}
	if digits != otp.DigitsSix && digits != otp.DigitsEight {
		digits = otp.DigitsSix
	}

	return &Engine{period: period, digits: digits}
}

// Period returns the step duration in seconds.
func (e *Engine) Period() uint {
	return e.period
}

// Counter returns the step index containing now. Instants before the epoch
// map to step zero.
func (e *Engine) Counter(now time.Time) uint64 {
	sec := now.Unix()
	if sec < 0 {
		return 0
	}

	return uint64(sec) / uint64(e.period)
}

// Remaining returns the whole seconds left before the code for now rotates.
func (e *Engine) Remaining(now time.Time) int {
	p := int64(e.period)
	elapsed := ((now.Unix() % p) + p) % p

	return int(p - elapsed)
}

// Code derives the code for secret at now.
func (e *Engine) Code(secret string, now time.Time) (string, error) {
	normalized, err := NormalizeSecret(secret)
	if err != nil {
		return "", err
	}

	return e.codeAt(normalized, e.Counter(now))
}

func (e *Engine) codeAt(normalized string, counter uint64) (string, error) {
	code, err := hotp.GenerateCodeCustom(normalized, counter, hotp.ValidateOpts{
		Digits:    e.digits,
		Algorithm: otp.AlgorithmSHA1,
	})
	if err != nil {
		return "", &InvalidSecretError{Reason: err.Error()}
	}

	return code, nil
}
