// Package otp implements the time-based one-time password engine (RFC 6238
// over RFC 4226) used to derive rolling codes from stored Base32 secrets,
// together with otpauth:// URI encoding for QR import and export.
//
// Generate and TimeRemaining are pure functions of their arguments and are
// safe to call from any goroutine.
package otp
