// Package uid generates identifiers: snowflake numbers for rows, UUIDs for
// correlation and token ids, and opaque random strings for refresh tokens.
package uid

// NumberID generates unique, roughly time ordered int64 ids.
type NumberID interface {
	Generate() int64
}

// StringID generates unique string ids.
type StringID interface {
	Generate() string
}
