package config

import (
	"io"
	"time"
)

// Config is read-only access to typed configuration values. Missing keys
// resolve to the zero value of the requested type.
type Config interface {
	io.Closer

	// GetSecond reads an integer number of seconds.
	GetSecond(key string) time.Duration
	// GetMinute reads an integer number of minutes.
	GetMinute(key string) time.Duration
	// GetHour reads an integer number of hours.
	GetHour(key string) time.Duration

	GetInt(key string) int
	GetInt32(key string) int32
	GetUint(key string) uint
	GetUint16(key string) uint16
	GetFloat64(key string) float64
	GetBool(key string) bool
	GetString(key string) string

	// GetBinary reads a base64 encoded value.
	GetBinary(key string) []byte

	// GetArray reads a comma separated list, or a YAML sequence, with blank
	// elements removed.
	GetArray(key string) []string

	// GetMap reads "k:v,k:v" pairs.
	GetMap(key string) map[string]string
}
