package uid

import (
	"crypto/rand"
	"encoding/base64"
)

// Token generates opaque URL safe strings carrying size random bytes.
type Token struct {
	size int
}

// NewToken returns a generator; sizes under 16 bytes are raised to 32.
func NewToken(size int) *Token {
	if size < 16 {
		size = 32
	}
	return &Token{size: size}
}

// Generate returns a new random token. crypto/rand.Read never fails on
// supported platforms, so an error here aborts the process.
func (t *Token) Generate() string {
	buf := make([]byte, t.size)
	if _, err := rand.Read(buf); err != nil {
		panic("uid: crypto/rand failed: " + err.Error())
	}

	return base64.RawURLEncoding.EncodeToString(buf)
}
