package strcase

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestToLowerSnake(t *testing.T) {
	t.Parallel()

	cases := map[string]string{
		"":               "",
		"Name":           "name",
		"UserID":         "user_id",
		"HTTPServer":     "http_server",
		"RecaptchaToken": "recaptcha_token",
		"Base32Secret":   "base32_secret",
		"already_snake":  "already_snake",
	}

	for in, want := range cases {
		assert.Equal(t, want, ToLowerSnake(in), in)
	}
}
