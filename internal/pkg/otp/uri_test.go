package otp

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildURI(t *testing.T) {
	t.Parallel()

	uri, err := BuildURI(Key{Issuer: "2FA Authenticator", Account: "GitHub", Secret: "jbsw y3dp ehpk 3pxp"})
	require.NoError(t, err)
	assert.Equal(t, "otpauth://totp/2FA%20Authenticator:GitHub?secret=JBSWY3DPEHPK3PXP&issuer=2FA%20Authenticator", uri)

	uri, err = BuildURI(Key{Account: "alice@example.com", Secret: "JBSWY3DPEHPK3PXP"})
	require.NoError(t, err)
	assert.Equal(t, "otpauth://totp/alice%40example.com?secret=JBSWY3DPEHPK3PXP", uri)

	_, err = BuildURI(Key{Account: "x", Secret: "!!"})
	var secretErr *InvalidSecretError
	assert.ErrorAs(t, err, &secretErr)
}

func TestURIRoundTripKeepsKeyBytes(t *testing.T) {
	t.Parallel()

	for _, raw := range [][]byte{
		[]byte("12345678901234567890"),
		{0x00},
		{0xff, 0x00, 0x10, 0x80, 0x7f},
		[]byte("a secret that is longer than twenty bytes"),
	} {
		uri, err := BuildURI(Key{Issuer: "Acme: Labs", Account: "bob", Secret: EncodeSecret(raw)})
		require.NoError(t, err)

		key, err := ParseURI(uri)
		require.NoError(t, err)

		got, err := DecodeSecret(key.Secret)
		require.NoError(t, err)
		assert.Equal(t, raw, got)
		assert.Equal(t, "Acme: Labs", key.Issuer)
		assert.Equal(t, "bob", key.Account)
	}
}

func TestParseURI(t *testing.T) {
	t.Parallel()

	t.Run("issuer prefix is stripped from label", func(t *testing.T) {
		t.Parallel()
		key, err := ParseURI("otpauth://totp/Example:alice@google.com?secret=JBSWY3DPEHPK3PXP&issuer=Example")
		require.NoError(t, err)
		assert.Equal(t, Key{Issuer: "Example", Account: "alice@google.com", Secret: "JBSWY3DPEHPK3PXP"}, key)
		assert.Equal(t, "Example (alice@google.com)", key.DisplayName())
	})

	t.Run("label without issuer prefix is kept whole", func(t *testing.T) {
		t.Parallel()
		key, err := ParseURI("otpauth://totp/alice?secret=jbswy3dpehpk3pxp&issuer=GitHub")
		require.NoError(t, err)
		assert.Equal(t, "alice", key.Account)
		assert.Equal(t, "GitHub", key.Issuer)
		assert.Equal(t, "GitHub (alice)", key.DisplayName())
	})

	t.Run("issuer taken from label when no parameter", func(t *testing.T) {
		t.Parallel()
		key, err := ParseURI("otpauth://totp/Google:carol?secret=JBSWY3DPEHPK3PXP")
		require.NoError(t, err)
		assert.Equal(t, "Google", key.Issuer)
		assert.Equal(t, "carol", key.Account)
	})

	t.Run("no issuer at all", func(t *testing.T) {
		t.Parallel()
		key, err := ParseURI("otpauth://totp/dave?secret=JBSWY3DPEHPK3PXP")
		require.NoError(t, err)
		assert.Equal(t, "dave", key.DisplayName())
	})

	t.Run("account already names issuer", func(t *testing.T) {
		t.Parallel()
		key := Key{Issuer: "GitHub", Account: "GitHub-work"}
		assert.Equal(t, "GitHub-work", key.DisplayName())
	})

	t.Run("errors", func(t *testing.T) {
		t.Parallel()
		for _, raw := range []string{
			"https://example.com/?secret=JBSWY3DPEHPK3PXP",
			"otpauth://totp/Example:alice?issuer=Example",
			"otpauth://hotp/Example:alice?secret=JBSWY3DPEHPK3PXP&counter=1",
			"",
		} {
			_, err := ParseURI(raw)
			var uriErr *InvalidURIError
			assert.True(t, errors.As(err, &uriErr), "raw %q got %v", raw, err)
		}

		_, err := ParseURI("otpauth://totp/Example:alice?secret=not-base32!!!")
		var secretErr *InvalidSecretError
		assert.ErrorAs(t, err, &secretErr)
	})
}

func TestGenerateSecret(t *testing.T) {
	t.Parallel()

	key, err := GenerateSecret("2FA Authenticator", "new account")
	require.NoError(t, err)
	assert.Len(t, key.Secret, 32)
	assert.Equal(t, strings.ToUpper(key.Secret), key.Secret)

	raw, err := DecodeSecret(key.Secret)
	require.NoError(t, err)
	assert.Len(t, raw, 20)
}
