package instrument

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMaskSet(t *testing.T) {
	t.Parallel()

	m := NewMaskSet([]string{" Password ", "", "secret"})
	assert.True(t, m.Has("PASSWORD"))
	assert.False(t, m.Has("username"))

	got := m.Value(map[string]any{
		"username": "alice",
		"password": "hunter22",
		"items":    []any{map[string]any{"secret": "JBSWY3DP", "name": "GitHub"}},
	})
	assert.Equal(t, map[string]any{
		"username": "alice",
		"password": "***",
		"items":    []any{map[string]any{"secret": "***", "name": "GitHub"}},
	}, got)

	s, ok := m.JSON([]byte(`{"secret":"x"}`))
	require.True(t, ok)
	assert.JSONEq(t, `{"secret":"***"}`, s)

	_, ok = m.JSON([]byte("plain"))
	assert.False(t, ok)
}

func TestMaskSet_SecretsInsideStrings(t *testing.T) {
	t.Parallel()

	m := NewMaskSet([]string{"secret", "access_token"})

	assert.Equal(t,
		"otpauth://totp/2FA:GitHub?secret=***&issuer=2FA",
		m.URL("otpauth://totp/2FA:GitHub?secret=JBSWY3DPEHPK3PXP&issuer=2FA"))
	assert.Equal(t,
		"/api/v1/authenticators-stream?id=7&access_token=***#top",
		m.URL("/api/v1/authenticators-stream?id=7&access_token=eyJhbGciOi#top"))
	assert.Equal(t, "/api/v1/authenticators?take=10", m.URL("/api/v1/authenticators?take=10"))
	assert.Equal(t, "no query", m.URL("no query"))
	assert.Equal(t, "<data uri omitted>", m.String("data:image/png;base64,iVBORw0KGgo="))

	got := m.Value(map[string]any{
		"data": map[string]any{"uri": "otpauth://totp/x:GitHub?secret=JBSWY3DPEHPK3PXP"},
	})
	assert.Equal(t, map[string]any{
		"data": map[string]any{"uri": "otpauth://totp/x:GitHub?secret=***"},
	}, got)

	assert.Equal(t, "plain", NewMaskSet(nil).String("plain"))
}

func TestNew_DisabledInstallsLogger(t *testing.T) {
	prev := slog.Default()
	t.Cleanup(func() { slog.SetDefault(prev) })

	var buf bytes.Buffer
	ins, err := New(context.Background(), &Config{
		ServiceName: "twofa-test",
		MaskFields:  []string{"password"},
		LogLevel:    "debug",
		LogOutput:   &buf,
	})
	require.NoError(t, err)
	require.NotNil(t, ins.Tracer("t"))
	require.NoError(t, ins.Shutdown(context.Background()))

	ctx := SetCorrelationID(context.Background(), "cid-1")
	slog.DebugContext(ctx, "hello", "password", "hunter22", "user", "alice",
		"link", "otpauth://totp/x:y?password=hunter22")

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "hello", line["msg"])
	assert.Equal(t, "***", line["password"])
	assert.Equal(t, "alice", line["user"])
	assert.Equal(t, "otpauth://totp/x:y?password=***", line["link"])
	assert.Equal(t, "cid-1", line["_cID"])
	assert.Equal(t, "twofa-test", line["service"])
	assert.Equal(t, "DEBUG", line["severity"])
}

func TestCorrelationID(t *testing.T) {
	t.Parallel()

	assert.Empty(t, GetCorrelationID(context.Background()))
	assert.Equal(t, "x", GetCorrelationID(SetCorrelationID(context.Background(), "x")))
}
