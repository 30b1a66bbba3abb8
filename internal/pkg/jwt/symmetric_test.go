package jwt

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixedClock struct{ t time.Time }

func (f *fixedClock) Now() time.Time { return f.t }

type fixedID string

func (f fixedID) Generate() string { return string(f) }

func newTestJWT(t *testing.T, clk *fixedClock) *Symmetric {
	t.Helper()

	j, err := NewHS512(Config{
		Secret:    []byte(strings.Repeat("k", 64)),
		Issuer:    "twofa",
		Audiences: []string{"twofa-api"},
		TTL:       time.Minute,
		Clock:     clk,
		UUID:      fixedID("jti-1"),
	})
	require.NoError(t, err)

	return j
}

func TestSymmetric_GenerateVerify(t *testing.T) {
	t.Parallel()

	clk := &fixedClock{t: time.Unix(1_700_000_000, 0)}
	j := newTestJWT(t, clk)

	token, exp, err := j.Generate(Subject{UserID: 42, Username: "alice", Role: "user", SessionID: 7})
	require.NoError(t, err)
	assert.Equal(t, clk.t.Add(time.Minute), exp)

	clm, err := j.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, int64(42), clm.UserID)
	assert.Equal(t, "alice", clm.Username)
	assert.Equal(t, "user", clm.Role)
	assert.Equal(t, int64(7), clm.SessionID)
	assert.Equal(t, "42", clm.Subject)
	assert.Equal(t, "jti-1", clm.ID)

	clk.t = clk.t.Add(2 * time.Minute)
	_, err = j.Verify(token)
	assert.ErrorIs(t, err, ErrTokenExpired)
}

func TestSymmetric_Rejects(t *testing.T) {
	t.Parallel()

	_, err := NewHS512(Config{Secret: []byte("short")})
	assert.ErrorIs(t, err, ErrSigningKeyTooShort)

	clk := &fixedClock{t: time.Unix(1_700_000_000, 0)}
	j := newTestJWT(t, clk)

	_, err = j.Verify("not-a-token")
	assert.Error(t, err)

	other, err := NewHS512(Config{
		Secret:    []byte(strings.Repeat("z", 64)),
		Issuer:    "twofa",
		Audiences: []string{"twofa-api"},
		TTL:       time.Minute,
		Clock:     clk,
		UUID:      fixedID("jti-2"),
	})
	require.NoError(t, err)
	token, _, err := other.Generate(Subject{UserID: 1})
	require.NoError(t, err)

	_, err = j.Verify(token)
	assert.Error(t, err)
}

func TestAuthContext(t *testing.T) {
	t.Parallel()

	assert.Nil(t, GetAuth(context.Background()))

	ctx := SetAuth(context.Background(), Claims{UserID: 9, Username: "bob"})
	clm := GetAuth(ctx)
	require.NotNil(t, clm)
	assert.Equal(t, int64(9), clm.UserID)
}
