package client

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeEnvelope(t *testing.T, w http.ResponseWriter, status int, body map[string]any) {
	t.Helper()
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	assert.NoError(t, json.NewEncoder(w).Encode(body))
}

func loggedIn(t *testing.T, srvURL string, opts ...Option) *Client {
	t.Helper()
	s := NewSession(newTestStore(t))
	require.NoError(t, s.Begin(context.Background(), Tokens{Username: "alice", AccessToken: "old", RefreshToken: "r1"}))
	return New(srvURL, s, opts...)
}

func TestClient_Login(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/identity/login", r.URL.Path)
		var body map[string]string
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		if body["password"] != "correct-horse" {
			writeEnvelope(t, w, http.StatusUnauthorized, map[string]any{"message": "invalid username or password"})
			return
		}
		writeEnvelope(t, w, http.StatusOK, map[string]any{
			"message": "login successful",
			"data":    map[string]any{"access_token": "acc", "refresh_token": "ref", "token_type": "Bearer"},
		})
	}))
	defer srv.Close()

	c := New(srv.URL, NewSession(newTestStore(t)))

	err := c.Login(context.Background(), "alice", "wrong-pass", "")
	require.Error(t, err)
	assert.True(t, IsStatus(err, http.StatusUnauthorized))
	assert.Equal(t, "invalid username or password (401)", err.Error())
	assert.False(t, c.Session().Authenticated())

	require.NoError(t, c.Login(context.Background(), "alice", "correct-horse", ""))
	assert.Equal(t, "acc", c.Session().AccessToken())
	assert.Equal(t, "alice", c.Session().Username())
}

func TestClient_RequiresSession(t *testing.T) {
	t.Parallel()

	c := New("http://127.0.0.1:0", NewSession(newTestStore(t)))
	_, err := c.List(context.Background(), ListParams{})
	assert.ErrorIs(t, err, ErrNotAuthenticated)
}

func TestClient_ListDecodesMeta(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer old", r.Header.Get("Authorization"))
		assert.Equal(t, "10", r.URL.Query().Get("take"))
		assert.Equal(t, "work", r.URL.Query().Get("tag"))
		writeEnvelope(t, w, http.StatusOK, map[string]any{
			"message": "ok",
			"data": map[string]any{"authenticators": []map[string]any{
				{"id": "1", "name": "GitHub", "tags": []string{"work"}},
			}},
			"meta": map[string]any{"total": 11, "take": 10, "skip": 0},
		})
	}))
	defer srv.Close()

	out, err := loggedIn(t, srv.URL).List(context.Background(), ListParams{Take: 10, Tag: "work"})
	require.NoError(t, err)
	require.Len(t, out.Items, 1)
	assert.Equal(t, "GitHub", out.Items[0].Name)
	assert.Equal(t, int64(11), out.Total)
	assert.Equal(t, 10, out.Take)
}

func TestClient_RefreshesExpiredToken(t *testing.T) {
	t.Parallel()

	var refreshes atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/v1/identity/refresh":
			refreshes.Add(1)
			writeEnvelope(t, w, http.StatusOK, map[string]any{
				"data": map[string]any{"access_token": "new", "refresh_token": "r2"},
			})
		default:
			if r.Header.Get("Authorization") != "Bearer new" {
				writeEnvelope(t, w, http.StatusUnauthorized, map[string]any{"message": "invalid or expired token"})
				return
			}
			writeEnvelope(t, w, http.StatusOK, map[string]any{
				"data": map[string]any{"id": "7", "name": "GitHub", "secret": "JBSWY3DPEHPK3PXP"},
			})
		}
	}))
	defer srv.Close()

	c := loggedIn(t, srv.URL)
	got, err := c.Detail(context.Background(), "7")
	require.NoError(t, err)
	assert.Equal(t, "JBSWY3DPEHPK3PXP", got.Secret)
	assert.Equal(t, "new", c.Session().AccessToken())
	assert.Equal(t, "r2", c.Session().RefreshToken())
	assert.Equal(t, "alice", c.Session().Username())
	assert.Equal(t, int32(1), refreshes.Load())

	// cached until teardown
	_, err = c.Detail(context.Background(), "7")
	require.NoError(t, err)
	_, ok := c.details.get("7")
	assert.True(t, ok)

	require.NoError(t, c.Session().Teardown(context.Background()))
	_, ok = c.details.get("7")
	assert.False(t, ok)
}

func TestClient_RejectedRefreshEndsSession(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeEnvelope(t, w, http.StatusUnauthorized, map[string]any{"message": "invalid refresh token"})
	}))
	defer srv.Close()

	c := loggedIn(t, srv.URL)
	_, err := c.Code(context.Background(), "7")
	assert.ErrorIs(t, err, ErrNotAuthenticated)
	assert.False(t, c.Session().Authenticated())
}

func TestClient_RefreshTokenReuseEndsSession(t *testing.T) {
	t.Parallel()

	var refreshes atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/api/v1/identity/refresh" {
			refreshes.Add(1)
			writeEnvelope(t, w, http.StatusForbidden, map[string]any{"message": "token reuse detected, please log in again"})
			return
		}
		writeEnvelope(t, w, http.StatusUnauthorized, map[string]any{"message": "token expired"})
	}))
	defer srv.Close()

	c := loggedIn(t, srv.URL)
	cleared := false
	c.Session().OnTeardown(func(context.Context) error {
		cleared = true
		return nil
	})

	_, err := c.List(context.Background(), ListParams{})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNotAuthenticated)
	assert.True(t, IsStatus(err, http.StatusForbidden))
	assert.Contains(t, err.Error(), "token reuse detected")

	assert.Equal(t, int32(1), refreshes.Load())
	assert.False(t, c.Session().Authenticated())
	assert.Empty(t, c.Session().RefreshToken())
	assert.True(t, cleared)
}

func TestClient_RetriesIdempotentRequests(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		writeEnvelope(t, w, http.StatusOK, map[string]any{
			"data": map[string]any{"id": "7", "code": "123456", "remaining": 12, "period": 30},
		})
	}))
	defer srv.Close()

	got, err := loggedIn(t, srv.URL).Code(context.Background(), "7")
	require.NoError(t, err)
	assert.Equal(t, "123456", got.Code)
	assert.Equal(t, int32(2), calls.Load())
}

func TestClient_ImportSendsIdempotencyKey(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "k-1", r.Header.Get("Idempotency-Key"))

		var entries []Entry
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&entries))
		assert.Len(t, entries, 2)

		writeEnvelope(t, w, http.StatusOK, map[string]any{
			"message": "import already processed",
			"data": map[string]any{
				"success": 1, "failure": 1,
				"errors": []map[string]any{{"index": 1, "reason": "name is required"}},
			},
			"meta": map[string]any{"replayed": true},
		})
	}))
	defer srv.Close()

	out, err := loggedIn(t, srv.URL).Import(context.Background(), []Entry{
		{Name: "A", Secret: "JBSWY3DPEHPK3PXP"},
		{Name: "", Secret: "X"},
	}, "k-1")
	require.NoError(t, err)
	assert.Equal(t, 1, out.Success)
	assert.Equal(t, 1, out.Failure)
	assert.Equal(t, []ImportError{{Index: 1, Reason: "name is required"}}, out.Errors)
	assert.True(t, out.Replayed)
}

func TestClient_ValidationErrorFields(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeEnvelope(t, w, http.StatusUnprocessableEntity, map[string]any{
			"message": "validation failed",
			"error":   map[string]string{"uri": "secret is missing", "description": "too long"},
		})
	}))
	defer srv.Close()

	_, err := loggedIn(t, srv.URL).ImportURI(context.Background(), "otpauth://totp/x")
	require.Error(t, err)
	assert.Equal(t, "validation failed (422): description: too long, uri: secret is missing", err.Error())
}

func TestClient_Export(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("Content-Disposition", `attachment; filename="2fa-backup-2026-03-01.json"`)
		_, _ = io.WriteString(w, `[{"name":"A","secret":"JBSWY3DPEHPK3PXP"}]`)
	}))
	defer srv.Close()

	got, err := loggedIn(t, srv.URL).Export(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "2fa-backup-2026-03-01.json", got.Filename)
	assert.JSONEq(t, `[{"name":"A","secret":"JBSWY3DPEHPK3PXP"}]`, string(got.Body))
}

func TestClient_LogoutTearsDownOnServerError(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/identity/logout", r.URL.Path)
		writeEnvelope(t, w, http.StatusInternalServerError, map[string]any{"message": "internal server error"})
	}))
	defer srv.Close()

	c := loggedIn(t, srv.URL)
	err := c.Logout(context.Background())
	assert.True(t, IsStatus(err, http.StatusInternalServerError))
	assert.False(t, c.Session().Authenticated())
}
