package main

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/shandysiswandi/twofa/internal/pkg/countdown"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeAPI struct {
	t        *testing.T
	loggedIn bool
}

func (f *fakeAPI) write(w http.ResponseWriter, status int, body map[string]any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	assert.NoError(f.t, json.NewEncoder(w).Encode(body))
}

func (f *fakeAPI) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch r.URL.Path {
	case "/api/v1/identity/login":
		var in map[string]string
		assert.NoError(f.t, json.NewDecoder(r.Body).Decode(&in))
		if in["username"] != "alice" || in["password"] != "hunter22" {
			f.write(w, http.StatusUnauthorized, map[string]any{"message": "invalid username or password"})
			return
		}
		f.write(w, http.StatusOK, map[string]any{"data": map[string]any{"access_token": "acc", "refresh_token": "ref"}})
	case "/api/v1/identity/logout":
		f.write(w, http.StatusOK, map[string]any{"message": "logged out"})
	case "/api/v1/authenticators":
		assert.Equal(f.t, "Bearer acc", r.Header.Get("Authorization"))
		f.write(w, http.StatusOK, map[string]any{
			"data": map[string]any{"authenticators": []map[string]any{
				{"id": "1", "name": "GitHub", "tags": []string{"work", "dev"}},
				{"id": "2", "name": "Google", "description": "personal"},
			}},
			"meta": map[string]any{"total": 2, "take": 100, "skip": 0},
		})
	case "/api/v1/authenticators/1":
		f.write(w, http.StatusOK, map[string]any{"data": map[string]any{"id": "1", "name": "GitHub", "secret": "JBSWY3DPEHPK3PXP"}})
	case "/api/v1/authenticators/1/code":
		f.write(w, http.StatusOK, map[string]any{"data": map[string]any{"id": "1", "name": "GitHub", "code": "492039", "remaining": 17}})
	case "/api/v1/authenticators-import":
		assert.NotEmpty(f.t, r.Header.Get("Idempotency-Key"))
		f.write(w, http.StatusOK, map[string]any{"data": map[string]any{
			"success": 1, "failure": 1,
			"errors": []map[string]any{{"index": 1, "reason": "name is required"}},
		}})
	default:
		f.write(w, http.StatusNotFound, map[string]any{"message": "endpoint not found"})
	}
}

func runCLI(t *testing.T, srvURL, sessionFile, stdin string, args ...string) (string, error) {
	t.Helper()

	var out bytes.Buffer
	e := &env{
		ctx:        context.Background(),
		out:        &out,
		in:         bufio.NewReader(strings.NewReader(stdin)),
		isTerminal: func() bool { return false },
	}

	argv := append([]string{"twofa", "--server", srvURL, "--session-file", sessionFile}, args...)
	err := newApp(e).Run(argv)

	return out.String(), err
}

func TestCLI_LoginListLogout(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(&fakeAPI{t: t})
	defer srv.Close()
	sessionFile := filepath.Join(t.TempDir(), "session.json")

	_, err := runCLI(t, srv.URL, sessionFile, "", "ls")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not logged in")

	out, err := runCLI(t, srv.URL, sessionFile, "alice\nhunter22\n", "login")
	require.NoError(t, err)
	assert.Contains(t, out, "Logged in as alice")

	out, err = runCLI(t, srv.URL, sessionFile, "", "ls")
	require.NoError(t, err)
	assert.Contains(t, out, "GitHub")
	assert.Contains(t, out, "work,dev")
	assert.Contains(t, out, "personal")

	out, err = runCLI(t, srv.URL, sessionFile, "", "code", "1")
	require.NoError(t, err)
	assert.Equal(t, "GitHub  492039  (17s left)\n", out)

	out, err = runCLI(t, srv.URL, sessionFile, "", "code", "--local", "1")
	require.NoError(t, err)
	assert.Regexp(t, `^GitHub  \d{6}  \(\d+s left\)\n$`, out)

	out, err = runCLI(t, srv.URL, sessionFile, "", "logout")
	require.NoError(t, err)
	assert.Equal(t, "Logged out\n", out)

	_, err = os.Stat(sessionFile)
	assert.True(t, os.IsNotExist(err))
}

func TestCLI_LoginRejected(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(&fakeAPI{t: t})
	defer srv.Close()

	_, err := runCLI(t, srv.URL, filepath.Join(t.TempDir(), "session.json"), "wrong-pass\n", "login", "-u", "alice")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid username or password")
}

func TestCLI_ImportFile(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(&fakeAPI{t: t})
	defer srv.Close()

	dir := t.TempDir()
	sessionFile := filepath.Join(dir, "session.json")
	_, err := runCLI(t, srv.URL, sessionFile, "alice\nhunter22\n", "login")
	require.NoError(t, err)

	backup := filepath.Join(dir, "backup.json")
	require.NoError(t, os.WriteFile(backup, []byte(`[{"name":"A","secret":"JBSWY3DPEHPK3PXP"},{"name":"","secret":"X"}]`), 0o600))

	out, err := runCLI(t, srv.URL, sessionFile, "", "import", backup)
	require.NoError(t, err)
	assert.Contains(t, out, "Imported 1, skipped 1")
	assert.Contains(t, out, "entry 1: name is required")
}

func TestWatch_StopsOnCancel(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	var (
		out   bytes.Buffer
		calls int
	)

	src := func(context.Context) ([]countdown.Target, error) {
		calls++
		if calls == 2 {
			cancel()
		}
		return []countdown.Target{
			{Key: "1", Label: "GitHub", Secret: "JBSWY3DPEHPK3PXP"},
			{Key: "2", Label: "Broken", Secret: "not-base32!!!"},
		}, nil
	}

	done := make(chan error, 1)
	go func() { done <- watch(ctx, &out, src, false) }()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("watch did not stop after cancel")
	}

	assert.Contains(t, out.String(), "GitHub")
	assert.Contains(t, out.String(), "Broken  ERROR")
	assert.NotContains(t, out.String(), clearScreen)
}

func TestRender(t *testing.T) {
	t.Parallel()

	var b strings.Builder
	render(&b, countdown.Tick{
		At:        time.Date(2026, 3, 1, 10, 0, 7, 0, time.UTC),
		Remaining: 23,
		Frames: []countdown.Frame{
			{Label: "GitHub", Code: "492039"},
			{Label: "AWS", Code: "ERROR"},
		},
	})

	want := "10:00:07  next code in 23s [#######################.......]\n\n" +
		"  GitHub  492 039\n" +
		"  AWS     ERROR\n"
	assert.Equal(t, want, b.String())
}
