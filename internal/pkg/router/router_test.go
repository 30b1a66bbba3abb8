package router

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/casbin/casbin/v3"
	"github.com/casbin/casbin/v3/model"
	"github.com/shandysiswandi/twofa/internal/pkg/goerror"
	"github.com/shandysiswandi/twofa/internal/pkg/instrument"
	"github.com/shandysiswandi/twofa/internal/pkg/jwt"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubJWT struct{}

func (stubJWT) Generate(jwt.Subject) (string, time.Time, error) { return "", time.Time{}, nil }

func (stubJWT) Verify(token string) (jwt.Claims, error) {
	switch token {
	case "user-token":
		return jwt.Claims{UserID: 1, Username: "alice", Role: "user"}, nil
	case "guest-token":
		return jwt.Claims{UserID: 2, Username: "guest", Role: "guest"}, nil
	}
	return jwt.Claims{}, jwt.ErrInvalidToken
}

type fixedUUID string

func (f fixedUUID) Generate() string { return string(f) }

type created struct {
	ID int64 `json:"id,string"`
}

func (created) StatusCode() int      { return http.StatusCreated }
func (created) Message() string      { return "created" }
func (created) Meta() map[string]any { return map[string]any{"n": 1} }

func newTestRouter(t *testing.T) *Router {
	t.Helper()

	m, err := model.NewModelFromString(`
[request_definition]
r = sub, obj, act
[policy_definition]
p = sub, obj, act
[role_definition]
g = _, _
[policy_effect]
e = some(where (p.eft == allow))
[matchers]
m = g(r.sub, p.sub) && (p.obj == "*" || r.obj == p.obj) && (p.act == "*" || r.act == p.act)
`)
	require.NoError(t, err)
	e, err := casbin.NewEnforcer(m)
	require.NoError(t, err)
	_, err = e.AddPolicy("user", "authenticator", "read")
	require.NoError(t, err)

	return NewRouter(Config{
		UUID:       fixedUUID("cid-generated"),
		JWT:        stubJWT{},
		Instrument: instrument.NewNoop(),
		Enforcer:   e,
	})
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func TestRouter_Envelope(t *testing.T) {
	t.Parallel()

	r := newTestRouter(t)
	r.POST("/api/v1/things", func(*Request) (any, error) { return created{ID: 9}, nil })
	r.GET("/api/v1/fail", func(*Request) (any, error) {
		return nil, goerror.NewBusiness("thing not found", goerror.CodeNotFound)
	})
	r.GET("/api/v1/boom", func(*Request) (any, error) { return nil, errors.New("db down") })

	req := httptest.NewRequest(http.MethodPost, "/api/v1/things", nil)
	req.Header.Set("Authorization", "Bearer user-token")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "cid-generated", rec.Header().Get(HeaderCorrelationID))
	body := decode(t, rec)
	assert.Equal(t, "created", body["message"])
	assert.Equal(t, map[string]any{"id": "9"}, body["data"])
	assert.Equal(t, map[string]any{"n": float64(1)}, body["meta"])

	req = httptest.NewRequest(http.MethodGet, "/api/v1/fail", nil)
	req.Header.Set("Authorization", "Bearer user-token")
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "thing not found", decode(t, rec)["message"])

	req = httptest.NewRequest(http.MethodGet, "/api/v1/boom", nil)
	req.Header.Set("Authorization", "Bearer user-token")
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestRouter_Authentication(t *testing.T) {
	t.Parallel()

	r := newTestRouter(t)
	r.GET("/api/v1/me", func(req *Request) (any, error) {
		return map[string]string{"username": jwt.GetAuth(req.Context()).Username}, nil
	})

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/me", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/me", nil)
	req.Header.Set("Authorization", "Bearer nope")
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	req = httptest.NewRequest(http.MethodGet, "/api/v1/me", nil)
	req.Header.Set("Authorization", "Bearer user-token")
	req.Header.Set(HeaderCorrelationID, "from-client")
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "from-client", rec.Header().Get(HeaderCorrelationID))

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRouter_Authorization(t *testing.T) {
	t.Parallel()

	r := newTestRouter(t)
	r.GET("/api/v1/entries", func(*Request) (any, error) { return []string{}, nil }, r.Authorize("authenticator", "read"))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/entries", nil)
	req.Header.Set("Authorization", "Bearer guest-token")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	req = httptest.NewRequest(http.MethodGet, "/api/v1/entries", nil)
	req.Header.Set("Authorization", "Bearer user-token")
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRouter_FileAndPanic(t *testing.T) {
	t.Parallel()

	r := newTestRouter(t)
	r.GET("/api/v1/file", func(*Request) (any, error) {
		return &File{Name: "backup.json", ContentType: "application/json", Body: []byte("[]")}, nil
	})
	r.GET("/api/v1/panic", func(*Request) (any, error) { panic("kaboom") })

	req := httptest.NewRequest(http.MethodGet, "/api/v1/file", nil)
	req.Header.Set("Authorization", "Bearer user-token")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "[]", rec.Body.String())
	assert.True(t, strings.HasPrefix(rec.Header().Get("Content-Disposition"), "attachment"))

	req = httptest.NewRequest(http.MethodGet, "/api/v1/panic", nil)
	req.Header.Set("Authorization", "Bearer user-token")
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestRequest_DecodeBody(t *testing.T) {
	t.Parallel()

	var dst struct {
		Name string `json:"name"`
	}

	req := &Request{Request: httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"name":"x"}`))}
	require.NoError(t, req.DecodeBody(&dst))
	assert.Equal(t, "x", dst.Name)

	req = &Request{Request: httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"other":"x"}`))}
	assert.True(t, goerror.HasCode(req.DecodeBody(&dst), goerror.CodeInvalidFormat))

	req = &Request{Request: httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"name":"x"}{}`))}
	assert.Error(t, req.DecodeBody(&dst))
}

func TestClientIP(t *testing.T) {
	t.Parallel()

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "10.0.0.1:5555"
	assert.Equal(t, "10.0.0.1", clientIP(req))

	req.Header.Set("X-Forwarded-For", "203.0.113.9, 10.0.0.1")
	assert.Equal(t, "203.0.113.9", clientIP(req))

	req.Header.Set("X-Real-IP", "not-an-ip")
	assert.Equal(t, "203.0.113.9", clientIP(req))
}
