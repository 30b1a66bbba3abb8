package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/sethvargo/go-retry"
)

const (
	defaultTimeout = 15 * time.Second
	defaultRetries = 2
	maxErrorBody   = 64 << 10
)

// Client talks to the twofa API on behalf of a Session. Idempotent requests
// are retried on network errors and gateway failures; an expired access token
// is refreshed once per request.
type Client struct {
	baseURL string
	http    *http.Client
	session *Session
	retries uint64
	details *detailCache

	refreshMu sync.Mutex
}

type detailCache struct {
	mu    sync.RWMutex
	items map[string]Authenticator
}

func (d *detailCache) get(id string) (Authenticator, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	a, ok := d.items[id]
	return a, ok
}

func (d *detailCache) put(a Authenticator) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.items[a.ID] = a
}

func (d *detailCache) clear(context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	clear(d.items)
	return nil
}

type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

func WithRetries(n uint64) Option {
	return func(c *Client) { c.retries = n }
}

func New(baseURL string, session *Session, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: defaultTimeout},
		session: session,
		retries: defaultRetries,
		details: &detailCache{items: map[string]Authenticator{}},
	}
	for _, opt := range opts {
		opt(c)
	}

	session.OnTeardown(c.details.clear)

	return c
}

func (c *Client) Session() *Session { return c.session }

type call struct {
	method string
	path   string
	query  url.Values
	body   any
	header map[string]string
	auth   bool
}

type envelope struct {
	Message string            `json:"message"`
	Data    json.RawMessage   `json:"data"`
	Meta    json.RawMessage   `json:"meta"`
	Error   map[string]string `json:"error"`
}

// send performs the call and returns a 2xx response; the caller closes it.
func (c *Client) send(ctx context.Context, cl call) (*http.Response, error) {
	if cl.auth && !c.session.Authenticated() {
		return nil, ErrNotAuthenticated
	}

	var payload []byte
	if cl.body != nil {
		raw, err := json.Marshal(cl.body)
		if err != nil {
			return nil, err
		}
		payload = raw
	}

	token := c.session.AccessToken()
	resp, err := c.attempt(ctx, cl, payload, token)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode == http.StatusUnauthorized && cl.auth && c.session.RefreshToken() != "" {
		_ = resp.Body.Close()

		if err := c.refresh(ctx, token); err != nil {
			return nil, err
		}

		resp, err = c.attempt(ctx, cl, payload, c.session.AccessToken())
		if err != nil {
			return nil, err
		}
	}

	if resp.StatusCode >= http.StatusBadRequest {
		defer resp.Body.Close()
		return nil, decodeError(resp)
	}

	return resp, nil
}

func (c *Client) attempt(ctx context.Context, cl call, payload []byte, token string) (*http.Response, error) {
	retries := uint64(0)
	if cl.method == http.MethodGet {
		retries = c.retries
	}

	var resp *http.Response
	b := retry.WithMaxRetries(retries, retry.NewExponential(200*time.Millisecond))
	err := retry.Do(ctx, b, func(ctx context.Context) error {
		req, err := c.newRequest(ctx, cl, payload, token)
		if err != nil {
			return err
		}

		r, err := c.http.Do(req)
		if err != nil {
			return retry.RetryableError(err)
		}

		switch r.StatusCode {
		case http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
			if retries > 0 {
				_ = r.Body.Close()
				return retry.RetryableError(fmt.Errorf("client: %s %s: status %d", cl.method, cl.path, r.StatusCode))
			}
		}

		resp = r
		return nil
	})

	return resp, err
}

func (c *Client) newRequest(ctx context.Context, cl call, payload []byte, token string) (*http.Request, error) {
	u := c.baseURL + cl.path
	if len(cl.query) > 0 {
		u += "?" + cl.query.Encode()
	}

	var body io.Reader
	if payload != nil {
		body = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, cl.method, u, body)
	if err != nil {
		return nil, err
	}

	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if cl.auth && token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	for k, v := range cl.header {
		req.Header.Set(k, v)
	}

	return req, nil
}

// do sends the call and decodes the success envelope into data and meta,
// either of which may be nil.
func (c *Client) do(ctx context.Context, cl call, data, meta any) (string, error) {
	resp, err := c.send(ctx, cl)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return "", fmt.Errorf("client: decode %s %s: %w", cl.method, cl.path, err)
	}

	if data != nil && len(env.Data) > 0 {
		if err := json.Unmarshal(env.Data, data); err != nil {
			return "", fmt.Errorf("client: decode data of %s: %w", cl.path, err)
		}
	}
	if meta != nil && len(env.Meta) > 0 {
		if err := json.Unmarshal(env.Meta, meta); err != nil {
			return "", fmt.Errorf("client: decode meta of %s: %w", cl.path, err)
		}
	}

	return env.Message, nil
}

// refresh rotates the tokens unless another request already did so after
// stale was issued. A rejected refresh token ends the session; the server
// answers 403 when it detected reuse and revoked every session of the user.
func (c *Client) refresh(ctx context.Context, stale string) error {
	c.refreshMu.Lock()
	defer c.refreshMu.Unlock()

	if c.session.AccessToken() != stale {
		return nil
	}

	var out tokenResponse
	_, err := c.do(ctx, call{
		method: http.MethodPost,
		path:   "/api/v1/identity/refresh",
		body:   map[string]string{"refresh_token": c.session.RefreshToken()},
	}, &out, nil)
	if IsStatus(err, http.StatusUnauthorized) || IsStatus(err, http.StatusForbidden) {
		return errors.Join(ErrNotAuthenticated, err, c.session.Teardown(ctx))
	}
	if err != nil {
		return err
	}

	return c.session.Begin(ctx, out.tokens(c.session.Username()))
}

func decodeError(resp *http.Response) error {
	apiErr := &APIError{Status: resp.StatusCode, Message: http.StatusText(resp.StatusCode)}

	var env envelope
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxErrorBody)).Decode(&env); err == nil {
		if env.Message != "" {
			apiErr.Message = env.Message
		}
		apiErr.Fields = env.Error
	}

	return apiErr
}
