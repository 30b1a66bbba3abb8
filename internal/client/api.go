package client

import (
	"context"
	"errors"
	"io"
	"mime"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

const maxExportBytes = 8 << 20

type tokenResponse struct {
	AccessToken     string    `json:"access_token"`
	AccessExpiresAt time.Time `json:"access_expires_at"`
	RefreshToken    string    `json:"refresh_token"`
}

func (t tokenResponse) tokens(username string) Tokens {
	return Tokens{
		Username:        username,
		AccessToken:     t.AccessToken,
		AccessExpiresAt: t.AccessExpiresAt,
		RefreshToken:    t.RefreshToken,
	}
}

type Account struct {
	ID       string `json:"id"`
	Username string `json:"username"`
}

func (c *Client) Register(ctx context.Context, username, password, recaptchaToken string) (Account, error) {
	var out Account
	_, err := c.do(ctx, call{
		method: http.MethodPost,
		path:   "/api/v1/identity/register",
		body: map[string]string{
			"username":        username,
			"password":        password,
			"recaptcha_token": recaptchaToken,
		},
	}, &out, nil)

	return out, err
}

// Login signs in and begins the session.
func (c *Client) Login(ctx context.Context, username, password, recaptchaToken string) error {
	var out tokenResponse
	_, err := c.do(ctx, call{
		method: http.MethodPost,
		path:   "/api/v1/identity/login",
		body: map[string]string{
			"username":        username,
			"password":        password,
			"recaptcha_token": recaptchaToken,
		},
	}, &out, nil)
	if err != nil {
		return err
	}

	return c.session.Begin(ctx, out.tokens(username))
}

// Logout revokes the refresh token and always tears the local session down,
// even when the server can no longer be reached.
func (c *Client) Logout(ctx context.Context) error {
	if !c.session.Authenticated() {
		return c.session.Teardown(ctx)
	}

	_, err := c.do(ctx, call{
		method: http.MethodPost,
		path:   "/api/v1/identity/logout",
		body:   map[string]string{"refresh_token": c.session.RefreshToken()},
	}, nil, nil)
	if IsStatus(err, http.StatusUnauthorized) {
		err = nil
	}

	return errors.Join(err, c.session.Teardown(ctx))
}

type Authenticator struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Tags        []string  `json:"tags"`
	Secret      string    `json:"secret,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

type ListParams struct {
	Take   int
	Skip   int
	Tag    string
	Search string
}

type ListResult struct {
	Items []Authenticator `json:"-"`
	Total int64           `json:"total"`
	Take  int             `json:"take"`
	Skip  int             `json:"skip"`
}

func (c *Client) List(ctx context.Context, p ListParams) (ListResult, error) {
	q := url.Values{}
	if p.Take > 0 {
		q.Set("take", strconv.Itoa(p.Take))
	}
	if p.Skip > 0 {
		q.Set("skip", strconv.Itoa(p.Skip))
	}
	if p.Tag != "" {
		q.Set("tag", p.Tag)
	}
	if p.Search != "" {
		q.Set("search", p.Search)
	}

	var (
		out  ListResult
		data struct {
			Authenticators []Authenticator `json:"authenticators"`
		}
	)
	_, err := c.do(ctx, call{method: http.MethodGet, path: "/api/v1/authenticators", query: q, auth: true}, &data, &out)
	out.Items = data.Authenticators

	return out, err
}

// Detail returns one entry including its secret. Results are cached until
// the session ends.
func (c *Client) Detail(ctx context.Context, id string) (Authenticator, error) {
	if a, ok := c.details.get(id); ok {
		return a, nil
	}

	var out Authenticator
	_, err := c.do(ctx, call{
		method: http.MethodGet,
		path:   "/api/v1/authenticators/" + url.PathEscape(id),
		auth:   true,
	}, &out, nil)
	if err != nil {
		return Authenticator{}, err
	}
	c.details.put(out)

	return out, nil
}

type Code struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Code      string `json:"code"`
	Remaining int    `json:"remaining"`
	Period    uint   `json:"period"`
	Step      uint64 `json:"step"`
}

// Code asks the server for the current code of one entry.
func (c *Client) Code(ctx context.Context, id string) (Code, error) {
	var out Code
	_, err := c.do(ctx, call{
		method: http.MethodGet,
		path:   "/api/v1/authenticators/" + url.PathEscape(id) + "/code",
		auth:   true,
	}, &out, nil)

	return out, err
}

// Entry is one element of a backup file.
type Entry struct {
	Name        string   `json:"name"`
	Secret      string   `json:"secret"`
	Description string   `json:"description,omitempty"`
	Tags        []string `json:"tags,omitempty"`
}

type ImportError struct {
	Index  int    `json:"index"`
	Reason string `json:"reason"`
}

type ImportResult struct {
	Success  int           `json:"success"`
	Failure  int           `json:"failure"`
	Errors   []ImportError `json:"errors"`
	Replayed bool          `json:"-"`
}

// Import uploads entries. A non-empty idempotencyKey makes a retried import
// return the first result instead of storing the entries twice.
func (c *Client) Import(ctx context.Context, entries []Entry, idempotencyKey string) (ImportResult, error) {
	cl := call{method: http.MethodPost, path: "/api/v1/authenticators-import", body: entries, auth: true}
	if idempotencyKey != "" {
		cl.header = map[string]string{"Idempotency-Key": idempotencyKey}
	}

	var (
		out  ImportResult
		meta struct {
			Replayed bool `json:"replayed"`
		}
	)
	_, err := c.do(ctx, cl, &out, &meta)
	out.Replayed = meta.Replayed

	return out, err
}

// ImportURI stores the account described by an otpauth URI.
func (c *Client) ImportURI(ctx context.Context, uri string) (Authenticator, error) {
	var out Authenticator
	_, err := c.do(ctx, call{
		method: http.MethodPost,
		path:   "/api/v1/authenticators-import-uri",
		body:   map[string]any{"uri": uri},
		auth:   true,
	}, &out, nil)

	return out, err
}

type Backup struct {
	Filename string
	Body     []byte
}

// Export downloads the backup file of every entry.
func (c *Client) Export(ctx context.Context) (Backup, error) {
	resp, err := c.send(ctx, call{method: http.MethodGet, path: "/api/v1/authenticators-export", auth: true})
	if err != nil {
		return Backup{}, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxExportBytes))
	if err != nil {
		return Backup{}, err
	}

	out := Backup{Filename: "2fa-backup.json", Body: body}
	if _, params, err := mime.ParseMediaType(resp.Header.Get("Content-Disposition")); err == nil && params["filename"] != "" {
		out.Filename = params["filename"]
	}

	return out, nil
}
