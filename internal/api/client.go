// Package api is the HTTP client for the restaurant backend.
//
// Every method performs exactly one request. Non-success statuses come back as *Error,
// network failures and malformed bodies wrap errs.ErrTransport. The session is a cookie
// kept in the client's jar, so identity travels with every call automatically.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/and161185/restaurant-client/internal/errs"
)

const maxBody = 4 << 20

// Options configures a Client.
type Options struct {
	BaseURL   string
	Timeout   time.Duration
	UserAgent string
	// Jar holds the session cookie; a fresh in-memory jar is used when nil.
	Jar http.CookieJar
	// Transport is the underlying round tripper; http.DefaultTransport when nil.
	Transport http.RoundTripper
	Logger    *zap.Logger
}

// Client talks to one backend origin.
type Client struct {
	base      *url.URL
	hc        *http.Client
	userAgent string
	log       *zap.Logger
}

// New validates opts and builds a Client.
func New(opts Options) (*Client, error) {
	if opts.BaseURL == "" {
		return nil, errors.New("api: empty base url")
	}
	base, err := url.Parse(strings.TrimRight(opts.BaseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("api: base url: %w", err)
	}
	if base.Scheme != "http" && base.Scheme != "https" {
		return nil, fmt.Errorf("api: base url scheme %q", base.Scheme)
	}
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	jar := opts.Jar
	if jar == nil {
		jar, _ = cookiejar.New(nil)
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Client{
		base: base,
		hc: &http.Client{
			Jar:       jar,
			Timeout:   timeout,
			Transport: LoggingTransport(opts.Transport, log),
		},
		userAgent: opts.UserAgent,
		log:       log,
	}, nil
}

// BaseURL returns the backend origin.
func (c *Client) BaseURL() *url.URL { u := *c.base; return &u }

// Jar returns the cookie jar holding the session.
func (c *Client) Jar() http.CookieJar { return c.hc.Jar }

// ForgetSession expires every cookie the jar holds for the backend origin.
func (c *Client) ForgetSession() {
	u := c.BaseURL()
	u.Path = "/"
	held := c.hc.Jar.Cookies(u)
	if len(held) == 0 {
		return
	}
	expired := make([]*http.Cookie, 0, len(held))
	for _, ck := range held {
		expired = append(expired, &http.Cookie{Name: ck.Name, Value: "", Path: "/", MaxAge: -1})
	}
	c.hc.Jar.SetCookies(u, expired)
}

// request describes one call.
type request struct {
	method      string
	path        string
	body        io.Reader
	contentType string
}

func jsonRequest(method, path string, in any) (request, error) {
	r := request{method: method, path: path}
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return r, fmt.Errorf("encode %s %s: %w", method, path, err)
		}
		r.body = bytes.NewReader(b)
		r.contentType = "application/json"
	}
	return r, nil
}

// do sends r and decodes a 2xx body into out (when out is non-nil and the body is not empty).
func (c *Client) do(ctx context.Context, r request, out any) error {
	req, err := http.NewRequestWithContext(ctx, r.method, c.base.String()+r.path, r.body)
	if err != nil {
		return fmt.Errorf("%w: build %s %s: %v", errs.ErrTransport, r.method, r.path, err)
	}
	req.Header.Set("Accept", "application/json")
	if r.contentType != "" {
		req.Header.Set("Content-Type", r.contentType)
	}
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	resp, err := c.hc.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %s %s: %v", errs.ErrTransport, r.method, r.path, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBody))
	if err != nil {
		return fmt.Errorf("%w: read %s %s: %v", errs.ErrTransport, r.method, r.path, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return newError(r.method, r.path, resp.StatusCode, body)
	}
	if out == nil || len(bytes.TrimSpace(body)) == 0 {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("%w: decode %s %s: %v", errs.ErrTransport, r.method, r.path, err)
	}
	return nil
}

func (c *Client) doJSON(ctx context.Context, method, path string, in, out any) error {
	r, err := jsonRequest(method, path, in)
	if err != nil {
		return err
	}
	return c.do(ctx, r, out)
}

// errMissing reports a 2xx response that lacks the payload the caller relies on.
func errMissing(method, path, field string) error {
	return fmt.Errorf("%w: %s %s: response has no %s", errs.ErrTransport, method, path, field)
}

// listPayload decodes either a bare array or an object holding the array under key.
func listPayload[T any](raw json.RawMessage, key string) ([]T, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return nil, nil
	}
	if raw[0] == '[' {
		var out []T
		err := json.Unmarshal(raw, &out)
		return out, err
	}
	var wrapped map[string]json.RawMessage
	if err := json.Unmarshal(raw, &wrapped); err != nil {
		return nil, err
	}
	inner, ok := wrapped[key]
	if !ok || bytes.Equal(bytes.TrimSpace(inner), []byte("null")) {
		return nil, nil
	}
	var out []T
	err := json.Unmarshal(inner, &out)
	return out, err
}

// getList fetches path and decodes a list that may or may not be wrapped under key.
func getList[T any](ctx context.Context, c *Client, path, key string) ([]T, error) {
	var raw json.RawMessage
	if err := c.doJSON(ctx, http.MethodGet, path, nil, &raw); err != nil {
		return nil, err
	}
	out, err := listPayload[T](raw, key)
	if err != nil {
		return nil, fmt.Errorf("%w: decode GET %s: %v", errs.ErrTransport, path, err)
	}
	return out, nil
}

func escape(id string) string { return url.PathEscape(id) }
