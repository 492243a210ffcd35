// Package api is the REST client of the marketplace backend.
//
// Every operation maps to exactly one HTTP call. The bearer token is read
// from the token source on each call, request bodies default to JSON, and
// non-2xx responses become *errs.HTTPError carrying the server message.
package api

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
	"time"

	"go.uber.org/zap"

	"github.com/and161185/machtrueke/internal/errs"
)

// ErrEmptyResponse is returned by operations that cannot proceed without a payload.
var ErrEmptyResponse = errors.New("empty response body")

// TokenSource yields the current bearer token. Any error means "no token".
type TokenSource interface {
	Load() (string, error)
}

// Client calls the marketplace API.
type Client struct {
	baseURL string
	hc      *http.Client
	tokens  TokenSource
	log     *zap.Logger
	timeout time.Duration
}

// Option customizes a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying *http.Client. Its transport is wrapped for logging.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.hc = hc }
}

// WithLogger sets the logger used for per-request diagnostics.
func WithLogger(l *zap.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.log = l
		}
	}
}

// WithTimeout sets the per-request timeout of the default HTTP client.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.timeout = d }
}

// New constructs a Client for baseURL. tokens may be nil for anonymous use.
func New(baseURL string, tokens TokenSource, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		hc:      &http.Client{Timeout: 30 * time.Second},
		tokens:  tokens,
		log:     zap.NewNop(),
	}
	for _, o := range opts {
		o(c)
	}
	hc := *c.hc
	if c.timeout > 0 {
		hc.Timeout = c.timeout
	}
	hc.Transport = &loggingTransport{next: c.hc.Transport, log: c.log}
	c.hc = &hc
	return c
}

// BaseURL returns the API root the client talks to.
func (c *Client) BaseURL() string { return c.baseURL }

// multipartBody is a pre-encoded multipart/form-data payload.
type multipartBody struct {
	contentType string
	data        []byte
}

// do performs one call. body may be nil, url.Values (form-encoded),
// multipartBody, or anything JSON-encodable. out may be nil; a 2xx body
// that is empty or not valid JSON leaves out untouched and reports ok=false.
func (c *Client) do(ctx context.Context, op, method, path string, body, out any) (ok bool, err error) {
	var (
		rd          io.Reader
		contentType = "application/json"
	)
	switch b := body.(type) {
	case nil:
	case url.Values:
		rd = strings.NewReader(b.Encode())
		contentType = "application/x-www-form-urlencoded"
	case multipartBody:
		rd = bytes.NewReader(b.data)
		contentType = b.contentType
	default:
		buf, err := json.Marshal(b)
		if err != nil {
			return false, fmt.Errorf("%s: encode: %w", op, err)
		}
		rd = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, rd)
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Accept", "application/json")
	if c.tokens != nil {
		if tok, err := c.tokens.Load(); err == nil && tok != "" {
			req.Header.Set("Authorization", "Bearer "+tok)
		}
	}

	resp, err := c.hc.Do(req)
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	defer resp.Body.Close()
	raw, _ := io.ReadAll(resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return false, &errs.HTTPError{Status: resp.StatusCode, Message: errorMessage(raw, resp.StatusCode)}
	}
	if out == nil || len(bytes.TrimSpace(raw)) == 0 {
		return false, nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		c.log.Debug("api: undecodable body treated as absent",
			zap.String("op", op),
			zap.Error(err),
		)
		return false, nil
	}
	return true, nil
}

// errorMessage extracts the server message from an error body.
// Order: detail (string, or first msg of a list), message, error, raw
// non-JSON text, then "HTTP <status>".
func errorMessage(raw []byte, status int) string {
	fallback := fmt.Sprintf("HTTP %d", status)
	text := strings.TrimSpace(string(raw))
	if text == "" {
		return fallback
	}
	var env struct {
		Detail  json.RawMessage `json:"detail"`
		Message string          `json:"message"`
		Error   string          `json:"error"`
	}
	if err := json.Unmarshal(raw, &env); err != nil {
		var s string
		if json.Unmarshal(raw, &s) == nil && s != "" {
			return s
		}
		if strings.HasPrefix(text, "{") || strings.HasPrefix(text, "[") {
			return fallback
		}
		return text
	}
	if msg := detailMessage(env.Detail); msg != "" {
		return msg
	}
	if env.Message != "" {
		return env.Message
	}
	if env.Error != "" {
		return env.Error
	}
	return fallback
}

func detailMessage(d json.RawMessage) string {
	if len(d) == 0 {
		return ""
	}
	var s string
	if json.Unmarshal(d, &s) == nil {
		return s
	}
	var list []struct {
		Msg string `json:"msg"`
	}
	if json.Unmarshal(d, &list) == nil {
		for _, it := range list {
			if it.Msg != "" {
				return it.Msg
			}
		}
	}
	return ""
}
