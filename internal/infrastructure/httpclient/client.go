// Package httpclient is the HTTP transport of the marketplace API client. It
// unwraps the {"data": ...} envelope and classifies failures once, at the
// boundary, so callers never inspect status codes.
package httpclient

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

	"github.com/sirupsen/logrus"
	"github.com/tidwall/gjson"

	"github.com/avatarctic/services-marketplace/go/internal/core/domain/fault"
)

const (
	defaultTimeout = 30 * time.Second
	maxErrorBody   = 4 << 10
)

var (
	errNoEnvelope = errors.New("response has no data member")
	errBadJSON    = errors.New("response is not valid JSON")
)

// TokenSource returns the bearer token for a request. An empty token sends
// no Authorization header.
type TokenSource func(ctx context.Context) (string, error)

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient overrides the underlying HTTP client.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) {
		if h != nil {
			c.httpClient = h
		}
	}
}

// WithToken sends a static bearer token.
func WithToken(token string) Option {
	return func(c *Client) {
		c.tokens = func(context.Context) (string, error) { return token, nil }
	}
}

// WithTokenSource resolves the bearer token per request.
func WithTokenSource(src TokenSource) Option {
	return func(c *Client) {
		if src != nil {
			c.tokens = src
		}
	}
}

// WithTimeout sets the per-request timeout. It applies to a copy of the HTTP
// client, whatever the option order, so a shared client is never modified.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithLogger sets the request logger.
func WithLogger(l *logrus.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.logger = l
		}
	}
}

// Client implements ports.Transport over net/http.
type Client struct {
	baseURL    *url.URL
	httpClient *http.Client
	timeout    time.Duration
	tokens     TokenSource
	logger     *logrus.Logger
}

// New creates a Client for baseURL, e.g. "http://localhost:8080/api/v1".
func New(baseURL string, opts ...Option) (*Client, error) {
	if strings.TrimSpace(baseURL) == "" {
		return nil, errors.New("httpclient: base URL is required")
	}
	parsed, err := url.Parse(strings.TrimRight(baseURL, "/") + "/")
	if err != nil {
		return nil, fmt.Errorf("httpclient: invalid base URL: %w", err)
	}
	logger := logrus.New()
	logger.SetOutput(io.Discard)

	c := &Client{
		baseURL:    parsed,
		httpClient: &http.Client{Timeout: defaultTimeout},
		tokens:     func(context.Context) (string, error) { return "", nil },
		logger:     logger,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.timeout > 0 {
		hc := *c.httpClient
		hc.Timeout = c.timeout
		c.httpClient = &hc
	}
	return c, nil
}

// Request sends one request and returns the raw `data` member of the response
// envelope. Non-2xx responses become *fault.Error tagged by status; network
// failures are transient; a malformed envelope is structural.
func (c *Client) Request(ctx context.Context, method, path string, body any) (json.RawMessage, error) {
	op := method + " " + path
	target, err := c.resolve(path)
	if err != nil {
		return nil, fault.New(fault.ClassBadRequest, op, err)
	}

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fault.New(fault.ClassBadRequest, op, fmt.Errorf("encode body: %w", err))
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return nil, fault.New(fault.ClassBadRequest, op, err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	token, err := c.tokens(ctx)
	if err != nil {
		return nil, fault.New(fault.ClassUnauthorized, op, fmt.Errorf("resolve token: %w", err))
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, fault.New(fault.ClassTransient, op, err)
	}
	defer resp.Body.Close()

	c.logger.WithFields(logrus.Fields{
		"method":   method,
		"path":     path,
		"status":   resp.StatusCode,
		"duration": time.Since(start),
	}).Debug("httpclient: response")

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, c.statusError(op, resp)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fault.New(fault.ClassTransient, op, fmt.Errorf("read body: %w", err))
	}
	return unwrap(op, data)
}

func (c *Client) resolve(path string) (string, error) {
	ref, err := url.Parse(strings.TrimLeft(path, "/"))
	if err != nil {
		return "", err
	}
	return c.baseURL.ResolveReference(ref).String(), nil
}

func (c *Client) statusError(op string, resp *http.Response) error {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	msg := strings.TrimSpace(string(raw))
	if gjson.ValidBytes(raw) {
		if m := gjson.GetBytes(raw, "message"); m.Exists() {
			msg = m.String()
		} else if m := gjson.GetBytes(raw, "error"); m.Exists() {
			msg = m.String()
		}
	}
	var cause error
	if msg != "" {
		cause = errors.New(msg)
	}
	return fault.FromStatus(resp.StatusCode, op, cause)
}

func unwrap(op string, data []byte) (json.RawMessage, error) {
	if !gjson.ValidBytes(data) {
		return nil, fault.Structural(op, errBadJSON)
	}
	doc := gjson.ParseBytes(data)
	if !doc.IsObject() {
		return nil, fault.Structural(op, errNoEnvelope)
	}
	member := doc.Get("data")
	if !member.Exists() {
		return nil, fault.Structural(op, errNoEnvelope)
	}
	return json.RawMessage(member.Raw), nil
}
