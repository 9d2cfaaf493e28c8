// Package api is the single point of network egress of the client: a
// configured HTTP sender bound to the API base URL with cookie-based
// sessions, a fixed request timeout and a session-expiry interceptor.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/cookiejar"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// DefaultTimeout bounds every request that does not open a stream.
const DefaultTimeout = 10 * time.Second

// Client sends JSON requests to the API. It is safe for concurrent use.
type Client struct {
	baseURL      string
	http         *http.Client
	header       http.Header
	interceptors []ErrorInterceptor
	log          *zap.Logger
}

// Option configures a Client.
type Option func(*Client) error

// WithHTTPClient bases the underlying *http.Client on a copy of hc, so
// later options and the cookie jar New attaches leave hc untouched.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) error {
		cp := *hc
		c.http = &cp
		return nil
	}
}

// WithTimeout overrides DefaultTimeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) error {
		c.http.Timeout = d
		return nil
	}
}

// WithHeader adds a default header sent with every request.
func WithHeader(key, value string) Option {
	return func(c *Client) error {
		c.header.Set(key, value)
		return nil
	}
}

// WithLogger sets the request logger.
func WithLogger(l *zap.Logger) Option {
	return func(c *Client) error {
		c.log = l
		return nil
	}
}

// WithSessionExpiry installs the 401 interceptor bound to nav.
func WithSessionExpiry(nav Navigator, loginPath string) Option {
	return func(c *Client) error {
		c.interceptors = append(c.interceptors, SessionExpiry(nav, loginPath))
		return nil
	}
}

// WithInterceptor installs a custom error interceptor.
func WithInterceptor(fn ErrorInterceptor) Option {
	return func(c *Client) error {
		c.interceptors = append(c.interceptors, fn)
		return nil
	}
}

// WithCA trusts the PEM bundle at path in addition to the system roots.
func WithCA(path string) Option {
	return func(c *Client) error {
		if path == "" {
			return nil
		}
		transport, err := transportWithCA(path)
		if err != nil {
			return err
		}
		c.http.Transport = transport
		return nil
	}
}

// New returns a Client bound to baseURL (e.g. https://ctf.example/api/v1).
func New(baseURL string, opts ...Option) (*Client, error) {
	if baseURL == "" {
		return nil, fmt.Errorf("api: empty base URL")
	}
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: DefaultTimeout},
		header:  make(http.Header),
		log:     zap.NewNop(),
	}
	c.header.Set("Accept", "application/json")

	for _, opt := range opts {
		if err := opt(c); err != nil {
			return nil, err
		}
	}
	if c.http.Jar == nil {
		jar, err := cookiejar.New(nil)
		if err != nil {
			return nil, fmt.Errorf("create cookie jar: %w", err)
		}
		c.http.Jar = jar
	}
	return c, nil
}

// BaseURL returns the configured base URL without a trailing slash.
func (c *Client) BaseURL() string { return c.baseURL }

// Get decodes the response of GET path into out.
func (c *Client) Get(ctx context.Context, path string, out any) error {
	return c.Do(ctx, http.MethodGet, path, nil, out)
}

// Post sends body as JSON (or multipart when body is a *Form) and decodes the response into out.
func (c *Client) Post(ctx context.Context, path string, body, out any) error {
	return c.Do(ctx, http.MethodPost, path, body, out)
}

// Patch sends body as JSON and decodes the response into out.
func (c *Client) Patch(ctx context.Context, path string, body, out any) error {
	return c.Do(ctx, http.MethodPatch, path, body, out)
}

// Put sends body as JSON and decodes the response into out.
func (c *Client) Put(ctx context.Context, path string, body, out any) error {
	return c.Do(ctx, http.MethodPut, path, body, out)
}

// Delete issues DELETE path and decodes the response into out, if any.
func (c *Client) Delete(ctx context.Context, path string, out any) error {
	return c.Do(ctx, http.MethodDelete, path, nil, out)
}

// Download returns the raw body of GET path.
func (c *Client) Download(ctx context.Context, path string) ([]byte, error) {
	var blob []byte
	if err := c.Do(ctx, http.MethodGet, path, nil, &blob); err != nil {
		return nil, err
	}
	return blob, nil
}

// Do performs one request. out may be nil, a *[]byte for the raw body, or
// any JSON-decodable pointer. Failures are returned as *Error after every
// interceptor has seen them.
func (c *Client) Do(ctx context.Context, method, path string, body, out any) error {
	req, err := c.newRequest(ctx, method, path, body)
	if err != nil {
		return err
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return c.fail(&Error{Method: method, Path: req.URL.Path, Err: err, Message: "network error"})
	}
	defer resp.Body.Close()

	c.log.Debug("api request",
		zap.String("method", method),
		zap.String("path", req.URL.Path),
		zap.Int("status", resp.StatusCode),
		zap.String("request_id", req.Header.Get("X-Request-ID")),
		zap.Duration("duration", time.Since(start)),
	)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return c.fail(decodeError(req, resp))
	}
	if err := decodeBody(resp.Body, out); err != nil {
		return &Error{Method: method, Path: req.URL.Path, Status: resp.StatusCode, Message: "invalid response", Err: err}
	}
	return nil
}

// Open issues GET path and returns the live response for streaming. The
// request timeout does not apply; the stream lives until ctx is done or the
// server closes it. The caller closes the body.
func (c *Client) Open(ctx context.Context, path, accept string) (*http.Response, error) {
	req, err := c.newRequest(ctx, http.MethodGet, path, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", accept)
	req.Header.Set("Cache-Control", "no-cache")

	stream := *c.http
	stream.Timeout = 0
	resp, err := stream.Do(req)
	if err != nil {
		return nil, c.fail(&Error{Method: http.MethodGet, Path: req.URL.Path, Err: err, Message: "network error"})
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		defer resp.Body.Close()
		return nil, c.fail(decodeError(req, resp))
	}
	return resp, nil
}

func (c *Client) newRequest(ctx context.Context, method, path string, body any) (*http.Request, error) {
	var (
		rdr         io.Reader
		contentType string
	)
	switch b := body.(type) {
	case nil:
	case *Form:
		buf, ct, err := b.encode()
		if err != nil {
			return nil, fmt.Errorf("encode form: %w", err)
		}
		rdr, contentType = buf, ct
	default:
		buf, err := json.Marshal(b)
		if err != nil {
			return nil, fmt.Errorf("encode body: %w", err)
		}
		rdr, contentType = bytes.NewReader(buf), "application/json"
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, rdr)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	for k, v := range c.header {
		req.Header[k] = v
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	req.Header.Set("X-Request-ID", uuid.NewString())
	return req, nil
}

func (c *Client) fail(e *Error) *Error {
	c.log.Debug("api request failed", zap.Error(e))
	for _, fn := range c.interceptors {
		fn(e)
	}
	return e
}

func decodeBody(r io.Reader, out any) error {
	if out == nil {
		_, _ = io.Copy(io.Discard, r)
		return nil
	}
	raw, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	if blob, ok := out.(*[]byte); ok {
		*blob = raw
		return nil
	}
	if len(bytes.TrimSpace(raw)) == 0 {
		return nil
	}
	return json.Unmarshal(raw, out)
}

// FormFile is one file part of a multipart form.
type FormFile struct {
	Field   string
	Name    string
	Content io.Reader
}

// Form is a multipart/form-data body.
type Form struct {
	Fields [][2]string
	Files  []FormFile
}

func (f *Form) encode() (io.Reader, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for _, file := range f.Files {
		part, err := w.CreateFormFile(file.Field, file.Name)
		if err != nil {
			return nil, "", err
		}
		if _, err := io.Copy(part, file.Content); err != nil {
			return nil, "", err
		}
	}
	for _, kv := range f.Fields {
		if err := w.WriteField(kv[0], kv[1]); err != nil {
			return nil, "", err
		}
	}
	if err := w.Close(); err != nil {
		return nil, "", err
	}
	return &buf, w.FormDataContentType(), nil
}
