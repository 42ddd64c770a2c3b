package sdk

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-faster/errors"
	"go.uber.org/zap"

	apperrors "github.com/gear6io/promptvalley/pkg/errors"
	api "github.com/gear6io/promptvalley/server/protocols/http"
)

// Options configure a Client
type Options struct {
	// Addr is the server base URL, e.g. http://127.0.0.1:2847
	Addr    string
	Timeout time.Duration
	Headers map[string]string

	// HTTPClient overrides the transport; Timeout is ignored when set
	HTTPClient *http.Client

	// Logging
	Logger *zap.Logger
}

// SetDefaults sets default values for options
func (o *Options) SetDefaults() *Options {
	if o.Addr == "" {
		o.Addr = "http://127.0.0.1:2847"
	}
	if !strings.Contains(o.Addr, "://") {
		o.Addr = "http://" + o.Addr
	}
	o.Addr = strings.TrimRight(o.Addr, "/")

	if o.Timeout == 0 {
		o.Timeout = 60 * time.Second
	}
	if o.Headers == nil {
		o.Headers = make(map[string]string)
	}
	if o.HTTPClient == nil {
		o.HTTPClient = &http.Client{Timeout: o.Timeout}
	}
	if o.Logger == nil {
		o.Logger = zap.NewNop()
	}
	return o
}

// ParseDSN parses promptvalley://host:port?timeout=30s into Options.
// Plain http and https URLs are accepted as they are.
func ParseDSN(dsn string) (*Options, error) {
	u, err := url.Parse(dsn)
	if err != nil {
		return nil, errors.Wrap(err, "parse dsn")
	}

	opt := &Options{}
	switch u.Scheme {
	case "promptvalley":
		opt.Addr = "http://" + u.Host
	case "http", "https":
		opt.Addr = u.Scheme + "://" + u.Host + strings.TrimRight(u.Path, "/")
	default:
		return nil, errors.Errorf("invalid DSN scheme %q, must be promptvalley, http or https", u.Scheme)
	}
	if u.Host == "" {
		return nil, errors.New("invalid DSN format, host is missing")
	}

	if t := u.Query().Get("timeout"); t != "" {
		d, err := time.ParseDuration(t)
		if err != nil {
			return nil, errors.Wrap(err, "parse timeout")
		}
		opt.Timeout = d
	}
	return opt, nil
}

// Client talks to a PromptValley server. Records and Storage implement the
// local gateways so every component can run against a remote server.
type Client struct {
	opt     *Options
	http    *http.Client
	logger  *zap.Logger
	records *Records
	storage *Storage
}

// NewClient creates a new client
func NewClient(opt *Options) (*Client, error) {
	if opt == nil {
		opt = &Options{}
	}
	o := opt.SetDefaults()
	if _, err := url.Parse(o.Addr); err != nil {
		return nil, errors.Wrap(err, "parse address")
	}

	c := &Client{
		opt:    o,
		http:   o.HTTPClient,
		logger: o.Logger.With(zap.String("addr", o.Addr)),
	}
	c.records = &Records{c: c}
	c.storage = &Storage{c: c}
	return c, nil
}

// Records returns the records gateway
func (c *Client) Records() *Records {
	return c.records
}

// Storage returns the storage gateway
func (c *Client) Storage() *Storage {
	return c.storage
}

// Open is a convenience function to create a client and check the server
func Open(opt *Options) (*Client, error) {
	client, err := NewClient(opt)
	if err != nil {
		return nil, err
	}
	if err := client.Ping(context.Background()); err != nil {
		return nil, err
	}
	return client, nil
}

// Addr returns the server base URL
func (c *Client) Addr() string {
	return c.opt.Addr
}

// Ping checks the health endpoint
func (c *Client) Ping(ctx context.Context) error {
	var health struct {
		Status string `json:"status"`
	}
	if err := c.getJSON(ctx, "/health", nil, &health); err != nil {
		return err
	}
	if health.Status != "healthy" {
		return errors.Errorf("server reports status %q", health.Status)
	}
	return nil
}

// request is one API call
type request struct {
	method      string
	path        string
	query       url.Values
	body        io.Reader
	size        int64
	contentType string
	headers     map[string]string
}

func (c *Client) jsonRequest(method, path string, payload interface{}) (request, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return request{}, errors.Wrap(err, "encode request")
	}
	return request{
		method:      method,
		path:        path,
		body:        bytes.NewReader(data),
		size:        int64(len(data)),
		contentType: "application/json",
	}, nil
}

// send performs req and returns the response for a 2xx status. Any other
// status is decoded from the error envelope.
func (c *Client) send(ctx context.Context, req request) (*http.Response, error) {
	target := c.opt.Addr + req.path
	if len(req.query) > 0 {
		target += "?" + req.query.Encode()
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.method, target, req.body)
	if err != nil {
		return nil, errors.Wrap(err, "build request")
	}
	if req.body != nil {
		httpReq.ContentLength = req.size
	}
	if req.contentType != "" {
		httpReq.Header.Set("Content-Type", req.contentType)
	}
	for k, v := range c.opt.Headers {
		httpReq.Header.Set(k, v)
	}
	for k, v := range req.headers {
		httpReq.Header.Set(k, v)
	}

	start := time.Now()
	resp, err := c.http.Do(httpReq)
	if err != nil {
		if ctx.Err() != nil {
			return nil, apperrors.New(apperrors.CommonCanceled, "request canceled", ctx.Err())
		}
		return nil, errors.Wrapf(err, "%s %s", req.method, req.path)
	}

	c.logger.Debug("request",
		zap.String("method", req.method),
		zap.String("path", req.path),
		zap.Int("status", resp.StatusCode),
		zap.Duration("elapsed", time.Since(start)),
	)

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return resp, nil
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	return nil, decodeError(resp.StatusCode, body)
}

func (c *Client) do(ctx context.Context, req request, out interface{}) error {
	resp, err := c.send(ctx, req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if out == nil {
		_, err := io.Copy(io.Discard, resp.Body)
		return err
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return errors.Wrapf(err, "decode %s %s", req.method, req.path)
	}
	return nil
}

func (c *Client) getJSON(ctx context.Context, path string, query url.Values, out interface{}) error {
	return c.do(ctx, request{method: http.MethodGet, path: path, query: query}, out)
}

func (c *Client) sendJSON(ctx context.Context, method, path string, payload, out interface{}) error {
	req, err := c.jsonRequest(method, path, payload)
	if err != nil {
		return err
	}
	return c.do(ctx, req, out)
}

// decodeError rebuilds the server-side error: constraint violations come
// back as *records.ConstraintError and everything else as a coded error
func decodeError(status int, body []byte) error {
	var env api.ErrorEnvelope
	if err := json.Unmarshal(body, &env); err != nil || env.Error.Code == "" {
		return errors.Errorf("unexpected status %d: %s", status, strings.TrimSpace(string(body)))
	}

	if env.Error.Constraint != nil {
		return env.Error.Constraint
	}

	code, err := apperrors.NewCode(env.Error.Code)
	if err != nil {
		code = apperrors.CommonInternal
	}
	e := apperrors.New(code, env.Error.Message, nil)
	for k, v := range env.Error.Context {
		e.AddContext(k, v)
	}
	return e.AddContext("status", fmt.Sprint(status))
}

func resourcePath(resource string, parts ...string) string {
	p := "/api/v1/resources/" + url.PathEscape(resource)
	for _, part := range parts {
		p += "/" + url.PathEscape(part)
	}
	return p
}
