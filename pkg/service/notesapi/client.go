package notesapi

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/medinotes/pkg/domain/interfaces"
	"github.com/secmon-lab/medinotes/pkg/utils/logging"
	"github.com/secmon-lab/medinotes/pkg/utils/safe"
)

const (
	defaultTimeout = 60 * time.Second

	// maxResponseSize bounds every response body read from the backend
	maxResponseSize = 16 << 20
)

// Client talks JSON over HTTP to the notes backend
type Client struct {
	baseURL    *url.URL
	httpClient *http.Client
	timeout    time.Duration
	routes     Routes
	strictIDs  bool
	now        func() time.Time
}

var _ interfaces.NotesBackend = (*Client)(nil)

// Option is a functional option for Client
type Option func(*Client)

// WithHTTPClient replaces the HTTP client
func WithHTTPClient(c *http.Client) Option {
	return func(client *Client) {
		client.httpClient = c
	}
}

// WithTimeout sets the per-request timeout
func WithTimeout(d time.Duration) Option {
	return func(client *Client) {
		client.timeout = d
	}
}

// WithRoutes overrides backend routes. Empty fields keep their default.
func WithRoutes(r Routes) Option {
	return func(client *Client) {
		client.routes = r.merge(DefaultRoutes())
	}
}

// WithStrictIDs makes a boolean note ID from the backend an error instead of
// replacing it with a temporary ID
func WithStrictIDs(strict bool) Option {
	return func(client *Client) {
		client.strictIDs = strict
	}
}

// New creates a backend client for baseURL
func New(baseURL string, opts ...Option) (*Client, error) {
	if baseURL == "" {
		return nil, goerr.New("backend URL is required")
	}
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, goerr.Wrap(err, "invalid backend URL", goerr.V("url", baseURL))
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, goerr.New("backend URL must be http or https", goerr.V("url", baseURL))
	}

	c := &Client{
		baseURL:    u,
		httpClient: http.DefaultClient,
		timeout:    defaultTimeout,
		routes:     DefaultRoutes(),
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

func (c *Client) endpoint(route string, query url.Values) string {
	u := *c.baseURL
	u.Path = strings.TrimSuffix(u.Path, "/") + "/" + strings.TrimPrefix(route, "/")
	if len(query) > 0 {
		u.RawQuery = query.Encode()
	}
	return u.String()
}

// response is the raw outcome of a backend call
type response struct {
	route  string
	status int
	body   []byte
}

func (r *response) ok() bool {
	return r.status >= 200 && r.status < 300
}

// rejected builds ErrBackendRejected carrying the backend's message when it sent one
func (r *response) rejected() error {
	var env envelope
	msg := strings.TrimSpace(string(r.body))
	if err := json.Unmarshal(r.body, &env); err == nil && env.Message != "" {
		msg = env.Message
	}
	return goerr.Wrap(ErrBackendRejected, msg,
		goerr.V(RouteKey, r.route),
		goerr.V(StatusCodeKey, r.status),
		goerr.V(MessageKey, msg),
	)
}

func (c *Client) postJSON(ctx context.Context, route string, payload any) (*response, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to encode request", goerr.V(RouteKey, route))
	}
	return c.do(ctx, http.MethodPost, route, nil, "application/json", bytes.NewReader(body))
}

func (c *Client) get(ctx context.Context, route string, query url.Values) (*response, error) {
	return c.do(ctx, http.MethodGet, route, query, "", nil)
}

func (c *Client) do(ctx context.Context, method, route string, query url.Values, contentType string, body io.Reader) (*response, error) {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, method, c.endpoint(route, query), body)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create request", goerr.V(RouteKey, route))
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	req.Header.Set("Accept", "application/json")

	started := c.now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to call notes backend", goerr.V(RouteKey, route))
	}
	defer safe.Close(ctx, resp.Body)

	data, err := safe.ReadAll(resp.Body, maxResponseSize)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to read response", goerr.V(RouteKey, route))
	}

	logging.From(ctx).Debug("notes backend call",
		slog.String("method", method),
		slog.String("route", route),
		slog.Int("status", resp.StatusCode),
		slog.Duration("duration", c.now().Sub(started)),
	)

	return &response{route: route, status: resp.StatusCode, body: data}, nil
}

func decode(r *response, v any) error {
	if err := json.Unmarshal(r.body, v); err != nil {
		return goerr.Wrap(err, "failed to parse backend response",
			goerr.V(RouteKey, r.route),
			goerr.V(StatusCodeKey, r.status),
		)
	}
	return nil
}
