package flarebypass

import (
	"bytes"
	"context"
	"io"
	"net/url"

	http "github.com/bogdanfinn/fhttp"
	tls_client "github.com/bogdanfinn/tls-client"
	"github.com/google/uuid"
)

// Logger is the minimal logging surface the client needs.
type Logger interface {
	Log(format string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Log(string, ...any) {}

// defaultMaxTries bounds how often a call re-attempts after solving a
// challenge before giving up.
const defaultMaxTries = 2

// Client is an HTTP client that detects anti-bot interstitial pages,
// delegates solving to an external solver service, and retries the original
// request with the solved session identity applied.
//
// A Client is meant to be driven by one caller at a time: every solve
// mutates the shared session identity, so concurrent callers must either
// serialize externally or use separate instances.
type Client struct {
	solver   *Solver
	logger   Logger
	proxy    string
	maxTries int
	profile  *BrowserProfile

	transport tls_client.HttpClient
	session   *Session
}

// Option configures a Client at construction time.
type Option func(*Client)

// WithProxy routes the main transport through proxyURL and forwards the same
// spec to the solver in every solve request.
func WithProxy(proxyURL string) Option {
	return func(c *Client) { c.proxy = proxyURL }
}

// WithLogger installs a logger for per-attempt request logging.
func WithLogger(logger Logger) Option {
	return func(c *Client) { c.logger = logger }
}

// WithMaxTries overrides the challenge retry budget.
func WithMaxTries(n int) Option {
	return func(c *Client) { c.maxTries = n }
}

// WithProfile selects the browser profile whose user-agent and TLS
// fingerprint the session starts with.
func WithProfile(profile *BrowserProfile) Option {
	return func(c *Client) { c.profile = profile }
}

// NewClient creates a client that hands challenges to the solver at
// solverURL. The connection scope is opened lazily on the first request, or
// explicitly via Open.
func NewClient(solverURL string, opts ...Option) *Client {
	c := &Client{
		solver:   NewSolver(solverURL),
		logger:   noopLogger{},
		maxTries: defaultMaxTries,
		profile:  DefaultProfile,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Open starts a fresh connection scope: any previously opened pool is
// discarded, and session identity resets to the profile default with an
// empty cookie record.
func (c *Client) Open() error {
	if c.transport != nil {
		c.transport.CloseIdleConnections()
	}

	transport, err := NewTransport(nil, c.proxy, c.profile.TLSProfile)
	if err != nil {
		return err
	}

	c.transport = transport
	c.session = newSession(transport, c.profile.UserAgent)
	return nil
}

// Close releases the connection pool. The session identity does not survive
// the scope.
func (c *Client) Close() {
	if c.transport == nil {
		return
	}
	c.transport.CloseIdleConnections()
	c.transport = nil
	c.session = nil
}

// Transport exposes the underlying pooled transport of the open scope.
func (c *Client) Transport() tls_client.HttpClient {
	return c.transport
}

// Session exposes the current session identity of the open scope.
func (c *Client) Session() *Session {
	return c.session
}

func (c *Client) ensureOpen() error {
	if c.transport != nil {
		return nil
	}
	return c.Open()
}

// Response is the terminal result of a call, body fully read and
// decompressed.
type Response struct {
	StatusCode int
	Status     string
	Header     http.Header
	Cookies    []*http.Cookie
	Body       []byte
}

func (r *Response) Text() string {
	return string(r.Body)
}

// RequestOptions carries per-call overrides.
type RequestOptions struct {
	// Headers are caller-supplied request headers. The session identity
	// wins on conflicts: user-agent and cache-control always come from the
	// session.
	Headers http.Header

	// SolveURL is the URL handed to the solver when a challenge is
	// detected, for endpoints that must be solved against a different page
	// than the one being fetched. Defaults to the request URL.
	SolveURL string
}

// Get fetches rawURL, transparently solving interstitial challenges.
func (c *Client) Get(ctx context.Context, rawURL string, opts *RequestOptions) (*Response, error) {
	return c.request(ctx, http.MethodGet, rawURL, "", nil, opts)
}

// Post sends body to rawURL, transparently solving interstitial challenges.
// The body is buffered up front so a post-solve retry can replay it.
func (c *Client) Post(ctx context.Context, rawURL, contentType string, body io.Reader, opts *RequestOptions) (*Response, error) {
	var buffered []byte
	if body != nil {
		var err error
		buffered, err = io.ReadAll(body)
		if err != nil {
			return nil, err
		}
	}
	return c.request(ctx, http.MethodPost, rawURL, contentType, buffered, opts)
}

// callState enumerates the per-call state machine. Keeping the states
// explicit makes attempt counting and the two suspension points (transport
// send, solver call) auditable.
type callState int

const (
	stateAttempt callState = iota
	stateClassify
	stateSolve
	stateDone
	stateFailed
)

func (c *Client) request(ctx context.Context, method, rawURL, contentType string, body []byte, opts *RequestOptions) (*Response, error) {
	if err := c.ensureOpen(); err != nil {
		return nil, err
	}

	target, err := url.Parse(rawURL)
	if err != nil {
		return nil, err
	}

	if opts == nil {
		opts = &RequestOptions{}
	}
	solveURL := opts.SolveURL
	if solveURL == "" {
		solveURL = rawURL
	}

	callID := uuid.New().String()[:8]

	var (
		resp    *Response
		failure error
		tries   int
	)

	state := stateAttempt
	for {
		switch state {
		case stateAttempt:
			if tries >= c.maxTries {
				failure = &RetriesExceededError{MaxTries: c.maxTries}
				state = stateFailed
				continue
			}
			tries++

			resp, err = c.send(ctx, callID, method, target, contentType, body, opts.Headers)
			if err != nil {
				// Transport failures are not ours to interpret.
				return nil, err
			}
			state = stateClassify

		case stateClassify:
			switch Classify(resp.StatusCode, resp.Header.Get("Content-Type"), resp.Text()) {
			case ClassHardBlock:
				failure = &BlockedError{URL: rawURL}
				state = stateFailed
			case ClassChallenge:
				state = stateSolve
			default:
				// ClassOK and ClassUnrelated403 are both terminal
				// successes for this layer.
				state = stateDone
			}

		case stateSolve:
			c.logger.Log("[%s] challenge on %s, solving against %s (try %d/%d)", callID, rawURL, solveURL, tries, c.maxTries)
			solution, err := c.solver.Solve(ctx, solveURL, c.session.SnapshotCookies(), c.proxy)
			if err != nil {
				return nil, err
			}
			if err := c.session.ApplySolution(solveURL, solution.UserAgent, solution.Cookies); err != nil {
				return nil, err
			}
			state = stateAttempt

		case stateDone:
			return resp, nil

		case stateFailed:
			return nil, failure
		}
	}
}

// send performs one attempt through the main transport with the current
// session identity merged over caller headers.
func (c *Client) send(ctx context.Context, callID, method string, target *url.URL, contentType string, body []byte, base http.Header) (*Response, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, target.String(), reader)
	if err != nil {
		return nil, err
	}

	req.Header = c.session.RequestHeaders(base)
	if contentType != "" && req.Header.Get("Content-Type") == "" {
		req.Header.Set("Content-Type", contentType)
	}
	if _, ok := req.Header[http.PHeaderOrderKey]; !ok {
		req.Header[http.PHeaderOrderKey] = PseudoHeaderOrder
	}

	resp, err := c.transport.Do(req)
	if err != nil {
		c.logger.Log("[%s] %s %s -> error: %v", callID, method, target.Path, err)
		return nil, err
	}
	defer resp.Body.Close()

	c.logger.Log("[%s] %s %s -> %d", callID, method, target.Path, resp.StatusCode)

	bodyBytes, err := readResponseBody(resp)
	if err != nil {
		return nil, err
	}

	cookies := resp.Cookies()
	c.session.observeCookies(target, cookies)

	return &Response{
		StatusCode: resp.StatusCode,
		Status:     resp.Status,
		Header:     resp.Header,
		Cookies:    cookies,
		Body:       bodyBytes,
	}, nil
}
