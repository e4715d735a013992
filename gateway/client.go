package gateway

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

	"snap2sell/globals"
	"snap2sell/mq"
	"snap2sell/ratelim"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"
)

const refreshPath = "/auth/refresh"

// maxResponseBytes caps how much of a response body is buffered.
const maxResponseBytes = 32 << 20

// Options configures a Client. Zero values fall back to sensible defaults.
type Options struct {
	BaseURL    string
	Timeout    time.Duration
	HTTPClient *http.Client
	Limiter    *ratelim.RateLimiter
	Bus        *mq.Bus
	Logger     logrus.FieldLogger
}

// Client is the single channel to the backend. It attaches the bearer token, and on a 401
// refreshes the access token once (shared by every request that hit the 401 together) and
// replays the original request once.
type Client struct {
	baseURL string
	http    *http.Client
	tokens  TokenStore
	limiter *ratelim.RateLimiter
	bus     *mq.Bus
	log     logrus.FieldLogger
	flight  singleflight.Group
}

func New(opts Options, tokens TokenStore) *Client {
	hc := opts.HTTPClient
	if hc == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = 15 * time.Second
		}
		hc = &http.Client{Timeout: timeout}
	}
	log := opts.Logger
	if log == nil {
		l := logrus.New()
		l.SetOutput(io.Discard)
		log = l
	}
	return &Client{
		baseURL: strings.TrimRight(opts.BaseURL, "/"),
		http:    hc,
		tokens:  tokens,
		limiter: opts.Limiter,
		bus:     opts.Bus,
		log:     log,
	}
}

// BaseURL returns the API root every path is resolved against.
func (c *Client) BaseURL() string { return c.baseURL }

// Request describes one API call. Body is JSON-encoded unless Raw is set, in which case Raw is
// sent verbatim with ContentType.
type Request struct {
	Method      string
	Path        string
	Query       url.Values
	Body        any
	Raw         []byte
	ContentType string
	Header      http.Header

	// Anonymous requests carry no bearer token and never trigger a refresh (login, signup).
	Anonymous bool
}

// Response is a buffered 2xx response.
type Response struct {
	Status int
	Header http.Header
	Body   []byte
}

// Decode unmarshals the response body into out.
func (r *Response) Decode(out any) error {
	if out == nil || len(bytes.TrimSpace(r.Body)) == 0 {
		return nil
	}
	if err := json.Unmarshal(r.Body, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// Do sends req. Non-2xx responses come back as *APIError.
func (c *Client) Do(ctx context.Context, req *Request) (*Response, error) {
	payload, contentType, err := encodeBody(req)
	if err != nil {
		return nil, err
	}

	for attempt := 0; ; attempt++ {
		token := ""
		if !req.Anonymous && c.tokens != nil {
			token = c.tokens.AccessToken(ctx)
		}

		resp, err := c.send(ctx, req, payload, contentType, token)
		if err != nil {
			return nil, err
		}
		if resp.Status >= 200 && resp.Status < 300 {
			return resp, nil
		}

		apiErr := newAPIError(resp.Status, resp.Body)
		if resp.Status != http.StatusUnauthorized || attempt > 0 || req.Anonymous || c.tokens == nil {
			return nil, apiErr
		}

		if err := c.reauthorize(ctx, token); err != nil {
			if errors.Is(err, errNoSession) {
				return nil, apiErr
			}
			apiErr.Err = err
			return nil, apiErr
		}
		c.log.WithField("path", req.Path).Debug("replaying request after token refresh")
	}
}

// DoJSON sends req and decodes a successful body into out.
func (c *Client) DoJSON(ctx context.Context, req *Request, out any) error {
	resp, err := c.Do(ctx, req)
	if err != nil {
		return err
	}
	return resp.Decode(out)
}

func (c *Client) Get(ctx context.Context, path string, query url.Values, out any) error {
	return c.DoJSON(ctx, &Request{Method: http.MethodGet, Path: path, Query: query}, out)
}

func (c *Client) Post(ctx context.Context, path string, body, out any) error {
	return c.DoJSON(ctx, &Request{Method: http.MethodPost, Path: path, Body: body}, out)
}

func (c *Client) Put(ctx context.Context, path string, body, out any) error {
	return c.DoJSON(ctx, &Request{Method: http.MethodPut, Path: path, Body: body}, out)
}

func (c *Client) Patch(ctx context.Context, path string, body, out any) error {
	return c.DoJSON(ctx, &Request{Method: http.MethodPatch, Path: path, Body: body}, out)
}

func (c *Client) Delete(ctx context.Context, path string, out any) error {
	return c.DoJSON(ctx, &Request{Method: http.MethodDelete, Path: path}, out)
}

var errNoSession = errors.New("no session to refresh")

// reauthorize gets a usable access token after a 401 on a request sent with used. The token is
// re-read inside the flight, so a refresh that completed meanwhile is reused and never repeated.
func (c *Client) reauthorize(ctx context.Context, used string) error {
	_, err, shared := c.flight.Do("refresh", func() (any, error) {
		return nil, c.refreshIfStale(context.WithoutCancel(ctx), used)
	})
	if shared {
		c.log.Debug("joined in-flight token refresh")
	}
	return err
}

func (c *Client) refreshIfStale(ctx context.Context, used string) error {
	current := c.tokens.AccessToken(ctx)
	switch {
	case current != "" && current != used:
		// another request already refreshed; just replay
		return nil
	case current == "" && used != "":
		// a concurrent refresh already failed and ended the session
		return ErrSessionExpired
	case used == "" && c.tokens.RefreshToken(ctx) == "":
		return errNoSession
	}
	_, err := c.refresh(ctx)
	return err
}

// refresh exchanges the refresh token for a new access token. On failure both tokens are
// cleared and the session-lost event is emitted; singleflight makes that happen once for
// every request waiting on this refresh.
func (c *Client) refresh(ctx context.Context) (string, error) {
	timeout := c.http.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	access, err := c.exchange(ctx)
	if err != nil {
		c.log.WithError(err).Warn("token refresh failed, ending session")
		if clearErr := c.tokens.ClearTokens(ctx); clearErr != nil {
			c.log.WithError(clearErr).Error("failed to clear tokens")
		}
		c.bus.Emit(ctx, globals.EventSessionLost, nil)
		return "", fmt.Errorf("%w: %v", ErrSessionExpired, err)
	}
	if err := c.tokens.SetAccessToken(ctx, access); err != nil {
		return "", fmt.Errorf("store refreshed token: %w", err)
	}
	c.log.Debug("access token refreshed")
	return access, nil
}

func (c *Client) exchange(ctx context.Context) (string, error) {
	refreshToken := c.tokens.RefreshToken(ctx)
	if refreshToken == "" {
		return "", errors.New("no refresh token")
	}
	resp, err := c.send(ctx, &Request{Method: http.MethodPost, Path: refreshPath}, []byte("{}"), "application/json", refreshToken)
	if err != nil {
		return "", err
	}
	if resp.Status < 200 || resp.Status >= 300 {
		return "", newAPIError(resp.Status, resp.Body)
	}
	var body struct {
		AccessToken string `json:"access_token"`
	}
	if err := resp.Decode(&body); err != nil {
		return "", err
	}
	if body.AccessToken == "" {
		return "", errors.New("refresh response carried no access token")
	}
	return body.AccessToken, nil
}

func (c *Client) send(ctx context.Context, req *Request, payload []byte, contentType, token string) (*Response, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx, resourceOf(req.Path)); err != nil {
			return nil, err
		}
	}

	var body io.Reader
	if payload != nil {
		body = bytes.NewReader(payload)
	}
	method := req.Method
	if method == "" {
		method = http.MethodGet
	}
	httpReq, err := http.NewRequestWithContext(ctx, method, c.url(req.Path, req.Query), body)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	for k, vs := range req.Header {
		for _, v := range vs {
			httpReq.Header.Add(k, v)
		}
	}
	httpReq.Header.Set("Accept", "application/json")
	if contentType != "" {
		httpReq.Header.Set("Content-Type", contentType)
	}
	if token != "" {
		httpReq.Header.Set("Authorization", "Bearer "+token)
	}

	start := time.Now()
	httpResp, err := c.http.Do(httpReq)
	if err != nil {
		c.log.WithError(err).WithField("path", req.Path).Warn("request failed")
		return nil, fmt.Errorf("%s %s: %w", method, req.Path, err)
	}
	defer httpResp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(httpResp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	c.log.WithFields(logrus.Fields{
		"method":   method,
		"path":     req.Path,
		"status":   httpResp.StatusCode,
		"duration": time.Since(start),
	}).Debug("api call")

	return &Response{Status: httpResp.StatusCode, Header: httpResp.Header, Body: raw}, nil
}

func (c *Client) url(path string, query url.Values) string {
	u := c.baseURL + "/" + strings.TrimLeft(path, "/")
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	return u
}

func encodeBody(req *Request) ([]byte, string, error) {
	if req.Raw != nil {
		return req.Raw, req.ContentType, nil
	}
	if req.Body == nil {
		return nil, "", nil
	}
	raw, err := json.Marshal(req.Body)
	if err != nil {
		return nil, "", fmt.Errorf("encode request body: %w", err)
	}
	return raw, "application/json", nil
}

// resourceOf maps "/products/42/reviews" to "products".
func resourceOf(path string) string {
	path = strings.TrimLeft(path, "/")
	if i := strings.IndexByte(path, '/'); i >= 0 {
		path = path[:i]
	}
	if i := strings.IndexByte(path, '?'); i >= 0 {
		path = path[:i]
	}
	return path
}
