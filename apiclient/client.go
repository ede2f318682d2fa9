package apiclient

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
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jrsteele09/distritherm-admin/internal/config"
	"github.com/jrsteele09/distritherm-admin/internal/metrics"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/oauth2"
	"golang.org/x/time/rate"
)

const (
	HeaderPlatform  = "X-Platform"
	HeaderRequestID = "X-Request-ID"

	contentTypeJSON = "application/json"
	maxBodySize     = 32 << 20
)

// TokenStore is the session the client authenticates with. session.Manager implements it.
type TokenStore interface {
	AccessToken() string
	RefreshToken() string
	SetTokens(ctx context.Context, accessToken, refreshToken string) error
	Clear(ctx context.Context) error
}

// Navigator tells the client where the user currently is and takes them to the login
// screen when the session cannot be recovered.
type Navigator interface {
	CurrentPath() string
	RedirectToLogin()
}

// Tokens is the result of a successful refresh. RefreshToken is empty when the server
// does not rotate it.
type Tokens struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken,omitempty"`
}

// RefreshFunc exchanges a refresh token for a new access token.
type RefreshFunc func(ctx context.Context, refreshToken string) (*Tokens, error)

// Client issues authenticated requests against the Distritherm API. One Client is
// shared by every service; its refresh state is process wide.
type Client struct {
	baseURL       *url.URL
	httpClient    *http.Client
	platform      string
	loginPath     string
	timeout       time.Duration
	uploadTimeout time.Duration
	tokens        TokenStore
	navigator     Navigator
	refresher     RefreshFunc
	limiter       *rate.Limiter
	metrics       *metrics.ClientMetrics
	logger        zerolog.Logger

	mu         sync.Mutex
	refreshing bool
	waiters    []chan refreshResult
}

type refreshResult struct {
	token string
	err   error
}

// Option configures optional Client behaviour.
type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

func WithNavigator(n Navigator) Option {
	return func(c *Client) {
		c.navigator = n
	}
}

// WithRefresher replaces the default call to POST /auth/refresh-token.
func WithRefresher(fn RefreshFunc) Option {
	return func(c *Client) {
		c.refresher = fn
	}
}

// WithRateLimit caps outbound requests per second. Zero or less disables the limit.
func WithRateLimit(perSecond float64) Option {
	return func(c *Client) {
		if perSecond <= 0 {
			c.limiter = nil
			return
		}
		c.limiter = rate.NewLimiter(rate.Limit(perSecond), 1)
	}
}

func WithMetrics(m *metrics.ClientMetrics) Option {
	return func(c *Client) {
		c.metrics = m
	}
}

func WithLogger(l zerolog.Logger) Option {
	return func(c *Client) {
		c.logger = l
	}
}

// New creates a Client for the configured API. tokens is required.
func New(cfg config.APIConfig, tokens TokenStore, options ...Option) (*Client, error) {
	if cfg == nil {
		return nil, errors.New("[apiclient.New] config is required")
	}
	if tokens == nil {
		return nil, errors.New("[apiclient.New] token store is required")
	}
	base, err := url.Parse(strings.TrimRight(cfg.GetBaseURL(), "/"))
	if err != nil {
		return nil, fmt.Errorf("[apiclient.New] invalid base url: %w", err)
	}

	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, fmt.Errorf("[apiclient.New] cookie jar: %w", err)
	}

	c := &Client{
		baseURL:       base,
		httpClient:    &http.Client{Jar: jar},
		platform:      cfg.GetPlatform(),
		loginPath:     cfg.GetLoginPath(),
		timeout:       cfg.GetRequestTimeout(),
		uploadTimeout: cfg.GetUploadTimeout(),
		tokens:        tokens,
		navigator:     NewPathNavigator(cfg.GetLoginPath(), "/"),
		logger:        log.Logger,
	}
	c.refresher = c.refreshAccessToken

	WithRateLimit(cfg.GetRateLimit())(c)
	for _, opt := range options {
		opt(c)
	}
	return c, nil
}

func (c *Client) Navigator() Navigator {
	return c.navigator
}

func (c *Client) UploadTimeout() time.Duration {
	return c.uploadTimeout
}

// Request describes one API call. Body is JSON encoded unless RawBody is set.
type Request struct {
	Method      string
	Path        string
	Query       url.Values
	Body        any
	RawBody     []byte
	ContentType string
	Header      http.Header
	Timeout     time.Duration

	// SkipAuthRefresh sends the request once and returns its failure as is. Used for
	// login and for the refresh call itself.
	SkipAuthRefresh bool

	retried bool
}

// Response is a buffered 2xx response.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

// Decode unmarshals the JSON body into v.
func (r *Response) Decode(v any) error {
	if len(bytes.TrimSpace(r.Body)) == 0 {
		return nil
	}
	if err := json.Unmarshal(r.Body, v); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	return nil
}

// Do sends req. A 401 on a request made with a token triggers one refresh and one
// retry; concurrent 401s wait for the refresh already in flight.
func (c *Client) Do(ctx context.Context, req *Request) (*Response, error) {
	body, contentType, err := req.encode()
	if err != nil {
		return nil, err
	}

	sentWith := c.tokens.AccessToken()
	resp, err := c.send(ctx, req, body, contentType, sentWith)
	if err == nil {
		return resp, nil
	}
	if req.SkipAuthRefresh || StatusCode(err) != http.StatusUnauthorized {
		return nil, err
	}
	return c.recoverUnauthorized(ctx, req, body, contentType, sentWith, err)
}

func (c *Client) recoverUnauthorized(ctx context.Context, req *Request, body []byte, contentType, sentWith string, cause error) (*Response, error) {
	current := c.tokens.AccessToken()
	switch {
	case current == "":
		// Nothing to refresh.
		return nil, cause
	case req.retried:
		return nil, cause
	case c.onLoginPage():
		return nil, cause
	}

	token, err := c.awaitRefresh(ctx, sentWith)
	if err != nil {
		return nil, err
	}

	retry := *req
	retry.retried = true
	c.metrics.IncRetry()
	return c.send(ctx, &retry, body, contentType, token)
}

func (c *Client) onLoginPage() bool {
	if c.navigator == nil {
		return false
	}
	path := c.navigator.CurrentPath()
	return path == c.loginPath || strings.HasPrefix(path, c.loginPath+"/")
}

// awaitRefresh joins the refresh in flight, or starts one. When the token already
// moved on from sentWith it is returned without refreshing again.
func (c *Client) awaitRefresh(ctx context.Context, sentWith string) (string, error) {
	c.mu.Lock()
	if c.refreshing {
		ch := make(chan refreshResult, 1)
		c.waiters = append(c.waiters, ch)
		c.mu.Unlock()
		c.metrics.IncQueued()

		select {
		case res := <-ch:
			return res.token, res.err
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	if current := c.tokens.AccessToken(); sentWith != "" && current != "" && current != sentWith {
		c.mu.Unlock()
		return current, nil
	}
	c.refreshing = true
	c.mu.Unlock()

	return c.refresh(ctx)
}

// Refresh forces a token refresh, joining one already in flight.
func (c *Client) Refresh(ctx context.Context) error {
	if c.tokens.AccessToken() == "" {
		return ErrUnauthenticated
	}
	_, err := c.awaitRefresh(ctx, "")
	return err
}

func (c *Client) refresh(ctx context.Context) (token string, err error) {
	defer func() {
		c.mu.Lock()
		waiters := c.waiters
		c.waiters = nil
		c.refreshing = false
		c.mu.Unlock()

		for _, w := range waiters {
			w <- refreshResult{token: token, err: err}
		}
	}()

	// The refresh outlives the request that triggered it; other requests wait on it.
	refreshCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.timeout)
	defer cancel()

	tokens, refreshErr := c.refresher(refreshCtx, c.tokens.RefreshToken())
	if refreshErr == nil && (tokens == nil || tokens.AccessToken == "") {
		refreshErr = errors.New("refresh response carried no access token")
	}
	if refreshErr != nil {
		c.metrics.IncRefresh(false)
		c.logger.Warn().Err(refreshErr).Msg("Token refresh failed, ending session")
		c.endSession(refreshCtx)
		return "", fmt.Errorf("%w: %w", ErrRefreshFailed, refreshErr)
	}

	if err := c.tokens.SetTokens(refreshCtx, tokens.AccessToken, tokens.RefreshToken); err != nil {
		c.logger.Err(err).Msg("Failed to persist refreshed token")
	}
	c.metrics.IncRefresh(true)
	c.logger.Debug().Msg("Access token refreshed")
	return tokens.AccessToken, nil
}

func (c *Client) endSession(ctx context.Context) {
	if err := c.tokens.Clear(ctx); err != nil {
		c.logger.Err(err).Msg("Failed to clear session")
	}
	if c.navigator != nil && !c.onLoginPage() {
		c.navigator.RedirectToLogin()
	}
}

// Reset drops the refresh state. Suspended requests fail with ErrClientReset.
func (c *Client) Reset() {
	c.mu.Lock()
	waiters := c.waiters
	c.waiters = nil
	c.refreshing = false
	c.mu.Unlock()

	for _, w := range waiters {
		w <- refreshResult{err: ErrClientReset}
	}
}

// refreshAccessToken calls POST /auth/refresh-token. The refresh token travels as the
// refresh_token cookie when the login response set one, and as a query parameter.
func (c *Client) refreshAccessToken(ctx context.Context, refreshToken string) (*Tokens, error) {
	req := &Request{
		Method:          http.MethodPost,
		Path:            "/auth/refresh-token",
		SkipAuthRefresh: true,
	}
	if refreshToken != "" {
		req.Query = url.Values{"refresh_token": {refreshToken}}
	}
	resp, err := c.Do(ctx, req)
	if err != nil {
		return nil, err
	}
	var tokens Tokens
	if err := resp.Decode(&tokens); err != nil {
		return nil, err
	}
	return &tokens, nil
}

func (r *Request) encode() ([]byte, string, error) {
	if r.RawBody != nil {
		return r.RawBody, r.ContentType, nil
	}
	if r.Body == nil {
		return nil, "", nil
	}
	b, err := json.Marshal(r.Body)
	if err != nil {
		return nil, "", fmt.Errorf("[apiclient] encoding %s %s body: %w", r.Method, r.Path, err)
	}
	return b, contentTypeJSON, nil
}

func (c *Client) url(path string, query url.Values) string {
	u := *c.baseURL
	u.Path = strings.TrimRight(u.Path, "/") + "/" + strings.TrimLeft(path, "/")
	if len(query) > 0 {
		u.RawQuery = query.Encode()
	}
	return u.String()
}

func (c *Client) send(ctx context.Context, req *Request, body []byte, contentType, accessToken string) (*Response, error) {
	timeout := req.Timeout
	if timeout <= 0 {
		timeout = c.timeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, &TransportError{Method: req.Method, Path: req.Path, Err: err}
		}
	}

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	httpReq, err := http.NewRequestWithContext(ctx, req.Method, c.url(req.Path, req.Query), reader)
	if err != nil {
		return nil, fmt.Errorf("[apiclient] building %s %s: %w", req.Method, req.Path, err)
	}
	for k, values := range req.Header {
		for _, v := range values {
			httpReq.Header.Add(k, v)
		}
	}
	if contentType != "" {
		httpReq.Header.Set("Content-Type", contentType)
	}
	httpReq.Header.Set("Accept", contentTypeJSON)
	if c.platform != "" {
		httpReq.Header.Set(HeaderPlatform, c.platform)
	}
	requestID := uuid.NewString()
	httpReq.Header.Set(HeaderRequestID, requestID)
	if accessToken != "" {
		(&oauth2.Token{AccessToken: accessToken, TokenType: "Bearer"}).SetAuthHeader(httpReq)
	}

	start := time.Now()
	httpResp, err := c.httpClient.Do(httpReq)
	if err != nil {
		c.metrics.ObserveRequest(req.Method, 0, time.Since(start))
		c.logger.Debug().Err(err).Str("method", req.Method).Str("path", req.Path).Str("request_id", requestID).Msg("API request failed")
		return nil, &TransportError{Method: req.Method, Path: req.Path, Err: err}
	}
	defer httpResp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(httpResp.Body, maxBodySize))
	c.metrics.ObserveRequest(req.Method, httpResp.StatusCode, time.Since(start))
	c.logger.Debug().
		Str("method", req.Method).
		Str("path", req.Path).
		Int("status", httpResp.StatusCode).
		Str("request_id", requestID).
		Dur("elapsed", time.Since(start)).
		Msg("API request")
	if err != nil {
		return nil, &TransportError{Method: req.Method, Path: req.Path, Err: err}
	}

	if httpResp.StatusCode < 200 || httpResp.StatusCode > 299 {
		return nil, &APIError{
			Status:  httpResp.StatusCode,
			Message: serverMessage(respBody),
			Method:  req.Method,
			Path:    req.Path,
			Body:    respBody,
		}
	}
	return &Response{StatusCode: httpResp.StatusCode, Header: httpResp.Header, Body: respBody}, nil
}

// Get issues GET path?query and decodes the body into out when out is not nil.
func (c *Client) Get(ctx context.Context, path string, query url.Values, out any) error {
	return c.call(ctx, &Request{Method: http.MethodGet, Path: path, Query: query}, out)
}

func (c *Client) Post(ctx context.Context, path string, body, out any) error {
	return c.call(ctx, &Request{Method: http.MethodPost, Path: path, Body: body}, out)
}

func (c *Client) Put(ctx context.Context, path string, body, out any) error {
	return c.call(ctx, &Request{Method: http.MethodPut, Path: path, Body: body}, out)
}

func (c *Client) Delete(ctx context.Context, path string, out any) error {
	return c.call(ctx, &Request{Method: http.MethodDelete, Path: path}, out)
}

func (c *Client) call(ctx context.Context, req *Request, out any) error {
	resp, err := c.Do(ctx, req)
	if err != nil {
		return err
	}
	if out == nil {
		return nil
	}
	return resp.Decode(out)
}
