package http

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/go-retryablehttp"
	"golang.org/x/sync/singleflight"

	"github.com/oreanmos/copepod-go/internal/auth"
	"github.com/oreanmos/copepod-go/internal/constants"
	"github.com/oreanmos/copepod-go/internal/metrics"
	"github.com/oreanmos/copepod-go/pkg/copepod"
)

const (
	proactiveRefreshKey = "refresh:proactive"
	explicitRefreshKey  = "refresh:explicit"
)

// Request describes one call. Body is JSON-encoded; RawBody is sent as is with ContentType.
type Request struct {
	Method      string
	Path        string
	Query       url.Values
	Body        interface{}
	RawBody     []byte
	ContentType string
	Headers     map[string]string
	// Unauthenticated skips the refresh step and the Authorization header.
	Unauthenticated bool
	// ErrorFallback replaces the default message of a failed response without one.
	ErrorFallback string
}

// Response is a fully read response.
type Response struct {
	StatusCode int
	Headers    http.Header
	Body       []byte
}

// Client is the authenticated request pipeline.
type Client struct {
	baseURL       *url.URL
	httpClient    *retryablehttp.Client
	streamClient  *http.Client
	store         *auth.TokenStore
	logger        copepod.Logger
	debug         bool
	userAgent     string
	autoRefresh   bool
	expiryFromJWT bool
	persister     copepod.TokenPersister
	metrics       *metrics.Metrics
	interceptors  *copepod.InterceptorChain
	refreshGroup  singleflight.Group
}

// Option configures the client.
type Option func(*Client)

// WithLogger sets the logger.
func WithLogger(logger copepod.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithDebug enables request/response logging.
func WithDebug(debug bool) Option {
	return func(c *Client) {
		c.debug = debug
	}
}

// WithRetryConfig sets retry behavior. retryMax 0 means a single attempt.
func WithRetryConfig(retryMax int, waitMin, waitMax time.Duration) Option {
	return func(c *Client) {
		c.httpClient.RetryMax = retryMax
		if waitMin > 0 {
			c.httpClient.RetryWaitMin = waitMin
		}

		if waitMax > 0 {
			c.httpClient.RetryWaitMax = waitMax
		}
	}
}

// WithUserAgent sets the User-Agent header.
func WithUserAgent(userAgent string) Option {
	return func(c *Client) {
		if userAgent != "" {
			c.userAgent = userAgent
		}
	}
}

// WithAutoRefresh toggles the proactive refresh step. It is on by default.
func WithAutoRefresh(enabled bool) Option {
	return func(c *Client) {
		c.autoRefresh = enabled
	}
}

// WithExpiryFromJWT makes stored pairs take their expiry from the access token's exp claim.
func WithExpiryFromJWT(enabled bool) Option {
	return func(c *Client) {
		c.expiryFromJWT = enabled
	}
}

// WithHTTPClient replaces the underlying HTTP client. Event streams use a copy
// without the overall timeout.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client == nil {
			return
		}

		c.httpClient.HTTPClient = client

		stream := *client
		stream.Timeout = 0
		c.streamClient = &stream
	}
}

// WithPersister sets the token persister.
func WithPersister(persister copepod.TokenPersister) Option {
	return func(c *Client) {
		c.persister = persister
	}
}

// WithMetrics sets the metrics sink.
func WithMetrics(m *metrics.Metrics) Option {
	return func(c *Client) {
		c.metrics = m
	}
}

// WithInterceptors sets the interceptor chain run around dispatch.
func WithInterceptors(chain *copepod.InterceptorChain) Option {
	return func(c *Client) {
		c.interceptors = chain
	}
}

// NewClient creates a pipeline for baseURL. A nil store starts empty.
func NewClient(baseURL string, store *auth.TokenStore, opts ...Option) (*Client, error) {
	parsed, err := parseBaseURL(baseURL)
	if err != nil {
		return nil, err
	}

	if store == nil {
		store = auth.NewTokenStore()
	}

	retryClient := retryablehttp.NewClient()
	retryClient.RetryMax = constants.DefaultRetryMax
	retryClient.RetryWaitMin = constants.DefaultRetryWaitMin
	retryClient.RetryWaitMax = constants.DefaultRetryWaitMax
	// Hand non-2xx responses back untouched once retries are exhausted.
	retryClient.ErrorHandler = retryablehttp.PassthroughErrorHandler

	client := &Client{
		baseURL:      parsed,
		httpClient:   retryClient,
		streamClient: &http.Client{},
		store:        store,
		logger:       copepod.NewNopLogger(),
		userAgent:    constants.DefaultUserAgent,
		autoRefresh:  true,
		persister:    auth.NewNoopPersister(),
	}

	for _, opt := range opts {
		opt(client)
	}

	retryClient.Logger = &leveledLogger{logger: client.logger}

	return client, nil
}

// Store returns the credential store.
func (c *Client) Store() *auth.TokenStore {
	return c.store
}

// Logger returns the configured logger.
func (c *Client) Logger() copepod.Logger {
	return c.logger
}

// Metrics returns the metrics sink, which may be nil.
func (c *Client) Metrics() *metrics.Metrics {
	return c.metrics
}

// Do runs one call through the pipeline: proactive refresh, build, bearer attach,
// dispatch, normalize. Every error is a *copepod.Error. A failed response is
// returned together with its error.
func (c *Client) Do(ctx context.Context, req *Request) (*Response, error) {
	if !req.Unauthenticated {
		err := c.ensureFresh(ctx)
		if err != nil {
			return nil, err
		}
	}

	httpReq, view, err := c.buildRequest(ctx, req)
	if err != nil {
		return nil, err
	}

	return c.dispatch(ctx, httpReq, view, req.ErrorFallback)
}

// Get performs a GET request.
func (c *Client) Get(ctx context.Context, path string, query url.Values) (*Response, error) {
	return c.Do(ctx, &Request{Method: http.MethodGet, Path: path, Query: query})
}

// Post performs a POST request with a JSON body.
func (c *Client) Post(ctx context.Context, path string, body interface{}) (*Response, error) {
	return c.Do(ctx, &Request{Method: http.MethodPost, Path: path, Body: body})
}

// Put performs a PUT request with a JSON body.
func (c *Client) Put(ctx context.Context, path string, body interface{}) (*Response, error) {
	return c.Do(ctx, &Request{Method: http.MethodPut, Path: path, Body: body})
}

// Patch performs a PATCH request with a JSON body.
func (c *Client) Patch(ctx context.Context, path string, body interface{}) (*Response, error) {
	return c.Do(ctx, &Request{Method: http.MethodPatch, Path: path, Body: body})
}

// Delete performs a DELETE request.
func (c *Client) Delete(ctx context.Context, path string) (*Response, error) {
	return c.Do(ctx, &Request{Method: http.MethodDelete, Path: path})
}

// PostRaw performs a POST request with a pre-encoded body.
func (c *Client) PostRaw(ctx context.Context, path string, body []byte, contentType string) (*Response, error) {
	return c.Do(ctx, &Request{Method: http.MethodPost, Path: path, RawBody: body, ContentType: contentType})
}

// Refresh exchanges the stored refresh token for a new pair regardless of expiry.
func (c *Client) Refresh(ctx context.Context) (*copepod.AuthResponse, error) {
	result, err := c.sharedRefresh(ctx, explicitRefreshKey, func(refreshCtx context.Context) (interface{}, error) {
		return c.doRefresh(refreshCtx)
	})
	if err != nil {
		return nil, err //nolint:wrapcheck // already normalized
	}

	authResp, _ := result.(*copepod.AuthResponse)

	return authResp, nil
}

// StoreTokens replaces the stored pair with a freshly issued one and persists it.
func (c *Client) StoreTokens(ctx context.Context, token, refreshToken string) copepod.TokenPair {
	pair := copepod.TokenPair{Token: token, RefreshToken: refreshToken}

	if c.expiryFromJWT {
		expiresAt, err := auth.ExpiryFromJWT(token)
		if err != nil {
			c.logger.Debug("Token expiry not derived", map[string]interface{}{"error": err.Error()})
		} else {
			pair.ExpiresAt = expiresAt
		}
	}

	c.store.Set(pair)

	err := c.persister.SaveTokens(ctx, pair)
	if err != nil {
		c.logger.Warn("Failed to persist tokens", map[string]interface{}{"error": err.Error()})
	}

	return pair
}

// ClearTokens empties the store and the persister.
func (c *Client) ClearTokens(ctx context.Context) {
	c.store.Clear()

	err := c.persister.ClearTokens(ctx)
	if err != nil {
		c.logger.Warn("Failed to clear persisted tokens", map[string]interface{}{"error": err.Error()})
	}
}

func (c *Client) ensureFresh(ctx context.Context) error {
	if !c.autoRefresh || !c.store.NeedsRefresh() {
		return nil
	}

	_, err := c.sharedRefresh(ctx, proactiveRefreshKey, func(refreshCtx context.Context) (interface{}, error) {
		// A caller queued behind a finished refresh finds nothing left to do.
		if !c.store.NeedsRefresh() {
			return nil, nil
		}

		return c.doRefresh(refreshCtx)
	})

	return err
}

// sharedRefresh runs fn once for all concurrent callers of key. The shared call is
// detached from any single caller's cancellation; each caller stops waiting when its
// own ctx is done.
func (c *Client) sharedRefresh(ctx context.Context, key string, fn func(context.Context) (interface{}, error)) (interface{}, error) {
	refreshCtx := context.WithoutCancel(ctx)

	results := c.refreshGroup.DoChan(key, func() (interface{}, error) {
		return fn(refreshCtx)
	})

	select {
	case <-ctx.Done():
		return nil, copepod.NewTransportError(ctx.Err())
	case result := <-results:
		return result.Val, result.Err //nolint:wrapcheck // already normalized
	}
}

func (c *Client) doRefresh(ctx context.Context) (*copepod.AuthResponse, error) {
	pair := c.store.Get()
	if pair == nil {
		return nil, copepod.NewAuthError("no credential to refresh")
	}

	if pair.RefreshToken == "" {
		return nil, copepod.NewAuthError("no refresh token available")
	}

	resp, err := c.Do(ctx, &Request{
		Method:          http.MethodPost,
		Path:            constants.PathAuthRefresh,
		Body:            map[string]string{"refresh_token": pair.RefreshToken},
		Unauthenticated: true,
		ErrorFallback:   constants.RefreshFailedMessage,
	})
	if err != nil {
		c.metrics.ObserveRefresh(false)
		c.logger.Warn("Token refresh failed", map[string]interface{}{"error": err.Error()})

		return nil, err
	}

	var authResp copepod.AuthResponse

	err = json.Unmarshal(resp.Body, &authResp)
	if err != nil {
		c.metrics.ObserveRefresh(false)

		return nil, copepod.NewDecodeError(err)
	}

	// The stored pair stays as it was when the reply lacks either token.
	err = authResp.CheckTokens()
	if err != nil {
		c.metrics.ObserveRefresh(false)
		c.logger.Warn("Token refresh failed", map[string]interface{}{"error": err.Error()})

		return nil, err //nolint:wrapcheck // already normalized
	}

	c.metrics.ObserveRefresh(true)
	c.StoreTokens(ctx, authResp.Token, authResp.RefreshToken)
	c.logger.Debug("Token refreshed", map[string]interface{}{"user_id": authResp.User.ID})

	return &authResp, nil
}

func (c *Client) buildRequest(ctx context.Context, req *Request) (*retryablehttp.Request, *copepod.Request, error) {
	target, err := c.resolve(req.Path, req.Query)
	if err != nil {
		return nil, nil, copepod.NewTransportError(err)
	}

	body := req.RawBody
	contentType := req.ContentType

	if body == nil && req.Body != nil {
		body, err = json.Marshal(req.Body)
		if err != nil {
			return nil, nil, copepod.NewTransportError(fmt.Errorf("encoding request body: %w", err))
		}

		contentType = "application/json"
	}

	var payload interface{}
	if body != nil {
		payload = body
	}

	httpReq, err := retryablehttp.NewRequestWithContext(ctx, req.Method, target.String(), payload)
	if err != nil {
		return nil, nil, copepod.NewTransportError(err)
	}

	requestID := uuid.NewString()

	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set("User-Agent", c.userAgent)
	httpReq.Header.Set(constants.HeaderRequestID, requestID)

	if contentType != "" {
		httpReq.Header.Set("Content-Type", contentType)
	}

	for key, value := range req.Headers {
		httpReq.Header.Set(key, value)
	}

	// Read after any refresh so the call carries the newest token.
	if !req.Unauthenticated {
		if pair := c.store.Get(); pair != nil && pair.Token != "" {
			httpReq.Header.Set("Authorization", "Bearer "+pair.Token)
		}
	}

	view := &copepod.Request{
		Method:    req.Method,
		Path:      req.Path,
		RequestID: requestID,
		Headers:   httpReq.Header,
		Body:      body,
		Metadata:  map[string]interface{}{copepod.MetadataStartTime: time.Now()},
	}

	err = c.interceptors.BeforeSend(ctx, view)
	if err != nil {
		return nil, nil, copepod.NewRejectedError(err)
	}

	if view.Headers != nil {
		httpReq.Header = view.Headers
	}

	return httpReq, view, nil
}

func (c *Client) dispatch(ctx context.Context, httpReq *retryablehttp.Request, view *copepod.Request, fallback string) (*Response, error) {
	start := time.Now()

	if c.debug {
		c.logger.Debug("HTTP Request", map[string]interface{}{
			"method":     view.Method,
			"path":       view.Path,
			"request_id": view.RequestID,
		})
	}

	httpResp, err := c.httpClient.Do(httpReq)
	if err != nil {
		normalized := copepod.NewTransportError(err)
		c.metrics.ObserveRequest(view.Method, 0, time.Since(start))
		c.afterResponse(ctx, view, &copepod.Response{Error: normalized})

		return nil, normalized
	}

	defer func() { _ = httpResp.Body.Close() }()

	body, err := io.ReadAll(httpResp.Body)
	if err != nil {
		normalized := copepod.NewTransportError(fmt.Errorf("reading response body: %w", err))
		c.metrics.ObserveRequest(view.Method, 0, time.Since(start))
		c.afterResponse(ctx, view, &copepod.Response{StatusCode: httpResp.StatusCode, Headers: httpResp.Header, Error: normalized})

		return nil, normalized
	}

	elapsed := time.Since(start)
	c.metrics.ObserveRequest(view.Method, httpResp.StatusCode, elapsed)

	resp := &Response{
		StatusCode: httpResp.StatusCode,
		Headers:    httpResp.Header,
		Body:       body,
	}

	var callErr *copepod.Error
	if !IsSuccess(resp.StatusCode) {
		callErr = copepod.ParseAPIError(resp.StatusCode, body, fallback)
	}

	if c.debug {
		c.logger.Debug("HTTP Response", map[string]interface{}{
			"method":      view.Method,
			"path":        view.Path,
			"request_id":  view.RequestID,
			"status_code": resp.StatusCode,
			"duration":    elapsed.String(),
		})
	}

	viewResp := &copepod.Response{StatusCode: resp.StatusCode, Headers: resp.Headers, Body: body}
	if callErr != nil {
		viewResp.Error = callErr
	}

	c.afterResponse(ctx, view, viewResp)

	if callErr != nil {
		return resp, callErr
	}

	return resp, nil
}

func (c *Client) afterResponse(ctx context.Context, view *copepod.Request, resp *copepod.Response) {
	err := c.interceptors.AfterReceive(ctx, view, resp)
	if err != nil {
		c.logger.Warn("Response interceptor failed", map[string]interface{}{
			"path":  view.Path,
			"error": err.Error(),
		})
	}
}

func (c *Client) resolve(path string, query url.Values) (*url.URL, error) {
	ref, err := url.Parse(path)
	if err != nil {
		return nil, fmt.Errorf("parsing request path %q: %w", path, err)
	}

	target := c.baseURL.ResolveReference(ref)
	if len(query) > 0 {
		target.RawQuery = query.Encode()
	}

	return target, nil
}

// IsSuccess reports whether status is in the 2xx range.
func IsSuccess(status int) bool {
	return status >= http.StatusOK && status < http.StatusMultipleChoices
}

func parseBaseURL(raw string) (*url.URL, error) {
	parsed, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", copepod.ErrInvalidBaseURL, err)
	}

	if parsed.Scheme == "" || parsed.Host == "" {
		return nil, fmt.Errorf("%w: %q must be absolute", copepod.ErrInvalidBaseURL, raw)
	}

	if !strings.HasSuffix(parsed.Path, "/") {
		parsed.Path += "/"
	}

	return parsed, nil
}
