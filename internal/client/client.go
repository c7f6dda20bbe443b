package client

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/oreanmos/copepod-go/internal/auth"
	"github.com/oreanmos/copepod-go/internal/constants"
	internalhttp "github.com/oreanmos/copepod-go/internal/http"
	"github.com/oreanmos/copepod-go/internal/metrics"
	"github.com/oreanmos/copepod-go/pkg/copepod"
)

// Client implements the copepod.Client interface.
type Client struct {
	httpClient *internalhttp.Client
	persister  copepod.TokenPersister
	logger     copepod.Logger

	// Resource clients
	auth        *AuthClient
	orgs        *OrgsClient
	apps        *AppsClient
	collections *CollectionsClient
	records     *RecordsClient
	files       *FilesClient
	realtime    *RealtimeClient
}

// New creates a Copepod client from config. config.APIEndpoint must already be an
// absolute URL. When Email and Password are set the client logs in before returning.
func New(ctx context.Context, config *copepod.Config) (*Client, error) {
	if config == nil {
		return nil, copepod.ErrConfigRequired
	}

	persister, err := createPersister(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("creating token persister: %w", err)
	}

	store, err := createTokenStore(ctx, config, persister)
	if err != nil {
		closePersister(persister)

		return nil, err
	}

	httpOpts, err := createHTTPClientOptions(config, persister)
	if err != nil {
		closePersister(persister)

		return nil, err
	}

	httpClient, err := internalhttp.NewClient(config.APIEndpoint, store, httpOpts...)
	if err != nil {
		closePersister(persister)

		return nil, fmt.Errorf("creating http client: %w", err)
	}

	client := NewWithHTTPClient(httpClient)
	client.persister = persister

	if config.Email != "" && config.Password != "" {
		_, err = client.auth.Login(ctx, config.Email, config.Password)
		if err != nil {
			closePersister(persister)

			return nil, fmt.Errorf("logging in as %s: %w", config.Email, err)
		}
	}

	return client, nil
}

// NewWithHTTPClient wires the resource clients around an existing pipeline.
func NewWithHTTPClient(httpClient *internalhttp.Client) *Client {
	client := &Client{
		httpClient: httpClient,
		logger:     httpClient.Logger(),
	}

	client.initializeResourceClients()

	return client
}

func (c *Client) initializeResourceClients() {
	c.auth = NewAuthClient(c.httpClient)
	c.orgs = NewOrgsClient(c.httpClient)
	c.apps = NewAppsClient(c.httpClient)
	c.collections = NewCollectionsClient(c.httpClient)
	c.records = NewRecordsClient(c.httpClient)
	c.files = NewFilesClient(c.httpClient)
	c.realtime = NewRealtimeClient(c.httpClient)
}

// createPersister returns the configured persister, building one from
// config.Persistence when no instance was supplied.
func createPersister(ctx context.Context, config *copepod.Config) (copepod.TokenPersister, error) {
	if config.Persister != nil {
		return config.Persister, nil
	}

	persister, err := auth.NewPersisterFromConfig(ctx, config.Persistence)
	if err != nil {
		return nil, fmt.Errorf("building persister: %w", err)
	}

	return persister, nil
}

// createTokenStore seeds the store from the configured pair, or from the persister
// when no access token was given.
func createTokenStore(ctx context.Context, config *copepod.Config, persister copepod.TokenPersister) (*auth.TokenStore, error) {
	if config.AccessToken != "" {
		return auth.NewTokenStoreWithPair(copepod.TokenPair{
			Token:        config.AccessToken,
			RefreshToken: config.RefreshToken,
			ExpiresAt:    config.TokenExpiresAt,
		}), nil
	}

	pair, err := persister.LoadTokens(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading persisted tokens: %w", err)
	}

	if pair != nil {
		return auth.NewTokenStoreWithPair(*pair), nil
	}

	return auth.NewTokenStore(), nil
}

// createHTTPClientOptions builds HTTP client options from config.
func createHTTPClientOptions(config *copepod.Config, persister copepod.TokenPersister) ([]internalhttp.Option, error) {
	httpOpts := []internalhttp.Option{
		internalhttp.WithPersister(persister),
		internalhttp.WithAutoRefresh(!config.DisableAutoRefresh),
		internalhttp.WithExpiryFromJWT(config.ExpiryFromJWT),
	}

	if config.Logger != nil {
		httpOpts = append(httpOpts, internalhttp.WithLogger(config.Logger))
	}

	if config.Debug {
		httpOpts = append(httpOpts, internalhttp.WithDebug(true))
	}

	if config.UserAgent != "" {
		httpOpts = append(httpOpts, internalhttp.WithUserAgent(config.UserAgent))
	}

	if config.HTTPClient != nil || config.HTTPTimeout > 0 {
		base := &http.Client{}
		if config.HTTPClient != nil {
			copied := *config.HTTPClient
			base = &copied
		}

		if config.HTTPTimeout > 0 {
			base.Timeout = config.HTTPTimeout
		}

		httpOpts = append(httpOpts, internalhttp.WithHTTPClient(base))
	}

	if config.RetryMax > 0 {
		retryWaitMin := constants.DefaultRetryWaitMin
		retryWaitMax := constants.DefaultRetryWaitMax

		if config.RetryWaitMin > 0 {
			retryWaitMin = config.RetryWaitMin
		}

		if config.RetryWaitMax > 0 {
			retryWaitMax = config.RetryWaitMax
		}

		httpOpts = append(httpOpts, internalhttp.WithRetryConfig(config.RetryMax, retryWaitMin, retryWaitMax))
	}

	if config.MetricsRegisterer != nil {
		m, err := metrics.New(config.MetricsRegisterer)
		if err != nil {
			return nil, fmt.Errorf("registering metrics: %w", err)
		}

		httpOpts = append(httpOpts, internalhttp.WithMetrics(m))
	}

	chain := copepod.NewInterceptorChain(config.RequestInterceptors, config.ResponseInterceptors)
	if chain != nil {
		httpOpts = append(httpOpts, internalhttp.WithInterceptors(chain))
	}

	return httpOpts, nil
}

func closePersister(persister copepod.TokenPersister) {
	if closer, ok := persister.(io.Closer); ok {
		_ = closer.Close()
	}
}

// Auth implements copepod.Client.Auth.
func (c *Client) Auth() copepod.AuthClient {
	return c.auth
}

// Orgs implements copepod.Client.Orgs.
func (c *Client) Orgs() copepod.OrgsClient {
	return c.orgs
}

// Apps implements copepod.Client.Apps.
func (c *Client) Apps() copepod.AppsClient {
	return c.apps
}

// Collections implements copepod.Client.Collections.
func (c *Client) Collections() copepod.CollectionsClient {
	return c.collections
}

// Records implements copepod.Client.Records.
func (c *Client) Records() copepod.RecordsClient {
	return c.records
}

// Files implements copepod.Client.Files.
func (c *Client) Files() copepod.FilesClient {
	return c.files
}

// Realtime implements copepod.Client.Realtime.
func (c *Client) Realtime() copepod.RealtimeClient {
	return c.realtime
}

// Credentials implements copepod.Client.Credentials.
func (c *Client) Credentials() copepod.CredentialStore {
	return c.httpClient.Store()
}

// Close implements copepod.Client.Close.
func (c *Client) Close() error {
	if closer, ok := c.persister.(io.Closer); ok {
		err := closer.Close()
		if err != nil {
			return fmt.Errorf("closing token persister: %w", err)
		}
	}

	return nil
}

// buildPath joins escaped segments onto a format such as constants.AppsPathFormat.
func buildPath(format string, segments ...string) string {
	escaped := make([]interface{}, len(segments))
	for i, segment := range segments {
		escaped[i] = url.PathEscape(segment)
	}

	return fmt.Sprintf(format, escaped...)
}

// joinPath appends escaped segments to a base path.
func joinPath(base string, segments ...string) string {
	parts := make([]string, 0, len(segments)+1)
	parts = append(parts, strings.TrimSuffix(base, "/"))

	for _, segment := range segments {
		parts = append(parts, url.PathEscape(segment))
	}

	return strings.Join(parts, "/")
}

// decodeResponse unmarshals a response body, reporting failures as decode errors.
func decodeResponse[T any](resp *internalhttp.Response, what string) (*T, error) {
	var result T

	err := json.Unmarshal(resp.Body, &result)
	if err != nil {
		return nil, copepod.NewDecodeError(fmt.Errorf("parsing %s: %w", what, err))
	}

	return &result, nil
}
