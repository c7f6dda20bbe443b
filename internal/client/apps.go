package client

import (
	"context"
	"fmt"

	"github.com/oreanmos/copepod-go/internal/constants"
	internalhttp "github.com/oreanmos/copepod-go/internal/http"
	"github.com/oreanmos/copepod-go/pkg/copepod"
)

// apiKeysSegment is appended to an app path.
const apiKeysSegment = "api-keys"

// AppsClient implements copepod.AppsClient.
type AppsClient struct {
	httpClient *internalhttp.Client
}

// NewAppsClient creates a new apps client.
func NewAppsClient(httpClient *internalhttp.Client) *AppsClient {
	return &AppsClient{
		httpClient: httpClient,
	}
}

func appPath(orgID, appID string) string {
	return joinPath(buildPath(constants.AppsPathFormat, orgID), appID)
}

// List implements copepod.AppsClient.List.
func (c *AppsClient) List(ctx context.Context, orgID string) (*copepod.ListResult[copepod.App], error) {
	resp, err := c.httpClient.Get(ctx, buildPath(constants.AppsPathFormat, orgID), nil)
	if err != nil {
		return nil, fmt.Errorf("listing apps: %w", err)
	}

	return decodeResponse[copepod.ListResult[copepod.App]](resp, "apps list")
}

// Get implements copepod.AppsClient.Get.
func (c *AppsClient) Get(ctx context.Context, orgID, appID string) (*copepod.App, error) {
	resp, err := c.httpClient.Get(ctx, appPath(orgID, appID), nil)
	if err != nil {
		return nil, fmt.Errorf("getting app: %w", err)
	}

	return decodeResponse[copepod.App](resp, "app")
}

// Create implements copepod.AppsClient.Create.
func (c *AppsClient) Create(ctx context.Context, orgID string, request *copepod.AppCreateRequest) (*copepod.App, error) {
	resp, err := c.httpClient.Post(ctx, buildPath(constants.AppsPathFormat, orgID), request)
	if err != nil {
		return nil, fmt.Errorf("creating app: %w", err)
	}

	return decodeResponse[copepod.App](resp, "app response")
}

// Update implements copepod.AppsClient.Update.
func (c *AppsClient) Update(ctx context.Context, orgID, appID string, request *copepod.AppUpdateRequest) (*copepod.App, error) {
	resp, err := c.httpClient.Patch(ctx, appPath(orgID, appID), request)
	if err != nil {
		return nil, fmt.Errorf("updating app: %w", err)
	}

	return decodeResponse[copepod.App](resp, "app response")
}

// Delete implements copepod.AppsClient.Delete.
func (c *AppsClient) Delete(ctx context.Context, orgID, appID string) error {
	_, err := c.httpClient.Delete(ctx, appPath(orgID, appID))
	if err != nil {
		return fmt.Errorf("deleting app: %w", err)
	}

	return nil
}

// ListAPIKeys implements copepod.AppsClient.ListAPIKeys.
func (c *AppsClient) ListAPIKeys(ctx context.Context, orgID, appID string) (*copepod.ListResult[copepod.APIKey], error) {
	resp, err := c.httpClient.Get(ctx, appPath(orgID, appID)+"/"+apiKeysSegment, nil)
	if err != nil {
		return nil, fmt.Errorf("listing api keys: %w", err)
	}

	return decodeResponse[copepod.ListResult[copepod.APIKey]](resp, "api keys list")
}

// CreateAPIKey implements copepod.AppsClient.CreateAPIKey. The returned key's secret
// is only available in this response.
func (c *AppsClient) CreateAPIKey(ctx context.Context, orgID, appID string, request *copepod.APIKeyCreateRequest) (*copepod.APIKey, error) {
	resp, err := c.httpClient.Post(ctx, appPath(orgID, appID)+"/"+apiKeysSegment, request)
	if err != nil {
		return nil, fmt.Errorf("creating api key: %w", err)
	}

	return decodeResponse[copepod.APIKey](resp, "api key")
}

// RevokeAPIKey implements copepod.AppsClient.RevokeAPIKey.
func (c *AppsClient) RevokeAPIKey(ctx context.Context, orgID, appID, keyID string) error {
	path := joinPath(appPath(orgID, appID)+"/"+apiKeysSegment, keyID)

	_, err := c.httpClient.Delete(ctx, path)
	if err != nil {
		return fmt.Errorf("revoking api key: %w", err)
	}

	return nil
}
