package client

import (
	"context"
	"fmt"

	"github.com/oreanmos/copepod-go/internal/constants"
	internalhttp "github.com/oreanmos/copepod-go/internal/http"
	"github.com/oreanmos/copepod-go/pkg/copepod"
)

// CollectionsClient implements copepod.CollectionsClient.
type CollectionsClient struct {
	httpClient *internalhttp.Client
}

// NewCollectionsClient creates a new collections client.
func NewCollectionsClient(httpClient *internalhttp.Client) *CollectionsClient {
	return &CollectionsClient{
		httpClient: httpClient,
	}
}

// List implements copepod.CollectionsClient.List.
func (c *CollectionsClient) List(ctx context.Context, orgID, appID string) (*copepod.ListResult[copepod.Collection], error) {
	resp, err := c.httpClient.Get(ctx, buildPath(constants.CollectionsPathFormat, orgID, appID), nil)
	if err != nil {
		return nil, fmt.Errorf("listing collections: %w", err)
	}

	return decodeResponse[copepod.ListResult[copepod.Collection]](resp, "collections list")
}

// Get implements copepod.CollectionsClient.Get.
func (c *CollectionsClient) Get(ctx context.Context, orgID, appID, collectionID string) (*copepod.Collection, error) {
	path := joinPath(buildPath(constants.CollectionsPathFormat, orgID, appID), collectionID)

	resp, err := c.httpClient.Get(ctx, path, nil)
	if err != nil {
		return nil, fmt.Errorf("getting collection: %w", err)
	}

	return decodeResponse[copepod.Collection](resp, "collection")
}

// Create implements copepod.CollectionsClient.Create.
func (c *CollectionsClient) Create(ctx context.Context, orgID, appID string, request *copepod.CollectionCreateRequest) (*copepod.Collection, error) {
	resp, err := c.httpClient.Post(ctx, buildPath(constants.CollectionsPathFormat, orgID, appID), request)
	if err != nil {
		return nil, fmt.Errorf("creating collection: %w", err)
	}

	return decodeResponse[copepod.Collection](resp, "collection response")
}

// Update implements copepod.CollectionsClient.Update.
func (c *CollectionsClient) Update(ctx context.Context, orgID, appID, collectionID string, request *copepod.CollectionUpdateRequest) (*copepod.Collection, error) {
	path := joinPath(buildPath(constants.CollectionsPathFormat, orgID, appID), collectionID)

	resp, err := c.httpClient.Patch(ctx, path, request)
	if err != nil {
		return nil, fmt.Errorf("updating collection: %w", err)
	}

	return decodeResponse[copepod.Collection](resp, "collection response")
}

// Delete implements copepod.CollectionsClient.Delete.
func (c *CollectionsClient) Delete(ctx context.Context, orgID, appID, collectionID string) error {
	path := joinPath(buildPath(constants.CollectionsPathFormat, orgID, appID), collectionID)

	_, err := c.httpClient.Delete(ctx, path)
	if err != nil {
		return fmt.Errorf("deleting collection: %w", err)
	}

	return nil
}
