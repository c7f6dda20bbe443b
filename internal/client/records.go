package client

import (
	"context"
	"fmt"

	"github.com/oreanmos/copepod-go/internal/constants"
	internalhttp "github.com/oreanmos/copepod-go/internal/http"
	"github.com/oreanmos/copepod-go/pkg/copepod"
)

// RecordsClient implements copepod.RecordsClient.
type RecordsClient struct {
	httpClient *internalhttp.Client
}

// NewRecordsClient creates a new records client.
func NewRecordsClient(httpClient *internalhttp.Client) *RecordsClient {
	return &RecordsClient{
		httpClient: httpClient,
	}
}

// List implements copepod.RecordsClient.List.
func (c *RecordsClient) List(ctx context.Context, orgID, appID, collection string, params *copepod.RecordQueryParams) (*copepod.ListResult[copepod.Record], error) {
	path := buildPath(constants.RecordsPathFormat, orgID, appID, collection)

	resp, err := c.httpClient.Get(ctx, path, params.ToValues())
	if err != nil {
		return nil, fmt.Errorf("listing records: %w", err)
	}

	return decodeResponse[copepod.ListResult[copepod.Record]](resp, "records list")
}

// Get implements copepod.RecordsClient.Get. Only Expand and Fields of params apply.
func (c *RecordsClient) Get(ctx context.Context, orgID, appID, collection, recordID string, params *copepod.RecordQueryParams) (copepod.Record, error) {
	path := joinPath(buildPath(constants.RecordsPathFormat, orgID, appID, collection), recordID)

	var query *copepod.RecordQueryParams
	if params != nil {
		query = &copepod.RecordQueryParams{Expand: params.Expand, Fields: params.Fields}
	}

	resp, err := c.httpClient.Get(ctx, path, query.ToValues())
	if err != nil {
		return nil, fmt.Errorf("getting record: %w", err)
	}

	record, err := decodeResponse[copepod.Record](resp, "record")
	if err != nil {
		return nil, err
	}

	return *record, nil
}

// Create implements copepod.RecordsClient.Create.
func (c *RecordsClient) Create(ctx context.Context, orgID, appID, collection string, data interface{}) (copepod.Record, error) {
	resp, err := c.httpClient.Post(ctx, buildPath(constants.RecordsPathFormat, orgID, appID, collection), data)
	if err != nil {
		return nil, fmt.Errorf("creating record: %w", err)
	}

	record, err := decodeResponse[copepod.Record](resp, "record response")
	if err != nil {
		return nil, err
	}

	return *record, nil
}

// Update implements copepod.RecordsClient.Update.
func (c *RecordsClient) Update(ctx context.Context, orgID, appID, collection, recordID string, data interface{}) (copepod.Record, error) {
	path := joinPath(buildPath(constants.RecordsPathFormat, orgID, appID, collection), recordID)

	resp, err := c.httpClient.Patch(ctx, path, data)
	if err != nil {
		return nil, fmt.Errorf("updating record: %w", err)
	}

	record, err := decodeResponse[copepod.Record](resp, "record response")
	if err != nil {
		return nil, err
	}

	return *record, nil
}

// Delete implements copepod.RecordsClient.Delete.
func (c *RecordsClient) Delete(ctx context.Context, orgID, appID, collection, recordID string) error {
	path := joinPath(buildPath(constants.RecordsPathFormat, orgID, appID, collection), recordID)

	_, err := c.httpClient.Delete(ctx, path)
	if err != nil {
		return fmt.Errorf("deleting record: %w", err)
	}

	return nil
}
