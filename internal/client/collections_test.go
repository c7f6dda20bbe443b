package client_test

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oreanmos/copepod-go/internal/client"
	"github.com/oreanmos/copepod-go/pkg/copepod"
)

func collectionPayload() map[string]interface{} {
	return map[string]interface{}{
		"id":              "c1",
		"name":            "posts",
		"collection_type": "base",
		"app_id":          "a1",
		"fields": []interface{}{
			map[string]interface{}{"name": "title", "type": "text", "required": true, "unique": false},
			map[string]interface{}{"name": "cover", "type": "file", "required": false, "unique": false, "options": map[string]interface{}{"max_size": 1048576}},
		},
		"indexes": []interface{}{"CREATE INDEX idx_title ON posts (title)"},
		"created": "2024-05-01T10:00:00Z",
		"updated": "2024-05-01T10:00:00Z",
	}
}

func TestCollectionsClient_Get(t *testing.T) {
	t.Parallel()

	server := client.NewJSONServer(t, client.ExpectedRequest{Method: http.MethodGet, Path: "/api/orgs/o1/apps/a1/collections/c1"},
		http.StatusOK, collectionPayload())

	collection, err := client.NewTestClient(t, server.URL).Collections().Get(context.Background(), "o1", "a1", "c1")
	require.NoError(t, err)
	assert.Equal(t, "posts", collection.Name)
	require.NotNil(t, collection.Type)
	assert.Equal(t, "base", *collection.Type)
	require.Len(t, collection.Fields, 2)
	assert.True(t, collection.Fields[0].Required)
	assert.JSONEq(t, `{"max_size":1048576}`, string(collection.Fields[1].Options))
	assert.Len(t, collection.Indexes, 1)
}

func TestCollectionsClient_Operations(t *testing.T) {
	t.Parallel()

	renamed := "articles"

	tests := []struct {
		name     string
		expected client.ExpectedRequest
		status   int
		response interface{}
		call     func(ctx context.Context, collections copepod.CollectionsClient) error
	}{
		{
			name:     "list",
			expected: client.ExpectedRequest{Method: http.MethodGet, Path: "/api/orgs/o1/apps/a1/collections"},
			status:   http.StatusOK,
			response: map[string]interface{}{"page": 1, "per_page": 50, "total_items": 1, "total_pages": 1, "items": []interface{}{collectionPayload()}},
			call: func(ctx context.Context, collections copepod.CollectionsClient) error {
				list, err := collections.List(ctx, "o1", "a1")
				if err == nil {
					assert.Equal(t, "posts", list.Items[0].Name)
				}

				return err
			},
		},
		{
			name: "create",
			expected: client.ExpectedRequest{
				Method: http.MethodPost,
				Path:   "/api/orgs/o1/apps/a1/collections",
				Body: map[string]interface{}{
					"name":   "posts",
					"fields": []interface{}{map[string]interface{}{"name": "title", "type": "text", "required": true, "unique": false}},
				},
			},
			status:   http.StatusCreated,
			response: collectionPayload(),
			call: func(ctx context.Context, collections copepod.CollectionsClient) error {
				_, err := collections.Create(ctx, "o1", "a1", &copepod.CollectionCreateRequest{
					Name:   "posts",
					Fields: []copepod.CollectionField{{Name: "title", Type: "text", Required: true}},
				})

				return err
			},
		},
		{
			name: "update",
			expected: client.ExpectedRequest{
				Method: http.MethodPatch,
				Path:   "/api/orgs/o1/apps/a1/collections/c1",
				Body:   map[string]interface{}{"name": "articles"},
			},
			status:   http.StatusOK,
			response: collectionPayload(),
			call: func(ctx context.Context, collections copepod.CollectionsClient) error {
				_, err := collections.Update(ctx, "o1", "a1", "c1", &copepod.CollectionUpdateRequest{Name: &renamed})

				return err
			},
		},
		{
			name:     "delete",
			expected: client.ExpectedRequest{Method: http.MethodDelete, Path: "/api/orgs/o1/apps/a1/collections/c1"},
			status:   http.StatusNoContent,
			call: func(ctx context.Context, collections copepod.CollectionsClient) error {
				return collections.Delete(ctx, "o1", "a1", "c1")
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			server := client.NewJSONServer(t, tt.expected, tt.status, tt.response)

			err := tt.call(context.Background(), client.NewTestClient(t, server.URL).Collections())
			require.NoError(t, err)
		})
	}
}
