package client

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oreanmos/copepod-go/internal/auth"
	internalhttp "github.com/oreanmos/copepod-go/internal/http"
	"github.com/oreanmos/copepod-go/pkg/copepod"
)

// TestAccessToken is the bearer seeded into clients built by NewTestClient.
const TestAccessToken = "test-token"

// NewTestClient creates a client for baseURL holding a non-expiring TestAccessToken.
func NewTestClient(t *testing.T, baseURL string, opts ...internalhttp.Option) *Client {
	t.Helper()

	store := auth.NewTokenStoreWithPair(copepod.TokenPair{Token: TestAccessToken, RefreshToken: "test-refresh"})

	httpClient, err := internalhttp.NewClient(baseURL, store, opts...)
	require.NoError(t, err)

	return NewWithHTTPClient(httpClient)
}

// ExpectedRequest describes what a test server should receive.
type ExpectedRequest struct {
	Method string
	Path   string
	// Body, when set, is compared with the decoded JSON request body.
	Body map[string]interface{}
}

// NewJSONServer serves one canned JSON response after checking the request.
func NewJSONServer(t *testing.T, expected ExpectedRequest, status int, response interface{}) *httptest.Server {
	t.Helper()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, expected.Method, r.Method)
		assert.Equal(t, expected.Path, r.URL.EscapedPath())
		assert.Equal(t, "Bearer "+TestAccessToken, r.Header.Get("Authorization"))

		if expected.Body != nil {
			var body map[string]interface{}

			assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			assert.Equal(t, expected.Body, body)
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)

		if response != nil {
			_ = json.NewEncoder(w).Encode(response)
		}
	}))
	t.Cleanup(server.Close)

	return server
}
