package http_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oreanmos/copepod-go/internal/auth"
	"github.com/oreanmos/copepod-go/internal/constants"
	copepodhttp "github.com/oreanmos/copepod-go/internal/http"
	"github.com/oreanmos/copepod-go/internal/metrics"
	"github.com/oreanmos/copepod-go/pkg/copepod"
)

// MockLogger for testing.
type MockLogger struct {
	mu   sync.Mutex
	logs []map[string]interface{}
}

func (l *MockLogger) record(level, msg string, fields map[string]interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.logs = append(l.logs, map[string]interface{}{"level": level, "msg": msg, "fields": fields})
}

func (l *MockLogger) Debug(msg string, fields map[string]interface{}) {
	l.record("debug", msg, fields)
}

func (l *MockLogger) Info(msg string, fields map[string]interface{}) {
	l.record("info", msg, fields)
}

func (l *MockLogger) Warn(msg string, fields map[string]interface{}) {
	l.record("warn", msg, fields)
}

func (l *MockLogger) Error(msg string, fields map[string]interface{}) {
	l.record("error", msg, fields)
}

// Messages returns the logged messages in order.
func (l *MockLogger) Messages() []string {
	l.mu.Lock()
	defer l.mu.Unlock()

	messages := make([]string, 0, len(l.logs))
	for _, entry := range l.logs {
		messages = append(messages, entry["msg"].(string))
	}

	return messages
}

type recordingPersister struct {
	mu     sync.Mutex
	saved  []copepod.TokenPair
	clears int
}

func (p *recordingPersister) SaveTokens(_ context.Context, pair copepod.TokenPair) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.saved = append(p.saved, pair)

	return nil
}

func (p *recordingPersister) LoadTokens(_ context.Context) (*copepod.TokenPair, error) {
	return nil, nil
}

func (p *recordingPersister) ClearTokens(_ context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.clears++

	return nil
}

func expiringIn(d time.Duration) *time.Time {
	at := time.Now().Add(d)

	return &at
}

func newClient(t *testing.T, serverURL string, pair *copepod.TokenPair, opts ...copepodhttp.Option) *copepodhttp.Client {
	t.Helper()

	store := auth.NewTokenStore()
	if pair != nil {
		store.Set(*pair)
	}

	client, err := copepodhttp.NewClient(serverURL, store, opts...)
	require.NoError(t, err)

	return client
}

func writeAuthResponse(t *testing.T, w http.ResponseWriter, token, refreshToken string) {
	t.Helper()

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]interface{}{
		"token":         token,
		"refresh_token": refreshToken,
		"user":          map[string]string{"id": "u1", "email": "ada@example.com"},
	})
}

func TestNewClient_InvalidBaseURL(t *testing.T) {
	t.Parallel()

	for _, raw := range []string{"not a url", "/relative/only", "://missing-scheme"} {
		_, err := copepodhttp.NewClient(raw, nil)
		require.ErrorIs(t, err, copepod.ErrInvalidBaseURL, raw)
	}
}

//nolint:funlen // Test functions can be longer for comprehensive testing
func TestClient_Do(t *testing.T) {
	t.Parallel()
	t.Run("successful request", func(t *testing.T) {
		t.Parallel()

		server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
			assert.Equal(t, "/api/platform/orgs", request.URL.Path)
			assert.Equal(t, http.MethodGet, request.Method)
			assert.Equal(t, "Bearer test-token", request.Header.Get("Authorization"))
			assert.Equal(t, "application/json", request.Header.Get("Accept"))
			assert.Equal(t, constants.DefaultUserAgent, request.Header.Get("User-Agent"))
			assert.NotEmpty(t, request.Header.Get(constants.HeaderRequestID))

			_ = json.NewEncoder(writer).Encode(map[string]string{"id": "o1", "name": "Acme"})
		}))
		defer server.Close()

		client := newClient(t, server.URL, &copepod.TokenPair{Token: "test-token"})

		resp, err := client.Do(context.Background(), &copepodhttp.Request{
			Method: http.MethodGet,
			Path:   constants.PathPlatformOrgs,
		})
		require.NoError(t, err)
		assert.Equal(t, http.StatusOK, resp.StatusCode)

		var result map[string]string

		require.NoError(t, json.Unmarshal(resp.Body, &result))
		assert.Equal(t, "Acme", result["name"])
	})

	t.Run("base path prefix is kept", func(t *testing.T) {
		t.Parallel()

		server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
			assert.Equal(t, "/copepod/api/platform/orgs", request.URL.Path)
			writer.WriteHeader(http.StatusOK)
		}))
		defer server.Close()

		client := newClient(t, server.URL+"/copepod", nil)

		_, err := client.Get(context.Background(), constants.PathPlatformOrgs, nil)
		require.NoError(t, err)
	})

	t.Run("request with query parameters", func(t *testing.T) {
		t.Parallel()

		server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
			assert.Equal(t, "2", request.URL.Query().Get("page"))
			assert.Equal(t, `status = "draft"`, request.URL.Query().Get("filter"))
			writer.WriteHeader(http.StatusOK)
		}))
		defer server.Close()

		client := newClient(t, server.URL, nil)

		resp, err := client.Get(context.Background(), "api/records", url.Values{
			"page":   []string{"2"},
			"filter": []string{`status = "draft"`},
		})
		require.NoError(t, err)
		assert.Equal(t, http.StatusOK, resp.StatusCode)
	})

	t.Run("request with body", func(t *testing.T) {
		t.Parallel()

		server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
			assert.Equal(t, http.MethodPost, request.Method)
			assert.Equal(t, "application/json", request.Header.Get("Content-Type"))

			var body map[string]string

			_ = json.NewDecoder(request.Body).Decode(&body)
			assert.Equal(t, "Acme", body["name"])

			writer.WriteHeader(http.StatusCreated)
		}))
		defer server.Close()

		client := newClient(t, server.URL, nil)

		resp, err := client.Post(context.Background(), constants.PathPlatformOrgs, map[string]string{"name": "Acme"})
		require.NoError(t, err)
		assert.Equal(t, http.StatusCreated, resp.StatusCode)
	})

	t.Run("raw body keeps its content type", func(t *testing.T) {
		t.Parallel()

		server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
			assert.Equal(t, "text/csv", request.Header.Get("Content-Type"))

			body, _ := io.ReadAll(request.Body)
			assert.Equal(t, "a,b\n1,2\n", string(body))
			writer.WriteHeader(http.StatusNoContent)
		}))
		defer server.Close()

		client := newClient(t, server.URL, nil)

		_, err := client.PostRaw(context.Background(), "api/import", []byte("a,b\n1,2\n"), "text/csv")
		require.NoError(t, err)
	})

	t.Run("custom headers", func(t *testing.T) {
		t.Parallel()

		server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
			assert.Equal(t, "custom-value", request.Header.Get("X-Custom-Header"))
			writer.WriteHeader(http.StatusOK)
		}))
		defer server.Close()

		client := newClient(t, server.URL, nil)

		_, err := client.Do(context.Background(), &copepodhttp.Request{
			Method:  http.MethodGet,
			Path:    constants.PathPlatformOrgs,
			Headers: map[string]string{"X-Custom-Header": "custom-value"},
		})
		require.NoError(t, err)
	})

	t.Run("no credential sends no authorization", func(t *testing.T) {
		t.Parallel()

		server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
			assert.Empty(t, request.Header.Get("Authorization"))
			writer.WriteHeader(http.StatusOK)
		}))
		defer server.Close()

		client := newClient(t, server.URL, nil)

		_, err := client.Get(context.Background(), constants.PathPlatformOrgs, nil)
		require.NoError(t, err)
	})

	t.Run("with debug logging", func(t *testing.T) {
		t.Parallel()

		server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
			_ = json.NewEncoder(writer).Encode(map[string]string{"result": "ok"})
		}))
		defer server.Close()

		logger := &MockLogger{}
		client := newClient(t, server.URL, nil, copepodhttp.WithLogger(logger), copepodhttp.WithDebug(true))

		_, err := client.Get(context.Background(), constants.PathPlatformOrgs, nil)
		require.NoError(t, err)

		messages := logger.Messages()
		assert.Contains(t, messages, "HTTP Request")
		assert.Contains(t, messages, "HTTP Response")
	})
}

//nolint:funlen // Test functions can be longer for comprehensive testing
func TestClient_ErrorNormalization(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		status      int
		body        string
		fallback    string
		wantCode    string
		wantMessage string
	}{
		{
			name:        "code and message verbatim",
			status:      http.StatusUnauthorized,
			body:        `{"code":"unauthorized","message":"Invalid token"}`,
			wantCode:    "unauthorized",
			wantMessage: "Invalid token",
		},
		{
			name:        "message without code",
			status:      http.StatusNotFound,
			body:        `{"message":"Org not found"}`,
			wantMessage: "Org not found",
		},
		{
			name:        "non-json body",
			status:      http.StatusInternalServerError,
			body:        "upstream exploded",
			wantMessage: constants.DefaultErrorMessage,
		},
		{
			name:        "empty body",
			status:      http.StatusBadGateway,
			body:        "",
			wantMessage: constants.DefaultErrorMessage,
		},
		{
			name:        "non-string fields",
			status:      http.StatusBadRequest,
			body:        `{"code":42,"message":{"field":"name"}}`,
			wantMessage: constants.DefaultErrorMessage,
		},
		{
			name:        "fallback message",
			status:      http.StatusForbidden,
			body:        "",
			fallback:    constants.DownloadFailedMessage,
			wantMessage: constants.DownloadFailedMessage,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, _ *http.Request) {
				writer.WriteHeader(tt.status)
				_, _ = writer.Write([]byte(tt.body))
			}))
			defer server.Close()

			client := newClient(t, server.URL, nil)

			resp, err := client.Do(context.Background(), &copepodhttp.Request{
				Method:        http.MethodGet,
				Path:          "api/thing",
				ErrorFallback: tt.fallback,
			})
			require.Error(t, err)
			require.NotNil(t, resp)
			assert.Equal(t, tt.status, resp.StatusCode)

			apiErr := &copepod.Error{}
			require.ErrorAs(t, err, &apiErr)
			assert.Equal(t, copepod.KindAPI, apiErr.Kind)
			assert.Equal(t, tt.status, apiErr.Status)
			assert.Equal(t, tt.wantCode, apiErr.Code)
			assert.Equal(t, tt.wantMessage, apiErr.Message)
			assert.ErrorIs(t, err, copepod.ErrAPI)
		})
	}
}

func TestClient_TransportError(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	serverURL := server.URL
	server.Close()

	client := newClient(t, serverURL, &copepod.TokenPair{Token: "test-token"})

	resp, err := client.Get(context.Background(), constants.PathPlatformOrgs, nil)
	require.Error(t, err)
	assert.Nil(t, resp)
	require.ErrorIs(t, err, copepod.ErrTransport)
	assert.Zero(t, copepod.StatusCode(err))
}

func TestClient_Methods(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		method string
		fn     func(*copepodhttp.Client, context.Context) (*copepodhttp.Response, error)
	}{
		{
			name:   "GET",
			method: http.MethodGet,
			fn: func(c *copepodhttp.Client, ctx context.Context) (*copepodhttp.Response, error) {
				return c.Get(ctx, "/test", nil)
			},
		},
		{
			name:   "POST",
			method: http.MethodPost,
			fn: func(c *copepodhttp.Client, ctx context.Context) (*copepodhttp.Response, error) {
				return c.Post(ctx, "/test", map[string]string{"key": "value"})
			},
		},
		{
			name:   "PUT",
			method: http.MethodPut,
			fn: func(c *copepodhttp.Client, ctx context.Context) (*copepodhttp.Response, error) {
				return c.Put(ctx, "/test", map[string]string{"key": "value"})
			},
		},
		{
			name:   "PATCH",
			method: http.MethodPatch,
			fn: func(c *copepodhttp.Client, ctx context.Context) (*copepodhttp.Response, error) {
				return c.Patch(ctx, "/test", map[string]string{"key": "value"})
			},
		},
		{
			name:   "DELETE",
			method: http.MethodDelete,
			fn: func(c *copepodhttp.Client, ctx context.Context) (*copepodhttp.Response, error) {
				return c.Delete(ctx, "/test")
			},
		},
	}

	for _, testCase := range tests {
		t.Run(testCase.name, func(t *testing.T) {
			t.Parallel()

			server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
				assert.Equal(t, testCase.method, request.Method)
				assert.Equal(t, "/test", request.URL.Path)
				writer.WriteHeader(http.StatusOK)
			}))
			defer server.Close()

			client := newClient(t, server.URL, nil)
			resp, err := testCase.fn(client, context.Background())
			require.NoError(t, err)
			assert.Equal(t, http.StatusOK, resp.StatusCode)
		})
	}
}

//nolint:funlen // Test functions can be longer for comprehensive testing
func TestClient_ProactiveRefresh(t *testing.T) {
	t.Parallel()
	t.Run("refreshes once inside the window", func(t *testing.T) {
		t.Parallel()

		var refreshes, calls atomic.Int32

		server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
			switch request.URL.Path {
			case "/api/auth/refresh":
				refreshes.Add(1)
				assert.Empty(t, request.Header.Get("Authorization"))

				var body map[string]string

				_ = json.NewDecoder(request.Body).Decode(&body)
				assert.Equal(t, "refresh-1", body["refresh_token"])

				writeAuthResponse(t, writer, "access-2", "refresh-2")
			default:
				calls.Add(1)
				assert.Equal(t, "Bearer access-2", request.Header.Get("Authorization"))
				writer.WriteHeader(http.StatusOK)
			}
		}))
		defer server.Close()

		persister := &recordingPersister{}
		client := newClient(t, server.URL, &copepod.TokenPair{
			Token:        "access-1",
			RefreshToken: "refresh-1",
			ExpiresAt:    expiringIn(30 * time.Second),
		}, copepodhttp.WithPersister(persister))

		_, err := client.Get(context.Background(), constants.PathPlatformOrgs, nil)
		require.NoError(t, err)

		_, err = client.Get(context.Background(), constants.PathPlatformOrgs, nil)
		require.NoError(t, err)

		assert.Equal(t, int32(1), refreshes.Load())
		assert.Equal(t, int32(2), calls.Load())

		pair := client.Store().Get()
		assert.Equal(t, "access-2", pair.Token)
		assert.Equal(t, "refresh-2", pair.RefreshToken)
		require.Len(t, persister.saved, 1)
		assert.Equal(t, "access-2", persister.saved[0].Token)
	})

	t.Run("no refresh outside the window", func(t *testing.T) {
		t.Parallel()

		server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
			assert.NotEqual(t, "/api/auth/refresh", request.URL.Path)
			assert.Equal(t, "Bearer access-1", request.Header.Get("Authorization"))
			writer.WriteHeader(http.StatusOK)
		}))
		defer server.Close()

		client := newClient(t, server.URL, &copepod.TokenPair{
			Token:        "access-1",
			RefreshToken: "refresh-1",
			ExpiresAt:    expiringIn(10 * time.Minute),
		})

		_, err := client.Get(context.Background(), constants.PathPlatformOrgs, nil)
		require.NoError(t, err)
	})

	t.Run("failed refresh aborts the call and keeps the pair", func(t *testing.T) {
		t.Parallel()

		var calls atomic.Int32

		server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
			if request.URL.Path == "/api/auth/refresh" {
				writer.WriteHeader(http.StatusUnauthorized)
				_, _ = writer.Write([]byte(`{"code":"invalid_refresh_token","message":"Refresh token revoked"}`))

				return
			}

			calls.Add(1)
		}))
		defer server.Close()

		logger := &MockLogger{}
		client := newClient(t, server.URL, &copepod.TokenPair{
			Token:        "access-1",
			RefreshToken: "refresh-1",
			ExpiresAt:    expiringIn(30 * time.Second),
		}, copepodhttp.WithLogger(logger))

		_, err := client.Get(context.Background(), constants.PathPlatformOrgs, nil)
		require.Error(t, err)
		assert.True(t, copepod.IsUnauthorized(err))
		assert.Equal(t, "invalid_refresh_token", copepod.ErrorCode(err))
		assert.Zero(t, calls.Load())
		assert.Contains(t, logger.Messages(), "Token refresh failed")

		pair := client.Store().Get()
		assert.Equal(t, "access-1", pair.Token)
		assert.Equal(t, "refresh-1", pair.RefreshToken)
	})

	t.Run("refresh reply without tokens is a decode error and keeps the pair", func(t *testing.T) {
		t.Parallel()

		var calls atomic.Int32

		server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
			if request.URL.Path == "/api/auth/refresh" {
				writer.Header().Set("Content-Type", "application/json")
				_, _ = writer.Write([]byte(`{}`))

				return
			}

			calls.Add(1)
		}))
		defer server.Close()

		persister := &recordingPersister{}
		client := newClient(t, server.URL, &copepod.TokenPair{
			Token:        "access-1",
			RefreshToken: "refresh-1",
			ExpiresAt:    expiringIn(30 * time.Second),
		}, copepodhttp.WithPersister(persister))

		_, err := client.Get(context.Background(), "api/x", nil)
		require.ErrorIs(t, err, copepod.ErrDecode)
		require.ErrorIs(t, err, copepod.ErrIncompleteTokenPair)
		assert.Zero(t, calls.Load())
		assert.Empty(t, persister.saved)

		pair := client.Store().Get()
		require.NotNil(t, pair)
		assert.Equal(t, "access-1", pair.Token)
		assert.Equal(t, "refresh-1", pair.RefreshToken)
	})

	t.Run("failed refresh without a message uses the refresh fallback", func(t *testing.T) {
		t.Parallel()

		server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, _ *http.Request) {
			writer.WriteHeader(http.StatusInternalServerError)
		}))
		defer server.Close()

		client := newClient(t, server.URL, &copepod.TokenPair{
			Token:        "access-1",
			RefreshToken: "refresh-1",
			ExpiresAt:    expiringIn(-time.Minute),
		})

		_, err := client.Get(context.Background(), constants.PathPlatformOrgs, nil)

		apiErr := &copepod.Error{}
		require.ErrorAs(t, err, &apiErr)
		assert.Equal(t, constants.RefreshFailedMessage, apiErr.Message)
	})

	t.Run("missing refresh token", func(t *testing.T) {
		t.Parallel()

		var calls atomic.Int32

		server := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
			calls.Add(1)
		}))
		defer server.Close()

		client := newClient(t, server.URL, &copepod.TokenPair{
			Token:     "access-1",
			ExpiresAt: expiringIn(30 * time.Second),
		})

		_, err := client.Get(context.Background(), constants.PathPlatformOrgs, nil)
		require.ErrorIs(t, err, copepod.ErrAuth)
		assert.Zero(t, calls.Load())
	})

	t.Run("disabled auto refresh sends the old token", func(t *testing.T) {
		t.Parallel()

		server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
			assert.Equal(t, "Bearer access-1", request.Header.Get("Authorization"))
			writer.WriteHeader(http.StatusOK)
		}))
		defer server.Close()

		client := newClient(t, server.URL, &copepod.TokenPair{
			Token:        "access-1",
			RefreshToken: "refresh-1",
			ExpiresAt:    expiringIn(30 * time.Second),
		}, copepodhttp.WithAutoRefresh(false))

		_, err := client.Get(context.Background(), constants.PathPlatformOrgs, nil)
		require.NoError(t, err)
	})

	t.Run("unauthenticated calls skip refresh and bearer", func(t *testing.T) {
		t.Parallel()

		server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
			assert.Equal(t, "/api/auth/login", request.URL.Path)
			assert.Empty(t, request.Header.Get("Authorization"))
			writer.WriteHeader(http.StatusOK)
		}))
		defer server.Close()

		client := newClient(t, server.URL, &copepod.TokenPair{
			Token:        "access-1",
			RefreshToken: "refresh-1",
			ExpiresAt:    expiringIn(30 * time.Second),
		})

		_, err := client.Do(context.Background(), &copepodhttp.Request{
			Method:          http.MethodPost,
			Path:            constants.PathAuthLogin,
			Body:            map[string]string{"email": "ada@example.com", "password": "hunter2"},
			Unauthenticated: true,
		})
		require.NoError(t, err)
	})
}

func TestClient_ConcurrentRefreshIsShared(t *testing.T) {
	t.Parallel()

	var refreshes atomic.Int32

	server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		if request.URL.Path == "/api/auth/refresh" {
			refreshes.Add(1)
			time.Sleep(50 * time.Millisecond)
			writeAuthResponse(t, writer, "access-2", "refresh-2")

			return
		}

		assert.Equal(t, "Bearer access-2", request.Header.Get("Authorization"))
		writer.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	client := newClient(t, server.URL, &copepod.TokenPair{
		Token:        "access-1",
		RefreshToken: "refresh-1",
		ExpiresAt:    expiringIn(30 * time.Second),
	})

	var wg sync.WaitGroup

	for range 8 {
		wg.Add(1)

		go func() {
			defer wg.Done()

			_, err := client.Get(context.Background(), constants.PathPlatformOrgs, nil)
			assert.NoError(t, err)
		}()
	}

	wg.Wait()
	assert.Equal(t, int32(1), refreshes.Load())
}

func TestClient_CancelledWaiterLeavesSharedRefreshRunning(t *testing.T) {
	t.Parallel()

	var refreshes atomic.Int32

	started := make(chan struct{}, 1)
	release := make(chan struct{})

	server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		if request.URL.Path == "/api/auth/refresh" {
			refreshes.Add(1)

			select {
			case started <- struct{}{}:
			default:
			}

			<-release
			writeAuthResponse(t, writer, "access-2", "refresh-2")

			return
		}

		assert.Equal(t, "Bearer access-2", request.Header.Get("Authorization"))
		writer.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	client := newClient(t, server.URL, &copepod.TokenPair{
		Token:        "access-1",
		RefreshToken: "refresh-1",
		ExpiresAt:    expiringIn(30 * time.Second),
	})

	ctxA, cancelA := context.WithCancel(context.Background())
	defer cancelA()

	errA := make(chan error, 1)

	go func() {
		_, err := client.Get(ctxA, constants.PathPlatformOrgs, nil)
		errA <- err
	}()

	<-started

	errB := make(chan error, 1)

	go func() {
		_, err := client.Get(context.Background(), constants.PathPlatformOrgs, nil)
		errB <- err
	}()

	// Let the second caller join the refresh in flight.
	time.Sleep(50 * time.Millisecond)
	cancelA()

	err := <-errA
	require.ErrorIs(t, err, context.Canceled)
	require.ErrorIs(t, err, copepod.ErrTransport)

	close(release)

	require.NoError(t, <-errB)
	assert.Equal(t, int32(1), refreshes.Load())
	assert.Equal(t, "access-2", client.Store().Get().Token)
}

func TestClient_Refresh(t *testing.T) {
	t.Parallel()

	var refreshes atomic.Int32

	server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, _ *http.Request) {
		refreshes.Add(1)
		writeAuthResponse(t, writer, "access-2", "refresh-2")
	}))
	defer server.Close()

	client := newClient(t, server.URL, &copepod.TokenPair{Token: "access-1", RefreshToken: "refresh-1"})

	// Explicit refresh ignores expiry.
	authResp, err := client.Refresh(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "access-2", authResp.Token)
	assert.Equal(t, "u1", authResp.User.ID)
	assert.Equal(t, int32(1), refreshes.Load())
	assert.Equal(t, "refresh-2", client.Store().Get().RefreshToken)
}

func TestClient_Refresh_WithoutCredential(t *testing.T) {
	t.Parallel()

	client := newClient(t, "https://api.example.com", nil)

	_, err := client.Refresh(context.Background())
	require.ErrorIs(t, err, copepod.ErrAuth)
}

func TestClient_StoreTokens(t *testing.T) {
	t.Parallel()

	expiresAt := time.Date(2031, 6, 1, 0, 0, 0, 0, time.UTC)

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"exp": expiresAt.Unix()}).SignedString([]byte("secret"))
	require.NoError(t, err)

	persister := &recordingPersister{}
	client := newClient(t, "https://api.example.com", nil,
		copepodhttp.WithExpiryFromJWT(true), copepodhttp.WithPersister(persister))

	pair := client.StoreTokens(context.Background(), token, "refresh-1")
	require.NotNil(t, pair.ExpiresAt)
	assert.True(t, expiresAt.Equal(*pair.ExpiresAt))
	assert.True(t, expiresAt.Equal(*client.Store().Get().ExpiresAt))

	// Opaque tokens keep no expiry.
	pair = client.StoreTokens(context.Background(), "opaque", "refresh-2")
	assert.Nil(t, pair.ExpiresAt)
	assert.Len(t, persister.saved, 2)

	client.ClearTokens(context.Background())
	assert.Nil(t, client.Store().Get())
	assert.Equal(t, 1, persister.clears)
}

func TestClient_Metrics(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		if request.URL.Path == "/missing" {
			writer.WriteHeader(http.StatusNotFound)

			return
		}

		writer.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	m, err := metrics.New(prometheus.NewRegistry())
	require.NoError(t, err)

	client := newClient(t, server.URL, nil, copepodhttp.WithMetrics(m))

	_, err = client.Get(context.Background(), "/found", nil)
	require.NoError(t, err)

	_, err = client.Get(context.Background(), "/missing", nil)
	require.Error(t, err)

	assert.InDelta(t, 1, testutil.ToFloat64(m.RequestsCounter().WithLabelValues(http.MethodGet, "200")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.RequestsCounter().WithLabelValues(http.MethodGet, "404")), 0)
}

var errRejected = errors.New("rejected by policy")

func TestClient_Interceptors(t *testing.T) {
	t.Parallel()
	t.Run("request interceptor error aborts the call", func(t *testing.T) {
		t.Parallel()

		var calls atomic.Int32

		server := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
			calls.Add(1)
		}))
		defer server.Close()

		chain := copepod.NewInterceptorChain([]copepod.RequestInterceptor{
			func(context.Context, *copepod.Request) error {
				return errRejected
			},
		}, nil)

		client := newClient(t, server.URL, nil, copepodhttp.WithInterceptors(chain))

		_, err := client.Get(context.Background(), "/test", nil)
		require.ErrorIs(t, err, errRejected)
		require.ErrorIs(t, err, copepod.ErrAuth)
		assert.NotErrorIs(t, err, copepod.ErrTransport)
		assert.Contains(t, err.Error(), "request rejected")
		assert.Zero(t, calls.Load())
	})

	t.Run("response interceptor sees the normalized error", func(t *testing.T) {
		t.Parallel()

		server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, _ *http.Request) {
			writer.WriteHeader(http.StatusNotFound)
			_, _ = writer.Write([]byte(`{"message":"Not here"}`))
		}))
		defer server.Close()

		var seen error

		chain := copepod.NewInterceptorChain(nil, []copepod.ResponseInterceptor{
			func(_ context.Context, req *copepod.Request, resp *copepod.Response) error {
				assert.NotEmpty(t, req.RequestID)
				assert.Positive(t, req.Elapsed())
				seen = resp.Error

				return nil
			},
		})

		client := newClient(t, server.URL, nil, copepodhttp.WithInterceptors(chain))

		_, err := client.Get(context.Background(), "/test", nil)
		require.Error(t, err)
		require.Error(t, seen)
		assert.True(t, copepod.IsNotFound(seen))
	})
}

func TestClient_RetryLogic(t *testing.T) {
	t.Parallel()
	t.Run("retries on 5xx errors when configured", func(t *testing.T) {
		t.Parallel()

		var attempts atomic.Int32

		server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, _ *http.Request) {
			if attempts.Add(1) < 3 {
				writer.WriteHeader(http.StatusInternalServerError)

				return
			}

			writer.WriteHeader(http.StatusOK)
		}))
		defer server.Close()

		client := newClient(t, server.URL, nil, copepodhttp.WithRetryConfig(3, 10*time.Millisecond, 100*time.Millisecond))

		resp, err := client.Get(context.Background(), "/test", nil)
		require.NoError(t, err)
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, int32(3), attempts.Load())
	})

	t.Run("single attempt by default", func(t *testing.T) {
		t.Parallel()

		var attempts atomic.Int32

		server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, _ *http.Request) {
			attempts.Add(1)
			writer.WriteHeader(http.StatusServiceUnavailable)
		}))
		defer server.Close()

		client := newClient(t, server.URL, nil)

		resp, err := client.Get(context.Background(), "/test", nil)
		require.Error(t, err)
		assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
		assert.Equal(t, int32(1), attempts.Load())
	})
}

func TestClient_Stream(t *testing.T) {
	t.Parallel()
	t.Run("opens with the token in the query", func(t *testing.T) {
		t.Parallel()

		server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
			assert.Equal(t, "text/event-stream", request.Header.Get("Accept"))
			assert.Empty(t, request.Header.Get("Authorization"))
			assert.Equal(t, "access-1", request.URL.Query().Get("access_token"))

			writer.Header().Set("Content-Type", "text/event-stream")
			_, _ = writer.Write([]byte("data: hello\n\n"))
		}))
		defer server.Close()

		client := newClient(t, server.URL, &copepod.TokenPair{
			Token:        "access-1",
			RefreshToken: "refresh-1",
			ExpiresAt:    expiringIn(30 * time.Second),
		})

		resp, err := client.Stream(context.Background(), "api/realtime/orgs/o1/apps/a1/events", url.Values{"access_token": {"access-1"}})
		require.NoError(t, err)

		defer func() { _ = resp.Body.Close() }()

		body, err := io.ReadAll(resp.Body)
		require.NoError(t, err)
		assert.Equal(t, "data: hello\n\n", string(body))
	})

	t.Run("non-2xx is normalized", func(t *testing.T) {
		t.Parallel()

		server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, _ *http.Request) {
			writer.WriteHeader(http.StatusForbidden)
			_, _ = writer.Write([]byte(`{"code":"forbidden","message":"No access to app"}`))
		}))
		defer server.Close()

		client := newClient(t, server.URL, nil)

		resp, err := client.Stream(context.Background(), "events", nil)
		require.Error(t, err)
		assert.Nil(t, resp)
		assert.True(t, copepod.IsForbidden(err))
		assert.Contains(t, err.Error(), "No access to app")
	})
}
