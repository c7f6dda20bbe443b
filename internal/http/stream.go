package http

import (
	"context"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/google/uuid"

	"github.com/oreanmos/copepod-go/internal/constants"
	"github.com/oreanmos/copepod-go/pkg/copepod"
)

// maxErrorBody caps how much of a failed stream response is read for its message.
const maxErrorBody = 1 << 20

// Stream opens a long-lived GET for server-push events. It skips the refresh step and
// sends no Authorization header; callers authenticate through query. A non-2xx status
// closes the connection and returns the normalized error. The caller owns the returned
// body and must close it.
func (c *Client) Stream(ctx context.Context, path string, query url.Values) (*http.Response, error) {
	target, err := c.resolve(path, query)
	if err != nil {
		return nil, copepod.NewTransportError(err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, target.String(), nil)
	if err != nil {
		return nil, copepod.NewTransportError(err)
	}

	requestID := uuid.NewString()

	httpReq.Header.Set("Accept", "text/event-stream")
	httpReq.Header.Set("Cache-Control", "no-cache")
	httpReq.Header.Set("User-Agent", c.userAgent)
	httpReq.Header.Set(constants.HeaderRequestID, requestID)

	// The query carries the access token; only the path is logged.
	c.logger.Debug("Opening event stream", map[string]interface{}{
		"path":       path,
		"request_id": requestID,
	})

	start := time.Now()

	resp, err := c.streamClient.Do(httpReq)
	if err != nil {
		c.metrics.ObserveRequest(http.MethodGet, 0, time.Since(start))

		return nil, copepod.NewTransportError(err)
	}

	c.metrics.ObserveRequest(http.MethodGet, resp.StatusCode, time.Since(start))

	if !IsSuccess(resp.StatusCode) {
		defer func() { _ = resp.Body.Close() }()

		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))

		return nil, copepod.ParseAPIError(resp.StatusCode, body, "")
	}

	return resp, nil
}
