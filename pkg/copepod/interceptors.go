package copepod

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"
)

// MetadataStartTime is the Request.Metadata key holding the time the call was built.
const MetadataStartTime = "start_time"

// Request is the view of an outbound request passed to interceptors. Header changes
// made by request interceptors are sent with the request.
type Request struct {
	Method    string
	Path      string
	RequestID string
	Headers   http.Header
	Body      []byte
	Metadata  map[string]interface{}
}

// Elapsed returns the time since the call was built, or 0 when unknown.
func (r *Request) Elapsed() time.Duration {
	started, ok := r.Metadata[MetadataStartTime].(time.Time)
	if !ok {
		return 0
	}

	return time.Since(started)
}

// Response is the view of a completed call passed to response interceptors.
// Error holds the normalized error of the call, if any; StatusCode is 0 when
// the request never got a response.
type Response struct {
	StatusCode int
	Headers    http.Header
	Body       []byte
	Error      error
}

// RequestInterceptor is called before a request is sent. A returned error aborts the
// call with a KindAuth error that wraps it.
type RequestInterceptor func(ctx context.Context, req *Request) error

// ResponseInterceptor is called after a response is received or the dispatch failed.
type ResponseInterceptor func(ctx context.Context, req *Request, resp *Response) error

// InterceptorChain runs interceptors around each dispatched call in the order given.
// A nil chain runs nothing.
type InterceptorChain struct {
	onRequest  []RequestInterceptor
	onResponse []ResponseInterceptor
}

// NewInterceptorChain returns a chain over the given interceptors, or nil when both are empty.
func NewInterceptorChain(onRequest []RequestInterceptor, onResponse []ResponseInterceptor) *InterceptorChain {
	if len(onRequest) == 0 && len(onResponse) == 0 {
		return nil
	}

	return &InterceptorChain{
		onRequest:  append([]RequestInterceptor(nil), onRequest...),
		onResponse: append([]ResponseInterceptor(nil), onResponse...),
	}
}

// BeforeSend runs the request interceptors, stopping at the first error.
func (c *InterceptorChain) BeforeSend(ctx context.Context, req *Request) error {
	if c == nil {
		return nil
	}

	for index, interceptor := range c.onRequest {
		err := interceptor(ctx, req)
		if err != nil {
			return fmt.Errorf("request interceptor %d: %w", index, err)
		}
	}

	return nil
}

// AfterReceive runs the response interceptors, stopping at the first error.
func (c *InterceptorChain) AfterReceive(ctx context.Context, req *Request, resp *Response) error {
	if c == nil {
		return nil
	}

	for index, interceptor := range c.onResponse {
		err := interceptor(ctx, req, resp)
		if err != nil {
			return fmt.Errorf("response interceptor %d: %w", index, err)
		}
	}

	return nil
}

// LoggingInterceptor logs each outbound call at debug level.
func LoggingInterceptor(logger Logger) RequestInterceptor {
	return func(_ context.Context, req *Request) error {
		logger.Debug("Copepod call", map[string]interface{}{
			"method":     req.Method,
			"path":       req.Path,
			"request_id": req.RequestID,
		})

		return nil
	}
}

// LoggingResponseInterceptor logs completed calls at debug level and failed ones at
// warn level with the error kind and, for application errors, the status and code.
func LoggingResponseInterceptor(logger Logger) ResponseInterceptor {
	return func(_ context.Context, req *Request, resp *Response) error {
		fields := map[string]interface{}{
			"method":     req.Method,
			"path":       req.Path,
			"request_id": req.RequestID,
			"status":     resp.StatusCode,
			"elapsed":    req.Elapsed().String(),
		}

		if resp.Error == nil {
			logger.Debug("Copepod call completed", fields)

			return nil
		}

		fields["error"] = resp.Error.Error()

		apiErr := &Error{}
		if errors.As(resp.Error, &apiErr) {
			fields["kind"] = apiErr.Kind.String()
			if apiErr.HasCode() {
				fields["code"] = apiErr.Code
			}
		}

		logger.Warn("Copepod call failed", fields)

		return nil
	}
}

// HeaderInterceptor sets fixed headers on every request, replacing existing values.
func HeaderInterceptor(headers map[string]string) RequestInterceptor {
	return func(_ context.Context, req *Request) error {
		if req.Headers == nil {
			req.Headers = make(http.Header, len(headers))
		}

		for key, value := range headers {
			req.Headers.Set(key, value)
		}

		return nil
	}
}
