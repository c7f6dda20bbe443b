// Package metrics exports Prometheus collectors for the request pipeline and event streams.
package metrics

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/oreanmos/copepod-go/internal/constants"
)

// Refresh results.
const (
	RefreshSuccess = "success"
	RefreshFailure = "failure"
)

// Metrics holds the collectors. A nil *Metrics records nothing.
type Metrics struct {
	requests  *prometheus.CounterVec
	duration  *prometheus.HistogramVec
	refreshes *prometheus.CounterVec
	frames    *prometheus.CounterVec
}

// New creates the collectors and registers them with reg. Collectors that are already
// registered, for instance by a second client sharing the registry, are reused.
func New(reg prometheus.Registerer) (*Metrics, error) {
	requests, err := register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: constants.MetricsNamespace,
		Name:      "requests_total",
		Help:      "Requests dispatched by the client, by method and HTTP status (\"error\" for transport failures).",
	}, []string{"method", "code"}))
	if err != nil {
		return nil, err
	}

	duration, err := register(reg, prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: constants.MetricsNamespace,
		Name:      "request_duration_seconds",
		Help:      "Time from dispatch to a fully read response.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method"}))
	if err != nil {
		return nil, err
	}

	refreshes, err := register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: constants.MetricsNamespace,
		Name:      "token_refreshes_total",
		Help:      "Token refresh calls by result.",
	}, []string{"result"}))
	if err != nil {
		return nil, err
	}

	frames, err := register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: constants.MetricsNamespace,
		Name:      "stream_frames_total",
		Help:      "Event stream frames received, by event type.",
	}, []string{"type"}))
	if err != nil {
		return nil, err
	}

	return &Metrics{
		requests:  requests,
		duration:  duration,
		refreshes: refreshes,
		frames:    frames,
	}, nil
}

// ObserveRequest records one dispatched request. A zero status marks a transport failure.
func (m *Metrics) ObserveRequest(method string, status int, elapsed time.Duration) {
	if m == nil {
		return
	}

	code := "error"
	if status > 0 {
		code = strconv.Itoa(status)
	}

	m.requests.WithLabelValues(method, code).Inc()
	m.duration.WithLabelValues(method).Observe(elapsed.Seconds())
}

// ObserveRefresh records one refresh call.
func (m *Metrics) ObserveRefresh(success bool) {
	if m == nil {
		return
	}

	result := RefreshFailure
	if success {
		result = RefreshSuccess
	}

	m.refreshes.WithLabelValues(result).Inc()
}

// ObserveFrame records one event stream frame.
func (m *Metrics) ObserveFrame(eventType string) {
	if m == nil {
		return
	}

	m.frames.WithLabelValues(eventType).Inc()
}

// RequestsCounter exposes the request counter for tests and custom exporters.
func (m *Metrics) RequestsCounter() *prometheus.CounterVec {
	return m.requests
}

// RefreshesCounter exposes the refresh counter.
func (m *Metrics) RefreshesCounter() *prometheus.CounterVec {
	return m.refreshes
}

// FramesCounter exposes the frame counter.
func (m *Metrics) FramesCounter() *prometheus.CounterVec {
	return m.frames
}

func register[T prometheus.Collector](reg prometheus.Registerer, collector T) (T, error) {
	err := reg.Register(collector)
	if err == nil {
		return collector, nil
	}

	already := prometheus.AlreadyRegisteredError{}
	if errors.As(err, &already) {
		if existing, ok := already.ExistingCollector.(T); ok {
			return existing, nil
		}
	}

	return collector, fmt.Errorf("registering metrics collector: %w", err)
}
