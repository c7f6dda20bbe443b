package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/url"

	"github.com/oreanmos/copepod-go/internal/constants"
	internalhttp "github.com/oreanmos/copepod-go/internal/http"
	"github.com/oreanmos/copepod-go/internal/sse"
	"github.com/oreanmos/copepod-go/pkg/copepod"
)

var errIncompleteRecordEvent = errors.New("record event requires action, collection and record")

// RealtimeClient implements copepod.RealtimeClient.
type RealtimeClient struct {
	httpClient *internalhttp.Client
}

// NewRealtimeClient creates a new realtime client.
func NewRealtimeClient(httpClient *internalhttp.Client) *RealtimeClient {
	return &RealtimeClient{
		httpClient: httpClient,
	}
}

// Subscribe implements copepod.RealtimeClient.Subscribe.
func (c *RealtimeClient) Subscribe(ctx context.Context, orgID, appID string) (*copepod.Subscription, error) {
	token := ""
	if pair := c.httpClient.Store().Get(); pair != nil {
		token = pair.Token
	}

	streamCtx, cancel := context.WithCancel(ctx)

	resp, err := c.httpClient.Stream(streamCtx,
		buildPath(constants.RealtimeEventsPathFormat, orgID, appID),
		url.Values{constants.AccessTokenParam: {token}})
	if err != nil {
		cancel()

		return nil, fmt.Errorf("subscribing to events: %w", err)
	}

	events := make(chan copepod.EventResult)
	done := make(chan struct{})

	go c.pump(streamCtx, cancel, resp.Body, events, done)

	return copepod.NewSubscription(events, cancel, done), nil
}

// pump turns frames into items until the stream ends or ctx is cancelled.
func (c *RealtimeClient) pump(ctx context.Context, cancel context.CancelFunc, body io.ReadCloser, events chan<- copepod.EventResult, done chan<- struct{}) {
	defer func() {
		_ = body.Close()

		cancel()
		close(events)
		close(done)
	}()

	decoder := sse.NewDecoder(body)

	for {
		frame, err := decoder.Next()
		if err != nil {
			if errors.Is(err, io.EOF) || ctx.Err() != nil {
				return
			}

			c.httpClient.Logger().Debug("Event stream interrupted", map[string]interface{}{"error": err.Error()})
			send(ctx, events, copepod.EventResult{Err: copepod.NewStreamError(err.Error(), err)})

			return
		}

		c.httpClient.Metrics().ObserveFrame(frame.Event)

		if !send(ctx, events, frameResult(frame)) {
			return
		}
	}
}

func frameResult(frame *sse.Frame) copepod.EventResult {
	if frame.Event != constants.EventTypeRecord {
		return copepod.EventResult{Err: copepod.NewStreamError("Non-record event: "+frame.Event, nil)}
	}

	event, err := decodeRecordEvent(frame.Data)
	if err != nil {
		return copepod.EventResult{Err: copepod.NewDecodeError(fmt.Errorf("parsing record event: %w", err))}
	}

	return copepod.EventResult{Event: event}
}

func decodeRecordEvent(data string) (*copepod.RecordEvent, error) {
	var raw struct {
		Action     *string         `json:"action"`
		Collection *string         `json:"collection"`
		Record     json.RawMessage `json:"record"`
	}

	err := json.Unmarshal([]byte(data), &raw)
	if err != nil {
		return nil, err
	}

	if raw.Action == nil || raw.Collection == nil || raw.Record == nil {
		return nil, errIncompleteRecordEvent
	}

	return &copepod.RecordEvent{
		Action:     *raw.Action,
		Collection: *raw.Collection,
		Record:     raw.Record,
	}, nil
}

func send(ctx context.Context, events chan<- copepod.EventResult, item copepod.EventResult) bool {
	select {
	case events <- item:
		return true
	case <-ctx.Done():
		return false
	}
}
