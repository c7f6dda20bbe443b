// Package sse decodes server-sent event streams into frames.
package sse

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/oreanmos/copepod-go/internal/constants"
)

const (
	initialBufferSize = 64 * 1024
	maxLineSize       = 4 * 1024 * 1024
)

// Frame is one dispatched event.
type Frame struct {
	// Event is the event type; "message" when the frame named none.
	Event string
	// Data holds the data lines joined by "\n".
	Data string
	// ID is the last event id seen on the stream.
	ID string
	// Retry is the reconnection delay requested by the server, if any.
	Retry time.Duration
}

// Decoder splits a byte stream into frames. A blank line dispatches the fields read
// since the previous one; frames without data lines are discarded, lines starting
// with ":" are comments.
type Decoder struct {
	scanner *bufio.Scanner
	lastID  string
}

// NewDecoder creates a decoder reading from r.
func NewDecoder(r io.Reader) *Decoder {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, initialBufferSize), maxLineSize)

	return &Decoder{scanner: scanner}
}

// Next blocks until a frame is complete. It returns io.EOF when the stream ends;
// a frame cut off by the end of the stream is dropped.
func (d *Decoder) Next() (*Frame, error) {
	var (
		frame   Frame
		data    []string
		hasData bool
	)

	for d.scanner.Scan() {
		line := d.scanner.Text()

		if line == "" {
			if !hasData {
				frame = Frame{}

				continue
			}

			if frame.Event == "" {
				frame.Event = constants.EventTypeMessage
			}

			frame.Data = strings.Join(data, "\n")
			frame.ID = d.lastID

			return &frame, nil
		}

		if strings.HasPrefix(line, ":") {
			continue
		}

		field, value, _ := strings.Cut(line, ":")
		value = strings.TrimPrefix(value, " ")

		switch field {
		case "event":
			frame.Event = value
		case "data":
			data = append(data, value)
			hasData = true
		case "id":
			if !strings.Contains(value, "\x00") {
				d.lastID = value
			}
		case "retry":
			if millis, err := strconv.Atoi(value); err == nil && millis >= 0 {
				frame.Retry = time.Duration(millis) * time.Millisecond
			}
		}
	}

	err := d.scanner.Err()
	if err != nil {
		return nil, fmt.Errorf("reading event stream: %w", err)
	}

	return nil, io.EOF
}
