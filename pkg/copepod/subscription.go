package copepod

import (
	"context"
	"iter"
	"sync"
)

// EventResult is one item of a subscription. Exactly one of Event and Err is set;
// an Err item does not end the subscription.
type EventResult struct {
	Event *RecordEvent
	Err   error
}

// Subscription is a live record event stream. Items are produced as frames arrive and
// are not buffered: a slow consumer holds back the reader. The sequence ends when the
// server closes the connection, the subscribing context is cancelled, or Close is
// called. A finished subscription cannot be restarted.
type Subscription struct {
	events    <-chan EventResult
	cancel    context.CancelFunc
	done      <-chan struct{}
	closeOnce sync.Once
}

// NewSubscription wraps a producer that sends on events until cancel is called,
// closing events and then done when it exits.
func NewSubscription(events <-chan EventResult, cancel context.CancelFunc, done <-chan struct{}) *Subscription {
	return &Subscription{
		events: events,
		cancel: cancel,
		done:   done,
	}
}

// Events returns the item channel. It is closed when the subscription ends.
func (s *Subscription) Events() <-chan EventResult {
	return s.events
}

// All returns the items as an iterator. Stopping the loop early does not close the
// subscription; call Close for that.
func (s *Subscription) All() iter.Seq2[*RecordEvent, error] {
	return func(yield func(*RecordEvent, error) bool) {
		for item := range s.events {
			if !yield(item.Event, item.Err) {
				return
			}
		}
	}
}

// Close ends the subscription and waits for the connection to be released.
// It is safe to call more than once.
func (s *Subscription) Close() error {
	s.closeOnce.Do(s.cancel)
	<-s.done

	return nil
}
