package messaging

import (
	"context"
	"errors"
	"io"
	"time"
)

var (
	ErrTopicRequired   = errors.New("messaging: topic is required")
	ErrGroupRequired   = errors.New("messaging: group is required")
	ErrHandlerRequired = errors.New("messaging: handler is required")
	ErrClosed          = errors.New("messaging: client is closed")
)

// HeaderCorrelationID carries the request correlation id across the broker.
const HeaderCorrelationID = "cID"

// Message is the broker neutral unit of publication.
type Message struct {
	ID          string
	Topic       string
	Key         string
	Body        []byte
	Headers     map[string]string
	PublishedAt time.Time
}

// Header returns the named header or "".
func (m Message) Header(key string) string {
	return m.Headers[key]
}

// Handler processes a message. Returning nil acknowledges it; an error asks
// the broker to deliver it again.
type Handler func(ctx context.Context, msg Message) error

type Publisher interface {
	Publish(ctx context.Context, topic string, msg Message) error
}

type Subscriber interface {
	// Subscribe blocks, dispatching messages to h until ctx is done.
	Subscribe(ctx context.Context, topic, group string, h Handler, opts ...SubscribeOption) error
}

// Messaging is a broker client.
type Messaging interface {
	io.Closer
	Publisher
	Subscriber
}

type subscribeOptions struct {
	concurrency int
	maxInFlight int
}

type SubscribeOption func(*subscribeOptions)

// WithConcurrency sets how many handlers run in parallel.
func WithConcurrency(n int) SubscribeOption {
	return func(o *subscribeOptions) {
		if n > 0 {
			o.concurrency = n
		}
	}
}

// WithMaxInFlight caps unacknowledged messages where the broker supports it.
func WithMaxInFlight(n int) SubscribeOption {
	return func(o *subscribeOptions) {
		if n > 0 {
			o.maxInFlight = n
		}
	}
}

func newSubscribeOptions(opts []SubscribeOption) subscribeOptions {
	o := subscribeOptions{concurrency: 1}
	for _, opt := range opts {
		if opt != nil {
			opt(&o)
		}
	}
	if o.maxInFlight < o.concurrency {
		o.maxInFlight = o.concurrency
	}
	return o
}

func validateSubscribe(ctx context.Context, topic, group string, h Handler) error {
	switch {
	case ctx.Err() != nil:
		return ctx.Err()
	case topic == "":
		return ErrTopicRequired
	case group == "":
		return ErrGroupRequired
	case h == nil:
		return ErrHandlerRequired
	}
	return nil
}
