package messaging

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"cloud.google.com/go/pubsub/v2"
	"google.golang.org/api/option"
)

var ErrPubSubProjectIDRequired = errors.New("messaging: pubsub project id is required")

const (
	pubsubAttrID          = "message_id"
	pubsubAttrPublishedAt = "published_at"
)

type PubSubConfig struct {
	ProjectID string
	// CredentialsFile is optional; application default credentials are used
	// when it is empty.
	CredentialsFile string
}

// PubSub publishes to topics and receives from the subscription
// "<topic>.<group>", which must exist.
type PubSub struct {
	client *pubsub.Client

	mu         sync.Mutex
	publishers map[string]*pubsub.Publisher
	closed     bool
}

func NewPubSub(ctx context.Context, cfg PubSubConfig) (*PubSub, error) {
	if cfg.ProjectID == "" {
		return nil, ErrPubSubProjectIDRequired
	}

	var opts []option.ClientOption
	if cfg.CredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(cfg.CredentialsFile))
	}

	c, err := pubsub.NewClient(ctx, cfg.ProjectID, opts...)
	if err != nil {
		return nil, fmt.Errorf("messaging: pubsub client: %w", err)
	}

	return &PubSub{client: c, publishers: map[string]*pubsub.Publisher{}}, nil
}

// SubscriptionName is the subscription a group reads topic from.
func SubscriptionName(topic, group string) string {
	return topic + "." + group
}

func (p *PubSub) Publish(ctx context.Context, topic string, msg Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if topic == "" {
		return ErrTopicRequired
	}

	pub, err := p.publisher(topic)
	if err != nil {
		return err
	}

	if msg.PublishedAt.IsZero() {
		msg.PublishedAt = time.Now()
	}
	attrs := make(map[string]string, len(msg.Headers)+2)
	for k, v := range msg.Headers {
		attrs[k] = v
	}
	if msg.ID != "" {
		attrs[pubsubAttrID] = msg.ID
	}
	attrs[pubsubAttrPublishedAt] = msg.PublishedAt.UTC().Format(time.RFC3339Nano)

	res := pub.Publish(ctx, &pubsub.Message{
		Data:        msg.Body,
		Attributes:  attrs,
		OrderingKey: msg.Key,
	})
	if _, err := res.Get(ctx); err != nil {
		return fmt.Errorf("messaging: pubsub publish: %w", err)
	}

	return nil
}

func (p *PubSub) Subscribe(ctx context.Context, topic, group string, h Handler, opts ...SubscribeOption) error {
	if err := validateSubscribe(ctx, topic, group, h); err != nil {
		return err
	}
	o := newSubscribeOptions(opts)

	sub := p.client.Subscriber(SubscriptionName(topic, group))
	sub.ReceiveSettings.NumGoroutines = o.concurrency
	sub.ReceiveSettings.MaxOutstandingMessages = o.maxInFlight

	err := sub.Receive(ctx, func(ctx context.Context, pm *pubsub.Message) {
		msg := Message{
			ID:      pm.ID,
			Topic:   topic,
			Key:     pm.OrderingKey,
			Body:    pm.Data,
			Headers: make(map[string]string, len(pm.Attributes)),
		}
		for k, v := range pm.Attributes {
			switch k {
			case pubsubAttrID:
				msg.ID = v
			case pubsubAttrPublishedAt:
				msg.PublishedAt, _ = time.Parse(time.RFC3339Nano, v)
			default:
				msg.Headers[k] = v
			}
		}
		if msg.PublishedAt.IsZero() {
			msg.PublishedAt = pm.PublishTime
		}

		if err := dispatch(ctx, DriverGooglePubSub, h, msg); err != nil {
			pm.Nack()
			return
		}
		pm.Ack()
	})
	if err != nil {
		return fmt.Errorf("messaging: pubsub receive: %w", err)
	}

	return ctx.Err()
}

func (p *PubSub) publisher(topic string) (*pubsub.Publisher, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return nil, ErrClosed
	}
	if pub, ok := p.publishers[topic]; ok {
		return pub, nil
	}
	pub := p.client.Publisher(topic)
	pub.EnableMessageOrdering = true
	p.publishers[topic] = pub

	return pub, nil
}

func (p *PubSub) Close() error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	pubs := p.publishers
	p.publishers = nil
	p.mu.Unlock()

	for _, pub := range pubs {
		pub.Stop()
	}

	return p.client.Close()
}
