package messaging

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/nats-io/nats.go"
)

var ErrNATSURLRequired = errors.New("messaging: nats url is required")

const natsPublishedAt = "Published-At"

type NATSConfig struct {
	URL  string
	Name string
}

// NATS maps groups onto queue subscriptions. Core NATS has no redelivery, so
// a failed handler is logged by the caller and the message is gone.
type NATS struct {
	conn *nats.Conn

	mu     sync.Mutex
	subs   []*nats.Subscription
	closed bool
}

func NewNATS(cfg NATSConfig) (*NATS, error) {
	if cfg.URL == "" {
		return nil, ErrNATSURLRequired
	}

	opts := []nats.Option{nats.MaxReconnects(-1)}
	if cfg.Name != "" {
		opts = append(opts, nats.Name(cfg.Name))
	}

	conn, err := nats.Connect(cfg.URL, opts...)
	if err != nil {
		return nil, fmt.Errorf("messaging: nats connect: %w", err)
	}

	return &NATS{conn: conn}, nil
}

func (n *NATS) Publish(ctx context.Context, topic string, msg Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if topic == "" {
		return ErrTopicRequired
	}

	nm := nats.NewMsg(topic)
	nm.Data = msg.Body
	for k, v := range msg.Headers {
		nm.Header.Set(k, v)
	}
	if msg.ID != "" {
		nm.Header.Set(nats.MsgIdHdr, msg.ID)
	}
	if msg.Key != "" {
		nm.Header.Set("Key", msg.Key)
	}
	if msg.PublishedAt.IsZero() {
		msg.PublishedAt = time.Now()
	}
	nm.Header.Set(natsPublishedAt, msg.PublishedAt.UTC().Format(time.RFC3339Nano))

	if err := n.conn.PublishMsg(nm); err != nil {
		return fmt.Errorf("messaging: nats publish: %w", err)
	}

	return n.conn.FlushWithContext(ctx)
}

func (n *NATS) Subscribe(ctx context.Context, topic, group string, h Handler, opts ...SubscribeOption) error {
	if err := validateSubscribe(ctx, topic, group, h); err != nil {
		return err
	}
	o := newSubscribeOptions(opts)

	work := make(chan *nats.Msg, o.maxInFlight)
	sub, err := n.conn.ChanQueueSubscribe(topic, group, work)
	if err != nil {
		return fmt.Errorf("messaging: nats subscribe: %w", err)
	}
	if err := n.track(sub); err != nil {
		return errors.Join(err, sub.Unsubscribe())
	}

	var wg sync.WaitGroup
	for range o.concurrency {
		wg.Go(func() {
			for {
				select {
				case <-ctx.Done():
					return
				case nm := <-work:
					//nolint:errcheck // logged by the handler; core NATS cannot redeliver
					dispatch(ctx, DriverNATS, h, fromNATS(nm))
				}
			}
		})
	}

	<-ctx.Done()
	err = sub.Drain()
	wg.Wait()

	return errors.Join(ctx.Err(), err)
}

func fromNATS(nm *nats.Msg) Message {
	msg := Message{
		Topic:   nm.Subject,
		Body:    nm.Data,
		Headers: make(map[string]string, len(nm.Header)),
	}
	for k := range nm.Header {
		switch k {
		case nats.MsgIdHdr:
			msg.ID = nm.Header.Get(k)
		case "Key":
			msg.Key = nm.Header.Get(k)
		case natsPublishedAt:
			msg.PublishedAt, _ = time.Parse(time.RFC3339Nano, nm.Header.Get(k))
		default:
			msg.Headers[k] = nm.Header.Get(k)
		}
	}

	return msg
}

func (n *NATS) track(sub *nats.Subscription) error {
	n.mu.Lock()
	defer n.mu.Unlock()

	if n.closed {
		return ErrClosed
	}
	n.subs = append(n.subs, sub)
	return nil
}

func (n *NATS) Close() error {
	n.mu.Lock()
	if n.closed {
		n.mu.Unlock()
		return nil
	}
	n.closed = true
	n.mu.Unlock()

	err := n.conn.Drain()
	n.conn.Close()

	return err
}
