package messaging

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	nsq "github.com/nsqio/go-nsq"
)

var ErrNSQAddrRequired = errors.New("messaging: nsq nsqd or lookupd address is required")

type NSQConfig struct {
	// ProducerAddr is the nsqd TCP address used for publishing.
	ProducerAddr string
	// LookupdAddrs take precedence over NSQDAddrs for consumers.
	LookupdAddrs []string
	NSQDAddrs    []string
	// RequeueDelay is how long a failed message waits before redelivery.
	RequeueDelay time.Duration
}

// NSQ carries messages inside a JSON envelope because NSQ has no headers.
type NSQ struct {
	cfg      NSQConfig
	producer *nsq.Producer

	mu        sync.Mutex
	consumers []*nsq.Consumer
	closed    bool
}

func NewNSQ(cfg NSQConfig) (*NSQ, error) {
	if cfg.ProducerAddr == "" && len(cfg.LookupdAddrs) == 0 && len(cfg.NSQDAddrs) == 0 {
		return nil, ErrNSQAddrRequired
	}
	if cfg.RequeueDelay <= 0 {
		cfg.RequeueDelay = 5 * time.Second
	}

	n := &NSQ{cfg: cfg}
	if cfg.ProducerAddr != "" {
		p, err := nsq.NewProducer(cfg.ProducerAddr, nsq.NewConfig())
		if err != nil {
			return nil, fmt.Errorf("messaging: nsq producer: %w", err)
		}
		p.SetLoggerLevel(nsq.LogLevelError)
		n.producer = p
	}

	return n, nil
}

func (n *NSQ) Publish(ctx context.Context, topic string, msg Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if topic == "" {
		return ErrTopicRequired
	}
	if n.producer == nil {
		return ErrNSQAddrRequired
	}

	if msg.PublishedAt.IsZero() {
		msg.PublishedAt = time.Now()
	}
	body, err := seal(msg)
	if err != nil {
		return err
	}

	if err := n.producer.Publish(topic, body); err != nil {
		return fmt.Errorf("messaging: nsq publish: %w", err)
	}

	return nil
}

func (n *NSQ) Subscribe(ctx context.Context, topic, group string, h Handler, opts ...SubscribeOption) error {
	if err := validateSubscribe(ctx, topic, group, h); err != nil {
		return err
	}
	if len(n.cfg.LookupdAddrs) == 0 && len(n.cfg.NSQDAddrs) == 0 {
		return ErrNSQAddrRequired
	}
	o := newSubscribeOptions(opts)

	ccfg := nsq.NewConfig()
	ccfg.MaxInFlight = o.maxInFlight

	consumer, err := nsq.NewConsumer(topic, group, ccfg)
	if err != nil {
		return fmt.Errorf("messaging: nsq consumer: %w", err)
	}
	consumer.SetLoggerLevel(nsq.LogLevelError)

	consumer.AddConcurrentHandlers(nsq.HandlerFunc(func(m *nsq.Message) error {
		m.DisableAutoResponse()

		msg, err := unseal(topic, m.Body)
		if err != nil {
			// a body that never decodes would be redelivered forever
			m.Finish()
			return nil
		}
		if msg.ID == "" {
			msg.ID = fmt.Sprintf("%x", m.ID)
		}

		if err := dispatch(ctx, DriverNSQ, h, msg); err != nil {
			m.Requeue(n.cfg.RequeueDelay)
			return nil
		}
		m.Finish()
		return nil
	}), o.concurrency)

	if err := n.track(consumer); err != nil {
		consumer.Stop()
		return err
	}

	if len(n.cfg.LookupdAddrs) > 0 {
		err = consumer.ConnectToNSQLookupds(n.cfg.LookupdAddrs)
	} else {
		err = consumer.ConnectToNSQDs(n.cfg.NSQDAddrs)
	}
	if err != nil {
		consumer.Stop()
		<-consumer.StopChan
		return fmt.Errorf("messaging: nsq connect: %w", err)
	}

	select {
	case <-ctx.Done():
		consumer.Stop()
		<-consumer.StopChan
		return ctx.Err()
	case <-consumer.StopChan:
		return nil
	}
}

func (n *NSQ) track(c *nsq.Consumer) error {
	n.mu.Lock()
	defer n.mu.Unlock()

	if n.closed {
		return ErrClosed
	}
	n.consumers = append(n.consumers, c)
	return nil
}

func (n *NSQ) Close() error {
	n.mu.Lock()
	if n.closed {
		n.mu.Unlock()
		return nil
	}
	n.closed = true
	consumers := n.consumers
	n.consumers = nil
	n.mu.Unlock()

	for _, c := range consumers {
		c.Stop()
		<-c.StopChan
	}
	if n.producer != nil {
		n.producer.Stop()
	}

	return nil
}
