package messaging

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/segmentio/kafka-go"
)

var ErrKafkaBrokersRequired = errors.New("messaging: kafka brokers are required")

const (
	kafkaHeaderID = "Message-Id"
	kafkaMaxBytes = 10e6
)

type KafkaConfig struct {
	Brokers []string
	// Dialer is optional and configures TLS or SASL.
	Dialer *kafka.Dialer
}

// Kafka keeps one writer per topic. Readers join the consumer group named by
// the subscription and commit offsets only after the handler succeeds.
type Kafka struct {
	brokers []string
	dialer  *kafka.Dialer

	mu      sync.Mutex
	writers map[string]*kafka.Writer
	readers []*kafka.Reader
	closed  bool
}

func NewKafka(cfg KafkaConfig) (*Kafka, error) {
	if len(cfg.Brokers) == 0 {
		return nil, ErrKafkaBrokersRequired
	}

	return &Kafka{
		brokers: append([]string{}, cfg.Brokers...),
		dialer:  cfg.Dialer,
		writers: map[string]*kafka.Writer{},
	}, nil
}

func (k *Kafka) Publish(ctx context.Context, topic string, msg Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if topic == "" {
		return ErrTopicRequired
	}

	w, err := k.writer(topic)
	if err != nil {
		return err
	}

	if msg.PublishedAt.IsZero() {
		msg.PublishedAt = time.Now()
	}
	km := kafka.Message{
		Key:   []byte(msg.Key),
		Value: msg.Body,
		Time:  msg.PublishedAt,
	}
	if msg.ID != "" {
		km.Headers = append(km.Headers, kafka.Header{Key: kafkaHeaderID, Value: []byte(msg.ID)})
	}
	for key, value := range msg.Headers {
		km.Headers = append(km.Headers, kafka.Header{Key: key, Value: []byte(value)})
	}

	if err := w.WriteMessages(ctx, km); err != nil {
		return fmt.Errorf("messaging: kafka publish: %w", err)
	}

	return nil
}

func (k *Kafka) Subscribe(ctx context.Context, topic, group string, h Handler, opts ...SubscribeOption) error {
	if err := validateSubscribe(ctx, topic, group, h); err != nil {
		return err
	}
	o := newSubscribeOptions(opts)

	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  k.brokers,
		GroupID:  group,
		Topic:    topic,
		MaxBytes: kafkaMaxBytes,
		Dialer:   k.dialer,
	})
	if err := k.track(reader); err != nil {
		return errors.Join(err, reader.Close())
	}

	work := make(chan kafka.Message, o.maxInFlight)
	var wg sync.WaitGroup
	for range o.concurrency {
		wg.Go(func() {
			for km := range work {
				k.handle(ctx, reader, h, km)
			}
		})
	}

	var fetchErr error
	for {
		km, err := reader.FetchMessage(ctx)
		if err != nil {
			fetchErr = err
			break
		}
		work <- km
	}
	close(work)
	wg.Wait()

	closeErr := reader.Close()
	if errors.Is(fetchErr, context.Canceled) || errors.Is(fetchErr, context.DeadlineExceeded) {
		return errors.Join(ctx.Err(), closeErr)
	}

	return errors.Join(fmt.Errorf("messaging: kafka fetch: %w", fetchErr), closeErr)
}

// handle commits only messages whose handler succeeded.
func (k *Kafka) handle(ctx context.Context, reader *kafka.Reader, h Handler, km kafka.Message) {
	msg := Message{
		Topic:       km.Topic,
		Key:         string(km.Key),
		Body:        km.Value,
		Headers:     make(map[string]string, len(km.Headers)),
		PublishedAt: km.Time,
	}
	for _, header := range km.Headers {
		if header.Key == kafkaHeaderID {
			msg.ID = string(header.Value)
			continue
		}
		msg.Headers[header.Key] = string(header.Value)
	}
	if msg.ID == "" {
		msg.ID = fmt.Sprintf("%s-%d-%d", km.Topic, km.Partition, km.Offset)
	}

	if err := dispatch(ctx, DriverKafka, h, msg); err != nil {
		return
	}

	//nolint:errcheck // an uncommitted offset is redelivered
	reader.CommitMessages(ctx, km)
}

func (k *Kafka) writer(topic string) (*kafka.Writer, error) {
	k.mu.Lock()
	defer k.mu.Unlock()

	if k.closed {
		return nil, ErrClosed
	}
	if w, ok := k.writers[topic]; ok {
		return w, nil
	}

	w := &kafka.Writer{
		Addr:                   kafka.TCP(k.brokers...),
		Topic:                  topic,
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireAll,
		AllowAutoTopicCreation: true,
	}
	if k.dialer != nil {
		w.Transport = &kafka.Transport{
			TLS:  k.dialer.TLS,
			SASL: k.dialer.SASLMechanism,
		}
	}
	k.writers[topic] = w

	return w, nil
}

func (k *Kafka) track(r *kafka.Reader) error {
	k.mu.Lock()
	defer k.mu.Unlock()

	if k.closed {
		return ErrClosed
	}
	k.readers = append(k.readers, r)
	return nil
}

func (k *Kafka) Close() error {
	k.mu.Lock()
	if k.closed {
		k.mu.Unlock()
		return nil
	}
	k.closed = true
	writers := k.writers
	k.writers = nil
	readers := k.readers
	k.readers = nil
	k.mu.Unlock()

	var err error
	for _, r := range readers {
		err = errors.Join(err, r.Close())
	}
	for _, w := range writers {
		err = errors.Join(err, w.Close())
	}

	return err
}
