package messaging

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

const memoryBuffer = 256

// Memory is an in-process broker for single binary deployments and tests.
// Each group gets its own buffered queue; a failed message is retried once
// after a short delay and then dropped with an error log.
type Memory struct {
	mu     sync.RWMutex
	groups map[string]map[string]chan Message
	closed bool
}

func NewMemory() *Memory {
	return &Memory{groups: map[string]map[string]chan Message{}}
}

func (m *Memory) Publish(ctx context.Context, topic string, msg Message) error {
	if topic == "" {
		return ErrTopicRequired
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return ErrClosed
	}

	msg.Topic = topic
	if msg.PublishedAt.IsZero() {
		msg.PublishedAt = time.Now()
	}

	for _, ch := range m.groups[topic] {
		select {
		case ch <- msg:
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	return nil
}

func (m *Memory) Subscribe(ctx context.Context, topic, group string, h Handler, opts ...SubscribeOption) error {
	if err := validateSubscribe(ctx, topic, group, h); err != nil {
		return err
	}
	o := newSubscribeOptions(opts)

	ch, err := m.queue(topic, group)
	if err != nil {
		return err
	}

	var wg sync.WaitGroup
	for range o.concurrency {
		wg.Go(func() {
			for {
				select {
				case <-ctx.Done():
					return
				case msg, ok := <-ch:
					if !ok {
						return
					}
					m.deliver(ctx, h, msg)
				}
			}
		})
	}
	wg.Wait()

	return ctx.Err()
}

func (m *Memory) deliver(ctx context.Context, h Handler, msg Message) {
	for attempt := 1; ; attempt++ {
		err := dispatch(ctx, DriverMemory, h, msg)
		if err == nil {
			return
		}
		if attempt == 2 || ctx.Err() != nil {
			slog.ErrorContext(ctx, "memory broker dropped message", "topic", msg.Topic, "attempt", attempt, "error", err)
			return
		}

		select {
		case <-time.After(50 * time.Millisecond):
		case <-ctx.Done():
			return
		}
	}
}

func (m *Memory) queue(topic, group string) (chan Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return nil, ErrClosed
	}

	if m.groups[topic] == nil {
		m.groups[topic] = map[string]chan Message{}
	}
	ch, ok := m.groups[topic][group]
	if !ok {
		ch = make(chan Message, memoryBuffer)
		m.groups[topic][group] = ch
	}

	return ch, nil
}

func (m *Memory) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return nil
	}
	m.closed = true
	for _, groups := range m.groups {
		for _, ch := range groups {
			close(ch)
		}
	}

	return nil
}
