package messaging

import (
	"context"
	"errors"
	"time"

	"github.com/sethvargo/go-retry"
)

// RetryPublisher retries transient publish failures with capped exponential
// backoff before giving up.
type RetryPublisher struct {
	next     Publisher
	attempts uint64
	base     time.Duration
}

func NewRetryPublisher(next Publisher, attempts uint64, base time.Duration) *RetryPublisher {
	if attempts == 0 {
		attempts = 3
	}
	if base <= 0 {
		base = 100 * time.Millisecond
	}

	return &RetryPublisher{next: next, attempts: attempts, base: base}
}

func (r *RetryPublisher) Publish(ctx context.Context, topic string, msg Message) error {
	b := retry.NewExponential(r.base)
	b = retry.WithCappedDuration(2*time.Second, b)
	b = retry.WithMaxRetries(r.attempts-1, b)

	return retry.Do(ctx, b, func(ctx context.Context) error {
		if err := r.next.Publish(ctx, topic, msg); err != nil {
			if errors.Is(err, ErrTopicRequired) || errors.Is(err, ErrClosed) {
				return err
			}
			return retry.RetryableError(err)
		}
		return nil
	})
}
