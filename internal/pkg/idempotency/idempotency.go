// Package idempotency makes retried requests return the first result instead
// of running twice. State lives in redis so every API replica sees it.
package idempotency

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

var (
	ErrAlreadyInProgress = errors.New("operation already in progress")
	ErrInvalidState      = errors.New("invalid idempotency state")
)

type State string

const (
	StateInProgress State = "in_progress"
	StateCompleted  State = "completed"
)

type record struct {
	State  State           `json:"state"`
	Result json.RawMessage `json:"result,omitempty"`
}

// Idempotency runs fn at most once per key while the record is alive.
type Idempotency interface {
	Exec(ctx context.Context, key string, fn func(context.Context) ([]byte, error), opts ...Option) (result []byte, replayed bool, err error)
}

const (
	defaultLockDuration = time.Minute
	defaultResultTTL    = 24 * time.Hour
)

type Option func(*execOptions)

type execOptions struct {
	lockDuration time.Duration
	resultTTL    time.Duration
}

// WithLockDuration bounds how long an in-flight key blocks duplicates.
func WithLockDuration(d time.Duration) Option {
	return func(o *execOptions) {
		if d > 0 {
			o.lockDuration = d
		}
	}
}

// WithResultTTL sets how long a completed result is replayed.
func WithResultTTL(d time.Duration) Option {
	return func(o *execOptions) {
		if d > 0 {
			o.resultTTL = d
		}
	}
}

type Redis struct {
	client redis.UniversalClient
	prefix string
}

func New(client redis.UniversalClient, prefix string) *Redis {
	if prefix == "" {
		prefix = "idempotency:"
	}

	return &Redis{client: client, prefix: prefix}
}

// Exec acquires key, runs fn and stores its result. A completed key returns
// the stored result with replayed set. A key still in flight returns
// ErrAlreadyInProgress. A failed fn releases the key so the client may retry.
func (s *Redis) Exec(ctx context.Context, key string, fn func(context.Context) ([]byte, error), opts ...Option) ([]byte, bool, error) {
	o := execOptions{lockDuration: defaultLockDuration, resultTTL: defaultResultTTL}
	for _, opt := range opts {
		opt(&o)
	}

	fk := s.prefix + key
	pending, err := json.Marshal(record{State: StateInProgress})
	if err != nil {
		return nil, false, err
	}

	acquired, err := s.client.SetNX(ctx, fk, pending, o.lockDuration).Result()
	if err != nil {
		return nil, false, err
	}

	if !acquired {
		raw, err := s.client.Get(ctx, fk).Bytes()
		if errors.Is(err, redis.Nil) {
			// expired between SetNX and Get
			return s.Exec(ctx, key, fn, opts...)
		}
		if err != nil {
			return nil, false, err
		}

		var rec record
		if err := json.Unmarshal(raw, &rec); err != nil {
			return nil, false, ErrInvalidState
		}

		switch rec.State {
		case StateInProgress:
			return nil, false, ErrAlreadyInProgress
		case StateCompleted:
			return rec.Result, true, nil
		default:
			return nil, false, ErrInvalidState
		}
	}

	result, err := fn(ctx)
	if err != nil {
		if delErr := s.client.Del(context.WithoutCancel(ctx), fk).Err(); delErr != nil {
			return nil, false, errors.Join(err, delErr)
		}
		return nil, false, err
	}

	done, err := json.Marshal(record{State: StateCompleted, Result: result})
	if err != nil {
		return nil, false, err
	}
	if err := s.client.Set(context.WithoutCancel(ctx), fk, done, o.resultTTL).Err(); err != nil {
		return nil, false, err
	}

	return result, false, nil
}
