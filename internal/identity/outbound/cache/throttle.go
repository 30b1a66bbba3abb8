package cache

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/shandysiswandi/twofa/internal/pkg/instrument"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const keyLoginFailures = "identity:login_failures:"

// Throttle counts failed logins per username in redis. The window starts at
// the first failure and is not extended by later ones.
type Throttle struct {
	client redis.UniversalClient
	ins    instrument.Instrumentation
}

func NewThrottle(client redis.UniversalClient, ins instrument.Instrumentation) *Throttle {
	return &Throttle{client: client, ins: ins}
}

func (t *Throttle) startSpan(ctx context.Context, name string) (context.Context, trace.Span) {
	return t.ins.Tracer("identity.outbound.cache").Start(ctx, name)
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

func (t *Throttle) LoginFailures(ctx context.Context, username string) (_ int64, err error) {
	ctx, span := t.startSpan(ctx, "LoginFailures")
	defer func() { endSpan(span, err) }()

	n, err := t.client.Get(ctx, keyLoginFailures+username).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}

	return n, err
}

func (t *Throttle) AddLoginFailure(ctx context.Context, username string, window time.Duration) (_ int64, err error) {
	ctx, span := t.startSpan(ctx, "AddLoginFailure")
	defer func() { endSpan(span, err) }()

	key := keyLoginFailures + username

	var incr *redis.IntCmd
	_, err = t.client.TxPipelined(ctx, func(p redis.Pipeliner) error {
		incr = p.Incr(ctx, key)
		p.ExpireNX(ctx, key, window)
		return nil
	})
	if err != nil {
		return 0, err
	}

	return incr.Val(), nil
}

func (t *Throttle) ResetLoginFailures(ctx context.Context, username string) (err error) {
	ctx, span := t.startSpan(ctx, "ResetLoginFailures")
	defer func() { endSpan(span, err) }()

	err = t.client.Del(ctx, keyLoginFailures+username).Err()
	return err
}
