package messaging

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemory_FanOutPerGroup(t *testing.T) {
	t.Parallel()

	m := NewMemory()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var mu sync.Mutex
	got := map[string][]string{}
	record := func(group string) Handler {
		return func(_ context.Context, msg Message) error {
			mu.Lock()
			defer mu.Unlock()
			got[group] = append(got[group], string(msg.Body))
			return nil
		}
	}

	ready := make(chan struct{}, 2)
	for _, group := range []string{"audit", "mailer"} {
		go func() {
			_, err := m.queue("t.created", group)
			ready <- struct{}{}
			if err == nil {
				//nolint:errcheck // returns ctx.Err on cancel
				m.Subscribe(ctx, "t.created", group, record(group))
			}
		}()
	}
	<-ready
	<-ready

	require.NoError(t, m.Publish(ctx, "t.created", Message{Body: []byte(`{"n":1}`)}))
	require.NoError(t, m.Publish(ctx, "t.other", Message{Body: []byte(`{"n":2}`)}))

	assert.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(got["audit"]) == 1 && len(got["mailer"]) == 1
	}, time.Second, 10*time.Millisecond)
}

func TestMemory_RetryOnceThenDrop(t *testing.T) {
	t.Parallel()

	m := NewMemory()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	_, err := m.queue("t", "g")
	require.NoError(t, err)

	var mu sync.Mutex
	calls := 0
	go func() {
		//nolint:errcheck // returns ctx.Err on cancel
		m.Subscribe(ctx, "t", "g", func(context.Context, Message) error {
			mu.Lock()
			defer mu.Unlock()
			calls++
			panic("boom")
		})
	}()

	require.NoError(t, m.Publish(ctx, "t", Message{Body: []byte("x")}))

	assert.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return calls == 2
	}, time.Second, 10*time.Millisecond)
}

func TestMemory_Closed(t *testing.T) {
	t.Parallel()

	m := NewMemory()
	require.NoError(t, m.Close())
	require.NoError(t, m.Close())

	assert.ErrorIs(t, m.Publish(context.Background(), "t", Message{}), ErrClosed)
	assert.ErrorIs(t, m.Subscribe(context.Background(), "t", "g", func(context.Context, Message) error { return nil }), ErrClosed)
}

func TestValidateSubscribe(t *testing.T) {
	t.Parallel()

	h := func(context.Context, Message) error { return nil }
	canceled, cancel := context.WithCancel(context.Background())
	cancel()

	tests := []struct {
		name  string
		ctx   context.Context
		topic string
		group string
		h     Handler
		want  error
	}{
		{name: "Canceled", ctx: canceled, topic: "t", group: "g", h: h, want: context.Canceled},
		{name: "NoTopic", ctx: context.Background(), group: "g", h: h, want: ErrTopicRequired},
		{name: "NoGroup", ctx: context.Background(), topic: "t", h: h, want: ErrGroupRequired},
		{name: "NoHandler", ctx: context.Background(), topic: "t", group: "g", want: ErrHandlerRequired},
		{name: "Ok", ctx: context.Background(), topic: "t", group: "g", h: h},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.ErrorIs(t, validateSubscribe(tt.ctx, tt.topic, tt.group, tt.h), tt.want)
		})
	}
}

func TestSubscribeOptions(t *testing.T) {
	t.Parallel()

	o := newSubscribeOptions(nil)
	assert.Equal(t, 1, o.concurrency)
	assert.Equal(t, 1, o.maxInFlight)

	o = newSubscribeOptions([]SubscribeOption{WithConcurrency(4), WithMaxInFlight(2), nil})
	assert.Equal(t, 4, o.concurrency)
	assert.Equal(t, 4, o.maxInFlight)

	o = newSubscribeOptions([]SubscribeOption{WithConcurrency(-1), WithMaxInFlight(16)})
	assert.Equal(t, 1, o.concurrency)
	assert.Equal(t, 16, o.maxInFlight)
}

func TestEnvelope(t *testing.T) {
	t.Parallel()

	at := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

	raw, err := seal(Message{
		ID:          "1",
		Key:         "42",
		Body:        []byte(`{"user_id":"42"}`),
		Headers:     map[string]string{HeaderCorrelationID: "c-1"},
		PublishedAt: at,
	})
	require.NoError(t, err)

	msg, err := unseal("identity.user.registered", raw)
	require.NoError(t, err)
	assert.Equal(t, "identity.user.registered", msg.Topic)
	assert.JSONEq(t, `{"user_id":"42"}`, string(msg.Body))
	assert.Equal(t, "c-1", msg.Header(HeaderCorrelationID))
	assert.True(t, at.Equal(msg.PublishedAt))

	raw, err = seal(Message{Body: []byte("plain text")})
	require.NoError(t, err)
	msg, err = unseal("t", raw)
	require.NoError(t, err)
	assert.Equal(t, "plain text", string(msg.Body))

	_, err = unseal("t", []byte("not json"))
	assert.Error(t, err)
}

func TestDispatch_RecoversPanic(t *testing.T) {
	t.Parallel()

	err := dispatch(context.Background(), DriverMemory, func(context.Context, Message) error {
		panic("kaboom")
	}, Message{Topic: "t"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "kaboom")
}

type flakyPublisher struct {
	failures int
	calls    int
	err      error
}

func (f *flakyPublisher) Publish(context.Context, string, Message) error {
	f.calls++
	if f.calls <= f.failures {
		return f.err
	}
	return nil
}

func TestRetryPublisher(t *testing.T) {
	t.Parallel()

	t.Run("RecoversFromTransientFailure", func(t *testing.T) {
		t.Parallel()
		next := &flakyPublisher{failures: 2, err: errors.New("broker down")}
		p := NewRetryPublisher(next, 3, time.Millisecond)

		require.NoError(t, p.Publish(context.Background(), "t", Message{}))
		assert.Equal(t, 3, next.calls)
	})

	t.Run("GivesUp", func(t *testing.T) {
		t.Parallel()
		errDown := errors.New("broker down")
		next := &flakyPublisher{failures: 10, err: errDown}
		p := NewRetryPublisher(next, 3, time.Millisecond)

		assert.ErrorIs(t, p.Publish(context.Background(), "t", Message{}), errDown)
		assert.Equal(t, 3, next.calls)
	})

	t.Run("PermanentError", func(t *testing.T) {
		t.Parallel()
		next := &flakyPublisher{failures: 10, err: ErrClosed}
		p := NewRetryPublisher(next, 3, time.Millisecond)

		assert.ErrorIs(t, p.Publish(context.Background(), "t", Message{}), ErrClosed)
		assert.Equal(t, 1, next.calls)
	})
}

func TestNew_UnknownDriver(t *testing.T) {
	t.Parallel()

	_, err := New(context.Background(), "carrier-pigeon", Options{})
	assert.ErrorIs(t, err, ErrUnknownDriver)

	m, err := New(context.Background(), " Memory ", Options{})
	require.NoError(t, err)
	assert.IsType(t, &Memory{}, m)
	require.NoError(t, m.Close())
}
