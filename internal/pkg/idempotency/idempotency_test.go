//go:build integration

package idempotency

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tcredis "github.com/testcontainers/testcontainers-go/modules/redis"
)

func newRedis(t *testing.T) *redis.Client {
	t.Helper()

	ctx := context.Background()
	container, err := tcredis.Run(ctx, "redis:7-alpine")
	require.NoError(t, err)
	t.Cleanup(func() { _ = container.Terminate(context.Background()) })

	uri, err := container.ConnectionString(ctx)
	require.NoError(t, err)
	opt, err := redis.ParseURL(uri)
	require.NoError(t, err)

	client := redis.NewClient(opt)
	t.Cleanup(func() { _ = client.Close() })

	return client
}

func TestRedis_Exec(t *testing.T) {
	ctx := context.Background()
	s := New(newRedis(t), "test:")

	calls := 0
	fn := func(context.Context) ([]byte, error) {
		calls++
		return []byte(`{"success":2}`), nil
	}

	res, replayed, err := s.Exec(ctx, "k1", fn)
	require.NoError(t, err)
	assert.False(t, replayed)
	assert.JSONEq(t, `{"success":2}`, string(res))

	res, replayed, err = s.Exec(ctx, "k1", fn)
	require.NoError(t, err)
	assert.True(t, replayed)
	assert.JSONEq(t, `{"success":2}`, string(res))
	assert.Equal(t, 1, calls)
}

func TestRedis_ExecFailureReleasesKey(t *testing.T) {
	ctx := context.Background()
	s := New(newRedis(t), "")
	errBoom := errors.New("boom")

	_, _, err := s.Exec(ctx, "k2", func(context.Context) ([]byte, error) { return nil, errBoom })
	assert.ErrorIs(t, err, errBoom)

	res, replayed, err := s.Exec(ctx, "k2", func(context.Context) ([]byte, error) { return []byte(`1`), nil })
	require.NoError(t, err)
	assert.False(t, replayed)
	assert.Equal(t, "1", string(res))
}

func TestRedis_ExecInProgress(t *testing.T) {
	ctx := context.Background()
	s := New(newRedis(t), "")

	started := make(chan struct{})
	release := make(chan struct{})
	go func() {
		_, _, _ = s.Exec(ctx, "k3", func(context.Context) ([]byte, error) {
			close(started)
			<-release
			return []byte(`1`), nil
		}, WithLockDuration(time.Minute))
	}()

	<-started
	_, _, err := s.Exec(ctx, "k3", func(context.Context) ([]byte, error) { return nil, nil })
	assert.ErrorIs(t, err, ErrAlreadyInProgress)
	close(release)
}
