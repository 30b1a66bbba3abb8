package inbound

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shandysiswandi/twofa/internal/audit/entity"
	"github.com/shandysiswandi/twofa/internal/audit/usecase"
	"github.com/shandysiswandi/twofa/internal/pkg/config"
	"github.com/shandysiswandi/twofa/internal/pkg/goerror"
	"github.com/shandysiswandi/twofa/internal/pkg/goroutine"
	"github.com/shandysiswandi/twofa/internal/pkg/instrument"
	"github.com/shandysiswandi/twofa/internal/pkg/messaging"
	"github.com/shandysiswandi/twofa/internal/shared/event"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixedUUID string

func (f fixedUUID) Generate() string { return string(f) }

type recorder struct {
	mu      sync.Mutex
	inputs  []usecase.RecordInput
	cIDs    []string
	failure error
}

func (r *recorder) Record(ctx context.Context, in usecase.RecordInput) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.inputs = append(r.inputs, in)
	r.cIDs = append(r.cIDs, instrument.GetCorrelationID(ctx))
	return r.failure
}

func (r *recorder) List(context.Context, usecase.ListInput) (*usecase.ListOutput, error) {
	return &usecase.ListOutput{}, nil
}

func (r *recorder) recorded() []usecase.RecordInput {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]usecase.RecordInput(nil), r.inputs...)
}

func TestMQHandler(t *testing.T) {
	t.Parallel()

	t.Run("RecordsWithCorrelationID", func(t *testing.T) {
		t.Parallel()

		rec := &recorder{}
		h := &MQHandler{uc: rec, uuid: fixedUUID("generated"), ins: instrument.NewNoop()}

		err := h.AuthenticatorImported(context.Background(), messaging.Message{
			ID:      "m-1",
			Body:    []byte(`{"user_id":"7","source":"json","success":2,"failure":1,"imported_at":1772359200}`),
			Headers: map[string]string{messaging.HeaderCorrelationID: "c-1"},
		})
		require.NoError(t, err)

		got := rec.recorded()
		require.Len(t, got, 1)
		assert.Equal(t, int64(7), got[0].UserID)
		assert.Equal(t, entity.KindAuthenticatorImported, got[0].Kind)
		assert.Equal(t, "m-1", got[0].MessageID)
		assert.Equal(t, time.Unix(1772359200, 0).UTC(), got[0].OccurredAt)
		assert.Equal(t, []string{"c-1"}, rec.cIDs)
	})

	t.Run("BadPayloadIsAcked", func(t *testing.T) {
		t.Parallel()

		rec := &recorder{}
		h := &MQHandler{uc: rec, uuid: fixedUUID("generated"), ins: instrument.NewNoop()}

		err := h.UserRegistered(context.Background(), messaging.Message{ID: "m-1", Body: []byte(`not json`)})
		assert.NoError(t, err)
		assert.Empty(t, rec.recorded())
	})

	t.Run("InvalidEventIsDropped", func(t *testing.T) {
		t.Parallel()

		rec := &recorder{failure: goerror.NewInvalidInput(nil, "user_id", "required")}
		h := &MQHandler{uc: rec, uuid: fixedUUID("generated"), ins: instrument.NewNoop()}

		err := h.PasswordChanged(context.Background(), messaging.Message{ID: "m-1", Body: []byte(`{}`)})
		assert.NoError(t, err)
	})

	t.Run("StoreFailureIsRedelivered", func(t *testing.T) {
		t.Parallel()

		rec := &recorder{failure: goerror.NewServer(errors.New("db down"))}
		h := &MQHandler{uc: rec, uuid: fixedUUID("generated"), ins: instrument.NewNoop()}

		err := h.AuthenticatorExported(context.Background(), messaging.Message{Body: []byte(`{"user_id":"7","count":1}`)})
		assert.Error(t, err)

		got := rec.recorded()
		require.Len(t, got, 1)
		assert.Equal(t, "generated", got[0].MessageID)
		assert.True(t, got[0].OccurredAt.IsZero())
	})
}

func TestRegisterMQConsumer(t *testing.T) {
	t.Parallel()

	cfg, err := config.NewViperFromBytes("yaml", []byte(`
modules:
  audit:
    consumer_names:
      - identity.user.registered.audit
`))
	require.NoError(t, err)

	bus := messaging.NewMemory()
	t.Cleanup(func() { _ = bus.Close() })

	ctx, cancel := context.WithCancel(context.Background())
	routine := goroutine.NewManager(4)
	rec := &recorder{}

	RegisterMQConsumer(ctx, cfg, routine, bus, fixedUUID("generated"), rec, instrument.NewNoop())

	require.Eventually(t, func() bool {
		require.NoError(t, bus.Publish(ctx, event.UserRegisteredTopic, messaging.Message{
			ID:   "m-1",
			Body: []byte(`{"user_id":"7","username":"alice","registered_at":1772359200}`),
		}))
		return len(rec.recorded()) > 0
	}, 2*time.Second, 20*time.Millisecond)

	// consumers that are not enabled never subscribe
	require.NoError(t, bus.Publish(ctx, event.PasswordChangedTopic, messaging.Message{ID: "m-2", Body: []byte(`{"user_id":"7"}`)}))

	cancel()
	_ = routine.Wait()

	for _, in := range rec.recorded() {
		assert.Equal(t, entity.KindUserRegistered, in.Kind)
	}
}
