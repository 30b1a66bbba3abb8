package usecase

import (
	"bytes"
	"context"
	"encoding/base64"
	"testing"
	"time"

	"github.com/shandysiswandi/twofa/internal/authenticator/entity"
	"github.com/shandysiswandi/twofa/internal/pkg/clock"
	"github.com/shandysiswandi/twofa/internal/pkg/config"
	"github.com/shandysiswandi/twofa/internal/pkg/idempotency"
	"github.com/shandysiswandi/twofa/internal/pkg/instrument"
	"github.com/shandysiswandi/twofa/internal/pkg/jwt"
	"github.com/shandysiswandi/twofa/internal/pkg/secretbox"
	"github.com/shandysiswandi/twofa/internal/pkg/storage"
	"github.com/shandysiswandi/twofa/internal/pkg/validator"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

const testSecret = "JBSWY3DPEHPK3PXP"

var testNow = time.Date(2026, 3, 1, 10, 0, 7, 0, time.UTC)

type mockRepoDB struct{ mock.Mock }

func (m *mockRepoDB) Get(ctx context.Context, id, userID int64) (*entity.Authenticator, error) {
	args := m.Called(ctx, id, userID)
	a, _ := args.Get(0).(*entity.Authenticator)
	return a, args.Error(1)
}

func (m *mockRepoDB) List(ctx context.Context, filter entity.ListFilter) ([]entity.Authenticator, int64, error) {
	args := m.Called(ctx, filter)
	as, _ := args.Get(0).([]entity.Authenticator)
	return as, args.Get(1).(int64), args.Error(2)
}

func (m *mockRepoDB) ListAll(ctx context.Context, userID int64) ([]entity.Authenticator, error) {
	args := m.Called(ctx, userID)
	as, _ := args.Get(0).([]entity.Authenticator)
	return as, args.Error(1)
}

func (m *mockRepoDB) Create(ctx context.Context, a entity.Authenticator) error {
	return m.Called(ctx, a).Error(0)
}

func (m *mockRepoDB) CreateMany(ctx context.Context, as []entity.Authenticator) error {
	return m.Called(ctx, as).Error(0)
}

func (m *mockRepoDB) Update(ctx context.Context, p entity.Patch) error {
	return m.Called(ctx, p).Error(0)
}

func (m *mockRepoDB) Delete(ctx context.Context, id, userID int64) error {
	return m.Called(ctx, id, userID).Error(0)
}

type mockRepoMessaging struct{ mock.Mock }

func (m *mockRepoMessaging) PublishImported(ctx context.Context, msg ImportedEvent) error {
	return m.Called(ctx, msg).Error(0)
}

func (m *mockRepoMessaging) PublishExported(ctx context.Context, msg ExportedEvent) error {
	return m.Called(ctx, msg).Error(0)
}

type mockIdempotency struct{ mock.Mock }

func (m *mockIdempotency) Exec(ctx context.Context, key string, fn func(context.Context) ([]byte, error), opts ...idempotency.Option) ([]byte, bool, error) {
	args := m.Called(ctx, key)
	if run, _ := args.Get(0).(bool); run {
		out, err := fn(ctx)
		return out, false, err
	}
	raw, _ := args.Get(1).([]byte)
	return raw, args.Bool(2), args.Error(3)
}

type mockStore struct{ mock.Mock }

func (m *mockStore) Close() error { return nil }

func (m *mockStore) Put(ctx context.Context, key string, body []byte, opts storage.PutOptions) (storage.Object, error) {
	args := m.Called(ctx, key, body, opts)
	return args.Get(0).(storage.Object), args.Error(1)
}

func (m *mockStore) Get(ctx context.Context, key string, limit int64) ([]byte, storage.Object, error) {
	args := m.Called(ctx, key, limit)
	body, _ := args.Get(0).([]byte)
	return body, storage.Object{Key: key}, args.Error(1)
}

func (m *mockStore) Delete(ctx context.Context, key string) error {
	return m.Called(ctx, key).Error(0)
}

func (m *mockStore) List(ctx context.Context, prefix string) ([]storage.Object, error) {
	args := m.Called(ctx, prefix)
	objs, _ := args.Get(0).([]storage.Object)
	return objs, args.Error(1)
}

func (m *mockStore) SignedURL(ctx context.Context, key string, expiry time.Duration) (string, error) {
	args := m.Called(ctx, key, expiry)
	return args.String(0), args.Error(1)
}

type seqID struct{ next int64 }

func (s *seqID) Generate() int64 {
	s.next++
	return s.next
}

type fixture struct {
	uc    *Usecase
	db    *mockRepoDB
	msg   *mockRepoMessaging
	idemp *mockIdempotency
	store *mockStore
	box   *secretbox.Box
}

type fixtureOption func(*Dependency, *fixture)

// withStorage plugs a mock object store into the usecase.
func withStorage() fixtureOption {
	return func(dep *Dependency, f *fixture) { dep.Storage = f.store }
}

func withIdempotency() fixtureOption {
	return func(dep *Dependency, f *fixture) { dep.Idempotency = f.idemp }
}

func newFixture(t *testing.T, cfgYAML string, opts ...fixtureOption) *fixture {
	t.Helper()

	cfg, err := config.NewViperFromBytes("yaml", []byte(cfgYAML))
	require.NoError(t, err)

	v, err := validator.NewV10Validator()
	require.NoError(t, err)

	ring, err := secretbox.ParseKeyring(1, map[string]string{
		"1": base64.StdEncoding.EncodeToString(bytes.Repeat([]byte{7}, 32)),
	})
	require.NoError(t, err)

	f := &fixture{
		db:    &mockRepoDB{},
		msg:   &mockRepoMessaging{},
		idemp: &mockIdempotency{},
		store: &mockStore{},
		box:   secretbox.New(ring),
	}

	dep := Dependency{
		RepoDB:        f.db,
		RepoMessaging: f.msg,
		Box:           f.box,
		Validator:     v,
		Config:        cfg,
		UID:           &seqID{next: 100},
		Clock:         clock.Fixed(testNow),
		Instrument:    instrument.NewNoop(),
	}
	for _, opt := range opts {
		opt(&dep, f)
	}
	f.uc = New(dep)

	t.Cleanup(func() {
		f.db.AssertExpectations(t)
		f.msg.AssertExpectations(t)
		f.idemp.AssertExpectations(t)
		f.store.AssertExpectations(t)
	})

	return f
}

// stored returns a row whose secret is sealed the way Create seals it.
func (f *fixture) stored(t *testing.T, userID, id int64, name, secret string) *entity.Authenticator {
	t.Helper()

	sealed, err := f.box.Seal([]byte(secret), scope(userID, id))
	require.NoError(t, err)

	return &entity.Authenticator{
		ID:        id,
		UserID:    userID,
		Name:      name,
		Tags:      []string{},
		Secret:    sealed,
		CreatedAt: testNow,
		UpdatedAt: testNow,
	}
}

func (f *fixture) opened(t *testing.T, a entity.Authenticator) string {
	t.Helper()

	plain, err := f.box.Open(a.Secret, scope(a.UserID, a.ID))
	require.NoError(t, err)
	return string(plain)
}

func authCtx(userID int64) context.Context {
	return jwt.SetAuth(context.Background(), jwt.Claims{UserID: userID, Username: "alice", Role: "user"})
}
