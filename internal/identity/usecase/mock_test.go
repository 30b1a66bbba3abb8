package usecase

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/shandysiswandi/twofa/internal/identity/entity"
	"github.com/shandysiswandi/twofa/internal/pkg/clock"
	"github.com/shandysiswandi/twofa/internal/pkg/config"
	"github.com/shandysiswandi/twofa/internal/pkg/hash"
	"github.com/shandysiswandi/twofa/internal/pkg/instrument"
	"github.com/shandysiswandi/twofa/internal/pkg/jwt"
	"github.com/shandysiswandi/twofa/internal/pkg/validator"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockRepoDB struct{ mock.Mock }

func (m *mockRepoDB) GetUserByUsername(ctx context.Context, username string) (*entity.User, error) {
	args := m.Called(ctx, username)
	u, _ := args.Get(0).(*entity.User)
	return u, args.Error(1)
}

func (m *mockRepoDB) GetUserByID(ctx context.Context, id int64) (*entity.User, error) {
	args := m.Called(ctx, id)
	u, _ := args.Get(0).(*entity.User)
	return u, args.Error(1)
}

func (m *mockRepoDB) GetSessionByTokenHash(ctx context.Context, tokenHash string) (*entity.SessionUser, error) {
	args := m.Called(ctx, tokenHash)
	su, _ := args.Get(0).(*entity.SessionUser)
	return su, args.Error(1)
}

func (m *mockRepoDB) CreateUser(ctx context.Context, user entity.User) error {
	return m.Called(ctx, user).Error(0)
}

func (m *mockRepoDB) CreateSession(ctx context.Context, sess entity.Session) error {
	return m.Called(ctx, sess).Error(0)
}

func (m *mockRepoDB) RotateSession(ctx context.Context, ro entity.RotateSession) error {
	return m.Called(ctx, ro).Error(0)
}

func (m *mockRepoDB) RevokeSession(ctx context.Context, id int64, at time.Time) error {
	return m.Called(ctx, id, at).Error(0)
}

func (m *mockRepoDB) RevokeAllSessions(ctx context.Context, userID int64, at time.Time) (int64, error) {
	args := m.Called(ctx, userID, at)
	return args.Get(0).(int64), args.Error(1)
}

func (m *mockRepoDB) ChangePassword(ctx context.Context, userID int64, hash string, at time.Time) (int64, error) {
	args := m.Called(ctx, userID, hash, at)
	return args.Get(0).(int64), args.Error(1)
}

type mockRepoMessaging struct{ mock.Mock }

func (m *mockRepoMessaging) PublishUserRegistered(ctx context.Context, msg UserRegisteredEvent) error {
	return m.Called(ctx, msg).Error(0)
}

func (m *mockRepoMessaging) PublishPasswordChanged(ctx context.Context, msg PasswordChangedEvent) error {
	return m.Called(ctx, msg).Error(0)
}

type mockRepoThrottle struct{ mock.Mock }

func (m *mockRepoThrottle) LoginFailures(ctx context.Context, username string) (int64, error) {
	args := m.Called(ctx, username)
	return args.Get(0).(int64), args.Error(1)
}

func (m *mockRepoThrottle) AddLoginFailure(ctx context.Context, username string, window time.Duration) (int64, error) {
	args := m.Called(ctx, username, window)
	return args.Get(0).(int64), args.Error(1)
}

func (m *mockRepoThrottle) ResetLoginFailures(ctx context.Context, username string) error {
	return m.Called(ctx, username).Error(0)
}

type mockRepoRecaptcha struct{ mock.Mock }

func (m *mockRepoRecaptcha) Verify(ctx context.Context, token, remoteIP string) (bool, error) {
	args := m.Called(ctx, token, remoteIP)
	return args.Bool(0), args.Error(1)
}

type seqID struct{ next int64 }

func (s *seqID) Generate() int64 {
	s.next++
	return s.next
}

type seqToken struct{ n int }

func (s *seqToken) Generate() string {
	s.n++
	return "token-" + strings.Repeat("x", s.n)
}

var testNow = time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

type fixture struct {
	uc        *Usecase
	db        *mockRepoDB
	msg       *mockRepoMessaging
	throttle  *mockRepoThrottle
	recaptcha *mockRepoRecaptcha
	bcrypt    hash.Hash
	hmac      hash.Hash
	jwt       jwt.JWT
}

func newFixture(t *testing.T, cfgYAML string) *fixture {
	t.Helper()

	cfg, err := config.NewViperFromBytes("yaml", []byte(cfgYAML))
	require.NoError(t, err)

	v, err := validator.NewV10Validator()
	require.NoError(t, err)

	clk := clock.Fixed(testNow)
	j, err := jwt.NewHS512(jwt.Config{
		Secret: []byte(strings.Repeat("k", 64)),
		Issuer: "twofa-test",
		TTL:    time.Hour,
		Clock:  clk,
		UUID:   &seqToken{},
	})
	require.NoError(t, err)

	f := &fixture{
		db:        &mockRepoDB{},
		msg:       &mockRepoMessaging{},
		throttle:  &mockRepoThrottle{},
		recaptcha: &mockRepoRecaptcha{},
		bcrypt:    hash.NewBcrypt(4, ""),
		hmac:      hash.NewHMACSHA256("hmac-secret"),
		jwt:       j,
	}

	f.uc = New(Dependency{
		RepoDB:        f.db,
		RepoMessaging: f.msg,
		RepoThrottle:  f.throttle,
		RepoRecaptcha: f.recaptcha,
		Validator:     v,
		Config:        cfg,
		HMAC:          f.hmac,
		Bcrypt:        f.bcrypt,
		UID:           &seqID{next: 100},
		Token:         &seqToken{},
		Clock:         clk,
		JWT:           j,
		Instrument:    instrument.NewNoop(),
	})

	t.Cleanup(func() {
		f.db.AssertExpectations(t)
		f.msg.AssertExpectations(t)
		f.throttle.AssertExpectations(t)
		f.recaptcha.AssertExpectations(t)
	})

	return f
}

func (f *fixture) hashOf(t *testing.T, s string) string {
	t.Helper()
	h, err := f.hmac.Hash(s)
	require.NoError(t, err)
	return string(h)
}

func (f *fixture) bcryptOf(t *testing.T, s string) string {
	t.Helper()
	h, err := f.bcrypt.Hash(s)
	require.NoError(t, err)
	return string(h)
}

func authCtx(userID int64) context.Context {
	return jwt.SetAuth(context.Background(), jwt.Claims{UserID: userID, Username: "alice", Role: "user"})
}
