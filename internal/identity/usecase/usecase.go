package usecase

import (
	"context"
	"time"

	"github.com/shandysiswandi/twofa/internal/identity/entity"
	"github.com/shandysiswandi/twofa/internal/pkg/clock"
	"github.com/shandysiswandi/twofa/internal/pkg/config"
	"github.com/shandysiswandi/twofa/internal/pkg/hash"
	"github.com/shandysiswandi/twofa/internal/pkg/instrument"
	"github.com/shandysiswandi/twofa/internal/pkg/jwt"
	"github.com/shandysiswandi/twofa/internal/pkg/uid"
	"github.com/shandysiswandi/twofa/internal/pkg/validator"
	"go.opentelemetry.io/otel/trace"
)

type UserRegisteredEvent struct {
	UserID       int64
	Username     string
	RegisteredAt time.Time
}

type PasswordChangedEvent struct {
	UserID          int64
	RevokedSessions int64
	ChangedAt       time.Time
}

type repoMessaging interface {
	PublishUserRegistered(ctx context.Context, msg UserRegisteredEvent) error
	PublishPasswordChanged(ctx context.Context, msg PasswordChangedEvent) error
}

type repoDB interface {
	GetUserByUsername(ctx context.Context, username string) (*entity.User, error)
	GetUserByID(ctx context.Context, id int64) (*entity.User, error)
	GetSessionByTokenHash(ctx context.Context, tokenHash string) (*entity.SessionUser, error)

	CreateUser(ctx context.Context, user entity.User) error
	CreateSession(ctx context.Context, sess entity.Session) error

	RotateSession(ctx context.Context, ro entity.RotateSession) error
	RevokeSession(ctx context.Context, id int64, at time.Time) error
	RevokeAllSessions(ctx context.Context, userID int64, at time.Time) (int64, error)
	ChangePassword(ctx context.Context, userID int64, hash string, at time.Time) (int64, error)
}

type repoThrottle interface {
	LoginFailures(ctx context.Context, username string) (int64, error)
	AddLoginFailure(ctx context.Context, username string, window time.Duration) (int64, error)
	ResetLoginFailures(ctx context.Context, username string) error
}

type repoRecaptcha interface {
	Verify(ctx context.Context, token, remoteIP string) (bool, error)
}

type Usecase struct {
	repoDB        repoDB
	repoMessaging repoMessaging
	repoThrottle  repoThrottle
	repoRecaptcha repoRecaptcha
	validator     validator.Validator
	cfg           config.Config
	hmac          hash.Hash
	bcrypt        hash.Hash
	uid           uid.NumberID
	token         uid.StringID
	clock         clock.Clocker
	jwt           jwt.JWT
	ins           instrument.Instrumentation
}

type Dependency struct {
	RepoDB        repoDB
	RepoMessaging repoMessaging
	RepoThrottle  repoThrottle
	RepoRecaptcha repoRecaptcha
	Validator     validator.Validator
	Config        config.Config
	HMAC          hash.Hash
	Bcrypt        hash.Hash
	UID           uid.NumberID
	Token         uid.StringID
	Clock         clock.Clocker
	JWT           jwt.JWT
	Instrument    instrument.Instrumentation
}

func New(dep Dependency) *Usecase {
	return &Usecase{
		repoDB:        dep.RepoDB,
		repoMessaging: dep.RepoMessaging,
		repoThrottle:  dep.RepoThrottle,
		repoRecaptcha: dep.RepoRecaptcha,
		validator:     dep.Validator,
		cfg:           dep.Config,
		hmac:          dep.HMAC,
		bcrypt:        dep.Bcrypt,
		uid:           dep.UID,
		token:         dep.Token,
		clock:         dep.Clock,
		jwt:           dep.JWT,
		ins:           dep.Instrument,
	}
}

func (s *Usecase) startSpan(ctx context.Context, name string) (context.Context, trace.Span) {
	return s.ins.Tracer("identity.usecase").Start(ctx, name)
}

func (s *Usecase) refreshTTL() time.Duration {
	if ttl := s.cfg.GetHour("modules.identity.refresh_token_ttl_hours"); ttl > 0 {
		return ttl
	}
	return 30 * 24 * time.Hour
}

// TokenPair is what a successful login or refresh hands back.
type TokenPair struct {
	AccessToken     string
	AccessExpiresAt time.Time
	RefreshToken    string
}

type sessionMeta struct {
	UserAgent string
	IPAddress string
}

// issueTokens mints a refresh session for user and an access token bound to it.
func (s *Usecase) issueTokens(ctx context.Context, user *entity.User, meta sessionMeta) (*TokenPair, *entity.Session, error) {
	refToken := s.token.Generate()
	refTokenHash, err := s.hmac.Hash(refToken)
	if err != nil {
		return nil, nil, err
	}

	now := s.clock.Now()
	sess := &entity.Session{
		ID:        s.uid.Generate(),
		UserID:    user.ID,
		TokenHash: string(refTokenHash),
		UserAgent: meta.UserAgent,
		IPAddress: meta.IPAddress,
		ExpiresAt: now.Add(s.refreshTTL()),
		CreatedAt: now,
	}

	acToken, exp, err := s.jwt.Generate(jwt.Subject{
		UserID:    user.ID,
		Username:  user.Username,
		Role:      user.Role.String(),
		SessionID: sess.ID,
	})
	if err != nil {
		return nil, nil, err
	}

	return &TokenPair{AccessToken: acToken, AccessExpiresAt: exp, RefreshToken: refToken}, sess, nil
}
