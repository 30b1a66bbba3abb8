package usecase

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/shandysiswandi/twofa/internal/pkg/goerror"
)

type LoginInput struct {
	Username       string `validate:"required"`
	Password       string `validate:"required"`
	RecaptchaToken string
	UserAgent      string
	RemoteIP       string
}

const (
	defaultLoginMaxAttempts = 5
	defaultLoginLock        = 15 * time.Minute
)

func (s *Usecase) maxLoginAttempts() int64 {
	if n := s.cfg.GetInt("modules.identity.login_max_attempts"); n > 0 {
		return int64(n)
	}
	return defaultLoginMaxAttempts
}

func (s *Usecase) Login(ctx context.Context, in LoginInput) (*TokenPair, error) {
	ctx, span := s.startSpan(ctx, "Login")
	defer span.End()

	in.Username = strings.ToLower(strings.TrimSpace(in.Username))

	if err := s.validator.Validate(in); err != nil {
		return nil, goerror.NewInvalidInput(err)
	}

	if err := s.checkRecaptcha(ctx, in.RecaptchaToken, in.RemoteIP); err != nil {
		return nil, err
	}

	failures, err := s.repoThrottle.LoginFailures(ctx, in.Username)
	if err != nil {
		// the throttle is best effort, a redis outage must not lock everyone out
		slog.ErrorContext(ctx, "failed to read login failures", "username", in.Username, "error", err)
	}
	if failures >= s.maxLoginAttempts() {
		slog.WarnContext(ctx, "login throttled", "username", in.Username, "failures", failures)
		return nil, goerror.NewBusiness("too many failed login attempts, try again later", goerror.CodeTooManyRequest)
	}

	user, err := s.repoDB.GetUserByUsername(ctx, in.Username)
	if errors.Is(err, goerror.ErrNotFound) {
		slog.WarnContext(ctx, "user account not found", "username", in.Username)
		s.recordLoginFailure(ctx, in.Username)
		return nil, goerror.NewBusiness("invalid username or password", goerror.CodeUnauthorized)
	}
	if err != nil {
		slog.ErrorContext(ctx, "failed to repo get user by username", "username", in.Username, "error", err)
		return nil, goerror.NewServer(err)
	}

	if !s.bcrypt.Verify(user.Password, in.Password) {
		slog.WarnContext(ctx, "password user account not match", "user_id", user.ID)
		s.recordLoginFailure(ctx, in.Username)
		return nil, goerror.NewBusiness("invalid username or password", goerror.CodeUnauthorized)
	}

	pair, sess, err := s.issueTokens(ctx, user, sessionMeta{UserAgent: in.UserAgent, IPAddress: in.RemoteIP})
	if err != nil {
		slog.ErrorContext(ctx, "failed to issue tokens", "user_id", user.ID, "error", err)
		return nil, goerror.NewServer(err)
	}

	if err := s.repoDB.CreateSession(ctx, *sess); err != nil {
		slog.ErrorContext(ctx, "failed to repo create session", "user_id", user.ID, "error", err)
		return nil, goerror.NewServer(err)
	}

	if failures > 0 {
		if err := s.repoThrottle.ResetLoginFailures(ctx, in.Username); err != nil {
			slog.ErrorContext(ctx, "failed to reset login failures", "user_id", user.ID, "error", err)
		}
	}

	return pair, nil
}

func (s *Usecase) recordLoginFailure(ctx context.Context, username string) {
	window := s.cfg.GetMinute("modules.identity.login_lock_minutes")
	if window <= 0 {
		window = defaultLoginLock
	}

	if _, err := s.repoThrottle.AddLoginFailure(ctx, username, window); err != nil {
		slog.ErrorContext(ctx, "failed to record login failure", "username", username, "error", err)
	}
}
