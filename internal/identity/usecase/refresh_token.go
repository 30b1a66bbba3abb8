package usecase

import (
	"context"
	"errors"
	"log/slog"

	"github.com/shandysiswandi/twofa/internal/identity/entity"
	"github.com/shandysiswandi/twofa/internal/pkg/goerror"
)

type RefreshTokenInput struct {
	RefreshToken string `validate:"required"`
	UserAgent    string
	RemoteIP     string
}

func (s *Usecase) RefreshToken(ctx context.Context, in RefreshTokenInput) (*TokenPair, error) {
	ctx, span := s.startSpan(ctx, "RefreshToken")
	defer span.End()

	if err := s.validator.Validate(in); err != nil {
		return nil, goerror.NewInvalidInput(err)
	}

	oldHash, err := s.hmac.Hash(in.RefreshToken)
	if err != nil {
		slog.ErrorContext(ctx, "failed to hash old refresh token", "error", err)
		return nil, goerror.NewServer(err)
	}

	su, err := s.repoDB.GetSessionByTokenHash(ctx, string(oldHash))
	if errors.Is(err, goerror.ErrNotFound) {
		slog.WarnContext(ctx, "refresh session not found")
		return nil, goerror.NewBusiness("invalid or expired refresh token", goerror.CodeUnauthorized)
	}
	if err != nil {
		slog.ErrorContext(ctx, "failed to repo get session by token", "error", err)
		return nil, goerror.NewServer(err)
	}

	now := s.clock.Now()

	if su.Rotated() {
		n, err := s.repoDB.RevokeAllSessions(ctx, su.UserID, now)
		if err != nil {
			slog.ErrorContext(ctx, "failed to repo revoke all sessions", "user_id", su.UserID, "error", err)
		}

		slog.WarnContext(ctx, "refresh token reuse detected", "user_id", su.UserID, "session_id", su.ID, "revoked", n)
		return nil, goerror.NewBusiness("token reuse detected, please log in again", goerror.CodeForbidden)
	}

	if su.Revoked() || !now.Before(su.ExpiresAt) {
		slog.WarnContext(ctx, "refresh session revoked or expired", "session_id", su.ID)
		return nil, goerror.NewBusiness("invalid or expired refresh token", goerror.CodeUnauthorized)
	}

	user := &entity.User{ID: su.UserID, Username: su.Username, Role: su.Role}
	pair, next, err := s.issueTokens(ctx, user, sessionMeta{UserAgent: in.UserAgent, IPAddress: in.RemoteIP})
	if err != nil {
		slog.ErrorContext(ctx, "failed to issue tokens", "user_id", su.UserID, "error", err)
		return nil, goerror.NewServer(err)
	}

	err = s.repoDB.RotateSession(ctx, entity.RotateSession{
		OldID:     su.ID,
		UserID:    su.UserID,
		New:       *next,
		RevokedAt: now,
	})
	if errors.Is(err, goerror.ErrNotFound) {
		// lost a race with a concurrent refresh or logout of the same token
		slog.WarnContext(ctx, "refresh session already rotated or revoked", "session_id", su.ID)
		return nil, goerror.NewBusiness("invalid or expired refresh token", goerror.CodeUnauthorized)
	}
	if err != nil {
		slog.ErrorContext(ctx, "failed to repo rotate session", "session_id", su.ID, "error", err)
		return nil, goerror.NewServer(err)
	}

	return pair, nil
}
