package usecase

import (
	"context"
	"errors"
	"log/slog"

	"github.com/shandysiswandi/twofa/internal/pkg/goerror"
)

type LogoutInput struct {
	RefreshToken string `validate:"required"`
}

// Logout revokes the session behind the refresh token. Unknown or already
// revoked tokens succeed so a client can always clear its local state.
func (s *Usecase) Logout(ctx context.Context, in LogoutInput) error {
	ctx, span := s.startSpan(ctx, "Logout")
	defer span.End()

	if err := s.validator.Validate(in); err != nil {
		return goerror.NewInvalidInput(err)
	}

	tokenHash, err := s.hmac.Hash(in.RefreshToken)
	if err != nil {
		slog.ErrorContext(ctx, "failed to hash refresh token", "error", err)
		return goerror.NewServer(err)
	}

	su, err := s.repoDB.GetSessionByTokenHash(ctx, string(tokenHash))
	if errors.Is(err, goerror.ErrNotFound) {
		return nil
	}
	if err != nil {
		slog.ErrorContext(ctx, "failed to repo get session by token", "error", err)
		return goerror.NewServer(err)
	}
	if su.Revoked() {
		return nil
	}

	if err := s.repoDB.RevokeSession(ctx, su.ID, s.clock.Now()); err != nil && !errors.Is(err, goerror.ErrNotFound) {
		slog.ErrorContext(ctx, "failed to repo revoke session", "session_id", su.ID, "error", err)
		return goerror.NewServer(err)
	}

	return nil
}
