package usecase

import (
	"context"
	"errors"
	"log/slog"

	"github.com/shandysiswandi/twofa/internal/pkg/goerror"
)

func (s *Usecase) Delete(ctx context.Context, id int64) error {
	ctx, span := s.startSpan(ctx, "Delete")
	defer span.End()

	clm, err := authenticated(ctx)
	if err != nil {
		return err
	}

	err = s.repoDB.Delete(ctx, id, clm.UserID)
	if errors.Is(err, goerror.ErrNotFound) {
		slog.WarnContext(ctx, "authenticator not found", "id", id, "user_id", clm.UserID)
		return goerror.NewBusiness("authenticator not found", goerror.CodeNotFound)
	}
	if err != nil {
		slog.ErrorContext(ctx, "failed to repo delete authenticator", "id", id, "error", err)
		return goerror.NewServer(err)
	}

	return nil
}
