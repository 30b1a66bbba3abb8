package usecase

import (
	"context"
	"log/slog"

	"github.com/shandysiswandi/twofa/internal/pkg/goerror"
)

type DetailOutput struct {
	Item
	Secret string
}

func (s *Usecase) Detail(ctx context.Context, id int64) (*DetailOutput, error) {
	ctx, span := s.startSpan(ctx, "Detail")
	defer span.End()

	clm, err := authenticated(ctx)
	if err != nil {
		return nil, err
	}

	a, err := s.get(ctx, id, clm.UserID)
	if err != nil {
		return nil, err
	}

	secret, err := s.open(a)
	if err != nil {
		slog.ErrorContext(ctx, "failed to open authenticator secret", "id", id, "error", err)
		return nil, goerror.NewServer(err)
	}

	return &DetailOutput{Item: toItem(*a), Secret: secret}, nil
}
