package usecase

import (
	"context"
	"log/slog"
	"strings"

	"github.com/samber/lo"
	"github.com/shandysiswandi/twofa/internal/authenticator/entity"
	"github.com/shandysiswandi/twofa/internal/pkg/goerror"
)

const defaultListTake = 100

type ListInput struct {
	Take   int    `validate:"gte=0,lte=100"`
	Skip   int    `validate:"gte=0"`
	Tag    string `validate:"omitempty,tag"`
	Search string `validate:"max=64"`
}

type ListOutput struct {
	Items []Item
	Total int64
	Take  int
	Skip  int
}

func (s *Usecase) List(ctx context.Context, in ListInput) (*ListOutput, error) {
	ctx, span := s.startSpan(ctx, "List")
	defer span.End()

	clm, err := authenticated(ctx)
	if err != nil {
		return nil, err
	}

	if err := s.validator.Validate(in); err != nil {
		return nil, goerror.NewInvalidInput(err)
	}
	if in.Take == 0 {
		in.Take = defaultListTake
	}

	items, total, err := s.repoDB.List(ctx, entity.ListFilter{
		UserID: clm.UserID,
		Take:   in.Take,
		Skip:   in.Skip,
		Tag:    strings.ToLower(strings.TrimSpace(in.Tag)),
		Search: strings.TrimSpace(in.Search),
	})
	if err != nil {
		slog.ErrorContext(ctx, "failed to repo list authenticators", "user_id", clm.UserID, "error", err)
		return nil, goerror.NewServer(err)
	}

	return &ListOutput{
		Items: lo.Map(items, func(a entity.Authenticator, _ int) Item { return toItem(a) }),
		Total: total,
		Take:  in.Take,
		Skip:  in.Skip,
	}, nil
}
