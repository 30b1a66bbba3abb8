package usecase

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/samber/lo"
	"github.com/shandysiswandi/twofa/internal/audit/entity"
	"github.com/shandysiswandi/twofa/internal/pkg/goerror"
	"github.com/shandysiswandi/twofa/internal/pkg/jwt"
)

const defaultListTake = 50

type ListInput struct {
	Take int `validate:"gte=0,lte=100"`
	Skip int `validate:"gte=0"`
}

type EventOutput struct {
	ID        int64
	Kind      string
	Detail    json.RawMessage
	CreatedAt time.Time
}

type ListOutput struct {
	Events []EventOutput
	Total  int64
	Take   int
	Skip   int
}

func (s *Usecase) List(ctx context.Context, in ListInput) (*ListOutput, error) {
	ctx, span := s.startSpan(ctx, "List")
	defer span.End()

	clm := jwt.GetAuth(ctx)
	if clm == nil {
		return nil, goerror.NewBusiness("authentication required", goerror.CodeUnauthorized)
	}

	if err := s.validator.Validate(in); err != nil {
		return nil, goerror.NewInvalidInput(err)
	}
	if in.Take == 0 {
		in.Take = defaultListTake
	}

	events, total, err := s.repoDB.ListEvents(ctx, clm.UserID, in.Take, in.Skip)
	if err != nil {
		slog.ErrorContext(ctx, "failed to repo list audit events", "user_id", clm.UserID, "error", err)
		return nil, goerror.NewServer(err)
	}

	return &ListOutput{
		Events: lo.Map(events, func(e entity.Event, _ int) EventOutput {
			return EventOutput{ID: e.ID, Kind: e.Kind.String(), Detail: e.Detail, CreatedAt: e.CreatedAt}
		}),
		Total: total,
		Take:  in.Take,
		Skip:  in.Skip,
	}, nil
}
