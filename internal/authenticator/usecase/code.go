package usecase

import (
	"context"
	"log/slog"
	"strconv"

	"github.com/shandysiswandi/twofa/internal/authenticator/entity"
	"github.com/shandysiswandi/twofa/internal/pkg/countdown"
	"github.com/shandysiswandi/twofa/internal/pkg/goerror"
)

type CodeOutput struct {
	ID        int64
	Name      string
	Code      string
	Remaining int
	Period    uint
	Step      uint64
}

func (s *Usecase) Code(ctx context.Context, id int64) (*CodeOutput, error) {
	ctx, span := s.startSpan(ctx, "Code")
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

	now := s.clock.Now()
	code, err := s.engine.Code(secret, now)
	if err != nil {
		slog.WarnContext(ctx, "failed to derive code", "id", id, "error", err)
		return nil, goerror.NewBusiness("stored secret is not valid base32", goerror.CodeInvalidFormat)
	}

	return &CodeOutput{
		ID:        a.ID,
		Name:      a.Name,
		Code:      code,
		Remaining: s.engine.Remaining(now),
		Period:    s.engine.Period(),
		Step:      s.engine.Counter(now),
	}, nil
}

type CodesOutput struct {
	Remaining int
	Period    uint
	Step      uint64
	Items     []CodeOutput
}

// Codes derives the current code of every entry the caller owns. An entry
// whose secret cannot be used shows otp.ErrorMarker instead of failing the
// whole call.
func (s *Usecase) Codes(ctx context.Context) (*CodesOutput, error) {
	ctx, span := s.startSpan(ctx, "Codes")
	defer span.End()

	clm, err := authenticated(ctx)
	if err != nil {
		return nil, err
	}

	items, err := s.repoDB.ListAll(ctx, clm.UserID)
	if err != nil {
		slog.ErrorContext(ctx, "failed to repo list all authenticators", "user_id", clm.UserID, "error", err)
		return nil, goerror.NewServer(err)
	}

	tick := s.countdown().Tick(ctx, s.staticSource(ctx, items))

	out := &CodesOutput{
		Remaining: tick.Remaining,
		Period:    s.engine.Period(),
		Step:      s.engine.Counter(tick.At),
		Items:     make([]CodeOutput, 0, len(tick.Frames)),
	}
	for i, f := range tick.Frames {
		out.Items = append(out.Items, CodeOutput{
			ID:        items[i].ID,
			Name:      f.Label,
			Code:      f.Code,
			Remaining: f.Remaining,
			Period:    out.Period,
			Step:      f.Step,
		})
	}

	return out, nil
}

// unreadableSecret is outside the Base32 alphabet, so the engine rejects it.
const unreadableSecret = "-"

// targets opens every secret. A secret that cannot be opened is replaced by
// unreadableSecret so its frame carries the error marker.
func (s *Usecase) targets(ctx context.Context, items []entity.Authenticator) []countdown.Target {
	out := make([]countdown.Target, 0, len(items))
	for i := range items {
		secret, err := s.open(&items[i])
		if err != nil {
			slog.WarnContext(ctx, "failed to open authenticator secret", "id", items[i].ID, "error", err)
			secret = unreadableSecret
		}

		out = append(out, countdown.Target{
			Key:    strconv.FormatInt(items[i].ID, 10),
			Label:  items[i].Name,
			Secret: secret,
		})
	}

	return out
}

func (s *Usecase) staticSource(ctx context.Context, items []entity.Authenticator) countdown.Source {
	targets := s.targets(ctx, items)
	return func(context.Context) ([]countdown.Target, error) {
		return targets, nil
	}
}
