package usecase

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/shandysiswandi/twofa/internal/authenticator/entity"
	"github.com/shandysiswandi/twofa/internal/pkg/countdown"
	"github.com/shandysiswandi/twofa/internal/pkg/goerror"
)

const defaultStreamReload = 30 * time.Second

var errStreamEntryGone = errors.New("streamed entry no longer exists")

// StreamInput selects a single entry when ID is set, otherwise every entry of
// the caller.
type StreamInput struct {
	ID int64 `validate:"gte=0"`
}

// Stream drives a countdown for the caller until ctx is done or emit fails.
// Each connection gets its own driver. Entries are reloaded periodically so
// edits and deletes show up without reconnecting. A single entry stream ends
// after the tick that reports its entry was deleted.
func (s *Usecase) Stream(ctx context.Context, in StreamInput, emit countdown.Emit) error {
	ctx, span := s.startSpan(ctx, "Stream")
	defer span.End()

	clm, err := authenticated(ctx)
	if err != nil {
		return err
	}

	if err := s.validator.Validate(in); err != nil {
		return goerror.NewInvalidInput(err)
	}

	if in.ID > 0 {
		if _, err := s.get(ctx, in.ID, clm.UserID); err != nil {
			return err
		}
	}

	opts := []countdown.Option{countdown.WithClock(s.clock)}
	if d := s.cfg.GetSecond("modules.authenticator.stream_interval_seconds"); d > 0 {
		opts = append(opts, countdown.WithInterval(d))
	}
	driver := countdown.New(s.engine, opts...)

	run := emit
	if in.ID > 0 {
		run = func(t countdown.Tick) error {
			if err := emit(t); err != nil {
				return err
			}
			if errors.Is(t.Err, goerror.ErrNotFound) {
				return errStreamEntryGone
			}
			return nil
		}
	}

	slog.InfoContext(ctx, "code stream opened", "user_id", clm.UserID, "id", in.ID)
	err = driver.Run(ctx, s.reloadingSource(clm.UserID, in.ID), run)
	if errors.Is(err, errStreamEntryGone) {
		slog.InfoContext(ctx, "streamed entry was deleted", "user_id", clm.UserID, "id", in.ID)
		err = nil
	}
	slog.InfoContext(ctx, "code stream closed", "user_id", clm.UserID, "ticks", driver.Ticks(), "failures", driver.Failures())

	return err
}

func (s *Usecase) streamReload() time.Duration {
	if d := s.cfg.GetSecond("modules.authenticator.stream_reload_seconds"); d > 0 {
		return d
	}
	return defaultStreamReload
}

// reloadingSource caches opened targets and refreshes them from the database
// once the reload period has passed. A failed reload surfaces on that tick
// only; the next tick tries again.
func (s *Usecase) reloadingSource(userID, id int64) countdown.Source {
	var (
		targets  []countdown.Target
		loadedAt time.Time
		loaded   bool
	)
	every := s.streamReload()

	return func(ctx context.Context) ([]countdown.Target, error) {
		now := s.clock.Now()
		if loaded && now.Sub(loadedAt) < every {
			return targets, nil
		}

		items, err := s.streamItems(ctx, userID, id)
		if err != nil {
			slog.WarnContext(ctx, "failed to reload stream entries", "user_id", userID, "error", err)
			return nil, err
		}

		targets, loadedAt, loaded = s.targets(ctx, items), now, true
		return targets, nil
	}
}

func (s *Usecase) streamItems(ctx context.Context, userID, id int64) ([]entity.Authenticator, error) {
	if id == 0 {
		return s.repoDB.ListAll(ctx, userID)
	}

	a, err := s.repoDB.Get(ctx, id, userID)
	if err != nil {
		return nil, err
	}
	return []entity.Authenticator{*a}, nil
}
