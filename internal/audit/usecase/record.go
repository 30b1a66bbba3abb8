package usecase

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/shandysiswandi/twofa/internal/audit/entity"
	"github.com/shandysiswandi/twofa/internal/pkg/goerror"
)

type RecordInput struct {
	UserID    int64       `validate:"required,gt=0"`
	Kind      entity.Kind `validate:"required"`
	MessageID string      `validate:"required,max=128"`
	Detail    json.RawMessage
	// OccurredAt falls back to now when zero.
	OccurredAt time.Time
}

// Record stores one activity entry. Recording the same message twice is not
// an error.
func (s *Usecase) Record(ctx context.Context, in RecordInput) error {
	ctx, span := s.startSpan(ctx, "Record")
	defer span.End()

	if err := s.validator.Validate(in); err != nil {
		return goerror.NewInvalidInput(err)
	}

	at := in.OccurredAt
	if at.IsZero() {
		at = s.clock.Now()
	}
	detail := in.Detail
	if len(detail) == 0 {
		detail = json.RawMessage(`{}`)
	}

	created, err := s.repoDB.CreateEvent(ctx, entity.Event{
		ID:        s.uid.Generate(),
		UserID:    in.UserID,
		Kind:      in.Kind,
		MessageID: in.MessageID,
		Detail:    detail,
		CreatedAt: at,
	})
	if err != nil {
		slog.ErrorContext(ctx, "failed to repo create audit event", "kind", in.Kind, "message_id", in.MessageID, "error", err)
		return goerror.NewServer(err)
	}
	if !created {
		slog.InfoContext(ctx, "audit event already recorded", "kind", in.Kind, "message_id", in.MessageID)
	}

	return nil
}
