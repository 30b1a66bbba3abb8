package inbound

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/shandysiswandi/twofa/internal/audit/entity"
	"github.com/shandysiswandi/twofa/internal/audit/usecase"
	"github.com/shandysiswandi/twofa/internal/pkg/goerror"
	"github.com/shandysiswandi/twofa/internal/pkg/instrument"
	"github.com/shandysiswandi/twofa/internal/pkg/messaging"
	"github.com/shandysiswandi/twofa/internal/pkg/uid"
	"github.com/shandysiswandi/twofa/internal/shared/event"
)

type MQHandler struct {
	uc   uc
	uuid uid.StringID
	ins  instrument.Instrumentation
}

func (h *MQHandler) ensureCorrelationID(ctx context.Context, msg messaging.Message) context.Context {
	if cID := msg.Header(messaging.HeaderCorrelationID); cID != "" {
		return instrument.SetCorrelationID(ctx, cID)
	}
	return instrument.SetCorrelationID(ctx, h.uuid.Generate())
}

func (h *MQHandler) messageID(msg messaging.Message) string {
	if msg.ID != "" {
		return msg.ID
	}
	return h.uuid.Generate()
}

func unix(sec int64) time.Time {
	if sec <= 0 {
		return time.Time{}
	}
	return time.Unix(sec, 0).UTC()
}

func (h *MQHandler) UserRegistered(ctx context.Context, msg messaging.Message) error {
	ctx = h.ensureCorrelationID(ctx, msg)

	ctx, span := h.ins.Tracer("audit.inbound.mq").Start(ctx, "UserRegistered")
	defer span.End()

	slog.InfoContext(ctx, "consume: user registered", "message_id", msg.ID)

	var payload event.UserRegisteredMessage
	if err := json.Unmarshal(msg.Body, &payload); err != nil {
		slog.ErrorContext(ctx, "failed to parse message body of user registered", "msg_body", string(msg.Body), "error", err)
		return nil
	}

	return h.record(ctx, usecase.RecordInput{
		UserID:     payload.UserID,
		Kind:       entity.KindUserRegistered,
		MessageID:  h.messageID(msg),
		Detail:     msg.Body,
		OccurredAt: unix(payload.RegisteredAt),
	})
}

func (h *MQHandler) PasswordChanged(ctx context.Context, msg messaging.Message) error {
	ctx = h.ensureCorrelationID(ctx, msg)

	ctx, span := h.ins.Tracer("audit.inbound.mq").Start(ctx, "PasswordChanged")
	defer span.End()

	slog.InfoContext(ctx, "consume: password changed", "message_id", msg.ID)

	var payload event.PasswordChangedMessage
	if err := json.Unmarshal(msg.Body, &payload); err != nil {
		slog.ErrorContext(ctx, "failed to parse message body of password changed", "msg_body", string(msg.Body), "error", err)
		return nil
	}

	return h.record(ctx, usecase.RecordInput{
		UserID:     payload.UserID,
		Kind:       entity.KindPasswordChanged,
		MessageID:  h.messageID(msg),
		Detail:     msg.Body,
		OccurredAt: unix(payload.ChangedAt),
	})
}

func (h *MQHandler) AuthenticatorImported(ctx context.Context, msg messaging.Message) error {
	ctx = h.ensureCorrelationID(ctx, msg)

	ctx, span := h.ins.Tracer("audit.inbound.mq").Start(ctx, "AuthenticatorImported")
	defer span.End()

	slog.InfoContext(ctx, "consume: authenticator imported", "message_id", msg.ID)

	var payload event.AuthenticatorImportedMessage
	if err := json.Unmarshal(msg.Body, &payload); err != nil {
		slog.ErrorContext(ctx, "failed to parse message body of authenticator imported", "msg_body", string(msg.Body), "error", err)
		return nil
	}

	return h.record(ctx, usecase.RecordInput{
		UserID:     payload.UserID,
		Kind:       entity.KindAuthenticatorImported,
		MessageID:  h.messageID(msg),
		Detail:     msg.Body,
		OccurredAt: unix(payload.ImportedAt),
	})
}

func (h *MQHandler) AuthenticatorExported(ctx context.Context, msg messaging.Message) error {
	ctx = h.ensureCorrelationID(ctx, msg)

	ctx, span := h.ins.Tracer("audit.inbound.mq").Start(ctx, "AuthenticatorExported")
	defer span.End()

	slog.InfoContext(ctx, "consume: authenticator exported", "message_id", msg.ID)

	var payload event.AuthenticatorExportedMessage
	if err := json.Unmarshal(msg.Body, &payload); err != nil {
		slog.ErrorContext(ctx, "failed to parse message body of authenticator exported", "msg_body", string(msg.Body), "error", err)
		return nil
	}

	return h.record(ctx, usecase.RecordInput{
		UserID:     payload.UserID,
		Kind:       entity.KindAuthenticatorExported,
		MessageID:  h.messageID(msg),
		Detail:     msg.Body,
		OccurredAt: unix(payload.ExportedAt),
	})
}

// record drops messages that can never be stored and asks for redelivery on
// anything else.
func (h *MQHandler) record(ctx context.Context, in usecase.RecordInput) error {
	err := h.uc.Record(ctx, in)
	if err == nil {
		return nil
	}

	if goerror.HasCode(err, goerror.CodeInvalidInput) {
		slog.ErrorContext(ctx, "dropping invalid audit message", "kind", in.Kind, "message_id", in.MessageID, "error", err)
		return nil
	}

	slog.ErrorContext(ctx, "failed to record audit event", "kind", in.Kind, "message_id", in.MessageID, "error", err)
	return err
}
