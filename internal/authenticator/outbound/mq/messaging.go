package mq

import (
	"context"
	"encoding/json"
	"strconv"

	"github.com/shandysiswandi/twofa/internal/authenticator/usecase"
	"github.com/shandysiswandi/twofa/internal/pkg/instrument"
	"github.com/shandysiswandi/twofa/internal/pkg/messaging"
	"github.com/shandysiswandi/twofa/internal/pkg/uid"
	"github.com/shandysiswandi/twofa/internal/shared/event"
	"go.opentelemetry.io/otel/codes"
)

type Messaging struct {
	client messaging.Publisher
	uuid   uid.StringID
	ins    instrument.Instrumentation
}

func NewMessaging(client messaging.Publisher, uuid uid.StringID, ins instrument.Instrumentation) *Messaging {
	return &Messaging{client: client, uuid: uuid, ins: ins}
}

func (m *Messaging) PublishImported(ctx context.Context, msg usecase.ImportedEvent) error {
	return m.publish(ctx, "PublishImported", event.AuthenticatorImportedTopic, msg.UserID, event.AuthenticatorImportedMessage{
		UserID:     msg.UserID,
		Source:     msg.Source,
		Success:    msg.Success,
		Failure:    msg.Failure,
		ImportedAt: msg.ImportedAt.Unix(),
	})
}

func (m *Messaging) PublishExported(ctx context.Context, msg usecase.ExportedEvent) error {
	return m.publish(ctx, "PublishExported", event.AuthenticatorExportedTopic, msg.UserID, event.AuthenticatorExportedMessage{
		UserID:     msg.UserID,
		Count:      msg.Count,
		Uploaded:   msg.Uploaded,
		ObjectKey:  msg.ObjectKey,
		ExportedAt: msg.ExportedAt.Unix(),
	})
}

func (m *Messaging) publish(ctx context.Context, name, topic string, userID int64, payload any) error {
	ctx, span := m.ins.Tracer("authenticator.outbound.mq").Start(ctx, name)
	defer span.End()

	body, err := json.Marshal(payload)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}

	err = m.client.Publish(ctx, topic, messaging.Message{
		ID:      m.uuid.Generate(),
		Key:     strconv.FormatInt(userID, 10),
		Body:    body,
		Headers: map[string]string{messaging.HeaderCorrelationID: instrument.GetCorrelationID(ctx)},
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}

	return err
}
