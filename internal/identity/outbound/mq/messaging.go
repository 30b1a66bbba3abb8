package mq

import (
	"context"
	"encoding/json"
	"strconv"

	"github.com/shandysiswandi/twofa/internal/identity/usecase"
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

func (m *Messaging) PublishUserRegistered(ctx context.Context, msg usecase.UserRegisteredEvent) error {
	return m.publish(ctx, "PublishUserRegistered", event.UserRegisteredTopic, msg.UserID, event.UserRegisteredMessage{
		UserID:       msg.UserID,
		Username:     msg.Username,
		RegisteredAt: msg.RegisteredAt.Unix(),
	})
}

func (m *Messaging) PublishPasswordChanged(ctx context.Context, msg usecase.PasswordChangedEvent) error {
	return m.publish(ctx, "PublishPasswordChanged", event.PasswordChangedTopic, msg.UserID, event.PasswordChangedMessage{
		UserID:          msg.UserID,
		RevokedSessions: msg.RevokedSessions,
		ChangedAt:       msg.ChangedAt.Unix(),
	})
}

func (m *Messaging) publish(ctx context.Context, span, topic string, userID int64, payload any) error {
	ctx, sp := m.ins.Tracer("identity.outbound.mq").Start(ctx, span)
	defer sp.End()

	body, err := json.Marshal(payload)
	if err != nil {
		sp.RecordError(err)
		sp.SetStatus(codes.Error, err.Error())
		return err
	}

	if err := m.client.Publish(ctx, topic, messaging.Message{
		ID:      m.uuid.Generate(),
		Key:     strconv.FormatInt(userID, 10),
		Body:    body,
		Headers: map[string]string{messaging.HeaderCorrelationID: instrument.GetCorrelationID(ctx)},
	}); err != nil {
		sp.RecordError(err)
		sp.SetStatus(codes.Error, err.Error())
		return err
	}

	return nil
}
