package inbound

import (
	"context"
	"errors"
	"log/slog"
	"slices"

	"github.com/shandysiswandi/twofa/internal/pkg/config"
	"github.com/shandysiswandi/twofa/internal/pkg/goroutine"
	"github.com/shandysiswandi/twofa/internal/pkg/instrument"
	"github.com/shandysiswandi/twofa/internal/pkg/messaging"
	"github.com/shandysiswandi/twofa/internal/pkg/uid"
	"github.com/shandysiswandi/twofa/internal/shared/event"
)

func RegisterMQConsumer(
	ctx context.Context,
	cfg config.Config,
	routine *goroutine.Manager,
	subscriber messaging.Subscriber,
	uuid uid.StringID,
	uc uc,
	ins instrument.Instrumentation,
) {
	mqHandler := &MQHandler{uc: uc, uuid: uuid, ins: ins}

	enableConsumerNames := cfg.GetArray("modules.audit.consumer_names")

	concurrency := cfg.GetInt("modules.audit.concurrency")
	if concurrency <= 0 {
		concurrency = 4
	}

	var consumers = []struct {
		group   string // consumer name, also the broker group/channel/subscription
		topic   string // destination where publisher sent message
		handler messaging.Handler
	}{
		{group: event.UserRegisteredAudit, topic: event.UserRegisteredTopic, handler: mqHandler.UserRegistered},
		{group: event.PasswordChangedAudit, topic: event.PasswordChangedTopic, handler: mqHandler.PasswordChanged},
		{group: event.AuthenticatorImportedAudit, topic: event.AuthenticatorImportedTopic, handler: mqHandler.AuthenticatorImported},
		{group: event.AuthenticatorExportedAudit, topic: event.AuthenticatorExportedTopic, handler: mqHandler.AuthenticatorExported},
	}

	for _, consumer := range consumers {
		if !slices.Contains(enableConsumerNames, consumer.group) {
			continue
		}

		routine.Go(ctx, consumer.group, func(pCtx context.Context) error {
			slog.InfoContext(ctx, "Running job for handling consumer", "consumer", consumer.group, "topic", consumer.topic)
			err := subscriber.Subscribe(pCtx,
				consumer.topic,
				consumer.group,
				consumer.handler,
				messaging.WithConcurrency(concurrency),
				messaging.WithMaxInFlight(concurrency),
			)
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		})
	}
}
