package usecase

import (
	"context"
	"log/slog"
)

// publishImported reports an import. Publish failures never fail the import.
func (s *Usecase) publishImported(ctx context.Context, userID int64, source string, success, failure int) {
	if err := s.repoMessaging.PublishImported(ctx, ImportedEvent{
		UserID:     userID,
		Source:     source,
		Success:    success,
		Failure:    failure,
		ImportedAt: s.clock.Now(),
	}); err != nil {
		slog.ErrorContext(ctx, "failed to publish authenticator imported", "user_id", userID, "error", err)
	}
}
