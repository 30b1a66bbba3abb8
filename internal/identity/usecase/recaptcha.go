package usecase

import (
	"context"
	"log/slog"
	"strings"

	"github.com/shandysiswandi/twofa/internal/pkg/goerror"
)

// checkRecaptcha is a no-op unless modules.identity.recaptcha.enabled is set.
func (s *Usecase) checkRecaptcha(ctx context.Context, token, remoteIP string) error {
	if !s.cfg.GetBool("modules.identity.recaptcha.enabled") {
		return nil
	}

	if strings.TrimSpace(token) == "" {
		return goerror.NewBusiness("recaptcha token is required", goerror.CodeInvalidInput)
	}

	ok, err := s.repoRecaptcha.Verify(ctx, token, remoteIP)
	if err != nil {
		slog.ErrorContext(ctx, "failed to verify recaptcha", "error", err)
		return goerror.NewServer(err)
	}
	if !ok {
		slog.WarnContext(ctx, "recaptcha rejected", "remote_ip", remoteIP)
		return goerror.NewBusiness("invalid recaptcha", goerror.CodeInvalidInput)
	}

	return nil
}
