package usecase

import (
	"context"
	"log/slog"
	"strings"

	"github.com/shandysiswandi/twofa/internal/authenticator/entity"
	"github.com/shandysiswandi/twofa/internal/pkg/goerror"
	"github.com/shandysiswandi/twofa/internal/pkg/otp"
)

type CreateInput struct {
	Name        string   `validate:"required,max=32"`
	Description string   `validate:"max=256"`
	Tags        []string `validate:"max=10,dive,tag"`
	Secret      string   `validate:"required,base32secret"`
}

func (s *Usecase) Create(ctx context.Context, in CreateInput) (*Item, error) {
	ctx, span := s.startSpan(ctx, "Create")
	defer span.End()

	clm, err := authenticated(ctx)
	if err != nil {
		return nil, err
	}

	in.Name = strings.TrimSpace(in.Name)
	in.Description = strings.TrimSpace(in.Description)
	if err := s.validator.Validate(in); err != nil {
		return nil, goerror.NewInvalidInput(err)
	}

	a, err := s.newAuthenticator(clm.UserID, in)
	if err != nil {
		slog.ErrorContext(ctx, "failed to seal authenticator secret", "user_id", clm.UserID, "error", err)
		return nil, goerror.NewServer(err)
	}

	if err := s.repoDB.Create(ctx, *a); err != nil {
		slog.ErrorContext(ctx, "failed to repo create authenticator", "user_id", clm.UserID, "error", err)
		return nil, goerror.NewServer(err)
	}

	item := toItem(*a)
	return &item, nil
}

// newAuthenticator builds a row for an already validated input. The secret is
// stored in its normalized form.
func (s *Usecase) newAuthenticator(userID int64, in CreateInput) (*entity.Authenticator, error) {
	secret, err := otp.NormalizeSecret(in.Secret)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now()
	a := &entity.Authenticator{
		ID:          s.uid.Generate(),
		UserID:      userID,
		Name:        in.Name,
		Description: in.Description,
		Tags:        normalizeTags(in.Tags),
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	a.Secret, err = s.seal(userID, a.ID, secret)
	if err != nil {
		return nil, err
	}

	return a, nil
}
