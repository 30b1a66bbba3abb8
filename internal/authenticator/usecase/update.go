package usecase

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/shandysiswandi/twofa/internal/authenticator/entity"
	"github.com/shandysiswandi/twofa/internal/pkg/goerror"
)

// UpdateInput patches an entry. Nil fields are left untouched.
type UpdateInput struct {
	ID          int64     `validate:"required,gt=0"`
	Name        *string   `validate:"omitnil,min=1,max=32"`
	Description *string   `validate:"omitnil,max=256"`
	Tags        *[]string `validate:"omitnil,max=10,dive,tag"`
}

func (s *Usecase) Update(ctx context.Context, in UpdateInput) (*Item, error) {
	ctx, span := s.startSpan(ctx, "Update")
	defer span.End()

	clm, err := authenticated(ctx)
	if err != nil {
		return nil, err
	}

	if in.Name != nil {
		*in.Name = strings.TrimSpace(*in.Name)
	}
	if in.Description != nil {
		*in.Description = strings.TrimSpace(*in.Description)
	}
	if err := s.validator.Validate(in); err != nil {
		return nil, goerror.NewInvalidInput(err)
	}

	p := entity.Patch{
		ID:          in.ID,
		UserID:      clm.UserID,
		Name:        in.Name,
		Description: in.Description,
		UpdatedAt:   s.clock.Now(),
	}
	if in.Tags != nil {
		tags := normalizeTags(*in.Tags)
		p.Tags = &tags
	}

	if !p.Empty() {
		err = s.repoDB.Update(ctx, p)
		if errors.Is(err, goerror.ErrNotFound) {
			slog.WarnContext(ctx, "authenticator not found", "id", in.ID, "user_id", clm.UserID)
			return nil, goerror.NewBusiness("authenticator not found", goerror.CodeNotFound)
		}
		if err != nil {
			slog.ErrorContext(ctx, "failed to repo update authenticator", "id", in.ID, "error", err)
			return nil, goerror.NewServer(err)
		}
	}

	a, err := s.get(ctx, in.ID, clm.UserID)
	if err != nil {
		return nil, err
	}

	item := toItem(*a)
	return &item, nil
}
