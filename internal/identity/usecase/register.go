package usecase

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/shandysiswandi/twofa/internal/identity/entity"
	"github.com/shandysiswandi/twofa/internal/pkg/goerror"
)

type RegisterInput struct {
	Username       string `validate:"required,username"`
	Password       string `validate:"required,password"`
	RecaptchaToken string
	RemoteIP       string
}

type RegisterOutput struct {
	UserID   int64
	Username string
}

func (s *Usecase) Register(ctx context.Context, in RegisterInput) (*RegisterOutput, error) {
	ctx, span := s.startSpan(ctx, "Register")
	defer span.End()

	in.Username = strings.ToLower(strings.TrimSpace(in.Username))

	if err := s.validator.Validate(in); err != nil {
		return nil, goerror.NewInvalidInput(err)
	}

	if err := s.checkRecaptcha(ctx, in.RecaptchaToken, in.RemoteIP); err != nil {
		return nil, err
	}

	_, err := s.repoDB.GetUserByUsername(ctx, in.Username)
	if err == nil {
		return nil, goerror.NewBusiness("username already taken", goerror.CodeConflict)
	}
	if !errors.Is(err, goerror.ErrNotFound) {
		slog.ErrorContext(ctx, "failed to repo get user by username", "username", in.Username, "error", err)
		return nil, goerror.NewServer(err)
	}

	hashed, err := s.bcrypt.Hash(in.Password)
	if err != nil {
		slog.ErrorContext(ctx, "failed to hash password", "error", err)
		return nil, goerror.NewServer(err)
	}

	now := s.clock.Now()
	user := entity.User{
		ID:        s.uid.Generate(),
		Username:  in.Username,
		Password:  string(hashed),
		Role:      entity.RoleUser,
		CreatedAt: now,
		UpdatedAt: now,
	}

	err = s.repoDB.CreateUser(ctx, user)
	if errors.Is(err, goerror.ErrConflict) {
		return nil, goerror.NewBusiness("username already taken", goerror.CodeConflict)
	}
	if err != nil {
		slog.ErrorContext(ctx, "failed to repo create user", "username", in.Username, "error", err)
		return nil, goerror.NewServer(err)
	}

	if err := s.repoMessaging.PublishUserRegistered(ctx, UserRegisteredEvent{
		UserID:       user.ID,
		Username:     user.Username,
		RegisteredAt: now,
	}); err != nil {
		slog.ErrorContext(ctx, "failed to publish user registered", "user_id", user.ID, "error", err)
	}

	return &RegisterOutput{UserID: user.ID, Username: user.Username}, nil
}
