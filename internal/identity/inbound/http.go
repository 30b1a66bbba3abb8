package inbound

import (
	"context"

	"github.com/shandysiswandi/twofa/internal/identity/usecase"
	"github.com/shandysiswandi/twofa/internal/pkg/router"
)

type uc interface {
	Register(ctx context.Context, in usecase.RegisterInput) (*usecase.RegisterOutput, error)
	Login(ctx context.Context, in usecase.LoginInput) (*usecase.TokenPair, error)
	RefreshToken(ctx context.Context, in usecase.RefreshTokenInput) (*usecase.TokenPair, error)
	Logout(ctx context.Context, in usecase.LogoutInput) error
	PasswordChange(ctx context.Context, in usecase.PasswordChangeInput) error
	Profile(ctx context.Context) (*usecase.ProfileOutput, error)
}

func RegisterHTTPEndpoint(r *router.Router, uc uc) {
	end := &HTTPEndpoint{uc: uc}

	r.POST("/api/v1/identity/register", end.Register)
	r.POST("/api/v1/identity/login", end.Login)
	r.POST("/api/v1/identity/refresh", end.RefreshToken)
	r.POST("/api/v1/identity/logout", end.Logout)

	// need authenticated
	r.PUT("/api/v1/identity/password", end.PasswordChange, r.Authorize("identity.profile", "update"))
	r.GET("/api/v1/identity/profile", end.Profile, r.Authorize("identity.profile", "read"))
}
