package inbound

import (
	"github.com/shandysiswandi/twofa/internal/identity/usecase"
	"github.com/shandysiswandi/twofa/internal/pkg/router"
)

// HTTPEndpoint exposes HTTP handlers for accounts and sessions.
type HTTPEndpoint struct {
	uc uc
}

// Register creates a new user account.
// @Summary Register user
// @Description Creates a new account. A reCAPTCHA token is required when verification is enabled.
// @Tags Identity
// @Accept json
// @Produce json
// @Param request body RegisterRequest true "Registration payload"
// @Success 201 {object} router.successResponse{data=RegisterResponse} "Created account"
// @Failure 400 {object} router.errorResponse "Invalid request body"
// @Failure 409 {object} router.errorResponse "Username already taken"
// @Failure 422 {object} router.errorResponse "Validation error"
// @Failure 500 {object} router.errorResponse "Internal server error"
// @Router /api/v1/identity/register [post]
func (h *HTTPEndpoint) Register(r *router.Request) (any, error) {
	var req RegisterRequest
	if err := r.DecodeBody(&req); err != nil {
		return nil, err
	}

	resp, err := h.uc.Register(r.Context(), usecase.RegisterInput{
		Username:       req.Username,
		Password:       req.Password,
		RecaptchaToken: req.RecaptchaToken,
		RemoteIP:       r.RemoteAddr,
	})
	if err != nil {
		return nil, err
	}

	return RegisterResponse{ID: formatID(resp.UserID), Username: resp.Username}, nil
}

// Login authenticates a user and returns a token pair.
// @Summary Authenticate user
// @Description Validates credentials and returns an access token and a refresh token. Repeated failures are throttled.
// @Tags Identity
// @Accept json
// @Produce json
// @Param request body LoginRequest true "Login payload"
// @Success 200 {object} router.successResponse{data=TokenResponse} "Token pair"
// @Failure 400 {object} router.errorResponse "Invalid request body"
// @Failure 401 {object} router.errorResponse "Invalid credentials"
// @Failure 422 {object} router.errorResponse "Validation error"
// @Failure 429 {object} router.errorResponse "Too many failed attempts"
// @Failure 500 {object} router.errorResponse "Internal server error"
// @Router /api/v1/identity/login [post]
func (h *HTTPEndpoint) Login(r *router.Request) (any, error) {
	var req LoginRequest
	if err := r.DecodeBody(&req); err != nil {
		return nil, err
	}

	resp, err := h.uc.Login(r.Context(), usecase.LoginInput{
		Username:       req.Username,
		Password:       req.Password,
		RecaptchaToken: req.RecaptchaToken,
		UserAgent:      r.UserAgent(),
		RemoteIP:       r.RemoteAddr,
	})
	if err != nil {
		return nil, err
	}

	return toTokenResponse(resp), nil
}

// RefreshToken rotates a refresh token.
// @Summary Refresh access token
// @Description Exchanges a refresh token for a new pair. Presenting an already rotated token revokes every session of the user.
// @Tags Identity
// @Accept json
// @Produce json
// @Param request body RefreshTokenRequest true "Refresh token payload"
// @Success 200 {object} router.successResponse{data=TokenResponse} "Token pair"
// @Failure 400 {object} router.errorResponse "Invalid request body"
// @Failure 401 {object} router.errorResponse "Invalid refresh token"
// @Failure 403 {object} router.errorResponse "Token reuse detected"
// @Failure 500 {object} router.errorResponse "Internal server error"
// @Router /api/v1/identity/refresh [post]
func (h *HTTPEndpoint) RefreshToken(r *router.Request) (any, error) {
	var req RefreshTokenRequest
	if err := r.DecodeBody(&req); err != nil {
		return nil, err
	}

	resp, err := h.uc.RefreshToken(r.Context(), usecase.RefreshTokenInput{
		RefreshToken: req.RefreshToken,
		UserAgent:    r.UserAgent(),
		RemoteIP:     r.RemoteAddr,
	})
	if err != nil {
		return nil, err
	}

	return toTokenResponse(resp), nil
}

// Logout revokes a refresh token.
// @Summary Logout
// @Tags Identity
// @Accept json
// @Param request body LogoutRequest true "Logout payload"
// @Success 204 "No Content"
// @Failure 400 {object} router.errorResponse "Invalid request body"
// @Failure 500 {object} router.errorResponse "Internal server error"
// @Router /api/v1/identity/logout [post]
func (h *HTTPEndpoint) Logout(r *router.Request) (any, error) {
	var req LogoutRequest
	if err := r.DecodeBody(&req); err != nil {
		return nil, err
	}

	return nil, h.uc.Logout(r.Context(), usecase.LogoutInput{RefreshToken: req.RefreshToken})
}

// PasswordChange updates the caller's password.
// @Summary Change password
// @Description Verifies the current password, stores the new one and signs out every session.
// @Tags Identity
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body PasswordChangeRequest true "Password change payload"
// @Success 200 {object} router.successResponse "Password updated"
// @Failure 401 {object} router.errorResponse "Invalid password"
// @Failure 422 {object} router.errorResponse "Validation error"
// @Failure 500 {object} router.errorResponse "Internal server error"
// @Router /api/v1/identity/password [put]
func (h *HTTPEndpoint) PasswordChange(r *router.Request) (any, error) {
	var req PasswordChangeRequest
	if err := r.DecodeBody(&req); err != nil {
		return nil, err
	}

	if err := h.uc.PasswordChange(r.Context(), usecase.PasswordChangeInput{
		CurrentPassword: req.CurrentPassword,
		NewPassword:     req.NewPassword,
	}); err != nil {
		return nil, err
	}

	return PasswordChangeResponse{}, nil
}

// Profile returns the caller's account.
// @Summary Get profile
// @Tags Identity
// @Produce json
// @Security BearerAuth
// @Success 200 {object} router.successResponse{data=ProfileResponse} "Profile"
// @Failure 401 {object} router.errorResponse "Unauthorized"
// @Failure 500 {object} router.errorResponse "Internal server error"
// @Router /api/v1/identity/profile [get]
func (h *HTTPEndpoint) Profile(r *router.Request) (any, error) {
	resp, err := h.uc.Profile(r.Context())
	if err != nil {
		return nil, err
	}

	return ProfileResponse{
		ID:        formatID(resp.ID),
		Username:  resp.Username,
		Role:      resp.Role,
		CreatedAt: resp.CreatedAt,
	}, nil
}

func toTokenResponse(p *usecase.TokenPair) TokenResponse {
	return TokenResponse{
		TokenType:       "Bearer",
		AccessToken:     p.AccessToken,
		AccessExpiresAt: p.AccessExpiresAt,
		RefreshToken:    p.RefreshToken,
	}
}
