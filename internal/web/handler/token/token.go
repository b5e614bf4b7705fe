// Package token provides the login, refresh, logout and identity endpoints.
package token

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"

	"github.com/farah699/Users-Permissions-Backend/internal/auth"
	"github.com/farah699/Users-Permissions-Backend/internal/db/models"
	"github.com/farah699/Users-Permissions-Backend/internal/web/handler"
)

const (
	// Path is the base path of the token endpoints.
	Path = handler.AuthPath

	tokenType = "Bearer"
)

// Service handles the token lifecycle endpoints.
type Service struct {
	handler.Service
	authService *auth.Service
}

// LoginRequest is the body of POST /auth/login.
type LoginRequest struct {
	Email    string `json:"email"    validate:"required,email,max=255"`
	Password string `json:"password" validate:"required,max=128"`
}

// RefreshRequest is the body of refresh and logout.
type RefreshRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
}

// TokenResponse is returned by login and refresh.
type TokenResponse struct {
	TokenType        string       `json:"token_type"`
	AccessToken      string       `json:"access_token"`
	AccessExpiresAt  time.Time    `json:"access_expires_at"`
	RefreshToken     string       `json:"refresh_token"`
	RefreshExpiresAt time.Time    `json:"refresh_expires_at"`
	Principal        *models.User `json:"principal"`
}

// MeResponse is returned by GET /auth/me.
type MeResponse struct {
	Principal   *models.User `json:"principal"`
	Roles       []string     `json:"roles"`
	Permissions []string     `json:"permissions"`
}

// Init registers routes.
func (s *Service) Init(app *fiber.App, deps *handler.Deps) {
	if app == nil || !deps.Valid() {
		log.Fatal().Msg(handler.ErrNilDepsFatalLogMsg)
		return
	}

	s.authService = deps.Auth

	app.Post(Path+"/login", s.Login)
	app.Post(Path+"/refresh", s.Refresh)
	app.Post(Path+"/logout", auth.Authenticate(deps.Auth), s.Logout)
	app.Post(Path+"/logout-all", auth.Authenticate(deps.Auth), s.LogoutAll)
	app.Get(Path+"/me", auth.Authenticate(deps.Auth), s.Me)
}

// Login exchanges email and password for a token pair.
func (s *Service) Login(c *fiber.Ctx) error {
	req := new(LoginRequest)
	if err := handler.BindJSON(c, req); err != nil {
		return err
	}

	pair, principal, err := s.authService.Login(c.UserContext(), req.Email, req.Password)
	if err != nil {
		return err
	}

	return c.JSON(newTokenResponse(pair, principal))
}

// Refresh exchanges a refresh token for a new token pair.
func (s *Service) Refresh(c *fiber.Ctx) error {
	req := new(RefreshRequest)
	if err := handler.BindJSON(c, req); err != nil {
		return err
	}

	pair, principal, err := s.authService.Refresh(c.UserContext(), req.RefreshToken)
	if err != nil {
		return err
	}

	return c.JSON(newTokenResponse(pair, principal))
}

// Logout revokes the given refresh token of the authenticated principal.
func (s *Service) Logout(c *fiber.Ctx) error {
	req := new(RefreshRequest)
	if err := handler.BindJSON(c, req); err != nil {
		return err
	}

	if err := s.authService.Logout(c.UserContext(), auth.PrincipalFromCtx(c), req.RefreshToken); err != nil {
		return err
	}

	return c.SendStatus(fiber.StatusNoContent)
}

// LogoutAll revokes every refresh token of the authenticated principal.
func (s *Service) LogoutAll(c *fiber.Ctx) error {
	if err := s.authService.GlobalLogout(c.UserContext(), auth.PrincipalFromCtx(c)); err != nil {
		return err
	}

	return c.SendStatus(fiber.StatusNoContent)
}

// Me returns the authenticated principal and its effective permissions.
func (s *Service) Me(c *fiber.Ctx) error {
	principal := auth.PrincipalFromCtx(c)

	return c.JSON(MeResponse{
		Principal:   principal,
		Roles:       auth.ActiveRoleNames(principal),
		Permissions: auth.EffectivePermissions(principal),
	})
}

func newTokenResponse(pair *auth.TokenPair, principal *models.User) TokenResponse {
	return TokenResponse{
		TokenType:        tokenType,
		AccessToken:      pair.Access.Value,
		AccessExpiresAt:  pair.Access.ExpiresAt,
		RefreshToken:     pair.Refresh.Value,
		RefreshExpiresAt: pair.Refresh.ExpiresAt,
		Principal:        principal,
	}
}
