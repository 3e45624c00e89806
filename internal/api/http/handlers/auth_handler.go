package handlers

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/wans112/web-toko/internal/api/dto"
	"github.com/wans112/web-toko/internal/auth"
	"github.com/wans112/web-toko/internal/service"
	apperrors "github.com/wans112/web-toko/pkg/util"
)

// CookieConfig describes the session cookie.
type CookieConfig struct {
	Name   string
	Secure bool
}

// AuthHandler exposes identity-check and session endpoints.
type AuthHandler struct {
	auth     *service.AuthService
	presence *service.PresenceService
	cookie   CookieConfig
	logger   *zap.Logger
}

// NewAuthHandler constructs handler. authService may be nil when no user
// store is configured; Login then reports the service as unavailable.
func NewAuthHandler(authService *service.AuthService, presence *service.PresenceService, cookie CookieConfig, logger *zap.Logger) *AuthHandler {
	if cookie.Name == "" {
		cookie.Name = "token"
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuthHandler{auth: authService, presence: presence, cookie: cookie, logger: logger}
}

// Me handles GET /api/auth/me.
func (h *AuthHandler) Me(c *fiber.Ctx) error {
	identity, ok := auth.IdentityFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("unauthorized")
	}
	return c.JSON(fiber.Map{
		"success": true,
		"user":    identity,
	})
}

// Login handles POST /api/auth/login.
func (h *AuthHandler) Login(c *fiber.Ctx) error {
	if h.auth == nil {
		return apperrors.NewServiceUnavailable("login unavailable", nil)
	}

	var req dto.LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}

	user, token, exp, err := h.auth.Login(c.UserContext(), req.Username, req.Password)
	if err != nil {
		return err
	}

	c.Cookie(&fiber.Cookie{
		Name:     h.cookie.Name,
		Value:    token,
		Path:     "/",
		Expires:  exp,
		HTTPOnly: true,
		Secure:   h.cookie.Secure,
		SameSite: fiber.CookieSameSiteLaxMode,
	})

	if _, err := h.presence.SetPresence(c.UserContext(), user.Identity(), true); err != nil {
		h.logger.Warn("mark online after login", zap.String("user_id", user.ID), zap.Error(err))
	}

	return c.JSON(fiber.Map{
		"success": true,
		"user":    user.Identity(),
		"auth":    dto.AuthResponse{Token: token, ExpiresAt: exp},
	})
}

// Logout handles POST /api/auth/logout. It always clears the cookie and
// marks the caller offline when the credential still verifies.
func (h *AuthHandler) Logout(c *fiber.Ctx) error {
	if identity, ok := auth.IdentityFromContext(c); ok {
		if _, err := h.presence.SetPresence(c.UserContext(), identity, false); err != nil {
			h.logger.Warn("mark offline on logout", zap.String("user_id", identity.ID), zap.Error(err))
		}
	}

	c.Cookie(&fiber.Cookie{
		Name:     h.cookie.Name,
		Value:    "",
		Path:     "/",
		Expires:  time.Unix(0, 0),
		MaxAge:   -1,
		HTTPOnly: true,
		Secure:   h.cookie.Secure,
		SameSite: fiber.CookieSameSiteLaxMode,
	})
	return c.JSON(fiber.Map{"success": true})
}
