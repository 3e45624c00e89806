package handlers

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/wans112/web-toko/internal/api/dto"
	"github.com/wans112/web-toko/internal/auth"
	"github.com/wans112/web-toko/internal/service"
	apperrors "github.com/wans112/web-toko/pkg/util"
)

// Limiter throttles a user's online assertions.
type Limiter interface {
	Allow(userID string) bool
}

// PresenceHandler exposes the presence endpoints.
type PresenceHandler struct {
	presence *service.PresenceService
	limiter  Limiter
}

// NewPresenceHandler constructs handler. limiter may be nil.
func NewPresenceHandler(presence *service.PresenceService, limiter Limiter) *PresenceHandler {
	return &PresenceHandler{presence: presence, limiter: limiter}
}

// Update handles PATCH /api/users/presence. The body is decoded as JSON
// whatever the content type, since unload beacons are often sent as
// text/plain. Only online assertions are rate limited; an offline
// assertion is always applied.
func (h *PresenceHandler) Update(c *fiber.Ctx) error {
	identity, ok := auth.IdentityFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("unauthorized")
	}

	var req dto.PresenceRequest
	body := c.Body()
	if len(body) == 0 {
		return apperrors.NewValidationError("is_online is required", nil)
	}
	if err := c.App().Config().JSONDecoder(body, &req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if req.IsOnline == nil {
		return apperrors.NewValidationError("is_online is required", nil)
	}
	if *req.IsOnline && h.limiter != nil && !h.limiter.Allow(identity.ID) {
		return apperrors.NewTooManyRequests("too many presence updates")
	}

	rec, err := h.presence.SetPresence(c.UserContext(), identity, *req.IsOnline)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{
		"success":  true,
		"presence": dto.NewPresenceResponse(rec),
	})
}

// Get handles GET /api/users/:id/presence.
func (h *PresenceHandler) Get(c *fiber.Ctx) error {
	userID := strings.TrimSpace(c.Params("id"))
	if userID == "" {
		return apperrors.NewValidationError("user id is required", nil)
	}
	rec, err := h.presence.Get(c.UserContext(), userID)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{
		"success":  true,
		"presence": dto.NewPresenceResponse(rec),
	})
}

// ListOnline handles GET /api/presence/online.
func (h *PresenceHandler) ListOnline(c *fiber.Ctx) error {
	records, err := h.presence.ListOnline(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{
		"success": true,
		"users":   dto.NewPresenceList(records),
		"count":   len(records),
	})
}
