package auth

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/wans112/web-toko/internal/domain"
	apperrors "github.com/wans112/web-toko/pkg/util"
)

const identityKey = "auth_identity"

// AuthMiddleware resolves the caller identity through the Gate.
type AuthMiddleware struct {
	gate       *Gate
	cookieName string
}

// NewAuthMiddleware constructs middleware reading the named cookie first and
// falling back to an Authorization bearer header.
func NewAuthMiddleware(gate *Gate, cookieName string) *AuthMiddleware {
	if cookieName == "" {
		cookieName = "token"
	}
	return &AuthMiddleware{gate: gate, cookieName: cookieName}
}

// Handle enforces authentication for protected routes.
func (m *AuthMiddleware) Handle(c *fiber.Ctx) error {
	identity, err := m.gate.Verify(m.Credential(c))
	if err != nil {
		return apperrors.NewUnauthorized("unauthorized")
	}

	c.Locals(identityKey, identity)
	return c.Next()
}

// Optional resolves the identity when a valid credential is present and
// continues either way.
func (m *AuthMiddleware) Optional(c *fiber.Ctx) error {
	if credential := m.Credential(c); credential != "" {
		if identity, err := m.gate.Verify(credential); err == nil {
			c.Locals(identityKey, identity)
		}
	}
	return c.Next()
}

// Credential extracts the raw session credential from the request, or "".
func (m *AuthMiddleware) Credential(c *fiber.Ctx) string {
	if token := c.Cookies(m.cookieName); token != "" {
		return token
	}

	parts := strings.SplitN(c.Get(fiber.HeaderAuthorization), " ", 2)
	if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
		return strings.TrimSpace(parts[1])
	}
	return ""
}

// CookieName returns the cookie carrying the session credential.
func (m *AuthMiddleware) CookieName() string {
	return m.cookieName
}

// IdentityFromContext retrieves the authenticated identity.
func IdentityFromContext(c *fiber.Ctx) (domain.Identity, bool) {
	identity, ok := c.Locals(identityKey).(domain.Identity)
	return identity, ok
}
