package middleware

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"timetabledocs/internal/service"
)

// AdminClaimsLocalKey is the key under which verified admin claims are stored in Fiber locals.
const AdminClaimsLocalKey = "admin_claims"

// TokenVerifier validates an admin session token.
type TokenVerifier interface {
	Verify(token string) (*service.AdminClaims, error)
}

// AdminAuth rejects requests that do not present a valid "Bearer <token>" issued by /admin/login/.
// Rejections are returned as *fiber.Error so the global error handler writes the envelope.
func AdminAuth(v TokenVerifier) fiber.Handler {
	return func(c *fiber.Ctx) error {
		header := c.Get(fiber.HeaderAuthorization)
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || strings.TrimSpace(token) == "" {
			return fiber.NewError(fiber.StatusUnauthorized, "missing token")
		}
		claims, err := v.Verify(strings.TrimSpace(token))
		if err != nil {
			return fiber.NewError(fiber.StatusUnauthorized, "invalid token")
		}
		c.Locals(AdminClaimsLocalKey, claims)
		return c.Next()
	}
}
