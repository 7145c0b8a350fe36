package middleware

import (
	"log"

	"github.com/gofiber/fiber/v2"
	"github.com/khagendra-rk/lms/utils/auth"
	"github.com/khagendra-rk/lms/utils/response"
)

const msgForbidden = "You do not have permission to perform this action."

// PermissionMiddleware gates routes on role permissions. It must run after
// AuthMiddleware.Required.
type PermissionMiddleware struct {
	permissions *auth.PermissionService
}

// NewPermissionMiddleware creates a new permission middleware
func NewPermissionMiddleware(permissions *auth.PermissionService) *PermissionMiddleware {
	return &PermissionMiddleware{permissions: permissions}
}

// Require rejects the request with 403 unless the caller holds every slug
func (m *PermissionMiddleware) Require(slugs ...string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID, ok := GetUserID(c)
		if !ok || userID == 0 {
			return response.Unauthorized(c, "Authentication required")
		}

		allowed, err := m.permissions.HasPermission(c.UserContext(), userID, slugs...)
		if err != nil {
			log.Printf("Failed to resolve permissions for user %d: %v", userID, err)
			return response.InternalServerError(c, "Failed to check permissions")
		}
		if !allowed {
			return response.Forbidden(c, msgForbidden)
		}

		return c.Next()
	}
}
