package auth

import (
	"log"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/khagendra-rk/lms/model"
	authutil "github.com/khagendra-rk/lms/utils/auth"
	"github.com/khagendra-rk/lms/utils/middleware"
	"github.com/khagendra-rk/lms/utils/response"
	"github.com/khagendra-rk/lms/utils/validation"
)

// RefreshRequest represents a token refresh request
type RefreshRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
}

// LogoutRequest represents the optional logout body
type LogoutRequest struct {
	LogoutAll bool `json:"logout_all"`
}

// RefreshToken handles POST /api/v1/refresh. The used refresh token is revoked.
func (h *AuthHandler) RefreshToken(c *fiber.Ctx) error {
	var req RefreshRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}

	if err := h.validator.ValidateStruct(req); err != nil {
		return response.ValidationError(c, validation.FormatValidationErrors(err))
	}

	claims, err := h.jwtManager.ValidateToken(req.RefreshToken)
	if err != nil {
		return response.Unauthorized(c, "Invalid or expired refresh token")
	}

	if claims.TokenType != authutil.TokenTypeRefresh {
		return response.Unauthorized(c, "Invalid token type")
	}

	isRevoked, err := h.blacklistService.IsTokenRevoked(c.UserContext(), claims.ID)
	if err != nil {
		return response.InternalServerError(c, "Failed to check token status")
	}
	if isRevoked {
		return response.Unauthorized(c, "Token has been revoked")
	}

	var user model.User
	if err := h.db.Preload("Role").First(&user, claims.UserID).Error; err != nil {
		return response.Unauthorized(c, "User not found")
	}

	if user.TokenVersion != claims.TokenVersion {
		return response.Unauthorized(c, "Token has been invalidated")
	}

	tokens, err := h.issueTokens(&user)
	if err != nil {
		return response.InternalServerError(c, "Failed to generate tokens")
	}

	if err := h.blacklistService.RevokeToken(c.UserContext(), claims.ID, user.ID, expiryOf(claims), "token_refresh"); err != nil {
		// the old token still expires on its own
		log.Printf("Failed to revoke refresh token for user %d: %v", user.ID, err)
	}

	return response.Success(c, tokens)
}

// Logout handles POST /api/v1/logout. With logout_all every token of the user is
// invalidated, otherwise only the presented one.
func (h *AuthHandler) Logout(c *fiber.Ctx) error {
	user, ok := middleware.GetUser(c)
	if !ok {
		return response.Unauthorized(c, "Not authenticated")
	}

	var req LogoutRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return response.BadRequest(c, "Invalid request body")
		}
	}

	if req.LogoutAll {
		if err := h.blacklistService.RevokeAllUserTokens(c.UserContext(), user.ID); err != nil {
			return response.InternalServerError(c, "Failed to logout")
		}
		return response.SuccessWithMessage(c, "Logged out from all devices", nil)
	}

	claims, ok := middleware.GetClaims(c)
	if !ok {
		return response.BadRequest(c, "No token ID found")
	}

	if err := h.blacklistService.RevokeToken(c.UserContext(), claims.ID, user.ID, expiryOf(claims), "logout"); err != nil {
		return response.InternalServerError(c, "Failed to logout")
	}

	return response.SuccessWithMessage(c, "Successfully logged out", nil)
}

func expiryOf(claims *authutil.Claims) time.Time {
	if claims.ExpiresAt == nil {
		return time.Now().Add(24 * time.Hour)
	}
	return claims.ExpiresAt.Time
}
