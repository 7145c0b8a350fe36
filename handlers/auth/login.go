package auth

import (
	"github.com/gofiber/fiber/v2"
	"github.com/khagendra-rk/lms/model"
	authutil "github.com/khagendra-rk/lms/utils/auth"
	"github.com/khagendra-rk/lms/utils/response"
	"github.com/khagendra-rk/lms/utils/validation"
)

// LoginRequest represents a user login request
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// LoginResponse represents a successful login response
type LoginResponse struct {
	User UserResponse `json:"user"`
	TokenPair
}

// Login handles POST /api/v1/login
func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var req LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}

	if err := h.validator.ValidateStruct(req); err != nil {
		return response.ValidationError(c, validation.FormatValidationErrors(err))
	}

	ip := c.IP()

	var user model.User
	if err := h.db.Preload("Role").Where("email = ?", req.Email).First(&user).Error; err != nil {
		h.bruteForceProtection.RecordFailedAttempt(c.UserContext(), ip)
		return response.Unauthorized(c, "Invalid email or password")
	}

	if err := authutil.VerifyPassword(user.PasswordHash, req.Password); err != nil {
		h.bruteForceProtection.RecordFailedAttempt(c.UserContext(), ip)
		return response.Unauthorized(c, "Invalid email or password")
	}

	h.bruteForceProtection.RecordSuccessfulAttempt(c.UserContext(), ip)

	tokens, err := h.issueTokens(&user)
	if err != nil {
		return response.InternalServerError(c, "Failed to generate tokens")
	}

	userRes, err := h.userResponse(c.UserContext(), &user)
	if err != nil {
		return response.InternalServerError(c, "Failed to load permissions")
	}

	return response.Success(c, LoginResponse{User: userRes, TokenPair: tokens})
}
