package auth

import (
	"github.com/gofiber/fiber/v2"
	"github.com/khagendra-rk/lms/model"
	authutil "github.com/khagendra-rk/lms/utils/auth"
	"github.com/khagendra-rk/lms/utils/middleware"
	"github.com/khagendra-rk/lms/utils/response"
	"github.com/khagendra-rk/lms/utils/validation"
	"gorm.io/gorm"
)

// ChangePasswordRequest represents a password change by the signed-in user
type ChangePasswordRequest struct {
	CurrentPassword         string `json:"current_password" validate:"required"`
	NewPassword             string `json:"new_password" validate:"required,min=8"`
	NewPasswordConfirmation string `json:"new_password_confirmation" validate:"required,eqfield=NewPassword"`
}

// Me handles GET /api/v1/user
func (h *AuthHandler) Me(c *fiber.Ctx) error {
	user, ok := middleware.GetUser(c)
	if !ok {
		return response.Unauthorized(c, "Not authenticated")
	}

	res, err := h.userResponse(c.UserContext(), user)
	if err != nil {
		return response.InternalServerError(c, "Failed to load permissions")
	}
	return response.Success(c, res)
}

// ChangePassword handles POST /api/v1/change-password. Every issued token is
// invalidated afterwards.
func (h *AuthHandler) ChangePassword(c *fiber.Ctx) error {
	user, ok := middleware.GetUser(c)
	if !ok {
		return response.Unauthorized(c, "Not authenticated")
	}

	var req ChangePasswordRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}

	if err := h.validator.ValidateStruct(req); err != nil {
		return response.ValidationError(c, validation.FormatValidationErrors(err))
	}

	if err := authutil.VerifyPassword(user.PasswordHash, req.CurrentPassword); err != nil {
		return response.ValidationError(c, map[string][]string{
			"current_password": {"The current password is incorrect."},
		})
	}

	problems := authutil.PasswordProblems(req.NewPassword, user.Email)
	if req.NewPassword == req.CurrentPassword {
		problems = append(problems, "The new password must be different from the current password.")
	}
	if len(problems) > 0 {
		return response.ValidationError(c, map[string][]string{"new_password": problems})
	}

	hash, err := authutil.HashPassword(req.NewPassword)
	if err != nil {
		return response.InternalServerError(c, "Failed to hash password")
	}

	err = h.db.Model(&model.User{}).Where("id = ?", user.ID).Updates(map[string]interface{}{
		"password_hash": hash,
		"token_version": gorm.Expr("token_version + ?", 1),
	}).Error
	if err != nil {
		return response.InternalServerError(c, "Failed to change password")
	}

	return response.SuccessWithMessage(c, "Password changed. Please sign in again.", nil)
}
