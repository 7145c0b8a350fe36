package admin

import (
	"errors"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/khagendra-rk/lms/database"
	"github.com/khagendra-rk/lms/handlers"
	"github.com/khagendra-rk/lms/model"
	"github.com/khagendra-rk/lms/utils/auth"
	"github.com/khagendra-rk/lms/utils/middleware"
	"github.com/khagendra-rk/lms/utils/response"
	"github.com/khagendra-rk/lms/utils/validation"
	"gorm.io/gorm"
)

var validator = validation.NewValidator()

// CreateUserRequest represents the request body for creating a staff user
type CreateUserRequest struct {
	Name     string `json:"name" validate:"required,min=2,max=255"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
	RoleID   *uint  `json:"role_id"`
}

// UpdateUserRequest represents the request body for updating a user. An empty
// password keeps the current one.
type UpdateUserRequest struct {
	Name     string `json:"name" validate:"required,min=2,max=255"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"omitempty,min=8"`
	RoleID   *uint  `json:"role_id"`
}

// ListUsers retrieves users with pagination and filters
// GET /users
func ListUsers(c *fiber.Ctx, store database.Storage) error {
	db := store.GetDB()
	page, limit, offset := handlers.Pagination(c)

	query := db.Model(&model.User{})
	if roleID, err := strconv.ParseUint(c.Query("role_id"), 10, 64); err == nil {
		query = query.Where("role_id = ?", roleID)
	}
	if search := c.Query("search"); search != "" {
		term := "%" + strings.ToLower(search) + "%"
		query = query.Where("LOWER(name) LIKE ? OR LOWER(email) LIKE ?", term, term)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return response.InternalServerError(c, "Failed to count users")
	}

	var users []model.User
	if err := query.Preload("Role").Order("id ASC").Offset(offset).Limit(limit).Find(&users).Error; err != nil {
		return response.InternalServerError(c, "Failed to fetch users")
	}

	return response.Paginated(c, users, response.CalculatePagination(page, limit, total))
}

// GetUser retrieves a single user with their role
// GET /users/:user
func GetUser(c *fiber.Ctx, store database.Storage) error {
	id, ok := handlers.ParamID(c, "user")
	if !ok {
		return response.BadRequest(c, "Invalid user ID")
	}

	var user model.User
	if err := store.GetDB().Preload("Role.Permissions").First(&user, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return response.NotFound(c, "User not found")
		}
		return response.InternalServerError(c, "Failed to fetch user")
	}

	return response.Success(c, user)
}

// CreateUser creates a staff user
// POST /users
func CreateUser(c *fiber.Ctx, store database.Storage) error {
	db := store.GetDB()

	var req CreateUserRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}
	if err := validator.ValidateStruct(req); err != nil {
		return response.ValidationError(c, validation.FormatValidationErrors(err))
	}

	user := model.User{
		Name:   validation.SanitizeString(req.Name),
		Email:  strings.ToLower(req.Email),
		RoleID: req.RoleID,
	}

	fields, err := userFieldErrors(db, &user, 0, req.Password)
	if err != nil {
		return response.InternalServerError(c, "Failed to validate user")
	}
	if len(fields) > 0 {
		return response.ValidationError(c, fields)
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		return response.InternalServerError(c, "Failed to hash password")
	}
	user.PasswordHash = hash

	if err := db.Create(&user).Error; err != nil {
		return handlers.RespondError(c, err, "Failed to create user")
	}

	db.Preload("Role").First(&user, user.ID)
	return response.Created(c, user)
}

// UpdateUser updates user details. A role change or new password invalidates the
// user's tokens.
// PUT /users/:user
func UpdateUser(c *fiber.Ctx, store database.Storage) error {
	db := store.GetDB()

	id, ok := handlers.ParamID(c, "user")
	if !ok {
		return response.BadRequest(c, "Invalid user ID")
	}

	var req UpdateUserRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}
	if err := validator.ValidateStruct(req); err != nil {
		return response.ValidationError(c, validation.FormatValidationErrors(err))
	}

	var user model.User
	if err := db.First(&user, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return response.NotFound(c, "User not found")
		}
		return response.InternalServerError(c, "Failed to fetch user")
	}

	roleChanged := !sameRole(user.RoleID, req.RoleID)
	user.Name = validation.SanitizeString(req.Name)
	user.Email = strings.ToLower(req.Email)
	user.RoleID = req.RoleID

	fields, err := userFieldErrors(db, &user, user.ID, req.Password)
	if err != nil {
		return response.InternalServerError(c, "Failed to validate user")
	}
	if len(fields) > 0 {
		return response.ValidationError(c, fields)
	}

	if req.Password != "" {
		hash, err := auth.HashPassword(req.Password)
		if err != nil {
			return response.InternalServerError(c, "Failed to hash password")
		}
		user.PasswordHash = hash
	}
	if roleChanged || req.Password != "" {
		user.TokenVersion++
	}

	if err := db.Omit("Role").Save(&user).Error; err != nil {
		return handlers.RespondError(c, err, "Failed to update user")
	}

	db.Preload("Role").First(&user, user.ID)
	return response.Success(c, user)
}

// DeleteUser soft-deletes a user. Users cannot delete themselves.
// DELETE /users/:user
func DeleteUser(c *fiber.Ctx, store database.Storage) error {
	db := store.GetDB()

	id, ok := handlers.ParamID(c, "user")
	if !ok {
		return response.BadRequest(c, "Invalid user ID")
	}

	if current, ok := middleware.GetUserID(c); ok && current == id {
		return response.Forbidden(c, "You cannot delete your own account")
	}

	var user model.User
	if err := db.First(&user, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return response.NotFound(c, "User not found")
		}
		return response.InternalServerError(c, "Failed to fetch user")
	}

	if err := db.Delete(&user).Error; err != nil {
		return response.InternalServerError(c, "Failed to delete user")
	}

	return response.NoContent(c)
}

// userFieldErrors collects uniqueness, role and password policy failures. An empty
// password is not checked.
func userFieldErrors(db *gorm.DB, user *model.User, exceptID uint, password string) (map[string][]string, error) {
	fields, err := handlers.TakenFields(db, &model.User{}, exceptID, map[string]interface{}{"email": user.Email})
	if err != nil {
		return nil, err
	}
	if password != "" {
		if problems := auth.PasswordProblems(password, user.Email); len(problems) > 0 {
			fields["password"] = problems
		}
	}
	if user.RoleID != nil {
		var count int64
		if err := db.Model(&model.Role{}).Where("id = ?", *user.RoleID).Count(&count).Error; err != nil {
			return nil, err
		}
		if count == 0 {
			fields["role_id"] = []string{"The selected role is invalid."}
		}
	}
	return fields, nil
}

func sameRole(a, b *uint) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}
