package admin

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/khagendra-rk/lms/database"
	"github.com/khagendra-rk/lms/handlers"
	"github.com/khagendra-rk/lms/model"
	"github.com/khagendra-rk/lms/services"
	"github.com/khagendra-rk/lms/utils/response"
	"github.com/khagendra-rk/lms/utils/validation"
	"gorm.io/gorm"
)

// RoleRequest represents the request body for creating or updating a role
type RoleRequest struct {
	Name          string `json:"name" validate:"required,max=100"`
	PermissionIDs []uint `json:"permission_ids" validate:"omitempty,dive,required"`
}

// PermissionRequest represents the request body for creating or updating a permission
type PermissionRequest struct {
	Name string `json:"name" validate:"required,max=100"`
	Slug string `json:"slug" validate:"required,max=100"`
}

// ListRoles retrieves all roles with their permissions
// GET /roles
func ListRoles(c *fiber.Ctx, store database.Storage) error {
	var roles []model.Role
	if err := store.GetDB().Preload("Permissions").Order("id ASC").Find(&roles).Error; err != nil {
		return response.InternalServerError(c, "Failed to fetch roles")
	}
	return response.Success(c, roles)
}

// GetRole retrieves a single role
// GET /roles/:role
func GetRole(c *fiber.Ctx, store database.Storage) error {
	id, ok := handlers.ParamID(c, "role")
	if !ok {
		return response.BadRequest(c, "Invalid role ID")
	}

	var role model.Role
	if err := store.GetDB().Preload("Permissions").First(&role, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return response.NotFound(c, "Role not found")
		}
		return response.InternalServerError(c, "Failed to fetch role")
	}
	return response.Success(c, role)
}

// CreateRole creates a role with the given permissions
// POST /roles
func CreateRole(c *fiber.Ctx, store database.Storage) error {
	db := store.GetDB()

	var req RoleRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}
	if err := validator.ValidateStruct(req); err != nil {
		return response.ValidationError(c, validation.FormatValidationErrors(err))
	}

	role := model.Role{Name: validation.SanitizeString(req.Name)}
	if err := saveRole(db, &role, req.PermissionIDs); err != nil {
		return handlers.RespondError(c, err, "Failed to save role")
	}

	return response.Created(c, role)
}

// UpdateRole renames a role and replaces its permissions
// PUT /roles/:role
func UpdateRole(c *fiber.Ctx, store database.Storage) error {
	db := store.GetDB()

	id, ok := handlers.ParamID(c, "role")
	if !ok {
		return response.BadRequest(c, "Invalid role ID")
	}

	var req RoleRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}
	if err := validator.ValidateStruct(req); err != nil {
		return response.ValidationError(c, validation.FormatValidationErrors(err))
	}

	var role model.Role
	if err := db.First(&role, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return response.NotFound(c, "Role not found")
		}
		return response.InternalServerError(c, "Failed to fetch role")
	}

	role.Name = validation.SanitizeString(req.Name)
	if err := saveRole(db, &role, req.PermissionIDs); err != nil {
		return handlers.RespondError(c, err, "Failed to save role")
	}

	return response.Success(c, role)
}

// DeleteRole removes a role that no user holds
// DELETE /roles/:role
func DeleteRole(c *fiber.Ctx, store database.Storage) error {
	db := store.GetDB()

	id, ok := handlers.ParamID(c, "role")
	if !ok {
		return response.BadRequest(c, "Invalid role ID")
	}

	var role model.Role
	if err := db.First(&role, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return response.NotFound(c, "Role not found")
		}
		return response.InternalServerError(c, "Failed to fetch role")
	}

	var holders int64
	if err := db.Model(&model.User{}).Where("role_id = ?", role.ID).Count(&holders).Error; err != nil {
		return response.InternalServerError(c, "Failed to check role users")
	}
	if holders > 0 {
		return response.ConflictFields(c, "The role is still assigned to users.", map[string][]string{
			"role": {"The role is still assigned to users."},
		})
	}

	err := db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&role).Association("Permissions").Clear(); err != nil {
			return err
		}
		return tx.Delete(&role).Error
	})
	if err != nil {
		return response.InternalServerError(c, "Failed to delete role")
	}

	return response.NoContent(c)
}

// saveRole persists the role and replaces its permission set
func saveRole(db *gorm.DB, role *model.Role, permissionIDs []uint) error {
	taken, err := handlers.TakenFields(db, &model.Role{}, role.ID, map[string]interface{}{"name": role.Name})
	if err != nil {
		return err
	}
	if len(taken) > 0 {
		return &services.ValidationError{Fields: taken}
	}

	var perms []model.Permission
	if len(permissionIDs) > 0 {
		if err := db.Where("id IN ?", permissionIDs).Find(&perms).Error; err != nil {
			return err
		}
		if len(perms) != len(uniq(permissionIDs)) {
			return services.NewValidationError("One or more selected permissions are invalid.", "permission_ids")
		}
	}

	err = db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit("Permissions").Save(role).Error; err != nil {
			return err
		}
		return tx.Model(role).Association("Permissions").Replace(perms)
	})
	if err != nil {
		return err
	}

	return db.Preload("Permissions").First(role, role.ID).Error
}

func uniq(ids []uint) []uint {
	seen := make(map[uint]bool, len(ids))
	out := ids[:0:0]
	for _, id := range ids {
		if !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	return out
}

// ListPermissions retrieves all permissions
// GET /permissions
func ListPermissions(c *fiber.Ctx, store database.Storage) error {
	var perms []model.Permission
	if err := store.GetDB().Order("slug ASC").Find(&perms).Error; err != nil {
		return response.InternalServerError(c, "Failed to fetch permissions")
	}
	return response.Success(c, perms)
}

// GetPermission retrieves a single permission
// GET /permissions/:permission
func GetPermission(c *fiber.Ctx, store database.Storage) error {
	id, ok := handlers.ParamID(c, "permission")
	if !ok {
		return response.BadRequest(c, "Invalid permission ID")
	}

	var perm model.Permission
	if err := store.GetDB().First(&perm, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return response.NotFound(c, "Permission not found")
		}
		return response.InternalServerError(c, "Failed to fetch permission")
	}
	return response.Success(c, perm)
}

// CreatePermission creates a permission
// POST /permissions
func CreatePermission(c *fiber.Ctx, store database.Storage) error {
	db := store.GetDB()

	var req PermissionRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}
	if err := validator.ValidateStruct(req); err != nil {
		return response.ValidationError(c, validation.FormatValidationErrors(err))
	}

	perm := model.Permission{Name: validation.SanitizeString(req.Name), Slug: validation.SanitizeString(req.Slug)}

	taken, err := handlers.TakenFields(db, &model.Permission{}, 0, map[string]interface{}{"slug": perm.Slug})
	if err != nil {
		return response.InternalServerError(c, "Failed to validate permission")
	}
	if len(taken) > 0 {
		return response.ValidationError(c, taken)
	}

	if err := db.Create(&perm).Error; err != nil {
		return handlers.RespondError(c, err, "Failed to create permission")
	}
	return response.Created(c, perm)
}

// UpdatePermission renames a permission
// PUT /permissions/:permission
func UpdatePermission(c *fiber.Ctx, store database.Storage) error {
	db := store.GetDB()

	id, ok := handlers.ParamID(c, "permission")
	if !ok {
		return response.BadRequest(c, "Invalid permission ID")
	}

	var req PermissionRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}
	if err := validator.ValidateStruct(req); err != nil {
		return response.ValidationError(c, validation.FormatValidationErrors(err))
	}

	var perm model.Permission
	if err := db.First(&perm, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return response.NotFound(c, "Permission not found")
		}
		return response.InternalServerError(c, "Failed to fetch permission")
	}

	perm.Name = validation.SanitizeString(req.Name)
	perm.Slug = validation.SanitizeString(req.Slug)

	taken, err := handlers.TakenFields(db, &model.Permission{}, perm.ID, map[string]interface{}{"slug": perm.Slug})
	if err != nil {
		return response.InternalServerError(c, "Failed to validate permission")
	}
	if len(taken) > 0 {
		return response.ValidationError(c, taken)
	}

	if err := db.Save(&perm).Error; err != nil {
		return handlers.RespondError(c, err, "Failed to update permission")
	}
	return response.Success(c, perm)
}

// DeletePermission removes a permission and detaches it from every role
// DELETE /permissions/:permission
func DeletePermission(c *fiber.Ctx, store database.Storage) error {
	db := store.GetDB()

	id, ok := handlers.ParamID(c, "permission")
	if !ok {
		return response.BadRequest(c, "Invalid permission ID")
	}

	var perm model.Permission
	if err := db.First(&perm, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return response.NotFound(c, "Permission not found")
		}
		return response.InternalServerError(c, "Failed to fetch permission")
	}

	err := db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Exec("DELETE FROM role_permissions WHERE permission_id = ?", perm.ID).Error; err != nil {
			return err
		}
		return tx.Delete(&perm).Error
	})
	if err != nil {
		return response.InternalServerError(c, "Failed to delete permission")
	}

	return response.NoContent(c)
}
