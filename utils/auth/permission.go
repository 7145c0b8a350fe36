package auth

import (
	"context"

	"github.com/khagendra-rk/lms/model"
	"gorm.io/gorm"
)

// PermissionService resolves what a user's role allows
type PermissionService struct {
	db *gorm.DB
}

// NewPermissionService creates a new permission service
func NewPermissionService(db *gorm.DB) *PermissionService {
	return &PermissionService{db: db}
}

// PermissionsFor returns the permission slugs granted to the user through their role
func (s *PermissionService) PermissionsFor(ctx context.Context, userID uint) ([]string, error) {
	var slugs []string
	err := s.db.WithContext(ctx).
		Model(&model.Permission{}).
		Joins("JOIN role_permissions ON role_permissions.permission_id = permissions.id").
		Joins("JOIN users ON users.role_id = role_permissions.role_id").
		Where("users.id = ? AND users.deleted_at IS NULL", userID).
		Pluck("permissions.slug", &slugs).
		Error
	return slugs, err
}

// HasPermission reports whether the user holds every one of the given slugs
func (s *PermissionService) HasPermission(ctx context.Context, userID uint, slugs ...string) (bool, error) {
	granted, err := s.PermissionsFor(ctx, userID)
	if err != nil {
		return false, err
	}

	set := make(map[string]struct{}, len(granted))
	for _, g := range granted {
		set[g] = struct{}{}
	}
	for _, slug := range slugs {
		if _, ok := set[slug]; !ok {
			return false, nil
		}
	}
	return true, nil
}
