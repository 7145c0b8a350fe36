package auth

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/khagendra-rk/lms/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func openDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "auth.db")), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&model.Permission{}, &model.Role{}, &model.User{}, &model.JWTTokenBlacklist{}))
	return db
}

func TestHasPermission(t *testing.T) {
	db := openDB(t)
	ctx := context.Background()

	view := model.Permission{Name: "View", Slug: model.PermBorrowsView}
	manage := model.Permission{Name: "Manage", Slug: model.PermBorrowsManage}
	require.NoError(t, db.Create(&view).Error)
	require.NoError(t, db.Create(&manage).Error)

	role := model.Role{Name: "Desk", Permissions: []model.Permission{view}}
	require.NoError(t, db.Create(&role).Error)

	user := model.User{Email: "desk@lib.test", PasswordHash: "x", Name: "Desk", RoleID: &role.ID}
	require.NoError(t, db.Create(&user).Error)
	noRole := model.User{Email: "none@lib.test", PasswordHash: "x", Name: "None"}
	require.NoError(t, db.Create(&noRole).Error)

	svc := NewPermissionService(db)

	ok, err := svc.HasPermission(ctx, user.ID, model.PermBorrowsView)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = svc.HasPermission(ctx, user.ID, model.PermBorrowsView, model.PermBorrowsManage)
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = svc.HasPermission(ctx, noRole.ID, model.PermBorrowsView)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestBlacklistLifecycle(t *testing.T) {
	db := openDB(t)
	ctx := context.Background()
	svc := NewBlacklistService(db)

	user := model.User{Email: "a@lib.test", PasswordHash: "x", Name: "A"}
	require.NoError(t, db.Create(&user).Error)

	require.NoError(t, svc.RevokeToken(ctx, "live-jti", user.ID, time.Now().Add(time.Hour), "logout"))
	require.NoError(t, svc.RevokeToken(ctx, "old-jti", user.ID, time.Now().Add(-time.Hour), "logout"))

	revoked, err := svc.IsTokenRevoked(ctx, "live-jti")
	require.NoError(t, err)
	assert.True(t, revoked)

	revoked, err = svc.IsTokenRevoked(ctx, "old-jti")
	require.NoError(t, err)
	assert.False(t, revoked)

	removed, err := svc.CleanupExpiredTokens(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), removed)

	require.NoError(t, svc.RevokeAllUserTokens(ctx, user.ID))
	var reloaded model.User
	require.NoError(t, db.First(&reloaded, user.ID).Error)
	assert.Equal(t, 1, reloaded.TokenVersion)
}
