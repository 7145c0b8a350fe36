package database

import (
	"path/filepath"
	"testing"

	"github.com/khagendra-rk/lms/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSeedAllIsIdempotent(t *testing.T) {
	store, err := OpenTestStore(filepath.Join(t.TempDir(), "seed.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	t.Setenv("ADMIN_EMAIL", "admin@admin.com")
	t.Setenv("ADMIN_PASSWORD", "password123")
	t.Setenv("LIBRARIAN_EMAIL", "")
	t.Setenv("LIBRARIAN_PASSWORD", "")

	db := store.GetDB()
	require.NoError(t, RunSeeds(db))
	require.NoError(t, RunSeeds(db))

	var permCount, userCount int64
	db.Model(&model.Permission{}).Count(&permCount)
	db.Model(&model.User{}).Count(&userCount)
	assert.Equal(t, int64(len(model.AllPermissions)), permCount)
	assert.Equal(t, int64(1), userCount)

	var admin model.Role
	require.NoError(t, db.Preload("Permissions").Where("name = ?", RoleAdmin).First(&admin).Error)
	assert.Len(t, admin.Permissions, len(model.AllPermissions))

	var librarian model.Role
	require.NoError(t, db.Preload("Permissions").Where("name = ?", RoleLibrarian).First(&librarian).Error)
	assert.True(t, librarian.HasPermission(model.PermBorrowsManage))
	assert.False(t, librarian.HasPermission(model.PermUsersManage))
}

func TestInitCreatesLiveCodeIndex(t *testing.T) {
	store, err := OpenTestStore(filepath.Join(t.TempDir(), "idx.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	db := store.GetDB()

	book := model.Book{Name: "Physics", Author: "A", Publication: "P", Edition: "1", PublishedYear: 2020, Price: 10, Prefix: "PHY", BookType: "text"}
	require.NoError(t, db.Create(&book).Error)

	first := model.Index{BookID: book.ID, BookPrefix: "PHY", Code: 1}
	require.NoError(t, db.Create(&first).Error)
	dup := model.Index{BookID: book.ID, BookPrefix: "PHY", Code: 1}
	assert.Error(t, db.Create(&dup).Error)

	// A soft-deleted copy frees its code
	require.NoError(t, db.Delete(&first).Error)
	again := model.Index{BookID: book.ID, BookPrefix: "PHY", Code: 1}
	assert.NoError(t, db.Create(&again).Error)
}
