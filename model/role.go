package model

import (
	"time"

	"gorm.io/gorm"
)

// Role bundles permissions granted to users
type Role struct {
	ID          uint           `gorm:"primaryKey" json:"id"`
	Name        string         `gorm:"type:varchar(100);not null;uniqueIndex" json:"name"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
	DeletedAt   gorm.DeletedAt `gorm:"index" json:"-"`
	Permissions []Permission   `gorm:"many2many:role_permissions" json:"permissions,omitempty"`
	Users       []User         `gorm:"foreignKey:RoleID" json:"-"`
}

// HasPermission reports whether a loaded role carries the given permission slug.
func (r Role) HasPermission(slug string) bool {
	for _, p := range r.Permissions {
		if p.Slug == slug {
			return true
		}
	}
	return false
}

// Permission is a single capability identified by its slug, e.g. "borrows.manage"
type Permission struct {
	ID        uint           `gorm:"primaryKey" json:"id"`
	Name      string         `gorm:"type:varchar(100);not null" json:"name"`
	Slug      string         `gorm:"type:varchar(100);not null;uniqueIndex" json:"slug"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

// Permission slugs checked by the router
const (
	PermBooksView        = "books.view"
	PermBooksManage      = "books.manage"
	PermIndicesManage    = "indices.manage"
	PermBorrowsView      = "borrows.view"
	PermBorrowsManage    = "borrows.manage"
	PermStudentsManage   = "students.manage"
	PermTeachersManage   = "teachers.manage"
	PermFacultiesManage  = "faculties.manage"
	PermUsersManage      = "users.manage"
	PermRolesManage      = "roles.manage"
	PermPermissionManage = "permissions.manage"
)

// AllPermissions lists every permission slug with its display name
var AllPermissions = []Permission{
	{Name: "View books", Slug: PermBooksView},
	{Name: "Manage books", Slug: PermBooksManage},
	{Name: "Manage book indices", Slug: PermIndicesManage},
	{Name: "View borrows", Slug: PermBorrowsView},
	{Name: "Manage borrows", Slug: PermBorrowsManage},
	{Name: "Manage students", Slug: PermStudentsManage},
	{Name: "Manage teachers", Slug: PermTeachersManage},
	{Name: "Manage faculties", Slug: PermFacultiesManage},
	{Name: "Manage users", Slug: PermUsersManage},
	{Name: "Manage roles", Slug: PermRolesManage},
	{Name: "Manage permissions", Slug: PermPermissionManage},
}
