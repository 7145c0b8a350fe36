package database

import (
	"fmt"
	"log"
	"os"

	"github.com/khagendra-rk/lms/model"
	"github.com/khagendra-rk/lms/utils/auth"
	"gorm.io/gorm"
)

const (
	RoleAdmin     = "Admin"
	RoleLibrarian = "Librarian"
)

// librarianPermissions is the catalog and circulation subset granted to librarians
var librarianPermissions = []string{
	model.PermBooksView,
	model.PermBooksManage,
	model.PermIndicesManage,
	model.PermBorrowsView,
	model.PermBorrowsManage,
	model.PermStudentsManage,
	model.PermTeachersManage,
}

// Seeder handles database seeding operations
type Seeder struct {
	db *gorm.DB
}

// NewSeeder creates a new seeder instance
func NewSeeder(db *gorm.DB) *Seeder {
	return &Seeder{db: db}
}

// SeedAll runs all seed functions
func (s *Seeder) SeedAll() error {
	log.Println("Starting database seeding...")

	// Run seeds in order (respecting foreign key constraints)
	if err := s.SeedPermissions(); err != nil {
		return fmt.Errorf("failed to seed permissions: %w", err)
	}

	if err := s.SeedRoles(); err != nil {
		return fmt.Errorf("failed to seed roles: %w", err)
	}

	if err := s.SeedUser(os.Getenv("ADMIN_EMAIL"), os.Getenv("ADMIN_PASSWORD"), "Admin", RoleAdmin); err != nil {
		return fmt.Errorf("failed to seed admin user: %w", err)
	}

	if err := s.SeedUser(os.Getenv("LIBRARIAN_EMAIL"), os.Getenv("LIBRARIAN_PASSWORD"), "Librarian", RoleLibrarian); err != nil {
		return fmt.Errorf("failed to seed librarian user: %w", err)
	}

	log.Println("Database seeding completed successfully!")
	return nil
}

// SeedPermissions creates every known permission that does not exist yet
func (s *Seeder) SeedPermissions() error {
	for _, p := range model.AllPermissions {
		perm := p
		if err := s.db.Where(model.Permission{Slug: perm.Slug}).
			Attrs(model.Permission{Name: perm.Name}).
			FirstOrCreate(&perm).Error; err != nil {
			return err
		}
	}
	log.Printf("Seeded %d permissions", len(model.AllPermissions))
	return nil
}

// SeedRoles creates the Admin and Librarian roles and syncs their permissions
func (s *Seeder) SeedRoles() error {
	var all []model.Permission
	if err := s.db.Find(&all).Error; err != nil {
		return err
	}

	granted := make(map[string]bool, len(librarianPermissions))
	for _, slug := range librarianPermissions {
		granted[slug] = true
	}
	var librarian []model.Permission
	for _, p := range all {
		if granted[p.Slug] {
			librarian = append(librarian, p)
		}
	}

	roles := map[string][]model.Permission{
		RoleAdmin:     all,
		RoleLibrarian: librarian,
	}

	for name, perms := range roles {
		role := model.Role{Name: name}
		if err := s.db.Where(model.Role{Name: name}).FirstOrCreate(&role).Error; err != nil {
			return err
		}
		if err := s.db.Model(&role).Association("Permissions").Replace(perms); err != nil {
			return err
		}
		log.Printf("Role %s has %d permissions", name, len(perms))
	}
	return nil
}

// SeedUser creates a user with the given role unless the email is already taken
func (s *Seeder) SeedUser(email, password, name, roleName string) error {
	if email == "" || password == "" {
		log.Printf("Credentials for %s not set, skipping user creation", roleName)
		return nil
	}

	var count int64
	if err := s.db.Model(&model.User{}).Where("email = ?", email).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		log.Printf("User %s already exists, skipping...", email)
		return nil
	}

	var role model.Role
	if err := s.db.Where("name = ?", roleName).First(&role).Error; err != nil {
		return fmt.Errorf("role %s not found: %w", roleName, err)
	}

	passwordHash, err := auth.HashPassword(password)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}

	user := &model.User{
		Email:        email,
		PasswordHash: passwordHash,
		Name:         name,
		RoleID:       &role.ID,
	}
	if err := s.db.Create(user).Error; err != nil {
		return err
	}

	log.Printf("Created %s user: %s", roleName, user.Email)
	return nil
}

// RunSeeds is the entry point used by cmd/seed
func RunSeeds(db *gorm.DB) error {
	return NewSeeder(db).SeedAll()
}
