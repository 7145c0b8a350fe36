package database

import (
	"fmt"

	"github.com/khagendra-rk/lms/config"
	"gorm.io/gorm"
)

// Storage defines the interface that all database implementations must satisfy
type Storage interface {
	// Lifecycle methods
	Init() error
	Close() error
	HealthCheck() error

	// GORM DB access
	GetDB() *gorm.DB
}

// Start opens the store selected by DB_DRIVER
func Start(env *config.EnvironmentVariable) (*GORMStore, error) {
	switch env.DB_DRIVER {
	case "postgres":
		return StartGORM(env)
	case "sqlite":
		return StartSQLite(env.SQLITE_PATH, env.GO_ENV == "production")
	default:
		return nil, fmt.Errorf("unsupported DB_DRIVER %q", env.DB_DRIVER)
	}
}
