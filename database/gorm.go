package database

import (
	"fmt"
	"log"
	"time"

	"github.com/khagendra-rk/lms/config"
	"github.com/khagendra-rk/lms/model"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type GORMStore struct {
	db *gorm.DB
}

// Partial unique indexes backing the (book_prefix, code) and one-open-borrow-per-index
// invariants. Both Postgres and SQLite accept this syntax.
var invariantIndexes = []string{
	`CREATE UNIQUE INDEX IF NOT EXISTS idx_indices_live_prefix_code
		ON indices (book_prefix, code) WHERE deleted_at IS NULL`,
	`CREATE UNIQUE INDEX IF NOT EXISTS idx_borrows_open_index
		ON borrows (index_id) WHERE returned_at IS NULL AND deleted_at IS NULL`,
}

// StartGORM initializes a GORM connection to PostgreSQL
func StartGORM(env *config.EnvironmentVariable) (*GORMStore, error) {
	// Build DSN (Data Source Name)
	dsn := fmt.Sprintf(
		"host=%s user=%s password=%s dbname=%s port=%s sslmode=%s TimeZone=UTC",
		env.DB_HOST,
		env.DB_USER_NAME,
		env.DB_PASSWORD,
		env.DB_NAME,
		env.DB_PORT,
		env.DB_SSL_MODE,
	)

	db, err := gorm.Open(postgres.Open(dsn), gormConfig(env.GO_ENV == "production"))
	if err != nil {
		log.Println("Unable to connect to PostgreSQL with GORM:", err)
		return nil, err
	}

	// Get underlying *sql.DB to configure connection pool
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}

	// Connection pool settings
	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetMaxOpenConns(100)
	sqlDB.SetConnMaxLifetime(time.Hour)

	log.Println("Successfully connected to PostgreSQL Database with GORM.")

	return &GORMStore{db: db}, nil
}

func gormConfig(production bool) *gorm.Config {
	gormLogger := logger.Default.LogMode(logger.Info)
	if production {
		gormLogger = logger.Default.LogMode(logger.Error)
	}

	return &gorm.Config{
		Logger:                 gormLogger,
		SkipDefaultTransaction: false,
		TranslateError:         true, // unique violations surface as gorm.ErrDuplicatedKey
	}
}

// Init runs the AutoMigrate to create/update tables
func (s *GORMStore) Init() error {
	log.Println("Running GORM AutoMigrate for all models...")

	if err := s.db.SetupJoinTable(&model.Book{}, "Faculties", &model.BookFaculty{}); err != nil {
		return err
	}
	if err := s.db.SetupJoinTable(&model.Faculty{}, "Books", &model.BookFaculty{}); err != nil {
		return err
	}

	err := s.db.AutoMigrate(
		// Access models
		&model.Permission{},
		&model.Role{},
		&model.User{},
		&model.JWTTokenBlacklist{},

		// Party models
		&model.Faculty{},
		&model.Student{},
		&model.Teacher{},

		// Catalog models
		&model.Book{},
		&model.BookFaculty{},
		&model.Index{},

		// Circulation
		&model.Borrow{},

		// Audit & logging models
		&model.AuditLog{},
		&model.CronJobLog{},
	)

	if err != nil {
		log.Println("Error running AutoMigrate:", err)
		return err
	}

	for _, stmt := range invariantIndexes {
		if err := s.db.Exec(stmt).Error; err != nil {
			log.Println("Error creating invariant index:", err)
			return err
		}
	}

	log.Println("GORM AutoMigrate completed successfully!")
	return nil
}

// Close closes the database connection
func (s *GORMStore) Close() error {
	log.Println("Closing GORM database connection...")
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// GetDB returns the GORM DB instance for use in services and handlers
func (s *GORMStore) GetDB() *gorm.DB {
	return s.db
}

// HealthCheck verifies the database connection is alive
func (s *GORMStore) HealthCheck() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Ping()
}
