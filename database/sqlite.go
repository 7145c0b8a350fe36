package database

import (
	"log"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// StartSQLite opens a file-backed SQLite database. Used for local development and tests.
// The pool is pinned to one connection so transactions serialize the way row locks do
// on Postgres.
func StartSQLite(path string, production bool) (*GORMStore, error) {
	db, err := gorm.Open(sqlite.Open(path+"?_foreign_keys=on&_busy_timeout=5000"), gormConfig(production))
	if err != nil {
		log.Println("Unable to open SQLite database:", err)
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(1)

	log.Printf("Opened SQLite database at %s", path)

	return &GORMStore{db: db}, nil
}

// OpenTestStore opens and migrates a quiet SQLite store at path
func OpenTestStore(path string) (*GORMStore, error) {
	store, err := StartSQLite(path, true)
	if err != nil {
		return nil, err
	}
	if err := store.Init(); err != nil {
		store.Close()
		return nil, err
	}
	return store, nil
}
