// Command migrate creates or updates the schema and the partial unique indexes
// without starting the API.
package main

import (
	"log"

	"github.com/khagendra-rk/lms/config"
	"github.com/khagendra-rk/lms/database"
)

func main() {
	log.Println("=== GORM Migration ===")

	if err := config.LoadENV(); err != nil {
		log.Println("Warning: .env file not found, using system environment variables")
	}

	env, err := config.Get()
	if err != nil {
		log.Fatal("Failed to read configuration:", err)
	}

	store, err := database.Start(env)
	if err != nil {
		log.Fatal("Failed to connect to database:", err)
	}
	defer store.Close()

	if err := store.Init(); err != nil {
		log.Fatal("Failed to run migrations:", err)
	}

	if err := store.HealthCheck(); err != nil {
		log.Fatal("Database health check failed:", err)
	}

	log.Printf("Migrations completed on %s", env.DB_DRIVER)
}
