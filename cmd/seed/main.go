package main

import (
	"fmt"
	"log"
	"strings"

	"github.com/khagendra-rk/lms/config"
	"github.com/khagendra-rk/lms/database"
	"github.com/khagendra-rk/lms/utils/auth"
)

func main() {
	// Load environment variables
	if err := config.LoadENV(); err != nil {
		log.Println("Warning: .env file not found, using system environment variables")
	}

	env, err := config.Get()
	if err != nil {
		log.Fatalf("Failed to read configuration: %v", err)
	}

	auth.SetHashCost(env.BCRYPT_COST)

	store, err := database.Start(env)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer store.Close()

	// Tables must exist before seeding
	if err := store.Init(); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	separator := strings.Repeat("=", 60)
	fmt.Println(separator)
	fmt.Println("LMS - Database Seeding")
	fmt.Println(separator)
	fmt.Println()

	if err := database.RunSeeds(store.GetDB()); err != nil {
		log.Fatalf("Seeding failed: %v", err)
	}

	fmt.Println()
	fmt.Println(separator)
	fmt.Println("Seeding completed successfully!")
	fmt.Println(separator)
	fmt.Println()
	fmt.Println("Admin and librarian users are created from ADMIN_EMAIL/ADMIN_PASSWORD")
	fmt.Println("and LIBRARIAN_EMAIL/LIBRARIAN_PASSWORD. Unset pairs are skipped.")
	fmt.Println()
}
