package app

import (
	"fmt"
	"log"

	"github.com/khagendra-rk/lms/api"
	"github.com/khagendra-rk/lms/config"
	"github.com/khagendra-rk/lms/database"
	"github.com/khagendra-rk/lms/router"
	"github.com/khagendra-rk/lms/services/cron"
	"github.com/khagendra-rk/lms/utils/auth"
	"github.com/khagendra-rk/lms/utils/cache"
)

func SetupAndRunServer() error {

	// Load ENV
	if err := config.LoadENV(); err != nil {
		log.Printf("Warning: .env not loaded: %v", err)
	}

	getEnv, err := config.Get()
	if err != nil {
		return err
	}

	auth.SetHashCost(getEnv.BCRYPT_COST)

	// Initialize database connection
	store, err := database.Start(getEnv)
	if err != nil {
		print("Check whether the database is running or not\n")
		print("For local development set DB_DRIVER=sqlite to use a file database\n")
		return err
	}

	if err := store.Init(); err != nil {
		print("Failed to initialize database tables\n")
		print("Error running migrations:\n")
		return err
	}

	// Redis is optional; without it login lockout is disabled
	redisCache, err := cache.NewRedisCache(getEnv.REDIS_URL)
	if err != nil {
		log.Printf("Warning: Failed to connect to Redis: %v", err)
	}

	// Initialize Cron Manager (only if enabled via environment variable)
	var cronManager *cron.CronManager
	if getEnv.CRON_ENABLED {
		cronManager = cron.NewCronManager(store.GetDB(), getEnv.BORROW_OVERDUE_DAYS)
		if err := cronManager.Start(); err != nil {
			print("Warning: Failed to start cron jobs\n")
			print("Error: ", err.Error(), "\n")
			// Don't fail the app, just log the warning
		}
	}

	// Defer closing DB, Redis and stopping cron jobs
	defer func() {
		if cronManager != nil {
			cronManager.Stop()
		}
		if redisCache != nil {
			redisCache.Close()
		}
		store.Close()
	}()

	// Init API
	server := api.NewAPIServer(fmt.Sprintf(":%d", getEnv.PORT))
	app := server.GetEngine()

	// Setup Routes (security middleware included)
	router.SetupRoutes(app, store, getEnv, redisCache)

	// Get the PORT & Start the Server
	return server.Run()

}
