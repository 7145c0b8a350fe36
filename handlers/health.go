package handlers

import (
	"log"

	"github.com/gofiber/fiber/v2"
	"github.com/khagendra-rk/lms/database"
	"github.com/khagendra-rk/lms/utils/response"
)

// HandleCheckHealth pings the database
func HandleCheckHealth(c *fiber.Ctx, store database.Storage) error {
	if err := store.HealthCheck(); err != nil {
		log.Printf("Health check failed: %v", err)
		return response.Error(c, fiber.StatusServiceUnavailable, "Database unavailable", "SERVICE_UNAVAILABLE")
	}
	return response.Success(c, fiber.Map{"status": "ok"})
}
