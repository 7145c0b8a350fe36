package utils

import (
	"log"

	fiber "github.com/gofiber/fiber/v2"
	"github.com/khagendra-rk/lms/database"
	"github.com/khagendra-rk/lms/utils/response"
)

// MakeHTTPHandleFunc adapts a store-scoped handler to a fiber handler. Errors
// that escape the handler are logged and answered with the 500 envelope.
func MakeHTTPHandleFunc(handler func(c *fiber.Ctx, store database.Storage) error, store database.Storage) func(c *fiber.Ctx) error {
	return func(c *fiber.Ctx) error {
		if err := handler(c, store); err != nil {
			log.Printf("%s %s failed: %v", c.Method(), c.Path(), err)
			return response.InternalServerError(c, "Internal server error")
		}
		return nil
	}
}
