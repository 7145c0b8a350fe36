package middleware

import (
	"encoding/json"
	"log"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/khagendra-rk/lms/model"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// redactedFields never reach the audit table
var redactedFields = []string{"password", "current_password", "new_password", "refresh_token"}

// AuditLog records every mutating request of an authenticated user in audit_logs.
// resource names the entity family, e.g. "books".
func AuditLog(db *gorm.DB, resource string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if c.Method() == fiber.MethodGet || c.Method() == fiber.MethodHead || c.Method() == fiber.MethodOptions {
			return c.Next()
		}

		payload := redactBody(c.Body())

		err := c.Next()

		// values are copied here; the fiber context is recycled after the handler returns
		entry := model.AuditLog{
			Action:     actionFor(c.Method()),
			Resource:   resource,
			ResourceID: lastNumericParam(c),
			Method:     c.Method(),
			Path:       c.Path(),
			Status:     c.Response().StatusCode(),
			Payload:    payload,
			IPAddress:  c.IP(),
			UserAgent:  c.Get(fiber.HeaderUserAgent),
		}
		if userID, ok := GetUserID(c); ok {
			entry.UserID = &userID
		}

		if createErr := db.Create(&entry).Error; createErr != nil {
			log.Printf("Failed to write audit log for %s %s: %v", entry.Method, entry.Path, createErr)
		}

		return err
	}
}

func actionFor(method string) string {
	switch method {
	case fiber.MethodPost:
		return "create"
	case fiber.MethodPut, fiber.MethodPatch:
		return "update"
	case fiber.MethodDelete:
		return "delete"
	default:
		return strings.ToLower(method)
	}
}

// lastNumericParam returns the innermost numeric route parameter, e.g. :index in
// /books/:book/indices/:index
func lastNumericParam(c *fiber.Ctx) *uint {
	route := c.Route()
	if route == nil {
		return nil
	}
	for i := len(route.Params) - 1; i >= 0; i-- {
		if id, err := strconv.ParseUint(c.Params(route.Params[i]), 10, 64); err == nil {
			v := uint(id)
			return &v
		}
	}
	return nil
}

func redactBody(body []byte) datatypes.JSON {
	if len(body) == 0 {
		return nil
	}

	var fields map[string]interface{}
	if err := json.Unmarshal(body, &fields); err != nil {
		return nil
	}
	for _, f := range redactedFields {
		if _, ok := fields[f]; ok {
			fields[f] = "[REDACTED]"
		}
	}

	out, err := json.Marshal(fields)
	if err != nil {
		return nil
	}
	return datatypes.JSON(out)
}
