package admin

import (
	"errors"
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/khagendra-rk/lms/database"
	"github.com/khagendra-rk/lms/handlers"
	"github.com/khagendra-rk/lms/model"
	"github.com/khagendra-rk/lms/utils/response"
	"gorm.io/gorm"
)

// ListAuditLogs retrieves audit log entries with pagination
// GET /audit-logs
func ListAuditLogs(c *fiber.Ctx, store database.Storage) error {
	db := store.GetDB()
	page, limit, offset := handlers.Pagination(c)

	query := db.Model(&model.AuditLog{})
	if action := c.Query("action"); action != "" {
		query = query.Where("action = ?", action)
	}
	if resource := c.Query("resource"); resource != "" {
		query = query.Where("resource = ?", resource)
	}
	if userID, err := strconv.ParseUint(c.Query("user_id"), 10, 64); err == nil {
		query = query.Where("user_id = ?", userID)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return response.InternalServerError(c, "Failed to count audit logs")
	}

	var logs []model.AuditLog
	if err := query.Order("created_at DESC").Offset(offset).Limit(limit).Find(&logs).Error; err != nil {
		return response.InternalServerError(c, "Failed to fetch audit logs")
	}

	return response.Paginated(c, logs, response.CalculatePagination(page, limit, total))
}

// GetAuditLog retrieves a specific audit log entry
// GET /audit-logs/:log
func GetAuditLog(c *fiber.Ctx, store database.Storage) error {
	id, ok := handlers.ParamID(c, "log")
	if !ok {
		return response.BadRequest(c, "Invalid log ID")
	}

	var entry model.AuditLog
	if err := store.GetDB().First(&entry, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return response.NotFound(c, "Audit log not found")
		}
		return response.InternalServerError(c, "Failed to fetch audit log")
	}

	return response.Success(c, entry)
}
