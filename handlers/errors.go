package handlers

import (
	"errors"
	"log"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/khagendra-rk/lms/services"
	"github.com/khagendra-rk/lms/utils/response"
	"gorm.io/gorm"
)

// RespondError maps service and database errors onto the response envelope.
// Anything unrecognised is logged and answered with 500 carrying fallback.
func RespondError(c *fiber.Ctx, err error, fallback string) error {
	var (
		verr *services.ValidationError
		cerr *services.ConflictError
		nerr *services.NotFoundError
	)

	switch {
	case errors.As(err, &verr):
		return response.ValidationError(c, verr.Fields)
	case errors.As(err, &cerr):
		return response.ConflictFields(c, cerr.Message, map[string][]string{cerr.Field: {cerr.Message}})
	case errors.As(err, &nerr):
		return response.NotFound(c, notFoundMessage(nerr))
	case errors.Is(err, gorm.ErrRecordNotFound):
		return response.NotFound(c, "Resource not found")
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return response.Conflict(c, "A record with the same unique value already exists")
	default:
		log.Printf("%s: %v", fallback, err)
		return response.InternalServerError(c, fallback)
	}
}

func notFoundMessage(err *services.NotFoundError) string {
	if err.Message != "" {
		return err.Message
	}
	if err.Resource == "" {
		return "Resource not found"
	}
	return strings.ToUpper(err.Resource[:1]) + err.Resource[1:] + " not found"
}

// ParamID parses a positive numeric route parameter
func ParamID(c *fiber.Ctx, name string) (uint, bool) {
	id, err := strconv.ParseUint(c.Params(name), 10, 64)
	if err != nil || id == 0 {
		return 0, false
	}
	return uint(id), true
}

// Pagination reads page and limit from the query string
func Pagination(c *fiber.Ctx) (page, limit, offset int) {
	page, _ = strconv.Atoi(c.Query("page", "1"))
	limit, _ = strconv.Atoi(c.Query("limit", "10"))
	page, limit = response.NormalizePage(page, limit)
	return page, limit, (page - 1) * limit
}

// TakenFields reports which of the given column values already belong to another
// live row of m, keyed by JSON field name (same as the column here).
func TakenFields(db *gorm.DB, m interface{}, exceptID uint, values map[string]interface{}) (map[string][]string, error) {
	taken := map[string][]string{}
	for column, value := range values {
		if value == nil {
			continue
		}
		if s, ok := value.(*string); ok {
			if s == nil || *s == "" {
				continue
			}
			value = *s
		}

		q := db.Model(m).Where(column+" = ?", value)
		if exceptID != 0 {
			q = q.Where("id <> ?", exceptID)
		}
		var count int64
		if err := q.Count(&count).Error; err != nil {
			return nil, err
		}
		if count > 0 {
			taken[column] = []string{"The " + strings.ReplaceAll(column, "_", " ") + " has already been taken."}
		}
	}
	return taken, nil
}
