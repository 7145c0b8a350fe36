package faculty

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/khagendra-rk/lms/handlers"
	"github.com/khagendra-rk/lms/model"
	"github.com/khagendra-rk/lms/utils/response"
	"github.com/khagendra-rk/lms/utils/validation"
	"gorm.io/gorm"
)

// FacultyHandler handles faculty-related requests
type FacultyHandler struct {
	db        *gorm.DB
	validator *validation.Validator
}

// NewFacultyHandler creates a new faculty handler
func NewFacultyHandler(db *gorm.DB) *FacultyHandler {
	return &FacultyHandler{
		db:        db,
		validator: validation.NewValidator(),
	}
}

// FacultyRequest represents the request body for creating or updating a faculty
type FacultyRequest struct {
	Name        string `json:"name" validate:"required,max=255"`
	Description string `json:"description" validate:"omitempty,max=2000"`
}

// ListFaculties handles GET /api/v1/faculties
func (h *FacultyHandler) ListFaculties(c *fiber.Ctx) error {
	page, limit, offset := handlers.Pagination(c)

	var total int64
	if err := h.db.Model(&model.Faculty{}).Count(&total).Error; err != nil {
		return response.InternalServerError(c, "Failed to count faculties")
	}

	var faculties []model.Faculty
	if err := h.db.Order("name ASC").Limit(limit).Offset(offset).Find(&faculties).Error; err != nil {
		return response.InternalServerError(c, "Failed to fetch faculties")
	}

	return response.Paginated(c, faculties, response.CalculatePagination(page, limit, total))
}

// GetFaculty handles GET /api/v1/faculties/:faculty
func (h *FacultyHandler) GetFaculty(c *fiber.Ctx) error {
	id, ok := handlers.ParamID(c, "faculty")
	if !ok {
		return response.BadRequest(c, "Invalid faculty ID")
	}

	var faculty model.Faculty
	if err := h.db.Preload("Books").First(&faculty, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return response.NotFound(c, "Faculty not found")
		}
		return response.InternalServerError(c, "Failed to fetch faculty")
	}

	return response.Success(c, faculty)
}

// CreateFaculty handles POST /api/v1/faculties
func (h *FacultyHandler) CreateFaculty(c *fiber.Ctx) error {
	var req FacultyRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}

	if err := h.validator.ValidateStruct(req); err != nil {
		return response.ValidationError(c, validation.FormatValidationErrors(err))
	}

	faculty := model.Faculty{
		Name:        validation.SanitizeString(req.Name),
		Description: validation.SanitizeString(req.Description),
	}

	taken, err := handlers.TakenFields(h.db, &model.Faculty{}, 0, map[string]interface{}{"name": faculty.Name})
	if err != nil {
		return response.InternalServerError(c, "Failed to check name")
	}
	if len(taken) > 0 {
		return response.ValidationError(c, taken)
	}

	if err := h.db.Create(&faculty).Error; err != nil {
		return handlers.RespondError(c, err, "Failed to create faculty")
	}

	return response.Created(c, faculty)
}

// UpdateFaculty handles PUT /api/v1/faculties/:faculty
func (h *FacultyHandler) UpdateFaculty(c *fiber.Ctx) error {
	id, ok := handlers.ParamID(c, "faculty")
	if !ok {
		return response.BadRequest(c, "Invalid faculty ID")
	}

	var req FacultyRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}

	if err := h.validator.ValidateStruct(req); err != nil {
		return response.ValidationError(c, validation.FormatValidationErrors(err))
	}

	var faculty model.Faculty
	if err := h.db.First(&faculty, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return response.NotFound(c, "Faculty not found")
		}
		return response.InternalServerError(c, "Failed to fetch faculty")
	}

	faculty.Name = validation.SanitizeString(req.Name)
	faculty.Description = validation.SanitizeString(req.Description)

	taken, err := handlers.TakenFields(h.db, &model.Faculty{}, faculty.ID, map[string]interface{}{"name": faculty.Name})
	if err != nil {
		return response.InternalServerError(c, "Failed to check name")
	}
	if len(taken) > 0 {
		return response.ValidationError(c, taken)
	}

	if err := h.db.Save(&faculty).Error; err != nil {
		return handlers.RespondError(c, err, "Failed to update faculty")
	}

	return response.Success(c, faculty)
}

// DeleteFaculty handles DELETE /api/v1/faculties/:faculty. Students keep their row
// with the faculty cleared.
func (h *FacultyHandler) DeleteFaculty(c *fiber.Ctx) error {
	id, ok := handlers.ParamID(c, "faculty")
	if !ok {
		return response.BadRequest(c, "Invalid faculty ID")
	}

	var faculty model.Faculty
	if err := h.db.First(&faculty, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return response.NotFound(c, "Faculty not found")
		}
		return response.InternalServerError(c, "Failed to fetch faculty")
	}

	err := h.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&model.Student{}).Where("faculty_id = ?", faculty.ID).Update("faculty_id", nil).Error; err != nil {
			return err
		}
		if err := tx.Where("faculty_id = ?", faculty.ID).Delete(&model.BookFaculty{}).Error; err != nil {
			return err
		}
		return tx.Delete(&faculty).Error
	})
	if err != nil {
		return response.InternalServerError(c, "Failed to delete faculty")
	}

	return response.NoContent(c)
}
