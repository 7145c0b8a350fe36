package teacher

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/khagendra-rk/lms/handlers"
	"github.com/khagendra-rk/lms/model"
	"github.com/khagendra-rk/lms/utils/response"
	"github.com/khagendra-rk/lms/utils/validation"
	"gorm.io/gorm"
)

// TeacherHandler handles teacher-related requests
type TeacherHandler struct {
	db        *gorm.DB
	validator *validation.Validator
}

// NewTeacherHandler creates a new teacher handler
func NewTeacherHandler(db *gorm.DB) *TeacherHandler {
	return &TeacherHandler{
		db:        db,
		validator: validation.NewValidator(),
	}
}

// TeacherRequest represents the request body for creating or replacing a teacher
type TeacherRequest struct {
	Name         string  `json:"name" validate:"required,max=255"`
	PhoneNo      string  `json:"phone_no" validate:"required,mobile"`
	Address      string  `json:"address" validate:"required,max=255"`
	Email        string  `json:"email" validate:"required,email,max=255"`
	CollegeEmail *string `json:"college_email" validate:"omitempty,email,max=255"`
}

// ListTeachers handles GET /api/v1/teachers
func (h *TeacherHandler) ListTeachers(c *fiber.Ctx) error {
	page, limit, offset := handlers.Pagination(c)
	search := strings.ToLower(c.Query("search", ""))

	query := h.db.Model(&model.Teacher{})
	if search != "" {
		term := "%" + search + "%"
		query = query.Where("LOWER(name) LIKE ? OR LOWER(email) LIKE ?", term, term)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return response.InternalServerError(c, "Failed to count teachers")
	}

	var teachers []model.Teacher
	if err := query.Order("id ASC").Limit(limit).Offset(offset).Find(&teachers).Error; err != nil {
		return response.InternalServerError(c, "Failed to fetch teachers")
	}

	return response.Paginated(c, teachers, response.CalculatePagination(page, limit, total))
}

// GetTeacher handles GET /api/v1/teachers/:teacher
func (h *TeacherHandler) GetTeacher(c *fiber.Ctx) error {
	id, ok := handlers.ParamID(c, "teacher")
	if !ok {
		return response.BadRequest(c, "Invalid teacher ID")
	}

	var teacher model.Teacher
	if err := h.db.First(&teacher, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return response.NotFound(c, "Teacher not found")
		}
		return response.InternalServerError(c, "Failed to fetch teacher")
	}

	return response.Success(c, teacher)
}

// CreateTeacher handles POST /api/v1/teachers
func (h *TeacherHandler) CreateTeacher(c *fiber.Ctx) error {
	var req TeacherRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}

	if err := h.validator.ValidateStruct(req); err != nil {
		return response.ValidationError(c, validation.FormatValidationErrors(err))
	}

	var teacher model.Teacher
	fill(&teacher, req)

	taken, err := h.takenEmails(&teacher, 0)
	if err != nil {
		return response.InternalServerError(c, "Failed to check emails")
	}
	if len(taken) > 0 {
		return response.ValidationError(c, taken)
	}

	if err := h.db.Create(&teacher).Error; err != nil {
		return handlers.RespondError(c, err, "Failed to create teacher")
	}

	return response.Created(c, teacher)
}

// UpdateTeacher handles PUT /api/v1/teachers/:teacher
func (h *TeacherHandler) UpdateTeacher(c *fiber.Ctx) error {
	id, ok := handlers.ParamID(c, "teacher")
	if !ok {
		return response.BadRequest(c, "Invalid teacher ID")
	}

	var req TeacherRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}

	if err := h.validator.ValidateStruct(req); err != nil {
		return response.ValidationError(c, validation.FormatValidationErrors(err))
	}

	var teacher model.Teacher
	if err := h.db.First(&teacher, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return response.NotFound(c, "Teacher not found")
		}
		return response.InternalServerError(c, "Failed to fetch teacher")
	}

	fill(&teacher, req)

	taken, err := h.takenEmails(&teacher, teacher.ID)
	if err != nil {
		return response.InternalServerError(c, "Failed to check emails")
	}
	if len(taken) > 0 {
		return response.ValidationError(c, taken)
	}

	if err := h.db.Save(&teacher).Error; err != nil {
		return handlers.RespondError(c, err, "Failed to update teacher")
	}

	return response.Success(c, teacher)
}

// DeleteTeacher handles DELETE /api/v1/teachers/:teacher
func (h *TeacherHandler) DeleteTeacher(c *fiber.Ctx) error {
	id, ok := handlers.ParamID(c, "teacher")
	if !ok {
		return response.BadRequest(c, "Invalid teacher ID")
	}

	var teacher model.Teacher
	if err := h.db.First(&teacher, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return response.NotFound(c, "Teacher not found")
		}
		return response.InternalServerError(c, "Failed to fetch teacher")
	}

	var open int64
	if err := h.db.Model(&model.Borrow{}).Where("teacher_id = ? AND returned_at IS NULL", teacher.ID).Count(&open).Error; err != nil {
		return response.InternalServerError(c, "Failed to check borrows")
	}
	if open > 0 {
		return response.ConflictFields(c, "The teacher has books that are not returned yet.", map[string][]string{
			"teacher": {"The teacher has books that are not returned yet."},
		})
	}

	if err := h.db.Delete(&teacher).Error; err != nil {
		return response.InternalServerError(c, "Failed to delete teacher")
	}

	return response.NoContent(c)
}

func fill(t *model.Teacher, req TeacherRequest) {
	t.Name = validation.SanitizeString(req.Name)
	t.PhoneNo = req.PhoneNo
	t.Address = validation.SanitizeString(req.Address)
	t.Email = strings.ToLower(req.Email)
	t.CollegeEmail = nil
	if req.CollegeEmail != nil && *req.CollegeEmail != "" {
		email := strings.ToLower(*req.CollegeEmail)
		t.CollegeEmail = &email
	}
}

func (h *TeacherHandler) takenEmails(t *model.Teacher, exceptID uint) (map[string][]string, error) {
	return handlers.TakenFields(h.db, &model.Teacher{}, exceptID, map[string]interface{}{
		"email":         t.Email,
		"college_email": t.CollegeEmail,
	})
}
