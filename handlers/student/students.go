package student

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

// StudentHandler handles student-related requests
type StudentHandler struct {
	db        *gorm.DB
	validator *validation.Validator
}

// NewStudentHandler creates a new student handler
func NewStudentHandler(db *gorm.DB) *StudentHandler {
	return &StudentHandler{
		db:        db,
		validator: validation.NewValidator(),
	}
}

// StudentRequest represents the request body for creating or replacing a student
type StudentRequest struct {
	FacultyID      *uint   `json:"faculty_id"`
	Name           string  `json:"name" validate:"required,max=255"`
	PhoneNo        string  `json:"phone_no" validate:"required,mobile"`
	Address        string  `json:"address" validate:"required,max=255"`
	Email          string  `json:"email" validate:"required,email,max=255"`
	CollegeEmail   *string `json:"college_email" validate:"omitempty,email,max=255"`
	ParentName     string  `json:"parent_name" validate:"omitempty,max=255"`
	ParentContact  string  `json:"parent_contact" validate:"omitempty,mobile"`
	Year           int     `json:"year" validate:"omitempty,gte=1,lte=6"`
	RegistrationNo string  `json:"registration_no" validate:"omitempty,max=50"`
	SymbolNo       string  `json:"symbol_no" validate:"omitempty,max=50"`
}

func (r StudentRequest) apply(s *model.Student) {
	s.FacultyID = r.FacultyID
	s.Name = validation.SanitizeString(r.Name)
	s.PhoneNo = r.PhoneNo
	s.Address = validation.SanitizeString(r.Address)
	s.Email = strings.ToLower(r.Email)
	s.CollegeEmail = nil
	if r.CollegeEmail != nil && *r.CollegeEmail != "" {
		email := strings.ToLower(*r.CollegeEmail)
		s.CollegeEmail = &email
	}
	s.ParentName = validation.SanitizeString(r.ParentName)
	s.ParentContact = r.ParentContact
	s.Year = r.Year
	s.RegistrationNo = validation.SanitizeString(r.RegistrationNo)
	s.SymbolNo = validation.SanitizeString(r.SymbolNo)
}

// ListStudents handles GET /api/v1/students
func (h *StudentHandler) ListStudents(c *fiber.Ctx) error {
	page, limit, offset := handlers.Pagination(c)
	search := strings.ToLower(c.Query("search", ""))

	query := h.db.Model(&model.Student{})
	if search != "" {
		term := "%" + search + "%"
		query = query.Where("LOWER(name) LIKE ? OR LOWER(email) LIKE ? OR registration_no LIKE ?", term, term, term)
	}
	if facultyID := c.Query("faculty_id"); facultyID != "" {
		query = query.Where("faculty_id = ?", facultyID)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return response.InternalServerError(c, "Failed to count students")
	}

	var students []model.Student
	if err := query.Preload("Faculty").Order("id ASC").Limit(limit).Offset(offset).Find(&students).Error; err != nil {
		return response.InternalServerError(c, "Failed to fetch students")
	}

	return response.Paginated(c, students, response.CalculatePagination(page, limit, total))
}

// GetStudent handles GET /api/v1/students/:student
func (h *StudentHandler) GetStudent(c *fiber.Ctx) error {
	id, ok := handlers.ParamID(c, "student")
	if !ok {
		return response.BadRequest(c, "Invalid student ID")
	}

	var student model.Student
	if err := h.db.Preload("Faculty").First(&student, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return response.NotFound(c, "Student not found")
		}
		return response.InternalServerError(c, "Failed to fetch student")
	}

	return response.Success(c, student)
}

// CreateStudent handles POST /api/v1/students
func (h *StudentHandler) CreateStudent(c *fiber.Ctx) error {
	var req StudentRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}

	if err := h.validator.ValidateStruct(req); err != nil {
		return response.ValidationError(c, validation.FormatValidationErrors(err))
	}

	var student model.Student
	req.apply(&student)

	fields, err := h.referenceErrors(&student, 0)
	if err != nil {
		return response.InternalServerError(c, "Failed to validate student")
	}
	if len(fields) > 0 {
		return response.ValidationError(c, fields)
	}

	if err := h.db.Create(&student).Error; err != nil {
		return handlers.RespondError(c, err, "Failed to create student")
	}

	return response.Created(c, student)
}

// UpdateStudent handles PUT /api/v1/students/:student
func (h *StudentHandler) UpdateStudent(c *fiber.Ctx) error {
	id, ok := handlers.ParamID(c, "student")
	if !ok {
		return response.BadRequest(c, "Invalid student ID")
	}

	var req StudentRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}

	if err := h.validator.ValidateStruct(req); err != nil {
		return response.ValidationError(c, validation.FormatValidationErrors(err))
	}

	var student model.Student
	if err := h.db.First(&student, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return response.NotFound(c, "Student not found")
		}
		return response.InternalServerError(c, "Failed to fetch student")
	}

	req.apply(&student)

	fields, err := h.referenceErrors(&student, student.ID)
	if err != nil {
		return response.InternalServerError(c, "Failed to validate student")
	}
	if len(fields) > 0 {
		return response.ValidationError(c, fields)
	}

	if err := h.db.Save(&student).Error; err != nil {
		return handlers.RespondError(c, err, "Failed to update student")
	}

	return response.Success(c, student)
}

// DeleteStudent handles DELETE /api/v1/students/:student. Students holding books
// cannot be removed.
func (h *StudentHandler) DeleteStudent(c *fiber.Ctx) error {
	id, ok := handlers.ParamID(c, "student")
	if !ok {
		return response.BadRequest(c, "Invalid student ID")
	}

	var student model.Student
	if err := h.db.First(&student, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return response.NotFound(c, "Student not found")
		}
		return response.InternalServerError(c, "Failed to fetch student")
	}

	var open int64
	if err := h.db.Model(&model.Borrow{}).Where("student_id = ? AND returned_at IS NULL", student.ID).Count(&open).Error; err != nil {
		return response.InternalServerError(c, "Failed to check borrows")
	}
	if open > 0 {
		return response.ConflictFields(c, "The student has books that are not returned yet.", map[string][]string{
			"student": {"The student has books that are not returned yet."},
		})
	}

	if err := h.db.Delete(&student).Error; err != nil {
		return response.InternalServerError(c, "Failed to delete student")
	}

	return response.NoContent(c)
}

// referenceErrors checks the faculty and the unique emails
func (h *StudentHandler) referenceErrors(student *model.Student, exceptID uint) (map[string][]string, error) {
	fields := map[string][]string{}
	if student.FacultyID != nil {
		var count int64
		if err := h.db.Model(&model.Faculty{}).Where("id = ?", *student.FacultyID).Count(&count).Error; err != nil {
			return nil, err
		}
		if count == 0 {
			fields["faculty_id"] = []string{"The selected faculty is invalid."}
		}
	}

	taken, err := handlers.TakenFields(h.db, &model.Student{}, exceptID, map[string]interface{}{
		"email":         student.Email,
		"college_email": student.CollegeEmail,
	})
	if err != nil {
		return nil, err
	}
	for k, v := range taken {
		fields[k] = v
	}
	return fields, nil
}
