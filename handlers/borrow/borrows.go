package borrow

import (
	"errors"
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/khagendra-rk/lms/handlers"
	"github.com/khagendra-rk/lms/model"
	"github.com/khagendra-rk/lms/services"
	"github.com/khagendra-rk/lms/utils/middleware"
	"github.com/khagendra-rk/lms/utils/response"
	"github.com/khagendra-rk/lms/utils/validation"
	"gorm.io/gorm"
)

// BorrowHandler handles circulation requests
type BorrowHandler struct {
	db          *gorm.DB
	circulation *services.CirculationService
	validator   *validation.Validator
}

// NewBorrowHandler creates a new borrow handler
func NewBorrowHandler(db *gorm.DB) *BorrowHandler {
	return &BorrowHandler{
		db:          db,
		circulation: services.NewCirculationService(db),
		validator:   validation.NewValidator(),
	}
}

// IssueRequest represents the body of issue and reassign requests. Exactly one of
// student_id and teacher_id is expected; the service reports both fields otherwise.
type IssueRequest struct {
	IndexID   uint  `json:"index_id" validate:"required"`
	StudentID *uint `json:"student_id"`
	TeacherID *uint `json:"teacher_id"`
}

// ReturnByCodeRequest identifies a copy by its printed code
type ReturnByCodeRequest struct {
	Code   string `json:"code" validate:"required"`
	Prefix string `json:"prefix" validate:"omitempty,max=20"`
}

func (r IssueRequest) borrower() services.BorrowerRef {
	return services.BorrowerRef{StudentID: r.StudentID, TeacherID: r.TeacherID}
}

// ListBorrows handles GET /api/v1/borrows
func (h *BorrowHandler) ListBorrows(c *fiber.Ctx) error {
	page, limit, offset := handlers.Pagination(c)

	query := h.db.Model(&model.Borrow{})
	switch c.Query("status") {
	case "open":
		query = query.Where("returned_at IS NULL")
	case "returned":
		query = query.Where("returned_at IS NOT NULL")
	}
	if id, err := strconv.ParseUint(c.Query("student_id"), 10, 64); err == nil {
		query = query.Where("student_id = ?", id)
	}
	if id, err := strconv.ParseUint(c.Query("teacher_id"), 10, 64); err == nil {
		query = query.Where("teacher_id = ?", id)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return response.InternalServerError(c, "Failed to count borrows")
	}

	var borrows []model.Borrow
	if err := query.Preload("Student").Preload("Teacher").Preload("Index.Book").
		Order("issued_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&borrows).Error; err != nil {
		return response.InternalServerError(c, "Failed to fetch borrows")
	}

	return response.Paginated(c, borrows, response.CalculatePagination(page, limit, total))
}

// GetBorrow handles GET /api/v1/borrows/:borrow
func (h *BorrowHandler) GetBorrow(c *fiber.Ctx) error {
	id, ok := handlers.ParamID(c, "borrow")
	if !ok {
		return response.BadRequest(c, "Invalid borrow ID")
	}

	borrow, err := h.load(id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return response.NotFound(c, "Borrow not found")
		}
		return response.InternalServerError(c, "Failed to fetch borrow")
	}
	return response.Success(c, borrow)
}

// IssueBorrow handles POST /api/v1/borrows
func (h *BorrowHandler) IssueBorrow(c *fiber.Ctx) error {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		return response.Unauthorized(c, "User not authenticated")
	}

	var req IssueRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}
	if err := h.validator.ValidateStruct(req); err != nil {
		return response.ValidationError(c, validation.FormatValidationErrors(err))
	}

	borrow, err := h.circulation.Issue(c.UserContext(), req.IndexID, req.borrower(), userID)
	if err != nil {
		return handlers.RespondError(c, err, "Failed to issue book")
	}

	full, err := h.load(borrow.ID)
	if err != nil {
		return response.InternalServerError(c, "Failed to fetch borrow")
	}
	return response.Created(c, full)
}

// ReassignBorrow handles PUT /api/v1/borrows/:borrow
func (h *BorrowHandler) ReassignBorrow(c *fiber.Ctx) error {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		return response.Unauthorized(c, "User not authenticated")
	}

	id, ok := handlers.ParamID(c, "borrow")
	if !ok {
		return response.BadRequest(c, "Invalid borrow ID")
	}

	var req IssueRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}
	if err := h.validator.ValidateStruct(req); err != nil {
		return response.ValidationError(c, validation.FormatValidationErrors(err))
	}

	if _, err := h.circulation.Reassign(c.UserContext(), id, req.IndexID, req.borrower(), userID); err != nil {
		return handlers.RespondError(c, err, "Failed to update borrow")
	}

	full, err := h.load(id)
	if err != nil {
		return response.InternalServerError(c, "Failed to fetch borrow")
	}
	return response.Success(c, full)
}

// DeleteBorrow handles DELETE /api/v1/borrows/:borrow
func (h *BorrowHandler) DeleteBorrow(c *fiber.Ctx) error {
	id, ok := handlers.ParamID(c, "borrow")
	if !ok {
		return response.BadRequest(c, "Invalid borrow ID")
	}

	if err := h.circulation.Delete(c.UserContext(), id); err != nil {
		return handlers.RespondError(c, err, "Failed to delete borrow")
	}
	return response.NoContent(c)
}

// ReturnBorrow handles POST /api/v1/borrows/:borrow/return
func (h *BorrowHandler) ReturnBorrow(c *fiber.Ctx) error {
	id, ok := handlers.ParamID(c, "borrow")
	if !ok {
		return response.BadRequest(c, "Invalid borrow ID")
	}

	if _, err := h.circulation.ReturnByBorrow(c.UserContext(), id); err != nil {
		return handlers.RespondError(c, err, "Failed to return book")
	}
	return response.NoContent(c)
}

// ReturnByCode handles POST /api/v1/borrows/return with a code such as "SCI-42"
func (h *BorrowHandler) ReturnByCode(c *fiber.Ctx) error {
	var req ReturnByCodeRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}
	if err := h.validator.ValidateStruct(req); err != nil {
		return response.ValidationError(c, validation.FormatValidationErrors(err))
	}

	if _, err := h.circulation.ReturnByCode(c.UserContext(), req.Code, req.Prefix); err != nil {
		return handlers.RespondError(c, err, "Failed to return book")
	}
	return response.NoContent(c)
}

func (h *BorrowHandler) load(id uint) (*model.Borrow, error) {
	var borrow model.Borrow
	err := h.db.Preload("Student").Preload("Teacher").Preload("Index.Book").Preload("Issuer").First(&borrow, id).Error
	if err != nil {
		return nil, err
	}
	return &borrow, nil
}
