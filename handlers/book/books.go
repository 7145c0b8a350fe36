package book

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/khagendra-rk/lms/handlers"
	"github.com/khagendra-rk/lms/model"
	"github.com/khagendra-rk/lms/services"
	"github.com/khagendra-rk/lms/utils/middleware"
	"github.com/khagendra-rk/lms/utils/response"
	"github.com/khagendra-rk/lms/utils/validation"
	"gorm.io/gorm"
)

// BookHandler handles catalog and copy (index) requests
type BookHandler struct {
	db        *gorm.DB
	indices   *services.IndexService
	validator *validation.Validator
}

// NewBookHandler creates a new book handler
func NewBookHandler(db *gorm.DB) *BookHandler {
	return &BookHandler{
		db:        db,
		indices:   services.NewIndexService(db),
		validator: validation.NewValidator(),
	}
}

// CreateBookRequest represents the request body for creating a book
type CreateBookRequest struct {
	Name          string `json:"name" validate:"required,max=255"`
	Author        string `json:"author" validate:"required,max=255"`
	Publication   string `json:"publication" validate:"required,max=255"`
	Edition       string `json:"edition" validate:"required,max=100"`
	PublishedYear int    `json:"published_year" validate:"required,gte=1000,lte=9999"`
	Price         int    `json:"price" validate:"gte=0"`
	Prefix        string `json:"prefix" validate:"required,alphanum,max=20"`
	BookType      string `json:"book_type" validate:"required,max=50"`
}

// UpdateBookRequest represents the request body for updating a book. Absent fields
// are left untouched.
type UpdateBookRequest struct {
	Name          *string `json:"name" validate:"omitempty,min=1,max=255"`
	Author        *string `json:"author" validate:"omitempty,min=1,max=255"`
	Publication   *string `json:"publication" validate:"omitempty,min=1,max=255"`
	Edition       *string `json:"edition" validate:"omitempty,min=1,max=100"`
	PublishedYear *int    `json:"published_year" validate:"omitempty,gte=1000,lte=9999"`
	Price         *int    `json:"price" validate:"omitempty,gte=0"`
	Prefix        *string `json:"prefix" validate:"omitempty,alphanum,max=20"`
	BookType      *string `json:"book_type" validate:"omitempty,min=1,max=50"`
}

// FacultyAssignment links a book to a faculty for one semester
type FacultyAssignment struct {
	FacultyID uint `json:"faculty_id" validate:"required"`
	Semester  int  `json:"semester" validate:"required,gte=1,lte=12"`
}

// SyncFacultiesRequest replaces the faculties of a book
type SyncFacultiesRequest struct {
	Faculties []FacultyAssignment `json:"faculties" validate:"dive"`
}

// ListBooks handles GET /api/v1/books
func (h *BookHandler) ListBooks(c *fiber.Ctx) error {
	page, limit, offset := handlers.Pagination(c)
	search := strings.ToLower(c.Query("search", ""))

	query := h.db.Model(&model.Book{})
	if search != "" {
		term := "%" + search + "%"
		query = query.Where("LOWER(name) LIKE ? OR LOWER(author) LIKE ? OR LOWER(prefix) LIKE ?", term, term, term)
	}
	if bookType := c.Query("book_type"); bookType != "" {
		query = query.Where("book_type = ?", bookType)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return response.InternalServerError(c, "Failed to count books")
	}

	var books []model.Book
	if err := query.Order("id ASC").Limit(limit).Offset(offset).Find(&books).Error; err != nil {
		return response.InternalServerError(c, "Failed to fetch books")
	}

	return response.Paginated(c, books, response.CalculatePagination(page, limit, total))
}

// GetBook handles GET /api/v1/books/:book
func (h *BookHandler) GetBook(c *fiber.Ctx) error {
	id, ok := handlers.ParamID(c, "book")
	if !ok {
		return response.BadRequest(c, "Invalid book ID")
	}

	var book model.Book
	if err := h.db.Preload("Faculties").First(&book, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return response.NotFound(c, "Book not found")
		}
		return response.InternalServerError(c, "Failed to fetch book")
	}

	return response.Success(c, book)
}

// CreateBook handles POST /api/v1/books
func (h *BookHandler) CreateBook(c *fiber.Ctx) error {
	var req CreateBookRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}

	if err := h.validator.ValidateStruct(req); err != nil {
		return response.ValidationError(c, validation.FormatValidationErrors(err))
	}

	book := model.Book{
		Name:          validation.SanitizeString(req.Name),
		Author:        validation.SanitizeString(req.Author),
		Publication:   validation.SanitizeString(req.Publication),
		Edition:       validation.SanitizeString(req.Edition),
		PublishedYear: req.PublishedYear,
		Price:         req.Price,
		Prefix:        strings.ToUpper(validation.SanitizeString(req.Prefix)),
		BookType:      validation.SanitizeString(req.BookType),
	}
	if userID, ok := middleware.GetUserID(c); ok {
		book.AddedBy = &userID
	}

	if err := h.db.Create(&book).Error; err != nil {
		return handlers.RespondError(c, err, "Failed to create book")
	}

	return response.Created(c, book)
}

// UpdateBook handles PUT /api/v1/books/:book. A new prefix is carried over to
// every copy of the book in the same transaction.
func (h *BookHandler) UpdateBook(c *fiber.Ctx) error {
	id, ok := handlers.ParamID(c, "book")
	if !ok {
		return response.BadRequest(c, "Invalid book ID")
	}

	var req UpdateBookRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}

	if err := h.validator.ValidateStruct(req); err != nil {
		return response.ValidationError(c, validation.FormatValidationErrors(err))
	}

	var book model.Book
	if err := h.db.First(&book, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return response.NotFound(c, "Book not found")
		}
		return response.InternalServerError(c, "Failed to fetch book")
	}

	updates := map[string]interface{}{}
	setString := func(column string, v *string) {
		if v != nil {
			updates[column] = validation.SanitizeString(*v)
		}
	}
	setString("name", req.Name)
	setString("author", req.Author)
	setString("publication", req.Publication)
	setString("edition", req.Edition)
	setString("book_type", req.BookType)
	if req.PublishedYear != nil {
		updates["published_year"] = *req.PublishedYear
	}
	if req.Price != nil {
		updates["price"] = *req.Price
	}

	prefixChanged := false
	if req.Prefix != nil {
		prefix := strings.ToUpper(validation.SanitizeString(*req.Prefix))
		if prefix != book.Prefix {
			updates["prefix"] = prefix
			prefixChanged = true
		}
	}

	if len(updates) == 0 {
		return response.Success(c, book)
	}

	err := h.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&book).Updates(updates).Error; err != nil {
			return err
		}
		if prefixChanged {
			return h.indices.SyncBookPrefix(tx, book.ID, updates["prefix"].(string))
		}
		return nil
	})
	if err != nil {
		return handlers.RespondError(c, err, "Failed to update book")
	}

	if err := h.db.First(&book, book.ID).Error; err != nil {
		return response.InternalServerError(c, "Failed to fetch book")
	}
	return response.Success(c, book)
}

// DeleteBook handles DELETE /api/v1/books/:book. Books with copies on loan are kept.
func (h *BookHandler) DeleteBook(c *fiber.Ctx) error {
	id, ok := handlers.ParamID(c, "book")
	if !ok {
		return response.BadRequest(c, "Invalid book ID")
	}

	var book model.Book
	if err := h.db.First(&book, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return response.NotFound(c, "Book not found")
		}
		return response.InternalServerError(c, "Failed to fetch book")
	}

	// Only idle copies are deleted; if fewer rows go than the book has, one was
	// on loan (or got issued meanwhile) and the whole delete rolls back.
	err := h.db.WithContext(c.UserContext()).Transaction(func(tx *gorm.DB) error {
		var copies int64
		if err := tx.Model(&model.Index{}).Where("book_id = ?", book.ID).Count(&copies).Error; err != nil {
			return err
		}
		res := tx.Where("book_id = ? AND is_borrowed = ?", book.ID, false).Delete(&model.Index{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected != copies {
			return &services.ConflictError{Field: "book", Message: "Copies of this book are currently borrowed."}
		}
		return tx.Delete(&book).Error
	})
	if err != nil {
		return handlers.RespondError(c, err, "Failed to delete book")
	}

	return response.NoContent(c)
}

// SyncFaculties handles PUT /api/v1/books/:book/faculties
func (h *BookHandler) SyncFaculties(c *fiber.Ctx) error {
	id, ok := handlers.ParamID(c, "book")
	if !ok {
		return response.BadRequest(c, "Invalid book ID")
	}

	var req SyncFacultiesRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}

	if err := h.validator.ValidateStruct(req); err != nil {
		return response.ValidationError(c, validation.FormatValidationErrors(err))
	}

	var book model.Book
	if err := h.db.First(&book, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return response.NotFound(c, "Book not found")
		}
		return response.InternalServerError(c, "Failed to fetch book")
	}

	ids := make([]uint, 0, len(req.Faculties))
	rows := make([]model.BookFaculty, 0, len(req.Faculties))
	seen := make(map[uint]bool, len(req.Faculties))
	for _, f := range req.Faculties {
		if seen[f.FacultyID] {
			return response.ValidationError(c, map[string][]string{
				"faculties": {"Each faculty may be listed once."},
			})
		}
		seen[f.FacultyID] = true
		ids = append(ids, f.FacultyID)
		rows = append(rows, model.BookFaculty{BookID: book.ID, FacultyID: f.FacultyID, Semester: f.Semester})
	}

	if len(ids) > 0 {
		var found int64
		if err := h.db.Model(&model.Faculty{}).Where("id IN ?", ids).Count(&found).Error; err != nil {
			return response.InternalServerError(c, "Failed to check faculties")
		}
		if int(found) != len(ids) {
			return response.NotFound(c, "Faculty not found")
		}
	}

	err := h.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("book_id = ?", book.ID).Delete(&model.BookFaculty{}).Error; err != nil {
			return err
		}
		if len(rows) == 0 {
			return nil
		}
		return tx.Create(&rows).Error
	})
	if err != nil {
		return response.InternalServerError(c, "Failed to update faculties")
	}

	if err := h.db.Preload("Faculties").First(&book, book.ID).Error; err != nil {
		return response.InternalServerError(c, "Failed to fetch book")
	}
	return response.Success(c, book)
}
