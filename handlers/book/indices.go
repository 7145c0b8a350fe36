package book

import (
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/khagendra-rk/lms/handlers"
	"github.com/khagendra-rk/lms/model"
	"github.com/khagendra-rk/lms/utils/response"
	"github.com/khagendra-rk/lms/utils/validation"
)

// IndexRequest carries a single copy code
type IndexRequest struct {
	Code int `json:"code" validate:"required,gte=1"`
}

// RangeIndicesRequest allocates every code in [min, max]
type RangeIndicesRequest struct {
	Min int `json:"min" validate:"required,gte=1"`
	Max int `json:"max" validate:"required,gtfield=Min"`
}

// ListIndicesRequest allocates the listed codes
type ListIndicesRequest struct {
	Codes []int `json:"codes" validate:"required,min=1,dive,gte=1"`
}

// QuantityIndicesRequest allocates quantity codes after the highest existing one
type QuantityIndicesRequest struct {
	Quantity int `json:"quantity" validate:"required,gte=1"`
}

// ListIndices handles GET /api/v1/books/:book/indices
func (h *BookHandler) ListIndices(c *fiber.Ctx) error {
	bookID, ok := handlers.ParamID(c, "book")
	if !ok {
		return response.BadRequest(c, "Invalid book ID")
	}

	if err := h.db.First(&model.Book{}, bookID).Error; err != nil {
		return handlers.RespondError(c, err, "Failed to fetch book")
	}

	page, _ := strconv.Atoi(c.Query("page", "1"))
	limit, _ := strconv.Atoi(c.Query("limit", "30"))
	page, limit = response.NormalizePage(page, limit)

	query := h.db.Model(&model.Index{}).Where("book_id = ?", bookID)
	switch c.Query("is_borrowed") {
	case "true":
		query = query.Where("is_borrowed = ?", true)
	case "false":
		query = query.Where("is_borrowed = ?", false)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return response.InternalServerError(c, "Failed to count indices")
	}

	var indices []model.Index
	if err := query.Order("code ASC").Limit(limit).Offset((page - 1) * limit).Find(&indices).Error; err != nil {
		return response.InternalServerError(c, "Failed to fetch indices")
	}

	return response.Paginated(c, indices, response.CalculatePagination(page, limit, total))
}

// AddIndex handles POST /api/v1/books/:book/indices
func (h *BookHandler) AddIndex(c *fiber.Ctx) error {
	bookID, ok := handlers.ParamID(c, "book")
	if !ok {
		return response.BadRequest(c, "Invalid book ID")
	}

	var req IndexRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}
	if err := h.validator.ValidateStruct(req); err != nil {
		return response.ValidationError(c, validation.FormatValidationErrors(err))
	}

	index, err := h.indices.Add(c.UserContext(), bookID, req.Code)
	if err != nil {
		return handlers.RespondError(c, err, "Failed to add index")
	}
	return response.Created(c, index)
}

// UpdateIndex handles PUT /api/v1/books/:book/indices/:index
func (h *BookHandler) UpdateIndex(c *fiber.Ctx) error {
	bookID, ok := handlers.ParamID(c, "book")
	if !ok {
		return response.BadRequest(c, "Invalid book ID")
	}
	indexID, ok := handlers.ParamID(c, "index")
	if !ok {
		return response.BadRequest(c, "Invalid index ID")
	}

	var req IndexRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}
	if err := h.validator.ValidateStruct(req); err != nil {
		return response.ValidationError(c, validation.FormatValidationErrors(err))
	}

	index, err := h.indices.Update(c.UserContext(), bookID, indexID, req.Code)
	if err != nil {
		return handlers.RespondError(c, err, "Failed to update index")
	}
	return response.Success(c, index)
}

// DeleteIndex handles DELETE /api/v1/books/:book/indices/:index
func (h *BookHandler) DeleteIndex(c *fiber.Ctx) error {
	bookID, ok := handlers.ParamID(c, "book")
	if !ok {
		return response.BadRequest(c, "Invalid book ID")
	}
	indexID, ok := handlers.ParamID(c, "index")
	if !ok {
		return response.BadRequest(c, "Invalid index ID")
	}

	if err := h.indices.Delete(c.UserContext(), bookID, indexID); err != nil {
		return handlers.RespondError(c, err, "Failed to delete index")
	}
	return response.NoContent(c)
}

// RangeIndices handles POST /api/v1/books/:book/rangeindices
func (h *BookHandler) RangeIndices(c *fiber.Ctx) error {
	bookID, ok := handlers.ParamID(c, "book")
	if !ok {
		return response.BadRequest(c, "Invalid book ID")
	}

	var req RangeIndicesRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}
	if err := h.validator.ValidateStruct(req); err != nil {
		return response.ValidationError(c, validation.FormatValidationErrors(err))
	}

	indices, err := h.indices.AllocateRange(c.UserContext(), bookID, req.Min, req.Max)
	if err != nil {
		return handlers.RespondError(c, err, "Failed to allocate indices")
	}
	return response.Created(c, indices)
}

// ListIndicesAllocation handles POST /api/v1/books/:book/listindices
func (h *BookHandler) ListIndicesAllocation(c *fiber.Ctx) error {
	bookID, ok := handlers.ParamID(c, "book")
	if !ok {
		return response.BadRequest(c, "Invalid book ID")
	}

	var req ListIndicesRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}
	if err := h.validator.ValidateStruct(req); err != nil {
		return response.ValidationError(c, validation.FormatValidationErrors(err))
	}

	indices, err := h.indices.AllocateList(c.UserContext(), bookID, req.Codes)
	if err != nil {
		return handlers.RespondError(c, err, "Failed to allocate indices")
	}
	return response.Created(c, indices)
}

// QuantityIndices handles POST /api/v1/books/:book/quantityindices
func (h *BookHandler) QuantityIndices(c *fiber.Ctx) error {
	bookID, ok := handlers.ParamID(c, "book")
	if !ok {
		return response.BadRequest(c, "Invalid book ID")
	}

	var req QuantityIndicesRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}
	if err := h.validator.ValidateStruct(req); err != nil {
		return response.ValidationError(c, validation.FormatValidationErrors(err))
	}

	indices, err := h.indices.AllocateQuantity(c.UserContext(), bookID, req.Quantity)
	if err != nil {
		return handlers.RespondError(c, err, "Failed to allocate indices")
	}
	return response.Created(c, indices)
}
