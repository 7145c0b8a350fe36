package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sort"
	"strconv"
	"strings"

	"github.com/khagendra-rk/lms/model"
	"gorm.io/gorm"
)

// MaxAllocationBatch bounds how many codes a single allocation request may create.
const MaxAllocationBatch = 1000

const (
	msgCodeTaken    = "The code has already been taken."
	msgIndexInUse   = "This book is currently borrowed and cannot be deleted."
	msgPrefixClash  = "Changing the prefix would duplicate existing codes."
	msgBatchTooWide = "A single request may allocate at most 1000 codes."
)

// IndexService allocates and maintains the physical copies (indices) of books.
// No two live indices share (book_prefix, code).
type IndexService struct {
	db *gorm.DB
}

// NewIndexService creates a new index service
func NewIndexService(db *gorm.DB) *IndexService {
	return &IndexService{db: db}
}

// Add creates one index with an explicit code under the book's prefix
func (s *IndexService) Add(ctx context.Context, bookID uint, code int) (*model.Index, error) {
	if code < 1 {
		return nil, NewValidationError("The code must be at least 1.", "code")
	}

	db := s.db.WithContext(ctx)
	book, err := findBook(db, bookID)
	if err != nil {
		return nil, err
	}

	index := model.Index{
		BookID:     book.ID,
		BookPrefix: book.Prefix,
		Code:       code,
	}

	err = db.Transaction(func(tx *gorm.DB) error {
		if err := ensureCodeFree(tx, book.Prefix, code, 0); err != nil {
			return err
		}
		return createIndices(tx, &index)
	})
	if err != nil {
		return nil, err
	}
	return &index, nil
}

// Update renames an index to a new code. The index may keep its own code.
func (s *IndexService) Update(ctx context.Context, bookID, indexID uint, code int) (*model.Index, error) {
	if code < 1 {
		return nil, NewValidationError("The code must be at least 1.", "code")
	}

	db := s.db.WithContext(ctx)
	book, err := findBook(db, bookID)
	if err != nil {
		return nil, err
	}
	index, err := findBookIndex(db, book.ID, indexID)
	if err != nil {
		return nil, err
	}

	err = db.Transaction(func(tx *gorm.DB) error {
		if err := ensureCodeFree(tx, book.Prefix, code, index.ID); err != nil {
			return err
		}
		res := tx.Model(index).Updates(map[string]interface{}{
			"code":        code,
			"book_prefix": book.Prefix,
		})
		if res.Error != nil {
			if errors.Is(res.Error, gorm.ErrDuplicatedKey) {
				return &ConflictError{Field: "code", Message: msgCodeTaken, Codes: []int{code}}
			}
			return fmt.Errorf("failed to update index: %w", res.Error)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	index.Code = code
	index.BookPrefix = book.Prefix
	return index, nil
}

// Delete soft-deletes an index. Borrowed copies cannot be deleted.
func (s *IndexService) Delete(ctx context.Context, bookID, indexID uint) error {
	db := s.db.WithContext(ctx)

	index, err := findBookIndex(db, bookID, indexID)
	if err != nil {
		return err
	}
	if index.IsBorrowed {
		return &ConflictError{Field: "index", Message: msgIndexInUse}
	}

	// the guard is re-checked in the statement so a concurrent issue wins
	res := db.Where("is_borrowed = ?", false).Delete(index)
	if res.Error != nil {
		return fmt.Errorf("failed to delete index: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return &ConflictError{Field: "index", Message: msgIndexInUse}
	}
	return nil
}

// AllocateQuantity creates quantity indices numbered from the highest live code of
// any book plus one. The starting code is global across books, not per prefix.
func (s *IndexService) AllocateQuantity(ctx context.Context, bookID uint, quantity int) ([]model.Index, error) {
	if quantity < 1 {
		return nil, NewValidationError("The quantity must be at least 1.", "quantity")
	}
	if quantity > MaxAllocationBatch {
		return nil, NewValidationError(msgBatchTooWide, "quantity")
	}

	db := s.db.WithContext(ctx)
	book, err := findBook(db, bookID)
	if err != nil {
		return nil, err
	}

	var created []model.Index
	err = db.Transaction(func(tx *gorm.DB) error {
		var maxCode int
		if err := tx.Model(&model.Index{}).Select("COALESCE(MAX(code), 0)").Scan(&maxCode).Error; err != nil {
			return fmt.Errorf("failed to read max code: %w", err)
		}

		created = buildIndices(book, sequence(maxCode+1, maxCode+quantity))
		return createIndices(tx, &created)
	})
	if err != nil {
		return nil, err
	}

	log.Printf("[INDEX] Allocated %d codes for book %d starting at %d", len(created), book.ID, created[0].Code)
	return s.reload(db, created)
}

// AllocateRange creates one index per code in [min, max]. Nothing is inserted when any
// code is already taken under the book's prefix.
func (s *IndexService) AllocateRange(ctx context.Context, bookID uint, min, max int) ([]model.Index, error) {
	fields := &ValidationError{}
	if min < 1 {
		fields.Add("min", "The min must be at least 1.")
	}
	if max <= min {
		fields.Add("max", "The max must be greater than min.")
	}
	if len(fields.Fields) > 0 {
		return nil, fields
	}
	if max-min+1 > MaxAllocationBatch {
		return nil, NewValidationError(msgBatchTooWide, "max")
	}

	return s.allocate(ctx, bookID, sequence(min, max))
}

// AllocateList creates one index per listed code, in the order given
func (s *IndexService) AllocateList(ctx context.Context, bookID uint, codes []int) ([]model.Index, error) {
	if len(codes) == 0 {
		return nil, NewValidationError("The codes field is required.", "codes")
	}
	if len(codes) > MaxAllocationBatch {
		return nil, NewValidationError(msgBatchTooWide, "codes")
	}

	seen := make(map[int]struct{}, len(codes))
	for _, code := range codes {
		if code < 1 {
			return nil, NewValidationError("Every code must be at least 1.", "codes")
		}
		if _, dup := seen[code]; dup {
			return nil, NewValidationError(fmt.Sprintf("The code %d is listed more than once.", code), "codes")
		}
		seen[code] = struct{}{}
	}

	return s.allocate(ctx, bookID, codes)
}

// SyncBookPrefix rewrites book_prefix on every live index of the book. It must run in
// the transaction that changes the book's prefix.
func (s *IndexService) SyncBookPrefix(tx *gorm.DB, bookID uint, prefix string) error {
	var clashes []int
	err := tx.Model(&model.Index{}).
		Where("book_prefix = ? AND book_id <> ?", prefix, bookID).
		Where("code IN (?)", tx.Model(&model.Index{}).Select("code").Where("book_id = ?", bookID)).
		Order("code").
		Pluck("code", &clashes).Error
	if err != nil {
		return fmt.Errorf("failed to check prefix collisions: %w", err)
	}
	if len(clashes) > 0 {
		return &ConflictError{Field: "prefix", Message: msgPrefixClash + " " + joinCodes(clashes), Codes: clashes}
	}

	res := tx.Model(&model.Index{}).Where("book_id = ?", bookID).Update("book_prefix", prefix)
	if res.Error != nil {
		if errors.Is(res.Error, gorm.ErrDuplicatedKey) {
			return &ConflictError{Field: "prefix", Message: msgPrefixClash}
		}
		return fmt.Errorf("failed to sync index prefix: %w", res.Error)
	}

	log.Printf("[INDEX] Moved %d indices of book %d to prefix %s", res.RowsAffected, bookID, prefix)
	return nil
}

func (s *IndexService) allocate(ctx context.Context, bookID uint, codes []int) ([]model.Index, error) {
	db := s.db.WithContext(ctx)
	book, err := findBook(db, bookID)
	if err != nil {
		return nil, err
	}

	var created []model.Index
	err = db.Transaction(func(tx *gorm.DB) error {
		var taken []int
		if err := tx.Model(&model.Index{}).
			Where("book_prefix = ? AND code IN ?", book.Prefix, codes).
			Order("code").
			Pluck("code", &taken).Error; err != nil {
			return fmt.Errorf("failed to check codes: %w", err)
		}
		if len(taken) > 0 {
			return &ConflictError{
				Field:   "codes",
				Message: "These codes already exist: " + joinCodes(taken),
				Codes:   taken,
			}
		}

		created = buildIndices(book, codes)
		return createIndices(tx, &created)
	})
	if err != nil {
		return nil, err
	}

	log.Printf("[INDEX] Allocated %d codes for book %d", len(created), book.ID)
	return s.reload(db, created)
}

// reload re-reads freshly inserted rows and keeps the insertion order
func (s *IndexService) reload(db *gorm.DB, inserted []model.Index) ([]model.Index, error) {
	ids := make([]uint, len(inserted))
	for i, idx := range inserted {
		ids[i] = idx.ID
	}

	var rows []model.Index
	if err := db.Where("id IN ?", ids).Order("id").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to reload indices: %w", err)
	}

	byID := make(map[uint]model.Index, len(rows))
	for _, r := range rows {
		byID[r.ID] = r
	}
	out := make([]model.Index, 0, len(ids))
	for _, id := range ids {
		if r, ok := byID[id]; ok {
			out = append(out, r)
		}
	}
	return out, nil
}

func ensureCodeFree(tx *gorm.DB, prefix string, code int, exceptID uint) error {
	q := tx.Model(&model.Index{}).Where("book_prefix = ? AND code = ?", prefix, code)
	if exceptID != 0 {
		q = q.Where("id <> ?", exceptID)
	}

	var count int64
	if err := q.Count(&count).Error; err != nil {
		return fmt.Errorf("failed to check code: %w", err)
	}
	if count > 0 {
		return &ConflictError{Field: "code", Message: msgCodeTaken, Codes: []int{code}}
	}
	return nil
}

// createIndices inserts one index or a slice of them
func createIndices(tx *gorm.DB, value interface{}) error {
	if err := tx.Create(value).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return &ConflictError{Field: "code", Message: msgCodeTaken}
		}
		return fmt.Errorf("failed to create indices: %w", err)
	}
	return nil
}

func buildIndices(book *model.Book, codes []int) []model.Index {
	indices := make([]model.Index, len(codes))
	for i, code := range codes {
		indices[i] = model.Index{
			BookID:     book.ID,
			BookPrefix: book.Prefix,
			Code:       code,
		}
	}
	return indices
}

func sequence(from, to int) []int {
	codes := make([]int, 0, to-from+1)
	for c := from; c <= to; c++ {
		codes = append(codes, c)
	}
	return codes
}

func joinCodes(codes []int) string {
	sorted := append([]int(nil), codes...)
	sort.Ints(sorted)
	parts := make([]string, len(sorted))
	for i, c := range sorted {
		parts[i] = strconv.Itoa(c)
	}
	return strings.Join(parts, ", ")
}

func findBook(db *gorm.DB, id uint) (*model.Book, error) {
	var book model.Book
	if err := db.First(&book, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, &NotFoundError{Resource: "book"}
		}
		return nil, fmt.Errorf("failed to fetch book: %w", err)
	}
	return &book, nil
}

func findBookIndex(db *gorm.DB, bookID, indexID uint) (*model.Index, error) {
	var index model.Index
	if err := db.Where("book_id = ?", bookID).First(&index, indexID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, &NotFoundError{Resource: "index"}
		}
		return nil, fmt.Errorf("failed to fetch index: %w", err)
	}
	return &index, nil
}
