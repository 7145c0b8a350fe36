package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strconv"
	"strings"
	"time"

	"github.com/khagendra-rk/lms/model"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const (
	msgEitherBorrower  = "You need to either provide teacher ID or student ID."
	msgAlreadyBorrowed = "Book has already been borrowed!"
	msgAlreadyReturned = "Book has already been returned!"
	msgInvalidCode     = "Invalid Code!"
	msgCodeNotFound    = "Cannot find book from given code!"
	msgNoOpenBorrow    = "Book has not been borrowed or has already been returned!"
)

// BorrowerRef names the borrower of a loan: exactly one of StudentID and TeacherID.
type BorrowerRef struct {
	StudentID *uint
	TeacherID *uint
}

func (r BorrowerRef) validate() error {
	hasStudent := r.StudentID != nil && *r.StudentID != 0
	hasTeacher := r.TeacherID != nil && *r.TeacherID != 0
	if hasStudent == hasTeacher {
		return NewValidationError(msgEitherBorrower, "teacher_id", "student_id")
	}
	return nil
}

// normalized drops zero ids so they are stored as NULL
func (r BorrowerRef) normalized() BorrowerRef {
	if r.StudentID != nil && *r.StudentID == 0 {
		r.StudentID = nil
	}
	if r.TeacherID != nil && *r.TeacherID == 0 {
		r.TeacherID = nil
	}
	return r
}

// CirculationService runs the issue/return lifecycle of book copies. Every mutation
// touches a Borrow and its Index inside one transaction so that Index.IsBorrowed
// always equals "an open Borrow exists for this Index".
type CirculationService struct {
	db  *gorm.DB
	now func() time.Time
}

// NewCirculationService creates a new circulation service
func NewCirculationService(db *gorm.DB) *CirculationService {
	return &CirculationService{
		db:  db,
		now: time.Now,
	}
}

// Issue lends the index to the borrower on behalf of issuerID
func (s *CirculationService) Issue(ctx context.Context, indexID uint, borrower BorrowerRef, issuerID uint) (*model.Borrow, error) {
	if err := borrower.validate(); err != nil {
		return nil, err
	}
	borrower = borrower.normalized()

	db := s.db.WithContext(ctx)

	index, err := findIndex(db, indexID)
	if err != nil {
		return nil, err
	}
	if err := s.checkBorrowerExists(db, borrower); err != nil {
		return nil, err
	}
	if index.IsBorrowed {
		return nil, &ConflictError{Field: "index_id", Message: msgAlreadyBorrowed}
	}

	borrow := model.Borrow{
		IndexID:   index.ID,
		StudentID: borrower.StudentID,
		TeacherID: borrower.TeacherID,
		IssuedBy:  issuerID,
		IssuedAt:  s.now(),
	}

	err = db.Transaction(func(tx *gorm.DB) error {
		if err := claimIndex(tx, index.ID); err != nil {
			return err
		}
		if err := tx.Create(&borrow).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return &ConflictError{Field: "index_id", Message: msgAlreadyBorrowed}
			}
			return fmt.Errorf("failed to create borrow: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	log.Printf("[CIRCULATION] Issued %s (borrow %d) by user %d", index.Label(), borrow.ID, issuerID)
	return &borrow, nil
}

// Reassign points an open borrow at newIndexID and refreshes its borrower, issuer and
// issue time. Moving to a different index frees the old one.
func (s *CirculationService) Reassign(ctx context.Context, borrowID, newIndexID uint, borrower BorrowerRef, issuerID uint) (*model.Borrow, error) {
	if err := borrower.validate(); err != nil {
		return nil, err
	}
	borrower = borrower.normalized()

	db := s.db.WithContext(ctx)

	borrow, err := findBorrow(db, borrowID)
	if err != nil {
		return nil, err
	}
	if !borrow.IsOpen() {
		return nil, &ConflictError{Field: "borrow", Message: "Returned borrows cannot be reassigned."}
	}

	newIndex, err := findIndex(db, newIndexID)
	if err != nil {
		return nil, err
	}
	if err := s.checkBorrowerExists(db, borrower); err != nil {
		return nil, err
	}

	moving := newIndex.ID != borrow.IndexID
	if moving && newIndex.IsBorrowed {
		return nil, &ConflictError{Field: "index_id", Message: msgAlreadyBorrowed}
	}

	oldIndexID := borrow.IndexID
	borrow.IndexID = newIndex.ID
	borrow.StudentID = borrower.StudentID
	borrow.TeacherID = borrower.TeacherID
	borrow.IssuedBy = issuerID
	borrow.IssuedAt = s.now()

	err = db.Transaction(func(tx *gorm.DB) error {
		if moving {
			if err := setBorrowed(tx, oldIndexID, false); err != nil {
				return err
			}
		}

		res := tx.Model(&model.Borrow{}).
			Where("id = ? AND returned_at IS NULL", borrow.ID).
			Select("IndexID", "StudentID", "TeacherID", "IssuedBy", "IssuedAt").
			Updates(borrow)
		if res.Error != nil {
			if errors.Is(res.Error, gorm.ErrDuplicatedKey) {
				return &ConflictError{Field: "index_id", Message: msgAlreadyBorrowed}
			}
			return fmt.Errorf("failed to update borrow: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return &ConflictError{Field: "borrow", Message: "Returned borrows cannot be reassigned."}
		}

		if moving {
			return claimIndex(tx, newIndex.ID)
		}
		return setBorrowed(tx, newIndex.ID, true)
	})
	if err != nil {
		return nil, err
	}

	log.Printf("[CIRCULATION] Reassigned borrow %d to %s by user %d", borrow.ID, newIndex.Label(), issuerID)
	return findBorrow(db, borrow.ID)
}

// ReturnByBorrow closes the borrow and frees its index. Returning twice is a conflict.
func (s *CirculationService) ReturnByBorrow(ctx context.Context, borrowID uint) (*model.Borrow, error) {
	db := s.db.WithContext(ctx)

	borrow, err := findBorrow(db, borrowID)
	if err != nil {
		return nil, err
	}
	if !borrow.IsOpen() {
		return nil, &ConflictError{Field: "borrow", Message: msgAlreadyReturned}
	}

	if err := s.closeBorrow(db, borrow); err != nil {
		return nil, err
	}
	return borrow, nil
}

// ReturnByCode resolves a human-entered copy code and closes its open borrow.
// When prefix is empty the code must read PREFIX-NUMBER.
func (s *CirculationService) ReturnByCode(ctx context.Context, code, prefix string) (*model.Borrow, error) {
	prefix, number, err := ParseIndexCode(code, prefix)
	if err != nil {
		return nil, err
	}

	db := s.db.WithContext(ctx)

	var index model.Index
	if err := db.Where("book_prefix = ? AND code = ?", prefix, number).First(&index).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, &NotFoundError{Resource: "index", Field: "code", Message: msgCodeNotFound}
		}
		return nil, fmt.Errorf("failed to fetch index: %w", err)
	}

	if !index.IsBorrowed {
		return nil, &ConflictError{Field: "index_id", Message: msgAlreadyReturned}
	}

	var borrow model.Borrow
	if err := db.Where("index_id = ? AND returned_at IS NULL", index.ID).First(&borrow).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, &NotFoundError{Resource: "borrow", Field: "index_id", Message: msgNoOpenBorrow}
		}
		return nil, fmt.Errorf("failed to fetch borrow: %w", err)
	}

	if err := s.closeBorrow(db, &borrow); err != nil {
		return nil, err
	}
	return &borrow, nil
}

// Delete soft-deletes a borrow. An open borrow frees its index first.
func (s *CirculationService) Delete(ctx context.Context, borrowID uint) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// read inside the transaction so a concurrent reassign or return is seen
		borrow, err := findBorrow(lockRows(tx), borrowID)
		if err != nil {
			return err
		}
		if borrow.IsOpen() {
			if err := setBorrowed(tx, borrow.IndexID, false); err != nil {
				return err
			}
		}
		if err := tx.Delete(borrow).Error; err != nil {
			return fmt.Errorf("failed to delete borrow: %w", err)
		}
		return nil
	})
}

// ParseIndexCode splits a copy code into its prefix and number. When prefix is given,
// code holds only the number. Prefixes are stored upper case, so the returned
// prefix is too.
func ParseIndexCode(code, prefix string) (string, int, error) {
	code = strings.TrimSpace(code)
	prefix = strings.TrimSpace(prefix)

	if prefix == "" {
		parts := strings.Split(code, "-")
		if len(parts) != 2 || parts[0] == "" {
			return "", 0, NewValidationError(msgInvalidCode, "code")
		}
		prefix, code = parts[0], parts[1]
	}

	number, err := strconv.Atoi(code)
	if err != nil {
		return "", 0, NewValidationError(msgInvalidCode, "code")
	}
	return strings.ToUpper(prefix), number, nil
}

func (s *CirculationService) closeBorrow(db *gorm.DB, borrow *model.Borrow) error {
	returnedAt := s.now()

	err := db.Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&model.Borrow{}).
			Where("id = ? AND returned_at IS NULL", borrow.ID).
			Update("returned_at", returnedAt)
		if res.Error != nil {
			return fmt.Errorf("failed to close borrow: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return &ConflictError{Field: "borrow", Message: msgAlreadyReturned}
		}
		return setBorrowed(tx, borrow.IndexID, false)
	})
	if err != nil {
		return err
	}

	borrow.ReturnedAt = &returnedAt
	log.Printf("[CIRCULATION] Returned borrow %d (index %d)", borrow.ID, borrow.IndexID)
	return nil
}

func (s *CirculationService) checkBorrowerExists(db *gorm.DB, borrower BorrowerRef) error {
	if borrower.StudentID != nil {
		if err := exists(db, &model.Student{}, *borrower.StudentID); err != nil {
			return withResource(err, "student", "student_id")
		}
	}
	if borrower.TeacherID != nil {
		if err := exists(db, &model.Teacher{}, *borrower.TeacherID); err != nil {
			return withResource(err, "teacher", "teacher_id")
		}
	}
	return nil
}

// lockRows adds FOR UPDATE on Postgres. SQLite serializes writers already.
func lockRows(tx *gorm.DB) *gorm.DB {
	if tx.Dialector.Name() == "postgres" {
		return tx.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	return tx
}

// claimIndex flips is_borrowed from false to true. The row lock (Postgres) plus the
// guarded UPDATE make a concurrent claimant see zero affected rows.
func claimIndex(tx *gorm.DB, indexID uint) error {
	q := lockRows(tx)
	var locked model.Index
	if err := q.First(&locked, indexID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return &NotFoundError{Resource: "index", Field: "index_id"}
		}
		return fmt.Errorf("failed to lock index: %w", err)
	}

	res := tx.Model(&model.Index{}).
		Where("id = ? AND is_borrowed = ?", indexID, false).
		Update("is_borrowed", true)
	if res.Error != nil {
		return fmt.Errorf("failed to mark index borrowed: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return &ConflictError{Field: "index_id", Message: msgAlreadyBorrowed}
	}
	return nil
}

func setBorrowed(tx *gorm.DB, indexID uint, borrowed bool) error {
	if err := tx.Model(&model.Index{}).Where("id = ?", indexID).Update("is_borrowed", borrowed).Error; err != nil {
		return fmt.Errorf("failed to update index %d: %w", indexID, err)
	}
	return nil
}

func findIndex(db *gorm.DB, id uint) (*model.Index, error) {
	var index model.Index
	if err := db.First(&index, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, &NotFoundError{Resource: "index", Field: "index_id"}
		}
		return nil, fmt.Errorf("failed to fetch index: %w", err)
	}
	return &index, nil
}

func findBorrow(db *gorm.DB, id uint) (*model.Borrow, error) {
	var borrow model.Borrow
	if err := db.First(&borrow, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, &NotFoundError{Resource: "borrow"}
		}
		return nil, fmt.Errorf("failed to fetch borrow: %w", err)
	}
	return &borrow, nil
}

func exists(db *gorm.DB, m interface{}, id uint) error {
	var count int64
	if err := db.Model(m).Where("id = ?", id).Count(&count).Error; err != nil {
		return err
	}
	if count == 0 {
		return &NotFoundError{}
	}
	return nil
}

func withResource(err error, resource, field string) error {
	var nf *NotFoundError
	if errors.As(err, &nf) {
		return &NotFoundError{Resource: resource, Field: field}
	}
	return fmt.Errorf("failed to fetch %s: %w", resource, err)
}
