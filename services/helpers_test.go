package services

import (
	"fmt"
	"path/filepath"
	"testing"

	"github.com/khagendra-rk/lms/database"
	"github.com/khagendra-rk/lms/model"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func openDB(t *testing.T) *gorm.DB {
	t.Helper()
	store, err := database.OpenTestStore(filepath.Join(t.TempDir(), "lms.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store.GetDB()
}

type fixture struct {
	db      *gorm.DB
	book    model.Book
	user    model.User
	student model.Student
	teacher model.Teacher
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{db: openDB(t)}

	f.user = model.User{Email: "librarian@lms.test", PasswordHash: "x", Name: "Librarian"}
	require.NoError(t, f.db.Create(&f.user).Error)

	f.book = newBook(t, f.db, "SCI")

	f.student = model.Student{Name: "Ram", PhoneNo: "9800000000", Address: "Ktm", Email: "ram@lms.test"}
	require.NoError(t, f.db.Create(&f.student).Error)

	f.teacher = model.Teacher{Name: "Sita", PhoneNo: "9811111111", Address: "Ktm", Email: "sita@lms.test"}
	require.NoError(t, f.db.Create(&f.teacher).Error)

	return f
}

func newBook(t *testing.T, db *gorm.DB, prefix string) model.Book {
	t.Helper()
	book := model.Book{
		Name:          fmt.Sprintf("Book %s", prefix),
		Author:        "Author",
		Publication:   "Ekta",
		Edition:       "1st",
		PublishedYear: 2020,
		Price:         500,
		Prefix:        prefix,
		BookType:      "text",
	}
	require.NoError(t, db.Create(&book).Error)
	return book
}

func (f *fixture) index(t *testing.T, code int) model.Index {
	t.Helper()
	idx := model.Index{BookID: f.book.ID, BookPrefix: f.book.Prefix, Code: code}
	require.NoError(t, f.db.Create(&idx).Error)
	return idx
}

func (f *fixture) studentRef() BorrowerRef {
	id := f.student.ID
	return BorrowerRef{StudentID: &id}
}

func (f *fixture) teacherRef() BorrowerRef {
	id := f.teacher.ID
	return BorrowerRef{TeacherID: &id}
}

// assertFlagsConsistent checks is_borrowed matches the existence of an open borrow
func assertFlagsConsistent(t *testing.T, db *gorm.DB) {
	t.Helper()
	var indices []model.Index
	require.NoError(t, db.Find(&indices).Error)
	for _, idx := range indices {
		var open int64
		require.NoError(t, db.Model(&model.Borrow{}).Where("index_id = ? AND returned_at IS NULL", idx.ID).Count(&open).Error)
		require.Equalf(t, idx.IsBorrowed, open > 0, "index %s borrowed=%v open=%d", idx.Label(), idx.IsBorrowed, open)
	}
}
