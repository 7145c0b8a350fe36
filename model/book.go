package model

import (
	"time"

	"gorm.io/gorm"
)

// Book is a catalog title. Its Prefix is the namespace of its copy codes.
type Book struct {
	ID            uint           `gorm:"primaryKey" json:"id"`
	Name          string         `gorm:"type:varchar(255);not null" json:"name"`
	Author        string         `gorm:"type:varchar(255);not null" json:"author"`
	Publication   string         `gorm:"type:varchar(255);not null" json:"publication"`
	Edition       string         `gorm:"type:varchar(100);not null" json:"edition"`
	PublishedYear int            `gorm:"not null" json:"published_year"`
	Price         int            `gorm:"not null" json:"price"`
	Prefix        string         `gorm:"type:varchar(20);not null;index" json:"prefix"`
	BookType      string         `gorm:"type:varchar(50);not null" json:"book_type"`
	AddedBy       *uint          `json:"added_by,omitempty"`
	CreatedAt     time.Time      `json:"created_at"`
	UpdatedAt     time.Time      `json:"updated_at"`
	DeletedAt     gorm.DeletedAt `gorm:"index" json:"-"`

	// Relationships
	Indices   []Index   `gorm:"foreignKey:BookID" json:"indices,omitempty"`
	Faculties []Faculty `gorm:"many2many:book_faculties;joinForeignKey:BookID;joinReferences:FacultyID" json:"faculties,omitempty"`
}

// BookFaculty is the join row between books and faculties, carrying the semester
// in which the faculty uses the book.
type BookFaculty struct {
	BookID    uint      `gorm:"primaryKey" json:"book_id"`
	FacultyID uint      `gorm:"primaryKey" json:"faculty_id"`
	Semester  int       `gorm:"default:1" json:"semester"`
	CreatedAt time.Time `json:"created_at"`
}

// TableName specifies the table name for BookFaculty
func (BookFaculty) TableName() string {
	return "book_faculties"
}
