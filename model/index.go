package model

import (
	"fmt"
	"time"

	"gorm.io/gorm"
)

// Index is one physical, loanable copy of a Book, addressed by (BookPrefix, Code).
// BookPrefix is copied from the owning Book at creation time and kept in sync when
// the book's prefix changes.
type Index struct {
	ID         uint           `gorm:"primaryKey" json:"id"`
	BookID     uint           `gorm:"not null;index" json:"book_id"`
	BookPrefix string         `gorm:"type:varchar(20);not null" json:"book_prefix"`
	Code       int            `gorm:"not null" json:"code"`
	IsBorrowed bool           `gorm:"not null;default:false" json:"is_borrowed"`
	CreatedAt  time.Time      `json:"created_at"`
	UpdatedAt  time.Time      `json:"updated_at"`
	DeletedAt  gorm.DeletedAt `gorm:"index" json:"-"`

	// Relationships
	Book    *Book    `gorm:"foreignKey:BookID" json:"book,omitempty"`
	Borrows []Borrow `gorm:"foreignKey:IndexID" json:"-"`
}

// TableName specifies the table name for Index
func (Index) TableName() string {
	return "indices"
}

// Label renders the human-facing code, e.g. "SCI-42".
func (i Index) Label() string {
	return fmt.Sprintf("%s-%d", i.BookPrefix, i.Code)
}
