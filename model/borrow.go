package model

import (
	"time"

	"gorm.io/gorm"
)

// Borrow is one circulation transaction: an Index lent to exactly one of a Student
// or a Teacher. A nil ReturnedAt means the copy is still out.
type Borrow struct {
	ID         uint           `gorm:"primaryKey" json:"id"`
	IndexID    uint           `gorm:"not null;index" json:"index_id"`
	StudentID  *uint          `gorm:"index" json:"student_id"`
	TeacherID  *uint          `gorm:"index" json:"teacher_id"`
	IssuedBy   uint           `gorm:"not null;index" json:"issued_by"`
	IssuedAt   time.Time      `gorm:"not null" json:"issued_at"`
	ReturnedAt *time.Time     `gorm:"index" json:"returned_at"`
	CreatedAt  time.Time      `json:"created_at"`
	UpdatedAt  time.Time      `json:"updated_at"`
	DeletedAt  gorm.DeletedAt `gorm:"index" json:"-"`

	// Relationships
	Index   *Index   `gorm:"foreignKey:IndexID" json:"index,omitempty"`
	Student *Student `gorm:"foreignKey:StudentID" json:"student,omitempty"`
	Teacher *Teacher `gorm:"foreignKey:TeacherID" json:"teacher,omitempty"`
	Issuer  *User    `gorm:"foreignKey:IssuedBy" json:"issuer,omitempty"`
}

// IsOpen reports whether the borrowed copy has not been returned yet.
func (b Borrow) IsOpen() bool {
	return b.ReturnedAt == nil
}
