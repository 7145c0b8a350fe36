package model

import (
	"time"

	"gorm.io/gorm"
)

// Teacher is a staff borrower
type Teacher struct {
	ID           uint           `gorm:"primaryKey" json:"id"`
	Name         string         `gorm:"type:varchar(255);not null" json:"name"`
	PhoneNo      string         `gorm:"type:varchar(20);not null" json:"phone_no"`
	Address      string         `gorm:"type:varchar(255);not null" json:"address"`
	Email        string         `gorm:"type:varchar(255);not null;uniqueIndex" json:"email"`
	CollegeEmail *string        `gorm:"type:varchar(255);uniqueIndex" json:"college_email"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
	DeletedAt    gorm.DeletedAt `gorm:"index" json:"-"`

	Borrows []Borrow `gorm:"foreignKey:TeacherID" json:"-"`
}
