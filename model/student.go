package model

import (
	"time"

	"gorm.io/gorm"
)

// Student is a borrower enrolled in a faculty
type Student struct {
	ID             uint           `gorm:"primaryKey" json:"id"`
	FacultyID      *uint          `gorm:"index" json:"faculty_id"`
	Name           string         `gorm:"type:varchar(255);not null" json:"name"`
	PhoneNo        string         `gorm:"type:varchar(20);not null" json:"phone_no"`
	Address        string         `gorm:"type:varchar(255);not null" json:"address"`
	Email          string         `gorm:"type:varchar(255);not null;uniqueIndex" json:"email"`
	CollegeEmail   *string        `gorm:"type:varchar(255);uniqueIndex" json:"college_email"`
	ParentName     string         `gorm:"type:varchar(255)" json:"parent_name"`
	ParentContact  string         `gorm:"type:varchar(20)" json:"parent_contact"`
	Year           int            `json:"year"`
	RegistrationNo string         `gorm:"type:varchar(50);index" json:"registration_no"`
	SymbolNo       string         `gorm:"type:varchar(50);index" json:"symbol_no"`
	CreatedAt      time.Time      `json:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at"`
	DeletedAt      gorm.DeletedAt `gorm:"index" json:"-"`

	// Relationships
	Faculty *Faculty `gorm:"foreignKey:FacultyID" json:"faculty,omitempty"`
	Borrows []Borrow `gorm:"foreignKey:StudentID" json:"-"`
}
