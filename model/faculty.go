package model

import (
	"time"

	"gorm.io/gorm"
)

// Faculty groups students and the books they use
type Faculty struct {
	ID          uint           `gorm:"primaryKey" json:"id"`
	Name        string         `gorm:"type:varchar(255);not null;uniqueIndex" json:"name"`
	Description string         `gorm:"type:text" json:"description"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
	DeletedAt   gorm.DeletedAt `gorm:"index" json:"-"`

	// Relationships
	Students []Student `gorm:"foreignKey:FacultyID" json:"students,omitempty"`
	Books    []Book    `gorm:"many2many:book_faculties;joinForeignKey:FacultyID;joinReferences:BookID" json:"books,omitempty"`
}
