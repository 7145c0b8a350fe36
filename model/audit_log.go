package model

import (
	"time"

	"gorm.io/datatypes"
)

// AuditLog records one mutating request made by a staff user
type AuditLog struct {
	ID         uint           `gorm:"primaryKey" json:"id"`
	UserID     *uint          `gorm:"index" json:"user_id"`
	Action     string         `gorm:"type:varchar(100);not null;index" json:"action"` // create, update or delete
	Resource   string         `gorm:"type:varchar(100)" json:"resource"`             // e.g. "borrows", "books"
	ResourceID *uint          `json:"resource_id"`
	Method     string         `gorm:"type:varchar(10)" json:"method"`
	Path       string         `gorm:"type:varchar(255)" json:"path"`
	Status     int            `json:"status"`
	Payload    datatypes.JSON `json:"payload"`
	IPAddress  string         `gorm:"type:varchar(45)" json:"ip_address"`
	UserAgent  string         `gorm:"type:text" json:"user_agent"`
	CreatedAt  time.Time      `json:"created_at"`
}

// TableName specifies the table name for AuditLog
func (AuditLog) TableName() string {
	return "audit_logs"
}
