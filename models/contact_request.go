package models

import (
	"time"

	"gorm.io/gorm"
)

// Status contact request dari form publik
const (
	ContactStatusPending  = "pending"
	ContactStatusRead     = "read"
	ContactStatusReplied  = "replied"
	ContactStatusArchived = "archived"
)

type ContactRequest struct {
	ID        uint           `gorm:"primaryKey" json:"id"`
	Name      string         `gorm:"type:varchar(255);not null" json:"name"`
	Email     string         `gorm:"type:varchar(255);not null" json:"email"`
	Phone     *string        `gorm:"type:varchar(32)" json:"phone,omitempty"`
	Subject   *string        `gorm:"type:varchar(255)" json:"subject,omitempty"`
	Body      string         `gorm:"type:text;not null" json:"body"`
	Status    string         `gorm:"type:varchar(32);not null;default:'pending';index" json:"status"`
	CreatedAt time.Time      `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"` // soft delete, baris terhapus tidak ikut dihitung
}
