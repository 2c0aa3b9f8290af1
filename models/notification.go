package models

import (
	"time"

	"gorm.io/gorm"
)

// Jenis notifikasi yang dikenal engine
const (
	NotifKindMessage      = "message"
	NotifKindSystem       = "system"
	NotifKindAnnouncement = "announcement"
	NotifKindAlert        = "alert"
	NotifKindWarning      = "warning"
	NotifKindSuccess      = "success"
	NotifKindInfo         = "info"
)

type Notification struct {
	ID          uint    `gorm:"primaryKey" json:"id"`
	Kind        string  `gorm:"type:varchar(32);not null;default:'info'" json:"kind"`
	Title       string  `gorm:"type:varchar(255);not null" json:"title"`
	Description *string `gorm:"type:text" json:"description,omitempty"`
	FromUserID  *uint   `gorm:"index" json:"from_user_id,omitempty"`
	UserID      uint    `gorm:"not null;index" json:"user_id"`
	User        User    `gorm:"foreignKey:UserID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"-"`
	MessageID   *uint   `gorm:"index" json:"message_id,omitempty"`
	IsRead      bool    `gorm:"not null;default:false;index" json:"is_read"`
	ActionURL   *string `gorm:"type:varchar(512)" json:"action_url,omitempty"`
	// Metadata bebas, disimpan sebagai JSON string
	Metadata  *string   `gorm:"type:text" json:"metadata,omitempty"`
	CreatedAt time.Time `gorm:"not null" json:"created_at"`
}

// SystemKinds -> daftar kind yang dihitung sebagai notifikasi sistem
func SystemKinds() []string {
	return []string{NotifKindSystem}
}

// UnreadNotifications -> scope query untuk notifikasi belum dibaca milik satu user
func UnreadNotifications(userID uint) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		return db.Where("user_id = ? AND is_read = ?", userID, false)
	}
}
