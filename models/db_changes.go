package models

import (
	"time"
)

// DBChange diisi oleh trigger SQL setiap ada mutasi pada tabel yang dipantau
// (notifications, messages, contact_requests). ChangeMonitor membaca baris yang
// belum diproses dan meneruskannya sebagai event realtime.
type DBChange struct {
	ID         uint      `gorm:"primaryKey"`
	TableName  string    `gorm:"type:varchar(50);not null;index:idx_table_action"`
	RecordID   int64     `gorm:"not null"`
	ActionType string    `gorm:"type:varchar(16);not null;index:idx_table_action"` // INSERT, UPDATE, DELETE
	ChangedAt  time.Time `gorm:"not null"`
	Processed  bool      `gorm:"default:false;index:idx_processed"`
}
