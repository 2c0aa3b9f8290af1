package models

import "time"

type User struct {
	ID        uint   `gorm:"primaryKey"`
	Name      string `gorm:"type:varchar(255); not null"`
	Email     string `gorm:"type:varchar(255); unique;not null"`
	Password  string `gorm:"type:varchar(255); not null"`
	Role      string `gorm:"type:varchar(255); not null"` // admin, staff, teacher, parent
	CreatedAt time.Time
	UpdatedAt time.Time
}

// CanViewAllNotifications -> capability untuk scope diagnostik lintas user.
// Angka yang dilaporkan ke viewer tetap dihitung per-owner, lihat services.UnreadService.
func (u *User) CanViewAllNotifications() bool {
	return u.Role == "admin"
}
