package models

import "time"

type Message struct {
	ID         uint       `gorm:"primaryKey" json:"id"`
	SenderID   uint       `gorm:"not null;index" json:"sender_id"`
	Sender     User       `gorm:"foreignKey:SenderID;references:ID" json:"-"`
	ReceiverID uint       `gorm:"not null;index" json:"receiver_id"`
	Receiver   User       `gorm:"foreignKey:ReceiverID;references:ID" json:"-"`
	Subject    *string    `gorm:"type:varchar(255)" json:"subject,omitempty"`
	Body       string     `gorm:"type:text;not null" json:"body"`
	ReadAt     *time.Time `gorm:"index" json:"read_at,omitempty"`
	CreatedAt  time.Time  `gorm:"not null" json:"created_at"`
}
