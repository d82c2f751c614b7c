package models

import (
	"time"
)

// Mail represents a cached mail row. The ID is either server-assigned or
// locally generated (drafts, outbox); a confirmed ID never changes in place —
// remapping a local ID to a server ID is delete-old/insert-new.
type Mail struct {
	ID             string    `gorm:"primaryKey;size:64" json:"id"`
	SenderID       string    `gorm:"size:64" json:"senderId"`
	SenderName     string    `gorm:"size:255" json:"senderName"`
	RecipientID    string    `gorm:"size:64" json:"recipientId"`
	RecipientName  string    `gorm:"size:255" json:"recipientName"`
	RecipientEmail string    `gorm:"size:255" json:"recipientEmail"`
	Subject        string    `json:"subject"`
	Content        string    `json:"content"`
	Timestamp      time.Time `gorm:"index" json:"timestamp"`
	OwnerID        string    `gorm:"not null;index;size:64" json:"ownerId"`
	Read           bool      `gorm:"default:false" json:"read"`
	Starred        bool      `gorm:"default:false" json:"starred"`
	Draft          bool      `gorm:"default:false" json:"draft"`
}

// TableName returns the table name for Mail
func (Mail) TableName() string {
	return "mails"
}
