package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// NotificationType classifies what a notification announces.
type NotificationType string

const (
	// NotificationRequestStatusChanged is a personal notification telling an
	// owner their request moved to a new status.
	NotificationRequestStatusChanged NotificationType = "REQUEST_STATUS_CHANGED"
	// NotificationNewBusinessApproved is an area-wide broadcast announcing a
	// newly approved business.
	NotificationNewBusinessApproved NotificationType = "NEW_BUSINESS_APPROVED"
)

// Notification is either personal (UserID set) or a broadcast (UserID nil).
// Broadcasts carry the approved business location so clients can filter by
// distance; that filtering is a presentation concern, not enforced here.
type Notification struct {
	ID           string           `gorm:"type:varchar(36);primaryKey" json:"id"`
	UserID       *string          `gorm:"type:varchar(36);index" json:"user_id"`
	Type         NotificationType `gorm:"type:varchar(40);not null;index" json:"type"`
	Title        string           `gorm:"size:120;not null" json:"title"`
	Message      string           `gorm:"type:text;not null" json:"message"`
	RelatedID    string           `gorm:"type:varchar(36)" json:"related_id"`
	RelatedType  string           `gorm:"size:40" json:"related_type"`
	Municipality string           `gorm:"size:80;index" json:"municipality"`
	Lat          *float64         `json:"lat"`
	Lng          *float64         `json:"lng"`
	IsRead       bool             `gorm:"not null;default:false" json:"is_read"`
	CreatedAt    time.Time        `json:"created_at"`
}

// Broadcast reports whether the notification has no specific recipient.
func (n *Notification) Broadcast() bool {
	return n.UserID == nil
}

// BeforeCreate assigns an opaque server-side ID.
func (n *Notification) BeforeCreate(_ *gorm.DB) error {
	if n.ID == "" {
		n.ID = uuid.NewString()
	}
	return nil
}
