package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Review is citizen feedback on an approved business.
type Review struct {
	ID         string    `gorm:"type:varchar(36);primaryKey" json:"id"`
	BusinessID string    `gorm:"type:varchar(36);not null;index" json:"business_id"`
	UserID     string    `gorm:"type:varchar(36);not null" json:"user_id"`
	Username   string    `gorm:"size:60" json:"username"`
	Comment    string    `gorm:"type:text" json:"comment"`
	Rating     int       `gorm:"not null" json:"rating"`
	CreatedAt  time.Time `json:"date"`
}

// BeforeCreate assigns an opaque server-side ID.
func (r *Review) BeforeCreate(_ *gorm.DB) error {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	return nil
}
