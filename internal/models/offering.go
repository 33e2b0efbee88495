package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Offering is a product or service listed by an approved business.
type Offering struct {
	ID          string    `gorm:"type:varchar(36);primaryKey" json:"id"`
	BusinessID  string    `gorm:"type:varchar(36);not null;index" json:"business_id"`
	OwnerID     string    `gorm:"type:varchar(36);not null;index" json:"owner_id"`
	Name        string    `gorm:"size:120;not null" json:"name"`
	Description string    `gorm:"type:text" json:"description"`
	Price       string    `gorm:"size:40" json:"price"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// BeforeCreate assigns an opaque server-side ID.
func (o *Offering) BeforeCreate(_ *gorm.DB) error {
	if o.ID == "" {
		o.ID = uuid.NewString()
	}
	return nil
}

// Category is a business type selectable when submitting a request.
type Category struct {
	ID   string `gorm:"type:varchar(36);primaryKey" json:"id"`
	Name string `gorm:"size:80;not null;uniqueIndex" json:"name"`
}

// BeforeCreate assigns an opaque server-side ID.
func (c *Category) BeforeCreate(_ *gorm.DB) error {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	return nil
}
