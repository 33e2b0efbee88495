package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Role defines the access level of a user.
type Role string

const (
	// RoleCitizen can browse approved businesses and post reviews.
	RoleCitizen Role = "CITIZEN"
	// RoleOwner submits and manages business registration requests.
	RoleOwner Role = "OWNER"
	// RoleAdmin reviews requests within their own municipality.
	RoleAdmin Role = "ADMIN"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleCitizen, RoleOwner, RoleAdmin:
		return true
	}
	return false
}

// User is an authenticated account. Municipality is required for owners and
// admins and always empty for citizens.
type User struct {
	ID           string    `gorm:"type:varchar(36);primaryKey" json:"id"`
	Username     string    `gorm:"size:60;not null;uniqueIndex" json:"username"`
	Password     string    `gorm:"size:120;not null" json:"-"`
	Role         Role      `gorm:"type:varchar(20);not null;index" json:"role"`
	Municipality string    `gorm:"size:80;index" json:"municipality,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// BeforeCreate assigns an opaque server-side ID.
func (u *User) BeforeCreate(_ *gorm.DB) error {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	return nil
}
