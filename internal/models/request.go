package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// RequestStatus defines lifecycle states of a business registration request.
type RequestStatus string

const (
	// RequestStatusPending indicates the request is awaiting admin review.
	RequestStatusPending RequestStatus = "PENDING"
	// RequestStatusApproved indicates the business was approved. Terminal for
	// content edits, document changes and owner deletion.
	RequestStatusApproved RequestStatus = "APPROVED"
	// RequestStatusRejected indicates the request was denied.
	RequestStatusRejected RequestStatus = "REJECTED"
	// RequestStatusDeleted marks a request on its way out; subscribers observe
	// this terminal state before the record is removed.
	RequestStatusDeleted RequestStatus = "DELETED"
)

// CanTransitionTo reports whether a status change from s to next is legal.
// APPROVED and REJECTED are reachable only from PENDING; DELETED is reachable
// from any non-APPROVED state.
func (s RequestStatus) CanTransitionTo(next RequestStatus) bool {
	switch next {
	case RequestStatusApproved, RequestStatusRejected:
		return s == RequestStatusPending
	case RequestStatusDeleted:
		return s != RequestStatusApproved
	}
	return false
}

// ServiceRequest is a business registration request submitted by an owner and
// reviewed by admins of the same municipality.
type ServiceRequest struct {
	ID           string        `gorm:"type:varchar(36);primaryKey" json:"id"`
	Name         string        `gorm:"size:120;not null" json:"name"`
	Description  string        `gorm:"type:text" json:"description"`
	Category     string        `gorm:"size:80" json:"category"`
	Address      string        `gorm:"size:200" json:"address"`
	Lat          *float64      `json:"lat"`
	Lng          *float64      `json:"lng"`
	Status       RequestStatus `gorm:"type:varchar(20);not null;default:'PENDING';index" json:"status"`
	OwnerID      string        `gorm:"type:varchar(36);not null;index" json:"owner_id"`
	Municipality string        `gorm:"size:80;not null;index" json:"municipality"`
	Comments     string        `gorm:"type:text" json:"comments"`
	Documents    []Document    `gorm:"foreignKey:RequestID;constraint:OnDelete:CASCADE" json:"documents"`
	CreatedAt    time.Time     `json:"created_at"`
	UpdatedAt    time.Time     `json:"updated_at"`
}

// BeforeCreate assigns an opaque server-side ID.
func (r *ServiceRequest) BeforeCreate(_ *gorm.DB) error {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	return nil
}

// Document is a stored file attached to a service request. Documents carry a
// stable ID; Position only orders them for display and for the positional
// compatibility API at the HTTP boundary.
type Document struct {
	ID           string    `gorm:"type:varchar(36);primaryKey" json:"id"`
	RequestID    string    `gorm:"type:varchar(36);not null;index" json:"request_id"`
	StoredName   string    `gorm:"size:200;not null" json:"stored_name"`
	OriginalName string    `gorm:"size:200" json:"original_name"`
	Position     int       `gorm:"not null" json:"position"`
	CreatedAt    time.Time `json:"created_at"`
}

// BeforeCreate assigns an opaque server-side ID.
func (d *Document) BeforeCreate(_ *gorm.DB) error {
	if d.ID == "" {
		d.ID = uuid.NewString()
	}
	return nil
}
