package service

import "smartcity/internal/models"

// EventKind classifies a lifecycle event.
type EventKind string

const (
	EventRequestCreated       EventKind = "REQUEST_CREATED"
	EventRequestUpdated       EventKind = "REQUEST_UPDATED"
	EventRequestStatusChanged EventKind = "REQUEST_STATUS_CHANGED"
	EventBusinessApproved     EventKind = "BUSINESS_APPROVED"
	EventDocumentsUpdated     EventKind = "DOCUMENTS_UPDATED"
	EventRequestDeleted       EventKind = "REQUEST_DELETED"
)

// Event records one lifecycle change. Mutations return events instead of
// publishing them inline; the caller dispatches after the storage write has
// succeeded, so delivery failures can never roll back persisted state.
type Event struct {
	Kind           EventKind             `json:"kind"`
	Request        models.ServiceRequest `json:"request"`
	PreviousStatus models.RequestStatus  `json:"previous_status,omitempty"`
}
