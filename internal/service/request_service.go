package service

import (
	"context"
	"fmt"
	"io"
	"strings"

	"smartcity/internal/authz"
	"smartcity/internal/blob"
	"smartcity/internal/cache"
	"smartcity/internal/models"
	"smartcity/internal/observability"
	"smartcity/internal/repository"
)

// FileUpload is one file received at the boundary.
type FileUpload struct {
	Name string
	Data []byte
}

type CreateRequestInput struct {
	Name        string
	Description string
	Category    string
	Address     string
	Files       []FileUpload
}

type UpdateRequestInput struct {
	Name        string
	Description string
	Category    string
	Address     string
}

// AdminPatch carries the admin-editable fields. Nil pointers mean "leave
// unchanged"; ClearLocation wipes lat/lng explicitly.
type AdminPatch struct {
	Status        *models.RequestStatus
	Comments      *string
	Lat           *float64
	Lng           *float64
	ClearLocation bool
}

// RequestService owns every ServiceRequest mutation. Mutations are
// serialized per request ID and return lifecycle events for the caller to
// dispatch after the storage write has committed.
type RequestService struct {
	repo  repository.RequestRepository
	blobs blob.Store
	locks *keyedMutex
	log   *observability.LifecycleLogger
}

func NewRequestService(repo repository.RequestRepository, blobs blob.Store) *RequestService {
	return &RequestService{
		repo:  repo,
		blobs: blobs,
		locks: newKeyedMutex(),
		log:   observability.NewLifecycleLogger(),
	}
}

// Create registers a new PENDING request for the acting owner. If storing
// any uploaded file fails, the just-created request is rolled back and the
// whole operation fails with STORAGE_FAILURE.
func (s *RequestService) Create(ctx context.Context, actor authz.Actor, in CreateRequestInput) (*models.ServiceRequest, []Event, error) {
	if d := authz.CanSubmitRequest(actor); !d.Allowed {
		return nil, nil, d.Err()
	}
	if strings.TrimSpace(in.Name) == "" {
		return nil, nil, models.NewValidationError("Business name is required")
	}

	req := &models.ServiceRequest{
		Name:         strings.TrimSpace(in.Name),
		Description:  in.Description,
		Category:     in.Category,
		Address:      in.Address,
		Status:       models.RequestStatusPending,
		OwnerID:      actor.ID,
		Municipality: actor.Municipality,
	}
	if err := s.repo.Create(ctx, req); err != nil {
		return nil, nil, err
	}

	if len(in.Files) > 0 {
		docs := make([]models.Document, 0, len(in.Files))
		for _, f := range in.Files {
			storedName, err := s.blobs.Put(ctx, req.ID, f.Name, f.Data)
			if err != nil {
				s.rollbackCreate(ctx, req.ID)
				return nil, nil, models.NewStorageError("store document", err)
			}
			observability.DocumentsStored.Inc()
			docs = append(docs, models.Document{StoredName: storedName, OriginalName: f.Name})
		}
		if err := s.repo.AddDocuments(ctx, req.ID, docs); err != nil {
			s.rollbackCreate(ctx, req.ID)
			return nil, nil, err
		}
	}

	created, err := s.repo.GetByID(ctx, req.ID)
	if err != nil {
		return nil, nil, err
	}
	return created, []Event{{Kind: EventRequestCreated, Request: *created}}, nil
}

// rollbackCreate undoes a partially created request after a blob failure.
func (s *RequestService) rollbackCreate(ctx context.Context, requestID string) {
	if err := s.repo.Delete(ctx, requestID); err != nil {
		observability.GlobalLogger.ErrorContext(ctx, "rollback of created request failed",
			"request_id", requestID, "error", err)
	}
	_ = s.blobs.DeleteAll(ctx, requestID)
}

// Get returns one request. Owners see their own, admins see their
// municipality's, everyone else only sees approved businesses.
func (s *RequestService) Get(ctx context.Context, actor authz.Actor, id string) (*models.ServiceRequest, error) {
	req, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if req.OwnerID == actor.ID {
		return req, nil
	}
	if actor.Role == models.RoleAdmin && actor.Municipality == req.Municipality {
		return req, nil
	}
	if req.Status == models.RequestStatusApproved {
		return req, nil
	}
	return nil, models.NewForbiddenError("Access denied")
}

func (s *RequestService) ListMine(ctx context.Context, actor authz.Actor) ([]*models.ServiceRequest, error) {
	if d := authz.CanSubmitRequest(actor); !d.Allowed {
		return nil, d.Err()
	}
	return s.repo.ListByOwner(ctx, actor.ID)
}

// ListForReview returns the requests an admin reviews, optionally filtered
// by status. Admins only ever see their own municipality.
func (s *RequestService) ListForReview(ctx context.Context, actor authz.Actor, status models.RequestStatus) ([]*models.ServiceRequest, error) {
	if actor.Role != models.RoleAdmin {
		return nil, models.NewForbiddenError("Access denied: " + string(authz.DenyWrongRole))
	}
	if status == "" {
		return s.repo.ListByMunicipality(ctx, actor.Municipality)
	}
	return s.repo.ListByMunicipalityAndStatus(ctx, actor.Municipality, status)
}

// ListApproved returns all approved businesses. Public data, cached.
func (s *RequestService) ListApproved(ctx context.Context) ([]*models.ServiceRequest, error) {
	var reqs []*models.ServiceRequest
	err := cache.Aside(ctx, cache.ApprovedBusinessesKey("all"), &reqs, cache.ApprovedTTL, func() error {
		var fetchErr error
		reqs, fetchErr = s.repo.ListApproved(ctx)
		return fetchErr
	})
	return reqs, err
}

// OwnerUpdate changes content fields. Owner-only and only while PENDING.
func (s *RequestService) OwnerUpdate(ctx context.Context, actor authz.Actor, id string, in UpdateRequestInput) (*models.ServiceRequest, []Event, error) {
	unlock := s.locks.Lock(id)
	defer unlock()

	req, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	if d := authz.CanManageRequest(actor, req); !d.Allowed {
		return nil, nil, d.Err()
	}
	if req.Status != models.RequestStatusPending {
		return nil, nil, models.NewInvalidStateError(
			fmt.Sprintf("Request in status %s cannot be edited", req.Status))
	}

	if strings.TrimSpace(in.Name) != "" {
		req.Name = strings.TrimSpace(in.Name)
	}
	if in.Description != "" {
		req.Description = in.Description
	}
	if in.Category != "" {
		req.Category = in.Category
	}
	if in.Address != "" {
		req.Address = in.Address
	}

	if err := s.repo.Update(ctx, req); err != nil {
		return nil, nil, err
	}
	cache.InvalidateRequest(ctx, req.ID, req.OwnerID)

	return req, []Event{{Kind: EventRequestUpdated, Request: *req}}, nil
}

// AdminUpdate applies status, comments and location changes. A status, if
// present, must be APPROVED or REJECTED and the request must still be
// PENDING; terminal statuses never transition again.
func (s *RequestService) AdminUpdate(ctx context.Context, actor authz.Actor, id string, patch AdminPatch) (*models.ServiceRequest, []Event, error) {
	unlock := s.locks.Lock(id)
	defer unlock()

	req, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	if d := authz.CanReviewRequest(actor, req); !d.Allowed {
		return nil, nil, d.Err()
	}

	previous := req.Status
	statusChanged := false
	if patch.Status != nil && *patch.Status != req.Status {
		next := *patch.Status
		if next != models.RequestStatusApproved && next != models.RequestStatusRejected {
			return nil, nil, models.NewValidationError(
				fmt.Sprintf("Admins may only set status to APPROVED or REJECTED, got %s", next))
		}
		if !req.Status.CanTransitionTo(next) {
			return nil, nil, models.NewInvalidStateError(
				fmt.Sprintf("Illegal status transition %s -> %s", req.Status, next))
		}
		req.Status = next
		statusChanged = true
	}

	if patch.Comments != nil {
		req.Comments = *patch.Comments
	}
	if patch.ClearLocation {
		req.Lat = nil
		req.Lng = nil
	} else {
		if patch.Lat != nil {
			req.Lat = patch.Lat
		}
		if patch.Lng != nil {
			req.Lng = patch.Lng
		}
	}

	if err := s.repo.Update(ctx, req); err != nil {
		return nil, nil, err
	}
	cache.InvalidateRequest(ctx, req.ID, req.OwnerID)
	cache.InvalidateApproved(ctx, "all")

	events := []Event{{Kind: EventRequestUpdated, Request: *req}}
	if statusChanged {
		s.log.LogTransition(ctx, req.ID, string(previous), string(req.Status))
		observability.RequestTransitions.WithLabelValues(string(req.Status)).Inc()
		events = append(events, Event{Kind: EventRequestStatusChanged, Request: *req, PreviousStatus: previous})
		if req.Status == models.RequestStatusApproved {
			events = append(events, Event{Kind: EventBusinessApproved, Request: *req})
		}
	}
	return req, events, nil
}

// AddDocuments appends uploaded files to an existing request. A file whose
// blob write fails is skipped with a warning; earlier successes are kept.
func (s *RequestService) AddDocuments(ctx context.Context, actor authz.Actor, id string, files []FileUpload) (*models.ServiceRequest, []Event, error) {
	unlock := s.locks.Lock(id)
	defer unlock()

	req, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	if d := authz.CanManageRequest(actor, req); !d.Allowed {
		return nil, nil, d.Err()
	}
	if req.Status == models.RequestStatusApproved {
		return nil, nil, models.NewInvalidStateError("Documents of an approved business are immutable")
	}
	if len(files) == 0 {
		return nil, nil, models.NewValidationError("No files uploaded")
	}

	var docs []models.Document
	for _, f := range files {
		storedName, err := s.blobs.Put(ctx, req.ID, f.Name, f.Data)
		if err != nil {
			observability.DocumentStoreFailures.Inc()
			s.log.LogDocumentSkip(ctx, req.ID, f.Name, err)
			continue
		}
		observability.DocumentsStored.Inc()
		docs = append(docs, models.Document{StoredName: storedName, OriginalName: f.Name})
	}
	if len(docs) == 0 {
		return nil, nil, models.NewStorageError("store documents",
			fmt.Errorf("all %d uploaded files failed to store", len(files)))
	}
	if err := s.repo.AddDocuments(ctx, req.ID, docs); err != nil {
		return nil, nil, err
	}
	cache.InvalidateRequest(ctx, req.ID, req.OwnerID)

	updated, err := s.repo.GetByID(ctx, req.ID)
	if err != nil {
		return nil, nil, err
	}
	return updated, []Event{{Kind: EventDocumentsUpdated, Request: *updated}}, nil
}

// RemoveDocumentAt removes the document at a display position. The position
// is resolved to the document's stable ID under the request lock, so a
// concurrent removal cannot make it point at a different file.
func (s *RequestService) RemoveDocumentAt(ctx context.Context, actor authz.Actor, id string, index int) (*models.ServiceRequest, []Event, error) {
	unlock := s.locks.Lock(id)
	defer unlock()

	req, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	if d := authz.CanAccessDocuments(actor, req); !d.Allowed {
		return nil, nil, d.Err()
	}
	if req.Status == models.RequestStatusApproved {
		return nil, nil, models.NewInvalidStateError("Documents of an approved business are immutable")
	}
	if index < 0 || index >= len(req.Documents) {
		return nil, nil, models.NewNotFoundError("document", index)
	}

	doc := req.Documents[index]
	if err := s.repo.RemoveDocument(ctx, req.ID, doc.ID); err != nil {
		return nil, nil, err
	}
	if err := s.blobs.Delete(ctx, req.ID, doc.StoredName); err != nil {
		observability.GlobalLogger.WarnContext(ctx, "stored file removal failed",
			"request_id", req.ID, "stored_name", doc.StoredName, "error", err)
	}
	cache.InvalidateRequest(ctx, req.ID, req.OwnerID)

	updated, err := s.repo.GetByID(ctx, req.ID)
	if err != nil {
		return nil, nil, err
	}
	return updated, []Event{{Kind: EventDocumentsUpdated, Request: *updated}}, nil
}

// OpenDocumentAt streams the document at a display position. The caller
// closes the reader.
func (s *RequestService) OpenDocumentAt(ctx context.Context, actor authz.Actor, id string, index int) (io.ReadCloser, *models.Document, error) {
	req, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	if d := authz.CanAccessDocuments(actor, req); !d.Allowed {
		return nil, nil, d.Err()
	}
	if index < 0 || index >= len(req.Documents) {
		return nil, nil, models.NewNotFoundError("document", index)
	}

	doc := req.Documents[index]
	rc, err := s.blobs.Get(ctx, req.ID, doc.StoredName)
	if err != nil {
		return nil, nil, models.NewStorageError("read document", err)
	}
	return rc, &doc, nil
}

// Delete removes a request entirely. Owner-only; approved businesses cannot
// be deleted. Subscribers observe a terminal DELETED event.
func (s *RequestService) Delete(ctx context.Context, actor authz.Actor, id string) ([]Event, error) {
	unlock := s.locks.Lock(id)
	defer unlock()

	req, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if d := authz.CanManageRequest(actor, req); !d.Allowed {
		return nil, d.Err()
	}
	if req.Status == models.RequestStatusApproved {
		return nil, models.NewForbiddenError("Approved businesses cannot be deleted")
	}

	snapshot := *req
	snapshot.Status = models.RequestStatusDeleted

	if err := s.repo.Delete(ctx, req.ID); err != nil {
		return nil, err
	}
	if err := s.blobs.DeleteAll(ctx, req.ID); err != nil {
		observability.GlobalLogger.WarnContext(ctx, "stored file cleanup failed",
			"request_id", req.ID, "error", err)
	}
	cache.InvalidateRequest(ctx, req.ID, req.OwnerID)

	return []Event{{Kind: EventRequestDeleted, Request: snapshot, PreviousStatus: req.Status}}, nil
}
