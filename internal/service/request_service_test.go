package service

import (
	"context"
	"errors"
	"io"
	"testing"

	"smartcity/internal/authz"
	"smartcity/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type requestRepoStub struct {
	createFn           func(context.Context, *models.ServiceRequest) error
	getByIDFn          func(context.Context, string) (*models.ServiceRequest, error)
	updateFn           func(context.Context, *models.ServiceRequest) error
	deleteFn           func(context.Context, string) error
	listByOwnerFn      func(context.Context, string) ([]*models.ServiceRequest, error)
	listByMuniFn       func(context.Context, string) ([]*models.ServiceRequest, error)
	listByMuniStatusFn func(context.Context, string, models.RequestStatus) ([]*models.ServiceRequest, error)
	listApprovedFn     func(context.Context) ([]*models.ServiceRequest, error)
	addDocumentsFn     func(context.Context, string, []models.Document) error
	removeDocumentFn   func(context.Context, string, string) error
}

func (s *requestRepoStub) Create(ctx context.Context, req *models.ServiceRequest) error {
	return s.createFn(ctx, req)
}
func (s *requestRepoStub) GetByID(ctx context.Context, id string) (*models.ServiceRequest, error) {
	return s.getByIDFn(ctx, id)
}
func (s *requestRepoStub) Update(ctx context.Context, req *models.ServiceRequest) error {
	return s.updateFn(ctx, req)
}
func (s *requestRepoStub) Delete(ctx context.Context, id string) error {
	return s.deleteFn(ctx, id)
}
func (s *requestRepoStub) ListByOwner(ctx context.Context, ownerID string) ([]*models.ServiceRequest, error) {
	return s.listByOwnerFn(ctx, ownerID)
}
func (s *requestRepoStub) ListByMunicipality(ctx context.Context, m string) ([]*models.ServiceRequest, error) {
	return s.listByMuniFn(ctx, m)
}
func (s *requestRepoStub) ListByMunicipalityAndStatus(ctx context.Context, m string, st models.RequestStatus) ([]*models.ServiceRequest, error) {
	return s.listByMuniStatusFn(ctx, m, st)
}
func (s *requestRepoStub) ListApproved(ctx context.Context) ([]*models.ServiceRequest, error) {
	return s.listApprovedFn(ctx)
}
func (s *requestRepoStub) AddDocuments(ctx context.Context, id string, docs []models.Document) error {
	return s.addDocumentsFn(ctx, id, docs)
}
func (s *requestRepoStub) RemoveDocument(ctx context.Context, requestID, documentID string) error {
	return s.removeDocumentFn(ctx, requestID, documentID)
}

// noopRequestRepo fails loudly on anything a test did not stub.
func noopRequestRepo(t *testing.T) *requestRepoStub {
	fail := func(op string) {
		t.Helper()
		t.Fatalf("unexpected repository call: %s", op)
	}
	return &requestRepoStub{
		createFn:      func(context.Context, *models.ServiceRequest) error { fail("Create"); return nil },
		getByIDFn:     func(context.Context, string) (*models.ServiceRequest, error) { fail("GetByID"); return nil, nil },
		updateFn:      func(context.Context, *models.ServiceRequest) error { fail("Update"); return nil },
		deleteFn:      func(context.Context, string) error { fail("Delete"); return nil },
		listByOwnerFn: func(context.Context, string) ([]*models.ServiceRequest, error) { fail("ListByOwner"); return nil, nil },
		listByMuniFn:  func(context.Context, string) ([]*models.ServiceRequest, error) { fail("ListByMunicipality"); return nil, nil },
		listByMuniStatusFn: func(context.Context, string, models.RequestStatus) ([]*models.ServiceRequest, error) {
			fail("ListByMunicipalityAndStatus")
			return nil, nil
		},
		listApprovedFn:   func(context.Context) ([]*models.ServiceRequest, error) { fail("ListApproved"); return nil, nil },
		addDocumentsFn:   func(context.Context, string, []models.Document) error { fail("AddDocuments"); return nil },
		removeDocumentFn: func(context.Context, string, string) error { fail("RemoveDocument"); return nil },
	}
}

type blobStoreStub struct {
	putFn       func(context.Context, string, string, []byte) (string, error)
	getFn       func(context.Context, string, string) (io.ReadCloser, error)
	deleteFn    func(context.Context, string, string) error
	deleteAllFn func(context.Context, string) error
}

func (s *blobStoreStub) Put(ctx context.Context, requestID, originalName string, data []byte) (string, error) {
	return s.putFn(ctx, requestID, originalName, data)
}
func (s *blobStoreStub) Get(ctx context.Context, requestID, storedName string) (io.ReadCloser, error) {
	return s.getFn(ctx, requestID, storedName)
}
func (s *blobStoreStub) Delete(ctx context.Context, requestID, storedName string) error {
	return s.deleteFn(ctx, requestID, storedName)
}
func (s *blobStoreStub) DeleteAll(ctx context.Context, requestID string) error {
	return s.deleteAllFn(ctx, requestID)
}

func noopBlobStore() *blobStoreStub {
	return &blobStoreStub{
		putFn: func(_ context.Context, _, name string, _ []byte) (string, error) {
			return "stored_" + name, nil
		},
		getFn:       func(context.Context, string, string) (io.ReadCloser, error) { return nil, errors.New("no blob") },
		deleteFn:    func(context.Context, string, string) error { return nil },
		deleteAllFn: func(context.Context, string) error { return nil },
	}
}

func ownerActor(id string) authz.Actor {
	return authz.Actor{ID: id, Role: models.RoleOwner, Municipality: "M1"}
}

func adminActor(municipality string) authz.Actor {
	return authz.Actor{ID: "admin-1", Role: models.RoleAdmin, Municipality: municipality}
}

func citizenActor() authz.Actor {
	return authz.Actor{ID: "citizen-1", Role: models.RoleCitizen}
}

func pendingRequest(id, ownerID string) *models.ServiceRequest {
	return &models.ServiceRequest{
		ID:           id,
		Name:         "Cafe X",
		Status:       models.RequestStatusPending,
		OwnerID:      ownerID,
		Municipality: "M1",
	}
}

func assertAppErrCode(t *testing.T, err error, code string) {
	t.Helper()
	var appErr *models.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, code, appErr.Code)
}

func TestRequestService_Create(t *testing.T) {
	t.Parallel()

	t.Run("forces PENDING and copies owner identity", func(t *testing.T) {
		t.Parallel()
		repo := noopRequestRepo(t)
		var created *models.ServiceRequest
		repo.createFn = func(_ context.Context, req *models.ServiceRequest) error {
			req.ID = "req-1"
			created = req
			return nil
		}
		repo.getByIDFn = func(_ context.Context, id string) (*models.ServiceRequest, error) {
			return created, nil
		}
		svc := NewRequestService(repo, noopBlobStore())

		req, events, err := svc.Create(context.Background(), ownerActor("owner-1"), CreateRequestInput{Name: "Cafe X"})
		require.NoError(t, err)
		assert.Equal(t, models.RequestStatusPending, req.Status)
		assert.Equal(t, "owner-1", req.OwnerID)
		assert.Equal(t, "M1", req.Municipality)
		require.Len(t, events, 1)
		assert.Equal(t, EventRequestCreated, events[0].Kind)
	})

	t.Run("citizen cannot create", func(t *testing.T) {
		t.Parallel()
		svc := NewRequestService(noopRequestRepo(t), noopBlobStore())
		_, _, err := svc.Create(context.Background(), citizenActor(), CreateRequestInput{Name: "Cafe X"})
		assertAppErrCode(t, err, models.CodeForbidden)
	})

	t.Run("empty name rejected", func(t *testing.T) {
		t.Parallel()
		svc := NewRequestService(noopRequestRepo(t), noopBlobStore())
		_, _, err := svc.Create(context.Background(), ownerActor("owner-1"), CreateRequestInput{Name: "   "})
		assertAppErrCode(t, err, models.CodeValidation)
	})

	t.Run("blob failure rolls the request back", func(t *testing.T) {
		t.Parallel()
		repo := noopRequestRepo(t)
		repo.createFn = func(_ context.Context, req *models.ServiceRequest) error {
			req.ID = "req-1"
			return nil
		}
		deleted := false
		repo.deleteFn = func(_ context.Context, id string) error {
			assert.Equal(t, "req-1", id)
			deleted = true
			return nil
		}
		blobs := noopBlobStore()
		blobs.putFn = func(context.Context, string, string, []byte) (string, error) {
			return "", errors.New("disk full")
		}
		svc := NewRequestService(repo, blobs)

		_, _, err := svc.Create(context.Background(), ownerActor("owner-1"), CreateRequestInput{
			Name:  "Cafe X",
			Files: []FileUpload{{Name: "permit.pdf", Data: []byte("x")}},
		})
		assertAppErrCode(t, err, models.CodeStorageFailure)
		assert.True(t, deleted, "created request should be rolled back")
	})
}

func TestRequestService_OwnerUpdate(t *testing.T) {
	t.Parallel()

	t.Run("non-owner is forbidden", func(t *testing.T) {
		t.Parallel()
		repo := noopRequestRepo(t)
		repo.getByIDFn = func(_ context.Context, id string) (*models.ServiceRequest, error) {
			return pendingRequest(id, "owner-1"), nil
		}
		svc := NewRequestService(repo, noopBlobStore())
		_, _, err := svc.OwnerUpdate(context.Background(), ownerActor("owner-2"), "req-1", UpdateRequestInput{Name: "New"})
		assertAppErrCode(t, err, models.CodeForbidden)
	})

	t.Run("editing a non-pending request fails INVALID_STATE for any actor", func(t *testing.T) {
		t.Parallel()
		for _, status := range []models.RequestStatus{models.RequestStatusApproved, models.RequestStatusRejected} {
			repo := noopRequestRepo(t)
			repo.getByIDFn = func(_ context.Context, id string) (*models.ServiceRequest, error) {
				req := pendingRequest(id, "owner-1")
				req.Status = status
				return req, nil
			}
			svc := NewRequestService(repo, noopBlobStore())
			_, _, err := svc.OwnerUpdate(context.Background(), ownerActor("owner-1"), "req-1", UpdateRequestInput{Name: "New"})
			assertAppErrCode(t, err, models.CodeInvalidState)
		}
	})

	t.Run("pending request accepts content edits", func(t *testing.T) {
		t.Parallel()
		repo := noopRequestRepo(t)
		repo.getByIDFn = func(_ context.Context, id string) (*models.ServiceRequest, error) {
			return pendingRequest(id, "owner-1"), nil
		}
		var saved *models.ServiceRequest
		repo.updateFn = func(_ context.Context, req *models.ServiceRequest) error {
			saved = req
			return nil
		}
		svc := NewRequestService(repo, noopBlobStore())
		req, events, err := svc.OwnerUpdate(context.Background(), ownerActor("owner-1"), "req-1", UpdateRequestInput{
			Name: "Cafe Y", Address: "5 Side St",
		})
		require.NoError(t, err)
		assert.Equal(t, "Cafe Y", req.Name)
		assert.Equal(t, "5 Side St", req.Address)
		require.NotNil(t, saved)
		require.Len(t, events, 1)
		assert.Equal(t, EventRequestUpdated, events[0].Kind)
	})
}

func TestRequestService_AdminUpdate(t *testing.T) {
	t.Parallel()

	approve := models.RequestStatusApproved

	t.Run("approval emits status change and approval events", func(t *testing.T) {
		t.Parallel()
		repo := noopRequestRepo(t)
		repo.getByIDFn = func(_ context.Context, id string) (*models.ServiceRequest, error) {
			return pendingRequest(id, "owner-1"), nil
		}
		repo.updateFn = func(context.Context, *models.ServiceRequest) error { return nil }
		svc := NewRequestService(repo, noopBlobStore())

		req, events, err := svc.AdminUpdate(context.Background(), adminActor("M1"), "req-1", AdminPatch{Status: &approve})
		require.NoError(t, err)
		assert.Equal(t, models.RequestStatusApproved, req.Status)

		kinds := make([]EventKind, len(events))
		for i, ev := range events {
			kinds[i] = ev.Kind
		}
		assert.Contains(t, kinds, EventRequestStatusChanged)
		assert.Contains(t, kinds, EventBusinessApproved)
		for _, ev := range events {
			if ev.Kind == EventRequestStatusChanged {
				assert.Equal(t, models.RequestStatusPending, ev.PreviousStatus)
			}
		}
	})

	t.Run("wrong municipality admin is forbidden and nothing is written", func(t *testing.T) {
		t.Parallel()
		repo := noopRequestRepo(t)
		repo.getByIDFn = func(_ context.Context, id string) (*models.ServiceRequest, error) {
			return pendingRequest(id, "owner-1"), nil
		}
		// updateFn left as the failing noop: any write fails the test.
		svc := NewRequestService(repo, noopBlobStore())

		_, _, err := svc.AdminUpdate(context.Background(), adminActor("M2"), "req-1", AdminPatch{Status: &approve})
		assertAppErrCode(t, err, models.CodeForbidden)
	})

	t.Run("terminal statuses never transition again", func(t *testing.T) {
		t.Parallel()
		for _, current := range []models.RequestStatus{models.RequestStatusApproved, models.RequestStatusRejected} {
			repo := noopRequestRepo(t)
			repo.getByIDFn = func(_ context.Context, id string) (*models.ServiceRequest, error) {
				req := pendingRequest(id, "owner-1")
				req.Status = current
				return req, nil
			}
			svc := NewRequestService(repo, noopBlobStore())
			next := models.RequestStatusRejected
			if current == models.RequestStatusRejected {
				next = models.RequestStatusApproved
			}
			_, _, err := svc.AdminUpdate(context.Background(), adminActor("M1"), "req-1", AdminPatch{Status: &next})
			assertAppErrCode(t, err, models.CodeInvalidState)
		}
	})

	t.Run("admin cannot set DELETED", func(t *testing.T) {
		t.Parallel()
		repo := noopRequestRepo(t)
		repo.getByIDFn = func(_ context.Context, id string) (*models.ServiceRequest, error) {
			return pendingRequest(id, "owner-1"), nil
		}
		svc := NewRequestService(repo, noopBlobStore())
		deleted := models.RequestStatusDeleted
		_, _, err := svc.AdminUpdate(context.Background(), adminActor("M1"), "req-1", AdminPatch{Status: &deleted})
		assertAppErrCode(t, err, models.CodeValidation)
	})

	t.Run("same status produces no status events", func(t *testing.T) {
		t.Parallel()
		repo := noopRequestRepo(t)
		repo.getByIDFn = func(_ context.Context, id string) (*models.ServiceRequest, error) {
			return pendingRequest(id, "owner-1"), nil
		}
		repo.updateFn = func(context.Context, *models.ServiceRequest) error { return nil }
		svc := NewRequestService(repo, noopBlobStore())
		pending := models.RequestStatusPending
		comments := "looks good, need the floor plan"
		_, events, err := svc.AdminUpdate(context.Background(), adminActor("M1"), "req-1", AdminPatch{
			Status: &pending, Comments: &comments,
		})
		require.NoError(t, err)
		require.Len(t, events, 1)
		assert.Equal(t, EventRequestUpdated, events[0].Kind)
	})

	t.Run("clear location wipes coordinates", func(t *testing.T) {
		t.Parallel()
		lat, lng := 40.6, 22.9
		repo := noopRequestRepo(t)
		repo.getByIDFn = func(_ context.Context, id string) (*models.ServiceRequest, error) {
			req := pendingRequest(id, "owner-1")
			req.Lat, req.Lng = &lat, &lng
			return req, nil
		}
		repo.updateFn = func(context.Context, *models.ServiceRequest) error { return nil }
		svc := NewRequestService(repo, noopBlobStore())
		req, _, err := svc.AdminUpdate(context.Background(), adminActor("M1"), "req-1", AdminPatch{ClearLocation: true})
		require.NoError(t, err)
		assert.Nil(t, req.Lat)
		assert.Nil(t, req.Lng)
	})
}

func TestRequestService_AddDocuments(t *testing.T) {
	t.Parallel()

	t.Run("a failing file is skipped, successes are kept", func(t *testing.T) {
		t.Parallel()
		repo := noopRequestRepo(t)
		repo.getByIDFn = func(_ context.Context, id string) (*models.ServiceRequest, error) {
			return pendingRequest(id, "owner-1"), nil
		}
		var appended []models.Document
		repo.addDocumentsFn = func(_ context.Context, _ string, docs []models.Document) error {
			appended = docs
			return nil
		}
		blobs := noopBlobStore()
		blobs.putFn = func(_ context.Context, _, name string, _ []byte) (string, error) {
			if name == "broken.pdf" {
				return "", errors.New("io error")
			}
			return "stored_" + name, nil
		}
		svc := NewRequestService(repo, blobs)

		_, events, err := svc.AddDocuments(context.Background(), ownerActor("owner-1"), "req-1", []FileUpload{
			{Name: "permit.pdf", Data: []byte("a")},
			{Name: "broken.pdf", Data: []byte("b")},
			{Name: "plan.pdf", Data: []byte("c")},
		})
		require.NoError(t, err)
		require.Len(t, appended, 2)
		assert.Equal(t, "permit.pdf", appended[0].OriginalName)
		assert.Equal(t, "plan.pdf", appended[1].OriginalName)
		require.Len(t, events, 1)
		assert.Equal(t, EventDocumentsUpdated, events[0].Kind)
	})

	t.Run("approved request documents are immutable", func(t *testing.T) {
		t.Parallel()
		repo := noopRequestRepo(t)
		repo.getByIDFn = func(_ context.Context, id string) (*models.ServiceRequest, error) {
			req := pendingRequest(id, "owner-1")
			req.Status = models.RequestStatusApproved
			return req, nil
		}
		svc := NewRequestService(repo, noopBlobStore())
		_, _, err := svc.AddDocuments(context.Background(), ownerActor("owner-1"), "req-1", []FileUpload{
			{Name: "late.pdf", Data: []byte("x")},
		})
		assertAppErrCode(t, err, models.CodeInvalidState)
	})

	t.Run("all files failing is a storage failure", func(t *testing.T) {
		t.Parallel()
		repo := noopRequestRepo(t)
		repo.getByIDFn = func(_ context.Context, id string) (*models.ServiceRequest, error) {
			return pendingRequest(id, "owner-1"), nil
		}
		blobs := noopBlobStore()
		blobs.putFn = func(context.Context, string, string, []byte) (string, error) {
			return "", errors.New("io error")
		}
		svc := NewRequestService(repo, blobs)
		_, _, err := svc.AddDocuments(context.Background(), ownerActor("owner-1"), "req-1", []FileUpload{
			{Name: "a.pdf", Data: []byte("x")},
		})
		assertAppErrCode(t, err, models.CodeStorageFailure)
	})
}

func TestRequestService_RemoveDocumentAt(t *testing.T) {
	t.Parallel()

	withDocs := func(id, ownerID string) *models.ServiceRequest {
		req := pendingRequest(id, ownerID)
		req.Documents = []models.Document{
			{ID: "doc-0", RequestID: id, StoredName: "s0", Position: 0},
			{ID: "doc-1", RequestID: id, StoredName: "s1", Position: 1},
			{ID: "doc-2", RequestID: id, StoredName: "s2", Position: 2},
		}
		return req
	}

	t.Run("position resolves to the stable document ID", func(t *testing.T) {
		t.Parallel()
		repo := noopRequestRepo(t)
		repo.getByIDFn = func(_ context.Context, id string) (*models.ServiceRequest, error) {
			return withDocs(id, "owner-1"), nil
		}
		var removedID string
		repo.removeDocumentFn = func(_ context.Context, _ string, documentID string) error {
			removedID = documentID
			return nil
		}
		svc := NewRequestService(repo, noopBlobStore())
		_, _, err := svc.RemoveDocumentAt(context.Background(), ownerActor("owner-1"), "req-1", 1)
		require.NoError(t, err)
		assert.Equal(t, "doc-1", removedID)
	})

	t.Run("out of bounds is NOT_FOUND and mutates nothing", func(t *testing.T) {
		t.Parallel()
		repo := noopRequestRepo(t)
		repo.getByIDFn = func(_ context.Context, id string) (*models.ServiceRequest, error) {
			return withDocs(id, "owner-1"), nil
		}
		// removeDocumentFn stays the failing noop.
		svc := NewRequestService(repo, noopBlobStore())
		_, _, err := svc.RemoveDocumentAt(context.Background(), ownerActor("owner-1"), "req-1", 3)
		assertAppErrCode(t, err, models.CodeNotFound)

		_, _, err = svc.RemoveDocumentAt(context.Background(), ownerActor("owner-1"), "req-1", -1)
		assertAppErrCode(t, err, models.CodeNotFound)
	})

	t.Run("citizen never touches documents", func(t *testing.T) {
		t.Parallel()
		repo := noopRequestRepo(t)
		repo.getByIDFn = func(_ context.Context, id string) (*models.ServiceRequest, error) {
			return withDocs(id, "owner-1"), nil
		}
		svc := NewRequestService(repo, noopBlobStore())
		_, _, err := svc.RemoveDocumentAt(context.Background(), citizenActor(), "req-1", 0)
		assertAppErrCode(t, err, models.CodeForbidden)
	})
}

func TestRequestService_Delete(t *testing.T) {
	t.Parallel()

	t.Run("approved business cannot be deleted by its owner", func(t *testing.T) {
		t.Parallel()
		repo := noopRequestRepo(t)
		repo.getByIDFn = func(_ context.Context, id string) (*models.ServiceRequest, error) {
			req := pendingRequest(id, "owner-1")
			req.Status = models.RequestStatusApproved
			return req, nil
		}
		svc := NewRequestService(repo, noopBlobStore())
		_, err := svc.Delete(context.Background(), ownerActor("owner-1"), "req-1")
		assertAppErrCode(t, err, models.CodeForbidden)
	})

	t.Run("delete emits a terminal DELETED event", func(t *testing.T) {
		t.Parallel()
		repo := noopRequestRepo(t)
		repo.getByIDFn = func(_ context.Context, id string) (*models.ServiceRequest, error) {
			req := pendingRequest(id, "owner-1")
			req.Status = models.RequestStatusRejected
			return req, nil
		}
		repo.deleteFn = func(context.Context, string) error { return nil }
		svc := NewRequestService(repo, noopBlobStore())

		events, err := svc.Delete(context.Background(), ownerActor("owner-1"), "req-1")
		require.NoError(t, err)
		require.Len(t, events, 1)
		assert.Equal(t, EventRequestDeleted, events[0].Kind)
		assert.Equal(t, models.RequestStatusDeleted, events[0].Request.Status)
	})
}
