package repository

import (
	"context"
	"testing"

	"smartcity/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func setupTestDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if err != nil {
		t.Fatalf("Failed to connect to database: %v", err)
	}

	err = db.AutoMigrate(
		&models.User{},
		&models.Category{},
		&models.ServiceRequest{},
		&models.Document{},
		&models.Conversation{},
		&models.Message{},
		&models.Notification{},
		&models.Review{},
		&models.Offering{},
	)
	if err != nil {
		t.Fatalf("Failed to migrate database: %v", err)
	}

	return db
}

func newPendingRequest(ownerID, municipality string) *models.ServiceRequest {
	return &models.ServiceRequest{
		Name:         "Corner Bakery",
		Description:  "Fresh bread daily",
		Category:     "Food",
		Address:      "12 Main St",
		Status:       models.RequestStatusPending,
		OwnerID:      ownerID,
		Municipality: municipality,
	}
}

func TestRequestRepository(t *testing.T) {
	db := setupTestDB(t)
	repo := NewRequestRepository(db)
	ctx := context.Background()

	t.Run("Create assigns ID", func(t *testing.T) {
		req := newPendingRequest("owner-1", "M1")
		err := repo.Create(ctx, req)
		assert.NoError(t, err)
		assert.NotEmpty(t, req.ID)
	})

	t.Run("GetByID not found", func(t *testing.T) {
		_, err := repo.GetByID(ctx, "missing-id")
		require.Error(t, err)
		var appErr *models.AppError
		require.ErrorAs(t, err, &appErr)
		assert.Equal(t, models.CodeNotFound, appErr.Code)
	})

	t.Run("Update persists status", func(t *testing.T) {
		req := newPendingRequest("owner-2", "M1")
		require.NoError(t, repo.Create(ctx, req))

		req.Status = models.RequestStatusApproved
		require.NoError(t, repo.Update(ctx, req))

		fetched, err := repo.GetByID(ctx, req.ID)
		require.NoError(t, err)
		assert.Equal(t, models.RequestStatusApproved, fetched.Status)
	})

	t.Run("ListByMunicipalityAndStatus filters both", func(t *testing.T) {
		reqA := newPendingRequest("owner-3", "M2")
		reqB := newPendingRequest("owner-4", "M2")
		reqB.Status = models.RequestStatusRejected
		reqC := newPendingRequest("owner-5", "M3")
		require.NoError(t, repo.Create(ctx, reqA))
		require.NoError(t, repo.Create(ctx, reqB))
		require.NoError(t, repo.Create(ctx, reqC))

		pending, err := repo.ListByMunicipalityAndStatus(ctx, "M2", models.RequestStatusPending)
		require.NoError(t, err)
		require.Len(t, pending, 1)
		assert.Equal(t, reqA.ID, pending[0].ID)
	})

	t.Run("Delete removes request and documents", func(t *testing.T) {
		req := newPendingRequest("owner-6", "M1")
		require.NoError(t, repo.Create(ctx, req))
		require.NoError(t, repo.AddDocuments(ctx, req.ID, []models.Document{
			{StoredName: "a.pdf", OriginalName: "a.pdf"},
		}))

		require.NoError(t, repo.Delete(ctx, req.ID))

		_, err := repo.GetByID(ctx, req.ID)
		assert.Error(t, err)

		var count int64
		db.Model(&models.Document{}).Where("request_id = ?", req.ID).Count(&count)
		assert.Zero(t, count)
	})

	t.Run("Delete missing request", func(t *testing.T) {
		err := repo.Delete(ctx, "missing-id")
		var appErr *models.AppError
		require.ErrorAs(t, err, &appErr)
		assert.Equal(t, models.CodeNotFound, appErr.Code)
	})
}

func TestRequestRepository_Documents(t *testing.T) {
	db := setupTestDB(t)
	repo := NewRequestRepository(db)
	ctx := context.Background()

	req := newPendingRequest("owner-1", "M1")
	require.NoError(t, repo.Create(ctx, req))

	t.Run("AddDocuments assigns dense positions", func(t *testing.T) {
		err := repo.AddDocuments(ctx, req.ID, []models.Document{
			{StoredName: "s1.pdf", OriginalName: "permit.pdf"},
			{StoredName: "s2.pdf", OriginalName: "floorplan.pdf"},
		})
		require.NoError(t, err)

		fetched, err := repo.GetByID(ctx, req.ID)
		require.NoError(t, err)
		require.Len(t, fetched.Documents, 2)
		assert.Equal(t, 0, fetched.Documents[0].Position)
		assert.Equal(t, 1, fetched.Documents[1].Position)
	})

	t.Run("AddDocuments appends after existing", func(t *testing.T) {
		err := repo.AddDocuments(ctx, req.ID, []models.Document{
			{StoredName: "s3.pdf", OriginalName: "license.pdf"},
		})
		require.NoError(t, err)

		fetched, err := repo.GetByID(ctx, req.ID)
		require.NoError(t, err)
		require.Len(t, fetched.Documents, 3)
		assert.Equal(t, 2, fetched.Documents[2].Position)
		assert.Equal(t, "license.pdf", fetched.Documents[2].OriginalName)
	})

	t.Run("RemoveDocument renumbers survivors", func(t *testing.T) {
		fetched, err := repo.GetByID(ctx, req.ID)
		require.NoError(t, err)
		middle := fetched.Documents[1]

		require.NoError(t, repo.RemoveDocument(ctx, req.ID, middle.ID))

		after, err := repo.GetByID(ctx, req.ID)
		require.NoError(t, err)
		require.Len(t, after.Documents, 2)
		assert.Equal(t, 0, after.Documents[0].Position)
		assert.Equal(t, 1, after.Documents[1].Position)
		assert.Equal(t, "permit.pdf", after.Documents[0].OriginalName)
		assert.Equal(t, "license.pdf", after.Documents[1].OriginalName)
	})

	t.Run("RemoveDocument wrong request", func(t *testing.T) {
		other := newPendingRequest("owner-2", "M1")
		require.NoError(t, repo.Create(ctx, other))

		fetched, err := repo.GetByID(ctx, req.ID)
		require.NoError(t, err)

		err = repo.RemoveDocument(ctx, other.ID, fetched.Documents[0].ID)
		var appErr *models.AppError
		require.ErrorAs(t, err, &appErr)
		assert.Equal(t, models.CodeNotFound, appErr.Code)
	})
}
