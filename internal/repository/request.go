// Package repository contains the data access layer. Repositories translate
// gorm.ErrRecordNotFound into the application's NOT_FOUND error so callers
// never inspect GORM errors directly.
package repository

import (
	"context"
	"errors"

	"smartcity/internal/models"

	"gorm.io/gorm"
)

// RequestRepository defines data operations for service requests and their
// attached documents.
type RequestRepository interface {
	Create(ctx context.Context, req *models.ServiceRequest) error
	GetByID(ctx context.Context, id string) (*models.ServiceRequest, error)
	Update(ctx context.Context, req *models.ServiceRequest) error
	Delete(ctx context.Context, id string) error
	ListByOwner(ctx context.Context, ownerID string) ([]*models.ServiceRequest, error)
	ListByMunicipality(ctx context.Context, municipality string) ([]*models.ServiceRequest, error)
	ListByMunicipalityAndStatus(ctx context.Context, municipality string, status models.RequestStatus) ([]*models.ServiceRequest, error)
	ListApproved(ctx context.Context) ([]*models.ServiceRequest, error)
	AddDocuments(ctx context.Context, requestID string, docs []models.Document) error
	RemoveDocument(ctx context.Context, requestID, documentID string) error
}

type requestRepository struct {
	db *gorm.DB
}

// NewRequestRepository creates a new request repository
func NewRequestRepository(db *gorm.DB) RequestRepository {
	return &requestRepository{db: db}
}

func notFoundOr(err error, resource, id string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return models.NewNotFoundError(resource, id)
	}
	return err
}

func (r *requestRepository) Create(ctx context.Context, req *models.ServiceRequest) error {
	return r.db.WithContext(ctx).Create(req).Error
}

func (r *requestRepository) GetByID(ctx context.Context, id string) (*models.ServiceRequest, error) {
	var req models.ServiceRequest
	err := r.db.WithContext(ctx).
		Preload("Documents", func(db *gorm.DB) *gorm.DB {
			return db.Order("position ASC")
		}).
		First(&req, "id = ?", id).Error
	if err != nil {
		return nil, notFoundOr(err, "request", id)
	}
	return &req, nil
}

func (r *requestRepository) Update(ctx context.Context, req *models.ServiceRequest) error {
	return r.db.WithContext(ctx).
		Omit("Documents").
		Save(req).Error
}

func (r *requestRepository) Delete(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("request_id = ?", id).Delete(&models.Document{}).Error; err != nil {
			return err
		}
		res := tx.Delete(&models.ServiceRequest{}, "id = ?", id)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return models.NewNotFoundError("request", id)
		}
		return nil
	})
}

func (r *requestRepository) ListByOwner(ctx context.Context, ownerID string) ([]*models.ServiceRequest, error) {
	var reqs []*models.ServiceRequest
	err := r.db.WithContext(ctx).
		Preload("Documents", func(db *gorm.DB) *gorm.DB {
			return db.Order("position ASC")
		}).
		Where("owner_id = ?", ownerID).
		Order("created_at DESC").
		Find(&reqs).Error
	return reqs, err
}

func (r *requestRepository) ListByMunicipality(ctx context.Context, municipality string) ([]*models.ServiceRequest, error) {
	var reqs []*models.ServiceRequest
	err := r.db.WithContext(ctx).
		Preload("Documents", func(db *gorm.DB) *gorm.DB {
			return db.Order("position ASC")
		}).
		Where("municipality = ?", municipality).
		Order("created_at DESC").
		Find(&reqs).Error
	return reqs, err
}

func (r *requestRepository) ListByMunicipalityAndStatus(ctx context.Context, municipality string, status models.RequestStatus) ([]*models.ServiceRequest, error) {
	var reqs []*models.ServiceRequest
	err := r.db.WithContext(ctx).
		Preload("Documents", func(db *gorm.DB) *gorm.DB {
			return db.Order("position ASC")
		}).
		Where("municipality = ? AND status = ?", municipality, status).
		Order("created_at DESC").
		Find(&reqs).Error
	return reqs, err
}

func (r *requestRepository) ListApproved(ctx context.Context) ([]*models.ServiceRequest, error) {
	var reqs []*models.ServiceRequest
	err := r.db.WithContext(ctx).
		Where("status = ?", models.RequestStatusApproved).
		Order("created_at DESC").
		Find(&reqs).Error
	return reqs, err
}

// AddDocuments appends docs after the request's current last position.
func (r *requestRepository) AddDocuments(ctx context.Context, requestID string, docs []models.Document) error {
	if len(docs) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var maxPos int
		row := tx.Model(&models.Document{}).
			Where("request_id = ?", requestID).
			Select("COALESCE(MAX(position), -1)").
			Row()
		if err := row.Scan(&maxPos); err != nil {
			return err
		}
		for i := range docs {
			docs[i].RequestID = requestID
			docs[i].Position = maxPos + 1 + i
		}
		return tx.Create(&docs).Error
	})
}

// RemoveDocument deletes one document and renumbers the survivors so
// positions stay dense and zero-based.
func (r *requestRepository) RemoveDocument(ctx context.Context, requestID, documentID string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Where("request_id = ? AND id = ?", requestID, documentID).Delete(&models.Document{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return models.NewNotFoundError("document", documentID)
		}

		var remaining []models.Document
		if err := tx.Where("request_id = ?", requestID).Order("position ASC").Find(&remaining).Error; err != nil {
			return err
		}
		for i := range remaining {
			if remaining[i].Position != i {
				if err := tx.Model(&models.Document{}).
					Where("id = ?", remaining[i].ID).
					Update("position", i).Error; err != nil {
					return err
				}
			}
		}
		return nil
	})
}
