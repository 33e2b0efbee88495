package repository

import (
	"context"

	"smartcity/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ReviewRepository defines data operations for citizen reviews.
type ReviewRepository interface {
	Create(ctx context.Context, review *models.Review) error
	ListByBusiness(ctx context.Context, businessID string) ([]*models.Review, error)
}

type reviewRepository struct {
	db *gorm.DB
}

// NewReviewRepository creates a new review repository
func NewReviewRepository(db *gorm.DB) ReviewRepository {
	return &reviewRepository{db: db}
}

func (r *reviewRepository) Create(ctx context.Context, review *models.Review) error {
	return r.db.WithContext(ctx).Create(review).Error
}

func (r *reviewRepository) ListByBusiness(ctx context.Context, businessID string) ([]*models.Review, error) {
	var reviews []*models.Review
	err := r.db.WithContext(ctx).
		Where("business_id = ?", businessID).
		Order("created_at DESC").
		Find(&reviews).Error
	return reviews, err
}

// OfferingRepository defines data operations for business offerings.
type OfferingRepository interface {
	Create(ctx context.Context, offering *models.Offering) error
	GetByID(ctx context.Context, id string) (*models.Offering, error)
	Update(ctx context.Context, offering *models.Offering) error
	Delete(ctx context.Context, id string) error
	ListByBusiness(ctx context.Context, businessID string) ([]*models.Offering, error)
	ListByOwner(ctx context.Context, ownerID string) ([]*models.Offering, error)
}

type offeringRepository struct {
	db *gorm.DB
}

// NewOfferingRepository creates a new offering repository
func NewOfferingRepository(db *gorm.DB) OfferingRepository {
	return &offeringRepository{db: db}
}

func (r *offeringRepository) Create(ctx context.Context, offering *models.Offering) error {
	return r.db.WithContext(ctx).Create(offering).Error
}

func (r *offeringRepository) GetByID(ctx context.Context, id string) (*models.Offering, error) {
	var offering models.Offering
	if err := r.db.WithContext(ctx).First(&offering, "id = ?", id).Error; err != nil {
		return nil, notFoundOr(err, "offering", id)
	}
	return &offering, nil
}

func (r *offeringRepository) Update(ctx context.Context, offering *models.Offering) error {
	return r.db.WithContext(ctx).Save(offering).Error
}

func (r *offeringRepository) Delete(ctx context.Context, id string) error {
	res := r.db.WithContext(ctx).Delete(&models.Offering{}, "id = ?", id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return models.NewNotFoundError("offering", id)
	}
	return nil
}

func (r *offeringRepository) ListByBusiness(ctx context.Context, businessID string) ([]*models.Offering, error) {
	var offerings []*models.Offering
	err := r.db.WithContext(ctx).
		Where("business_id = ?", businessID).
		Order("created_at ASC").
		Find(&offerings).Error
	return offerings, err
}

func (r *offeringRepository) ListByOwner(ctx context.Context, ownerID string) ([]*models.Offering, error) {
	var offerings []*models.Offering
	err := r.db.WithContext(ctx).
		Where("owner_id = ?", ownerID).
		Order("created_at ASC").
		Find(&offerings).Error
	return offerings, err
}

// CategoryRepository defines data operations for business categories.
type CategoryRepository interface {
	Ensure(ctx context.Context, name string) error
	List(ctx context.Context) ([]*models.Category, error)
}

type categoryRepository struct {
	db *gorm.DB
}

// NewCategoryRepository creates a new category repository
func NewCategoryRepository(db *gorm.DB) CategoryRepository {
	return &categoryRepository{db: db}
}

// Ensure inserts a category by name, ignoring duplicates. Seeding calls this
// repeatedly so it must stay idempotent.
func (r *categoryRepository) Ensure(ctx context.Context, name string) error {
	cat := models.Category{Name: name}
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&cat).Error
}

func (r *categoryRepository) List(ctx context.Context) ([]*models.Category, error) {
	var cats []*models.Category
	err := r.db.WithContext(ctx).Order("name ASC").Find(&cats).Error
	return cats, err
}
