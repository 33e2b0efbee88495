package service

import (
	"context"
	"strings"

	"smartcity/internal/authz"
	"smartcity/internal/cache"
	"smartcity/internal/models"
	"smartcity/internal/repository"
)

// BusinessService covers the public side of approved businesses: citizen
// reviews, owner-managed offerings and the category catalog.
type BusinessService struct {
	requestRepo  repository.RequestRepository
	reviewRepo   repository.ReviewRepository
	offeringRepo repository.OfferingRepository
	categoryRepo repository.CategoryRepository
}

func NewBusinessService(
	requestRepo repository.RequestRepository,
	reviewRepo repository.ReviewRepository,
	offeringRepo repository.OfferingRepository,
	categoryRepo repository.CategoryRepository,
) *BusinessService {
	return &BusinessService{
		requestRepo:  requestRepo,
		reviewRepo:   reviewRepo,
		offeringRepo: offeringRepo,
		categoryRepo: categoryRepo,
	}
}

// approvedBusiness loads a request and requires it to be an approved
// business; anything else reads as NOT_FOUND to the public surface.
func (s *BusinessService) approvedBusiness(ctx context.Context, businessID string) (*models.ServiceRequest, error) {
	req, err := s.requestRepo.GetByID(ctx, businessID)
	if err != nil {
		return nil, err
	}
	if req.Status != models.RequestStatusApproved {
		return nil, models.NewNotFoundError("business", businessID)
	}
	return req, nil
}

type AddReviewInput struct {
	BusinessID string
	Username   string
	Comment    string
	Rating     int
}

// AddReview records citizen feedback on an approved business.
func (s *BusinessService) AddReview(ctx context.Context, actor authz.Actor, in AddReviewInput) (*models.Review, error) {
	if actor.Role != models.RoleCitizen {
		return nil, models.NewForbiddenError("Access denied: " + string(authz.DenyWrongRole))
	}
	if in.Rating < 1 || in.Rating > 5 {
		return nil, models.NewValidationError("Rating must be between 1 and 5")
	}
	if _, err := s.approvedBusiness(ctx, in.BusinessID); err != nil {
		return nil, err
	}

	review := &models.Review{
		BusinessID: in.BusinessID,
		UserID:     actor.ID,
		Username:   in.Username,
		Comment:    in.Comment,
		Rating:     in.Rating,
	}
	if err := s.reviewRepo.Create(ctx, review); err != nil {
		return nil, err
	}
	return review, nil
}

func (s *BusinessService) ListReviews(ctx context.Context, businessID string) ([]*models.Review, error) {
	if _, err := s.approvedBusiness(ctx, businessID); err != nil {
		return nil, err
	}
	return s.reviewRepo.ListByBusiness(ctx, businessID)
}

type OfferingInput struct {
	BusinessID  string
	Name        string
	Description string
	Price       string
}

// AddOffering lists a product or service under the owner's approved
// business.
func (s *BusinessService) AddOffering(ctx context.Context, actor authz.Actor, in OfferingInput) (*models.Offering, error) {
	if strings.TrimSpace(in.Name) == "" {
		return nil, models.NewValidationError("Offering name is required")
	}
	business, err := s.approvedBusiness(ctx, in.BusinessID)
	if err != nil {
		return nil, err
	}
	if business.OwnerID != actor.ID {
		return nil, models.NewForbiddenError("Access denied: " + string(authz.DenyNotOwner))
	}

	offering := &models.Offering{
		BusinessID:  in.BusinessID,
		OwnerID:     actor.ID,
		Name:        strings.TrimSpace(in.Name),
		Description: in.Description,
		Price:       in.Price,
	}
	if err := s.offeringRepo.Create(ctx, offering); err != nil {
		return nil, err
	}
	return offering, nil
}

func (s *BusinessService) UpdateOffering(ctx context.Context, actor authz.Actor, offeringID string, in OfferingInput) (*models.Offering, error) {
	offering, err := s.offeringRepo.GetByID(ctx, offeringID)
	if err != nil {
		return nil, err
	}
	if offering.OwnerID != actor.ID {
		return nil, models.NewForbiddenError("Access denied: " + string(authz.DenyNotOwner))
	}

	if strings.TrimSpace(in.Name) != "" {
		offering.Name = strings.TrimSpace(in.Name)
	}
	if in.Description != "" {
		offering.Description = in.Description
	}
	if in.Price != "" {
		offering.Price = in.Price
	}
	if err := s.offeringRepo.Update(ctx, offering); err != nil {
		return nil, err
	}
	return offering, nil
}

func (s *BusinessService) DeleteOffering(ctx context.Context, actor authz.Actor, offeringID string) error {
	offering, err := s.offeringRepo.GetByID(ctx, offeringID)
	if err != nil {
		return err
	}
	if offering.OwnerID != actor.ID {
		return models.NewForbiddenError("Access denied: " + string(authz.DenyNotOwner))
	}
	return s.offeringRepo.Delete(ctx, offeringID)
}

func (s *BusinessService) ListOfferings(ctx context.Context, businessID string) ([]*models.Offering, error) {
	if _, err := s.approvedBusiness(ctx, businessID); err != nil {
		return nil, err
	}
	return s.offeringRepo.ListByBusiness(ctx, businessID)
}

// ListMyOfferings returns an owner's offerings across all their businesses.
func (s *BusinessService) ListMyOfferings(ctx context.Context, actor authz.Actor) ([]*models.Offering, error) {
	return s.offeringRepo.ListByOwner(ctx, actor.ID)
}

// AddCategory registers a new selectable business category. Idempotent on
// name; admin-only.
func (s *BusinessService) AddCategory(ctx context.Context, actor authz.Actor, name string) error {
	if actor.Role != models.RoleAdmin {
		return models.NewForbiddenError("Access denied: " + string(authz.DenyWrongRole))
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return models.NewValidationError("Category name is required")
	}
	if err := s.categoryRepo.Ensure(ctx, name); err != nil {
		return err
	}
	cache.InvalidateCategories(ctx)
	return nil
}

// ListCategories returns the selectable business categories, cached.
func (s *BusinessService) ListCategories(ctx context.Context) ([]*models.Category, error) {
	var cats []*models.Category
	err := cache.Aside(ctx, cache.CategoriesKey, &cats, cache.CategoriesTTL, func() error {
		var fetchErr error
		cats, fetchErr = s.categoryRepo.List(ctx)
		return fetchErr
	})
	return cats, err
}
