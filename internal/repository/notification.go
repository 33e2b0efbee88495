package repository

import (
	"context"

	"smartcity/internal/models"

	"gorm.io/gorm"
)

// NotificationRepository defines data operations for personal notifications
// and area-wide broadcasts.
type NotificationRepository interface {
	Create(ctx context.Context, n *models.Notification) error
	GetByID(ctx context.Context, id string) (*models.Notification, error)
	ListPersonal(ctx context.Context, userID string) ([]*models.Notification, error)
	ListBroadcasts(ctx context.Context) ([]*models.Notification, error)
	MarkRead(ctx context.Context, id string) error
	DeleteForRelated(ctx context.Context, relatedID string) error
}

type notificationRepository struct {
	db *gorm.DB
}

// NewNotificationRepository creates a new notification repository
func NewNotificationRepository(db *gorm.DB) NotificationRepository {
	return &notificationRepository{db: db}
}

func (r *notificationRepository) Create(ctx context.Context, n *models.Notification) error {
	return r.db.WithContext(ctx).Create(n).Error
}

func (r *notificationRepository) GetByID(ctx context.Context, id string) (*models.Notification, error) {
	var n models.Notification
	if err := r.db.WithContext(ctx).First(&n, "id = ?", id).Error; err != nil {
		return nil, notFoundOr(err, "notification", id)
	}
	return &n, nil
}

func (r *notificationRepository) ListPersonal(ctx context.Context, userID string) ([]*models.Notification, error) {
	var list []*models.Notification
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&list).Error
	return list, err
}

func (r *notificationRepository) ListBroadcasts(ctx context.Context) ([]*models.Notification, error) {
	var list []*models.Notification
	err := r.db.WithContext(ctx).
		Where("user_id IS NULL").
		Order("created_at DESC").
		Find(&list).Error
	return list, err
}

func (r *notificationRepository) MarkRead(ctx context.Context, id string) error {
	res := r.db.WithContext(ctx).
		Model(&models.Notification{}).
		Where("id = ?", id).
		Update("is_read", true)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return models.NewNotFoundError("notification", id)
	}
	return nil
}

func (r *notificationRepository) DeleteForRelated(ctx context.Context, relatedID string) error {
	return r.db.WithContext(ctx).
		Where("related_id = ?", relatedID).
		Delete(&models.Notification{}).Error
}
