package repository

import (
	"context"
	"errors"

	"smartcity/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ConversationRepository defines data operations for owner/admin threads.
// A conversation's ID equals the owner's user ID, so creation is idempotent.
type ConversationRepository interface {
	GetOrCreate(ctx context.Context, ownerID string) (*models.Conversation, error)
	GetWithMessages(ctx context.Context, ownerID string) (*models.Conversation, error)
	AppendMessage(ctx context.Context, msg *models.Message) error
	ListOwnerIDs(ctx context.Context) ([]string, error)
}

type conversationRepository struct {
	db *gorm.DB
}

// NewConversationRepository creates a new conversation repository
func NewConversationRepository(db *gorm.DB) ConversationRepository {
	return &conversationRepository{db: db}
}

func (r *conversationRepository) GetOrCreate(ctx context.Context, ownerID string) (*models.Conversation, error) {
	conv := models.Conversation{ID: ownerID, OwnerID: ownerID}
	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&conv).Error
	if err != nil {
		return nil, err
	}
	if err := r.db.WithContext(ctx).First(&conv, "id = ?", ownerID).Error; err != nil {
		return nil, err
	}
	return &conv, nil
}

// GetWithMessages returns the owner's thread with messages in chronological
// order. A missing thread is not an error; callers get nil and treat it as
// an empty conversation.
func (r *conversationRepository) GetWithMessages(ctx context.Context, ownerID string) (*models.Conversation, error) {
	var conv models.Conversation
	err := r.db.WithContext(ctx).
		Preload("Messages", func(db *gorm.DB) *gorm.DB {
			return db.Order("created_at ASC, id ASC")
		}).
		First(&conv, "id = ?", ownerID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &conv, nil
}

func (r *conversationRepository) AppendMessage(ctx context.Context, msg *models.Message) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(msg).Error; err != nil {
			return err
		}
		// Touch the thread so ListOwnerIDs keeps active threads first.
		return tx.Model(&models.Conversation{}).
			Where("id = ?", msg.ConversationID).
			Update("updated_at", msg.CreatedAt).Error
	})
}

// ListOwnerIDs returns the owner IDs of all existing threads, most recently
// active first. Admins use this to pick a conversation.
func (r *conversationRepository) ListOwnerIDs(ctx context.Context) ([]string, error) {
	var ids []string
	err := r.db.WithContext(ctx).
		Model(&models.Conversation{}).
		Order("updated_at DESC").
		Pluck("owner_id", &ids).Error
	return ids, err
}
