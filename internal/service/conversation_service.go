package service

import (
	"context"
	"strings"
	"time"

	"smartcity/internal/authz"
	"smartcity/internal/cache"
	"smartcity/internal/models"
	"smartcity/internal/repository"
)

// ConversationService owns message appends on owner/admin threads.
type ConversationService struct {
	convRepo repository.ConversationRepository
	userRepo repository.UserRepository
}

func NewConversationService(convRepo repository.ConversationRepository, userRepo repository.UserRepository) *ConversationService {
	return &ConversationService{convRepo: convRepo, userRepo: userRepo}
}

// lookupOwner resolves the thread's owner, which must exist and hold the
// OWNER role.
func (s *ConversationService) lookupOwner(ctx context.Context, ownerID string) (*models.User, error) {
	owner, err := s.userRepo.GetByID(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	if owner.Role != models.RoleOwner {
		return nil, models.NewNotFoundError("conversation", ownerID)
	}
	return owner, nil
}

// PostMessage appends to the owner's thread, creating it on first use. The
// timestamp is assigned here, at append time.
func (s *ConversationService) PostMessage(ctx context.Context, actor authz.Actor, ownerID, content string) (*models.Message, error) {
	if strings.TrimSpace(content) == "" {
		return nil, models.NewValidationError("Message content is required")
	}

	owner, err := s.lookupOwner(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	if d := authz.CanUseConversation(actor, owner.ID, owner.Municipality); !d.Allowed {
		return nil, d.Err()
	}

	if _, err := s.convRepo.GetOrCreate(ctx, ownerID); err != nil {
		return nil, err
	}

	msg := &models.Message{
		ConversationID: ownerID,
		SenderID:       actor.ID,
		SenderRole:     actor.Role,
		Content:        content,
		CreatedAt:      time.Now().UTC(),
	}
	if err := s.convRepo.AppendMessage(ctx, msg); err != nil {
		return nil, err
	}
	cache.InvalidateConversation(ctx, ownerID)

	return msg, nil
}

// GetConversation returns the full ordered thread. A thread nobody has
// written to yet reads as empty, never as NOT_FOUND.
func (s *ConversationService) GetConversation(ctx context.Context, actor authz.Actor, ownerID string) (*models.Conversation, error) {
	owner, err := s.lookupOwner(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	if d := authz.CanUseConversation(actor, owner.ID, owner.Municipality); !d.Allowed {
		return nil, d.Err()
	}

	conv, err := s.convRepo.GetWithMessages(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	if conv == nil {
		conv = &models.Conversation{ID: ownerID, OwnerID: ownerID, Messages: []models.Message{}}
	}
	if conv.Messages == nil {
		conv.Messages = []models.Message{}
	}
	return conv, nil
}

// ListOwners returns the owners an admin may converse with, limited to the
// admin's own municipality.
func (s *ConversationService) ListOwners(ctx context.Context, actor authz.Actor) ([]*models.User, error) {
	if actor.Role != models.RoleAdmin {
		return nil, models.NewForbiddenError("Access denied: " + string(authz.DenyWrongRole))
	}
	owners, err := s.userRepo.ListByRole(ctx, models.RoleOwner)
	if err != nil {
		return nil, err
	}
	scoped := make([]*models.User, 0, len(owners))
	for _, o := range owners {
		if o.Municipality == actor.Municipality {
			scoped = append(scoped, o)
		}
	}
	return scoped, nil
}
