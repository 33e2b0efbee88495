package server

import (
	"smartcity/internal/models"

	"github.com/gofiber/fiber/v2"
)

// PostConversationMessage handles POST /api/conversations/:ownerId/messages
func (s *Server) PostConversationMessage(c *fiber.Ctx) error {
	actor, err := s.actor(c)
	if err != nil {
		return nil
	}

	var body struct {
		Content string `json:"content"`
	}
	if err := c.BodyParser(&body); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	ownerID := c.Params("ownerId")
	msg, err := s.conversationService.PostMessage(c.Context(), actor, ownerID, body.Content)
	if err != nil {
		return s.serviceError(c, err)
	}

	municipality := s.ownerMunicipality(c.Context(), ownerID, actor.Municipality)
	s.dispatchConversationMessage(c.Context(), ownerID, municipality, msg)

	return c.Status(fiber.StatusCreated).JSON(msg)
}

// GetConversation handles GET /api/conversations/:ownerId
func (s *Server) GetConversation(c *fiber.Ctx) error {
	actor, err := s.actor(c)
	if err != nil {
		return nil
	}

	conv, err := s.conversationService.GetConversation(c.Context(), actor, c.Params("ownerId"))
	if err != nil {
		return s.serviceError(c, err)
	}
	return c.JSON(conv)
}

// ownerSummary is the admin-facing view of an owner with an open thread.
type ownerSummary struct {
	ID           string `json:"id"`
	Username     string `json:"username"`
	Municipality string `json:"municipality"`
	RequestCount int    `json:"request_count"`
}

// GetConversationOwners handles GET /api/conversations/owners (admin)
func (s *Server) GetConversationOwners(c *fiber.Ctx) error {
	actor, err := s.actor(c)
	if err != nil {
		return nil
	}

	owners, err := s.conversationService.ListOwners(c.Context(), actor)
	if err != nil {
		return s.serviceError(c, err)
	}

	summaries := make([]ownerSummary, 0, len(owners))
	for _, owner := range owners {
		reqs, err := s.requestRepo.ListByOwner(c.Context(), owner.ID)
		if err != nil {
			return s.serviceError(c, err)
		}
		summaries = append(summaries, ownerSummary{
			ID:           owner.ID,
			Username:     owner.Username,
			Municipality: owner.Municipality,
			RequestCount: len(reqs),
		})
	}
	return c.JSON(summaries)
}
