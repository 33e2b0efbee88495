package server

import (
	"smartcity/internal/models"
	"smartcity/internal/service"

	"github.com/gofiber/fiber/v2"
)

// CreateBusinessReview handles POST /api/businesses/:id/reviews
func (s *Server) CreateBusinessReview(c *fiber.Ctx) error {
	actor, err := s.actor(c)
	if err != nil {
		return nil
	}

	var body struct {
		Username string `json:"username"`
		Comment  string `json:"comment"`
		Rating   int    `json:"rating"`
	}
	if err := c.BodyParser(&body); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	review, err := s.businessService.AddReview(c.Context(), actor, service.AddReviewInput{
		BusinessID: c.Params("id"),
		Username:   body.Username,
		Comment:    body.Comment,
		Rating:     body.Rating,
	})
	if err != nil {
		return s.serviceError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(review)
}

// GetBusinessReviews handles GET /api/businesses/:id/reviews (public)
func (s *Server) GetBusinessReviews(c *fiber.Ctx) error {
	reviews, err := s.businessService.ListReviews(c.Context(), c.Params("id"))
	if err != nil {
		return s.serviceError(c, err)
	}
	return c.JSON(reviews)
}

// CreateBusinessOffering handles POST /api/businesses/:id/offerings
func (s *Server) CreateBusinessOffering(c *fiber.Ctx) error {
	actor, err := s.actor(c)
	if err != nil {
		return nil
	}

	var body struct {
		Name        string `json:"name"`
		Description string `json:"description"`
		Price       string `json:"price"`
	}
	if err := c.BodyParser(&body); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	offering, err := s.businessService.AddOffering(c.Context(), actor, service.OfferingInput{
		BusinessID:  c.Params("id"),
		Name:        body.Name,
		Description: body.Description,
		Price:       body.Price,
	})
	if err != nil {
		return s.serviceError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(offering)
}

// GetBusinessOfferings handles GET /api/businesses/:id/offerings (public)
func (s *Server) GetBusinessOfferings(c *fiber.Ctx) error {
	offerings, err := s.businessService.ListOfferings(c.Context(), c.Params("id"))
	if err != nil {
		return s.serviceError(c, err)
	}
	return c.JSON(offerings)
}

// GetMyOfferings handles GET /api/offerings/me
func (s *Server) GetMyOfferings(c *fiber.Ctx) error {
	actor, err := s.actor(c)
	if err != nil {
		return nil
	}
	offerings, err := s.businessService.ListMyOfferings(c.Context(), actor)
	if err != nil {
		return s.serviceError(c, err)
	}
	return c.JSON(offerings)
}

// UpdateBusinessOffering handles PUT /api/offerings/:id
func (s *Server) UpdateBusinessOffering(c *fiber.Ctx) error {
	actor, err := s.actor(c)
	if err != nil {
		return nil
	}

	var body struct {
		Name        string `json:"name"`
		Description string `json:"description"`
		Price       string `json:"price"`
	}
	if err := c.BodyParser(&body); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	offering, err := s.businessService.UpdateOffering(c.Context(), actor, c.Params("id"), service.OfferingInput{
		Name:        body.Name,
		Description: body.Description,
		Price:       body.Price,
	})
	if err != nil {
		return s.serviceError(c, err)
	}
	return c.JSON(offering)
}

// DeleteBusinessOffering handles DELETE /api/offerings/:id
func (s *Server) DeleteBusinessOffering(c *fiber.Ctx) error {
	actor, err := s.actor(c)
	if err != nil {
		return nil
	}

	if err := s.businessService.DeleteOffering(c.Context(), actor, c.Params("id")); err != nil {
		return s.serviceError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// GetCategories handles GET /api/categories (public)
func (s *Server) GetCategories(c *fiber.Ctx) error {
	cats, err := s.businessService.ListCategories(c.Context())
	if err != nil {
		return s.serviceError(c, err)
	}
	return c.JSON(cats)
}

// CreateCategory handles POST /api/categories (admin)
func (s *Server) CreateCategory(c *fiber.Ctx) error {
	actor, err := s.actor(c)
	if err != nil {
		return nil
	}

	var body struct {
		Name string `json:"name"`
	}
	if err := c.BodyParser(&body); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	if err := s.businessService.AddCategory(c.Context(), actor, body.Name); err != nil {
		return s.serviceError(c, err)
	}
	return c.SendStatus(fiber.StatusCreated)
}
