package server

import (
	"errors"
	"strconv"

	"smartcity/internal/authz"
	"smartcity/internal/middleware"
	"smartcity/internal/models"

	"github.com/gofiber/fiber/v2"
)

// errResponseWritten is a sentinel indicating the HTTP response was already
// committed by a helper. Handlers must return nil (not this error) to avoid
// Fiber's ErrorHandler overwriting the response.
var errResponseWritten = errors.New("response already written")

// actor extracts the authenticated actor placed in locals by the auth
// middleware. On failure it writes a 401 response and returns
// errResponseWritten.
func (s *Server) actor(c *fiber.Ctx) (authz.Actor, error) {
	actor, ok := middleware.ActorFromCtx(c)
	if !ok {
		_ = models.RespondWithError(c, fiber.StatusUnauthorized, models.NewAuthRequiredError())
		return authz.Actor{}, errResponseWritten
	}
	return actor, nil
}

// parseIndex extracts a non-negative positional index route parameter.
// On failure it writes a 400 JSON response and returns errResponseWritten.
func (s *Server) parseIndex(c *fiber.Ctx, param string) (int, error) {
	idx, err := strconv.Atoi(c.Params(param))
	if err != nil {
		_ = models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid document index"))
		return 0, errResponseWritten
	}
	return idx, nil
}

// serviceError maps a service-layer error onto the taxonomy's HTTP status.
func (s *Server) serviceError(c *fiber.Ctx, err error) error {
	return models.RespondWithError(c, models.StatusForError(err), err)
}
