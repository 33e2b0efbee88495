// Package middleware provides authentication and authorization middleware for the application.
package middleware

import (
	"strings"

	"smartcity/internal/authz"
	"smartcity/internal/config"
	"smartcity/internal/models"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
)

var cfg *config.Config

// InitMiddleware initializes authentication middleware with the given config.
func InitMiddleware(c *config.Config) {
	cfg = c
}

// ActorLocal is the Fiber locals key under which the authenticated actor is stored.
const ActorLocal = "actor"

// ActorFromCtx returns the authenticated actor placed in locals by AuthRequired.
// The boolean is false when no actor is present (route not behind auth).
func ActorFromCtx(c *fiber.Ctx) (authz.Actor, bool) {
	actor, ok := c.Locals(ActorLocal).(authz.Actor)
	return actor, ok
}

// AuthRequired is a middleware that enforces authentication for protected routes.
func AuthRequired(c *fiber.Ctx) error {
	authHeader := c.Get("Authorization")
	if authHeader == "" {
		return models.RespondWithError(c, fiber.StatusUnauthorized, models.NewAuthRequiredError())
	}

	// Extract token from "Bearer <token>"
	parts := strings.Split(authHeader, " ")
	if len(parts) != 2 || parts[0] != "Bearer" {
		return models.RespondWithError(c, fiber.StatusUnauthorized, models.NewAuthRequiredError())
	}

	return authenticateToken(c, parts[1])
}

// WebSocketAuthRequired validates JWT tokens from query parameters for
// WebSocket connections, falling back to the Authorization header.
func WebSocketAuthRequired(c *fiber.Ctx) error {
	token := c.Query("token")
	if token == "" {
		authHeader := c.Get("Authorization")
		if authHeader == "" {
			return models.RespondWithError(c, fiber.StatusUnauthorized, models.NewAuthRequiredError())
		}
		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || parts[0] != "Bearer" {
			return models.RespondWithError(c, fiber.StatusUnauthorized, models.NewAuthRequiredError())
		}
		token = parts[1]
	}
	return authenticateToken(c, token)
}

func authenticateToken(c *fiber.Ctx, tokenString string) error {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		// Validate signing method
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fiber.NewError(fiber.StatusUnauthorized, "Invalid signing method")
		}
		return []byte(cfg.JWTSecret), nil
	})

	if err != nil || !token.Valid {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "Invalid or expired token",
		})
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "Invalid token claims",
		})
	}

	// Subject claim per RFC 7519 carries the opaque user ID.
	sub, ok := claims["sub"].(string)
	if !ok || sub == "" {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "Invalid token structure - missing subject",
		})
	}

	roleStr, _ := claims["role"].(string)
	role := models.Role(roleStr)
	if !role.Valid() {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "Invalid role in token",
		})
	}

	municipality, _ := claims["municipality"].(string)

	c.Locals(ActorLocal, authz.Actor{
		ID:           sub,
		Role:         role,
		Municipality: municipality,
	})
	c.Locals("userID", sub)

	return c.Next()
}

// RequireRole wraps AuthRequired-protected routes with an additional role check.
func RequireRole(role models.Role) fiber.Handler {
	return func(c *fiber.Ctx) error {
		actor, ok := ActorFromCtx(c)
		if !ok {
			return models.RespondWithError(c, fiber.StatusUnauthorized, models.NewAuthRequiredError())
		}
		if actor.Role != role {
			return models.RespondWithError(c, fiber.StatusForbidden,
				models.NewForbiddenError("Access denied: "+string(authz.DenyWrongRole)))
		}
		return c.Next()
	}
}
