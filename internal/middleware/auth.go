// Package middleware provides authentication and authorization middleware for the application.
package middleware

import (
	"strconv"
	"strings"

	"recolecta/internal/config"
	"recolecta/internal/models"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
)

var cfg *config.Config

// Issuer of the bearer tokens this API accepts. Tokens are minted by the
// surrounding identity service; this API only verifies them.
const tokenIssuer = "recolecta-identity"

// RoleAdmin marks administrators who may schedule, cancel and complete pickups.
const RoleAdmin = "admin"

// InitMiddleware initializes authentication middleware with the given config.
func InitMiddleware(c *config.Config) {
	cfg = c
}

// Identity is the verified caller extracted from a bearer token.
type Identity struct {
	UserID   uint
	Username string
	Role     string
}

func parseIdentity(tokenString string) (*Identity, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fiber.NewError(fiber.StatusUnauthorized, "Invalid signing method")
		}
		return []byte(cfg.JWTSecret), nil
	})
	if err != nil || !token.Valid {
		return nil, models.NewUnauthorizedError("Invalid or expired token")
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, models.NewUnauthorizedError("Invalid token claims")
	}

	if issuer, issuerOk := claims["iss"].(string); !issuerOk || issuer != tokenIssuer {
		return nil, models.NewUnauthorizedError("Invalid token issuer")
	}

	sub, ok := claims["sub"].(string)
	if !ok {
		return nil, models.NewUnauthorizedError("Invalid subject claim")
	}
	userID, err := strconv.ParseUint(sub, 10, 32)
	if err != nil {
		return nil, models.NewUnauthorizedError("Invalid user ID in token")
	}

	ident := &Identity{UserID: uint(userID)}
	if username, unameOk := claims["username"].(string); unameOk {
		ident.Username = username
	}
	if role, roleOk := claims["role"].(string); roleOk {
		ident.Role = role
	}
	return ident, nil
}

func bearerToken(c *fiber.Ctx) string {
	authHeader := c.Get("Authorization")
	if authHeader != "" {
		parts := strings.Split(authHeader, " ")
		if len(parts) == 2 && parts[0] == "Bearer" {
			return parts[1]
		}
		return ""
	}
	// WebSocket clients pass the token as a query parameter.
	return c.Query("token")
}

// AuthRequired is a middleware that enforces authentication for protected routes.
func AuthRequired(c *fiber.Ctx) error {
	tokenString := bearerToken(c)
	if tokenString == "" {
		return models.RespondWithError(c, fiber.StatusUnauthorized,
			models.NewUnauthorizedError("Authorization required"))
	}

	ident, err := parseIdentity(tokenString)
	if err != nil {
		return models.RespondWithError(c, fiber.StatusUnauthorized, err)
	}

	c.Locals("userID", ident.UserID)
	c.Locals("username", ident.Username)
	c.Locals("role", ident.Role)

	return c.Next()
}

// AdminRequired enforces that the authenticated caller carries the admin role.
// Must run after AuthRequired.
func AdminRequired(c *fiber.Ctx) error {
	role, _ := c.Locals("role").(string)
	if role != RoleAdmin {
		return models.RespondWithError(c, fiber.StatusForbidden,
			models.NewUnauthorizedError("Administrator role required"))
	}
	return c.Next()
}
