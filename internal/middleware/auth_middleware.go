package middleware

import (
	"strings"

	"umkm-inventory/pkg/jwt"

	"github.com/gofiber/fiber/v2"
)

// Locals keys set by RequireAuth
const (
	LocalUserID      = "user_id"
	LocalUserName    = "user_name"
	LocalScopes      = "user_scopes"
	LocalAuthEnabled = "auth_enabled"
)

// Token scopes checked by RequireScope
const (
	ScopeItemWrite   = "item:write"
	ScopeStockAdjust = "stock:adjust"
	ScopeSaleCreate  = "sale:create"
)

// RequireAuth validates the bearer token and sets the caller in context.
// With an empty secret authentication is disabled and every request passes.
func RequireAuth(secret []byte) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if len(secret) == 0 {
			c.Locals(LocalAuthEnabled, false)
			return c.Next()
		}

		// Get Authorization header
		authHeader := c.Get("Authorization")
		if authHeader == "" {
			return c.Status(401).JSON(fiber.Map{"error": "Missing authorization token"})
		}

		// Extract token from "Bearer <token>"
		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
			return c.Status(401).JSON(fiber.Map{"error": "Invalid authorization format. Use: Bearer <token>"})
		}

		claims, err := jwt.ValidateToken(secret, parts[1])
		if err != nil {
			return c.Status(401).JSON(fiber.Map{"error": "Invalid or expired token"})
		}

		c.Locals(LocalAuthEnabled, true)
		c.Locals(LocalUserID, claims.Subject)
		c.Locals(LocalUserName, claims.Name)
		c.Locals(LocalScopes, claims.Scopes)

		return c.Next()
	}
}

// RequireScope checks if the authenticated caller was granted scope
func RequireScope(scope string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if enabled, ok := c.Locals(LocalAuthEnabled).(bool); ok && !enabled {
			return c.Next()
		}

		scopes, ok := c.Locals(LocalScopes).([]string)
		if !ok {
			return c.Status(403).JSON(fiber.Map{"error": "No scopes found"})
		}

		for _, s := range scopes {
			if s == scope {
				return c.Next()
			}
		}

		return c.Status(403).JSON(fiber.Map{
			"error": "Forbidden: requires '" + scope + "' scope",
		})
	}
}

// Actor returns the authenticated subject, or "" when auth is disabled.
func Actor(c *fiber.Ctx) string {
	if id, ok := c.Locals(LocalUserID).(string); ok {
		return id
	}
	return ""
}
