package routes

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/like-mike/tenant-ai-gateway/metrics"
	"github.com/like-mike/tenant-ai-gateway/shared/db"
	"github.com/like-mike/tenant-ai-gateway/shared/models"
)

const identityKey = "identity"

// AuthMiddleware resolves the bearer API key to a user + tenant identity.
// Key hashes, not keys, are compared against storage.
func AuthMiddleware(database *sql.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		header := c.Get("Authorization")
		if !strings.HasPrefix(header, "Bearer ") {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "missing API key"})
		}
		key := strings.TrimPrefix(header, "Bearer ")

		ident, err := db.GetIdentityByKeyHash(c.Context(), database, db.HashAPIKey(key))
		if err != nil {
			if err == sql.ErrNoRows {
				return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "invalid API key"})
			}
			log.Printf("Failed to resolve API key: %v", err)
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "authentication unavailable"})
		}

		if !ident.Tenant.IsActive {
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "tenant is disabled"})
		}
		if !ident.User.IsActive {
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "user is disabled"})
		}

		keyHash := db.HashAPIKey(key)
		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := db.TouchAPIKey(ctx, database, keyHash); err != nil {
				log.Printf("Failed to touch API key: %v", err)
			}
		}()

		c.Locals(identityKey, ident)
		return c.Next()
	}
}

// AdminOnly rejects callers whose key does not belong to an admin user.
func AdminOnly() fiber.Handler {
	return func(c *fiber.Ctx) error {
		ident := GetIdentity(c)
		if ident == nil || !ident.User.IsAdmin {
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "administrator access required"})
		}
		return c.Next()
	}
}

// GetIdentity returns the resolved caller, or nil outside the auth chain.
func GetIdentity(c *fiber.Ctx) *models.Identity {
	ident, _ := c.Locals(identityKey).(*models.Identity)
	return ident
}

// PrometheusMiddleware records request counts and latency per route.
func PrometheusMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()

		route := c.Route().Path
		status := fmt.Sprintf("%d", c.Response().StatusCode())
		metrics.HttpRequestsTotal.WithLabelValues(status, route).Inc()
		metrics.HttpRequestDurationSeconds.WithLabelValues(route).Observe(time.Since(start).Seconds())
		return err
	}
}
