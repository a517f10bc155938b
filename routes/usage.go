package routes

import (
	"database/sql"
	"log"
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/like-mike/tenant-ai-gateway/shared/db"
	"github.com/like-mike/tenant-ai-gateway/shared/models"
)

// UsageHandler serves GET /v1/usage: the caller tenant's current budget
// position.
func UsageHandler(database *sql.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		ident := GetIdentity(c)
		ctx := c.Context()

		today, err := db.TenantTokensToday(ctx, database, ident.Tenant.ID)
		if err != nil {
			log.Printf("Failed to read tenant daily usage: %v", err)
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "usage unavailable"})
		}
		month, err := db.TenantTokensMonth(ctx, database, ident.Tenant.ID)
		if err != nil {
			log.Printf("Failed to read tenant monthly usage: %v", err)
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "usage unavailable"})
		}
		requests, failures, err := db.TenantRequestCounts(ctx, database, ident.Tenant.ID)
		if err != nil {
			log.Printf("Failed to read tenant request counts: %v", err)
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "usage unavailable"})
		}

		remaining := ident.Tenant.MaxTokensPerMonth - month
		if remaining < 0 {
			remaining = 0
		}

		return c.JSON(models.UsageStats{
			TenantID:       ident.Tenant.ID,
			TokensToday:    today,
			TokensMonth:    month,
			MonthlyLimit:   ident.Tenant.MaxTokensPerMonth,
			DailyLimit:     ident.Tenant.MaxTokensPerMonth / 30,
			RemainingMonth: remaining,
			RequestsToday:  requests,
			FailuresToday:  failures,
		})
	}
}

// UsageBreakdownHandler serves GET /v1/usage/breakdown?days=N for usage
// charts, capped at 90 days.
func UsageBreakdownHandler(database *sql.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		ident := GetIdentity(c)

		days := 7
		if v := c.Query("days"); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil || n < 1 || n > 90 {
				return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "days must be between 1 and 90"})
			}
			days = n
		}

		breakdown, err := db.TenantUsageBreakdown(c.Context(), database, ident.Tenant.ID, days)
		if err != nil {
			log.Printf("Failed to read tenant usage breakdown: %v", err)
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "usage unavailable"})
		}
		if breakdown == nil {
			breakdown = []models.DailyUsage{}
		}

		return c.JSON(fiber.Map{
			"tenant_id": ident.Tenant.ID,
			"days":      days,
			"breakdown": breakdown,
		})
	}
}
