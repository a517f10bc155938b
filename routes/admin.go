package routes

import (
	"context"
	"database/sql"
	"encoding/json"
	"log"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/like-mike/tenant-ai-gateway/gateway"
	"github.com/like-mike/tenant-ai-gateway/gateway/provider"
	"github.com/like-mike/tenant-ai-gateway/shared/crypto"
	"github.com/like-mike/tenant-ai-gateway/shared/db"
	"github.com/like-mike/tenant-ai-gateway/shared/models"
)

// UpdateAISettingsHandler serves PUT /admin/tenants/:id/ai-settings.
// Settings are validated, encrypted, persisted, and the tenant's cached
// provider client is invalidated so the change takes effect immediately.
func UpdateAISettingsHandler(database *sql.DB, box *crypto.Box, cache *gateway.ClientCache) fiber.Handler {
	return func(c *fiber.Ctx) error {
		tenantID := c.Params("id")

		if _, err := db.GetTenantByID(c.Context(), database, tenantID); err != nil {
			if err == sql.ErrNoRows {
				return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "tenant not found"})
			}
			log.Printf("Failed to load tenant %s: %v", tenantID, err)
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "tenant lookup failed"})
		}

		var req models.UpdateAISettingsRequest
		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
		}

		switch req.Provider {
		case models.ProviderSystemDefault:
			if err := db.SetTenantSystemDefault(c.Context(), database, tenantID); err != nil {
				log.Printf("Failed to reset tenant %s to system default: %v", tenantID, err)
				return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "update failed"})
			}

		case models.ProviderAzureOpenAI:
			if err := provider.ValidateAzureSettings(req.Azure); err != nil {
				return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{"error": err.Error()})
			}
			settings := models.AzureOpenAISettings{
				Endpoint:       strings.TrimSpace(req.Azure.Endpoint),
				APIKey:         strings.TrimSpace(req.Azure.APIKey),
				APIVersion:     req.Azure.APIVersion,
				DeploymentName: strings.TrimSpace(req.Azure.DeploymentName),
			}
			if settings.APIVersion == "" {
				settings.APIVersion = "2024-02-01"
			}
			if err := persistSettings(c.Context(), database, box, tenantID, models.ProviderAzureOpenAI, settings); err != nil {
				log.Printf("Failed to persist settings for tenant %s: %v", tenantID, err)
				return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "update failed"})
			}

		case models.ProviderOpenAI:
			if req.OpenAI == nil {
				return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{"error": "openai settings are required"})
			}
			if err := provider.ValidateOpenAIKey(req.OpenAI.APIKey); err != nil {
				return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{"error": err.Error()})
			}
			if !provider.IsAllowedOpenAIModel(req.OpenAI.Model) {
				return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{
					"error": "unsupported model, valid models: " + strings.Join(provider.AllowedOpenAIModels, ", "),
				})
			}
			settings := models.OpenAISettings{
				APIKey: strings.TrimSpace(req.OpenAI.APIKey),
				Model:  strings.TrimSpace(req.OpenAI.Model),
			}
			if err := persistSettings(c.Context(), database, box, tenantID, models.ProviderOpenAI, settings); err != nil {
				log.Printf("Failed to persist settings for tenant %s: %v", tenantID, err)
				return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "update failed"})
			}

		default:
			return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{"error": "unsupported provider: " + req.Provider})
		}

		cache.Invalidate(tenantID)
		log.Printf("AI settings updated for tenant %s (provider=%s)", tenantID, req.Provider)

		return c.JSON(fiber.Map{"message": "AI settings updated", "provider": req.Provider})
	}
}

func persistSettings(ctx context.Context, database *sql.DB, box *crypto.Box, tenantID, providerName string, settings interface{}) error {
	raw, err := json.Marshal(settings)
	if err != nil {
		return err
	}

	blob, err := box.Encrypt(string(raw))
	if err != nil {
		return err
	}

	return db.UpdateTenantAISettings(ctx, database, tenantID, providerName, blob)
}

// CreateAPIKeyHandler serves POST /admin/api-keys. The full key appears in
// the response exactly once.
func CreateAPIKeyHandler(database *sql.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req struct {
			TenantID string `json:"tenant_id"`
			UserID   string `json:"user_id"`
			Name     string `json:"name"`
		}
		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
		}
		if req.TenantID == "" || req.UserID == "" || req.Name == "" {
			return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{"error": "tenant_id, user_id and name are required"})
		}

		fullKey, id, err := db.CreateAPIKey(c.Context(), database, req.TenantID, req.UserID, req.Name)
		if err != nil {
			log.Printf("Failed to create API key: %v", err)
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "key creation failed"})
		}

		return c.Status(fiber.StatusCreated).JSON(fiber.Map{
			"id":      id,
			"key":     fullKey,
			"message": "store this key now, it will not be shown again",
		})
	}
}
