package routes

import (
	"database/sql"

	"github.com/gofiber/fiber/v2"

	"github.com/like-mike/tenant-ai-gateway/gateway"
	"github.com/like-mike/tenant-ai-gateway/shared/crypto"
)

// Deps bundles everything the route handlers need.
type Deps struct {
	DB      *sql.DB
	Service *gateway.Service
	Guard   *gateway.QuotaGuard
	Box     *crypto.Box
}

// RegisterRoutes attaches the authenticated API surface. Health and
// metrics are registered separately in main, outside the auth chain.
func RegisterRoutes(app *fiber.App, deps Deps) {
	api := app.Group("/v1", AuthMiddleware(deps.DB))
	api.Post("/chat/completions", CompletionsHandler(deps.Service, deps.Guard))
	api.Get("/models", ModelsHandler(deps.Service))
	api.Get("/usage", UsageHandler(deps.DB))
	api.Get("/usage/breakdown", UsageBreakdownHandler(deps.DB))

	admin := app.Group("/admin", AuthMiddleware(deps.DB), AdminOnly())
	admin.Put("/tenants/:id/ai-settings", UpdateAISettingsHandler(deps.DB, deps.Box, deps.Service.Cache()))
	admin.Post("/api-keys", CreateAPIKeyHandler(deps.DB))
}

// HealthHandler returns a simple health check.
func HealthHandler(c *fiber.Ctx) error {
	return c.SendString("ok")
}

// ModelsHandler serves GET /v1/models: the models visible to the caller's
// tenant.
func ModelsHandler(svc *gateway.Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		ident := GetIdentity(c)
		list, err := svc.AvailableModels(ident)
		if err != nil {
			return writeGatewayError(c, err)
		}
		return c.JSON(fiber.Map{"models": list})
	}
}
