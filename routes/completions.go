package routes

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/gofiber/fiber/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/like-mike/tenant-ai-gateway/gateway"
	"github.com/like-mike/tenant-ai-gateway/shared/models"
)

// CompletionsHandler serves POST /v1/chat/completions. The quota guard
// runs before any provider work; its reason is surfaced verbatim.
func CompletionsHandler(svc *gateway.Service, guard *gateway.QuotaGuard) fiber.Handler {
	return func(c *fiber.Ctx) error {
		ident := GetIdentity(c)

		var req models.CompletionRequest
		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
		}

		allowed, reason := guard.Check(c.Context(), &ident.User, &ident.Tenant)
		if !allowed {
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{"error": reason})
		}

		if req.Model != "" && !svc.ValidateModelAccess(&ident.User, req.Model) {
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "model not available for this user"})
		}

		tracer := otel.GetTracerProvider().Tracer("gateway")
		ctx, span := tracer.Start(c.Context(), "invoke_provider")
		span.SetAttributes(
			attribute.String("tenant.id", ident.Tenant.ID),
			attribute.Bool("llm.stream", req.Stream),
		)
		defer span.End()

		if req.Stream {
			return streamCompletion(ctx, c, svc, ident, &req)
		}

		result, err := svc.Complete(ctx, ident, &req)
		if err != nil {
			return writeGatewayError(c, err)
		}
		return c.JSON(result)
	}
}

// streamCompletion relays gateway stream events as server-sent events.
// The frame sequence mirrors the event channel: content frames, then one
// completed or error frame.
func streamCompletion(ctx context.Context, c *fiber.Ctx, svc *gateway.Service, ident *models.Identity, req *models.CompletionRequest) error {
	events, err := svc.CompleteStream(ctx, ident, req)
	if err != nil {
		return writeGatewayError(c, err)
	}

	c.Set("Content-Type", "text/event-stream")
	c.Set("Cache-Control", "no-cache")
	c.Set("Connection", "keep-alive")

	c.Context().SetBodyStreamWriter(func(w *bufio.Writer) {
		for ev := range events {
			payload, err := json.Marshal(ev)
			if err != nil {
				continue
			}
			fmt.Fprintf(w, "data: %s\n\n", payload)
			if err := w.Flush(); err != nil {
				// Client went away; drain so the executor can finish
				// and write its ledger row.
				for range events {
				}
				return
			}
		}
	})
	return nil
}

func writeGatewayError(c *fiber.Ctx, err error) error {
	var gwErr *gateway.Error
	if errors.As(err, &gwErr) {
		return c.Status(gwErr.HTTPStatus()).JSON(fiber.Map{
			"error":     gwErr.Message,
			"kind":      string(gwErr.Kind),
			"retryable": gwErr.Retryable(),
		})
	}
	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal error"})
}
