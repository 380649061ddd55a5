package api

import (
	"context"

	"github.com/gofiber/fiber/v2"

	"github.com/railquery/railquery_core/internal/engine"
)

// HealthChecker probes one dependency.
type HealthChecker func(ctx context.Context) error

// Handler exposes the conversation engine over HTTP.
type Handler struct {
	engine *engine.Engine
	checks map[string]HealthChecker
}

// NewHandler wires the engine and an optional set of named dependency
// checks for the health endpoint.
func NewHandler(e *engine.Engine, checks map[string]HealthChecker) *Handler {
	if checks == nil {
		checks = map[string]HealthChecker{}
	}
	return &Handler{engine: e, checks: checks}
}

// Register mounts the routes.
func (h *Handler) Register(app *fiber.App) {
	app.Get("/health", h.Health)
	app.Post("/v2/chat", h.Chat)
}

// ChatRequest is one conversation turn.
type ChatRequest struct {
	ConversationID string `json:"conversation_id"`
	Message        string `json:"message"`
}

// ChatResponse carries the engine's reply text.
type ChatResponse struct {
	Reply string `json:"reply"`
}

// Chat handles the /v2/chat endpoint. The engine recovers every
// domain error into reply text, so the handler only fails on bad
// input.
func (h *Handler) Chat(c *fiber.Ctx) error {
	var req ChatRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(400).JSON(fiber.Map{
			"error": "invalid request body",
		})
	}
	if req.ConversationID == "" {
		return c.Status(400).JSON(fiber.Map{
			"error": "missing required field: conversation_id",
		})
	}
	if req.Message == "" {
		return c.Status(400).JSON(fiber.Map{
			"error": "missing required field: message",
		})
	}

	reply := h.engine.HandleTurn(c.Context(), req.ConversationID, req.Message)
	return c.JSON(ChatResponse{Reply: reply})
}

// Health handles the /health endpoint, probing each configured
// dependency.
func (h *Handler) Health(c *fiber.Ctx) error {
	ctx := c.Context()

	status := "healthy"
	httpStatus := 200
	results := fiber.Map{}

	for name, check := range h.checks {
		if err := check(ctx); err != nil {
			results[name] = err.Error()
			status = "unhealthy"
			httpStatus = 503
			continue
		}
		results[name] = "ok"
	}

	return c.Status(httpStatus).JSON(fiber.Map{
		"status": status,
		"checks": results,
	})
}
