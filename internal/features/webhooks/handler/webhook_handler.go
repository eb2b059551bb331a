package handler

import (
	"encoding/json"

	"github.com/dreygur/shipsync/internal/core/logger"
	"github.com/dreygur/shipsync/internal/features/couriers/adapters"
	"github.com/dreygur/shipsync/internal/features/couriers/service"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// WebhookHandler dispatches inbound provider callbacks to the matching
// courier adapter through the courier service. The courier is selected by
// the URL path; each provider is configured with its own endpoint.
type WebhookHandler struct {
	couriers *service.CourierService
	// pathaoWebhookSecret is echoed back on Pathao callbacks when set,
	// per their webhook integration handshake.
	pathaoWebhookSecret string
	logger              *zap.Logger
}

// NewWebhookHandler creates a new WebhookHandler.
func NewWebhookHandler(couriers *service.CourierService, pathaoWebhookSecret string) *WebhookHandler {
	return &WebhookHandler{
		couriers:            couriers,
		pathaoWebhookSecret: pathaoWebhookSecret,
		logger:              logger.Named("webhooks"),
	}
}

// webhookResponse is the fixed acknowledgement body.
type webhookResponse struct {
	// Success reports whether the callback was applied to an order.
	Success bool `json:"success"`
	// Message describes the outcome.
	Message string `json:"message"`
}

// Handle godoc
// @Summary Receive a courier status callback
// @Description Applies the provider's status update to the matching order. Always responds 200 so providers do not retry on internal failures; only an undecodable body is a client error.
// @Tags webhooks
// @Accept json
// @Produce json
// @Param courier path string true "Courier ID"
// @Success 200 {object} webhookResponse
// @Failure 400 {object} webhookResponse
// @Failure 404 {object} webhookResponse
// @Router /webhooks/{courier} [post]
func (h *WebhookHandler) Handle(c *fiber.Ctx) error {
	courierID := c.Params("courier")

	if h.couriers.Registry().Get(courierID) == nil {
		return c.Status(fiber.StatusNotFound).JSON(webhookResponse{
			Success: false,
			Message: "unknown courier",
		})
	}

	if courierID == adapter.PathaoID && h.pathaoWebhookSecret != "" {
		c.Set("X-Pathao-Merchant-Webhook-Integration-Secret", h.pathaoWebhookSecret)
	}

	payload := c.Body()
	if !json.Valid(payload) {
		return c.Status(fiber.StatusBadRequest).JSON(webhookResponse{
			Success: false,
			Message: "body is not valid JSON",
		})
	}

	result := h.couriers.ProcessWebhook(c.Context(), courierID, payload)

	h.logger.Info("Webhook processed",
		zap.String("courier", courierID),
		zap.Bool("success", result.Success),
		zap.String("message", result.Message),
		zap.String("order_id", result.OrderID),
	)

	// 200 regardless of internal outcome; providers retry on their own
	// schedule only for transport-level failures
	return c.JSON(webhookResponse{
		Success: result.Success,
		Message: result.Message,
	})
}
