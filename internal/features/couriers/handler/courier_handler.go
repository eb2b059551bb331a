package handler

import (
	"github.com/dreygur/shipsync/internal/features/couriers/domain"
	"github.com/dreygur/shipsync/internal/features/couriers/ports"
	"github.com/dreygur/shipsync/internal/features/couriers/service"

	"github.com/gofiber/fiber/v2"
)

func toCreateParams(note string) ports.CreateParams {
	return ports.CreateParams{Note: note}
}

// CourierHandler handles HTTP requests for courier operations.
type CourierHandler struct {
	couriers *service.CourierService
}

// NewCourierHandler creates a new CourierHandler.
func NewCourierHandler(couriers *service.CourierService) *CourierHandler {
	return &CourierHandler{couriers: couriers}
}

// ErrorResponse represents an error response with Ray ID.
type ErrorResponse struct {
	// Message is the error description.
	Message string `json:"message"`
	// RayID is the unique request identifier for tracing.
	RayID string `json:"ray_id,omitempty"`
}

func rayID(c *fiber.Ctx) string {
	if id, ok := c.Locals("requestid").(string); ok {
		return id
	}
	return ""
}

// CourierInfo is one registry entry in the listing response.
type CourierInfo struct {
	// ID is the registry identifier.
	ID string `json:"id"`
	// Name is the display name.
	Name string `json:"name"`
	// Enabled reports whether the provider is configured active.
	Enabled bool `json:"enabled"`
}

// ListCouriers godoc
// @Summary List registered couriers
// @Description Lists all couriers, or only the enabled ones with ?enabled=true
// @Tags couriers
// @Produce json
// @Param enabled query bool false "Only enabled couriers"
// @Success 200 {array} CourierInfo
// @Router /api/v1/couriers [get]
func (h *CourierHandler) ListCouriers(c *fiber.Ctx) error {
	couriers := h.couriers.Registry().All()
	if c.QueryBool("enabled") {
		couriers = h.couriers.Registry().Enabled()
	}

	out := make([]CourierInfo, 0, len(couriers))
	for _, courier := range couriers {
		out = append(out, CourierInfo{
			ID:      courier.ID(),
			Name:    courier.Name(),
			Enabled: courier.Enabled(),
		})
	}
	return c.JSON(out)
}

// GetSettingsFields godoc
// @Summary Get a courier's settings schema
// @Tags couriers
// @Produce json
// @Param courier path string true "Courier ID"
// @Success 200 {object} domain.ConfigSchema
// @Failure 404 {object} ErrorResponse
// @Router /api/v1/couriers/{courier}/settings [get]
func (h *CourierHandler) GetSettingsFields(c *fiber.Ctx) error {
	courier := h.couriers.Registry().Get(c.Params("courier"))
	if courier == nil {
		return c.Status(fiber.StatusNotFound).JSON(ErrorResponse{
			Message: "courier not found",
			RayID:   rayID(c),
		})
	}
	return c.JSON(courier.SettingsFields())
}

// GetTrackingURL godoc
// @Summary Build the public tracking URL for a shipment
// @Tags couriers
// @Produce json
// @Param courier path string true "Courier ID"
// @Param tracking_code query string false "Tracking code"
// @Param consignment_id query string false "Consignment ID"
// @Success 200 {object} map[string]string
// @Failure 404 {object} ErrorResponse
// @Router /api/v1/couriers/{courier}/tracking-url [get]
func (h *CourierHandler) GetTrackingURL(c *fiber.Ctx) error {
	courier := h.couriers.Registry().Get(c.Params("courier"))
	if courier == nil {
		return c.Status(fiber.StatusNotFound).JSON(ErrorResponse{
			Message: "courier not found",
			RayID:   rayID(c),
		})
	}

	url := courier.TrackingURL(c.Query("tracking_code"), c.Query("consignment_id"))
	return c.JSON(fiber.Map{"tracking_url": url})
}

// createShipmentRequest is the body for single shipment creation.
type createShipmentRequest struct {
	// OrderID is the host platform order to ship.
	OrderID string `json:"order_id"`
	// Note is an optional delivery instruction.
	Note string `json:"note"`
}

// CreateShipment godoc
// @Summary Create a shipment for an order
// @Tags shipments
// @Accept json
// @Produce json
// @Param courier path string true "Courier ID"
// @Param request body createShipmentRequest true "Order to ship"
// @Success 200 {object} domain.ShipmentResult
// @Failure 400 {object} ErrorResponse
// @Router /api/v1/couriers/{courier}/shipments [post]
func (h *CourierHandler) CreateShipment(c *fiber.Ctx) error {
	var req createShipmentRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{
			Message: "invalid request body",
			RayID:   rayID(c),
		})
	}
	if req.OrderID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{
			Message: "order_id is required",
			RayID:   rayID(c),
		})
	}

	result := h.couriers.CreateShipment(c.Context(), c.Params("courier"), req.OrderID,
		toCreateParams(req.Note))
	return c.JSON(result)
}

// createBulkRequest is the body for bulk shipment creation.
type createBulkRequest struct {
	// OrderIDs are the host platform orders to ship, capped at 500.
	OrderIDs []string `json:"order_ids"`
	// Note is an optional delivery instruction applied to every order.
	Note string `json:"note"`
}

// CreateBulkShipments godoc
// @Summary Create shipments for a batch of orders
// @Description Processes at most 500 orders; already-shipped and invalid orders are skipped.
// @Tags shipments
// @Accept json
// @Produce json
// @Param courier path string true "Courier ID"
// @Param request body createBulkRequest true "Orders to ship"
// @Success 200 {object} domain.BulkResult
// @Failure 400 {object} ErrorResponse
// @Router /api/v1/couriers/{courier}/shipments/bulk [post]
func (h *CourierHandler) CreateBulkShipments(c *fiber.Ctx) error {
	var req createBulkRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{
			Message: "invalid request body",
			RayID:   rayID(c),
		})
	}
	if len(req.OrderIDs) == 0 {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{
			Message: "order_ids is required",
			RayID:   rayID(c),
		})
	}

	result := h.couriers.CreateBulkShipments(c.Context(), c.Params("courier"), req.OrderIDs,
		toCreateParams(req.Note))
	return c.JSON(result)
}

// GetDeliveryStatus godoc
// @Summary Query the delivery status of a shipment
// @Tags shipments
// @Produce json
// @Param courier path string true "Courier ID"
// @Param type path string true "Identifier type" Enums(tracking_code, invoice, consignment_id, merchant_order_id)
// @Param identifier path string true "Identifier value"
// @Success 200 {object} domain.StatusResult
// @Failure 400 {object} ErrorResponse
// @Router /api/v1/couriers/{courier}/status/{type}/{identifier} [get]
func (h *CourierHandler) GetDeliveryStatus(c *fiber.Ctx) error {
	idType, ok := domain.ParseIdentifierType(c.Params("type"))
	if !ok {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{
			Message: "unknown identifier type",
			RayID:   rayID(c),
		})
	}

	result := h.couriers.DeliveryStatus(c.Context(), c.Params("courier"), c.Params("identifier"), idType)
	return c.JSON(result)
}

// GetBalance godoc
// @Summary Query the courier account balance
// @Description Providers without a balance endpoint respond success=false with an explanatory message.
// @Tags couriers
// @Produce json
// @Param courier path string true "Courier ID"
// @Success 200 {object} domain.BalanceResult
// @Router /api/v1/couriers/{courier}/balance [get]
func (h *CourierHandler) GetBalance(c *fiber.Ctx) error {
	return c.JSON(h.couriers.Balance(c.Context(), c.Params("courier")))
}

// ValidateCredentials godoc
// @Summary Validate the courier's stored credentials
// @Tags couriers
// @Produce json
// @Param courier path string true "Courier ID"
// @Success 200 {object} domain.StatusResult
// @Router /api/v1/couriers/{courier}/validate [post]
func (h *CourierHandler) ValidateCredentials(c *fiber.Ctx) error {
	return c.JSON(h.couriers.ValidateCredentials(c.Context(), c.Params("courier")))
}
