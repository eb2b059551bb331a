package adapter

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/dreygur/shipsync/internal/core/config"
	"github.com/dreygur/shipsync/internal/core/httpclient"
	"github.com/dreygur/shipsync/internal/core/logger"
	"github.com/dreygur/shipsync/internal/features/couriers/domain"
	"github.com/dreygur/shipsync/internal/features/couriers/ports"
	orderdomain "github.com/dreygur/shipsync/internal/features/orders/domain"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// SteadfastID is the registry identifier for the Steadfast adapter.
const SteadfastID = "steadfast"

// SteadfastAdapter integrates the Steadfast courier API.
// Authentication is a static Api-Key/Secret-Key header pair.
type SteadfastAdapter struct {
	cfg    config.SteadfastConfig
	client *http.Client
	logger *zap.Logger
}

// NewSteadfastAdapter creates a SteadfastAdapter. A nil client selects the
// default direct-API transport; tests inject their own.
func NewSteadfastAdapter(cfg config.SteadfastConfig, client *http.Client) *SteadfastAdapter {
	if client == nil {
		client = httpclient.NewClient(httpclient.DefaultTimeout)
	}
	return &SteadfastAdapter{
		cfg:    cfg,
		client: client,
		logger: logger.Named(SteadfastID),
	}
}

// ID returns the registry identifier.
func (a *SteadfastAdapter) ID() string { return SteadfastID }

// Name returns the display name.
func (a *SteadfastAdapter) Name() string { return "Steadfast Courier" }

// Enabled reports whether the provider is configured active.
func (a *SteadfastAdapter) Enabled() bool {
	return a.cfg.Enabled && a.cfg.APIKey != "" && a.cfg.SecretKey != ""
}

func (a *SteadfastAdapter) headers() map[string]string {
	return map[string]string{
		"Api-Key":    a.cfg.APIKey,
		"Secret-Key": a.cfg.SecretKey,
	}
}

// steadfastConsignment is the consignment object in Steadfast responses.
type steadfastConsignment struct {
	ConsignmentID json.Number `json:"consignment_id"`
	Invoice       string      `json:"invoice"`
	TrackingCode  string      `json:"tracking_code"`
	Status        string      `json:"status"`
}

// steadfastEnvelope is the common Steadfast response wrapper.
type steadfastEnvelope struct {
	Status         int                    `json:"status"`
	Message        string                 `json:"message"`
	Consignment    *steadfastConsignment  `json:"consignment"`
	DeliveryStatus string                 `json:"delivery_status"`
	CurrentBalance json.Number            `json:"current_balance"`
	Data           []steadfastConsignment `json:"data"`
	Errors         map[string][]string    `json:"errors"`
}

// errorMessage extracts the provider's own error text when present.
func (e *steadfastEnvelope) errorMessage() string {
	if e.Message != "" {
		return e.Message
	}
	for _, msgs := range e.Errors {
		if len(msgs) > 0 {
			return msgs[0]
		}
	}
	return ""
}

// ValidateCredentials probes the balance endpoint.
func (a *SteadfastAdapter) ValidateCredentials(ctx context.Context) domain.StatusResult {
	balance := a.Balance(ctx)
	if !balance.Success {
		return domain.StatusResult{Success: false, Message: balance.Message}
	}
	return domain.StatusResult{Success: true, Message: "credentials valid"}
}

// CreateShipment creates one consignment via POST /create_order.
func (a *SteadfastAdapter) CreateShipment(ctx context.Context, order *orderdomain.Order, params ports.CreateParams) domain.ShipmentResult {
	body := map[string]interface{}{
		"invoice":           order.Number,
		"recipient_name":    order.RecipientName(),
		"recipient_phone":   order.Phone,
		"recipient_address": steadfastAddress(order),
		"cod_amount":        order.CODAmount.InexactFloat64(),
		"note":              params.Note,
		"item_description":  order.ItemSummary(),
	}

	resp, err := httpclient.DoJSON(ctx, a.client, http.MethodPost, a.cfg.BaseURL+"/create_order", body, a.headers())
	if err != nil {
		return domain.ShipmentResult{Success: false, Message: err.Error()}
	}

	var envelope steadfastEnvelope
	if err := resp.Decode(&envelope); err != nil {
		return domain.ShipmentResult{Success: false, Message: "invalid response"}
	}

	if !resp.OK() || envelope.Status != http.StatusOK || envelope.Consignment == nil {
		message := envelope.errorMessage()
		if message == "" {
			message = fmt.Sprintf("API error (status %d)", resp.StatusCode)
		}
		return domain.ShipmentResult{Success: false, Message: message}
	}

	status, known := steadfastStatuses.translate(envelope.Consignment.Status)
	if !known {
		a.logger.Warn("Unknown Steadfast status on create",
			zap.String("raw_status", envelope.Consignment.Status),
		)
	}

	return domain.ShipmentResult{
		Success:       true,
		Message:       envelope.Message,
		ConsignmentID: envelope.Consignment.ConsignmentID.String(),
		TrackingCode:  envelope.Consignment.TrackingCode,
		Status:        status,
	}
}

// CreateBulkShipments submits the batch via POST /create_order/bulk-order.
// Steadfast reports per-item outcomes keyed by invoice.
func (a *SteadfastAdapter) CreateBulkShipments(ctx context.Context, orders []*orderdomain.Order, params ports.CreateParams) (domain.BulkResult, bool) {
	payload := make([]map[string]interface{}, 0, len(orders))
	for _, order := range orders {
		payload = append(payload, map[string]interface{}{
			"invoice":           order.Number,
			"recipient_name":    order.RecipientName(),
			"recipient_phone":   order.Phone,
			"recipient_address": steadfastAddress(order),
			"cod_amount":        order.CODAmount.InexactFloat64(),
			"note":              params.Note,
		})
	}

	resp, err := httpclient.DoJSON(ctx, a.client, http.MethodPost, a.cfg.BaseURL+"/create_order/bulk-order",
		map[string]interface{}{"data": payload}, a.headers())
	if err != nil {
		return domain.BulkResult{Success: false, Message: err.Error(), Mode: domain.BulkPerItem}, true
	}

	var envelope steadfastEnvelope
	if err := resp.Decode(&envelope); err != nil {
		return domain.BulkResult{Success: false, Message: "invalid response", Mode: domain.BulkPerItem}, true
	}

	if !resp.OK() || envelope.Status != http.StatusOK {
		message := envelope.errorMessage()
		if message == "" {
			message = fmt.Sprintf("API error (status %d)", resp.StatusCode)
		}
		return domain.BulkResult{Success: false, Message: message, Mode: domain.BulkPerItem}, true
	}

	byInvoice := make(map[string]steadfastConsignment, len(envelope.Data))
	for _, item := range envelope.Data {
		byInvoice[item.Invoice] = item
	}

	result := domain.BulkResult{Success: true, Mode: domain.BulkPerItem}
	for _, order := range orders {
		item, ok := byInvoice[order.Number]
		if !ok || item.ConsignmentID.String() == "" || item.ConsignmentID.String() == "0" {
			result.Failed++
			result.Items = append(result.Items, domain.BulkItem{
				OrderID: order.ID,
				Result:  domain.ShipmentResult{Success: false, Message: "consignment not created"},
			})
			continue
		}

		status, known := steadfastStatuses.translate(item.Status)
		if !known {
			a.logger.Warn("Unknown Steadfast status in bulk response",
				zap.String("raw_status", item.Status),
				zap.String("invoice", item.Invoice),
			)
		}

		result.Succeeded++
		result.Items = append(result.Items, domain.BulkItem{
			OrderID: order.ID,
			Result: domain.ShipmentResult{
				Success:       true,
				ConsignmentID: item.ConsignmentID.String(),
				TrackingCode:  item.TrackingCode,
				Status:        status,
			},
		})
	}

	return result, true
}

// DeliveryStatus queries one of the status_by_* endpoints.
func (a *SteadfastAdapter) DeliveryStatus(ctx context.Context, identifier string, idType domain.IdentifierType) (domain.StatusResult, error) {
	var endpoint string
	switch idType {
	case domain.IdentifierConsignmentID:
		endpoint = a.cfg.BaseURL + "/status_by_cid/" + identifier
	case domain.IdentifierInvoice:
		endpoint = a.cfg.BaseURL + "/status_by_invoice/" + identifier
	case domain.IdentifierTrackingCode:
		endpoint = a.cfg.BaseURL + "/status_by_trackingcode/" + identifier
	default:
		return domain.StatusResult{}, ports.ErrUnsupportedIdentifier
	}

	resp, err := httpclient.DoJSON(ctx, a.client, http.MethodGet, endpoint, nil, a.headers())
	if err != nil {
		return domain.StatusResult{Success: false, Message: err.Error()}, nil
	}

	var envelope steadfastEnvelope
	if err := resp.Decode(&envelope); err != nil {
		return domain.StatusResult{Success: false, Message: "invalid response"}, nil
	}

	if !resp.OK() || envelope.Status != http.StatusOK {
		message := envelope.errorMessage()
		if message == "" {
			message = fmt.Sprintf("API error (status %d)", resp.StatusCode)
		}
		return domain.StatusResult{Success: false, Message: message}, nil
	}

	status, known := steadfastStatuses.translate(envelope.DeliveryStatus)
	if !known {
		a.logger.Warn("Unknown Steadfast delivery status",
			zap.String("raw_status", envelope.DeliveryStatus),
		)
	}

	return domain.StatusResult{
		Success:   true,
		Status:    status,
		RawStatus: envelope.DeliveryStatus,
	}, nil
}

// Balance queries GET /get_balance.
func (a *SteadfastAdapter) Balance(ctx context.Context) domain.BalanceResult {
	resp, err := httpclient.DoJSON(ctx, a.client, http.MethodGet, a.cfg.BaseURL+"/get_balance", nil, a.headers())
	if err != nil {
		return domain.BalanceResult{Success: false, Message: err.Error()}
	}

	var envelope steadfastEnvelope
	if err := resp.Decode(&envelope); err != nil {
		return domain.BalanceResult{Success: false, Message: "invalid response"}
	}

	if !resp.OK() || envelope.Status != http.StatusOK {
		message := envelope.errorMessage()
		if message == "" {
			message = fmt.Sprintf("API error (status %d)", resp.StatusCode)
		}
		return domain.BalanceResult{Success: false, Message: message}
	}

	balance, err := decimal.NewFromString(envelope.CurrentBalance.String())
	if err != nil {
		balance = decimal.Zero
	}

	return domain.BalanceResult{Success: true, Balance: balance}
}

// steadfastWebhook is the flat callback payload Steadfast posts.
type steadfastWebhook struct {
	NotificationType string          `json:"notification_type"`
	ConsignmentID    json.Number     `json:"consignment_id"`
	Invoice          string          `json:"invoice"`
	TrackingCode     string          `json:"tracking_code"`
	Status           string          `json:"status"`
	DeliveryCharge   decimal.Decimal `json:"delivery_charge"`
	CODAmount        decimal.Decimal `json:"cod_amount"`
}

// ParseWebhook interprets a Steadfast delivery_status callback.
func (a *SteadfastAdapter) ParseWebhook(payload []byte) (*domain.WebhookEvent, error) {
	var hook steadfastWebhook
	if err := json.Unmarshal(payload, &hook); err != nil {
		return nil, fmt.Errorf("%w: %v", ports.ErrInvalidWebhook, err)
	}
	if hook.ConsignmentID.String() == "" && hook.Invoice == "" {
		return nil, fmt.Errorf("%w: no consignment_id or invoice", ports.ErrInvalidWebhook)
	}

	status, known := steadfastStatuses.translate(hook.Status)
	if !known {
		a.logger.Warn("Unknown Steadfast webhook status",
			zap.String("raw_status", hook.Status),
			zap.String("consignment_id", hook.ConsignmentID.String()),
		)
	}

	return &domain.WebhookEvent{
		ProviderID:      SteadfastID,
		MerchantOrderID: hook.Invoice,
		ConsignmentID:   hook.ConsignmentID.String(),
		TrackingCode:    hook.TrackingCode,
		RawStatus:       hook.Status,
		Status:          status,
		DeliveryFee:     hook.DeliveryCharge,
		CODAmount:       hook.CODAmount,
	}, nil
}

// TrackingURL builds the public Steadfast tracking page URL.
func (a *SteadfastAdapter) TrackingURL(trackingCode, consignmentID string) string {
	if trackingCode != "" {
		return "https://steadfast.com.bd/t/" + trackingCode
	}
	if consignmentID != "" {
		return "https://steadfast.com.bd/t/" + consignmentID
	}
	return ""
}

// SettingsFields describes the Steadfast configuration knobs.
func (a *SteadfastAdapter) SettingsFields() domain.ConfigSchema {
	return domain.ConfigSchema{
		ProviderID: SteadfastID,
		Fields: []domain.SettingsField{
			{Key: "STEADFAST_ENABLED", Label: "Enable Steadfast", Type: domain.FieldToggle},
			{Key: "STEADFAST_API_KEY", Label: "API Key", Type: domain.FieldSecret, Required: true},
			{Key: "STEADFAST_SECRET_KEY", Label: "Secret Key", Type: domain.FieldSecret, Required: true},
			{Key: "STEADFAST_BASE_URL", Label: "API Base URL", Type: domain.FieldText,
				Help: "Override only for sandbox testing."},
		},
	}
}

// steadfastAddress joins the address parts Steadfast wants in one field.
func steadfastAddress(order *orderdomain.Order) string {
	address := order.Address
	if order.City != "" {
		address += ", " + order.City
	}
	if order.State != "" {
		address += ", " + order.State
	}
	return address
}
