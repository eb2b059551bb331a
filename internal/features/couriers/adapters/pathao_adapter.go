package adapter

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/dreygur/shipsync/internal/core/config"
	"github.com/dreygur/shipsync/internal/core/httpclient"
	"github.com/dreygur/shipsync/internal/core/logger"
	"github.com/dreygur/shipsync/internal/features/couriers/domain"
	"github.com/dreygur/shipsync/internal/features/couriers/ports"
	orderdomain "github.com/dreygur/shipsync/internal/features/orders/domain"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// PathaoID is the registry identifier for the Pathao adapter.
const PathaoID = "pathao"

// Pathao delivery_type/item_type constants from the merchant API.
const (
	pathaoDeliveryNormal = 48
	pathaoItemParcel     = 2
)

// tokenExpirySlack refreshes the bearer token slightly before the provider
// expires it, so an in-flight call never races the expiry.
const tokenExpirySlack = time.Minute

// PathaoAdapter integrates the Pathao merchant API.
// Authentication is an OAuth password grant; the bearer token is cached
// on the adapter and refreshed on demand.
type PathaoAdapter struct {
	cfg    config.PathaoConfig
	client *http.Client
	logger *zap.Logger

	mu          sync.Mutex
	accessToken string
	tokenExpiry time.Time
}

// NewPathaoAdapter creates a PathaoAdapter. A nil client selects the
// default direct-API transport; tests inject their own.
func NewPathaoAdapter(cfg config.PathaoConfig, client *http.Client) *PathaoAdapter {
	if client == nil {
		client = httpclient.NewClient(httpclient.DefaultTimeout)
	}
	return &PathaoAdapter{
		cfg:    cfg,
		client: client,
		logger: logger.Named(PathaoID),
	}
}

// ID returns the registry identifier.
func (a *PathaoAdapter) ID() string { return PathaoID }

// Name returns the display name.
func (a *PathaoAdapter) Name() string { return "Pathao Courier" }

// Enabled reports whether the provider is configured active.
func (a *PathaoAdapter) Enabled() bool {
	return a.cfg.Enabled && a.cfg.ClientID != "" && a.cfg.ClientSecret != ""
}

// pathaoEnvelope is the common Pathao response wrapper.
type pathaoEnvelope struct {
	Type    string              `json:"type"`
	Code    int                 `json:"code"`
	Message string              `json:"message"`
	Data    json.RawMessage     `json:"data"`
	Errors  map[string][]string `json:"errors"`
}

func (e *pathaoEnvelope) errorMessage() string {
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

// pathaoToken is the issue-token response body.
type pathaoToken struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int    `json:"expires_in"`
	TokenType   string `json:"token_type"`
}

// ensureToken returns a valid bearer token, fetching a new one when the
// cached token is missing or about to expire.
func (a *PathaoAdapter) ensureToken(ctx context.Context) (string, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.accessToken != "" && time.Now().Before(a.tokenExpiry.Add(-tokenExpirySlack)) {
		return a.accessToken, nil
	}

	body := map[string]interface{}{
		"client_id":     a.cfg.ClientID,
		"client_secret": a.cfg.ClientSecret,
		"username":      a.cfg.Username,
		"password":      a.cfg.Password,
		"grant_type":    "password",
	}

	resp, err := httpclient.DoJSON(ctx, a.client, http.MethodPost,
		a.cfg.BaseURL+"/aladdin/api/v1/issue-token", body, nil)
	if err != nil {
		return "", fmt.Errorf("token request failed: %w", err)
	}
	if !resp.OK() {
		return "", fmt.Errorf("token request returned status %d", resp.StatusCode)
	}

	var token pathaoToken
	if err := resp.Decode(&token); err != nil {
		return "", err
	}
	if token.AccessToken == "" {
		return "", fmt.Errorf("token response carried no access_token")
	}

	a.accessToken = token.AccessToken
	a.tokenExpiry = time.Now().Add(time.Duration(token.ExpiresIn) * time.Second)
	a.logger.Debug("Pathao token refreshed", zap.Time("expires_at", a.tokenExpiry))

	return a.accessToken, nil
}

// call performs an authenticated Pathao API round trip.
func (a *PathaoAdapter) call(ctx context.Context, method, path string, body interface{}) (*httpclient.Response, *pathaoEnvelope, error) {
	token, err := a.ensureToken(ctx)
	if err != nil {
		return nil, nil, err
	}

	resp, err := httpclient.DoJSON(ctx, a.client, method, a.cfg.BaseURL+path, body,
		map[string]string{"Authorization": "Bearer " + token})
	if err != nil {
		return nil, nil, err
	}

	var envelope pathaoEnvelope
	if err := resp.Decode(&envelope); err != nil {
		return resp, nil, err
	}
	return resp, &envelope, nil
}

// ValidateCredentials fetches a fresh bearer token.
func (a *PathaoAdapter) ValidateCredentials(ctx context.Context) domain.StatusResult {
	a.mu.Lock()
	a.accessToken = ""
	a.mu.Unlock()

	if _, err := a.ensureToken(ctx); err != nil {
		return domain.StatusResult{Success: false, Message: err.Error()}
	}
	return domain.StatusResult{Success: true, Message: "credentials valid"}
}

// pathaoOrderData is the order object inside create/info responses.
type pathaoOrderData struct {
	ConsignmentID   string          `json:"consignment_id"`
	MerchantOrderID string          `json:"merchant_order_id"`
	OrderStatus     string          `json:"order_status"`
	DeliveryFee     decimal.Decimal `json:"delivery_fee"`
}

func (a *PathaoAdapter) orderPayload(order *orderdomain.Order, params ports.CreateParams) map[string]interface{} {
	weight := order.WeightKg
	if weight <= 0 {
		weight = 0.5 // Pathao rejects zero weight
	}
	return map[string]interface{}{
		"store_id":            a.cfg.StoreID,
		"merchant_order_id":   order.ID,
		"recipient_name":      order.RecipientName(),
		"recipient_phone":     order.Phone,
		"recipient_address":   order.Address,
		"recipient_city":      order.City,
		"recipient_zone":      order.State,
		"delivery_type":       pathaoDeliveryNormal,
		"item_type":           pathaoItemParcel,
		"item_quantity":       order.Quantity(),
		"item_weight":         weight,
		"amount_to_collect":   order.CODAmount.InexactFloat64(),
		"item_description":    order.ItemSummary(),
		"special_instruction": params.Note,
	}
}

// CreateShipment creates one consignment via POST /aladdin/api/v1/orders.
func (a *PathaoAdapter) CreateShipment(ctx context.Context, order *orderdomain.Order, params ports.CreateParams) domain.ShipmentResult {
	resp, envelope, err := a.call(ctx, http.MethodPost, "/aladdin/api/v1/orders", a.orderPayload(order, params))
	if err != nil {
		return domain.ShipmentResult{Success: false, Message: err.Error()}
	}
	if envelope == nil {
		return domain.ShipmentResult{Success: false, Message: "invalid response"}
	}

	if !resp.OK() || envelope.Code != http.StatusOK {
		message := envelope.errorMessage()
		if message == "" {
			message = fmt.Sprintf("API error (status %d)", resp.StatusCode)
		}
		return domain.ShipmentResult{Success: false, Message: message}
	}

	var data pathaoOrderData
	if err := json.Unmarshal(envelope.Data, &data); err != nil || data.ConsignmentID == "" {
		return domain.ShipmentResult{Success: false, Message: "invalid response"}
	}

	status, known := pathaoStatuses.translate(data.OrderStatus)
	if !known {
		a.logger.Warn("Unknown Pathao order status on create",
			zap.String("raw_status", data.OrderStatus),
		)
	}

	return domain.ShipmentResult{
		Success:       true,
		Message:       envelope.Message,
		ConsignmentID: data.ConsignmentID,
		Status:        status,
		DeliveryFee:   data.DeliveryFee,
	}
}

// CreateBulkShipments submits the batch via POST /aladdin/api/v1/orders/bulk.
// Pathao's bulk endpoint acknowledges the batch without per-item results;
// success is reported purely on HTTP-level acceptance.
func (a *PathaoAdapter) CreateBulkShipments(ctx context.Context, orders []*orderdomain.Order, params ports.CreateParams) (domain.BulkResult, bool) {
	payload := make([]map[string]interface{}, 0, len(orders))
	for _, order := range orders {
		payload = append(payload, a.orderPayload(order, params))
	}

	resp, envelope, err := a.call(ctx, http.MethodPost, "/aladdin/api/v1/orders/bulk",
		map[string]interface{}{"orders": payload})
	if err != nil {
		return domain.BulkResult{Success: false, Message: err.Error(), Mode: domain.BulkAggregate}, true
	}
	if envelope == nil {
		return domain.BulkResult{Success: false, Message: "invalid response", Mode: domain.BulkAggregate}, true
	}

	if !resp.OK() || (envelope.Code != http.StatusOK && envelope.Code != http.StatusAccepted) {
		message := envelope.errorMessage()
		if message == "" {
			message = fmt.Sprintf("API error (status %d)", resp.StatusCode)
		}
		return domain.BulkResult{Success: false, Message: message, Mode: domain.BulkAggregate}, true
	}

	return domain.BulkResult{
		Success:   true,
		Message:   envelope.Message,
		Mode:      domain.BulkAggregate,
		Succeeded: len(orders),
	}, true
}

// DeliveryStatus queries GET /aladdin/api/v1/orders/{cid}/info.
// Only the consignment id is a Pathao-native lookup key.
func (a *PathaoAdapter) DeliveryStatus(ctx context.Context, identifier string, idType domain.IdentifierType) (domain.StatusResult, error) {
	if idType != domain.IdentifierConsignmentID {
		return domain.StatusResult{}, ports.ErrUnsupportedIdentifier
	}

	resp, envelope, err := a.call(ctx, http.MethodGet, "/aladdin/api/v1/orders/"+identifier+"/info", nil)
	if err != nil {
		return domain.StatusResult{Success: false, Message: err.Error()}, nil
	}
	if envelope == nil {
		return domain.StatusResult{Success: false, Message: "invalid response"}, nil
	}

	if !resp.OK() || envelope.Code != http.StatusOK {
		message := envelope.errorMessage()
		if message == "" {
			message = fmt.Sprintf("API error (status %d)", resp.StatusCode)
		}
		return domain.StatusResult{Success: false, Message: message}, nil
	}

	var data pathaoOrderData
	if err := json.Unmarshal(envelope.Data, &data); err != nil {
		return domain.StatusResult{Success: false, Message: "invalid response"}, nil
	}

	status, known := pathaoStatuses.translate(data.OrderStatus)
	if !known {
		a.logger.Warn("Unknown Pathao order status",
			zap.String("raw_status", data.OrderStatus),
		)
	}

	return domain.StatusResult{
		Success:   true,
		Status:    status,
		RawStatus: data.OrderStatus,
	}, nil
}

// Balance is not exposed by the Pathao merchant API.
func (a *PathaoAdapter) Balance(ctx context.Context) domain.BalanceResult {
	return domain.BalanceResult{
		Success: false,
		Message: "balance is not available for Pathao Courier",
	}
}

// pathaoWebhook is the event-path callback payload Pathao posts.
type pathaoWebhook struct {
	Event           string          `json:"event"`
	ConsignmentID   string          `json:"consignment_id"`
	MerchantOrderID string          `json:"merchant_order_id"`
	OrderStatus     string          `json:"order_status"`
	DeliveryFee     decimal.Decimal `json:"delivery_fee"`
	CollectedAmount decimal.Decimal `json:"collected_amount"`
}

// ParseWebhook interprets a Pathao event callback. The event path is the
// raw status; payloads without one fall back to order_status.
func (a *PathaoAdapter) ParseWebhook(payload []byte) (*domain.WebhookEvent, error) {
	var hook pathaoWebhook
	if err := json.Unmarshal(payload, &hook); err != nil {
		return nil, fmt.Errorf("%w: %v", ports.ErrInvalidWebhook, err)
	}

	raw := hook.Event
	if raw == "" {
		raw = hook.OrderStatus
	}
	if raw == "" || (hook.ConsignmentID == "" && hook.MerchantOrderID == "") {
		return nil, fmt.Errorf("%w: missing event or identifiers", ports.ErrInvalidWebhook)
	}

	status, known := pathaoStatuses.translate(raw)
	if !known {
		a.logger.Warn("Unknown Pathao webhook event",
			zap.String("event", raw),
			zap.String("consignment_id", hook.ConsignmentID),
		)
	}

	return &domain.WebhookEvent{
		ProviderID:      PathaoID,
		MerchantOrderID: hook.MerchantOrderID,
		ConsignmentID:   hook.ConsignmentID,
		RawStatus:       raw,
		Status:          status,
		DeliveryFee:     hook.DeliveryFee,
		CODAmount:       hook.CollectedAmount,
	}, nil
}

// TrackingURL builds the public Pathao tracking page URL. Pathao has no
// separate tracking code; the consignment id is the tracking key.
func (a *PathaoAdapter) TrackingURL(trackingCode, consignmentID string) string {
	id := consignmentID
	if id == "" {
		id = trackingCode
	}
	if id == "" {
		return ""
	}
	return "https://merchant.pathao.com/tracking?consignment_id=" + id
}

// SettingsFields describes the Pathao configuration knobs.
func (a *PathaoAdapter) SettingsFields() domain.ConfigSchema {
	return domain.ConfigSchema{
		ProviderID: PathaoID,
		Fields: []domain.SettingsField{
			{Key: "PATHAO_ENABLED", Label: "Enable Pathao", Type: domain.FieldToggle},
			{Key: "PATHAO_CLIENT_ID", Label: "Client ID", Type: domain.FieldText, Required: true},
			{Key: "PATHAO_CLIENT_SECRET", Label: "Client Secret", Type: domain.FieldSecret, Required: true},
			{Key: "PATHAO_USERNAME", Label: "Merchant Email", Type: domain.FieldText, Required: true},
			{Key: "PATHAO_PASSWORD", Label: "Merchant Password", Type: domain.FieldSecret, Required: true},
			{Key: "PATHAO_STORE_ID", Label: "Store ID", Type: domain.FieldNumber, Required: true},
			{Key: "PATHAO_WEBHOOK_SECRET", Label: "Webhook Secret", Type: domain.FieldSecret,
				Help: "Echoed back to Pathao on webhook responses."},
		},
	}
}
