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

// RedxID is the registry identifier for the RedX adapter.
const RedxID = "redx"

// RedxAdapter integrates the RedX open API.
// Authentication is a static API-ACCESS-TOKEN header.
type RedxAdapter struct {
	cfg    config.RedxConfig
	client *http.Client
	logger *zap.Logger
}

// NewRedxAdapter creates a RedxAdapter. A nil client selects the default
// direct-API transport; tests inject their own.
func NewRedxAdapter(cfg config.RedxConfig, client *http.Client) *RedxAdapter {
	if client == nil {
		client = httpclient.NewClient(httpclient.DefaultTimeout)
	}
	return &RedxAdapter{
		cfg:    cfg,
		client: client,
		logger: logger.Named(RedxID),
	}
}

// ID returns the registry identifier.
func (a *RedxAdapter) ID() string { return RedxID }

// Name returns the display name.
func (a *RedxAdapter) Name() string { return "RedX Delivery" }

// Enabled reports whether the provider is configured active.
func (a *RedxAdapter) Enabled() bool {
	return a.cfg.Enabled && a.cfg.AccessToken != ""
}

func (a *RedxAdapter) headers() map[string]string {
	return map[string]string{"API-ACCESS-TOKEN": "Bearer " + a.cfg.AccessToken}
}

// redxError is the RedX error body shape.
type redxError struct {
	Message string `json:"message"`
	Error   struct {
		Message string `json:"message"`
	} `json:"error"`
}

func (e *redxError) errorMessage() string {
	if e.Message != "" {
		return e.Message
	}
	return e.Error.Message
}

func redxFailureMessage(resp *httpclient.Response) string {
	var body redxError
	if err := json.Unmarshal(resp.Body, &body); err == nil {
		if msg := body.errorMessage(); msg != "" {
			return msg
		}
	}
	return fmt.Sprintf("API error (status %d)", resp.StatusCode)
}

// ValidateCredentials probes the delivery areas endpoint, which is the
// cheapest authenticated RedX call.
func (a *RedxAdapter) ValidateCredentials(ctx context.Context) domain.StatusResult {
	resp, err := httpclient.DoJSON(ctx, a.client, http.MethodGet, a.cfg.BaseURL+"/areas", nil, a.headers())
	if err != nil {
		return domain.StatusResult{Success: false, Message: err.Error()}
	}
	if !resp.OK() {
		return domain.StatusResult{Success: false, Message: redxFailureMessage(resp)}
	}
	return domain.StatusResult{Success: true, Message: "credentials valid"}
}

// CreateShipment creates one parcel via POST /parcel.
func (a *RedxAdapter) CreateShipment(ctx context.Context, order *orderdomain.Order, params ports.CreateParams) domain.ShipmentResult {
	weightGrams := int(order.WeightKg * 1000)
	if weightGrams <= 0 {
		weightGrams = 500
	}

	body := map[string]interface{}{
		"customer_name":          order.RecipientName(),
		"customer_phone":         order.Phone,
		"customer_address":       order.Address,
		"delivery_area":          order.City,
		"delivery_area_id":       a.cfg.DeliveryAreaID,
		"merchant_invoice_id":    order.Number,
		"cash_collection_amount": order.CODAmount.String(),
		"parcel_weight":          weightGrams,
		"instruction":            params.Note,
		"value":                  order.CODAmount.String(),
	}

	resp, err := httpclient.DoJSON(ctx, a.client, http.MethodPost, a.cfg.BaseURL+"/parcel", body, a.headers())
	if err != nil {
		return domain.ShipmentResult{Success: false, Message: err.Error()}
	}
	if !resp.OK() {
		return domain.ShipmentResult{Success: false, Message: redxFailureMessage(resp)}
	}

	var created struct {
		TrackingID string `json:"tracking_id"`
	}
	if err := resp.Decode(&created); err != nil || created.TrackingID == "" {
		return domain.ShipmentResult{Success: false, Message: "invalid response"}
	}

	// RedX has a single identifier; the tracking id doubles as the
	// consignment id.
	return domain.ShipmentResult{
		Success:       true,
		ConsignmentID: created.TrackingID,
		TrackingCode:  created.TrackingID,
		Status:        domain.StatusPending,
	}
}

// CreateBulkShipments is unsupported by the RedX open API; the courier
// service falls back to sequential single creates.
func (a *RedxAdapter) CreateBulkShipments(ctx context.Context, orders []*orderdomain.Order, params ports.CreateParams) (domain.BulkResult, bool) {
	return domain.BulkResult{}, false
}

// DeliveryStatus queries GET /parcel/info/{tracking_id}.
// The tracking id is the only RedX-native lookup key; consignment id and
// tracking code are the same value.
func (a *RedxAdapter) DeliveryStatus(ctx context.Context, identifier string, idType domain.IdentifierType) (domain.StatusResult, error) {
	if idType != domain.IdentifierTrackingCode && idType != domain.IdentifierConsignmentID {
		return domain.StatusResult{}, ports.ErrUnsupportedIdentifier
	}

	resp, err := httpclient.DoJSON(ctx, a.client, http.MethodGet, a.cfg.BaseURL+"/parcel/info/"+identifier, nil, a.headers())
	if err != nil {
		return domain.StatusResult{Success: false, Message: err.Error()}, nil
	}
	if !resp.OK() {
		return domain.StatusResult{Success: false, Message: redxFailureMessage(resp)}, nil
	}

	var info struct {
		Parcel struct {
			TrackingID string `json:"tracking_id"`
			Status     string `json:"status"`
		} `json:"parcel"`
	}
	if err := resp.Decode(&info); err != nil {
		return domain.StatusResult{Success: false, Message: "invalid response"}, nil
	}

	status, known := redxStatuses.translate(info.Parcel.Status)
	if !known {
		a.logger.Warn("Unknown RedX parcel status",
			zap.String("raw_status", info.Parcel.Status),
			zap.String("tracking_id", identifier),
		)
	}

	return domain.StatusResult{
		Success:   true,
		Status:    status,
		RawStatus: info.Parcel.Status,
	}, nil
}

// Balance is not exposed by the RedX open API.
func (a *RedxAdapter) Balance(ctx context.Context) domain.BalanceResult {
	return domain.BalanceResult{
		Success: false,
		Message: "balance is not available for RedX Delivery",
	}
}

// redxWebhook is the callback payload RedX posts.
type redxWebhook struct {
	TrackingID        string          `json:"tracking_id"`
	MerchantInvoiceID string          `json:"merchant_invoice_id"`
	Status            string          `json:"status"`
	DeliveryCharge    decimal.Decimal `json:"delivery_charge"`
	CollectedAmount   decimal.Decimal `json:"collected_amount"`
}

// ParseWebhook interprets a RedX status callback.
func (a *RedxAdapter) ParseWebhook(payload []byte) (*domain.WebhookEvent, error) {
	var hook redxWebhook
	if err := json.Unmarshal(payload, &hook); err != nil {
		return nil, fmt.Errorf("%w: %v", ports.ErrInvalidWebhook, err)
	}
	if hook.TrackingID == "" {
		return nil, fmt.Errorf("%w: no tracking_id", ports.ErrInvalidWebhook)
	}

	status, known := redxStatuses.translate(hook.Status)
	if !known {
		a.logger.Warn("Unknown RedX webhook status",
			zap.String("raw_status", hook.Status),
			zap.String("tracking_id", hook.TrackingID),
		)
	}

	return &domain.WebhookEvent{
		ProviderID:      RedxID,
		MerchantOrderID: hook.MerchantInvoiceID,
		ConsignmentID:   hook.TrackingID,
		TrackingCode:    hook.TrackingID,
		RawStatus:       hook.Status,
		Status:          status,
		DeliveryFee:     hook.DeliveryCharge,
		CODAmount:       hook.CollectedAmount,
	}, nil
}

// TrackingURL builds the public RedX tracking page URL.
func (a *RedxAdapter) TrackingURL(trackingCode, consignmentID string) string {
	id := trackingCode
	if id == "" {
		id = consignmentID
	}
	if id == "" {
		return ""
	}
	return "https://redx.com.bd/track-parcel/?trackingId=" + id
}

// SettingsFields describes the RedX configuration knobs.
func (a *RedxAdapter) SettingsFields() domain.ConfigSchema {
	return domain.ConfigSchema{
		ProviderID: RedxID,
		Fields: []domain.SettingsField{
			{Key: "REDX_ENABLED", Label: "Enable RedX", Type: domain.FieldToggle},
			{Key: "REDX_ACCESS_TOKEN", Label: "API Access Token", Type: domain.FieldSecret, Required: true},
			{Key: "REDX_DELIVERY_AREA_ID", Label: "Default Delivery Area ID", Type: domain.FieldNumber,
				Help: "Used when an order has no resolvable delivery area."},
			{Key: "REDX_BASE_URL", Label: "API Base URL", Type: domain.FieldText,
				Help: "Override only for sandbox testing."},
		},
	}
}
