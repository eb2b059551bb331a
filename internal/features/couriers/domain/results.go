package domain

import "github.com/shopspring/decimal"

// ShipmentResult is the outcome of a single shipment creation.
// Expected failures (duplicates, provider rejections, transport errors) are
// reported through Success/Message, never as Go errors.
type ShipmentResult struct {
	// Success reports whether the shipment was created.
	Success bool `json:"success"`
	// Message carries the provider's own error text when available,
	// else a generic fallback.
	Message string `json:"message,omitempty"`
	// ConsignmentID is the provider-issued shipment id on success.
	ConsignmentID string `json:"consignment_id,omitempty"`
	// TrackingCode is the human-facing code, when the provider issues one.
	TrackingCode string `json:"tracking_code,omitempty"`
	// Status is the initial normalized status reported by the provider.
	Status NormalizedStatus `json:"status,omitempty"`
	// DeliveryFee is the provider-reported charge, when present.
	DeliveryFee decimal.Decimal `json:"delivery_fee"`
}

// BulkMode distinguishes providers that report per-item outcomes from
// providers whose bulk endpoint only acknowledges the batch.
type BulkMode string

const (
	// BulkPerItem means Items holds one entry per submitted order.
	BulkPerItem BulkMode = "per_item"
	// BulkAggregate means the provider reported batch-level success only.
	BulkAggregate BulkMode = "aggregate"
)

// BulkItem is one order's outcome inside a per-item bulk result.
type BulkItem struct {
	// OrderID is the host order the entry belongs to.
	OrderID string `json:"order_id"`
	// Result is the per-order creation outcome.
	Result ShipmentResult `json:"result"`
}

// BulkResult is the outcome of a bulk shipment creation.
type BulkResult struct {
	// Success reports whether the batch was accepted.
	Success bool `json:"success"`
	// Message is set on batch-level failure.
	Message string `json:"message,omitempty"`
	// BatchID identifies the batch in audit notes and logs.
	BatchID string `json:"batch_id,omitempty"`
	// Mode tells callers how to read the result.
	Mode BulkMode `json:"mode"`
	// Succeeded counts created shipments (per-item mode only).
	Succeeded int `json:"succeeded"`
	// Failed counts rejected orders (per-item mode only).
	Failed int `json:"failed"`
	// Skipped counts orders ignored before any provider call
	// (already shipped, invalid, or beyond the batch cap).
	Skipped int `json:"skipped"`
	// Items holds per-order outcomes when Mode is per_item.
	Items []BulkItem `json:"items,omitempty"`
}

// StatusResult is the outcome of a delivery status query.
type StatusResult struct {
	// Success reports whether a status could be produced.
	Success bool `json:"success"`
	// Message explains failures or degraded (cached) answers.
	Message string `json:"message,omitempty"`
	// Status is the normalized shipment status.
	Status NormalizedStatus `json:"status,omitempty"`
	// RawStatus is the untranslated provider status string.
	RawStatus string `json:"raw_status,omitempty"`
	// Cached is true when the value came from the shipment index
	// instead of a live provider call.
	Cached bool `json:"cached,omitempty"`
}

// BalanceResult is the outcome of an account balance query.
// Providers without a balance endpoint return Success=false with an
// explanatory message; callers must treat that as unsupported, not failed.
type BalanceResult struct {
	// Success reports whether a balance was retrieved.
	Success bool `json:"success"`
	// Message explains failures or "not available" cases.
	Message string `json:"message,omitempty"`
	// Balance is the current account balance.
	Balance decimal.Decimal `json:"balance"`
}

// WebhookEvent is the provider-agnostic view of one inbound callback,
// produced by an adapter's webhook parser. Resolution and application
// happen in the courier service.
type WebhookEvent struct {
	// ProviderID is the courier that sent the callback.
	ProviderID string `json:"provider_id"`
	// MerchantOrderID is the host order id when the payload names one.
	MerchantOrderID string `json:"merchant_order_id,omitempty"`
	// ConsignmentID is the provider shipment id when present.
	ConsignmentID string `json:"consignment_id,omitempty"`
	// TrackingCode is the human-facing code when present.
	TrackingCode string `json:"tracking_code,omitempty"`
	// RawStatus is the untranslated status or event name from the payload.
	RawStatus string `json:"raw_status"`
	// Status is the translated normalized status.
	Status NormalizedStatus `json:"status"`
	// DeliveryFee is the charge reported in the payload, when present.
	DeliveryFee decimal.Decimal `json:"delivery_fee"`
	// CODAmount is the collected amount reported in the payload, when present.
	CODAmount decimal.Decimal `json:"cod_amount"`
}

// WebhookResult is the outcome of processing one inbound webhook.
type WebhookResult struct {
	// Success is true when the event was applied to an order.
	Success bool `json:"success"`
	// Message describes the outcome ("applied", "order not found", ...).
	Message string `json:"message"`
	// OrderID is the resolved host order, when resolution succeeded.
	OrderID string `json:"order_id,omitempty"`
	// Status is the normalized status that was applied.
	Status NormalizedStatus `json:"status,omitempty"`
}
