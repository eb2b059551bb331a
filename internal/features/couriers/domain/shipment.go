package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// NormalizedStatus is the shared shipment status every provider vocabulary
// is translated into before driving host order transitions.
type NormalizedStatus string

const (
	// StatusPending indicates the shipment is created but not yet picked up.
	StatusPending NormalizedStatus = "pending"
	// StatusPicked indicates the courier has collected the parcel.
	StatusPicked NormalizedStatus = "picked"
	// StatusInTransit indicates the parcel is moving through the courier network.
	StatusInTransit NormalizedStatus = "in_transit"
	// StatusOnHold indicates the courier paused delivery (failed attempt, hold request).
	StatusOnHold NormalizedStatus = "on_hold"
	// StatusPartialDelivery indicates only part of the consignment was delivered.
	StatusPartialDelivery NormalizedStatus = "partial_delivery"
	// StatusDelivered indicates the parcel reached the recipient.
	StatusDelivered NormalizedStatus = "delivered"
	// StatusReturned indicates the parcel went back to the sender.
	StatusReturned NormalizedStatus = "returned"
	// StatusCancelled indicates the shipment was cancelled.
	StatusCancelled NormalizedStatus = "cancelled"
	// StatusUnknown indicates the provider reported a state it cannot classify itself.
	StatusUnknown NormalizedStatus = "unknown"
)

// Terminal reports whether the status closes the shipment lifecycle.
func (s NormalizedStatus) Terminal() bool {
	switch s {
	case StatusDelivered, StatusReturned, StatusCancelled:
		return true
	}
	return false
}

// HostOrderStatus maps a normalized shipment status to the host platform
// order status it should drive. Transitions are a function of the
// normalized status only; raw provider vocabulary never reaches the host.
func (s NormalizedStatus) HostOrderStatus() string {
	switch s {
	case StatusDelivered:
		return "completed"
	case StatusCancelled:
		return "cancelled"
	case StatusReturned:
		return "refunded"
	case StatusOnHold:
		return "on-hold"
	default:
		return "processing"
	}
}

// IdentifierType names the kind of key used to look up a shipment.
type IdentifierType string

const (
	// IdentifierTrackingCode is the provider's human-facing tracking code.
	IdentifierTrackingCode IdentifierType = "tracking_code"
	// IdentifierInvoice is the merchant invoice number sent at creation.
	IdentifierInvoice IdentifierType = "invoice"
	// IdentifierConsignmentID is the provider-issued shipment id.
	IdentifierConsignmentID IdentifierType = "consignment_id"
	// IdentifierMerchantOrderID is the host platform order id.
	IdentifierMerchantOrderID IdentifierType = "merchant_order_id"
)

// ParseIdentifierType validates a raw identifier type string.
func ParseIdentifierType(raw string) (IdentifierType, bool) {
	switch IdentifierType(raw) {
	case IdentifierTrackingCode, IdentifierInvoice, IdentifierConsignmentID, IdentifierMerchantOrderID:
		return IdentifierType(raw), true
	}
	return "", false
}

// ShipmentRecord is the courier state attached to one order, persisted as
// order metadata on the host platform and mirrored in the shipment index.
type ShipmentRecord struct {
	// ProviderID is the registered courier identifier.
	ProviderID string `json:"provider_id"`
	// ConsignmentID is the provider-issued shipment id; immutable once set.
	ConsignmentID string `json:"consignment_id"`
	// TrackingCode is the optional human-facing code; may arrive later.
	TrackingCode string `json:"tracking_code,omitempty"`
	// Status is the normalized shipment status.
	Status NormalizedStatus `json:"status"`
	// RawStatus is the last raw provider status, kept for audit.
	RawStatus string `json:"raw_status,omitempty"`
	// DeliveryFee is the provider-reported cost, when known.
	DeliveryFee decimal.Decimal `json:"delivery_fee"`
	// CreatedAt is set at shipment creation and never overwritten.
	CreatedAt time.Time `json:"created_at"`
}

// Live reports whether the record carries a usable consignment id.
// Empty and "0" are sentinels left behind by failed or reset creations.
func (r ShipmentRecord) Live() bool {
	return r.ConsignmentID != "" && r.ConsignmentID != "0"
}
