package ports

import (
	"context"
	"errors"

	courierdomain "github.com/dreygur/shipsync/internal/features/couriers/domain"
	orderdomain "github.com/dreygur/shipsync/internal/features/orders/domain"
)

var (
	// ErrInvalidWebhook is returned by ParseWebhook when the payload
	// cannot be interpreted as one of the provider's callbacks.
	ErrInvalidWebhook = errors.New("invalid webhook payload")
	// ErrUnsupportedIdentifier is returned by DeliveryStatus when the
	// provider has no live lookup endpoint for the identifier type.
	// The service degrades to the cached status in that case.
	ErrUnsupportedIdentifier = errors.New("identifier type not supported by provider")
)

// CreateParams carries per-call options for shipment creation.
type CreateParams struct {
	// Note is an optional delivery instruction passed to the courier.
	Note string
}

// Courier is the capability contract every provider adapter satisfies.
// Adapters are pure provider clients: payload building, wire calls, and
// status translation. Host-side persistence, the duplicate guard, and
// audit notes live in the courier service.
type Courier interface {
	// ID returns the registry identifier (e.g., "steadfast"). Fixed at construction.
	ID() string
	// Name returns the display name (e.g., "Steadfast Courier").
	Name() string
	// Enabled reports whether the stored configuration marks the provider active.
	Enabled() bool

	// ValidateCredentials performs a lightweight provider round trip
	// (token fetch, balance probe, or existence check) to confirm the
	// stored credentials are currently usable.
	ValidateCredentials(ctx context.Context) courierdomain.StatusResult

	// CreateShipment builds the provider payload from the order and
	// requests a consignment. The duplicate-shipment guard is the
	// caller's responsibility.
	CreateShipment(ctx context.Context, order *orderdomain.Order, params CreateParams) courierdomain.ShipmentResult

	// CreateBulkShipments submits the batch through the provider's bulk
	// endpoint when one exists. Adapters without a bulk endpoint return
	// (result, false) and the service falls back to sequential creates.
	CreateBulkShipments(ctx context.Context, orders []*orderdomain.Order, params CreateParams) (courierdomain.BulkResult, bool)

	// DeliveryStatus queries the live status for a provider-native
	// identifier. Non-native identifier types yield ErrUnsupportedIdentifier.
	DeliveryStatus(ctx context.Context, identifier string, idType courierdomain.IdentifierType) (courierdomain.StatusResult, error)

	// Balance queries the provider account balance. Providers without a
	// balance endpoint return Success=false with an explanatory message.
	Balance(ctx context.Context) courierdomain.BalanceResult

	// ParseWebhook interprets an inbound callback payload and translates
	// its status. It performs no I/O and no host mutation.
	ParseWebhook(payload []byte) (*courierdomain.WebhookEvent, error)

	// TrackingURL builds the public tracking page URL. Pure function;
	// returns "" when neither identifier is present.
	TrackingURL(trackingCode, consignmentID string) string

	// SettingsFields describes the provider's configuration knobs.
	SettingsFields() courierdomain.ConfigSchema
}

// ShipmentIndex mirrors shipment records outside the host platform so
// webhook payloads can be resolved without scanning orders, and so status
// queries can degrade gracefully when a provider has no lookup endpoint.
type ShipmentIndex interface {
	// BindConsignment records consignment → order id for a provider.
	BindConsignment(ctx context.Context, providerID, consignmentID, orderID string) error
	// OrderIDByConsignment resolves a consignment id back to an order id.
	// Returns "" without error when no binding exists.
	OrderIDByConsignment(ctx context.Context, providerID, consignmentID string) (string, error)
	// CacheStatus stores the last known status for an order's shipment.
	CacheStatus(ctx context.Context, providerID, orderID string, status courierdomain.StatusResult) error
	// CachedStatus returns the last cached status, or nil when none exists.
	CachedStatus(ctx context.Context, providerID, orderID string) (*courierdomain.StatusResult, error)
}
