package ports

import (
	"context"
	"errors"

	"github.com/dreygur/shipsync/internal/features/orders/domain"
)

// ErrOrderNotFound is returned when the host platform has no such order.
var ErrOrderNotFound = errors.New("order not found")

// OrderGateway is the host platform collaborator interface.
// This is a Secondary Port (Driven Port); the courier core depends on
// nothing else from the host.
type OrderGateway interface {
	// GetOrder retrieves an order by its host platform id.
	GetOrder(ctx context.Context, orderID string) (*domain.Order, error)

	// FindOrderByMeta locates the order carrying the given metadata
	// key/value pair. Used to resolve webhook payloads that only carry a
	// provider shipment id. Returns ErrOrderNotFound when no order matches.
	FindOrderByMeta(ctx context.Context, key, value string) (*domain.Order, error)

	// UpdateMeta sets the given metadata keys on an order.
	// Existing keys are overwritten; other keys are untouched.
	UpdateMeta(ctx context.Context, orderID string, meta map[string]string) error

	// AppendNote appends a private audit note to an order.
	AppendNote(ctx context.Context, orderID, note string) error

	// SetStatus transitions the host order status, attaching a note.
	SetStatus(ctx context.Context, orderID, status, note string) error

	// HealthCheck verifies the host platform is reachable and the
	// credentials are valid.
	HealthCheck(ctx context.Context) error
}
