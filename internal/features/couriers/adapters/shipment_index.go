package adapter

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/dreygur/shipsync/internal/core/cache"
	"github.com/dreygur/shipsync/internal/features/couriers/domain"
)

// RedisShipmentIndex implements ports.ShipmentIndex on the cache port.
// It mirrors consignment → order bindings (no expiry) and the last known
// status per shipment so webhook resolution and degraded status queries
// avoid scanning the host platform.
type RedisShipmentIndex struct {
	cache cache.Cache
}

// NewRedisShipmentIndex creates a new RedisShipmentIndex.
func NewRedisShipmentIndex(c cache.Cache) *RedisShipmentIndex {
	return &RedisShipmentIndex{cache: c}
}

func consignmentKey(providerID, consignmentID string) string {
	return fmt.Sprintf("shipsync:cid:%s:%s", providerID, consignmentID)
}

func statusKey(providerID, orderID string) string {
	return fmt.Sprintf("shipsync:status:%s:%s", providerID, orderID)
}

// BindConsignment records consignment → order id for a provider.
func (r *RedisShipmentIndex) BindConsignment(ctx context.Context, providerID, consignmentID, orderID string) error {
	if err := r.cache.Set(ctx, consignmentKey(providerID, consignmentID), []byte(orderID), 0); err != nil {
		return fmt.Errorf("failed to bind consignment: %w", err)
	}
	return nil
}

// OrderIDByConsignment resolves a consignment id back to an order id.
func (r *RedisShipmentIndex) OrderIDByConsignment(ctx context.Context, providerID, consignmentID string) (string, error) {
	data, err := r.cache.Get(ctx, consignmentKey(providerID, consignmentID))
	if err != nil {
		if errors.Is(err, cache.ErrKeyNotFound) {
			return "", nil
		}
		return "", fmt.Errorf("failed to resolve consignment: %w", err)
	}
	return string(data), nil
}

// CacheStatus stores the last known status for an order's shipment.
func (r *RedisShipmentIndex) CacheStatus(ctx context.Context, providerID, orderID string, status domain.StatusResult) error {
	data, err := json.Marshal(status)
	if err != nil {
		return fmt.Errorf("failed to marshal status: %w", err)
	}
	if err := r.cache.Set(ctx, statusKey(providerID, orderID), data, 0); err != nil {
		return fmt.Errorf("failed to cache status: %w", err)
	}
	return nil
}

// CachedStatus returns the last cached status, or nil when none exists.
func (r *RedisShipmentIndex) CachedStatus(ctx context.Context, providerID, orderID string) (*domain.StatusResult, error) {
	data, err := r.cache.Get(ctx, statusKey(providerID, orderID))
	if err != nil {
		if errors.Is(err, cache.ErrKeyNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read cached status: %w", err)
	}

	var status domain.StatusResult
	if err := json.Unmarshal(data, &status); err != nil {
		return nil, fmt.Errorf("failed to unmarshal cached status: %w", err)
	}
	return &status, nil
}
