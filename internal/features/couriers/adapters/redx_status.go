package adapter

import "github.com/dreygur/shipsync/internal/features/couriers/domain"

// redxStatuses is the RedX parcel status vocabulary. RedX reports
// kebab-case statuses; normalizeRaw folds them to the keys below.
var redxStatuses = statusTable{
	entries: map[string]domain.NormalizedStatus{
		"pickup_pending":       domain.StatusPending,
		"pickup_requested":     domain.StatusPending,
		"ready_for_delivery":   domain.StatusPending,
		"pickup_completed":     domain.StatusPicked,
		"received_at_sorting":  domain.StatusInTransit,
		"sorting_warehouse":    domain.StatusInTransit,
		"in_transit":           domain.StatusInTransit,
		"delivery_in_progress": domain.StatusInTransit,
		"agent_hold":           domain.StatusOnHold,
		"hold":                 domain.StatusOnHold,
		"agent_returning":      domain.StatusReturned,
		"returned":             domain.StatusReturned,
		"delivered":            domain.StatusDelivered,
		"cancelled":            domain.StatusCancelled,
	},
	fallback: domain.StatusPending,
}
