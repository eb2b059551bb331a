package adapter

import "github.com/dreygur/shipsync/internal/features/couriers/domain"

// steadfastStatuses is the Steadfast delivery_status vocabulary. The
// *_approval_pending variants are statuses awaiting admin confirmation on
// the Steadfast side; they already describe the physical outcome.
var steadfastStatuses = statusTable{
	entries: map[string]domain.NormalizedStatus{
		"in_review":                          domain.StatusPending,
		"pending":                            domain.StatusPending,
		"hold":                               domain.StatusOnHold,
		"delivered":                          domain.StatusDelivered,
		"delivered_approval_pending":         domain.StatusDelivered,
		"partial_delivered":                  domain.StatusPartialDelivery,
		"partial_delivered_approval_pending": domain.StatusPartialDelivery,
		"cancelled":                          domain.StatusCancelled,
		"cancelled_approval_pending":         domain.StatusCancelled,
		"unknown":                            domain.StatusUnknown,
		"unknown_approval_pending":           domain.StatusUnknown,
	},
	fallback: domain.StatusPending,
}
