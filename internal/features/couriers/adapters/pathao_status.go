package adapter

import "github.com/dreygur/shipsync/internal/features/couriers/domain"

// pathaoStatuses covers both vocabularies Pathao uses: webhook event paths
// ("order.delivered") and the order_status values the info endpoint
// returns ("Delivered", "At the Sorting HUB"). Both fold to the same
// lower_snake keys except the event-path dot, kept verbatim.
var pathaoStatuses = statusTable{
	entries: map[string]domain.NormalizedStatus{
		// webhook event paths
		"order.created":                   domain.StatusPending,
		"order.updated":                   domain.StatusPending,
		"order.pickup_requested":          domain.StatusPending,
		"order.assigned_for_pickup":       domain.StatusPending,
		"order.picked":                    domain.StatusPicked,
		"order.pickup_failed":             domain.StatusOnHold,
		"order.pickup_cancelled":          domain.StatusCancelled,
		"order.at_the_sorting_hub":        domain.StatusInTransit,
		"order.in_transit":                domain.StatusInTransit,
		"order.received_at_last_mile_hub": domain.StatusInTransit,
		"order.assigned_for_delivery":     domain.StatusInTransit,
		"order.delivered":                 domain.StatusDelivered,
		"order.partial_delivery":          domain.StatusPartialDelivery,
		"order.returned":                  domain.StatusReturned,
		"order.delivery_failed":           domain.StatusOnHold,
		"order.on_hold":                   domain.StatusOnHold,
		"order.paid":                      domain.StatusDelivered,
		"order.exchanged":                 domain.StatusReturned,

		// order_status values from the info endpoint
		"pending":                   domain.StatusPending,
		"pickup_requested":          domain.StatusPending,
		"assigned_for_pickup":       domain.StatusPending,
		"picked":                    domain.StatusPicked,
		"pickup_failed":             domain.StatusOnHold,
		"pickup_cancelled":          domain.StatusCancelled,
		"at_the_sorting_hub":        domain.StatusInTransit,
		"in_transit":                domain.StatusInTransit,
		"received_at_last_mile_hub": domain.StatusInTransit,
		"assigned_for_delivery":     domain.StatusInTransit,
		"delivered":                 domain.StatusDelivered,
		"partial_delivery":          domain.StatusPartialDelivery,
		"return":                    domain.StatusReturned,
		"returned":                  domain.StatusReturned,
		"delivery_failed":           domain.StatusOnHold,
		"on_hold":                   domain.StatusOnHold,
	},
	fallback: domain.StatusPending,
}
