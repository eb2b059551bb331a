package registry

import (
	"github.com/dreygur/shipsync/internal/features/couriers/ports"
)

// Registry holds the closed set of courier adapters, built once at process
// start. Registration order is fixed; there is no runtime plugin system.
type Registry struct {
	order []string
	byID  map[string]ports.Courier
}

// New builds a Registry from the given adapters, in order. Duplicate ids
// keep the first registration.
func New(couriers ...ports.Courier) *Registry {
	r := &Registry{
		byID: make(map[string]ports.Courier, len(couriers)),
	}
	for _, courier := range couriers {
		if _, exists := r.byID[courier.ID()]; exists {
			continue
		}
		r.order = append(r.order, courier.ID())
		r.byID[courier.ID()] = courier
	}
	return r
}

// All returns every registered courier in registration order.
func (r *Registry) All() []ports.Courier {
	out := make([]ports.Courier, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.byID[id])
	}
	return out
}

// Enabled returns the couriers whose configuration marks them active.
func (r *Registry) Enabled() []ports.Courier {
	out := make([]ports.Courier, 0, len(r.order))
	for _, id := range r.order {
		if courier := r.byID[id]; courier.Enabled() {
			out = append(out, courier)
		}
	}
	return out
}

// Get resolves a courier by id; nil when unknown.
func (r *Registry) Get(id string) ports.Courier {
	return r.byID[id]
}
