package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Order is the narrow view of a host platform order the courier core needs
// to build provider payloads and reconcile status updates.
type Order struct {
	// ID is the host platform order id.
	ID string `json:"order_id"`
	// Number is the merchant-facing order/invoice number.
	Number string `json:"number"`
	// Status is the current host order status (e.g., processing, completed).
	Status string `json:"status"`
	// FirstName is the recipient's first name.
	FirstName string `json:"first_name"`
	// LastName is the recipient's last name.
	LastName string `json:"last_name"`
	// Phone is the recipient's contact number.
	Phone string `json:"phone"`
	// Address is the shipping street address.
	Address string `json:"address"`
	// City is the shipping city.
	City string `json:"city"`
	// State is the shipping state, zone or district.
	State string `json:"state"`
	// CODAmount is the amount the courier collects on delivery.
	CODAmount decimal.Decimal `json:"cod_amount"`
	// WeightKg is the total parcel weight in kilograms.
	WeightKg float64 `json:"weight_kg"`
	// Items are the ordered products, used for item summaries.
	Items []OrderItem `json:"items"`
	// Meta is the order-attached key/value metadata.
	Meta map[string]string `json:"meta"`
	// CreatedAt is when the order was placed.
	CreatedAt time.Time `json:"created_at"`
}

// OrderItem is one product line on an order.
type OrderItem struct {
	// Name is the product name.
	Name string `json:"name"`
	// SKU is the product SKU.
	SKU string `json:"sku"`
	// Quantity is the number of units ordered.
	Quantity int `json:"quantity"`
}

// RecipientName joins the recipient name parts.
func (o *Order) RecipientName() string {
	return strings.TrimSpace(o.FirstName + " " + o.LastName)
}

// ItemSummary builds a short "2x Mug, 1x Shirt" description for provider
// payloads that want a free-text item field.
func (o *Order) ItemSummary() string {
	if len(o.Items) == 0 {
		return "Order " + o.Number
	}

	parts := make([]string, 0, len(o.Items))
	for _, item := range o.Items {
		name := item.Name
		if name == "" {
			name = item.SKU
		}
		qty := item.Quantity
		if qty < 1 {
			qty = 1
		}
		parts = append(parts, fmt.Sprintf("%dx %s", qty, name))
	}
	return strings.Join(parts, ", ")
}

// Quantity sums the ordered units across items; providers that require a
// quantity field get at least 1.
func (o *Order) Quantity() int {
	total := 0
	for _, item := range o.Items {
		total += item.Quantity
	}
	if total < 1 {
		return 1
	}
	return total
}

// MetaValue returns the metadata value for key, or "" when absent.
func (o *Order) MetaValue(key string) string {
	if o.Meta == nil {
		return ""
	}
	return o.Meta[key]
}

// Shippable reports whether the order carries the minimum recipient fields
// a courier payload needs. Orders failing this are skipped in bulk batches.
func (o *Order) Shippable() bool {
	return o.RecipientName() != "" && o.Phone != "" && o.Address != ""
}
