package adapter

import (
	"context"
	"encoding/base64"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/dreygur/shipsync/internal/core/config"
	"github.com/dreygur/shipsync/internal/core/httpclient"
	"github.com/dreygur/shipsync/internal/core/logger"
	"github.com/dreygur/shipsync/internal/features/orders/domain"
	"github.com/dreygur/shipsync/internal/features/orders/ports"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// metaScanPages caps how many order pages FindOrderByMeta walks before
// giving up; webhook resolution normally hits the shipment index first.
const metaScanPages = 5

// WooCommerceGateway implements the OrderGateway interface using the
// WooCommerce REST API.
type WooCommerceGateway struct {
	// client is the HTTP client used for API requests.
	client *http.Client
	// config holds the WooCommerce connection details.
	config config.WooCommerceConfig
}

// NewWooCommerceGateway creates a new instance of WooCommerceGateway.
func NewWooCommerceGateway(cfg config.WooCommerceConfig) *WooCommerceGateway {
	return &WooCommerceGateway{
		client: httpclient.NewClient(httpclient.DefaultTimeout),
		config: cfg,
	}
}

// authHeader builds the Basic Auth header value from the consumer key pair.
func (g *WooCommerceGateway) authHeader() string {
	authVal := make([]byte, 0, len(g.config.ConsumerKey)+len(g.config.ConsumerSecret)+1)
	authVal = fmt.Appendf(authVal, "%s:%s", g.config.ConsumerKey, g.config.ConsumerSecret)
	return "Basic " + base64.StdEncoding.EncodeToString(authVal)
}

func (g *WooCommerceGateway) headers() map[string]string {
	return map[string]string{"Authorization": g.authHeader()}
}

// GetOrder fetches an order from WooCommerce and maps it to the domain entity.
func (g *WooCommerceGateway) GetOrder(ctx context.Context, orderID string) (*domain.Order, error) {
	endpoint := fmt.Sprintf("%s/wp-json/wc/v3/orders/%s", g.config.URL, orderID)

	resp, err := httpclient.DoJSON(ctx, g.client, http.MethodGet, endpoint, nil, g.headers())
	if err != nil {
		return nil, fmt.Errorf("failed to fetch order %s: %w", orderID, err)
	}

	if resp.StatusCode == http.StatusNotFound {
		return nil, fmt.Errorf("%w: %s", ports.ErrOrderNotFound, orderID)
	}
	if !resp.OK() {
		return nil, fmt.Errorf("woocommerce API returned status: %d", resp.StatusCode)
	}

	var wcOrder woocommerceOrder
	if err := resp.Decode(&wcOrder); err != nil {
		return nil, err
	}

	return mapToDomain(wcOrder), nil
}

// FindOrderByMeta scans recent orders for one carrying the metadata pair.
// WooCommerce has no native meta filter on the orders collection, so this
// walks the newest pages; callers resolve through the shipment index first.
func (g *WooCommerceGateway) FindOrderByMeta(ctx context.Context, key, value string) (*domain.Order, error) {
	for page := 1; page <= metaScanPages; page++ {
		endpoint := fmt.Sprintf("%s/wp-json/wc/v3/orders?per_page=100&page=%d&orderby=date&order=desc",
			g.config.URL, page)

		resp, err := httpclient.DoJSON(ctx, g.client, http.MethodGet, endpoint, nil, g.headers())
		if err != nil {
			return nil, fmt.Errorf("failed to list orders: %w", err)
		}
		if !resp.OK() {
			return nil, fmt.Errorf("woocommerce API returned status: %d", resp.StatusCode)
		}

		var wcOrders []woocommerceOrder
		if err := resp.Decode(&wcOrders); err != nil {
			return nil, err
		}

		for _, wcOrder := range wcOrders {
			for _, meta := range wcOrder.MetaData {
				if meta.Key != key {
					continue
				}
				if val, ok := meta.Value.(string); ok && val == value {
					order := mapToDomain(wcOrder)
					return order, nil
				}
			}
		}

		if len(wcOrders) < 100 {
			break
		}
	}

	return nil, fmt.Errorf("%w: meta %s=%s", ports.ErrOrderNotFound, key, value)
}

// UpdateMeta sets metadata keys on an order via a partial order update.
func (g *WooCommerceGateway) UpdateMeta(ctx context.Context, orderID string, meta map[string]string) error {
	if len(meta) == 0 {
		return nil
	}

	items := make([]wcMetaData, 0, len(meta))
	for k, v := range meta {
		items = append(items, wcMetaData{Key: k, Value: v})
	}

	endpoint := fmt.Sprintf("%s/wp-json/wc/v3/orders/%s", g.config.URL, orderID)
	body := map[string]interface{}{"meta_data": items}

	resp, err := httpclient.DoJSON(ctx, g.client, http.MethodPut, endpoint, body, g.headers())
	if err != nil {
		return fmt.Errorf("failed to update order meta: %w", err)
	}
	if !resp.OK() {
		return fmt.Errorf("woocommerce API returned status: %d", resp.StatusCode)
	}
	return nil
}

// AppendNote appends a private note to the order.
func (g *WooCommerceGateway) AppendNote(ctx context.Context, orderID, note string) error {
	endpoint := fmt.Sprintf("%s/wp-json/wc/v3/orders/%s/notes", g.config.URL, orderID)
	body := map[string]interface{}{"note": note, "customer_note": false}

	resp, err := httpclient.DoJSON(ctx, g.client, http.MethodPost, endpoint, body, g.headers())
	if err != nil {
		return fmt.Errorf("failed to append order note: %w", err)
	}
	if !resp.OK() {
		return fmt.Errorf("woocommerce API returned status: %d", resp.StatusCode)
	}
	return nil
}

// SetStatus transitions the host order status.
func (g *WooCommerceGateway) SetStatus(ctx context.Context, orderID, status, note string) error {
	endpoint := fmt.Sprintf("%s/wp-json/wc/v3/orders/%s", g.config.URL, orderID)
	body := map[string]interface{}{"status": status}

	resp, err := httpclient.DoJSON(ctx, g.client, http.MethodPut, endpoint, body, g.headers())
	if err != nil {
		return fmt.Errorf("failed to set order status: %w", err)
	}
	if !resp.OK() {
		return fmt.Errorf("woocommerce API returned status: %d", resp.StatusCode)
	}

	if note != "" {
		if err := g.AppendNote(ctx, orderID, note); err != nil {
			logger.Get().Warn("Status note append failed",
				zap.String("order_id", orderID),
				zap.Error(err),
			)
		}
	}
	return nil
}

// HealthCheck verifies that the WooCommerce API is reachable and credentials are valid.
func (g *WooCommerceGateway) HealthCheck(ctx context.Context) error {
	endpoint := fmt.Sprintf("%s/wp-json/wc/v3/orders?per_page=1", g.config.URL)

	resp, err := httpclient.DoJSON(ctx, g.client, http.MethodGet, endpoint, nil, g.headers())
	if err != nil {
		return fmt.Errorf("health check request failed: %w", err)
	}
	if !resp.OK() {
		return fmt.Errorf("health check failed with status: %d", resp.StatusCode)
	}
	return nil
}

// mapToDomain converts a raw WooCommerce order response into a domain Order.
func mapToDomain(wcOrder woocommerceOrder) *domain.Order {
	meta := make(map[string]string, len(wcOrder.MetaData))
	for _, m := range wcOrder.MetaData {
		if val, ok := m.Value.(string); ok {
			meta[m.Key] = val
		}
	}

	cod := decimal.Zero
	if wcOrder.Total != "" {
		if parsed, err := decimal.NewFromString(wcOrder.Total); err == nil {
			cod = parsed
		}
	}
	// prepaid orders collect nothing on delivery
	if !strings.EqualFold(wcOrder.PaymentMethod, "cod") && wcOrder.PaymentMethod != "" {
		cod = decimal.Zero
	}

	var weight float64
	for _, item := range wcOrder.LineItems {
		if w, err := strconv.ParseFloat(item.Weight, 64); err == nil {
			weight += w * float64(item.Quantity)
		}
	}

	items := make([]domain.OrderItem, 0, len(wcOrder.LineItems))
	for _, item := range wcOrder.LineItems {
		items = append(items, domain.OrderItem{
			Name:     item.Name,
			SKU:      item.Sku,
			Quantity: item.Quantity,
		})
	}

	number := wcOrder.Number
	if number == "" {
		number = strconv.Itoa(wcOrder.ID)
	}

	phone := wcOrder.Billing.Phone
	if wcOrder.Shipping.Phone != "" {
		phone = wcOrder.Shipping.Phone
	}

	address := wcOrder.Shipping.Address1
	firstName := wcOrder.Shipping.FirstName
	lastName := wcOrder.Shipping.LastName
	city := wcOrder.Shipping.City
	state := wcOrder.Shipping.State
	if address == "" {
		address = wcOrder.Billing.Address1
		firstName = wcOrder.Billing.FirstName
		lastName = wcOrder.Billing.LastName
		city = wcOrder.Billing.City
		state = wcOrder.Billing.State
	}

	return &domain.Order{
		ID:        strconv.Itoa(wcOrder.ID),
		Number:    number,
		Status:    wcOrder.Status,
		FirstName: firstName,
		LastName:  lastName,
		Phone:     phone,
		Address:   address,
		City:      city,
		State:     state,
		CODAmount: cod,
		WeightKg:  weight,
		Items:     items,
		Meta:      meta,
		CreatedAt: time.Time(wcOrder.DateCreated),
	}
}

// internal structs for mapping

// woocommerceOrder represents the JSON structure of an order from WooCommerce API.
type woocommerceOrder struct {
	// ID is the unique order ID.
	ID int `json:"id"`
	// Number is the merchant-facing order number.
	Number string `json:"number"`
	// Status is the order status (e.g., pending, processing, completed).
	Status string `json:"status"`
	// Total is the order total as a decimal string.
	Total string `json:"total"`
	// PaymentMethod is the payment method id (e.g., cod, bacs).
	PaymentMethod string `json:"payment_method"`
	// DateCreated is the timestamp when the order was created.
	DateCreated wcTime `json:"date_created"`
	// Billing holds the billing address details.
	Billing wcAddress `json:"billing"`
	// Shipping holds the shipping address details.
	Shipping wcAddress `json:"shipping"`
	// LineItems contains the products ordered.
	LineItems []wcLineItem `json:"line_items"`
	// MetaData contains extra fields, including shipment records.
	MetaData []wcMetaData `json:"meta_data"`
}

// wcMetaData represents a key-value pair in WooCommerce metadata.
type wcMetaData struct {
	// Key is the metadata key name.
	Key string `json:"key"`
	// Value is the metadata value, which can be of various types.
	Value interface{} `json:"value"`
}

// wcAddress holds billing or shipping address information.
type wcAddress struct {
	// FirstName is the recipient's first name.
	FirstName string `json:"first_name"`
	// LastName is the recipient's last name.
	LastName string `json:"last_name"`
	// Address1 is the primary address line.
	Address1 string `json:"address_1"`
	// City is the address city.
	City string `json:"city"`
	// State is the state, province or district.
	State string `json:"state"`
	// Phone is the contact number, when present on the address.
	Phone string `json:"phone"`
}

// wcLineItem represents a product in the WooCommerce order.
type wcLineItem struct {
	// ID is the unique identifier for the line item.
	ID int `json:"id"`
	// Name is the product name.
	Name string `json:"name"`
	// Sku is the product SKU.
	Sku string `json:"sku"`
	// Quantity is the number of units ordered.
	Quantity int `json:"quantity"`
	// Weight is the per-unit weight as a decimal string.
	Weight string `json:"weight"`
}

// wcTime is a custom helper struct to handle WooCommerce's date format.
type wcTime time.Time

// UnmarshalJSON parses the custom date format used by WooCommerce.
func (t *wcTime) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(b), "\"")
	// WooCommerce usually returns ISO8601 "2018-12-19T14:48:25"
	if s == "null" {
		*t = wcTime(time.Time{})
		return nil
	}
	parsed, err := time.Parse("2006-01-02T15:04:05", s)
	if err != nil {
		// Try with timezone just in case
		parsed, err = time.Parse(time.RFC3339, s)
	}
	if err != nil {
		logger.Get().Warn("Failed to parse date", zap.String("date", s), zap.Error(err))
		return nil // Return zero time
	}
	*t = wcTime(parsed)
	return nil
}
