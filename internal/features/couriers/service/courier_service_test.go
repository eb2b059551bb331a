package service

import (
	"context"
	"fmt"
	"strconv"
	"testing"

	"github.com/dreygur/shipsync/internal/features/couriers/domain"
	"github.com/dreygur/shipsync/internal/features/couriers/ports"
	"github.com/dreygur/shipsync/internal/features/couriers/registry"
	orderdomain "github.com/dreygur/shipsync/internal/features/orders/domain"
	orderports "github.com/dreygur/shipsync/internal/features/orders/ports"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockCourier is a configurable Courier implementation for service tests.
type mockCourier struct {
	id      string
	name    string
	enabled bool

	createCalls   int
	createResult  domain.ShipmentResult
	bulkResult    domain.BulkResult
	bulkSupported bool
	bulkCalls     int
	statusResult  domain.StatusResult
	statusErr     error
	webhookEvent  *domain.WebhookEvent
	webhookErr    error
}

func (m *mockCourier) ID() string    { return m.id }
func (m *mockCourier) Name() string  { return m.name }
func (m *mockCourier) Enabled() bool { return m.enabled }

func (m *mockCourier) ValidateCredentials(ctx context.Context) domain.StatusResult {
	return domain.StatusResult{Success: true, Message: "credentials valid"}
}

func (m *mockCourier) CreateShipment(ctx context.Context, order *orderdomain.Order, params ports.CreateParams) domain.ShipmentResult {
	m.createCalls++
	result := m.createResult
	if result.ConsignmentID == "" && result.Success {
		result.ConsignmentID = "CN-" + order.ID
	}
	return result
}

func (m *mockCourier) CreateBulkShipments(ctx context.Context, orders []*orderdomain.Order, params ports.CreateParams) (domain.BulkResult, bool) {
	m.bulkCalls++
	return m.bulkResult, m.bulkSupported
}

func (m *mockCourier) DeliveryStatus(ctx context.Context, identifier string, idType domain.IdentifierType) (domain.StatusResult, error) {
	if m.statusErr != nil {
		return domain.StatusResult{}, m.statusErr
	}
	return m.statusResult, nil
}

func (m *mockCourier) Balance(ctx context.Context) domain.BalanceResult {
	return domain.BalanceResult{Success: false, Message: "balance is not available for " + m.name}
}

func (m *mockCourier) ParseWebhook(payload []byte) (*domain.WebhookEvent, error) {
	if m.webhookErr != nil {
		return nil, m.webhookErr
	}
	return m.webhookEvent, nil
}

func (m *mockCourier) TrackingURL(trackingCode, consignmentID string) string {
	if trackingCode == "" && consignmentID == "" {
		return ""
	}
	return "https://example.test/track/" + trackingCode + consignmentID
}

func (m *mockCourier) SettingsFields() domain.ConfigSchema {
	return domain.ConfigSchema{ProviderID: m.id}
}

// mockOrderGateway is an in-memory OrderGateway.
type mockOrderGateway struct {
	orders      map[string]*orderdomain.Order
	notes       map[string][]string
	metaUpdates int
	statusCalls int
}

func newMockOrderGateway() *mockOrderGateway {
	return &mockOrderGateway{
		orders: make(map[string]*orderdomain.Order),
		notes:  make(map[string][]string),
	}
}

func (g *mockOrderGateway) add(order *orderdomain.Order) {
	if order.Meta == nil {
		order.Meta = make(map[string]string)
	}
	g.orders[order.ID] = order
}

func (g *mockOrderGateway) GetOrder(ctx context.Context, orderID string) (*orderdomain.Order, error) {
	order, ok := g.orders[orderID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", orderports.ErrOrderNotFound, orderID)
	}
	return order, nil
}

func (g *mockOrderGateway) FindOrderByMeta(ctx context.Context, key, value string) (*orderdomain.Order, error) {
	for _, order := range g.orders {
		if order.Meta[key] == value {
			return order, nil
		}
	}
	return nil, fmt.Errorf("%w: meta %s=%s", orderports.ErrOrderNotFound, key, value)
}

func (g *mockOrderGateway) UpdateMeta(ctx context.Context, orderID string, meta map[string]string) error {
	order, ok := g.orders[orderID]
	if !ok {
		return orderports.ErrOrderNotFound
	}
	g.metaUpdates++
	for k, v := range meta {
		order.Meta[k] = v
	}
	return nil
}

func (g *mockOrderGateway) AppendNote(ctx context.Context, orderID, note string) error {
	g.notes[orderID] = append(g.notes[orderID], note)
	return nil
}

func (g *mockOrderGateway) SetStatus(ctx context.Context, orderID, status, note string) error {
	order, ok := g.orders[orderID]
	if !ok {
		return orderports.ErrOrderNotFound
	}
	g.statusCalls++
	order.Status = status
	return nil
}

func (g *mockOrderGateway) HealthCheck(ctx context.Context) error { return nil }

// mockShipmentIndex is an in-memory ShipmentIndex.
type mockShipmentIndex struct {
	bindings map[string]string
	statuses map[string]domain.StatusResult
}

func newMockShipmentIndex() *mockShipmentIndex {
	return &mockShipmentIndex{
		bindings: make(map[string]string),
		statuses: make(map[string]domain.StatusResult),
	}
}

func (i *mockShipmentIndex) BindConsignment(ctx context.Context, providerID, consignmentID, orderID string) error {
	i.bindings[providerID+":"+consignmentID] = orderID
	return nil
}

func (i *mockShipmentIndex) OrderIDByConsignment(ctx context.Context, providerID, consignmentID string) (string, error) {
	return i.bindings[providerID+":"+consignmentID], nil
}

func (i *mockShipmentIndex) CacheStatus(ctx context.Context, providerID, orderID string, status domain.StatusResult) error {
	i.statuses[providerID+":"+orderID] = status
	return nil
}

func (i *mockShipmentIndex) CachedStatus(ctx context.Context, providerID, orderID string) (*domain.StatusResult, error) {
	status, ok := i.statuses[providerID+":"+orderID]
	if !ok {
		return nil, nil
	}
	return &status, nil
}

func shippableOrder(id string) *orderdomain.Order {
	return &orderdomain.Order{
		ID:        id,
		Number:    id,
		Status:    "processing",
		FirstName: "Rahim",
		LastName:  "Uddin",
		Phone:     "01711000000",
		Address:   "House 12, Road 5, Dhanmondi",
		City:      "Dhaka",
		CODAmount: decimal.NewFromInt(1500),
		Meta:      make(map[string]string),
	}
}

func newService(courier *mockCourier) (*CourierService, *mockOrderGateway, *mockShipmentIndex) {
	gateway := newMockOrderGateway()
	index := newMockShipmentIndex()
	svc := NewCourierService(registry.New(courier), gateway, index)
	return svc, gateway, index
}

// TestCreateShipment_Success verifies the happy path persists metadata and
// appends one audit note.
func TestCreateShipment_Success(t *testing.T) {
	courier := &mockCourier{
		id: "steadfast", name: "Steadfast Courier", enabled: true,
		createResult: domain.ShipmentResult{Success: true, ConsignmentID: "1424107", TrackingCode: "15BAEB8A"},
	}
	svc, gateway, index := newService(courier)
	gateway.add(shippableOrder("55"))

	result := svc.CreateShipment(context.Background(), "steadfast", "55", ports.CreateParams{})

	require.True(t, result.Success)
	assert.Equal(t, 1, courier.createCalls)
	assert.Equal(t, "1424107", gateway.orders["55"].Meta["_shipsync_steadfast_consignment_id"])
	assert.Equal(t, "15BAEB8A", gateway.orders["55"].Meta["_shipsync_steadfast_tracking_code"])
	assert.Len(t, gateway.notes["55"], 1)
	assert.Equal(t, "55", index.bindings["steadfast:1424107"])
}

// TestCreateShipment_DuplicateGuard verifies the second create fails fast
// without a second outbound call.
func TestCreateShipment_DuplicateGuard(t *testing.T) {
	courier := &mockCourier{
		id: "steadfast", name: "Steadfast Courier", enabled: true,
		createResult: domain.ShipmentResult{Success: true, ConsignmentID: "1424107"},
	}
	svc, gateway, _ := newService(courier)
	gateway.add(shippableOrder("55"))

	first := svc.CreateShipment(context.Background(), "steadfast", "55", ports.CreateParams{})
	second := svc.CreateShipment(context.Background(), "steadfast", "55", ports.CreateParams{})

	require.True(t, first.Success)
	assert.False(t, second.Success)
	assert.Contains(t, second.Message, "already has a shipment")
	assert.Equal(t, 1, courier.createCalls)
}

// TestCreateShipment_SentinelConsignmentIsNotLive verifies a "0" consignment
// id left behind by a reset does not trigger the duplicate guard.
func TestCreateShipment_SentinelConsignmentIsNotLive(t *testing.T) {
	courier := &mockCourier{
		id: "steadfast", name: "Steadfast Courier", enabled: true,
		createResult: domain.ShipmentResult{Success: true, ConsignmentID: "99"},
	}
	svc, gateway, _ := newService(courier)
	order := shippableOrder("55")
	order.Meta["_shipsync_steadfast_consignment_id"] = "0"
	gateway.add(order)

	result := svc.CreateShipment(context.Background(), "steadfast", "55", ports.CreateParams{})

	assert.True(t, result.Success)
	assert.Equal(t, 1, courier.createCalls)
}

// TestCreateShipment_DisabledCourier verifies disabled providers refuse work.
func TestCreateShipment_DisabledCourier(t *testing.T) {
	courier := &mockCourier{id: "redx", name: "RedX Delivery", enabled: false}
	svc, gateway, _ := newService(courier)
	gateway.add(shippableOrder("55"))

	result := svc.CreateShipment(context.Background(), "redx", "55", ports.CreateParams{})

	assert.False(t, result.Success)
	assert.Contains(t, result.Message, "not enabled")
	assert.Equal(t, 0, courier.createCalls)
}

// TestCreateShipment_UnknownCourier verifies unregistered ids fail cleanly.
func TestCreateShipment_UnknownCourier(t *testing.T) {
	svc, _, _ := newService(&mockCourier{id: "steadfast", enabled: true})

	result := svc.CreateShipment(context.Background(), "nosuch", "55", ports.CreateParams{})

	assert.False(t, result.Success)
	assert.Contains(t, result.Message, "courier not found")
}

// TestCreateBulkShipments_CapsAt500 verifies 501 orders process at most 500.
func TestCreateBulkShipments_CapsAt500(t *testing.T) {
	courier := &mockCourier{
		id: "redx", name: "RedX Delivery", enabled: true,
		createResult: domain.ShipmentResult{Success: true},
	}
	svc, gateway, _ := newService(courier)

	orderIDs := make([]string, 501)
	for i := range orderIDs {
		id := strconv.Itoa(i + 1)
		orderIDs[i] = id
		gateway.add(shippableOrder(id))
	}

	result := svc.CreateBulkShipments(context.Background(), "redx", orderIDs, ports.CreateParams{})

	require.True(t, result.Success)
	assert.Equal(t, BulkLimit, courier.createCalls)
	assert.Equal(t, BulkLimit, result.Succeeded)
	assert.Len(t, result.Items, BulkLimit)
}

// TestCreateBulkShipments_SkipsShippedAndInvalid verifies already-shipped
// and invalid orders are skipped silently, not counted as failures.
func TestCreateBulkShipments_SkipsShippedAndInvalid(t *testing.T) {
	courier := &mockCourier{
		id: "steadfast", name: "Steadfast Courier", enabled: true,
		createResult: domain.ShipmentResult{Success: true},
	}
	svc, gateway, _ := newService(courier)

	orderIDs := make([]string, 0, 10)
	for i := 1; i <= 10; i++ {
		id := strconv.Itoa(i)
		order := shippableOrder(id)
		switch i {
		case 3:
			order.Meta["_shipsync_steadfast_consignment_id"] = "111"
		case 7:
			order.Phone = "" // not shippable
		}
		gateway.add(order)
		orderIDs = append(orderIDs, id)
	}

	result := svc.CreateBulkShipments(context.Background(), "steadfast", orderIDs, ports.CreateParams{})

	require.True(t, result.Success)
	assert.Equal(t, 8, result.Succeeded)
	assert.Equal(t, 0, result.Failed)
	assert.Equal(t, 2, result.Skipped)
	assert.Equal(t, 8, courier.createCalls)

	// skipped orders remain untouched
	assert.Equal(t, "111", gateway.orders["3"].Meta["_shipsync_steadfast_consignment_id"])
	assert.Empty(t, gateway.orders["7"].Meta["_shipsync_steadfast_consignment_id"])
	assert.Empty(t, gateway.notes["7"])
}

// TestCreateBulkShipments_AggregateProvider verifies aggregate-only bulk
// endpoints report batch success without per-item persistence.
func TestCreateBulkShipments_AggregateProvider(t *testing.T) {
	courier := &mockCourier{
		id: "pathao", name: "Pathao Courier", enabled: true,
		bulkSupported: true,
		bulkResult:    domain.BulkResult{Success: true, Mode: domain.BulkAggregate, Succeeded: 2},
	}
	svc, gateway, _ := newService(courier)
	gateway.add(shippableOrder("1"))
	gateway.add(shippableOrder("2"))

	result := svc.CreateBulkShipments(context.Background(), "pathao", []string{"1", "2"}, ports.CreateParams{})

	require.True(t, result.Success)
	assert.Equal(t, domain.BulkAggregate, result.Mode)
	assert.Equal(t, 1, courier.bulkCalls)
	assert.Equal(t, 0, courier.createCalls)
	// submission note per order, no consignment metadata yet
	assert.Len(t, gateway.notes["1"], 1)
	assert.Empty(t, gateway.orders["1"].Meta["_shipsync_pathao_consignment_id"])
}

// TestProcessWebhook_Applied verifies the full received → applied flow:
// metadata written, exactly one audit note, exactly one host transition.
func TestProcessWebhook_Applied(t *testing.T) {
	courier := &mockCourier{
		id: "steadfast", name: "Steadfast Courier", enabled: true,
		webhookEvent: &domain.WebhookEvent{
			ProviderID:      "steadfast",
			MerchantOrderID: "55",
			ConsignmentID:   "1424107",
			RawStatus:       "delivered",
			Status:          domain.StatusDelivered,
		},
	}
	svc, gateway, _ := newService(courier)
	gateway.add(shippableOrder("55"))

	result := svc.ProcessWebhook(context.Background(), "steadfast", []byte(`{"status":"delivered"}`))

	require.True(t, result.Success)
	assert.Equal(t, "55", result.OrderID)
	assert.Equal(t, domain.StatusDelivered, result.Status)
	assert.Equal(t, "delivered", gateway.orders["55"].Meta["_shipsync_steadfast_status"])
	assert.Len(t, gateway.notes["55"], 1)
	assert.Equal(t, 1, gateway.statusCalls)
	assert.Equal(t, "completed", gateway.orders["55"].Status)
}

// TestProcessWebhook_OrderNotFound verifies unresolvable callbacks reject
// without any mutation.
func TestProcessWebhook_OrderNotFound(t *testing.T) {
	courier := &mockCourier{
		id: "steadfast", name: "Steadfast Courier", enabled: true,
		webhookEvent: &domain.WebhookEvent{
			ProviderID:      "steadfast",
			MerchantOrderID: "999999",
			RawStatus:       "delivered",
			Status:          domain.StatusDelivered,
		},
	}
	svc, gateway, _ := newService(courier)

	result := svc.ProcessWebhook(context.Background(), "steadfast", []byte(`{}`))

	assert.False(t, result.Success)
	assert.Equal(t, "order not found", result.Message)
	assert.Equal(t, 0, gateway.metaUpdates)
	assert.Equal(t, 0, gateway.statusCalls)
	assert.Empty(t, gateway.notes)
}

// TestProcessWebhook_ReplayIsIdempotentOnState verifies replaying the same
// payload reaches the same end state with a single host transition; audit
// notes accumulate per call.
func TestProcessWebhook_ReplayIsIdempotentOnState(t *testing.T) {
	courier := &mockCourier{
		id: "steadfast", name: "Steadfast Courier", enabled: true,
		webhookEvent: &domain.WebhookEvent{
			ProviderID:      "steadfast",
			MerchantOrderID: "55",
			ConsignmentID:   "1424107",
			RawStatus:       "delivered",
			Status:          domain.StatusDelivered,
		},
	}
	svc, gateway, _ := newService(courier)
	gateway.add(shippableOrder("55"))

	first := svc.ProcessWebhook(context.Background(), "steadfast", []byte(`{"status":"delivered"}`))
	second := svc.ProcessWebhook(context.Background(), "steadfast", []byte(`{"status":"delivered"}`))

	require.True(t, first.Success)
	require.True(t, second.Success)
	assert.Equal(t, "delivered", gateway.orders["55"].Meta["_shipsync_steadfast_status"])
	assert.Equal(t, 1, gateway.statusCalls)
	assert.Len(t, gateway.notes["55"], 2)
}

// TestProcessWebhook_ResolvesThroughIndex verifies consignment-only payloads
// resolve through the shipment index.
func TestProcessWebhook_ResolvesThroughIndex(t *testing.T) {
	courier := &mockCourier{
		id: "redx", name: "RedX Delivery", enabled: true,
		webhookEvent: &domain.WebhookEvent{
			ProviderID:    "redx",
			ConsignmentID: "21A326T8UHNIT",
			RawStatus:     "delivered",
			Status:        domain.StatusDelivered,
		},
	}
	svc, gateway, index := newService(courier)
	gateway.add(shippableOrder("77"))
	require.NoError(t, index.BindConsignment(context.Background(), "redx", "21A326T8UHNIT", "77"))

	result := svc.ProcessWebhook(context.Background(), "redx", []byte(`{}`))

	require.True(t, result.Success)
	assert.Equal(t, "77", result.OrderID)
}

// TestDeliveryStatus_MerchantOrderIDResolution verifies merchant order ids
// resolve to the stored consignment before the provider call.
func TestDeliveryStatus_MerchantOrderIDResolution(t *testing.T) {
	courier := &mockCourier{
		id: "pathao", name: "Pathao Courier", enabled: true,
		statusResult: domain.StatusResult{Success: true, Status: domain.StatusInTransit, RawStatus: "In_Transit"},
	}
	svc, gateway, index := newService(courier)
	order := shippableOrder("55")
	order.Meta["_shipsync_pathao_consignment_id"] = "DL1212XYZ"
	gateway.add(order)

	result := svc.DeliveryStatus(context.Background(), "pathao", "55", domain.IdentifierMerchantOrderID)

	require.True(t, result.Success)
	assert.Equal(t, domain.StatusInTransit, result.Status)

	cached, err := index.CachedStatus(context.Background(), "pathao", "55")
	require.NoError(t, err)
	require.NotNil(t, cached)
	assert.Equal(t, domain.StatusInTransit, cached.Status)
}

// TestDeliveryStatus_CachedFallback verifies providers without a lookup
// endpoint degrade to the cached status instead of failing.
func TestDeliveryStatus_CachedFallback(t *testing.T) {
	courier := &mockCourier{
		id: "redx", name: "RedX Delivery", enabled: true,
		statusErr: ports.ErrUnsupportedIdentifier,
	}
	svc, _, index := newService(courier)
	require.NoError(t, index.BindConsignment(context.Background(), "redx", "TRK1", "77"))
	require.NoError(t, index.CacheStatus(context.Background(), "redx", "77",
		domain.StatusResult{Success: true, Status: domain.StatusInTransit, RawStatus: "in-transit"}))

	result := svc.DeliveryStatus(context.Background(), "redx", "TRK1", domain.IdentifierConsignmentID)

	require.True(t, result.Success)
	assert.True(t, result.Cached)
	assert.Equal(t, domain.StatusInTransit, result.Status)
}

// TestDeliveryStatus_NoShipmentForOrder verifies a merchant order without a
// shipment fails with an explanatory message.
func TestDeliveryStatus_NoShipmentForOrder(t *testing.T) {
	courier := &mockCourier{id: "pathao", name: "Pathao Courier", enabled: true}
	svc, gateway, _ := newService(courier)
	gateway.add(shippableOrder("55"))

	result := svc.DeliveryStatus(context.Background(), "pathao", "55", domain.IdentifierMerchantOrderID)

	assert.False(t, result.Success)
	assert.Contains(t, result.Message, "no shipment")
}

// TestBalance_Unsupported verifies unsupported balance checks surface a
// clear message, not a generic error.
func TestBalance_Unsupported(t *testing.T) {
	courier := &mockCourier{id: "pathao", name: "Pathao Courier", enabled: true}
	svc, _, _ := newService(courier)

	result := svc.Balance(context.Background(), "pathao")

	assert.False(t, result.Success)
	assert.Contains(t, result.Message, "not available")
}
