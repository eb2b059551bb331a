package adapter

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/dreygur/shipsync/internal/core/config"
	"github.com/dreygur/shipsync/internal/features/couriers/domain"
	"github.com/dreygur/shipsync/internal/features/couriers/ports"
	orderdomain "github.com/dreygur/shipsync/internal/features/orders/domain"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// pathaoServer serves the issue-token endpoint plus a test-provided handler
// for everything else, counting token requests.
func pathaoServer(t *testing.T, handler http.HandlerFunc) (*PathaoAdapter, *int) {
	t.Helper()
	tokenCalls := new(int)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/aladdin/api/v1/issue-token" {
			*tokenCalls++
			var body map[string]string
			require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			assert.Equal(t, "password", body["grant_type"])
			json.NewEncoder(w).Encode(map[string]interface{}{
				"access_token": "tok-1",
				"expires_in":   3600,
				"token_type":   "Bearer",
			})
			return
		}
		assert.Equal(t, "Bearer tok-1", r.Header.Get("Authorization"))
		handler(w, r)
	}))
	t.Cleanup(srv.Close)

	cfg := config.PathaoConfig{
		Enabled:      true,
		BaseURL:      srv.URL,
		ClientID:     "cid",
		ClientSecret: "csecret",
		Username:     "merchant@example.test",
		Password:     "pw",
		StoreID:      12345,
	}
	return NewPathaoAdapter(cfg, srv.Client()), tokenCalls
}

func pathaoTestOrder() *orderdomain.Order {
	return &orderdomain.Order{
		ID:        "88",
		Number:    "88",
		Status:    "processing",
		FirstName: "Nusrat",
		LastName:  "Jahan",
		Phone:     "01911000000",
		Address:   "Flat 3B, Banani",
		City:      "Dhaka",
		CODAmount: decimal.NewFromInt(900),
	}
}

func TestPathaoCreateShipment_Success(t *testing.T) {
	adapter, tokenCalls := pathaoServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/aladdin/api/v1/orders", r.URL.Path)

		var body map[string]interface{}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "88", body["merchant_order_id"])
		assert.Equal(t, float64(12345), body["store_id"])
		assert.Equal(t, 0.5, body["item_weight"])

		json.NewEncoder(w).Encode(map[string]interface{}{
			"type":    "success",
			"code":    200,
			"message": "Order Created Successfully",
			"data": map[string]interface{}{
				"consignment_id": "DL1212XYZ",
				"order_status":   "Pending",
				"delivery_fee":   80,
			},
		})
	})

	result := adapter.CreateShipment(context.Background(), pathaoTestOrder(), ports.CreateParams{})

	require.True(t, result.Success)
	assert.Equal(t, "DL1212XYZ", result.ConsignmentID)
	assert.Equal(t, domain.StatusPending, result.Status)
	assert.True(t, result.DeliveryFee.Equal(decimal.NewFromInt(80)))
	assert.Equal(t, 1, *tokenCalls)
}

func TestPathaoTokenIsReusedAcrossCalls(t *testing.T) {
	adapter, tokenCalls := pathaoServer(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]interface{}{
			"code": 200,
			"data": map[string]interface{}{
				"consignment_id": "DL1",
				"order_status":   "Pending",
			},
		})
	})

	adapter.CreateShipment(context.Background(), pathaoTestOrder(), ports.CreateParams{})
	adapter.CreateShipment(context.Background(), pathaoTestOrder(), ports.CreateParams{})

	assert.Equal(t, 1, *tokenCalls)
}

func TestPathaoCreateBulkShipments_AggregateOnly(t *testing.T) {
	adapter, _ := pathaoServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/aladdin/api/v1/orders/bulk", r.URL.Path)
		var body map[string][]map[string]interface{}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Len(t, body["orders"], 2)

		w.WriteHeader(http.StatusAccepted)
		json.NewEncoder(w).Encode(map[string]interface{}{
			"type":    "success",
			"code":    202,
			"message": "Bulk order accepted",
		})
	})

	first := pathaoTestOrder()
	second := pathaoTestOrder()
	second.ID = "89"

	result, supported := adapter.CreateBulkShipments(context.Background(),
		[]*orderdomain.Order{first, second}, ports.CreateParams{})

	require.True(t, supported)
	require.True(t, result.Success)
	assert.Equal(t, domain.BulkAggregate, result.Mode)
	assert.Equal(t, 2, result.Succeeded)
	assert.Empty(t, result.Items)
}

func TestPathaoDeliveryStatus_ConsignmentOnly(t *testing.T) {
	adapter, _ := pathaoServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/aladdin/api/v1/orders/DL1212XYZ/info", r.URL.Path)
		json.NewEncoder(w).Encode(map[string]interface{}{
			"code": 200,
			"data": map[string]interface{}{
				"consignment_id": "DL1212XYZ",
				"order_status":   "At the Sorting HUB",
			},
		})
	})

	result, err := adapter.DeliveryStatus(context.Background(), "DL1212XYZ", domain.IdentifierConsignmentID)
	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Equal(t, domain.StatusInTransit, result.Status)
	assert.Equal(t, "At the Sorting HUB", result.RawStatus)

	_, err = adapter.DeliveryStatus(context.Background(), "INV-1", domain.IdentifierInvoice)
	assert.ErrorIs(t, err, ports.ErrUnsupportedIdentifier)

	_, err = adapter.DeliveryStatus(context.Background(), "TRK-1", domain.IdentifierTrackingCode)
	assert.ErrorIs(t, err, ports.ErrUnsupportedIdentifier)
}

func TestPathaoValidateCredentials_BadGrant(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		json.NewEncoder(w).Encode(map[string]interface{}{"message": "Invalid credentials"})
	}))
	t.Cleanup(srv.Close)

	adapter := NewPathaoAdapter(config.PathaoConfig{
		Enabled: true, BaseURL: srv.URL, ClientID: "cid", ClientSecret: "bad",
	}, srv.Client())

	result := adapter.ValidateCredentials(context.Background())

	assert.False(t, result.Success)
	assert.Contains(t, result.Message, "401")
}

func TestPathaoBalance_Unsupported(t *testing.T) {
	adapter := NewPathaoAdapter(config.PathaoConfig{Enabled: true}, nil)

	result := adapter.Balance(context.Background())

	assert.False(t, result.Success)
	assert.Contains(t, result.Message, "not available")
}

func TestPathaoParseWebhook_EventPath(t *testing.T) {
	adapter := NewPathaoAdapter(config.PathaoConfig{Enabled: true}, nil)

	event, err := adapter.ParseWebhook([]byte(`{
		"event": "order.delivered",
		"consignment_id": "DL1212XYZ",
		"merchant_order_id": "88",
		"collected_amount": 900
	}`))

	require.NoError(t, err)
	assert.Equal(t, PathaoID, event.ProviderID)
	assert.Equal(t, "order.delivered", event.RawStatus)
	assert.Equal(t, domain.StatusDelivered, event.Status)
	assert.True(t, event.CODAmount.Equal(decimal.NewFromInt(900)))
}

func TestPathaoParseWebhook_OrderStatusFallback(t *testing.T) {
	adapter := NewPathaoAdapter(config.PathaoConfig{Enabled: true}, nil)

	event, err := adapter.ParseWebhook([]byte(`{
		"consignment_id": "DL1212XYZ",
		"order_status": "Picked"
	}`))

	require.NoError(t, err)
	assert.Equal(t, domain.StatusPicked, event.Status)
}

func TestPathaoParseWebhook_UnknownEventIsNonTerminal(t *testing.T) {
	adapter := NewPathaoAdapter(config.PathaoConfig{Enabled: true}, nil)

	event, err := adapter.ParseWebhook([]byte(`{
		"event": "order.some_future_event",
		"consignment_id": "DL1212XYZ"
	}`))

	require.NoError(t, err)
	assert.False(t, event.Status.Terminal())
}

func TestPathaoParseWebhook_Invalid(t *testing.T) {
	adapter := NewPathaoAdapter(config.PathaoConfig{Enabled: true}, nil)

	_, err := adapter.ParseWebhook([]byte(`{"event": "order.delivered"}`))
	assert.ErrorIs(t, err, ports.ErrInvalidWebhook)

	_, err = adapter.ParseWebhook([]byte(`not json`))
	assert.ErrorIs(t, err, ports.ErrInvalidWebhook)
}

func TestPathaoTrackingURL(t *testing.T) {
	adapter := NewPathaoAdapter(config.PathaoConfig{}, nil)

	assert.Equal(t, "", adapter.TrackingURL("", ""))
	assert.Contains(t, adapter.TrackingURL("", "DL1212XYZ"), "DL1212XYZ")
	assert.Contains(t, adapter.TrackingURL("ABC123", ""), "ABC123")
}
