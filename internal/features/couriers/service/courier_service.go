package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dreygur/shipsync/internal/core/logger"
	"github.com/dreygur/shipsync/internal/features/couriers/domain"
	"github.com/dreygur/shipsync/internal/features/couriers/ports"
	"github.com/dreygur/shipsync/internal/features/couriers/registry"
	orderdomain "github.com/dreygur/shipsync/internal/features/orders/domain"
	orderports "github.com/dreygur/shipsync/internal/features/orders/ports"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// BulkLimit is the hard cap on orders per bulk call; everything beyond it
// is ignored.
const BulkLimit = 500

// ErrCourierNotFound is returned when no adapter is registered for the id.
var ErrCourierNotFound = errors.New("courier not found")

// metadata keys attached to orders on the host platform
const (
	metaConsignmentID = "_shipsync_%s_consignment_id"
	metaTrackingCode  = "_shipsync_%s_tracking_code"
	metaStatus        = "_shipsync_%s_status"
	metaRawStatus     = "_shipsync_%s_raw_status"
	metaDeliveryFee   = "_shipsync_%s_delivery_fee"
	metaCreatedAt     = "_shipsync_%s_created_at"
	metaCourier       = "_shipsync_courier"
)

func metaKey(pattern, providerID string) string {
	return fmt.Sprintf(pattern, providerID)
}

// CourierService orchestrates shipment creation, status reconciliation and
// webhook application across the registered courier adapters. All host-side
// persistence happens here; adapters never touch the order gateway.
type CourierService struct {
	registry *registry.Registry
	orders   orderports.OrderGateway
	index    ports.ShipmentIndex
	logger   *zap.Logger
}

// NewCourierService creates a CourierService.
func NewCourierService(reg *registry.Registry, orders orderports.OrderGateway, index ports.ShipmentIndex) *CourierService {
	return &CourierService{
		registry: reg,
		orders:   orders,
		index:    index,
		logger:   logger.Named("couriers"),
	}
}

// Registry exposes the courier registry for listings.
func (s *CourierService) Registry() *registry.Registry {
	return s.registry
}

func (s *CourierService) courier(id string) (ports.Courier, error) {
	courier := s.registry.Get(id)
	if courier == nil {
		return nil, fmt.Errorf("%w: %s", ErrCourierNotFound, id)
	}
	return courier, nil
}

// shipmentRecordOf reads the stored shipment record for (order, provider)
// from order metadata.
func shipmentRecordOf(order *orderdomain.Order, providerID string) domain.ShipmentRecord {
	record := domain.ShipmentRecord{
		ProviderID:    providerID,
		ConsignmentID: order.MetaValue(metaKey(metaConsignmentID, providerID)),
		TrackingCode:  order.MetaValue(metaKey(metaTrackingCode, providerID)),
		Status:        domain.NormalizedStatus(order.MetaValue(metaKey(metaStatus, providerID))),
		RawStatus:     order.MetaValue(metaKey(metaRawStatus, providerID)),
	}
	if raw := order.MetaValue(metaKey(metaCreatedAt, providerID)); raw != "" {
		if parsed, err := time.Parse(time.RFC3339, raw); err == nil {
			record.CreatedAt = parsed
		}
	}
	return record
}

// CreateShipment pushes one order to the courier. The duplicate guard fails
// fast before any outbound call when the order already carries a live
// shipment for this provider.
func (s *CourierService) CreateShipment(ctx context.Context, courierID, orderID string, params ports.CreateParams) domain.ShipmentResult {
	courier, err := s.courier(courierID)
	if err != nil {
		return domain.ShipmentResult{Success: false, Message: err.Error()}
	}
	if !courier.Enabled() {
		return domain.ShipmentResult{Success: false, Message: fmt.Sprintf("%s is not enabled", courier.Name())}
	}

	order, err := s.orders.GetOrder(ctx, orderID)
	if err != nil {
		return domain.ShipmentResult{Success: false, Message: err.Error()}
	}

	return s.createForOrder(ctx, courier, order, params)
}

// createForOrder runs the guarded per-order creation flow against a loaded
// order. Shared by single and bulk creation.
func (s *CourierService) createForOrder(ctx context.Context, courier ports.Courier, order *orderdomain.Order, params ports.CreateParams) domain.ShipmentResult {
	if existing := shipmentRecordOf(order, courier.ID()); existing.Live() {
		return domain.ShipmentResult{
			Success:       false,
			Message:       fmt.Sprintf("order %s already has a shipment with %s", order.ID, courier.Name()),
			ConsignmentID: existing.ConsignmentID,
			TrackingCode:  existing.TrackingCode,
		}
	}
	if !order.Shippable() {
		return domain.ShipmentResult{
			Success: false,
			Message: fmt.Sprintf("order %s is missing recipient details", order.ID),
		}
	}

	result := courier.CreateShipment(ctx, order, params)
	if !result.Success {
		if result.Message == "" {
			result.Message = "API error"
		}
		return result
	}

	s.persistNewShipment(ctx, courier, order, result)
	return result
}

// persistNewShipment writes the shipment record to order metadata, mirrors
// it into the index, and appends the audit note.
func (s *CourierService) persistNewShipment(ctx context.Context, courier ports.Courier, order *orderdomain.Order, result domain.ShipmentResult) {
	status := result.Status
	if status == "" {
		status = domain.StatusPending
	}

	meta := map[string]string{
		metaKey(metaConsignmentID, courier.ID()): result.ConsignmentID,
		metaKey(metaStatus, courier.ID()):        string(status),
		metaKey(metaCreatedAt, courier.ID()):     time.Now().UTC().Format(time.RFC3339),
		metaCourier:                              courier.ID(),
	}
	if result.TrackingCode != "" {
		meta[metaKey(metaTrackingCode, courier.ID())] = result.TrackingCode
	}
	if !result.DeliveryFee.IsZero() {
		meta[metaKey(metaDeliveryFee, courier.ID())] = result.DeliveryFee.String()
	}

	if err := s.orders.UpdateMeta(ctx, order.ID, meta); err != nil {
		s.logger.Error("Failed to persist shipment metadata",
			zap.String("order_id", order.ID),
			zap.String("courier", courier.ID()),
			zap.Error(err),
		)
	}

	if err := s.index.BindConsignment(ctx, courier.ID(), result.ConsignmentID, order.ID); err != nil {
		s.logger.Warn("Failed to index consignment",
			zap.String("order_id", order.ID),
			zap.String("consignment_id", result.ConsignmentID),
			zap.Error(err),
		)
	}

	note := fmt.Sprintf("Shipment created with %s. Consignment ID: %s", courier.Name(), result.ConsignmentID)
	if result.TrackingCode != "" {
		note += fmt.Sprintf(", Tracking code: %s", result.TrackingCode)
	}
	if url := courier.TrackingURL(result.TrackingCode, result.ConsignmentID); url != "" {
		note += fmt.Sprintf(". Track: %s", url)
	}
	if err := s.orders.AppendNote(ctx, order.ID, note); err != nil {
		s.logger.Warn("Failed to append shipment note",
			zap.String("order_id", order.ID),
			zap.Error(err),
		)
	}
}

// CreateBulkShipments pushes up to BulkLimit orders to the courier. Orders
// already shipped or missing recipient details are skipped silently; a
// partial failure leaves succeeded orders shipped and failed orders
// untouched.
func (s *CourierService) CreateBulkShipments(ctx context.Context, courierID string, orderIDs []string, params ports.CreateParams) domain.BulkResult {
	courier, err := s.courier(courierID)
	if err != nil {
		return domain.BulkResult{Success: false, Message: err.Error()}
	}
	if !courier.Enabled() {
		return domain.BulkResult{Success: false, Message: fmt.Sprintf("%s is not enabled", courier.Name())}
	}

	batchID := uuid.NewString()
	if len(orderIDs) > BulkLimit {
		s.logger.Warn("Bulk batch truncated",
			zap.String("batch_id", batchID),
			zap.Int("requested", len(orderIDs)),
			zap.Int("limit", BulkLimit),
		)
		orderIDs = orderIDs[:BulkLimit]
	}

	// load and filter before any provider call
	skipped := 0
	eligible := make([]*orderdomain.Order, 0, len(orderIDs))
	for _, orderID := range orderIDs {
		order, err := s.orders.GetOrder(ctx, orderID)
		if err != nil {
			skipped++
			continue
		}
		if shipmentRecordOf(order, courier.ID()).Live() || !order.Shippable() {
			skipped++
			continue
		}
		eligible = append(eligible, order)
	}

	if len(eligible) == 0 {
		return domain.BulkResult{
			Success: true,
			Message: "no eligible orders in batch",
			BatchID: batchID,
			Mode:    domain.BulkPerItem,
			Skipped: skipped,
		}
	}

	result, supported := courier.CreateBulkShipments(ctx, eligible, params)
	if !supported {
		result = s.sequentialBulk(ctx, courier, eligible, params)
	}

	result.BatchID = batchID
	result.Skipped = skipped

	if result.Success {
		switch result.Mode {
		case domain.BulkPerItem:
			for _, item := range result.Items {
				if !item.Result.Success {
					continue
				}
				order := findOrder(eligible, item.OrderID)
				if order != nil {
					s.persistNewShipment(ctx, courier, order, item.Result)
				}
			}
		case domain.BulkAggregate:
			// no per-item ids to persist; record the submission so
			// webhook reconciliation can attach ids later
			for _, order := range eligible {
				note := fmt.Sprintf("Order submitted to %s in bulk batch %s", courier.Name(), batchID)
				if err := s.orders.AppendNote(ctx, order.ID, note); err != nil {
					s.logger.Warn("Failed to append bulk note",
						zap.String("order_id", order.ID),
						zap.Error(err),
					)
				}
			}
		}
	}

	return result
}

// sequentialBulk creates shipments one at a time for providers without a
// bulk endpoint. Persistence for successful items happens in the caller's
// per-item loop.
func (s *CourierService) sequentialBulk(ctx context.Context, courier ports.Courier, orders []*orderdomain.Order, params ports.CreateParams) domain.BulkResult {
	result := domain.BulkResult{Success: true, Mode: domain.BulkPerItem}
	for _, order := range orders {
		item := courier.CreateShipment(ctx, order, params)
		if item.Success {
			result.Succeeded++
		} else {
			result.Failed++
		}
		result.Items = append(result.Items, domain.BulkItem{OrderID: order.ID, Result: item})
	}
	return result
}

func findOrder(orders []*orderdomain.Order, id string) *orderdomain.Order {
	for _, order := range orders {
		if order.ID == id {
			return order
		}
	}
	return nil
}

// DeliveryStatus resolves the identifier, queries the provider, and caches
// the fresh status. Identifier types the provider cannot look up degrade to
// the last cached status instead of failing.
func (s *CourierService) DeliveryStatus(ctx context.Context, courierID, identifier string, idType domain.IdentifierType) domain.StatusResult {
	courier, err := s.courier(courierID)
	if err != nil {
		return domain.StatusResult{Success: false, Message: err.Error()}
	}

	orderID := ""
	lookupID := identifier
	lookupType := idType

	// merchant order ids are never provider-native; resolve to the stored
	// consignment first
	if idType == domain.IdentifierMerchantOrderID {
		order, err := s.orders.GetOrder(ctx, identifier)
		if err != nil {
			return domain.StatusResult{Success: false, Message: err.Error()}
		}
		record := shipmentRecordOf(order, courierID)
		if !record.Live() {
			return domain.StatusResult{
				Success: false,
				Message: fmt.Sprintf("order %s has no shipment with %s", identifier, courier.Name()),
			}
		}
		orderID = order.ID
		lookupID = record.ConsignmentID
		lookupType = domain.IdentifierConsignmentID
	}

	result, err := courier.DeliveryStatus(ctx, lookupID, lookupType)
	if errors.Is(err, ports.ErrUnsupportedIdentifier) {
		return s.cachedStatusFallback(ctx, courier, orderID, lookupID, lookupType)
	}
	if err != nil {
		return domain.StatusResult{Success: false, Message: err.Error()}
	}

	if result.Success {
		if orderID == "" {
			if resolved, err := s.index.OrderIDByConsignment(ctx, courierID, lookupID); err == nil {
				orderID = resolved
			}
		}
		if orderID != "" {
			if err := s.index.CacheStatus(ctx, courierID, orderID, result); err != nil {
				s.logger.Warn("Failed to cache status", zap.String("order_id", orderID), zap.Error(err))
			}
		}
	}
	return result
}

// cachedStatusFallback serves the last cached status when the provider has
// no live lookup endpoint for the identifier.
func (s *CourierService) cachedStatusFallback(ctx context.Context, courier ports.Courier, orderID, identifier string, idType domain.IdentifierType) domain.StatusResult {
	if orderID == "" && idType == domain.IdentifierConsignmentID {
		if resolved, err := s.index.OrderIDByConsignment(ctx, courier.ID(), identifier); err == nil {
			orderID = resolved
		}
	}
	if orderID == "" {
		return domain.StatusResult{
			Success: false,
			Message: fmt.Sprintf("%s cannot look up a shipment by %s", courier.Name(), idType),
		}
	}

	cached, err := s.index.CachedStatus(ctx, courier.ID(), orderID)
	if err != nil || cached == nil {
		return domain.StatusResult{
			Success: false,
			Message: fmt.Sprintf("%s cannot look up a shipment by %s and no cached status exists", courier.Name(), idType),
		}
	}

	cached.Cached = true
	cached.Message = "last known status (provider has no lookup endpoint for this identifier)"
	return *cached
}

// Balance queries the provider account balance.
func (s *CourierService) Balance(ctx context.Context, courierID string) domain.BalanceResult {
	courier, err := s.courier(courierID)
	if err != nil {
		return domain.BalanceResult{Success: false, Message: err.Error()}
	}
	return courier.Balance(ctx)
}

// ValidateCredentials runs the provider's credential probe.
func (s *CourierService) ValidateCredentials(ctx context.Context, courierID string) domain.StatusResult {
	courier, err := s.courier(courierID)
	if err != nil {
		return domain.StatusResult{Success: false, Message: err.Error()}
	}
	return courier.ValidateCredentials(ctx)
}

// ProcessWebhook runs the received → resolved → translated → applied flow
// for one inbound callback. Rejections are returned as failed results and
// logged; there is no retry.
func (s *CourierService) ProcessWebhook(ctx context.Context, courierID string, payload []byte) domain.WebhookResult {
	courier, err := s.courier(courierID)
	if err != nil {
		return domain.WebhookResult{Success: false, Message: err.Error()}
	}

	event, err := courier.ParseWebhook(payload)
	if err != nil {
		s.logger.Warn("Webhook rejected: unparseable payload",
			zap.String("courier", courierID),
			zap.Error(err),
		)
		return domain.WebhookResult{Success: false, Message: "invalid payload"}
	}

	order := s.resolveWebhookOrder(ctx, courier, event)
	if order == nil {
		s.logger.Warn("Webhook rejected: order not found",
			zap.String("courier", courierID),
			zap.String("merchant_order_id", event.MerchantOrderID),
			zap.String("consignment_id", event.ConsignmentID),
		)
		return domain.WebhookResult{Success: false, Message: "order not found"}
	}

	s.applyWebhookEvent(ctx, courier, order, event)

	return domain.WebhookResult{
		Success: true,
		Message: "applied",
		OrderID: order.ID,
		Status:  event.Status,
	}
}

// resolveWebhookOrder maps a webhook event back to a host order: explicit
// merchant order id first, then the shipment index, then a host metadata
// scan as the slow path.
func (s *CourierService) resolveWebhookOrder(ctx context.Context, courier ports.Courier, event *domain.WebhookEvent) *orderdomain.Order {
	if event.MerchantOrderID != "" {
		if order, err := s.orders.GetOrder(ctx, event.MerchantOrderID); err == nil {
			return order
		}
	}

	if event.ConsignmentID != "" {
		if orderID, err := s.index.OrderIDByConsignment(ctx, courier.ID(), event.ConsignmentID); err == nil && orderID != "" {
			if order, err := s.orders.GetOrder(ctx, orderID); err == nil {
				return order
			}
		}

		key := metaKey(metaConsignmentID, courier.ID())
		if order, err := s.orders.FindOrderByMeta(ctx, key, event.ConsignmentID); err == nil {
			return order
		}
	}

	return nil
}

// applyWebhookEvent writes the status update to order metadata, appends the
// audit note, and drives the host status transition when the mapped status
// actually changes. Replaying the same payload reaches the same end state.
func (s *CourierService) applyWebhookEvent(ctx context.Context, courier ports.Courier, order *orderdomain.Order, event *domain.WebhookEvent) {
	record := shipmentRecordOf(order, courier.ID())

	meta := map[string]string{
		metaKey(metaStatus, courier.ID()):    string(event.Status),
		metaKey(metaRawStatus, courier.ID()): event.RawStatus,
	}
	// consignment id is immutable once set; only fill it when missing
	if !record.Live() && event.ConsignmentID != "" {
		meta[metaKey(metaConsignmentID, courier.ID())] = event.ConsignmentID
		meta[metaCourier] = courier.ID()
	}
	if event.TrackingCode != "" && record.TrackingCode == "" {
		meta[metaKey(metaTrackingCode, courier.ID())] = event.TrackingCode
	}
	if !event.DeliveryFee.IsZero() {
		meta[metaKey(metaDeliveryFee, courier.ID())] = event.DeliveryFee.String()
	}

	if err := s.orders.UpdateMeta(ctx, order.ID, meta); err != nil {
		s.logger.Error("Failed to persist webhook metadata",
			zap.String("order_id", order.ID),
			zap.Error(err),
		)
	}

	if event.ConsignmentID != "" {
		if err := s.index.BindConsignment(ctx, courier.ID(), event.ConsignmentID, order.ID); err != nil {
			s.logger.Warn("Failed to index consignment from webhook",
				zap.String("order_id", order.ID),
				zap.Error(err),
			)
		}
	}
	if err := s.index.CacheStatus(ctx, courier.ID(), order.ID, domain.StatusResult{
		Success:   true,
		Status:    event.Status,
		RawStatus: event.RawStatus,
	}); err != nil {
		s.logger.Warn("Failed to cache webhook status", zap.String("order_id", order.ID), zap.Error(err))
	}

	note := fmt.Sprintf("%s update: %s (%s)", courier.Name(), event.Status, event.RawStatus)
	if err := s.orders.AppendNote(ctx, order.ID, note); err != nil {
		s.logger.Warn("Failed to append webhook note",
			zap.String("order_id", order.ID),
			zap.Error(err),
		)
	}

	hostStatus := event.Status.HostOrderStatus()
	if hostStatus != order.Status {
		transitionNote := fmt.Sprintf("Status changed by %s shipment update", courier.Name())
		if err := s.orders.SetStatus(ctx, order.ID, hostStatus, transitionNote); err != nil {
			s.logger.Error("Failed to transition host order status",
				zap.String("order_id", order.ID),
				zap.String("status", hostStatus),
				zap.Error(err),
			)
		}
	}
}
