package hooks

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/shopmesh/parceline-bridge/internal/telemetry"
	"github.com/shopmesh/parceline-bridge/pkg/shipper"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.uber.org/zap"
)

// HandlerConfig holds the store-side defaults the hooks need.
type HandlerConfig struct {
	// Origin is the store's pickup address, used for every shipment.
	Origin shipper.Address
	// Sender is the store's contact record for bookings.
	Sender shipper.Contact
	// DefaultServiceLevel applies when the host framework's arguments
	// name none.
	DefaultServiceLevel string
}

// Handler implements the Shopmesh webhook extension points.
type Handler struct {
	cfg      HandlerConfig
	registry *shipper.Registry
	logger   *otelzap.Logger
	metrics  *telemetry.Metrics
}

// NewHandler creates the webhook handler.
func NewHandler(cfg HandlerConfig, registry *shipper.Registry, logger *otelzap.Logger, metrics *telemetry.Metrics) *Handler {
	return &Handler{
		cfg:      cfg,
		registry: registry,
		logger:   logger,
		metrics:  metrics,
	}
}

// Calculate is the shipping-calculator extension point. Provider
// failures surface as errors; checkout must never see a zero price
// standing in for a failed calculation.
func (h *Handler) Calculate(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	var req CalculateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.fail(w, "calculate", "decode", http.StatusBadRequest, err, start)
		return
	}

	recipient := resolveRecipient(&req.Order)
	destination, err := destinationAddress(&req.Order, recipient)
	if err != nil {
		h.fail(w, "calculate", "address", http.StatusUnprocessableEntity, err, start)
		return
	}

	quoteReq := &shipper.QuoteRequest{
		Origin:       h.cfg.Origin,
		Destination:  destination,
		Packages:     packagesFromLines(&req.Order, nil),
		ServiceLevel: serviceLevelFromArgs(req.Args.ServiceLevel, h.cfg.DefaultServiceLevel),
	}

	s, err := h.registry.Get(req.Args.Carrier)
	if err != nil {
		h.fail(w, "calculate", "carrier", http.StatusUnprocessableEntity, err, start)
		return
	}

	resp, err := s.GetQuote(r.Context(), quoteReq)
	if err != nil {
		h.metrics.RecordCarrierError(s.Name(), "quote")
		h.fail(w, "calculate", "quote", http.StatusBadGateway, err, start)
		return
	}

	rate, err := selectRate(resp, quoteReq.ServiceLevel)
	if err != nil {
		h.fail(w, "calculate", "rate", http.StatusBadGateway, err, start)
		return
	}

	h.logger.Info("Calculated shipping rate",
		zap.String("order_id", req.Order.ID),
		zap.String("carrier", rate.Carrier),
		zap.String("service", rate.ServiceName),
		zap.Float64("amount", rate.TotalPrice.Amount),
	)

	h.ok(w, "calculate", start, CalculateResponse{
		Amount:       rate.TotalPrice.Amount,
		Currency:     rate.TotalPrice.Currency,
		TaxInclusive: rate.TaxInclusive,
		Metadata: map[string]string{
			"quoteId":     resp.QuoteID,
			"rateId":      rate.RateID,
			"carrier":     rate.Carrier,
			"serviceName": rate.ServiceName,
			"transitDays": strconv.Itoa(rate.TransitDays),
			"expiresAt":   resp.ExpiresAt.Format(time.RFC3339),
		},
	})
}

// CreateFulfillment is the fulfillment-handler extension point.
func (h *Handler) CreateFulfillment(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	var req FulfillRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.fail(w, "fulfill", "decode", http.StatusBadRequest, err, start)
		return
	}

	recipient := resolveRecipient(&req.Order)
	destination, err := destinationAddress(&req.Order, recipient)
	if err != nil {
		h.fail(w, "fulfill", "address", http.StatusUnprocessableEntity, err, start)
		return
	}

	orderReq := &shipper.CreateOrderRequest{
		QuoteID:          req.Args.QuoteID,
		RateID:           req.Args.RateID,
		ServiceLevel:     serviceLevelFromArgs(req.Args.ServiceLevel, h.cfg.DefaultServiceLevel),
		Sender:           h.cfg.Sender,
		SenderAddress:    h.cfg.Origin,
		Recipient:        recipient,
		RecipientAddress: destination,
		Packages:         packagesFromLines(&req.Order, req.Lines),
		Reference:        req.Order.ID,
	}

	s, err := h.registry.Get(req.Args.Carrier)
	if err != nil {
		h.fail(w, "fulfill", "carrier", http.StatusUnprocessableEntity, err, start)
		return
	}

	resp, err := s.CreateOrder(r.Context(), orderReq)
	if err != nil {
		h.metrics.RecordCarrierError(s.Name(), "booking")
		h.fail(w, "fulfill", "booking", http.StatusBadGateway, err, start)
		return
	}

	h.logger.Info("Created fulfillment",
		zap.String("order_id", req.Order.ID),
		zap.String("booking_id", resp.OrderID),
		zap.String("tracking", resp.TrackingNumber),
	)

	metadata := map[string]string{
		"bookingId":   resp.OrderID,
		"carrier":     resp.Carrier,
		"serviceName": resp.ServiceName,
		"status":      string(resp.Status),
	}
	if resp.TrackingURL != "" {
		metadata["trackingUrl"] = resp.TrackingURL
	}
	if resp.LabelURL != "" {
		metadata["labelUrl"] = resp.LabelURL
	}

	h.ok(w, "fulfill", start, FulfillResponse{
		TrackingCode: resp.TrackingNumber,
		Metadata:     metadata,
	})
}

// Tracking serves GET /hooks/fulfillment/{id}/tracking.
func (h *Handler) Tracking(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	id := mux.Vars(r)["id"]

	s, err := h.registry.Get(r.URL.Query().Get("carrier"))
	if err != nil {
		h.fail(w, "tracking", "carrier", http.StatusUnprocessableEntity, err, start)
		return
	}

	resp, err := s.GetTracking(r.Context(), &shipper.TrackingRequest{OrderID: id})
	if err != nil {
		h.metrics.RecordCarrierError(s.Name(), "tracking")
		h.fail(w, "tracking", "tracking", http.StatusBadGateway, err, start)
		return
	}

	h.ok(w, "tracking", start, resp)
}

// Label serves GET /hooks/fulfillment/{id}/label.
func (h *Handler) Label(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	id := mux.Vars(r)["id"]

	s, err := h.registry.Get(r.URL.Query().Get("carrier"))
	if err != nil {
		h.fail(w, "label", "carrier", http.StatusUnprocessableEntity, err, start)
		return
	}

	resp, err := s.GetLabel(r.Context(), &shipper.GetLabelRequest{
		OrderID: id,
		Format:  shipper.LabelFormat(r.URL.Query().Get("format")),
	})
	if err != nil {
		h.metrics.RecordCarrierError(s.Name(), "label")
		h.fail(w, "label", "label", http.StatusBadGateway, err, start)
		return
	}

	h.ok(w, "label", start, resp)
}

// Cancel serves POST /hooks/fulfillment/{id}/cancel.
func (h *Handler) Cancel(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	id := mux.Vars(r)["id"]

	var req CancelFulfillmentRequest
	if r.Body != nil {
		// Body is optional; a bare cancel is fine.
		_ = json.NewDecoder(r.Body).Decode(&req)
	}

	s, err := h.registry.Get(req.Carrier)
	if err != nil {
		h.fail(w, "cancel", "carrier", http.StatusUnprocessableEntity, err, start)
		return
	}

	resp, err := s.CancelOrder(r.Context(), &shipper.CancelOrderRequest{
		OrderID: id,
		Reason:  req.Reason,
	})
	if err != nil {
		h.metrics.RecordCarrierError(s.Name(), "cancel")
		h.fail(w, "cancel", "cancel", http.StatusBadGateway, err, start)
		return
	}

	h.ok(w, "cancel", start, resp)
}

// selectRate picks the cheapest offer matching the requested service
// level.
func selectRate(resp *shipper.QuoteResponse, level shipper.ServiceLevel) (*shipper.RateOption, error) {
	var best *shipper.RateOption
	for i := range resp.Rates {
		rate := &resp.Rates[i]
		if level != "" && rate.ServiceLevel != level {
			continue
		}
		if best == nil || rate.TotalPrice.Amount < best.TotalPrice.Amount {
			best = rate
		}
	}
	if best == nil {
		return nil, fmt.Errorf("no rate offered for service level %q", level)
	}
	return best, nil
}

func (h *Handler) ok(w http.ResponseWriter, hook string, start time.Time, body interface{}) {
	h.metrics.RecordHook(hook, "ok", time.Since(start).Seconds())
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(body)
}

func (h *Handler) fail(w http.ResponseWriter, hook, stage string, status int, err error, start time.Time) {
	h.metrics.RecordHook(hook, "error", time.Since(start).Seconds())
	h.logger.Error("Hook failed",
		zap.String("hook", hook),
		zap.String("stage", stage),
		zap.Error(err),
	)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(ErrorResponse{
		Error: fmt.Sprintf("%s %s: %v", hook, stage, err),
		Stage: stage,
	})
}
