// Package parceline integrates the Parceline logistics provider:
// OAuth-protected REST endpoints for quoting, booking, tracking and
// label retrieval, fronted by a short-TTL quote cache.
package parceline

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopmesh/parceline-bridge/pkg/shipper"
	"github.com/shopmesh/parceline-bridge/pkg/shipper/parceline/auth"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

const carrierName = "parceline"

// Parcel defaults applied when the order carries no weight or
// dimension data.
const (
	defaultWeightKG = 1.0
	defaultLengthCM = 30.0
	defaultWidthCM  = 20.0
	defaultHeightCM = 10.0
)

// Config holds Parceline configuration.
type Config struct {
	BaseURL         string
	TokenURL        string
	SubscriptionKey string

	Grant        auth.GrantType
	ClientID     string
	ClientSecret string
	Username     string
	Password     string
	Scope        string

	// PayerMDMAccount designates who pays for bookings.
	PayerMDMAccount string
	// ConsignorMDMAccount designates the shipping party, when the
	// provider has one on file for the store.
	ConsignorMDMAccount string

	ExpiryBuffer      time.Duration
	QuoteTTL          time.Duration
	QuoteCacheSize    int
	RequestsPerSecond float64

	// TokenStore overrides the in-process store (e.g. Redis for
	// multi-replica deployments).
	TokenStore auth.Store

	// OnTokenExchange and OnQuoteCacheLookup feed metrics without
	// coupling this package to the telemetry registry.
	OnTokenExchange    func(grant string, err error)
	OnQuoteCacheLookup func(hit bool)

	// UseMock swaps the HTTP API client for the mock.
	UseMock bool
}

// Client is the Parceline shipper. It implements shipper.Shipper and
// delegates API calls to the underlying APIClient (HTTP or mock).
type Client struct {
	config    Config
	apiClient APIClient
	quotes    *quoteCache
	logger    *otelzap.Logger
	tracer    trace.Tracer
}

// New creates a Parceline client. With cfg.UseMock the provider is
// never called and no credentials are needed.
func New(cfg Config, logger *otelzap.Logger, tracer trace.Tracer) *Client {
	var apiClient APIClient

	if cfg.UseMock {
		apiClient = NewMockAPIClient()
	} else {
		tokens := auth.New(auth.Config{
			TokenURL:     cfg.TokenURL,
			Grant:        cfg.Grant,
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			Username:     cfg.Username,
			Password:     cfg.Password,
			Scope:        cfg.Scope,
			ExpiryBuffer: cfg.ExpiryBuffer,
			Store:        cfg.TokenStore,
			OnExchange:   cfg.OnTokenExchange,
			Logger:       logger,
		})
		apiClient = NewHTTPAPIClient(HTTPAPIClientConfig{
			BaseURL:           cfg.BaseURL,
			SubscriptionKey:   cfg.SubscriptionKey,
			Tokens:            tokens,
			Timeout:           30 * time.Second,
			RequestsPerSecond: cfg.RequestsPerSecond,
		})
	}

	return newWithAPIClient(cfg, apiClient, logger, tracer)
}

// NewWithAPIClient creates a client with an injected API client; used
// by tests.
func NewWithAPIClient(cfg Config, apiClient APIClient, logger *otelzap.Logger, tracer trace.Tracer) *Client {
	return newWithAPIClient(cfg, apiClient, logger, tracer)
}

func newWithAPIClient(cfg Config, apiClient APIClient, logger *otelzap.Logger, tracer trace.Tracer) *Client {
	return &Client{
		config:    cfg,
		apiClient: apiClient,
		quotes:    newQuoteCache(cfg.QuoteTTL, cfg.QuoteCacheSize, nil),
		logger:    logger,
		tracer:    tracer,
	}
}

// Name returns the carrier name.
func (c *Client) Name() string {
	return carrierName
}

// GetQuote returns shipping offers, served from the quote cache when a
// request with the same route, weight, parcel count and service level
// was priced within the TTL.
func (c *Client) GetQuote(ctx context.Context, req *shipper.QuoteRequest) (*shipper.QuoteResponse, error) {
	key := quoteKey(req)
	if resp, ok := c.quotes.get(key); ok {
		c.observeCacheLookup(true)
		c.logger.Debug("Quote cache hit", zap.String("key", key))
		return resp, nil
	}
	c.observeCacheLookup(false)

	c.logger.Info("Requesting Parceline quote",
		zap.String("origin", req.Origin.City),
		zap.String("destination", req.Destination.City),
		zap.Int("parcel_count", len(req.Packages)),
		zap.String("service_level", string(req.ServiceLevel)),
	)

	apiResp, err := c.apiClient.RequestQuote(ctx, quoteRequestToAPI(req))
	if err != nil {
		c.logger.Error("Parceline quote failed", zap.Error(err))
		return nil, fmt.Errorf("parceline quote: %w", err)
	}

	resp := quoteResponseToShipper(apiResp)
	c.quotes.put(key, resp)
	return resp, nil
}

// CreateOrder books a shipment. The booking payload is built from the
// full order, never from a cached quote.
func (c *Client) CreateOrder(ctx context.Context, req *shipper.CreateOrderRequest) (*shipper.CreateOrderResponse, error) {
	reference := req.Reference
	if reference == "" {
		reference = uuid.New().String()
	}

	c.logger.Info("Creating Parceline booking",
		zap.String("reference", reference),
		zap.String("recipient", req.Recipient.Name),
		zap.String("service_level", string(req.ServiceLevel)),
	)

	apiResp, err := c.apiClient.CreateBooking(ctx, c.bookingRequestToAPI(req, reference))
	if err != nil {
		c.logger.Error("Parceline booking failed", zap.Error(err))
		return nil, fmt.Errorf("parceline booking: %w", err)
	}
	if apiResp.AlreadyBooked {
		c.logger.Warn("Parceline booking reference already used, returning existing booking",
			zap.String("reference", reference),
			zap.String("booking_id", apiResp.BookingID),
		)
	}

	return bookingResponseToShipper(apiResp), nil
}

// GetTracking returns the normalized tracking state of a booking.
func (c *Client) GetTracking(ctx context.Context, req *shipper.TrackingRequest) (*shipper.TrackingResponse, error) {
	apiResp, err := c.apiClient.GetTracking(ctx, req.OrderID)
	if err != nil {
		c.logger.Error("Parceline tracking failed",
			zap.String("order_id", req.OrderID), zap.Error(err))
		return nil, fmt.Errorf("parceline tracking: %w", err)
	}
	return trackingResponseToShipper(apiResp), nil
}

// GetLabel retrieves the shipping label for a booking.
func (c *Client) GetLabel(ctx context.Context, req *shipper.GetLabelRequest) (*shipper.GetLabelResponse, error) {
	format := string(req.Format)
	if format == "" {
		format = "pdf"
	}

	apiResp, err := c.apiClient.GetLabel(ctx, req.OrderID, format)
	if err != nil {
		c.logger.Error("Parceline label failed",
			zap.String("order_id", req.OrderID), zap.Error(err))
		return nil, fmt.Errorf("parceline label: %w", err)
	}
	return labelResponseToShipper(apiResp), nil
}

// CancelOrder cancels a booking.
func (c *Client) CancelOrder(ctx context.Context, req *shipper.CancelOrderRequest) (*shipper.CancelOrderResponse, error) {
	c.logger.Info("Cancelling Parceline booking",
		zap.String("order_id", req.OrderID),
		zap.String("reason", req.Reason),
	)

	apiResp, err := c.apiClient.CancelBooking(ctx, req.OrderID, req.Reason)
	if err != nil {
		c.logger.Error("Parceline cancel failed", zap.Error(err))
		return nil, fmt.Errorf("parceline cancel: %w", err)
	}
	return cancelResponseToShipper(apiResp), nil
}

func (c *Client) observeCacheLookup(hit bool) {
	if c.config.OnQuoteCacheLookup != nil {
		c.config.OnQuoteCacheLookup(hit)
	}
}

// ============================================================================
// Conversion: shipper models -> API models
// ============================================================================

func quoteRequestToAPI(req *shipper.QuoteRequest) *QuoteAPIRequest {
	out := &QuoteAPIRequest{
		OriginCityCode:        routeCode(req.Origin),
		OriginPostalCode:      req.Origin.PostalCode,
		DestinationCityCode:   routeCode(req.Destination),
		DestinationPostalCode: req.Destination.PostalCode,
		ServiceLevel:          serviceLevelToAPI(req.ServiceLevel),
		Parcels:               packagesToAPI(req.Packages),
	}
	if req.DeclaredValue.Amount > 0 {
		out.DeclaredValue = req.DeclaredValue.Amount
		out.Currency = req.DeclaredValue.Currency
	}
	return out
}

func (c *Client) bookingRequestToAPI(req *shipper.CreateOrderRequest, reference string) *BookingAPIRequest {
	out := &BookingAPIRequest{
		Reference:       reference,
		QuoteID:         req.QuoteID,
		OfferID:         req.RateID,
		ServiceLevel:    serviceLevelToAPI(req.ServiceLevel),
		PayerMDMAccount: c.config.PayerMDMAccount,
		Consignor:       partyToAPI(req.Sender, req.SenderAddress, c.config.ConsignorMDMAccount),
		Consignee:       partyToAPI(req.Recipient, req.RecipientAddress, ""),
		Parcels:         packagesToAPI(req.Packages),
		Note:            req.Instructions,
	}
	if req.CODAmount != nil {
		out.CODAmount = req.CODAmount.Amount
		out.Currency = req.CODAmount.Currency
	}
	return out
}

func partyToAPI(contact shipper.Contact, addr shipper.Address, fallbackMDM string) APIParty {
	mdm := contact.MDMAccount
	if mdm == "" {
		mdm = fallbackMDM
	}
	name := contact.Name
	if name == "" {
		name = addr.Name
	}
	phone := contact.Phone
	if phone == "" {
		phone = addr.Phone
	}
	email := contact.Email
	if email == "" {
		email = addr.Email
	}
	return APIParty{
		MDMAccount: mdm,
		Contact: APIContact{
			FullName: name,
			Company:  contact.Company,
			Phone:    phone,
			Email:    email,
		},
		Address: APIAddress{
			Line1:       addr.Line1,
			Line2:       addr.Line2,
			City:        addr.City,
			CityCode:    addr.CityCode,
			Province:    addr.Province,
			PostalCode:  addr.PostalCode,
			CountryCode: addr.CountryCode,
			Residential: addr.Residential,
			Note:        addr.Instructions,
		},
	}
}

// packagesToAPI converts parcels, substituting fixed defaults for
// missing weight and dimensions rather than failing the request.
func packagesToAPI(pkgs []shipper.Package) []APIParcel {
	if len(pkgs) == 0 {
		pkgs = []shipper.Package{{}}
	}
	result := make([]APIParcel, len(pkgs))
	for i, p := range pkgs {
		w := weightKG(p)
		if w <= 0 {
			w = defaultWeightKG
		}
		l, wd, h := dimensionsCM(p)
		if l <= 0 {
			l = defaultLengthCM
		}
		if wd <= 0 {
			wd = defaultWidthCM
		}
		if h <= 0 {
			h = defaultHeightCM
		}
		parcelType := string(p.PackageType)
		if parcelType == "" {
			parcelType = string(classifyParcelType(w, l, wd, h))
		}
		result[i] = APIParcel{
			WeightKG: w,
			LengthCM: l,
			WidthCM:  wd,
			HeightCM: h,
			Type:     parcelType,
		}
	}
	return result
}

const (
	lbPerKG = 2.20462
	inPerCM = 0.393701
)

func weightKG(p shipper.Package) float64 {
	if p.WeightUnit == shipper.WeightLB {
		return p.Weight / lbPerKG
	}
	return p.Weight
}

func dimensionsCM(p shipper.Package) (length, width, height float64) {
	length, width, height = p.Length, p.Width, p.Height
	if p.DimensionUnit == shipper.DimensionIN {
		length /= inPerCM
		width /= inPerCM
		height /= inPerCM
	}
	return length, width, height
}

// classifyParcelType is a fixed decision table over weight and
// dimension thresholds. Not a packing algorithm.
func classifyParcelType(weightKG, lengthCM, widthCM, heightCM float64) shipper.PackageType {
	longest := lengthCM
	if widthCM > longest {
		longest = widthCM
	}
	if heightCM > longest {
		longest = heightCM
	}

	switch {
	case weightKG > 30 || longest > 120:
		return shipper.PackagePallet
	case weightKG <= 0.5 && heightCM <= 3:
		return shipper.PackageEnvelope
	case weightKG <= 5 && longest <= 40:
		return shipper.PackageSmallBox
	default:
		return shipper.PackageBox
	}
}

func serviceLevelToAPI(level shipper.ServiceLevel) string {
	if level == "" {
		return string(shipper.ServiceStandard)
	}
	return string(level)
}

// ============================================================================
// Conversion: API models -> shipper models
// ============================================================================

func quoteResponseToShipper(resp *QuoteAPIResponse) *shipper.QuoteResponse {
	expiresAt, _ := time.Parse(time.RFC3339, resp.ExpiresAt)

	rates := make([]shipper.RateOption, len(resp.Offers))
	for i, o := range resp.Offers {
		var eta *time.Time
		if o.DeliveryDate != "" {
			if t, err := time.Parse("2006-01-02", o.DeliveryDate); err == nil {
				eta = &t
			}
		}
		rates[i] = shipper.RateOption{
			RateID:            o.OfferID,
			Carrier:           carrierName,
			ServiceCode:       o.ServiceCode,
			ServiceName:       o.ServiceName,
			ServiceLevel:      mapServiceLevel(o.ServiceLevel),
			BaseRate:          shipper.Money{Amount: o.BaseAmount, Currency: o.Currency},
			Taxes:             shipper.Money{Amount: o.TaxAmount, Currency: o.Currency},
			TotalPrice:        shipper.Money{Amount: o.TotalAmount, Currency: o.Currency},
			TaxInclusive:      true,
			TransitDays:       o.TransitDays,
			EstimatedDelivery: eta,
			ExpiresAt:         expiresAt,
			Guaranteed:        o.Guaranteed,
		}
	}

	return &shipper.QuoteResponse{
		QuoteID:   resp.QuoteID,
		Rates:     rates,
		ExpiresAt: expiresAt,
	}
}

func bookingResponseToShipper(resp *BookingAPIResponse) *shipper.CreateOrderResponse {
	var eta *time.Time
	if resp.DeliveryDate != "" {
		if t, err := time.Parse("2006-01-02", resp.DeliveryDate); err == nil {
			eta = &t
		}
	}

	return &shipper.CreateOrderResponse{
		OrderID:           resp.BookingID,
		TrackingNumber:    resp.TrackingCode,
		TrackingURL:       resp.TrackingURL,
		Status:            mapStatus(resp.Status),
		Carrier:           carrierName,
		ServiceName:       resp.ServiceName,
		TotalCharged:      shipper.Money{Amount: resp.TotalAmount, Currency: resp.Currency},
		EstimatedDelivery: eta,
		LabelURL:          resp.LabelURL,
	}
}

func trackingResponseToShipper(resp *TrackingAPIResponse) *shipper.TrackingResponse {
	var eta *time.Time
	if resp.DeliveryDate != "" {
		if t, err := time.Parse("2006-01-02", resp.DeliveryDate); err == nil {
			eta = &t
		}
	}

	events := make([]shipper.TrackingEvent, len(resp.Events))
	for i, e := range resp.Events {
		ts, _ := time.Parse(time.RFC3339, e.Timestamp)
		events[i] = shipper.TrackingEvent{
			Timestamp:   ts,
			Description: e.Description,
			Location:    e.Location,
			Status:      mapStatus(e.Status),
			CarrierCode: e.Code,
		}
	}

	return &shipper.TrackingResponse{
		OrderID:           resp.BookingID,
		TrackingNumber:    resp.TrackingCode,
		Status:            mapStatus(resp.Status),
		Events:            events,
		EstimatedDelivery: eta,
	}
}

func labelResponseToShipper(resp *LabelAPIResponse) *shipper.GetLabelResponse {
	var expiresAt *time.Time
	if resp.ExpiresAt != "" {
		if t, err := time.Parse(time.RFC3339, resp.ExpiresAt); err == nil {
			expiresAt = &t
		}
	}

	return &shipper.GetLabelResponse{
		OrderID: resp.BookingID,
		Label: shipper.Label{
			Format:    mapLabelFormat(resp.Format),
			Data:      resp.Content,
			URL:       resp.URL,
			ExpiresAt: expiresAt,
		},
	}
}

func cancelResponseToShipper(resp *CancelAPIResponse) *shipper.CancelOrderResponse {
	var refund *shipper.Money
	if resp.RefundAmount > 0 {
		refund = &shipper.Money{Amount: resp.RefundAmount, Currency: resp.Currency}
	}

	return &shipper.CancelOrderResponse{
		OrderID:            resp.BookingID,
		Status:             mapStatus(resp.Status),
		RefundAmount:       refund,
		ConfirmationNumber: resp.ConfirmationNumber,
	}
}

// ============================================================================
// Mapping helpers
// ============================================================================

func mapServiceLevel(level string) shipper.ServiceLevel {
	switch level {
	case "express", "EXPRESS":
		return shipper.ServiceExpress
	case "same_day", "SAME_DAY":
		return shipper.ServiceSameDay
	case "economy", "ECONOMY":
		return shipper.ServiceEconomy
	default:
		return shipper.ServiceStandard
	}
}

func mapStatus(status string) shipper.ShipmentStatus {
	switch status {
	case "pending", "processing", "draft":
		return shipper.StatusPending
	case "quoted":
		return shipper.StatusQuoted
	case "booked", "confirmed", "accepted":
		return shipper.StatusBooked
	case "picked_up", "collected":
		return shipper.StatusPickedUp
	case "in_transit":
		return shipper.StatusInTransit
	case "out_for_delivery":
		return shipper.StatusOutForDelivery
	case "delivered":
		return shipper.StatusDelivered
	case "cancelled":
		return shipper.StatusCancelled
	case "exception", "error", "failed", "returned":
		return shipper.StatusException
	default:
		return shipper.StatusPending
	}
}

func mapLabelFormat(format string) shipper.LabelFormat {
	switch format {
	case "png", "PNG":
		return shipper.LabelPNG
	case "zpl", "ZPL":
		return shipper.LabelZPL
	default:
		return shipper.LabelPDF
	}
}

var _ shipper.Shipper = (*Client)(nil)
