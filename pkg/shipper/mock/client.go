// Package mock provides an in-process fake shipper for local
// development and tests.
package mock

import (
	"context"
	"fmt"
	"time"

	"github.com/shopmesh/parceline-bridge/pkg/shipper"
)

// Client is a fake shipper. Every operation succeeds with
// deterministic-looking data.
type Client struct {
	name string
}

// New creates a new mock shipper.
func New(name string) *Client {
	return &Client{name: name}
}

// Name returns the provider name.
func (c *Client) Name() string {
	return c.name
}

// GetQuote returns two fixed rate options.
func (c *Client) GetQuote(ctx context.Context, req *shipper.QuoteRequest) (*shipper.QuoteResponse, error) {
	now := time.Now()
	expiresAt := now.Add(30 * time.Minute)
	standardETA := now.Add(4 * 24 * time.Hour)
	expressETA := now.Add(24 * time.Hour)

	return &shipper.QuoteResponse{
		QuoteID:   fmt.Sprintf("%s-quote-%d", c.name, now.UnixNano()),
		ExpiresAt: expiresAt,
		Rates: []shipper.RateOption{
			{
				RateID:            fmt.Sprintf("%s-rate-standard-%d", c.name, now.UnixNano()),
				Carrier:           c.name,
				ServiceCode:       "STD",
				ServiceName:       fmt.Sprintf("%s Standard", c.name),
				ServiceLevel:      shipper.ServiceStandard,
				BaseRate:          shipper.Money{Amount: 11.20, Currency: "USD"},
				Taxes:             shipper.Money{Amount: 1.30, Currency: "USD"},
				TotalPrice:        shipper.Money{Amount: 12.50, Currency: "USD"},
				TaxInclusive:      true,
				TransitDays:       4,
				EstimatedDelivery: &standardETA,
				ExpiresAt:         expiresAt,
			},
			{
				RateID:            fmt.Sprintf("%s-rate-express-%d", c.name, now.UnixNano()),
				Carrier:           c.name,
				ServiceCode:       "EXP",
				ServiceName:       fmt.Sprintf("%s Express", c.name),
				ServiceLevel:      shipper.ServiceExpress,
				BaseRate:          shipper.Money{Amount: 22.00, Currency: "USD"},
				Taxes:             shipper.Money{Amount: 2.60, Currency: "USD"},
				TotalPrice:        shipper.Money{Amount: 24.60, Currency: "USD"},
				TaxInclusive:      true,
				TransitDays:       1,
				EstimatedDelivery: &expressETA,
				ExpiresAt:         expiresAt,
				Guaranteed:        true,
			},
		},
	}, nil
}

// CreateOrder fabricates a booked order with a tracking number.
func (c *Client) CreateOrder(ctx context.Context, req *shipper.CreateOrderRequest) (*shipper.CreateOrderResponse, error) {
	now := time.Now()
	orderID := fmt.Sprintf("%s-order-%d", c.name, now.UnixNano())
	trackingNumber := fmt.Sprintf("MK%012d", now.UnixNano()%1000000000000)
	eta := now.Add(4 * 24 * time.Hour)

	return &shipper.CreateOrderResponse{
		OrderID:           orderID,
		TrackingNumber:    trackingNumber,
		TrackingURL:       fmt.Sprintf("https://track.%s.invalid/%s", c.name, trackingNumber),
		Status:            shipper.StatusBooked,
		Carrier:           c.name,
		ServiceName:       fmt.Sprintf("%s Standard", c.name),
		TotalCharged:      shipper.Money{Amount: 12.50, Currency: "USD"},
		EstimatedDelivery: &eta,
		LabelURL:          fmt.Sprintf("https://labels.%s.invalid/%s.pdf", c.name, orderID),
	}, nil
}

// GetTracking reports the shipment as in transit with one event.
func (c *Client) GetTracking(ctx context.Context, req *shipper.TrackingRequest) (*shipper.TrackingResponse, error) {
	now := time.Now()
	eta := now.Add(2 * 24 * time.Hour)

	return &shipper.TrackingResponse{
		OrderID:        req.OrderID,
		TrackingNumber: req.TrackingNumber,
		Status:         shipper.StatusInTransit,
		Events: []shipper.TrackingEvent{
			{
				Timestamp:   now.Add(-6 * time.Hour),
				Description: "Departed origin facility",
				Location:    "Origin hub",
				Status:      shipper.StatusInTransit,
			},
		},
		EstimatedDelivery: &eta,
	}, nil
}

// GetLabel returns a hosted label URL.
func (c *Client) GetLabel(ctx context.Context, req *shipper.GetLabelRequest) (*shipper.GetLabelResponse, error) {
	format := req.Format
	if format == "" {
		format = shipper.LabelPDF
	}

	return &shipper.GetLabelResponse{
		OrderID: req.OrderID,
		Label: shipper.Label{
			Format: format,
			URL:    fmt.Sprintf("https://labels.%s.invalid/%s.%s", c.name, req.OrderID, format),
		},
	}, nil
}

// CancelOrder always succeeds.
func (c *Client) CancelOrder(ctx context.Context, req *shipper.CancelOrderRequest) (*shipper.CancelOrderResponse, error) {
	return &shipper.CancelOrderResponse{
		OrderID:            req.OrderID,
		Status:             shipper.StatusCancelled,
		ConfirmationNumber: fmt.Sprintf("%s-cancel-%d", c.name, time.Now().UnixNano()),
	}, nil
}

var _ shipper.Shipper = (*Client)(nil)
