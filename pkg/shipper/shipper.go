// Package shipper provides a carrier-neutral abstraction over shipping
// providers. The webhook layer speaks only these types; a provider
// package (e.g. parceline) adapts them to its own API.
package shipper

import (
	"context"
)

// Shipper is the interface every shipping provider must implement.
type Shipper interface {
	// Name returns the provider identifier (e.g. "parceline").
	Name() string

	// GetQuote returns priced shipping offers for a shipment.
	GetQuote(ctx context.Context, req *QuoteRequest) (*QuoteResponse, error)

	// CreateOrder submits a booking to the provider and returns the
	// resulting tracking identifier.
	CreateOrder(ctx context.Context, req *CreateOrderRequest) (*CreateOrderResponse, error)

	// GetTracking returns the current status and event history of a booking.
	GetTracking(ctx context.Context, req *TrackingRequest) (*TrackingResponse, error)

	// GetLabel retrieves the shipping label for a booking.
	GetLabel(ctx context.Context, req *GetLabelRequest) (*GetLabelResponse, error)

	// CancelOrder cancels an existing booking.
	CancelOrder(ctx context.Context, req *CancelOrderRequest) (*CancelOrderResponse, error)
}
