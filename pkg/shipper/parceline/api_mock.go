package parceline

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// MockAPIClient is a fake APIClient for tests and mock-mode deployments.
// Default behavior returns plausible data; per-operation hooks override it.
type MockAPIClient struct {
	SimulateErrors  bool
	SimulateLatency time.Duration

	OnRequestQuote  func(ctx context.Context, req *QuoteAPIRequest) (*QuoteAPIResponse, error)
	OnCreateBooking func(ctx context.Context, req *BookingAPIRequest) (*BookingAPIResponse, error)
	OnGetTracking   func(ctx context.Context, bookingID string) (*TrackingAPIResponse, error)
	OnGetLabel      func(ctx context.Context, bookingID, format string) (*LabelAPIResponse, error)
	OnCancelBooking func(ctx context.Context, bookingID, reason string) (*CancelAPIResponse, error)

	// QuoteCalls counts RequestQuote invocations; client cache tests
	// assert on it.
	QuoteCalls int
}

// NewMockAPIClient creates a mock with default behavior.
func NewMockAPIClient() *MockAPIClient {
	return &MockAPIClient{}
}

func (m *MockAPIClient) simulate() error {
	if m.SimulateLatency > 0 {
		time.Sleep(m.SimulateLatency)
	}
	if m.SimulateErrors {
		return &APIError{Code: "MOCK_ERROR", Message: "simulated API error", StatusCode: 500}
	}
	return nil
}

// RequestQuote returns two offers.
func (m *MockAPIClient) RequestQuote(ctx context.Context, req *QuoteAPIRequest) (*QuoteAPIResponse, error) {
	m.QuoteCalls++
	if err := m.simulate(); err != nil {
		return nil, err
	}
	if m.OnRequestQuote != nil {
		return m.OnRequestQuote(ctx, req)
	}

	expiresAt := time.Now().Add(30 * time.Minute).Format(time.RFC3339)
	return &QuoteAPIResponse{
		QuoteID:   "pq-" + uuid.New().String()[:8],
		ExpiresAt: expiresAt,
		Offers: []APIOffer{
			{
				OfferID:      "offer-" + uuid.New().String()[:8],
				ServiceCode:  "PCL_STD",
				ServiceName:  "Parceline Standard",
				ServiceLevel: "standard",
				BaseAmount:   8.40,
				TaxAmount:    0.76,
				TotalAmount:  9.16,
				Currency:     "USD",
				TransitDays:  3,
				DeliveryDate: time.Now().AddDate(0, 0, 3).Format("2006-01-02"),
			},
			{
				OfferID:      "offer-" + uuid.New().String()[:8],
				ServiceCode:  "PCL_EXP",
				ServiceName:  "Parceline Express",
				ServiceLevel: "express",
				BaseAmount:   16.90,
				TaxAmount:    1.52,
				TotalAmount:  18.42,
				Currency:     "USD",
				TransitDays:  1,
				DeliveryDate: time.Now().AddDate(0, 0, 1).Format("2006-01-02"),
				Guaranteed:   true,
			},
		},
	}, nil
}

// CreateBooking returns a booked shipment.
func (m *MockAPIClient) CreateBooking(ctx context.Context, req *BookingAPIRequest) (*BookingAPIResponse, error) {
	if err := m.simulate(); err != nil {
		return nil, err
	}
	if m.OnCreateBooking != nil {
		return m.OnCreateBooking(ctx, req)
	}

	bookingID := "pb-" + uuid.New().String()[:8]
	trackingCode := fmt.Sprintf("PCL%010d", time.Now().UnixNano()%10000000000)
	return &BookingAPIResponse{
		BookingID:    bookingID,
		TrackingCode: trackingCode,
		TrackingURL:  "https://track.parceline.example/" + trackingCode,
		Status:       "booked",
		ServiceName:  "Parceline Standard",
		TotalAmount:  9.16,
		Currency:     "USD",
		DeliveryDate: time.Now().AddDate(0, 0, 3).Format("2006-01-02"),
		LabelURL:     "https://labels.parceline.example/" + bookingID + ".pdf",
	}, nil
}

// GetTracking returns an in-transit shipment with two events.
func (m *MockAPIClient) GetTracking(ctx context.Context, bookingID string) (*TrackingAPIResponse, error) {
	if err := m.simulate(); err != nil {
		return nil, err
	}
	if m.OnGetTracking != nil {
		return m.OnGetTracking(ctx, bookingID)
	}

	now := time.Now()
	return &TrackingAPIResponse{
		BookingID:    bookingID,
		TrackingCode: "PCL0000000042",
		Status:       "in_transit",
		DeliveryDate: now.AddDate(0, 0, 2).Format("2006-01-02"),
		Events: []APITrackEvent{
			{
				Timestamp:   now.Add(-26 * time.Hour).Format(time.RFC3339),
				Status:      "picked_up",
				Description: "Parcel collected from consignor",
				Location:    "Origin depot",
			},
			{
				Timestamp:   now.Add(-3 * time.Hour).Format(time.RFC3339),
				Status:      "in_transit",
				Description: "Departed sorting facility",
				Location:    "Regional hub",
			},
		},
	}, nil
}

// GetLabel returns an inline base64 label.
func (m *MockAPIClient) GetLabel(ctx context.Context, bookingID, format string) (*LabelAPIResponse, error) {
	if err := m.simulate(); err != nil {
		return nil, err
	}
	if m.OnGetLabel != nil {
		return m.OnGetLabel(ctx, bookingID, format)
	}

	if format == "" {
		format = "pdf"
	}
	return &LabelAPIResponse{
		BookingID: bookingID,
		Format:    format,
		Content:   "JVBERi0xLjQKJSBtb2NrIGxhYmVsCg==",
	}, nil
}

// CancelBooking always succeeds.
func (m *MockAPIClient) CancelBooking(ctx context.Context, bookingID, reason string) (*CancelAPIResponse, error) {
	if err := m.simulate(); err != nil {
		return nil, err
	}
	if m.OnCancelBooking != nil {
		return m.OnCancelBooking(ctx, bookingID, reason)
	}

	return &CancelAPIResponse{
		BookingID:          bookingID,
		Status:             "cancelled",
		ConfirmationNumber: "cx-" + uuid.New().String()[:8],
	}, nil
}

var _ APIClient = (*MockAPIClient)(nil)
