package parceline

import (
	"context"
	"fmt"
)

// APIClient defines the Parceline API operations the client needs.
// The split between this interface and its HTTP implementation lets
// tests inject a mock.
type APIClient interface {
	// RequestQuote prices a route. POST /v2/quotes
	RequestQuote(ctx context.Context, req *QuoteAPIRequest) (*QuoteAPIResponse, error)

	// CreateBooking submits a shipment. POST /v2/bookings
	CreateBooking(ctx context.Context, req *BookingAPIRequest) (*BookingAPIResponse, error)

	// GetTracking fetches tracking events. GET /v2/bookings/{id}/tracking
	GetTracking(ctx context.Context, bookingID string) (*TrackingAPIResponse, error)

	// GetLabel fetches the label. GET /v2/bookings/{id}/label
	GetLabel(ctx context.Context, bookingID, format string) (*LabelAPIResponse, error)

	// CancelBooking cancels a booking. POST /v2/bookings/{id}/cancel
	CancelBooking(ctx context.Context, bookingID, reason string) (*CancelAPIResponse, error)
}

// ============================================================================
// Quote endpoint shapes.
//
// The quote payload addresses the route by city codes and carries only
// a parcel summary. It is NOT structurally compatible with the booking
// payload below; a booking cannot be derived from a quote request.
// ============================================================================

// QuoteAPIRequest is the body of POST /v2/quotes.
type QuoteAPIRequest struct {
	OriginCityCode        string      `json:"origin_city_code"`
	OriginPostalCode      string      `json:"origin_postal_code,omitempty"`
	DestinationCityCode   string      `json:"destination_city_code"`
	DestinationPostalCode string      `json:"destination_postal_code,omitempty"`
	ServiceLevel          string      `json:"service_level"`
	Parcels               []APIParcel `json:"parcels"`
	DeclaredValue         float64     `json:"declared_value,omitempty"`
	Currency              string      `json:"currency,omitempty"`
}

// APIParcel is a parcel summary used by both endpoints.
type APIParcel struct {
	WeightKG float64 `json:"weight_kg"`
	LengthCM float64 `json:"length_cm"`
	WidthCM  float64 `json:"width_cm"`
	HeightCM float64 `json:"height_cm"`
	Type     string  `json:"type"` // envelope, small_box, box, pallet
}

// QuoteAPIResponse is the body returned by POST /v2/quotes.
type QuoteAPIResponse struct {
	QuoteID   string     `json:"quote_id"`
	ExpiresAt string     `json:"expires_at"` // RFC 3339
	Offers    []APIOffer `json:"offers"`
}

// APIOffer is one priced option inside a quote.
type APIOffer struct {
	OfferID      string  `json:"offer_id"`
	ServiceCode  string  `json:"service_code"`
	ServiceName  string  `json:"service_name"`
	ServiceLevel string  `json:"service_level"`
	BaseAmount   float64 `json:"base_amount"`
	TaxAmount    float64 `json:"tax_amount"`
	TotalAmount  float64 `json:"total_amount"`
	Currency     string  `json:"currency"`
	TransitDays  int     `json:"transit_days"`
	DeliveryDate string  `json:"delivery_date,omitempty"` // YYYY-MM-DD
	Guaranteed   bool    `json:"guaranteed"`
}

// ============================================================================
// Booking endpoint shapes.
//
// The booking payload carries full consignor/consignee party records
// (contact + address nested per party) and MDM account designations.
// ============================================================================

// BookingAPIRequest is the body of POST /v2/bookings.
type BookingAPIRequest struct {
	Reference       string      `json:"reference"` // idempotency key, max 128 chars
	QuoteID         string      `json:"quote_id,omitempty"`
	OfferID         string      `json:"offer_id,omitempty"`
	ServiceLevel    string      `json:"service_level"`
	PayerMDMAccount string      `json:"payer_mdm_account"`
	Consignor       APIParty    `json:"consignor"`
	Consignee       APIParty    `json:"consignee"`
	Parcels         []APIParcel `json:"parcels"`
	CODAmount       float64     `json:"cod_amount,omitempty"`
	Currency        string      `json:"currency,omitempty"`
	Note            string      `json:"note,omitempty"`
}

// APIParty is a booking party: contact plus full address.
type APIParty struct {
	MDMAccount string     `json:"mdm_account,omitempty"`
	Contact    APIContact `json:"contact"`
	Address    APIAddress `json:"address"`
}

// APIContact is the person attached to a booking party.
type APIContact struct {
	FullName string `json:"full_name"`
	Company  string `json:"company,omitempty"`
	Phone    string `json:"phone"`
	Email    string `json:"email,omitempty"`
}

// APIAddress is the full address of a booking party.
type APIAddress struct {
	Line1       string `json:"line1"`
	Line2       string `json:"line2,omitempty"`
	City        string `json:"city"`
	CityCode    string `json:"city_code,omitempty"`
	Province    string `json:"province,omitempty"`
	PostalCode  string `json:"postal_code"`
	CountryCode string `json:"country_code"`
	Residential bool   `json:"residential,omitempty"`
	Note        string `json:"note,omitempty"`
}

// BookingAPIResponse is the body returned by POST /v2/bookings.
type BookingAPIResponse struct {
	BookingID     string  `json:"booking_id"`
	TrackingCode  string  `json:"tracking_code"`
	TrackingURL   string  `json:"tracking_url,omitempty"`
	Status        string  `json:"status"`
	ServiceName   string  `json:"service_name"`
	TotalAmount   float64 `json:"total_amount"`
	Currency      string  `json:"currency"`
	DeliveryDate  string  `json:"delivery_date,omitempty"` // YYYY-MM-DD
	LabelURL      string  `json:"label_url,omitempty"`
	AlreadyBooked bool    `json:"already_booked"` // reference seen before
}

// ============================================================================
// Tracking, label and cancellation shapes.
// ============================================================================

// TrackingAPIResponse is the body of GET /v2/bookings/{id}/tracking.
type TrackingAPIResponse struct {
	BookingID    string          `json:"booking_id"`
	TrackingCode string          `json:"tracking_code"`
	Status       string          `json:"status"`
	DeliveryDate string          `json:"delivery_date,omitempty"`
	Events       []APITrackEvent `json:"events"`
}

// APITrackEvent is one tracking event.
type APITrackEvent struct {
	Timestamp   string `json:"timestamp"` // RFC 3339
	Status      string `json:"status"`
	Description string `json:"description"`
	Location    string `json:"location,omitempty"`
	Code        string `json:"code,omitempty"`
}

// LabelAPIResponse is the body of GET /v2/bookings/{id}/label.
type LabelAPIResponse struct {
	BookingID string `json:"booking_id"`
	Format    string `json:"format"`
	Content   string `json:"content,omitempty"` // base64 when inline
	URL       string `json:"url,omitempty"`     // when hosted
	ExpiresAt string `json:"expires_at,omitempty"`
}

// CancelAPIResponse is the body of POST /v2/bookings/{id}/cancel.
type CancelAPIResponse struct {
	BookingID          string  `json:"booking_id"`
	Status             string  `json:"status"`
	RefundAmount       float64 `json:"refund_amount,omitempty"`
	Currency           string  `json:"currency,omitempty"`
	ConfirmationNumber string  `json:"confirmation_number,omitempty"`
}

// APIError is an error payload from the Parceline API.
type APIError struct {
	Code       string            `json:"code"`
	Message    string            `json:"message"`
	Fields     map[string]string `json:"fields,omitempty"`
	StatusCode int               `json:"-"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}
