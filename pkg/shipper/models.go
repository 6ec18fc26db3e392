package shipper

import (
	"time"
)

// ShipmentStatus is the normalized status of a shipment.
type ShipmentStatus string

const (
	StatusPending        ShipmentStatus = "pending"
	StatusQuoted         ShipmentStatus = "quoted"
	StatusBooked         ShipmentStatus = "booked"
	StatusPickedUp       ShipmentStatus = "picked_up"
	StatusInTransit      ShipmentStatus = "in_transit"
	StatusOutForDelivery ShipmentStatus = "out_for_delivery"
	StatusDelivered      ShipmentStatus = "delivered"
	StatusCancelled      ShipmentStatus = "cancelled"
	StatusException      ShipmentStatus = "exception"
)

// ServiceLevel is the requested delivery speed.
type ServiceLevel string

const (
	ServiceStandard ServiceLevel = "standard"
	ServiceExpress  ServiceLevel = "express"
	ServiceSameDay  ServiceLevel = "same_day"
	ServiceEconomy  ServiceLevel = "economy"
)

// PackageType classifies the physical packaging of a parcel.
type PackageType string

const (
	PackageEnvelope PackageType = "envelope"
	PackageSmallBox PackageType = "small_box"
	PackageBox      PackageType = "box"
	PackagePallet   PackageType = "pallet"
)

// WeightUnit is a weight measurement unit.
type WeightUnit string

const (
	WeightKG WeightUnit = "kg"
	WeightLB WeightUnit = "lb"
)

// DimensionUnit is a dimension measurement unit.
type DimensionUnit string

const (
	DimensionCM DimensionUnit = "cm"
	DimensionIN DimensionUnit = "in"
)

// LabelFormat is the file format of a shipping label.
type LabelFormat string

const (
	LabelPDF LabelFormat = "pdf"
	LabelPNG LabelFormat = "png"
	LabelZPL LabelFormat = "zpl"
)

// Address is a pickup or delivery address.
type Address struct {
	Name         string
	Company      string
	Line1        string
	Line2        string
	City         string
	CityCode     string // provider routing code, when known
	Province     string
	PostalCode   string
	CountryCode  string // ISO 3166-1 alpha-2
	Phone        string
	Email        string
	Instructions string
	Residential  bool
}

// Contact identifies the sender or recipient of a shipment.
type Contact struct {
	Name       string
	Company    string
	Phone      string
	Email      string
	MDMAccount string // provider master-data account, required for some booking parties
}

// Package is a single parcel in a shipment.
type Package struct {
	Reference     string
	Length        float64
	Width         float64
	Height        float64
	DimensionUnit DimensionUnit
	Weight        float64
	WeightUnit    WeightUnit
	PackageType   PackageType
	Description   string
	DeclaredValue float64
	Currency      string
}

// Money is a monetary amount in a given currency.
type Money struct {
	Amount   float64
	Currency string
}

// RateOption is one priced shipping offer from a provider.
type RateOption struct {
	RateID            string
	Carrier           string
	ServiceCode       string
	ServiceName       string
	ServiceLevel      ServiceLevel
	BaseRate          Money
	Taxes             Money
	TotalPrice        Money
	TaxInclusive      bool
	TransitDays       int
	EstimatedDelivery *time.Time
	ExpiresAt         time.Time
	Guaranteed        bool
}

// TrackingEvent is one entry in a shipment's event history.
type TrackingEvent struct {
	Timestamp   time.Time
	Description string
	Location    string
	Status      ShipmentStatus
	CarrierCode string
}

// Label is a shipping label, either inline or hosted.
type Label struct {
	Format    LabelFormat
	Data      string // base64 when inline
	URL       string // when hosted
	ExpiresAt *time.Time
}

// QuoteRequest asks a provider for shipping offers.
type QuoteRequest struct {
	Origin        Address
	Destination   Address
	Packages      []Package
	ServiceLevel  ServiceLevel
	DeclaredValue Money
}

// QuoteResponse holds the offers returned for a QuoteRequest.
type QuoteResponse struct {
	QuoteID   string
	Rates     []RateOption
	ExpiresAt time.Time
}

// CreateOrderRequest submits a booking. Note that a booking carries
// full party records and cannot be derived from a quote payload.
type CreateOrderRequest struct {
	QuoteID          string // optional, from a prior GetQuote
	RateID           string // selected rate, when quoting preceded booking
	ServiceLevel     ServiceLevel
	Sender           Contact
	SenderAddress    Address
	Recipient        Contact
	RecipientAddress Address
	Packages         []Package
	Reference        string
	Instructions     string
	CODAmount        *Money
}

// CreateOrderResponse is the provider's answer to a booking.
type CreateOrderResponse struct {
	OrderID           string
	TrackingNumber    string
	TrackingURL       string
	Status            ShipmentStatus
	Carrier           string
	ServiceName       string
	TotalCharged      Money
	EstimatedDelivery *time.Time
	LabelURL          string
}

// TrackingRequest asks for the status of a booking.
type TrackingRequest struct {
	OrderID        string
	TrackingNumber string
}

// TrackingResponse is the normalized tracking state of a booking.
type TrackingResponse struct {
	OrderID           string
	TrackingNumber    string
	Status            ShipmentStatus
	Events            []TrackingEvent
	EstimatedDelivery *time.Time
}

// GetLabelRequest asks for the label of a booking.
type GetLabelRequest struct {
	OrderID string
	Format  LabelFormat
}

// GetLabelResponse carries the label(s) of a booking.
type GetLabelResponse struct {
	OrderID          string
	Label            Label
	AdditionalLabels []Label // multi-parcel shipments
}

// CancelOrderRequest cancels a booking.
type CancelOrderRequest struct {
	OrderID string
	Reason  string
}

// CancelOrderResponse confirms a cancellation.
type CancelOrderResponse struct {
	OrderID            string
	Status             ShipmentStatus
	RefundAmount       *Money
	ConfirmationNumber string
}
