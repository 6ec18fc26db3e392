// Package hooks adapts the Shopmesh webhook extension points to the
// shipper layer: it decodes host-framework order payloads, resolves
// missing contact and parcel data, and shapes calculator/fulfillment
// responses.
package hooks

// Order is the order record Shopmesh posts to both extension points.
type Order struct {
	ID              string            `json:"id"`
	Currency        string            `json:"currency"`
	Customer        *Customer         `json:"customer,omitempty"`
	ShippingAddress *OrderAddress     `json:"shippingAddress"`
	Lines           []OrderLine       `json:"lines"`
	Metadata        map[string]string `json:"metadata,omitempty"`
}

// Customer is the optional customer record attached to an order.
type Customer struct {
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Email     string `json:"email,omitempty"`
	Phone     string `json:"phone,omitempty"`
}

// OrderAddress is a Shopmesh address record.
type OrderAddress struct {
	FirstName   string `json:"firstName,omitempty"`
	LastName    string `json:"lastName,omitempty"`
	Company     string `json:"company,omitempty"`
	Line1       string `json:"line1"`
	Line2       string `json:"line2,omitempty"`
	City        string `json:"city"`
	CityCode    string `json:"cityCode,omitempty"`
	Province    string `json:"province,omitempty"`
	PostalCode  string `json:"postalCode"`
	CountryCode string `json:"countryCode"`
	Phone       string `json:"phone,omitempty"`
}

// OrderLine is one line item. Weight and dimensions are optional
// custom fields; absent values fall back to fixed defaults.
type OrderLine struct {
	ID       string   `json:"id"`
	SKU      string   `json:"sku,omitempty"`
	Title    string   `json:"title,omitempty"`
	Quantity int      `json:"quantity"`
	WeightKG *float64 `json:"weightKg,omitempty"`
	LengthCM *float64 `json:"lengthCm,omitempty"`
	WidthCM  *float64 `json:"widthCm,omitempty"`
	HeightCM *float64 `json:"heightCm,omitempty"`
}

// CalculatorArgs are the declarative arguments of the shipping
// calculator extension point.
type CalculatorArgs struct {
	Carrier      string `json:"carrier,omitempty"`
	ServiceLevel string `json:"serviceLevel,omitempty"`
}

// CalculateRequest is the body of POST /hooks/shipping/calculate.
type CalculateRequest struct {
	Order Order          `json:"order"`
	Args  CalculatorArgs `json:"args"`
}

// CalculateResponse is the calculator result: price, tax-inclusive
// flag and a metadata map the host framework stores on the order.
type CalculateResponse struct {
	Amount       float64           `json:"amount"`
	Currency     string            `json:"currency"`
	TaxInclusive bool              `json:"taxInclusive"`
	Metadata     map[string]string `json:"metadata,omitempty"`
}

// FulfillmentLine selects order lines to fulfill.
type FulfillmentLine struct {
	LineID   string `json:"lineId"`
	Quantity int    `json:"quantity"`
}

// FulfillArgs are the declarative arguments of the fulfillment handler.
type FulfillArgs struct {
	Carrier      string `json:"carrier,omitempty"`
	ServiceLevel string `json:"serviceLevel,omitempty"`
	QuoteID      string `json:"quoteId,omitempty"`
	RateID       string `json:"rateId,omitempty"`
}

// FulfillRequest is the body of POST /hooks/fulfillment.
type FulfillRequest struct {
	Order Order             `json:"order"`
	Lines []FulfillmentLine `json:"lines"`
	Args  FulfillArgs       `json:"args"`
}

// FulfillResponse is the fulfillment result: the tracking code and a
// metadata map.
type FulfillResponse struct {
	TrackingCode string            `json:"trackingCode"`
	Metadata     map[string]string `json:"metadata,omitempty"`
}

// CancelFulfillmentRequest is the body of POST /hooks/fulfillment/{id}/cancel.
type CancelFulfillmentRequest struct {
	Carrier string `json:"carrier,omitempty"`
	Reason  string `json:"reason,omitempty"`
}

// ErrorResponse is the error body returned by every hook. Stage names
// which step failed so checkout errors are attributable.
type ErrorResponse struct {
	Error string `json:"error"`
	Stage string `json:"stage"`
}
