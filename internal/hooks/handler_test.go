package hooks

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gorilla/mux"
	"github.com/shopmesh/parceline-bridge/internal/telemetry"
	"github.com/shopmesh/parceline-bridge/pkg/shipper"
	"github.com/shopmesh/parceline-bridge/pkg/shipper/mock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.uber.org/zap"
)

// Prometheus collectors register into the default registry, so the
// test binary holds a single shared Metrics instance.
var testMetrics = telemetry.NewMetrics()

// failingShipper errors on every operation.
type failingShipper struct{}

func (failingShipper) Name() string { return "broken" }
func (failingShipper) GetQuote(context.Context, *shipper.QuoteRequest) (*shipper.QuoteResponse, error) {
	return nil, errors.New("provider down")
}
func (failingShipper) CreateOrder(context.Context, *shipper.CreateOrderRequest) (*shipper.CreateOrderResponse, error) {
	return nil, errors.New("provider down")
}
func (failingShipper) GetTracking(context.Context, *shipper.TrackingRequest) (*shipper.TrackingResponse, error) {
	return nil, errors.New("provider down")
}
func (failingShipper) GetLabel(context.Context, *shipper.GetLabelRequest) (*shipper.GetLabelResponse, error) {
	return nil, errors.New("provider down")
}
func (failingShipper) CancelOrder(context.Context, *shipper.CancelOrderRequest) (*shipper.CancelOrderResponse, error) {
	return nil, errors.New("provider down")
}

func newTestHandler(t *testing.T, shippers ...shipper.Shipper) *Handler {
	t.Helper()
	registry := shipper.NewRegistry()
	for _, s := range shippers {
		registry.Register(s)
	}
	cfg := HandlerConfig{
		Origin: shipper.Address{
			Name: "Shopmesh Store", Line1: "1 Warehouse Way", City: "New York",
			PostalCode: "10001", CountryCode: "US",
		},
		Sender:              shipper.Contact{Name: "Shopmesh Store", Phone: "212-555-0100"},
		DefaultServiceLevel: "standard",
	}
	return NewHandler(cfg, registry, otelzap.New(zap.NewNop()), testMetrics)
}

func testOrder() Order {
	return Order{
		ID:       "ord-1",
		Currency: "USD",
		Customer: &Customer{FirstName: "Pat", LastName: "Doe", Phone: "312-555-0100"},
		ShippingAddress: &OrderAddress{
			Line1: "456 Oak Ave", City: "Chicago", PostalCode: "60601", CountryCode: "US",
		},
		Lines: []OrderLine{{ID: "l1", Title: "Mug", Quantity: 1, WeightKG: floatPtr(0.5)}},
	}
}

func postJSON(t *testing.T, handler http.HandlerFunc, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	raw, err := json.Marshal(body)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/", bytes.NewReader(raw))
	rec := httptest.NewRecorder()
	handler(rec, req)
	return rec
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) ErrorResponse {
	t.Helper()
	var errResp ErrorResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&errResp))
	return errResp
}

func TestCalculate_Success(t *testing.T) {
	h := newTestHandler(t, mock.New("mockcarrier"))

	rec := postJSON(t, h.Calculate, CalculateRequest{Order: testOrder()})

	require.Equal(t, http.StatusOK, rec.Code)
	var resp CalculateResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, 12.50, resp.Amount, "cheapest standard rate wins")
	assert.Equal(t, "USD", resp.Currency)
	assert.True(t, resp.TaxInclusive)
	assert.Equal(t, "mockcarrier", resp.Metadata["carrier"])
	assert.NotEmpty(t, resp.Metadata["quoteId"])
	assert.NotEmpty(t, resp.Metadata["rateId"])
	assert.Equal(t, "4", resp.Metadata["transitDays"])
}

func TestCalculate_ExplicitServiceLevel(t *testing.T) {
	h := newTestHandler(t, mock.New("mockcarrier"))

	rec := postJSON(t, h.Calculate, CalculateRequest{
		Order: testOrder(),
		Args:  CalculatorArgs{ServiceLevel: "express"},
	})

	require.Equal(t, http.StatusOK, rec.Code)
	var resp CalculateResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, 24.60, resp.Amount)
}

func TestCalculate_BadBody(t *testing.T) {
	h := newTestHandler(t, mock.New("mockcarrier"))

	req := httptest.NewRequest(http.MethodPost, "/", bytes.NewReader([]byte("{not json")))
	rec := httptest.NewRecorder()
	h.Calculate(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "decode", decodeError(t, rec).Stage)
}

func TestCalculate_MissingAddress(t *testing.T) {
	h := newTestHandler(t, mock.New("mockcarrier"))

	order := testOrder()
	order.ShippingAddress = nil
	rec := postJSON(t, h.Calculate, CalculateRequest{Order: order})

	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Equal(t, "address", decodeError(t, rec).Stage)
}

func TestCalculate_UnknownCarrier(t *testing.T) {
	h := newTestHandler(t, mock.New("mockcarrier"))

	rec := postJSON(t, h.Calculate, CalculateRequest{
		Order: testOrder(),
		Args:  CalculatorArgs{Carrier: "nonexistent"},
	})

	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Equal(t, "carrier", decodeError(t, rec).Stage)
}

func TestCalculate_ProviderFailureSurfaces(t *testing.T) {
	h := newTestHandler(t, failingShipper{})

	rec := postJSON(t, h.Calculate, CalculateRequest{Order: testOrder()})

	assert.Equal(t, http.StatusBadGateway, rec.Code, "a failed calculation must not produce a price")
	errResp := decodeError(t, rec)
	assert.Equal(t, "quote", errResp.Stage)
	assert.Contains(t, errResp.Error, "provider down")
}

func TestCreateFulfillment_Success(t *testing.T) {
	h := newTestHandler(t, mock.New("mockcarrier"))

	rec := postJSON(t, h.CreateFulfillment, FulfillRequest{Order: testOrder()})

	require.Equal(t, http.StatusOK, rec.Code)
	var resp FulfillResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.NotEmpty(t, resp.TrackingCode)
	assert.Equal(t, "mockcarrier", resp.Metadata["carrier"])
	assert.Equal(t, "booked", resp.Metadata["status"])
	assert.NotEmpty(t, resp.Metadata["bookingId"])
}

func TestCreateFulfillment_ProviderFailureSurfaces(t *testing.T) {
	h := newTestHandler(t, failingShipper{})

	rec := postJSON(t, h.CreateFulfillment, FulfillRequest{Order: testOrder()})

	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.Equal(t, "booking", decodeError(t, rec).Stage)
}

func TestTracking_Success(t *testing.T) {
	h := newTestHandler(t, mock.New("mockcarrier"))

	req := httptest.NewRequest(http.MethodGet, "/hooks/fulfillment/pb-42/tracking", nil)
	req = mux.SetURLVars(req, map[string]string{"id": "pb-42"})
	rec := httptest.NewRecorder()
	h.Tracking(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp shipper.TrackingResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, "pb-42", resp.OrderID)
	assert.Equal(t, shipper.StatusInTransit, resp.Status)
}

func TestLabel_Success(t *testing.T) {
	h := newTestHandler(t, mock.New("mockcarrier"))

	req := httptest.NewRequest(http.MethodGet, "/hooks/fulfillment/pb-42/label?format=zpl", nil)
	req = mux.SetURLVars(req, map[string]string{"id": "pb-42"})
	rec := httptest.NewRecorder()
	h.Label(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp shipper.GetLabelResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, shipper.LabelZPL, resp.Label.Format)
	assert.NotEmpty(t, resp.Label.URL)
}

func TestCancel_Success(t *testing.T) {
	h := newTestHandler(t, mock.New("mockcarrier"))

	raw, err := json.Marshal(CancelFulfillmentRequest{Reason: "customer cancelled"})
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, "/hooks/fulfillment/pb-42/cancel", bytes.NewReader(raw))
	req = mux.SetURLVars(req, map[string]string{"id": "pb-42"})
	rec := httptest.NewRecorder()
	h.Cancel(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp shipper.CancelOrderResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, "pb-42", resp.OrderID)
	assert.Equal(t, shipper.StatusCancelled, resp.Status)
}

func TestCancel_FailureSurfaces(t *testing.T) {
	h := newTestHandler(t, failingShipper{})

	req := httptest.NewRequest(http.MethodPost, "/hooks/fulfillment/pb-42/cancel", nil)
	req = mux.SetURLVars(req, map[string]string{"id": "pb-42"})
	rec := httptest.NewRecorder()
	h.Cancel(rec, req)

	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.Equal(t, "cancel", decodeError(t, rec).Stage)
}
