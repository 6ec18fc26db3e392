package server_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/shopmesh/parceline-bridge/internal/hooks"
	"github.com/shopmesh/parceline-bridge/internal/server"
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

func newTestRouter(t *testing.T) http.Handler {
	t.Helper()

	registry := shipper.NewRegistry()
	registry.Register(mock.New("mockcarrier"))

	cfg := server.Config{
		Port: 0,
		Hooks: hooks.HandlerConfig{
			Origin: shipper.Address{
				Line1: "1 Warehouse Way", City: "New York", PostalCode: "10001", CountryCode: "US",
			},
			Sender:              shipper.Contact{Name: "Shopmesh Store"},
			DefaultServiceLevel: "standard",
		},
	}
	return server.New(cfg, registry, otelzap.New(zap.NewNop()), testMetrics).Router()
}

func TestRouter_Health(t *testing.T) {
	router := newTestRouter(t)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", rec.Body.String())
}

func TestRouter_Metrics(t *testing.T) {
	router := newTestRouter(t)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRouter_CalculateRoute(t *testing.T) {
	router := newTestRouter(t)

	body, err := json.Marshal(hooks.CalculateRequest{
		Order: hooks.Order{
			ID: "ord-1",
			ShippingAddress: &hooks.OrderAddress{
				Line1: "456 Oak Ave", City: "Chicago", PostalCode: "60601", CountryCode: "US",
			},
		},
	})
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/hooks/shipping/calculate", bytes.NewReader(body)))

	require.Equal(t, http.StatusOK, rec.Code)
	var resp hooks.CalculateResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Greater(t, resp.Amount, 0.0)
}

func TestRouter_TrackingRouteExtractsID(t *testing.T) {
	router := newTestRouter(t)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/hooks/fulfillment/pb-42/tracking", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var resp shipper.TrackingResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, "pb-42", resp.OrderID)
}

func TestRouter_MethodNotAllowed(t *testing.T) {
	router := newTestRouter(t)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/hooks/shipping/calculate", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/hooks/fulfillment/pb-42/tracking", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestRouter_UnknownPath(t *testing.T) {
	router := newTestRouter(t)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/hooks/nope", nil))

	assert.Equal(t, http.StatusNotFound, rec.Code)
}
