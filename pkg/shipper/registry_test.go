package shipper_test

import (
	"context"
	"errors"
	"testing"

	"github.com/shopmesh/parceline-bridge/pkg/shipper"
	"github.com/shopmesh/parceline-bridge/pkg/shipper/mock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type brokenShipper struct{}

func (brokenShipper) Name() string { return "broken" }
func (brokenShipper) GetQuote(context.Context, *shipper.QuoteRequest) (*shipper.QuoteResponse, error) {
	return nil, errors.New("provider down")
}
func (brokenShipper) CreateOrder(context.Context, *shipper.CreateOrderRequest) (*shipper.CreateOrderResponse, error) {
	return nil, errors.New("provider down")
}
func (brokenShipper) GetTracking(context.Context, *shipper.TrackingRequest) (*shipper.TrackingResponse, error) {
	return nil, errors.New("provider down")
}
func (brokenShipper) GetLabel(context.Context, *shipper.GetLabelRequest) (*shipper.GetLabelResponse, error) {
	return nil, errors.New("provider down")
}
func (brokenShipper) CancelOrder(context.Context, *shipper.CancelOrderRequest) (*shipper.CancelOrderResponse, error) {
	return nil, errors.New("provider down")
}

func TestRegistry_FirstRegisteredIsDefault(t *testing.T) {
	registry := shipper.NewRegistry()
	registry.Register(mock.New("alpha"))
	registry.Register(mock.New("beta"))

	s, err := registry.Get("")
	require.NoError(t, err)
	assert.Equal(t, "alpha", s.Name())
}

func TestRegistry_SetDefault(t *testing.T) {
	registry := shipper.NewRegistry()
	registry.Register(mock.New("alpha"))
	registry.Register(mock.New("beta"))

	require.NoError(t, registry.SetDefault("beta"))

	s, err := registry.Get("")
	require.NoError(t, err)
	assert.Equal(t, "beta", s.Name())
}

func TestRegistry_SetDefaultUnknown(t *testing.T) {
	registry := shipper.NewRegistry()
	registry.Register(mock.New("alpha"))

	err := registry.SetDefault("missing")
	assert.ErrorIs(t, err, shipper.ErrCarrierNotFound)
}

func TestRegistry_GetByName(t *testing.T) {
	registry := shipper.NewRegistry()
	registry.Register(mock.New("alpha"))
	registry.Register(mock.New("beta"))

	s, err := registry.Get("beta")
	require.NoError(t, err)
	assert.Equal(t, "beta", s.Name())
}

func TestRegistry_GetUnknown(t *testing.T) {
	registry := shipper.NewRegistry()
	registry.Register(mock.New("alpha"))

	_, err := registry.Get("missing")
	assert.ErrorIs(t, err, shipper.ErrCarrierNotFound)
}

func TestRegistry_GetEmptyRegistry(t *testing.T) {
	registry := shipper.NewRegistry()

	_, err := registry.Get("")
	assert.ErrorIs(t, err, shipper.ErrCarrierNotFound)
}

func TestRegistry_CountAndNames(t *testing.T) {
	registry := shipper.NewRegistry()
	registry.Register(mock.New("alpha"))
	registry.Register(mock.New("beta"))

	assert.Equal(t, 2, registry.Count())
	assert.ElementsMatch(t, []string{"alpha", "beta"}, registry.Names())
	assert.Len(t, registry.All(), 2)
}

func TestRegistry_GetAllQuotes(t *testing.T) {
	registry := shipper.NewRegistry()
	registry.Register(mock.New("alpha"))
	registry.Register(mock.New("beta"))

	results, errs := registry.GetAllQuotes(context.Background(), &shipper.QuoteRequest{})

	assert.Len(t, results, 2)
	assert.Empty(t, errs)
}

func TestRegistry_GetAllQuotesPartialFailure(t *testing.T) {
	registry := shipper.NewRegistry()
	registry.Register(mock.New("alpha"))
	registry.Register(brokenShipper{})

	results, errs := registry.GetAllQuotes(context.Background(), &shipper.QuoteRequest{})

	require.Len(t, results, 1, "one provider outage must not blank the rate table")
	require.Len(t, errs, 1)
	assert.Contains(t, errs[0].Error(), "broken")
}

func TestRegistry_GetAllQuotesEmpty(t *testing.T) {
	registry := shipper.NewRegistry()

	results, errs := registry.GetAllQuotes(context.Background(), &shipper.QuoteRequest{})

	assert.Empty(t, results)
	require.Len(t, errs, 1)
	assert.ErrorIs(t, errs[0], shipper.ErrCarrierNotFound)
}
