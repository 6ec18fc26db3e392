package parceline

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/shopmesh/parceline-bridge/pkg/shipper/parceline/auth"
	"golang.org/x/time/rate"
)

// HTTPAPIClient is the production APIClient. Every call carries a
// bearer token from the TokenSource and the subscription key header,
// and passes through a client-side rate limiter so the bridge stays
// under the provider's request quota.
type HTTPAPIClient struct {
	baseURL         string
	subscriptionKey string
	tokens          *auth.TokenSource
	httpClient      *http.Client
	limiter         *rate.Limiter
}

// HTTPAPIClientConfig holds configuration for the HTTP client.
type HTTPAPIClientConfig struct {
	BaseURL         string
	SubscriptionKey string
	Tokens          *auth.TokenSource
	Timeout         time.Duration
	// RequestsPerSecond bounds outbound calls; 0 means 10 rps.
	RequestsPerSecond float64
}

// NewHTTPAPIClient creates the production API client.
func NewHTTPAPIClient(cfg HTTPAPIClientConfig) *HTTPAPIClient {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	rps := cfg.RequestsPerSecond
	if rps == 0 {
		rps = 10
	}

	return &HTTPAPIClient{
		baseURL:         cfg.BaseURL,
		subscriptionKey: cfg.SubscriptionKey,
		tokens:          cfg.Tokens,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		limiter: rate.NewLimiter(rate.Limit(rps), int(rps)*2),
	}
}

// RequestQuote prices a route via POST /v2/quotes.
func (c *HTTPAPIClient) RequestQuote(ctx context.Context, req *QuoteAPIRequest) (*QuoteAPIResponse, error) {
	resp, err := c.doRequest(ctx, http.MethodPost, "/v2/quotes", req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return nil, c.parseError(resp)
	}

	var result QuoteAPIResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("decode quote response: %w", err)
	}
	return &result, nil
}

// CreateBooking submits a shipment via POST /v2/bookings.
func (c *HTTPAPIClient) CreateBooking(ctx context.Context, req *BookingAPIRequest) (*BookingAPIResponse, error) {
	resp, err := c.doRequest(ctx, http.MethodPost, "/v2/bookings", req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return nil, c.parseError(resp)
	}

	var result BookingAPIResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("decode booking response: %w", err)
	}
	return &result, nil
}

// GetTracking fetches events via GET /v2/bookings/{id}/tracking.
func (c *HTTPAPIClient) GetTracking(ctx context.Context, bookingID string) (*TrackingAPIResponse, error) {
	path := fmt.Sprintf("/v2/bookings/%s/tracking", url.PathEscape(bookingID))

	resp, err := c.doRequest(ctx, http.MethodGet, path, nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, c.parseError(resp)
	}

	var result TrackingAPIResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("decode tracking response: %w", err)
	}
	result.BookingID = bookingID
	return &result, nil
}

// GetLabel fetches the label via GET /v2/bookings/{id}/label.
func (c *HTTPAPIClient) GetLabel(ctx context.Context, bookingID, format string) (*LabelAPIResponse, error) {
	path := fmt.Sprintf("/v2/bookings/%s/label", url.PathEscape(bookingID))
	if format != "" {
		path += "?format=" + url.QueryEscape(format)
	}

	resp, err := c.doRequest(ctx, http.MethodGet, path, nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, c.parseError(resp)
	}

	var result LabelAPIResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("decode label response: %w", err)
	}
	result.BookingID = bookingID
	return &result, nil
}

// CancelBooking cancels via POST /v2/bookings/{id}/cancel.
func (c *HTTPAPIClient) CancelBooking(ctx context.Context, bookingID, reason string) (*CancelAPIResponse, error) {
	path := fmt.Sprintf("/v2/bookings/%s/cancel", url.PathEscape(bookingID))
	body := map[string]string{"reason": reason}

	resp, err := c.doRequest(ctx, http.MethodPost, path, body)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNoContent {
		return &CancelAPIResponse{BookingID: bookingID, Status: "cancelled"}, nil
	}
	if resp.StatusCode != http.StatusOK {
		return nil, c.parseError(resp)
	}

	var result CancelAPIResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("decode cancel response: %w", err)
	}
	return &result, nil
}

// doRequest performs an authenticated request against the provider.
// A 401 expires the cached token so the next call re-authenticates.
func (c *HTTPAPIClient) doRequest(ctx context.Context, method, path string, body interface{}) (*http.Response, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	token, err := c.tokens.Token(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquire token: %w", err)
	}

	var bodyReader io.Reader
	if body != nil {
		jsonBody, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("marshal request body: %w", err)
		}
		bodyReader = bytes.NewReader(jsonBody)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Ocp-Apim-Subscription-Key", c.subscriptionKey)
	req.Header.Set("User-Agent", "parceline-bridge/1.0")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode == http.StatusUnauthorized {
		if invErr := c.tokens.Invalidate(ctx); invErr != nil {
			// Next call will just re-derive validity from expiry.
			_ = invErr
		}
	}

	return resp, nil
}

// parseError extracts a structured error from a non-2xx response.
func (c *HTTPAPIClient) parseError(resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 8192))

	var apiErr APIError
	if err := json.Unmarshal(body, &apiErr); err == nil && apiErr.Code != "" {
		apiErr.StatusCode = resp.StatusCode
		return &apiErr
	}

	var simpleErr struct {
		Error   string `json:"error"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(body, &simpleErr); err == nil {
		msg := simpleErr.Error
		if msg == "" {
			msg = simpleErr.Message
		}
		if msg != "" {
			return &APIError{
				Code:       fmt.Sprintf("HTTP_%d", resp.StatusCode),
				Message:    msg,
				StatusCode: resp.StatusCode,
			}
		}
	}

	return &APIError{
		Code:       fmt.Sprintf("HTTP_%d", resp.StatusCode),
		Message:    string(body),
		StatusCode: resp.StatusCode,
	}
}

var _ APIClient = (*HTTPAPIClient)(nil)
