package shipper

import (
	"errors"
	"fmt"
)

// ShipperError is an error originating from a shipping provider.
type ShipperError struct {
	Carrier    string
	Code       string
	Message    string
	StatusCode int
	Retryable  bool
	Cause      error
}

// Error implements the error interface.
func (e *ShipperError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s error (%s): %s: %v", e.Carrier, e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s error (%s): %s", e.Carrier, e.Code, e.Message)
}

// Unwrap returns the underlying cause.
func (e *ShipperError) Unwrap() error {
	return e.Cause
}

// Is matches ShipperErrors by code.
func (e *ShipperError) Is(target error) bool {
	t, ok := target.(*ShipperError)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// NewShipperError creates a new ShipperError.
func NewShipperError(carrier, code, message string) *ShipperError {
	return &ShipperError{
		Carrier: carrier,
		Code:    code,
		Message: message,
	}
}

// WithCause attaches an underlying error.
func (e *ShipperError) WithCause(err error) *ShipperError {
	e.Cause = err
	return e
}

// WithStatusCode attaches the provider's HTTP status.
func (e *ShipperError) WithStatusCode(code int) *ShipperError {
	e.StatusCode = code
	return e
}

// WithRetryable marks whether the caller may retry.
func (e *ShipperError) WithRetryable(retryable bool) *ShipperError {
	e.Retryable = retryable
	return e
}

// Sentinel errors for common provider failure modes.
var (
	// ErrAuthenticationFailed indicates the credential exchange or an
	// authenticated call was rejected as unauthorized.
	ErrAuthenticationFailed = errors.New("authentication failed")

	// ErrPermissionDenied indicates the credentials are valid but not
	// allowed to perform the operation.
	ErrPermissionDenied = errors.New("permission denied")

	// ErrRateLimitExceeded indicates the provider throttled the caller.
	ErrRateLimitExceeded = errors.New("rate limit exceeded")

	// ErrServiceUnavailable indicates a transient provider outage.
	ErrServiceUnavailable = errors.New("service unavailable")

	// ErrInvalidAddress indicates the address is invalid or incomplete.
	ErrInvalidAddress = errors.New("invalid address")

	// ErrInvalidPackage indicates parcel dimensions or weight are invalid.
	ErrInvalidPackage = errors.New("invalid package")

	// ErrQuoteExpired indicates the quote can no longer be booked against.
	ErrQuoteExpired = errors.New("quote has expired")

	// ErrOrderNotFound indicates the booking ID is unknown to the provider.
	ErrOrderNotFound = errors.New("order not found")

	// ErrCancellationNotAllowed indicates the booking can no longer be cancelled.
	ErrCancellationNotAllowed = errors.New("cancellation not allowed")

	// ErrLabelNotAvailable indicates the label has not been generated yet.
	ErrLabelNotAvailable = errors.New("label not available")

	// ErrCarrierNotFound indicates the requested provider is not registered.
	ErrCarrierNotFound = errors.New("carrier not found")
)

// IsRetryable reports whether the caller may retry the failed operation.
func IsRetryable(err error) bool {
	var shipperErr *ShipperError
	if errors.As(err, &shipperErr) {
		return shipperErr.Retryable
	}
	return errors.Is(err, ErrServiceUnavailable) || errors.Is(err, ErrRateLimitExceeded)
}
