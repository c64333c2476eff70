package exchanges

import (
	"errors"
	"fmt"
)

var (
	// ErrNotSupported is returned when the exchange does not support the requested feature.
	ErrNotSupported = errors.New("operation not supported by exchange")

	// ErrInvalidRequest indicates validation failures before hitting exchange API.
	ErrInvalidRequest = errors.New("invalid exchange request")

	// ErrMissingCredentials indicates the adapter was constructed without API credentials.
	ErrMissingCredentials = errors.New("exchange api credentials missing")

	// ErrInvalidInstrument indicates an unknown symbol or unusable contract metadata.
	ErrInvalidInstrument = errors.New("invalid or unknown instrument")

	// ErrOrderTooSmall indicates the computed order size is below the instrument minimum.
	ErrOrderTooSmall = errors.New("order size below instrument minimum")
)

// CommunicationError wraps transport level failures (timeouts, DNS,
// connection resets) so callers can tell them apart from business
// rejections returned by the venue.
type CommunicationError struct {
	Exchange string
	Op       string
	Err      error
}

// Error implements the error interface
func (e *CommunicationError) Error() string {
	return fmt.Sprintf("%s: %s: communication error: %v", e.Exchange, e.Op, e.Err)
}

// Unwrap returns the underlying transport error
func (e *CommunicationError) Unwrap() error {
	return e.Err
}

// NewCommunicationError creates a transport classification wrapper.
func NewCommunicationError(exchange, op string, err error) *CommunicationError {
	return &CommunicationError{Exchange: exchange, Op: op, Err: err}
}

// IsCommunicationError reports whether err wraps a transport failure.
func IsCommunicationError(err error) bool {
	var ce *CommunicationError
	return errors.As(err, &ce)
}

// ExchangeError carries a business rejection as reported by the venue,
// with its native error code preserved.
type ExchangeError struct {
	Exchange string
	Code     string
	Message  string
}

// Error implements the error interface
func (e *ExchangeError) Error() string {
	return fmt.Sprintf("%s error %s: %s", e.Exchange, e.Code, e.Message)
}

// NewExchangeError creates a venue rejection error.
func NewExchangeError(exchange, code, message string) *ExchangeError {
	return &ExchangeError{Exchange: exchange, Code: code, Message: message}
}

// AsExchangeError extracts a venue rejection from an error chain.
func AsExchangeError(err error) (*ExchangeError, bool) {
	var ee *ExchangeError
	if errors.As(err, &ee) {
		return ee, true
	}
	return nil, false
}
