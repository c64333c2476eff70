package exchanges

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCommunicationError_WrapsCause(t *testing.T) {
	cause := errors.New("connection reset by peer")
	err := NewCommunicationError("okx", "GetAccountInfo", cause)

	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "okx: GetAccountInfo: communication error: connection reset by peer", err.Error())

	assert.True(t, IsCommunicationError(err))
	assert.True(t, IsCommunicationError(fmt.Errorf("fetch balances: %w", err)))
}

func TestIsCommunicationError_RejectsOtherErrors(t *testing.T) {
	assert.False(t, IsCommunicationError(nil))
	assert.False(t, IsCommunicationError(errors.New("boom")))
	assert.False(t, IsCommunicationError(NewExchangeError("bybit", "110007", "ab not enough for new order")))
}

func TestExchangeError_CarriesVenueCode(t *testing.T) {
	err := NewExchangeError("bybit", "110007", "ab not enough for new order")
	assert.Equal(t, "bybit error 110007: ab not enough for new order", err.Error())

	wrapped := fmt.Errorf("create order: %w", err)
	got, ok := AsExchangeError(wrapped)
	require.True(t, ok)
	assert.Equal(t, "bybit", got.Exchange)
	assert.Equal(t, "110007", got.Code)

	_, ok = AsExchangeError(errors.New("boom"))
	assert.False(t, ok)
}

func TestSentinelsAreDistinct(t *testing.T) {
	sentinels := []error{
		ErrNotSupported,
		ErrInvalidRequest,
		ErrMissingCredentials,
		ErrInvalidInstrument,
		ErrOrderTooSmall,
	}
	for i, err := range sentinels {
		for j, other := range sentinels {
			if i == j {
				continue
			}
			assert.False(t, errors.Is(err, other), "%v must not match %v", err, other)
		}
	}
}
