package provider

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGatewayError(t *testing.T) {
	cause := errors.New("dial tcp: connection refused")
	err := TransportError(HitPay, "request failed", cause)

	assert.True(t, errors.Is(err, ErrTransport))
	assert.False(t, errors.Is(err, ErrProviderRejection))
	assert.True(t, errors.Is(err, cause))
	assert.Equal(t, KindTransport, KindOf(err))
	assert.Equal(t, "request failed", MessageOf(err))
	assert.Equal(t, "hitpay: transport: request failed: dial tcp: connection refused", err.Error())

	wrapped := fmt.Errorf("pay: %w", err)
	assert.Equal(t, KindTransport, KindOf(wrapped))
	assert.True(t, errors.Is(wrapped, ErrTransport))
}

func TestErrorConstructors(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		sentinel error
		kind     ErrorKind
		message  string
	}{
		{"configuration", ConfigurationError(Omise, "missing key"), ErrConfiguration, KindConfiguration, "missing key"},
		{"authentication", AuthenticationError(PayPal, "no token", nil), ErrAuthentication, KindAuthentication, "no token"},
		{"rejection", RejectionError(SmoochPay, "insufficient funds"), ErrProviderRejection, KindRejection, "insufficient funds"},
		{"generic rejection", RejectionError(SmoochPay, ""), ErrProviderRejection, KindRejection, GenericRejectionMessage},
		{"invalid order", InvalidOrderError(StripeCredit, "token missing"), ErrInvalidOrder, KindInvalidOrder, "token missing"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.ErrorIs(t, tt.err, tt.sentinel)
			assert.Equal(t, tt.kind, KindOf(tt.err))
			assert.Equal(t, tt.message, MessageOf(tt.err))
		})
	}
}

func TestKindOf_PlainError(t *testing.T) {
	assert.Equal(t, ErrorKind(""), KindOf(errors.New("boom")))
	assert.Equal(t, "boom", MessageOf(errors.New("boom")))
	assert.Equal(t, "", MessageOf(nil))
}
