package provider

import (
	"errors"
	"fmt"
)

// ErrorKind classifies gateway failures
type ErrorKind string

const (
	KindConfiguration  ErrorKind = "configuration"
	KindAuthentication ErrorKind = "authentication"
	KindTransport      ErrorKind = "transport"
	KindRejection      ErrorKind = "provider_rejection"
	KindInvalidOrder   ErrorKind = "invalid_order"
)

// GenericRejectionMessage is used when the provider gives no message of its own
const GenericRejectionMessage = "Payment gateway request failed"

var (
	ErrConfiguration     = errors.New("gateway configuration error")
	ErrAuthentication    = errors.New("gateway authentication error")
	ErrTransport         = errors.New("gateway transport error")
	ErrProviderRejection = errors.New("gateway rejected the request")
	ErrInvalidOrder      = errors.New("invalid order")
	ErrUnknownProvider   = errors.New("unknown payment provider")
)

var kindSentinels = map[ErrorKind]error{
	KindConfiguration:  ErrConfiguration,
	KindAuthentication: ErrAuthentication,
	KindTransport:      ErrTransport,
	KindRejection:      ErrProviderRejection,
	KindInvalidOrder:   ErrInvalidOrder,
}

// GatewayError is returned by Pay for every failure
type GatewayError struct {
	Kind     ErrorKind
	Provider Name
	Message  string
	Err      error
}

func (e *GatewayError) Error() string {
	msg := fmt.Sprintf("%s: %s: %s", e.Provider, e.Kind, e.Message)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *GatewayError) Unwrap() error {
	return e.Err
}

// Is matches the sentinel of the error kind
func (e *GatewayError) Is(target error) bool {
	return kindSentinels[e.Kind] == target
}

// ConfigurationError reports a missing or malformed credential
func ConfigurationError(name Name, message string) error {
	return &GatewayError{Kind: KindConfiguration, Provider: name, Message: message}
}

// AuthenticationError reports a failed token or credential exchange
func AuthenticationError(name Name, message string, err error) error {
	return &GatewayError{Kind: KindAuthentication, Provider: name, Message: message, Err: err}
}

// TransportError reports a network failure or an unreadable response
func TransportError(name Name, message string, err error) error {
	return &GatewayError{Kind: KindTransport, Provider: name, Message: message, Err: err}
}

// RejectionError reports a business decline. An empty message becomes the generic one.
func RejectionError(name Name, message string) error {
	if message == "" {
		message = GenericRejectionMessage
	}
	return &GatewayError{Kind: KindRejection, Provider: name, Message: message}
}

// InvalidOrderError reports an order the provider cannot accept
func InvalidOrderError(name Name, message string) error {
	return &GatewayError{Kind: KindInvalidOrder, Provider: name, Message: message}
}

// KindOf returns the kind of a gateway error, or "" for other errors
func KindOf(err error) ErrorKind {
	var gerr *GatewayError
	if errors.As(err, &gerr) {
		return gerr.Kind
	}
	return ""
}

// MessageOf returns the user facing message of a gateway error
func MessageOf(err error) string {
	var gerr *GatewayError
	if errors.As(err, &gerr) {
		return gerr.Message
	}
	if err == nil {
		return ""
	}
	return err.Error()
}
