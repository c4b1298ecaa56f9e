package provider

import (
	"context"
	"time"

	"github.com/onwards-ai/xboard-payments/infra/opensearch"
)

// Attempt is one audited pay or notify call
type Attempt struct {
	Provider   Name
	Operation  string // "pay" or "notify"
	RequestID  string
	TradeNo    string
	CallbackNo string
	Amount     int64
	Currency   string
	State      State
	Err        error
	Duration   time.Duration
	ClientIP   string
}

// PaymentLogger records payment attempts for auditing
type PaymentLogger interface {
	LogAttempt(ctx context.Context, attempt Attempt) error
}

// NopPaymentLogger discards attempts
type NopPaymentLogger struct{}

// LogAttempt implements PaymentLogger
func (NopPaymentLogger) LogAttempt(context.Context, Attempt) error { return nil }

// OpenSearchPaymentLogger indexes attempts into the provider audit index
type OpenSearchPaymentLogger struct {
	logger *opensearch.Logger
}

// NewOpenSearchPaymentLogger wraps an OpenSearch logger
func NewOpenSearchPaymentLogger(l *opensearch.Logger) *OpenSearchPaymentLogger {
	return &OpenSearchPaymentLogger{logger: l}
}

// LogAttempt implements PaymentLogger
func (l *OpenSearchPaymentLogger) LogAttempt(ctx context.Context, attempt Attempt) error {
	doc := opensearch.PaymentLog{
		Provider:   string(attempt.Provider),
		Operation:  attempt.Operation,
		RequestID:  attempt.RequestID,
		TradeNo:    attempt.TradeNo,
		CallbackNo: attempt.CallbackNo,
		Amount:     attempt.Amount,
		Currency:   attempt.Currency,
		State:      string(attempt.State),
		DurationMs: attempt.Duration.Milliseconds(),
		ClientIP:   attempt.ClientIP,
	}
	if attempt.Err != nil {
		doc.ErrorKind = string(KindOf(attempt.Err))
		doc.Error = attempt.Err.Error()
	}
	return l.logger.LogPaymentRequest(ctx, doc)
}

type requestIDKey struct{}

// WithRequestID stores a request id for logs and audit entries
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, id)
}

// RequestIDFromContext returns the request id stored by WithRequestID
func RequestIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}
