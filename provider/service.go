package provider

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/onwards-ai/xboard-payments/infra/logger"
	"github.com/onwards-ai/xboard-payments/infra/metrics"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/onwards-ai/xboard-payments/provider"

// PaymentService routes pay and notify calls to configured gateways
type PaymentService struct {
	mu          sync.RWMutex
	gateways    map[Name]Gateway
	registry    *ProviderRegistry
	validate    *validator.Validate
	audit       PaymentLogger
	metrics     *metrics.Recorder
	tracer      trace.Tracer
	gatewayOpts []Option
}

// ServiceOption customizes a PaymentService
type ServiceOption func(*PaymentService)

// WithPaymentLogger sets the audit sink
func WithPaymentLogger(l PaymentLogger) ServiceOption {
	return func(s *PaymentService) {
		if l != nil {
			s.audit = l
		}
	}
}

// WithMetrics sets the metrics recorder
func WithMetrics(r *metrics.Recorder) ServiceOption {
	return func(s *PaymentService) {
		s.metrics = r
	}
}

// WithRegistry uses a registry other than DefaultRegistry
func WithRegistry(r *ProviderRegistry) ServiceOption {
	return func(s *PaymentService) {
		s.registry = r
	}
}

// WithValidator shares a validator instance
func WithValidator(v *validator.Validate) ServiceOption {
	return func(s *PaymentService) {
		if v != nil {
			s.validate = v
		}
	}
}

// WithGatewayOptions passes options to every gateway the service builds
func WithGatewayOptions(opts ...Option) ServiceOption {
	return func(s *PaymentService) {
		s.gatewayOpts = append(s.gatewayOpts, opts...)
	}
}

// NewPaymentService creates a new payment service
func NewPaymentService(opts ...ServiceOption) *PaymentService {
	s := &PaymentService{
		gateways: make(map[Name]Gateway),
		registry: DefaultRegistry,
		validate: validator.New(),
		audit:    NopPaymentLogger{},
		tracer:   otel.Tracer(tracerName),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// AddProvider builds and stores a gateway for name. The previous gateway, if any, is replaced.
func (s *PaymentService) AddProvider(name Name, conf Config) error {
	gw, err := s.registry.CreateProvider(name, conf, s.gatewayOpts...)
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.gateways[name] = gw
	s.mu.Unlock()
	return nil
}

// RemoveProvider drops a configured gateway
func (s *PaymentService) RemoveProvider(name Name) {
	s.mu.Lock()
	delete(s.gateways, name)
	s.mu.Unlock()
}

// Gateway returns the configured gateway for name
func (s *PaymentService) Gateway(name Name) (Gateway, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	gw, ok := s.gateways[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q is not configured", ErrUnknownProvider, name)
	}
	return gw, nil
}

// Providers returns the configured providers in the order of Names()
func (s *PaymentService) Providers() []Name {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Name, 0, len(s.gateways))
	for _, n := range Names() {
		if _, ok := s.gateways[n]; ok {
			out = append(out, n)
		}
	}
	return out
}

// Form returns the config schema of a registered provider, configured or not
func (s *PaymentService) Form(name Name) ([]FormField, error) {
	gw, err := s.registry.CreateProvider(name, Config{}, s.gatewayOpts...)
	if err != nil {
		return nil, err
	}
	return gw.Form(), nil
}

// Pay validates the order and starts a payment with the named provider
func (s *PaymentService) Pay(ctx context.Context, name Name, order OrderRequest) (*PaymentInstruction, error) {
	gw, err := s.Gateway(name)
	if err != nil {
		return nil, err
	}

	ctx, span := s.tracer.Start(ctx, "gateway.pay", trace.WithAttributes(
		attribute.String("payment.provider", string(name)),
		attribute.String("payment.trade_no", order.TradeNo),
		attribute.Int64("payment.amount", order.TotalAmount),
	))
	defer span.End()

	log := logger.WithRequest(string(name), RequestIDFromContext(ctx)).AddField("trade_no", order.TradeNo)
	start := time.Now()

	var instruction *PaymentInstruction
	if verr := s.validate.Struct(order); verr != nil {
		err = InvalidOrderError(name, verr.Error())
	} else {
		instruction, err = gw.Pay(ctx, order)
	}
	elapsed := time.Since(start)

	attempt := Attempt{
		Provider:  name,
		Operation: "pay",
		RequestID: RequestIDFromContext(ctx),
		TradeNo:   order.TradeNo,
		Amount:    order.TotalAmount,
		Currency:  order.Currency,
		Duration:  elapsed,
		ClientIP:  order.ClientIP,
	}

	if err != nil {
		attempt.State = StateCreated
		attempt.Err = err
		span.RecordError(err)
		span.SetStatus(codes.Error, string(KindOf(err)))
		s.metrics.ObservePay(string(name), outcomeOf(err), elapsed)
		log.Error("pay failed", err)
	} else {
		attempt.State = StateInitiated
		span.SetAttributes(attribute.Int("payment.instruction_type", int(instruction.Type)))
		s.metrics.ObservePay(string(name), string(StateInitiated), elapsed)
		log.AddField("instruction_type", int(instruction.Type)).Info("payment initiated")
	}

	s.recordAttempt(ctx, attempt)
	return instruction, err
}

// Notify hands an inbound callback to the named provider
func (s *PaymentService) Notify(ctx context.Context, name Name, event WebhookEvent) (ReconciliationResult, bool) {
	gw, err := s.Gateway(name)
	if err != nil {
		logger.WithProvider(string(name)).Warn("notify for unconfigured provider")
		return ReconciliationResult{}, false
	}

	ctx, span := s.tracer.Start(ctx, "gateway.notify", trace.WithAttributes(
		attribute.String("payment.provider", string(name)),
	))
	defer span.End()

	requestID := RequestIDFromContext(ctx)
	log := logger.WithRequest(string(name), requestID)
	log.AddField("state", string(StateCallbackReceived)).Debug("callback received")

	start := time.Now()
	result, ok := gw.Notify(ctx, event)
	elapsed := time.Since(start)

	state := StateRejected
	if ok {
		state = StateVerified
		span.SetAttributes(attribute.String("payment.trade_no", result.TradeNo))
		log.AddField("state", string(StateVerified)).AddField("trade_no", result.TradeNo).AddField("callback_no", result.CallbackNo).Info("callback verified")
	} else {
		span.SetStatus(codes.Error, "callback rejected")
		log.AddField("state", string(StateRejected)).Warn("callback rejected")
	}
	s.metrics.ObserveNotify(string(name), string(state), elapsed)

	s.recordAttempt(ctx, Attempt{
		Provider:   name,
		Operation:  "notify",
		RequestID:  requestID,
		TradeNo:    result.TradeNo,
		CallbackNo: result.CallbackNo,
		State:      state,
		Duration:   elapsed,
	})
	return result, ok
}

func (s *PaymentService) recordAttempt(ctx context.Context, attempt Attempt) {
	if err := s.audit.LogAttempt(context.WithoutCancel(ctx), attempt); err != nil {
		logger.WithProvider(string(attempt.Provider)).Warn("failed to record payment attempt: " + err.Error())
	}
}

func outcomeOf(err error) string {
	if kind := KindOf(err); kind != "" {
		return string(kind)
	}
	return "error"
}
