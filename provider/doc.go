// Package provider implements the gateway abstraction shared by every payment
// adapter, and the PaymentService that routes calls to configured adapters.
//
// # Core Concepts
//
//   - Gateway: the interface each adapter implements (Name, Form, Pay, Notify)
//   - Factory and ProviderRegistry: adapters register a constructor at init time
//   - PaymentService: holds one configured gateway per provider and wraps calls
//     with validation, metrics, tracing and audit logging
//   - OrderRequest / PaymentInstruction: the input and output of Pay
//   - WebhookEvent / ReconciliationResult: the input and output of Notify
//
// # Basic Usage
//
//	service := provider.NewPaymentService(
//	    provider.WithMetrics(metrics.New(prometheus.DefaultRegisterer)),
//	)
//
//	err := service.AddProvider(provider.Omise, provider.Config{
//	    "omise_secret_key":  "skey_...",
//	    "omise_source_type": "alipay_cn",
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	instruction, err := service.Pay(ctx, provider.Omise, provider.OrderRequest{
//	    TradeNo:     "T1001",
//	    TotalAmount: 5000,
//	    ReturnURL:   "https://panel.example.com/order/T1001",
//	    NotifyURL:   "https://pay.example.com/notify/omise",
//	})
//
// Amounts are always minor units. Adapters that talk in major units convert with
// FormatMajor and never round.
//
// # Instructions
//
// Pay returns one of three instruction types:
//
//   - InstructionRedirect (1): Data is a hosted checkout URL
//   - InstructionQRCode (0): Data is a QR payload or image URL
//   - InstructionCompleted (-1): the payment finished synchronously, Data is true
//
// # Error Handling
//
// Pay errors are GatewayError values. Match them with errors.Is against the kind
// sentinels:
//
//	_, err := service.Pay(ctx, provider.HitPay, order)
//	switch {
//	case errors.Is(err, provider.ErrInvalidOrder):
//	    // caller bug, do not retry
//	case errors.Is(err, provider.ErrConfiguration):
//	    // missing or malformed provider keys
//	case errors.Is(err, provider.ErrTransport), errors.Is(err, provider.ErrAuthentication):
//	    // provider unreachable or credentials refused
//	case errors.Is(err, provider.ErrProviderRejection):
//	    // provider answered but declined, MessageOf(err) carries its message
//	}
//
// # Provider Registration
//
// Adapters register themselves in an init function:
//
//	func init() {
//	    provider.Register(provider.HitPay, NewProvider)
//	}
//
// Import the adapter package for its side effect to make it available.
//
// # Callback Handling
//
// Notify never returns an error. A callback is either verified, producing a
// ReconciliationResult with the merchant trade number and the provider's own
// reference, or rejected. Signature mismatches, missing secrets, unpaid states
// and failed provider round trips all reject. Signatures are compared in
// constant time with SecureCompare.
//
// Helpers for the canonical strings providers sign live in this package:
// JoinSorted, OrderedForm, HMACSHA256Hex, HMACSHA256Base64 and MD5Hex.
//
// # Thread Safety
//
// PaymentService and ProviderRegistry are safe for concurrent use. Gateways hold
// an immutable copy of their Config and may be shared across goroutines.
//
// # Testing Support
//
// The providertest subpackage starts an httptest server that records requests
// and replays canned provider responses. Use WithGatewayOptions together with
// WithHTTPClient to point adapters at it.
package provider
