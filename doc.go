// Package payments is a payment gateway service that puts eight hosted checkout
// providers behind one API. A panel asks it to start a payment, receives an
// instruction telling the payer what to do next, and later has the provider's
// callback verified and reduced to a trade number and a provider reference.
//
// # Overview
//
// Every provider differs in authentication, signing scheme, amount units and
// callback format. The service hides all of it behind three operations:
//
//   - Form: the configuration schema of a provider, used to render admin forms
//   - Pay: start a payment and return a redirect URL, a QR payload or a completed marker
//   - Notify: verify an inbound callback and return the reconciled trade
//
// # Architecture
//
//	┌─────────────────┐    ┌─────────────────┐    ┌─────────────────┐
//	│                 │    │                 │    │                 │
//	│   Panel / App   │◄──►│    Gateway      │◄──►│   Payment       │
//	│                 │    │   (adapters)    │    │   Providers     │
//	│                 │    │                 │    │                 │
//	└─────────────────┘    └─────────────────┘    └─────────────────┘
//
// # Supported Providers
//
//   - airwallex: payment intent, webhook HMAC over the raw body
//   - hitpay: payment request, HMAC over sorted callback fields
//   - omise: WeChat or Alipay source and charge, webhook HMAC over the raw body
//   - paypal: checkout order, return token lookup and remote webhook verification
//   - smoochpay: auto payment cashier link, unsigned status callback
//   - stripe_credit: synchronous card charge, Stripe signed events
//   - yibaopay: MD5 signed submit form (V1)
//   - yibaopay_v2: MD5 signed JSON order API (V2)
//
// # Quick Start
//
//	package main
//
//	import (
//	    "context"
//
//	    "github.com/onwards-ai/xboard-payments/provider"
//	    _ "github.com/onwards-ai/xboard-payments/provider/hitpay" // Import to register provider
//	)
//
//	func main() {
//	    service := provider.NewPaymentService()
//
//	    err := service.AddProvider(provider.HitPay, provider.Config{
//	        "hitpay_api_key":      "your-api-key",
//	        "hitpay_webhook_salt": "your-salt",
//	    })
//	    if err != nil {
//	        panic(err)
//	    }
//
//	    instruction, err := service.Pay(context.Background(), provider.HitPay, provider.OrderRequest{
//	        TradeNo:     "202410160001",
//	        TotalAmount: 1000, // minor units
//	        ReturnURL:   "https://panel.example.com/order/202410160001",
//	        NotifyURL:   "https://pay.example.com/notify/hitpay",
//	    })
//	    if err != nil {
//	        panic(err)
//	    }
//	    _ = instruction // redirect the payer to instruction.Data
//	}
//
// # HTTP API
//
//	# Start a payment
//	POST /v1/payments/{provider}
//	Headers:
//	  Authorization: Bearer your-api-key
//	  Content-Type: application/json
//
//	# Provider catalogue and configuration
//	GET    /v1/providers
//	GET    /v1/providers/{provider}/form
//	GET    /v1/providers/{provider}/config   (admin IPs, secrets masked)
//	PUT    /v1/providers/{provider}/config   (admin IPs)
//	DELETE /v1/providers/{provider}/config   (admin IPs)
//
//	# Audit log, when OpenSearch logging is enabled
//	GET /v1/logs/{provider}?trade_no=...
//	GET /v1/logs/{provider}/summary?hours=24
//
// # Callbacks
//
// Providers call GET or POST /notify/{provider}. The route is not
// authenticated, each adapter verifies the signature itself. The response is
// the plain text "success" with 200 for a verified payment and "fail" with 400
// otherwise, so providers retry until the callback is accepted.
//
// # Configuration
//
// Provider keys are read from SQLite and may be overridden by the upper cased
// key in the environment:
//
//	HITPAY_API_KEY=your-api-key
//	HITPAY_WEBHOOK_SALT=your-salt
//	STRIPE_SK_LIVE=sk_live_...
//
// Service settings such as APP_PORT, API_KEY, ADMIN_IP_ALLOWLIST, TRUSTED_PROXIES,
// PAYMENT_PROVIDERS, RATE_LIMIT_PER_MINUTE and the OPENSEARCH_* family come
// from the environment or a .env file.
//
// # Observability
//
//   - Structured logs through zap, optionally rotated to a file
//   - Prometheus counters and histograms on /metrics
//   - OpenTelemetry spans around Pay and Notify
//   - Per attempt audit documents in OpenSearch
package payments
