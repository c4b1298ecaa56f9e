// Package handler provides the HTTP handlers of the payment gateway service.
//
// The handlers bridge chi routes with provider.PaymentService:
//
//   - PaymentHandler: starts payments and verifies gateway callbacks
//   - ConfigHandler: lists providers, serves their config forms and stores credentials
//   - HealthHandler: reports service and storage status
//   - LogsHandler: reads the OpenSearch audit trail of pay and notify attempts
//
// # Payments
//
//	POST /v1/payments/hitpay
//	Content-Type: application/json
//
//	{
//	  "trade_no": "202401010001",
//	  "total_amount": 1000,
//	  "currency": "SGD",
//	  "return_url": "https://shop.example.com/orders/202401010001",
//	  "notify_url": "https://pay.example.com/notify/hitpay"
//	}
//
// Amounts are in minor units. A successful call returns the instruction the
// payer must follow:
//
//	{
//	  "code": 200,
//	  "success": true,
//	  "message": "Payment initiated",
//	  "data": {"type": 1, "data": "https://securecheckout.hit-pay.com/..."}
//	}
//
// type 1 is a redirect, 0 a scan code and -1 a payment that already completed.
// Failures map onto status codes: 400 for invalid orders, 404 for unknown or
// unconfigured providers, 500 for configuration errors and 502 for anything the
// gateway rejected or could not answer.
//
// # Callbacks
//
// Gateways call back on /notify/{provider} with GET or POST. The raw body,
// headers and merged query and form parameters are handed to the adapter. The
// response is the plain text "success" when the callback is verified and "fail"
// with status 400 otherwise, so gateways retry rejected deliveries.
//
// # Provider configuration
//
//	GET    /v1/providers                    configured and supported providers
//	GET    /v1/providers/{provider}/form    config schema
//	GET    /v1/providers/{provider}/config  stored config, secrets masked
//	PUT    /v1/providers/{provider}/config  validate, persist and load
//	DELETE /v1/providers/{provider}/config  remove and unload
//
// A PUT body is a flat JSON object keyed by the form keys:
//
//	{"hitpay_api_key": "...", "hitpay_webhook_salt": "..."}
//
// # Audit log
//
//	GET /v1/logs/{provider}?trade_no=T1              every attempt of a trade
//	GET /v1/logs/{provider}?operation=notify&state=rejected
//	GET /v1/logs/{provider}/summary?hours=24         outcome counts
//
// Both answer 503 when OpenSearch logging is disabled.
package handler
