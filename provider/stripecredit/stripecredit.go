package stripecredit

import (
	"context"
	"errors"
	"strings"

	"github.com/onwards-ai/xboard-payments/provider"
	"github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/charge"
	"github.com/stripe/stripe-go/v82/webhook"
)

const (
	defaultAPIBase  = "https://api.stripe.com"
	defaultCurrency = "usd"

	// Extra key carrying the card token created by Stripe.js
	extraToken = "stripe_token"

	headerSignature = "Stripe-Signature"

	eventChargeSucceeded         = "charge.succeeded"
	eventCheckoutSessionComplete = "checkout.session.completed"

	msgCardFailed = "Payment failed. Please check your credit card information"
)

// StripeCreditProvider implements provider.Gateway for synchronous card charges
type StripeCreditProvider struct {
	conf   provider.Config
	client *provider.ProviderHTTPClient
}

// NewProvider creates a StripeCredit gateway
func NewProvider(conf provider.Config, opts ...provider.Option) provider.Gateway {
	conf = conf.Clone()
	base := conf.Get("stripe_api_base", defaultAPIBase)
	return &StripeCreditProvider{
		conf:   conf,
		client: provider.NewProviderHTTPClient(provider.CreateHTTPClientConfig(base, provider.ApplyOptions(opts...))),
	}
}

// Name implements provider.Gateway
func (p *StripeCreditProvider) Name() provider.Name {
	return provider.StripeCredit
}

// Form implements provider.Gateway
func (p *StripeCreditProvider) Form() []provider.FormField {
	return []provider.FormField{
		{Key: "stripe_pk_live", Label: "PK", Description: "publishable key for Stripe.js", Type: "input", Pattern: `^pk_`},
		{Key: "stripe_sk_live", Label: "SK", Type: "secret", Required: true, Pattern: `^(sk|rk)_`},
		{Key: "stripe_webhook_secret", Label: "WebHook Secret", Description: "unsigned events are accepted when empty", Type: "secret"},
		{Key: "stripe_currency", Label: "Currency", Description: "default usd", Type: "input", Default: defaultCurrency},
		{Key: "stripe_api_base", Label: "API BASE", Description: defaultAPIBase, Type: "input", Default: defaultAPIBase, Pattern: `^https?://`},
	}
}

// chargeClient builds a charge client bound to this adapter's key, base URL and
// HTTP client. The SDK's own retries are disabled.
func (p *StripeCreditProvider) chargeClient() charge.Client {
	backend := stripe.GetBackendWithConfig(stripe.APIBackend, &stripe.BackendConfig{
		URL:               stripe.String(p.client.BaseURL()),
		HTTPClient:        p.client.HTTPClient(),
		MaxNetworkRetries: stripe.Int64(0),
		LeveledLogger:     &stripe.LeveledLogger{Level: stripe.LevelNull},
	})
	return charge.Client{B: backend, Key: p.conf.Get("stripe_sk_live", "")}
}

// Pay charges the card token in order.Extra. Success completes synchronously.
func (p *StripeCreditProvider) Pay(ctx context.Context, order provider.OrderRequest) (*provider.PaymentInstruction, error) {
	if err := provider.ValidateConfigFields(p.Name(), p.conf, p.Form()); err != nil {
		return nil, err
	}

	token := strings.TrimSpace(order.Extra[extraToken])
	if token == "" {
		return nil, provider.InvalidOrderError(p.Name(), "stripe_token is required")
	}

	currency := order.Currency
	if currency == "" {
		currency = p.conf.Get("stripe_currency", defaultCurrency)
	}

	params := &stripe.ChargeParams{
		Amount:   stripe.Int64(order.TotalAmount),
		Currency: stripe.String(strings.ToLower(currency)),
		Source:   &stripe.PaymentSourceSourceParams{Token: stripe.String(token)},
	}
	params.Context = ctx
	params.AddMetadata("trade_no", order.TradeNo)
	params.AddMetadata("user_id", order.UserID)

	ch, err := p.chargeClient().New(params)
	if err != nil {
		var serr *stripe.Error
		if errors.As(err, &serr) {
			if serr.HTTPStatusCode == 401 {
				return nil, provider.AuthenticationError(p.Name(), serr.Msg, err)
			}
			return nil, provider.RejectionError(p.Name(), serr.Msg)
		}
		return nil, provider.TransportError(p.Name(), provider.GenericRejectionMessage, err)
	}

	if ch.Status != stripe.ChargeStatusSucceeded {
		return nil, provider.RejectionError(p.Name(), msgCardFailed)
	}
	return provider.CompletedInstruction(), nil
}

// Notify verifies Stripe-Signature when a webhook secret is configured.
// Without a secret the event is read unsigned.
func (p *StripeCreditProvider) Notify(_ context.Context, event provider.WebhookEvent) (provider.ReconciliationResult, bool) {
	var (
		eventType string
		object    map[string]any
	)

	if secret := p.conf.Get("stripe_webhook_secret", ""); secret != "" {
		signature := event.Header.Get(headerSignature)
		if signature == "" {
			return provider.Reject(p.Name(), "missing "+headerSignature+" header")
		}
		evt, err := webhook.ConstructEventWithOptions(event.Body, signature, secret, webhook.ConstructEventOptions{
			IgnoreAPIVersionMismatch: true,
		})
		if err != nil {
			return provider.Reject(p.Name(), "signature verification failed: "+err.Error())
		}
		eventType = string(evt.Type)
		if evt.Data != nil {
			object, _ = provider.DecodeJSONObject(evt.Data.Raw)
		}
	} else {
		payload, ok := provider.DecodeJSONObject(event.Body)
		if !ok {
			return provider.Reject(p.Name(), "event body is not JSON")
		}
		eventType = provider.StringAt(payload, "type")
		object = provider.ObjectAt(payload, "data.object")
	}

	if object == nil {
		return provider.Reject(p.Name(), "event has no data object")
	}

	switch eventType {
	case eventChargeSucceeded:
		return provider.Accept(p.Name(), provider.StringAt(object, "metadata.trade_no"), provider.StringAt(object, "id"))
	case eventCheckoutSessionComplete:
		return provider.Accept(p.Name(),
			provider.StringAt(object, "metadata.trade_no"),
			provider.FirstString(object, "payment_intent", "id"))
	default:
		return provider.Reject(p.Name(), "ignored event "+eventType)
	}
}
