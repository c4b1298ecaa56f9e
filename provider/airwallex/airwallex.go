package airwallex

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/onwards-ai/xboard-payments/provider"
)

const (
	defaultAPIBase  = "https://api.airwallex.com"
	defaultCurrency = "USD"

	endpointLogin               = "/api/v1/authentication/login"
	endpointCreatePaymentIntent = "/api/v1/pa/payment_intents/create"

	headerSignature = "X-Signature"

	eventSucceeded  = "payment_intent.succeeded"
	statusSucceeded = "SUCCEEDED"
)

// AirwallexProvider implements provider.Gateway for Airwallex payment intents
type AirwallexProvider struct {
	conf   provider.Config
	client *provider.ProviderHTTPClient
}

// NewProvider creates an Airwallex gateway
func NewProvider(conf provider.Config, opts ...provider.Option) provider.Gateway {
	conf = conf.Clone()
	base := conf.Get("airwallex_api_base", defaultAPIBase)
	return &AirwallexProvider{
		conf:   conf,
		client: provider.NewProviderHTTPClient(provider.CreateHTTPClientConfig(base, provider.ApplyOptions(opts...))),
	}
}

// Name implements provider.Gateway
func (p *AirwallexProvider) Name() provider.Name {
	return provider.Airwallex
}

// Form implements provider.Gateway
func (p *AirwallexProvider) Form() []provider.FormField {
	return []provider.FormField{
		{Key: "airwallex_client_id", Label: "Client ID", Type: "input", Required: true},
		{Key: "airwallex_api_key", Label: "API KEY", Type: "secret", Required: true},
		{Key: "airwallex_api_base", Label: "API BASE", Description: defaultAPIBase, Type: "input", Default: defaultAPIBase, Pattern: `^https?://`},
		{Key: "airwallex_currency", Label: "CURRENCY", Description: "default USD", Type: "input", Default: defaultCurrency},
		{Key: "airwallex_webhook_secret", Label: "WEBHOOK SECRET", Description: "needed to verify webhooks", Type: "secret"},
	}
}

// Pay logs in for a fresh token and creates a payment intent
func (p *AirwallexProvider) Pay(ctx context.Context, order provider.OrderRequest) (*provider.PaymentInstruction, error) {
	if err := provider.ValidateConfigFields(p.Name(), p.conf, p.Form()); err != nil {
		return nil, err
	}

	token, err := p.authToken(ctx)
	if err != nil {
		return nil, err
	}

	currency := order.Currency
	if currency == "" {
		currency = p.conf.Get("airwallex_currency", defaultCurrency)
	}

	resp, err := p.client.SendJSON(ctx, &provider.HTTPRequest{
		Method:      http.MethodPost,
		Endpoint:    endpointCreatePaymentIntent,
		BearerToken: token,
		Body: map[string]any{
			"request_id":        uuid.New().String(),
			"merchant_order_id": order.TradeNo,
			"amount":            json.Number(provider.FormatMajor(order.TotalAmount)),
			"currency":          strings.ToUpper(currency),
			"return_url":        order.ReturnURL,
			"webhook_url":       order.NotifyURL,
		},
	})
	if err != nil {
		return nil, provider.TransportError(p.Name(), "payment intent request failed", err)
	}

	body, err := provider.DecodeObject(p.Name(), resp)
	if err != nil {
		return nil, err
	}

	link := provider.StringAt(body, "next_action.hosted_url")
	if link == "" {
		return nil, provider.RejectionError(p.Name(), provider.FirstString(body, "message", "error"))
	}
	return provider.RedirectInstruction(link), nil
}

// authToken exchanges the client id and api key for a bearer token. Tokens are not cached.
func (p *AirwallexProvider) authToken(ctx context.Context) (string, error) {
	clientID := p.conf.Get("airwallex_client_id", "")
	apiKey := p.conf.Get("airwallex_api_key", "")

	resp, err := p.client.SendJSON(ctx, &provider.HTTPRequest{
		Method:   http.MethodPost,
		Endpoint: endpointLogin,
		Headers: map[string]string{
			"x-client-id": clientID,
			"x-api-key":   apiKey,
		},
		Body: map[string]string{
			"client_id": clientID,
			"api_key":   apiKey,
		},
	})
	if err != nil {
		return "", provider.TransportError(p.Name(), "login request failed", err)
	}

	body, ok := provider.DecodeJSONObject(resp.Body)
	if !ok {
		return "", provider.AuthenticationError(p.Name(), "failed to get token", nil)
	}
	token := provider.StringAt(body, "token")
	if token == "" {
		msg := provider.FirstString(body, "message")
		if msg == "" {
			msg = "failed to get token"
		}
		return "", provider.AuthenticationError(p.Name(), msg, nil)
	}
	return token, nil
}

// Notify verifies X-Signature over the raw body
func (p *AirwallexProvider) Notify(_ context.Context, event provider.WebhookEvent) (provider.ReconciliationResult, bool) {
	secret := p.conf.Get("airwallex_webhook_secret", "")
	if secret == "" {
		return provider.Reject(p.Name(), "webhook secret is not configured")
	}

	signature := event.Header.Get(headerSignature)
	if signature == "" {
		return provider.Reject(p.Name(), "missing "+headerSignature+" header")
	}
	if !provider.SecureCompare(Sign(secret, event.Body), signature) {
		return provider.Reject(p.Name(), "signature mismatch")
	}

	payload, ok := provider.DecodeJSONObject(event.Body)
	if !ok {
		return provider.Reject(p.Name(), "webhook body is not JSON")
	}

	if name := provider.StringAt(payload, "name"); name != "" && name != eventSucceeded {
		return provider.Reject(p.Name(), "ignored event "+name)
	}
	if status := provider.FirstString(payload, "data.object.status", "data.status"); status != "" && !strings.EqualFold(status, statusSucceeded) {
		return provider.Reject(p.Name(), "payment intent status is "+status)
	}

	tradeNo := provider.FirstString(payload, "data.object.merchant_order_id", "data.merchant_order_id")
	if tradeNo == "" {
		tradeNo = event.Param("merchant_order_id")
	}
	callbackNo := provider.FirstString(payload, "data.object.id", "data.id")
	if callbackNo == "" {
		callbackNo = event.Param("id")
	}
	return provider.Accept(p.Name(), tradeNo, callbackNo)
}

// Sign returns the base64 HMAC-SHA256 of the raw webhook body
func Sign(secret string, body []byte) string {
	return provider.HMACSHA256Base64(secret, body)
}
