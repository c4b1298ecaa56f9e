package paypal

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strings"

	"github.com/google/uuid"
	"github.com/onwards-ai/xboard-payments/provider"
)

const (
	liveAPIBase     = "https://api-m.paypal.com"
	sandboxAPIBase  = "https://api-m.sandbox.paypal.com"
	modeLive        = "live"
	modeSandbox     = "sandbox"
	defaultCurrency = "USD"

	endpointToken         = "/v1/oauth2/token"
	endpointOrders        = "/v2/checkout/orders"
	endpointVerifyWebhook = "/v1/notifications/verify-webhook-signature"

	orderStatusCompleted = "COMPLETED"
	verificationSuccess  = "SUCCESS"
)

// Events that mean the buyer has paid
var paidEvents = map[string]bool{
	"CHECKOUT.ORDER.APPROVED":   true,
	"PAYMENT.CAPTURE.COMPLETED": true,
}

// Transmission headers forwarded to the verify endpoint
var transmissionHeaders = []struct {
	field  string
	header string
}{
	{"transmission_id", "Paypal-Transmission-Id"},
	{"transmission_time", "Paypal-Transmission-Time"},
	{"cert_url", "Paypal-Cert-Url"},
	{"auth_algo", "Paypal-Auth-Algo"},
	{"transmission_sig", "Paypal-Transmission-Sig"},
}

// PayPalProvider implements provider.Gateway for PayPal checkout orders
type PayPalProvider struct {
	conf   provider.Config
	client *provider.ProviderHTTPClient
}

// NewProvider creates a PayPal gateway. The API host follows paypal_mode.
func NewProvider(conf provider.Config, opts ...provider.Option) provider.Gateway {
	conf = conf.Clone()
	base := sandboxAPIBase
	if conf.Get("paypal_mode", modeSandbox) == modeLive {
		base = liveAPIBase
	}
	return &PayPalProvider{
		conf:   conf,
		client: provider.NewProviderHTTPClient(provider.CreateHTTPClientConfig(base, provider.ApplyOptions(opts...))),
	}
}

// Name implements provider.Gateway
func (p *PayPalProvider) Name() provider.Name {
	return provider.PayPal
}

// Form implements provider.Gateway
func (p *PayPalProvider) Form() []provider.FormField {
	return []provider.FormField{
		{Key: "paypal_client_id", Label: "Client ID", Type: "input", Required: true},
		{Key: "paypal_client_secret", Label: "Client Secret", Type: "secret", Required: true},
		{Key: "paypal_webhook_id", Label: "Webhook ID", Description: "needed to verify webhooks", Type: "input"},
		{Key: "paypal_mode", Label: "Mode", Description: "live or sandbox", Type: "select", Default: modeSandbox, Pattern: `^(live|sandbox)$`},
		{Key: "paypal_currency", Label: "Currency", Description: "default USD", Type: "input", Default: defaultCurrency},
	}
}

// Pay fetches a token and creates a CAPTURE order; the payer is sent to its approve link
func (p *PayPalProvider) Pay(ctx context.Context, order provider.OrderRequest) (*provider.PaymentInstruction, error) {
	if err := provider.ValidateConfigFields(p.Name(), p.conf, p.Form()); err != nil {
		return nil, err
	}

	token, err := p.accessToken(ctx)
	if err != nil {
		return nil, err
	}

	currency := order.Currency
	if currency == "" {
		currency = p.conf.Get("paypal_currency", defaultCurrency)
	}

	resp, err := p.client.SendJSON(ctx, &provider.HTTPRequest{
		Method:      http.MethodPost,
		Endpoint:    endpointOrders,
		BearerToken: token,
		Headers:     map[string]string{"PayPal-Request-Id": uuid.New().String()},
		Body: map[string]any{
			"intent": "CAPTURE",
			"purchase_units": []map[string]any{{
				"reference_id": order.TradeNo,
				"custom_id":    order.TradeNo,
				"amount": map[string]string{
					"currency_code": strings.ToUpper(currency),
					"value":         provider.FormatMajor(order.TotalAmount),
				},
			}},
			"application_context": map[string]string{
				"return_url": order.ReturnURL,
				"cancel_url": order.ReturnURL,
			},
		},
	})
	if err != nil {
		return nil, provider.TransportError(p.Name(), "create order request failed", err)
	}

	body, err := provider.DecodeObject(p.Name(), resp)
	if err != nil {
		return nil, err
	}

	if link := approveLink(body); link != "" {
		return provider.RedirectInstruction(link), nil
	}
	msg := provider.FirstString(body, "details.0.description", "message")
	if msg == "" {
		msg = "PayPal create order failed"
	}
	return nil, provider.RejectionError(p.Name(), msg)
}

func approveLink(body map[string]any) string {
	links, _ := body["links"].([]any)
	for _, rel := range []string{"approve", "payer-action"} {
		for _, l := range links {
			link, ok := l.(map[string]any)
			if !ok {
				continue
			}
			if provider.StringAt(link, "rel") == rel {
				if href := provider.StringAt(link, "href"); href != "" {
					return href
				}
			}
		}
	}
	return ""
}

// accessToken runs the client credentials grant. Tokens are fetched per call.
func (p *PayPalProvider) accessToken(ctx context.Context) (string, error) {
	var form provider.OrderedForm
	form.Add("grant_type", "client_credentials")

	resp, err := p.client.SendForm(ctx, &provider.HTTPRequest{
		Method:   http.MethodPost,
		Endpoint: endpointToken,
		Form:     form,
		BasicAuth: &provider.BasicAuth{
			Username: p.conf.Get("paypal_client_id", ""),
			Password: p.conf.Get("paypal_client_secret", ""),
		},
	})
	if err != nil {
		return "", provider.TransportError(p.Name(), "token request failed", err)
	}

	body, _ := provider.DecodeJSONObject(resp.Body)
	token := provider.StringAt(body, "access_token")
	if token == "" {
		msg := provider.FirstString(body, "error_description", "error")
		if msg == "" {
			msg = "Paypal authorization error"
		}
		return "", provider.AuthenticationError(p.Name(), msg, nil)
	}
	return token, nil
}

// Notify handles two callback shapes: a browser return carrying the order id
// as token, and a JSON webhook verified remotely by PayPal. Any failed round
// trip rejects the callback.
func (p *PayPalProvider) Notify(ctx context.Context, event provider.WebhookEvent) (provider.ReconciliationResult, bool) {
	payload, ok := provider.DecodeJSONObject(event.Body)
	if !ok {
		if orderID := event.Param("token"); orderID != "" {
			return p.notifyReturn(ctx, orderID)
		}
		return provider.Reject(p.Name(), "callback is neither a webhook nor a return")
	}
	return p.notifyWebhook(ctx, event, payload)
}

func (p *PayPalProvider) notifyReturn(ctx context.Context, orderID string) (provider.ReconciliationResult, bool) {
	token, err := p.accessToken(ctx)
	if err != nil {
		return provider.Reject(p.Name(), err.Error())
	}

	resp, err := p.client.SendJSON(ctx, &provider.HTTPRequest{
		Method:      http.MethodGet,
		Endpoint:    endpointOrders + "/" + url.PathEscape(orderID),
		BearerToken: token,
	})
	if err != nil {
		return provider.Reject(p.Name(), "order lookup failed: "+err.Error())
	}

	detail, ok := provider.DecodeJSONObject(resp.Body)
	if !ok || !resp.IsSuccess() {
		return provider.Reject(p.Name(), "order lookup returned no order")
	}
	if status := provider.StringAt(detail, "status"); status != orderStatusCompleted {
		return provider.Reject(p.Name(), "order status is "+status)
	}
	return provider.Accept(p.Name(), provider.StringAt(detail, "purchase_units.0.reference_id"), orderID)
}

func (p *PayPalProvider) notifyWebhook(ctx context.Context, event provider.WebhookEvent, payload map[string]any) (provider.ReconciliationResult, bool) {
	webhookID := p.conf.Get("paypal_webhook_id", "")
	if webhookID == "" {
		return provider.Reject(p.Name(), "webhook id is not configured")
	}

	verify := map[string]any{
		"webhook_id":    webhookID,
		"webhook_event": json.RawMessage(event.Body),
	}
	for _, h := range transmissionHeaders {
		v := event.Header.Get(h.header)
		if v == "" {
			return provider.Reject(p.Name(), "missing "+h.header+" header")
		}
		verify[h.field] = v
	}

	token, err := p.accessToken(ctx)
	if err != nil {
		return provider.Reject(p.Name(), err.Error())
	}

	resp, err := p.client.SendJSON(ctx, &provider.HTTPRequest{
		Method:      http.MethodPost,
		Endpoint:    endpointVerifyWebhook,
		BearerToken: token,
		Body:        verify,
	})
	if err != nil {
		return provider.Reject(p.Name(), "signature verification request failed: "+err.Error())
	}

	verdict, _ := provider.DecodeJSONObject(resp.Body)
	if status := provider.StringAt(verdict, "verification_status"); status != verificationSuccess {
		return provider.Reject(p.Name(), "verification status is "+status)
	}

	eventType := provider.StringAt(payload, "event_type")
	if !paidEvents[eventType] {
		return provider.Reject(p.Name(), "ignored event "+eventType)
	}

	callbackNo := provider.StringAt(payload, "resource.id")
	if callbackNo == "" {
		return provider.Reject(p.Name(), "event resource has no id")
	}
	tradeNo := provider.FirstString(payload, "resource.purchase_units.0.reference_id", "resource.custom_id")
	return provider.Accept(p.Name(), tradeNo, callbackNo)
}
