package hitpay

import (
	"context"
	"net/http"
	"net/url"
	"strings"

	"github.com/onwards-ai/xboard-payments/provider"
)

const (
	defaultAPIBase  = "https://api.hit-pay.com/v1"
	defaultCurrency = "SGD"
	defaultMethod   = "wechat_pay"

	endpointPaymentRequests = "/payment-requests"

	// Webhook status of a paid request
	statusCompleted = "completed"
)

// HitPayProvider implements provider.Gateway for HitPay payment requests
type HitPayProvider struct {
	conf   provider.Config
	client *provider.ProviderHTTPClient
}

// NewProvider creates a HitPay gateway for a configuration snapshot
func NewProvider(conf provider.Config, opts ...provider.Option) provider.Gateway {
	conf = conf.Clone()
	base := conf.Get("hitpay_api_base", defaultAPIBase)
	return &HitPayProvider{
		conf:   conf,
		client: provider.NewProviderHTTPClient(provider.CreateHTTPClientConfig(base, provider.ApplyOptions(opts...))),
	}
}

// Name implements provider.Gateway
func (p *HitPayProvider) Name() provider.Name {
	return provider.HitPay
}

// Form implements provider.Gateway
func (p *HitPayProvider) Form() []provider.FormField {
	return []provider.FormField{
		{Key: "hitpay_api_key", Label: "API KEY", Type: "secret", Required: true},
		{Key: "hitpay_webhook_salt", Label: "WEBHOOK SALT", Description: "needed to verify webhooks", Type: "secret"},
		{Key: "hitpay_api_base", Label: "API BASE", Description: defaultAPIBase, Type: "input", Default: defaultAPIBase, Pattern: `^https?://`},
		{Key: "hitpay_methods", Label: "PAYMENT METHODS", Description: "comma separated e.g. wechat_pay,card", Type: "input", Default: defaultMethod},
		{Key: "hitpay_currency", Label: "CURRENCY", Description: "default SGD", Type: "input", Default: defaultCurrency},
	}
}

// Pay creates a payment request and returns its hosted checkout URL
func (p *HitPayProvider) Pay(ctx context.Context, order provider.OrderRequest) (*provider.PaymentInstruction, error) {
	if err := provider.ValidateConfigFields(p.Name(), p.conf, p.Form()); err != nil {
		return nil, err
	}

	resp, err := p.client.SendForm(ctx, &provider.HTTPRequest{
		Method:   http.MethodPost,
		Endpoint: endpointPaymentRequests,
		Form:     p.buildPaymentRequest(order),
		Headers: map[string]string{
			"X-BUSINESS-API-KEY": p.conf.Get("hitpay_api_key", ""),
			"X-Requested-With":   "XMLHttpRequest",
		},
	})
	if err != nil {
		return nil, provider.TransportError(p.Name(), "payment request failed", err)
	}

	body, err := provider.DecodeObject(p.Name(), resp)
	if err != nil {
		return nil, err
	}

	link := provider.StringAt(body, "url")
	if link == "" {
		return nil, provider.RejectionError(p.Name(), provider.FirstString(body, "message", "error"))
	}
	return provider.RedirectInstruction(link), nil
}

// buildPaymentRequest keeps HitPay's field order; each method is a repeated payment_methods[] pair
func (p *HitPayProvider) buildPaymentRequest(order provider.OrderRequest) provider.OrderedForm {
	currency := order.Currency
	if currency == "" {
		currency = p.conf.Get("hitpay_currency", defaultCurrency)
	}

	var form provider.OrderedForm
	form.Add("amount", provider.FormatMajor(order.TotalAmount))
	form.Add("currency", currency)
	form.Add("reference_number", order.TradeNo)
	for _, m := range p.methods() {
		form.Add("payment_methods[]", m)
	}
	form.Add("redirect_url", order.ReturnURL)
	form.Add("webhook", order.NotifyURL)
	return form
}

func (p *HitPayProvider) methods() []string {
	var out []string
	for _, m := range strings.Split(p.conf.Get("hitpay_methods", ""), ",") {
		if m = strings.TrimSpace(m); m != "" {
			out = append(out, m)
		}
	}
	if len(out) == 0 {
		out = []string{defaultMethod}
	}
	return out
}

// Notify verifies the hmac field of a form encoded webhook
func (p *HitPayProvider) Notify(_ context.Context, event provider.WebhookEvent) (provider.ReconciliationResult, bool) {
	salt := p.conf.Get("hitpay_webhook_salt", "")
	if salt == "" {
		return provider.Reject(p.Name(), "webhook salt is not configured")
	}

	values, err := url.ParseQuery(string(event.Body))
	if err != nil || len(values) == 0 {
		return provider.Reject(p.Name(), "webhook body is not a form")
	}

	payload := make(map[string]string, len(values))
	for k, v := range values {
		payload[k] = v[0]
	}
	received := payload["hmac"]
	delete(payload, "hmac")
	if received == "" {
		return provider.Reject(p.Name(), "missing hmac")
	}

	if !provider.SecureCompare(Sign(salt, payload), received) {
		return provider.Reject(p.Name(), "hmac mismatch")
	}

	if status, ok := payload["status"]; ok && status != statusCompleted {
		return provider.Reject(p.Name(), "payment status is "+status)
	}

	tradeNo := payload["reference_number"]
	if tradeNo == "" {
		tradeNo = event.Param("reference_number")
	}
	callbackNo := payload["payment_request_id"]
	if callbackNo == "" {
		callbackNo = event.Param("payment_request_id")
	}
	return provider.Accept(p.Name(), tradeNo, callbackNo)
}

// Sign computes the webhook hmac: keys sorted ascending, key+value concatenated
// with no delimiter, HMAC-SHA256 with the salt, lowercase hex.
func Sign(salt string, payload map[string]string) string {
	return provider.HMACSHA256Hex(salt, []byte(provider.JoinSorted(payload, "", "", provider.SkipKeys("hmac"))))
}
