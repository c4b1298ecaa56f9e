package omise

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/onwards-ai/xboard-payments/provider"
)

const (
	defaultAPIBase    = "https://api.omise.co"
	defaultCurrency   = "THB"
	defaultSourceType = "wechat"

	endpointSources = "/sources"
	endpointCharges = "/charges"

	headerSignature = "X-Omise-Signature"

	sourceWeChat     = "wechat"
	statusSuccessful = "successful"
)

// OmiseProvider implements provider.Gateway for Omise sources and charges
type OmiseProvider struct {
	conf   provider.Config
	client *provider.ProviderHTTPClient
}

// NewProvider creates an Omise gateway
func NewProvider(conf provider.Config, opts ...provider.Option) provider.Gateway {
	conf = conf.Clone()
	base := conf.Get("omise_api_base", defaultAPIBase)
	return &OmiseProvider{
		conf:   conf,
		client: provider.NewProviderHTTPClient(provider.CreateHTTPClientConfig(base, provider.ApplyOptions(opts...))),
	}
}

// Name implements provider.Gateway
func (p *OmiseProvider) Name() provider.Name {
	return provider.Omise
}

// Form implements provider.Gateway
func (p *OmiseProvider) Form() []provider.FormField {
	return []provider.FormField{
		{Key: "omise_public_key", Label: "PUBLIC KEY", Type: "input"},
		{Key: "omise_secret_key", Label: "SECRET KEY", Type: "secret", Required: true},
		{Key: "omise_api_base", Label: "API BASE", Description: defaultAPIBase, Type: "input", Default: defaultAPIBase, Pattern: `^https?://`},
		{Key: "omise_currency", Label: "CURRENCY", Description: "default THB", Type: "input", Default: defaultCurrency},
		{Key: "omise_source_type", Label: "SOURCE TYPE", Description: "wechat or alipay_cn", Type: "select", Default: defaultSourceType, Pattern: `^(wechat|alipay_cn)$`},
		{Key: "omise_webhook_secret", Label: "WEBHOOK SECRET", Description: "needed to verify webhooks", Type: "secret"},
	}
}

// Pay creates a source and then a charge referencing it. The charge is never
// attempted when the source has no id.
func (p *OmiseProvider) Pay(ctx context.Context, order provider.OrderRequest) (*provider.PaymentInstruction, error) {
	if err := provider.ValidateConfigFields(p.Name(), p.conf, p.Form()); err != nil {
		return nil, err
	}

	sourceType := p.conf.Get("omise_source_type", defaultSourceType)
	currency := order.Currency
	if currency == "" {
		currency = p.conf.Get("omise_currency", defaultCurrency)
	}
	currency = strings.ToLower(currency)
	amount := strconv.FormatInt(order.TotalAmount, 10)

	var sourceForm provider.OrderedForm
	sourceForm.Add("type", sourceType)
	sourceForm.Add("amount", amount)
	sourceForm.Add("currency", currency)

	source, err := p.post(ctx, endpointSources, sourceForm)
	if err != nil {
		return nil, err
	}
	sourceID := provider.StringAt(source, "id")
	if sourceID == "" {
		return nil, provider.RejectionError(p.Name(), provider.StringAt(source, "message"))
	}

	var chargeForm provider.OrderedForm
	chargeForm.Add("source", sourceID)
	chargeForm.Add("amount", amount)
	chargeForm.Add("currency", currency)
	chargeForm.Add("return_uri", order.ReturnURL)
	chargeForm.Add("metadata[order]", order.TradeNo)

	charge, err := p.post(ctx, endpointCharges, chargeForm)
	if err != nil {
		return nil, err
	}

	if sourceType == sourceWeChat {
		if link := provider.StringAt(charge, "source.scannable_code.image.download_uri"); link != "" {
			return provider.QRCodeInstruction(link), nil
		}
	} else if link := provider.StringAt(charge, "authorize_uri"); link != "" {
		return provider.RedirectInstruction(link), nil
	}
	return nil, provider.RejectionError(p.Name(), provider.FirstString(charge, "failure_message", "message"))
}

func (p *OmiseProvider) post(ctx context.Context, endpoint string, form provider.OrderedForm) (map[string]any, error) {
	resp, err := p.client.SendForm(ctx, &provider.HTTPRequest{
		Method:    http.MethodPost,
		Endpoint:  endpoint,
		Form:      form,
		BasicAuth: &provider.BasicAuth{Username: p.conf.Get("omise_secret_key", "")},
	})
	if err != nil {
		return nil, provider.TransportError(p.Name(), strings.TrimPrefix(endpoint, "/")+" request failed", err)
	}
	if resp.StatusCode == http.StatusUnauthorized {
		body, _ := provider.DecodeJSONObject(resp.Body)
		return nil, provider.AuthenticationError(p.Name(), provider.FirstString(body, "message"), nil)
	}
	return provider.DecodeObject(p.Name(), resp)
}

// Notify verifies X-Omise-Signature over the raw body and requires a successful charge
func (p *OmiseProvider) Notify(_ context.Context, event provider.WebhookEvent) (provider.ReconciliationResult, bool) {
	secret := p.conf.Get("omise_webhook_secret", "")
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
	if status := provider.StringAt(payload, "data.status"); status != statusSuccessful {
		return provider.Reject(p.Name(), "charge status is "+status)
	}

	return provider.Accept(p.Name(),
		provider.StringAt(payload, "data.metadata.order"),
		provider.StringAt(payload, "data.id"))
}

// Sign returns the base64 HMAC-SHA256 of the raw webhook body
func Sign(secret string, body []byte) string {
	return provider.HMACSHA256Base64(secret, body)
}
