package smoochpay

import (
	"context"
	"net/http"
	"strings"

	"github.com/onwards-ai/xboard-payments/provider"
)

const (
	defaultAPIBase  = "https://api.smoochpay.com"
	defaultCurrency = "USD"

	endpointPayment = "/payment/auto"
)

// Keys that may carry the cashier link, in priority order
var linkKeys = []string{
	"data.cashierUrl", "data.payUrl", "data.payment_url", "data.url",
	"cashierUrl", "payUrl", "payment_url", "url",
}

// Callback statuses that mean paid
var paidStatuses = map[string]bool{
	"SUCCESS":     true,
	"PAID":        true,
	"COMPLETED":   true,
	"PAY_SUCCESS": true,
}

// SmoochPayProvider implements provider.Gateway for SmoochPay auto payments
type SmoochPayProvider struct {
	conf   provider.Config
	client *provider.ProviderHTTPClient
}

// NewProvider creates a SmoochPay gateway
func NewProvider(conf provider.Config, opts ...provider.Option) provider.Gateway {
	conf = conf.Clone()
	base := conf.Get("smoochpay_api_base", defaultAPIBase)
	return &SmoochPayProvider{
		conf:   conf,
		client: provider.NewProviderHTTPClient(provider.CreateHTTPClientConfig(base, provider.ApplyOptions(opts...))),
	}
}

// Name implements provider.Gateway
func (p *SmoochPayProvider) Name() provider.Name {
	return provider.SmoochPay
}

// Form implements provider.Gateway
func (p *SmoochPayProvider) Form() []provider.FormField {
	return []provider.FormField{
		{Key: "smoochpay_api_base", Label: "API BASE", Description: defaultAPIBase, Type: "input", Default: defaultAPIBase, Pattern: `^https?://`},
		{Key: "smoochpay_merchant_no", Label: "MERCHANT NO", Type: "input", Required: true},
		{Key: "smoochpay_api_key", Label: "API KEY", Description: "Used as apikey header when calling the API", Type: "secret"},
		{Key: "smoochpay_currency", Label: "CURRENCY", Description: "Default USD", Type: "input", Default: defaultCurrency},
	}
}

// Pay creates an auto payment and returns the cashier link
func (p *SmoochPayProvider) Pay(ctx context.Context, order provider.OrderRequest) (*provider.PaymentInstruction, error) {
	if err := provider.ValidateConfigFields(p.Name(), p.conf, p.Form()); err != nil {
		return nil, err
	}

	currency := order.Currency
	if currency == "" {
		currency = p.conf.Get("smoochpay_currency", defaultCurrency)
	}

	headers := map[string]string{}
	if key := p.conf.Get("smoochpay_api_key", ""); key != "" {
		headers["apikey"] = key
	}

	resp, err := p.client.SendJSON(ctx, &provider.HTTPRequest{
		Method:   http.MethodPost,
		Endpoint: endpointPayment,
		Headers:  headers,
		Body: map[string]string{
			"merchant_no": p.conf.Get("smoochpay_merchant_no", ""),
			"order_no":    order.TradeNo,
			"amount":      provider.FormatMajor(order.TotalAmount),
			"currency":    currency,
			"notify_url":  order.NotifyURL,
			"return_url":  order.ReturnURL,
			"user_id":     order.UserID,
		},
	})
	if err != nil {
		return nil, provider.TransportError(p.Name(), provider.GenericRejectionMessage, err)
	}

	body, err := provider.DecodeObject(p.Name(), resp)
	if err != nil {
		return nil, err
	}

	code, _ := provider.FirstPresent(body, "code", "status")
	if !provider.DefaultSuccessCodes.Contains(code) {
		return nil, provider.RejectionError(p.Name(), provider.FirstString(body, "message", "msg"))
	}

	link := provider.FirstString(body, linkKeys...)
	if link == "" {
		return nil, provider.RejectionError(p.Name(), "")
	}
	return provider.RedirectInstruction(link), nil
}

// Notify reads an unsigned status callback. SmoochPay does not sign callbacks,
// so only the paid status and a trade number are checked.
func (p *SmoochPayProvider) Notify(_ context.Context, event provider.WebhookEvent) (provider.ReconciliationResult, bool) {
	payload, ok := provider.DecodeJSONObject(event.Body)
	if !ok {
		payload = make(map[string]any, len(event.Params))
		for k, v := range event.Params {
			payload[k] = v
		}
	}
	if len(payload) == 0 {
		return provider.Reject(p.Name(), "empty callback")
	}

	data := provider.ObjectAt(payload, "data")
	if data == nil {
		data = payload
	}

	status := provider.StringAt(data, "status")
	if status == "" {
		status = provider.StringAt(payload, "status")
	}
	if status = strings.ToUpper(status); !paidStatuses[status] {
		return provider.Reject(p.Name(), "payment status is "+status)
	}

	tradeNo := provider.FirstString(data, "order_no", "merchant_order_no", "trade_no")
	if tradeNo == "" {
		tradeNo = provider.FirstString(payload, "order_no", "trade_no")
	}
	callbackNo := provider.FirstString(data, "channel_order_no", "transaction_no", "payment_no")
	if callbackNo == "" {
		callbackNo = provider.FirstString(payload, "channel_order_no", "transaction_no")
	}
	return provider.Accept(p.Name(), tradeNo, callbackNo)
}
