package yibaopay

import (
	"context"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/onwards-ai/xboard-payments/provider"
)

const endpointUnifiedOrder = "/api/pay/unifiedorder"

var v2LinkKeys = []string{"data.payUrl", "data.pay_url", "data.cashierUrl", "data.url", "payUrl", "pay_url", "url"}

var v2PaidStatuses = map[string]bool{
	"SUCCESS":       true,
	"TRADE_SUCCESS": true,
	"PAID":          true,
}

// YibaoPayV2Provider implements provider.Gateway for the unified order YibaoPay API
type YibaoPayV2Provider struct {
	conf   provider.Config
	client *provider.ProviderHTTPClient
}

// NewV2Provider creates a YibaoPay V2 gateway
func NewV2Provider(conf provider.Config, opts ...provider.Option) provider.Gateway {
	conf = conf.Clone()
	return &YibaoPayV2Provider{
		conf:   conf,
		client: provider.NewProviderHTTPClient(provider.CreateHTTPClientConfig(conf.Get("yibao_v2_base_url", ""), provider.ApplyOptions(opts...))),
	}
}

// Name implements provider.Gateway
func (p *YibaoPayV2Provider) Name() provider.Name {
	return provider.YibaoPayV2
}

// Form implements provider.Gateway
func (p *YibaoPayV2Provider) Form() []provider.FormField {
	return []provider.FormField{
		{Key: "yibao_v2_base_url", Label: "BASE URL", Type: "input", Required: true, Pattern: `^https?://`},
		{Key: "yibao_v2_merchant_id", Label: "MERCHANT ID", Description: "merchant number", Type: "input", Required: true},
		{Key: "yibao_v2_secret_key", Label: "SECRET KEY", Description: "merchant secret", Type: "secret", Required: true},
		{Key: "yibao_v2_channel", Label: "CHANNEL", Description: "pay_type sent with the order, e.g. alipay", Type: "input"},
	}
}

// Pay posts a signed unified order and returns its pay link
func (p *YibaoPayV2Provider) Pay(ctx context.Context, order provider.OrderRequest) (*provider.PaymentInstruction, error) {
	if err := provider.ValidateConfigFields(p.Name(), p.conf, p.Form()); err != nil {
		return nil, err
	}

	payload := map[string]string{
		"merchant_id":  p.conf.Get("yibao_v2_merchant_id", ""),
		"out_trade_no": order.TradeNo,
		"amount":       provider.FormatMajor(order.TotalAmount),
		"pay_type":     p.conf.Get("yibao_v2_channel", ""),
		"notify_url":   order.NotifyURL,
		"return_url":   order.ReturnURL,
		"subject":      order.TradeNo,
		"client_ip":    order.ClientIP,
		"nonce_str":    strings.ReplaceAll(uuid.New().String(), "-", ""),
	}
	payload["sign"] = SignV2(payload, p.conf.Get("yibao_v2_secret_key", ""))

	resp, err := p.client.SendJSON(ctx, &provider.HTTPRequest{
		Method:   http.MethodPost,
		Endpoint: endpointUnifiedOrder,
		Body:     payload,
	})
	if err != nil {
		return nil, provider.TransportError(p.Name(), "unified order request failed", err)
	}

	body, err := provider.DecodeObject(p.Name(), resp)
	if err != nil {
		return nil, err
	}

	code, _ := provider.FirstPresent(body, "code", "status")
	if !provider.DefaultSuccessCodes.Contains(code) {
		return nil, provider.RejectionError(p.Name(), provider.FirstString(body, "msg", "message"))
	}

	link := provider.FirstString(body, v2LinkKeys...)
	if link == "" {
		return nil, provider.RejectionError(p.Name(), "")
	}
	return provider.RedirectInstruction(link), nil
}

// Notify checks the uppercase MD5 sign of a JSON or form callback
func (p *YibaoPayV2Provider) Notify(_ context.Context, event provider.WebhookEvent) (provider.ReconciliationResult, bool) {
	secret := p.conf.Get("yibao_v2_secret_key", "")
	if secret == "" {
		return provider.Reject(p.Name(), "secret key is not configured")
	}

	params := event.Params
	if obj, ok := provider.DecodeJSONObject(event.Body); ok {
		params = flatten(obj)
	}

	received := params["sign"]
	if received == "" {
		return provider.Reject(p.Name(), "missing sign")
	}
	if !provider.SecureCompare(SignV2(params, secret), strings.ToUpper(received)) {
		return provider.Reject(p.Name(), "sign mismatch")
	}

	status := params["trade_status"]
	if status == "" {
		status = params["status"]
	}
	if !v2PaidStatuses[strings.ToUpper(status)] {
		return provider.Reject(p.Name(), "trade status is "+status)
	}

	callbackNo := params["trade_no"]
	if callbackNo == "" {
		callbackNo = params["transaction_id"]
	}
	if callbackNo == "" {
		callbackNo = params["order_no"]
	}
	return provider.Accept(p.Name(), params["out_trade_no"], callbackNo)
}

// SignV2 computes upper(md5(k=v&k=v...&key=secret)) over non-empty values
// sorted by key, leaving out sign.
func SignV2(params map[string]string, secret string) string {
	canonical := provider.JoinSorted(params, "=", "&", provider.SkipEmptyAndKeys("sign"))
	return provider.MD5UpperHex(canonical + "&key=" + secret)
}

// flatten keeps the top level scalar fields of a JSON callback
func flatten(obj map[string]any) map[string]string {
	out := make(map[string]string, len(obj))
	for k, v := range obj {
		if s := provider.ScalarString(v); s != "" {
			out[k] = s
		}
	}
	return out
}
