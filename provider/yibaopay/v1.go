package yibaopay

import (
	"context"
	"net/http"

	"github.com/onwards-ai/xboard-payments/provider"
)

const (
	defaultV1BaseURL = "https://yibaopay.cc"
	endpointSubmit   = "/submit.php"

	signTypeMD5       = "MD5"
	tradeStatusPaidV1 = "TRADE_SUCCESS"
)

// v1 answers success with "1"/1 rather than 0
var v1SuccessCodes = provider.NewCodeSet("1", 1, "SUCCESS", "success", "OK", 200)

var v1LinkKeys = []string{"data.payUrl", "data.url", "payUrl", "url"}

// YibaoPayV1Provider implements provider.Gateway for the submit.php style YibaoPay API
type YibaoPayV1Provider struct {
	conf   provider.Config
	client *provider.ProviderHTTPClient
}

// NewV1Provider creates a YibaoPay V1 gateway
func NewV1Provider(conf provider.Config, opts ...provider.Option) provider.Gateway {
	conf = conf.Clone()
	base := conf.Get("yibao_base_url", defaultV1BaseURL)
	return &YibaoPayV1Provider{
		conf:   conf,
		client: provider.NewProviderHTTPClient(provider.CreateHTTPClientConfig(base, provider.ApplyOptions(opts...))),
	}
}

// Name implements provider.Gateway
func (p *YibaoPayV1Provider) Name() provider.Name {
	return provider.YibaoPayV1
}

// Form implements provider.Gateway
func (p *YibaoPayV1Provider) Form() []provider.FormField {
	return []provider.FormField{
		{Key: "yibao_base_url", Label: "BASE URL", Description: defaultV1BaseURL, Type: "input", Default: defaultV1BaseURL, Pattern: `^https?://`},
		{Key: "yibao_merchant_id", Label: "MERCHANT ID", Description: "merchant number", Type: "input", Required: true},
		{Key: "yibao_secret_key", Label: "SECRET KEY", Description: "merchant secret", Type: "secret", Required: true},
		{Key: "yibao_channel", Label: "CHANNEL", Description: "alipay / wxpay / qqpay", Type: "select", Pattern: `^(alipay|wxpay|qqpay)$`},
	}
}

// Pay signs the order and offers it to submit.php. A JSON answer with a link is
// used directly; otherwise the payer is redirected to the signed submit URL.
func (p *YibaoPayV1Provider) Pay(ctx context.Context, order provider.OrderRequest) (*provider.PaymentInstruction, error) {
	if err := provider.ValidateConfigFields(p.Name(), p.conf, p.Form()); err != nil {
		return nil, err
	}

	form := SignV1Form(map[string]string{
		"pid":          p.conf.Get("yibao_merchant_id", ""),
		"type":         p.conf.Get("yibao_channel", ""),
		"out_trade_no": order.TradeNo,
		"notify_url":   order.NotifyURL,
		"return_url":   order.ReturnURL,
		"name":         order.TradeNo,
		"money":        provider.FormatMajor(order.TotalAmount),
	}, p.conf.Get("yibao_secret_key", ""))

	fallback := p.client.URL(endpointSubmit, form)

	resp, err := p.client.SendForm(ctx, &provider.HTTPRequest{
		Method:   http.MethodPost,
		Endpoint: endpointSubmit,
		Form:     form,
	})
	if err != nil {
		return nil, provider.TransportError(p.Name(), "submit request failed", err)
	}

	body, ok := provider.DecodeJSONObject(resp.Body)
	if !ok {
		return provider.RedirectInstruction(fallback), nil
	}

	code, present := provider.FirstPresent(body, "code", "status")
	if !present {
		return provider.RedirectInstruction(fallback), nil
	}
	if !v1SuccessCodes.Contains(code) {
		return nil, provider.RejectionError(p.Name(), provider.FirstString(body, "msg", "message"))
	}

	if link := provider.FirstString(body, v1LinkKeys...); link != "" {
		return provider.RedirectInstruction(link), nil
	}
	return provider.RedirectInstruction(fallback), nil
}

// Notify checks the MD5 sign of the callback parameters
func (p *YibaoPayV1Provider) Notify(_ context.Context, event provider.WebhookEvent) (provider.ReconciliationResult, bool) {
	secret := p.conf.Get("yibao_secret_key", "")
	if secret == "" {
		return provider.Reject(p.Name(), "secret key is not configured")
	}

	params := event.Params
	received, ok := params["sign"]
	if !ok || received == "" {
		return provider.Reject(p.Name(), "missing sign")
	}

	// MD5 hex is lowercase; comparison stays case sensitive
	if !provider.SecureCompare(SignV1(params, secret), received) {
		return provider.Reject(p.Name(), "sign mismatch")
	}

	if status, ok := params["trade_status"]; ok && status != tradeStatusPaidV1 {
		return provider.Reject(p.Name(), "trade status is "+status)
	}

	tradeNo := params["out_trade_no"]
	if tradeNo == "" {
		tradeNo = params["trade_no"]
	}
	return provider.Accept(p.Name(), tradeNo, params["trade_no"])
}

// SignV1 computes md5(stripslashes(k=v&k=v...) + secret) over the keys sorted
// ascending, leaving out sign and sign_type. Values are used decoded.
func SignV1(params map[string]string, secret string) string {
	canonical := provider.JoinSorted(params, "=", "&", provider.SkipKeys("sign", "sign_type"))
	return provider.MD5Hex(provider.StripSlashes(canonical) + secret)
}

// SignV1Form returns params in sorted order followed by sign and sign_type
func SignV1Form(params map[string]string, secret string) provider.OrderedForm {
	var form provider.OrderedForm
	for _, k := range provider.SortedKeys(params) {
		if k == "sign" || k == "sign_type" {
			continue
		}
		form.Add(k, params[k])
	}
	form.Add("sign", SignV1(params, secret))
	form.Add("sign_type", signTypeMD5)
	return form
}
