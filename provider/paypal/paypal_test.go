package paypal

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strings"
	"testing"

	"github.com/onwards-ai/xboard-payments/provider"
	"github.com/onwards-ai/xboard-payments/provider/providertest"
)

const testWebhook = `{"id":"WH-1","event_type":"CHECKOUT.ORDER.APPROVED","resource":{"id":"ORDER-1","purchase_units":[{"reference_id":"T1"}]}}`

type fakePayPal struct {
	verdict     string
	orderStatus string
	tokenStatus int
}

func (f *fakePayPal) handle(w http.ResponseWriter, r providertest.Request) {
	switch {
	case r.Path == endpointToken:
		user, pass, _ := (&http.Request{Header: r.Header}).BasicAuth()
		if f.tokenStatus != 0 || user != "client" || pass != "secret" {
			providertest.WriteJSON(w, http.StatusUnauthorized, map[string]any{"error": "invalid_client", "error_description": "Client Authentication failed"})
			return
		}
		providertest.WriteJSON(w, http.StatusOK, map[string]any{"access_token": "A21", "token_type": "Bearer", "expires_in": 32400})
	case r.Header.Get("Authorization") != "Bearer A21":
		providertest.WriteJSON(w, http.StatusUnauthorized, map[string]any{"message": "no token"})
	case r.Path == endpointOrders && r.Method == http.MethodPost:
		providertest.WriteJSON(w, http.StatusCreated, map[string]any{
			"id":     "ORDER-1",
			"status": "CREATED",
			"links": []map[string]any{
				{"rel": "self", "href": "https://api-m.sandbox.paypal.com/v2/checkout/orders/ORDER-1"},
				{"rel": "approve", "href": "https://www.sandbox.paypal.com/checkoutnow?token=ORDER-1"},
			},
		})
	case strings.HasPrefix(r.Path, endpointOrders+"/") && r.Method == http.MethodGet:
		providertest.WriteJSON(w, http.StatusOK, map[string]any{
			"id":             strings.TrimPrefix(r.Path, endpointOrders+"/"),
			"status":         f.orderStatus,
			"purchase_units": []map[string]any{{"reference_id": "T1"}},
		})
	case r.Path == endpointVerifyWebhook:
		providertest.WriteJSON(w, http.StatusOK, map[string]any{"verification_status": f.verdict})
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func newTestProvider(t *testing.T, f *fakePayPal) (provider.Gateway, *providertest.Server) {
	t.Helper()
	srv := providertest.NewServer(t, f.handle)
	p := NewProvider(provider.Config{
		"paypal_client_id":     "client",
		"paypal_client_secret": "secret",
		"paypal_webhook_id":    "WH-ID",
	}, provider.WithHTTPClient(srv.RewriteClient()))
	return p, srv
}

func testOrder() provider.OrderRequest {
	return provider.OrderRequest{
		TradeNo:     "T1",
		TotalAmount: 12345,
		ReturnURL:   "https://shop.example/return",
		NotifyURL:   "https://shop.example/notify/paypal",
	}
}

func webhookHeaders() http.Header {
	h := http.Header{}
	h.Set("Paypal-Transmission-Id", "tid")
	h.Set("Paypal-Transmission-Time", "2024-01-01T00:00:00Z")
	h.Set("Paypal-Cert-Url", "https://api.paypal.com/cert.pem")
	h.Set("Paypal-Auth-Algo", "SHA256withRSA")
	h.Set("Paypal-Transmission-Sig", "sig")
	return h
}

func TestNewProvider_Mode(t *testing.T) {
	live := NewProvider(provider.Config{"paypal_mode": "live"}).(*PayPalProvider)
	if live.client.BaseURL() != liveAPIBase {
		t.Errorf("live base = %s", live.client.BaseURL())
	}
	sandbox := NewProvider(provider.Config{}).(*PayPalProvider)
	if sandbox.client.BaseURL() != sandboxAPIBase {
		t.Errorf("default base = %s", sandbox.client.BaseURL())
	}
}

func TestPayPalProvider_Pay(t *testing.T) {
	p, srv := newTestProvider(t, &fakePayPal{})

	instruction, err := p.Pay(context.Background(), testOrder())
	if err != nil {
		t.Fatalf("Pay() error = %v", err)
	}
	if instruction.Type != provider.InstructionRedirect || instruction.Data != "https://www.sandbox.paypal.com/checkoutnow?token=ORDER-1" {
		t.Errorf("unexpected instruction %+v", instruction)
	}

	reqs := srv.Requests()
	if len(reqs) != 2 {
		t.Fatalf("expected token then order, got %v", srv.Paths())
	}
	if reqs[0].Form().Get("grant_type") != "client_credentials" {
		t.Errorf("token body = %s", reqs[0].Body)
	}
	create := reqs[1]
	if create.Header.Get("PayPal-Request-Id") == "" {
		t.Error("PayPal-Request-Id must be set")
	}
	if !strings.Contains(string(create.Body), `"value":"123.45"`) || !strings.Contains(string(create.Body), `"currency_code":"USD"`) {
		t.Errorf("order body = %s", create.Body)
	}
	if !strings.Contains(string(create.Body), `"reference_id":"T1"`) || !strings.Contains(string(create.Body), `"intent":"CAPTURE"`) {
		t.Errorf("order body = %s", create.Body)
	}
}

func TestPayPalProvider_PayErrors(t *testing.T) {
	p, srv := newTestProvider(t, &fakePayPal{tokenStatus: http.StatusUnauthorized})
	_, err := p.Pay(context.Background(), testOrder())
	if !errors.Is(err, provider.ErrAuthentication) {
		t.Fatalf("Pay() error = %v, want authentication error", err)
	}
	if provider.MessageOf(err) != "Client Authentication failed" {
		t.Errorf("message = %q", provider.MessageOf(err))
	}
	if len(srv.Requests()) != 1 {
		t.Errorf("order must not be created without a token, got %v", srv.Paths())
	}

	_, err = NewProvider(provider.Config{"paypal_client_id": "client"}).Pay(context.Background(), testOrder())
	if !errors.Is(err, provider.ErrConfiguration) {
		t.Errorf("Pay() error = %v, want configuration error", err)
	}

	_, err = NewProvider(provider.Config{
		"paypal_client_id":     "client",
		"paypal_client_secret": "secret",
		"paypal_mode":          "production",
	}).Pay(context.Background(), testOrder())
	if !errors.Is(err, provider.ErrConfiguration) {
		t.Errorf("Pay() error = %v, want configuration error for an unknown mode", err)
	}
}

func TestPayPalProvider_NotifyWebhook(t *testing.T) {
	p, srv := newTestProvider(t, &fakePayPal{verdict: "SUCCESS"})

	result, ok := p.Notify(context.Background(), provider.WebhookEvent{Body: []byte(testWebhook), Header: webhookHeaders()})
	if !ok {
		t.Fatal("Notify() rejected a verified webhook")
	}
	if result.TradeNo != "T1" || result.CallbackNo != "ORDER-1" {
		t.Errorf("Notify() = %+v", result)
	}

	reqs := srv.Requests()
	verify := reqs[len(reqs)-1].JSON()
	if verify["webhook_id"] != "WH-ID" || verify["transmission_sig"] != "sig" || verify["auth_algo"] != "SHA256withRSA" {
		t.Errorf("verify body = %v", verify)
	}
	if event, _ := verify["webhook_event"].(map[string]any); event["id"] != "WH-1" {
		t.Errorf("webhook_event = %v", verify["webhook_event"])
	}
}

func TestPayPalProvider_NotifyCaptureCustomID(t *testing.T) {
	p, _ := newTestProvider(t, &fakePayPal{verdict: "SUCCESS"})
	body := `{"event_type":"PAYMENT.CAPTURE.COMPLETED","resource":{"id":"CAP-1","custom_id":"T7"}}`

	result, ok := p.Notify(context.Background(), provider.WebhookEvent{Body: []byte(body), Header: webhookHeaders()})
	if !ok || result.TradeNo != "T7" || result.CallbackNo != "CAP-1" {
		t.Errorf("Notify() = %+v, %v", result, ok)
	}
}

func TestPayPalProvider_NotifyWebhookRejections(t *testing.T) {
	refunded := `{"event_type":"PAYMENT.CAPTURE.REFUNDED","resource":{"id":"CAP-1","custom_id":"T1"}}`
	noHeaders := http.Header{}
	partial := webhookHeaders()
	partial.Del("Paypal-Transmission-Sig")

	tests := []struct {
		name    string
		fake    *fakePayPal
		body    string
		headers http.Header
	}{
		{"failed verdict", &fakePayPal{verdict: "FAILURE"}, testWebhook, webhookHeaders()},
		{"missing headers", &fakePayPal{verdict: "SUCCESS"}, testWebhook, noHeaders},
		{"missing signature header", &fakePayPal{verdict: "SUCCESS"}, testWebhook, partial},
		{"unpaid event", &fakePayPal{verdict: "SUCCESS"}, refunded, webhookHeaders()},
		{"token failure", &fakePayPal{verdict: "SUCCESS", tokenStatus: http.StatusUnauthorized}, testWebhook, webhookHeaders()},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, _ := newTestProvider(t, tt.fake)
			if _, ok := p.Notify(context.Background(), provider.WebhookEvent{Body: []byte(tt.body), Header: tt.headers}); ok {
				t.Error("Notify() accepted an unverified webhook")
			}
		})
	}
}

func TestPayPalProvider_NotifyTransportFailure(t *testing.T) {
	p := NewProvider(provider.Config{
		"paypal_client_id":     "client",
		"paypal_client_secret": "secret",
		"paypal_webhook_id":    "WH-ID",
	}, provider.WithHTTPClient(&http.Client{Transport: failingTransport{}}))

	if _, ok := p.Notify(context.Background(), provider.WebhookEvent{Body: []byte(testWebhook), Header: webhookHeaders()}); ok {
		t.Error("Notify() must fail closed when PayPal is unreachable")
	}
}

type failingTransport struct{}

func (failingTransport) RoundTrip(*http.Request) (*http.Response, error) {
	return nil, errors.New("connection refused")
}

func TestPayPalProvider_NotifyReturn(t *testing.T) {
	params := url.Values{"token": {"ORDER-1"}, "PayerID": {"P1"}}

	p, _ := newTestProvider(t, &fakePayPal{orderStatus: "COMPLETED"})
	result, ok := p.Notify(context.Background(), provider.NewWebhookEvent(nil, nil, params))
	if !ok || result.TradeNo != "T1" || result.CallbackNo != "ORDER-1" {
		t.Errorf("Notify() = %+v, %v", result, ok)
	}

	p, _ = newTestProvider(t, &fakePayPal{orderStatus: "APPROVED"})
	if _, ok := p.Notify(context.Background(), provider.NewWebhookEvent(nil, nil, params)); ok {
		t.Error("Notify() accepted an order that is not completed")
	}

	p, _ = newTestProvider(t, &fakePayPal{orderStatus: "COMPLETED"})
	if _, ok := p.Notify(context.Background(), provider.NewWebhookEvent(nil, nil, nil)); ok {
		t.Error("Notify() accepted a callback with neither body nor token")
	}
}
