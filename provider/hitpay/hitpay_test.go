package hitpay

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"testing"

	"github.com/onwards-ai/xboard-payments/provider"
	"github.com/onwards-ai/xboard-payments/provider/providertest"
)

const testSalt = "salt123"

func newTestProvider(t *testing.T, conf provider.Config, h providertest.HandlerFunc) (*HitPayProvider, *providertest.Server) {
	t.Helper()
	srv := providertest.NewServer(t, h)
	if conf == nil {
		conf = provider.Config{}
	}
	if _, ok := conf["hitpay_api_base"]; !ok {
		conf["hitpay_api_base"] = srv.URL
	}
	return NewProvider(conf).(*HitPayProvider), srv
}

func testOrder() provider.OrderRequest {
	return provider.OrderRequest{
		TradeNo:     "T1001",
		TotalAmount: 1000,
		ReturnURL:   "https://shop.example/return",
		NotifyURL:   "https://shop.example/notify/hitpay",
	}
}

func signedBody(fields map[string]string) string {
	values := url.Values{}
	for k, v := range fields {
		values.Set(k, v)
	}
	values.Set("hmac", Sign(testSalt, fields))
	return values.Encode()
}

func TestSign_Fixture(t *testing.T) {
	payload := map[string]string{
		"amount":             "10.00",
		"currency":           "SGD",
		"payment_id":         "P1",
		"payment_request_id": "PR1",
		"reference_number":   "T1",
		"status":             "completed",
	}
	want := "eac2eeaa6eb34c54fd72de50135e8a0e60f755c6cb19a79f8b5008ef6c057d42"
	if got := Sign(testSalt, payload); got != want {
		t.Errorf("Sign() = %s, want %s", got, want)
	}

	payload["hmac"] = "ignored"
	if got := Sign(testSalt, payload); got != want {
		t.Errorf("Sign() must ignore the hmac field, got %s", got)
	}
}

func TestHitPayProvider_EndToEnd(t *testing.T) {
	var posted providertest.Request
	p, _ := newTestProvider(t, provider.Config{
		"hitpay_api_key":      "key-1",
		"hitpay_webhook_salt": testSalt,
	}, func(w http.ResponseWriter, r providertest.Request) {
		posted = r
		providertest.WriteJSON(w, http.StatusCreated, map[string]any{
			"id":  "PR-9",
			"url": "https://securecheckout.hit-pay.com/payment-request/PR-9",
		})
	})

	instruction, err := p.Pay(context.Background(), testOrder())
	if err != nil {
		t.Fatalf("Pay() error = %v", err)
	}
	if instruction.Type != provider.InstructionRedirect || instruction.Data != "https://securecheckout.hit-pay.com/payment-request/PR-9" {
		t.Errorf("unexpected instruction %+v", instruction)
	}

	wantBody := "amount=10.00&currency=SGD&reference_number=T1001&payment_methods[]=wechat_pay" +
		"&redirect_url=https%3A%2F%2Fshop.example%2Freturn&webhook=https%3A%2F%2Fshop.example%2Fnotify%2Fhitpay"
	if string(posted.Body) != wantBody {
		t.Errorf("posted body\n got %s\nwant %s", posted.Body, wantBody)
	}
	if posted.Path != "/payment-requests" || posted.Method != http.MethodPost {
		t.Errorf("unexpected request %s %s", posted.Method, posted.Path)
	}
	if posted.Header.Get("X-BUSINESS-API-KEY") != "key-1" {
		t.Errorf("api key header = %q", posted.Header.Get("X-BUSINESS-API-KEY"))
	}
	if posted.Header.Get("Content-Type") != "application/x-www-form-urlencoded" {
		t.Errorf("content type = %q", posted.Header.Get("Content-Type"))
	}

	body := signedBody(map[string]string{
		"payment_id":         "P-1",
		"payment_request_id": "PR-9",
		"reference_number":   posted.Form().Get("reference_number"),
		"amount":             "10.00",
		"currency":           "SGD",
		"status":             "completed",
	})
	result, ok := p.Notify(context.Background(), provider.WebhookEvent{Body: []byte(body)})
	if !ok {
		t.Fatal("Notify() rejected a correctly signed webhook")
	}
	if result.TradeNo != "T1001" || result.CallbackNo != "PR-9" {
		t.Errorf("Notify() = %+v", result)
	}
}

func TestHitPayProvider_PayMethodsAndCurrency(t *testing.T) {
	var posted providertest.Request
	p, _ := newTestProvider(t, provider.Config{
		"hitpay_api_key":  "key-1",
		"hitpay_methods":  " paynow_online , card ,",
		"hitpay_currency": "MYR",
	}, func(w http.ResponseWriter, r providertest.Request) {
		posted = r
		providertest.WriteJSON(w, http.StatusCreated, map[string]any{"url": "https://pay.example"})
	})

	order := testOrder()
	order.TotalAmount = 12345
	order.Currency = "USD"
	if _, err := p.Pay(context.Background(), order); err != nil {
		t.Fatalf("Pay() error = %v", err)
	}

	form := posted.Form()
	if form.Get("amount") != "123.45" {
		t.Errorf("amount = %q, want 123.45", form.Get("amount"))
	}
	if form.Get("currency") != "USD" {
		t.Errorf("currency = %q, want order currency", form.Get("currency"))
	}
	methods := form["payment_methods[]"]
	if len(methods) != 2 || methods[0] != "paynow_online" || methods[1] != "card" {
		t.Errorf("payment_methods[] = %v", methods)
	}
}

func TestHitPayProvider_PayErrors(t *testing.T) {
	tests := []struct {
		name    string
		conf    provider.Config
		handler providertest.HandlerFunc
		want    error
		message string
	}{
		{
			name: "missing api key",
			conf: provider.Config{},
			handler: func(w http.ResponseWriter, r providertest.Request) {
				t.Error("no request expected without an api key")
			},
			want:    provider.ErrConfiguration,
			message: "required field 'hitpay_api_key' is missing",
		},
		{
			name: "declined with message",
			conf: provider.Config{"hitpay_api_key": "k"},
			handler: func(w http.ResponseWriter, r providertest.Request) {
				providertest.WriteJSON(w, http.StatusUnprocessableEntity, map[string]any{"message": "The amount must be at least 0.3."})
			},
			want:    provider.ErrProviderRejection,
			message: "The amount must be at least 0.3.",
		},
		{
			name: "no url and no message",
			conf: provider.Config{"hitpay_api_key": "k"},
			handler: func(w http.ResponseWriter, r providertest.Request) {
				providertest.WriteJSON(w, http.StatusOK, map[string]any{"id": "PR"})
			},
			want:    provider.ErrProviderRejection,
			message: provider.GenericRejectionMessage,
		},
		{
			name: "unreadable body",
			conf: provider.Config{"hitpay_api_key": "k"},
			handler: func(w http.ResponseWriter, r providertest.Request) {
				w.WriteHeader(http.StatusBadGateway)
				_, _ = w.Write([]byte("<html>bad gateway</html>"))
			},
			want: provider.ErrTransport,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, _ := newTestProvider(t, tt.conf, tt.handler)
			_, err := p.Pay(context.Background(), testOrder())
			if !errors.Is(err, tt.want) {
				t.Fatalf("Pay() error = %v, want %v", err, tt.want)
			}
			if tt.message != "" && provider.MessageOf(err) != tt.message {
				t.Errorf("message = %q, want %q", provider.MessageOf(err), tt.message)
			}
		})
	}
}

func TestHitPayProvider_PayTransportFailure(t *testing.T) {
	p := NewProvider(provider.Config{
		"hitpay_api_key":  "k",
		"hitpay_api_base": providertest.UnreachableURL,
	})
	_, err := p.Pay(context.Background(), testOrder())
	if !errors.Is(err, provider.ErrTransport) {
		t.Fatalf("Pay() error = %v, want transport error", err)
	}
}

func TestHitPayProvider_NotifyRejections(t *testing.T) {
	fields := map[string]string{
		"payment_request_id": "PR-1",
		"reference_number":   "T1",
		"amount":             "10.00",
		"status":             "completed",
	}
	valid := signedBody(fields)

	tampered, _ := url.ParseQuery(valid)
	tampered.Set("amount", "10.01")

	unsigned, _ := url.ParseQuery(valid)
	unsigned.Del("hmac")

	failedFields := map[string]string{"payment_request_id": "PR-1", "reference_number": "T1", "status": "failed"}

	tests := []struct {
		name string
		conf provider.Config
		body string
	}{
		{"tampered amount", provider.Config{"hitpay_webhook_salt": testSalt}, tampered.Encode()},
		{"missing hmac", provider.Config{"hitpay_webhook_salt": testSalt}, unsigned.Encode()},
		{"wrong salt", provider.Config{"hitpay_webhook_salt": "other"}, valid},
		{"no salt configured", provider.Config{}, valid},
		{"failed status", provider.Config{"hitpay_webhook_salt": testSalt}, signedBody(failedFields)},
		{"empty body", provider.Config{"hitpay_webhook_salt": testSalt}, ""},
		{"no reference number", provider.Config{"hitpay_webhook_salt": testSalt}, signedBody(map[string]string{"payment_request_id": "PR-1"})},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := NewProvider(tt.conf)
			if _, ok := p.Notify(context.Background(), provider.WebhookEvent{Body: []byte(tt.body)}); ok {
				t.Error("Notify() accepted an untrusted webhook")
			}
		})
	}
}

func TestHitPayProvider_Form(t *testing.T) {
	p := NewProvider(provider.Config{})
	want := []string{"hitpay_api_key", "hitpay_webhook_salt", "hitpay_api_base", "hitpay_methods", "hitpay_currency"}
	got := provider.FormKeys(p.Form())
	if len(got) != len(want) {
		t.Fatalf("Form() keys = %v", got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Form()[%d] = %s, want %s", i, got[i], want[i])
		}
	}
}
