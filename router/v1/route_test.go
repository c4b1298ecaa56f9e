package v1

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/onwards-ai/xboard-payments/infra/config"
	"github.com/onwards-ai/xboard-payments/provider"
	_ "github.com/onwards-ai/xboard-payments/provider/hitpay"
	_ "github.com/onwards-ai/xboard-payments/provider/omise"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfiguredProviders(t *testing.T) {
	t.Setenv("HITPAY_API_KEY", "hp-key")
	t.Setenv("HITPAY_WEBHOOK_SALT", "salt")
	t.Setenv("OMISE_SECRET_KEY", "")

	store := config.NewProviderConfig(nil)
	require.NoError(t, store.SetConfig("omise", map[string]string{"omise_secret_key": "skey_test"}))

	svc := provider.NewPaymentService()
	loaded := LoadConfiguredProviders(svc, store, nil)

	assert.Equal(t, []provider.Name{provider.HitPay, provider.Omise}, loaded)
	assert.Equal(t, []provider.Name{provider.HitPay, provider.Omise}, svc.Providers())

	conf, err := store.GetConfig("hitpay")
	require.NoError(t, err)
	assert.Equal(t, "hp-key", conf["hitpay_api_key"])
	assert.Equal(t, "salt", conf["hitpay_webhook_salt"])
}

func TestLoadConfiguredProviders_Allowlist(t *testing.T) {
	t.Setenv("HITPAY_API_KEY", "hp-key")

	store := config.NewProviderConfig(nil)
	require.NoError(t, store.SetConfig("omise", map[string]string{"omise_secret_key": "skey_test"}))

	svc := provider.NewPaymentService()
	loaded := LoadConfiguredProviders(svc, store, []string{"omise"})

	assert.Equal(t, []provider.Name{provider.Omise}, loaded)
	_, err := svc.Gateway(provider.HitPay)
	assert.ErrorIs(t, err, provider.ErrUnknownProvider)
}

func TestLoadConfiguredProviders_IncompleteConfigStillLoads(t *testing.T) {
	store := config.NewProviderConfig(nil)
	require.NoError(t, store.SetConfig("hitpay", map[string]string{"hitpay_currency": "SGD"}))

	svc := provider.NewPaymentService()
	loaded := LoadConfiguredProviders(svc, store, []string{"hitpay"})
	require.Equal(t, []provider.Name{provider.HitPay}, loaded)

	_, err := svc.Pay(t.Context(), provider.HitPay, provider.OrderRequest{
		TradeNo:     "T1",
		TotalAmount: 100,
		ReturnURL:   "https://shop.example.com/r",
		NotifyURL:   "https://pay.example.com/n",
	})
	assert.ErrorIs(t, err, provider.ErrConfiguration)
}

func TestRoutes(t *testing.T) {
	store := config.NewProviderConfig(nil)
	svc := provider.NewPaymentService()

	r := chi.NewRouter()
	require.NotPanics(t, func() {
		Routes(r, svc, store, nil, []string{"10.0.0.1"})
	})

	req := httptest.NewRequest(http.MethodGet, "/providers/hitpay/form", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)

	req = httptest.NewRequest(http.MethodPut, "/providers/hitpay/config", strings.NewReader(`{"hitpay_api_key":"k"}`))
	req.RemoteAddr = "192.0.2.10:1234"
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusForbidden, w.Code)

	req = httptest.NewRequest(http.MethodPut, "/providers/hitpay/config", strings.NewReader(`{"hitpay_api_key":"k"}`))
	req.RemoteAddr = "10.0.0.1:1234"
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []provider.Name{provider.HitPay}, svc.Providers())

	req = httptest.NewRequest(http.MethodGet, "/logs/hitpay?trade_no=T1", nil)
	req.RemoteAddr = "10.0.0.1:1234"
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}
