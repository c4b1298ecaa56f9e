package middle

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("success"))
	})
}

func TestAuthMiddleware(t *testing.T) {
	handler := AuthMiddleware("test-api-key")(okHandler())

	tests := []struct {
		name           string
		authHeader     string
		expectedStatus int
	}{
		{"valid key", "Bearer test-api-key", http.StatusOK},
		{"lower case scheme", "bearer test-api-key", http.StatusOK},
		{"wrong key", "Bearer wrong-key", http.StatusUnauthorized},
		{"prefix of key", "Bearer test-api", http.StatusUnauthorized},
		{"missing header", "", http.StatusUnauthorized},
		{"basic scheme", "Basic test-api-key", http.StatusUnauthorized},
		{"empty token", "Bearer ", http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", "/v1/providers", nil)
			if tt.authHeader != "" {
				req.Header.Set("Authorization", tt.authHeader)
			}

			rr := httptest.NewRecorder()
			handler.ServeHTTP(rr, req)

			if rr.Code != tt.expectedStatus {
				t.Errorf("Expected status %d, got %d", tt.expectedStatus, rr.Code)
			}
		})
	}
}

func TestAuthMiddleware_LogsRejectedKey(t *testing.T) {
	logs := observeLogs(t)
	handler := AuthMiddleware("test-api-key")(okHandler())

	req := httptest.NewRequest("POST", "/v1/payments/omise", nil)
	req.Header.Set("Authorization", "Bearer nope")
	req.RemoteAddr = "203.0.113.5:4000"
	handler.ServeHTTP(httptest.NewRecorder(), req)

	entries := logs.FilterMessage("invalid panel API key").All()
	if len(entries) != 1 {
		t.Fatalf("expected one warning, got %d", len(entries))
	}
	fields := entries[0].ContextMap()
	if fields["provider"] != "omise" || fields["client_ip"] != "203.0.113.5" {
		t.Errorf("unexpected fields %v", fields)
	}
	if _, leaked := fields["token"]; leaked {
		t.Error("token must not be logged")
	}
}

func TestBearerToken(t *testing.T) {
	token, msg := bearerToken("Bearer  abc ")
	if token != "abc" || msg != "" {
		t.Errorf("bearerToken() = %q, %q", token, msg)
	}
	if _, msg := bearerToken("Token abc"); msg == "" {
		t.Error("expected a reason for a foreign scheme")
	}
}

func TestAuthMiddleware_NotConfigured(t *testing.T) {
	handler := AuthMiddleware("")(okHandler())

	req := httptest.NewRequest("GET", "/test", nil)
	req.Header.Set("Authorization", "Bearer anything")
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusInternalServerError {
		t.Errorf("Expected status 500, got %d", rr.Code)
	}
}

func TestRateLimiter(t *testing.T) {
	rl := NewRateLimiter(60, 2) // one token per second
	defer rl.Stop()

	clientIP := "192.168.1.1"
	now := time.Now()

	if !rl.allowAt(clientIP, now) {
		t.Error("First request should be allowed")
	}
	if !rl.allowAt(clientIP, now) {
		t.Error("Second request should be allowed")
	}
	if rl.allowAt(clientIP, now) {
		t.Error("Third request should be blocked")
	}

	// Other clients have their own bucket
	if !rl.allowAt("192.168.1.2", now) {
		t.Error("Different client should be allowed")
	}

	// A token is refilled after a second
	if !rl.allowAt(clientIP, now.Add(1100*time.Millisecond)) {
		t.Error("Request after refill should be allowed")
	}
}

func TestRateLimiter_EvictIdle(t *testing.T) {
	rl := NewRateLimiter(60, 1)
	defer rl.Stop()

	now := time.Now()
	rl.allowAt("10.0.0.1", now)
	rl.allowAt("10.0.0.2", now.Add(visitorTTL))

	rl.evictIdle(now.Add(visitorTTL + time.Second))

	rl.mu.Lock()
	defer rl.mu.Unlock()
	if _, ok := rl.visitors["10.0.0.1"]; ok {
		t.Error("idle visitor should be evicted")
	}
	if _, ok := rl.visitors["10.0.0.2"]; !ok {
		t.Error("recent visitor should be kept")
	}
}

func TestNewRateLimiter_Defaults(t *testing.T) {
	rl := NewRateLimiter(0, -1)
	defer rl.Stop()
	rl.Stop()

	if rl.perMin != 100 || rl.burst != 10 {
		t.Errorf("unexpected defaults: %d/%d", rl.perMin, rl.burst)
	}
}

func TestRateLimitMiddleware(t *testing.T) {
	rl := NewRateLimiter(1, 1)
	defer rl.Stop()

	handler := RateLimitMiddleware(rl)(okHandler())

	req1 := httptest.NewRequest("GET", "/test", nil)
	req1.RemoteAddr = "192.168.1.1:12345"
	rr1 := httptest.NewRecorder()
	handler.ServeHTTP(rr1, req1)

	if rr1.Code != http.StatusOK {
		t.Errorf("First request should succeed, got status %d", rr1.Code)
	}
	if rr1.Header().Get("X-RateLimit-Limit") != "1" {
		t.Errorf("unexpected limit header %q", rr1.Header().Get("X-RateLimit-Limit"))
	}

	req2 := httptest.NewRequest("GET", "/test", nil)
	req2.RemoteAddr = "192.168.1.1:12346"
	rr2 := httptest.NewRecorder()
	handler.ServeHTTP(rr2, req2)

	if rr2.Code != http.StatusTooManyRequests {
		t.Errorf("Second request should be rate limited, got status %d", rr2.Code)
	}
	if rr2.Header().Get("Retry-After") == "" {
		t.Error("Expected Retry-After header")
	}
}

func TestSecurityHeadersMiddleware(t *testing.T) {
	handler := SecurityHeadersMiddleware()(okHandler())

	req := httptest.NewRequest("GET", "/test", nil)
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	expectedHeaders := map[string]string{
		"X-Content-Type-Options":  "nosniff",
		"X-Frame-Options":         "DENY",
		"Content-Security-Policy": "default-src 'none'",
		"Referrer-Policy":         "strict-origin-when-cross-origin",
	}

	for header, expectedValue := range expectedHeaders {
		if rr.Header().Get(header) != expectedValue {
			t.Errorf("Expected %s: %s, got: %s", header, expectedValue, rr.Header().Get(header))
		}
	}
}

func trustProxies(t *testing.T, entries ...string) {
	t.Helper()
	if err := SetTrustedProxies(entries); err != nil {
		t.Fatalf("SetTrustedProxies: %v", err)
	}
	t.Cleanup(func() { SetTrustedProxies(nil) })
}

func TestIPAllowlistMiddleware(t *testing.T) {
	trustProxies(t, "10.1.0.0/16")
	handler := IPAllowlistMiddleware([]string{"127.0.0.1", " 192.168.1.100 ", "10.0.0.5"})(okHandler())

	tests := []struct {
		name           string
		remoteAddr     string
		headers        map[string]string
		expectedStatus int
	}{
		{"Allowed IP", "127.0.0.1:5000", nil, http.StatusOK},
		{"Another allowed IP", "192.168.1.100:5000", nil, http.StatusOK},
		{"Other IP", "192.168.1.99:5000", nil, http.StatusForbidden},
		{"Forged X-Forwarded-For", "203.0.113.77:4444", map[string]string{"X-Forwarded-For": "10.0.0.5"}, http.StatusForbidden},
		{"Forged X-Real-IP", "203.0.113.77:4444", map[string]string{"X-Real-IP": "10.0.0.5"}, http.StatusForbidden},
		{"Forwarded by trusted proxy", "10.1.2.3:4444", map[string]string{"X-Forwarded-For": "10.0.0.5"}, http.StatusOK},
		{"Spoofed hop behind trusted proxy", "10.1.2.3:4444", map[string]string{"X-Forwarded-For": "10.0.0.5, 203.0.113.77"}, http.StatusForbidden},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", "/test", nil)
			req.RemoteAddr = tt.remoteAddr
			for k, v := range tt.headers {
				req.Header.Set(k, v)
			}

			rr := httptest.NewRecorder()
			handler.ServeHTTP(rr, req)

			if rr.Code != tt.expectedStatus {
				t.Errorf("Expected status %d, got %d", tt.expectedStatus, rr.Code)
			}
		})
	}

	open := IPAllowlistMiddleware(nil)(okHandler())
	rr := httptest.NewRecorder()
	open.ServeHTTP(rr, httptest.NewRequest("GET", "/test", nil))
	if rr.Code != http.StatusOK {
		t.Errorf("empty allowlist should allow all, got %d", rr.Code)
	}
}

func TestRateLimitMiddleware_IgnoresForgedForwardedFor(t *testing.T) {
	rl := NewRateLimiter(1, 1)
	defer rl.Stop()
	handler := RateLimitMiddleware(rl)(okHandler())

	for i, forged := range []string{"198.51.100.1", "198.51.100.2"} {
		req := httptest.NewRequest("POST", "/notify/hitpay", nil)
		req.RemoteAddr = "203.0.113.9:4000"
		req.Header.Set("X-Forwarded-For", forged)
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, req)

		want := http.StatusOK
		if i == 1 {
			want = http.StatusTooManyRequests
		}
		if rr.Code != want {
			t.Errorf("request %d: expected %d, got %d", i, want, rr.Code)
		}
	}

	rl.mu.Lock()
	defer rl.mu.Unlock()
	if len(rl.visitors) != 1 {
		t.Errorf("expected one visitor, got %d", len(rl.visitors))
	}
}

func TestSetTrustedProxies_Invalid(t *testing.T) {
	trustProxies(t)
	if err := SetTrustedProxies([]string{"not-an-ip"}); err == nil {
		t.Error("expected error for invalid proxy")
	}
	if err := SetTrustedProxies([]string{"10.0.0.0/33"}); err == nil {
		t.Error("expected error for invalid CIDR")
	}
}

func TestRequestValidationMiddleware(t *testing.T) {
	handler := RequestValidationMiddleware()(okHandler())

	tests := []struct {
		name           string
		method         string
		path           string
		contentType    string
		expectedStatus int
	}{
		{"JSON API request", "POST", "/v1/payments/hitpay", "application/json; charset=utf-8", http.StatusOK},
		{"missing content type", "POST", "/v1/payments/hitpay", "", http.StatusBadRequest},
		{"form on API route", "PUT", "/v1/providers/hitpay/config", "application/x-www-form-urlencoded", http.StatusUnsupportedMediaType},
		{"form callback", "POST", "/notify/hitpay", "application/x-www-form-urlencoded", http.StatusOK},
		{"callback without content type", "POST", "/notify/smoochpay", "", http.StatusOK},
		{"GET request", "GET", "/v1/providers", "", http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, tt.path, strings.NewReader("{}"))
			if tt.contentType != "" {
				req.Header.Set("Content-Type", tt.contentType)
			}

			rr := httptest.NewRecorder()
			handler.ServeHTTP(rr, req)

			if rr.Code != tt.expectedStatus {
				t.Errorf("Expected status %d, got %d", tt.expectedStatus, rr.Code)
			}
		})
	}

	big := httptest.NewRequest("POST", "/notify/hitpay", strings.NewReader("x"))
	big.ContentLength = maxRequestBytes + 1
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, big)
	if rr.Code != http.StatusRequestEntityTooLarge {
		t.Errorf("Expected status 413, got %d", rr.Code)
	}
}

func TestGetClientIP(t *testing.T) {
	trustProxies(t, "10.0.0.0/8", "2001:db8::10")

	tests := []struct {
		name       string
		headers    map[string]string
		remoteAddr string
		expected   string
	}{
		{"X-Forwarded-For list", map[string]string{"X-Forwarded-For": "203.0.113.1, 10.0.0.1"}, "10.0.0.2:80", "203.0.113.1"},
		{"X-Forwarded-For rightmost untrusted", map[string]string{"X-Forwarded-For": "198.51.100.9, 203.0.113.1, 10.0.0.1"}, "10.0.0.2:80", "203.0.113.1"},
		{"X-Forwarded-For single", map[string]string{"X-Forwarded-For": " 203.0.113.2 "}, "10.0.0.2:80", "203.0.113.2"},
		{"X-Real-IP", map[string]string{"X-Real-IP": "203.0.113.3"}, "10.0.0.2:80", "203.0.113.3"},
		{"trusted IPv6 proxy", map[string]string{"X-Real-IP": "203.0.113.6"}, "[2001:db8::10]:443", "203.0.113.6"},
		{"untrusted peer headers ignored", map[string]string{"X-Forwarded-For": "10.0.0.5", "X-Real-IP": "10.0.0.5"}, "198.51.100.4:5555", "198.51.100.4"},
		{"trusted proxy without headers", nil, "10.0.0.2:80", "10.0.0.2"},
		{"RemoteAddr", nil, "198.51.100.4:5555", "198.51.100.4"},
		{"IPv6 localhost", nil, "[::1]:5555", "127.0.0.1"},
		{"IPv6", nil, "[2001:db8::1]:443", "2001:db8::1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", "/", nil)
			req.RemoteAddr = tt.remoteAddr
			for k, v := range tt.headers {
				req.Header.Set(k, v)
			}
			if got := GetClientIP(req); got != tt.expected {
				t.Errorf("GetClientIP() = %q, want %q", got, tt.expected)
			}
		})
	}
}

func TestGetClientIP_NoTrustedProxies(t *testing.T) {
	trustProxies(t)

	req := httptest.NewRequest("GET", "/", nil)
	req.RemoteAddr = "10.0.0.2:80"
	req.Header.Set("X-Forwarded-For", "203.0.113.1")
	if got := GetClientIP(req); got != "10.0.0.2" {
		t.Errorf("GetClientIP() = %q, want 10.0.0.2", got)
	}
}

func TestExtractProviderFromURL(t *testing.T) {
	tests := map[string]string{
		"/v1/payments/hitpay":        "hitpay",
		"/notify/stripe_credit":      "stripe_credit",
		"/v1/providers/omise/config": "omise",
		"/v1/logs/paypal/summary":    "paypal",
		"/v1/providers":              "",
		"/health":                    "",
	}
	for path, expected := range tests {
		if got := extractProviderFromURL(path); got != expected {
			t.Errorf("extractProviderFromURL(%q) = %q, want %q", path, got, expected)
		}
	}
}

func TestRequestLoggingMiddleware_PassesThrough(t *testing.T) {
	handler := RequestLoggingMiddleware()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))

	for _, path := range []string{"/v1/payments/hitpay", "/health"} {
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, httptest.NewRequest("POST", path, nil))
		if rr.Code != http.StatusBadGateway {
			t.Errorf("%s: status should be preserved, got %d", path, rr.Code)
		}
	}
}
