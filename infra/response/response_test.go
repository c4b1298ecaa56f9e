package response

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestSuccessResponse(t *testing.T) {
	w := httptest.NewRecorder()

	Success(w, http.StatusOK, "Test successful", map[string]string{"key": "value"})

	if w.Code != http.StatusOK {
		t.Errorf("Expected status 200, got %d", w.Code)
	}

	contentType := w.Header().Get("Content-Type")
	if contentType != "application/json" {
		t.Errorf("Expected Content-Type 'application/json', got '%s'", contentType)
	}

	var resp Response
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if !resp.Success || resp.Code != http.StatusOK || resp.Message != "Test successful" {
		t.Errorf("unexpected response: %+v", resp)
	}
}

func TestErrorResponse(t *testing.T) {
	w := httptest.NewRecorder()

	Error(w, http.StatusBadRequest, "Test error", errors.New("boom"))

	if w.Code != http.StatusBadRequest {
		t.Errorf("Expected status 400, got %d", w.Code)
	}

	contentType := w.Header().Get("Content-Type")
	if contentType != "application/json" {
		t.Errorf("Expected Content-Type 'application/json', got '%s'", contentType)
	}

	var resp Response
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if resp.Success || resp.Error != "boom" {
		t.Errorf("unexpected response: %+v", resp)
	}
}

func TestFailResponse(t *testing.T) {
	w := httptest.NewRecorder()
	w.Header().Set(RequestIDHeader, "req-1")

	Fail(w, http.StatusBadGateway, "Payment failed", "provider_rejection", errors.New("amount too small"))

	var resp Response
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if resp.ErrorKind != "provider_rejection" || resp.RequestID != "req-1" || resp.Error != "amount too small" {
		t.Errorf("unexpected response: %+v", resp)
	}
}

func TestEnvelopeOmitsEmptyFields(t *testing.T) {
	w := httptest.NewRecorder()

	Error(w, http.StatusNotFound, "Unknown provider", nil)

	var raw map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &raw); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	for _, key := range []string{"error", "error_kind", "request_id", "data"} {
		if _, ok := raw[key]; ok {
			t.Errorf("%s should be omitted: %v", key, raw)
		}
	}
}

func TestTextResponse(t *testing.T) {
	w := httptest.NewRecorder()

	Text(w, http.StatusOK, "success")

	if w.Code != http.StatusOK {
		t.Errorf("Expected status 200, got %d", w.Code)
	}
	if got := w.Body.String(); got != "success" {
		t.Errorf("Expected body 'success', got '%s'", got)
	}
	if ct := w.Header().Get("Content-Type"); ct != "text/plain; charset=utf-8" {
		t.Errorf("unexpected Content-Type %q", ct)
	}
}

func BenchmarkSuccessResponse(b *testing.B) {
	data := map[string]string{"test": "data"}

	for b.Loop() {
		w := httptest.NewRecorder()
		Success(w, http.StatusOK, "Benchmark test", data)
	}
}
