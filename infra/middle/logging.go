package middle

import (
	"net/http"
	"strings"
	"time"

	"github.com/onwards-ai/xboard-payments/infra/logger"
)

// statusRecorder captures the status code written by the next handler
type statusRecorder struct {
	http.ResponseWriter
	statusCode int
	written    bool
}

func newStatusRecorder(w http.ResponseWriter) *statusRecorder {
	return &statusRecorder{ResponseWriter: w, statusCode: http.StatusOK}
}

func (rw *statusRecorder) WriteHeader(statusCode int) {
	if !rw.written {
		rw.statusCode = statusCode
		rw.written = true
	}
	rw.ResponseWriter.WriteHeader(statusCode)
}

func (rw *statusRecorder) Write(b []byte) (int, error) {
	rw.written = true
	return rw.ResponseWriter.Write(b)
}

// RequestLoggingMiddleware logs method, path, status and latency of payment routes.
// Bodies are never logged since they carry credentials and signatures.
func RequestLoggingMiddleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !isPaymentEndpoint(r.URL.Path) {
				next.ServeHTTP(w, r)
				return
			}

			start := time.Now()
			rw := newStatusRecorder(w)
			next.ServeHTTP(rw, r)

			log := logger.WithContext(logger.LogContext{
				Provider:  extractProviderFromURL(r.URL.Path),
				RequestID: rw.Header().Get("X-Request-ID"),
			}).
				AddField("method", r.Method).
				AddField("path", r.URL.Path).
				AddField("status", rw.statusCode).
				AddField("duration_ms", time.Since(start).Milliseconds()).
				AddField("client_ip", GetClientIP(r))

			if rw.statusCode >= http.StatusInternalServerError {
				log.Warn("request failed")
				return
			}
			log.Info("request completed")
		})
	}
}

// isPaymentEndpoint checks if the URL path is a payment-related endpoint
func isPaymentEndpoint(path string) bool {
	for _, prefix := range []string{"/v1/payments/", "/notify/", "/v1/providers", "/v1/logs/"} {
		if strings.HasPrefix(path, prefix) {
			return true
		}
	}
	return false
}

// isNotifyPath reports whether path is a provider callback route
func isNotifyPath(path string) bool {
	return strings.HasPrefix(path, "/notify/")
}

// extractProviderFromURL extracts the provider name from the URL path:
// /v1/payments/{provider}, /notify/{provider}, /v1/providers/{provider}/...
// and /v1/logs/{provider}
func extractProviderFromURL(path string) string {
	segments := strings.Split(strings.Trim(path, "/"), "/")

	switch {
	case len(segments) >= 2 && segments[0] == "notify":
		return segments[1]
	case len(segments) >= 3 && segments[0] == "v1" && (segments[1] == "payments" || segments[1] == "providers" || segments[1] == "logs"):
		return segments[2]
	}
	return ""
}
