package middle

import (
	"fmt"
	"net/http"
	"runtime/debug"

	"github.com/onwards-ai/xboard-payments/infra/logger"
	"github.com/onwards-ai/xboard-payments/infra/response"
)

// PanicHandler writes the response for a recovered panic
type PanicHandler func(w http.ResponseWriter, r *http.Request, recovered any)

// PanicRecoveryMiddleware turns a panic in a payment or callback handler into a
// logged 500. Callback routes answer the plain "fail" text so providers retry.
func PanicRecoveryMiddleware() func(http.Handler) http.Handler {
	return PanicRecoveryWithCustomHandler(recoverPanic)
}

func recoverPanic(w http.ResponseWriter, r *http.Request, recovered any) {
	requestID := r.Header.Get(response.RequestIDHeader)
	if requestID == "" {
		requestID = "unknown"
	} else {
		w.Header().Set(response.RequestIDHeader, requestID)
	}

	logger.Error("panic recovered", fmt.Errorf("%v", recovered), logger.LogContext{
		Provider:  extractProviderFromURL(r.URL.Path),
		RequestID: requestID,
		Fields: map[string]any{
			"method": r.Method,
			"path":   r.URL.Path,
			"stack":  string(debug.Stack()),
		},
	})

	w.Header().Set("Cache-Control", "no-cache, no-store, must-revalidate")
	w.Header().Set("Pragma", "no-cache")
	w.Header().Set("Expires", "0")

	if isNotifyPath(r.URL.Path) {
		response.Text(w, http.StatusInternalServerError, "fail")
		return
	}
	response.Error(w, http.StatusInternalServerError, "Internal server error", fmt.Errorf("an unexpected error occurred"))
}

// PanicRecoveryWithCustomHandler recovers panics from next and hands them to handler
func PanicRecoveryWithCustomHandler(handler PanicHandler) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if recovered := recover(); recovered != nil {
					handler(w, r, recovered)
				}
			}()

			next.ServeHTTP(w, r)
		})
	}
}
