package middle

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/onwards-ai/xboard-payments/infra/logger"
	"github.com/onwards-ai/xboard-payments/infra/response"
)

// AuthMiddleware guards the panel API with a static bearer key.
// An empty expected key rejects every request with 500.
func AuthMiddleware(expectedAPIKey string) func(http.Handler) http.Handler {
	expected := []byte(expectedAPIKey)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if len(expected) == 0 {
				logger.Error("panel API key is not configured", nil)
				response.Error(w, http.StatusInternalServerError, "API key not configured", nil)
				return
			}

			token, msg := bearerToken(r.Header.Get("Authorization"))
			if msg != "" {
				response.Error(w, http.StatusUnauthorized, msg, nil)
				return
			}

			if subtle.ConstantTimeCompare([]byte(token), expected) != 1 {
				logger.WithContext(logger.LogContext{Provider: extractProviderFromURL(r.URL.Path)}).
					AddField("client_ip", GetClientIP(r)).
					AddField("path", r.URL.Path).
					Warn("invalid panel API key")
				response.Error(w, http.StatusUnauthorized, "Invalid API key", nil)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// bearerToken extracts the token of an Authorization header, or a client facing reason
func bearerToken(header string) (string, string) {
	if header == "" {
		return "", "Authorization header required"
	}
	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", "Invalid authorization format. Use: Bearer <api_key>"
	}
	if token = strings.TrimSpace(token); token == "" {
		return "", "API key required"
	}
	return token, ""
}
