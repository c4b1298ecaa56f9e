package middle

import (
	"mime"
	"net/http"
	"strings"

	"github.com/onwards-ai/xboard-payments/infra/response"
)

const maxRequestBytes = 10 << 20

// SecurityHeadersMiddleware adds security headers to responses
func SecurityHeadersMiddleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("X-Content-Type-Options", "nosniff")
			w.Header().Set("X-Frame-Options", "DENY")
			w.Header().Set("Strict-Transport-Security", "max-age=31536000; includeSubDomains")
			w.Header().Set("Content-Security-Policy", "default-src 'none'")
			w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")

			next.ServeHTTP(w, r)
		})
	}
}

// IPAllowlistMiddleware restricts access to the listed client IPs. An empty list allows all.
func IPAllowlistMiddleware(allowed []string) func(http.Handler) http.Handler {
	set := make(map[string]struct{}, len(allowed))
	for _, ip := range allowed {
		if ip = strings.TrimSpace(ip); ip != "" {
			set[ip] = struct{}{}
		}
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if len(set) == 0 {
				next.ServeHTTP(w, r)
				return
			}

			if _, ok := set[GetClientIP(r)]; !ok {
				response.Error(w, http.StatusForbidden, "IP not allowed", nil)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// RequestValidationMiddleware checks content type and size of API requests.
// Gateway callbacks under /notify may use JSON, form or plain bodies.
func RequestValidationMiddleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.ContentLength > maxRequestBytes {
				response.Error(w, http.StatusRequestEntityTooLarge, "Request body too large", nil)
				return
			}

			isCallback := isNotifyPath(r.URL.Path)
			if !isCallback && (r.Method == http.MethodPost || r.Method == http.MethodPut || r.Method == http.MethodPatch) {
				mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
				switch mediaType {
				case "application/json":
				case "":
					response.Error(w, http.StatusBadRequest, "Content-Type header is required", nil)
					return
				default:
					response.Error(w, http.StatusUnsupportedMediaType, "Content-Type must be application/json", nil)
					return
				}
			}

			next.ServeHTTP(w, r)
		})
	}
}
