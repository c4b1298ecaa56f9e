package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/onwards-ai/xboard-payments/handler"
	"github.com/onwards-ai/xboard-payments/infra/config"
	"github.com/onwards-ai/xboard-payments/infra/middle"
	"github.com/onwards-ai/xboard-payments/provider"
	v1 "github.com/onwards-ai/xboard-payments/router/v1"

	// Import for side-effect registration
	_ "github.com/onwards-ai/xboard-payments/provider/airwallex"
	_ "github.com/onwards-ai/xboard-payments/provider/hitpay"
	_ "github.com/onwards-ai/xboard-payments/provider/omise"
	_ "github.com/onwards-ai/xboard-payments/provider/paypal"
	_ "github.com/onwards-ai/xboard-payments/provider/smoochpay"
	_ "github.com/onwards-ai/xboard-payments/provider/stripecredit"
	_ "github.com/onwards-ai/xboard-payments/provider/yibaopay"
)

// Dependencies are the services the HTTP surface is built on
type Dependencies struct {
	PaymentService *provider.PaymentService
	ProviderConfig *config.ProviderConfig
	RateLimiter    *middle.RateLimiter
	Metrics        http.Handler
	AuditLog       handler.LoggerInterface
	APIKey         string
	AdminIPs       []string
}

// Routes mounts health, metrics, gateway callbacks and the authenticated v1 API
func Routes(r chi.Router, deps Dependencies) {
	healthHandler := handler.NewHealthHandler(deps.PaymentService, deps.ProviderConfig)
	paymentHandler := handler.NewPaymentHandler(deps.PaymentService)

	r.Get("/health", healthHandler.CheckHealth)
	if deps.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", deps.Metrics)
	}

	r.Group(func(r chi.Router) {
		if deps.RateLimiter != nil {
			r.Use(middle.RateLimitMiddleware(deps.RateLimiter))
		}

		// Unauthenticated, adapters verify callback signatures
		r.Get("/notify/{provider}", paymentHandler.HandleNotify)
		r.Post("/notify/{provider}", paymentHandler.HandleNotify)

		r.Route("/v1", func(r chi.Router) {
			r.Use(middle.AuthMiddleware(deps.APIKey))
			v1.Routes(r, deps.PaymentService, deps.ProviderConfig, deps.AuditLog, deps.AdminIPs)
		})
	})
}
