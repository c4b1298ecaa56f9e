package v1

import (
	"github.com/go-chi/chi/v5"
	"github.com/onwards-ai/xboard-payments/handler"
	"github.com/onwards-ai/xboard-payments/infra/config"
	"github.com/onwards-ai/xboard-payments/infra/logger"
	"github.com/onwards-ai/xboard-payments/infra/middle"
	"github.com/onwards-ai/xboard-payments/provider"
)

// LoadConfiguredProviders merges environment credentials into the store and
// loads a gateway for every provider that has a configuration. An empty
// allowlist loads every supported provider.
func LoadConfiguredProviders(paymentService *provider.PaymentService, providerConfig *config.ProviderConfig, allowlist []string) []provider.Name {
	allowed := make(map[string]bool, len(allowlist))
	for _, name := range allowlist {
		allowed[name] = true
	}

	var loaded []provider.Name
	for _, name := range provider.Names() {
		if len(allowed) > 0 && !allowed[string(name)] {
			continue
		}

		log := logger.WithProvider(string(name))
		fields, err := paymentService.Form(name)
		if err != nil {
			log.Warn("provider is not registered")
			continue
		}

		providerConfig.LoadFromEnv(string(name), provider.FormKeys(fields))
		conf, err := providerConfig.GetConfig(string(name))
		if err != nil {
			continue
		}

		if err := provider.ValidateConfigFields(name, conf, fields); err != nil {
			log.Warn("configuration incomplete, payments will fail: " + provider.MessageOf(err))
		}

		if err := paymentService.AddProvider(name, conf); err != nil {
			log.Error("failed to load provider", err)
			continue
		}

		log.Info("payment provider loaded")
		loaded = append(loaded, name)
	}

	if len(loaded) == 0 {
		logger.Warn("no payment providers configured")
	}
	return loaded
}

// Routes registers the panel facing API routes. auditLog may be nil when
// OpenSearch logging is disabled.
func Routes(r chi.Router, paymentService *provider.PaymentService, providerConfig *config.ProviderConfig, auditLog handler.LoggerInterface, adminIPs []string) {
	paymentHandler := handler.NewPaymentHandler(paymentService)
	configHandler := handler.NewConfigHandler(providerConfig, paymentService)
	logsHandler := handler.NewLogsHandler(auditLog)

	r.Post("/payments/{provider}", paymentHandler.ProcessPayment)

	r.Route("/providers", func(r chi.Router) {
		r.Get("/", configHandler.ListProviders)
		r.Get("/{provider}/form", configHandler.GetForm)

		r.Group(func(r chi.Router) {
			r.Use(middle.IPAllowlistMiddleware(adminIPs))

			r.Get("/stats", configHandler.GetStats)
			r.Get("/{provider}/config", configHandler.GetConfig)
			r.Put("/{provider}/config", configHandler.SetConfig)
			r.Delete("/{provider}/config", configHandler.DeleteConfig)
		})
	})

	r.Route("/logs/{provider}", func(r chi.Router) {
		r.Use(middle.IPAllowlistMiddleware(adminIPs))
		r.Get("/", logsHandler.ListLogs)
		r.Get("/summary", logsHandler.GetSummary)
	})
}
