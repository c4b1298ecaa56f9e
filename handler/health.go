package handler

import (
	"fmt"
	"net/http"
	"runtime"
	"time"

	"github.com/onwards-ai/xboard-payments/infra/config"
	"github.com/onwards-ai/xboard-payments/infra/response"
	"github.com/onwards-ai/xboard-payments/provider"
)

const serviceVersion = "1.0.0"

// ProviderLister reports the configured gateways
type ProviderLister interface {
	Providers() []provider.Name
}

// HealthHandler handles health check requests
type HealthHandler struct {
	paymentService ProviderLister
	providerConfig *config.ProviderConfig
	startTime      time.Time
}

// HealthStatus represents overall system health
type HealthStatus struct {
	Status      string                    `json:"status"`
	Version     string                    `json:"version"`
	Timestamp   time.Time                 `json:"timestamp"`
	Uptime      string                    `json:"uptime"`
	Environment string                    `json:"environment"`
	Providers   []provider.Name           `json:"providers"`
	System      *SystemHealth             `json:"system"`
	Services    map[string]*ServiceHealth `json:"services"`
}

// SystemHealth represents process resource usage
type SystemHealth struct {
	Alloc      string `json:"alloc"`
	Sys        string `json:"sys"`
	GCRuns     uint32 `json:"gc_runs"`
	GoRoutines int    `json:"goroutines"`
}

// ServiceHealth represents individual service health
type ServiceHealth struct {
	Status      string `json:"status"`
	Healthy     bool   `json:"healthy"`
	Description string `json:"description,omitempty"`
	Error       string `json:"error,omitempty"`
}

// NewHealthHandler creates a new health handler
func NewHealthHandler(paymentService ProviderLister, providerConfig *config.ProviderConfig) *HealthHandler {
	return &HealthHandler{
		paymentService: paymentService,
		providerConfig: providerConfig,
		startTime:      time.Now(),
	}
}

// CheckHealth reports service, storage and provider status
func (h *HealthHandler) CheckHealth(w http.ResponseWriter, r *http.Request) {
	health := &HealthStatus{
		Version:     serviceVersion,
		Timestamp:   time.Now().UTC(),
		Uptime:      time.Since(h.startTime).String(),
		Environment: getEnvironment(),
		Providers:   []provider.Name{},
		System:      checkSystemHealth(),
		Services:    h.checkServicesHealth(),
	}
	if h.paymentService != nil {
		health.Providers = h.paymentService.Providers()
	}

	health.Status = determineOverallStatus(health)

	statusCode := http.StatusOK
	if health.Status == "unhealthy" {
		statusCode = http.StatusServiceUnavailable
	}

	_ = response.WriteJSON(w, statusCode, response.Response{
		Code:    statusCode,
		Success: health.Status != "unhealthy",
		Message: fmt.Sprintf("Service is %s", health.Status),
		Data:    health,
	})
}

func (h *HealthHandler) checkServicesHealth() map[string]*ServiceHealth {
	services := make(map[string]*ServiceHealth)

	if h.paymentService != nil {
		services["payment_service"] = &ServiceHealth{Status: "healthy", Healthy: true, Description: "Payment processing service"}
	} else {
		services["payment_service"] = &ServiceHealth{Status: "unhealthy", Error: "Payment service not initialized"}
	}

	if h.providerConfig == nil {
		services["provider_config"] = &ServiceHealth{Status: "unhealthy", Error: "Provider config service not initialized"}
		return services
	}

	stats := h.providerConfig.GetStats()
	switch {
	case stats["sqlite_error"] != nil:
		services["provider_config"] = &ServiceHealth{Status: "degraded", Healthy: true, Description: "Provider configuration store", Error: fmt.Sprint(stats["sqlite_error"])}
	case stats["sqlite"] == "not_available":
		services["provider_config"] = &ServiceHealth{Status: "healthy", Healthy: true, Description: "Provider configuration kept in memory"}
	default:
		services["provider_config"] = &ServiceHealth{Status: "healthy", Healthy: true, Description: "Provider configuration persisted in SQLite"}
	}
	return services
}

func determineOverallStatus(health *HealthStatus) string {
	status := "healthy"
	for _, service := range health.Services {
		if !service.Healthy {
			return "unhealthy"
		}
		if service.Status == "degraded" {
			status = "degraded"
		}
	}
	if len(health.Providers) == 0 {
		status = "degraded"
	}
	return status
}

func checkSystemHealth() *SystemHealth {
	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)

	return &SystemHealth{
		Alloc:      formatBytes(memStats.Alloc),
		Sys:        formatBytes(memStats.Sys),
		GCRuns:     memStats.NumGC,
		GoRoutines: runtime.NumGoroutine(),
	}
}

func getEnvironment() string {
	if env := config.GetEnv("ENVIRONMENT", ""); env != "" {
		return env
	}
	if env := config.GetEnv("ENV", ""); env != "" {
		return env
	}
	return "development"
}

func formatBytes(bytes uint64) string {
	const unit = 1024
	if bytes < unit {
		return fmt.Sprintf("%d B", bytes)
	}
	div, exp := int64(unit), 0
	for n := bytes / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(bytes)/float64(div), "KMGTPE"[exp])
}
