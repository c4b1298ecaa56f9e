package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"sort"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/onwards-ai/xboard-payments/infra/config"
	"github.com/onwards-ai/xboard-payments/infra/logger"
	"github.com/onwards-ai/xboard-payments/infra/response"
	"github.com/onwards-ai/xboard-payments/provider"
)

// ProviderServiceInterface is the part of the payment service that manages gateways
type ProviderServiceInterface interface {
	Providers() []provider.Name
	Form(name provider.Name) ([]provider.FormField, error)
	AddProvider(name provider.Name, conf provider.Config) error
	RemoveProvider(name provider.Name)
}

// ConfigHandler handles configuration related HTTP requests
type ConfigHandler struct {
	providerConfig *config.ProviderConfig
	paymentService ProviderServiceInterface
}

// NewConfigHandler creates a new config handler
func NewConfigHandler(providerConfig *config.ProviderConfig, paymentService ProviderServiceInterface) *ConfigHandler {
	return &ConfigHandler{
		providerConfig: providerConfig,
		paymentService: paymentService,
	}
}

// ListProviders returns the configured providers next to every supported one
func (h *ConfigHandler) ListProviders(w http.ResponseWriter, r *http.Request) {
	response.Success(w, http.StatusOK, "Providers retrieved", map[string]any{
		"configured": h.paymentService.Providers(),
		"supported":  provider.Names(),
	})
}

// GetForm returns the configuration schema of a provider
func (h *ConfigHandler) GetForm(w http.ResponseWriter, r *http.Request) {
	name, err := provider.ParseName(chi.URLParam(r, "provider"))
	if err != nil {
		response.Error(w, http.StatusNotFound, "Unknown provider", err)
		return
	}

	fields, err := h.paymentService.Form(name)
	if err != nil {
		response.Error(w, http.StatusNotFound, "Provider is not registered", err)
		return
	}

	response.Success(w, http.StatusOK, "Form retrieved", fields)
}

// SetConfig validates, stores and applies the configuration of a provider
func (h *ConfigHandler) SetConfig(w http.ResponseWriter, r *http.Request) {
	name, err := provider.ParseName(chi.URLParam(r, "provider"))
	if err != nil {
		response.Error(w, http.StatusNotFound, "Unknown provider", err)
		return
	}

	var conf map[string]string
	if err := json.NewDecoder(r.Body).Decode(&conf); err != nil {
		response.Error(w, http.StatusBadRequest, "Invalid request format", err)
		return
	}

	fields, err := h.paymentService.Form(name)
	if err != nil {
		response.Error(w, http.StatusNotFound, "Provider is not registered", err)
		return
	}
	if err := provider.ValidateConfigFields(name, conf, fields); err != nil {
		response.Error(w, http.StatusBadRequest, "Invalid configuration", errors.New(provider.MessageOf(err)))
		return
	}

	if err := h.providerConfig.SetConfig(string(name), conf); err != nil {
		response.Error(w, http.StatusInternalServerError, "Failed to store configuration", err)
		return
	}
	if err := h.paymentService.AddProvider(name, conf); err != nil {
		response.Error(w, http.StatusInternalServerError, "Failed to register provider", err)
		return
	}

	logger.WithProvider(string(name)).AddField("keys", len(conf)).Info("provider configuration updated")

	keys := make([]string, 0, len(conf))
	for k := range conf {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	response.Success(w, http.StatusOK, "Configuration updated", map[string]any{
		"provider": name,
		"keys":     keys,
	})
}

// GetConfig returns the stored configuration of a provider with secrets masked
func (h *ConfigHandler) GetConfig(w http.ResponseWriter, r *http.Request) {
	name, err := provider.ParseName(chi.URLParam(r, "provider"))
	if err != nil {
		response.Error(w, http.StatusNotFound, "Unknown provider", err)
		return
	}

	conf, err := h.providerConfig.GetConfig(string(name))
	if err != nil {
		response.Error(w, http.StatusNotFound, "Configuration not found", err)
		return
	}

	secret := make(map[string]bool)
	if fields, err := h.paymentService.Form(name); err == nil {
		for _, f := range fields {
			secret[f.Key] = f.Type == "secret"
		}
	}

	publicConfig := make(map[string]string, len(conf))
	for key, value := range conf {
		if secret[key] || isSensitiveKey(key) {
			publicConfig[key] = maskValue(value)
		} else {
			publicConfig[key] = value
		}
	}

	response.Success(w, http.StatusOK, "Configuration retrieved", map[string]any{
		"provider": name,
		"config":   publicConfig,
	})
}

// DeleteConfig removes the stored configuration and unloads the gateway
func (h *ConfigHandler) DeleteConfig(w http.ResponseWriter, r *http.Request) {
	name, err := provider.ParseName(chi.URLParam(r, "provider"))
	if err != nil {
		response.Error(w, http.StatusNotFound, "Unknown provider", err)
		return
	}

	if err := h.providerConfig.DeleteConfig(string(name)); err != nil {
		if errors.Is(err, config.ErrConfigNotFound) {
			response.Error(w, http.StatusNotFound, "Configuration not found", err)
			return
		}
		response.Error(w, http.StatusInternalServerError, "Failed to delete configuration", err)
		return
	}
	h.paymentService.RemoveProvider(name)

	response.Success(w, http.StatusOK, "Configuration deleted", map[string]any{
		"provider": name,
	})
}

// GetStats returns configuration storage statistics
func (h *ConfigHandler) GetStats(w http.ResponseWriter, r *http.Request) {
	response.Success(w, http.StatusOK, "Statistics retrieved", h.providerConfig.GetStats())
}

func isSensitiveKey(key string) bool {
	key = strings.ToLower(key)
	for _, marker := range []string{"key", "secret", "salt", "password", "token"} {
		if strings.Contains(key, marker) {
			return true
		}
	}
	return false
}

func maskValue(value string) string {
	if len(value) > 8 {
		return value[:4] + "****" + value[len(value)-4:]
	}
	return "****"
}
