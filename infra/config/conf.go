package config

import (
	"os"
	"strconv"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
)

type Config struct {
	Validator *validator.Validate
}

// AppConfig represents the application configuration
type AppConfig struct {
	Port              string
	BaseURL           string
	Environment       string
	OpenSearchURL     string
	OpenSearchUser    string
	OpenSearchPass    string
	EnableLogging     bool
	LoggingLevel      string
	LogFile           string
	LogMaxSizeMB      int
	LogMaxBackups     int
	LogMaxAgeDays     int
	ConfigDBPath      string
	RateLimitPerMin   int
	RateLimitBurst    int
	EnableTracing     bool
	ProviderAllowlist []string
	APIKey            string
	AdminIPAllowlist  []string
	TrustedProxies    []string
}

var (
	instance          *Config
	appConfigInstance *AppConfig
	appOnce           sync.Once
	appConfigOnce     sync.Once
)

// App returns the shared validator holder
func App() *Config {
	appOnce.Do(func() {
		instance = &Config{
			Validator: validator.New(),
		}
	})
	return instance
}

// GetAppConfig returns the application configuration
func GetAppConfig() *AppConfig {
	appConfigOnce.Do(func() {
		appConfigInstance = LoadAppConfig()
	})
	return appConfigInstance
}

// LoadAppConfig reads the application configuration from the environment
func LoadAppConfig() *AppConfig {
	return &AppConfig{
		Port:              GetEnv("APP_PORT", "9999"),
		BaseURL:           GetEnv("APP_URL", "http://localhost:9999"),
		Environment:       GetEnv("ENVIRONMENT", "development"),
		OpenSearchURL:     GetEnv("OPENSEARCH_URL", "http://localhost:9200"),
		OpenSearchUser:    GetEnv("OPENSEARCH_USER", ""),
		OpenSearchPass:    GetEnv("OPENSEARCH_PASSWORD", ""),
		EnableLogging:     GetBoolEnv("ENABLE_OPENSEARCH_LOGGING", false),
		LoggingLevel:      GetEnv("LOG_LEVEL", "info"),
		LogFile:           GetEnv("LOG_FILE", ""),
		LogMaxSizeMB:      GetIntEnv("LOG_MAX_SIZE_MB", 100),
		LogMaxBackups:     GetIntEnv("LOG_MAX_BACKUPS", 5),
		LogMaxAgeDays:     GetIntEnv("LOG_MAX_AGE_DAYS", 30),
		ConfigDBPath:      GetEnv("CONFIG_DB_PATH", "./data/providers.db"),
		RateLimitPerMin:   GetIntEnv("RATE_LIMIT_PER_MINUTE", 120),
		RateLimitBurst:    GetIntEnv("RATE_LIMIT_BURST", 20),
		EnableTracing:     GetBoolEnv("TRACING_ENABLED", false),
		ProviderAllowlist: GetListEnv("PAYMENT_PROVIDERS"),
		APIKey:            GetEnv("API_KEY", ""),
		AdminIPAllowlist:  GetListEnv("ADMIN_IP_ALLOWLIST"),
		TrustedProxies:    GetListEnv("TRUSTED_PROXIES"),
	}
}

// GetEnv returns the value of an environment variable or a default value
func GetEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// GetBoolEnv returns the boolean value of an environment variable or a default value
func GetBoolEnv(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseBool(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

// GetIntEnv returns the integer value of an environment variable or a default value
func GetIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

// GetListEnv splits a comma separated variable, dropping blanks
func GetListEnv(key string) []string {
	raw := os.Getenv(key)
	if raw == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
