package config

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Config holds all configuration for the chat gateway service
type Config struct {
	// Server configuration
	Port string `envconfig:"PORT" default:"8014"`

	// Service identity, reported by the info and health endpoints
	ServiceName    string `envconfig:"SERVICE_NAME" default:"chat-gateway"`
	ServiceVersion string `envconfig:"SERVICE_VERSION" default:"1.0.0"`

	// Azure OpenAI configuration. Endpoint and API key are intentionally not
	// required: when either is missing the service starts in degraded mode and
	// answers chat requests with a fixed fallback message instead of refusing
	// to boot.
	AzureOpenAIEndpoint   string `envconfig:"AZURE_OPENAI_ENDPOINT" default:""`
	AzureOpenAIAPIKey     string `envconfig:"AZURE_OPENAI_API_KEY" default:""`
	AzureOpenAIDeployment string `envconfig:"AZURE_OPENAI_DEPLOYMENT_NAME" default:"gpt-4o"`
	AzureOpenAIAPIVersion string `envconfig:"AZURE_OPENAI_API_VERSION" default:"2024-02-15-preview"`

	// Model sampling parameters
	ModelTemperature float32 `envconfig:"MODEL_TEMPERATURE" default:"0.7"`
	ModelMaxTokens   int     `envconfig:"MODEL_MAX_TOKENS" default:"1024"`

	// Dapr sidecar used for downstream service invocation
	DaprHost     string `envconfig:"DAPR_HOST" default:"localhost"`
	DaprHTTPPort int    `envconfig:"DAPR_HTTP_PORT" default:"3514"`

	// Downstream service app IDs. Resolving an app ID to a network address is
	// the sidecar's job; this layer only names the target.
	ProductServiceAppID string `envconfig:"PRODUCT_SERVICE_APP_ID" default:"product-service"`
	OrderServiceAppID   string `envconfig:"ORDER_SERVICE_APP_ID" default:"order-service"`

	// Timeout in seconds for a single downstream invocation
	InvokeTimeout int `envconfig:"INVOKE_TIMEOUT" default:"30"`

	// Observability configuration
	LogLevel       string `envconfig:"LOG_LEVEL" default:"info"`       // Log level: debug, info, warn, error
	LogPretty      bool   `envconfig:"LOG_PRETTY" default:"false"`     // Pretty print logs (for development)
	MetricsEnabled bool   `envconfig:"METRICS_ENABLED" default:"true"` // Enable Prometheus metrics
}

// Load reads configuration from environment variables
// It first attempts to load from .env file if it exists, then from environment
func Load() (*Config, error) {
	// Try to load .env file (ignore error if it doesn't exist)
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	return &cfg, nil
}

// LoadFromEnv loads configuration directly from environment variables
// without attempting to load .env file (useful for containerized deployments)
func LoadFromEnv() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	return &cfg, nil
}

// ModelConfigured reports whether the Azure OpenAI connection settings are
// present. The chat orchestrator short-circuits into degraded mode when false.
func (c *Config) ModelConfigured() bool {
	return c.AzureOpenAIEndpoint != "" && c.AzureOpenAIAPIKey != ""
}

// GetEnv returns the value of an environment variable or a default value
func GetEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
