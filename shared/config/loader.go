package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/like-mike/tenant-ai-gateway/shared/models"
	"gopkg.in/yaml.v2"
)

// Config holds the process-level configuration, loaded from environment
// variables with sensible defaults.
type Config struct {
	Port        string
	PostgresDSN string
	RedisURL    string

	// Key material for encrypting tenant provider settings at rest.
	SettingsEncryptKey string

	// Per-user daily token cap applied by the quota guard.
	UserDailyTokenLimit int64

	// Optional per-tenant request frequency cap (requests/hour), enforced
	// through redis when RedisURL is set. Zero disables the check.
	TenantRequestsPerHour int

	// Upper bound on a single provider call.
	ProviderTimeout time.Duration

	SystemAI SystemAIConfig
	SMTP     SMTPConfig

	PlansPath string
}

// SystemAIConfig is the process-wide provider configuration used by
// tenants that keep use_system_default enabled.
type SystemAIConfig struct {
	AzureEndpoint   string
	AzureAPIKey     string
	AzureAPIVersion string
	AzureDeployment string
	OpenAIAPIKey    string
	OpenAIModel     string
}

// UseAzure reports whether the system default resolves to Azure OpenAI.
// Azure wins when both endpoint and key are configured at the process level.
func (s SystemAIConfig) UseAzure() bool {
	return s.AzureEndpoint != "" && s.AzureAPIKey != ""
}

// SMTPConfig configures quota alert emails. Alerts are disabled when Host
// is empty.
type SMTPConfig struct {
	Host      string
	Port      int
	Username  string
	Password  string
	FromName  string
	FromEmail string
	AdminTo   string
}

// Load reads configuration from the environment.
func Load() *Config {
	return &Config{
		Port:                  getEnv("PORT", "8080"),
		PostgresDSN:           getEnv("POSTGRES_DSN", ""),
		RedisURL:              getEnv("REDIS_URL", ""),
		SettingsEncryptKey:    getEnv("SETTINGS_ENCRYPT_KEY", ""),
		UserDailyTokenLimit:   getEnvInt64("USER_DAILY_TOKEN_LIMIT", 10000),
		TenantRequestsPerHour: int(getEnvInt64("TENANT_REQUESTS_PER_HOUR", 0)),
		ProviderTimeout:       getEnvDuration("PROVIDER_TIMEOUT", 60*time.Second),
		SystemAI: SystemAIConfig{
			AzureEndpoint:   getEnv("AZURE_OPENAI_ENDPOINT", ""),
			AzureAPIKey:     getEnv("AZURE_OPENAI_API_KEY", ""),
			AzureAPIVersion: getEnv("AZURE_OPENAI_API_VERSION", "2024-02-01"),
			AzureDeployment: getEnv("AZURE_OPENAI_DEPLOYMENT_NAME", "gpt-4"),
			OpenAIAPIKey:    getEnv("OPENAI_API_KEY", ""),
			OpenAIModel:     getEnv("OPENAI_MODEL", "gpt-4"),
		},
		SMTP: SMTPConfig{
			Host:      getEnv("SMTP_HOST", ""),
			Port:      int(getEnvInt64("SMTP_PORT", 587)),
			Username:  getEnv("SMTP_USERNAME", ""),
			Password:  getEnv("SMTP_PASSWORD", ""),
			FromName:  getEnv("SMTP_FROM_NAME", "Tenant AI Gateway"),
			FromEmail: getEnv("SMTP_FROM_EMAIL", ""),
			AdminTo:   getEnv("QUOTA_ALERT_EMAIL", ""),
		},
		PlansPath: getEnv("PLANS_CONFIG", "plans.yml"),
	}
}

// LoadPlans reads and parses the plan catalog once.
func LoadPlans(path string) (*models.PlanCatalog, error) {
	if path == "" {
		path = "plans.yml"
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read plans file: %w", err)
	}

	var catalog models.PlanCatalog
	if err := yaml.Unmarshal(data, &catalog); err != nil {
		return nil, fmt.Errorf("failed to parse plans file: %w", err)
	}

	if catalog.DefaultPlan == "" {
		catalog.DefaultPlan = "starter"
	}
	if _, ok := catalog.Plans[catalog.DefaultPlan]; !ok {
		return nil, fmt.Errorf("default plan %q not found in catalog", catalog.DefaultPlan)
	}

	log.Printf("Plan catalog loaded from %s (%d plans)", path, len(catalog.Plans))
	return &catalog, nil
}

func getEnv(key, defaultVal string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultVal
}

func getEnvInt64(key string, defaultVal int64) int64 {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.ParseInt(value, 10, 64); err == nil {
			return n
		}
		log.Printf("Invalid value for %s, using default %d", key, defaultVal)
	}
	return defaultVal
}

func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
		log.Printf("Invalid value for %s, using default %s", key, defaultVal)
	}
	return defaultVal
}
