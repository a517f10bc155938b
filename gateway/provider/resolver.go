package provider

import (
	"encoding/json"
	"errors"
	"strings"

	"github.com/like-mike/tenant-ai-gateway/shared/config"
	"github.com/like-mike/tenant-ai-gateway/shared/crypto"
	"github.com/like-mike/tenant-ai-gateway/shared/models"
)

// AllowedOpenAIModels is the fixed allow-list for tenant-supplied OpenAI
// model names.
var AllowedOpenAIModels = []string{"gpt-3.5-turbo", "gpt-4", "gpt-4-turbo", "gpt-4o"}

// ErrConfiguration marks credential resolution failures. The gateway maps
// it to its configuration error kind; it must never fall back silently to
// the system default.
var ErrConfiguration = errors.New("tenant AI settings invalid")

// Credentials is a tenant's resolved provider tuple.
type Credentials struct {
	Provider   string
	UseAzure   bool
	Endpoint   string
	APIKey     string
	APIVersion string
	Model      string
}

// Resolver turns tenant records into concrete provider credentials,
// decrypting stored settings blobs as needed.
type Resolver struct {
	box    *crypto.Box
	system config.SystemAIConfig
}

func NewResolver(box *crypto.Box, system config.SystemAIConfig) *Resolver {
	return &Resolver{box: box, system: system}
}

// Resolve returns the credentials a tenant's calls should use. Tenants on
// the system default never have their blobs decrypted.
func (r *Resolver) Resolve(tenant *models.Tenant) (*Credentials, error) {
	if tenant.UseSystemDefault {
		return r.systemCredentials()
	}

	switch tenant.AIProvider {
	case models.ProviderAzureOpenAI:
		return r.resolveAzure(tenant)
	case models.ProviderOpenAI:
		return r.resolveOpenAI(tenant)
	case models.ProviderSystemDefault:
		return r.systemCredentials()
	}
	return nil, errors.Join(ErrConfiguration, errors.New("unknown AI provider: "+tenant.AIProvider))
}

func (r *Resolver) systemCredentials() (*Credentials, error) {
	if r.system.UseAzure() {
		return &Credentials{
			Provider:   models.ProviderAzureOpenAI,
			UseAzure:   true,
			Endpoint:   r.system.AzureEndpoint,
			APIKey:     r.system.AzureAPIKey,
			APIVersion: r.system.AzureAPIVersion,
			Model:      r.system.AzureDeployment,
		}, nil
	}
	if r.system.OpenAIAPIKey == "" {
		return nil, errors.Join(ErrConfiguration, errors.New("no system default AI provider configured"))
	}
	return &Credentials{
		Provider: models.ProviderOpenAI,
		APIKey:   r.system.OpenAIAPIKey,
		Model:    r.system.OpenAIModel,
	}, nil
}

func (r *Resolver) resolveAzure(tenant *models.Tenant) (*Credentials, error) {
	if tenant.AzureSettingsEnc == nil || *tenant.AzureSettingsEnc == "" {
		return nil, errors.Join(ErrConfiguration, errors.New("azure settings missing"))
	}

	plain, err := r.box.Decrypt(*tenant.AzureSettingsEnc)
	if err != nil {
		return nil, errors.Join(ErrConfiguration, err)
	}

	var s models.AzureOpenAISettings
	if err := json.Unmarshal([]byte(plain), &s); err != nil {
		return nil, errors.Join(ErrConfiguration, errors.New("azure settings unparseable"))
	}

	if s.Endpoint == "" || s.APIKey == "" || s.APIVersion == "" || s.DeploymentName == "" {
		return nil, errors.Join(ErrConfiguration, errors.New("azure settings incomplete"))
	}

	return &Credentials{
		Provider:   models.ProviderAzureOpenAI,
		UseAzure:   true,
		Endpoint:   s.Endpoint,
		APIKey:     s.APIKey,
		APIVersion: s.APIVersion,
		Model:      s.DeploymentName,
	}, nil
}

func (r *Resolver) resolveOpenAI(tenant *models.Tenant) (*Credentials, error) {
	if tenant.OpenAISettingsEnc == nil || *tenant.OpenAISettingsEnc == "" {
		return nil, errors.Join(ErrConfiguration, errors.New("openai settings missing"))
	}

	plain, err := r.box.Decrypt(*tenant.OpenAISettingsEnc)
	if err != nil {
		return nil, errors.Join(ErrConfiguration, err)
	}

	var s models.OpenAISettings
	if err := json.Unmarshal([]byte(plain), &s); err != nil {
		return nil, errors.Join(ErrConfiguration, errors.New("openai settings unparseable"))
	}

	if err := ValidateOpenAIKey(s.APIKey); err != nil {
		return nil, errors.Join(ErrConfiguration, err)
	}
	if !IsAllowedOpenAIModel(s.Model) {
		return nil, errors.Join(ErrConfiguration, errors.New("unsupported openai model: "+s.Model))
	}

	return &Credentials{
		Provider: models.ProviderOpenAI,
		APIKey:   s.APIKey,
		Model:    s.Model,
	}, nil
}

// ValidateOpenAIKey applies the syntactic checks used both at resolution
// and at settings write time.
func ValidateOpenAIKey(key string) error {
	key = strings.TrimSpace(key)
	if !strings.HasPrefix(key, "sk-") {
		return errors.New("openai api key must start with sk-")
	}
	if len(key) < 20 {
		return errors.New("openai api key too short")
	}
	return nil
}

// IsAllowedOpenAIModel reports whether a model name is on the allow-list.
func IsAllowedOpenAIModel(model string) bool {
	model = strings.TrimSpace(model)
	for _, m := range AllowedOpenAIModels {
		if model == m {
			return true
		}
	}
	return false
}

// ValidateAzureSettings applies the write-time checks for tenant Azure
// settings.
func ValidateAzureSettings(s *models.AzureOpenAISettings) error {
	if s == nil {
		return errors.New("azure settings are required")
	}
	endpoint := strings.TrimSpace(s.Endpoint)
	if endpoint == "" {
		return errors.New("endpoint URL is required")
	}
	if !strings.HasPrefix(endpoint, "https://") || !strings.Contains(endpoint, "openai.azure.com") {
		return errors.New("endpoint must be an https Azure OpenAI URL")
	}
	if strings.TrimSpace(s.DeploymentName) == "" {
		return errors.New("deployment name is required")
	}
	if len(strings.TrimSpace(s.APIKey)) < 10 {
		return errors.New("api key too short")
	}
	return nil
}
