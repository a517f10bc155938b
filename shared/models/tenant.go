package models

import (
	"time"
)

// AI provider selection values stored on a tenant.
const (
	ProviderSystemDefault = "system_default"
	ProviderAzureOpenAI   = "azure_openai"
	ProviderOpenAI        = "openai"
)

// Tenant represents an organization-level customer account. Provider
// credentials are stored as encrypted JSON blobs and are only readable
// through the gateway's credential resolver.
type Tenant struct {
	ID                string     `json:"id" db:"id"`
	Name              string     `json:"name" db:"name"`
	Domain            string     `json:"domain" db:"domain"`
	Plan              string     `json:"plan" db:"plan"`
	MaxUsers          int        `json:"max_users" db:"max_users"`
	MaxTokensPerMonth int64      `json:"max_tokens_per_month" db:"max_tokens_per_month"`
	AIProvider        string     `json:"ai_provider" db:"ai_provider"`
	UseSystemDefault  bool       `json:"use_system_default" db:"use_system_default"`
	AzureSettingsEnc  *string    `json:"-" db:"azure_openai_settings"`
	OpenAISettingsEnc *string    `json:"-" db:"openai_settings"`
	IsActive          bool       `json:"is_active" db:"is_active"`
	TrialEndDate      *time.Time `json:"trial_end_date" db:"trial_end_date"`
	CreatedAt         time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt         time.Time  `json:"updated_at" db:"updated_at"`
}

// AzureOpenAISettings is the decrypted shape of a tenant's Azure blob.
type AzureOpenAISettings struct {
	Endpoint       string `json:"endpoint"`
	APIKey         string `json:"api_key"`
	APIVersion     string `json:"api_version"`
	DeploymentName string `json:"deployment_name"`
}

// OpenAISettings is the decrypted shape of a tenant's OpenAI blob.
type OpenAISettings struct {
	APIKey string `json:"api_key"`
	Model  string `json:"model"`
}

// UpdateAISettingsRequest is the admin request body for rewriting a
// tenant's provider configuration.
type UpdateAISettingsRequest struct {
	Provider string               `json:"provider"`
	Azure    *AzureOpenAISettings `json:"azure,omitempty"`
	OpenAI   *OpenAISettings      `json:"openai,omitempty"`
}
