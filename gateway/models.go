package gateway

import (
	"strings"

	"github.com/like-mike/tenant-ai-gateway/shared/models"
)

// AvailableModels lists the models a caller can target, derived from the
// tenant's resolved provider. Admins additionally see the system default
// entry.
func (s *Service) AvailableModels(ident *models.Identity) ([]models.ModelInfo, error) {
	_, creds, err := s.cache.Get(&ident.Tenant)
	if err != nil {
		return nil, newError(KindConfiguration, "tenant AI settings are missing or invalid")
	}

	var out []models.ModelInfo
	if creds.UseAzure {
		out = append(out, models.ModelInfo{
			ID:              creds.Model,
			Name:            "Azure " + creds.Model,
			Description:     "Tenant Azure OpenAI deployment",
			Provider:        models.ProviderAzureOpenAI,
			MaxTokens:       8192,
			CostPer1KTokens: 0.03,
		})
	} else {
		maxTokens := 4096
		cost := 0.0015
		if strings.Contains(creds.Model, "gpt-4") {
			maxTokens = 8192
			cost = 0.03
		}
		out = append(out, models.ModelInfo{
			ID:              creds.Model,
			Name:            "OpenAI " + creds.Model,
			Description:     "Tenant OpenAI model",
			Provider:        models.ProviderOpenAI,
			MaxTokens:       maxTokens,
			CostPer1KTokens: cost,
		})
	}

	if ident.Tenant.UseSystemDefault || ident.User.IsAdmin {
		out = append(out, models.ModelInfo{
			ID:              "system-default",
			Name:            "System default",
			Description:     "Model configured by the platform operator",
			Provider:        "system",
			MaxTokens:       8192,
			CostPer1KTokens: 0.03,
		})
	}

	return out, nil
}
