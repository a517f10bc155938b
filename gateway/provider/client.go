package provider

import (
	"context"

	openai "github.com/sashabaranov/go-openai"
)

// Client is the provider SDK surface the gateway depends on. Both the
// OpenAI and Azure OpenAI configurations of *openai.Client satisfy it; the
// underlying client is safe for concurrent use.
type Client interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
	CreateChatCompletionStream(ctx context.Context, req openai.ChatCompletionRequest) (*openai.ChatCompletionStream, error)
}

// NewClient builds a provider client from resolved credentials.
func NewClient(creds *Credentials) Client {
	if creds.UseAzure {
		cfg := openai.DefaultAzureConfig(creds.APIKey, creds.Endpoint)
		if creds.APIVersion != "" {
			cfg.APIVersion = creds.APIVersion
		}
		deployment := creds.Model
		cfg.AzureModelMapperFunc = func(model string) string {
			return deployment
		}
		return openai.NewClientWithConfig(cfg)
	}
	return openai.NewClient(creds.APIKey)
}
