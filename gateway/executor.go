package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"github.com/like-mike/tenant-ai-gateway/gateway/provider"
	"github.com/like-mike/tenant-ai-gateway/metrics"
	"github.com/like-mike/tenant-ai-gateway/shared/crypto"
	"github.com/like-mike/tenant-ai-gateway/shared/models"
)

// UsageRecorder accepts ledger events without blocking the request path.
type UsageRecorder interface {
	Record(ev models.UsageEvent)
}

// Service is the tenant AI gateway core: it resolves a tenant's client
// through the cache, executes the completion, and records exactly one
// usage event per attempt.
type Service struct {
	cache   *ClientCache
	usage   UsageRecorder
	timeout time.Duration
}

func NewService(cache *ClientCache, usage UsageRecorder, timeout time.Duration) *Service {
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &Service{cache: cache, usage: usage, timeout: timeout}
}

// Cache exposes the client cache for settings-update invalidation.
func (s *Service) Cache() *ClientCache {
	return s.cache
}

// Complete executes a single-shot completion for the caller's tenant.
func (s *Service) Complete(ctx context.Context, ident *models.Identity, req *models.CompletionRequest) (*models.CompletionResult, error) {
	start := time.Now()
	requestHash := hashMessages(req.Messages)

	client, creds, err := s.prepare(ident, req)
	if err != nil {
		s.record(ident, req.Model, "", requestHash, 0, 0, 0, "", start, err)
		return nil, err
	}

	model := effectiveModel(req, creds)

	callCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	resp, err := client.CreateChatCompletion(callCtx, buildRequest(model, req, false))
	if err != nil {
		gwErr := s.normalize(ctx, err)
		s.record(ident, model, creds.Provider, requestHash, 0, 0, 0, "", start, gwErr)
		return nil, gwErr
	}

	if len(resp.Choices) == 0 {
		gwErr := newError(KindUnknown, "AI provider returned an empty response")
		s.record(ident, model, creds.Provider, requestHash, 0, 0, 0, "", start, gwErr)
		return nil, gwErr
	}

	choice := resp.Choices[0]
	elapsed := time.Since(start)

	result := &models.CompletionResult{
		Content:          choice.Message.Content,
		Model:            resp.Model,
		TokensUsed:       resp.Usage.TotalTokens,
		ProcessingTimeMS: elapsed.Milliseconds(),
		FinishReason:     string(choice.FinishReason),
		Metadata: map[string]interface{}{
			"request_id": resp.ID,
			"created":    resp.Created,
			"usage":      resp.Usage,
		},
	}

	metrics.CompletionDurationSeconds.WithLabelValues(creds.Provider).Observe(elapsed.Seconds())
	metrics.CompletionTokens.WithLabelValues(creds.Provider).Observe(float64(resp.Usage.TotalTokens))

	s.recordSuccess(ident, resp.Model, creds.Provider, requestHash,
		resp.Usage.PromptTokens, resp.Usage.CompletionTokens, resp.Usage.TotalTokens,
		result.FinishReason, start)

	return result, nil
}

// CompleteStream executes a streaming completion. The returned channel
// carries zero or more content events followed by exactly one terminal
// completed or error event, then closes. Cancelling ctx terminates the
// stream and still produces a ledger row with a cancelled outcome.
func (s *Service) CompleteStream(ctx context.Context, ident *models.Identity, req *models.CompletionRequest) (<-chan models.StreamEvent, error) {
	start := time.Now()
	requestHash := hashMessages(req.Messages)

	client, creds, err := s.prepare(ident, req)
	if err != nil {
		s.record(ident, req.Model, "", requestHash, 0, 0, 0, "", start, err)
		return nil, err
	}

	model := effectiveModel(req, creds)

	callCtx, cancel := context.WithTimeout(ctx, s.timeout)

	stream, err := client.CreateChatCompletionStream(callCtx, buildRequest(model, req, true))
	if err != nil {
		cancel()
		gwErr := s.normalize(ctx, err)
		s.record(ident, model, creds.Provider, requestHash, 0, 0, 0, "", start, gwErr)
		return nil, gwErr
	}

	events := make(chan models.StreamEvent)
	go func() {
		defer close(events)
		defer cancel()
		defer stream.Close()

		var fullContent string
		var finishReason string
		var totalTokens, promptTokens, completionTokens int
		var streamModel = model

		for {
			resp, err := stream.Recv()
			if errors.Is(err, io.EOF) {
				elapsed := time.Since(start)
				metrics.CompletionDurationSeconds.WithLabelValues(creds.Provider).Observe(elapsed.Seconds())
				metrics.CompletionTokens.WithLabelValues(creds.Provider).Observe(float64(totalTokens))
				s.recordSuccess(ident, streamModel, creds.Provider, requestHash,
					promptTokens, completionTokens, totalTokens, finishReason, start)
				events <- models.StreamEvent{
					Type:             models.StreamEventCompleted,
					Content:          fullContent,
					Model:            streamModel,
					TokensUsed:       totalTokens,
					ProcessingTimeMS: elapsed.Milliseconds(),
					FinishReason:     finishReason,
				}
				return
			}
			if err != nil {
				gwErr := s.normalize(ctx, err)
				s.record(ident, streamModel, creds.Provider, requestHash,
					promptTokens, completionTokens, totalTokens, finishReason, start, gwErr)
				events <- models.StreamEvent{
					Type:      models.StreamEventError,
					Error:     gwErr.Error(),
					Timestamp: time.Now().UnixMilli(),
				}
				return
			}

			if resp.Model != "" {
				streamModel = resp.Model
			}
			if resp.Usage != nil {
				promptTokens = resp.Usage.PromptTokens
				completionTokens = resp.Usage.CompletionTokens
				totalTokens = resp.Usage.TotalTokens
			}
			if len(resp.Choices) == 0 {
				continue
			}

			choice := resp.Choices[0]
			if choice.Delta.Content != "" {
				fullContent += choice.Delta.Content
				events <- models.StreamEvent{
					Type:        models.StreamEventContent,
					Content:     choice.Delta.Content,
					FullContent: fullContent,
					Model:       streamModel,
					Timestamp:   time.Now().UnixMilli(),
				}
			}
			if choice.FinishReason != "" {
				finishReason = string(choice.FinishReason)
			}
		}
	}()

	return events, nil
}

// ValidateModelAccess reports whether a user may request a specific model.
// Administrators may use any model; everyone else is limited to the base
// allow-list.
func (s *Service) ValidateModelAccess(user *models.User, model string) bool {
	if user.IsAdmin {
		return true
	}
	return provider.IsAllowedOpenAIModel(model)
}

func (s *Service) prepare(ident *models.Identity, req *models.CompletionRequest) (provider.Client, *provider.Credentials, error) {
	if err := validateRequest(req); err != nil {
		return nil, nil, err
	}

	client, creds, err := s.cache.Get(&ident.Tenant)
	if err != nil {
		if errors.Is(err, provider.ErrConfiguration) {
			return nil, nil, newError(KindConfiguration, "tenant AI settings are missing or invalid")
		}
		return nil, nil, newError(KindConfiguration, "failed to initialize AI client")
	}
	return client, creds, nil
}

const cancelledMessage = "request cancelled"

// normalize maps provider failures to the taxonomy, giving the inbound
// context's cancellation precedence over whatever the SDK surfaced.
func (s *Service) normalize(ctx context.Context, err error) *Error {
	if errors.Is(ctx.Err(), context.Canceled) {
		return newError(KindTimeout, cancelledMessage)
	}
	return classifyProviderError(err)
}

func validateRequest(req *models.CompletionRequest) error {
	if len(req.Messages) == 0 {
		return newError(KindConfiguration, "at least one message is required")
	}
	for i, m := range req.Messages {
		switch m.Role {
		case "system":
			if i != 0 {
				return newError(KindConfiguration, "system message must be first")
			}
		case "user", "assistant":
		default:
			return newError(KindConfiguration, "unsupported message role: "+m.Role)
		}
	}
	if req.Temperature < 0 || req.Temperature > 2 {
		return newError(KindConfiguration, "temperature must be between 0.0 and 2.0")
	}
	if req.MaxTokens < 0 || req.MaxTokens > 4000 {
		return newError(KindConfiguration, "max_tokens must be between 1 and 4000")
	}
	return nil
}

func effectiveModel(req *models.CompletionRequest, creds *provider.Credentials) string {
	if req.Model != "" {
		return req.Model
	}
	return creds.Model
}

func buildRequest(model string, req *models.CompletionRequest, stream bool) openai.ChatCompletionRequest {
	messages := make([]openai.ChatCompletionMessage, len(req.Messages))
	for i, m := range req.Messages {
		messages[i] = openai.ChatCompletionMessage{Role: m.Role, Content: m.Content}
	}

	out := openai.ChatCompletionRequest{
		Model:       model,
		Messages:    messages,
		Temperature: req.Temperature,
		MaxTokens:   req.MaxTokens,
		Stream:      stream,
	}
	if stream {
		out.StreamOptions = &openai.StreamOptions{IncludeUsage: true}
	}
	return out
}

func hashMessages(messages []models.ChatMessage) string {
	raw, _ := json.Marshal(messages)
	return crypto.HashPayload(raw)
}

// record writes the single ledger row for a failed or cancelled attempt.
func (s *Service) record(ident *models.Identity, model, providerName, requestHash string,
	promptTokens, completionTokens, totalTokens int, finishReason string, start time.Time, err error) {

	outcome := models.OutcomeError
	var gwErr *Error
	if errors.As(err, &gwErr) && gwErr.Message == cancelledMessage {
		outcome = models.OutcomeCancelled
	}

	msg := err.Error()
	ev := models.UsageEvent{
		TenantID:         ident.Tenant.ID,
		UserID:           ident.User.ID,
		Provider:         providerName,
		Model:            model,
		PromptTokens:     promptTokens,
		CompletionTokens: completionTokens,
		TotalTokens:      totalTokens,
		Outcome:          outcome,
		ErrorMessage:     &msg,
		ProcessingTimeMS: time.Since(start).Milliseconds(),
		RequestHash:      requestHash,
		CreatedAt:        time.Now().UTC(),
	}
	if finishReason != "" {
		ev.FinishReason = &finishReason
	}

	metrics.CompletionsTotal.WithLabelValues(providerOrUnknown(providerName), outcome).Inc()
	s.usage.Record(ev)
}

func (s *Service) recordSuccess(ident *models.Identity, model, providerName, requestHash string,
	promptTokens, completionTokens, totalTokens int, finishReason string, start time.Time) {

	ev := models.UsageEvent{
		TenantID:         ident.Tenant.ID,
		UserID:           ident.User.ID,
		Provider:         providerName,
		Model:            model,
		PromptTokens:     promptTokens,
		CompletionTokens: completionTokens,
		TotalTokens:      totalTokens,
		Outcome:          models.OutcomeSuccess,
		ProcessingTimeMS: time.Since(start).Milliseconds(),
		RequestHash:      requestHash,
		CreatedAt:        time.Now().UTC(),
	}
	if finishReason != "" {
		ev.FinishReason = &finishReason
	}

	metrics.CompletionsTotal.WithLabelValues(providerOrUnknown(providerName), models.OutcomeSuccess).Inc()
	s.usage.Record(ev)
}

func providerOrUnknown(name string) string {
	if name == "" {
		return "unresolved"
	}
	return name
}
