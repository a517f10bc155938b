package gateway

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/url"
	"strings"

	openai "github.com/sashabaranov/go-openai"
)

// Kind classifies a gateway failure into the fixed user-facing taxonomy.
type Kind string

const (
	KindConfiguration      Kind = "configuration"
	KindRateLimited        Kind = "rate_limited"
	KindQuotaExhausted     Kind = "quota_exhausted"
	KindContentPolicy      Kind = "content_policy"
	KindInvalidCredentials Kind = "invalid_credentials"
	KindModelNotFound      Kind = "model_not_found"
	KindTimeout            Kind = "timeout"
	KindNetwork            Kind = "network"
	KindUnknown            Kind = "unknown"
)

// Error is the single error type the gateway surfaces to callers. Raw
// provider errors never escape; credentials never appear in messages.
type Error struct {
	Kind    Kind
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

// Retryable reports whether the caller may retry the same request.
func (e *Error) Retryable() bool {
	switch e.Kind {
	case KindRateLimited, KindTimeout, KindNetwork:
		return true
	}
	return false
}

// HTTPStatus maps the error kind to a response status code.
func (e *Error) HTTPStatus() int {
	switch e.Kind {
	case KindConfiguration, KindInvalidCredentials:
		return 422
	case KindRateLimited, KindQuotaExhausted:
		return 429
	case KindContentPolicy:
		return 400
	case KindModelNotFound:
		return 404
	case KindTimeout:
		return 504
	case KindNetwork:
		return 502
	}
	return 500
}

func newError(kind Kind, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// User-facing messages per kind. Deliberately free of provider detail.
var kindMessages = map[Kind]string{
	KindRateLimited:        "AI provider rate limit reached, please retry after a short wait",
	KindQuotaExhausted:     "AI usage limit reached, contact your tenant administrator",
	KindContentPolicy:      "request was rejected by the AI content policy",
	KindInvalidCredentials: "AI API credentials were rejected, check your tenant AI settings",
	KindModelNotFound:      "the requested AI model is not available, check your tenant AI settings",
	KindTimeout:            "AI provider did not respond in time, please retry",
	KindNetwork:            "could not reach the AI provider, please retry",
}

// classifyProviderError normalizes a go-openai error into the taxonomy.
// Typed SDK errors are inspected first; message text matching remains as a
// fallback for errors the SDK does not type.
func classifyProviderError(err error) *Error {
	if err == nil {
		return nil
	}

	var gwErr *Error
	if errors.As(err, &gwErr) {
		return gwErr
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return &Error{Kind: KindTimeout, Message: kindMessages[KindTimeout]}
	}

	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		if kind, ok := classifyAPIError(apiErr); ok {
			return &Error{Kind: kind, Message: kindMessages[kind]}
		}
		return classifyByText(apiErr.Message)
	}

	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		switch reqErr.HTTPStatusCode {
		case 401, 403:
			return &Error{Kind: KindInvalidCredentials, Message: kindMessages[KindInvalidCredentials]}
		case 404:
			return &Error{Kind: KindModelNotFound, Message: kindMessages[KindModelNotFound]}
		case 429:
			return &Error{Kind: KindRateLimited, Message: kindMessages[KindRateLimited]}
		}
		return classifyByText(reqErr.Error())
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		if netErr.Timeout() {
			return &Error{Kind: KindTimeout, Message: kindMessages[KindTimeout]}
		}
		return &Error{Kind: KindNetwork, Message: kindMessages[KindNetwork]}
	}
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		return &Error{Kind: KindNetwork, Message: kindMessages[KindNetwork]}
	}

	return classifyByText(err.Error())
}

func classifyAPIError(apiErr *openai.APIError) (Kind, bool) {
	code, _ := apiErr.Code.(string)

	switch {
	case code == "insufficient_quota" || apiErr.Type == "insufficient_quota":
		return KindQuotaExhausted, true
	case apiErr.HTTPStatusCode == 429:
		return KindRateLimited, true
	case apiErr.HTTPStatusCode == 401 || apiErr.HTTPStatusCode == 403 || code == "invalid_api_key":
		return KindInvalidCredentials, true
	case code == "model_not_found" || apiErr.HTTPStatusCode == 404:
		return KindModelNotFound, true
	case code == "content_policy_violation" || code == "content_filter":
		return KindContentPolicy, true
	}
	return KindUnknown, false
}

// classifyByText is the legacy string-matching path, kept for providers and
// transport failures that surface untyped errors.
func classifyByText(msg string) *Error {
	lower := strings.ToLower(msg)

	switch {
	case strings.Contains(lower, "rate_limit") || strings.Contains(lower, "rate limit") || strings.Contains(lower, "too many requests"):
		return &Error{Kind: KindRateLimited, Message: kindMessages[KindRateLimited]}
	case strings.Contains(lower, "insufficient_quota") || strings.Contains(lower, "quota"):
		return &Error{Kind: KindQuotaExhausted, Message: kindMessages[KindQuotaExhausted]}
	case strings.Contains(lower, "content_policy") || strings.Contains(lower, "policy_violation") || strings.Contains(lower, "content policy"):
		return &Error{Kind: KindContentPolicy, Message: kindMessages[KindContentPolicy]}
	case strings.Contains(lower, "invalid_api_key") || strings.Contains(lower, "invalid api key") || strings.Contains(lower, "authentication"):
		return &Error{Kind: KindInvalidCredentials, Message: kindMessages[KindInvalidCredentials]}
	case strings.Contains(lower, "model_not_found") || strings.Contains(lower, "model does not exist"):
		return &Error{Kind: KindModelNotFound, Message: kindMessages[KindModelNotFound]}
	case strings.Contains(lower, "timeout") || strings.Contains(lower, "timed out") || strings.Contains(lower, "deadline exceeded"):
		return &Error{Kind: KindTimeout, Message: kindMessages[KindTimeout]}
	case strings.Contains(lower, "connection") || strings.Contains(lower, "network"):
		return &Error{Kind: KindNetwork, Message: kindMessages[KindNetwork]}
	}

	return &Error{Kind: KindUnknown, Message: "AI request failed: " + truncate(msg, 200)}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
