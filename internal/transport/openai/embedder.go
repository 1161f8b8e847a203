package openai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/labscout/labscout/internal/domain"
	"github.com/labscout/labscout/internal/metrics"
)

const baseBackoff = 500 * time.Millisecond

// Embedder is an embedding provider using the OpenAI-compatible API.
type Embedder struct {
	client        *openai.Client
	model         openai.EmbeddingModel
	dimensions    int
	maxInputChars int
	retryAttempts int
	configured    bool
	logger        *zap.Logger
}

// Config holds the embedding provider settings.
type Config struct {
	APIKey        string
	BaseURL       string
	Model         string
	Dimensions    int
	MaxInputChars int
	RetryAttempts int
	Logger        *zap.Logger
}

// NewEmbedder creates an OpenAI-compatible embedding provider. A missing
// API key yields a provider that fails fast instead of burning a network
// round-trip per call.
func NewEmbedder(cfg *Config) *Embedder {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}

	attempts := cfg.RetryAttempts
	if attempts <= 0 {
		attempts = 1
	}

	return &Embedder{
		client:        openai.NewClientWithConfig(clientCfg),
		model:         openai.EmbeddingModel(cfg.Model),
		dimensions:    cfg.Dimensions,
		maxInputChars: cfg.MaxInputChars,
		retryAttempts: attempts,
		configured:    cfg.APIKey != "",
		logger:        cfg.Logger,
	}
}

// Embed implements domain.Embedder. Overlong input is truncated to the
// configured rune budget before the request, deterministically, so the
// same text always produces the same vector.
func (e *Embedder) Embed(ctx context.Context, text string) (domain.EmbeddingResult, error) {
	if !e.configured {
		return domain.EmbeddingResult{}, fmt.Errorf("no API key configured: %w", domain.ErrProviderUnavailable)
	}

	text = strings.TrimSpace(text)
	if text == "" {
		return domain.EmbeddingResult{}, fmt.Errorf("empty embedding input: %w", domain.ErrInvalidInput)
	}
	text = truncate(text, e.maxInputChars)

	var lastErr error
	for attempt := 1; attempt <= e.retryAttempts; attempt++ {
		result, err := e.embedOnce(ctx, text)
		if err == nil {
			return result, nil
		}
		lastErr = err

		if !isRetryable(err) {
			return domain.EmbeddingResult{}, wrapProviderError(err)
		}
		if attempt == e.retryAttempts {
			break
		}

		delay := baseBackoff << (attempt - 1)
		e.logger.Warn("Embedding request failed, retrying",
			zap.Int("attempt", attempt),
			zap.Duration("backoff", delay),
			zap.Error(err))

		select {
		case <-ctx.Done():
			return domain.EmbeddingResult{}, fmt.Errorf("embed canceled: %w", ctx.Err())
		case <-time.After(delay):
		}
	}

	return domain.EmbeddingResult{}, fmt.Errorf("after %d attempts: %w",
		e.retryAttempts, wrapProviderError(lastErr))
}

func (e *Embedder) embedOnce(ctx context.Context, text string) (domain.EmbeddingResult, error) {
	req := openai.EmbeddingRequest{
		Input:          []string{text},
		Model:          e.model,
		EncodingFormat: openai.EmbeddingEncodingFormatFloat,
	}
	if e.dimensions > 0 {
		req.Dimensions = e.dimensions
	}

	start := time.Now()
	resp, err := e.client.CreateEmbeddings(ctx, req)
	duration := time.Since(start)

	if err != nil {
		metrics.EmbeddingRequestsTotal.WithLabelValues(string(e.model), "error").Inc()
		metrics.EmbeddingErrorsTotal.WithLabelValues(string(e.model), errorType(err)).Inc()
		// returned raw so the retry loop can classify by status code
		return domain.EmbeddingResult{}, err
	}

	if len(resp.Data) == 0 {
		metrics.EmbeddingRequestsTotal.WithLabelValues(string(e.model), "error").Inc()
		metrics.EmbeddingErrorsTotal.WithLabelValues(string(e.model), "empty_response").Inc()
		return domain.EmbeddingResult{}, fmt.Errorf("empty embedding response: %w", domain.ErrEmbeddingProviderError)
	}

	vector := resp.Data[0].Embedding
	if e.dimensions > 0 && len(vector) != e.dimensions {
		metrics.EmbeddingRequestsTotal.WithLabelValues(string(e.model), "error").Inc()
		metrics.EmbeddingErrorsTotal.WithLabelValues(string(e.model), "dim_mismatch").Inc()
		return domain.EmbeddingResult{}, fmt.Errorf("provider returned %d dims, want %d: %w",
			len(vector), e.dimensions, domain.ErrVectorDimMismatch)
	}

	metrics.EmbeddingRequestsTotal.WithLabelValues(string(e.model), "success").Inc()
	metrics.EmbeddingRequestDuration.WithLabelValues(string(e.model)).Observe(duration.Seconds())

	totalTokens := resp.Usage.TotalTokens
	promptTokens := resp.Usage.PromptTokens
	if totalTokens > 0 {
		metrics.EmbeddingTokensTotal.WithLabelValues(string(e.model), "prompt").Add(float64(promptTokens))
		metrics.EmbeddingTokensTotal.WithLabelValues(string(e.model), "total").Add(float64(totalTokens))
	}

	return domain.EmbeddingResult{
		Embedding:    vector,
		PromptTokens: promptTokens,
		TotalTokens:  totalTokens,
	}, nil
}

// HealthCheck verifies API availability via ListModels (free endpoint).
func (e *Embedder) HealthCheck(ctx context.Context) error {
	if !e.configured {
		return fmt.Errorf("no API key configured: %w", domain.ErrProviderUnavailable)
	}
	if _, err := e.client.ListModels(ctx); err != nil {
		return fmt.Errorf("list models: %w", err)
	}
	return nil
}

// truncate cuts text to a rune budget. Zero budget means unlimited.
func truncate(text string, maxChars int) string {
	if maxChars <= 0 {
		return text
	}
	runes := []rune(text)
	if len(runes) <= maxChars {
		return text
	}
	return string(runes[:maxChars])
}

// isRetryable reports whether another attempt can change the outcome.
// Rate limits, server-side errors and transport failures qualify;
// client-side rejections and malformed responses do not.
func isRetryable(err error) bool {
	if errors.Is(err, domain.ErrEmbeddingProviderError) || errors.Is(err, domain.ErrVectorDimMismatch) {
		return false // already classified as a response-shape problem
	}
	code := statusCode(err)
	if code == 429 || code >= 500 {
		return true
	}
	if code > 0 {
		return false
	}
	// no status at all: transport-level failure
	return true
}

// wrapProviderError maps a raw API error onto the domain error taxonomy.
// Errors already carrying a domain sentinel pass through.
func wrapProviderError(err error) error {
	if errors.Is(err, domain.ErrEmbeddingProviderError) ||
		errors.Is(err, domain.ErrVectorDimMismatch) ||
		errors.Is(err, domain.ErrRateLimited) {
		return err
	}
	return parseAPIError(err)
}

func statusCode(err error) int {
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return reqErr.HTTPStatusCode
	}
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.HTTPStatusCode
	}
	return 0
}

func errorType(err error) string {
	switch code := statusCode(err); {
	case code == 429:
		return "rate_limited"
	case code >= 500:
		return "server_error"
	case code > 0:
		return "client_error"
	default:
		return "transport_error"
	}
}

// parseAPIError extracts a human-readable error from the API response.
// Rate limits wrap domain.ErrRateLimited, everything else wraps
// domain.ErrEmbeddingProviderError for correct status mapping upstream.
func parseAPIError(err error) error {
	wrap := domain.ErrEmbeddingProviderError
	if statusCode(err) == 429 {
		wrap = domain.ErrRateLimited
	}

	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		detail := extractDetail(reqErr.Body)
		if detail == "" {
			detail = string(reqErr.Body)
		}
		return fmt.Errorf("embedding API error %d: %s: %w",
			reqErr.HTTPStatusCode, detail, wrap)
	}

	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return fmt.Errorf("embedding API error %d: %s: %w",
			apiErr.HTTPStatusCode, apiErr.Message, wrap)
	}

	return fmt.Errorf("embedding request failed: %v: %w", err, wrap)
}

// extractDetail extracts the "detail" field from a JSON error body.
func extractDetail(body []byte) string {
	var parsed struct {
		Detail string `json:"detail"`
	}
	if json.Unmarshal(body, &parsed) == nil && parsed.Detail != "" {
		return parsed.Detail
	}
	return ""
}
