// Package router provides multi-provider LLM routing.
// Supports GLM (Zhipu AI), NVIDIA NIM, OpenAI, Anthropic, and local Ollama,
// tried in a configured order until one answers.
package router

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"math/rand/v2"
	"net/http"
	"regexp"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/stockdesk/ai-proxy/internal/jsonx"
)

// Provider represents an LLM provider
type Provider string

const (
	ProviderGLM       Provider = "glm"
	ProviderNVIDIA    Provider = "nvidia"
	ProviderOpenAI    Provider = "openai"
	ProviderAnthropic Provider = "anthropic"
	ProviderOllama    Provider = "ollama"
)

var (
	// ErrNoProvider is returned when no provider is configured.
	ErrNoProvider = errors.New("no LLM provider configured")
	// ErrEmptyResponse is returned when a provider answers with no content.
	ErrEmptyResponse = errors.New("empty LLM response")
)

// Default endpoints. Each can be overridden in Config.
const (
	DefaultGLMBaseURL       = "https://open.bigmodel.cn/api/paas/v4"
	DefaultNVIDIABaseURL    = "https://integrate.api.nvidia.com/v1"
	DefaultAnthropicBaseURL = "https://api.anthropic.com/v1"
)

var defaultModels = map[Provider]string{
	ProviderGLM:       "glm-4-plus",
	ProviderNVIDIA:    "meta/llama-3.1-70b-instruct",
	ProviderOpenAI:    "gpt-4o-mini",
	ProviderAnthropic: "claude-3-haiku-20240307",
	ProviderOllama:    "llama3.2",
}

// Config holds the router configuration
type Config struct {
	GLMKey       string
	NVIDIAKey    string
	OpenAIKey    string
	AnthropicKey string
	OllamaURL    string

	GLMBaseURL       string
	NVIDIABaseURL    string
	OpenAIBaseURL    string
	AnthropicBaseURL string

	// Models overrides the default model per provider.
	Models map[Provider]string

	// Order is the fallback order. Providers without credentials are skipped.
	Order []Provider

	RequestTimeout time.Duration
	MaxTokens      int
	Temperature    float32

	// OpenAI calls are retried with linear backoff plus jitter.
	MaxRetries   int
	RetryBackoff time.Duration
}

// DefaultConfig returns a configuration with no credentials.
func DefaultConfig() *Config {
	return &Config{
		GLMBaseURL:       DefaultGLMBaseURL,
		NVIDIABaseURL:    DefaultNVIDIABaseURL,
		AnthropicBaseURL: DefaultAnthropicBaseURL,
		Order:            []Provider{ProviderOpenAI, ProviderGLM, ProviderNVIDIA, ProviderAnthropic, ProviderOllama},
		RequestTimeout:   60 * time.Second,
		MaxTokens:        1024,
		Temperature:      0.1,
		MaxRetries:       3,
		RetryBackoff:     time.Second,
	}
}

// Router handles LLM request routing to multiple providers
type Router struct {
	config    *Config
	client    *http.Client
	openai    *openai.Client
	logger    *zap.Logger
	providers []Provider
}

// New creates a new LLM router
func New(cfg *Config, logger *zap.Logger) *Router {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	r := &Router{
		config: cfg,
		client: &http.Client{
			Timeout: cfg.RequestTimeout,
			Transport: &http.Transport{
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		logger: logger.Named("llm_router"),
	}

	if cfg.OpenAIKey != "" {
		oc := openai.DefaultConfig(cfg.OpenAIKey)
		if cfg.OpenAIBaseURL != "" {
			oc.BaseURL = cfg.OpenAIBaseURL
		}
		oc.HTTPClient = r.client
		r.openai = openai.NewClientWithConfig(oc)
	}

	seen := make(map[Provider]bool)
	for _, p := range cfg.Order {
		if seen[p] || !r.configured(p) {
			continue
		}
		seen[p] = true
		r.providers = append(r.providers, p)
	}

	return r
}

func (r *Router) configured(p Provider) bool {
	switch p {
	case ProviderGLM:
		return r.config.GLMKey != ""
	case ProviderNVIDIA:
		return r.config.NVIDIAKey != ""
	case ProviderOpenAI:
		return r.config.OpenAIKey != ""
	case ProviderAnthropic:
		return r.config.AnthropicKey != ""
	case ProviderOllama:
		return r.config.OllamaURL != ""
	default:
		return false
	}
}

// Providers returns the usable providers in fallback order.
func (r *Router) Providers() []Provider {
	return append([]Provider(nil), r.providers...)
}

// Available reports whether at least one provider is usable.
func (r *Router) Available() bool {
	return len(r.providers) > 0
}

// GenerateRequest represents a generation request
type GenerateRequest struct {
	System string
	Prompt string
	// Provider pins a single provider; empty means fall back in order.
	Provider Provider
	Model    string
}

// GenerateResponse represents a generation response
type GenerateResponse struct {
	Content  string
	Provider Provider
	Model    string
	Duration time.Duration
}

// Complete sends prompt through the fallback chain and returns the answer
// with any <think> block removed.
func (r *Router) Complete(ctx context.Context, system, prompt string) (string, error) {
	resp, err := r.Generate(ctx, &GenerateRequest{System: system, Prompt: prompt})
	if err != nil {
		return "", err
	}
	return resp.Content, nil
}

// Generate sends a generation request, trying each provider in order until
// one returns non-empty content.
func (r *Router) Generate(ctx context.Context, req *GenerateRequest) (*GenerateResponse, error) {
	chain := r.providers
	if req.Provider != "" {
		if !r.configured(req.Provider) {
			return nil, fmt.Errorf("provider %s: %w", req.Provider, ErrNoProvider)
		}
		chain = []Provider{req.Provider}
	}
	if len(chain) == 0 {
		return nil, ErrNoProvider
	}

	var errs []error
	for _, p := range chain {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}

		start := time.Now()
		model := r.model(p, req.Model)
		content, err := r.call(ctx, p, model, req.System, req.Prompt)
		if err == nil {
			content = stripThinkingTags(content)
			if content == "" {
				err = ErrEmptyResponse
			}
		}
		if err != nil {
			r.logger.Warn("LLM provider failed, trying next",
				zap.String("provider", string(p)),
				zap.String("model", model),
				zap.Duration("elapsed", time.Since(start)),
				zap.Error(err))
			errs = append(errs, fmt.Errorf("provider %s failed: %w", p, err))
			continue
		}

		r.logger.Debug("LLM response",
			zap.String("provider", string(p)),
			zap.String("model", model),
			zap.Duration("elapsed", time.Since(start)))
		return &GenerateResponse{
			Content:  content,
			Provider: p,
			Model:    model,
			Duration: time.Since(start),
		}, nil
	}
	return nil, errors.Join(errs...)
}

func (r *Router) model(p Provider, requested string) string {
	if requested != "" {
		return requested
	}
	if m := r.config.Models[p]; m != "" {
		return m
	}
	return defaultModels[p]
}

func (r *Router) call(ctx context.Context, p Provider, model, system, prompt string) (string, error) {
	switch p {
	case ProviderOpenAI:
		return r.callOpenAI(ctx, system, prompt, model)
	case ProviderGLM:
		return r.callChatCompletions(ctx, r.config.GLMBaseURL, r.config.GLMKey, system, prompt, model)
	case ProviderNVIDIA:
		return r.callChatCompletions(ctx, r.config.NVIDIABaseURL, r.config.NVIDIAKey, system, prompt, model)
	case ProviderAnthropic:
		return r.callAnthropic(ctx, system, prompt, model)
	case ProviderOllama:
		return r.callOllama(ctx, system, prompt, model)
	default:
		return "", fmt.Errorf("unknown provider %q", p)
	}
}

// callOpenAI calls the OpenAI API, retrying transient failures.
func (r *Router) callOpenAI(ctx context.Context, system, prompt, model string) (string, error) {
	attempts := max(r.config.MaxRetries, 1)
	var lastErr error

	for attempt := 1; attempt <= attempts; attempt++ {
		resp, err := r.openai.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
			Model: model,
			Messages: []openai.ChatCompletionMessage{
				{Role: openai.ChatMessageRoleSystem, Content: system},
				{Role: openai.ChatMessageRoleUser, Content: prompt},
			},
			Temperature: r.config.Temperature,
			MaxTokens:   r.config.MaxTokens,
		})
		if err == nil {
			if len(resp.Choices) == 0 {
				return "", ErrEmptyResponse
			}
			return resp.Choices[0].Message.Content, nil
		}
		lastErr = err
		if !retryable(err) || attempt == attempts {
			break
		}

		backoff := time.Duration(attempt)*r.config.RetryBackoff + jitter(r.config.RetryBackoff)
		r.logger.Debug("OpenAI attempt failed, retrying",
			zap.Int("attempt", attempt),
			zap.Duration("backoff", backoff),
			zap.Error(err))
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(backoff):
		}
	}
	return "", fmt.Errorf("OpenAI API error after %d attempts: %w", attempts, lastErr)
}

// retryable reports whether an OpenAI error is worth another attempt.
func retryable(err error) bool {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.HTTPStatusCode == http.StatusTooManyRequests || apiErr.HTTPStatusCode >= 500
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return reqErr.HTTPStatusCode == http.StatusTooManyRequests || reqErr.HTTPStatusCode >= 500
	}
	return !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded)
}

func jitter(d time.Duration) time.Duration {
	if d <= 0 {
		return 0
	}
	return rand.N(d)
}

// callChatCompletions calls an OpenAI-compatible endpoint (GLM, NVIDIA NIM).
func (r *Router) callChatCompletions(ctx context.Context, baseURL, apiKey, system, prompt, model string) (string, error) {
	reqBody := map[string]interface{}{
		"model": model,
		"messages": []map[string]string{
			{"role": "system", "content": system},
			{"role": "user", "content": prompt},
		},
		"max_tokens":  r.config.MaxTokens,
		"temperature": r.config.Temperature,
	}

	return r.makeRequest(ctx, strings.TrimRight(baseURL, "/")+"/chat/completions", reqBody, map[string]string{
		"Authorization": "Bearer " + apiKey,
		"Content-Type":  "application/json",
	})
}

// callAnthropic calls the Anthropic API
func (r *Router) callAnthropic(ctx context.Context, system, prompt, model string) (string, error) {
	reqBody := map[string]interface{}{
		"model":      model,
		"max_tokens": r.config.MaxTokens,
		"system":     system,
		"messages": []map[string]string{
			{"role": "user", "content": prompt},
		},
	}

	return r.makeRequest(ctx, strings.TrimRight(r.config.AnthropicBaseURL, "/")+"/messages", reqBody, map[string]string{
		"x-api-key":         r.config.AnthropicKey,
		"anthropic-version": "2023-06-01",
		"Content-Type":      "application/json",
	})
}

// callOllama calls the local Ollama API
func (r *Router) callOllama(ctx context.Context, system, prompt, model string) (string, error) {
	reqBody := map[string]interface{}{
		"model": model,
		"messages": []map[string]string{
			{"role": "system", "content": system},
			{"role": "user", "content": prompt},
		},
		"stream": false,
		"format": "json",
	}

	return r.makeRequest(ctx, strings.TrimRight(r.config.OllamaURL, "/")+"/api/chat", reqBody, map[string]string{
		"Content-Type": "application/json",
	})
}

// makeRequest makes an HTTP request to an LLM API
func (r *Router) makeRequest(ctx context.Context, url string, body map[string]interface{}, headers map[string]string) (string, error) {
	jsonBody, err := jsonx.Marshal(body)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(jsonBody))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := r.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return "", fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("API error (status %d): %s", resp.StatusCode, truncate(string(respBody), 200))
	}

	var result map[string]interface{}
	if err := jsonx.Unmarshal(respBody, &result); err != nil {
		return "", fmt.Errorf("failed to parse response: %w", err)
	}

	return extractContent(result)
}

// extractContent extracts the content from an LLM API response
func extractContent(result map[string]interface{}) (string, error) {
	// OpenAI/NIM/GLM format
	if choices, ok := result["choices"].([]interface{}); ok && len(choices) > 0 {
		if choice, ok := choices[0].(map[string]interface{}); ok {
			if message, ok := choice["message"].(map[string]interface{}); ok {
				if content, ok := message["content"].(string); ok {
					return content, nil
				}
			}
		}
	}

	// Anthropic format
	if content, ok := result["content"].([]interface{}); ok && len(content) > 0 {
		if block, ok := content[0].(map[string]interface{}); ok {
			if text, ok := block["text"].(string); ok {
				return text, nil
			}
		}
	}

	// Ollama format
	if message, ok := result["message"].(map[string]interface{}); ok {
		if content, ok := message["content"].(string); ok {
			return content, nil
		}
	}

	if content, ok := result["content"].(string); ok {
		return content, nil
	}

	return "", fmt.Errorf("could not extract content from response")
}

var thinkingTags = regexp.MustCompile(`(?s)<think>.*?</think>`)

// stripThinkingTags removes reasoning blocks some models prepend.
func stripThinkingTags(content string) string {
	return strings.TrimSpace(thinkingTags.ReplaceAllString(content, ""))
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

// ErrNoJSON is returned by ExtractJSON when the content holds no JSON value.
var ErrNoJSON = errors.New("no JSON found in response")

// ExtractJSON returns the first JSON object or array embedded in a model
// answer. Surrounding prose and code fences are ignored; the longest valid
// candidate starting at the first '{' or '[' wins.
func ExtractJSON(content string) ([]byte, error) {
	start := strings.IndexAny(content, "{[")
	if start == -1 {
		return nil, ErrNoJSON
	}

	closer := byte('}')
	if content[start] == '[' {
		closer = ']'
	}

	text := content[start:]
	for i := len(text) - 1; i >= 0; i-- {
		if text[i] != closer {
			continue
		}
		if candidate := []byte(text[:i+1]); jsonx.Valid(candidate) {
			return candidate, nil
		}
	}
	return nil, ErrNoJSON
}
