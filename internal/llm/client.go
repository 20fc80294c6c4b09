package llm

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"

	app_errors "intellimind/backend/internal/errors"
)

// DefaultOllamaURL is used when no base URL is configured for Ollama.
const DefaultOllamaURL = "http://localhost:11434"

// Message is one entry of the history sent to a model.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Client is the only thing the chat core knows about a language model. Errors
// are *app_errors.LLMFailure values classifying the failure.
type Client interface {
	Complete(ctx context.Context, messages []Message) (string, error)
}

// Options are the generation parameters every provider understands. A nil
// Temperature leaves the provider default; zero is sent as zero. TopP and
// MaxTokens are only sent when positive.
type Options struct {
	Model       string
	Temperature *float32
	MaxTokens   int
	TopP        float32
}

// Float32 returns a pointer to v, for Options.Temperature.
func Float32(v float32) *float32 { return &v }

// Config selects and configures a provider.
type Config struct {
	Provider string // "ollama", "openai" or "gemini"
	BaseURL  string
	APIKey   string
	Options  Options
}

// NewClient builds the provider named in cfg.
func NewClient(ctx context.Context, cfg Config) (Client, error) {
	switch strings.ToLower(cfg.Provider) {
	case "", "ollama":
		url := cfg.BaseURL
		if url == "" {
			url = DefaultOllamaURL
		}
		return NewOllamaProvider(url, cfg.Options), nil
	case "openai":
		return NewOpenAIProvider(cfg.APIKey, cfg.BaseURL, cfg.Options), nil
	case "gemini":
		provider, err := NewGeminiProvider(ctx, cfg.APIKey, cfg.Options)
		if err != nil {
			return nil, err
		}
		return provider, nil
	default:
		return nil, fmt.Errorf("%w: unknown llm provider %q", app_errors.ErrValidation, cfg.Provider)
	}
}

// classifyStatus maps a non-2xx HTTP status from a provider to a failure kind.
func classifyStatus(code int, body string) error {
	err := fmt.Errorf("api returned status %d: %s", code, strings.TrimSpace(body))
	switch {
	case code == http.StatusUnauthorized || code == http.StatusForbidden:
		return app_errors.NewLLMFailure(app_errors.LLMUnauthorized, err)
	case code == http.StatusTooManyRequests:
		return app_errors.NewLLMFailure(app_errors.LLMRateLimited, err)
	case code == http.StatusRequestTimeout || code == http.StatusGatewayTimeout:
		return app_errors.NewLLMFailure(app_errors.LLMTimeout, err)
	default:
		return app_errors.NewLLMFailure(app_errors.LLMMalformed, err)
	}
}

// classifyTransportError maps an error that happened before a response arrived.
// Deadlines, network timeouts and cancellation all count as a timed out turn.
func classifyTransportError(err error) error {
	if _, ok := app_errors.LLMFailureKindOf(err); ok {
		return err
	}
	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) ||
		(errors.As(err, &netErr) && netErr.Timeout()) {
		return app_errors.NewLLMFailure(app_errors.LLMTimeout, err)
	}
	return app_errors.NewLLMFailure(app_errors.LLMMalformed, err)
}
