package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	app_errors "intellimind/backend/internal/errors"
)

// OllamaProvider is a Client backed by a local Ollama server.
type OllamaProvider struct {
	client *http.Client
	url    string
	opts   Options
}

// NewOllamaProvider talks to an Ollama server's /api/chat endpoint.
func NewOllamaProvider(url string, opts Options) *OllamaProvider {
	return &OllamaProvider{
		client: &http.Client{},
		url:    strings.TrimRight(url, "/"),
		opts:   opts,
	}
}

type ollamaChatRequest struct {
	Model    string         `json:"model"`
	Messages []Message      `json:"messages"`
	Stream   bool           `json:"stream"`
	Options  map[string]any `json:"options,omitempty"`
}

type ollamaChatResponse struct {
	Model   string  `json:"model"`
	Message Message `json:"message"`
	Done    bool    `json:"done"`
	Error   string  `json:"error,omitempty"`
}

func (p *OllamaProvider) Complete(ctx context.Context, messages []Message) (string, error) {
	body, err := json.Marshal(ollamaChatRequest{
		Model:    p.opts.Model,
		Messages: messages,
		Stream:   false,
		Options:  p.options(),
	})
	if err != nil {
		return "", fmt.Errorf("could not marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.url+"/api/chat", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("could not create http request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(httpReq)
	if err != nil {
		return "", classifyTransportError(err)
	}
	defer resp.Body.Close()

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", classifyTransportError(err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", classifyStatus(resp.StatusCode, string(bodyBytes))
	}

	var chatResp ollamaChatResponse
	if err := json.Unmarshal(bodyBytes, &chatResp); err != nil {
		return "", app_errors.NewLLMFailure(app_errors.LLMMalformed, fmt.Errorf("could not decode response: %w", err))
	}
	if chatResp.Error != "" {
		return "", app_errors.NewLLMFailure(app_errors.LLMMalformed, errors.New(chatResp.Error))
	}
	if strings.TrimSpace(chatResp.Message.Content) == "" {
		return "", app_errors.NewLLMFailure(app_errors.LLMMalformed, errors.New("response contained no message content"))
	}
	return chatResp.Message.Content, nil
}

// Ping reports whether the Ollama server answers on its root endpoint.
func (p *OllamaProvider) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.url, nil)
	if err != nil {
		return err
	}
	resp, err := p.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("ollama returned status %d", resp.StatusCode)
	}
	return nil
}

func (p *OllamaProvider) options() map[string]any {
	opts := map[string]any{}
	if p.opts.Temperature != nil {
		opts["temperature"] = *p.opts.Temperature
	}
	if p.opts.TopP > 0 {
		opts["top_p"] = p.opts.TopP
	}
	if p.opts.MaxTokens > 0 {
		opts["num_predict"] = p.opts.MaxTokens
	}
	if len(opts) == 0 {
		return nil
	}
	return opts
}
