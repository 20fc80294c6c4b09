package llm

import (
	"context"
	"errors"
	"math"
	"strings"

	"github.com/sashabaranov/go-openai"

	app_errors "intellimind/backend/internal/errors"
)

// OpenAIProvider is a Client for any OpenAI-compatible chat completion API
// (OpenAI itself, Groq, Cerebras, vLLM, ...). BaseURL selects the vendor.
type OpenAIProvider struct {
	client *openai.Client
	opts   Options
}

// NewOpenAIProvider creates a provider; an empty baseURL means api.openai.com.
func NewOpenAIProvider(apiKey, baseURL string, opts Options) *OpenAIProvider {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = strings.TrimRight(baseURL, "/")
	}
	return &OpenAIProvider{client: openai.NewClientWithConfig(cfg), opts: opts}
}

func (p *OpenAIProvider) Complete(ctx context.Context, messages []Message) (string, error) {
	req := openai.ChatCompletionRequest{
		Model:     p.opts.Model,
		Messages:  make([]openai.ChatCompletionMessage, 0, len(messages)),
		TopP:      p.opts.TopP,
		MaxTokens: p.opts.MaxTokens,
	}
	if t := p.opts.Temperature; t != nil {
		req.Temperature = *t
		if *t == 0 {
			// The request field is omitempty; this is how go-openai sends zero.
			req.Temperature = math.SmallestNonzeroFloat32
		}
	}
	for _, m := range messages {
		req.Messages = append(req.Messages, openai.ChatCompletionMessage{Role: m.Role, Content: m.Content})
	}

	resp, err := p.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return "", classifyOpenAIError(err)
	}
	if len(resp.Choices) == 0 || strings.TrimSpace(resp.Choices[0].Message.Content) == "" {
		return "", app_errors.NewLLMFailure(app_errors.LLMMalformed, errors.New("chat completion returned no content"))
	}
	return resp.Choices[0].Message.Content, nil
}

func classifyOpenAIError(err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) && apiErr.HTTPStatusCode != 0 {
		return classifyStatus(apiErr.HTTPStatusCode, apiErr.Message)
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) && reqErr.HTTPStatusCode != 0 {
		return classifyStatus(reqErr.HTTPStatusCode, reqErr.Error())
	}
	return classifyTransportError(err)
}
