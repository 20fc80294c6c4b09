package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	app_errors "intellimind/backend/internal/errors"
)

// GeminiProvider is a Client backed by Google's Gemini API.
type GeminiProvider struct {
	client *genai.Client
	opts   Options
}

// NewGeminiProvider opens a Gemini client authenticated with apiKey.
func NewGeminiProvider(ctx context.Context, apiKey string, opts Options) (*GeminiProvider, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("%w: gemini requires an api key", app_errors.ErrValidation)
	}
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create GenAI client: %w", err)
	}
	return &GeminiProvider{client: client, opts: opts}, nil
}

// Close releases the underlying connection.
func (p *GeminiProvider) Close() error {
	return p.client.Close()
}

func (p *GeminiProvider) Complete(ctx context.Context, messages []Message) (string, error) {
	system, history, last, err := toGeminiHistory(messages)
	if err != nil {
		return "", err
	}

	model := p.client.GenerativeModel(p.opts.Model)
	if p.opts.Temperature != nil {
		model.SetTemperature(*p.opts.Temperature)
	}
	if p.opts.TopP > 0 {
		model.SetTopP(p.opts.TopP)
	}
	if p.opts.MaxTokens > 0 {
		model.SetMaxOutputTokens(int32(p.opts.MaxTokens))
	}
	if system != "" {
		model.SystemInstruction = &genai.Content{Parts: []genai.Part{genai.Text(system)}}
	}

	session := model.StartChat()
	session.History = history

	resp, err := session.SendMessage(ctx, genai.Text(last))
	if err != nil {
		return "", classifyGeminiError(err)
	}
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "", app_errors.NewLLMFailure(app_errors.LLMMalformed, errors.New("gemini returned no candidates"))
	}

	var text strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if t, ok := part.(genai.Text); ok {
			text.WriteString(string(t))
		}
	}
	if strings.TrimSpace(text.String()) == "" {
		return "", app_errors.NewLLMFailure(app_errors.LLMMalformed, errors.New("gemini returned an empty or non-text response"))
	}
	return text.String(), nil
}

// toGeminiHistory splits the history into the system instruction, the prior
// turns, and the final user message that has to be sent.
func toGeminiHistory(messages []Message) (string, []*genai.Content, string, error) {
	var system []string
	var turns []Message
	for _, m := range messages {
		if m.Role == "system" {
			system = append(system, m.Content)
			continue
		}
		turns = append(turns, m)
	}
	if len(turns) == 0 || turns[len(turns)-1].Role != "user" {
		return "", nil, "", app_errors.NewLLMFailure(app_errors.LLMMalformed, errors.New("history must end with a user message"))
	}

	history := make([]*genai.Content, 0, len(turns)-1)
	for _, m := range turns[:len(turns)-1] {
		role := "user"
		if m.Role == "assistant" {
			role = "model"
		}
		history = append(history, &genai.Content{Role: role, Parts: []genai.Part{genai.Text(m.Content)}})
	}
	return strings.Join(system, "\n\n"), history, turns[len(turns)-1].Content, nil
}

func classifyGeminiError(err error) error {
	switch status.Code(err) {
	case codes.ResourceExhausted:
		return app_errors.NewLLMFailure(app_errors.LLMRateLimited, err)
	case codes.Unauthenticated, codes.PermissionDenied:
		return app_errors.NewLLMFailure(app_errors.LLMUnauthorized, err)
	case codes.DeadlineExceeded, codes.Canceled:
		return app_errors.NewLLMFailure(app_errors.LLMTimeout, err)
	}
	return classifyTransportError(err)
}
