package llm

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/0xcro3dile/cfohelper-go/internal/domain/ports"
)

var _ ports.TextGenerator = (*GroqAdapter)(nil)

// GroqAdapter implements ports.TextGenerator against Groq's
// OpenAI-compatible chat completions endpoint.
type GroqAdapter struct {
	baseURL string
	apiKey  string
	model   string
	client  *http.Client
}

// NewGroqAdapter creates a Groq adapter. apiKey is required.
func NewGroqAdapter(baseURL, apiKey, model string) (*GroqAdapter, error) {
	if apiKey == "" {
		return nil, errors.New("groq: API key is required")
	}
	if baseURL == "" {
		baseURL = "https://api.groq.com/openai/v1"
	}
	if model == "" {
		model = "llama-3.1-8b-instant"
	}
	return &GroqAdapter{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		model:   model,
		client:  &http.Client{Timeout: 60 * time.Second},
	}, nil
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
	Temperature float64       `json:"temperature"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

// Name identifies the provider.
func (g *GroqAdapter) Name() string { return "groq" }

// Generate sends the system prompt and user prompt as a two-message chat.
func (g *GroqAdapter) Generate(ctx context.Context, prompt string, params ports.GenerationParams) (string, error) {
	messages := make([]chatMessage, 0, 2)
	if params.SystemPrompt != "" {
		messages = append(messages, chatMessage{Role: "system", Content: params.SystemPrompt})
	}
	messages = append(messages, chatMessage{Role: "user", Content: prompt})

	req := chatRequest{
		Model:       g.model,
		Messages:    messages,
		MaxTokens:   params.MaxTokens,
		Temperature: params.Temperature,
	}

	var resp chatResponse
	headers := map[string]string{"Authorization": "Bearer " + g.apiKey}
	if err := postJSON(ctx, g.client, g.Name(), g.baseURL+"/chat/completions", headers, req, &resp); err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("groq returned no choices")
	}
	return resp.Choices[0].Message.Content, nil
}
