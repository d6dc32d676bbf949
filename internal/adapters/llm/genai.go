package llm

import (
	"context"
	"errors"
	"fmt"

	"google.golang.org/genai"

	"github.com/0xcro3dile/cfohelper-go/internal/domain/ports"
)

var _ ports.TextGenerator = (*GenAIAdapter)(nil)

// GenAIAdapter implements ports.TextGenerator with the Gemini API.
type GenAIAdapter struct {
	client *genai.Client
	model  string
}

// NewGenAIAdapter creates a Gemini generator.
func NewGenAIAdapter(ctx context.Context, apiKey, model string) (*GenAIAdapter, error) {
	if apiKey == "" {
		return nil, errors.New("genai: API key is required")
	}
	if model == "" {
		model = "gemini-2.5-flash"
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("creating genai client: %w", err)
	}
	return &GenAIAdapter{client: client, model: model}, nil
}

// Name identifies the provider.
func (a *GenAIAdapter) Name() string { return "genai" }

// Generate produces a complete response.
func (a *GenAIAdapter) Generate(ctx context.Context, prompt string, params ports.GenerationParams) (string, error) {
	cfg := &genai.GenerateContentConfig{
		Temperature: genai.Ptr(float32(params.Temperature)),
	}
	if params.MaxTokens > 0 {
		cfg.MaxOutputTokens = int32(params.MaxTokens)
	}
	if params.SystemPrompt != "" {
		cfg.SystemInstruction = genai.NewContentFromText(params.SystemPrompt, genai.RoleUser)
	}

	resp, err := a.client.Models.GenerateContent(ctx, a.model, genai.Text(prompt), cfg)
	if err != nil {
		return "", fmt.Errorf("genai generate: %w", err)
	}
	return resp.Text(), nil
}
