package llm

import (
	"context"
	"net/http"
	"time"

	"github.com/0xcro3dile/cfohelper-go/internal/domain/ports"
)

var _ ports.TextGenerator = (*OllamaLLMAdapter)(nil)

// OllamaLLMAdapter implements ports.TextGenerator using the Ollama API.
type OllamaLLMAdapter struct {
	baseURL string
	model   string
	client  *http.Client
}

// NewOllamaLLMAdapter creates a new Ollama generation adapter.
// Callers bound each request with a context deadline.
func NewOllamaLLMAdapter(baseURL, model string) *OllamaLLMAdapter {
	if baseURL == "" {
		baseURL = "http://localhost:11434"
	}
	if model == "" {
		model = "llama3.2"
	}
	return &OllamaLLMAdapter{
		baseURL: baseURL,
		model:   model,
		client: &http.Client{
			Timeout: 300 * time.Second,
		},
	}
}

type ollamaOptions struct {
	Temperature float64 `json:"temperature"`
	NumPredict  int     `json:"num_predict,omitempty"`
}

type ollamaGenerateRequest struct {
	Model   string        `json:"model"`
	Prompt  string        `json:"prompt"`
	System  string        `json:"system,omitempty"`
	Stream  bool          `json:"stream"`
	Options ollamaOptions `json:"options"`
}

type ollamaGenerateResponse struct {
	Response string `json:"response"`
	Done     bool   `json:"done"`
}

// Name identifies the provider.
func (a *OllamaLLMAdapter) Name() string { return "ollama" }

// Generate produces a complete, non-streamed response.
func (a *OllamaLLMAdapter) Generate(ctx context.Context, prompt string, params ports.GenerationParams) (string, error) {
	reqBody := ollamaGenerateRequest{
		Model:  a.model,
		Prompt: prompt,
		System: params.SystemPrompt,
		Stream: false,
		Options: ollamaOptions{
			Temperature: params.Temperature,
			NumPredict:  params.MaxTokens,
		},
	}

	var genResp ollamaGenerateResponse
	if err := postJSON(ctx, a.client, a.Name(), a.baseURL+"/api/generate", nil, reqBody, &genResp); err != nil {
		return "", err
	}
	return genResp.Response, nil
}
