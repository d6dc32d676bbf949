package embedding

import (
	"context"
	"errors"
	"fmt"

	"google.golang.org/genai"

	"github.com/0xcro3dile/cfohelper-go/internal/domain/ports"
)

var _ ports.EmbeddingService = (*GenAIEmbedder)(nil)

// GenAIEmbedder generates embeddings with the Gemini API.
type GenAIEmbedder struct {
	client *genai.Client
	model  string
	dim    int32
}

// NewGenAIEmbedder creates a Gemini embedder returning dim-sized vectors.
func NewGenAIEmbedder(ctx context.Context, apiKey, model string, dim int) (*GenAIEmbedder, error) {
	if apiKey == "" {
		return nil, errors.New("genai: API key is required")
	}
	if model == "" {
		model = "gemini-embedding-001"
	}
	if dim <= 0 {
		dim = 768
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("creating genai client: %w", err)
	}
	return &GenAIEmbedder{client: client, model: model, dim: int32(dim)}, nil
}

// Embed generates an embedding for a single text.
func (e *GenAIEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	out, err := e.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return out[0], nil
}

// EmbedBatch embeds all texts in one request.
func (e *GenAIEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	contents := make([]*genai.Content, len(texts))
	for i, text := range texts {
		contents[i] = genai.NewContentFromText(text, genai.RoleUser)
	}

	res, err := e.client.Models.EmbedContent(ctx, e.model, contents, &genai.EmbedContentConfig{
		TaskType:             "SEMANTIC_SIMILARITY",
		OutputDimensionality: genai.Ptr(e.dim),
	})
	if err != nil {
		return nil, fmt.Errorf("genai embed: %w", err)
	}
	if len(res.Embeddings) != len(texts) {
		return nil, fmt.Errorf("genai embed: got %d embeddings for %d texts", len(res.Embeddings), len(texts))
	}

	out := make([][]float32, len(res.Embeddings))
	for i, emb := range res.Embeddings {
		out[i] = emb.Values
	}
	return out, nil
}
