package main

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/0xcro3dile/cfohelper-go/internal/adapters/embedding"
	"github.com/0xcro3dile/cfohelper-go/internal/adapters/history"
	"github.com/0xcro3dile/cfohelper-go/internal/adapters/llm"
	"github.com/0xcro3dile/cfohelper-go/internal/adapters/vectordb"
	"github.com/0xcro3dile/cfohelper-go/internal/domain/ports"
	"github.com/0xcro3dile/cfohelper-go/internal/infrastructure/config"
	"github.com/0xcro3dile/cfohelper-go/internal/knowledge"
)

// buildGenerator returns the configured text generator. Hosted and local
// providers are wrapped with rate limiting, retries and a circuit breaker.
func buildGenerator(ctx context.Context, cfg *config.Config, logger *zap.Logger) (ports.TextGenerator, error) {
	var inner ports.TextGenerator
	switch cfg.LLM.Provider {
	case config.ProviderNone:
		return llm.Disabled{}, nil
	case config.ProviderOllama:
		inner = llm.NewOllamaLLMAdapter(cfg.LLM.OllamaURL, cfg.LLM.OllamaModel)
	case config.ProviderGroq:
		g, err := llm.NewGroqAdapter(cfg.LLM.GroqBaseURL, cfg.LLM.GroqAPIKey, cfg.LLM.GroqModel)
		if err != nil {
			return nil, err
		}
		inner = g
	case config.ProviderGenAI:
		g, err := llm.NewGenAIAdapter(ctx, cfg.LLM.GenAIAPIKey, cfg.LLM.GenAIModel)
		if err != nil {
			return nil, err
		}
		inner = g
	default:
		return nil, fmt.Errorf("unknown LLM provider %q", cfg.LLM.Provider)
	}

	rc := llm.DefaultResilienceConfig()
	rc.RequestsPerSecond = cfg.Generation.RPS
	rc.MaxRetries = cfg.Generation.MaxRetries
	return llm.NewResilient(inner, rc, logger), nil
}

// buildEmbedder returns the configured embedder behind an LRU cache.
func buildEmbedder(ctx context.Context, cfg *config.Config, logger *zap.Logger) (ports.EmbeddingService, error) {
	var inner ports.EmbeddingService
	switch cfg.Embedding.Provider {
	case config.ProviderHash:
		inner = embedding.NewHashEmbedder(cfg.Embedding.Dimension)
	case config.ProviderOllama:
		inner = embedding.NewOllamaAdapter(cfg.LLM.OllamaURL, cfg.Embedding.Model, logger)
	case config.ProviderGenAI:
		e, err := embedding.NewGenAIEmbedder(ctx, cfg.LLM.GenAIAPIKey, cfg.Embedding.Model, cfg.Embedding.Dimension)
		if err != nil {
			return nil, err
		}
		inner = e
	default:
		return nil, fmt.Errorf("unknown embedding provider %q", cfg.Embedding.Provider)
	}
	if cfg.Embedding.CacheSize <= 0 {
		return inner, nil
	}
	return embedding.NewCached(inner, cfg.Embedding.CacheSize)
}

// buildIndex creates the retrieval index and loads the seed corpus into it.
func buildIndex(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*vectordb.Index, error) {
	embedder, err := buildEmbedder(ctx, cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("building embedder: %w", err)
	}
	index := vectordb.NewIndex(embedder, cfg.Embedding.Dimension, logger)

	seed, err := knowledge.Seed()
	if err != nil {
		return nil, fmt.Errorf("loading seed corpus: %w", err)
	}
	if _, err := index.Add(ctx, seed); err != nil {
		return nil, fmt.Errorf("indexing seed corpus: %w", err)
	}
	logger.Info("seed corpus indexed", zap.Int("documents", index.Len()))
	return index, nil
}

// buildHistory opens SQLite history when a path is configured.
func buildHistory(cfg *config.Config) (ports.ForecastLog, error) {
	if cfg.HistoryPath == "" {
		return history.NewMemory(), nil
	}
	return history.NewSQLiteLog(cfg.HistoryPath)
}
