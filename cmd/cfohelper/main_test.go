package main

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/0xcro3dile/cfohelper-go/internal/adapters/embedding"
	"github.com/0xcro3dile/cfohelper-go/internal/adapters/history"
	"github.com/0xcro3dile/cfohelper-go/internal/adapters/llm"
	"github.com/0xcro3dile/cfohelper-go/internal/domain/entities"
	"github.com/0xcro3dile/cfohelper-go/internal/infrastructure/config"
)

func testConfig() *config.Config {
	return &config.Config{
		LLM:        config.LLMConfig{Provider: config.ProviderNone},
		Embedding:  config.EmbeddingConfig{Provider: config.ProviderHash, Dimension: 32, CacheSize: 16},
		Generation: config.GenerationConfig{RPS: 1, MaxRetries: 1},
	}
}

func TestBuildGenerator(t *testing.T) {
	ctx := context.Background()
	cfg := testConfig()

	g, err := buildGenerator(ctx, cfg, zap.NewNop())
	require.NoError(t, err)
	assert.Equal(t, llm.Disabled{}, g)

	cfg.LLM.Provider = config.ProviderOllama
	g, err = buildGenerator(ctx, cfg, zap.NewNop())
	require.NoError(t, err)
	assert.IsType(t, &llm.Resilient{}, g)
	assert.Equal(t, "ollama", g.Name())

	cfg.LLM.Provider = config.ProviderGroq
	_, err = buildGenerator(ctx, cfg, zap.NewNop())
	assert.Error(t, err, "groq needs a key")

	cfg.LLM.Provider = "other"
	_, err = buildGenerator(ctx, cfg, zap.NewNop())
	assert.Error(t, err)
}

func TestBuildEmbedder(t *testing.T) {
	ctx := context.Background()
	cfg := testConfig()

	e, err := buildEmbedder(ctx, cfg, zap.NewNop())
	require.NoError(t, err)
	assert.IsType(t, &embedding.Cached{}, e)

	cfg.Embedding.CacheSize = 0
	e, err = buildEmbedder(ctx, cfg, zap.NewNop())
	require.NoError(t, err)
	assert.IsType(t, &embedding.HashEmbedder{}, e)

	cfg.Embedding.Provider = config.ProviderGenAI
	_, err = buildEmbedder(ctx, cfg, zap.NewNop())
	assert.Error(t, err)
}

func TestBuildIndexLoadsSeed(t *testing.T) {
	index, err := buildIndex(context.Background(), testConfig(), zap.NewNop())
	require.NoError(t, err)
	assert.Equal(t, 10, index.Len())
}

func TestBuildHistory(t *testing.T) {
	cfg := testConfig()
	h, err := buildHistory(cfg)
	require.NoError(t, err)
	assert.IsType(t, &history.Memory{}, h)

	cfg.HistoryPath = t.TempDir() + "/history.db"
	h, err = buildHistory(cfg)
	require.NoError(t, err)
	defer h.Close()
	assert.IsType(t, &history.SQLiteLog{}, h)
}

func TestPrintForecast(t *testing.T) {
	var buf bytes.Buffer
	printForecast(&buf, entities.ForecastResult{
		MonthlyForecast: []entities.ForecastEntry{
			{Month: 1, Revenue: 5000, Expenses: 6000, NetIncome: -1000, Balance: 1_234_000.5},
		},
		TotalMonthsOfRunway: 1,
		FinalCashBalance:    1_234_000.5,
	})

	out := buf.String()
	assert.Contains(t, out, "Balance")
	assert.Contains(t, out, "1,234,000.50")
	assert.Contains(t, out, "-1,000.00")
	assert.True(t, strings.HasSuffix(out, "Final balance: 1,234,000.50\n"), out)
	assert.Contains(t, out, "Runway: 1 months")
}
