package embedding

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOllamaAdapter_Embed(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/embed", r.URL.Path)
		var req ollamaEmbedRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		assert.Equal(t, "test-model", req.Model)
		assert.Equal(t, []string{"hello"}, req.Input)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"embeddings": [][]float32{{0.1, 0.2, 0.3}},
		})
	}))
	defer server.Close()

	adapter := NewOllamaAdapter(server.URL, "test-model", nil)
	emb, err := adapter.Embed(context.Background(), "hello")
	require.NoError(t, err)
	assert.Len(t, emb, 3)
}

func TestOllamaAdapter_EmbedBatchSingleCall(t *testing.T) {
	calls := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		var req ollamaEmbedRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		out := make([][]float32, len(req.Input))
		for i := range out {
			out[i] = []float32{float32(i) * 0.1, 1}
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"embeddings": out})
	}))
	defer server.Close()

	adapter := NewOllamaAdapter(server.URL, "test-model", nil)
	results, err := adapter.EmbedBatch(context.Background(), []string{"a", "b", "c"})
	require.NoError(t, err)
	assert.Len(t, results, 3)
	assert.Equal(t, 1, calls)
}

func TestOllamaAdapter_EmbedBatchShapeMismatch(t *testing.T) {
	for name, body := range map[string]any{
		"count":     map[string]any{"embeddings": [][]float32{{1, 2}}},
		"dimension": map[string]any{"embeddings": [][]float32{{1, 2}, {1}}},
		"empty":     map[string]any{"embeddings": [][]float32{{}, {}}},
	} {
		t.Run(name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				_ = json.NewEncoder(w).Encode(body)
			}))
			defer server.Close()

			_, err := NewOllamaAdapter(server.URL, "m", nil).EmbedBatch(context.Background(), []string{"a", "b"})
			assert.Error(t, err)
		})
	}
}

func TestOllamaAdapter_ServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model not loaded", http.StatusInternalServerError)
	}))
	defer server.Close()

	adapter := NewOllamaAdapter(server.URL, "test", nil)
	_, err := adapter.Embed(context.Background(), "test")
	if err == nil {
		t.Fatal("should error on 500")
	}
	assert.Contains(t, err.Error(), "model not loaded")
}

func TestOllamaAdapter_DefaultValues(t *testing.T) {
	adapter := NewOllamaAdapter("", "", nil)
	if adapter.baseURL != "http://localhost:11434" {
		t.Error("should default to localhost")
	}
	if adapter.model != "nomic-embed-text" {
		t.Error("should default to nomic-embed-text")
	}
}

func TestHashEmbedder_DeterministicAndNormalised(t *testing.T) {
	h := NewHashEmbedder(64)
	ctx := context.Background()

	a, err := h.Embed(ctx, "Runway is cash divided by burn")
	require.NoError(t, err)
	b, _ := h.Embed(ctx, "runway IS cash, divided by burn!")
	assert.Equal(t, a, b)
	assert.Len(t, a, 64)

	var norm float64
	for _, x := range a {
		norm += float64(x) * float64(x)
	}
	assert.InDelta(t, 1.0, math.Sqrt(norm), 1e-5)

	empty, _ := h.Embed(ctx, "")
	assert.Len(t, empty, 64)
}

func TestHashEmbedder_SharedWordsAreCloser(t *testing.T) {
	h := NewHashEmbedder(256)
	ctx := context.Background()

	q, _ := h.Embed(ctx, "hiring employees")
	near, _ := h.Embed(ctx, "Hiring more employees increases fixed costs")
	far, _ := h.Embed(ctx, "Pricing strategy impacts acquisition")

	assert.Less(t, sqDist(q, near), sqDist(q, far))
}

func sqDist(a, b []float32) float64 {
	var s float64
	for i := range a {
		d := float64(a[i] - b[i])
		s += d * d
	}
	return s
}

// countingEmbedder records how many texts reach the wrapped embedder.
type countingEmbedder struct {
	texts int
	err   error
}

func (c *countingEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if c.err != nil {
		return nil, c.err
	}
	c.texts++
	return []float32{float32(len(text))}, nil
}

func (c *countingEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		v, err := c.Embed(ctx, t)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

func TestCached_OnlyMissesReachInner(t *testing.T) {
	inner := &countingEmbedder{}
	c, err := NewCached(inner, 8)
	require.NoError(t, err)
	ctx := context.Background()

	_, err = c.Embed(ctx, "abc")
	require.NoError(t, err)
	_, _ = c.Embed(ctx, "abc")
	assert.Equal(t, 1, inner.texts)

	out, err := c.EmbedBatch(ctx, []string{"abc", "de", "f"})
	require.NoError(t, err)
	assert.Equal(t, [][]float32{{3}, {2}, {1}}, out)
	assert.Equal(t, 3, inner.texts)
	assert.Equal(t, 3, c.Len())

	// Mutating a returned vector must not poison the cache.
	out[0][0] = 99
	again, _ := c.Embed(ctx, "abc")
	assert.Equal(t, []float32{3}, again)
}

func TestCached_PropagatesErrors(t *testing.T) {
	c, err := NewCached(&countingEmbedder{err: errors.New("down")}, 0)
	require.NoError(t, err)

	_, err = c.Embed(context.Background(), "x")
	assert.Error(t, err)
	_, err = c.EmbedBatch(context.Background(), []string{"x"})
	assert.Error(t, err)
	assert.Zero(t, c.Len())
}

func TestNewGenAIEmbedder_RequiresKey(t *testing.T) {
	_, err := NewGenAIEmbedder(context.Background(), "", "", 0)
	assert.Error(t, err)
}
