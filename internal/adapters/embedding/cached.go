package embedding

import (
	"context"
	"fmt"
	"slices"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/0xcro3dile/cfohelper-go/internal/domain/ports"
)

var _ ports.EmbeddingService = (*Cached)(nil)

// Cached memoises another embedder's vectors in a bounded LRU keyed by text.
// Scenario queries repeat often, so remote embedders are hit once per phrase.
type Cached struct {
	inner ports.EmbeddingService
	cache *lru.Cache[string, []float32]
}

// NewCached wraps inner with an LRU of the given size.
func NewCached(inner ports.EmbeddingService, size int) (*Cached, error) {
	if size <= 0 {
		size = 1024
	}
	c, err := lru.New[string, []float32](size)
	if err != nil {
		return nil, fmt.Errorf("creating embedding cache: %w", err)
	}
	return &Cached{inner: inner, cache: c}, nil
}

// Embed returns the cached vector or computes and stores it.
func (c *Cached) Embed(ctx context.Context, text string) ([]float32, error) {
	if v, ok := c.cache.Get(text); ok {
		return slices.Clone(v), nil
	}
	v, err := c.inner.Embed(ctx, text)
	if err != nil {
		return nil, err
	}
	c.cache.Add(text, slices.Clone(v))
	return v, nil
}

// EmbedBatch only sends cache misses to the wrapped embedder.
func (c *Cached) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	var missTexts []string
	var missIdx []int
	for i, t := range texts {
		if v, ok := c.cache.Get(t); ok {
			out[i] = slices.Clone(v)
			continue
		}
		missTexts = append(missTexts, t)
		missIdx = append(missIdx, i)
	}
	if len(missTexts) == 0 {
		return out, nil
	}

	vecs, err := c.inner.EmbedBatch(ctx, missTexts)
	if err != nil {
		return nil, err
	}
	if len(vecs) != len(missTexts) {
		return nil, fmt.Errorf("embedder returned %d vectors for %d texts", len(vecs), len(missTexts))
	}
	for j, i := range missIdx {
		out[i] = vecs[j]
		c.cache.Add(missTexts[j], slices.Clone(vecs[j]))
	}
	return out, nil
}

// Len returns the number of cached vectors.
func (c *Cached) Len() int { return c.cache.Len() }
