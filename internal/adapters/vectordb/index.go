// Package vectordb provides the retrieval index adapter.
// Brute-force nearest neighbour over an in-memory table; the corpus is a
// handful of domain facts plus optional knowledge files.
package vectordb

import (
	"context"
	"fmt"
	"slices"
	"sort"
	"sync"

	"go.uber.org/zap"

	"github.com/0xcro3dile/cfohelper-go/internal/domain/entities"
	"github.com/0xcro3dile/cfohelper-go/internal/domain/ports"
)

// DefaultDimension matches the sentence-transformer size the corpus was built for.
const DefaultDimension = 384

var _ ports.RetrievalIndex = (*Index)(nil)

// Index stores documents with their embeddings and answers k-NN queries by
// squared Euclidean distance. Documents are append-only and ordered by
// insertion; equal distances keep that order.
type Index struct {
	mu       sync.RWMutex
	docs     []entities.IndexedDocument
	embedder ports.EmbeddingService
	dim      int
	logger   *zap.Logger
}

// NewIndex creates an empty index whose vectors must have dim components.
func NewIndex(embedder ports.EmbeddingService, dim int, logger *zap.Logger) *Index {
	if dim <= 0 {
		dim = DefaultDimension
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Index{embedder: embedder, dim: dim, logger: logger}
}

// Dimension returns the configured vector size.
func (ix *Index) Dimension() int { return ix.dim }

// Len returns the number of indexed documents.
func (ix *Index) Len() int {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return len(ix.docs)
}

// Add embeds documents that carry no vector and appends all of them.
// Either every document is added or none is.
func (ix *Index) Add(ctx context.Context, docs []entities.DocumentInput) (int, error) {
	if len(docs) == 0 {
		return 0, nil
	}

	vectors := make([][]float32, len(docs))
	var pending []int
	for i, d := range docs {
		if d.Embedding == nil {
			pending = append(pending, i)
			continue
		}
		vectors[i] = slices.Clone(d.Embedding)
	}

	if len(pending) > 0 {
		texts := make([]string, len(pending))
		for j, i := range pending {
			texts[j] = docs[i].Text
		}
		embedded, err := ix.embedder.EmbedBatch(ctx, texts)
		if err != nil {
			return 0, fmt.Errorf("embedding documents: %w", err)
		}
		if len(embedded) != len(pending) {
			return 0, fmt.Errorf("embedding documents: got %d vectors for %d texts", len(embedded), len(pending))
		}
		for j, i := range pending {
			vectors[i] = embedded[j]
		}
	}

	for i, v := range vectors {
		if len(v) != ix.dim {
			return 0, entities.Invalid("embedding", fmt.Sprintf("document %d has dimension %d, want %d", i, len(v), ix.dim))
		}
	}

	ix.mu.Lock()
	defer ix.mu.Unlock()
	base := len(ix.docs)
	for i, d := range docs {
		ix.docs = append(ix.docs, entities.IndexedDocument{
			ID:        base + i,
			Text:      d.Text,
			Embedding: vectors[i],
			Metadata:  entities.CloneMap(d.Metadata),
		})
	}

	ix.logger.Debug("documents indexed",
		zap.Int("added", len(docs)),
		zap.Int("total", len(ix.docs)))
	return len(docs), nil
}

// Search returns up to k documents nearest to query, nearest first.
// k <= 0 or an empty index yields no results without calling the embedder.
func (ix *Index) Search(ctx context.Context, query string, k int) ([]entities.SearchResult, error) {
	if k <= 0 || ix.Len() == 0 {
		return []entities.SearchResult{}, nil
	}

	qv, err := ix.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embedding query: %w", err)
	}
	if len(qv) != ix.dim {
		return nil, entities.Invalid("query", fmt.Sprintf("embedding has dimension %d, want %d", len(qv), ix.dim))
	}

	type scored struct {
		doc  entities.IndexedDocument
		dist float64
	}

	ix.mu.RLock()
	results := make([]scored, len(ix.docs))
	for i, d := range ix.docs {
		results[i] = scored{doc: d, dist: squaredL2(qv, d.Embedding)}
	}
	ix.mu.RUnlock()

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].dist < results[j].dist
	})
	if len(results) > k {
		results = results[:k]
	}

	out := make([]entities.SearchResult, len(results))
	for i, r := range results {
		doc := r.doc
		doc.Embedding = slices.Clone(doc.Embedding)
		doc.Metadata = entities.CloneMap(doc.Metadata)
		out[i] = entities.SearchResult{Document: doc, Distance: r.dist, Rank: i + 1}
	}
	return out, nil
}

// squaredL2 accumulates in float64 to keep float32 rounding out of the ranking.
func squaredL2(a, b []float32) float64 {
	var sum float64
	for i := range a {
		d := float64(a[i]) - float64(b[i])
		sum += d * d
	}
	return sum
}
