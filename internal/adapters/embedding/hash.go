package embedding

import (
	"context"
	"hash/fnv"
	"math"
	"strings"
	"unicode"

	"github.com/0xcro3dile/cfohelper-go/internal/domain/ports"
)

var _ ports.EmbeddingService = (*HashEmbedder)(nil)

// HashEmbedder is an offline embedder: a feature-hashed bag of words,
// L2-normalised. Texts sharing words land close together, which is enough
// to rank a small domain corpus without a model server.
type HashEmbedder struct {
	dim int
}

// NewHashEmbedder creates a HashEmbedder producing dim-sized vectors.
func NewHashEmbedder(dim int) *HashEmbedder {
	if dim <= 0 {
		dim = 384
	}
	return &HashEmbedder{dim: dim}
}

// Dimension returns the vector size.
func (h *HashEmbedder) Dimension() int { return h.dim }

// Embed hashes each token into a signed bucket.
func (h *HashEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	v := make([]float32, h.dim)
	for _, tok := range tokenize(text) {
		hs := fnv.New64a()
		_, _ = hs.Write([]byte(tok))
		sum := hs.Sum64()
		bucket := int(sum % uint64(h.dim))
		if sum>>63 == 1 {
			v[bucket]--
		} else {
			v[bucket]++
		}
	}

	var norm float64
	for _, x := range v {
		norm += float64(x) * float64(x)
	}
	if norm > 0 {
		inv := float32(1 / math.Sqrt(norm))
		for i := range v {
			v[i] *= inv
		}
	}
	return v, nil
}

// EmbedBatch embeds each text.
func (h *HashEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i], _ = h.Embed(ctx, t)
	}
	return out, nil
}

// tokenize lowercases text and splits it on anything that is not a letter or digit.
func tokenize(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}
