package knowledge

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/0xcro3dile/cfohelper-go/internal/adapters/embedding"
	"github.com/0xcro3dile/cfohelper-go/internal/adapters/vectordb"
)

func TestSeed(t *testing.T) {
	docs, err := Seed()
	require.NoError(t, err)
	require.Len(t, docs, 10)

	assert.Equal(t, "A company's runway is calculated as cash balance divided by monthly burn rate.", docs[0].Text)
	for _, d := range docs {
		assert.NotEmpty(t, d.Text)
		assert.Equal(t, "seed", d.Metadata["source"])
		assert.NotEmpty(t, d.Metadata["topic"])
	}
}

func TestSeed_Searchable(t *testing.T) {
	docs, err := Seed()
	require.NoError(t, err)

	index := vectordb.NewIndex(embedding.NewHashEmbedder(256), 256, nil)
	n, err := index.Add(context.Background(), docs)
	require.NoError(t, err)
	require.Equal(t, len(docs), n)

	results, err := index.Search(context.Background(), "pricing strategy revenue customer acquisition", 1)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "pricing", results[0].Document.Metadata["topic"])
}
