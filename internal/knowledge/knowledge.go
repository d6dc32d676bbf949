// Package knowledge holds the built-in financial knowledge corpus.
package knowledge

import (
	_ "embed"

	"github.com/0xcro3dile/cfohelper-go/internal/adapters/loader"
	"github.com/0xcro3dile/cfohelper-go/internal/domain/entities"
)

//go:embed seed.yaml
var seed []byte

// Seed returns the built-in facts as index inputs, one document per fact.
func Seed() ([]entities.DocumentInput, error) {
	facts, err := loader.ParseFacts(seed)
	if err != nil {
		return nil, err
	}
	docs := make([]entities.DocumentInput, len(facts))
	for i, f := range facts {
		meta := map[string]any{"source": "seed"}
		if f.Topic != "" {
			meta["topic"] = f.Topic
		}
		docs[i] = entities.DocumentInput{Text: f.Text, Metadata: meta}
	}
	return docs, nil
}
