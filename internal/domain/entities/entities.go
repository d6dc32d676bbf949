// Package entities contains core business entities.
// These are the enterprise business rules - pure domain objects with no external dependencies.
package entities

import "time"

// Document represents a knowledge file (TXT, MD) before it is chunked.
type Document struct {
	ID        string
	Name      string
	Path      string
	Content   string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// DocumentInput is a document offered to the retrieval index.
// Embedding may be left nil; the index then computes it.
type DocumentInput struct {
	Text      string
	Embedding []float32
	Metadata  map[string]any
}

// IndexedDocument is an entry owned by the retrieval index. Immutable once added.
type IndexedDocument struct {
	ID        int // insertion ordinal
	Text      string
	Embedding []float32
	Metadata  map[string]any
}

// SearchResult is one hit of a nearest-neighbor query.
type SearchResult struct {
	Document IndexedDocument
	Distance float64 // squared L2
	Rank     int     // 1 = nearest
}

// Source returns the metadata "source" value, if any.
func (r SearchResult) Source() string {
	if s, ok := r.Document.Metadata["source"].(string); ok {
		return s
	}
	return ""
}
