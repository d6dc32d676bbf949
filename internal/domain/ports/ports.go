// Package ports defines interfaces for external dependencies.
// Usecases depend on these abstractions; adapters implement them.
package ports

import (
	"context"
	"time"

	"github.com/0xcro3dile/cfohelper-go/internal/domain/entities"
)

// EmbeddingService turns text into fixed-dimension vectors.
type EmbeddingService interface {
	// Embed generates a vector embedding for the given text.
	Embed(ctx context.Context, text string) ([]float32, error)

	// EmbedBatch generates embeddings for multiple texts.
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
}

// GenerationParams tune a single generation call.
type GenerationParams struct {
	SystemPrompt string
	MaxTokens    int
	Temperature  float64
}

// TextGenerator is the Text Generation Service: prompt in, narrative out.
type TextGenerator interface {
	Generate(ctx context.Context, prompt string, params GenerationParams) (string, error)

	// Name identifies the provider in logs and errors.
	Name() string
}

// RetrievalIndex stores documents with embeddings and answers k-NN queries.
type RetrievalIndex interface {
	// Add appends documents, embedding those that carry no vector.
	// Returns the number of documents added.
	Add(ctx context.Context, docs []entities.DocumentInput) (int, error)

	// Search returns up to k documents nearest to the query, nearest first.
	Search(ctx context.Context, query string, k int) ([]entities.SearchResult, error)

	// Len returns the number of indexed documents.
	Len() int
}

// ContextStore keeps the latest FinancialContext per company.
type ContextStore interface {
	Upsert(ctx context.Context, fc entities.FinancialContext) error
	Get(ctx context.Context, companyID string) (entities.FinancialContext, error)
	Clear(ctx context.Context) error
	Len() int
}

// ScenarioStore allocates ids for and keeps immutable scenarios.
type ScenarioStore interface {
	Create(ctx context.Context, companyID string, changes map[string]any, now time.Time) (entities.UserScenario, error)
	Get(ctx context.Context, scenarioID string) (entities.UserScenario, error)
	Clear(ctx context.Context) error
	Len() int
}

// AnalysisStore is the append-only registry of analyses.
type AnalysisStore interface {
	// Store saves the analysis, assigning an id when it has none.
	Store(ctx context.Context, analysis *entities.FinancialAnalysis) error
	Get(ctx context.Context, analysisID string) (entities.FinancialAnalysis, error)
	Clear(ctx context.Context) error
	Len() int
}

// ForecastLog records forecast runs and the usage counter.
type ForecastLog interface {
	Record(ctx context.Context, result entities.ForecastResult) error
	IncrementUsage(ctx context.Context) error
	Usage(ctx context.Context) (entities.UsageStats, error)

	// Recent returns up to limit runs, newest first.
	Recent(ctx context.Context, limit int) ([]entities.ForecastResult, error)
	Close() error
}

// DocumentLoader reads knowledge files.
type DocumentLoader interface {
	// Load reads a document from the given path.
	Load(ctx context.Context, path string) (*entities.Document, error)

	// SupportedExtensions returns file extensions this loader handles.
	SupportedExtensions() []string
}

// FileWatcher monitors a directory for changes.
type FileWatcher interface {
	// Watch starts monitoring the directory and emits events.
	Watch(ctx context.Context, dir string) (<-chan FileEvent, error)

	// Stop stops the watcher.
	Stop() error
}

// FileEvent represents a file system change.
type FileEvent struct {
	Path      string
	Operation FileOperation
}

// FileOperation is the type of file change.
type FileOperation int

const (
	FileCreated FileOperation = iota
	FileModified
	FileDeleted
)

func (op FileOperation) String() string {
	switch op {
	case FileCreated:
		return "created"
	case FileModified:
		return "modified"
	case FileDeleted:
		return "deleted"
	default:
		return "unknown"
	}
}
