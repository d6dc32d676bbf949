package usecases

import (
	"context"
	"fmt"
	"maps"
	"sync"
	"time"

	"github.com/0xcro3dile/cfohelper-go/internal/domain/entities"
	"github.com/0xcro3dile/cfohelper-go/internal/domain/ports"
)

// mockContextStore implements ports.ContextStore for testing
type mockContextStore struct {
	mu   sync.Mutex
	data map[string]entities.FinancialContext
}

func newMockContextStore() *mockContextStore {
	return &mockContextStore{data: map[string]entities.FinancialContext{}}
}

func (m *mockContextStore) Upsert(ctx context.Context, fc entities.FinancialContext) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[fc.CompanyID] = fc.Clone()
	return nil
}

func (m *mockContextStore) Get(ctx context.Context, companyID string) (entities.FinancialContext, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	fc, ok := m.data[companyID]
	if !ok {
		return entities.FinancialContext{}, entities.NewNotFound(entities.EntityContext, companyID)
	}
	return fc.Clone(), nil
}

func (m *mockContextStore) Clear(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data = map[string]entities.FinancialContext{}
	return nil
}

func (m *mockContextStore) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.data)
}

// mockScenarioStore implements ports.ScenarioStore for testing
type mockScenarioStore struct {
	mu   sync.Mutex
	seq  int
	data map[string]entities.UserScenario
}

func newMockScenarioStore() *mockScenarioStore {
	return &mockScenarioStore{data: map[string]entities.UserScenario{}}
}

func (m *mockScenarioStore) Create(ctx context.Context, companyID string, changes map[string]any, now time.Time) (entities.UserScenario, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seq++
	s := entities.UserScenario{
		ScenarioID: fmt.Sprintf("scenario_%d", m.seq),
		CompanyID:  companyID,
		Changes:    maps.Clone(changes),
		CreatedAt:  now,
	}
	m.data[s.ScenarioID] = s
	return s.Clone(), nil
}

func (m *mockScenarioStore) Get(ctx context.Context, id string) (entities.UserScenario, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.data[id]
	if !ok {
		return entities.UserScenario{}, entities.NewNotFound(entities.EntityScenario, id)
	}
	return s.Clone(), nil
}

func (m *mockScenarioStore) Clear(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data = map[string]entities.UserScenario{}
	return nil
}

func (m *mockScenarioStore) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.data)
}

// mockAnalysisStore implements ports.AnalysisStore for testing
type mockAnalysisStore struct {
	mu   sync.Mutex
	seq  int
	data map[string]entities.FinancialAnalysis
}

func newMockAnalysisStore() *mockAnalysisStore {
	return &mockAnalysisStore{data: map[string]entities.FinancialAnalysis{}}
}

func (m *mockAnalysisStore) Store(ctx context.Context, a *entities.FinancialAnalysis) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if a.AnalysisID == "" {
		m.seq++
		a.AnalysisID = fmt.Sprintf("analysis_%d", m.seq)
	}
	m.data[a.AnalysisID] = a.Clone()
	return nil
}

func (m *mockAnalysisStore) Get(ctx context.Context, id string) (entities.FinancialAnalysis, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.data[id]
	if !ok {
		return entities.FinancialAnalysis{}, entities.NewNotFound(entities.EntityAnalysis, id)
	}
	return a.Clone(), nil
}

func (m *mockAnalysisStore) Clear(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data = map[string]entities.FinancialAnalysis{}
	return nil
}

func (m *mockAnalysisStore) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.data)
}

// mockGenerator implements ports.TextGenerator for testing
type mockGenerator struct {
	mu         sync.Mutex
	generateFn func(ctx context.Context, prompt string) (string, error)
	lastPrompt string
	lastParams ports.GenerationParams
	calls      int
}

func (m *mockGenerator) Generate(ctx context.Context, prompt string, params ports.GenerationParams) (string, error) {
	m.mu.Lock()
	m.lastPrompt = prompt
	m.lastParams = params
	m.calls++
	m.mu.Unlock()
	if m.generateFn != nil {
		return m.generateFn(ctx, prompt)
	}
	return "Revenue growth extends runway.", nil
}

func (m *mockGenerator) Name() string { return "mock" }

// mockIndex implements ports.RetrievalIndex for testing
type mockIndex struct {
	mu       sync.Mutex
	docs     []entities.DocumentInput
	searchFn func(query string, k int) ([]entities.SearchResult, error)
	queries  []string
	addErr   error
}

func (m *mockIndex) Add(ctx context.Context, docs []entities.DocumentInput) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.addErr != nil {
		return 0, m.addErr
	}
	m.docs = append(m.docs, docs...)
	return len(docs), nil
}

func (m *mockIndex) Search(ctx context.Context, query string, k int) ([]entities.SearchResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.queries = append(m.queries, query)
	if m.searchFn != nil {
		return m.searchFn(query, k)
	}
	var out []entities.SearchResult
	for i, d := range m.docs {
		if i >= k {
			break
		}
		out = append(out, entities.SearchResult{
			Document: entities.IndexedDocument{ID: i, Text: d.Text, Metadata: d.Metadata},
			Rank:     i + 1,
		})
	}
	return out, nil
}

func (m *mockIndex) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.docs)
}

// mockForecastLog implements ports.ForecastLog for testing
type mockForecastLog struct {
	mu        sync.Mutex
	runs      []entities.ForecastResult
	calls     int64
	recordErr error
}

func (m *mockForecastLog) Record(ctx context.Context, r entities.ForecastResult) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.recordErr != nil {
		return m.recordErr
	}
	m.runs = append(m.runs, r)
	return nil
}

func (m *mockForecastLog) IncrementUsage(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	return nil
}

func (m *mockForecastLog) Usage(ctx context.Context) (entities.UsageStats, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	stats := entities.UsageStats{TotalScenariosRun: int64(len(m.runs)), APICalls: m.calls}
	if n := len(m.runs); n > 0 {
		ts := m.runs[n-1].Timestamp
		stats.LastScenarioTime = &ts
	}
	return stats, nil
}

func (m *mockForecastLog) Recent(ctx context.Context, limit int) ([]entities.ForecastResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []entities.ForecastResult{}
	for i := len(m.runs) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, m.runs[i])
	}
	return out, nil
}

func (m *mockForecastLog) Close() error { return nil }

// mockLoader implements ports.DocumentLoader for testing
type mockLoader struct {
	mu   sync.Mutex
	docs map[string]string
}

func (m *mockLoader) set(path, content string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.docs[path] = content
}

func (m *mockLoader) Load(ctx context.Context, path string) (*entities.Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	content, ok := m.docs[path]
	if !ok {
		return nil, fmt.Errorf("no such file: %s", path)
	}
	return &entities.Document{ID: path, Name: path, Path: path, Content: content}, nil
}

func (m *mockLoader) SupportedExtensions() []string {
	return []string{".txt", ".md"}
}

// mockWatcher implements ports.FileWatcher for testing
type mockWatcher struct {
	events  chan ports.FileEvent
	mu      sync.Mutex
	stopped bool
}

func (m *mockWatcher) Watch(ctx context.Context, dir string) (<-chan ports.FileEvent, error) {
	return m.events, nil
}

func (m *mockWatcher) Stop() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stopped = true
	return nil
}

func (m *mockWatcher) isStopped() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.stopped
}
