// Package memstore provides in-memory, synchronized implementations of the
// context, scenario and analysis stores.
//
// Each store owns one RWMutex and copies values on the way in and out, so a
// reader never observes a partial write and callers cannot mutate stored
// records through shared maps.
package memstore

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/0xcro3dile/cfohelper-go/internal/domain/entities"
	"github.com/0xcro3dile/cfohelper-go/internal/domain/ports"
)

var (
	_ ports.ContextStore  = (*ContextStore)(nil)
	_ ports.ScenarioStore = (*ScenarioStore)(nil)
	_ ports.AnalysisStore = (*AnalysisStore)(nil)
)

// ContextStore keeps the latest FinancialContext per company.
type ContextStore struct {
	mu       sync.RWMutex
	contexts map[string]entities.FinancialContext
}

// NewContextStore creates an empty ContextStore.
func NewContextStore() *ContextStore {
	return &ContextStore{contexts: make(map[string]entities.FinancialContext)}
}

// Upsert replaces the company's context.
func (s *ContextStore) Upsert(_ context.Context, fc entities.FinancialContext) error {
	if fc.CompanyID == "" {
		return entities.Invalid("company_id", "is required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.contexts[fc.CompanyID] = fc.Clone()
	return nil
}

// Get returns the company's context.
func (s *ContextStore) Get(_ context.Context, companyID string) (entities.FinancialContext, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	fc, ok := s.contexts[companyID]
	if !ok {
		return entities.FinancialContext{}, entities.NewNotFound(entities.EntityContext, companyID)
	}
	return fc.Clone(), nil
}

// Clear removes every context.
func (s *ContextStore) Clear(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	clear(s.contexts)
	return nil
}

// Len returns the number of stored contexts.
func (s *ContextStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.contexts)
}

// ScenarioStore keeps scenarios keyed by a sequential id.
// The sequence survives Clear, so ids are never reused.
type ScenarioStore struct {
	mu        sync.RWMutex
	seq       uint64
	scenarios map[string]entities.UserScenario
}

// NewScenarioStore creates an empty ScenarioStore.
func NewScenarioStore() *ScenarioStore {
	return &ScenarioStore{scenarios: make(map[string]entities.UserScenario)}
}

// Create allocates the next scenario id and stores the scenario.
func (s *ScenarioStore) Create(_ context.Context, companyID string, changes map[string]any, now time.Time) (entities.UserScenario, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seq++
	sc := entities.UserScenario{
		ScenarioID: fmt.Sprintf("scenario_%d", s.seq),
		CompanyID:  companyID,
		Changes:    entities.CloneMap(changes),
		CreatedAt:  now,
	}
	if sc.Changes == nil {
		sc.Changes = map[string]any{}
	}
	s.scenarios[sc.ScenarioID] = sc
	return sc.Clone(), nil
}

// Get returns a scenario by id.
func (s *ScenarioStore) Get(_ context.Context, id string) (entities.UserScenario, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sc, ok := s.scenarios[id]
	if !ok {
		return entities.UserScenario{}, entities.NewNotFound(entities.EntityScenario, id)
	}
	return sc.Clone(), nil
}

// Clear removes every scenario.
func (s *ScenarioStore) Clear(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	clear(s.scenarios)
	return nil
}

// Len returns the number of stored scenarios.
func (s *ScenarioStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.scenarios)
}

// AnalysisStore is an append-only registry of analyses.
type AnalysisStore struct {
	mu       sync.RWMutex
	seq      uint64
	analyses map[string]entities.FinancialAnalysis
}

// NewAnalysisStore creates an empty AnalysisStore.
func NewAnalysisStore() *AnalysisStore {
	return &AnalysisStore{analyses: make(map[string]entities.FinancialAnalysis)}
}

// Store saves a copy of a, assigning the next analysis id when a has none.
func (s *AnalysisStore) Store(_ context.Context, a *entities.FinancialAnalysis) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if a.AnalysisID == "" {
		s.seq++
		a.AnalysisID = fmt.Sprintf("analysis_%d", s.seq)
	}
	s.analyses[a.AnalysisID] = a.Clone()
	return nil
}

// Get returns an analysis by id.
func (s *AnalysisStore) Get(_ context.Context, id string) (entities.FinancialAnalysis, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.analyses[id]
	if !ok {
		return entities.FinancialAnalysis{}, entities.NewNotFound(entities.EntityAnalysis, id)
	}
	return a.Clone(), nil
}

// Clear removes every analysis.
func (s *AnalysisStore) Clear(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	clear(s.analyses)
	return nil
}

// Len returns the number of stored analyses.
func (s *AnalysisStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.analyses)
}
