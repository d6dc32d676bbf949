package usecases

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/0xcro3dile/cfohelper-go/internal/domain/entities"
	"github.com/0xcro3dile/cfohelper-go/internal/domain/ports"
)

var errEmptyGeneration = errors.New("empty response")

// AnalysisDeps are the collaborators of AnalysisUseCase.
// Generator, Index and Usage may be nil: analyses then use the templated
// summary, carry no grounding and are not counted.
type AnalysisDeps struct {
	Contexts  ports.ContextStore
	Scenarios ports.ScenarioStore
	Analyses  ports.AnalysisStore
	Engine    ScenarioEngine
	Index     ports.RetrievalIndex
	Generator ports.TextGenerator
	Usage     ports.ForecastLog
}

// AnalysisConfig tunes retrieval and generation.
type AnalysisConfig struct {
	TopK              int
	GenerationTimeout time.Duration
	MaxTokens         int
	Temperature       float64
}

// AnalysisUseCase registers contexts and scenarios and produces analyses.
// It never fails because of text generation: any generation problem
// degrades to a templated summary.
type AnalysisUseCase struct {
	deps   AnalysisDeps
	cfg    AnalysisConfig
	logger *zap.Logger
	now    func() time.Time
}

// NewAnalysisUseCase creates an AnalysisUseCase with injected dependencies.
func NewAnalysisUseCase(deps AnalysisDeps, cfg AnalysisConfig, logger *zap.Logger) *AnalysisUseCase {
	if cfg.TopK <= 0 {
		cfg.TopK = 3
	}
	if cfg.GenerationTimeout <= 0 {
		cfg.GenerationTimeout = 30 * time.Second
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = 1024
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if deps.Engine == nil {
		deps.Engine = NewEngine(logger)
	}
	return &AnalysisUseCase{
		deps:   deps,
		cfg:    cfg,
		logger: logger,
		now:    time.Now,
	}
}

// WithClock replaces the time source. Used by tests.
func (uc *AnalysisUseCase) WithClock(now func() time.Time) *AnalysisUseCase {
	uc.now = now
	return uc
}

// UpsertContext validates and stores a company's context, assigning an id
// when it has none.
func (uc *AnalysisUseCase) UpsertContext(ctx context.Context, fc entities.FinancialContext) (entities.FinancialContext, error) {
	fc = fc.Clone()
	fc.CompanyID = strings.TrimSpace(fc.CompanyID)
	if fc.ID == "" {
		fc.ID = "ctx_" + uuid.NewString()[:8]
	}
	fc.LastUpdated = uc.now()
	if err := fc.Validate(); err != nil {
		return entities.FinancialContext{}, err
	}
	if err := uc.deps.Contexts.Upsert(ctx, fc); err != nil {
		return entities.FinancialContext{}, fmt.Errorf("storing context: %w", err)
	}
	uc.logger.Info("context upserted",
		zap.String("company_id", fc.CompanyID),
		zap.String("context_id", fc.ID))
	return fc, nil
}

// GetContext returns the stored context of a company.
func (uc *AnalysisUseCase) GetContext(ctx context.Context, companyID string) (entities.FinancialContext, error) {
	return uc.deps.Contexts.Get(ctx, companyID)
}

// CreateScenario records proposed changes for a company.
// The company does not need a context yet; Analyze checks that.
func (uc *AnalysisUseCase) CreateScenario(ctx context.Context, companyID string, changes map[string]any) (entities.UserScenario, error) {
	companyID = strings.TrimSpace(companyID)
	if companyID == "" {
		return entities.UserScenario{}, entities.Invalid("company_id", "is required")
	}
	if err := entities.ValidateChanges(changes); err != nil {
		return entities.UserScenario{}, err
	}
	s, err := uc.deps.Scenarios.Create(ctx, companyID, changes, uc.now())
	if err != nil {
		return entities.UserScenario{}, fmt.Errorf("storing scenario: %w", err)
	}
	uc.logger.Info("scenario created",
		zap.String("scenario_id", s.ScenarioID),
		zap.String("company_id", companyID),
		zap.Int("changes", len(changes)))
	return s, nil
}

// Analyze applies a scenario to its company's context, explains the impact
// and stores the resulting analysis. Each call creates a new analysis.
func (uc *AnalysisUseCase) Analyze(ctx context.Context, scenarioID string) (entities.FinancialAnalysis, error) {
	scenario, err := uc.deps.Scenarios.Get(ctx, scenarioID)
	if err != nil {
		return entities.FinancialAnalysis{}, err
	}
	original, err := uc.deps.Contexts.Get(ctx, scenario.CompanyID)
	if err != nil {
		return entities.FinancialAnalysis{}, err
	}

	now := uc.now()
	proj, err := uc.deps.Engine.Project(original, scenario, now)
	if err != nil {
		return entities.FinancialAnalysis{}, err
	}

	grounding := uc.retrieve(ctx, scenario)
	summary, source := uc.summarize(ctx, scenario.ScenarioID, proj, grounding)

	analysis := &entities.FinancialAnalysis{
		ScenarioID:    scenario.ScenarioID,
		CompanyID:     scenario.CompanyID,
		Original:      proj.Original,
		Updated:       proj.Updated,
		Impact:        proj.Impact,
		Summary:       summary,
		SummarySource: source,
		Grounding:     grounding,
		CreatedAt:     now,
	}
	if err := uc.deps.Analyses.Store(ctx, analysis); err != nil {
		return entities.FinancialAnalysis{}, fmt.Errorf("storing analysis: %w", err)
	}
	uc.countUsage(ctx)

	uc.logger.Info("scenario analyzed",
		zap.String("mode", string(ModeContextMerge)),
		zap.String("scenario_id", scenario.ScenarioID),
		zap.String("analysis_id", analysis.AnalysisID),
		zap.String("summary_source", source),
		zap.Int("grounding", len(grounding)))
	return analysis.Clone(), nil
}

// Summary analyzes the scenario and returns only its narrative.
func (uc *AnalysisUseCase) Summary(ctx context.Context, scenarioID string) (entities.AnalysisSummary, error) {
	a, err := uc.Analyze(ctx, scenarioID)
	if err != nil {
		return entities.AnalysisSummary{}, err
	}
	return entities.AnalysisSummary{
		AnalysisID:    a.AnalysisID,
		ScenarioID:    a.ScenarioID,
		CompanyID:     a.CompanyID,
		Summary:       a.Summary,
		SummarySource: a.SummarySource,
		CreatedAt:     a.CreatedAt,
	}, nil
}

// GetAnalysis returns a stored analysis.
func (uc *AnalysisUseCase) GetAnalysis(ctx context.Context, analysisID string) (entities.FinancialAnalysis, error) {
	return uc.deps.Analyses.Get(ctx, analysisID)
}

// retrieve fetches grounding texts. Failures yield no grounding.
func (uc *AnalysisUseCase) retrieve(ctx context.Context, scenario entities.UserScenario) []string {
	if uc.deps.Index == nil {
		return nil
	}
	results, err := uc.deps.Index.Search(ctx, buildRetrievalQuery(scenario.Changes), uc.cfg.TopK)
	if err != nil {
		uc.logger.Warn("knowledge retrieval failed",
			zap.String("scenario_id", scenario.ScenarioID),
			zap.Error(err))
		return nil
	}
	grounding := make([]string, 0, len(results))
	for _, r := range results {
		grounding = append(grounding, r.Document.Text)
	}
	return grounding
}

// summarize asks the generator for a narrative, falling back to the template
// on error, timeout or blank output.
func (uc *AnalysisUseCase) summarize(ctx context.Context, scenarioID string, p Projection, grounding []string) (string, string) {
	gen := uc.deps.Generator
	if gen == nil {
		return fallbackSummary(p, grounding), entities.SummaryFromFallback
	}

	genCtx, cancel := context.WithTimeout(ctx, uc.cfg.GenerationTimeout)
	defer cancel()

	text, err := gen.Generate(genCtx, buildPrompt(p, grounding), ports.GenerationParams{
		SystemPrompt: SystemPrompt,
		MaxTokens:    uc.cfg.MaxTokens,
		Temperature:  uc.cfg.Temperature,
	})
	if err == nil && strings.TrimSpace(text) == "" {
		err = errEmptyGeneration
	}
	if err != nil {
		uc.logger.Warn("generation failed, using fallback summary",
			zap.String("scenario_id", scenarioID),
			zap.Error(&entities.GenerationError{Provider: gen.Name(), Err: err}))
		return fallbackSummary(p, grounding), entities.SummaryFromFallback
	}
	return summaryTitle + "\n\n" + strings.TrimSpace(text), entities.SummaryFromLLM
}

func (uc *AnalysisUseCase) countUsage(ctx context.Context) {
	if uc.deps.Usage == nil {
		return
	}
	if err := uc.deps.Usage.IncrementUsage(ctx); err != nil {
		uc.logger.Warn("usage counter update failed", zap.Error(err))
	}
}
