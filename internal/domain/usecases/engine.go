package usecases

import (
	"time"

	"go.uber.org/zap"

	"github.com/0xcro3dile/cfohelper-go/internal/domain/entities"
)

// Mode names one of the two scenario-analysis paths.
type Mode string

const (
	// ModeContextMerge applies a change map to a stored context and diffs it.
	ModeContextMerge Mode = "context_merge"
	// ModeForecast runs the standalone hiring/pricing cash-flow simulation.
	ModeForecast Mode = "forecast"
)

// Projection is the result of ModeContextMerge.
type Projection struct {
	Original entities.FinancialContext
	Updated  entities.FinancialContext
	Impact   entities.ImpactDelta
}

// ScenarioEngine exposes both analysis modes. The modes share no math and
// are kept separate on purpose: they disagree on how runway is derived.
type ScenarioEngine interface {
	Project(original entities.FinancialContext, scenario entities.UserScenario, now time.Time) (Projection, error)
	Forecast(input entities.ForecastInput) (entities.ForecastResult, error)
}

// Engine is the default ScenarioEngine.
type Engine struct {
	impact    *ImpactCalculator
	simulator ForecastSimulator
}

var _ ScenarioEngine = (*Engine)(nil)

// NewEngine creates an Engine.
func NewEngine(logger *zap.Logger) *Engine {
	return &Engine{impact: NewImpactCalculator(logger)}
}

// Project runs ModeContextMerge.
func (e *Engine) Project(original entities.FinancialContext, scenario entities.UserScenario, now time.Time) (Projection, error) {
	updated, err := e.impact.Merge(original, scenario, now)
	if err != nil {
		return Projection{}, err
	}
	impact := e.impact.Delta(original, updated)
	if err := checkImpact(impact); err != nil {
		return Projection{}, err
	}
	return Projection{
		Original: original,
		Updated:  updated,
		Impact:   impact,
	}, nil
}

// Forecast runs ModeForecast.
func (e *Engine) Forecast(input entities.ForecastInput) (entities.ForecastResult, error) {
	return e.simulator.Simulate(input)
}
