package usecases

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/0xcro3dile/cfohelper-go/internal/domain/entities"
	"github.com/0xcro3dile/cfohelper-go/internal/domain/ports"
)

// ForecastUseCase runs standalone forecasts and keeps their history.
type ForecastUseCase struct {
	engine  ScenarioEngine
	history ports.ForecastLog
	logger  *zap.Logger
	now     func() time.Time
}

// NewForecastUseCase creates a ForecastUseCase. history is required.
func NewForecastUseCase(engine ScenarioEngine, history ports.ForecastLog, logger *zap.Logger) *ForecastUseCase {
	if logger == nil {
		logger = zap.NewNop()
	}
	if engine == nil {
		engine = NewEngine(logger)
	}
	return &ForecastUseCase{
		engine:  engine,
		history: history,
		logger:  logger,
		now:     time.Now,
	}
}

// WithClock replaces the time source. Used by tests.
func (uc *ForecastUseCase) WithClock(now func() time.Time) *ForecastUseCase {
	uc.now = now
	return uc
}

// Run simulates the input, records the run and bumps the usage counter.
// History failures are logged; the forecast is still returned.
func (uc *ForecastUseCase) Run(ctx context.Context, in entities.ForecastInput) (entities.ForecastResult, error) {
	result, err := uc.engine.Forecast(in)
	if err != nil {
		return entities.ForecastResult{}, err
	}

	now := uc.now().UTC()
	result.Timestamp = now
	result.ScenarioID = fmt.Sprintf("scn_%s_%s", now.Format("20060102_150405"), uuid.NewString()[:6])

	if err := uc.history.Record(ctx, result); err != nil {
		uc.logger.Warn("recording forecast failed",
			zap.String("scenario_id", result.ScenarioID),
			zap.Error(err))
	}
	if err := uc.history.IncrementUsage(ctx); err != nil {
		uc.logger.Warn("usage counter update failed", zap.Error(err))
	}

	uc.logger.Info("forecast completed",
		zap.String("mode", string(ModeForecast)),
		zap.String("scenario_id", result.ScenarioID),
		zap.Int("months", len(result.MonthlyForecast)),
		zap.Int("runway", result.TotalMonthsOfRunway))
	return result, nil
}

// Usage reports the run and API call counters.
func (uc *ForecastUseCase) Usage(ctx context.Context) (entities.UsageStats, error) {
	stats, err := uc.history.Usage(ctx)
	if err != nil {
		return entities.UsageStats{}, fmt.Errorf("reading usage: %w", err)
	}
	return stats, nil
}

// MaxHistory caps the runs returned by History.
const MaxHistory = 100

// History returns recent forecast runs, newest first.
func (uc *ForecastUseCase) History(ctx context.Context, limit int) ([]entities.ForecastResult, error) {
	if limit <= 0 || limit > MaxHistory {
		limit = MaxHistory
	}
	runs, err := uc.history.Recent(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("reading history: %w", err)
	}
	return runs, nil
}
