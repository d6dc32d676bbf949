// Package usecases contains application business rules.
// Usecases orchestrate entities and depend on port interfaces only.
package usecases

import (
	"math"
	"time"

	"go.uber.org/zap"

	"github.com/0xcro3dile/cfohelper-go/internal/domain/entities"
)

// maxIntDelta bounds integer deltas so the float-to-int conversion stays exact.
const maxIntDelta = 1 << 52

// ImpactCalculator merges a scenario into a context and diffs the result.
type ImpactCalculator struct {
	logger *zap.Logger
}

// NewImpactCalculator creates an ImpactCalculator.
func NewImpactCalculator(logger *zap.Logger) *ImpactCalculator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ImpactCalculator{logger: logger}
}

// Merge applies the scenario changes to a copy of original.
// Numeric fields add the change to the original value, replace fields take
// the new value, unknown keys are ignored. The result keeps the id and
// company and is stamped with now.
func (c *ImpactCalculator) Merge(original entities.FinancialContext, scenario entities.UserScenario, now time.Time) (entities.FinancialContext, error) {
	updated := original.Clone()

	for _, f := range entities.ContextFields {
		raw, ok := scenario.Changes[f.Name]
		if !ok {
			continue
		}
		switch f.Kind {
		case entities.KindIdentity:
			return entities.FinancialContext{}, entities.Invalid(f.Name, "cannot be changed by a scenario")
		case entities.KindFloat:
			delta, ok := entities.NumericValue(raw)
			if !ok {
				return entities.FinancialContext{}, entities.Invalid(f.Name, "expected a numeric delta")
			}
			v, _ := updated.Float(f.Name)
			updated.SetFloat(f.Name, v+delta)
		case entities.KindInt:
			delta, ok := entities.NumericValue(raw)
			if !ok || delta != math.Trunc(delta) || math.Abs(delta) > maxIntDelta {
				return entities.FinancialContext{}, entities.Invalid(f.Name, "expected a whole-number delta")
			}
			v, _ := updated.Int(f.Name)
			updated.SetInt(f.Name, v+int(delta))
		case entities.KindReplace:
			m, _ := raw.(map[string]any)
			updated.Metadata = entities.CloneMap(m)
		}
	}

	for key := range scenario.Changes {
		if _, known := entities.LookupField(key); !known {
			c.logger.Debug("ignoring unknown scenario field",
				zap.String("scenario_id", scenario.ScenarioID),
				zap.String("field", key))
		}
	}

	updated.LastUpdated = now
	if err := updated.Validate(); err != nil {
		return entities.FinancialContext{}, err
	}
	return updated, nil
}

// Delta computes the impact of moving from original to updated.
func (c *ImpactCalculator) Delta(original, updated entities.FinancialContext) entities.ImpactDelta {
	d := entities.ImpactDelta{
		RevenueChange:   updated.MonthlyRevenue - original.MonthlyRevenue,
		ExpenseChange:   updated.MonthlyExpenses - original.MonthlyExpenses,
		MarketingChange: updated.MarketingSpend - original.MarketingSpend,
		RunwayChange:    updated.RunwayMonths - original.RunwayMonths,
		ProfitChange:    updated.MonthlyProfit() - original.MonthlyProfit(),
		TeamSizeChange:  updated.TeamSize - original.TeamSize,
	}
	d.RevenueChangePct = PercentChange(d.RevenueChange, original.MonthlyRevenue)
	d.ExpenseChangePct = PercentChange(d.ExpenseChange, original.MonthlyExpenses)
	d.MarketingChangePct = PercentChange(d.MarketingChange, original.MarketingSpend)
	d.TeamSizeChangePct = PercentChange(float64(d.TeamSizeChange), float64(original.TeamSize))
	return d
}

// PercentChange returns delta as a percentage of base, or 0 when base is 0.
func PercentChange(delta, base float64) float64 {
	if base == 0 {
		return 0
	}
	return delta / base * 100
}

// checkImpact rejects a delta whose differences overflowed.
func checkImpact(d entities.ImpactDelta) error {
	for _, v := range []struct {
		name string
		v    float64
	}{
		{"revenue_change", d.RevenueChange},
		{"expense_change", d.ExpenseChange},
		{"marketing_impact", d.MarketingChange},
		{"runway_impact", d.RunwayChange},
		{"profit_impact", d.ProfitChange},
		{"revenue_change_pct", d.RevenueChangePct},
		{"expense_change_pct", d.ExpenseChangePct},
		{"marketing_change_pct", d.MarketingChangePct},
		{"team_size_change_pct", d.TeamSizeChangePct},
	} {
		if !finite(v.v) {
			return entities.Invalid(v.name, "overflows")
		}
	}
	return nil
}
