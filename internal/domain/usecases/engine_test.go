package usecases

import (
	"math"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/0xcro3dile/cfohelper-go/internal/domain/entities"
)

var testNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func acmeContext() entities.FinancialContext {
	return entities.FinancialContext{
		ID:              "ctx_acme",
		CompanyID:       "acme",
		CurrentCash:     1_000_000,
		MonthlyRevenue:  500_000,
		MonthlyExpenses: 300_000,
		MarketingSpend:  50_000,
		TeamSize:        10,
		AverageSalary:   50_000,
		PricePerUnit:    100,
		UnitsSold:       5000,
		RunwayMonths:    5,
		LastUpdated:     time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
		Metadata:        map[string]any{"sector": "saas"},
	}
}

func scenario(changes map[string]any) entities.UserScenario {
	return entities.UserScenario{ScenarioID: "scenario_1", CompanyID: "acme", Changes: changes, CreatedAt: testNow}
}

func TestImpactCalculator_MergeAddsDeltas(t *testing.T) {
	c := NewImpactCalculator(nil)
	orig := acmeContext()

	updated, err := c.Merge(orig, scenario(map[string]any{
		"monthly_revenue": 100_000.0,
		"team_size":       2,
	}), testNow)
	require.NoError(t, err)

	want := orig.Clone()
	want.MonthlyRevenue = 600_000
	want.TeamSize = 12
	want.LastUpdated = testNow
	if diff := cmp.Diff(want, updated); diff != "" {
		t.Errorf("merged context mismatch (-want +got):\n%s", diff)
	}

	d := c.Delta(orig, updated)
	assert.Equal(t, 100_000.0, d.RevenueChange)
	assert.Equal(t, 2, d.TeamSizeChange)
	assert.InDelta(t, 20.0, d.TeamSizeChangePct, 1e-9)
	assert.InDelta(t, 20.0, d.RevenueChangePct, 1e-9)
	assert.Equal(t, 100_000.0, d.ProfitChange)
	assert.Zero(t, d.ExpenseChange)
	assert.Zero(t, d.RunwayChange)
}

func TestImpactCalculator_ReplacesMetadataAndIgnoresUnknown(t *testing.T) {
	c := NewImpactCalculator(nil)
	orig := acmeContext()

	updated, err := c.Merge(orig, scenario(map[string]any{
		"metadata":      map[string]any{"plan": "expansion"},
		"unknown_field": 42,
	}), testNow)
	require.NoError(t, err)

	assert.Equal(t, map[string]any{"plan": "expansion"}, updated.Metadata)
	assert.Equal(t, "saas", orig.Metadata["sector"], "original must not be mutated")
	assert.Equal(t, orig.MonthlyRevenue, updated.MonthlyRevenue)
}

func TestImpactCalculator_EmptyChangesIsIdentity(t *testing.T) {
	c := NewImpactCalculator(nil)
	orig := acmeContext()

	updated, err := c.Merge(orig, scenario(map[string]any{}), testNow)
	require.NoError(t, err)

	assert.Equal(t, entities.ImpactDelta{}, c.Delta(orig, updated))
}

func TestImpactCalculator_RejectsBadChanges(t *testing.T) {
	c := NewImpactCalculator(nil)

	tests := []struct {
		name    string
		changes map[string]any
	}{
		{"identity field", map[string]any{"company_id": "other"}},
		{"non numeric", map[string]any{"monthly_revenue": "lots"}},
		{"fractional int", map[string]any{"team_size": 1.5}},
		{"negative team", map[string]any{"team_size": -11}},
		{"infinite", map[string]any{"current_cash": math.Inf(1)}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := c.Merge(acmeContext(), scenario(tt.changes), testNow)
			assert.ErrorIs(t, err, entities.ErrValidation)
		})
	}
}

func TestImpactCalculator_ZeroBasePercent(t *testing.T) {
	c := NewImpactCalculator(nil)
	orig := acmeContext()
	orig.MarketingSpend = 0
	orig.TeamSize = 0

	updated, err := c.Merge(orig, scenario(map[string]any{
		"marketing_spend": 10_000,
		"team_size":       3,
	}), testNow)
	require.NoError(t, err)

	d := c.Delta(orig, updated)
	assert.Equal(t, 10_000.0, d.MarketingChange)
	assert.Zero(t, d.MarketingChangePct)
	assert.Zero(t, d.TeamSizeChangePct)
}

func TestPercentChange(t *testing.T) {
	assert.Equal(t, 50.0, PercentChange(50, 100))
	assert.Equal(t, -25.0, PercentChange(-25, 100))
	assert.Zero(t, PercentChange(10, 0))
}

func TestForecastSimulator_StopsAtFirstNonPositiveBalance(t *testing.T) {
	res, err := ForecastSimulator{}.Simulate(entities.ForecastInput{
		CurrentCash:      10_000,
		MonthlyRevenue:   5_000,
		MonthlyExpenses:  6_000,
		MonthsToForecast: 12,
	})
	require.NoError(t, err)

	require.Len(t, res.MonthlyForecast, 10)
	assert.Equal(t, 9, res.TotalMonthsOfRunway)
	assert.Equal(t, 0.0, res.FinalCashBalance)
	last := res.MonthlyForecast[9]
	assert.Equal(t, 10, last.Month)
	assert.Equal(t, -1_000.0, last.NetIncome)
}

func TestForecastSimulator_ProfitableRunsFullHorizon(t *testing.T) {
	res, err := ForecastSimulator{}.Simulate(entities.ForecastInput{
		CurrentCash:      1_000,
		MonthlyRevenue:   8_000,
		MonthlyExpenses:  5_000,
		MonthsToForecast: 6,
	})
	require.NoError(t, err)

	assert.Len(t, res.MonthlyForecast, 6)
	assert.Equal(t, 6, res.TotalMonthsOfRunway)
	assert.Equal(t, 19_000.0, res.FinalCashBalance)
}

func TestForecastSimulator_HiringMarketingAndPricing(t *testing.T) {
	res, err := ForecastSimulator{}.Simulate(entities.ForecastInput{
		CurrentCash:          100_000,
		MonthlyRevenue:       50_000,
		MonthlyExpenses:      30_000,
		NewHires:             2,
		SalaryPerHire:        5_000,
		MarketingSpend:       5_000,
		PriceIncreasePercent: 10,
		MonthsToForecast:     3,
	})
	require.NoError(t, err)

	first := res.MonthlyForecast[0]
	assert.InDelta(t, 55_000, first.Revenue, 1e-9)
	assert.Equal(t, 45_000.0, first.Expenses)
	assert.InDelta(t, 10_000, first.NetIncome, 1e-9)
	// Price increase is applied once, not compounded.
	assert.Equal(t, first.Revenue, res.MonthlyForecast[2].Revenue)
	assert.InDelta(t, 130_000, res.FinalCashBalance, 1e-6)
}

func TestForecastSimulator_EdgeCases(t *testing.T) {
	t.Run("zero horizon", func(t *testing.T) {
		res, err := ForecastSimulator{}.Simulate(entities.ForecastInput{CurrentCash: 500, MonthsToForecast: 0})
		require.NoError(t, err)
		assert.Empty(t, res.MonthlyForecast)
		assert.Zero(t, res.TotalMonthsOfRunway)
		assert.Equal(t, 500.0, res.FinalCashBalance)
	})

	t.Run("already broke", func(t *testing.T) {
		res, err := ForecastSimulator{}.Simulate(entities.ForecastInput{
			CurrentCash: 0, MonthlyRevenue: 100, MonthlyExpenses: 200, MonthsToForecast: 12,
		})
		require.NoError(t, err)
		assert.Len(t, res.MonthlyForecast, 1)
		assert.Zero(t, res.TotalMonthsOfRunway)
	})

	invalid := []entities.ForecastInput{
		{MonthsToForecast: -1},
		{MonthsToForecast: MaxForecastMonths + 1},
		{MonthsToForecast: 1, NewHires: -1},
		{MonthsToForecast: 1, CurrentCash: math.NaN()},
		{MonthsToForecast: 1, PriceIncreasePercent: math.Inf(1)},
	}
	for _, in := range invalid {
		_, err := ForecastSimulator{}.Simulate(in)
		assert.ErrorIs(t, err, entities.ErrValidation, "%+v", in)
	}
}

func TestForecastSimulator_RejectsOverflow(t *testing.T) {
	cases := map[string]entities.ForecastInput{
		"balance":  {CurrentCash: 1e308, MonthlyRevenue: 1e308, MonthsToForecast: 2},
		"revenue":  {MonthlyRevenue: 1e308, PriceIncreasePercent: 100, MonthsToForecast: 1},
		"expenses": {MonthlyExpenses: 1e308, MarketingSpend: 1e308, MonthsToForecast: 1},
		"net":      {MonthlyRevenue: 1e308, MonthlyExpenses: -1e308, MonthsToForecast: 1},
		"hiring":   {NewHires: 10, SalaryPerHire: 1e308, MonthsToForecast: 1},
	}
	for name, in := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := ForecastSimulator{}.Simulate(in)
			assert.ErrorIs(t, err, entities.ErrValidation)
		})
	}
}

func TestEngine_ProjectRejectsOverflowingImpact(t *testing.T) {
	original := acmeContext()
	original.MonthlyRevenue = 1

	_, err := NewEngine(nil).Project(original, scenario(map[string]any{"monthly_revenue": 1e308}), testNow)
	assert.ErrorIs(t, err, entities.ErrValidation)
}

func TestImpactCalculator_RejectsOverflowingProfit(t *testing.T) {
	_, err := NewImpactCalculator(nil).Merge(acmeContext(), scenario(map[string]any{
		"monthly_revenue":  1.7e308,
		"monthly_expenses": -1.7e308,
	}), testNow)
	assert.ErrorIs(t, err, entities.ErrValidation)
}

func TestForecastSimulator_RunwayInvariant(t *testing.T) {
	inputs := []entities.ForecastInput{
		{CurrentCash: 50_000, MonthlyRevenue: 10_000, MonthlyExpenses: 17_000, MonthsToForecast: 24},
		{CurrentCash: 1, MonthlyRevenue: 0, MonthlyExpenses: 1, MonthsToForecast: 5},
		{CurrentCash: 100, MonthlyRevenue: 10, MonthlyExpenses: 5, MonthsToForecast: 600},
	}
	for _, in := range inputs {
		res, err := ForecastSimulator{}.Simulate(in)
		require.NoError(t, err)

		assert.LessOrEqual(t, len(res.MonthlyForecast), in.MonthsToForecast)
		for i, e := range res.MonthlyForecast {
			assert.Equal(t, i+1, e.Month)
			if i < res.TotalMonthsOfRunway {
				assert.Greater(t, e.Balance, 0.0)
			}
		}
		if n := len(res.MonthlyForecast); n > 0 {
			assert.Equal(t, res.MonthlyForecast[n-1].Balance, res.FinalCashBalance)
		}
	}
}

func TestEngine_Modes(t *testing.T) {
	e := NewEngine(nil)

	p, err := e.Project(acmeContext(), scenario(map[string]any{"monthly_expenses": -50_000}), testNow)
	require.NoError(t, err)
	assert.Equal(t, 250_000.0, p.Updated.MonthlyExpenses)
	assert.Equal(t, 50_000.0, p.Impact.ProfitChange)
	assert.InDelta(t, -16.666, p.Impact.ExpenseChangePct, 1e-3)

	r, err := e.Forecast(entities.ForecastInput{CurrentCash: 1, MonthlyRevenue: 2, MonthsToForecast: 2})
	require.NoError(t, err)
	assert.Len(t, r.MonthlyForecast, 2)
}
