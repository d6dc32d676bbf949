package entities

import (
	"math"
	"strings"
	"time"
)

// FinancialContext is the current financial state of one company.
// One per company id; a newer upsert replaces the older one.
type FinancialContext struct {
	ID              string         `json:"id"`
	CompanyID       string         `json:"company_id"`
	CurrentCash     float64        `json:"current_cash"`
	MonthlyRevenue  float64        `json:"monthly_revenue"`
	MonthlyExpenses float64        `json:"monthly_expenses"`
	MarketingSpend  float64        `json:"marketing_spend"`
	TeamSize        int            `json:"team_size"`
	AverageSalary   float64        `json:"average_salary"`
	PricePerUnit    float64        `json:"price_per_unit"`
	UnitsSold       int            `json:"units_sold"`
	RunwayMonths    float64        `json:"runway_months"`
	LastUpdated     time.Time      `json:"last_updated"`
	Metadata        map[string]any `json:"metadata,omitempty"`
}

// Validate enforces the context invariants: a company id, finite numbers
// (monthly profit included) and non-negative integer counts.
func (c FinancialContext) Validate() error {
	if strings.TrimSpace(c.CompanyID) == "" {
		return Invalid("company_id", "is required")
	}
	for _, f := range ContextFields {
		switch f.Kind {
		case KindFloat:
			v, _ := c.Float(f.Name)
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return Invalid(f.Name, "must be a finite number")
			}
		case KindInt:
			v, _ := c.Int(f.Name)
			if v < 0 {
				return Invalid(f.Name, "must not be negative")
			}
		}
	}
	if p := c.MonthlyProfit(); math.IsNaN(p) || math.IsInf(p, 0) {
		return Invalid("monthly_profit", "revenue minus expenses overflows")
	}
	return nil
}

// Clone returns a copy that shares no mutable state with c.
func (c FinancialContext) Clone() FinancialContext {
	c.Metadata = CloneMap(c.Metadata)
	return c
}

// MonthlyProfit is revenue minus expenses.
func (c FinancialContext) MonthlyProfit() float64 {
	return c.MonthlyRevenue - c.MonthlyExpenses
}

// UserScenario is an immutable record of proposed changes: field name to
// delta (numeric fields) or replacement value (everything else).
type UserScenario struct {
	ScenarioID string         `json:"scenario_id"`
	CompanyID  string         `json:"company_id"`
	Changes    map[string]any `json:"changes"`
	CreatedAt  time.Time      `json:"timestamp"`
}

// Clone returns a deep copy of the change map.
func (s UserScenario) Clone() UserScenario {
	s.Changes = CloneMap(s.Changes)
	return s
}

// ImpactDelta is the difference between an updated and an original context.
// Percentages are 0 when the original value is 0.
type ImpactDelta struct {
	RevenueChange      float64 `json:"revenue_change"`
	ExpenseChange      float64 `json:"expense_change"`
	MarketingChange    float64 `json:"marketing_impact"`
	RunwayChange       float64 `json:"runway_impact"`
	ProfitChange       float64 `json:"profit_impact"`
	TeamSizeChange     int     `json:"team_size_change"`
	RevenueChangePct   float64 `json:"revenue_change_pct"`
	ExpenseChangePct   float64 `json:"expense_change_pct"`
	MarketingChangePct float64 `json:"marketing_change_pct"`
	TeamSizeChangePct  float64 `json:"team_size_change_pct"`
}

// Summary sources.
const (
	SummaryFromLLM      = "llm"
	SummaryFromFallback = "fallback"
)

// FinancialAnalysis is the stored result of applying a scenario to a context.
type FinancialAnalysis struct {
	AnalysisID    string           `json:"analysis_id"`
	ScenarioID    string           `json:"scenario_id"`
	CompanyID     string           `json:"company_id"`
	Original      FinancialContext `json:"original_context"`
	Updated       FinancialContext `json:"updated_context"`
	Impact        ImpactDelta      `json:"impact_analysis"`
	Summary       string           `json:"summary"`
	SummarySource string           `json:"summary_source"`
	Grounding     []string         `json:"grounding,omitempty"`
	CreatedAt     time.Time        `json:"created_at"`
}

// Clone deep-copies the analysis.
func (a FinancialAnalysis) Clone() FinancialAnalysis {
	a.Original = a.Original.Clone()
	a.Updated = a.Updated.Clone()
	if a.Grounding != nil {
		a.Grounding = append([]string(nil), a.Grounding...)
	}
	return a
}

// AnalysisSummary is the narrative plus minimal identifying fields.
type AnalysisSummary struct {
	AnalysisID    string    `json:"analysis_id"`
	ScenarioID    string    `json:"scenario_id"`
	CompanyID     string    `json:"company_id"`
	Summary       string    `json:"summary"`
	SummarySource string    `json:"summary_source"`
	CreatedAt     time.Time `json:"created_at"`
}

// ForecastInput drives the standalone cash-flow simulation.
type ForecastInput struct {
	CurrentCash          float64 `json:"current_cash"`
	MonthlyRevenue       float64 `json:"monthly_revenue"`
	MonthlyExpenses      float64 `json:"monthly_expenses"`
	NewHires             int     `json:"new_hires"`
	SalaryPerHire        float64 `json:"salary_per_hire"`
	MarketingSpend       float64 `json:"marketing_spend"`
	PriceIncreasePercent float64 `json:"price_increase_percent"`
	MonthsToForecast     int     `json:"months_to_forecast"`
}

// DefaultForecastMonths is the horizon used when a caller does not pick one.
const DefaultForecastMonths = 12

// ForecastEntry is one simulated month.
type ForecastEntry struct {
	Month     int     `json:"month"`
	Revenue   float64 `json:"revenue"`
	Expenses  float64 `json:"expenses"`
	NetIncome float64 `json:"net_income"`
	Balance   float64 `json:"balance"`
}

// ForecastResult is the output of one simulation run.
type ForecastResult struct {
	ScenarioID          string          `json:"scenario_id"`
	Timestamp           time.Time       `json:"timestamp"`
	Input               ForecastInput   `json:"input"`
	MonthlyForecast     []ForecastEntry `json:"monthly_forecast"`
	TotalMonthsOfRunway int             `json:"total_months_of_runway"`
	FinalCashBalance    float64         `json:"final_cash_balance"`
}

// UsageStats counts forecast runs and API calls.
type UsageStats struct {
	TotalScenariosRun int64      `json:"total_scenarios_run"`
	APICalls          int64      `json:"api_calls"`
	LastScenarioTime  *time.Time `json:"last_scenario_time"`
}
