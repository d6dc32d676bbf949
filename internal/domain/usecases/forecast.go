package usecases

import (
	"fmt"
	"math"

	"github.com/0xcro3dile/cfohelper-go/internal/domain/entities"
)

// MaxForecastMonths caps the simulation horizon (50 years).
const MaxForecastMonths = 600

// ForecastSimulator runs the month-by-month cash-flow projection.
// Each call recomputes from scratch.
type ForecastSimulator struct{}

// Simulate projects the balance for up to MonthsToForecast months and stops
// at the first month the balance is no longer positive.
func (ForecastSimulator) Simulate(in entities.ForecastInput) (entities.ForecastResult, error) {
	if err := validateForecastInput(in); err != nil {
		return entities.ForecastResult{}, err
	}

	// Price increase applies once, not compounded month over month.
	revenue := in.MonthlyRevenue * (1 + in.PriceIncreasePercent/100)
	hiringCost := float64(in.NewHires) * in.SalaryPerHire
	expenses := in.MonthlyExpenses + hiringCost + in.MarketingSpend
	net := revenue - expenses
	for _, v := range []struct {
		name string
		v    float64
	}{{"monthly_revenue", revenue}, {"monthly_expenses", expenses}, {"net_income", net}} {
		if !finite(v.v) {
			return entities.ForecastResult{}, entities.Invalid(v.name, "overflows")
		}
	}

	balance := in.CurrentCash
	runway := 0
	entries := make([]entities.ForecastEntry, 0, in.MonthsToForecast)

	for month := 1; month <= in.MonthsToForecast; month++ {
		balance += net
		if !finite(balance) {
			return entities.ForecastResult{}, entities.Invalid("current_cash", fmt.Sprintf("balance overflows in month %d", month))
		}
		entries = append(entries, entities.ForecastEntry{
			Month:     month,
			Revenue:   revenue,
			Expenses:  expenses,
			NetIncome: net,
			Balance:   balance,
		})
		if balance > 0 {
			runway = month
		}
		if balance <= 0 {
			break
		}
	}

	return entities.ForecastResult{
		Input:               in,
		MonthlyForecast:     entries,
		TotalMonthsOfRunway: runway,
		FinalCashBalance:    balance,
	}, nil
}

func validateForecastInput(in entities.ForecastInput) error {
	floats := []struct {
		name string
		v    float64
	}{
		{"current_cash", in.CurrentCash},
		{"monthly_revenue", in.MonthlyRevenue},
		{"monthly_expenses", in.MonthlyExpenses},
		{"salary_per_hire", in.SalaryPerHire},
		{"marketing_spend", in.MarketingSpend},
		{"price_increase_percent", in.PriceIncreasePercent},
	}
	for _, f := range floats {
		if !finite(f.v) {
			return entities.Invalid(f.name, "must be a finite number")
		}
	}
	if in.NewHires < 0 {
		return entities.Invalid("new_hires", "must not be negative")
	}
	if in.MonthsToForecast < 0 || in.MonthsToForecast > MaxForecastMonths {
		return entities.Invalid("months_to_forecast", "must be between 0 and 600")
	}
	return nil
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
