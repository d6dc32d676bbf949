package usecases

import (
	"fmt"
	"math"
	"strings"

	"github.com/dustin/go-humanize"

	"github.com/0xcro3dile/cfohelper-go/internal/domain/entities"
)

// SystemPrompt frames every generation request.
const SystemPrompt = `You are an expert financial analyst with deep knowledge of business finance,
accounting principles and strategic planning. Provide data-driven insights,
actionable recommendations and a clear risk assessment.
Format your response in markdown with section headers and bullet points.`

const currency = "₹"

// summaryTitle heads both generated and fallback summaries.
const summaryTitle = "# Financial Impact Analysis"

// buildRetrievalQuery turns scenario changes into a search query,
// e.g. "Increase monthly revenue by 100,000; Decrease team size by 2".
func buildRetrievalQuery(changes map[string]any) string {
	var parts []string
	for _, f := range entities.ContextFields {
		if !f.Kind.Numeric() {
			continue
		}
		raw, ok := changes[f.Name]
		if !ok {
			continue
		}
		delta, ok := entities.NumericValue(raw)
		if !ok || delta == 0 {
			continue
		}
		verb := "Increase"
		if delta < 0 {
			verb = "Decrease"
		}
		parts = append(parts, fmt.Sprintf("%s %s by %s", verb, fieldLabel(f.Name), humanize.Commaf(math.Abs(delta))))
	}
	if len(parts) == 0 {
		return "financial scenario impact on runway and profitability"
	}
	return strings.Join(parts, "; ")
}

// buildPrompt renders the grounded analysis request.
func buildPrompt(p Projection, grounding []string) string {
	o, u, d := p.Original, p.Updated, p.Impact

	var sb strings.Builder
	sb.WriteString("Analyze this financial scenario and provide a detailed summary.\n\n")

	if len(grounding) > 0 {
		sb.WriteString("Relevant financial knowledge:\n")
		for _, g := range grounding {
			sb.WriteString("- ")
			sb.WriteString(g)
			sb.WriteString("\n")
		}
		sb.WriteString("\n")
	}

	sb.WriteString("Current Financial Status:\n")
	fmt.Fprintf(&sb, "- Monthly Revenue: %s\n", money(o.MonthlyRevenue))
	fmt.Fprintf(&sb, "- Monthly Expenses: %s\n", money(o.MonthlyExpenses))
	fmt.Fprintf(&sb, "- Current Runway: %.1f months\n", o.RunwayMonths)
	fmt.Fprintf(&sb, "- Marketing Spend: %s\n", money(o.MarketingSpend))
	fmt.Fprintf(&sb, "- Team Size: %d employees\n\n", o.TeamSize)

	sb.WriteString("Proposed Changes:\n")
	sb.WriteString(changeLines(o, u, d))
	sb.WriteString("\n\nImpact Analysis:\n")
	sb.WriteString(impactLines(u, d))

	sb.WriteString("\nPlease provide a detailed financial analysis including:\n")
	sb.WriteString("1. Key observations about the proposed changes\n")
	sb.WriteString("2. Impact on financial health\n")
	sb.WriteString("3. Potential risks and opportunities\n")
	sb.WriteString("4. Data-driven recommendations\n")
	return sb.String()
}

// fallbackSummary is the deterministic narrative used when generation fails.
func fallbackSummary(p Projection, grounding []string) string {
	o, u, d := p.Original, p.Updated, p.Impact

	var sb strings.Builder
	sb.WriteString(summaryTitle)
	sb.WriteString("\n\n## Proposed Changes\n")
	sb.WriteString(changeLines(o, u, d))
	sb.WriteString("\n\n## Impact\n")
	sb.WriteString(impactLines(u, d))

	sb.WriteString("\n## Outlook\n")
	switch {
	case d.ProfitChange > 0:
		fmt.Fprintf(&sb, "Monthly profit improves by %s.", money(d.ProfitChange))
	case d.ProfitChange < 0:
		fmt.Fprintf(&sb, "Monthly profit declines by %s.", money(-d.ProfitChange))
	default:
		sb.WriteString("Monthly profit is unchanged.")
	}
	if u.MonthlyProfit() < 0 {
		sb.WriteString(" The company would be burning cash each month; review runway before committing.")
	}
	sb.WriteString("\n")

	if len(grounding) > 0 {
		sb.WriteString("\n## Relevant Knowledge\n")
		for _, g := range grounding {
			sb.WriteString("- ")
			sb.WriteString(g)
			sb.WriteString("\n")
		}
	}
	return sb.String()
}

func changeLines(o, u entities.FinancialContext, d entities.ImpactDelta) string {
	var lines []string
	if u.MonthlyRevenue != o.MonthlyRevenue {
		lines = append(lines, fmt.Sprintf("- Revenue: %s (%+.1f%%)", signedMoney(d.RevenueChange), d.RevenueChangePct))
	}
	if u.MonthlyExpenses != o.MonthlyExpenses {
		lines = append(lines, fmt.Sprintf("- Expenses: %s (%+.1f%%)", signedMoney(d.ExpenseChange), d.ExpenseChangePct))
	}
	if u.MarketingSpend != o.MarketingSpend {
		lines = append(lines, fmt.Sprintf("- Marketing Spend: %s (%+.1f%%)", signedMoney(d.MarketingChange), d.MarketingChangePct))
	}
	if u.TeamSize != o.TeamSize {
		lines = append(lines, fmt.Sprintf("- Team Size: %+d employees (%+.1f%%)", d.TeamSizeChange, d.TeamSizeChangePct))
	}
	if len(lines) == 0 {
		return "No significant changes"
	}
	return strings.Join(lines, "\n")
}

func impactLines(u entities.FinancialContext, d entities.ImpactDelta) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "- Revenue Change: %s (%+.1f%%)\n", signedMoney(d.RevenueChange), d.RevenueChangePct)
	fmt.Fprintf(&sb, "- Expense Change: %s (%+.1f%%)\n", signedMoney(d.ExpenseChange), d.ExpenseChangePct)
	fmt.Fprintf(&sb, "- New Runway: %.1f months (%+.1f months)\n", u.RunwayMonths, d.RunwayChange)
	fmt.Fprintf(&sb, "- Monthly Profit Impact: %s\n", signedMoney(d.ProfitChange))
	return sb.String()
}

func money(v float64) string {
	if v < 0 {
		return "-" + currency + humanize.FormatFloat("#,###.##", -v)
	}
	return currency + humanize.FormatFloat("#,###.##", v)
}

func signedMoney(v float64) string {
	if v < 0 {
		return money(v)
	}
	return "+" + money(v)
}

func fieldLabel(name string) string {
	return strings.ReplaceAll(name, "_", " ")
}
