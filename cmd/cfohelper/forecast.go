package main

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/0xcro3dile/cfohelper-go/internal/domain/entities"
	"github.com/0xcro3dile/cfohelper-go/internal/domain/usecases"
)

var forecastInput entities.ForecastInput

var forecastCmd = &cobra.Command{
	Use:   "forecast",
	Short: "Simulate monthly cash flow and print the runway",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		result, err := usecases.NewEngine(logger).Forecast(forecastInput)
		if err != nil {
			return err
		}
		printForecast(cmd.OutOrStdout(), result)
		return nil
	},
}

func init() {
	f := forecastCmd.Flags()
	f.Float64Var(&forecastInput.CurrentCash, "cash", 0, "current cash balance")
	f.Float64Var(&forecastInput.MonthlyRevenue, "revenue", 0, "monthly revenue")
	f.Float64Var(&forecastInput.MonthlyExpenses, "expenses", 0, "monthly expenses")
	f.IntVar(&forecastInput.NewHires, "hires", 0, "new hires")
	f.Float64Var(&forecastInput.SalaryPerHire, "salary", 0, "monthly salary per new hire")
	f.Float64Var(&forecastInput.MarketingSpend, "marketing", 0, "extra monthly marketing spend")
	f.Float64Var(&forecastInput.PriceIncreasePercent, "price-increase", 0, "price increase in percent")
	f.IntVar(&forecastInput.MonthsToForecast, "months", entities.DefaultForecastMonths, "months to simulate")
}

func printForecast(w io.Writer, result entities.ForecastResult) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintln(tw, "Month\tRevenue\tExpenses\tNet\tBalance\t")
	for _, e := range result.MonthlyForecast {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t\n",
			e.Month, amount(e.Revenue), amount(e.Expenses), amount(e.NetIncome), amount(e.Balance))
	}
	_ = tw.Flush()

	fmt.Fprintf(w, "\nRunway: %d months\n", result.TotalMonthsOfRunway)
	fmt.Fprintf(w, "Final balance: %s\n", amount(result.FinalCashBalance))
}

func amount(v float64) string {
	return humanize.FormatFloat("#,###.##", v)
}
