package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var searchK int

var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Search the built-in financial knowledge base",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		index, err := buildIndex(ctx, cfg, logger)
		if err != nil {
			return err
		}
		results, err := index.Search(ctx, strings.Join(args, " "), searchK)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		if len(results) == 0 {
			fmt.Fprintln(out, "No results.")
			return nil
		}
		for _, r := range results {
			fmt.Fprintf(out, "%d. [%.3f] %s\n", r.Rank, r.Distance, r.Document.Text)
		}
		return nil
	},
}

func init() {
	searchCmd.Flags().IntVarP(&searchK, "k", "k", 3, "number of results")
}
