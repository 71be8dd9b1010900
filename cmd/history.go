package cmd

import (
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/KaramelBytes/imgdiff/internal/classify"
)

var (
	histLimit     int
	histJSON      bool
	histPruneDays int
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List recent comparison runs",
	RunE: func(cmd *cobra.Command, args []string) error {
		hist, err := openHistory(cmd.Context())
		if err != nil {
			return err
		}
		defer hist.Close()
		w := cmd.OutOrStdout()

		if histPruneDays > 0 {
			cutoff := time.Now().AddDate(0, 0, -histPruneDays)
			n, err := hist.Prune(cmd.Context(), cutoff)
			if err != nil {
				return err
			}
			fmt.Fprintf(w, "✓ Pruned %d runs older than %d days\n", n, histPruneDays)
		}

		runs, err := hist.Recent(cmd.Context(), histLimit)
		if err != nil {
			return err
		}
		if histJSON {
			return printJSON(w, runs)
		}
		if len(runs) == 0 {
			fmt.Fprintln(w, "No runs recorded")
			return nil
		}
		headers := []string{"When", "Run", "A", "B", "Pairs", "Rate", "Primary"}
		for _, b := range classify.Buckets {
			headers = append(headers, string(b))
		}
		var rows [][]string
		for _, r := range runs {
			row := []string{
				r.CreatedAt.Local().Format("2006-01-02 15:04"),
				shortID(r.ID),
				r.FileA,
				r.FileB,
				strconv.Itoa(r.Matched),
				pct(r.MatchRate),
				r.Primary,
			}
			for _, b := range classify.Buckets {
				row = append(row, strconv.Itoa(r.Buckets[string(b)]))
			}
			rows = append(rows, row)
		}
		aligns := []columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft, alignRight, alignRight, alignLeft,
			alignRight, alignRight, alignRight, alignRight}
		printTable(w, "Recent runs", headers, rows, aligns...)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(historyCmd)
	historyCmd.Flags().IntVar(&histLimit, "limit", 20, "number of runs to show (0 for all)")
	historyCmd.Flags().BoolVar(&histJSON, "json", false, "print as JSON")
	historyCmd.Flags().IntVar(&histPruneDays, "prune-days", 0, "delete runs older than this many days first")
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
