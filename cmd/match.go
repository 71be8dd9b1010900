package cmd

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/KaramelBytes/imgdiff/internal/compare"
)

var matchJSON bool
var matchShowPairs bool

var matchCmd = &cobra.Command{
	Use:   "match <a.csv> <b.csv>",
	Short: "Show how the rows of two exports pair up",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		opt, err := compareOptions(cmd, args, true)
		if err != nil {
			return err
		}
		eng, err := loaderEngine()
		if err != nil {
			return err
		}
		out, err := eng.Run(cmd.Context(), opt)
		if err != nil {
			return err
		}
		w := cmd.OutOrStdout()
		if matchJSON {
			return printJSON(w, out.Match)
		}
		for _, info := range []compare.TableInfo{out.A, out.B} {
			for _, warn := range info.Key.Warnings {
				fmt.Fprintf(w, "⚠ Warning: %s: %s\n", info.Name, warn)
			}
		}
		printMatch(w, out.Match)
		if matchShowPairs {
			var rows [][]string
			for _, p := range out.Match.Pairs {
				rows = append(rows, []string{p.FilenameA, p.FilenameB, num(p.Similarity)})
			}
			printTable(w, "Pairs", []string{"A", "B", "Similarity"}, rows, alignLeft, alignLeft, alignRight)
		}
		var rows [][]string
		for _, u := range out.Match.UnmatchedA {
			rows = append(rows, []string{"A", strconv.Itoa(u.Index), u.Filename})
		}
		for _, u := range out.Match.UnmatchedB {
			rows = append(rows, []string{"B", strconv.Itoa(u.Index), u.Filename})
		}
		if len(rows) > 0 {
			printTable(w, "Unmatched", []string{"Side", "Row", "Filename"}, rows, alignLeft, alignRight, alignLeft)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(matchCmd)
	matchCmd.Flags().BoolVar(&matchJSON, "json", false, "print the match result as JSON")
	matchCmd.Flags().BoolVar(&matchShowPairs, "pairs", false, "list every matched pair")
	addIngestFlags(matchCmd)
}
