package cmd

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/KaramelBytes/imgdiff/internal/analysis"
	"github.com/KaramelBytes/imgdiff/internal/compare"
)

var (
	inspSampleRows int
	inspCorr       bool
	inspJSON       bool
)

var inspectCmd = &cobra.Command{
	Use:   "inspect <file.csv>",
	Short: "Show how a file is read: encoding, delimiter, header, columns and a profile",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		opt, err := compareOptions(cmd, []string{args[0], ""}, true)
		if err != nil {
			return err
		}
		eng, err := loaderEngine()
		if err != nil {
			return err
		}
		t, info, err := eng.Load(args[0], opt)
		if err != nil {
			return err
		}
		popt := analysis.DefaultProfileOptions()
		if inspSampleRows > 0 {
			popt.SampleRows = inspSampleRows
		}
		popt.Correlations = inspCorr
		prof := analysis.ProfileTable(t, popt)

		w := cmd.OutOrStdout()
		if inspJSON {
			return printJSON(w, struct {
				File    compare.TableInfo `json:"file"`
				Columns []string          `json:"columns"`
				Profile *analysis.Profile `json:"profile"`
			}{info, t.Columns(), prof})
		}
		sep := strconv.QuoteRune([]rune(info.Separator)[0])
		rows := [][]string{
			{"file", info.Name},
			{"encoding", info.Encoding},
			{"delimiter", sep},
			{"header row", strconv.Itoa(info.HeaderRow)},
			{"rows", strconv.Itoa(info.Rows)},
			{"columns", strconv.Itoa(info.Columns)},
			{"key column", info.Key.Column},
			{"key values", fmt.Sprintf("%d unique, %d missing, %d duplicate", info.Key.Unique, info.Key.Missing, info.Key.Duplicates)},
		}
		printTable(w, "Detection", []string{"Property", "Value"}, rows)
		for _, warn := range append(info.Warnings, info.Key.Warnings...) {
			fmt.Fprintf(w, "⚠ Warning: %s\n", warn)
		}
		if m := info.Mapping; m != nil {
			var mrows [][]string
			for _, orig := range m.Order {
				if disp := m.OriginalToDisplay[orig]; disp != orig {
					mrows = append(mrows, []string{orig, disp})
				}
			}
			title := fmt.Sprintf("Canonical columns (%d of %d renamed)", m.Mapped, m.Total)
			printTable(w, title, []string{"Original", "Display"}, mrows)
		}
		fmt.Fprint(w, prof.Markdown())
		return nil
	},
}

func init() {
	rootCmd.AddCommand(inspectCmd)
	f := inspectCmd.Flags()
	f.IntVar(&inspSampleRows, "sample-rows", 0, "sample rows in the profile (default 5)")
	f.BoolVar(&inspCorr, "correlations", false, "include correlations between numeric columns")
	f.BoolVar(&inspJSON, "json", false, "print detection results and the profile as JSON")
	f.StringVar(&cmpMatchColumn, "match-column", "", "join column to validate (default from config)")
	f.StringVar(&cmpEncoding, "encoding", "", "input encoding (default: detect)")
	f.StringVar(&cmpDelimiter, "delimiter", "", "field delimiter: ','|';'|'tab'|'|' (default: detect)")
	f.IntVar(&cmpHeaderRow, "header-row", -1, "0-based header line (default: detect)")
	f.BoolVar(&cmpCanonicalize, "canonicalize", false, "rename paired measurement columns to <base>_R/<base>_B")
	f.StringSliceVar(&cmpBaseFields, "base-fields", nil, "base fields for --canonicalize (default from config)")
}
