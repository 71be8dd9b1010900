package cmd

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/KaramelBytes/imgdiff/internal/analysis"
	"github.com/KaramelBytes/imgdiff/internal/classify"
	"github.com/KaramelBytes/imgdiff/internal/compare"
	"github.com/KaramelBytes/imgdiff/internal/history"
	"github.com/KaramelBytes/imgdiff/internal/ingest"
	"github.com/KaramelBytes/imgdiff/internal/matcher"
)

var (
	cmpFields       []string
	cmpMatchColumn  string
	cmpSimilarity   float64
	cmpConfidence   float64
	cmpEncoding     string
	cmpDelimiter    string
	cmpHeaderRow    int
	cmpCanonicalize bool
	cmpBaseFields   []string
	cmpExport       string
	cmpJSON         bool
	cmpNoHistory    bool
)

var compareCmd = &cobra.Command{
	Use:   "compare <a.csv> <b.csv>",
	Short: "Match two exports, analyze field changes and bucket every image",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		opt, err := compareOptions(cmd, args, false)
		if err != nil {
			return err
		}
		store, err := openThresholds()
		if err != nil {
			return err
		}
		var hist *history.Store
		if !cmpNoHistory {
			h, err := openHistory(cmd.Context())
			if err != nil {
				fmt.Fprintf(os.Stderr, "⚠ Warning: run history unavailable: %v\n", err)
			} else {
				hist = h
				defer hist.Close()
			}
		}

		eng := compare.NewEngine(store, hist, componentLogger("compare"))
		out, err := eng.Run(cmd.Context(), opt)
		if err != nil {
			if (errors.Is(err, compare.ErrNoFields) || errors.Is(err, compare.ErrPrimaryField)) && out != nil {
				printFieldIssues(cmd.ErrOrStderr(), out.Fields)
			}
			return err
		}
		if cmpExport != "" {
			if err := exportCSV(out, cmpExport); err != nil {
				return err
			}
		}
		w := cmd.OutOrStdout()
		if cmpJSON {
			return printJSON(w, out)
		}
		printOutcome(w, out)
		if cmpExport != "" {
			fmt.Fprintf(w, "✓ Wrote merged pairs to %s\n", cmpExport)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(compareCmd)
	f := compareCmd.Flags()
	f.StringSliceVar(&cmpFields, "fields", nil, "fields to analyze; the first drives classification (default: config default_fields, else every shared numeric column)")
	f.BoolVar(&cmpJSON, "json", false, "print the full outcome as JSON")
	f.StringVar(&cmpExport, "export", "", "write the merged pair table to this CSV file")
	f.BoolVar(&cmpNoHistory, "no-history", false, "do not record the run in the history database")
	addIngestFlags(compareCmd)
}

// addIngestFlags registers the reading and matching flags shared by compare and match.
func addIngestFlags(c *cobra.Command) {
	f := c.Flags()
	f.StringVar(&cmpMatchColumn, "match-column", "", "join column (default from config, Image_name)")
	f.Float64Var(&cmpSimilarity, "similarity", 0, "minimum filename similarity in (0,1] (default from config)")
	f.Float64Var(&cmpConfidence, "confidence", 0, "confidence level for mean intervals (default from config)")
	f.StringVar(&cmpEncoding, "encoding", "", "input encoding (default: detect)")
	f.StringVar(&cmpDelimiter, "delimiter", "", "field delimiter: ','|';'|'tab'|'|' (default: detect)")
	f.IntVar(&cmpHeaderRow, "header-row", -1, "0-based header line (default: detect)")
	f.BoolVar(&cmpCanonicalize, "canonicalize", false, "rename paired measurement columns to <base>_R/<base>_B")
	f.StringSliceVar(&cmpBaseFields, "base-fields", nil, "base fields for --canonicalize (default from config)")
}

func compareOptions(cmd *cobra.Command, args []string, matchOnly bool) (compare.Options, error) {
	c, err := currentConfig()
	if err != nil {
		return compare.Options{}, err
	}
	sep, err := parseDelimiter(cmpDelimiter)
	if err != nil {
		return compare.Options{}, err
	}
	opt := compare.Options{
		FileA:           args[0],
		FileB:           args[1],
		Fields:          c.DefaultFields,
		MatchColumn:     c.MatchColumn,
		Similarity:      c.SimilarityThreshold,
		ConfidenceLevel: c.ConfidenceLevel,
		Canonicalize:    cmpCanonicalize,
		BaseFields:      c.BaseFields,
		MatchOnly:       matchOnly,
		Ingest:          ingest.DefaultOptions(),
	}
	opt.Ingest.Encoding = cmpEncoding
	opt.Ingest.Separator = sep
	opt.Ingest.HeaderRow = cmpHeaderRow

	f := cmd.Flags()
	if f.Changed("fields") {
		opt.Fields = cmpFields
	}
	if f.Changed("match-column") {
		opt.MatchColumn = cmpMatchColumn
	}
	if f.Changed("similarity") {
		if cmpSimilarity <= 0 || cmpSimilarity > 1 {
			return opt, fmt.Errorf("--similarity must be in (0,1], got %v", cmpSimilarity)
		}
		opt.Similarity = cmpSimilarity
	}
	if f.Changed("confidence") {
		if cmpConfidence <= 0 || cmpConfidence >= 1 {
			return opt, fmt.Errorf("--confidence must be in (0,1), got %v", cmpConfidence)
		}
		opt.ConfidenceLevel = cmpConfidence
	}
	if f.Changed("base-fields") {
		opt.BaseFields = cmpBaseFields
	}
	return opt, nil
}

func exportCSV(out *compare.Outcome, path string) error {
	fh, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create export: %w", err)
	}
	if err := out.WriteCSV(fh); err != nil {
		_ = fh.Close()
		return err
	}
	return fh.Close()
}

func printOutcome(w io.Writer, out *compare.Outcome) {
	fmt.Fprintf(w, "Run %s\n", out.RunID)
	printMatch(w, out.Match)
	printFieldIssues(w, out.Fields)
	if out.Analysis != nil {
		printAnalysis(w, out.Analysis)
	}
	if out.Summary != nil {
		printSummary(w, out.Classification, *out.Summary)
	}
	if out.HistoryErr != "" {
		fmt.Fprintf(w, "⚠ Warning: run not recorded: %s\n", out.HistoryErr)
	}
}

func printMatch(w io.Writer, res *matcher.Result) {
	rows := [][]string{
		{"match column", res.Column},
		{"similarity threshold", num(res.Threshold)},
		{"rows in A", strconv.Itoa(res.TotalA)},
		{"rows in B", strconv.Itoa(res.TotalB)},
		{"matched pairs", strconv.Itoa(len(res.Pairs))},
		{"unmatched in A", strconv.Itoa(len(res.UnmatchedA))},
		{"unmatched in B", strconv.Itoa(len(res.UnmatchedB))},
		{"match rate", pct(res.MatchRate)},
	}
	printTable(w, "Matching", []string{"Metric", "Value"}, rows, alignLeft, alignRight)
}

func printFieldIssues(w io.Writer, f compare.FieldIssues) {
	if len(f.MissingInA) > 0 {
		fmt.Fprintf(w, "⚠ Warning: fields missing in A: %s\n", strings.Join(f.MissingInA, ", "))
	}
	if len(f.MissingInB) > 0 {
		fmt.Fprintf(w, "⚠ Warning: fields missing in B: %s\n", strings.Join(f.MissingInB, ", "))
	}
	if len(f.NonNumeric) > 0 {
		fmt.Fprintf(w, "⚠ Warning: fields without numeric values: %s\n", strings.Join(f.NonNumeric, ", "))
	}
}

func printAnalysis(w io.Writer, rep *analysis.Report) {
	headers := []string{"Field", "Pairs", "Mean A", "Mean B", "Mean Δ", "Trend", "Conf", "Outliers", "r", "Effect"}
	var rows [][]string
	for _, fa := range rep.Fields {
		if fa.Err != "" {
			rows = append(rows, []string{fa.Field, strconv.Itoa(fa.ValidPairs), "", "", "", fa.Err})
			continue
		}
		rows = append(rows, []string{
			fa.Field,
			strconv.Itoa(fa.ValidPairs),
			num(fa.Before.Mean),
			num(fa.After.Mean),
			num(fa.Change.Absolute.Mean),
			string(fa.Trend.Trend),
			num(fa.Trend.Confidence),
			strconv.Itoa(fa.Outliers.Count),
			num(fa.Correlation.R),
			fa.Inference.Effect.Interpretation,
		})
	}
	aligns := []columnAlignment{alignLeft, alignRight, alignRight, alignRight, alignRight, alignLeft, alignRight, alignRight, alignRight, alignLeft}
	printTable(w, "Field analysis", headers, rows, aligns...)
	o := rep.Overall
	fmt.Fprintf(w, "Fields: %d analyzed, %d failed; avg positive %s, negative %s, unchanged %s\n",
		o.Successful, o.Failed, pct(o.AvgPositiveRatio*100), pct(o.AvgNegativeRatio*100), pct(o.AvgNoChangeRatio*100))
}

func printSummary(w io.Writer, res *classify.Result, s classify.Summary) {
	family := "percentage"
	unit := "%"
	if s.CCT {
		family = "cct"
		unit = "K"
	}
	var rows [][]string
	for _, bc := range s.Buckets {
		rows = append(rows, []string{string(bc.Bucket), strconv.Itoa(bc.Count), pct(bc.Percent)})
	}
	title := fmt.Sprintf("Classification by %s (%s thresholds: medium ≥ %s%s, large > %s%s)",
		s.PrimaryField, family, num(res.Thresholds.MediumMin), unit, num(res.Thresholds.LargeMin), unit)
	printTable(w, title, []string{"Bucket", "Images", "Share"}, rows, alignLeft, alignRight, alignRight)
	if s.Skipped > 0 {
		fmt.Fprintf(w, "⚠ Warning: %d pairs counted as no_change (no numeric %s on both sides)\n", s.Skipped, s.PrimaryField)
	}
}
