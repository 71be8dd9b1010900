package analysis

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/KaramelBytes/imgdiff/internal/ingest"
)

// ProfileOptions controls column profiling of a single table.
type ProfileOptions struct {
	// SampleRows determines how many example rows to include in the report.
	SampleRows int
	// Correlations computes Pearson correlations among numeric columns.
	Correlations bool
	// Outlier detection via robust Z-score (MAD). Counts |z|>OutlierThreshold.
	Outliers         bool
	OutlierThreshold float64
}

// DefaultProfileOptions returns reasonable defaults for inspecting an export.
func DefaultProfileOptions() ProfileOptions {
	return ProfileOptions{SampleRows: 5, Outliers: true, OutlierThreshold: 3.5}
}

// Profile describes every column of one table.
type Profile struct {
	Name     string          `json:"name"`
	Rows     int             `json:"rows"`
	Cols     []ColumnSummary `json:"columns"`
	Samples  [][]string      `json:"samples,omitempty"`
	Warnings []string        `json:"warnings,omitempty"`
	Corr     *CorrMatrix     `json:"correlations,omitempty"`
}

// ColumnSummary captures inferred type and statistics per column.
type ColumnSummary struct {
	Name    string `json:"name"`
	Kind    string `json:"kind"` // numeric|datetime|categorical|text|empty
	NonNull int    `json:"non_null"`
	Missing int    `json:"missing"`
	Unique  int    `json:"unique,omitempty"`
	// Numeric stats
	Min  float64 `json:"min,omitempty"`
	Max  float64 `json:"max,omitempty"`
	Mean float64 `json:"mean,omitempty"`
	Std  float64 `json:"std,omitempty"`
	// Outliers (robust Z via MAD)
	OutliersCount    int     `json:"outliers,omitempty"`
	OutliersMaxAbsZ  float64 `json:"outliers_max_abs_z,omitempty"`
	OutlierThreshold float64 `json:"outlier_threshold,omitempty"`
	// Categorical top values
	TopValues    []CategoryCount `json:"top_values,omitempty"`
	ExampleTexts []string        `json:"examples,omitempty"`
}

type CategoryCount struct {
	Value string `json:"value"`
	Count int    `json:"count"`
}

// CorrMatrix holds a symmetric Pearson correlation matrix across numeric columns.
type CorrMatrix struct {
	Columns []string    `json:"columns"`
	Values  [][]float64 `json:"values"` // row-major, Values[i][j]
}

// ProfileTable infers column kinds and statistics of t.
func ProfileTable(t *ingest.Table, opt ProfileOptions) *Profile {
	cols := t.Columns()
	p := &Profile{Name: t.Name, Rows: t.Len(), Warnings: append([]string(nil), t.Warnings...)}
	sampleRows := opt.SampleRows
	if sampleRows <= 0 {
		sampleRows = 5
	}
	for i := 0; i < len(t.Rows) && i < sampleRows; i++ {
		vals := t.Rows[i].Values()
		row := make([]string, len(vals))
		for j, v := range vals {
			row[j] = v.Text()
		}
		p.Samples = append(p.Samples, row)
	}

	numeric := map[string][]float64{}
	var numCols []string
	for _, name := range cols {
		s, nums := summarizeColumn(name, t.Column(name), opt)
		if s.Kind == "numeric" {
			numeric[name] = nums
			numCols = append(numCols, name)
		}
		p.Cols = append(p.Cols, s)
	}

	if opt.Correlations && len(numCols) >= 2 {
		mat := make([][]float64, len(numCols))
		for i := range mat {
			mat[i] = make([]float64, len(numCols))
			for j := range mat[i] {
				if i == j {
					mat[i][j] = 1
					continue
				}
				mat[i][j] = Correlation(numeric[numCols[i]], numeric[numCols[j]]).R
			}
		}
		p.Corr = &CorrMatrix{Columns: numCols, Values: mat}
	}
	return p
}

// summarizeColumn returns the summary and, for numeric columns, the per-row values
// with NaN marking non-numeric cells so rows stay aligned for correlations.
func summarizeColumn(name string, vals []ingest.Value, opt ProfileOptions) (ColumnSummary, []float64) {
	s := ColumnSummary{Name: name}
	var (
		n, numCnt, dtCnt, txtCnt int
		mean, m2                 float64
		minV, maxV               = math.Inf(1), math.Inf(-1)
		cats                     = map[string]int{}
		exText                   []string
		nums                     = make([]float64, len(vals))
		finite                   []float64
	)
	for i, v := range vals {
		nums[i] = math.NaN()
		if v.IsMissing() || strings.TrimSpace(v.Text()) == "" {
			s.Missing++
			continue
		}
		s.NonNull++
		if x, ok := v.Float(); ok {
			numCnt++
			// Welford update
			n++
			minV = math.Min(minV, x)
			maxV = math.Max(maxV, x)
			delta := x - mean
			mean += delta / float64(n)
			m2 += delta * (x - mean)
			nums[i] = x
			finite = append(finite, x)
			continue
		}
		text := v.Text()
		if _, ok := parseTimeMaybe(text); ok {
			dtCnt++
			continue
		}
		txtCnt++
		if len(cats) <= 10000 && len(text) <= 64 {
			cats[text]++
		}
		if len(exText) < 3 {
			exText = append(exText, text)
		}
	}

	switch {
	case numCnt > 0 && numCnt >= dtCnt && numCnt >= txtCnt:
		s.Kind = "numeric"
		s.Min, s.Max, s.Mean = minV, maxV, mean
		if n > 1 {
			s.Std = math.Sqrt(m2 / float64(n-1))
		}
		if opt.Outliers && len(finite) >= 8 {
			s.OutliersCount, s.OutliersMaxAbsZ, s.OutlierThreshold = robustOutliers(finite, opt.OutlierThreshold)
		}
		return s, nums
	case dtCnt > 0 && dtCnt >= txtCnt:
		s.Kind = "datetime"
	case len(cats) > 0:
		s.Kind = "categorical"
		tops := make([]CategoryCount, 0, len(cats))
		for k, v := range cats {
			tops = append(tops, CategoryCount{Value: k, Count: v})
		}
		sort.Slice(tops, func(i, j int) bool {
			if tops[i].Count == tops[j].Count {
				return tops[i].Value < tops[j].Value
			}
			return tops[i].Count > tops[j].Count
		})
		if len(tops) > 8 {
			tops = tops[:8]
		}
		s.TopValues = tops
		s.Unique = len(cats)
	case txtCnt > 0:
		s.Kind = "text"
		s.ExampleTexts = exText
	default:
		s.Kind = "empty"
	}
	return s, nil
}

func robustOutliers(vals []float64, thr float64) (count int, maxAbsZ, threshold float64) {
	if thr <= 0 {
		thr = 3.5
	}
	median, mad := medianMAD(vals)
	if mad == 0 {
		return 0, 0, thr
	}
	for _, v := range vals {
		az := math.Abs(0.6745 * (v - median) / mad)
		if az > thr {
			count++
		}
		maxAbsZ = math.Max(maxAbsZ, az)
	}
	return count, maxAbsZ, thr
}

func parseTimeMaybe(s string) (time.Time, bool) {
	layouts := []string{
		time.RFC3339, "2006-01-02", "2006/01/02", "02/01/2006", "01/02/2006",
		"2006-01-02 15:04", "2006-01-02 15:04:05", "2006:01:02 15:04:05", "20060102150405",
	}
	for _, l := range layouts {
		if t, err := time.Parse(l, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// Markdown renders the profile as plain text sections.
func (p *Profile) Markdown() string {
	var b strings.Builder
	b.WriteString("[DATASET SUMMARY]\n")
	if p.Name != "" {
		b.WriteString(fmt.Sprintf("File: %s\n", p.Name))
	}
	b.WriteString(fmt.Sprintf("Rows: %d\n", p.Rows))
	b.WriteString(fmt.Sprintf("Columns: %d\n\n", len(p.Cols)))

	b.WriteString("[SCHEMA]\n")
	for _, c := range p.Cols {
		total := c.NonNull + c.Missing
		missPct := 0.0
		if total > 0 {
			missPct = float64(c.Missing) * 100.0 / float64(total)
		}
		b.WriteString(fmt.Sprintf("- %s: %s (non-null %d, missing %.1f%%)", safeName(c.Name), c.Kind, c.NonNull, missPct))
		switch c.Kind {
		case "numeric":
			b.WriteString(fmt.Sprintf(": min %.4g, max %.4g, mean %.4g, std %.4g", c.Min, c.Max, c.Mean, c.Std))
			if c.OutlierThreshold > 0 {
				b.WriteString(fmt.Sprintf("; outliers: %d above |z|>%.1f", c.OutliersCount, c.OutlierThreshold))
			}
		case "categorical":
			b.WriteString(": top ")
			for i, kv := range c.TopValues {
				if i > 0 {
					b.WriteString(", ")
				}
				b.WriteString(fmt.Sprintf("%s(%d)", safeVal(kv.Value), kv.Count))
			}
			if c.Unique > len(c.TopValues) {
				b.WriteString(fmt.Sprintf("; unique=%d", c.Unique))
			}
		case "text":
			b.WriteString(": e.g. ")
			for i, ex := range c.ExampleTexts {
				if i > 0 {
					b.WriteString(" | ")
				}
				b.WriteString(safeVal(ex))
			}
		}
		b.WriteString("\n")
	}
	if p.Corr != nil && len(p.Corr.Columns) >= 2 {
		b.WriteString("\n[CORRELATIONS]\n")
		type pr struct {
			A, B string
			R    float64
		}
		var pairs []pr
		n := len(p.Corr.Columns)
		for i := 0; i < n; i++ {
			for j := i + 1; j < n; j++ {
				pairs = append(pairs, pr{A: p.Corr.Columns[i], B: p.Corr.Columns[j], R: p.Corr.Values[i][j]})
			}
		}
		sort.Slice(pairs, func(i, j int) bool {
			ai, aj := math.Abs(pairs[i].R), math.Abs(pairs[j].R)
			if ai == aj {
				return pairs[i].A+pairs[i].B < pairs[j].A+pairs[j].B
			}
			return ai > aj
		})
		for i := 0; i < len(pairs) && i < 10; i++ {
			b.WriteString(fmt.Sprintf("- %s ~ %s: r=%.3f\n", pairs[i].A, pairs[i].B, pairs[i].R))
		}
	}
	if len(p.Warnings) > 0 {
		b.WriteString("\n[NOTES]\n")
		for _, w := range p.Warnings {
			b.WriteString("- ")
			b.WriteString(w)
			b.WriteString("\n")
		}
	}
	return b.String()
}

func safeName(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return "(unnamed)"
	}
	return s
}

func safeVal(s string) string { return strings.ReplaceAll(strings.ReplaceAll(s, "\n", " "), "|", "/") }
