package analysis

import (
	"testing"

	"github.com/rs/zerolog"

	"github.com/KaramelBytes/imgdiff/internal/ingest"
	"github.com/KaramelBytes/imgdiff/internal/matcher"
	"github.com/KaramelBytes/imgdiff/internal/thresholds"
)

func pairsFor(t *testing.T, before, after []ingest.Value) []matcher.Pair {
	t.Helper()
	cols := []string{"Image_name", "Lux"}
	mk := func(vals []ingest.Value) *ingest.Table {
		rows := make([][]ingest.Value, len(vals))
		for i, v := range vals {
			rows[i] = []ingest.Value{ingest.TextValue("x.jpg"), v}
		}
		tbl, err := ingest.NewTable("t", cols, rows)
		if err != nil {
			t.Fatalf("NewTable: %v", err)
		}
		return tbl
	}
	a, b := mk(before), mk(after)
	pairs := make([]matcher.Pair, len(before))
	for i := range pairs {
		pairs[i] = matcher.Pair{IndexA: i, IndexB: i, RowA: a.Rows[i], RowB: b.Rows[i], Similarity: 1}
	}
	return pairs
}

func nums(vs ...float64) []ingest.Value {
	out := make([]ingest.Value, len(vs))
	for i, v := range vs {
		out[i] = ingest.NumberValue(v)
	}
	return out
}

func newAnalyzer(t *testing.T) (*Analyzer, *thresholds.Store) {
	t.Helper()
	store, err := thresholds.NewStore(thresholds.Default(), zerolog.Nop())
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	return NewAnalyzer(store, zerolog.Nop()), store
}

func TestAnalyzeField(t *testing.T) {
	a, _ := newAnalyzer(t)
	before := append(nums(10, 20, 0, 5), ingest.TextValue("n/a"))
	after := nums(11, 22, 3, 5, 7)
	fa := a.AnalyzeField(pairsFor(t, before, after), "Lux")

	if fa.Err != "" || fa.ValidPairs != 4 || fa.Skipped != 1 {
		t.Fatalf("counts: %+v", fa)
	}
	if fa.Change.Positive != 3 || fa.Change.NoChange != 1 || fa.Change.UndefinedPercent != 1 {
		t.Fatalf("change counts: %+v", fa.Change)
	}
	if fa.Change.Percentage.Count != 3 || fa.Change.Absolute.Count != 4 {
		t.Fatalf("undefined percent must be excluded from aggregates: %+v", fa.Change)
	}
	if fa.Change.Categories.MediumIncrease != 2 || fa.Change.Categories.NoChange != 1 {
		t.Fatalf("categories: %+v", fa.Change.Categories)
	}
	if fa.Trend.Trend != TrendIncreasing {
		t.Fatalf("trend: %+v", fa.Trend)
	}
	if fa.Correlation.SampleSize != 4 || fa.Before.Count != 4 || fa.After.Count != 4 {
		t.Fatalf("paired stats: %+v", fa)
	}
}

func TestAnalyzeFieldWithoutData(t *testing.T) {
	a, _ := newAnalyzer(t)
	fa := a.AnalyzeField(pairsFor(t, nums(1, 2), nums(3, 4)), "Missing")
	if fa.Err != ErrNoValidData || fa.Skipped != 2 || fa.Trend.Trend != TrendUnknown {
		t.Fatalf("missing field: %+v", fa)
	}
}

func TestAnalyzeOverall(t *testing.T) {
	a, _ := newAnalyzer(t)
	rep := a.Analyze(pairsFor(t, nums(1, 2, 3), nums(2, 3, 4)), []string{"Lux", "Missing"})
	if rep.Pairs != 3 || len(rep.Fields) != 2 || rep.Fields[0].Field != "Lux" {
		t.Fatalf("report: %+v", rep)
	}
	o := rep.Overall
	if o.TotalFields != 2 || o.Successful != 1 || o.Failed != 1 || o.TrendSummary[TrendIncreasing] != 1 {
		t.Fatalf("overall: %+v", o)
	}
	if o.AvgPositiveRatio != 1 || o.AvgNegativeRatio != 0 {
		t.Fatalf("ratios: %+v", o)
	}
}

func TestAnalyzerFollowsThresholdUpdates(t *testing.T) {
	a, store := newAnalyzer(t)
	if store.Observers() != 1 {
		t.Fatalf("analyzer not registered")
	}
	pairs := pairsFor(t, nums(100, 100), nums(108, 92))

	fa := a.AnalyzeField(pairs, "Lux")
	if fa.Change.Categories.MediumIncrease != 1 || fa.Change.Categories.MediumDecrease != 1 {
		t.Fatalf("default thresholds: %+v", fa.Change.Categories)
	}

	cfg := store.Current()
	cfg.Percentage = thresholds.Family{SmallMax: 1, MediumMin: 1, MediumMax: 5, LargeMin: 5}
	if err := store.Update(cfg); err != nil {
		t.Fatalf("Update: %v", err)
	}
	fa = a.AnalyzeField(pairs, "Lux")
	if fa.Change.Categories.LargeIncrease != 1 || fa.Change.Categories.LargeDecrease != 1 {
		t.Fatalf("updated thresholds not applied: %+v", fa.Change.Categories)
	}

	a.Close()
	if store.Observers() != 0 {
		t.Fatalf("analyzer still registered after Close")
	}
}
