package analysis

import (
	"testing"

	"github.com/KaramelBytes/imgdiff/internal/thresholds"
)

func TestPercentChange(t *testing.T) {
	cases := []struct {
		before, after float64
		want          Percent
	}{
		{100, 110, Percent{Value: 10, Defined: true}},
		{-50, -25, Percent{Value: -50, Defined: true}},
		{0, 0, Percent{Value: 0, Defined: true}},
		{0, 3, Percent{}},
	}
	for _, c := range cases {
		if got := PercentChange(c.before, c.after); got != c.want {
			t.Fatalf("PercentChange(%v,%v) = %+v, want %+v", c.before, c.after, got, c.want)
		}
	}
}

func TestClassifyTrend(t *testing.T) {
	cases := []struct {
		name       string
		changes    []float64
		trend      Trend
		confidence float64
	}{
		{"increasing", []float64{1, 2, 3, -1}, TrendIncreasing, 0.75},
		{"decreasing", []float64{-1, -2, -3, -4, 1}, TrendDecreasing, 0.8},
		{"stable", []float64{1, -1, 0, 0}, TrendStable, 1},
		{"mixed", []float64{1, 1, 1, -1, -1}, TrendMixed, 0.6},
		{"empty", nil, TrendUnknown, 0},
	}
	for _, c := range cases {
		got := ClassifyTrend(c.changes)
		if got.Trend != c.trend || !approx(got.Confidence, c.confidence, 1e-9) {
			t.Fatalf("%s: got %+v", c.name, got)
		}
	}
	r := ClassifyTrend([]float64{1, -1, 0, 0})
	if r.ZeroRatio != 0.5 || r.PositiveRatio != 0.25 {
		t.Fatalf("ratios: %+v", r)
	}
}

func TestDetectOutliers(t *testing.T) {
	rep := DetectOutliers([]float64{1, 2, 3, 4, 100})
	if rep.Count != 1 || rep.Outliers[0].Value != 100 || rep.Outliers[0].Type != "high" || rep.Outliers[0].Index != 4 {
		t.Fatalf("outliers: %+v", rep)
	}
	if rep.Q1 != 2 || rep.Q3 != 4 || rep.UpperBound != 7 || rep.LowerBound != -1 {
		t.Fatalf("fences: %+v", rep)
	}
	if rep := DetectOutliers([]float64{-100, 1, 2, 3, 4}); rep.Count != 1 || rep.Outliers[0].Type != "low" {
		t.Fatalf("low outlier: %+v", rep)
	}
	if rep := DetectOutliers([]float64{1, 2, 1000}); rep.Count != 0 {
		t.Fatalf("fewer than four values should report none: %+v", rep)
	}
}

func TestCategorizeChangesSevenBins(t *testing.T) {
	got := CategorizeChanges([]float64{15, 5, 0.5, 0, -0.5, -5, -15}, thresholds.Default().Percentage)
	want := Categories{1, 1, 1, 1, 1, 1, 1}
	if got != want {
		t.Fatalf("categories: %+v", got)
	}
}

func TestCategorizeChangesFollowsFamily(t *testing.T) {
	f := thresholds.Family{SmallMax: 2, MediumMin: 3, MediumMax: 20, LargeMin: 20}
	got := CategorizeChanges([]float64{15, 2.5, -1.5, -15, -25}, f)
	want := Categories{MediumIncrease: 1, SmallIncrease: 1, SmallDecrease: 1, MediumDecrease: 1, LargeDecrease: 1}
	if got != want {
		t.Fatalf("categories: %+v", got)
	}
}

func TestCorrelation(t *testing.T) {
	r := Correlation([]float64{1, 2, 3, 4, 5}, []float64{2, 1, 4, 3, 5})
	if !approx(r.R, 0.8, 1e-9) || !approx(r.T, 2.3094, 1e-4) || r.SampleSize != 5 {
		t.Fatalf("correlation: %+v", r)
	}
	perfect := Correlation([]float64{1, 2, 3}, []float64{2, 4, 6})
	if perfect.R != 1 || perfect.T != 0 {
		t.Fatalf("perfect correlation should clamp t: %+v", perfect)
	}
	if r := Correlation([]float64{1}, []float64{2}); r.R != 0 || r.T != 0 {
		t.Fatalf("n<2: %+v", r)
	}
	if r := Correlation([]float64{1, 1, 1}, []float64{1, 2, 3}); r.R != 0 {
		t.Fatalf("zero variance: %+v", r)
	}
}
