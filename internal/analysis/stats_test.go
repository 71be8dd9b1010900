package analysis

import (
	"math"
	"testing"
)

func approx(a, b, tol float64) bool { return math.Abs(a-b) <= tol }

func TestDescribeOneToFive(t *testing.T) {
	d := Describe([]float64{1, 2, 3, 4, 5})
	checks := []struct {
		name      string
		got, want float64
	}{
		{"mean", d.Mean, 3},
		{"median", d.Median, 3},
		{"std", d.Std, 1.5811},
		{"variance", d.Variance, 2.5},
		{"min", d.Min, 1},
		{"max", d.Max, 5},
		{"range", d.Range, 4},
		{"q1", d.Q1, 2},
		{"q3", d.Q3, 4},
		{"iqr", d.IQR, 2},
		{"p5", d.P5, 1.2},
		{"p95", d.P95, 4.8},
		{"mode", d.Mode, 1},
		{"skewness", d.Skewness, 0},
		{"kurtosis", d.Kurtosis, -1.2},
		{"cv", d.CV, 0.5270},
		{"mad", d.MAD, 1.2},
		{"sem", d.SEM, 0.7071},
	}
	for _, c := range checks {
		if !approx(c.got, c.want, 1e-4) {
			t.Fatalf("%s = %v, want %v", c.name, c.got, c.want)
		}
	}
	if d.Count != 5 {
		t.Fatalf("count = %d", d.Count)
	}
}

func TestDescribeFiltersNonFinite(t *testing.T) {
	d := Describe([]float64{math.NaN(), 2, math.Inf(1), 4, math.Inf(-1)})
	if d.Count != 2 || d.Mean != 3 {
		t.Fatalf("got %+v", d)
	}
}

func TestDescribeSmallSamples(t *testing.T) {
	if d := Describe(nil); d != (Descriptive{}) {
		t.Fatalf("empty sample should be zero value: %+v", d)
	}
	d := Describe([]float64{7})
	if d.Std != 0 || d.Variance != 0 || d.Skewness != 0 || d.Kurtosis != 0 || d.Mean != 7 {
		t.Fatalf("single value: %+v", d)
	}
	d = Describe([]float64{1, 2, 10})
	if d.Skewness == 0 || d.Kurtosis != 0 {
		t.Fatalf("n=3 should have skewness but no kurtosis: %+v", d)
	}
	if d := Describe([]float64{0, 0}); d.CV != 0 {
		t.Fatalf("zero mean cv: %v", d.CV)
	}
}

func TestModeSmallestOnTies(t *testing.T) {
	if m := Describe([]float64{3, 1, 3, 1, 2}).Mode; m != 1 {
		t.Fatalf("mode = %v", m)
	}
	if m := Describe([]float64{5, 5, 1}).Mode; m != 5 {
		t.Fatalf("mode = %v", m)
	}
}

func TestMedianMAD(t *testing.T) {
	med, mad := medianMAD([]float64{1, 1, 2, 2, 4, 6, 9})
	if med != 2 || mad != 1 {
		t.Fatalf("median=%v mad=%v", med, mad)
	}
}
