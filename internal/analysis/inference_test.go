package analysis

import (
	"math"
	"testing"

	"gonum.org/v1/gonum/stat/distuv"
)

func normalSample(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = 50 + 10*distuv.UnitNormal.Quantile((float64(i)+0.5)/float64(n))
	}
	return out
}

func cubicSample(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		x := float64(i + 1)
		out[i] = x * x * x
	}
	return out
}

func TestConfidenceInterval(t *testing.T) {
	iv := ConfidenceInterval([]float64{1, 2, 3, 4, 5}, 0.95)
	if !iv.OK || iv.N != 5 {
		t.Fatalf("interval: %+v", iv)
	}
	if !approx(iv.Critical, 2.7764, 1e-3) || !approx(iv.Lower, 1.0368, 1e-3) || !approx(iv.Upper, 4.9632, 1e-3) {
		t.Fatalf("interval bounds: %+v", iv)
	}
	if iv := ConfidenceInterval([]float64{1}, 0.95); iv.OK {
		t.Fatalf("single value should not produce an interval")
	}
}

func TestCriticalValueFallback(t *testing.T) {
	cases := map[float64]float64{0.95: 1.96, 0.99: 2.576, 0.9: 1.645}
	for level, want := range cases {
		if got := criticalValue(level, 0); got != want {
			t.Fatalf("criticalValue(%v, 0) = %v, want %v", level, got, want)
		}
	}
}

func TestNormalityTest(t *testing.T) {
	if r := NormalityTest([]float64{1, 2, 3, 4, 5, 6, 7}); r.Test != TestInsufficientData || r.IsNormal {
		t.Fatalf("n=7: %+v", r)
	}

	r := NormalityTest(normalSample(50))
	if r.Test != TestShapiroWilk || !r.IsNormal || r.Statistic <= 0.95 || r.Statistic > 1 {
		t.Fatalf("normal sample: %+v", r)
	}
	r = NormalityTest(cubicSample(50))
	if r.Test != TestShapiroWilk || r.IsNormal {
		t.Fatalf("skewed sample: %+v", r)
	}
	r = NormalityTest(cubicSample(10))
	if r.PValue < 0 || r.PValue > 1 || math.IsNaN(r.Statistic) {
		t.Fatalf("small-n branch: %+v", r)
	}

	r = NormalityTest(normalSample(6000))
	if r.Test != TestKolmogorovSmirnov || !r.IsNormal {
		t.Fatalf("large normal sample: %+v", r)
	}
	r = NormalityTest(cubicSample(6000))
	if r.Test != TestKolmogorovSmirnov || r.IsNormal {
		t.Fatalf("large skewed sample: %+v", r)
	}
}

func TestEffectSize(t *testing.T) {
	e := EffectSize([]float64{1, 2, 3, 4, 5}, []float64{2, 3, 4, 5, 6})
	if e.MeanDiff != 1 || !approx(e.PooledStd, 1.5811, 1e-4) {
		t.Fatalf("effect: %+v", e)
	}
	if !approx(e.CohensD, 0.6325, 1e-4) || !approx(e.GlassDelta, 0.6325, 1e-4) || !approx(e.HedgesG, 0.5713, 1e-4) {
		t.Fatalf("effect sizes: %+v", e)
	}
	if e.Interpretation != "medium" {
		t.Fatalf("interpretation: %s", e.Interpretation)
	}
	if e := EffectSize(nil, []float64{1}); e.CohensD != 0 || e.Interpretation != "negligible" {
		t.Fatalf("empty group: %+v", e)
	}
}

func TestInterpretEffect(t *testing.T) {
	cases := map[float64]string{0.1: "negligible", -0.3: "small", 0.6: "medium", -0.8: "large"}
	for d, want := range cases {
		if got := interpretEffect(d); got != want {
			t.Fatalf("interpretEffect(%v) = %s, want %s", d, got, want)
		}
	}
}

func TestPercentageChanges(t *testing.T) {
	before := []float64{100, 100, 100, 100, 0, 0, 100, 100, 100, 100, 100}
	after := []float64{20, 80, 95, 99.5, 0, 5, 100.5, 105, 130, 200, math.NaN()}
	s := PercentageChanges(before, after)
	if s.Pairs != 10 || s.Undefined != 1 {
		t.Fatalf("pairs=%d undefined=%d", s.Pairs, s.Undefined)
	}
	want := ChangeDistribution{
		ExtremeDecrease: 1, LargeDecrease: 1, ModerateDecrease: 1, SmallDecrease: 1, NoChange: 1,
		SmallIncrease: 1, ModerateIncrease: 1, LargeIncrease: 1, ExtremeIncrease: 1,
	}
	if s.Distribution != want {
		t.Fatalf("distribution: %+v", s.Distribution)
	}
	if s.Stats.Count != 9 {
		t.Fatalf("stats over defined changes only: %d", s.Stats.Count)
	}
}
