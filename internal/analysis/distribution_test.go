package analysis

import (
	"math"
	"testing"
)

func TestPercentageChangesFillsEveryBand(t *testing.T) {
	before := []float64{100, 100, 100, 100, 100, 100, 100, 100, 100, 0, math.NaN()}
	after := []float64{40, 80, 95, 99.5, 100, 100.5, 105, 120, 200, 5, 1}
	s := PercentageChanges(before, after)

	if s.Pairs != 10 || s.Undefined != 1 || s.Stats.Count != 9 {
		t.Fatalf("pairs=%d undefined=%d count=%d", s.Pairs, s.Undefined, s.Stats.Count)
	}
	d := s.Distribution
	got := []int{
		d.ExtremeDecrease, d.LargeDecrease, d.ModerateDecrease, d.SmallDecrease, d.NoChange,
		d.SmallIncrease, d.ModerateIncrease, d.LargeIncrease, d.ExtremeIncrease,
	}
	for i, n := range got {
		if n != 1 {
			t.Fatalf("band %d = %d, distribution %+v", i, n, d)
		}
	}
}

func TestPercentageChangesEmpty(t *testing.T) {
	s := PercentageChanges(nil, []float64{1})
	if s.Pairs != 0 || s.Stats.Count != 0 {
		t.Fatalf("empty: %+v", s)
	}
}
