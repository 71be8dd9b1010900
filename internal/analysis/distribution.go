package analysis

// ChangeDistribution counts percentage changes in nine fixed bands.
type ChangeDistribution struct {
	ExtremeDecrease  int `json:"extreme_decrease"`  // < -50
	LargeDecrease    int `json:"large_decrease"`    // [-50, -10)
	ModerateDecrease int `json:"moderate_decrease"` // [-10, -1)
	SmallDecrease    int `json:"small_decrease"`    // [-1, 0)
	NoChange         int `json:"no_change"`
	SmallIncrease    int `json:"small_increase"`    // (0, 1]
	ModerateIncrease int `json:"moderate_increase"` // (1, 10]
	LargeIncrease    int `json:"large_increase"`    // (10, 50]
	ExtremeIncrease  int `json:"extreme_increase"`  // > 50
}

func (d *ChangeDistribution) add(p float64) {
	switch {
	case p < -50:
		d.ExtremeDecrease++
	case p < -10:
		d.LargeDecrease++
	case p < -1:
		d.ModerateDecrease++
	case p < 0:
		d.SmallDecrease++
	case p == 0:
		d.NoChange++
	case p <= 1:
		d.SmallIncrease++
	case p <= 10:
		d.ModerateIncrease++
	case p <= 50:
		d.LargeIncrease++
	default:
		d.ExtremeIncrease++
	}
}

// ChangeSummary describes the percentage changes between paired samples.
type ChangeSummary struct {
	Pairs        int                `json:"pairs"`
	Undefined    int                `json:"undefined"`
	Stats        Descriptive        `json:"stats"`
	Distribution ChangeDistribution `json:"distribution"`
}

// PercentageChanges pairs before[i] with after[i] and summarizes the defined
// percentage changes. Pairs with a non-finite side are ignored.
func PercentageChanges(before, after []float64) ChangeSummary {
	var s ChangeSummary
	var pcts []float64
	for i := 0; i < len(before) && i < len(after); i++ {
		if !isFinite(before[i]) || !isFinite(after[i]) {
			continue
		}
		s.Pairs++
		p := PercentChange(before[i], after[i])
		if !p.Defined {
			s.Undefined++
			continue
		}
		pcts = append(pcts, p.Value)
		s.Distribution.add(p.Value)
	}
	s.Stats = Describe(pcts)
	return s
}
