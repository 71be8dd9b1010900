package analysis

import (
	"math"
	"sort"

	"github.com/KaramelBytes/imgdiff/internal/thresholds"
)

// Percent is a relative change. Defined is false when the baseline is zero and the
// value changed, in which case Value carries no meaning.
type Percent struct {
	Value   float64 `json:"value"`
	Defined bool    `json:"defined"`
}

// PercentChange returns (after-before)/before*100, defined as 0 when both are zero
// and undefined when only the baseline is zero.
func PercentChange(before, after float64) Percent {
	change := after - before
	if before == 0 {
		if change == 0 {
			return Percent{Defined: true}
		}
		return Percent{}
	}
	return Percent{Value: change / before * 100, Defined: true}
}

// Trend is the overall direction of a set of changes.
type Trend string

const (
	TrendIncreasing Trend = "increasing"
	TrendDecreasing Trend = "decreasing"
	TrendStable     Trend = "stable"
	TrendMixed      Trend = "mixed"
	TrendUnknown    Trend = "unknown"
)

const dominantRatio = 0.7

// TrendResult carries the classified trend and the sign ratios behind it.
type TrendResult struct {
	Trend         Trend   `json:"trend"`
	Confidence    float64 `json:"confidence"`
	PositiveRatio float64 `json:"positive_ratio"`
	NegativeRatio float64 `json:"negative_ratio"`
	ZeroRatio     float64 `json:"zero_ratio"`
}

// ClassifyTrend labels changes increasing/decreasing when over 70% share a sign,
// stable when the positive and negative shares are within 0.2, mixed otherwise.
func ClassifyTrend(changes []float64) TrendResult {
	x := Finite(changes)
	if len(x) == 0 {
		return TrendResult{Trend: TrendUnknown}
	}
	var pos, neg, zero int
	for _, v := range x {
		switch {
		case v > 0:
			pos++
		case v < 0:
			neg++
		default:
			zero++
		}
	}
	n := float64(len(x))
	r := TrendResult{
		PositiveRatio: float64(pos) / n,
		NegativeRatio: float64(neg) / n,
		ZeroRatio:     float64(zero) / n,
	}
	diff := math.Abs(r.PositiveRatio - r.NegativeRatio)
	switch {
	case r.PositiveRatio > dominantRatio:
		r.Trend, r.Confidence = TrendIncreasing, r.PositiveRatio
	case r.NegativeRatio > dominantRatio:
		r.Trend, r.Confidence = TrendDecreasing, r.NegativeRatio
	case diff < 0.2:
		r.Trend, r.Confidence = TrendStable, 1-diff
	default:
		r.Trend, r.Confidence = TrendMixed, math.Max(r.PositiveRatio, r.NegativeRatio)
	}
	return r
}

// Outlier is one value outside the IQR fences.
type Outlier struct {
	Index int     `json:"index"`
	Value float64 `json:"value"`
	Type  string  `json:"type"`
}

// OutlierReport lists outliers found with the 1.5×IQR rule.
type OutlierReport struct {
	Outliers   []Outlier `json:"outliers"`
	Count      int       `json:"count"`
	Ratio      float64   `json:"ratio"`
	Q1         float64   `json:"q1"`
	Q3         float64   `json:"q3"`
	IQR        float64   `json:"iqr"`
	LowerBound float64   `json:"lower_bound"`
	UpperBound float64   `json:"upper_bound"`
}

// DetectOutliers flags values outside [Q1-1.5·IQR, Q3+1.5·IQR]. Indices refer to
// positions in values. Fewer than four finite values yield an empty report.
func DetectOutliers(values []float64) OutlierReport {
	x := Finite(values)
	if len(x) < 4 {
		return OutlierReport{}
	}
	sorted := append([]float64(nil), x...)
	sort.Float64s(sorted)
	rep := OutlierReport{Q1: quantile(sorted, 0.25), Q3: quantile(sorted, 0.75)}
	rep.IQR = rep.Q3 - rep.Q1
	rep.LowerBound = rep.Q1 - 1.5*rep.IQR
	rep.UpperBound = rep.Q3 + 1.5*rep.IQR
	for i, v := range values {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			continue
		}
		switch {
		case v < rep.LowerBound:
			rep.Outliers = append(rep.Outliers, Outlier{Index: i, Value: v, Type: "low"})
		case v > rep.UpperBound:
			rep.Outliers = append(rep.Outliers, Outlier{Index: i, Value: v, Type: "high"})
		}
	}
	rep.Count = len(rep.Outliers)
	rep.Ratio = float64(rep.Count) / float64(len(x))
	return rep
}

// Categories counts percentage changes per magnitude band.
type Categories struct {
	LargeIncrease  int `json:"large_increase"`
	MediumIncrease int `json:"medium_increase"`
	SmallIncrease  int `json:"small_increase"`
	NoChange       int `json:"no_change"`
	SmallDecrease  int `json:"small_decrease"`
	MediumDecrease int `json:"medium_decrease"`
	LargeDecrease  int `json:"large_decrease"`
}

// CategorizeChanges bins percentage changes using the percentage family:
// large_min bounds the large bands, medium_min the medium increase band and
// small_max the small decrease band.
func CategorizeChanges(percentages []float64, f thresholds.Family) Categories {
	var c Categories
	for _, v := range Finite(percentages) {
		switch {
		case v > f.LargeMin:
			c.LargeIncrease++
		case v > f.MediumMin:
			c.MediumIncrease++
		case v > 0:
			c.SmallIncrease++
		case v == 0:
			c.NoChange++
		case v > -f.SmallMax:
			c.SmallDecrease++
		case v > -f.LargeMin:
			c.MediumDecrease++
		default:
			c.LargeDecrease++
		}
	}
	return c
}

// CorrelationResult is a Pearson coefficient with its t statistic.
type CorrelationResult struct {
	R          float64 `json:"correlation"`
	T          float64 `json:"t_statistic"`
	SampleSize int     `json:"sample_size"`
}

// Correlation computes Pearson's r over positions where both x and y are finite,
// and t = r·sqrt((n-2)/(1-r²)). Undefined values are reported as 0.
func Correlation(x, y []float64) CorrelationResult {
	var n, sumX, sumY, sumXX, sumYY, sumXY float64
	for i := 0; i < len(x) && i < len(y); i++ {
		a, b := x[i], y[i]
		if math.IsNaN(a) || math.IsInf(a, 0) || math.IsNaN(b) || math.IsInf(b, 0) {
			continue
		}
		n++
		sumX += a
		sumY += b
		sumXX += a * a
		sumYY += b * b
		sumXY += a * b
	}
	res := CorrelationResult{SampleSize: int(n)}
	if n < 2 {
		return res
	}
	denom := math.Sqrt((n*sumXX - sumX*sumX) * (n*sumYY - sumY*sumY))
	var r float64
	if denom != 0 {
		r = (n*sumXY - sumX*sumY) / denom
	}
	if r > 1 {
		r = 1
	} else if r < -1 {
		r = -1
	}
	if math.IsNaN(r) || math.IsInf(r, 0) {
		r = 0
	}
	res.R = r
	if t := r * math.Sqrt((n-2)/(1-r*r)); !math.IsNaN(t) && !math.IsInf(t, 0) {
		res.T = t
	}
	return res
}
