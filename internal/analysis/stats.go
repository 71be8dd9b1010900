// Package analysis computes descriptive statistics, inference helpers and per-field
// trend characterizations of matched pipeline runs.
package analysis

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"
)

// Descriptive summarizes a numeric sample. Percentiles use linear interpolation.
type Descriptive struct {
	Count    int     `json:"count"`
	Mean     float64 `json:"mean"`
	Median   float64 `json:"median"`
	Mode     float64 `json:"mode"`
	Std      float64 `json:"std"`
	Variance float64 `json:"variance"`
	Min      float64 `json:"min"`
	Max      float64 `json:"max"`
	Range    float64 `json:"range"`
	Q1       float64 `json:"q1"`
	Q2       float64 `json:"q2"`
	Q3       float64 `json:"q3"`
	IQR      float64 `json:"iqr"`
	P5       float64 `json:"p5"`
	P10      float64 `json:"p10"`
	P90      float64 `json:"p90"`
	P95      float64 `json:"p95"`
	Skewness float64 `json:"skewness"`
	Kurtosis float64 `json:"kurtosis"`
	CV       float64 `json:"cv"`
	MAD      float64 `json:"mad"`
	SEM      float64 `json:"sem"`
}

// Finite drops NaN and infinite values.
func Finite(values []float64) []float64 {
	out := make([]float64, 0, len(values))
	for _, v := range values {
		if isFinite(v) {
			out = append(out, v)
		}
	}
	return out
}

func isFinite(v float64) bool { return !math.IsNaN(v) && !math.IsInf(v, 0) }

// Describe computes Descriptive over the finite values of values.
// Std and variance use Bessel's correction; an empty sample yields the zero value.
func Describe(values []float64) Descriptive {
	x := Finite(values)
	n := len(x)
	if n == 0 {
		return Descriptive{}
	}
	sorted := append([]float64(nil), x...)
	sort.Float64s(sorted)

	d := Descriptive{Count: n, Min: sorted[0], Max: sorted[n-1]}
	d.Mean = stat.Mean(x, nil)
	if n > 1 {
		d.Variance = stat.Variance(x, nil)
		d.Std = math.Sqrt(d.Variance)
	}
	d.Range = d.Max - d.Min
	d.Q1 = quantile(sorted, 0.25)
	d.Q2 = quantile(sorted, 0.5)
	d.Q3 = quantile(sorted, 0.75)
	d.Median = d.Q2
	d.IQR = d.Q3 - d.Q1
	d.P5 = quantile(sorted, 0.05)
	d.P10 = quantile(sorted, 0.10)
	d.P90 = quantile(sorted, 0.90)
	d.P95 = quantile(sorted, 0.95)
	d.Mode = mode(sorted)
	d.Skewness = skewness(x, d.Mean, d.Std)
	d.Kurtosis = excessKurtosis(x, d.Mean, d.Std)
	if d.Mean != 0 {
		d.CV = d.Std / math.Abs(d.Mean)
	}
	var absDev float64
	for _, v := range x {
		absDev += math.Abs(v - d.Mean)
	}
	d.MAD = absDev / float64(n)
	d.SEM = d.Std / math.Sqrt(float64(n))
	return d
}

// mode returns the most frequent value of a sorted sample, the smallest on ties.
func mode(sorted []float64) float64 {
	best, bestRun := sorted[0], 0
	for i := 0; i < len(sorted); {
		j := i
		for j < len(sorted) && sorted[j] == sorted[i] {
			j++
		}
		if j-i > bestRun {
			best, bestRun = sorted[i], j-i
		}
		i = j
	}
	return best
}

func skewness(x []float64, mean, std float64) float64 {
	n := float64(len(x))
	if len(x) < 3 || std == 0 {
		return 0
	}
	var s float64
	for _, v := range x {
		z := (v - mean) / std
		s += z * z * z
	}
	return n / ((n - 1) * (n - 2)) * s
}

func excessKurtosis(x []float64, mean, std float64) float64 {
	n := float64(len(x))
	if len(x) < 4 || std == 0 {
		return 0
	}
	var s float64
	for _, v := range x {
		z := (v - mean) / std
		s += z * z * z * z
	}
	return n*(n+1)/((n-1)*(n-2)*(n-3))*s - 3*(n-1)*(n-1)/((n-2)*(n-3))
}

// medianMAD computes median and MAD (median absolute deviation) of values.
func medianMAD(vals []float64) (median, mad float64) {
	if len(vals) == 0 {
		return 0, 0
	}
	cp := make([]float64, len(vals))
	copy(cp, vals)
	sort.Float64s(cp)
	median = quantile(cp, 0.5)
	dev := make([]float64, len(cp))
	for i, v := range cp {
		dev[i] = math.Abs(v - median)
	}
	sort.Float64s(dev)
	mad = quantile(dev, 0.5)
	return
}

func quantile(sorted []float64, q float64) float64 {
	if len(sorted) == 0 {
		return 0
	}
	if q <= 0 {
		return sorted[0]
	}
	if q >= 1 {
		return sorted[len(sorted)-1]
	}
	pos := q * float64(len(sorted)-1)
	lo := int(math.Floor(pos))
	hi := int(math.Ceil(pos))
	if lo == hi {
		return sorted[lo]
	}
	w := pos - float64(lo)
	return sorted[lo]*(1-w) + sorted[hi]*w
}
