package analysis

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"
)

// Normality test identifiers.
const (
	TestShapiroWilk       = "shapiro_wilk"
	TestKolmogorovSmirnov = "kolmogorov_smirnov"
	TestInsufficientData  = "insufficient_data"
)

const (
	minNormalitySample = 8
	maxShapiroSample   = 5000
	normalityAlpha     = 0.05
)

// Interval is a confidence interval for the mean.
type Interval struct {
	N        int     `json:"n"`
	Level    float64 `json:"level"`
	Mean     float64 `json:"mean"`
	Lower    float64 `json:"lower"`
	Upper    float64 `json:"upper"`
	Margin   float64 `json:"margin"`
	Critical float64 `json:"critical"`
	OK       bool    `json:"ok"`
}

// ConfidenceInterval returns the Student-t interval for the mean at level.
// Fewer than two finite values yield an Interval with OK false.
func ConfidenceInterval(values []float64, level float64) Interval {
	x := Finite(values)
	iv := Interval{N: len(x), Level: level}
	if len(x) < 2 {
		return iv
	}
	mean, std := stat.MeanStdDev(x, nil)
	sem := std / math.Sqrt(float64(len(x)))
	iv.Critical = criticalValue(level, float64(len(x)-1))
	iv.Mean = mean
	iv.Margin = iv.Critical * sem
	iv.Lower = mean - iv.Margin
	iv.Upper = mean + iv.Margin
	iv.OK = true
	return iv
}

func criticalValue(level, df float64) float64 {
	if level > 0 && level < 1 && df >= 1 {
		t := distuv.StudentsT{Mu: 0, Sigma: 1, Nu: df}.Quantile(1 - (1-level)/2)
		if !math.IsNaN(t) && !math.IsInf(t, 0) {
			return t
		}
	}
	switch level {
	case 0.95:
		return 1.96
	case 0.99:
		return 2.576
	default:
		return 1.645
	}
}

// Normality is the outcome of a normality test.
type Normality struct {
	Test      string  `json:"test"`
	N         int     `json:"n"`
	Statistic float64 `json:"statistic"`
	PValue    float64 `json:"p_value"`
	IsNormal  bool    `json:"is_normal"`
}

// NormalityTest runs Shapiro-Wilk for up to 5000 values and Kolmogorov-Smirnov
// against a fitted normal beyond that. Fewer than 8 values report insufficient data.
func NormalityTest(values []float64) Normality {
	x := Finite(values)
	res := Normality{N: len(x)}
	switch {
	case len(x) < minNormalitySample:
		res.Test = TestInsufficientData
		return res
	case len(x) <= maxShapiroSample:
		res.Test = TestShapiroWilk
		res.Statistic, res.PValue = shapiroWilk(x)
	default:
		res.Test = TestKolmogorovSmirnov
		res.Statistic, res.PValue = kolmogorovSmirnov(x)
	}
	res.IsNormal = res.PValue > normalityAlpha
	return res
}

// shapiroWilk implements Royston's approximation (AS R94) for 4 <= n <= 5000.
func shapiroWilk(values []float64) (w, p float64) {
	x := append([]float64(nil), values...)
	sort.Float64s(x)
	n := len(x)
	nf := float64(n)

	m := make([]float64, n)
	var ssq float64
	for i := range m {
		m[i] = distuv.UnitNormal.Quantile((float64(i+1) - 0.375) / (nf + 0.25))
		ssq += m[i] * m[i]
	}
	u := 1 / math.Sqrt(nf)
	an := poly(u, 0, 0.221157, -0.147981, -2.071190, 4.434685, -2.706056) + m[n-1]/math.Sqrt(ssq)
	an1 := poly(u, 0, 0.042981, -0.293762, -1.752461, 5.682633, -3.582633) + m[n-2]/math.Sqrt(ssq)
	phi := (ssq - 2*m[n-1]*m[n-1] - 2*m[n-2]*m[n-2]) / (1 - 2*an*an - 2*an1*an1)

	a := make([]float64, n)
	for i := 2; i < n-2; i++ {
		a[i] = m[i] / math.Sqrt(phi)
	}
	a[0], a[1], a[n-2], a[n-1] = -an, -an1, an1, an

	mean := stat.Mean(x, nil)
	var num, den float64
	for i, v := range x {
		num += a[i] * v
		den += (v - mean) * (v - mean)
	}
	if den == 0 {
		return 1, 1
	}
	w = math.Min(num*num/den, 1)

	var z float64
	if n <= 11 {
		gamma := 0.459*nf - 2.273
		mu := poly(nf, 0.5440, -0.39978, 0.025054, -0.0006714)
		sigma := math.Exp(poly(nf, 1.3822, -0.77857, 0.062767, -0.0020322))
		z = (-math.Log(gamma-math.Log(1-w)) - mu) / sigma
	} else {
		ln := math.Log(nf)
		mu := poly(ln, -1.5861, -0.31082, -0.083751, 0.0038915)
		sigma := math.Exp(poly(ln, -0.4803, -0.082676, 0.0030302))
		z = (math.Log(1-w) - mu) / sigma
	}
	return w, 1 - distuv.UnitNormal.CDF(z)
}

// poly evaluates c[0] + c[1]x + c[2]x^2 + ...
func poly(x float64, c ...float64) float64 {
	var r float64
	for i := len(c) - 1; i >= 0; i-- {
		r = r*x + c[i]
	}
	return r
}

func kolmogorovSmirnov(values []float64) (d, p float64) {
	x := append([]float64(nil), values...)
	sort.Float64s(x)
	mean, std := stat.MeanStdDev(x, nil)
	if std == 0 {
		return 1, 0
	}
	dist := distuv.Normal{Mu: mean, Sigma: std}
	n := float64(len(x))
	for i, v := range x {
		f := dist.CDF(v)
		d = math.Max(d, math.Max(f-float64(i)/n, float64(i+1)/n-f))
	}
	sqrtN := math.Sqrt(n)
	return d, kolmogorovQ((sqrtN + 0.12 + 0.11/sqrtN) * d)
}

// kolmogorovQ is the survival function of the Kolmogorov distribution.
func kolmogorovQ(lambda float64) float64 {
	if lambda < 0.2 {
		return 1
	}
	var sum float64
	sign := 1.0
	for k := 1; k <= 100; k++ {
		term := sign * 2 * math.Exp(-2*float64(k*k)*lambda*lambda)
		sum += term
		if math.Abs(term) < 1e-12 {
			break
		}
		sign = -sign
	}
	return math.Max(0, math.Min(1, sum))
}

// Effect sizes between a baseline sample a and a comparison sample b.
type Effect struct {
	MeanDiff       float64 `json:"mean_diff"`
	PooledStd      float64 `json:"pooled_std"`
	CohensD        float64 `json:"cohens_d"`
	GlassDelta     float64 `json:"glass_delta"`
	HedgesG        float64 `json:"hedges_g"`
	Interpretation string  `json:"interpretation"`
}

// EffectSize compares b against a; MeanDiff is mean(b) - mean(a).
func EffectSize(a, b []float64) Effect {
	xa, xb := Finite(a), Finite(b)
	e := Effect{Interpretation: interpretEffect(0)}
	if len(xa) == 0 || len(xb) == 0 {
		return e
	}
	na, nb := float64(len(xa)), float64(len(xb))
	meanA, meanB := stat.Mean(xa, nil), stat.Mean(xb, nil)
	var varA, varB float64
	if len(xa) > 1 {
		varA = stat.Variance(xa, nil)
	}
	if len(xb) > 1 {
		varB = stat.Variance(xb, nil)
	}
	e.MeanDiff = meanB - meanA
	if na+nb > 2 {
		e.PooledStd = math.Sqrt(((na-1)*varA + (nb-1)*varB) / (na + nb - 2))
	}
	if e.PooledStd > 0 {
		e.CohensD = e.MeanDiff / e.PooledStd
	}
	if sa := math.Sqrt(varA); sa > 0 {
		e.GlassDelta = e.MeanDiff / sa
	}
	e.HedgesG = e.CohensD * (1 - 3/(4*(na+nb)-9))
	e.Interpretation = interpretEffect(e.CohensD)
	return e
}

func interpretEffect(d float64) string {
	switch ad := math.Abs(d); {
	case ad < 0.2:
		return "negligible"
	case ad < 0.5:
		return "small"
	case ad < 0.8:
		return "medium"
	default:
		return "large"
	}
}
