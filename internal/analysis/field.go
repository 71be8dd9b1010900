package analysis

import (
	"github.com/rs/zerolog"

	"github.com/KaramelBytes/imgdiff/internal/matcher"
	"github.com/KaramelBytes/imgdiff/internal/thresholds"
)

// DefaultConfidenceLevel is used for the before/after mean intervals.
const DefaultConfidenceLevel = 0.95

// ErrNoValidData marks a field without a single numeric before/after pair.
const ErrNoValidData = "no valid numeric data"

// ChangeStats aggregates the per-pair changes of one field.
type ChangeStats struct {
	Absolute         Descriptive `json:"absolute"`
	Percentage       Descriptive `json:"percentage"`
	Positive         int         `json:"positive"`
	Negative         int         `json:"negative"`
	NoChange         int         `json:"no_change"`
	UndefinedPercent int         `json:"undefined_percent"`
	Categories       Categories  `json:"categories"`
}

// Inference holds the before/after comparison statistics of one field.
type Inference struct {
	BeforeCI        Interval           `json:"before_ci"`
	AfterCI         Interval           `json:"after_ci"`
	BeforeNormality Normality          `json:"before_normality"`
	AfterNormality  Normality          `json:"after_normality"`
	Effect          Effect             `json:"effect"`
	Distribution    ChangeDistribution `json:"distribution"`
}

// FieldAnalysis is the full characterization of one field across matched pairs.
type FieldAnalysis struct {
	Field       string            `json:"field"`
	ValidPairs  int               `json:"valid_pairs"`
	Skipped     int               `json:"skipped"`
	Before      Descriptive       `json:"before"`
	After       Descriptive       `json:"after"`
	Change      ChangeStats       `json:"change"`
	Trend       TrendResult       `json:"trend"`
	Outliers    OutlierReport     `json:"outliers"`
	Correlation CorrelationResult `json:"correlation"`
	Inference   Inference         `json:"inference"`
	Err         string            `json:"error,omitempty"`
}

// Overall summarizes a multi-field analysis.
type Overall struct {
	TotalFields      int           `json:"total_fields"`
	Successful       int           `json:"successful"`
	Failed           int           `json:"failed"`
	TrendSummary     map[Trend]int `json:"trend_summary"`
	AvgPositiveRatio float64       `json:"avg_positive_ratio"`
	AvgNegativeRatio float64       `json:"avg_negative_ratio"`
	AvgNoChangeRatio float64       `json:"avg_no_change_ratio"`
}

// Report is the analysis of several fields over one pair set.
type Report struct {
	Pairs   int             `json:"pairs"`
	Fields  []FieldAnalysis `json:"fields"`
	Overall Overall         `json:"overall"`
}

// Analyzer characterizes field changes using the live percentage thresholds.
type Analyzer struct {
	// ConfidenceLevel applies to the mean intervals; 0 means DefaultConfidenceLevel.
	ConfidenceLevel float64

	store *thresholds.Store
	sub   thresholds.Subscription
	log   zerolog.Logger
}

// NewAnalyzer registers the analyzer as an observer of store.
func NewAnalyzer(store *thresholds.Store, logger zerolog.Logger) *Analyzer {
	a := &Analyzer{ConfidenceLevel: DefaultConfidenceLevel, store: store, log: logger}
	a.sub = store.Subscribe(a)
	return a
}

// Close deregisters the analyzer.
func (a *Analyzer) Close() {
	a.store.Unsubscribe(a.sub)
}

// ThresholdsUpdated implements thresholds.Observer. Thresholds are read from the
// store on every pass, so the notification only needs recording.
func (a *Analyzer) ThresholdsUpdated(cfg thresholds.Config) error {
	a.log.Info().Interface("percentage", cfg.Percentage).Msg("trend analyzer picked up new thresholds")
	return nil
}

// AnalyzeField characterizes field over pairs. Pairs where either side is not
// numeric are skipped and counted.
func (a *Analyzer) AnalyzeField(pairs []matcher.Pair, field string) FieldAnalysis {
	fa := FieldAnalysis{Field: field}
	var before, after, changes, pcts []float64
	for _, p := range pairs {
		x, okBefore := p.RowA.Float(field)
		y, okAfter := p.RowB.Float(field)
		if !okBefore || !okAfter {
			fa.Skipped++
			continue
		}
		before = append(before, x)
		after = append(after, y)
		change := y - x
		changes = append(changes, change)
		switch {
		case change > 0:
			fa.Change.Positive++
		case change < 0:
			fa.Change.Negative++
		default:
			fa.Change.NoChange++
		}
		if pct := PercentChange(x, y); pct.Defined {
			pcts = append(pcts, pct.Value)
		} else {
			fa.Change.UndefinedPercent++
		}
	}
	fa.ValidPairs = len(changes)
	if fa.ValidPairs == 0 {
		fa.Err = ErrNoValidData
		fa.Trend = TrendResult{Trend: TrendUnknown}
		a.log.Warn().Str("field", field).Int("skipped", fa.Skipped).Msg("field has no numeric pairs")
		return fa
	}

	family := a.store.Current().Percentage
	fa.Before = Describe(before)
	fa.After = Describe(after)
	fa.Change.Absolute = Describe(changes)
	fa.Change.Percentage = Describe(pcts)
	fa.Change.Categories = CategorizeChanges(pcts, family)
	fa.Trend = ClassifyTrend(changes)
	fa.Outliers = DetectOutliers(changes)
	fa.Correlation = Correlation(before, after)

	level := a.ConfidenceLevel
	if level <= 0 || level >= 1 {
		level = DefaultConfidenceLevel
	}
	fa.Inference = Inference{
		BeforeCI:        ConfidenceInterval(before, level),
		AfterCI:         ConfidenceInterval(after, level),
		BeforeNormality: NormalityTest(before),
		AfterNormality:  NormalityTest(after),
		Effect:          EffectSize(before, after),
		Distribution:    PercentageChanges(before, after).Distribution,
	}
	a.log.Debug().Str("field", field).Int("valid_pairs", fa.ValidPairs).Int("skipped", fa.Skipped).
		Str("trend", string(fa.Trend.Trend)).Msg("field analyzed")
	return fa
}

// Analyze runs AnalyzeField for each field in order and summarizes the results.
func (a *Analyzer) Analyze(pairs []matcher.Pair, fields []string) *Report {
	rep := &Report{Pairs: len(pairs)}
	rep.Overall.TotalFields = len(fields)
	rep.Overall.TrendSummary = map[Trend]int{}
	for _, f := range fields {
		fa := a.AnalyzeField(pairs, f)
		rep.Fields = append(rep.Fields, fa)
		if fa.Err != "" {
			rep.Overall.Failed++
			continue
		}
		rep.Overall.Successful++
		rep.Overall.TrendSummary[fa.Trend.Trend]++
		rep.Overall.AvgPositiveRatio += fa.Trend.PositiveRatio
		rep.Overall.AvgNegativeRatio += fa.Trend.NegativeRatio
		rep.Overall.AvgNoChangeRatio += fa.Trend.ZeroRatio
	}
	if n := float64(rep.Overall.Successful); n > 0 {
		rep.Overall.AvgPositiveRatio /= n
		rep.Overall.AvgNegativeRatio /= n
		rep.Overall.AvgNoChangeRatio /= n
	}
	return rep
}
