// Package classify assigns each matched record a change-magnitude bucket based on
// its primary field and the live thresholds.
package classify

import (
	"math"
	"strings"

	"github.com/rs/zerolog"

	"github.com/KaramelBytes/imgdiff/internal/matcher"
	"github.com/KaramelBytes/imgdiff/internal/thresholds"
)

// DefaultPrimaryField is used when no analysis field is selected.
const DefaultPrimaryField = "sensorCCT"

// Bucket is a change-magnitude class.
type Bucket string

const (
	BucketLarge    Bucket = "large"
	BucketMedium   Bucket = "medium"
	BucketSmall    Bucket = "small"
	BucketNoChange Bucket = "no_change"
)

// Buckets lists every bucket from largest to no change.
var Buckets = []Bucket{BucketLarge, BucketMedium, BucketSmall, BucketNoChange}

var cctKeywords = []string{"cct", "color_temperature", "colortemperature", "sensor_cct", "sensorcct"}

// IsCCTField reports whether field holds a color temperature in Kelvin.
func IsCCTField(field string) bool {
	lower := strings.ToLower(field)
	for _, k := range cctKeywords {
		if strings.Contains(lower, k) {
			return true
		}
	}
	return false
}

// PrimaryChange is |after-before| for CCT fields and |after-before|/|before|·100
// otherwise, with 100 when only the baseline is zero. Rounded to two decimals.
func PrimaryChange(before, after float64, cct bool) float64 {
	diff := math.Abs(after - before)
	var change float64
	switch {
	case cct:
		change = diff
	case before != 0:
		change = diff / math.Abs(before) * 100
	case after != 0:
		change = 100
	}
	return round2(change)
}

// Assign maps a non-negative change to a bucket of family f.
func Assign(change float64, f thresholds.Family) Bucket {
	switch {
	case change == 0:
		return BucketNoChange
	case change > f.LargeMin:
		return BucketLarge
	case change >= f.MediumMin:
		return BucketMedium
	default:
		return BucketSmall
	}
}

func round2(x float64) float64 { return math.Round(x*100) / 100 }

// FieldChange is the before/after detail of one field in a record. Change is signed;
// ChangePercent is the unsigned relative change used for percentage bucketing.
type FieldChange struct {
	Before        float64 `json:"before"`
	After         float64 `json:"after"`
	Change        float64 `json:"change"`
	ChangePercent float64 `json:"change_percent"`
	Numeric       bool    `json:"numeric"`
}

// Record is one classified pair. Numeric is false when the primary field could not
// be read as a number on both sides; such records count as no_change.
type Record struct {
	ImageName string                 `json:"image_name"`
	Pair      matcher.Pair           `json:"pair"`
	Before    float64                `json:"before"`
	After     float64                `json:"after"`
	Change    float64                `json:"change"`
	Bucket    Bucket                 `json:"bucket"`
	Numeric   bool                   `json:"numeric"`
	Fields    map[string]FieldChange `json:"fields,omitempty"`
}

// Skipped names a pair whose primary field is not numeric on both sides.
type Skipped struct {
	ImageName string `json:"image_name"`
	Reason    string `json:"reason"`
}

// Result holds every record of one classification pass.
type Result struct {
	PrimaryField string            `json:"primary_field"`
	CCT          bool              `json:"cct"`
	Thresholds   thresholds.Family `json:"thresholds"`
	Records      []Record          `json:"records"`
	Skipped      []Skipped         `json:"skipped,omitempty"`
}

// ByBucket returns the records of bucket b in pair order.
func (r *Result) ByBucket(b Bucket) []Record {
	var out []Record
	for _, rec := range r.Records {
		if rec.Bucket == b {
			out = append(out, rec)
		}
	}
	return out
}

// Classifier buckets pairs by the change of its primary field.
type Classifier struct {
	primary string
	fields  []string
	cct     bool

	store *thresholds.Store
	sub   thresholds.Subscription
	log   zerolog.Logger
}

// NewClassifier returns a Classifier whose primary field is the first of fields and
// registers it as an observer of store.
func NewClassifier(store *thresholds.Store, fields []string, logger zerolog.Logger) *Classifier {
	primary := DefaultPrimaryField
	if len(fields) > 0 && fields[0] != "" {
		primary = fields[0]
	}
	c := &Classifier{
		primary: primary,
		fields:  append([]string(nil), fields...),
		cct:     IsCCTField(primary),
		store:   store,
		log:     logger,
	}
	c.sub = store.Subscribe(c)
	c.log.Debug().Str("primary_field", primary).Bool("cct", c.cct).Msg("classifier ready")
	return c
}

// PrimaryField returns the field driving bucket assignment.
func (c *Classifier) PrimaryField() string { return c.primary }

// IsCCT reports whether the CCT family applies.
func (c *Classifier) IsCCT() bool { return c.cct }

// Close deregisters the classifier.
func (c *Classifier) Close() { c.store.Unsubscribe(c.sub) }

// ThresholdsUpdated implements thresholds.Observer.
func (c *Classifier) ThresholdsUpdated(cfg thresholds.Config) error {
	c.log.Info().Interface("thresholds", c.family(cfg)).Str("primary_field", c.primary).
		Msg("classifier picked up new thresholds")
	return nil
}

func (c *Classifier) family(cfg thresholds.Config) thresholds.Family {
	if c.cct {
		return cfg.CCT
	}
	return cfg.Percentage
}

// Classify assigns every pair exactly one bucket. A pair whose primary field is not
// numeric on both sides gets a zero change and no_change, and is also listed in
// Skipped. Thresholds are read once per call, so a concurrent update applies from
// the next call on.
func (c *Classifier) Classify(pairs []matcher.Pair) *Result {
	fam := c.family(c.store.Current())
	res := &Result{PrimaryField: c.primary, CCT: c.cct, Thresholds: fam}
	for _, p := range pairs {
		name := p.FilenameA
		before, okB := p.RowA.Float(c.primary)
		after, okA := p.RowB.Float(c.primary)
		rec := Record{ImageName: name, Pair: p, Bucket: BucketNoChange, Fields: c.fieldChanges(p)}
		if okB && okA {
			rec.Before, rec.After, rec.Numeric = before, after, true
			rec.Change = PrimaryChange(before, after, c.cct)
			rec.Bucket = Assign(rec.Change, fam)
		} else {
			res.Skipped = append(res.Skipped, Skipped{ImageName: name, Reason: "primary field not numeric in both runs"})
		}
		res.Records = append(res.Records, rec)
	}
	c.log.Info().Int("classified", len(res.Records)).Int("skipped", len(res.Skipped)).
		Str("primary_field", c.primary).Msg("pairs classified")
	return res
}

func (c *Classifier) fieldChanges(p matcher.Pair) map[string]FieldChange {
	if len(c.fields) == 0 {
		return nil
	}
	out := make(map[string]FieldChange, len(c.fields))
	for _, f := range c.fields {
		before, okB := p.RowA.Float(f)
		after, okA := p.RowB.Float(f)
		if !okB || !okA {
			out[f] = FieldChange{}
			continue
		}
		out[f] = FieldChange{
			Before:        before,
			After:         after,
			Change:        after - before,
			ChangePercent: PrimaryChange(before, after, false),
			Numeric:       true,
		}
	}
	return out
}
