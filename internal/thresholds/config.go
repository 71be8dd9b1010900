// Package thresholds holds the change-magnitude thresholds shared by the analyzers and
// classifiers, persists them as YAML and broadcasts every accepted update.
package thresholds

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidThresholds is wrapped by every ValidationError.
var ErrInvalidThresholds = errors.New("invalid thresholds")

// Family is one set of bucket boundaries.
type Family struct {
	SmallMax  float64 `yaml:"small_max" json:"small_max"`
	MediumMin float64 `yaml:"medium_min" json:"medium_min"`
	MediumMax float64 `yaml:"medium_max" json:"medium_max"`
	LargeMin  float64 `yaml:"large_min" json:"large_min"`
}

// Config groups the CCT family (absolute Kelvin deltas) and the percentage family.
type Config struct {
	CCT        Family `yaml:"cct" json:"cct"`
	Percentage Family `yaml:"percentage" json:"percentage"`
}

// Default returns the built-in thresholds.
func Default() Config {
	return Config{
		CCT:        Family{SmallMax: 100, MediumMin: 100, MediumMax: 500, LargeMin: 500},
		Percentage: Family{SmallMax: 1, MediumMin: 1, MediumMax: 10, LargeMin: 10},
	}
}

// ValidationError lists every violated rule.
type ValidationError struct {
	Problems []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%v: %s", ErrInvalidThresholds, strings.Join(e.Problems, "; "))
}

func (e *ValidationError) Unwrap() error { return ErrInvalidThresholds }

func (f Family) problems(name string) []string {
	var out []string
	if f.SmallMax <= 0 {
		out = append(out, name+".small_max must be positive")
	}
	if f.MediumMin <= 0 {
		out = append(out, name+".medium_min must be positive")
	}
	if f.MediumMax < f.MediumMin {
		out = append(out, name+".medium_max must be >= medium_min")
	}
	if f.LargeMin < f.MediumMax {
		out = append(out, name+".large_min must be >= medium_max")
	}
	return out
}

// Validate checks both families and returns a *ValidationError on failure.
func (c Config) Validate() error {
	problems := append(c.CCT.problems("cct"), c.Percentage.problems("percentage")...)
	if len(problems) > 0 {
		return &ValidationError{Problems: problems}
	}
	return nil
}

// Family returns the family by name ("cct" or "percentage").
func (c Config) Family(name string) (Family, bool) {
	switch strings.ToLower(name) {
	case "cct":
		return c.CCT, true
	case "percentage", "percent":
		return c.Percentage, true
	}
	return Family{}, false
}

// With returns a copy of c with family.key set to value, e.g. "cct.large_min".
func (c Config) With(key string, value float64) (Config, error) {
	famName, field, ok := strings.Cut(strings.ToLower(key), ".")
	if !ok {
		return c, fmt.Errorf("threshold key must look like <family>.<field>: %q", key)
	}
	var fam *Family
	switch famName {
	case "cct":
		fam = &c.CCT
	case "percentage", "percent":
		fam = &c.Percentage
	default:
		return c, fmt.Errorf("unknown threshold family %q", famName)
	}
	switch field {
	case "small_max":
		fam.SmallMax = value
	case "medium_min":
		fam.MediumMin = value
	case "medium_max":
		fam.MediumMax = value
	case "large_min":
		fam.LargeMin = value
	default:
		return c, fmt.Errorf("unknown threshold field %q", field)
	}
	return c, nil
}
