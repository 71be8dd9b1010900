// Package matcher pairs rows of two pipeline exports by image filename.
package matcher

import (
	"github.com/rs/zerolog"

	"github.com/KaramelBytes/imgdiff/internal/ingest"
)

const (
	// DefaultColumn is the join key of pipeline exports.
	DefaultColumn = "Image_name"
	// DefaultThreshold is the minimum similarity for a pair.
	DefaultThreshold = 0.8
)

// Pair is one matched row of A and B.
type Pair struct {
	IndexA     int        `json:"index_a"`
	IndexB     int        `json:"index_b"`
	RowA       ingest.Row `json:"-"`
	RowB       ingest.Row `json:"-"`
	FilenameA  string     `json:"filename_a"`
	FilenameB  string     `json:"filename_b"`
	Similarity float64    `json:"similarity"`
}

// Unmatched is a row that found no partner.
type Unmatched struct {
	Index    int        `json:"index"`
	Row      ingest.Row `json:"-"`
	Filename string     `json:"filename"`
}

// Result is the outcome of matching two tables.
type Result struct {
	Column     string      `json:"column"`
	Threshold  float64     `json:"threshold"`
	Pairs      []Pair      `json:"pairs"`
	UnmatchedA []Unmatched `json:"unmatched_a"`
	UnmatchedB []Unmatched `json:"unmatched_b"`
	TotalA     int         `json:"total_a"`
	TotalB     int         `json:"total_b"`
	MatchRate  float64     `json:"match_rate"`
}

// Matcher greedily links rows whose filenames are similar enough.
type Matcher struct {
	Column    string
	Threshold float64
	log       zerolog.Logger
}

// New returns a Matcher; empty column and non-positive threshold take the defaults.
func New(column string, threshold float64, logger zerolog.Logger) *Matcher {
	if column == "" {
		column = DefaultColumn
	}
	if threshold <= 0 || threshold > 1 {
		threshold = DefaultThreshold
	}
	return &Matcher{Column: column, Threshold: threshold, log: logger}
}

// Match pairs rows of a and b. Each A row, in order, takes the unconsumed B row with
// the highest similarity at or above the threshold; equal scores keep the earliest B row.
func (m *Matcher) Match(a, b *ingest.Table) (*Result, error) {
	colA, okA := a.Lookup(m.Column)
	colB, okB := b.Lookup(m.Column)
	if !okA || !okB {
		se := &SchemaError{Column: m.Column}
		if !okA {
			se.Tables = append(se.Tables, tableName(a, "A"))
		}
		if !okB {
			se.Tables = append(se.Tables, tableName(b, "B"))
		}
		return nil, se
	}

	namesA := filenames(a, colA)
	namesB := filenames(b, colB)
	res := &Result{Column: m.Column, Threshold: m.Threshold, TotalA: a.Len(), TotalB: b.Len()}
	used := make([]bool, len(namesB))
	for i, na := range namesA {
		best, bestScore := -1, 0.0
		for j, nb := range namesB {
			if used[j] {
				continue
			}
			s := Similarity(na, nb)
			if s >= m.Threshold && (best < 0 || s > bestScore) {
				best, bestScore = j, s
			}
		}
		if best < 0 {
			res.UnmatchedA = append(res.UnmatchedA, Unmatched{Index: i, Row: a.Rows[i], Filename: na})
			continue
		}
		used[best] = true
		res.Pairs = append(res.Pairs, Pair{
			IndexA: i, IndexB: best,
			RowA: a.Rows[i], RowB: b.Rows[best],
			FilenameA: na, FilenameB: namesB[best],
			Similarity: bestScore,
		})
	}
	for j, nb := range namesB {
		if !used[j] {
			res.UnmatchedB = append(res.UnmatchedB, Unmatched{Index: j, Row: b.Rows[j], Filename: nb})
		}
	}
	if denom := max(res.TotalA, res.TotalB); denom > 0 {
		res.MatchRate = float64(len(res.Pairs)) / float64(denom) * 100
	}

	m.log.Info().Int("pairs", len(res.Pairs)).Int("unmatched_a", len(res.UnmatchedA)).
		Int("unmatched_b", len(res.UnmatchedB)).Float64("match_rate", res.MatchRate).Msg("tables matched")
	return res, nil
}

func filenames(t *ingest.Table, column string) []string {
	vals := t.Column(column)
	out := make([]string, len(vals))
	for i, v := range vals {
		out[i] = v.Text()
	}
	return out
}

func tableName(t *ingest.Table, fallback string) string {
	if t.Name != "" {
		return t.Name
	}
	return fallback
}
