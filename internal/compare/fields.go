package compare

import (
	"strings"

	"github.com/KaramelBytes/imgdiff/internal/ingest"
)

// FieldIssues lists selected fields that cannot be analyzed.
type FieldIssues struct {
	MissingInA []string `json:"missing_in_a,omitempty"`
	MissingInB []string `json:"missing_in_b,omitempty"`
	NonNumeric []string `json:"non_numeric,omitempty"`
	Valid      []string `json:"valid"`
}

// OK reports whether every selected field is usable.
func (f FieldIssues) OK() bool {
	return len(f.MissingInA) == 0 && len(f.MissingInB) == 0 && len(f.NonNumeric) == 0
}

// ValidateFields checks that each field exists in both tables and holds at least
// one numeric value in each.
func ValidateFields(a, b *ingest.Table, fields []string) FieldIssues {
	var out FieldIssues
	for _, f := range fields {
		colA, okA := a.Lookup(f)
		colB, okB := b.Lookup(f)
		if !okA {
			out.MissingInA = append(out.MissingInA, f)
		}
		if !okB {
			out.MissingInB = append(out.MissingInB, f)
		}
		if !okA || !okB {
			continue
		}
		if !hasNumber(a.Column(colA)) || !hasNumber(b.Column(colB)) {
			out.NonNumeric = append(out.NonNumeric, f)
			continue
		}
		out.Valid = append(out.Valid, f)
	}
	return out
}

// NumericColumns returns the columns of a, except skip, that hold numbers in
// both tables. Column order follows a.
func NumericColumns(a, b *ingest.Table, skip string) []string {
	var out []string
	for _, c := range a.Columns() {
		if skip != "" && strings.EqualFold(c, skip) {
			continue
		}
		colB, ok := b.Lookup(c)
		if !ok {
			continue
		}
		if hasNumber(a.Column(c)) && hasNumber(b.Column(colB)) {
			out = append(out, c)
		}
	}
	return out
}

func hasNumber(vals []ingest.Value) bool {
	for _, v := range vals {
		if v.Kind() == ingest.KindNumber {
			return true
		}
	}
	return false
}
