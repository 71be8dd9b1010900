package ingest

import "fmt"

// KeyReport summarizes the quality of a join-key column.
type KeyReport struct {
	Column     string   `json:"column"`
	Total      int      `json:"total"`
	Missing    int      `json:"missing"`
	Duplicates int      `json:"duplicates"`
	Unique     int      `json:"unique"`
	Warnings   []string `json:"warnings,omitempty"`
}

// ValidateMatchColumn inspects the join-key column of t. Problems are reported as
// warnings; ok is false only when the column does not exist.
func ValidateMatchColumn(t *Table, column string) (rep KeyReport, ok bool) {
	name, found := t.Lookup(column)
	rep.Column = column
	if !found {
		rep.Warnings = append(rep.Warnings, fmt.Sprintf("column %q not found", column))
		return rep, false
	}
	rep.Column = name
	counts := make(map[string]int)
	for _, v := range t.Column(name) {
		rep.Total++
		if v.IsMissing() || v.Text() == "" {
			rep.Missing++
			continue
		}
		counts[v.Text()]++
	}
	rep.Unique = len(counts)
	for _, n := range counts {
		if n > 1 {
			rep.Duplicates += n - 1
		}
	}
	if rep.Missing > 0 {
		rep.Warnings = append(rep.Warnings, fmt.Sprintf("%d rows have an empty %s", rep.Missing, name))
	}
	if rep.Duplicates > 0 {
		rep.Warnings = append(rep.Warnings, fmt.Sprintf("%d duplicate values in %s", rep.Duplicates, name))
	}
	return rep, true
}
