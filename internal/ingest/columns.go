package ingest

import (
	"fmt"
	"strings"

	"github.com/rs/zerolog"
)

// DefaultBaseFields are the measurement groups whose paired columns get _R/_B names.
var DefaultBaseFields = []string{
	"SGW_Gray",
	"AGW_Gray",
	"Mix_csalgo",
	"After Fir",
	"After OTP",
	"After FACE Adjust",
	"After GSL Adjust",
}

// ColumnMapping relates original column names to display names.
type ColumnMapping struct {
	// Order lists original names in column order.
	Order             []string          `json:"order"`
	OriginalToDisplay map[string]string `json:"original_to_display"`
	DisplayToOriginal map[string]string `json:"display_to_original"`
	Total             int               `json:"total"`
	Mapped            int               `json:"mapped"`
	Unmapped          int               `json:"unmapped"`
	BaseFieldsFound   []string          `json:"base_fields_found"`
}

// Display returns the display names in column order.
func (m ColumnMapping) Display() []string {
	out := make([]string, len(m.Order))
	for i, o := range m.Order {
		out[i] = m.OriginalToDisplay[o]
	}
	return out
}

// Canonicalizer renames paired measurement columns to {base}_R / {base}_B.
type Canonicalizer struct {
	baseFields []string
	log        zerolog.Logger
}

// NewCanonicalizer uses baseFields, or DefaultBaseFields when empty.
func NewCanonicalizer(baseFields []string, logger zerolog.Logger) *Canonicalizer {
	if len(baseFields) == 0 {
		baseFields = DefaultBaseFields
	}
	return &Canonicalizer{baseFields: append([]string(nil), baseFields...), log: logger}
}

// Map computes the display name of every column.
func (c *Canonicalizer) Map(columns []string) ColumnMapping {
	m := ColumnMapping{
		Order:             append([]string(nil), columns...),
		OriginalToDisplay: make(map[string]string, len(columns)),
		DisplayToOriginal: make(map[string]string, len(columns)),
		Total:             len(columns),
	}
	display := make([]string, len(columns))
	found := map[string]bool{}
	for i := 0; i < len(columns); i++ {
		base, ok := c.matchBase(columns[i])
		if !ok {
			display[i] = columns[i]
			continue
		}
		display[i] = base + "_R"
		m.Mapped++
		if !found[base] {
			found[base] = true
			m.BaseFieldsFound = append(m.BaseFieldsFound, base)
		}
		if i+1 < len(columns) && isPlaceholder(columns[i+1]) {
			display[i+1] = base + "_B"
			m.Mapped++
			i++
		}
	}
	m.Unmapped = m.Total - m.Mapped

	used := make(map[string]bool, len(display))
	for i, name := range display {
		if used[name] {
			base := name
			for n := 1; used[name]; n++ {
				name = fmt.Sprintf("%s_%d", base, n)
			}
		}
		used[name] = true
		m.OriginalToDisplay[columns[i]] = name
		m.DisplayToOriginal[name] = columns[i]
	}
	return m
}

// Canonicalize returns a copy of t with display column names, plus the mapping used.
func (c *Canonicalizer) Canonicalize(t *Table) (*Table, ColumnMapping, error) {
	m := c.Map(t.Columns())
	out, err := t.Rename(m.OriginalToDisplay)
	if err != nil {
		return nil, m, err
	}
	c.log.Debug().Str("file", t.Name).Int("mapped", m.Mapped).Int("unmapped", m.Unmapped).
		Strs("base_fields", m.BaseFieldsFound).Msg("columns canonicalized")
	return out, m, nil
}

func (c *Canonicalizer) matchBase(column string) (string, bool) {
	for _, base := range c.baseFields {
		if FuzzyMatch(column, base) {
			return base, true
		}
	}
	return "", false
}

// FuzzyMatch reports whether column names the base field: equal, containing it, or
// equal once whitespace is removed. Comparison is case-insensitive.
func FuzzyMatch(column, base string) bool {
	col, b := normalizeName(column), normalizeName(base)
	if col == "" || b == "" {
		return false
	}
	if col == b || strings.Contains(col, b) {
		return true
	}
	return strings.ReplaceAll(col, " ", "") == strings.ReplaceAll(b, " ", "")
}

func normalizeName(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}

func isPlaceholder(column string) bool {
	return strings.TrimSpace(column) == "" || strings.Contains(column, "Unnamed")
}
