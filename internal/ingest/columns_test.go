package ingest

import (
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

func TestFuzzyMatch(t *testing.T) {
	cases := []struct {
		col, base string
		want      bool
	}{
		{"SGW_Gray", "SGW_Gray", true},
		{"sgw_gray_value", "SGW_Gray", true},
		{"After  FIR", "After Fir", true},
		{"AfterFir", "After Fir", true},
		{"Image_name", "SGW_Gray", false},
		{"", "SGW_Gray", false},
	}
	for _, tc := range cases {
		if got := FuzzyMatch(tc.col, tc.base); got != tc.want {
			t.Fatalf("FuzzyMatch(%q,%q)=%v", tc.col, tc.base, got)
		}
	}
}

func TestCanonicalizerMap(t *testing.T) {
	c := NewCanonicalizer(nil, zerolog.Nop())
	cols := []string{"Image_name", "SGW_Gray", "Unnamed: 2", "After  FIR", "Unnamed: 4", "SGW_Gray.1"}
	m := c.Map(cols)

	want := []string{"Image_name", "SGW_Gray_R", "SGW_Gray_B", "After Fir_R", "After Fir_B", "SGW_Gray_R_1"}
	if got := strings.Join(m.Display(), "|"); got != strings.Join(want, "|") {
		t.Fatalf("display: %s", got)
	}
	if m.Total != 6 || m.Mapped != 5 || m.Unmapped != 1 {
		t.Fatalf("stats: %+v", m)
	}
	if len(m.BaseFieldsFound) != 2 {
		t.Fatalf("base fields found: %v", m.BaseFieldsFound)
	}
	for orig, disp := range m.OriginalToDisplay {
		if m.DisplayToOriginal[disp] != orig {
			t.Fatalf("maps not inverse for %q -> %q", orig, disp)
		}
	}
	if len(m.DisplayToOriginal) != len(cols) {
		t.Fatalf("reverse map not total: %d", len(m.DisplayToOriginal))
	}
}

func TestCanonicalizeKeepsValues(t *testing.T) {
	tbl, err := NewTable("t", []string{"Image_name", "AGW_Gray", ""}, [][]Value{
		{TextValue("1.jpg"), NumberValue(10), NumberValue(20)},
	})
	if err != nil {
		t.Fatalf("NewTable: %v", err)
	}
	out, m, err := NewCanonicalizer(nil, zerolog.Nop()).Canonicalize(tbl)
	if err != nil {
		t.Fatalf("Canonicalize: %v", err)
	}
	if m.OriginalToDisplay[""] != "AGW_Gray_B" {
		t.Fatalf("blank column mapping: %v", m.OriginalToDisplay)
	}
	if f, ok := out.Rows[0].Float("AGW_Gray_B"); !ok || f != 20 {
		t.Fatalf("AGW_Gray_B = %v %v", f, ok)
	}
	if !tbl.HasColumn("AGW_Gray") {
		t.Fatalf("source table mutated")
	}
}
