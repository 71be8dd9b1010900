package matcher

import "strconv"

// Merged returns a header and one record per pair, joining both rows side by side.
// For each field it emits the two raw values, the change and the change percent;
// derived cells stay empty when a side is not numeric or the percent is undefined.
func (r *Result) Merged(fields []string) ([]string, [][]string) {
	header := []string{"image_name_file1", "image_name_file2", "similarity"}
	for _, f := range fields {
		header = append(header, f+"_file1", f+"_file2", f+"_change", f+"_change_percent")
	}
	records := make([][]string, 0, len(r.Pairs))
	for _, p := range r.Pairs {
		rec := []string{p.FilenameA, p.FilenameB, formatFloat(p.Similarity)}
		for _, f := range fields {
			va, _ := p.RowA.Lookup(f)
			vb, _ := p.RowB.Lookup(f)
			rec = append(rec, va.Text(), vb.Text())
			before, okA := va.Float()
			after, okB := vb.Float()
			if !okA || !okB {
				rec = append(rec, "", "")
				continue
			}
			change := after - before
			pct := ""
			switch {
			case before != 0:
				pct = formatFloat(change / before * 100)
			case change == 0:
				pct = "0"
			}
			rec = append(rec, formatFloat(change), pct)
		}
		records = append(records, rec)
	}
	return header, records
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
