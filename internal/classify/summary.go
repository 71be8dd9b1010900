package classify

// BucketCount is the size of one bucket and its share of classified records.
type BucketCount struct {
	Bucket  Bucket  `json:"bucket"`
	Count   int     `json:"count"`
	Percent float64 `json:"percent"`
}

// Summary reports bucket sizes for a Result. Skipped counts the no_change records
// whose primary field was not numeric.
type Summary struct {
	PrimaryField string        `json:"primary_field"`
	CCT          bool          `json:"cct"`
	Total        int           `json:"total"`
	Skipped      int           `json:"skipped"`
	Buckets      []BucketCount `json:"buckets"`
}

// Counts returns the number of records per bucket.
func (r *Result) Counts() map[Bucket]int {
	out := make(map[Bucket]int, len(Buckets))
	for _, b := range Buckets {
		out[b] = 0
	}
	for _, rec := range r.Records {
		out[rec.Bucket]++
	}
	return out
}

// Summary returns the per-bucket counts and percentages in Buckets order.
func (r *Result) Summary() Summary {
	s := Summary{PrimaryField: r.PrimaryField, CCT: r.CCT, Total: len(r.Records), Skipped: len(r.Skipped)}
	counts := r.Counts()
	for _, b := range Buckets {
		bc := BucketCount{Bucket: b, Count: counts[b]}
		if s.Total > 0 {
			bc.Percent = float64(bc.Count) / float64(s.Total) * 100
		}
		s.Buckets = append(s.Buckets, bc)
	}
	return s
}
