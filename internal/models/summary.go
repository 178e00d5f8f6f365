package models

// TableCount is the number of rows stored today in one feed table.
type TableCount struct {
	Feed  Feed
	Count int
}

// Summary holds today's per-table counts in feed order.
type Summary []TableCount

// NewSummary builds a summary for feeds from a table → count mapping.
// Tables missing from counts are reported as zero.
func NewSummary(feeds []Feed, counts map[string]int) Summary {
	s := make(Summary, 0, len(feeds))
	for _, f := range feeds {
		s = append(s, TableCount{Feed: f, Count: counts[f.Table()]})
	}
	return s
}

// Total returns the sum of all table counts.
func (s Summary) Total() int {
	total := 0
	for _, tc := range s {
		total += tc.Count
	}
	return total
}

// Count returns the count for table, or zero if it is not part of the summary.
func (s Summary) Count(table string) int {
	for _, tc := range s {
		if tc.Feed.Table() == table {
			return tc.Count
		}
	}
	return 0
}
