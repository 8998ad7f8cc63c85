package core

import "strings"

// regionKeywords mark a column as the region dimension.
var regionKeywords = []string{"region", "country", "nation", "area"}

// ResolveRegionColumn returns the first column, in declared order, whose
// lowercased name contains a region keyword.
// Returns false when no column matches; callers then fall back to
// aggregate-only views.
func ResolveRegionColumn(schema []string) (string, bool) {
	for _, col := range schema {
		name := strings.ToLower(col)
		for _, kw := range regionKeywords {
			if strings.Contains(name, kw) {
				return col, true
			}
		}
	}
	return "", false
}
