// Package aggregate merges source sections into one capped, URL-unique list.
package aggregate

import "github.com/sells-group/search-report/internal/model"

// Aggregate walks sections in order, and items within each section in
// order, appending every first-seen URL tagged with its section label.
// It returns as soon as the list holds limit items; later items and
// sections are not read. limit <= 0 means model.DefaultAggregateCap.
func Aggregate(sections []model.SourceSection, limit int) []model.ResultItem {
	if limit <= 0 {
		limit = model.DefaultAggregateCap
	}

	out := make([]model.ResultItem, 0, limit)
	seen := model.URLSet{}
	for _, section := range sections {
		for _, item := range section.Items {
			if item.URL == "" || !seen.Add(item.URL) {
				continue
			}
			item.Source = section.Label
			out = append(out, item)
			if len(out) >= limit {
				return out
			}
		}
	}
	return out
}
