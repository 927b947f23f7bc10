package model

import "time"

// DefaultAggregateCap is the maximum length of the combined list.
const DefaultAggregateCap = 10

// Diagnostic records a non-fatal problem encountered while building a report:
// an unknown source name or a source whose primary fetch failed.
type Diagnostic struct {
	Source  string `json:"source"`
	Message string `json:"message"`
	Err     error  `json:"-"`
}

// Report is the full outcome of one query invocation.
type Report struct {
	ID          string          `json:"id"`
	Query       string          `json:"query"`
	Sources     []string        `json:"sources"`
	GeneratedAt time.Time       `json:"generated_at"`
	Sections    []SourceSection `json:"sections"`
	Aggregated  []ResultItem    `json:"aggregated"`
	Diagnostics []Diagnostic    `json:"diagnostics,omitempty"`
}

// TotalItems returns the number of items across all sections.
func (r *Report) TotalItems() int {
	n := 0
	for _, s := range r.Sections {
		n += len(s.Items)
	}
	return n
}
