package model

// ResultItem is the uniform record every source adapter produces.
type ResultItem struct {
	Title   string `json:"title"`
	URL     string `json:"url"`
	Snippet string `json:"snippet"`
	// Source is attached by the aggregator, never by an adapter.
	Source string `json:"source,omitempty"`
}

// SourceSection is the labeled result list of one requested source.
type SourceSection struct {
	Name  string       `json:"name"`
	Label string       `json:"label"`
	Items []ResultItem `json:"items"`
	// Err explains an empty section (primary fetch failure, timeout).
	Err error `json:"-"`
}

// Empty reports whether the section has no items.
func (s SourceSection) Empty() bool {
	return len(s.Items) == 0
}

// Failed reports whether the section is empty because its source failed.
func (s SourceSection) Failed() bool {
	return s.Err != nil
}

// URLSet tracks URLs already emitted. Adapters use it to keep their output
// unique by URL; the aggregator uses it across sections.
type URLSet map[string]struct{}

// Add marks u as seen and reports whether it was new.
func (s URLSet) Add(u string) bool {
	if _, ok := s[u]; ok {
		return false
	}
	s[u] = struct{}{}
	return true
}

// Has reports whether u was already marked.
func (s URLSet) Has(u string) bool {
	_, ok := s[u]
	return ok
}
