// Package source holds the per-source adapters that turn a query into
// normalized result items.
package source

import (
	"context"
	"net/url"
	"strings"

	"github.com/sells-group/search-report/internal/model"
)

// Source is one information provider.
type Source interface {
	// Name is the canonical lowercase identifier used on the command line.
	Name() string

	// Label is the human-readable section heading. limit is the per-source
	// result limit, shown by ranked sources.
	Label(limit int) string

	// Search returns at most limit items, unique by URL, in source order.
	// The Source field of the items is left empty.
	Search(ctx context.Context, query string, limit int) ([]model.ResultItem, error)
}

// Endpoint locates one source and the language it is queried in.
type Endpoint struct {
	BaseURL  string
	Language string
}

// isAbsoluteHTTP reports whether raw is an absolute http(s) URL with a host.
func isAbsoluteHTTP(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

func trimBase(raw, def string) string {
	if raw == "" {
		raw = def
	}
	return strings.TrimRight(raw, "/")
}
