// Package enrich appends an excerpt of each result's linked page to its
// snippet.
package enrich

import (
	"context"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/search-report/internal/fetcher"
	"github.com/sells-group/search-report/internal/htmltext"
	"github.com/sells-group/search-report/internal/model"
	"github.com/sells-group/search-report/internal/resilience"
)

const (
	DefaultMaxChars    = 200
	DefaultConcurrency = 4
)

// Options tunes an Enricher.
type Options struct {
	MaxChars    int
	Concurrency int
}

// Enricher fetches result pages and folds their opening text into the
// result snippets.
type Enricher struct {
	transport fetcher.Transport
	opts      Options
}

// New creates an Enricher. Zero options take the package defaults.
func New(t fetcher.Transport, opts Options) *Enricher {
	if opts.MaxChars <= 0 {
		opts.MaxChars = DefaultMaxChars
	}
	if opts.Concurrency <= 0 {
		opts.Concurrency = DefaultConcurrency
	}
	return &Enricher{transport: t, opts: opts}
}

// Enrich returns a copy of items in the same order. An item whose page
// cannot be fetched, or has no text, is returned unchanged.
func (e *Enricher) Enrich(ctx context.Context, items []model.ResultItem) []model.ResultItem {
	out := make([]model.ResultItem, len(items))
	copy(out, items)
	if len(out) == 0 {
		return out
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.opts.Concurrency)
	for i := range out {
		g.Go(func() error {
			excerpt := e.excerpt(gctx, out[i].URL)
			if excerpt != "" {
				out[i].Snippet = strings.TrimSpace(out[i].Snippet + " " + excerpt)
			}
			return nil
		})
	}
	_ = g.Wait()

	return out
}

func (e *Enricher) excerpt(ctx context.Context, rawURL string) string {
	res := resilience.TryOrDefault(ctx, func(ctx context.Context) (string, error) {
		page, err := e.transport.FetchText(ctx, rawURL, nil)
		if err != nil {
			return "", err
		}
		return htmltext.Excerpt(page, e.opts.MaxChars)
	}, "")
	if res.UsedDefault() {
		zap.L().Debug("enrich: page skipped", zap.String("url", rawURL), zap.Error(res.Err))
	}
	return res.Value
}
