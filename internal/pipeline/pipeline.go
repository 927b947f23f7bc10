// Package pipeline turns a query and a list of source names into a report.
package pipeline

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/search-report/internal/aggregate"
	"github.com/sells-group/search-report/internal/enrich"
	"github.com/sells-group/search-report/internal/model"
	"github.com/sells-group/search-report/internal/report"
	"github.com/sells-group/search-report/internal/source"
)

// Options controls how sources are queried and combined.
type Options struct {
	// Limit is the per-source result limit.
	Limit int
	// AggregateCap bounds the combined list.
	AggregateCap int
	// MaxConcurrentSources bounds how many sources run at once. 1 runs them
	// strictly one after another in request order.
	MaxConcurrentSources int
	SourceTimeout        time.Duration
	// Deadline bounds the whole run. Sources still running when it passes
	// are reported as empty sections.
	Deadline time.Duration
	// Markdown controls how GenerateReport renders.
	Markdown report.MarkdownOptions
}

// DefaultOptions returns the settings used when none are configured.
func DefaultOptions() Options {
	return Options{
		Limit:                10,
		AggregateCap:         model.DefaultAggregateCap,
		MaxConcurrentSources: 4,
		SourceTimeout:        60 * time.Second,
		Deadline:             180 * time.Second,
	}
}

func (o *Options) applyDefaults() {
	d := DefaultOptions()
	if o.Limit <= 0 {
		o.Limit = d.Limit
	}
	if o.AggregateCap <= 0 {
		o.AggregateCap = d.AggregateCap
	}
	if o.MaxConcurrentSources <= 0 {
		o.MaxConcurrentSources = d.MaxConcurrentSources
	}
	if o.SourceTimeout <= 0 {
		o.SourceTimeout = d.SourceTimeout
	}
	if o.Deadline <= 0 {
		o.Deadline = d.Deadline
	}
}

// Pipeline queries the requested sources, enriches their results and builds
// the combined list.
type Pipeline struct {
	registry *source.Registry
	enricher *enrich.Enricher // nil disables enrichment
	opts     Options
	now      func() time.Time
}

// New creates a Pipeline. A nil enricher disables enrichment.
func New(reg *source.Registry, enricher *enrich.Enricher, opts Options) *Pipeline {
	opts.applyDefaults()
	return &Pipeline{
		registry: reg,
		enricher: enricher,
		opts:     opts,
		now:      time.Now,
	}
}

// Options returns the effective options.
func (p *Pipeline) Options() Options {
	return p.opts
}

// request is one entry of the resolved source list.
type request struct {
	name string
	src  source.Source
	err  error
}

// slot is written by exactly one source task.
type slot struct {
	section model.SourceSection
	failure error
}

// Run builds the report for query. names defaults to source.DefaultNames.
// Unknown names and failing sources are recorded as diagnostics; only an
// empty query is an error.
func (p *Pipeline) Run(ctx context.Context, query string, names []string) (*model.Report, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, eris.New("pipeline: query is required")
	}
	if len(names) == 0 {
		names = source.DefaultNames
	}

	log := zap.L().With(zap.String("query", query))
	requests := p.resolve(names)

	rpt := &model.Report{
		ID:          uuid.New().String(),
		Query:       query,
		GeneratedAt: p.now(),
	}

	var runnable []request
	for _, r := range requests {
		if r.err != nil {
			log.Warn("pipeline: skipping source", zap.String("source", r.name), zap.Error(r.err))
			rpt.Diagnostics = append(rpt.Diagnostics, model.Diagnostic{
				Source:  r.name,
				Message: r.err.Error(),
				Err:     r.err,
			})
			continue
		}
		runnable = append(runnable, r)
		rpt.Sources = append(rpt.Sources, r.src.Name())
	}

	slots := p.collect(ctx, query, runnable)

	rpt.Sections = make([]model.SourceSection, len(slots))
	for i, s := range slots {
		rpt.Sections[i] = s.section
		if s.failure != nil {
			rpt.Diagnostics = append(rpt.Diagnostics, model.Diagnostic{
				Source:  s.section.Name,
				Message: s.failure.Error(),
				Err:     s.failure,
			})
		}
	}
	rpt.Aggregated = aggregate.Aggregate(rpt.Sections, p.opts.AggregateCap)

	log.Info("pipeline: report built",
		zap.String("report_id", rpt.ID),
		zap.Int("sections", len(rpt.Sections)),
		zap.Int("items", rpt.TotalItems()),
		zap.Int("aggregated", len(rpt.Aggregated)),
		zap.Int("diagnostics", len(rpt.Diagnostics)),
	)
	return rpt, nil
}

// GenerateReport runs the query and renders the report as Markdown.
func (p *Pipeline) GenerateReport(ctx context.Context, query string, names []string) (string, error) {
	rpt, err := p.Run(ctx, query, names)
	if err != nil {
		return "", err
	}
	return report.Markdown(rpt, p.opts.Markdown), nil
}

// resolve maps requested names to sources in request order. A source named
// more than once (directly or by alias) keeps its first position only.
func (p *Pipeline) resolve(names []string) []request {
	var out []request
	seen := make(map[string]bool)
	for _, raw := range names {
		name := strings.ToLower(strings.TrimSpace(raw))
		if name == "" {
			continue
		}
		src, err := p.registry.Lookup(name)
		if err != nil {
			out = append(out, request{name: name, err: err})
			continue
		}
		if seen[src.Name()] {
			continue
		}
		seen[src.Name()] = true
		out = append(out, request{name: name, src: src})
	}
	return out
}

// collect runs one task per source. Every task writes only its own slot,
// so the result is in request order regardless of completion order.
func (p *Pipeline) collect(ctx context.Context, query string, requests []request) []slot {
	slots := make([]slot, len(requests))
	for i, r := range requests {
		slots[i].section = model.SourceSection{
			Name:  r.src.Name(),
			Label: r.src.Label(p.opts.Limit),
			Items: []model.ResultItem{},
		}
	}

	ctx, cancel := context.WithTimeout(ctx, p.opts.Deadline)
	defer cancel()

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.opts.MaxConcurrentSources)
	for i, r := range requests {
		g.Go(func() error {
			items, err := p.runSource(gctx, r.src, query)
			if err != nil {
				slots[i].section.Err = err
				slots[i].failure = err
				return nil
			}
			slots[i].section.Items = items
			return nil
		})
	}
	_ = g.Wait()

	return slots
}

func (p *Pipeline) runSource(ctx context.Context, src source.Source, query string) ([]model.ResultItem, error) {
	log := zap.L().With(zap.String("source", src.Name()))
	if err := ctx.Err(); err != nil {
		return nil, eris.Wrapf(err, "pipeline: %s not started", src.Name())
	}

	ctx, cancel := context.WithTimeout(ctx, p.opts.SourceTimeout)
	defer cancel()

	start := time.Now()
	items, err := src.Search(ctx, query, p.opts.Limit)
	if err != nil {
		log.Warn("pipeline: source failed, section left empty",
			zap.Duration("elapsed", time.Since(start)),
			zap.Error(err),
		)
		return nil, eris.Wrapf(err, "pipeline: search %s", src.Name())
	}
	if items == nil {
		items = []model.ResultItem{}
	}

	if p.enricher != nil && len(items) > 0 {
		items = p.enricher.Enrich(ctx, items)
	}

	log.Debug("pipeline: source done",
		zap.Int("count", len(items)),
		zap.Duration("elapsed", time.Since(start)),
	)
	return items, nil
}
