package main

import (
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/sells-group/search-report/internal/config"
	"github.com/sells-group/search-report/internal/enrich"
	"github.com/sells-group/search-report/internal/fetcher"
	"github.com/sells-group/search-report/internal/pipeline"
	"github.com/sells-group/search-report/internal/report"
	"github.com/sells-group/search-report/internal/source"
)

// pipelineOverrides carries command-line settings that take precedence over
// the loaded config. Zero values leave the config untouched.
type pipelineOverrides struct {
	Limit      int
	Cap        int
	NoEnrich   bool
	Sequential bool
}

// pipelineEnv holds the transport, the source registry and the pipeline
// shared by the report, ask and serve commands.
type pipelineEnv struct {
	Transport *fetcher.HTTPFetcher
	Registry  *source.Registry
	Pipeline  *pipeline.Pipeline
}

// initPipeline validates the config for mode and wires the transport,
// sources, enricher and pipeline from it.
func initPipeline(c *config.Config, mode string, o pipelineOverrides) (*pipelineEnv, error) {
	if o.Limit > 0 {
		c.Sources.Limit = o.Limit
	}
	if o.Cap > 0 {
		c.Pipeline.AggregateCap = o.Cap
	}
	if o.NoEnrich {
		c.Enrich.Enabled = false
	}
	if o.Sequential {
		c.Pipeline.MaxConcurrentSources = 1
	}
	if err := c.Validate(mode); err != nil {
		return nil, err
	}

	transport := fetcher.NewHTTPFetcher(fetcher.HTTPOptions{
		UserAgent:    c.HTTP.UserAgent,
		Timeout:      c.HTTP.Timeout(),
		MaxAttempts:  c.HTTP.MaxAttempts,
		RatePerHost:  rate.Limit(c.HTTP.RatePerHost),
		MaxBodyBytes: c.HTTP.MaxBodyBytes,
	})

	reg := source.NewDefaultRegistry(transport, source.Settings{
		Wikipedia: endpoint(c.Sources.Wikipedia),
		MLB:       endpoint(c.Sources.MLB),
		Google:    endpoint(c.Sources.Google),
		YouTube:   endpoint(c.Sources.YouTube),
	})

	var enricher *enrich.Enricher
	if c.Enrich.Enabled {
		enricher = enrich.New(transport, enrich.Options{
			MaxChars:    c.Enrich.MaxChars,
			Concurrency: c.Enrich.Concurrency,
		})
	}

	p := pipeline.New(reg, enricher, pipeline.Options{
		Limit:                c.Sources.Limit,
		AggregateCap:         c.Pipeline.AggregateCap,
		MaxConcurrentSources: c.Pipeline.MaxConcurrentSources,
		SourceTimeout:        time.Duration(c.Pipeline.SourceTimeoutSecs) * time.Second,
		Deadline:             time.Duration(c.Pipeline.DeadlineSecs) * time.Second,
		Markdown: report.MarkdownOptions{
			Title:       c.Report.Title,
			FrontMatter: c.Report.FrontMatter,
			Diagnostics: c.Report.Diagnostics,
		},
	})

	return &pipelineEnv{Transport: transport, Registry: reg, Pipeline: p}, nil
}

func endpoint(e config.EndpointConfig) source.Endpoint {
	return source.Endpoint{BaseURL: e.BaseURL, Language: e.Language}
}

// requestedSources parses a --sources value, falling back to the configured
// default list.
func requestedSources(raw string, c *config.Config) []string {
	if names := source.ParseNames(raw); len(names) > 0 {
		return names
	}
	if c != nil && len(c.Sources.Default) > 0 {
		return source.ParseNames(strings.Join(c.Sources.Default, ","))
	}
	return source.DefaultNames
}
