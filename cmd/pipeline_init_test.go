package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/search-report/internal/config"
	"github.com/sells-group/search-report/internal/report"
	"github.com/sells-group/search-report/internal/source"
)

func testConfig() *config.Config {
	c := &config.Config{}
	c.HTTP.TimeoutSecs = 20
	c.HTTP.MaxAttempts = 1
	c.HTTP.RatePerHost = 10
	c.Sources.Limit = 10
	c.Sources.Default = []string{"wikipedia", "google"}
	c.Enrich.Enabled = true
	c.Enrich.MaxChars = 200
	c.Enrich.Concurrency = 4
	c.Pipeline.AggregateCap = 10
	c.Pipeline.MaxConcurrentSources = 4
	c.Pipeline.SourceTimeoutSecs = 60
	c.Pipeline.DeadlineSecs = 180
	c.Server.Port = 8080
	return c
}

func TestInitPipeline(t *testing.T) {
	env, err := initPipeline(testConfig(), "report", pipelineOverrides{})
	require.NoError(t, err)

	assert.NotNil(t, env.Transport)
	assert.Equal(t, source.DefaultNames, env.Registry.Names())
	opts := env.Pipeline.Options()
	assert.Equal(t, 10, opts.Limit)
	assert.Equal(t, 4, opts.MaxConcurrentSources)
}

func TestInitPipeline_MarkdownFromConfig(t *testing.T) {
	c := testConfig()
	c.Report.Title = "Ohtani Brief"
	c.Report.FrontMatter = true
	c.Report.Diagnostics = true

	env, err := initPipeline(c, "ask", pipelineOverrides{})
	require.NoError(t, err)
	assert.Equal(t, report.MarkdownOptions{Title: "Ohtani Brief", FrontMatter: true, Diagnostics: true},
		env.Pipeline.Options().Markdown)
}

func TestInitPipeline_Overrides(t *testing.T) {
	c := testConfig()
	env, err := initPipeline(c, "report", pipelineOverrides{Limit: 3, Cap: 5, NoEnrich: true, Sequential: true})
	require.NoError(t, err)

	opts := env.Pipeline.Options()
	assert.Equal(t, 3, opts.Limit)
	assert.Equal(t, 5, opts.AggregateCap)
	assert.Equal(t, 1, opts.MaxConcurrentSources)
	assert.False(t, c.Enrich.Enabled)
}

func TestInitPipeline_InvalidConfig(t *testing.T) {
	c := testConfig()
	c.Server.Port = 0
	_, err := initPipeline(c, "serve", pipelineOverrides{})
	assert.Error(t, err)
}

func TestRequestedSources(t *testing.T) {
	c := testConfig()
	assert.Equal(t, []string{"youtube", "mlb"}, requestedSources("YouTube, mlb", c))
	assert.Equal(t, []string{"wikipedia", "google"}, requestedSources("", c))
	assert.Equal(t, source.DefaultNames, requestedSources(" , ", nil))
}
