package pipeline

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/search-report/internal/enrich"
	"github.com/sells-group/search-report/internal/fetcher/mocks"
	"github.com/sells-group/search-report/internal/model"
	"github.com/sells-group/search-report/internal/report"
	"github.com/sells-group/search-report/internal/source"
)

// fakeSource returns fixed items, or blocks until its context ends when
// block is set.
type fakeSource struct {
	name  string
	label string
	items []model.ResultItem
	err   error
	delay time.Duration
	block bool

	calls  atomic.Int32
	onRun  func()
	onDone func()
}

func (f *fakeSource) Name() string       { return f.name }
func (f *fakeSource) Label(_ int) string { return f.label }

func (f *fakeSource) Search(ctx context.Context, _ string, limit int) ([]model.ResultItem, error) {
	f.calls.Add(1)
	if f.onRun != nil {
		f.onRun()
	}
	if f.onDone != nil {
		defer f.onDone()
	}
	if f.block {
		<-ctx.Done()
		return nil, &model.TransportError{URL: f.name, Err: ctx.Err()}
	}
	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return nil, &model.TransportError{URL: f.name, Err: ctx.Err()}
		}
	}
	if f.err != nil {
		return nil, f.err
	}
	if len(f.items) > limit {
		return f.items[:limit], nil
	}
	return f.items, nil
}

func newRegistry(sources ...*fakeSource) *source.Registry {
	r := source.NewRegistry()
	for _, s := range sources {
		r.Register(s)
	}
	return r
}

func TestRun_UnknownSourceIsDiagnosed(t *testing.T) {
	wiki := &fakeSource{name: "wikipedia", label: "Wikipedia", items: []model.ResultItem{{Title: "A", URL: "u1"}}}
	mlb := &fakeSource{name: "mlb", label: "MLB.com", items: []model.ResultItem{{Title: "B", URL: "u2"}}}
	p := New(newRegistry(wiki, mlb), nil, Options{})

	rpt, err := p.Run(context.Background(), "Ohtani", []string{"wikipedia", "bing", "mlb"})
	require.NoError(t, err)

	require.Len(t, rpt.Sections, 2)
	assert.Equal(t, "Wikipedia", rpt.Sections[0].Label)
	assert.Equal(t, "MLB.com", rpt.Sections[1].Label)
	assert.Equal(t, []string{"wikipedia", "mlb"}, rpt.Sources)

	require.Len(t, rpt.Diagnostics, 1)
	assert.Equal(t, "bing", rpt.Diagnostics[0].Source)
	assert.True(t, model.IsUnknownSource(rpt.Diagnostics[0].Err))

	assert.Equal(t, []model.ResultItem{
		{Source: "Wikipedia", Title: "A", URL: "u1"},
		{Source: "MLB.com", Title: "B", URL: "u2"},
	}, rpt.Aggregated)
	assert.NotEmpty(t, rpt.ID)
}

func TestRun_EmptyQuery(t *testing.T) {
	p := New(newRegistry(), nil, Options{})
	_, err := p.Run(context.Background(), "   ", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "query is required")
}

func TestRun_PrimaryFailureDegradesToEmptySection(t *testing.T) {
	wiki := &fakeSource{name: "wikipedia", label: "Wikipedia", err: &model.ParseError{Source: "wikipedia", Reason: "bad payload"}}
	google := &fakeSource{name: "google", label: "Google", items: []model.ResultItem{{Title: "G", URL: "g1"}}}
	p := New(newRegistry(wiki, google), nil, Options{})

	rpt, err := p.Run(context.Background(), "q", []string{"wikipedia", "google"})
	require.NoError(t, err)

	require.Len(t, rpt.Sections, 2)
	assert.True(t, rpt.Sections[0].Empty())
	assert.True(t, rpt.Sections[0].Failed())
	assert.NotNil(t, rpt.Sections[0].Items)
	assert.Len(t, rpt.Sections[1].Items, 1)

	require.Len(t, rpt.Diagnostics, 1)
	assert.Equal(t, "wikipedia", rpt.Diagnostics[0].Source)
	assert.True(t, model.IsParseError(rpt.Diagnostics[0].Err))
}

func TestRun_RequestOrderNotCompletionOrder(t *testing.T) {
	slow := &fakeSource{name: "slow", label: "Slow", delay: 80 * time.Millisecond, items: []model.ResultItem{{Title: "S", URL: "x"}}}
	fast := &fakeSource{name: "fast", label: "Fast", items: []model.ResultItem{{Title: "F", URL: "x"}, {Title: "F2", URL: "y"}}}
	p := New(newRegistry(slow, fast), nil, Options{MaxConcurrentSources: 2})

	rpt, err := p.Run(context.Background(), "q", []string{"slow", "fast"})
	require.NoError(t, err)

	assert.Equal(t, "Slow", rpt.Sections[0].Label)
	assert.Equal(t, "Fast", rpt.Sections[1].Label)
	require.Len(t, rpt.Aggregated, 2)
	assert.Equal(t, "Slow", rpt.Aggregated[0].Source)
	assert.Equal(t, "S", rpt.Aggregated[0].Title)
	assert.Equal(t, "y", rpt.Aggregated[1].URL)
}

func TestRun_DuplicateNamesRunOnce(t *testing.T) {
	wiki := &fakeSource{name: "wikipedia", label: "Wikipedia", items: []model.ResultItem{{Title: "A", URL: "u1"}}}
	r := source.NewRegistry()
	r.Register(wiki, "encyclopedia")
	p := New(r, nil, Options{})

	rpt, err := p.Run(context.Background(), "q", []string{"wikipedia", "Encyclopedia", " WIKIPEDIA "})
	require.NoError(t, err)
	assert.Len(t, rpt.Sections, 1)
	assert.Equal(t, int32(1), wiki.calls.Load())
}

func TestRun_SourceTimeout(t *testing.T) {
	stuck := &fakeSource{name: "stuck", label: "Stuck", block: true}
	ok := &fakeSource{name: "ok", label: "OK", items: []model.ResultItem{{Title: "T", URL: "u"}}}
	p := New(newRegistry(stuck, ok), nil, Options{SourceTimeout: 50 * time.Millisecond})

	start := time.Now()
	rpt, err := p.Run(context.Background(), "q", []string{"stuck", "ok"})
	require.NoError(t, err)
	assert.Less(t, time.Since(start), 2*time.Second)

	assert.True(t, rpt.Sections[0].Failed())
	assert.Len(t, rpt.Sections[1].Items, 1)
	require.Len(t, rpt.Diagnostics, 1)
	assert.True(t, errors.Is(rpt.Diagnostics[0].Err, context.DeadlineExceeded))
}

func TestRun_OverallDeadline(t *testing.T) {
	a := &fakeSource{name: "a", label: "A", block: true}
	b := &fakeSource{name: "b", label: "B", block: true}
	p := New(newRegistry(a, b), nil, Options{
		SourceTimeout: time.Minute,
		Deadline:      60 * time.Millisecond,
	})

	rpt, err := p.Run(context.Background(), "q", []string{"a", "b"})
	require.NoError(t, err)
	require.Len(t, rpt.Sections, 2)
	for _, s := range rpt.Sections {
		assert.True(t, s.Empty())
	}
	assert.Len(t, rpt.Diagnostics, 2)
}

func TestRun_SequentialRunsInRequestOrder(t *testing.T) {
	var mu sync.Mutex
	var order []string

	mk := func(name string) *fakeSource {
		s := &fakeSource{name: name, label: strings.ToUpper(name), delay: 10 * time.Millisecond,
			items: []model.ResultItem{{Title: name, URL: name}}}
		s.onRun = func() {
			mu.Lock()
			order = append(order, name)
			mu.Unlock()
		}
		return s
	}
	p := New(newRegistry(mk("a"), mk("b"), mk("c")), nil, Options{MaxConcurrentSources: 1})

	rpt, err := p.Run(context.Background(), "q", []string{"c", "a", "b"})
	require.NoError(t, err)
	assert.Equal(t, []string{"c", "a", "b"}, order)
	assert.Equal(t, []string{"c", "a", "b"}, rpt.Sources)
}

func TestRun_BoundedParallelism(t *testing.T) {
	var inflight, peak atomic.Int32
	var fakes []*fakeSource
	var names []string
	for _, n := range []string{"a", "b", "c", "d", "e", "f"} {
		s := &fakeSource{name: n, label: n, delay: 30 * time.Millisecond}
		s.onRun = func() {
			cur := inflight.Add(1)
			for {
				p := peak.Load()
				if cur <= p || peak.CompareAndSwap(p, cur) {
					break
				}
			}
		}
		s.onDone = func() { inflight.Add(-1) }
		fakes = append(fakes, s)
		names = append(names, n)
	}
	p := New(newRegistry(fakes...), nil, Options{MaxConcurrentSources: 2})

	_, err := p.Run(context.Background(), "q", names)
	require.NoError(t, err)
	assert.LessOrEqual(t, peak.Load(), int32(2))
}

func TestRun_DefaultSourceList(t *testing.T) {
	var fakes []*fakeSource
	for _, n := range source.DefaultNames {
		fakes = append(fakes, &fakeSource{name: n, label: n})
	}
	p := New(newRegistry(fakes...), nil, Options{})

	rpt, err := p.Run(context.Background(), "q", nil)
	require.NoError(t, err)
	assert.Equal(t, source.DefaultNames, rpt.Sources)
	for _, f := range fakes {
		assert.Equal(t, int32(1), f.calls.Load())
	}
}

func TestRun_EnrichesSections(t *testing.T) {
	tr := mocks.NewMockTransport(t)
	tr.On("FetchText", mock.Anything, "https://a.example/", mock.Anything).Return("<p>page text</p>", nil)

	src := &fakeSource{name: "s", label: "S", items: []model.ResultItem{{Title: "A", URL: "https://a.example/", Snippet: "orig"}}}
	p := New(newRegistry(src), enrich.New(tr, enrich.Options{}), Options{})

	rpt, err := p.Run(context.Background(), "q", []string{"s"})
	require.NoError(t, err)
	assert.Equal(t, "orig page text", rpt.Sections[0].Items[0].Snippet)
	assert.Equal(t, "orig page text", rpt.Aggregated[0].Snippet)
}

func TestRun_AggregateCap(t *testing.T) {
	src := &fakeSource{name: "s", label: "S"}
	for _, u := range []string{"a", "b", "c", "d"} {
		src.items = append(src.items, model.ResultItem{Title: u, URL: u})
	}
	p := New(newRegistry(src), nil, Options{AggregateCap: 2})

	rpt, err := p.Run(context.Background(), "q", []string{"s"})
	require.NoError(t, err)
	assert.Len(t, rpt.Sections[0].Items, 4)
	assert.Len(t, rpt.Aggregated, 2)
}

func TestGenerateReport(t *testing.T) {
	wiki := &fakeSource{name: "wikipedia", label: "Wikipedia", items: []model.ResultItem{{Title: "A", URL: "u1", Snippet: "sA"}}}
	p := New(newRegistry(wiki), nil, Options{})
	p.now = func() time.Time { return time.Date(2026, 10, 19, 0, 0, 0, 0, time.UTC) }

	md, err := p.GenerateReport(context.Background(), "Ohtani", []string{"wikipedia", "bing"})
	require.NoError(t, err)
	assert.Contains(t, md, "- Query: Ohtani\n")
	assert.Contains(t, md, "- Generated: 2026-10-19\n")
	assert.Contains(t, md, "| 1 | Wikipedia | A | sA | u1 |")
	assert.Contains(t, md, "## Wikipedia\n")

	_, err = p.GenerateReport(context.Background(), "", nil)
	assert.Error(t, err)
}

func TestGenerateReport_MarkdownOptions(t *testing.T) {
	wiki := &fakeSource{name: "wikipedia", label: "Wikipedia", items: []model.ResultItem{{Title: "A", URL: "u1"}}}
	p := New(newRegistry(wiki), nil, Options{Markdown: report.MarkdownOptions{
		Title:       "Ohtani Brief",
		FrontMatter: true,
		Diagnostics: true,
	}})

	md, err := p.GenerateReport(context.Background(), "Ohtani", []string{"wikipedia", "bing"})
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(md, "---\n"))
	assert.Contains(t, md, "# Ohtani Brief\n")
	assert.Contains(t, md, "## Diagnostics\n")
	assert.Contains(t, md, "- bing: ")
}

func TestNew_Defaults(t *testing.T) {
	p := New(source.NewRegistry(), nil, Options{})
	assert.Equal(t, DefaultOptions(), p.Options())
}
