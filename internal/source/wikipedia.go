package source

import (
	"context"
	"net/url"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/search-report/internal/fetcher"
	"github.com/sells-group/search-report/internal/model"
	"github.com/sells-group/search-report/internal/resilience"
)

// NameWikipedia is the canonical name of the encyclopedia source.
const NameWikipedia = "wikipedia"

// DefaultWikipediaBaseURL is the wiki queried when none is configured.
const DefaultWikipediaBaseURL = "https://zh.wikipedia.org"

// Wikipedia searches titles through the MediaWiki opensearch API and fills
// snippets from the REST page summary endpoint.
type Wikipedia struct {
	transport fetcher.Transport
	baseURL   string
}

// NewWikipedia creates the encyclopedia adapter.
func NewWikipedia(t fetcher.Transport, ep Endpoint) *Wikipedia {
	return &Wikipedia{transport: t, baseURL: trimBase(ep.BaseURL, DefaultWikipediaBaseURL)}
}

func (w *Wikipedia) Name() string       { return NameWikipedia }
func (w *Wikipedia) Label(_ int) string { return "Wikipedia" }

// Search pairs opensearch titles and links by position. A failed summary
// lookup leaves that item's snippet empty.
func (w *Wikipedia) Search(ctx context.Context, query string, limit int) ([]model.ResultItem, error) {
	data, err := w.transport.FetchJSON(ctx, w.baseURL+"/w/api.php", url.Values{
		"action":    {"opensearch"},
		"search":    {query},
		"limit":     {strconv.Itoa(limit)},
		"namespace": {"0"},
		"format":    {"json"},
	})
	if err != nil {
		return nil, eris.Wrap(err, "wikipedia: opensearch")
	}

	titles, links := data.Get("1"), data.Get("3")
	if !data.IsArray() || !titles.IsArray() || !links.IsArray() {
		return nil, &model.ParseError{Source: NameWikipedia, Reason: "opensearch payload lacks title/link arrays"}
	}
	ts, ls := titles.Array(), links.Array()
	n := min(len(ts), len(ls))

	items := make([]model.ResultItem, 0, n)
	seen := model.URLSet{}
	for i := range n {
		if len(items) >= limit {
			break
		}
		title := strings.TrimSpace(ts[i].String())
		link := strings.TrimSpace(ls[i].String())
		if title == "" || link == "" || !seen.Add(link) {
			continue
		}

		summary := resilience.TryOrDefault(ctx, func(ctx context.Context) (string, error) {
			return w.summary(ctx, title)
		}, "")
		if summary.UsedDefault() {
			zap.L().Debug("wikipedia: summary unavailable",
				zap.String("title", title),
				zap.Error(summary.Err),
			)
		}

		items = append(items, model.ResultItem{
			Title:   title,
			URL:     link,
			Snippet: summary.Value,
		})
	}
	return items, nil
}

func (w *Wikipedia) summary(ctx context.Context, title string) (string, error) {
	res, err := w.transport.FetchJSON(ctx, w.baseURL+"/api/rest_v1/page/summary/"+url.PathEscape(title), nil)
	if err != nil {
		return "", err
	}
	return res.Get("extract").String(), nil
}
