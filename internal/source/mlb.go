package source

import (
	"context"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/rotisserie/eris"

	"github.com/sells-group/search-report/internal/fetcher"
	"github.com/sells-group/search-report/internal/htmltext"
	"github.com/sells-group/search-report/internal/model"
)

// NameMLB is the canonical name of the organization-site source.
const NameMLB = "mlb"

// DefaultMLBBaseURL is the organization site searched when none is configured.
const DefaultMLBBaseURL = "https://www.mlb.com"

// MLB scrapes the organization's own search page and keeps every on-site
// link with text. It produces no snippets.
type MLB struct {
	transport fetcher.Transport
	base      *url.URL
}

// NewMLB creates the organization-site adapter.
func NewMLB(t fetcher.Transport, ep Endpoint) *MLB {
	base, err := url.Parse(trimBase(ep.BaseURL, DefaultMLBBaseURL))
	if err != nil || base.Host == "" {
		base, _ = url.Parse(DefaultMLBBaseURL)
	}
	return &MLB{transport: t, base: base}
}

func (m *MLB) Name() string       { return NameMLB }
func (m *MLB) Label(_ int) string { return "MLB.com" }

// Search fetches the site search page and returns its on-site anchors.
func (m *MLB) Search(ctx context.Context, query string, limit int) ([]model.ResultItem, error) {
	page, err := m.transport.FetchText(ctx, m.base.String()+"/search", url.Values{"query": {query}})
	if err != nil {
		return nil, eris.Wrap(err, "mlb: search page")
	}
	return m.parse(page, limit)
}

func (m *MLB) parse(page string, limit int) ([]model.ResultItem, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(page))
	if err != nil {
		return nil, &model.ParseError{Source: NameMLB, Reason: "parse search page", Err: err}
	}

	var items []model.ResultItem
	seen := model.URLSet{}
	doc.Find("a").EachWithBreak(func(_ int, a *goquery.Selection) bool {
		if len(items) >= limit {
			return false
		}
		href := strings.TrimSpace(a.AttrOr("href", ""))
		title := htmltext.Collapse(a.Text())
		if href == "" || title == "" {
			return true
		}
		link, ok := m.resolve(href)
		if !ok || !seen.Add(link) {
			return true
		}
		items = append(items, model.ResultItem{Title: title, URL: link})
		return len(items) < limit
	})
	return items, nil
}

// resolve makes href absolute against the site base and reports whether it
// stays on the site's own host.
func (m *MLB) resolve(href string) (string, bool) {
	if strings.HasPrefix(href, "#") {
		return "", false
	}
	ref, err := url.Parse(href)
	if err != nil {
		return "", false
	}
	abs := m.base.ResolveReference(ref)
	if abs.Scheme != "http" && abs.Scheme != "https" {
		return "", false
	}
	if !strings.EqualFold(abs.Host, m.base.Host) {
		return "", false
	}
	return abs.String(), true
}
