package source

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/rotisserie/eris"

	"github.com/sells-group/search-report/internal/fetcher"
	"github.com/sells-group/search-report/internal/htmltext"
	"github.com/sells-group/search-report/internal/model"
)

// NameGoogle is the canonical name of the web-search source.
const NameGoogle = "google"

const (
	DefaultGoogleBaseURL  = "https://www.google.com"
	DefaultSearchLanguage = "zh-CN"
)

// Google scrapes the web search results page.
type Google struct {
	transport fetcher.Transport
	baseURL   string
	language  string
}

// NewGoogle creates the web-search adapter.
func NewGoogle(t fetcher.Transport, ep Endpoint) *Google {
	lang := ep.Language
	if lang == "" {
		lang = DefaultSearchLanguage
	}
	return &Google{transport: t, baseURL: trimBase(ep.BaseURL, DefaultGoogleBaseURL), language: lang}
}

func (g *Google) Name() string { return NameGoogle }

func (g *Google) Label(limit int) string {
	return fmt.Sprintf("Google Search (top %d)", limit)
}

// Search fetches one results page and parses its result blocks.
func (g *Google) Search(ctx context.Context, query string, limit int) ([]model.ResultItem, error) {
	page, err := g.transport.FetchText(ctx, g.baseURL+"/search", url.Values{
		"q":  {query},
		"hl": {g.language},
	})
	if err != nil {
		return nil, eris.Wrap(err, "google: results page")
	}

	items, err := parseGoogleResults(page, limit)
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		if blocked, kind := fetcher.DetectBlock(page); blocked {
			return nil, &model.ParseError{Source: NameGoogle, Reason: fmt.Sprintf("results page blocked (%s)", kind)}
		}
	}
	return items, nil
}

func parseGoogleResults(page string, limit int) ([]model.ResultItem, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(page))
	if err != nil {
		return nil, &model.ParseError{Source: NameGoogle, Reason: "parse results page", Err: err}
	}

	var items []model.ResultItem
	seen := model.URLSet{}
	doc.Find("div.g").EachWithBreak(func(_ int, block *goquery.Selection) bool {
		if len(items) >= limit {
			return false
		}
		titleSel := block.Find("h3").First()
		linkSel := block.Find("a").First()
		if titleSel.Length() == 0 || linkSel.Length() == 0 {
			return true
		}

		href := unwrapRedirect(linkSel.AttrOr("href", ""))
		if !isAbsoluteHTTP(href) {
			return true
		}
		title := htmltext.Collapse(titleSel.Text())
		if title == "" || !seen.Add(href) {
			return true
		}

		items = append(items, model.ResultItem{
			Title:   title,
			URL:     href,
			Snippet: htmltext.Text(block.Find("div.VwiC3b").First()),
		})
		return len(items) < limit
	})
	return items, nil
}

// unwrapRedirect extracts the target of a "/url?q=<target>" result wrapper.
// Any other href is returned unchanged.
func unwrapRedirect(href string) string {
	href = strings.TrimSpace(href)
	u, err := url.Parse(href)
	if err != nil || u.Path != "/url" {
		return href
	}
	if u.Host != "" && !strings.Contains(u.Hostname(), "google.") {
		return href
	}
	q := u.Query()
	if target := q.Get("q"); target != "" {
		return target
	}
	return q.Get("url")
}
