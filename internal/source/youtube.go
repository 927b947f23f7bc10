package source

import (
	"context"
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/tidwall/gjson"

	"github.com/sells-group/search-report/internal/fetcher"
	"github.com/sells-group/search-report/internal/model"
)

// NameYouTube is the canonical name of the video-platform source.
const NameYouTube = "youtube"

// DefaultYouTubeBaseURL is the video platform searched when none is configured.
const DefaultYouTubeBaseURL = "https://www.youtube.com"

// initialDataPattern locates the assignment of the embedded results object:
// a plain or var assignment, window.ytInitialData, or window["ytInitialData"].
var initialDataPattern = regexp.MustCompile(`(?:\bytInitialData|window\[["']ytInitialData["']\])\s*=\s*\{`)

// YouTube extracts video results from the JSON state embedded in the search
// results page.
type YouTube struct {
	transport fetcher.Transport
	baseURL   string
	language  string
}

// NewYouTube creates the video-platform adapter.
func NewYouTube(t fetcher.Transport, ep Endpoint) *YouTube {
	lang := ep.Language
	if lang == "" {
		lang = DefaultSearchLanguage
	}
	return &YouTube{transport: t, baseURL: trimBase(ep.BaseURL, DefaultYouTubeBaseURL), language: lang}
}

func (y *YouTube) Name() string { return NameYouTube }

func (y *YouTube) Label(limit int) string {
	return fmt.Sprintf("YouTube Search (top %d)", limit)
}

// Search fetches the results page. A page without embedded data yields an
// empty list, not an error.
func (y *YouTube) Search(ctx context.Context, query string, limit int) ([]model.ResultItem, error) {
	page, err := y.transport.FetchText(ctx, y.baseURL+"/results", url.Values{
		"search_query": {query},
		"hl":           {y.language},
	})
	if err != nil {
		return nil, eris.Wrap(err, "youtube: results page")
	}

	raw, ok := extractInitialData(page)
	if !ok {
		return []model.ResultItem{}, nil
	}
	if !gjson.Valid(raw) {
		return nil, &model.ParseError{Source: NameYouTube, Reason: "embedded data is not valid JSON"}
	}
	return y.collect(gjson.Parse(raw), limit), nil
}

func (y *YouTube) collect(root gjson.Result, limit int) []model.ResultItem {
	items := []model.ResultItem{}
	seen := model.URLSet{}
	for renderer := range FindKey(root, "videoRenderer") {
		if len(items) >= limit {
			break
		}
		id := renderer.Get("videoId").String()
		if id == "" {
			continue
		}
		title := joinRuns(renderer.Get("title"))
		if title == "" {
			continue
		}
		link := y.baseURL + "/watch?v=" + url.QueryEscape(id)
		if !seen.Add(link) {
			continue
		}

		snippet := joinRuns(renderer.Get("descriptionSnippet"))
		if snippet == "" {
			snippet = joinRuns(renderer.Get("detailedMetadataSnippets.0.snippetText"))
		}
		items = append(items, model.ResultItem{Title: title, URL: link, Snippet: snippet})
	}
	return items
}

// joinRuns concatenates the text of a formatted-string node. Nodes carry
// either a runs array or a single simpleText. Only the ends are trimmed.
func joinRuns(node gjson.Result) string {
	if !node.Exists() {
		return ""
	}
	var b strings.Builder
	for _, run := range node.Get("runs").Array() {
		b.WriteString(run.Get("text").String())
	}
	if b.Len() == 0 {
		b.WriteString(node.Get("simpleText").String())
	}
	return strings.TrimSpace(b.String())
}

// extractInitialData returns the JSON object assigned to ytInitialData. The
// object end is found by brace matching outside string literals, so a "};"
// inside a string does not cut it short.
func extractInitialData(page string) (string, bool) {
	loc := initialDataPattern.FindStringIndex(page)
	if loc == nil {
		return "", false
	}
	start := loc[1] - 1

	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(page); i++ {
		c := page[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return page[start : i+1], true
			}
		}
	}
	return "", false
}
