// Package htmltext extracts plain text from parsed HTML.
package htmltext

import (
	"strings"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
	"github.com/rotisserie/eris"
	"golang.org/x/net/html"
)

// NoiseSelector matches elements whose text never belongs in an excerpt.
const NoiseSelector = "script, style, noscript"

// Text returns the text content of sel with every text node separated by a
// space and all whitespace runs collapsed to one space.
func Text(sel *goquery.Selection) string {
	if sel == nil {
		return ""
	}
	var b strings.Builder
	stack := make([]*html.Node, 0, len(sel.Nodes))
	for i := len(sel.Nodes) - 1; i >= 0; i-- {
		stack = append(stack, sel.Nodes[i])
	}
	for len(stack) > 0 {
		n := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if n.Type == html.TextNode {
			b.WriteString(n.Data)
			b.WriteByte(' ')
			continue
		}
		for c := n.LastChild; c != nil; c = c.PrevSibling {
			stack = append(stack, c)
		}
	}
	return Collapse(b.String())
}

// Collapse trims s and replaces every whitespace run with a single space.
func Collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// Truncate returns the first n characters (runes) of s.
func Truncate(s string, n int) string {
	if n <= 0 {
		return ""
	}
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	i := 0
	for pos := range s {
		if i == n {
			return s[:pos]
		}
		i++
	}
	return s
}

// Excerpt parses an HTML page, drops script/style/noscript content and
// returns the first maxChars characters of its collapsed text.
func Excerpt(page string, maxChars int) (string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(page))
	if err != nil {
		return "", eris.Wrap(err, "htmltext: parse page")
	}
	doc.Find(NoiseSelector).Remove()
	return Truncate(Text(doc.Selection), maxChars), nil
}
