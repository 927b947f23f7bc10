package report

import (
	"fmt"
	"html"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/sells-group/search-report/internal/model"
)

// NoResults is printed in place of an empty table.
const NoResults = "No results, or access was restricted."

// MarkdownOptions tunes Markdown rendering.
type MarkdownOptions struct {
	// Title overrides the document heading.
	Title string
	// FrontMatter prepends a YAML metadata block.
	FrontMatter bool
	// Diagnostics appends a section listing skipped and failed sources.
	Diagnostics bool
}

const defaultTitle = "Search Report"

type frontMatter struct {
	ID          string    `yaml:"id"`
	Query       string    `yaml:"query"`
	Sources     []string  `yaml:"sources"`
	GeneratedAt time.Time `yaml:"generated_at"`
	Items       int       `yaml:"items"`
	Aggregated  int       `yaml:"aggregated"`
}

// Markdown renders the combined table followed by one table per section.
func Markdown(rpt *model.Report, opts MarkdownOptions) string {
	var b strings.Builder

	if opts.FrontMatter {
		fm, err := yaml.Marshal(frontMatter{
			ID:          rpt.ID,
			Query:       rpt.Query,
			Sources:     rpt.Sources,
			GeneratedAt: rpt.GeneratedAt,
			Items:       rpt.TotalItems(),
			Aggregated:  len(rpt.Aggregated),
		})
		if err == nil {
			b.WriteString("---\n")
			b.Write(fm)
			b.WriteString("---\n\n")
		}
	}

	title := opts.Title
	if title == "" {
		title = defaultTitle
	}
	fmt.Fprintf(&b, "# %s\n\n", title)
	fmt.Fprintf(&b, "- Query: %s\n", rpt.Query)
	fmt.Fprintf(&b, "- Generated: %s\n\n", rpt.GeneratedAt.Format(time.DateOnly))

	b.WriteString("## Combined Results\n\n")
	if len(rpt.Aggregated) == 0 {
		b.WriteString(NoResults + "\n\n")
	} else {
		b.WriteString("| # | Source | Title | Snippet | Link |\n")
		b.WriteString("| --- | --- | --- | --- | --- |\n")
		for i, it := range rpt.Aggregated {
			fmt.Fprintf(&b, "| %d | %s | %s | %s | %s |\n",
				i+1, cell(it.Source), cell(it.Title), snippetCell(it.Snippet), it.URL)
		}
		b.WriteString("\n")
	}

	for _, s := range rpt.Sections {
		fmt.Fprintf(&b, "## %s\n\n", s.Label)
		if s.Empty() {
			b.WriteString(NoResults + "\n\n")
			continue
		}
		b.WriteString("| # | Title | Snippet | Link |\n")
		b.WriteString("| --- | --- | --- | --- |\n")
		for i, it := range s.Items {
			fmt.Fprintf(&b, "| %d | %s | %s | %s |\n",
				i+1, cell(it.Title), snippetCell(it.Snippet), it.URL)
		}
		b.WriteString("\n")
	}

	if opts.Diagnostics && len(rpt.Diagnostics) > 0 {
		b.WriteString("## Diagnostics\n\n")
		for _, d := range rpt.Diagnostics {
			fmt.Fprintf(&b, "- %s: %s\n", d.Source, d.Message)
		}
		b.WriteString("\n")
	}

	return strings.TrimRight(b.String(), "\n") + "\n"
}

// cell keeps a value on one table row: pipes and line breaks become spaces.
func cell(s string) string {
	return strings.NewReplacer("|", " ", "\r", " ", "\n", " ").Replace(s)
}

func snippetCell(s string) string {
	return cell(snippetText(s))
}

// snippetText decodes entities left in scraped snippets.
func snippetText(s string) string {
	return html.UnescapeString(s)
}
