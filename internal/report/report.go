// Package report renders a model.Report as Markdown, JSON or an XLSX
// workbook.
package report

import (
	"encoding/json"
	"io"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/search-report/internal/model"
)

// Format is an output encoding.
type Format string

const (
	FormatMarkdown Format = "markdown"
	FormatJSON     Format = "json"
	FormatXLSX     Format = "xlsx"
)

// ParseFormat accepts a format name or a common alias ("md").
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "markdown", "md":
		return FormatMarkdown, nil
	case "json":
		return FormatJSON, nil
	case "xlsx", "excel":
		return FormatXLSX, nil
	default:
		return "", eris.Errorf("report: unsupported format %q", s)
	}
}

// Extension returns the file extension for f, including the dot.
func (f Format) Extension() string {
	switch f {
	case FormatJSON:
		return ".json"
	case FormatXLSX:
		return ".xlsx"
	default:
		return ".md"
	}
}

// ContentType returns the MIME type served for f.
func (f Format) ContentType() string {
	switch f {
	case FormatJSON:
		return "application/json; charset=utf-8"
	case FormatXLSX:
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	default:
		return "text/markdown; charset=utf-8"
	}
}

// Write encodes rpt to w in the given format.
func Write(w io.Writer, rpt *model.Report, f Format, opts MarkdownOptions) error {
	switch f {
	case FormatJSON:
		b, err := JSON(rpt)
		if err != nil {
			return err
		}
		_, err = w.Write(b)
		return eris.Wrap(err, "report: write json")
	case FormatXLSX:
		return WriteXLSX(w, rpt)
	default:
		_, err := io.WriteString(w, Markdown(rpt, opts))
		return eris.Wrap(err, "report: write markdown")
	}
}

// JSON returns the indented JSON encoding of rpt.
func JSON(rpt *model.Report) ([]byte, error) {
	b, err := json.MarshalIndent(rpt, "", "  ")
	if err != nil {
		return nil, eris.Wrap(err, "report: marshal json")
	}
	return append(b, '\n'), nil
}
