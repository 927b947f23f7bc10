package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"

	"github.com/sells-group/search-report/internal/htmltext"
	"github.com/sells-group/search-report/internal/model"
)

const (
	combinedSheet = "Combined"
	maxSheetName  = 31
)

// Workbook builds an XLSX file with a combined sheet followed by one sheet
// per section.
func Workbook(rpt *model.Report) (*xlsx.File, error) {
	f := xlsx.NewFile()

	sheet, err := f.AddSheet(combinedSheet)
	if err != nil {
		return nil, eris.Wrap(err, "xlsx: add combined sheet")
	}
	addRow(sheet, "#", "Source", "Title", "Snippet", "Link")
	for i, it := range rpt.Aggregated {
		addRow(sheet, fmt.Sprint(i+1), it.Source, it.Title, snippetText(it.Snippet), it.URL)
	}

	used := map[string]bool{combinedSheet: true}
	for _, s := range rpt.Sections {
		name := uniqueSheetName(s.Label, used)
		sheet, err := f.AddSheet(name)
		if err != nil {
			return nil, eris.Wrapf(err, "xlsx: add sheet %q", name)
		}
		addRow(sheet, "#", "Title", "Snippet", "Link")
		for i, it := range s.Items {
			addRow(sheet, fmt.Sprint(i+1), it.Title, snippetText(it.Snippet), it.URL)
		}
	}
	return f, nil
}

// WriteXLSX encodes the workbook for rpt to w.
func WriteXLSX(w io.Writer, rpt *model.Report) error {
	f, err := Workbook(rpt)
	if err != nil {
		return err
	}
	return eris.Wrap(f.Write(w), "xlsx: write workbook")
}

func addRow(sheet *xlsx.Sheet, values ...string) {
	row := sheet.AddRow()
	for _, v := range values {
		row.AddCell().SetString(v)
	}
}

// uniqueSheetName strips characters Excel rejects in sheet names and
// truncates to the name limit, suffixing a counter on collision.
func uniqueSheetName(label string, used map[string]bool) string {
	base := strings.Map(func(r rune) rune {
		if strings.ContainsRune(`[]:*?/\`, r) {
			return ' '
		}
		return r
	}, label)
	base = strings.TrimSpace(base)
	if base == "" {
		base = "Section"
	}
	base = htmltext.Truncate(base, maxSheetName)

	name := base
	for n := 2; used[name]; n++ {
		suffix := fmt.Sprintf(" %d", n)
		name = htmltext.Truncate(base, maxSheetName-len(suffix)) + suffix
	}
	used[name] = true
	return name
}

