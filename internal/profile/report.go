package profile

import (
	"bytes"
	"fmt"
	"html/template"
	"sort"
	"time"

	"github.com/datapeek/datapeek/internal/query"
)

const (
	previewRows      = 10
	previewCellRunes = 80
	exampleCount     = 5
	frequencyCount   = 20
)

type reportData struct {
	Title     string
	File      string
	Mode      string
	Sample    int
	Generated string
	Columns   []reportColumn
	Preview   [][]string
	Names     []string
}

type reportColumn struct {
	Name        string
	Nulls       int
	Distinct    int
	Fill        string
	Examples    []string
	Frequencies []frequency
}

type frequency struct {
	Value string
	Count int
}

var reportTemplate = template.Must(template.New("report").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>{{.Title}}</title>
<style>
body { font-family: system-ui, sans-serif; margin: 2rem auto; max-width: 64rem; color: #1d2330; }
h1 { font-size: 1.4rem; }
h2 { font-size: 1.1rem; margin-top: 2rem; }
p.meta { color: #5a6270; }
table { border-collapse: collapse; width: 100%; margin-top: 0.5rem; }
th, td { border: 1px solid #d7dbe2; padding: 0.3rem 0.5rem; text-align: left; font-size: 0.85rem; }
th { background: #f2f4f7; }
td.num { text-align: right; font-variant-numeric: tabular-nums; }
</style>
</head>
<body>
<h1>{{.Title}}</h1>
<p class="meta">{{.File}} &middot; mode {{.Mode}} &middot; {{.Sample}} sampled rows &middot; generated {{.Generated}}</p>

<h2>Columns</h2>
<table>
<tr><th>Name</th><th>Nulls</th><th>Distinct</th><th>Fill</th><th>Examples</th></tr>
{{range .Columns}}<tr>
<td>{{.Name}}</td>
<td class="num">{{.Nulls}}</td>
<td class="num">{{.Distinct}}</td>
<td class="num">{{.Fill}}</td>
<td>{{range $i, $v := .Examples}}{{if $i}}, {{end}}{{$v}}{{end}}</td>
</tr>{{end}}
</table>

{{if .Preview}}
<h2>Preview</h2>
<table>
<tr>{{range .Names}}<th>{{.}}</th>{{end}}</tr>
{{range .Preview}}<tr>{{range .}}<td>{{.}}</td>{{end}}</tr>{{end}}
</table>
{{end}}

{{range .Columns}}{{if .Frequencies}}
<h2>{{.Name}}</h2>
<table>
<tr><th>Value</th><th>Count</th></tr>
{{range .Frequencies}}<tr><td>{{.Value}}</td><td class="num">{{.Count}}</td></tr>{{end}}
</table>
{{end}}{{end}}
</body>
</html>
`))

func renderReport(title, file, mode string, page query.Page, minimal bool) ([]byte, error) {
	data := reportData{
		Title:     title,
		File:      file,
		Mode:      mode,
		Sample:    len(page.Rows),
		Generated: time.Now().UTC().Format(time.RFC3339),
		Names:     page.Columns,
		Columns:   summarizeReportColumns(page, minimal),
		Preview:   previewTable(page),
	}
	var buf bytes.Buffer
	if err := reportTemplate.Execute(&buf, data); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func summarizeReportColumns(page query.Page, minimal bool) []reportColumn {
	columns := make([]reportColumn, 0, len(page.Columns))
	for idx, name := range page.Columns {
		counts := make(map[string]int)
		order := make([]string, 0)
		nulls := 0
		for _, row := range page.Rows {
			if idx >= len(row) {
				continue
			}
			if row[idx] == nil {
				nulls++
				continue
			}
			text := cellText(row[idx], previewCellRunes)
			if _, seen := counts[text]; !seen {
				order = append(order, text)
			}
			counts[text]++
		}

		filled := len(page.Rows) - nulls
		fill := 0.0
		if len(page.Rows) > 0 {
			fill = 100 * float64(filled) / float64(len(page.Rows))
		}
		column := reportColumn{
			Name:     name,
			Nulls:    nulls,
			Distinct: len(counts),
			Fill:     fmt.Sprintf("%.1f%%", fill),
		}
		for _, value := range order {
			if len(column.Examples) == exampleCount {
				break
			}
			column.Examples = append(column.Examples, value)
		}
		if !minimal {
			sort.SliceStable(order, func(i, j int) bool { return counts[order[i]] > counts[order[j]] })
			for _, value := range order {
				if len(column.Frequencies) == frequencyCount {
					break
				}
				column.Frequencies = append(column.Frequencies, frequency{Value: value, Count: counts[value]})
			}
		}
		columns = append(columns, column)
	}
	return columns
}

func previewTable(page query.Page) [][]string {
	limit := previewRows
	if len(page.Rows) < limit {
		limit = len(page.Rows)
	}
	rows := make([][]string, 0, limit)
	for _, row := range page.Rows[:limit] {
		cells := make([]string, 0, len(row))
		for _, value := range row {
			cells = append(cells, cellText(value, previewCellRunes))
		}
		rows = append(rows, cells)
	}
	return rows
}

func cellText(value any, max int) string {
	if value == nil {
		return ""
	}
	text := fmt.Sprint(value)
	runes := []rune(text)
	if len(runes) > max {
		return string(runes[:max]) + "…"
	}
	return text
}
