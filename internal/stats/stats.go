// Package stats computes lightweight per-column summaries from a bounded
// sample of rows. The output feeds histogram sparklines in the UI, so the
// heuristics favor readable labels over statistical rigor.
package stats

import (
	"context"
	"fmt"
	"math/big"
	"slices"
	"sort"
	"strconv"
	"strings"
	"unicode/utf8"

	goduckdb "github.com/marcboeker/go-duckdb/v2"

	"github.com/datapeek/datapeek/internal/dataset"
	"github.com/datapeek/datapeek/internal/query"
)

const (
	histogramBins   = 8
	maxDiscreteBins = 12
	minSampleRows   = 50
	topClassCount   = 8
)

type Axis struct {
	Left  string `json:"left"`
	Right string `json:"right"`
}

type ColumnSummary struct {
	Name   string   `json:"name"`
	Kind   string   `json:"kind"`
	Label  string   `json:"label"`
	Bins   []int    `json:"bins"`
	Labels []string `json:"labels,omitempty"`
	Axis   *Axis    `json:"axis,omitempty"`
	Note   string   `json:"note,omitempty"`
}

type Report struct {
	File    string          `json:"file"`
	Columns []ColumnSummary `json:"columns"`
	Sample  int             `json:"sample"`
}

// Sampler provides the schema and a raw row sample for a dataset file.
type Sampler interface {
	SampleRows(ctx context.Context, src dataset.Source, limit int) ([]query.Column, [][]any, error)
}

type Analyzer struct {
	sampler       Sampler
	defaultSample int
	maxSample     int
}

func NewAnalyzer(sampler Sampler, defaultSample, maxSample int) *Analyzer {
	return &Analyzer{sampler: sampler, defaultSample: defaultSample, maxSample: maxSample}
}

// Compute summarizes every column of the file from a clamped row sample.
func (a *Analyzer) Compute(ctx context.Context, name string, src dataset.Source, sample *int) (Report, error) {
	size := a.clampSample(sample)
	columns, rows, err := a.sampler.SampleRows(ctx, src, size)
	if err != nil {
		return Report{}, fmt.Errorf("sample %s: %w", name, err)
	}
	if len(rows) == 0 {
		return Report{File: name, Columns: []ColumnSummary{}, Sample: 0}, nil
	}

	valuesByColumn := make([][]any, len(columns))
	for _, row := range rows {
		for idx := range columns {
			if idx < len(row) {
				valuesByColumn[idx] = append(valuesByColumn[idx], row[idx])
			}
		}
	}

	summaries := make([]ColumnSummary, 0, len(columns))
	for idx, column := range columns {
		summaries = append(summaries, summarizeColumn(column, valuesByColumn[idx]))
	}
	return Report{File: name, Columns: summaries, Sample: len(rows)}, nil
}

func (a *Analyzer) clampSample(sample *int) int {
	value := a.defaultSample
	if sample != nil && *sample != 0 {
		value = *sample
	}
	if value > a.maxSample {
		value = a.maxSample
	}
	if value < minSampleRows {
		value = minSampleRows
	}
	return value
}

func summarizeColumn(column query.Column, values []any) ColumnSummary {
	nonNull := make([]any, 0, len(values))
	for _, value := range values {
		if value != nil {
			nonNull = append(nonNull, value)
		}
	}
	if len(nonNull) == 0 {
		return ColumnSummary{Name: column.Name, Kind: "empty", Label: "empty", Bins: []int{}}
	}

	switch inferKind(nonNull) {
	case "number":
		return summarizeNumbers(column, nonNull)
	case "boolean":
		return summarizeBooleans(column.Name, nonNull)
	case "string":
		return summarizeStrings(column.Name, nonNull)
	case "list":
		return summarizeLists(column.Name, nonNull)
	case "dict":
		return ColumnSummary{Name: column.Name, Kind: "object", Label: "dict", Bins: []int{}}
	default:
		return ColumnSummary{Name: column.Name, Kind: "other", Label: "value", Bins: []int{}}
	}
}

func summarizeNumbers(column query.Column, nonNull []any) ColumnSummary {
	floats := make([]float64, 0, len(nonNull))
	ints := make([]int64, 0, len(nonNull))
	for _, value := range nonNull {
		if f, ok := toFloat(value); ok {
			floats = append(floats, f)
		}
		if i, ok := toInt(value); ok {
			ints = append(ints, i)
		}
	}
	if len(floats) == 0 {
		return ColumnSummary{Name: column.Name, Kind: "number", Label: "number", Bins: []int{}}
	}

	if isIntegerType(column.Type) && len(ints) == len(floats) {
		bins, labels, axis := discreteCounts(ints)
		return ColumnSummary{
			Name:   column.Name,
			Kind:   "number",
			Label:  numberTypeLabel(column.Type, true),
			Bins:   bins,
			Labels: labels,
			Axis:   axis,
		}
	}
	return ColumnSummary{
		Name:  column.Name,
		Kind:  "number",
		Label: numberTypeLabel(column.Type, false),
		Bins:  numericHistogram(floats, histogramBins),
		Axis:  floatAxis(slices.Min(floats), slices.Max(floats)),
	}
}

func summarizeBooleans(name string, nonNull []any) ColumnSummary {
	trueCount := 0
	for _, value := range nonNull {
		if flag, ok := value.(bool); ok && flag {
			trueCount++
		}
	}
	return ColumnSummary{
		Name:   name,
		Kind:   "boolean",
		Label:  "boolean",
		Bins:   []int{len(nonNull) - trueCount, trueCount},
		Labels: []string{"false", "true"},
	}
}

func summarizeStrings(name string, nonNull []any) ColumnSummary {
	strs := make([]string, 0, len(nonNull))
	for _, value := range nonNull {
		if s, ok := value.(string); ok {
			strs = append(strs, s)
		}
	}
	if len(strs) == 0 {
		return ColumnSummary{Name: name, Kind: "string", Label: "string", Bins: []int{}}
	}

	label := ""
	if isURLLikeColumn(name, strs) {
		label = "string / url"
	} else if isPathLikeColumn(name, strs) {
		label = "string / path"
	}

	counts, order := countStrings(strs)
	if isClassLikeColumn(name, len(counts), len(strs)) {
		sort.SliceStable(order, func(i, j int) bool { return counts[order[i]] > counts[order[j]] })
		top := make([]int, 0, topClassCount)
		for _, key := range order {
			if len(top) == topClassCount {
				break
			}
			top = append(top, counts[key])
		}
		if label == "" {
			label = "string / classes"
		}
		return ColumnSummary{
			Name:  name,
			Kind:  "string",
			Label: label,
			Bins:  top,
			Note:  fmt.Sprintf("%d values", len(counts)),
		}
	}

	lengths := make([]int64, 0, len(strs))
	floats := make([]float64, 0, len(strs))
	for _, s := range strs {
		length := int64(utf8.RuneCountInString(s))
		lengths = append(lengths, length)
		floats = append(floats, float64(length))
	}
	if label == "" {
		label = "string / length"
	}
	return ColumnSummary{
		Name:  name,
		Kind:  "string",
		Label: label,
		Bins:  numericHistogram(floats, histogramBins),
		Axis:  intAxis(slices.Min(lengths), slices.Max(lengths)),
	}
}

func summarizeLists(name string, nonNull []any) ColumnSummary {
	lengths := make([]int64, 0, len(nonNull))
	for _, value := range nonNull {
		if items, ok := value.([]any); ok {
			lengths = append(lengths, int64(len(items)))
		}
	}
	if len(lengths) == 0 {
		return ColumnSummary{Name: name, Kind: "list", Label: "list", Bins: []int{}}
	}
	bins, labels, axis := discreteCounts(lengths)
	return ColumnSummary{
		Name:   name,
		Kind:   "list",
		Label:  "list / length",
		Bins:   bins,
		Labels: labels,
		Axis:   axis,
	}
}

// inferKind collapses sample values to a single coarse kind, preferring the
// richest structure seen.
func inferKind(nonNull []any) string {
	kinds := make(map[string]bool, 4)
	for _, value := range nonNull {
		kinds[kindOf(value)] = true
	}
	for _, candidate := range []string{"dict", "list", "string", "number", "boolean", "other"} {
		if kinds[candidate] {
			return candidate
		}
	}
	return "empty"
}

func kindOf(value any) string {
	switch value.(type) {
	case bool:
		return "boolean"
	case string:
		return "string"
	case []any:
		return "list"
	case map[string]any, goduckdb.Map:
		return "dict"
	default:
		if _, ok := toFloat(value); ok {
			return "number"
		}
		return "other"
	}
}

func numericHistogram(values []float64, bins int) []int {
	if len(values) == 0 {
		return []int{}
	}
	if len(values) == 1 {
		return []int{1}
	}
	minVal := slices.Min(values)
	maxVal := slices.Max(values)
	if minVal == maxVal {
		return []int{len(values)}
	}
	width := (maxVal - minVal) / float64(bins)
	counts := make([]int, bins)
	for _, value := range values {
		index := int((value - minVal) / width)
		if index > bins-1 {
			index = bins - 1
		}
		if index < 0 {
			index = 0
		}
		counts[index]++
	}
	return counts
}

// discreteCounts returns one bin per distinct value while the cardinality
// stays small, otherwise it falls back to a numeric histogram with an axis.
func discreteCounts(values []int64) ([]int, []string, *Axis) {
	if len(values) == 0 {
		return []int{}, nil, nil
	}
	counts := make(map[int64]int)
	for _, value := range values {
		counts[value]++
	}
	if len(counts) <= maxDiscreteBins {
		ordered := make([]int64, 0, len(counts))
		for value := range counts {
			ordered = append(ordered, value)
		}
		slices.Sort(ordered)
		labels := make([]string, 0, len(ordered))
		bins := make([]int, 0, len(ordered))
		for _, value := range ordered {
			labels = append(labels, strconv.FormatInt(value, 10))
			bins = append(bins, counts[value])
		}
		return bins, labels, nil
	}

	floats := make([]float64, 0, len(values))
	for _, value := range values {
		floats = append(floats, float64(value))
	}
	return numericHistogram(floats, histogramBins), nil, intAxis(slices.Min(values), slices.Max(values))
}

func countStrings(values []string) (map[string]int, []string) {
	counts := make(map[string]int, len(values))
	order := make([]string, 0, len(values))
	for _, value := range values {
		if _, seen := counts[value]; !seen {
			order = append(order, value)
		}
		counts[value]++
	}
	return counts, order
}

func isIntegerType(typeName string) bool {
	if typeName == "" {
		return false
	}
	upper := strings.ToUpper(typeName)
	for _, token := range []string{
		"UTINYINT", "USMALLINT", "UINTEGER", "UBIGINT",
		"TINYINT", "SMALLINT", "INTEGER", "BIGINT", "HUGEINT",
	} {
		if strings.Contains(upper, token) {
			return true
		}
	}
	return false
}

func numberTypeLabel(typeName string, isInteger bool) string {
	upper := strings.ToUpper(typeName)
	if isInteger {
		patterns := []struct{ token, label string }{
			{"UTINYINT", "uint8"},
			{"USMALLINT", "uint16"},
			{"UINTEGER", "uint32"},
			{"UBIGINT", "uint64"},
			{"TINYINT", "int8"},
			{"SMALLINT", "int16"},
			{"INTEGER", "int32"},
			{"BIGINT", "int64"},
			{"HUGEINT", "int128"},
		}
		for _, pattern := range patterns {
			if strings.Contains(upper, pattern.token) {
				return pattern.label
			}
		}
		return "int"
	}
	switch {
	case strings.Contains(upper, "DOUBLE"):
		return "float64"
	case strings.Contains(upper, "REAL"), strings.Contains(upper, "FLOAT"):
		return "float32"
	case strings.Contains(upper, "DECIMAL"), strings.Contains(upper, "NUMERIC"):
		return "decimal"
	default:
		return "float"
	}
}

func isClassLikeColumn(name string, distinct, total int) bool {
	lowered := strings.ToLower(name)
	for _, keyword := range []string{"label", "class", "category", "source", "type", "tag"} {
		if strings.Contains(lowered, keyword) {
			return true
		}
	}
	if distinct <= 20 {
		return true
	}
	return total > 0 && distinct <= 50 && float64(distinct)/float64(total) <= 0.3
}

func isURLLikeColumn(name string, values []string) bool {
	lowered := strings.ToLower(name)
	for _, token := range []string{"url", "uri", "href", "link"} {
		if strings.Contains(lowered, token) {
			return true
		}
	}
	if len(values) == 0 {
		return false
	}
	matches := 0
	for _, value := range values {
		if looksLikeURL(value) {
			matches++
		}
	}
	return float64(matches)/float64(len(values)) >= 0.4
}

func isPathLikeColumn(name string, values []string) bool {
	lowered := strings.ToLower(name)
	for _, token := range []string{"path", "file", "filename", "filepath", "dir", "folder"} {
		if strings.Contains(lowered, token) {
			return true
		}
	}
	if len(values) == 0 {
		return false
	}
	matches := 0
	for _, value := range values {
		if looksLikePath(value) {
			matches++
		}
	}
	return float64(matches)/float64(len(values)) >= 0.4
}

func looksLikeURL(value string) bool {
	lower := strings.ToLower(strings.TrimSpace(value))
	if lower == "" {
		return false
	}
	return strings.HasPrefix(lower, "http://") ||
		strings.HasPrefix(lower, "https://") ||
		strings.HasPrefix(lower, "data:image")
}

func looksLikePath(value string) bool {
	if value == "" {
		return false
	}
	if strings.Contains(value, "://") {
		return false
	}
	for _, prefix := range []string{"./", "../", "/", "~"} {
		if strings.HasPrefix(value, prefix) {
			return true
		}
	}
	return strings.Contains(value, "\\") || strings.Contains(value, "/")
}

func floatAxis(left, right float64) *Axis {
	return &Axis{Left: formatFloat(left), Right: formatFloat(right)}
}

func intAxis(left, right int64) *Axis {
	return &Axis{Left: strconv.FormatInt(left, 10), Right: strconv.FormatInt(right, 10)}
}

func formatFloat(value float64) string {
	return strconv.FormatFloat(value, 'g', 3, 64)
}

func toFloat(value any) (float64, bool) {
	switch typed := value.(type) {
	case int:
		return float64(typed), true
	case int8:
		return float64(typed), true
	case int16:
		return float64(typed), true
	case int32:
		return float64(typed), true
	case int64:
		return float64(typed), true
	case uint8:
		return float64(typed), true
	case uint16:
		return float64(typed), true
	case uint32:
		return float64(typed), true
	case uint64:
		return float64(typed), true
	case float32:
		return float64(typed), true
	case float64:
		return typed, true
	case goduckdb.Decimal:
		return typed.Float64(), true
	case *big.Int:
		if typed == nil {
			return 0, false
		}
		f, _ := new(big.Float).SetInt(typed).Float64()
		return f, true
	default:
		return 0, false
	}
}

func toInt(value any) (int64, bool) {
	switch typed := value.(type) {
	case int:
		return int64(typed), true
	case int8:
		return int64(typed), true
	case int16:
		return int64(typed), true
	case int32:
		return int64(typed), true
	case int64:
		return typed, true
	case uint8:
		return int64(typed), true
	case uint16:
		return int64(typed), true
	case uint32:
		return int64(typed), true
	case uint64:
		return int64(typed), true
	case *big.Int:
		if typed != nil && typed.IsInt64() {
			return typed.Int64(), true
		}
		return 0, false
	default:
		return 0, false
	}
}
