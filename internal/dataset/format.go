package dataset

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
)

var ErrUnsupportedFormat = errors.New("unsupported file format")

type Format string

const (
	FormatCSV     Format = "csv"
	FormatTSV     Format = "tsv"
	FormatJSON    Format = "json"
	FormatJSONL   Format = "jsonl"
	FormatParquet Format = "parquet"
)

func DetectFormat(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		return FormatCSV, nil
	case ".tsv":
		return FormatTSV, nil
	case ".json":
		return FormatJSON, nil
	case ".jsonl":
		return FormatJSONL, nil
	case ".parquet":
		return FormatParquet, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, filepath.Ext(path))
	}
}

// Relational reports whether DuckDB can rewrite the file with COPY ... TO.
func (f Format) Relational() bool {
	switch f {
	case FormatCSV, FormatTSV, FormatParquet:
		return true
	default:
		return false
	}
}

// Uploadable excludes single-document JSON: JSON files are browsable when
// already present, but uploads only accept row-oriented files.
func (f Format) Uploadable() bool {
	return f != FormatJSON
}
