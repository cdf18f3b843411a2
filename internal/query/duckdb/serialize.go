package duckdb

import (
	"encoding/hex"
	"fmt"
	"math/big"
	"time"

	goduckdb "github.com/marcboeker/go-duckdb/v2"

	"github.com/datapeek/datapeek/internal/query"
)

const truncationMarker = "... (truncated)"

// serializer rewrites driver values into JSON-friendly shapes. Strings are
// capped at maxCellChars runes so a single wide cell cannot dominate a
// response payload.
type serializer struct {
	maxCellChars int
}

func (s serializer) page(columns []string, rows [][]any) query.Page {
	serialized := make([][]any, len(rows))
	for i, row := range rows {
		serialized[i] = s.row(row)
	}
	return query.Page{Columns: columns, Rows: serialized, RowIDs: []int64{}}
}

func (s serializer) row(values []any) []any {
	out := make([]any, len(values))
	for i, value := range values {
		out[i] = s.value(value)
	}
	return out
}

func (s serializer) value(value any) any {
	switch typed := value.(type) {
	case nil:
		return nil
	case time.Time:
		return typed.Format(time.RFC3339Nano)
	case goduckdb.Decimal:
		return typed.Float64()
	case *big.Int:
		if typed == nil {
			return nil
		}
		if typed.IsInt64() {
			return typed.Int64()
		}
		return typed.String()
	case []byte:
		return hex.EncodeToString(typed)
	case string:
		return s.truncate(typed)
	case []any:
		out := make([]any, len(typed))
		for i, item := range typed {
			out[i] = s.value(item)
		}
		return out
	case map[string]any:
		out := make(map[string]any, len(typed))
		for key, item := range typed {
			out[key] = s.value(item)
		}
		return out
	case goduckdb.Map:
		out := make(map[string]any, len(typed))
		for key, item := range typed {
			out[fmt.Sprint(key)] = s.value(item)
		}
		return out
	default:
		return typed
	}
}

func (s serializer) truncate(value string) string {
	if s.maxCellChars <= 0 {
		return value
	}
	runes := []rune(value)
	if len(runes) <= s.maxCellChars {
		return value
	}
	return string(runes[:s.maxCellChars]) + truncationMarker
}
