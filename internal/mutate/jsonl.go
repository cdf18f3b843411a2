package mutate

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/valyala/fastjson"
)

// deleteJSONLRow drops the line with the given 1-based ordinal. Blank lines
// never count toward ordinals and are not carried into the rewrite. Kept
// lines are reserialized, which also validates them.
func deleteJSONLRow(path string, rowID int64) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read %s: %w", filepath.Base(path), err)
	}

	var parser fastjson.Parser
	out := make([]byte, 0, len(data))
	removed := false
	index := int64(0)
	for _, line := range strings.Split(string(data), "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			continue
		}
		index++
		if index == rowID {
			removed = true
			continue
		}
		value, err := parser.Parse(trimmed)
		if err != nil {
			return fmt.Errorf("line %d: %w", index, ErrInvalidFormat)
		}
		out = value.MarshalTo(out)
		out = append(out, '\n')
	}
	if !removed {
		return ErrRowNotFound
	}
	return writeFileAtomic(path, out)
}

func deleteJSONLColumn(path, column string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read %s: %w", filepath.Base(path), err)
	}

	var parser fastjson.Parser
	out := make([]byte, 0, len(data))
	removed := false
	sawOther := false
	index := 0
	for _, line := range strings.Split(string(data), "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			continue
		}
		index++
		value, err := parser.Parse(trimmed)
		if err != nil {
			return fmt.Errorf("line %d: %w", index, ErrInvalidFormat)
		}
		obj, err := value.Object()
		if err != nil {
			return fmt.Errorf("line %d: %w", index, ErrInvalidShape)
		}
		has := false
		obj.Visit(func(key []byte, _ *fastjson.Value) {
			if string(key) == column {
				has = true
			} else {
				sawOther = true
			}
		})
		if has {
			obj.Del(column)
			removed = true
		}
		out = value.MarshalTo(out)
		out = append(out, '\n')
	}
	if !removed {
		return ErrColumnNotFound
	}
	if !sawOther {
		return ErrLastColumn
	}
	return writeFileAtomic(path, out)
}
