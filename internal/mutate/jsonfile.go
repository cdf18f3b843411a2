package mutate

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/valyala/fastjson"
)

func deleteDocumentRow(path string, rowID int64) error {
	root, err := parseDocument(path)
	if err != nil {
		return err
	}
	items, err := root.Array()
	if err != nil {
		return ErrInvalidShape
	}
	if rowID > int64(len(items)) {
		return ErrRowNotFound
	}
	root.Del(strconv.FormatInt(rowID-1, 10))
	return writeDocument(path, root)
}

func deleteDocumentColumn(path, column string) error {
	root, err := parseDocument(path)
	if err != nil {
		return err
	}

	switch root.Type() {
	case fastjson.TypeArray:
		items, _ := root.Array()
		removed := false
		sawOther := false
		for i, item := range items {
			obj, err := item.Object()
			if err != nil {
				return fmt.Errorf("item %d: %w", i, ErrInvalidShape)
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
		}
		if !removed {
			return ErrColumnNotFound
		}
		if !sawOther {
			return ErrLastColumn
		}
	case fastjson.TypeObject:
		obj, _ := root.Object()
		has := false
		sawOther := false
		obj.Visit(func(key []byte, _ *fastjson.Value) {
			if string(key) == column {
				has = true
			} else {
				sawOther = true
			}
		})
		if !has {
			return ErrColumnNotFound
		}
		if !sawOther {
			return ErrLastColumn
		}
		obj.Del(column)
	default:
		return ErrInvalidShape
	}
	return writeDocument(path, root)
}

func parseDocument(path string) (*fastjson.Value, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", filepath.Base(path), err)
	}
	var parser fastjson.Parser
	root, err := parser.ParseBytes(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", filepath.Base(path), ErrInvalidFormat)
	}
	return root, nil
}

// writeDocument reindents the document so the committed file stays readable
// in an editor.
func writeDocument(path string, root *fastjson.Value) error {
	var pretty bytes.Buffer
	if err := json.Indent(&pretty, root.MarshalTo(nil), "", "  "); err != nil {
		return fmt.Errorf("format document: %w", err)
	}
	pretty.WriteByte('\n')
	return writeFileAtomic(path, pretty.Bytes())
}
