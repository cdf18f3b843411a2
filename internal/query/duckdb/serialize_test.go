package duckdb

import (
	"math/big"
	"strings"
	"testing"
	"time"

	goduckdb "github.com/marcboeker/go-duckdb/v2"
)

func TestSerializerFormatsTimestamps(t *testing.T) {
	s := serializer{}
	ts := time.Date(2024, 3, 1, 12, 30, 0, 0, time.UTC)
	if got := s.value(ts); got != "2024-03-01T12:30:00Z" {
		t.Fatalf("value = %#v", got)
	}
}

func TestSerializerConvertsDecimalsAndBytes(t *testing.T) {
	s := serializer{}
	dec := goduckdb.Decimal{Width: 6, Scale: 2, Value: big.NewInt(12345)}
	if got := s.value(dec); got != 123.45 {
		t.Fatalf("decimal = %#v", got)
	}
	if got := s.value([]byte{0xde, 0xad}); got != "dead" {
		t.Fatalf("bytes = %#v", got)
	}
}

func TestSerializerHandlesHugeInts(t *testing.T) {
	s := serializer{}
	if got := s.value(big.NewInt(42)); got != int64(42) {
		t.Fatalf("small = %#v", got)
	}
	huge, _ := new(big.Int).SetString("170141183460469231731687303715884105727", 10)
	if got := s.value(huge); got != "170141183460469231731687303715884105727" {
		t.Fatalf("huge = %#v", got)
	}
}

func TestSerializerTruncatesLongStrings(t *testing.T) {
	s := serializer{maxCellChars: 5}
	got, ok := s.value(strings.Repeat("x", 10)).(string)
	if !ok {
		t.Fatalf("value is not a string")
	}
	if got != "xxxxx"+truncationMarker {
		t.Fatalf("value = %q", got)
	}
	if short := s.value("short"); short != "short" {
		t.Fatalf("short = %#v", short)
	}
}

func TestSerializerTruncatesByRuneNotByte(t *testing.T) {
	s := serializer{maxCellChars: 3}
	got, ok := s.value("ありがとうございます").(string)
	if !ok {
		t.Fatalf("value is not a string")
	}
	if got != "ありが"+truncationMarker {
		t.Fatalf("value = %q", got)
	}
}

func TestSerializerRecursesIntoContainers(t *testing.T) {
	s := serializer{maxCellChars: 4}
	nested := []any{
		strings.Repeat("a", 8),
		map[string]any{"note": strings.Repeat("b", 8)},
	}
	out, ok := s.value(nested).([]any)
	if !ok {
		t.Fatalf("value is not a slice")
	}
	if out[0] != "aaaa"+truncationMarker {
		t.Fatalf("first = %#v", out[0])
	}
	inner, ok := out[1].(map[string]any)
	if !ok {
		t.Fatalf("second is not a map")
	}
	if inner["note"] != "bbbb"+truncationMarker {
		t.Fatalf("note = %#v", inner["note"])
	}
}

func TestSerializerStringifiesMapKeys(t *testing.T) {
	s := serializer{}
	out, ok := s.value(goduckdb.Map{int32(7): "seven"}).(map[string]any)
	if !ok {
		t.Fatalf("value is not a map")
	}
	if out["7"] != "seven" {
		t.Fatalf("out = %#v", out)
	}
}

func TestSerializerPassesNilThrough(t *testing.T) {
	s := serializer{maxCellChars: 5}
	if got := s.value(nil); got != nil {
		t.Fatalf("value = %#v", got)
	}
}
