package dataset

import (
	"strings"
	"testing"
)

func TestRelationParameterizesPath(t *testing.T) {
	src := Source{Path: "/data/events.parquet", Format: FormatParquet}
	expr, args := src.Relation()
	if expr != "read_parquet(?)" {
		t.Fatalf("expr = %q", expr)
	}
	if len(args) != 1 || args[0] != "/data/events.parquet" {
		t.Fatalf("args = %#v", args)
	}
}

func TestRelationTSVCarriesDelimiter(t *testing.T) {
	src := Source{Path: "/data/events.tsv", Format: FormatTSV}
	expr, _ := src.Relation()
	if !strings.Contains(expr, "delim='\t'") {
		t.Fatalf("expr = %q", expr)
	}
}

func TestLiteralRelationQuotesPath(t *testing.T) {
	src := Source{Path: "/data/o'brien.csv", Format: FormatCSV}
	got := src.LiteralRelation()
	want := "read_csv_auto('/data/o''brien.csv')"
	if got != want {
		t.Fatalf("LiteralRelation() = %q, want %q", got, want)
	}
}

func TestRowIDSelect(t *testing.T) {
	got := RowIDSelect("read_parquet(?)")
	want := "SELECT *, row_number() OVER () AS __rowid FROM read_parquet(?)"
	if got != want {
		t.Fatalf("RowIDSelect() = %q", got)
	}
}

func TestExcludeRowIDsInlinesPositiveIDs(t *testing.T) {
	base := RowIDSelect("read_parquet(?)")
	got := ExcludeRowIDs(base, []int64{3, 1, -4, 0, 7})
	if !strings.Contains(got, "__rowid NOT IN (3, 1, 7)") {
		t.Fatalf("ExcludeRowIDs() = %q", got)
	}
	if !strings.HasPrefix(got, "SELECT * FROM (") {
		t.Fatalf("ExcludeRowIDs() = %q", got)
	}
}

func TestExcludeRowIDsNoOpWithoutIDs(t *testing.T) {
	base := RowIDSelect("read_csv_auto(?)")
	if got := ExcludeRowIDs(base, nil); got != base {
		t.Fatalf("ExcludeRowIDs() = %q, want unchanged", got)
	}
	if got := ExcludeRowIDs(base, []int64{0, -1}); got != base {
		t.Fatalf("ExcludeRowIDs() with non-positive ids = %q, want unchanged", got)
	}
}

func TestQuoteIdent(t *testing.T) {
	if got := QuoteIdent(`weird"name`); got != `"weird""name"` {
		t.Fatalf("QuoteIdent() = %q", got)
	}
}
