package tomldoc

import (
	"bytes"
	"errors"
	"testing"

	"github.com/openfroyo/tomlsnap/pkg/document"
)

func parse(t *testing.T, input string) document.Node {
	t.Helper()
	root, err := Parser{}.Parse([]byte(input))
	if err != nil {
		t.Fatalf("Parse(%q) failed: %v", input, err)
	}
	if root.Kind() != document.KindTable {
		t.Fatalf("root kind = %v, want table", root.Kind())
	}
	return root
}

func parseErr(t *testing.T, input string) *document.ParseError {
	t.Helper()
	_, err := Parser{}.Parse([]byte(input))
	if err == nil {
		t.Fatalf("Parse(%q) succeeded, want error", input)
	}
	var pe *document.ParseError
	if !errors.As(err, &pe) {
		t.Fatalf("error is %T, want *document.ParseError", err)
	}
	return pe
}

// lookup walks one level of a table by key.
func lookup(t *testing.T, n document.Node, key string) document.Node {
	t.Helper()
	for i := 0; i < n.Len(); i++ {
		if n.Key(i) == key {
			return n.Value(i)
		}
	}
	t.Fatalf("key %q not found", key)
	return nil
}

func TestParseScalars(t *testing.T) {
	root := parse(t, `
str = "hello"
int = 42
neg = -17
hex = 0xDEADBEEF
oct = 0o755
bin = 0b1101
big = 1_000_000
flt = 3.5
exp = 6.26e-34
inf_val = inf
neg_inf = -inf
yes = true
no = false
`)

	checks := []struct {
		key  string
		kind document.Kind
	}{
		{"str", document.KindString},
		{"int", document.KindInteger},
		{"neg", document.KindInteger},
		{"hex", document.KindInteger},
		{"oct", document.KindInteger},
		{"bin", document.KindInteger},
		{"big", document.KindInteger},
		{"flt", document.KindFloat},
		{"exp", document.KindFloat},
		{"inf_val", document.KindFloat},
		{"neg_inf", document.KindFloat},
		{"yes", document.KindBool},
		{"no", document.KindBool},
	}
	if root.Len() != len(checks) {
		t.Fatalf("root has %d entries, want %d", root.Len(), len(checks))
	}
	for i, c := range checks {
		if root.Key(i) != c.key {
			t.Errorf("entry %d key = %q, want %q (document order)", i, root.Key(i), c.key)
		}
		if got := root.Value(i).Kind(); got != c.kind {
			t.Errorf("%s kind = %v, want %v", c.key, got, c.kind)
		}
	}

	if got := string(lookup(t, root, "str").Str()); got != "hello" {
		t.Errorf("str = %q", got)
	}
	if got := lookup(t, root, "int").Int(); got != 42 {
		t.Errorf("int = %d", got)
	}
	if got := lookup(t, root, "neg").Int(); got != -17 {
		t.Errorf("neg = %d", got)
	}
	if got := lookup(t, root, "hex").Int(); got != 0xDEADBEEF {
		t.Errorf("hex = %d", got)
	}
	if got := lookup(t, root, "oct").Int(); got != 0o755 {
		t.Errorf("oct = %d", got)
	}
	if got := lookup(t, root, "bin").Int(); got != 13 {
		t.Errorf("bin = %d", got)
	}
	if got := lookup(t, root, "big").Int(); got != 1000000 {
		t.Errorf("big = %d", got)
	}
	if got := lookup(t, root, "flt").Float(); got != 3.5 {
		t.Errorf("flt = %v", got)
	}
	if got := lookup(t, root, "exp").Float(); got != 6.26e-34 {
		t.Errorf("exp = %v", got)
	}
	if !lookup(t, root, "yes").Bool() {
		t.Error("yes = false")
	}
	if lookup(t, root, "no").Bool() {
		t.Error("no = true")
	}
}

func TestParseStringEscapes(t *testing.T) {
	root := parse(t, `name = "a\u0000b"`)

	got := lookup(t, root, "name").Str()
	want := []byte{'a', 0, 'b'}
	if !bytes.Equal(got, want) {
		t.Fatalf("decoded string = %v, want %v", got, want)
	}
	if len(got) != 3 {
		t.Fatalf("decoded length = %d, want 3", len(got))
	}
}

func TestParseDateTimes(t *testing.T) {
	root := parse(t, `
date = 1979-05-27
time = 07:32:00.999999999
local = 1979-05-27T07:32:00
utc = 1979-05-27T07:32:00Z
offset = 1979-05-27T00:32:00-07:00
`)

	d := lookup(t, root, "date")
	if d.Kind() != document.KindDate {
		t.Fatalf("date kind = %v", d.Kind())
	}
	if got := d.Date(); got != (document.Date{Year: 1979, Month: 5, Day: 27}) {
		t.Errorf("date = %+v", got)
	}

	tv := lookup(t, root, "time")
	if tv.Kind() != document.KindTime {
		t.Fatalf("time kind = %v", tv.Kind())
	}
	if got := tv.Time(); got != (document.Time{Hour: 7, Minute: 32, Second: 0, Nanosecond: 999999999}) {
		t.Errorf("time = %+v", got)
	}

	local := lookup(t, root, "local").DateTime()
	if local.HasOffset {
		t.Error("local date-time has offset")
	}
	if local.Date != (document.Date{Year: 1979, Month: 5, Day: 27}) || local.Time.Hour != 7 {
		t.Errorf("local = %+v", local)
	}

	utc := lookup(t, root, "utc").DateTime()
	if !utc.HasOffset || utc.OffsetMinutes != 0 {
		t.Errorf("utc = %+v", utc)
	}

	off := lookup(t, root, "offset").DateTime()
	if !off.HasOffset || off.OffsetMinutes != -7*60 {
		t.Errorf("offset = %+v", off)
	}
}

func TestParseNestedStructures(t *testing.T) {
	root := parse(t, `
[server]
host = "localhost"
port = 8080

[server.limits]
max = 10

[[points]]
x = 1

[[points]]
x = 2
`)

	server := lookup(t, root, "server")
	if server.Kind() != document.KindTable {
		t.Fatalf("server kind = %v", server.Kind())
	}
	if server.Len() != 3 {
		t.Fatalf("server has %d entries, want 3", server.Len())
	}
	// Sub-table header lands after the keys written before it.
	if server.Key(0) != "host" || server.Key(1) != "port" || server.Key(2) != "limits" {
		t.Fatalf("server keys out of order: %q %q %q", server.Key(0), server.Key(1), server.Key(2))
	}

	points := lookup(t, root, "points")
	if points.Kind() != document.KindArray {
		t.Fatalf("points kind = %v", points.Kind())
	}
	if points.Len() != 2 {
		t.Fatalf("points has %d elements, want 2", points.Len())
	}
	for i := 0; i < points.Len(); i++ {
		elem := points.Elem(i)
		if elem.Kind() != document.KindTable {
			t.Fatalf("points[%d] kind = %v", i, elem.Kind())
		}
		if got := lookup(t, elem, "x").Int(); got != int64(i+1) {
			t.Errorf("points[%d].x = %d, want %d", i, got, i+1)
		}
	}
}

func TestParseDottedAndInline(t *testing.T) {
	root := parse(t, `
a.b.c = 1
inline = { x = 1, y = { z = 2 } }
arr = [1, "two", [3]]
`)

	a := lookup(t, root, "a")
	b := lookup(t, a, "b")
	if got := lookup(t, b, "c").Int(); got != 1 {
		t.Errorf("a.b.c = %d", got)
	}

	inline := lookup(t, root, "inline")
	if inline.Kind() != document.KindTable || inline.Len() != 2 {
		t.Fatalf("inline = kind %v len %d", inline.Kind(), inline.Len())
	}
	y := lookup(t, inline, "y")
	if got := lookup(t, y, "z").Int(); got != 2 {
		t.Errorf("inline.y.z = %d", got)
	}

	arr := lookup(t, root, "arr")
	if arr.Kind() != document.KindArray || arr.Len() != 3 {
		t.Fatalf("arr = kind %v len %d", arr.Kind(), arr.Len())
	}
	if arr.Elem(0).Kind() != document.KindInteger ||
		arr.Elem(1).Kind() != document.KindString ||
		arr.Elem(2).Kind() != document.KindArray {
		t.Fatal("heterogeneous array kinds wrong")
	}
	if got := arr.Elem(2).Elem(0).Int(); got != 3 {
		t.Errorf("arr[2][0] = %d", got)
	}
}

func TestParseOrderPreserved(t *testing.T) {
	root := parse(t, `
zebra = 1
apple = 2
mango = 3
`)
	want := []string{"zebra", "apple", "mango"}
	if root.Len() != len(want) {
		t.Fatalf("len = %d", root.Len())
	}
	for i, k := range want {
		if root.Key(i) != k {
			t.Errorf("key %d = %q, want %q", i, root.Key(i), k)
		}
	}
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		wantLine int64
		wantCol  int64 // 0 means any column >= 1
	}{
		{"unterminated header", "[unterminated", 1, 1},
		{"top-level array", "[[1,2],[3]]", 1, 1},
		{"bare garbage", "!!!", 1, 1},
		{"garbage after header", "[t]\n!!!", 2, 1},
		{"garbage after inline table", "t = { x = 1 }\n!!!", 2, 1},
		{"bad line after comment", "a = 1 # trailing\n!!!", 2, 1},
		{"duplicate key", "a = 1\na = 2\n", 2, 0},
		{"redefined table", "[t]\nx = 1\n[t]\n", 3, 0},
		{"key conflicts with value", "a = 1\n[a.b]\n", 2, 0},
		{"append to static array", "a = [1]\n[[a]]\n", 2, 0},
		{"extend inline table", "t = { x = 1 }\n[t.y]\n", 2, 0},
		{"bad day", "d = 2024-02-30\n", 1, 0},
		{"bad hour", "t = 25:00:00\n", 1, 0},
		{"integer overflow", "n = 99999999999999999999\n", 1, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pe := parseErr(t, tt.input)
			if pe.Message == "" {
				t.Error("empty error message")
			}
			if pe.Line != tt.wantLine {
				t.Errorf("line = %d, want %d (error: %v)", pe.Line, tt.wantLine, pe)
			}
			if tt.wantCol != 0 && pe.Column != tt.wantCol {
				t.Errorf("column = %d, want %d (error: %v)", pe.Column, tt.wantCol, pe)
			}
			if pe.Column < 1 {
				t.Errorf("column = %d, want >= 1", pe.Column)
			}
		})
	}
}

func TestParseEmptyDocument(t *testing.T) {
	root := parse(t, "")
	if root.Len() != 0 {
		t.Fatalf("empty document root has %d entries", root.Len())
	}
	root = parse(t, "# only a comment\n")
	if root.Len() != 0 {
		t.Fatalf("comment-only document root has %d entries", root.Len())
	}
}
