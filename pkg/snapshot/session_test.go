package snapshot

import (
	"context"
	"strings"
	"testing"
)

func mustConverter(t *testing.T, opts Options) *Converter {
	t.Helper()
	c, err := New(opts)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	return c
}

func TestConvertValidDocument(t *testing.T) {
	input := []byte(`
title = "example"
count = 42
ratio = 0.5

[owner]
name = "tom"
`)
	res := Convert(input)
	defer res.Close()

	if !res.OK() {
		t.Fatalf("conversion failed: %d:%d %s", res.ErrLine(), res.ErrColumn(), res.ErrMessage())
	}
	if res.ErrMessage() != "" {
		t.Errorf("success result carries error message %q", res.ErrMessage())
	}

	root := res.Root()
	if root.Kind() != KindTable {
		t.Fatalf("root kind = %v, want table", root.Kind())
	}
	if root.Len() != 4 {
		t.Fatalf("root has %d keys, want 4", root.Len())
	}
	// Top-level entries in source order.
	for i, want := range []string{"title", "count", "ratio", "owner"} {
		if string(root.Key(i)) != want {
			t.Errorf("key %d = %q, want %q", i, root.Key(i), want)
		}
	}

	title, ok := root.Lookup("title")
	if !ok || string(title.Str()) != "example" {
		t.Errorf("title = %q", title.Str())
	}
	count, _ := root.Lookup("count")
	if count.Int64() != 42 {
		t.Errorf("count = %d", count.Int64())
	}
	ratio, _ := root.Lookup("ratio")
	if ratio.Float64() != 0.5 {
		t.Errorf("ratio = %v", ratio.Float64())
	}
	owner, _ := root.Lookup("owner")
	name, _ := owner.Lookup("name")
	if string(name.Str()) != "tom" {
		t.Errorf("owner.name = %q", name.Str())
	}
}

func TestConvertEmbeddedZeroByte(t *testing.T) {
	res := Convert([]byte(`name = "a\u0000b"`))
	defer res.Close()

	if !res.OK() {
		t.Fatalf("conversion failed: %s", res.ErrMessage())
	}
	name, ok := res.Root().Lookup("name")
	if !ok {
		t.Fatal("name missing")
	}
	got := name.Str()
	if len(got) != 3 || got[0] != 'a' || got[1] != 0 || got[2] != 'b' {
		t.Fatalf("embedded zero byte not preserved: %v", got)
	}
}

func TestConvertNestedTablesInArray(t *testing.T) {
	input := []byte(`
[[servers]]
host = "alpha"

[[servers]]
host = "beta"
`)
	res := Convert(input)
	defer res.Close()

	if !res.OK() {
		t.Fatalf("conversion failed: %s", res.ErrMessage())
	}
	root := res.Root()
	if root.Len() != 1 {
		t.Fatalf("root has %d keys, want 1", root.Len())
	}

	servers, _ := root.Lookup("servers")
	if servers.Kind() != KindArray || servers.Len() != 2 {
		t.Fatalf("servers = %v len %d", servers.Kind(), servers.Len())
	}
	for i, want := range []string{"alpha", "beta"} {
		elem := servers.Elem(i)
		if elem.Kind() != KindTable {
			t.Fatalf("servers[%d] kind = %v", i, elem.Kind())
		}
		host, _ := elem.Lookup("host")
		if string(host.Str()) != want {
			t.Errorf("servers[%d].host = %q, want %q", i, host.Str(), want)
		}
	}
}

func TestConvertSyntaxError(t *testing.T) {
	res := Convert([]byte("[unterminated"))
	defer res.Close()

	if res.OK() {
		t.Fatal("conversion of malformed input succeeded")
	}
	if res.ErrMessage() == "" {
		t.Error("empty error message")
	}
	if res.ErrLine() < 1 || res.ErrColumn() < 1 {
		t.Errorf("position = %d:%d, want both >= 1", res.ErrLine(), res.ErrColumn())
	}
	if !res.Root().IsNone() {
		t.Error("failure result carries a root node")
	}
}

func TestConvertTopLevelArrayIsError(t *testing.T) {
	res := Convert([]byte("[[1,2],[3]]"))
	defer res.Close()

	if res.OK() {
		t.Fatal("top-level array accepted")
	}
	// The error is anchored at the opening bracket of the construct.
	if res.ErrLine() != 1 || res.ErrColumn() != 1 {
		t.Errorf("position = %d:%d, want 1:1", res.ErrLine(), res.ErrColumn())
	}
}

func TestConvertBudgetExhaustion(t *testing.T) {
	c := mustConverter(t, Options{MaxArenaBytes: 96})

	// Needs far more than 96 arena bytes for keys and strings.
	input := []byte(`
a = "aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa"
b = "bbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb"
c = "cccccccccccccccccccccccccccccccc"
d = "dddddddddddddddddddddddddddddddd"
`)
	res := c.Convert(context.Background(), input)
	defer res.Close()

	if res.OK() {
		t.Fatal("conversion succeeded despite tiny budget")
	}
	if !strings.Contains(res.ErrMessage(), "out of memory") {
		t.Errorf("message = %q, want generic out-of-memory diagnostic", res.ErrMessage())
	}
	// Resource exhaustion carries no source position.
	if res.ErrLine() != 0 || res.ErrColumn() != 0 {
		t.Errorf("position = %d:%d, want 0:0", res.ErrLine(), res.ErrColumn())
	}
}

func TestCloseIsIdempotent(t *testing.T) {
	res := Convert([]byte(`x = 1`))
	if !res.OK() {
		t.Fatalf("conversion failed: %s", res.ErrMessage())
	}

	res.Close()
	if !res.Closed() {
		t.Fatal("Closed() false after Close")
	}
	if res.OK() {
		t.Fatal("OK() true after Close")
	}
	if !res.Root().IsNone() {
		t.Fatal("root survives Close")
	}
	if res.ErrMessage() != "" || res.ErrLine() != 0 || res.ErrColumn() != 0 {
		t.Fatal("error fields survive Close")
	}

	// Second close must be a safe no-op.
	res.Close()
	res.Close()
}

func TestCloseFailureResult(t *testing.T) {
	res := Convert([]byte("not toml at all!"))
	if res.OK() {
		t.Fatal("expected failure")
	}
	// The failure result owns an arena (it holds the message) and needs
	// teardown like any other result.
	if res.Closed() {
		t.Fatal("failure result has no arena")
	}
	res.Close()
	res.Close()
}

func TestOptionsValidation(t *testing.T) {
	if _, err := New(Options{MaxArenaBytes: -1}); err == nil {
		t.Error("negative MaxArenaBytes accepted")
	}
	if _, err := New(Options{ChunkSize: -1}); err == nil {
		t.Error("negative ChunkSize accepted")
	}
	if _, err := New(Options{}); err != nil {
		t.Errorf("zero options rejected: %v", err)
	}
}

func TestConcurrentConversions(t *testing.T) {
	c := mustConverter(t, Options{})
	input := []byte(`key = "value"`)

	done := make(chan struct{})
	for i := 0; i < 8; i++ {
		go func() {
			defer func() { done <- struct{}{} }()
			for j := 0; j < 50; j++ {
				res := c.Convert(context.Background(), input)
				if !res.OK() {
					t.Errorf("conversion failed: %s", res.ErrMessage())
				}
				v, _ := res.Root().Lookup("key")
				if string(v.Str()) != "value" {
					t.Errorf("key = %q", v.Str())
				}
				res.Close()
			}
		}()
	}
	for i := 0; i < 8; i++ {
		<-done
	}
}
