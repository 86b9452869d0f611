package arena

import (
	"bytes"
	"errors"
	"testing"
)

func TestAllocBytesZeroed(t *testing.T) {
	a := New(0, 0)

	b, err := a.AllocBytes(128)
	if err != nil {
		t.Fatalf("AllocBytes failed: %v", err)
	}
	if len(b) != 128 {
		t.Fatalf("expected 128 bytes, got %d", len(b))
	}
	for i, v := range b {
		if v != 0 {
			t.Fatalf("byte %d not zeroed: %d", i, v)
		}
	}
}

func TestAllocBytesZeroCount(t *testing.T) {
	a := New(0, 0)

	b, err := a.AllocBytes(0)
	if err != nil {
		t.Fatalf("AllocBytes(0) failed: %v", err)
	}
	if b != nil {
		t.Fatalf("expected nil slice for zero count, got %v", b)
	}
}

func TestInternPreservesBytes(t *testing.T) {
	a := New(0, 0)

	tests := []struct {
		name  string
		input []byte
	}{
		{"plain", []byte("hello")},
		{"embedded zero", []byte{'a', 0, 'b'}},
		{"all zeros", []byte{0, 0, 0}},
		{"empty", []byte{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := a.Intern(tt.input)
			if err != nil {
				t.Fatalf("Intern failed: %v", err)
			}
			if got == nil {
				t.Fatal("Intern returned nil slice")
			}
			if len(got) != len(tt.input) {
				t.Fatalf("length mismatch: got %d, want %d", len(got), len(tt.input))
			}
			if !bytes.Equal(got, tt.input) {
				t.Fatalf("content mismatch: got %q, want %q", got, tt.input)
			}
		})
	}
}

// Interned strings must keep their address while the arena grows. Force many
// chunk allocations and verify earlier strings are untouched.
func TestInternAddressStability(t *testing.T) {
	a := New(256, 0)

	first, err := a.InternString("stable")
	if err != nil {
		t.Fatalf("InternString failed: %v", err)
	}
	firstPtr := &first[0]

	for i := 0; i < 1000; i++ {
		if _, err := a.InternString("filler string to force chunk growth"); err != nil {
			t.Fatalf("InternString %d failed: %v", i, err)
		}
	}

	if &first[0] != firstPtr {
		t.Fatal("interned string relocated during growth")
	}
	if string(first) != "stable" {
		t.Fatalf("interned string corrupted: %q", first)
	}
	if got := a.Stats().Chunks; got < 2 {
		t.Fatalf("expected growth to multiple chunks, got %d", got)
	}
}

func TestMakeSlice(t *testing.T) {
	a := New(0, 0)

	s, err := MakeSlice[int64](a, 8)
	if err != nil {
		t.Fatalf("MakeSlice failed: %v", err)
	}
	if len(s) != 8 {
		t.Fatalf("expected 8 elements, got %d", len(s))
	}
	for i, v := range s {
		if v != 0 {
			t.Fatalf("element %d not zeroed: %d", i, v)
		}
	}

	s[3] = 42
	if s[3] != 42 {
		t.Fatal("write to arena slice lost")
	}

	empty, err := MakeSlice[int64](a, 0)
	if err != nil {
		t.Fatalf("MakeSlice(0) failed: %v", err)
	}
	if empty != nil {
		t.Fatal("expected nil slice for zero count")
	}
}

func TestBudgetExhaustion(t *testing.T) {
	a := New(64, 128)

	if _, err := a.AllocBytes(100); err != nil {
		t.Fatalf("allocation within budget failed: %v", err)
	}
	_, err := a.AllocBytes(100)
	if !errors.Is(err, ErrBudget) {
		t.Fatalf("expected ErrBudget, got %v", err)
	}

	// The arena stays usable below the budget.
	if _, err := a.AllocBytes(8); err != nil {
		t.Fatalf("small allocation after budget error failed: %v", err)
	}
}

// The budget covers alignment padding, not just payload bytes: a payload that
// fits on its own must still be refused when the padding in front of it would
// push Used past the budget.
func TestBudgetIncludesAlignmentPadding(t *testing.T) {
	a := New(64, 11)

	if _, err := a.AllocBytes(1); err != nil {
		t.Fatalf("first allocation failed: %v", err)
	}
	// The next allocation starts at the next aligned offset, so it costs
	// padding plus payload.
	if _, err := a.AllocBytes(8); !errors.Is(err, ErrBudget) {
		t.Fatalf("expected ErrBudget, got %v", err)
	}
	if used := a.Stats().Used; used > 11 {
		t.Fatalf("Used = %d exceeds the 11-byte budget", used)
	}

	// A payload small enough to fit with its padding still succeeds.
	if _, err := a.AllocBytes(1); err != nil {
		t.Fatalf("allocation within budget failed: %v", err)
	}
}

func TestRelease(t *testing.T) {
	a := New(0, 0)
	if _, err := a.InternString("x"); err != nil {
		t.Fatalf("InternString failed: %v", err)
	}

	a.Release()
	if !a.Released() {
		t.Fatal("Released() false after Release")
	}

	if _, err := a.AllocBytes(1); !errors.Is(err, ErrReleased) {
		t.Fatalf("expected ErrReleased, got %v", err)
	}
	if _, err := a.Intern([]byte("y")); !errors.Is(err, ErrReleased) {
		t.Fatalf("expected ErrReleased from Intern, got %v", err)
	}

	// Second release is a no-op.
	a.Release()
}

func TestStats(t *testing.T) {
	a := New(1024, 0)

	if _, err := a.InternString("abc"); err != nil {
		t.Fatal(err)
	}
	if _, err := MakeSlice[int64](a, 4); err != nil {
		t.Fatal(err)
	}

	s := a.Stats()
	if s.Chunks != 1 {
		t.Errorf("Chunks = %d, want 1", s.Chunks)
	}
	if s.Reserved != 1024 {
		t.Errorf("Reserved = %d, want 1024", s.Reserved)
	}
	if s.InternedStrings != 1 {
		t.Errorf("InternedStrings = %d, want 1", s.InternedStrings)
	}
	if s.Arrays != 1 {
		t.Errorf("Arrays = %d, want 1", s.Arrays)
	}
	if s.Used < 3+4*8 {
		t.Errorf("Used = %d, want at least %d", s.Used, 3+4*8)
	}
}
