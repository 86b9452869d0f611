package snapshot

import (
	"github.com/openfroyo/tomlsnap/pkg/document"
)

// Kind identifies the active variant of a flattened Node.
type Kind int32

const (
	// KindNone marks an absent or unrecognized value.
	KindNone Kind = iota
	KindString
	KindInteger
	KindFloat
	KindBool
	KindDate
	KindTime
	KindDateTime
	KindArray
	KindTable
)

// String returns the lowercase name of the kind.
func (k Kind) String() string {
	return document.Kind(k).String()
}

// Node is one flattened value. Exactly one variant is active, selected by the
// kind tag. A Node owns no memory: its string bytes, array elements, and table
// keys/values all live in the arena of the Result that produced it, and are
// valid only until that Result is closed. The zero Node is the none variant.
//
// Accessors are total: asking a variant for a payload it does not carry
// returns the zero value rather than panicking.
type Node struct {
	kind Kind

	i64  int64
	f64  float64
	b    bool
	date document.Date
	tod  document.Time
	dt   document.DateTime

	// str backs the string variant. Arena storage; explicit length.
	str []byte
	// keys backs the table variant, in document order.
	keys [][]byte
	// elems backs the array variant's elements and the table variant's
	// values, in document order.
	elems []Node
}

// Kind reports the active variant.
func (n Node) Kind() Kind { return n.kind }

// IsNone reports whether the node is the none variant.
func (n Node) IsNone() bool { return n.kind == KindNone }

// Str returns the string payload as arena-backed bytes. The slice carries an
// explicit length; embedded zero bytes are preserved.
func (n Node) Str() []byte {
	if n.kind != KindString {
		return nil
	}
	return n.str
}

// Int64 returns the integer payload.
func (n Node) Int64() int64 {
	if n.kind != KindInteger {
		return 0
	}
	return n.i64
}

// Float64 returns the float payload.
func (n Node) Float64() float64 {
	if n.kind != KindFloat {
		return 0
	}
	return n.f64
}

// Bool returns the boolean payload.
func (n Node) Bool() bool {
	if n.kind != KindBool {
		return false
	}
	return n.b
}

// Date returns the date payload.
func (n Node) Date() document.Date {
	if n.kind != KindDate {
		return document.Date{}
	}
	return n.date
}

// Time returns the time payload.
func (n Node) Time() document.Time {
	if n.kind != KindTime {
		return document.Time{}
	}
	return n.tod
}

// DateTime returns the date-time payload.
func (n Node) DateTime() document.DateTime {
	if n.kind != KindDateTime {
		return document.DateTime{}
	}
	return n.dt
}

// Len returns the element count of an array or the entry count of a table.
func (n Node) Len() int {
	switch n.kind {
	case KindArray:
		return len(n.elems)
	case KindTable:
		return len(n.keys)
	default:
		return 0
	}
}

// Elem returns the i-th array element, or the none node when out of range or
// not an array.
func (n Node) Elem(i int) Node {
	if n.kind != KindArray || i < 0 || i >= len(n.elems) {
		return Node{}
	}
	return n.elems[i]
}

// Key returns the i-th table key in document order, or nil when out of range
// or not a table.
func (n Node) Key(i int) []byte {
	if n.kind != KindTable || i < 0 || i >= len(n.keys) {
		return nil
	}
	return n.keys[i]
}

// Value returns the value paired with the i-th table key, or the none node
// when out of range or not a table.
func (n Node) Value(i int) Node {
	if n.kind != KindTable || i < 0 || i >= len(n.elems) {
		return Node{}
	}
	return n.elems[i]
}

// Lookup scans a table's keys in document order and returns the first value
// whose key matches. The second return reports whether the key was found.
func (n Node) Lookup(key string) (Node, bool) {
	if n.kind != KindTable {
		return Node{}, false
	}
	for i, k := range n.keys {
		if string(k) == key {
			return n.elems[i], true
		}
	}
	return Node{}, false
}
