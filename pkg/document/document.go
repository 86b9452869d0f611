// Package document defines the abstraction over a parsed configuration
// document. The parser that produces the tree is a black box behind the
// Parser interface; the conversion layer only ever sees Node, which exposes
// "what variant am I" plus typed accessors. Table iteration order is the
// document order of the source, not sorted order.
package document

import "fmt"

// Kind identifies the runtime variant of a Node.
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
	switch k {
	case KindNone:
		return "none"
	case KindString:
		return "string"
	case KindInteger:
		return "integer"
	case KindFloat:
		return "float"
	case KindBool:
		return "bool"
	case KindDate:
		return "date"
	case KindTime:
		return "time"
	case KindDateTime:
		return "datetime"
	case KindArray:
		return "array"
	case KindTable:
		return "table"
	default:
		return fmt.Sprintf("kind(%d)", int32(k))
	}
}

// Date is a calendar date without a time component.
type Date struct {
	Year  int32
	Month int32
	Day   int32
}

// Time is a clock time without a date component.
type Time struct {
	Hour       int32
	Minute     int32
	Second     int32
	Nanosecond int32
}

// DateTime combines a date and a time, optionally anchored to a UTC offset.
// OffsetMinutes is meaningful only when HasOffset is true.
type DateTime struct {
	Date          Date
	Time          Time
	HasOffset     bool
	OffsetMinutes int32
}

// Node is one value of the parsed document tree. Accessors for variants other
// than the node's Kind return zero values. Composite accessors use document
// order; Elem may return nil for a defective (sparse) array slot.
type Node interface {
	// Kind reports which variant this node holds.
	Kind() Kind

	// Str returns the string payload. The returned bytes carry an explicit
	// length and may contain zero bytes.
	Str() []byte

	// Int returns the integer payload.
	Int() int64

	// Float returns the float payload.
	Float() float64

	// Bool returns the boolean payload.
	Bool() bool

	// Date returns the date payload.
	Date() Date

	// Time returns the time payload.
	Time() Time

	// DateTime returns the date-time payload.
	DateTime() DateTime

	// Len returns the element count of an array or the entry count of a
	// table.
	Len() int

	// Elem returns the i-th array element, or nil if the slot is absent.
	Elem(i int) Node

	// Key returns the i-th table key in document order.
	Key(i int) string

	// Value returns the value paired with the i-th table key.
	Value(i int) Node
}

// Parser turns raw document text into a tree of Nodes. The returned root is
// always a table node. Malformed input yields a *ParseError.
type Parser interface {
	Parse(input []byte) (Node, error)
}

// ParseError describes malformed input with its source position. Line and
// Column are 1-based.
type ParseError struct {
	Message string
	Line    int64
	Column  int64
}

// Error implements the error interface.
func (e *ParseError) Error() string {
	return fmt.Sprintf("%d:%d: %s", e.Line, e.Column, e.Message)
}
