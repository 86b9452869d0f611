// Package tomldoc adapts the go-toml expression parser to the document tree
// abstraction. Tokenizing and grammar live entirely in
// github.com/pelletier/go-toml/v2/unstable; this package interprets the
// expression stream into an ordered tree, scans scalar literals, and reports
// 1-based line/column positions for every failure, whether it comes from the
// parser or from TOML document semantics (duplicate keys, redefined tables,
// appends to static arrays).
package tomldoc

import (
	"errors"
	"fmt"
	"strings"

	"github.com/pelletier/go-toml/v2/unstable"

	"github.com/openfroyo/tomlsnap/pkg/document"
)

// Parser implements document.Parser for TOML input. The zero value is ready
// to use; Parse is stateless and safe for concurrent use.
type Parser struct{}

// Parse builds the ordered document tree for input. The returned root is
// always a table node. Malformed input yields a *document.ParseError.
func (Parser) Parse(input []byte) (document.Node, error) {
	b := &builder{data: input, root: newTable()}
	b.root.explicit = true
	b.current = b.root

	var p unstable.Parser
	p.Reset(input)
	consumed := 0
	for p.NextExpression() {
		e := p.Expression()

		var err error
		switch e.Kind {
		case unstable.KeyValue:
			err = b.insert(b.current, e, false)
		case unstable.Table:
			err = b.tableHeader(e)
		case unstable.ArrayTable:
			err = b.arrayTableHeader(e)
		}
		if err != nil {
			return nil, err
		}
		if end := exprEnd(e); end > consumed {
			consumed = end
		}
	}
	if err := p.Error(); err != nil {
		return nil, b.position(err, consumed)
	}
	return b.root, nil
}

// builder accumulates expressions into the document tree. current is the
// table the most recent [header] selected; key/value expressions land there.
type builder struct {
	data    []byte
	root    *table
	current *table
}

// insert applies one key/value expression to t, creating any dotted
// intermediate tables. inline marks intermediates created inside an inline
// table, which are closed to later extension along with their parent.
func (b *builder) insert(t *table, e *unstable.Node, inline bool) error {
	parts, offsets := b.keyParts(e)

	for i := 0; i < len(parts)-1; i++ {
		child, ok := t.child(parts[i])
		if !ok {
			sub := newTable()
			// Dotted-key tables count as defined: a later
			// [header] for the same path is a redefinition.
			sub.explicit = true
			sub.inline = inline
			t.set(parts[i], sub)
			t = sub
			continue
		}
		sub, ok := child.(*table)
		if !ok {
			return b.errorAt(offsets[i], "key %q conflicts with an existing value", joinKey(parts[:i+1]))
		}
		if sub.inline && !inline {
			return b.errorAt(offsets[i], "cannot extend inline table %q", joinKey(parts[:i+1]))
		}
		t = sub
	}

	last := len(parts) - 1
	if _, exists := t.child(parts[last]); exists {
		return b.errorAt(offsets[last], "duplicate key %q", joinKey(parts))
	}

	v, err := b.value(e.Value())
	if err != nil {
		return err
	}
	t.set(parts[last], v)
	return nil
}

// tableHeader handles a [a.b.c] expression: it navigates (creating implicit
// intermediates) and selects the target table for subsequent key/values.
func (b *builder) tableHeader(e *unstable.Node) error {
	parts, offsets := b.keyParts(e)

	t := b.root
	for i := 0; i < len(parts)-1; i++ {
		var err error
		t, err = b.descend(t, parts, i, offsets[i])
		if err != nil {
			return err
		}
	}

	last := len(parts) - 1
	child, ok := t.child(parts[last])
	if !ok {
		sub := newTable()
		sub.explicit = true
		t.set(parts[last], sub)
		b.current = sub
		return nil
	}

	sub, isTable := child.(*table)
	if !isTable {
		return b.errorAt(offsets[last], "key %q conflicts with an existing value", joinKey(parts))
	}
	if sub.explicit || sub.inline {
		return b.errorAt(offsets[last], "table %q is already defined", joinKey(parts))
	}
	// Implicitly created by a deeper header; the definition lands now.
	sub.explicit = true
	b.current = sub
	return nil
}

// arrayTableHeader handles a [[a.b]] expression: it appends a fresh table to
// the array of tables at the path, creating the array on first use.
func (b *builder) arrayTableHeader(e *unstable.Node) error {
	parts, offsets := b.keyParts(e)

	t := b.root
	for i := 0; i < len(parts)-1; i++ {
		var err error
		t, err = b.descend(t, parts, i, offsets[i])
		if err != nil {
			return err
		}
	}

	last := len(parts) - 1
	child, ok := t.child(parts[last])
	if !ok {
		sub := newTable()
		sub.explicit = true
		t.set(parts[last], &array{elems: []document.Node{sub}, fromHeaders: true})
		b.current = sub
		return nil
	}

	arr, isArray := child.(*array)
	if !isArray || !arr.fromHeaders {
		return b.errorAt(offsets[last], "cannot append table to %q", joinKey(parts))
	}
	sub := newTable()
	sub.explicit = true
	arr.elems = append(arr.elems, sub)
	b.current = sub
	return nil
}

// descend resolves one intermediate header path segment, creating an implicit
// table when absent. When the segment holds an array of tables, the header
// targets its most recent element.
func (b *builder) descend(t *table, parts []string, i int, offset int) (*table, error) {
	child, ok := t.child(parts[i])
	if !ok {
		sub := newTable()
		t.set(parts[i], sub)
		return sub, nil
	}
	switch c := child.(type) {
	case *table:
		if c.inline {
			return nil, b.errorAt(offset, "cannot extend inline table %q", joinKey(parts[:i+1]))
		}
		return c, nil
	case *array:
		if !c.fromHeaders || len(c.elems) == 0 {
			return nil, b.errorAt(offset, "cannot extend array %q", joinKey(parts[:i+1]))
		}
		return c.elems[len(c.elems)-1].(*table), nil
	default:
		return nil, b.errorAt(offset, "key %q conflicts with an existing value", joinKey(parts[:i+1]))
	}
}

// value converts one parsed value expression into a tree node. The conversion
// is total for recognized kinds; literal scanning failures carry the literal's
// position.
func (b *builder) value(n *unstable.Node) (document.Node, error) {
	switch n.Kind {
	case unstable.String:
		// The parser's buffers are reused between expressions; copy out.
		return &scalar{kind: document.KindString, str: append([]byte(nil), n.Data...)}, nil

	case unstable.Integer:
		text := b.text(n)
		v, err := scanInteger(text)
		if err != nil {
			return nil, b.errorAt(int(n.Raw.Offset), "invalid integer %q: %v", text, err)
		}
		return &scalar{kind: document.KindInteger, i: v}, nil

	case unstable.Float:
		text := b.text(n)
		v, err := scanFloat(text)
		if err != nil {
			return nil, b.errorAt(int(n.Raw.Offset), "invalid float %q: %v", text, err)
		}
		return &scalar{kind: document.KindFloat, f: v}, nil

	case unstable.Bool:
		text := b.text(n)
		return &scalar{kind: document.KindBool, b: strings.HasPrefix(text, "t")}, nil

	case unstable.LocalDate:
		text := b.text(n)
		d, err := scanDate(text)
		if err != nil {
			return nil, b.errorAt(int(n.Raw.Offset), "invalid date %q: %v", text, err)
		}
		return &scalar{kind: document.KindDate, d: d}, nil

	case unstable.LocalTime:
		text := b.text(n)
		tv, _, err := scanTime(text)
		if err != nil {
			return nil, b.errorAt(int(n.Raw.Offset), "invalid time %q: %v", text, err)
		}
		return &scalar{kind: document.KindTime, t: tv}, nil

	case unstable.LocalDateTime, unstable.DateTime:
		text := b.text(n)
		dt, err := scanDateTime(text)
		if err != nil {
			return nil, b.errorAt(int(n.Raw.Offset), "invalid date-time %q: %v", text, err)
		}
		return &scalar{kind: document.KindDateTime, dt: dt}, nil

	case unstable.Array:
		arr := &array{}
		it := n.Children()
		for it.Next() {
			elem, err := b.value(it.Node())
			if err != nil {
				return nil, err
			}
			arr.elems = append(arr.elems, elem)
		}
		return arr, nil

	case unstable.InlineTable:
		t := newTable()
		t.explicit = true
		t.inline = true
		it := n.Children()
		for it.Next() {
			if err := b.insert(t, it.Node(), true); err != nil {
				return nil, err
			}
		}
		return t, nil

	default:
		return &scalar{kind: document.KindNone}, nil
	}
}

// text returns the literal text of a scalar token, falling back to the raw
// input range when the parser left Data unset.
func (b *builder) text(n *unstable.Node) string {
	if len(n.Data) > 0 {
		return string(n.Data)
	}
	end := int(n.Raw.Offset) + int(n.Raw.Length)
	if n.Raw.Length == 0 || end > len(b.data) {
		return ""
	}
	return string(b.data[n.Raw.Offset:end])
}

// keyParts collects the decoded key segments of a key/value or header
// expression, with each segment's byte offset for error positions.
func (b *builder) keyParts(e *unstable.Node) ([]string, []int) {
	var parts []string
	var offsets []int
	it := e.Key()
	for it.Next() {
		n := it.Node()
		parts = append(parts, string(n.Data))
		offsets = append(offsets, int(n.Raw.Offset))
	}
	return parts, offsets
}

// position folds a go-toml parser error into a positioned ParseError. The
// error is anchored at the start of the expression that failed to parse, not
// at the token the parser choked on: consumers expect the position of the
// offending construct, so a top-level array literal is reported at its
// opening bracket.
func (b *builder) position(err error, consumed int) error {
	anchor := nextConstruct(b.data, consumed)
	line, col := lineColumn(b.data, anchor)
	msg := err.Error()
	var pe *unstable.ParserError
	if errors.As(err, &pe) {
		msg = pe.Message
	}
	return &document.ParseError{Message: msg, Line: line, Column: col}
}

// exprEnd returns the offset one past the last raw token in the expression
// subtree. Closing delimiters are not tokens and may lie beyond it.
func exprEnd(n *unstable.Node) int {
	end := int(n.Raw.Offset) + int(n.Raw.Length)
	it := n.Children()
	for it.Next() {
		if e := exprEnd(it.Node()); e > end {
			end = e
		}
	}
	return end
}

// nextConstruct returns the offset of the first byte at or after from that
// can begin an expression. It skips whitespace, comments, and the closing
// delimiters of a preceding expression (']', '}', ','), none of which may
// start a TOML expression.
func nextConstruct(data []byte, from int) int {
	i := from
	if i < 0 {
		i = 0
	}
	for i < len(data) {
		switch data[i] {
		case ' ', '\t', '\r', '\n', ']', '}', ',':
			i++
		case '#':
			for i < len(data) && data[i] != '\n' {
				i++
			}
		default:
			return i
		}
	}
	return len(data)
}

// errorAt builds a positioned semantic error from a byte offset.
func (b *builder) errorAt(offset int, format string, args ...interface{}) error {
	line, col := lineColumn(b.data, offset)
	return &document.ParseError{
		Message: fmt.Sprintf(format, args...),
		Line:    line,
		Column:  col,
	}
}

// lineColumn converts a byte offset into 1-based line/column coordinates.
func lineColumn(data []byte, offset int) (int64, int64) {
	if offset < 0 {
		offset = 0
	}
	if offset > len(data) {
		offset = len(data)
	}
	line := int64(1)
	col := int64(1)
	for _, c := range data[:offset] {
		if c == '\n' {
			line++
			col = 1
		} else {
			col++
		}
	}
	return line, col
}

// joinKey renders a dotted key path for error messages.
func joinKey(parts []string) string {
	return strings.Join(parts, ".")
}
