package tomldoc

import "github.com/openfroyo/tomlsnap/pkg/document"

// base supplies zero-value accessors so each concrete node only overrides the
// variants it actually carries.
type base struct{}

func (base) Str() []byte                 { return nil }
func (base) Int() int64                  { return 0 }
func (base) Float() float64              { return 0 }
func (base) Bool() bool                  { return false }
func (base) Date() document.Date         { return document.Date{} }
func (base) Time() document.Time         { return document.Time{} }
func (base) DateTime() document.DateTime { return document.DateTime{} }
func (base) Len() int                    { return 0 }
func (base) Elem(int) document.Node      { return nil }
func (base) Key(int) string              { return "" }
func (base) Value(int) document.Node     { return nil }

// table keeps entries in document order. index exists only to make duplicate
// detection O(1); iteration always goes through keys/vals.
type table struct {
	base
	keys  []string
	vals  []document.Node
	index map[string]int

	// explicit marks tables defined by a [header] or by a dotted key
	// assignment; such tables cannot be redefined by a later header.
	explicit bool
	// inline marks inline tables, which are closed to later extension.
	inline bool
}

func newTable() *table {
	return &table{index: make(map[string]int)}
}

func (t *table) Kind() document.Kind { return document.KindTable }
func (t *table) Len() int            { return len(t.keys) }
func (t *table) Key(i int) string    { return t.keys[i] }

func (t *table) Value(i int) document.Node { return t.vals[i] }

func (t *table) child(key string) (document.Node, bool) {
	i, ok := t.index[key]
	if !ok {
		return nil, false
	}
	return t.vals[i], true
}

func (t *table) set(key string, n document.Node) {
	t.index[key] = len(t.keys)
	t.keys = append(t.keys, key)
	t.vals = append(t.vals, n)
}

// array holds ordered elements. fromHeaders distinguishes arrays built from
// [[header]] expressions, which may be appended to, from static value arrays,
// which may not.
type array struct {
	base
	elems       []document.Node
	fromHeaders bool
}

func (a *array) Kind() document.Kind { return document.KindArray }
func (a *array) Len() int            { return len(a.elems) }

func (a *array) Elem(i int) document.Node { return a.elems[i] }

// scalar carries exactly one leaf payload selected by kind.
type scalar struct {
	base
	kind document.Kind
	str  []byte
	i    int64
	f    float64
	b    bool
	d    document.Date
	t    document.Time
	dt   document.DateTime
}

func (s *scalar) Kind() document.Kind         { return s.kind }
func (s *scalar) Str() []byte                 { return s.str }
func (s *scalar) Int() int64                  { return s.i }
func (s *scalar) Float() float64              { return s.f }
func (s *scalar) Bool() bool                  { return s.b }
func (s *scalar) Date() document.Date         { return s.d }
func (s *scalar) Time() document.Time         { return s.t }
func (s *scalar) DateTime() document.DateTime { return s.dt }
