package snapshot

import (
	"github.com/openfroyo/tomlsnap/pkg/arena"
	"github.com/openfroyo/tomlsnap/pkg/document"
)

// convertNode flattens one source node, depth-first, in a single pass. The
// function is total over its input: every source node, including nil slots
// and unknown kinds, maps to some valid Node. The only failure mode is arena
// allocation, which is surfaced to the session boundary.
//
// Collection sizes are read before any element is converted so storage can be
// allocated once and filled by index; growing storage mid-walk would relocate
// children whose addresses are already recorded.
func convertNode(a *arena.Arena, src document.Node) (Node, error) {
	if src == nil {
		return Node{}, nil
	}

	switch src.Kind() {
	case document.KindString:
		str, err := a.Intern(src.Str())
		if err != nil {
			return Node{}, err
		}
		return Node{kind: KindString, str: str}, nil

	case document.KindInteger:
		return Node{kind: KindInteger, i64: src.Int()}, nil

	case document.KindFloat:
		return Node{kind: KindFloat, f64: src.Float()}, nil

	case document.KindBool:
		return Node{kind: KindBool, b: src.Bool()}, nil

	case document.KindDate:
		return Node{kind: KindDate, date: src.Date()}, nil

	case document.KindTime:
		return Node{kind: KindTime, tod: src.Time()}, nil

	case document.KindDateTime:
		return Node{kind: KindDateTime, dt: src.DateTime()}, nil

	case document.KindArray:
		count := src.Len()
		elems, err := arena.MakeSlice[Node](a, count)
		if err != nil {
			return Node{}, err
		}
		for i := 0; i < count; i++ {
			// A nil element (sparse source array) flattens to the
			// none variant via the nil check above.
			elem, err := convertNode(a, src.Elem(i))
			if err != nil {
				return Node{}, err
			}
			elems[i] = elem
		}
		return Node{kind: KindArray, elems: elems}, nil

	case document.KindTable:
		count := src.Len()
		keys, err := arena.MakeSlice[[]byte](a, count)
		if err != nil {
			return Node{}, err
		}
		vals, err := arena.MakeSlice[Node](a, count)
		if err != nil {
			return Node{}, err
		}
		for i := 0; i < count; i++ {
			key, err := a.InternString(src.Key(i))
			if err != nil {
				return Node{}, err
			}
			keys[i] = key

			val, err := convertNode(a, src.Value(i))
			if err != nil {
				return Node{}, err
			}
			vals[i] = val
		}
		return Node{kind: KindTable, keys: keys, elems: vals}, nil

	default:
		return Node{}, nil
	}
}
