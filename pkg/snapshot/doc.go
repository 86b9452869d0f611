// Package snapshot turns raw TOML text into a flat, read-only, arena-owned
// snapshot of the document.
//
// One call to Convert parses the input, walks the resulting tree exactly
// once, and packs every value into tagged Nodes whose storage lives in a
// single arena. The returned Result is the only owner of that arena: closing
// the Result releases everything at once and invalidates every Node, string,
// and key obtained from it. Between Convert and Close, nothing mutates: the
// snapshot is a one-shot view, not a serialization framework.
//
//	res := snapshot.Convert(input)
//	defer res.Close()
//	if !res.OK() {
//		return fmt.Errorf("%d:%d: %s", res.ErrLine(), res.ErrColumn(), res.ErrMessage())
//	}
//	root := res.Root() // table node, keys in document order
//
// Independent conversions share no state and may run concurrently; a single
// Result must not be closed from two goroutines at once.
package snapshot
