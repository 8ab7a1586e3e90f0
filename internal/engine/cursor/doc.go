// Package cursor provides the selection model of an editor instance.
//
// Selection Model:
//
// A Selection is an anchor/head pair of document positions:
//   - Anchor: where the selection started
//   - Head: where the cursor is (where typing would occur)
//
// When Anchor == Head the selection is a cursor. A selection can extend
// forward (head > anchor) or backward (head < anchor), preserving the
// direction the user selected in.
//
// Mapping:
//
// Selections are carried across document changes by a Mapper, the position
// map of a step or transaction:
//
//	sel := cursor.Range(3, 8)
//	sel = sel.Map(tr.Mapping())
//
// A selection is owned by one live editor instance and is never part of the
// serialized document.
package cursor
