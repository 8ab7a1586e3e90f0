// Package history provides undo and redo for the editing engine.
//
// # Entries
//
// Every committed transaction that changes the document is recorded as an
// entry: the inverse of its steps, in application order, together with the
// selection before and after the change. Undo applies an entry's steps to
// the current document and moves the inverse of that application onto the
// redo stack; Redo is symmetric.
//
//	h := history.New(1000)
//	h.Record(tx)
//	err := h.Undo(doc, sel, commit)
//
// # Coalescing
//
// Consecutive typing collapses into one entry: an insertText transaction
// is merged into the previous entry when it starts where that entry left
// the cursor, arrives within the coalescing window and the entry holds
// fewer than the configured number of transactions. Break ends the current
// run, for example after a selection-only change.
//
// # Grouping
//
// Transactions recorded between BeginGroup and EndGroup form a single
// entry regardless of kind or timing.
package history
