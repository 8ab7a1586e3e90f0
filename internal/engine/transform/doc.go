// Package transform implements invertible document steps and the
// transactions that group them.
//
// # Steps
//
// A Step is a primitive change: ReplaceStep swaps a range inside one parent
// for new content, AddMarkStep and RemoveMarkStep annotate text, SplitStep
// and JoinStep split a node in two or join two siblings, and SetNodeStep
// changes a node's type and attributes. Every step returns its inverse
// given the document it was applied to, and applying a step followed by
// its inverse yields a tree equal to the original.
//
// Steps refuse to apply when their preconditions do not hold instead of
// silently doing less; this is what keeps inversion exact.
//
// # Transactions
//
// A Transaction starts from an immutable document and selection, applies
// steps in order, maps the selection through each step and records the
// document before every step so the whole transaction can be inverted.
// Helper methods (InsertText, Delete, AddMark, SetBlockType, ...) build
// correct step sequences for common edits.
package transform
