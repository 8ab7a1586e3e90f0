// Package engine provides the editor instance for Big Brain's rich-text
// fields.
//
// An Editor holds one schema-valid document tree, its selection and stored
// marks, and an undo history. All changes go through transactions built by
// named commands; a transaction commits only when its result passes the
// schema validator and the character limit.
//
// # Architecture
//
// The engine is built on several sub-packages:
//
//   - catalog: node and mark types, content expressions, attribute validators
//   - wire: the serialized JSON document format
//   - model: immutable document nodes and position resolution
//   - schema: validation, normalization and sanitizing loads
//   - transform: invertible steps and transactions
//   - command: the command registry and built-in commands
//   - history: undo/redo with typing coalescing
//   - guard: the character limit
//   - controlled: keeping an editor in step with an externally owned value
//
// # Commit Pipeline
//
// Every dispatch runs the same way:
//
//	command(s) -> validate -> limit check -> apply -> revision++
//	           -> history -> views -> commit observer
//
// A refusal or rejection at any stage discards the transaction and leaves
// the editor untouched. Undo and redo are validated but not limited, so a
// document loaded over the limit can still be reverted.
//
// # Basic Usage
//
//	cat := catalog.MustDefault()
//	ed, err := engine.New(cat, engine.WithLimit(2000))
//	if err != nil {
//		return err
//	}
//	defer ed.Dispose()
//
//	stop, _ := ed.OnCommit(func(c engine.Change) {
//		save(c.Value())
//	})
//	defer stop()
//
//	ed.Dispatch("insertText", command.Params{"text": "Hello"})
//	ed.Dispatch("toggleBold", nil)
//	ed.Undo()
//
// # Chains
//
// Run applies several commands as one transaction. If any of them refuses,
// nothing is committed:
//
//	ed.Run(
//		command.Invoke("selectAll", nil),
//		command.Invoke("setHeading", command.Params{"level": 2}),
//	)
//
// # Thread Safety
//
// Editor methods are safe for concurrent use. Mutations are serialized.
// Views and the observer are called without the editor's lock held, in
// commit order.
package engine
