// Package command maps editing intents onto transaction steps.
//
// A command is a function of a transaction and its parameters. It reads the
// transaction's current document and selection and either adds steps or
// returns a *Refusal. Commands hold no state of their own, so the same
// document, selection and parameters always produce the same steps.
//
// # Chains
//
// Several invocations may run against one transaction. Each sees the result
// of the previous one; the first failure aborts the chain and the caller
// throws the transaction away, so a chain is all-or-nothing.
//
// # Availability
//
// Core commands (text input, deletion, selection, generic mark commands)
// are always available. The rest are contributed by catalog types: a
// catalog without a table type has no table commands. Registry.Bind
// resolves the contributed names once and fails if one is unknown.
package command
