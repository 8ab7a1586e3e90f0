// Package script runs Lua macros against an editor.
//
// A macro queues commands through the bb module. Nothing is applied while
// the script runs; when it returns, every queued command is run as one
// chain, so a macro either commits completely or not at all, and undoes
// as a single step.
//
//	bb.run("selectAll")
//	bb.run("setHeading", {level = 2})
//	if bb.can("toggleBold") then
//	  bb.run("toggleBold")
//	end
//
// Reads such as bb.text and bb.selection see the editor as it was when the
// macro started. bb.can checks the queued chain plus the given command.
//
// Scripts run in a fresh sandboxed state with only the base, table, string
// and math libraries; file loading and require are removed.
package script
