// Package config loads Big Brain's host configuration.
//
// Configuration is read in three layers, later layers winning:
//
//  1. Built-in defaults (Default)
//  2. A TOML file, which may pull in others with "@include"
//  3. BIGBRAIN_* environment variables
//
// # File Format
//
//	[editor]
//	limit = 2000
//	history_depth = 1000
//	coalesce_window = "500ms"
//	char_counting = "runes"
//
//	[catalog]
//	path = "catalog.yaml"
//
//	[logging]
//	level = "info"
//
//	[fields.question]
//	limit = 10000
//
//	[fields.answer]
//	limit = 2000
//	editable = false
//
// # Environment
//
// Variables map onto paths by lower-casing and splitting on underscores:
// BIGBRAIN_EDITOR_HISTORY_DEPTH sets editor.history_depth and
// BIGBRAIN_FIELDS_ANSWER_LIMIT sets fields.answer.limit. BIGBRAIN_LIMIT,
// BIGBRAIN_CATALOG and BIGBRAIN_LOG_LEVEL are short forms of editor.limit,
// catalog.path and logging.level.
package config
