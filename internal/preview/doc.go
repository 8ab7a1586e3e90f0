// Package preview renders documents read-only.
//
// A Preview shares the catalog with editable instances but has no command,
// history or commit surface. Content is loaded leniently: anything the
// catalog does not allow is dropped and reported as a warning rather than
// failing the load. HTML output follows each type's render rule and is
// passed through a bluemonday policy before it leaves the package.
package preview
