// Package catalog is the declarative registry of node and mark types that a
// document may contain.
//
// # Descriptors
//
// Every type is declared by a Descriptor: its name, whether it is a node or a
// mark, the groups it belongs to, a content expression describing its legal
// children, an attribute schema, the commands it contributes and a render
// rule used by read-only rendering.
//
// # Building
//
// A Builder collects descriptors and compiles them into a Catalog. Duplicate
// names, unparseable content expressions, unknown validators and dangling
// references fail at Register or Build time with a *ConfigError. Once built a
// Catalog never changes and may be shared by any number of editor instances.
//
// # Content expressions
//
// Content expressions use the familiar grammar of type and group names
// combined with sequence, "|" choice, parentheses and the *, +, ? and {n,m}
// quantifiers:
//
//	block*
//	paragraph block*
//	(tableCell | tableHeader)*
//	heading{1,3} paragraph+
//
// Expressions compile to a small NFA that matches child type sequences and can
// compute the cheapest filler needed to complete a partial sequence.
package catalog
