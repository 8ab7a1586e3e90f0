// Package schema validates document trees against a catalog and loads
// serialized documents under a configurable policy.
//
// Validate is run on every externally supplied value and on every
// transaction result before commit. A tree that passes is canonical: marks
// are in rank order with no duplicate or mutually exclusive types, adjacent
// text runs with equal marks are merged, and every attribute is present and
// valid.
//
// Load runs Decode, Build, Normalize and Validate in that order. Under
// PolicyReject the first problem fails the load; under PolicyDrop offending
// subtrees, marks and attributes are removed and reported as warnings.
package schema
