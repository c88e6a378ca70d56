// Package wbs models a Work Breakdown Structure as an ordered forest of tasks.
//
// # Identifiers
//
// Every task carries a dotted numeric identifier ("2.1.3"). The identifier
// encodes the task's position in the hierarchy: its level is the number of
// dots plus one, and a child's identifier has its parent's identifier as a
// strict dot-prefix.
//
// # Building a Tree
//
// Trees come from two sources:
//   - ParseOutline turns flat numbered lines into a forest in a single pass
//   - Merge combines JSON fragments that share a common project root
//
// Example:
//
//	roots, err := wbs.ParseOutline([]string{
//	    "1 Root",
//	    "1.1 Design",
//	    "1.1.1 Draft spec",
//	    "1.2 Build",
//	})
//
// The default parser trusts input order. A line that appears after an
// unrelated sibling attaches to whatever ancestor is on the stack at that
// moment. Pass WithStrictOrder to reject such input instead.
//
// # Ownership
//
// A node owns its Children exclusively. Nodes are not safe for concurrent
// mutation; callers serialize access to a tree.
package wbs
