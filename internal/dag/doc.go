// Package dag holds a small directed acyclic graph keyed by string IDs. The
// call file loader uses it to order calls by their dependencies and to group
// them into levels that can run concurrently.
package dag
