// Package query evaluates conjunctive shader queries against an index
// snapshot. Every clause must match; results are shader ids in
// ascending order.
package query

import (
	"strconv"
	"strings"

	"github.com/shaderdex/shaderdex/internal/shader"
)

// Query describes one conjunctive query. Zero values mean "no clause".
type Query struct {
	// Tags are exact tag membership clauses, matched case-insensitively.
	Tags []string

	// Name, Author, and Description are case-insensitive substring
	// clauses over the corresponding record fields.
	Name        string
	Author      string
	Description string

	// Requires holds one membership clause per resource kind: the
	// shader must require every kind in the set.
	Requires shader.KindSet
}

// Clauses returns the number of clauses in the query.
func (q Query) Clauses() int {
	n := len(q.Tags) + q.Requires.Len()
	if q.Name != "" {
		n++
	}
	if q.Author != "" {
		n++
	}
	if q.Description != "" {
		n++
	}
	return n
}

// Empty returns true when the query has no clauses.
func (q Query) Empty() bool {
	return q.Clauses() == 0
}

// Shape returns the canonical clause-shape label, the present clause
// groups joined in a fixed order, e.g. "tags+name+requires".
func (q Query) Shape() string {
	var groups []string
	if len(q.Tags) > 0 {
		groups = append(groups, "tags")
	}
	if q.Name != "" {
		groups = append(groups, "name")
	}
	if q.Author != "" {
		groups = append(groups, "author")
	}
	if q.Description != "" {
		groups = append(groups, "description")
	}
	if !q.Requires.Empty() {
		groups = append(groups, "requires")
	}
	if len(groups) == 0 {
		return "empty"
	}
	return strings.Join(groups, "+")
}

// String renders the query in a compact printable form.
func (q Query) String() string {
	var parts []string
	if len(q.Tags) > 0 {
		parts = append(parts, "tags=["+strings.Join(q.Tags, ",")+"]")
	}
	if q.Name != "" {
		parts = append(parts, "name="+strconv.Quote(q.Name))
	}
	if q.Author != "" {
		parts = append(parts, "author="+strconv.Quote(q.Author))
	}
	if q.Description != "" {
		parts = append(parts, "description="+strconv.Quote(q.Description))
	}
	if !q.Requires.Empty() {
		parts = append(parts, "requires=["+strings.Join(q.Requires.Names(), ",")+"]")
	}
	if len(parts) == 0 {
		return "(empty)"
	}
	return strings.Join(parts, " ")
}
