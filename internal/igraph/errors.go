// Package igraph implements the implication graph used for first-UIP
// conflict analysis (spec.md §4.4): CreateNode records a forced assignment
// and its antecedents; once the negation of some recorded literal is added,
// the graph holds a conflict and ConflictClause extracts a learned clause
// and backjump level from it.
package igraph

import "errors"

// ErrImplicationGraph reports a violated CreateNode/ConflictClause
// invariant: a programmer error (malformed call sequence), not a result to
// branch on.
var ErrImplicationGraph = errors.New("igraph: invalid operation")
