package sat

import "errors"

// ErrInvalidInput is returned by NewSolver for malformed construction
// arguments (e.g. an empty clause, when disallowed).
var ErrInvalidInput = errors.New("sat: invalid input")

// ErrInvalidOperation is returned by AddDecision for a request that violates
// its preconditions (unknown variable, non-positive id, already assigned).
// Backtrack past decision level 0 is a no-op, never this error.
var ErrInvalidOperation = errors.New("sat: invalid operation")

// ErrImpossibleAssignment is raised internally by bcp when propagation
// demands contradictory values for the same variable. It is local control
// flow: Solve catches it and converts it into a backtrack-and-flip step. It
// is exported only so that a direct call to BCP can detect it with
// errors.Is.
var ErrImpossibleAssignment = errors.New("sat: impossible assignment")

// ErrTimedOut is returned by Solve when the wall-clock budget passed to
// NewSolver via WithTimeout is exceeded. The solver handle remains
// inspectable, but Solve must not be called again.
var ErrTimedOut = errors.New("sat: timed out")
