package sat

import (
	"errors"
	"fmt"
	"time"

	"github.com/arborsat/dpll/internal/igraph"
)

// Options configures a Solver at construction time.
type Options struct {
	// Timeout bounds Solve's wall-clock budget. Zero means no bound.
	Timeout time.Duration
	// AllowEmptyClauses lets NewSolver accept an empty clause (trivially
	// UNSAT) instead of rejecting it as malformed input.
	AllowEmptyClauses bool
	// Learning switches Solve from the deterministic chronological
	// backtrack-and-flip baseline (spec.md §4.5) to the conflict-driven
	// clause-learning driver (cdcl.go): first-UIP analysis via
	// internal/igraph and non-chronological backjumping. See WithLearning.
	Learning bool
}

// DefaultOptions returns the zero-value Options: no timeout, empty clauses
// rejected.
func DefaultOptions() Options {
	return Options{}
}

// Option mutates Options; see WithTimeout, WithAllowEmptyClauses.
type Option func(*Options)

// WithTimeout bounds Solve to at most d wall-clock time.
func WithTimeout(d time.Duration) Option {
	return func(o *Options) { o.Timeout = d }
}

// WithAllowEmptyClauses lets the formula contain an empty (vacuously false)
// clause rather than rejecting it at construction.
func WithAllowEmptyClauses(allow bool) Option {
	return func(o *Options) { o.AllowEmptyClauses = allow }
}

// WithLearning enables the conflict-driven clause-learning search mode (see
// cdcl.go) in place of the chronological baseline. Disabled by default: the
// baseline is what spec.md §8's deterministic scenarios and laws are
// checked against.
func WithLearning(enable bool) Option {
	return func(o *Options) { o.Learning = enable }
}

// Solver holds a CNF formula and the mutable search state (trail and
// watched literals) used to decide its satisfiability (spec.md §3).
type Solver struct {
	numVars int
	clauses []*Clause

	value    []bool
	assigned []bool

	// reason and varLevel are antecedent bookkeeping consulted only by the
	// learning driver (cdcl.go): reason[v] is the clause that forced v (nil
	// for a decision or an unreasoned root fact), varLevel[v] is the
	// decision level v was assigned at. Maintained unconditionally (in
	// applyForced/AddDecision/unassign) since the cost is negligible and it
	// keeps bcp.go free of a Learning-mode branch.
	reason   []*Clause
	varLevel []int

	trail *trail

	// numDecisions is the cumulative count of AddDecision calls (spec.md §6's
	// get_num_decisions); unlike trail.decisionLevel(), it is never
	// decremented by Backtrack.
	numDecisions int

	opts        Options
	hasDeadline bool
	deadline    time.Time

	// graph is the implication graph the learning driver builds from the
	// trail on each conflict (cdcl.go); lazily created so the baseline
	// never pays for it.
	graph *igraph.Graph

	// order is the VSIDS decision-variable order the learning driver uses in
	// place of smallest-unassigned selection (ordering.go); nil unless
	// Options.Learning is set, so the baseline never pays for the heap.
	order *VarOrder

	// emaFast/emaSlow track a moving average of recent learned-clause sizes;
	// numConflicts counts conflicts since the last restart. Both are used
	// only by the learning driver's restart pacing (cdcl.go).
	emaFast, emaSlow ema
	numConflicts     int
}

// NewSolver builds a Solver for a formula over numVars variables (ids 1..
// numVars), given as clauses of signed, non-zero DIMACS-style literals.
// It returns ErrInvalidInput for an out-of-range or zero literal, or for an
// empty clause unless WithAllowEmptyClauses is set.
func NewSolver(numVars int, clauses [][]int, opts ...Option) (*Solver, error) {
	if numVars < 0 {
		return nil, fmt.Errorf("sat: negative variable count: %w", ErrInvalidInput)
	}

	o := DefaultOptions()
	for _, opt := range opts {
		opt(&o)
	}

	s := &Solver{
		numVars:  numVars,
		value:    make([]bool, numVars),
		assigned: make([]bool, numVars),
		reason:   make([]*Clause, numVars),
		varLevel: make([]int, numVars),
		trail:    newTrail(),
		opts:     o,
	}
	if o.Timeout > 0 {
		s.hasDeadline = true
	}
	if o.Learning {
		s.order = newVarOrder(numVars, 0.95)
		s.emaFast = newEMA(0.1)
		s.emaSlow = newEMA(0.999)
	}

	for _, lits := range clauses {
		if len(lits) == 0 && !o.AllowEmptyClauses {
			return nil, fmt.Errorf("sat: empty clause: %w", ErrInvalidInput)
		}
		packed := make([]Literal, len(lits))
		for i, l := range lits {
			if l == 0 {
				return nil, fmt.Errorf("sat: literal 0 is not a valid variable id: %w", ErrInvalidInput)
			}
			id := l
			if id < 0 {
				id = -id
			}
			if id > numVars {
				return nil, fmt.Errorf("sat: literal %d exceeds variable count %d: %w", l, numVars, ErrInvalidInput)
			}
			packed[i] = FromSigned(l)
		}
		s.clauses = append(s.clauses, newClause(packed))
	}

	return s, nil
}

// litValue reports l's truth value under the current assignment, and
// whether l's variable is assigned at all.
func (s *Solver) litValue(l Literal) (val bool, ok bool) {
	v := l.Var()
	if !s.assigned[v] {
		return false, false
	}
	if l.IsPositive() {
		return s.value[v], true
	}
	return !s.value[v], true
}

func (s *Solver) isAssigned(v Var) bool {
	return s.assigned[v]
}

func (s *Solver) assign(v Var, val bool) {
	s.value[v] = val
	s.assigned[v] = true
}

func (s *Solver) unassign(v Var) {
	s.assigned[v] = false
	s.value[v] = false
	s.reason[v] = nil
}

// NumVariables returns the variable count the solver was constructed with.
func (s *Solver) NumVariables() int {
	return s.numVars
}

// DecisionLevel reports the current decision level, 0 at the root.
func (s *Solver) DecisionLevel() int {
	return s.trail.decisionLevel()
}

// NumDecisions reports the total number of AddDecision calls made so far
// (spec.md §6's get_num_decisions), a cumulative count that is never
// decremented by Backtrack — unlike DecisionLevel, it remains accurate after
// a backtrack-and-flip or a completed solve (spec.md §7).
func (s *Solver) NumDecisions() int {
	return s.numDecisions
}

// AddDecision assigns external (1-based) variable id v to value, opening a
// new decision level (spec.md §4.3). It returns ErrInvalidOperation if v is
// out of range or already assigned.
func (s *Solver) AddDecision(v int, value bool) error {
	if v <= 0 || v > s.numVars {
		return fmt.Errorf("sat: variable id %d out of range [1,%d]: %w", v, s.numVars, ErrInvalidOperation)
	}
	vv := Var(v - 1)
	if s.isAssigned(vv) {
		return fmt.Errorf("sat: variable %d already assigned: %w", v, ErrInvalidOperation)
	}

	s.assign(vv, value)
	s.trail.push(vv)
	s.trail.pushDecision()
	s.numDecisions++
	s.reason[vv] = nil
	s.varLevel[vv] = s.trail.decisionLevel()
	s.updateWatchersFor(vv)

	return nil
}

// Backtrack undoes the most recent decision level, including every
// propagated assignment made since (spec.md §4.3). The cut is the trail
// length recorded just after the previous decision's own variable, so the
// assignments propagated at the level below (and, from level 1, every
// level-0 fact) are removed too. Backtracking past decision level 0 is a
// no-op, never an error.
func (s *Solver) Backtrack() error {
	if s.trail.decisionLevel() == 0 {
		return nil
	}
	for _, v := range s.trail.popLevel() {
		s.unassign(v)
		if s.order != nil {
			s.order.reinsert(v)
		}
	}
	return nil
}

// BCP runs one sweep of Boolean constraint propagation and reports the
// forced assignments applied, keyed by external (1-based) variable id. It
// returns bcp's ErrImpossibleAssignment unchanged, so callers can use
// errors.Is.
func (s *Solver) BCP() (map[int]bool, error) {
	forced, err := s.bcp()
	if err != nil {
		return nil, err
	}
	out := make(map[int]bool, len(forced))
	for v, val := range forced {
		out[int(v)+1] = val
	}
	return out, nil
}

func (s *Solver) updateWatchersFor(v Var) {
	for _, c := range s.clauses {
		c.updateWatchers(s, v)
	}
}

// overallStatus aggregates every clause's status under the current
// assignment: satisfied only if every clause is satisfied, contradiction if
// any clause is, unsaturated otherwise.
func (s *Solver) overallStatus() status {
	sawUnsaturated := false
	for _, c := range s.clauses {
		switch c.statusUnder(s) {
		case contradiction:
			return contradiction
		case unsaturated:
			sawUnsaturated = true
		}
	}
	if sawUnsaturated {
		return unsaturated
	}
	return satisfied
}

// smallestUnassigned returns the lowest-indexed unassigned variable, per
// spec.md §4.5's deterministic decision rule.
func (s *Solver) smallestUnassigned() (Var, bool) {
	for v := 0; v < s.numVars; v++ {
		if !s.assigned[v] {
			return Var(v), true
		}
	}
	return 0, false
}

// decisionRecord is one entry of Solve's decision history: the variable
// decided and the decision level it was made at, recorded before the
// decision was pushed (spec.md §4.5). It is local driver bookkeeping, not
// Solver state: AddDecision/Backtrack called directly know nothing of it.
type decisionRecord struct {
	v  Var
	dl int
}

// Solve runs the non-recursive DPLL loop of spec.md §4.5 to completion: BCP
// to a fixed point; on conflict, pop the most recent decision, backtrack to
// its pre-decision level, and retry it with the opposite polarity (each
// variable is tried both ways at most once before the pop cascades further);
// otherwise decide the smallest unassigned variable true. Returns true
// (SAT), false (UNSAT, decision history exhausted), or ErrTimedOut if a
// configured timeout elapses first.
func (s *Solver) Solve() (bool, error) {
	if s.hasDeadline {
		s.deadline = time.Now().Add(s.opts.Timeout)
	}

	if s.opts.Learning {
		return s.solveLearning()
	}

	var history []decisionRecord

	for {
		if s.hasDeadline && time.Now().After(s.deadline) {
			return false, ErrTimedOut
		}

		conflict := false
		for {
			forced, err := s.bcp()
			if err != nil {
				if !errors.Is(err, ErrImpossibleAssignment) {
					return false, err
				}
				conflict = true
				break
			}
			if len(forced) == 0 {
				break
			}
		}

		if !conflict {
			switch s.overallStatus() {
			case satisfied:
				return true, nil
			case contradiction:
				conflict = true
			}
		}

		if conflict {
			if len(history) == 0 {
				return false, nil
			}
			rec := history[len(history)-1]
			history = history[:len(history)-1]

			for s.trail.decisionLevel() != rec.dl {
				if err := s.Backtrack(); err != nil {
					return false, err
				}
			}
			if err := s.AddDecision(int(rec.v)+1, false); err != nil {
				return false, err
			}
			continue
		}

		v, ok := s.smallestUnassigned()
		if !ok {
			return true, nil
		}
		history = append(history, decisionRecord{v: v, dl: s.trail.decisionLevel()})
		if err := s.AddDecision(int(v)+1, true); err != nil {
			return false, err
		}
	}
}

// Model returns the current assignment as external (1-based) variable ids
// mapped to their truth value. Only assigned variables are present. Once
// Solve has returned true the assignment satisfies every clause; the
// baseline search stops as soon as every clause is satisfied, so variables
// it never needed to assign are absent, while the learning driver assigns
// every variable.
func (s *Solver) Model() map[int]bool {
	m := make(map[int]bool, s.numVars)
	for v := 0; v < s.numVars; v++ {
		if s.assigned[v] {
			m[v+1] = s.value[v]
		}
	}
	return m
}
