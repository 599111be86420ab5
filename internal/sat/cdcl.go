package sat

import (
	"fmt"
	"time"

	"github.com/arborsat/dpll/internal/igraph"
)

// solveLearning is the WithLearning(true) search loop: it replaces Solve's
// chronological backtrack-and-flip with first-UIP clause learning and
// non-chronological backjumping, as spec.md §4.5 allows substituting
// "if they preserve soundness, completeness, and the determinism required
// by §8." It reuses the same Clause/trail primitives as the baseline; the
// new machinery is per-conflict use of internal/igraph (see
// analyzeConflict), the learned-clause constructor in clause.go, and the
// VSIDS decision order and restart pacing (ordering.go, avg.go).
func (s *Solver) solveLearning() (bool, error) {
	for {
		if s.hasDeadline && time.Now().After(s.deadline) {
			return false, ErrTimedOut
		}

		conflict := s.propagateLearning()
		if conflict == nil {
			v, ok := s.nextLearningDecision()
			if !ok {
				return true, nil
			}
			if err := s.AddDecision(int(v)+1, true); err != nil {
				return false, err
			}
			continue
		}

		if s.trail.decisionLevel() == 0 {
			return false, nil
		}

		learned, backjumpLevel, err := s.analyzeConflict(conflict)
		if err != nil {
			return false, err
		}
		if err := s.learnAndBackjump(learned, backjumpLevel); err != nil {
			return false, err
		}
		s.bumpLearnedActivity(learned)
		if err := s.maybeRestart(len(learned)); err != nil {
			return false, err
		}
	}
}

// nextLearningDecision picks the next decision variable: VSIDS activity
// order (ordering.go), which is always set once Options.Learning is on (see
// NewSolver). Falls back to spec.md §4.5's smallest-unassigned rule so this
// never depends on s.order being non-nil.
func (s *Solver) nextLearningDecision() (Var, bool) {
	if s.order != nil {
		return s.order.next(s)
	}
	return s.smallestUnassigned()
}

// bumpLearnedActivity increases the VSIDS activity of every variable in a
// freshly learned clause and decays the shared increment, the usual VSIDS
// update on conflict (teacher's ordering.go BumpScore/DecayScores).
func (s *Solver) bumpLearnedActivity(learned []Literal) {
	if s.order == nil {
		return
	}
	for _, l := range learned {
		s.order.bump(l.Var())
	}
	s.order.decay()
}

// restartMinConflicts and restartThresholdRatio pace the learning driver's
// restarts: at least this many conflicts must accumulate since the last
// restart, and the short-term average learned-clause size must exceed the
// long-term average by this factor, before cancelling to decision level 0.
const (
	restartMinConflicts   = 50
	restartThresholdRatio = 1.25
)

// maybeRestart feeds learnedSize into the fast/slow learned-clause-size
// moving average and, once enough conflicts have built up since the last
// restart, cancels all the way back to decision level 0 once the short-term
// average runs well above the long-term one, a simplification of the
// teacher's geometric restart schedule (SPEC_FULL.md §4.6). Learned clauses
// are never discarded by a restart.
func (s *Solver) maybeRestart(learnedSize int) error {
	if s.order == nil {
		return nil
	}
	s.emaFast.add(float64(learnedSize))
	s.emaSlow.add(float64(learnedSize))
	s.numConflicts++
	if s.numConflicts < restartMinConflicts {
		return nil
	}
	if s.emaFast.val() > s.emaSlow.val()*restartThresholdRatio {
		for s.trail.decisionLevel() > 0 {
			if err := s.Backtrack(); err != nil {
				return err
			}
		}
		s.numConflicts = 0
	}
	return nil
}

// propagateLearning drives unit propagation to a fixed point one forced
// literal at a time (rather than bcp's clause-major batch sweep), so that a
// conflict is always discovered against an already-committed trail: exactly
// the pairwise "negation already has a node" shape internal/igraph.CreateNode
// models (spec.md §4.4). It returns the clause whose propagation demand, or
// whose every literal, is false under the current assignment, or nil if the
// formula is satisfied or every clause remains unsaturated.
func (s *Solver) propagateLearning() *Clause {
	for {
		applied, conflict := s.propagateOneLearning()
		if conflict != nil {
			return conflict
		}
		if !applied {
			break
		}
	}
	return s.firstContradiction()
}

// propagateOneLearning applies the first forced literal it finds and
// returns, or reports the clause demanding a literal that already carries
// the opposite value.
func (s *Solver) propagateOneLearning() (applied bool, conflict *Clause) {
	for _, c := range s.clauses {
		if c.statusUnder(s) == satisfied {
			continue
		}
		v, val, ok := c.propagate(s)
		if !ok {
			continue
		}
		if cur, assigned := s.litValue(PositiveLiteral(v)); assigned {
			if cur != val {
				return false, c
			}
			continue
		}

		level := s.trail.decisionLevel()
		s.assign(v, val)
		s.trail.push(v)
		s.reason[v] = c
		s.varLevel[v] = level
		s.updateWatchersFor(v)
		return true, nil
	}
	return false, nil
}

// firstContradiction returns the first clause whose every literal is false
// under the current assignment, or nil.
func (s *Solver) firstContradiction() *Clause {
	for _, c := range s.clauses {
		if c.statusUnder(s) == contradiction {
			return c
		}
	}
	return nil
}

// antecedentParents returns the antecedent clause's other literals, negated
// and DIMACS-signed, i.e. the already-true literals that forced var — the
// "parents" CreateNode records (spec.md §4.4). A nil clause (a decision, or
// an unreasoned root fact) has no parents.
func antecedentParents(c *Clause, forced Var) []int {
	if c == nil {
		return nil
	}
	parents := make([]int, 0, len(c.literals)-1)
	for _, l := range c.literals {
		if l.Var() == forced {
			continue
		}
		parents = append(parents, l.Opposite().Signed())
	}
	return parents
}

// analyzeConflict rebuilds the implication graph from the current trail and
// the conflicting clause, then extracts the first-UIP learned clause and
// backjump level from it (spec.md §4.4). Rebuilding from scratch on every
// conflict, rather than maintaining the graph incrementally across
// backtracks, keeps CreateNode's "no further insertion after a conflict"
// invariant trivially satisfied: Reset wipes exactly the state a stale
// conflict would have left behind.
//
// CreateNode's conflict trigger is pairwise: inserting a literal whose
// negation already has a node. A falsified clause is modeled by picking one
// of its literals as that newly-inserted literal, with the clause's other
// (true, negated) literals as its parents. The literal picked is one whose
// variable was propagated (has real parents to resolve through) at the
// current decision level, so both colliding nodes sit at the conflict's own
// level (the chain is then identical to spec.md §8 scenario 7's validated
// shape); if no literal of the clause was propagated at the current level,
// its only current-level literal is that level's decision, there is nothing
// to resolve at all, and irreducibleConflictClause is used instead of
// forcing a graph that would wrongly discard a literal.
func (s *Solver) analyzeConflict(conflict *Clause) ([]Literal, int, error) {
	level := s.trail.decisionLevel()

	triggerIdx := -1
	for i, l := range conflict.literals {
		if s.reason[l.Var()] != nil && s.varLevel[l.Var()] == level {
			triggerIdx = i
			break
		}
	}
	if triggerIdx < 0 {
		return s.irreducibleConflictClause(conflict, level)
	}

	if s.graph == nil {
		s.graph = igraph.NewGraph()
	} else {
		s.graph.Reset()
	}
	g := s.graph

	for _, v := range s.trail.vars {
		lit := NegativeLiteral(v)
		if s.value[v] {
			lit = PositiveLiteral(v)
		}
		if _, err := g.CreateNode(lit.Signed(), s.varLevel[v], antecedentParents(s.reason[v], v)); err != nil {
			return nil, 0, err
		}
	}

	trigger := conflict.literals[triggerIdx]
	if _, err := g.CreateNode(trigger.Signed(), level, antecedentParents(conflict, trigger.Var())); err != nil {
		return nil, 0, err
	}
	if !g.HasConflict() {
		return nil, 0, fmt.Errorf("sat: conflicting clause %v produced no implication-graph conflict: %w", conflict.Literals(), ErrInvalidOperation)
	}

	litIDs, backjumpLevel, err := g.ConflictClause()
	if err != nil {
		return nil, 0, err
	}
	if len(litIDs) == 0 {
		return nil, 0, fmt.Errorf("sat: conflict analysis produced an empty learned clause: %w", ErrInvalidOperation)
	}

	// ConflictClause returns the cut's node literals (true under the trail)
	// grouped by descending graph level, so litIDs[0] is always the sole
	// literal at dlStar (the conflict's own level) — the first-UIP literal, by
	// construction of the resolution loop. The learned clause is the
	// negation of the cut: learned[0] is the negated first-UIP literal and
	// the rest are the negated lower-level literals, all false under the
	// trail.
	learned := make([]Literal, len(litIDs))
	for i, id := range litIDs {
		learned[i] = FromSigned(-id)
	}

	return learned, backjumpLevel, nil
}

// irreducibleConflictClause handles a conflicting clause none of whose
// literals was propagated at the current level, so that its only
// current-level literal is that level's decision: spec.md §4.4's first-UIP
// rule reduces a clause with exactly one literal at the current level to
// itself when there is no antecedent chain left to walk, so the clause is
// returned as its own learned clause.
func (s *Solver) irreducibleConflictClause(conflict *Clause, level int) ([]Literal, int, error) {
	learned := append([]Literal(nil), conflict.literals...)

	uip := -1
	backjumpLevel := 0
	for i, l := range learned {
		lvl := s.varLevel[l.Var()]
		if lvl == level {
			uip = i
			continue
		}
		if lvl > backjumpLevel {
			backjumpLevel = lvl
		}
	}
	if uip < 0 {
		return nil, 0, fmt.Errorf("sat: conflicting clause %v has no literal at conflict level %d: %w", conflict.Literals(), level, ErrInvalidOperation)
	}
	learned[0], learned[uip] = learned[uip], learned[0]

	return learned, backjumpLevel, nil
}

// learnAndBackjump backtracks to backjumpLevel, adds the learned clause
// (literals[0] is the first-UIP literal), and forces that literal true as
// the clause's own unit consequence, mirroring how the teacher's CDCL layer
// records a learnt clause and its asserting literal in one step.
func (s *Solver) learnAndBackjump(learned []Literal, backjumpLevel int) error {
	for s.trail.decisionLevel() > backjumpLevel {
		if err := s.Backtrack(); err != nil {
			return err
		}
	}

	c := newLearnedClause(s, learned)
	s.clauses = append(s.clauses, c)

	uip := learned[0]
	v := uip.Var()
	level := s.trail.decisionLevel()
	s.assign(v, uip.IsPositive())
	s.trail.push(v)
	s.reason[v] = c
	s.varLevel[v] = level
	s.updateWatchersFor(v)

	return nil
}
