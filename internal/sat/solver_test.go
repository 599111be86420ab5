package sat

import (
	"errors"
	"reflect"
	"sort"
	"testing"
)

func mustSolver(t *testing.T, numVars int, clauses [][]int) *Solver {
	t.Helper()
	s, err := NewSolver(numVars, clauses)
	if err != nil {
		t.Fatalf("NewSolver: %v", err)
	}
	return s
}

// Scenario 1: unit propagation chain (spec.md §8.1).
func TestBCP_UnitPropagationChain(t *testing.T) {
	s := mustSolver(t, 100, [][]int{
		{1, -2, 3, -4, 5},
		{-1},
		{-10, 20, -30, 40},
		{10},
		{100},
		{-40, 50},
	})

	forced, err := s.BCP()
	if err != nil {
		t.Fatalf("BCP: %v", err)
	}

	want := map[int]bool{1: false, 10: true, 100: true}
	if !reflect.DeepEqual(forced, want) {
		t.Errorf("forced = %v, want %v", forced, want)
	}
	if got := s.trail.backtrackStack; !reflect.DeepEqual(got, []int{0}) {
		t.Errorf("backtrackStack = %v, want [0]", got)
	}
	if s.DecisionLevel() != 0 {
		t.Errorf("DecisionLevel = %d, want 0", s.DecisionLevel())
	}
}

// Scenario 2: contradictory units (spec.md §8.2).
func TestBCP_ContradictoryUnits(t *testing.T) {
	s := mustSolver(t, 10, [][]int{{10}, {-10}})

	if _, err := s.BCP(); !errors.Is(err, ErrImpossibleAssignment) {
		t.Errorf("BCP err = %v, want ErrImpossibleAssignment", err)
	}
}

// Scenario 3: decision then flip causes an impossible assignment
// (spec.md §8.3).
func TestBCP_DecisionConflictsWithUnitClause(t *testing.T) {
	s := mustSolver(t, 50, [][]int{
		{1, -2, 3, -4, 5},
		{-1},
		{-10, 20, -30, 40},
		{10},
		{-40, 50},
	})

	if err := s.AddDecision(10, false); err != nil {
		t.Fatalf("AddDecision(10, false): %v", err)
	}
	if _, err := s.BCP(); !errors.Is(err, ErrImpossibleAssignment) {
		t.Errorf("BCP err = %v, want ErrImpossibleAssignment", err)
	}
}

// Scenario 4: multi-step propagation tracks trail and backtracking stack
// exactly (spec.md §8.4).
func TestBCP_MultiStepPropagation(t *testing.T) {
	s := mustSolver(t, 100, [][]int{
		{1, -10, 100},
		{-1},
		{-10, 20, -30, 40},
		{10},
		{-40, 50},
	})

	forced, err := s.BCP()
	if err != nil {
		t.Fatalf("BCP: %v", err)
	}
	if want := (map[int]bool{1: false, 10: true}); !reflect.DeepEqual(forced, want) {
		t.Fatalf("initial BCP forced = %v, want %v", forced, want)
	}

	if err := s.AddDecision(20, true); err != nil {
		t.Fatalf("AddDecision(20, true): %v", err)
	}
	if _, err := s.BCP(); err != nil {
		t.Fatalf("BCP after decision(20): %v", err)
	}
	if !containsExactly(s.trail.vars, []int{1, 10, 20, 100}) {
		t.Errorf("trail after decision(20)+bcp = %v, want {1,10,20,100}", externalIDs(s.trail.vars))
	}
	if got, want := s.trail.backtrackStack, []int{0, 3}; !reflect.DeepEqual(got, want) {
		t.Errorf("backtrackStack after decision(20)+bcp = %v, want %v", got, want)
	}

	if err := s.AddDecision(40, true); err != nil {
		t.Fatalf("AddDecision(40, true): %v", err)
	}
	if _, err := s.BCP(); err != nil {
		t.Fatalf("BCP after decision(40): %v", err)
	}
	if !containsExactly(s.trail.vars, []int{1, 10, 20, 100, 40, 50}) {
		t.Errorf("trail after decision(40)+bcp = %v, want {1,10,20,100,40,50}", externalIDs(s.trail.vars))
	}
	if got, want := s.trail.backtrackStack, []int{0, 3, 5}; !reflect.DeepEqual(got, want) {
		t.Errorf("backtrackStack after decision(40)+bcp = %v, want %v", got, want)
	}
}

// Scenario 6: end-to-end UNSAT (spec.md §8.6).
func TestSolve_EndToEndUNSAT(t *testing.T) {
	s := mustSolver(t, 1, [][]int{{1}, {-1}})

	ok, err := s.Solve()
	if err != nil {
		t.Fatalf("Solve: %v", err)
	}
	if ok {
		t.Fatalf("Solve = true, want false (UNSAT)")
	}
	if m := s.Model(); len(m) != 0 {
		t.Errorf("Model after UNSAT = %v, want empty", m)
	}
}

// NumDecisions is a cumulative AddDecision count (spec.md §6), not the
// current decision-level depth: it must not shrink on Backtrack, and must
// remain accurate after a conflict-driven backtrack-and-flip or a completed
// UNSAT solve (spec.md §7).
func TestNumDecisions_CumulativeAcrossBacktrack(t *testing.T) {
	s := mustSolver(t, 3, [][]int{{1, 2, 3}})

	if err := s.AddDecision(1, true); err != nil {
		t.Fatalf("AddDecision(1): %v", err)
	}
	if err := s.AddDecision(2, true); err != nil {
		t.Fatalf("AddDecision(2): %v", err)
	}
	if got := s.NumDecisions(); got != 2 {
		t.Fatalf("NumDecisions after 2 decisions = %d, want 2", got)
	}

	if err := s.Backtrack(); err != nil {
		t.Fatalf("Backtrack: %v", err)
	}
	if got := s.NumDecisions(); got != 2 {
		t.Errorf("NumDecisions after Backtrack = %d, want 2 (unchanged)", got)
	}
	if got := s.DecisionLevel(); got != 1 {
		t.Fatalf("DecisionLevel after Backtrack = %d, want 1", got)
	}

	if err := s.AddDecision(2, false); err != nil {
		t.Fatalf("AddDecision(2, false) (flip): %v", err)
	}
	if got := s.NumDecisions(); got != 3 {
		t.Errorf("NumDecisions after flip = %d, want 3", got)
	}
}

// NumDecisions must remain accurate (not reset to 0) once a solve completes,
// including on UNSAT (spec.md §7: "get_num_decisions... remains accurate").
func TestNumDecisions_AccurateAfterUNSAT(t *testing.T) {
	// No unit clause: BCP forces nothing at level 0, so UNSAT is only
	// reached after deciding variable 1 both ways.
	s := mustSolver(t, 2, [][]int{{1, 2}, {1, -2}, {-1, 2}, {-1, -2}})

	ok, err := s.Solve()
	if err != nil {
		t.Fatalf("Solve: %v", err)
	}
	if ok {
		t.Fatalf("Solve = true, want false (UNSAT)")
	}
	if got := s.NumDecisions(); got == 0 {
		t.Errorf("NumDecisions after UNSAT solve = 0, want > 0 (decisions were made before failing)")
	}
}

// Scenario 5: end-to-end SAT; the returned model must satisfy every clause
// (spec.md §8.5).
func TestSolve_EndToEndSAT(t *testing.T) {
	clauses := [][]int{
		{1, 2, -3},
		{-1, 4},
		{2, -4, 5},
		{-2, -5},
		{3, -1, -5},
	}
	s := mustSolver(t, 5, clauses)

	ok, err := s.Solve()
	if err != nil {
		t.Fatalf("Solve: %v", err)
	}
	if !ok {
		t.Fatalf("Solve = false, want true (SAT)")
	}

	model := s.Model()
	for _, c := range clauses {
		if !clauseSatisfied(c, model) {
			t.Errorf("model %v does not satisfy clause %v", model, c)
		}
	}
}

// Law: backtrack is idempotent at decision level 0.
func TestBacktrack_IdempotentAtRoot(t *testing.T) {
	s := mustSolver(t, 3, [][]int{{1, 2, 3}})
	if err := s.Backtrack(); err != nil {
		t.Fatalf("Backtrack: %v", err)
	}
	if err := s.Backtrack(); err != nil {
		t.Fatalf("Backtrack: %v", err)
	}
	if s.DecisionLevel() != 0 {
		t.Errorf("DecisionLevel = %d, want 0", s.DecisionLevel())
	}
}

// Law: add_decision followed by backtrack restores prior state.
func TestAddDecision_BacktrackRoundTrip(t *testing.T) {
	s := mustSolver(t, 5, [][]int{{1, 2, 3}, {-4, 5}})

	before := snapshot(s)

	if err := s.AddDecision(2, true); err != nil {
		t.Fatalf("AddDecision: %v", err)
	}
	if err := s.Backtrack(); err != nil {
		t.Fatalf("Backtrack: %v", err)
	}

	after := snapshot(s)
	if !reflect.DeepEqual(before, after) {
		t.Errorf("state after add_decision+backtrack = %+v, want %+v", after, before)
	}
}

// Law: bcp run twice with no intervening mutation yields an empty forced set
// the second time.
func TestBCP_Monotonicity(t *testing.T) {
	s := mustSolver(t, 10, [][]int{{1, -2, 3}, {-1}, {10}})

	if _, err := s.BCP(); err != nil {
		t.Fatalf("first BCP: %v", err)
	}
	forced, err := s.BCP()
	if err != nil {
		t.Fatalf("second BCP: %v", err)
	}
	if len(forced) != 0 {
		t.Errorf("second BCP forced = %v, want empty", forced)
	}
}

type solverSnapshot struct {
	vars           []Var
	backtrackStack []int
	value          []bool
	assigned       []bool
}

func snapshot(s *Solver) solverSnapshot {
	return solverSnapshot{
		vars:           append([]Var(nil), s.trail.vars...),
		backtrackStack: append([]int(nil), s.trail.backtrackStack...),
		value:          append([]bool(nil), s.value...),
		assigned:       append([]bool(nil), s.assigned...),
	}
}

func externalIDs(vars []Var) []int {
	ids := make([]int, len(vars))
	for i, v := range vars {
		ids[i] = int(v) + 1
	}
	return ids
}

func containsExactly(vars []Var, want []int) bool {
	got := externalIDs(vars)
	sort.Ints(got)
	sort.Ints(want)
	return reflect.DeepEqual(got, want)
}

func clauseSatisfied(clause []int, model map[int]bool) bool {
	for _, l := range clause {
		v := l
		if v < 0 {
			v = -v
		}
		val, ok := model[v]
		if !ok {
			continue
		}
		if (l > 0 && val) || (l < 0 && !val) {
			return true
		}
	}
	return false
}
