package sat

import "github.com/rhartert/yagh"

// VarOrder selects the learning driver's next decision variable by activity
// (VSIDS) instead of spec.md §4.5's smallest-unassigned rule; used only when
// Options.Learning is set (cdcl.go). Adapted from the teacher's
// internal/sat/ordering.go: the same heap-backed activity order and
// rescaling scheme, retargeted to this package's Var type and isAssigned
// check instead of the teacher's own VarValue/LBool phase saving.
type VarOrder struct {
	heap       *yagh.IntMap[float64]
	scores     []float64
	scoreInc   float64
	scoreDecay float64
}

// newVarOrder builds a VarOrder over variables 0..numVars-1, all initially
// at zero activity. Mirrors the teacher's NewVarOrder+AddVar construction
// sequence (GrowBy(1) then Put per variable) rather than sizing the heap
// up front, since that is the pattern the teacher's ordering.go validates.
func newVarOrder(numVars int, decay float64) *VarOrder {
	vo := &VarOrder{
		heap:       yagh.New[float64](0),
		scores:     make([]float64, numVars),
		scoreInc:   1,
		scoreDecay: decay,
	}
	for v := 0; v < numVars; v++ {
		vo.heap.GrowBy(1)
		vo.heap.Put(v, 0)
	}
	return vo
}

// bump increases v's activity score, called when v participates in a
// learned clause (cdcl.go's bumpLearnedActivity).
func (vo *VarOrder) bump(v Var) {
	newScore := vo.scores[v] + vo.scoreInc
	vo.scores[v] = newScore
	if vo.heap.Contains(int(v)) {
		vo.heap.Put(int(v), -newScore)
	}
	if newScore > 1e100 {
		vo.rescale()
	}
}

// decay grows the bump increment, the standard VSIDS trick of decaying every
// variable's relative weight without touching every score individually
// (teacher's ordering.go DecayScores).
func (vo *VarOrder) decay() {
	vo.scoreInc /= vo.scoreDecay
	if vo.scoreInc > 1e100 {
		vo.rescale()
	}
}

func (vo *VarOrder) rescale() {
	vo.scoreInc *= 1e-100
	for v, sc := range vo.scores {
		vo.scores[v] = sc * 1e-100
		if vo.heap.Contains(v) {
			vo.heap.Put(v, -vo.scores[v])
		}
	}
}

// reinsert makes v a decision candidate again; called by Solver.Backtrack
// when v is unassigned.
func (vo *VarOrder) reinsert(v Var) {
	vo.heap.Put(int(v), -vo.scores[v])
}

// next pops the highest-activity still-unassigned variable, or reports that
// none remain.
func (vo *VarOrder) next(s *Solver) (Var, bool) {
	for {
		item, ok := vo.heap.Pop()
		if !ok {
			return 0, false
		}
		v := Var(item.Elem)
		if !s.isAssigned(v) {
			return v, true
		}
	}
}
