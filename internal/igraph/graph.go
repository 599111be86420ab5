package igraph

import (
	"fmt"
	"sort"
)

// conflictID is the implicit id of the conflict node (spec.md §4.4): it is
// never passed to CreateNode directly, only produced internally when a
// literal's negation is already present.
const conflictID = 0

// Graph is an implication graph over forced assignments. The zero value is
// not ready for use; see NewGraph.
type Graph struct {
	nodes map[int]*node
}

// NewGraph returns an empty implication graph.
func NewGraph() *Graph {
	return &Graph{nodes: map[int]*node{}}
}

// Reset discards every node, making g reusable for the next conflict.
func (g *Graph) Reset() {
	g.nodes = map[int]*node{}
}

// HasConflict reports whether a conflict node has been recorded.
func (g *Graph) HasConflict() bool {
	_, ok := g.nodes[conflictID]
	return ok
}

// CreateNode records that literal was forced at decision level dl because of
// parents (every parent must already be present). It rejects literal == 0,
// a duplicate literal, a negative dl, a missing parent, or being called
// again after a conflict was already recorded.
//
// If -literal is already present, CreateNode additionally creates the
// conflict node at dl with both polarities as parents, and reports true.
func (g *Graph) CreateNode(literal, dl int, parents []int) (conflict bool, err error) {
	if literal == 0 {
		return false, fmt.Errorf("igraph: literal 0 is reserved for the conflict node: %w", ErrImplicationGraph)
	}
	if _, exists := g.nodes[literal]; exists {
		return false, fmt.Errorf("igraph: literal %d already has a node: %w", literal, ErrImplicationGraph)
	}
	if dl < 0 {
		return false, fmt.Errorf("igraph: negative decision level %d: %w", dl, ErrImplicationGraph)
	}
	for _, p := range parents {
		if _, ok := g.nodes[p]; !ok {
			return false, fmt.Errorf("igraph: parent literal %d has no node: %w", p, ErrImplicationGraph)
		}
	}
	if g.HasConflict() {
		return false, fmt.Errorf("igraph: a conflict node already exists: %w", ErrImplicationGraph)
	}

	n := &node{lit: literal, level: dl, parents: append([]int(nil), parents...)}
	g.nodes[literal] = n
	for _, p := range parents {
		pn := g.nodes[p]
		pn.children = append(pn.children, literal)
	}

	neg, ok := g.nodes[-literal]
	if !ok {
		return false, nil
	}

	cn := &node{lit: conflictID, level: dl, parents: []int{literal, -literal}}
	g.nodes[conflictID] = cn
	n.children = append(n.children, conflictID)
	neg.children = append(neg.children, conflictID)

	return true, nil
}

// ConflictClause implements spec.md §4.4's first-UIP conflict analysis. It
// requires a conflict node to have been recorded (see CreateNode); otherwise
// it returns ErrImplicationGraph.
func (g *Graph) ConflictClause() (literals []int, backjumpLevel int, err error) {
	cn, ok := g.nodes[conflictID]
	if !ok {
		return nil, 0, fmt.Errorf("igraph: no conflict recorded: %w", ErrImplicationGraph)
	}
	dlStar := cn.level

	groups := map[int][]int{}
	add := func(level, lit int) {
		for _, x := range groups[level] {
			if x == lit {
				return
			}
		}
		groups[level] = append(groups[level], lit)
	}
	for _, p := range cn.parents {
		add(dlStar, p)
	}

	visited := map[int]bool{conflictID: true}

	for len(groups[dlStar]) > 1 {
		cut := groups[dlStar]

		idx := -1
		for i := len(cut) - 1; i >= 0; i-- {
			n := g.nodes[cut[i]]
			allVisited := true
			for _, ch := range n.children {
				if !visited[ch] {
					allVisited = false
					break
				}
			}
			if allVisited {
				idx = i
				break
			}
		}
		if idx == -1 {
			return nil, 0, fmt.Errorf("igraph: no node with every child visited: %w", ErrImplicationGraph)
		}

		lit := cut[idx]
		n := g.nodes[lit]

		replaced := make([]int, 0, len(cut)-1)
		replaced = append(replaced, cut[:idx]...)
		replaced = append(replaced, cut[idx+1:]...)
		groups[dlStar] = replaced

		for _, p := range n.parents {
			add(g.nodes[p].level, p)
		}
		visited[lit] = true
	}

	levels := make([]int, 0, len(groups))
	for lvl := range groups {
		levels = append(levels, lvl)
	}
	sort.Sort(sort.Reverse(sort.IntSlice(levels)))

	for _, lvl := range levels {
		literals = append(literals, groups[lvl]...)
	}

	if len(levels) > 1 {
		backjumpLevel = levels[1]
	}

	return literals, backjumpLevel, nil
}
