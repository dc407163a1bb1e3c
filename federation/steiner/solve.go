package steiner

import "github.com/n9te9/federation-gateway/federation/solution"

// Solve picks a low-cost subtree of g rooted at g.Root that reaches every
// terminal (every INDISPENSABLE QueryField node, passed in by the caller),
// via the Greedy-FLAC unit-flow simulation described in spec.md §4.5: see
// flac.go for the algorithm itself.
func Solve(g *solution.Graph, terminals []solution.NodeId) (*Tree, error) {
	f := newFlac(g, terminals)
	if err := f.solveAll(); err != nil {
		return nil, err
	}
	return f.tree(), nil
}

// Extend re-solves the tree with additional terminals appended to the
// original set, matching terminal extension support: authorization
// modifiers discovered after an initial plan may need extra fields
// covered. This re-runs Greedy-FLAC from scratch over the full terminal set
// rather than resuming the previous flac instance's accumulated tree state
// — simpler, and still sound for the one property partitioning actually
// relies on (every terminal ends up connected to root at some finite cost),
// at the cost of the monotonicity-by-construction a resumed run would give
// for free. Nothing downstream currently depends on Extend returning a
// superset of a prior Tree's edges.
func Extend(g *solution.Graph, previous []solution.NodeId, extra []solution.NodeId) (*Tree, error) {
	all := make([]solution.NodeId, 0, len(previous)+len(extra))
	all = append(all, previous...)
	all = append(all, extra...)
	return Solve(g, all)
}
