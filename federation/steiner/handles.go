package steiner

import "github.com/n9te9/federation-gateway/federation/solution"

// Tree is the set of solution-space edges a plan commits to, together with
// their aggregate cost.
type Tree struct {
	Edges     []solution.EdgeId
	TotalCost int

	// edgeSet is tree-membership for fast lookups by downstream partitioning.
	edgeSet map[solution.EdgeId]bool
}

// Has reports whether edge id is part of the tree.
func (t *Tree) Has(id solution.EdgeId) bool { return t.edgeSet[id] }
