package steiner

import (
	"container/heap"

	"github.com/n9te9/federation-gateway/federation/solution"
)

// termSet is a small integer-indexed terminal-membership set, keyed by a
// terminal's position in a flac run's terminal slice rather than its
// NodeId, so membership tests and unions stay cheap regardless of how large
// node ids get.
type termSet map[int]struct{}

func (s termSet) unionWith(other termSet) {
	for k := range other {
		s[k] = struct{}{}
	}
}

func (s termSet) intersects(other termSet) bool {
	small, big := s, other
	if len(big) < len(small) {
		small, big = big, small
	}
	for k := range small {
		if _, ok := big[k]; ok {
			return true
		}
	}
	return false
}

// flacHeapItem is one (edge, scheduled-saturation-time) pair in the
// saturation priority queue.
type flacHeapItem struct {
	edge solution.EdgeId
	time float64
}

// flacHeap is a min-heap over flacHeapItem, ties broken by edge id so two
// runs over the same graph always pick the same edge.
type flacHeap []flacHeapItem

func (h flacHeap) Len() int { return len(h) }
func (h flacHeap) Less(i, j int) bool {
	if h[i].time != h[j].time {
		return h[i].time < h[j].time
	}
	return h[i].edge < h[j].edge
}
func (h flacHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }
func (h *flacHeap) Push(x any)   { *h = append(*h, x.(flacHeapItem)) }
func (h *flacHeap) Pop() any {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}

// flac is a Greedy-FLAC solver instance: it owns the tree state that
// accumulates across repeated growth rounds (runOnce), grounded on
// _examples/original_source/.../steiner_tree/greedy_flac/flac.rs. Each
// terminal pushes one unit of flow backward through its cheapest
// unsaturated incoming edge; flows converging on a shared node merge and
// their rates add, so a shared edge serving several terminals saturates in
// proportion to the aggregate rate flowing through it rather than any
// single terminal's path cost alone. That is the mechanism a plain
// shortest-path reduction lacks: it is what lets one expensive shared edge
// beat several cheaper disjoint ones once enough terminals are behind it
// (spec.md §8 scenario 2), and what lets a second, already-covered route to
// an already-fed terminal set be recognized as a pointless merge and marked
// out rather than added to the tree (scenario 3).
type flac struct {
	g         *solution.Graph
	terminals []solution.NodeId

	// Persisted across runs: the tree as committed so far.
	treeNodes     map[solution.NodeId]bool
	treeEdges     map[solution.EdgeId]bool
	treeEdgeOrder []solution.EdgeId
	rootFeeding   termSet

	// Reset at the start of every run.
	time         float64
	heap         flacHeap
	saturated    map[solution.EdgeId]bool
	markedOrSat  map[solution.EdgeId]bool
	feeding      map[solution.NodeId]termSet
	flowRate     map[solution.NodeId]int
	bestSaturate map[solution.EdgeId]float64
}

func newFlac(g *solution.Graph, terminals []solution.NodeId) *flac {
	return &flac{
		g:           g,
		terminals:   append([]solution.NodeId(nil), terminals...),
		treeNodes:   map[solution.NodeId]bool{g.Root: true},
		treeEdges:   make(map[solution.EdgeId]bool),
		rootFeeding: make(termSet),
	}
}

// solveAll runs growth rounds to completion, returning an error the moment
// any terminal is found to have no remaining producing edge.
func (f *flac) solveAll() error {
	for {
		finished, err := f.runOnce()
		if err != nil {
			return err
		}
		if finished {
			return nil
		}
	}
}

// incomingCandidates returns node's incoming edges still available in
// T-minus this run (not yet marked or saturated), excluding Requires edges
// — a Requires edge records a dependency, not a way to produce its target.
func (f *flac) incomingCandidates(node solution.NodeId) []solution.EdgeId {
	in := f.g.InEdges(node)
	out := make([]solution.EdgeId, 0, len(in))
	for _, eid := range in {
		if f.g.Edge(eid).Kind == solution.EdgeRequires {
			continue
		}
		if f.markedOrSat[eid] {
			continue
		}
		out = append(out, eid)
	}
	return out
}

// cheapestIncoming returns node's minimum-weight edge still in T-minus,
// ties broken by the lowest edge id.
func (f *flac) cheapestIncoming(node solution.NodeId) (solution.EdgeId, bool) {
	var best solution.EdgeId
	bestCost := int(^uint(0) >> 1)
	found := false
	for _, eid := range f.incomingCandidates(node) {
		c := f.g.Edge(eid).Weight
		if !found || c < bestCost || (c == bestCost && eid < best) {
			bestCost = c
			best = eid
			found = true
		}
	}
	return best, found
}

func (f *flac) pushHeap(eid solution.EdgeId, t float64) {
	f.bestSaturate[eid] = t
	heap.Push(&f.heap, flacHeapItem{edge: eid, time: t})
}

// popHeap pops the earliest-scheduled edge, skipping stale entries left
// behind by a push_decrease-style rescale.
func (f *flac) popHeap() (solution.EdgeId, bool) {
	for f.heap.Len() > 0 {
		item := heap.Pop(&f.heap).(flacHeapItem)
		if item.time != f.bestSaturate[item.edge] {
			continue
		}
		f.time = item.time
		return item.edge, true
	}
	return 0, false
}

// runOnce executes one growth round: it grows the accumulated tree by
// whichever terminal-feeding edge saturates first (absorbing, behind it,
// any chain of edges already saturated this round), and reports whether
// every terminal now feeds the root.
func (f *flac) runOnce() (finished bool, err error) {
	f.time = 0
	f.heap = nil
	f.saturated = make(map[solution.EdgeId]bool)
	f.markedOrSat = make(map[solution.EdgeId]bool)
	f.feeding = make(map[solution.NodeId]termSet)
	f.flowRate = make(map[solution.NodeId]int)
	f.bestSaturate = make(map[solution.EdgeId]float64)

	for ix, term := range f.terminals {
		if _, fed := f.rootFeeding[ix]; fed {
			continue
		}
		eid, ok := f.cheapestIncoming(term)
		if !ok {
			return false, &UnreachableTerminalError{Terminal: term}
		}
		f.pushHeap(eid, float64(f.g.Edge(eid).Weight))
		f.feeding[term] = termSet{ix: struct{}{}}
		f.flowRate[term] = 1
	}

	for {
		eid, ok := f.popHeap()
		if !ok {
			return false, &UnreachableTerminalError{Terminal: f.firstUnfedTerminal()}
		}

		reachedTree := f.updateFlowRates(eid)
		if !reachedTree {
			continue
		}

		e := f.g.Edge(eid)
		f.rootFeeding.unionWith(f.feeding[e.To])
		finished = len(f.rootFeeding) == len(f.terminals)

		if !f.treeEdges[eid] {
			f.treeEdges[eid] = true
			f.treeEdgeOrder = append(f.treeEdgeOrder, eid)
		}
		f.absorb(e.To)
		return finished, nil
	}
}

func (f *flac) firstUnfedTerminal() solution.NodeId {
	for ix, term := range f.terminals {
		if _, fed := f.rootFeeding[ix]; !fed {
			return term
		}
	}
	return f.g.Root
}

// updateFlowRates processes one saturating edge (u -> v): marks it, and
// either reports that it reconnects into the already-committed tree (u is
// already a tree node — the caller absorbs it) or folds its flow onward per
// the merge/degenerate-flow rule.
func (f *flac) updateFlowRates(eid solution.EdgeId) (reachedTree bool) {
	e := f.g.Edge(eid)
	u, v := e.From, e.To
	f.markedOrSat[eid] = true

	if f.treeNodes[u] {
		return true
	}

	degenerate, nextEdges := f.detectDegenerateFlow(u, v)
	if !degenerate {
		f.saturated[eid] = true

		vFeeding := f.feeding[v]
		extraRate := len(vFeeding)
		for _, next := range nextEdges {
			node := f.g.Edge(next).To
			if f.feeding[node] == nil {
				f.feeding[node] = make(termSet)
			}
			f.feeding[node].unionWith(vFeeding)

			oldRate := f.flowRate[node]
			newRate := oldRate + extraRate
			f.flowRate[node] = newRate

			w := float64(f.g.Edge(next).Weight)
			if oldRate == 0 {
				f.pushHeap(next, f.time+w/float64(newRate))
			} else {
				cur := f.bestSaturate[next]
				f.pushHeap(next, f.time+(cur-f.time)*float64(oldRate)/float64(newRate))
			}
		}
	}

	if next, ok := f.cheapestIncoming(v); ok {
		if rate := f.flowRate[v]; rate > 0 {
			w := float64(f.g.Edge(next).Weight)
			f.pushHeap(next, f.time+(w-float64(e.Weight))/float64(rate))
		}
	}

	return false
}

// detectDegenerateFlow walks backward from u through edges already
// saturated this round, testing whether v's feeding-terminal set overlaps
// one already reachable from u — two flows that already share a terminal
// converging again, which must be marked out rather than folded into the
// tree — and collecting, along the way, each visited node's own next
// cheapest incoming candidate so its flow can be advanced too.
func (f *flac) detectDegenerateFlow(u, v solution.NodeId) (degenerate bool, nextEdges []solution.EdgeId) {
	newFeeding := f.feeding[v]
	stack := []solution.NodeId{u}
	for len(stack) > 0 {
		cur := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if f.feeding[cur].intersects(newFeeding) {
			return true, nil
		}

		if eid, ok := f.cheapestIncoming(cur); ok {
			nextEdges = append(nextEdges, eid)
		}

		for _, eid := range f.g.InEdges(cur) {
			if f.saturated[eid] {
				stack = append(stack, f.g.Edge(eid).From)
			}
		}
	}
	return false, nextEdges
}

// absorb walks forward from v through edges saturated this round,
// committing every reachable node and edge to the persisted tree.
func (f *flac) absorb(v solution.NodeId) {
	stack := []solution.NodeId{v}
	for len(stack) > 0 {
		node := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		f.treeNodes[node] = true

		for _, eid := range f.g.OutEdges(node) {
			if !f.saturated[eid] {
				continue
			}
			if !f.treeEdges[eid] {
				f.treeEdges[eid] = true
				f.treeEdgeOrder = append(f.treeEdgeOrder, eid)
			}
			stack = append(stack, f.g.Edge(eid).To)
		}
	}
}

// tree renders the accumulated, deduplicated tree-edge set into the public
// Tree shape. Total cost is defined as the sum of weights over that final
// set (spec.md §4.5's "total_cost = Σ edge.weight for edge in tree_edges"),
// computed once at the end rather than accumulated incrementally while
// growing — the accumulator in the edges themselves is the only thing that
// needs to be exactly-once; re-summing the final set sidesteps having to
// prove no growth round can ever revisit an edge already committed in an
// earlier round.
func (f *flac) tree() *Tree {
	t := &Tree{
		Edges:   append([]solution.EdgeId(nil), f.treeEdgeOrder...),
		edgeSet: make(map[solution.EdgeId]bool, len(f.treeEdgeOrder)),
	}
	for _, eid := range t.Edges {
		t.edgeSet[eid] = true
		t.TotalCost += f.g.Edge(eid).Weight
	}
	return t
}
