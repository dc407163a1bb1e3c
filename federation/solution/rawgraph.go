package solution

// NewRawGraph constructs an empty solution-space graph with just a Root
// node, for direct programmatic construction of abstract graph shapes that
// don't correspond to any real schema or operation — the Steiner solver's
// own test suite uses this to exercise spec-literal graphs by hand.
func NewRawGraph() *Graph {
	g := newGraph(nil, nil)
	g.Root = g.addNode(&Node{Kind: NodeRoot})
	return g
}

// AddNode appends a node of kind k and returns its id.
func (g *Graph) AddNode(k NodeKind) NodeId {
	return g.addNode(&Node{Kind: k})
}

// AddEdge appends a directed edge of kind k from from to to, carrying
// weight, and returns its id.
func (g *Graph) AddEdge(k EdgeKind, from, to NodeId, weight int) EdgeId {
	return g.addEdge(k, from, to, weight)
}
