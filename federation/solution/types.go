package solution

import (
	"github.com/n9te9/federation-gateway/federation/operation"
	"github.com/n9te9/federation-gateway/federation/schema"
)

// NodeKind distinguishes the five node flavors the solution-space graph is
// built from.
type NodeKind int

const (
	NodeRoot NodeKind = iota
	NodeQueryField
	NodeProvidableField
	NodeResolver
	NodeTypename
)

// ProvidableKind classifies how (or whether) a ProvidableField node can
// serve its field.
type ProvidableKind int

const (
	// InSubgraph means the parent providable's subgraph can resolve this
	// field directly, possibly extended by a @provides field set.
	InSubgraph ProvidableKind = iota
	// OnlyProvidableViaProvides means the field is not natively resolvable
	// in the parent subgraph but is covered by an ancestor's @provides set.
	OnlyProvidableViaProvides
	// UnreachableObject means the parent output is a union whose members in
	// the parent subgraph do not include this field's parent object type.
	UnreachableObject
	// NotProvidable means none of the above; an alternative resolver (a new
	// Resolver node) is required to serve the field at all.
	NotProvidable
)

// EdgeKind distinguishes the seven edge flavors connecting solution-space
// nodes.
type EdgeKind int

const (
	// EdgeField connects a providable/resolver node to a QueryField it
	// selects as a direct child.
	EdgeField EdgeKind = iota
	// EdgeCreateChildResolver connects a providable/resolver node to a
	// Resolver node it spawned to serve a field it could not itself provide.
	EdgeCreateChildResolver
	// EdgeHasChildResolver connects a parent Resolver to a child Resolver
	// nested under one of its selected fields.
	EdgeHasChildResolver
	// EdgeCanProvide connects a QueryField to a ProvidableField candidate
	// that could serve it, carrying the candidate's cost as edge weight.
	EdgeCanProvide
	// EdgeProvides connects a ProvidableField to the QueryField it actually
	// provides (a committed, not merely candidate, edge).
	EdgeProvides
	// EdgeProvidesTypename connects a ProvidableField to the Typename node
	// of its selection set, when a type discriminator must be requested.
	EdgeProvidesTypename
	// EdgeRequires connects a dependent QueryField to a QueryField it
	// requires (via @requires or a resolver's required field set).
	EdgeRequires
)

// Node is a tagged-union solution-space node: Kind selects which fields are
// meaningful, mirroring the schema package's Resolver tagged-variant design.
type Node struct {
	ID   NodeId
	Kind NodeKind

	// QueryField / ProvidableField / Typename: the selection-set context.
	SelectionSet operation.SelectionSetId

	// QueryField / ProvidableField: the bound field occurrence.
	QueryFieldId    operation.QueryFieldId
	Indispensable   bool
	UnreachableFlag bool

	// ProvidableField
	ProvidableKind ProvidableKind
	SubgraphId     schema.SubgraphId
	Provides       schema.FieldSet

	// Resolver
	ResolverId schema.ResolverId
	// SpawningField is the QueryField whose placement first created this
	// resolver node (the field crossing into a new subgraph). Later
	// sibling fields that happen to resolve via the same shared resolver
	// node do not overwrite it; the field that actually caused the
	// subgraph boundary to be crossed is what downstream partitioning
	// needs.
	SpawningField    operation.QueryFieldId
	HasSpawningField bool

	outEdges []EdgeId
	inEdges  []EdgeId
}

// Edge is a directed, weighted solution-space edge.
type Edge struct {
	ID     EdgeId
	Kind   EdgeKind
	From   NodeId
	To     NodeId
	Weight int
}

// Graph is the arena-addressed solution-space multigraph built from one
// bound operation against the schema it targets.
type Graph struct {
	Schema *schema.Schema
	Doc    *operation.Document

	Root NodeId

	nodes []*Node
	edges []*Edge
}

func newGraph(sch *schema.Schema, doc *operation.Document) *Graph {
	return &Graph{Schema: sch, Doc: doc}
}

func (g *Graph) addNode(n *Node) NodeId {
	n.ID = NodeId(len(g.nodes))
	g.nodes = append(g.nodes, n)
	return n.ID
}

func (g *Graph) addEdge(kind EdgeKind, from, to NodeId, weight int) EdgeId {
	e := &Edge{ID: EdgeId(len(g.edges)), Kind: kind, From: from, To: to, Weight: weight}
	g.edges = append(g.edges, e)
	g.nodes[from].outEdges = append(g.nodes[from].outEdges, e.ID)
	g.nodes[to].inEdges = append(g.nodes[to].inEdges, e.ID)
	return e.ID
}

// Node returns the node for id.
func (g *Graph) Node(id NodeId) *Node { return g.nodes[id] }

// Edge returns the edge for id.
func (g *Graph) Edge(id EdgeId) *Edge { return g.edges[id] }

// NodeCount returns the number of nodes in the graph.
func (g *Graph) NodeCount() int { return len(g.nodes) }

// EdgeCount returns the number of edges in the graph.
func (g *Graph) EdgeCount() int { return len(g.edges) }

// OutEdges returns the edge ids leaving node id.
func (g *Graph) OutEdges(id NodeId) []EdgeId { return g.nodes[id].outEdges }

// InEdges returns the edge ids entering node id.
func (g *Graph) InEdges(id NodeId) []EdgeId { return g.nodes[id].inEdges }

// AllNodes returns every node in the graph, in creation order.
func (g *Graph) AllNodes() []*Node { return g.nodes }

// AllEdges returns every edge in the graph, in creation order.
func (g *Graph) AllEdges() []*Edge { return g.edges }
