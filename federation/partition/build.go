package partition

import (
	"sort"

	"github.com/n9te9/federation-gateway/federation/apierror"
	"github.com/n9te9/federation-gateway/federation/operation"
	"github.com/n9te9/federation-gateway/federation/solution"
	"github.com/n9te9/federation-gateway/federation/steiner"
)

type builder struct {
	g    *solution.Graph
	tree *steiner.Tree
	doc  *operation.Document

	partitions    []*QueryPartition
	nodePartition map[solution.NodeId]PartitionId
	outputSets    map[operation.QueryFieldId]ResponseObjectSetId
	nextSet       ResponseObjectSetId
}

// Build projects a Steiner tree into the QueryPartitions the executor will
// dispatch, one per resolver boundary the tree crosses, plus the
// cross-partition dependency DAG those partitions' Requires edges induce.
func Build(g *solution.Graph, tree *steiner.Tree, doc *operation.Document) (*PartitionSet, error) {
	b := &builder{
		g:             g,
		tree:          tree,
		doc:           doc,
		nodePartition: make(map[solution.NodeId]PartitionId),
		outputSets:    make(map[operation.QueryFieldId]ResponseObjectSetId),
	}

	for _, eid := range b.treeOutEdges(g.Root) {
		e := g.Edge(eid)
		child := g.Node(e.To)
		if child.Kind != solution.NodeResolver {
			continue
		}
		b.walkResolver(e.To, nil, 0)
	}

	if err := b.buildDependencies(); err != nil {
		return nil, err
	}

	order, err := b.mutationOrder()
	if err != nil {
		return nil, err
	}

	return &PartitionSet{Partitions: b.partitions, RootOrder: order, OutputSets: b.outputSets}, nil
}

func (b *builder) treeOutEdges(n solution.NodeId) []solution.EdgeId {
	var out []solution.EdgeId
	for _, eid := range b.g.OutEdges(n) {
		if b.tree.Has(eid) {
			out = append(out, eid)
		}
	}
	return out
}

// walkResolver creates one partition for resolverNode and collects every
// field it serves, recursing into child partitions wherever the tree
// crosses into another Resolver node.
func (b *builder) walkResolver(resolverNode solution.NodeId, parent *PartitionId, inputField operation.QueryFieldId) {
	node := b.g.Node(resolverNode)

	p := &QueryPartition{
		ID:         PartitionId(len(b.partitions)),
		SubgraphId: node.SubgraphId,
		ResolverId: node.ResolverId,
		IsRoot:     parent == nil,
		InputField: inputField,
	}
	if parent != nil {
		p.ParentPartition = *parent
		p.HasParent = true

		set := b.nextSet
		b.nextSet++
		b.outputSets[inputField] = set
		p.InputSet = set
		p.HasInputSet = true
	}

	b.partitions = append(b.partitions, p)
	b.nodePartition[resolverNode] = p.ID

	pid := p.ID
	b.collectFields(resolverNode, pid)

	sort.Slice(b.partitions[pid].Fields, func(i, j int) bool {
		fi := b.doc.Field(b.partitions[pid].Fields[i])
		fj := b.doc.Field(b.partitions[pid].Fields[j])
		return fi.Location < fj.Location
	})
}

// collectFields walks forward from n along tree edges, attributing every
// QueryField reached to partition pid until a nested Resolver node is hit,
// at which point a child partition is spawned instead. The child's
// InputField comes directly off the resolver node's own SpawningField (set
// once, at resolver-creation time in federation/solution), not from
// traversal order — a resolver node can have several sibling out-edges in
// the same pass (its own served field, sibling Provides edges, a nested
// CreateChildResolver edge), so there is no single "current field" that
// traversal order alone could assign correctly.
func (b *builder) collectFields(n solution.NodeId, pid PartitionId) {
	for _, eid := range b.treeOutEdges(n) {
		e := b.g.Edge(eid)
		to := b.g.Node(e.To)

		switch e.Kind {
		case solution.EdgeField, solution.EdgeProvides:
			if to.Kind != solution.NodeQueryField {
				continue
			}
			b.nodePartition[e.To] = pid
			b.partitions[pid].Fields = append(b.partitions[pid].Fields, to.QueryFieldId)
			b.collectFields(e.To, pid)

		case solution.EdgeCanProvide:
			if to.Kind != solution.NodeProvidableField {
				continue
			}
			b.collectFields(e.To, pid)

		case solution.EdgeCreateChildResolver, solution.EdgeHasChildResolver:
			if to.Kind != solution.NodeResolver || !to.HasSpawningField {
				continue
			}
			parentID := pid
			b.walkResolver(e.To, &parentID, to.SpawningField)

		case solution.EdgeProvidesTypename, solution.EdgeRequires:
			// Typename nodes carry no QueryFieldId of their own (the shape
			// compiler derives the discriminator directly); Requires edges
			// are cross-partition dependency metadata, handled separately
			// in buildDependencies rather than while collecting fields.
		}
	}
}

// buildDependencies adds a DependsOn entry from a dependent field's
// partition to a required field's partition for every Requires edge that
// crosses a partition boundary, deduped and sorted.
func (b *builder) buildDependencies() error {
	seen := make(map[[2]PartitionId]bool)

	for _, e := range b.g.AllEdges() {
		if e.Kind != solution.EdgeRequires {
			continue
		}
		dependentPid, ok := b.nodePartition[e.From]
		if !ok {
			continue // dependent field not in the chosen tree
		}
		requiredPid, ok := b.nodePartition[e.To]
		if !ok {
			continue
		}
		if dependentPid == requiredPid {
			continue
		}
		key := [2]PartitionId{requiredPid, dependentPid}
		if seen[key] {
			continue
		}
		seen[key] = true
		b.partitions[dependentPid].DependsOn = append(b.partitions[dependentPid].DependsOn, requiredPid)
	}

	for _, p := range b.partitions {
		sort.Slice(p.DependsOn, func(i, j int) bool { return p.DependsOn[i] < p.DependsOn[j] })
	}
	return nil
}

// mutationOrder returns the root partitions in dispatch order. For a
// mutation, root partitions must run strictly in the order of the first
// root field they contain; for a query/subscription any order is valid, so
// discovery order (already stable: Build walks the root's tree edges in a
// fixed iteration order) is used directly.
func (b *builder) mutationOrder() ([]PartitionId, error) {
	var roots []PartitionId
	for _, p := range b.partitions {
		if p.IsRoot {
			roots = append(roots, p.ID)
		}
	}

	if b.doc.OperationType != "mutation" {
		return roots, nil
	}

	if len(roots) == 0 {
		return nil, apierror.OperationPlanning("mutation operation produced no root partitions")
	}

	sort.Slice(roots, func(i, j int) bool {
		return firstFieldLocation(b.doc, b.partitions[roots[i]]) < firstFieldLocation(b.doc, b.partitions[roots[j]])
	})
	return roots, nil
}

func firstFieldLocation(doc *operation.Document, p *QueryPartition) int {
	best := -1
	for _, fid := range p.Fields {
		loc := doc.Field(fid).Location
		if best == -1 || loc < best {
			best = loc
		}
	}
	return best
}
