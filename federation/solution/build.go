package solution

import (
	"github.com/n9te9/federation-gateway/federation/operation"
	"github.com/n9te9/federation-gateway/federation/schema"
)

type parentContext struct {
	// node is the providable/resolver/root node children should link their
	// "Provides"/"CreateChildResolver" edges to.
	node NodeId
	// hasSubgraph is false only for the synthetic root context, where no
	// single subgraph can be said to "provide" the root selection set.
	hasSubgraph bool
	subgraph    schema.SubgraphId
	provides    schema.FieldSet
	outputType  schema.TypeId
}

type builder struct {
	g   *Graph
	sch *schema.Schema
	doc *operation.Document

	// queryFieldNodes maps an already-placed QueryField to its node, so a
	// field reached through multiple resolution paths gets one node with
	// multiple incoming CanProvide candidates instead of being duplicated.
	queryFieldNodes map[operation.QueryFieldId]NodeId

	// resolverNodes dedups sibling resolver creation within one parent
	// context: (parent node, resolver) -> resolver node, matching the
	// "resolver of identical definition_id is shared" rule.
	resolverNodes map[resolverKey]NodeId

	// ssContext records the parentContext each selection set was placed
	// under, so requirement resolution can later place a synthesized field
	// into the right selection set using the same context its siblings used.
	ssContext map[operation.SelectionSetId]parentContext

	requirements []requirementTask
}

type resolverKey struct {
	parent     NodeId
	resolverID schema.ResolverId
}

// Build walks a bound operation and produces its solution-space graph: the
// set of ways each client-visible (and, after requirement resolution,
// synthesized) field could be obtained from the federated subgraphs.
func Build(sch *schema.Schema, doc *operation.Document) (*Graph, error) {
	g := newGraph(sch, doc)
	b := &builder{
		g:               g,
		sch:             sch,
		doc:             doc,
		queryFieldNodes: make(map[operation.QueryFieldId]NodeId),
		resolverNodes:   make(map[resolverKey]NodeId),
		ssContext:       make(map[operation.SelectionSetId]parentContext),
	}

	root := g.addNode(&Node{Kind: NodeRoot})
	g.Root = root

	rootCtx := parentContext{node: root, hasSubgraph: false, outputType: doc.RootType}
	b.placeSelectionSet(doc.RootSelectionSet, rootCtx)

	if err := b.resolveRequirements(); err != nil {
		return nil, err
	}

	return g, nil
}

// placeSelectionSet places every field of ssID under parent context ctx.
func (b *builder) placeSelectionSet(ssID operation.SelectionSetId, ctx parentContext) {
	b.ssContext[ssID] = ctx
	ss := b.doc.SelectionSet(ssID)
	for _, fieldID := range ss.Fields {
		b.placeField(ssID, fieldID, ctx, true)
	}
	if ss.NeedsTypename && ctx.hasSubgraph {
		tn := b.g.addNode(&Node{Kind: NodeTypename, SelectionSet: ssID})
		b.g.addEdge(EdgeProvidesTypename, ctx.node, tn, 0)
	}
}

// placeField places one field occurrence and, if composite, recurses into
// its selection set. indispensable propagates the INDISPENSABLE flag: true
// for every client-visible field, and for any field a required set
// transitively depends on. ssID is the selection set fieldID belongs to,
// carried along so a requirement task created here can search the right
// sibling fields later.
func (b *builder) placeField(ssID operation.SelectionSetId, fieldID operation.QueryFieldId, ctx parentContext, indispensable bool) NodeId {
	if existing, ok := b.queryFieldNodes[fieldID]; ok {
		if indispensable {
			b.g.nodes[existing].Indispensable = true
		}
		return existing
	}

	qf := b.doc.Field(fieldID)
	qfNode := b.g.addNode(&Node{
		Kind:          NodeQueryField,
		QueryFieldId:  fieldID,
		Indispensable: indispensable,
	})
	b.queryFieldNodes[fieldID] = qfNode

	if qf.IsTypename {
		// __typename is satisfied by whichever providable already sits at
		// this selection set (ProvidesTypename), or by the introspection
		// resolver at the root; no further placement needed here.
		if !ctx.hasSubgraph {
			b.attachIntrospectionResolver(qfNode, ctx)
		}
		return qfNode
	}

	fd := b.sch.Field(qf.DefinitionID)

	if !ctx.hasSubgraph {
		b.placeViaNewResolver(ssID, qfNode, qf, fd, ctx)
		return qfNode
	}

	kind, newProvides := classifyProvidability(b.sch, ctx, fd)

	switch kind {
	case InSubgraph, OnlyProvidableViaProvides:
		prov := b.g.addNode(&Node{
			Kind:           NodeProvidableField,
			QueryFieldId:   fieldID,
			ProvidableKind: kind,
			SubgraphId:     ctx.subgraph,
			Provides:       newProvides,
			SelectionSet:   selectionSetOrZero(qf),
		})
		b.g.addEdge(EdgeCanProvide, qfNode, prov, 0)
		b.g.addEdge(EdgeProvides, ctx.node, qfNode, 0)

		if requires, ok := fd.RequiresForSubgraph(ctx.subgraph); ok && !requires.Empty() {
			b.requirements = append(b.requirements, requirementTask{
				parentSelectionSet: ssID,
				petitioner:         prov,
				dependent:          qfNode,
				requiredFieldSet:   requires,
				indispensable:      indispensable,
			})
		}

		if qf.HasSelectionSet {
			childCtx := parentContext{
				node:        prov,
				hasSubgraph: true,
				subgraph:    ctx.subgraph,
				provides:    newProvides,
				outputType:  b.doc.SelectionSet(qf.SelectionSet).OutputType,
			}
			b.placeSelectionSet(qf.SelectionSet, childCtx)
		}

		// Alternative resolvers still get a chance in other subgraphs even
		// when the parent already provides the field, so cost comparison
		// in the Steiner solver has real alternatives to weigh.
		b.addAlternativeResolverCandidates(qfNode, fd, ctx)

	case UnreachableObject:
		b.g.nodes[qfNode].UnreachableFlag = true

	case NotProvidable:
		b.placeViaNewResolver(ssID, qfNode, qf, fd, ctx)
	}

	return qfNode
}

func selectionSetOrZero(qf *operation.QueryField) operation.SelectionSetId {
	if qf.HasSelectionSet {
		return qf.SelectionSet
	}
	return 0
}

// classifyProvidability implements the provide-from-parent check (is the
// field resolvable directly in the parent's subgraph, covered by an
// ancestor @provides, unreachable through a union, or none of those) plus
// the union/interface reachability rule.
func classifyProvidability(sch *schema.Schema, ctx parentContext, fd *schema.FieldDefinition) (ProvidableKind, schema.FieldSet) {
	if !reachable(sch, ctx) {
		return UnreachableObject, schema.FieldSet{}
	}

	if fd.ExistsInSubgraphIds(ctx.subgraph) {
		if requires, ok := fd.RequiresForSubgraph(ctx.subgraph); ok && !requires.Empty() {
			return NotProvidable, schema.FieldSet{}
		}
		provides, _ := fd.ProvidesForSubgraph(ctx.subgraph)
		return InSubgraph, provides
	}

	if item, ok := ctx.provides.Contains(fd.Name); ok {
		return OnlyProvidableViaProvides, item.SubSelection
	}

	return NotProvidable, schema.FieldSet{}
}

// reachable implements the union/interface reachability rule: a union
// parent output is reachable only if every member is defined in the
// subgraph (per-subgraph partial-union extension is not tracked by the
// schema IR, so this is the closest sound approximation); interfaces are
// conservatively reachable, matching objects trivially.
func reachable(sch *schema.Schema, ctx parentContext) bool {
	ct := sch.Type(ctx.outputType)
	if ct.Kind != schema.KindUnion {
		return true
	}
	for _, member := range ct.PossibleTypeIds {
		if !sch.Type(member).ExistsInSubgraph(ctx.subgraph) {
			return false
		}
	}
	return true
}

// placeViaNewResolver creates or reuses a sibling resolver for fd under
// ctx, links it, and recurses into the field's own selection set with the
// resolver's subgraph as the new parent context.
func (b *builder) placeViaNewResolver(ssID operation.SelectionSetId, qfNode NodeId, qf *operation.QueryField, fd *schema.FieldDefinition, ctx parentContext) {
	indispensable := b.g.nodes[qfNode].Indispensable
	for _, r := range b.candidateResolvers(fd) {
		resolverNode := b.ensureResolverNode(ctx.node, r, qfNode)
		b.g.addEdge(EdgeField, resolverNode, qfNode, 1)

		if !r.RequiredFields.Empty() {
			b.requirements = append(b.requirements, requirementTask{
				parentSelectionSet: ssID,
				petitioner:         resolverNode,
				dependent:          qfNode,
				requiredFieldSet:   r.RequiredFields,
				indispensable:      indispensable,
			})
		}
		if requires, ok := fd.RequiresForSubgraph(r.SubgraphId); ok && !requires.Empty() {
			b.requirements = append(b.requirements, requirementTask{
				parentSelectionSet: ssID,
				petitioner:         resolverNode,
				dependent:          qfNode,
				requiredFieldSet:   requires,
				indispensable:      indispensable,
			})
		}

		if qf.HasSelectionSet {
			childCtx := parentContext{
				node:        resolverNode,
				hasSubgraph: true,
				subgraph:    r.SubgraphId,
				outputType:  b.doc.SelectionSet(qf.SelectionSet).OutputType,
			}
			b.placeSelectionSet(qf.SelectionSet, childCtx)
		}
	}
}

// addAlternativeResolverCandidates adds further Resolver-based candidates
// for a field that a parent providable already serves, so the Steiner
// solver can weigh a cheaper cross-subgraph alternative against the
// zero-weight in-subgraph path.
func (b *builder) addAlternativeResolverCandidates(qfNode NodeId, fd *schema.FieldDefinition, ctx parentContext) {
	for _, r := range b.candidateResolvers(fd) {
		if r.SubgraphId == ctx.subgraph {
			continue
		}
		resolverNode := b.ensureResolverNode(ctx.node, r, qfNode)
		b.g.addEdge(EdgeField, resolverNode, qfNode, 1)
	}
}

// candidateResolvers enumerates the resolvers that could serve fd: root
// resolvers directly attached to a root field's definition, or the entity
// resolvers of the field's owning type for any other field (a federated
// subgraph serves a non-root field by first resolving the entity via
// `_entities`, then selecting the field locally).
func (b *builder) candidateResolvers(fd *schema.FieldDefinition) []*schema.Resolver {
	if len(fd.Resolvers) > 0 {
		out := make([]*schema.Resolver, 0, len(fd.Resolvers))
		for _, rid := range fd.Resolvers {
			out = append(out, b.sch.Resolver(rid))
		}
		return out
	}

	var out []*schema.Resolver
	for _, r := range b.sch.ResolversFor(fd.ParentID) {
		if fd.ExistsInSubgraphIds(r.SubgraphId) {
			out = append(out, r)
		}
	}
	return out
}

// ensureResolverNode returns the shared resolver node for (parent, r),
// creating it on first use. spawningField is recorded only at creation
// time: the field that actually crossed the subgraph boundary, not
// whichever sibling field happens to reuse the resolver afterwards.
func (b *builder) ensureResolverNode(parent NodeId, r *schema.Resolver, spawningField NodeId) NodeId {
	key := resolverKey{parent: parent, resolverID: r.ID}
	if id, ok := b.resolverNodes[key]; ok {
		return id
	}
	spawningQF := b.g.nodes[spawningField].QueryFieldId
	node := b.g.addNode(&Node{
		Kind:             NodeResolver,
		ResolverId:       r.ID,
		SubgraphId:       r.SubgraphId,
		SpawningField:    spawningQF,
		HasSpawningField: true,
	})
	b.g.addEdge(EdgeCreateChildResolver, parent, node, 1)
	if b.g.nodes[parent].Kind == NodeResolver {
		b.g.addEdge(EdgeHasChildResolver, parent, node, 0)
	}
	b.resolverNodes[key] = node
	return node
}

// attachIntrospectionResolver serves a root-level __typename from the
// gateway itself rather than dispatching it to a subgraph.
func (b *builder) attachIntrospectionResolver(qfNode NodeId, ctx parentContext) {
	key := resolverKey{parent: ctx.node, resolverID: -1}
	node, ok := b.resolverNodes[key]
	if !ok {
		qfId := b.g.nodes[qfNode].QueryFieldId
		node = b.g.addNode(&Node{
			Kind:             NodeResolver,
			SubgraphId:       schema.IntrospectionSubgraph,
			SpawningField:    qfId,
			HasSpawningField: true,
		})
		b.g.addEdge(EdgeCreateChildResolver, ctx.node, node, 0)
		b.resolverNodes[key] = node
	}
	b.g.addEdge(EdgeField, node, qfNode, 0)
}
