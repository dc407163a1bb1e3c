package response

import "fmt"

// maxNodeId bounds the arena so allocation overflow fails loudly instead of
// wrapping ResponseNodeId back to an id already in use.
const maxNodeId = ResponseNodeId(1<<32 - 1)

// Graph is an arena-backed response tree: every node is addressed by a
// stable ResponseNodeId and every edge is an id stored inside another node,
// never a pointer. Nodes can be inserted in any order, so a Graph can be
// filled in as subgraph responses arrive, regardless of the order
// partitions complete in. GatewayExecutor does not use it: it merges
// subgraph results into a map[string]any tree.
type Graph struct {
	Root ResponseNodeId

	nodes    map[ResponseNodeId]*QueryResponseNode
	byEntity map[EntityId]ResponseNodeId
	nextID   ResponseNodeId
}

// NewGraph allocates a response graph with a fresh root Container node.
func NewGraph() *Graph {
	g := &Graph{
		nodes:    make(map[ResponseNodeId]*QueryResponseNode),
		byEntity: make(map[EntityId]ResponseNodeId),
	}
	id, _ := g.allocID()
	g.nodes[id] = &QueryResponseNode{ID: id, Kind: KindContainer, fields: make(map[string]ResponseNodeId)}
	g.Root = id
	return g
}

func (g *Graph) allocID() (ResponseNodeId, error) {
	if g.nextID == maxNodeId {
		return 0, fmt.Errorf("response: node id space exhausted (limit %d)", maxNodeId)
	}
	id := g.nextID
	g.nextID++
	return id, nil
}

func (g *Graph) insert(n *QueryResponseNode) (ResponseNodeId, error) {
	id, err := g.allocID()
	if err != nil {
		return 0, err
	}
	n.ID = id

	// A node tagged with an EntityId already mapped evicts the node it
	// replaces: the same entity reached through two partitions collapses
	// to whichever write lands last, rather than living on twice.
	if n.HasEntity {
		if old, ok := g.byEntity[n.Entity]; ok {
			delete(g.nodes, old)
		}
		g.byEntity[n.Entity] = id
	}

	g.nodes[id] = n
	return id, nil
}

// NewContainer allocates an entity-less Container node.
func (g *Graph) NewContainer() (ResponseNodeId, error) {
	return g.insert(&QueryResponseNode{Kind: KindContainer, fields: make(map[string]ResponseNodeId)})
}

// NewEntityContainer allocates a Container node tagged with entity, evicting
// whatever node was previously mapped to that EntityId.
func (g *Graph) NewEntityContainer(entity EntityId) (ResponseNodeId, error) {
	return g.insert(&QueryResponseNode{
		Kind:      KindContainer,
		fields:    make(map[string]ResponseNodeId),
		HasEntity: true,
		Entity:    entity,
	})
}

// NewList allocates an empty List node.
func (g *Graph) NewList() (ResponseNodeId, error) {
	return g.insert(&QueryResponseNode{Kind: KindList})
}

// NewPrimitive allocates a Primitive node wrapping value (a scalar, nil, or
// any already-decoded JSON-shaped value with no further graph structure).
func (g *Graph) NewPrimitive(value any) (ResponseNodeId, error) {
	return g.insert(&QueryResponseNode{Kind: KindPrimitive, value: value})
}

// Node returns the node at id, or false if it has no longer has one.
func (g *Graph) Node(id ResponseNodeId) (*QueryResponseNode, bool) {
	n, ok := g.nodes[id]
	return n, ok
}

// EntityNode returns the node currently mapped to entity, if any.
func (g *Graph) EntityNode(entity EntityId) (ResponseNodeId, bool) {
	id, ok := g.byEntity[entity]
	return id, ok
}

// Append attaches child under parent at key, overwriting whatever was
// previously written at that key. parent must be a Container.
func (g *Graph) Append(parent, child ResponseNodeId, key string) error {
	p, ok := g.nodes[parent]
	if !ok {
		return &NotFoundError{ID: parent}
	}
	if p.Kind != KindContainer {
		return &NotAContainerError{ID: parent}
	}
	if _, exists := p.fields[key]; !exists {
		p.fieldOrder = append(p.fieldOrder, key)
	}
	p.fields[key] = child
	return nil
}

// Push appends child to the end of the List at parent.
func (g *Graph) Push(parent, child ResponseNodeId) error {
	p, ok := g.nodes[parent]
	if !ok {
		return &NotFoundError{ID: parent}
	}
	if p.Kind != KindList {
		return &NotAListError{ID: parent}
	}
	p.items = append(p.items, child)
	return nil
}

// Delete removes id and its entity mapping, if any. It does not cascade:
// children of id remain in the arena, now unreachable from id but still
// addressable directly by id if something else still references them.
func (g *Graph) Delete(id ResponseNodeId) {
	n, ok := g.nodes[id]
	if !ok {
		return
	}
	if n.HasEntity {
		delete(g.byEntity, n.Entity)
	}
	delete(g.nodes, id)
}

// Children lists every Container/List node reachable from root, root
// included, in pre-order: root itself, then each child subtree in
// attachment order. Primitive leaves are not yielded — callers that need
// leaf values read them off the Container/List that holds them, or via
// TakeValue.
func (g *Graph) Children(root ResponseNodeId) []ResponseNodeId {
	var out []ResponseNodeId
	stack := []ResponseNodeId{root}
	for len(stack) > 0 {
		id := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		n, ok := g.nodes[id]
		if !ok {
			continue
		}
		switch n.Kind {
		case KindContainer:
			out = append(out, id)
			for i := len(n.fieldOrder) - 1; i >= 0; i-- {
				stack = append(stack, n.fields[n.fieldOrder[i]])
			}
		case KindList:
			out = append(out, id)
			for i := len(n.items) - 1; i >= 0; i-- {
				stack = append(stack, n.items[i])
			}
		}
	}
	return out
}

// RelationEntity pairs a keyed attachment point with the EntityId of the
// node found there.
type RelationEntity struct {
	Relation Relation
	Entity   EntityId
}

// Relations lists every keyed edge under root (root's own subtree included)
// whose target carries an EntityId — the edges the executor needs when it
// later has to re-locate and overwrite a specific entity's node in place,
// e.g. to apply a deferred payload.
func (g *Graph) Relations(root ResponseNodeId) []RelationEntity {
	var out []RelationEntity
	for _, id := range g.Children(root) {
		n := g.nodes[id]
		if n.Kind != KindContainer {
			continue
		}
		for _, key := range n.fieldOrder {
			child, ok := g.nodes[n.fields[key]]
			if !ok || !child.HasEntity {
				continue
			}
			out = append(out, RelationEntity{
				Relation: Relation{IsKeyed: true, Key: key},
				Entity:   child.Entity,
			})
		}
	}
	return out
}

// TakeValue converts id into a plain Go value (map[string]any / []any /
// scalar), deleting every node it visits along the way. A Container field
// whose value converts to an empty map is dropped from its parent rather
// than emitted as {}: this is how an optional entity that resolved to
// nothing collapses out of the response instead of appearing as a stray
// empty object.
func (g *Graph) TakeValue(id ResponseNodeId) (any, error) {
	n, ok := g.nodes[id]
	if !ok {
		return nil, &NotFoundError{ID: id}
	}
	g.Delete(id)

	switch n.Kind {
	case KindPrimitive:
		return n.value, nil

	case KindList:
		out := make([]any, 0, len(n.items))
		for _, child := range n.items {
			v, err := g.TakeValue(child)
			if err != nil {
				return nil, err
			}
			out = append(out, v)
		}
		return out, nil

	default:
		out := make(map[string]any, len(n.fieldOrder))
		for _, key := range n.fieldOrder {
			v, err := g.TakeValue(n.fields[key])
			if err != nil {
				return nil, err
			}
			if m, ok := v.(map[string]any); ok && len(m) == 0 {
				continue
			}
			out[key] = v
		}
		return out, nil
	}
}
