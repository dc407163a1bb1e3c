package response

import "github.com/goccy/go-json"

// wireNode is the compact wire encoding of a QueryResponseNode: a single
// type discriminator (C/L/P) plus, for composite kinds, the child list
// under c. Maps are emitted as this key-value sequence rather than a JSON
// object so that Container field order survives the round trip.
type wireNode struct {
	T string      `json:"t"`
	C []wireEntry `json:"c,omitempty"`
	V any         `json:"v,omitempty"`
}

// wireEntry is one child attachment. R distinguishes a keyed Container edge
// ("R", carrying the response key under K) from a positional List element
// ("NR", no key).
type wireEntry struct {
	R string    `json:"r"`
	K string    `json:"k,omitempty"`
	N *wireNode `json:"n"`
}

// Serialize encodes the subtree rooted at id in the compact wire form,
// without consuming the graph: unlike TakeValue this leaves every visited
// node in place, so the same subtree can be serialized again later (e.g.
// once more of it has resolved, for an incremental payload).
func (g *Graph) Serialize(id ResponseNodeId) ([]byte, error) {
	w, err := g.toWire(id)
	if err != nil {
		return nil, err
	}
	return json.Marshal(w)
}

func (g *Graph) toWire(id ResponseNodeId) (*wireNode, error) {
	n, ok := g.nodes[id]
	if !ok {
		return nil, &NotFoundError{ID: id}
	}

	switch n.Kind {
	case KindPrimitive:
		return &wireNode{T: "P", V: n.value}, nil

	case KindList:
		w := &wireNode{T: "L"}
		for _, child := range n.items {
			cw, err := g.toWire(child)
			if err != nil {
				return nil, err
			}
			w.C = append(w.C, wireEntry{R: "NR", N: cw})
		}
		return w, nil

	default:
		w := &wireNode{T: "C"}
		for _, key := range n.fieldOrder {
			cw, err := g.toWire(n.fields[key])
			if err != nil {
				return nil, err
			}
			w.C = append(w.C, wireEntry{R: "R", K: key, N: cw})
		}
		return w, nil
	}
}
