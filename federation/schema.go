package federation

import "github.com/n9te9/federation-gateway/federation/schema"

// SubGraph is one subgraph's registration payload: an SDL document that has
// been confirmed to parse and merge cleanly, tagged with the name and host
// the registry forwards it under.
type SubGraph struct {
	Name string
	Host string
	SDL  string
}

// NewSubGraph validates src as a standalone subgraph SDL document against
// the same schema IR the gateway composes its supergraph from, so a bad
// registration is rejected before it is ever forwarded to other gateway
// instances.
func NewSubGraph(name string, src []byte, host string) (*SubGraph, error) {
	if _, err := schema.Build([]schema.SubgraphInput{{Name: name, Host: host, SDL: src}}); err != nil {
		return nil, err
	}
	return &SubGraph{Name: name, Host: host, SDL: string(src)}, nil
}
