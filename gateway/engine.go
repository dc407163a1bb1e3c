package gateway

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/n9te9/federation-gateway/federation/executor"
	"github.com/n9te9/federation-gateway/federation/schema"
)

// executionEngine bundles the read-only components needed to serve GraphQL
// requests against one composed supergraph generation.
type executionEngine struct {
	schema          *schema.Schema
	gatewayExecutor *executor.GatewayExecutor
}

// schemaStore holds the current set of raw SDLs, host URLs, and the
// pre-built engine compiled from them. It is swapped atomically whenever a
// registration request adds or updates a subgraph, so in-flight requests
// keep executing against a consistent, fully-built supergraph generation
// while a new one composes in the background.
type schemaStore struct {
	sdls   map[string]string
	hosts  map[string]string
	engine *executionEngine
}

// buildEngine composes a supergraph from sdls/hosts and wraps it with a
// GatewayExecutor dispatching through httpClient. Subgraph composition
// order follows sdls' (non-deterministic) map iteration order; schema.Build
// is order-independent over its input slice.
func buildEngine(sdls, hosts map[string]string, httpClient *http.Client, forwardHeaders []string) (*executionEngine, error) {
	if len(sdls) == 0 {
		return nil, fmt.Errorf("no subgraph SDLs provided")
	}

	inputs := make([]schema.SubgraphInput, 0, len(sdls))
	for name, sdl := range sdls {
		inputs = append(inputs, schema.SubgraphInput{Name: name, Host: hosts[name], SDL: []byte(sdl)})
	}

	sch, err := schema.Build(inputs)
	if err != nil {
		return nil, fmt.Errorf("composition failed: %w", err)
	}

	client := &executor.HTTPSubgraphClient{HTTPClient: httpClient, ForwardHeaders: forwardHeaders}
	return &executionEngine{
		schema:          sch,
		gatewayExecutor: &executor.GatewayExecutor{Client: client},
	}, nil
}

// copyMap returns a shallow copy of a string map.
func copyMap(m map[string]string) map[string]string {
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// registrationRequest mirrors registry.RegistrationRequest's wire shape —
// the gateway is the receiving end of the registry's forwarded POST.
type registrationRequest struct {
	RegistrationGraphs []registrationGraph `json:"registration_graphs"`
}

type registrationGraph struct {
	Name string `json:"name"`
	Host string `json:"host"`
	SDL  string `json:"sdl"`
}

// handleSchemaRegistration merges newly registered subgraphs into the live
// schemaStore and recomposes the supergraph. A composition failure leaves
// the previous, already-serving generation untouched.
func (g *gateway) handleSchemaRegistration(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	var body registrationRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "failed to decode registration request", http.StatusBadRequest)
		return
	}

	cur := g.store.Load().(*schemaStore)
	sdls := copyMap(cur.sdls)
	hosts := copyMap(cur.hosts)
	for _, rg := range body.RegistrationGraphs {
		sdls[rg.Name] = rg.SDL
		hosts[rg.Name] = rg.Host
	}

	engine, err := buildEngine(sdls, hosts, g.httpClient, g.forwardHeaders)
	if err != nil {
		http.Error(w, fmt.Sprintf("composition failed: %v", err), http.StatusBadRequest)
		return
	}

	g.store.Store(&schemaStore{sdls: sdls, hosts: hosts, engine: engine})
	w.WriteHeader(http.StatusOK)
}
