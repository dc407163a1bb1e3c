package executor_test

import (
	"context"
	"strings"
	"sync"
	"testing"

	"github.com/n9te9/federation-gateway/federation/executor"
	"github.com/n9te9/federation-gateway/federation/operation"
	"github.com/n9te9/federation-gateway/federation/partition"
	"github.com/n9te9/federation-gateway/federation/schema"
	"github.com/n9te9/federation-gateway/federation/shape"
	"github.com/n9te9/federation-gateway/federation/solution"
	"github.com/n9te9/federation-gateway/federation/steiner"
	"github.com/n9te9/graphql-parser/lexer"
	"github.com/n9te9/graphql-parser/parser"
)

const productSDL = `
	type Product @key(fields: "id") {
		id: ID!
		name: String!
		secret: String! @authenticated
	}

	type Query {
		product(id: ID!): Product
	}
`

const reviewSDL = `
	type Product @key(fields: "id") {
		id: ID! @external
		reviews: [Review!]!
	}

	type Review {
		id: ID!
		rating: Int!
	}
`

func compilePlan(t *testing.T, query string) *executor.Plan {
	t.Helper()
	sch, err := schema.Build([]schema.SubgraphInput{
		{Name: "product", Host: "http://product.example.com", SDL: []byte(productSDL)},
		{Name: "review", Host: "http://review.example.com", SDL: []byte(reviewSDL)},
	})
	if err != nil {
		t.Fatalf("schema.Build failed: %v", err)
	}

	l := lexer.New(query)
	p := parser.New(l)
	doc := p.ParseDocument()
	if len(p.Errors()) > 0 {
		t.Fatalf("parse error: %v", p.Errors())
	}
	bound, err := operation.Bind(sch, doc, nil, operation.DefaultLimits)
	if err != nil {
		t.Fatalf("Bind failed: %v", err)
	}

	g, err := solution.Build(sch, bound)
	if err != nil {
		t.Fatalf("solution.Build failed: %v", err)
	}

	var terminals []solution.NodeId
	for _, n := range g.AllNodes() {
		if n.Kind == solution.NodeQueryField && n.Indispensable {
			terminals = append(terminals, n.ID)
		}
	}

	tree, err := steiner.Solve(g, terminals)
	if err != nil {
		t.Fatalf("steiner.Solve failed: %v", err)
	}

	ps, err := partition.Build(g, tree, bound)
	if err != nil {
		t.Fatalf("partition.Build failed: %v", err)
	}

	set, err := shape.Compile(sch, bound, ps)
	if err != nil {
		t.Fatalf("shape.Compile failed: %v", err)
	}

	return &executor.Plan{Schema: sch, Document: bound, Partitions: ps, Shapes: set}
}

// fakeClient routes by host: the product subgraph always answers with a
// fixed Product object; the review subgraph answers an _entities request
// with one "reviews" result per representation it was sent.
type fakeClient struct {
	mu    sync.Mutex
	calls []string // host recorded per Do call, in dispatch order
}

func (c *fakeClient) Do(_ context.Context, host, query string, variables map[string]any) (map[string]any, []executor.GraphQLError, error) {
	c.mu.Lock()
	c.calls = append(c.calls, host)
	c.mu.Unlock()

	switch {
	case strings.Contains(host, "product"):
		return map[string]any{
			"product": map[string]any{
				"id":   "1",
				"name": "Widget",
			},
		}, nil, nil

	case strings.Contains(host, "review"):
		reps, _ := variables["representations"].([]map[string]any)
		entities := make([]any, len(reps))
		for i := range reps {
			entities[i] = map[string]any{
				"reviews": []any{map[string]any{"rating": int64(5)}},
			}
		}
		return map[string]any{"_entities": entities}, nil, nil
	}
	return nil, nil, nil
}

func TestExecute_MergesRootAndEntityPartitions(t *testing.T) {
	plan := compilePlan(t, `
		query {
			product(id: "1") {
				name
				reviews {
					rating
				}
			}
		}
	`)

	client := &fakeClient{}
	ex := &executor.GatewayExecutor{Client: client}

	data, errs, err := ex.Execute(context.Background(), plan, executor.AuthContext{})
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if len(errs) != 0 {
		t.Fatalf("expected no errors, got %+v", errs)
	}

	product, ok := data["product"].(map[string]any)
	if !ok {
		t.Fatalf("expected a 'product' object in the result, got %#v", data)
	}
	if product["name"] != "Widget" {
		t.Errorf("expected product.name = Widget, got %v", product["name"])
	}

	reviews, ok := product["reviews"].([]any)
	if !ok || len(reviews) != 1 {
		t.Fatalf("expected product.reviews to carry one merged entry, got %#v", product["reviews"])
	}
	review := reviews[0].(map[string]any)
	if review["rating"] != int64(5) {
		t.Errorf("expected rating = 5, got %v", review["rating"])
	}

	if len(client.calls) != 2 {
		t.Fatalf("expected exactly two subgraph dispatches, got %d: %v", len(client.calls), client.calls)
	}
}

func TestExecute_DeniesUnauthenticatedField(t *testing.T) {
	plan := compilePlan(t, `
		query {
			product(id: "1") {
				secret
			}
		}
	`)

	client := &fakeClient{}
	ex := &executor.GatewayExecutor{Client: client}

	_, errs, err := ex.Execute(context.Background(), plan, executor.AuthContext{Authenticated: false})
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if len(errs) != 1 {
		t.Fatalf("expected exactly one denial error, got %+v", errs)
	}
	if !strings.Contains(errs[0].Message, "secret") {
		t.Errorf("expected the error to name the denied field, got %q", errs[0].Message)
	}
}
