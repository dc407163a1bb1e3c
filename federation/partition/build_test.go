package partition_test

import (
	"testing"

	"github.com/n9te9/federation-gateway/federation/operation"
	"github.com/n9te9/federation-gateway/federation/partition"
	"github.com/n9te9/federation-gateway/federation/schema"
	"github.com/n9te9/federation-gateway/federation/solution"
	"github.com/n9te9/federation-gateway/federation/steiner"
	"github.com/n9te9/graphql-parser/lexer"
	"github.com/n9te9/graphql-parser/parser"
)

const productSDL = `
	type Product @key(fields: "id") {
		id: ID!
		name: String!
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

func buildPlan(t *testing.T, query string) (*partition.PartitionSet, *operation.Document, *schema.Schema) {
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
	return ps, bound, sch
}

func TestBuild_CrossSubgraphFieldSpawnsChildPartition(t *testing.T) {
	ps, doc, sch := buildPlan(t, `
		query {
			product(id: "1") {
				name
				reviews {
					rating
				}
			}
		}
	`)

	var root, child *partition.QueryPartition
	for _, p := range ps.Partitions {
		if p.IsRoot {
			root = p
		} else {
			child = p
		}
	}
	if root == nil || child == nil {
		t.Fatalf("expected exactly one root and one child partition, got %d partitions", len(ps.Partitions))
	}

	reviewSG, _ := sch.SubgraphByName("review")
	productSG, _ := sch.SubgraphByName("product")
	if root.SubgraphId != productSG {
		t.Errorf("expected root partition in product subgraph, got %v", root.SubgraphId)
	}
	if child.SubgraphId != reviewSG {
		t.Errorf("expected child partition in review subgraph, got %v", child.SubgraphId)
	}
	if !child.HasParent || child.ParentPartition != root.ID {
		t.Error("expected child partition's parent to be the root partition")
	}
	if !child.HasInputSet {
		t.Error("expected child partition to carry an input set")
	}

	inputFieldName := sch.Field(doc.Field(child.InputField).DefinitionID).Name
	if inputFieldName != "reviews" {
		t.Errorf("expected child partition's input field to be 'reviews', got %q", inputFieldName)
	}

	if set, ok := ps.OutputSets[child.InputField]; !ok || set != child.InputSet {
		t.Error("expected OutputSets to map the input field to the child partition's input set")
	}

	var sawRating bool
	for _, fid := range child.Fields {
		if doc.Field(fid).ResponseKey == "rating" {
			sawRating = true
		}
	}
	if !sawRating {
		t.Error("expected child partition to own the 'rating' field")
	}
}
