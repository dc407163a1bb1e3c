package shape_test

import (
	"testing"

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

func compilePlan(t *testing.T, query string) (*shape.Set, *operation.Document, *schema.Schema, *partition.PartitionSet) {
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
	return set, bound, sch, ps
}

func TestCompile_RootShapeOmitsCrossPartitionField(t *testing.T) {
	set, _, _, ps := compilePlan(t, `
		query {
			product(id: "1") {
				name
				reviews {
					rating
				}
			}
		}
	`)

	var root *partition.QueryPartition
	for _, p := range ps.Partitions {
		if p.IsRoot {
			root = p
		}
	}
	if root == nil {
		t.Fatal("expected a root partition")
	}

	rootShape := set.Shape(root.ID)
	if rootShape == nil {
		t.Fatal("expected a compiled shape for the root partition")
	}
	if rootShape.Kind != shape.ShapeConcrete {
		t.Fatalf("expected a concrete shape, got %v", rootShape.Kind)
	}

	var productField *shape.CollectedField
	for i := range rootShape.Fields {
		if rootShape.Fields[i].ExpectedKey == "product" {
			productField = &rootShape.Fields[i]
		}
	}
	if productField == nil {
		t.Fatal("expected a 'product' field in the root shape")
	}
	if productField.Child == nil {
		t.Fatal("expected 'product' to carry a child shape")
	}

	var sawName, sawReviews bool
	for _, f := range productField.Child.Fields {
		switch f.ExpectedKey {
		case "name":
			sawName = true
		case "reviews":
			sawReviews = true
		}
	}
	if !sawName {
		t.Error("expected 'name' in product's compiled shape")
	}
	if sawReviews {
		t.Error("expected 'reviews' to be absent from product's shape: it is served entirely by the child partition")
	}
}

func TestCompile_ChildPartitionShapeStartsFromSpawningFieldSelection(t *testing.T) {
	set, _, _, ps := compilePlan(t, `
		query {
			product(id: "1") {
				reviews {
					rating
				}
			}
		}
	`)

	var child *partition.QueryPartition
	for _, p := range ps.Partitions {
		if !p.IsRoot {
			child = p
		}
	}
	if child == nil {
		t.Fatal("expected a child partition")
	}

	childShape := set.Shape(child.ID)
	if childShape == nil {
		t.Fatal("expected a compiled shape for the child partition")
	}

	var sawRating bool
	for _, f := range childShape.Fields {
		if f.ExpectedKey == "rating" {
			sawRating = true
		}
	}
	if !sawRating {
		t.Error("expected 'rating' in the child partition's shape")
	}
}

func TestCompile_AuthenticatedFieldGeneratesQueryModifier(t *testing.T) {
	set, _, _, _ := compilePlan(t, `
		query {
			product(id: "1") {
				secret
			}
		}
	`)

	if len(set.QueryModifiers) != 1 {
		t.Fatalf("expected exactly one query modifier, got %d", len(set.QueryModifiers))
	}
	qm := set.QueryModifiers[0]
	if qm.Rule.Kind != shape.RuleAuthenticated {
		t.Errorf("expected an Authenticated rule, got %v", qm.Rule.Kind)
	}
	if len(qm.Fields) != 1 {
		t.Errorf("expected the rule to name exactly one field occurrence, got %d", len(qm.Fields))
	}
}
