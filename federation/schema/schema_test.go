package schema_test

import (
	"testing"

	"github.com/n9te9/federation-gateway/federation/schema"
)

func buildTestSchema(t *testing.T, inputs ...schema.SubgraphInput) *schema.Schema {
	t.Helper()
	sch, err := schema.Build(inputs)
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	return sch
}

func TestBuild_SimpleEntity(t *testing.T) {
	sdl := `
		type Product @key(fields: "id") {
			id: ID!
			name: String!
			price: Float!
		}

		type Query {
			product(id: ID!): Product
		}
	`

	sch := buildTestSchema(t, schema.SubgraphInput{Name: "product", Host: "http://product.example.com", SDL: []byte(sdl)})

	productID, ok := sch.TypeByName("Product")
	if !ok {
		t.Fatal("Product type not found")
	}
	product := sch.Type(productID)
	if product.Kind != schema.KindObject {
		t.Errorf("expected KindObject, got %v", product.Kind)
	}
	if len(product.Fields) != 3 {
		t.Errorf("expected 3 fields, got %d", len(product.Fields))
	}

	fd, ok := sch.FieldByName("Query", "product")
	if !ok {
		t.Fatal("Query.product not found")
	}
	if len(fd.Arguments) != 1 || fd.Arguments[0].Name != "id" {
		t.Errorf("expected single argument 'id', got %+v", fd.Arguments)
	}
	if !fd.Arguments[0].Type.IsNonNull() {
		t.Error("expected id argument to be non-null")
	}

	resolvers := sch.ResolversFor(productID)
	var sawEntity bool
	for _, r := range resolvers {
		if r.Kind == schema.ResolverEntity {
			sawEntity = true
			names := r.RequiredFields.FieldNames()
			if len(names) != 1 || names[0] != "id" {
				t.Errorf("expected entity resolver key set [id], got %v", names)
			}
		}
	}
	if !sawEntity {
		t.Error("expected an entity resolver for Product")
	}
}

func TestBuild_ForwardReference(t *testing.T) {
	// Review references Product before Product is declared later in the
	// same document; the two-pass merge must resolve this regardless of
	// declaration order.
	sdl := `
		type Review {
			id: ID!
			product: Product!
		}

		type Product @key(fields: "id") {
			id: ID!
		}

		type Query {
			reviews: [Review!]!
		}
	`

	sch := buildTestSchema(t, schema.SubgraphInput{Name: "review", Host: "http://review.example.com", SDL: []byte(sdl)})

	reviewID, ok := sch.TypeByName("Review")
	if !ok {
		t.Fatal("Review type not found")
	}
	fd, ok := sch.FieldByName("Review", "product")
	if !ok {
		t.Fatal("Review.product not found")
	}
	if !fd.Output.IsComposite {
		t.Fatal("expected Review.product to resolve to a composite type")
	}
	productID, _ := sch.TypeByName("Product")
	if fd.Output.Composite != productID {
		t.Errorf("expected Review.product to reference Product (%d), got %d", productID, fd.Output.Composite)
	}
	_ = reviewID
}

func TestImplementsAndPossibleTypes(t *testing.T) {
	sdl := `
		interface Node {
			id: ID!
		}

		type Product implements Node @key(fields: "id") {
			id: ID!
			name: String!
		}

		type Query {
			node(id: ID!): Node
		}
	`

	sch := buildTestSchema(t, schema.SubgraphInput{Name: "catalog", Host: "http://catalog.example.com", SDL: []byte(sdl)})

	nodeID, ok := sch.TypeByName("Node")
	if !ok {
		t.Fatal("Node type not found")
	}
	productID, ok := sch.TypeByName("Product")
	if !ok {
		t.Fatal("Product type not found")
	}

	if !sch.Implements(productID, nodeID) {
		t.Error("expected Product to implement Node")
	}

	possible := sch.PossibleTypes(nodeID)
	var found bool
	for _, p := range possible {
		if p == productID {
			found = true
		}
	}
	if !found {
		t.Error("expected Product in Node's possible types")
	}
}

func TestBuild_MultiSubgraphMerge(t *testing.T) {
	productSDL := `
		type Product @key(fields: "id") {
			id: ID!
			name: String!
		}

		type Query {
			product(id: ID!): Product
		}
	`
	reviewSDL := `
		type Product @key(fields: "id") {
			id: ID! @external
			reviews: [Review!]!
		}

		type Review {
			id: ID!
			rating: Int!
		}
	`

	sch := buildTestSchema(t,
		schema.SubgraphInput{Name: "product", Host: "http://product.example.com", SDL: []byte(productSDL)},
		schema.SubgraphInput{Name: "review", Host: "http://review.example.com", SDL: []byte(reviewSDL)},
	)

	productID, ok := sch.TypeByName("Product")
	if !ok {
		t.Fatal("Product type not found")
	}
	product := sch.Type(productID)
	if len(product.Fields) != 3 {
		t.Errorf("expected 3 merged fields (id, name, reviews), got %d", len(product.Fields))
	}

	idField, ok := sch.FieldByName("Product", "id")
	if !ok {
		t.Fatal("Product.id not found")
	}
	reviewSG, ok := sch.SubgraphByName("review")
	if !ok {
		t.Fatal("review subgraph not found")
	}
	if !idField.IsExternalIn(reviewSG) {
		t.Error("expected Product.id to be @external in the review subgraph")
	}
}
