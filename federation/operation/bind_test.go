package operation_test

import (
	"testing"

	"github.com/n9te9/federation-gateway/federation/apierror"
	"github.com/n9te9/federation-gateway/federation/operation"
	"github.com/n9te9/federation-gateway/federation/schema"
	"github.com/n9te9/graphql-parser/lexer"
	"github.com/n9te9/graphql-parser/parser"
)

func buildSchema(t *testing.T, sdl string) *schema.Schema {
	t.Helper()
	sch, err := schema.Build([]schema.SubgraphInput{
		{Name: "catalog", Host: "http://catalog.example.com", SDL: []byte(sdl)},
	})
	if err != nil {
		t.Fatalf("schema.Build failed: %v", err)
	}
	return sch
}

func parseOp(t *testing.T, query string) *parser.Parser {
	t.Helper()
	l := lexer.New(query)
	p := parser.New(l)
	return p
}

const catalogSDL = `
	type Product @key(fields: "id") {
		id: ID!
		name: String!
		price: Float!
		reviews(limit: Int): [Review!]!
	}

	type Review {
		id: ID!
		rating: Int!
	}

	type Query {
		product(id: ID!): Product
		products: [Product!]!
	}
`

func TestBind_SimpleQuery(t *testing.T) {
	sch := buildSchema(t, catalogSDL)

	p := parseOp(t, `
		query {
			product(id: "1") {
				id
				name
				price
			}
		}
	`)
	doc := p.ParseDocument()
	if len(p.Errors()) > 0 {
		t.Fatalf("parse error: %v", p.Errors())
	}

	bound, err := operation.Bind(sch, doc, nil, operation.DefaultLimits)
	if err != nil {
		t.Fatalf("Bind failed: %v", err)
	}

	if bound.OperationType != "query" {
		t.Errorf("expected operation type 'query', got %q", bound.OperationType)
	}

	root := bound.SelectionSet(bound.RootSelectionSet)
	if len(root.Fields) != 1 {
		t.Fatalf("expected 1 root field, got %d", len(root.Fields))
	}

	productField := bound.Field(root.Fields[0])
	if productField.ResponseKey != "product" {
		t.Errorf("expected response key 'product', got %q", productField.ResponseKey)
	}
	if len(productField.Arguments) != 1 || productField.Arguments[0].Name != "id" {
		t.Errorf("expected single 'id' argument, got %+v", productField.Arguments)
	}
	if productField.Arguments[0].Value.Kind != operation.ValueString || productField.Arguments[0].Value.StringVal != "1" {
		t.Errorf("expected id argument value 'id:1', got %+v", productField.Arguments[0].Value)
	}

	childSS := bound.SelectionSet(productField.SelectionSet)
	if len(childSS.Fields) != 3 {
		t.Errorf("expected 3 child fields, got %d", len(childSS.Fields))
	}
}

func TestBind_VariableInference(t *testing.T) {
	sch := buildSchema(t, catalogSDL)

	p := parseOp(t, `
		query GetProduct($pid: ID!) {
			product(id: $pid) {
				id
			}
		}
	`)
	doc := p.ParseDocument()
	if len(p.Errors()) > 0 {
		t.Fatalf("parse error: %v", p.Errors())
	}

	bound, err := operation.Bind(sch, doc, map[string]any{"pid": "42"}, operation.DefaultLimits)
	if err != nil {
		t.Fatalf("Bind failed: %v", err)
	}

	v, ok := bound.VariableByName("pid")
	if !ok {
		t.Fatal("expected variable 'pid' to be recorded")
	}
	if v.Type.Name != "ID" || !v.Type.IsNonNull() {
		t.Errorf("expected $pid inferred as ID!, got %+v", v.Type)
	}
	if !v.HasUsed {
		t.Error("expected $pid to be marked used")
	}
	if v.Value.Kind != operation.ValueString || v.Value.StringVal != "42" {
		t.Errorf("expected coerced value '42', got %+v", v.Value)
	}
}

func TestBind_UnusedVariableRejected(t *testing.T) {
	sch := buildSchema(t, catalogSDL)

	p := parseOp(t, `
		query {
			product(id: "1") {
				id
			}
		}
	`)
	doc := p.ParseDocument()
	if len(p.Errors()) > 0 {
		t.Fatalf("parse error: %v", p.Errors())
	}

	_, err := operation.Bind(sch, doc, map[string]any{"unused": "x"}, operation.DefaultLimits)
	if err == nil {
		t.Fatal("expected an UnusedVariable error")
	}
	be, ok := err.(*operation.BindError)
	if !ok {
		t.Fatalf("expected *operation.BindError, got %T", err)
	}
	if be.Code != operation.UnusedVariable {
		t.Errorf("expected UnusedVariable, got %v", be.Code)
	}
}

func TestBind_UnknownField(t *testing.T) {
	sch := buildSchema(t, catalogSDL)

	p := parseOp(t, `
		query {
			product(id: "1") {
				nonexistentField
			}
		}
	`)
	doc := p.ParseDocument()
	if len(p.Errors()) > 0 {
		t.Fatalf("parse error: %v", p.Errors())
	}

	_, err := operation.Bind(sch, doc, nil, operation.DefaultLimits)
	be, ok := err.(*operation.BindError)
	if !ok {
		t.Fatalf("expected *operation.BindError, got %T (%v)", err, err)
	}
	if be.Code != operation.UnknownField {
		t.Errorf("expected UnknownField, got %v", be.Code)
	}
}

func TestBind_InaccessibleFieldRejected(t *testing.T) {
	sch := buildSchema(t, `
		type Product @key(fields: "id") {
			id: ID!
			name: String!
			internalCost: Float! @inaccessible
		}

		type Query {
			product(id: ID!): Product
		}
	`)

	p := parseOp(t, `
		query {
			product(id: "1") {
				internalCost
			}
		}
	`)
	doc := p.ParseDocument()
	if len(p.Errors()) > 0 {
		t.Fatalf("parse error: %v", p.Errors())
	}

	_, err := operation.Bind(sch, doc, nil, operation.DefaultLimits)
	be, ok := err.(*operation.BindError)
	if !ok {
		t.Fatalf("expected *operation.BindError, got %T (%v)", err, err)
	}
	if be.Code != operation.InaccessibleField {
		t.Errorf("expected InaccessibleField, got %v", be.Code)
	}
}

func TestBind_LeafMustNotHaveSelectionSet(t *testing.T) {
	sch := buildSchema(t, catalogSDL)

	p := parseOp(t, `
		query {
			product(id: "1") {
				id {
					nested
				}
			}
		}
	`)
	doc := p.ParseDocument()
	if len(p.Errors()) > 0 {
		t.Fatalf("parse error: %v", p.Errors())
	}

	_, err := operation.Bind(sch, doc, nil, operation.DefaultLimits)
	be, ok := err.(*operation.BindError)
	if !ok {
		t.Fatalf("expected *operation.BindError, got %T (%v)", err, err)
	}
	if be.Code != operation.CannotHaveSelectionSet {
		t.Errorf("expected CannotHaveSelectionSet, got %v", be.Code)
	}
}

func TestBind_FragmentSpreadInlines(t *testing.T) {
	sch := buildSchema(t, catalogSDL)

	p := parseOp(t, `
		query {
			product(id: "1") {
				...ProductFields
			}
		}

		fragment ProductFields on Product {
			id
			name
		}
	`)
	doc := p.ParseDocument()
	if len(p.Errors()) > 0 {
		t.Fatalf("parse error: %v", p.Errors())
	}

	bound, err := operation.Bind(sch, doc, nil, operation.DefaultLimits)
	if err != nil {
		t.Fatalf("Bind failed: %v", err)
	}

	root := bound.SelectionSet(bound.RootSelectionSet)
	productField := bound.Field(root.Fields[0])
	childSS := bound.SelectionSet(productField.SelectionSet)
	if len(childSS.Fields) != 2 {
		t.Fatalf("expected 2 inlined fields from the fragment, got %d", len(childSS.Fields))
	}
}

func TestBind_FragmentCycleRejected(t *testing.T) {
	sch := buildSchema(t, catalogSDL)

	p := parseOp(t, `
		query {
			product(id: "1") {
				...A
			}
		}

		fragment A on Product {
			...B
		}

		fragment B on Product {
			...A
		}
	`)
	doc := p.ParseDocument()
	if len(p.Errors()) > 0 {
		t.Fatalf("parse error: %v", p.Errors())
	}

	_, err := operation.Bind(sch, doc, nil, operation.DefaultLimits)
	be, ok := err.(*operation.BindError)
	if !ok {
		t.Fatalf("expected *operation.BindError, got %T (%v)", err, err)
	}
	if be.Code != operation.FragmentCycle {
		t.Errorf("expected FragmentCycle, got %v", be.Code)
	}
}

func TestBind_MissingRequiredArgument(t *testing.T) {
	sch := buildSchema(t, catalogSDL)

	p := parseOp(t, `
		query {
			product {
				id
			}
		}
	`)
	doc := p.ParseDocument()
	if len(p.Errors()) > 0 {
		t.Fatalf("parse error: %v", p.Errors())
	}

	_, err := operation.Bind(sch, doc, nil, operation.DefaultLimits)
	be, ok := err.(*operation.BindError)
	if !ok {
		t.Fatalf("expected *operation.BindError, got %T (%v)", err, err)
	}
	if be.Code != operation.MissingArgument {
		t.Errorf("expected MissingArgument, got %v", be.Code)
	}
}

func TestBind_AliasCountedTowardsLimit(t *testing.T) {
	sch := buildSchema(t, catalogSDL)

	p := parseOp(t, `
		query {
			a: products { id }
			b: products { id }
		}
	`)
	doc := p.ParseDocument()
	if len(p.Errors()) > 0 {
		t.Fatalf("parse error: %v", p.Errors())
	}

	limits := operation.DefaultLimits
	limits.MaxAliasesPerName = 1

	_, err := operation.Bind(sch, doc, nil, limits)
	be, ok := err.(*operation.BindError)
	if !ok {
		t.Fatalf("expected *operation.BindError, got %T (%v)", err, err)
	}
	if be.Code != operation.QueryContainsTooManyAliases {
		t.Errorf("expected QueryContainsTooManyAliases, got %v", be.Code)
	}
}

func TestBindError_ToAPIErrorCarriesOperationValidationCode(t *testing.T) {
	sch := buildSchema(t, catalogSDL)

	p := parseOp(t, `
		query {
			product {
				missingField
			}
		}
	`)
	doc := p.ParseDocument()
	if len(p.Errors()) > 0 {
		t.Fatalf("parse error: %v", p.Errors())
	}

	_, err := operation.Bind(sch, doc, nil, operation.DefaultLimits)
	be, ok := err.(*operation.BindError)
	if !ok {
		t.Fatalf("expected *operation.BindError, got %T (%v)", err, err)
	}

	apiErr := be.ToAPIError()
	if apiErr.Code != apierror.CodeOperationValidation {
		t.Errorf("expected CodeOperationValidation, got %v", apiErr.Code)
	}
	if apiErr.Message == "" {
		t.Errorf("expected non-empty message")
	}
}
