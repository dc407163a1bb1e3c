package shape

import (
	"github.com/n9te9/federation-gateway/federation/operation"
	"github.com/n9te9/federation-gateway/federation/partition"
	"github.com/n9te9/federation-gateway/federation/schema"
)

// ShapeKind distinguishes a monomorphic selection set from one that must be
// narrowed against the runtime __typename.
type ShapeKind int

const (
	ShapeConcrete ShapeKind = iota
	ShapeConditional
)

// CollectedField is one field a subgraph response is expected to carry,
// addressed by the key the deserializer must look for.
type CollectedField struct {
	ExpectedKey  string
	DefinitionID schema.FieldId
	QueryFieldId operation.QueryFieldId

	IsTypename bool
	Output     schema.TypeRef

	// Child is the compiled shape of this field's own selection set, nil
	// for leaf (scalar/enum) fields.
	Child *Shape
}

// Shape describes how to deserialize one selection set's worth of subgraph
// response JSON into the response graph.
type Shape struct {
	Kind ShapeKind

	// Concrete: expected-key-sorted field list.
	Fields []CollectedField

	// Conditional: one field list per possible concrete object type,
	// selected at deserialize time by the observed __typename.
	Branches map[schema.TypeId][]CollectedField
}

// RuleKind enumerates the modifier-rule taxonomy a field's directives can
// generate. Not every kind is populated by Compile — see DESIGN.md.
type RuleKind int

const (
	RuleAuthenticated RuleKind = iota
	RuleRequiresScopes
	RuleAuthorizedField
	RuleAuthorizedFieldWithArguments
	RuleAuthorizedDefinition
	RuleAuthorizedEdgeChild
	RuleAuthorizedParentEdge
	RuleExecutable
)

// ModifierRule identifies one evaluable authorization rule. Two occurrences
// of the same field (or two fields sharing the same directive) produce
// structurally equal rules, which Compile merges into a single entry.
type ModifierRule struct {
	Kind RuleKind

	DefinitionID schema.FieldId

	// DirectiveId distinguishes multiple @authorized occurrences on the
	// same field (schema.AuthorizedDirective.DirectiveId).
	DirectiveId int

	// ArgumentIds names, by index into FieldDefinition.Arguments, which
	// arguments an AuthorizedFieldWithArguments rule must forward to the
	// authorization hook.
	ArgumentIds []int

	// Scopes backs RuleRequiresScopes: the OR-of-ANDs scope requirement.
	Scopes [][]string
}

// QueryModifier is a rule evaluable before dispatch, from request context
// alone (no subgraph data required).
type QueryModifier struct {
	Rule   ModifierRule
	Fields []operation.QueryFieldId
}

// ResponseModifier is a rule that needs the resolved field value to
// evaluate. Compile records these; the executor does not evaluate them.
type ResponseModifier struct {
	Rule   ModifierRule
	Fields []operation.QueryFieldId
}

// PartitionShape is the compiled output shape for one partition's own
// selection set (the fields it directly collects; nested same-subgraph
// selection sets are reached through Shape.Fields[i].Child).
type PartitionShape struct {
	PartitionId partition.PartitionId
	Root        *Shape
}

// Set is the full C7 output for one bound operation's plan.
type Set struct {
	Partitions []*PartitionShape

	QueryModifiers    []QueryModifier
	ResponseModifiers []ResponseModifier
}

// Shape returns the compiled shape for partition id, or nil if absent.
func (s *Set) Shape(id partition.PartitionId) *Shape {
	for _, ps := range s.Partitions {
		if ps.PartitionId == id {
			return ps.Root
		}
	}
	return nil
}
