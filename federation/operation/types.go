package operation

import "github.com/n9te9/federation-gateway/federation/schema"

// QueryField is a client-visible (or synthesized) occurrence of a schema
// field within one bound operation.
type QueryField struct {
	ID QueryFieldId

	// TypeConditions restricts which concrete object types this occurrence
	// applies to (via an enclosing inline fragment or fragment spread type
	// condition); empty means "applies to the parent selection set's type
	// unconditionally".
	TypeConditions []schema.TypeId

	// ResponseKey is the alias (or field name if unaliased) visible to the
	// client. IsSynthesized fields have no response key: they exist only to
	// satisfy a @requires/@key dependency the client never asked for.
	ResponseKey    string
	IsSynthesized  bool

	// IsTypename marks a __typename occurrence; DefinitionID is meaningless
	// for it since there is no backing schema.FieldDefinition.
	IsTypename   bool
	DefinitionID schema.FieldId

	Arguments []BoundArgument

	Skip    *InputValue // @skip(if: ...), nil if absent
	Include *InputValue // @include(if: ...), nil if absent

	// Location is a monotonic pre-order index assigned at bind time so
	// downstream grouping can reconstruct client-visible field ordering.
	Location int

	HasSelectionSet bool
	SelectionSet    SelectionSetId
}

// QuerySelectionSet is a set of sibling QueryFields selected against one
// output composite type.
type QuerySelectionSet struct {
	ID SelectionSetId

	HasParentField bool
	ParentField    QueryFieldId

	OutputType schema.TypeId

	Fields []QueryFieldId

	// NeedsTypename records whether a __typename discriminator must be
	// requested under this selection set (interfaces/unions whose concrete
	// type the client did not already request via __typename itself).
	NeedsTypename bool
}

// VariableTypeRef is a declared-or-inferred type for an operation variable,
// expressed the same wrapping-sequence way as schema.TypeRef but over a
// named input type (scalar, enum or input object) rather than a composite
// output type.
type VariableTypeRef struct {
	Name     string
	Wrapping []schema.WrapKind
}

// IsNonNull reports whether the variable's declared type is non-null at the
// outermost position.
func (t VariableTypeRef) IsNonNull() bool {
	return len(t.Wrapping) > 0 && t.Wrapping[0] == schema.WrapNonNull
}

// Variable is one operation variable, with its type inferred from the first
// argument position it is used in: a variable's type is derived from the
// schema argument type at its first use site rather than from parsed
// variable-definition syntax.
type Variable struct {
	ID      VariableId
	Name    string
	Type    VariableTypeRef
	Value   InputValue
	HasUsed bool
}

// Document is a bound operation: every field and selection set is
// addressable by handle, with schema references resolved.
type Document struct {
	OperationType string // "query", "mutation" or "subscription"
	OperationName string

	RootType         schema.TypeId
	RootSelectionSet SelectionSetId

	fields        []*QueryField
	selectionSets []*QuerySelectionSet

	Variables      []*Variable
	variableByName map[string]VariableId
}

// Field returns the QueryField for id.
func (d *Document) Field(id QueryFieldId) *QueryField { return d.fields[id] }

// SelectionSet returns the QuerySelectionSet for id.
func (d *Document) SelectionSet(id SelectionSetId) *QuerySelectionSet { return d.selectionSets[id] }

// VariableByName resolves a variable by name.
func (d *Document) VariableByName(name string) (*Variable, bool) {
	id, ok := d.variableByName[name]
	if !ok {
		return nil, false
	}
	return d.Variables[id], true
}

// FieldCount returns the number of bound fields (including synthesized
// ones), used by callers that want to preallocate per-field structures.
func (d *Document) FieldCount() int { return len(d.fields) }
