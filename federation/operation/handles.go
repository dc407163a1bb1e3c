package operation

// QueryFieldId identifies a bound field (a QueryField) within one bound
// operation. Distinct from schema.FieldId: a QueryField is a client-visible
// (or synthesized) occurrence of a schema field, not the schema field
// itself.
type QueryFieldId int32

// SelectionSetId identifies a QuerySelectionSet within one bound operation.
type SelectionSetId int32

// VariableId identifies a declared operation variable.
type VariableId int32
