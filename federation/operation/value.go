package operation

// InputValueKind tags the sum type over coerced argument/variable-default
// values: scalars, enums, lists, objects, and variable references.
type InputValueKind int

const (
	ValueNull InputValueKind = iota
	ValueString
	ValueInt
	ValueFloat
	ValueBoolean
	ValueEnum
	ValueList
	ValueObject
	ValueVariable
)

// ObjectFieldValue is one (name, value) pair of an ValueObject InputValue.
type ObjectFieldValue struct {
	Name  string
	Value InputValue
}

// InputValue is a coerced argument or variable-default value.
type InputValue struct {
	Kind InputValueKind

	StringVal  string
	IntVal     int64
	FloatVal   float64
	BooleanVal bool
	EnumVal    string
	ListVal    []InputValue
	ObjectVal  []ObjectFieldValue

	// VariableName is set when Kind == ValueVariable: the argument forwards
	// a variable reference rather than a literal.
	VariableName string
}

// BoundArgument is a field argument after binding: its schema-declared name
// paired with its coerced value.
type BoundArgument struct {
	Name  string
	Value InputValue
}
