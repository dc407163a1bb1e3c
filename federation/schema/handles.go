package schema

// TypeId identifies a CompositeType (object, interface or union) in the
// schema arena. Distinct from FieldId and SubgraphId so the type system
// prevents cross-table confusion.
type TypeId int32

// FieldId identifies a FieldDefinition in the schema arena.
type FieldId int32

// ResolverId identifies a Resolver in the schema arena.
type ResolverId int32

// SubgraphId identifies a backend subgraph. IntrospectionSubgraph is a
// sentinel used for fields served by the gateway itself (__typename,
// __schema, __type at the root).
type SubgraphId int16

// IntrospectionSubgraph is the sentinel SubgraphId for the introspection
// resolver: __typename/__schema/__type at the root are served by the
// gateway itself, not dispatched to a backend subgraph.
const IntrospectionSubgraph SubgraphId = -1

// CompositeKind distinguishes the three composite type flavors a field can
// return.
type CompositeKind int

const (
	KindObject CompositeKind = iota
	KindInterface
	KindUnion
)

func (k CompositeKind) String() string {
	switch k {
	case KindObject:
		return "OBJECT"
	case KindInterface:
		return "INTERFACE"
	case KindUnion:
		return "UNION"
	default:
		return "UNKNOWN"
	}
}

// WrapKind describes the nullability/list wrapping of a type reference.
type WrapKind int

const (
	WrapNone WrapKind = iota
	WrapNonNull
	WrapList
)

// TypeRef is a (possibly wrapped) reference to either a composite type or a
// leaf (scalar/enum) named by its interned name.
type TypeRef struct {
	// Composite is set when the named type is an object/interface/union.
	Composite TypeId
	IsComposite bool
	// LeafName is the interned scalar/enum name when IsComposite is false.
	LeafName StringId
	// Wrapping describes outer-to-inner list/non-null wrapping, e.g.
	// "[String!]!" -> [WrapNonNull, WrapList, WrapNonNull].
	Wrapping []WrapKind
}

// IsList reports whether the outermost non-NonNull wrapper is a list.
func (t TypeRef) IsList() bool {
	for _, w := range t.Wrapping {
		if w == WrapList {
			return true
		}
		if w != WrapNonNull {
			break
		}
	}
	return false
}

// IsNonNull reports whether the type reference is non-null at the
// outermost position.
func (t TypeRef) IsNonNull() bool {
	return len(t.Wrapping) > 0 && t.Wrapping[0] == WrapNonNull
}
