package schema

// KeyDirective records one `@key(fields: "...", resolvable: ...)` occurrence.
type KeyDirective struct {
	FieldSet   FieldSet
	Resolvable bool
}

// OverrideDirective records `@override(from: "...")`.
type OverrideDirective struct {
	From string
}

// RequiresScopesDirective records `@requires_scopes(scopes: [["a","b"],["c"]])`.
// Outer list is OR'd, inner lists are AND'd, matching the federation spec.
type RequiresScopesDirective struct {
	Scopes [][]string
}

// AuthorizedDirective records one `@authorized(...)` occurrence. Arguments
// holds the field-argument names listed in the directive's `arguments:`
// string (the planner never evaluates them, it only needs to know a
// modifier must be generated for the field).
type AuthorizedDirective struct {
	DirectiveId int
	Fields      *FieldSet // optional `fields:` argument
	Arguments   []string  // arguments referenced, for AuthorizedFieldWithArguments
}

// CostDirective records `@cost(weight: N)`.
type CostDirective struct {
	Weight int
}

// ListSizeDirective records `@listSize(...)`.
type ListSizeDirective struct {
	AssumedSize      *int
	SlicingArguments []string
	SizedFields      []string
}

// Extension is an opaque, unrecognized directive preserved verbatim so
// composition metadata is never silently dropped: Arguments maps each
// argument name to its value's literal source text.
type Extension struct {
	Name      string
	Arguments map[string]string
}

// FieldDirectives groups the directive metadata a FieldDefinition carries,
// pre-resolved to typed records at build time.
type FieldDirectives struct {
	External        bool
	Shareable       bool
	Authenticated   bool
	RequiresScopes  *RequiresScopesDirective
	Authorized      []AuthorizedDirective
	Cost            *CostDirective
	ListSize        *ListSizeDirective
	Deprecated      *string
	Inaccessible    bool
	Extensions      []Extension
}
