package operation

import (
	"fmt"

	"github.com/n9te9/federation-gateway/federation/schema"
	"github.com/n9te9/graphql-parser/ast"
)

// Limits caps the binder enforces against untrusted client operations.
type Limits struct {
	MaxDepth          int
	MaxAliasesPerName int
	MaxRootFields     int
	MaxFields         int
}

// DefaultLimits mirrors conservative defaults seen in production federation
// gateways; operators size these per deployment via gateway configuration.
var DefaultLimits = Limits{
	MaxDepth:          16,
	MaxAliasesPerName: 64,
	MaxRootFields:     64,
	MaxFields:         2000,
}

type binder struct {
	schema    *schema.Schema
	fragments map[string]*ast.FragmentDefinition
	rawVars   map[string]any
	limits    Limits

	doc          *Document
	nextLocation int
	aliasCount   map[string]int
	varByName    map[string]VariableId
}

// Bind validates an already-parsed client operation document against sch,
// producing a Document ready for solution-space construction. rawVars is
// the request's JSON "variables" object, exactly as gateway.graphQLRequest
// already threads through to the planner.
func Bind(sch *schema.Schema, doc *ast.Document, rawVars map[string]any, limits Limits) (*Document, error) {
	op := getOperation(doc)
	if op == nil {
		return nil, newBindError(NoOperation, nil, "no operation found in request document")
	}
	if len(op.SelectionSet) == 0 {
		return nil, newBindError(NoOperation, nil, "operation has an empty selection set")
	}

	rootType, opType, err := rootTypeFor(sch, op)
	if err != nil {
		return nil, err
	}

	b := &binder{
		schema:    sch,
		fragments: collectFragments(doc),
		rawVars:   rawVars,
		limits:    limits,
		doc: &Document{
			OperationType:  opType,
			RootType:       rootType,
			variableByName: make(map[string]VariableId),
		},
		aliasCount: make(map[string]int),
		varByName:  make(map[string]VariableId),
	}
	b.doc.variableByName = b.varByName

	rootSS, err := b.bindSelectionSet(op.SelectionSet, rootType, nil, 0, map[string]bool{})
	if err != nil {
		return nil, err
	}
	b.doc.RootSelectionSet = rootSS

	if opType == "query" || opType == "mutation" {
		root := b.doc.selectionSets[rootSS]
		if len(root.Fields) > b.limits.MaxRootFields {
			return nil, newBindError(QueryContainsTooManyRootFields, nil, "operation selects %d root fields, limit is %d", len(root.Fields), b.limits.MaxRootFields)
		}
	}

	for name := range b.rawVars {
		if _, ok := b.varByName[name]; !ok {
			return nil, newBindError(UnusedVariable, nil, "variable $%s is provided but never referenced", name)
		}
	}

	return b.doc, nil
}

func getOperation(doc *ast.Document) *ast.OperationDefinition {
	for _, def := range doc.Definitions {
		if op, ok := def.(*ast.OperationDefinition); ok {
			return op
		}
	}
	return nil
}

func collectFragments(doc *ast.Document) map[string]*ast.FragmentDefinition {
	out := make(map[string]*ast.FragmentDefinition)
	for _, def := range doc.Definitions {
		if fd, ok := def.(*ast.FragmentDefinition); ok {
			out[fd.Name.String()] = fd
		}
	}
	return out
}

func rootTypeFor(sch *schema.Schema, op *ast.OperationDefinition) (schema.TypeId, string, error) {
	switch op.Operation {
	case ast.Query:
		return sch.RootQuery, "query", nil
	case ast.Mutation:
		if !sch.HasRootMutation {
			return 0, "", newBindError(UnknownOperationType, nil, "schema has no Mutation root")
		}
		return sch.RootMutation, "mutation", nil
	case ast.Subscription:
		if !sch.HasRootSub {
			return 0, "", newBindError(UnknownOperationType, nil, "schema has no Subscription root")
		}
		return sch.RootSubscription, "subscription", nil
	default:
		return 0, "", newBindError(UnknownOperationType, nil, "unknown operation type %v", op.Operation)
	}
}

// bindSelectionSet binds selections (fields, inline fragments, fragment
// spreads) against parentType, inlining fragments. A fragment spread whose
// name already appeared in the same selection list is expanded only once;
// fragStack holds the current expansion stack and catches FragmentCycle.
func (b *binder) bindSelectionSet(selections []ast.Selection, parentType schema.TypeId, path []string, depth int, fragStack map[string]bool) (SelectionSetId, error) {
	if depth > b.limits.MaxDepth {
		return 0, newBindError(QueryTooDeep, path, "selection depth exceeds limit %d", b.limits.MaxDepth)
	}

	ss := &QuerySelectionSet{
		ID:         SelectionSetId(len(b.doc.selectionSets)),
		OutputType: parentType,
	}
	if len(path) > 0 {
		ss.HasParentField = true
	}
	b.doc.selectionSets = append(b.doc.selectionSets, ss)
	ssID := ss.ID

	fieldIDs, needsTypename, err := b.bindSelections(selections, parentType, path, depth, fragStack)
	if err != nil {
		return 0, err
	}
	ss.Fields = fieldIDs
	ss.NeedsTypename = needsTypename

	if len(b.doc.fields) > b.limits.MaxFields {
		return 0, newBindError(TooManyFields, path, "operation contains %d fields, limit is %d", len(b.doc.fields), b.limits.MaxFields)
	}

	return ssID, nil
}

func (b *binder) bindSelections(selections []ast.Selection, parentType schema.TypeId, path []string, depth int, fragStack map[string]bool) ([]QueryFieldId, bool, error) {
	var out []QueryFieldId
	needsTypename := false
	seenSpreads := make(map[string]bool)

	for _, sel := range selections {
		switch s := sel.(type) {
		case *ast.Field:
			fid, err := b.bindField(s, parentType, path, depth, fragStack)
			if err != nil {
				return nil, false, err
			}
			if b.doc.fields[fid].IsTypename {
				needsTypename = true
			}
			out = append(out, fid)

		case *ast.InlineFragment:
			condType := parentType
			if s.TypeCondition != nil {
				name := s.TypeCondition.Name.String()
				id, ok := b.schema.TypeByName(name)
				if !ok {
					return nil, false, newBindError(UnknownType, path, "unknown type condition %q", name)
				}
				if !typesOverlap(b.schema, parentType, id) {
					return nil, false, newBindError(DisjointTypeCondition, path, "type condition %q cannot apply here", name)
				}
				condType = id
			}
			ids, nt, err := b.bindSelections(s.SelectionSet, condType, path, depth+1, fragStack)
			if err != nil {
				return nil, false, err
			}
			if condType != parentType {
				b.applyTypeCondition(ids, condType)
			}
			out = append(out, ids...)
			needsTypename = needsTypename || nt

		case *ast.FragmentSpread:
			name := s.Name.String()
			if fragStack[name] {
				return nil, false, newBindError(FragmentCycle, path, "fragment %q is used within itself", name)
			}
			if seenSpreads[name] {
				continue
			}
			seenSpreads[name] = true
			fragDef, ok := b.fragments[name]
			if !ok {
				return nil, false, newBindError(UnknownType, path, "unknown fragment %q", name)
			}
			condType := parentType
			if fragDef.TypeCondition != nil {
				tname := fragDef.TypeCondition.Name.String()
				id, ok := b.schema.TypeByName(tname)
				if !ok {
					return nil, false, newBindError(UnknownType, path, "unknown type condition %q", tname)
				}
				if !typesOverlap(b.schema, parentType, id) {
					return nil, false, newBindError(DisjointTypeCondition, path, "fragment %q's type condition %q cannot apply here", name, tname)
				}
				condType = id
			}
			fragStack[name] = true
			ids, nt, err := b.bindSelections(fragDef.SelectionSet, condType, path, depth+1, fragStack)
			delete(fragStack, name)
			if err != nil {
				return nil, false, err
			}
			if condType != parentType {
				b.applyTypeCondition(ids, condType)
			}
			out = append(out, ids...)
			needsTypename = needsTypename || nt
		}
	}

	return out, needsTypename, nil
}

func (b *binder) applyTypeCondition(ids []QueryFieldId, condType schema.TypeId) {
	for _, id := range ids {
		f := b.doc.fields[id]
		f.TypeConditions = append(f.TypeConditions, condType)
	}
}

// typesOverlap reports whether a selection under parentType may legally
// carry a type condition naming condType: identical types always overlap,
// and object/interface/union relationships overlap when their possible-type
// sets intersect.
func typesOverlap(sch *schema.Schema, parentType, condType schema.TypeId) bool {
	if parentType == condType {
		return true
	}
	parentPossible := sch.PossibleTypes(parentType)
	condPossible := sch.PossibleTypes(condType)
	for _, p := range parentPossible {
		for _, c := range condPossible {
			if p == c {
				return true
			}
		}
	}
	return false
}

func (b *binder) bindField(f *ast.Field, parentType schema.TypeId, path []string, depth int, fragStack map[string]bool) (QueryFieldId, error) {
	fieldName := f.Name.String()
	responseKey := fieldName
	if f.Alias != nil && f.Alias.String() != "" {
		responseKey = f.Alias.String()
	}

	fieldPath := append(append([]string{}, path...), responseKey)

	qf := &QueryField{
		ID:              QueryFieldId(len(b.doc.fields)),
		ResponseKey:     responseKey,
		Location:        b.nextLocation,
		HasSelectionSet: false,
	}
	b.nextLocation++

	if fieldName == "__typename" {
		qf.IsTypename = true
		if len(f.SelectionSet) > 0 {
			return 0, newBindError(CannotHaveSelectionSet, fieldPath, "__typename cannot have a selection set")
		}
		b.doc.fields = append(b.doc.fields, qf)
		b.countAlias(fieldName)
		if err := b.checkAliasLimit(fieldName, fieldPath); err != nil {
			return 0, err
		}
		return qf.ID, nil
	}

	fd, ok := b.schema.FieldByName(typeName(b.schema, parentType), fieldName)
	if !ok {
		return 0, newBindError(UnknownField, fieldPath, "unknown field %q on type %q", fieldName, typeName(b.schema, parentType))
	}
	if fd.Directives.Inaccessible {
		return 0, newBindError(InaccessibleField, fieldPath, "field %q on type %q is marked @inaccessible", fieldName, typeName(b.schema, parentType))
	}
	qf.DefinitionID = fd.ID

	if fd.Output.IsComposite {
		if len(f.SelectionSet) == 0 {
			return 0, newBindError(LeafMustBeScalarOrEnum, fieldPath, "field %q must have a selection of subfields", fieldName)
		}
	} else if len(f.SelectionSet) > 0 {
		return 0, newBindError(CannotHaveSelectionSet, fieldPath, "field %q is a leaf and cannot have a selection set", fieldName)
	}

	args, err := b.bindArguments(fd, f.Arguments, fieldPath)
	if err != nil {
		return 0, err
	}
	qf.Arguments = args

	for _, d := range f.Directives {
		switch d.Name {
		case "skip":
			v, err := b.directiveIfValue(d, fieldPath)
			if err != nil {
				return 0, err
			}
			qf.Skip = v
		case "include":
			v, err := b.directiveIfValue(d, fieldPath)
			if err != nil {
				return 0, err
			}
			qf.Include = v
		}
	}

	b.doc.fields = append(b.doc.fields, qf)
	b.countAlias(fieldName)
	if err := b.checkAliasLimit(fieldName, fieldPath); err != nil {
		return 0, err
	}

	if len(f.SelectionSet) > 0 {
		childType := fd.Output.Composite
		ssID, err := b.bindSelectionSet(f.SelectionSet, childType, fieldPath, depth+1, fragStack)
		if err != nil {
			return 0, err
		}
		qf.HasSelectionSet = true
		qf.SelectionSet = ssID
		ss := b.doc.selectionSets[ssID]
		ss.HasParentField = true
		ss.ParentField = qf.ID
	}

	return qf.ID, nil
}

func (b *binder) countAlias(name string) { b.aliasCount[name]++ }

func (b *binder) checkAliasLimit(name string, path []string) error {
	if b.aliasCount[name] > b.limits.MaxAliasesPerName {
		return newBindError(QueryContainsTooManyAliases, path, "field %q is aliased more than %d times", name, b.limits.MaxAliasesPerName)
	}
	return nil
}

func typeName(sch *schema.Schema, id schema.TypeId) string {
	return sch.Type(id).Name
}

func (b *binder) directiveIfValue(d *ast.Directive, path []string) (*InputValue, error) {
	for _, arg := range d.Arguments {
		if arg.Name.String() == "if" {
			v, err := b.bindValue(VariableTypeRef{Name: "Boolean"}, arg.Value, path)
			if err != nil {
				return nil, err
			}
			return &v, nil
		}
	}
	return nil, nil
}

func (b *binder) bindArguments(fd *schema.FieldDefinition, args []*ast.Argument, path []string) ([]BoundArgument, error) {
	provided := make(map[string]bool, len(args))
	out := make([]BoundArgument, 0, len(args))

	for _, arg := range args {
		name := arg.Name.String()
		provided[name] = true

		var argType schema.TypeRef
		found := false
		for _, ad := range fd.Arguments {
			if ad.Name == name {
				argType = ad.Type
				found = true
				break
			}
		}
		if !found {
			continue // unknown argument names are tolerated; schema drift is a composition-time concern
		}

		vt := b.variableTypeRefFromSchema(argType)
		v, err := b.bindValue(vt, arg.Value, path)
		if err != nil {
			return nil, err
		}
		out = append(out, BoundArgument{Name: name, Value: v})
	}

	for _, ad := range fd.Arguments {
		if provided[ad.Name] {
			continue
		}
		if ad.Type.IsNonNull() {
			return nil, newBindError(MissingArgument, path, "argument %q is required", ad.Name)
		}
	}

	return out, nil
}

func (b *binder) variableTypeRefFromSchema(t schema.TypeRef) VariableTypeRef {
	if t.IsComposite {
		// input coercion never targets a composite output type; input
		// objects are interned as leaf names like any other named type.
		return VariableTypeRef{Wrapping: t.Wrapping}
	}
	return VariableTypeRef{Wrapping: t.Wrapping, Name: b.schema.Strings.Lookup(t.LeafName)}
}

// bindValue coerces one argument-position value, recording and
// type-checking variable references as they are first seen.
func (b *binder) bindValue(declared VariableTypeRef, val ast.Value, path []string) (InputValue, error) {
	switch v := val.(type) {
	case *ast.Variable:
		return b.bindVariableRef(v.Name, declared, path)
	case *ast.StringValue:
		return InputValue{Kind: ValueString, StringVal: v.Value}, nil
	case *ast.IntValue:
		return InputValue{Kind: ValueInt, IntVal: int64(v.Value)}, nil
	case *ast.FloatValue:
		return InputValue{Kind: ValueFloat, FloatVal: float64(v.Value)}, nil
	case *ast.BooleanValue:
		return InputValue{Kind: ValueBoolean, BooleanVal: v.Value}, nil
	case *ast.EnumValue:
		return InputValue{Kind: ValueEnum, EnumVal: v.Value}, nil
	case *ast.ListValue:
		items := make([]InputValue, 0, len(v.Values))
		for _, item := range v.Values {
			iv, err := b.bindValue(declared, item, path)
			if err != nil {
				return InputValue{}, err
			}
			items = append(items, iv)
		}
		return InputValue{Kind: ValueList, ListVal: items}, nil
	case *ast.ObjectValue:
		fields := make([]ObjectFieldValue, 0, len(v.Fields))
		for _, f := range v.Fields {
			fv, err := b.bindValue(VariableTypeRef{}, f.Value, path)
			if err != nil {
				return InputValue{}, err
			}
			fields = append(fields, ObjectFieldValue{Name: f.Name.String(), Value: fv})
		}
		return InputValue{Kind: ValueObject, ObjectVal: fields}, nil
	default:
		return InputValue{Kind: ValueNull}, nil
	}
}

func (b *binder) bindVariableRef(name string, declared VariableTypeRef, path []string) (InputValue, error) {
	id, ok := b.varByName[name]
	if !ok {
		raw, present := b.rawVars[name]
		v := &Variable{ID: VariableId(len(b.doc.Variables)), Name: name, Type: declared}
		if present {
			coerced, err := coerceRaw(raw, declared)
			if err != nil {
				return InputValue{}, newBindError(InvalidVariableType, path, "variable $%s: %v", name, err)
			}
			v.Value = coerced
		} else if declared.IsNonNull() {
			return InputValue{}, newBindError(InvalidVariableType, path, "variable $%s of required type is not provided", name)
		}
		b.doc.Variables = append(b.doc.Variables, v)
		b.varByName[name] = v.ID
		id = v.ID
	} else {
		existing := b.doc.Variables[id]
		if existing.Type.Name != "" && declared.Name != "" && existing.Type.Name != declared.Name {
			return InputValue{}, newBindError(DuplicateVariable, path, "variable $%s used with incompatible types %q and %q", name, existing.Type.Name, declared.Name)
		}
	}
	b.doc.Variables[id].HasUsed = true
	return InputValue{Kind: ValueVariable, VariableName: name}, nil
}

// coerceRaw converts a decoded-JSON value into an InputValue following the
// declared GraphQL input type's shape closely enough to catch obvious type
// mismatches (string vs number vs bool) without re-implementing full JSON
// Schema coercion.
func coerceRaw(raw any, declared VariableTypeRef) (InputValue, error) {
	if raw == nil {
		return InputValue{Kind: ValueNull}, nil
	}
	switch v := raw.(type) {
	case string:
		if declared.Name == "Int" || declared.Name == "Float" {
			return InputValue{}, fmt.Errorf("expected %s, got string", declared.Name)
		}
		return InputValue{Kind: ValueString, StringVal: v}, nil
	case bool:
		return InputValue{Kind: ValueBoolean, BooleanVal: v}, nil
	case float64:
		if declared.Name == "Int" {
			if v != float64(int64(v)) {
				return InputValue{}, fmt.Errorf("expected Int, got non-integer number")
			}
			return InputValue{Kind: ValueInt, IntVal: int64(v)}, nil
		}
		return InputValue{Kind: ValueFloat, FloatVal: v}, nil
	case []any:
		items := make([]InputValue, 0, len(v))
		for _, e := range v {
			iv, err := coerceRaw(e, VariableTypeRef{Name: declared.Name})
			if err != nil {
				return InputValue{}, err
			}
			items = append(items, iv)
		}
		return InputValue{Kind: ValueList, ListVal: items}, nil
	case map[string]any:
		fields := make([]ObjectFieldValue, 0, len(v))
		for k, e := range v {
			iv, err := coerceRaw(e, VariableTypeRef{})
			if err != nil {
				return InputValue{}, err
			}
			fields = append(fields, ObjectFieldValue{Name: k, Value: iv})
		}
		return InputValue{Kind: ValueObject, ObjectVal: fields}, nil
	default:
		return InputValue{}, fmt.Errorf("unsupported variable value type %T", raw)
	}
}
