package schema

import (
	"fmt"
	"sort"

	"github.com/n9te9/graphql-parser/ast"
	"github.com/n9te9/graphql-parser/lexer"
	"github.com/n9te9/graphql-parser/parser"
	"github.com/n9te9/graphql-parser/token"
)

// SubgraphMeta is the process-lifetime-immutable metadata the gateway keeps
// about one backend subgraph.
type SubgraphMeta struct {
	ID   SubgraphId
	Name string
	Host string
}

// SubgraphInput is one subgraph's raw SDL plus its dispatch host, as
// consumed from composition.
type SubgraphInput struct {
	Name string
	Host string
	SDL  []byte
}

// Schema is the interned, id-addressable supergraph schema. Immutable once
// built; safe for concurrent read access for the lifetime of the process.
type Schema struct {
	Strings *Interner

	Subgraphs []SubgraphMeta

	types      []*CompositeType
	typeByName map[string]TypeId
	fields     []*FieldDefinition
	fieldByKey map[string]FieldId // "TypeName.fieldName" -> FieldId
	resolvers  []*Resolver

	RootQuery        TypeId
	RootMutation     TypeId
	HasRootMutation  bool
	RootSubscription TypeId
	HasRootSub       bool
}

// Type returns the CompositeType for id.
func (s *Schema) Type(id TypeId) *CompositeType { return s.types[id] }

// Field returns the FieldDefinition for id.
func (s *Schema) Field(id FieldId) *FieldDefinition { return s.fields[id] }

// Resolver returns the Resolver for id.
func (s *Schema) Resolver(id ResolverId) *Resolver { return s.resolvers[id] }

// TypeByName looks up a composite type by name.
func (s *Schema) TypeByName(name string) (TypeId, bool) {
	id, ok := s.typeByName[name]
	return id, ok
}

// FieldByName looks up a field definition by (typeName, fieldName).
func (s *Schema) FieldByName(typeName, fieldName string) (*FieldDefinition, bool) {
	id, ok := s.fieldByKey[typeName+"."+fieldName]
	if !ok {
		return nil, false
	}
	return s.fields[id], true
}

// SubgraphByName resolves a subgraph name to its id.
func (s *Schema) SubgraphByName(name string) (SubgraphId, bool) {
	for _, sg := range s.Subgraphs {
		if sg.Name == name {
			return sg.ID, true
		}
	}
	return 0, false
}

// FieldsOf returns the FieldIds owned by typeID, in declaration order.
func (s *Schema) FieldsOf(typeID TypeId) []FieldId {
	return s.types[typeID].Fields
}

// build state kept only while composing the schema; not part of the
// immutable Schema.
type builder struct {
	schema *Schema
	docs   []*ast.Document // one per subgraph, in subgraph order
}

// Build composes a Schema from a set of subgraph SDLs: parsing each,
// merging type definitions across subgraphs, and recording which subgraph
// owns which field so the planner knows where to route each selection.
func Build(inputs []SubgraphInput) (*Schema, error) {
	if len(inputs) == 0 {
		return nil, fmt.Errorf("schema: no subgraphs to compose")
	}

	s := &Schema{
		Strings:    NewInterner(),
		typeByName: make(map[string]TypeId),
		fieldByKey: make(map[string]FieldId),
	}

	b := &builder{schema: s}
	for i, in := range inputs {
		l := lexer.New(string(in.SDL))
		p := parser.New(l)
		doc := p.ParseDocument()
		if len(p.Errors()) > 0 {
			return nil, fmt.Errorf("schema: parse error in subgraph %q: %v", in.Name, p.Errors())
		}
		s.Subgraphs = append(s.Subgraphs, SubgraphMeta{ID: SubgraphId(i), Name: in.Name, Host: in.Host})
		b.docs = append(b.docs, doc)
	}

	b.mergeTypes()
	b.resolveRootTypes()
	b.buildResolvers()

	return s, nil
}

func (b *builder) compositeFor(name string, kind CompositeKind) *CompositeType {
	if id, ok := b.schema.typeByName[name]; ok {
		return b.schema.types[id]
	}
	ct := &CompositeType{
		ID:                  TypeId(len(b.schema.types)),
		Name:                name,
		Kind:                kind,
		isInterfaceObjectIn: make(map[SubgraphId]bool),
	}
	b.schema.types = append(b.schema.types, ct)
	b.schema.typeByName[name] = ct.ID
	return ct
}

func (b *builder) mergeTypes() {
	// First pass: register every composite type's name and kind so field
	// output types can resolve forward references regardless of
	// declaration order, within or across subgraph documents.
	for _, doc := range b.docs {
		for _, def := range doc.Definitions {
			switch d := def.(type) {
			case *ast.ObjectTypeDefinition:
				b.compositeFor(d.Name.String(), KindObject)
			case *ast.ObjectTypeExtension:
				b.compositeFor(d.Name.String(), KindObject)
			case *ast.InterfaceTypeDefinition:
				b.compositeFor(d.Name.String(), KindInterface)
			case *ast.UnionTypeDefinition:
				b.compositeFor(d.Name.String(), KindUnion)
			}
		}
	}

	for sgIdx, doc := range b.docs {
		sg := SubgraphId(sgIdx)
		for _, def := range doc.Definitions {
			switch d := def.(type) {
			case *ast.ObjectTypeDefinition:
				b.mergeObject(d.Name.String(), d.Fields, d.Directives, sg)
			case *ast.ObjectTypeExtension:
				b.mergeObject(d.Name.String(), d.Fields, d.Directives, sg)
			case *ast.InterfaceTypeDefinition:
				ct := b.compositeFor(d.Name.String(), KindInterface)
				b.mergeFieldsInto(ct, d.Fields, sg)
			case *ast.UnionTypeDefinition:
				ct := b.compositeFor(d.Name.String(), KindUnion)
				for _, member := range d.Types {
					memberName := memberTypeName(member)
					if memberName == "" {
						continue
					}
					mt := b.compositeFor(memberName, KindObject)
					ct.PossibleTypeIds = appendUniqueType(ct.PossibleTypeIds, mt.ID)
				}
			}
		}
	}

	// Second pass: interfaces gain possible-type membership from every
	// object that declares `implements`.
	for _, doc := range b.docs {
		for _, def := range doc.Definitions {
			objDef, ok := def.(*ast.ObjectTypeDefinition)
			if !ok {
				continue
			}
			objId, ok := b.schema.typeByName[objDef.Name.String()]
			if !ok {
				continue
			}
			for _, iface := range objDef.Interfaces {
				name := namedTypeName(iface)
				if name == "" {
					continue
				}
				it := b.compositeFor(name, KindInterface)
				it.PossibleTypeIds = appendUniqueType(it.PossibleTypeIds, objId)
				obj := b.schema.types[objId]
				obj.ImplementsInterfaces = appendUniqueType(obj.ImplementsInterfaces, it.ID)
			}
		}
	}
}

func appendUniqueType(xs []TypeId, x TypeId) []TypeId {
	for _, e := range xs {
		if e == x {
			return xs
		}
	}
	return append(xs, x)
}

func (b *builder) mergeObject(name string, fields []*ast.FieldDefinition, directives []*ast.Directive, sg SubgraphId) {
	ct := b.compositeFor(name, KindObject)
	ct.existsInSubgraph = sortedInsert(ct.existsInSubgraph, sg)

	if isInterfaceObject(directives) {
		ct.isInterfaceObjectIn[sg] = true
	}

	b.mergeFieldsInto(ct, fields, sg)
}

func (b *builder) mergeFieldsInto(ct *CompositeType, astFields []*ast.FieldDefinition, sg SubgraphId) {
	for _, af := range astFields {
		fieldName := af.Name.String()
		key := ct.Name + "." + fieldName

		fid, ok := b.schema.fieldByKey[key]
		var fd *FieldDefinition
		if ok {
			fd = b.schema.fields[fid]
		} else {
			fd = &FieldDefinition{
				ID:                    FieldId(len(b.schema.fields)),
				Name:                  fieldName,
				ParentID:              ct.ID,
				Output:                typeRefFromAST(b, af.Type),
				Arguments:             argumentsFromAST(b, af),
				perSubgraphProvides:   make(map[SubgraphId]FieldSet),
				perSubgraphRequires:   make(map[SubgraphId]FieldSet),
				perSubgraphDirectives: make(map[SubgraphId]FieldDirectives),
			}
			b.schema.fields = append(b.schema.fields, fd)
			b.schema.fieldByKey[key] = fd.ID
			ct.Fields = append(ct.Fields, fd.ID)
		}

		fieldDirs := parseFieldDirectives(af.Directives)
		fd.perSubgraphDirectives[sg] = fieldDirs
		if fieldDirs.RequiresScopes != nil {
			fd.Directives.RequiresScopes = fieldDirs.RequiresScopes
		}
		if fieldDirs.Authenticated {
			fd.Directives.Authenticated = true
		}
		if len(fieldDirs.Authorized) > 0 {
			fd.Directives.Authorized = append(fd.Directives.Authorized, fieldDirs.Authorized...)
		}
		if fieldDirs.Cost != nil {
			fd.Directives.Cost = fieldDirs.Cost
		}
		if fieldDirs.Inaccessible {
			fd.Directives.Inaccessible = true
		}
		if fieldDirs.Deprecated != nil {
			fd.Directives.Deprecated = fieldDirs.Deprecated
		}

		if ov := findOverride(af.Directives); ov != nil {
			fd.Override = ov
		}

		if !fieldDirs.External {
			fd.existsInSubgraphIds = sortedInsert(fd.existsInSubgraphIds, sg)
		}

		if fs := findFieldSetArg(af.Directives, "provides"); fs != nil {
			fd.perSubgraphProvides[sg] = *fs
		}
		if fs := findFieldSetArg(af.Directives, "requires"); fs != nil {
			fd.perSubgraphRequires[sg] = *fs
		}
	}
}

// resolveRootTypes determines the Query/Mutation/Subscription root type
// names, defaulting to the conventional names when no explicit
// SchemaDefinition overrides them.
func (b *builder) resolveRootTypes() {
	rootNames := map[string]string{"query": "Query", "mutation": "Mutation", "subscription": "Subscription"}

	for _, doc := range b.docs {
		for _, def := range doc.Definitions {
			sd, ok := def.(*ast.SchemaDefinition)
			if !ok {
				continue
			}
			for _, ot := range sd.OperationTypes {
				name := ot.Type.Name.String()
				switch ot.Operation {
				case token.QUERY:
					rootNames["query"] = name
				case token.MUTATION:
					rootNames["mutation"] = name
				case token.SUBSCRIPTION:
					rootNames["subscription"] = name
				}
			}
		}
	}

	if id, ok := b.schema.typeByName[rootNames["query"]]; ok {
		b.schema.RootQuery = id
	}
	if id, ok := b.schema.typeByName[rootNames["mutation"]]; ok {
		b.schema.RootMutation = id
		b.schema.HasRootMutation = true
	}
	if id, ok := b.schema.typeByName[rootNames["subscription"]]; ok {
		b.schema.RootSubscription = id
		b.schema.HasRootSub = true
	}
}

// buildResolvers creates one root-field Resolver per (subgraph, root field)
// and one entity Resolver per (subgraph, entity type, @key) pair: root
// resolvers serve root operation fields, entity resolvers are keyed by
// @key field sets.
func (b *builder) buildResolvers() {
	var roots []TypeId
	if _, ok := b.schema.typeByName["Query"]; ok {
		roots = append(roots, b.schema.RootQuery)
	}
	if b.schema.HasRootMutation {
		roots = append(roots, b.schema.RootMutation)
	}
	if b.schema.HasRootSub {
		roots = append(roots, b.schema.RootSubscription)
	}

	for _, rootID := range roots {
		root := b.schema.types[rootID]
		for _, fid := range root.Fields {
			fd := b.schema.fields[fid]
			for _, sgID := range fd.existsInSubgraphIds {
				r := &Resolver{
					ID:              ResolverId(len(b.schema.resolvers)),
					Kind:            ResolverRootField,
					SubgraphId:      sgID,
					SupportsAliases: true,
				}
				b.schema.resolvers = append(b.schema.resolvers, r)
				fd.Resolvers = append(fd.Resolvers, r.ID)
			}
		}
	}

	// Entity resolvers: for every object type, for every subgraph that
	// declares resolvable @key directives on it, one resolver per key.
	for sgIdx, doc := range b.docs {
		sg := SubgraphId(sgIdx)
		for _, def := range doc.Definitions {
			var name string
			var directives []*ast.Directive
			switch d := def.(type) {
			case *ast.ObjectTypeDefinition:
				name, directives = d.Name.String(), d.Directives
			case *ast.ObjectTypeExtension:
				name, directives = d.Name.String(), d.Directives
			default:
				continue
			}
			keys := findKeyDirectives(directives)
			if len(keys) == 0 {
				continue
			}
			ctID, ok := b.schema.typeByName[name]
			if !ok {
				continue
			}
			for _, k := range keys {
				if !k.Resolvable {
					continue
				}
				r := &Resolver{
					ID:             ResolverId(len(b.schema.resolvers)),
					Kind:           ResolverEntity,
					SubgraphId:     sg,
					EntityTypeId:   ctID,
					RequiredFields: k.FieldSet,
				}
				b.schema.resolvers = append(b.schema.resolvers, r)
			}
		}
	}
}

// PossibleTypes returns the concrete object TypeIds a type can manifest as
// at runtime: itself for an object, its members for a union or interface.
func (s *Schema) PossibleTypes(typeID TypeId) []TypeId {
	ct := s.types[typeID]
	if ct.Kind == KindObject {
		return []TypeId{typeID}
	}
	return ct.PossibleTypeIds
}

// Implements reports whether object type objID declares `implements iface`.
func (s *Schema) Implements(objID, iface TypeId) bool {
	for _, id := range s.types[objID].ImplementsInterfaces {
		if id == iface {
			return true
		}
	}
	return false
}

// ResolversFor returns every entity resolver that can serve typeID, used by
// the solution-space builder to enumerate alternatives.
func (s *Schema) ResolversFor(typeID TypeId) []*Resolver {
	var out []*Resolver
	for _, r := range s.resolvers {
		if r.Kind == ResolverEntity && r.EntityTypeId == typeID {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
