package executor

import (
	"fmt"
	"strings"

	"github.com/n9te9/federation-gateway/federation/operation"
	"github.com/n9te9/federation-gateway/federation/schema"
	"github.com/n9te9/federation-gateway/federation/shape"
)

// renderCtx bundles the read-only inputs every recursive render step needs,
// kept off the call signatures of writeShape/writeFields/writeFieldHead.
type renderCtx struct {
	doc    *operation.Document
	sch    *schema.Schema
	denied map[operation.QueryFieldId]bool
}

// buildRootQueryText renders the document dispatched to a root partition:
// "query { ... }" or "mutation { ... }" over exactly the fields the
// partition's compiled shape selected, minus any field a QueryModifier
// denied before dispatch. Every argument value is already coerced at bind
// time (including a forwarded variable reference, resolved here against the
// operation's own Variable roster), so the request body carries literals
// only and needs no separate variable-definition block.
func buildRootQueryText(doc *operation.Document, sch *schema.Schema, denied map[operation.QueryFieldId]bool, root *shape.Shape) string {
	rc := renderCtx{doc: doc, sch: sch, denied: denied}
	var sb strings.Builder
	op := doc.OperationType
	if op == "" {
		op = "query"
	}
	sb.WriteString(op)
	sb.WriteString(" {\n")
	writeShape(&sb, rc, root, "\t")
	sb.WriteString("}")
	return sb.String()
}

// buildEntityQueryText renders an _entities(representations: ...) query for
// an entity partition. boundaryField is the QueryField that spawned this
// partition (e.g. "reviews"): it never appears in any partition's own
// compiled Shape (that's what makes it a boundary), since the Shape
// compiler starts one level below it, at its own sub-selection — so it must
// be re-wrapped around root here to reproduce the field the subgraph
// actually needs to see requested. The representation values themselves
// travel via the $representations variable since they are runtime data,
// not something known at plan-compile time.
func buildEntityQueryText(doc *operation.Document, sch *schema.Schema, denied map[operation.QueryFieldId]bool, entityTypeName string, boundaryField *operation.QueryField, aliasCapable bool, root *shape.Shape) string {
	rc := renderCtx{doc: doc, sch: sch, denied: denied}
	var sb strings.Builder
	sb.WriteString("query ($representations: [_Any!]!) {\n")
	sb.WriteString("\t_entities(representations: $representations) {\n")
	sb.WriteString("\t\t... on ")
	sb.WriteString(entityTypeName)
	sb.WriteString(" {\n")

	key := fieldKey(sch, boundaryField, aliasCapable)
	name := sch.Field(boundaryField.DefinitionID).Name
	writeFieldHead(&sb, rc, key, name, boundaryField, "\t\t\t")
	sb.WriteString(" {\n")
	writeShape(&sb, rc, root, "\t\t\t\t")
	sb.WriteString("\t\t\t}\n")

	sb.WriteString("\t\t}\n\t}\n}")
	return sb.String()
}

func writeShape(sb *strings.Builder, rc renderCtx, s *shape.Shape, indent string) {
	if s == nil {
		return
	}
	switch s.Kind {
	case shape.ShapeConcrete:
		writeFields(sb, rc, s.Fields, indent)
	case shape.ShapeConditional:
		for typeID, fields := range s.Branches {
			sb.WriteString(indent)
			sb.WriteString("... on ")
			sb.WriteString(rc.sch.Type(typeID).Name)
			sb.WriteString(" {\n")
			writeFields(sb, rc, fields, indent+"\t")
			sb.WriteString(indent)
			sb.WriteString("}\n")
		}
	}
}

func writeFields(sb *strings.Builder, rc renderCtx, fields []shape.CollectedField, indent string) {
	for _, cf := range fields {
		if rc.denied[cf.QueryFieldId] {
			continue
		}
		qf := rc.doc.Field(cf.QueryFieldId)
		if !conditionHolds(rc.doc, qf) {
			continue
		}

		name := "__typename"
		if !cf.IsTypename {
			name = rc.sch.Field(cf.DefinitionID).Name
		}
		writeFieldHead(sb, rc, cf.ExpectedKey, name, qf, indent)

		if cf.Child != nil {
			sb.WriteString(" {\n")
			writeShape(sb, rc, cf.Child, indent+"\t")
			sb.WriteString(indent)
			sb.WriteString("}")
		}
		sb.WriteString("\n")
	}
}

// writeFieldHead writes one field's indent, alias (if its expected key
// differs from its schema name), name and argument list — everything up to
// (not including) an opening "{" for its own sub-selection, if any.
func writeFieldHead(sb *strings.Builder, rc renderCtx, key, name string, qf *operation.QueryField, indent string) {
	sb.WriteString(indent)
	if key != name {
		sb.WriteString(key)
		sb.WriteString(": ")
	}
	sb.WriteString(name)

	if len(qf.Arguments) > 0 {
		sb.WriteString("(")
		for i, arg := range qf.Arguments {
			if i > 0 {
				sb.WriteString(", ")
			}
			sb.WriteString(arg.Name)
			sb.WriteString(": ")
			writeValue(sb, rc.doc, arg.Value)
		}
		sb.WriteString(")")
	}
}

// conditionHolds evaluates a field's @skip/@include condition (if any)
// against the operation's resolved variable values. Fields compiled into a
// partition's shape still carry their original Skip/Include, since the
// shape compiler did not itself filter on them; the query text is the
// right place to drop them, since it is assembled fresh per dispatch and
// can reflect the actual request's variable values.
func conditionHolds(doc *operation.Document, qf *operation.QueryField) bool {
	if qf.Skip != nil && resolveBool(doc, qf.Skip) {
		return false
	}
	if qf.Include != nil && !resolveBool(doc, qf.Include) {
		return false
	}
	return true
}

func resolveBool(doc *operation.Document, v *operation.InputValue) bool {
	iv := *v
	if iv.Kind == operation.ValueVariable {
		if vr, ok := doc.VariableByName(iv.VariableName); ok {
			iv = vr.Value
		}
	}
	return iv.Kind == operation.ValueBoolean && iv.BooleanVal
}

func writeValue(sb *strings.Builder, doc *operation.Document, v operation.InputValue) {
	switch v.Kind {
	case operation.ValueString:
		sb.WriteString(fmt.Sprintf("%q", v.StringVal))
	case operation.ValueInt:
		fmt.Fprintf(sb, "%d", v.IntVal)
	case operation.ValueFloat:
		fmt.Fprintf(sb, "%g", v.FloatVal)
	case operation.ValueBoolean:
		fmt.Fprintf(sb, "%t", v.BooleanVal)
	case operation.ValueEnum:
		sb.WriteString(v.EnumVal)
	case operation.ValueNull:
		sb.WriteString("null")
	case operation.ValueList:
		sb.WriteString("[")
		for i, item := range v.ListVal {
			if i > 0 {
				sb.WriteString(", ")
			}
			writeValue(sb, doc, item)
		}
		sb.WriteString("]")
	case operation.ValueObject:
		sb.WriteString("{")
		for i, f := range v.ObjectVal {
			if i > 0 {
				sb.WriteString(", ")
			}
			sb.WriteString(f.Name)
			sb.WriteString(": ")
			writeValue(sb, doc, f.Value)
		}
		sb.WriteString("}")
	case operation.ValueVariable:
		if vr, ok := doc.VariableByName(v.VariableName); ok {
			writeValue(sb, doc, vr.Value)
			return
		}
		sb.WriteString("null")
	}
}
