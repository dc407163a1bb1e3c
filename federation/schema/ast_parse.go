package schema

import (
	"strconv"
	"strings"

	"github.com/n9te9/graphql-parser/ast"
)

// typeRefFromAST converts a parsed ast.Type into a TypeRef, unwrapping
// NonNull/List wrappers outside-in exactly as getNamedType/unwrapTypeName do
// in the planner and gateway packages, but retaining the wrapper sequence
// instead of discarding it.
func typeRefFromAST(b *builder, t ast.Type) TypeRef {
	var wrapping []WrapKind
	for {
		switch typ := t.(type) {
		case *ast.NonNullType:
			wrapping = append(wrapping, WrapNonNull)
			t = typ.Type
		case *ast.ListType:
			wrapping = append(wrapping, WrapList)
			t = typ.Type
		case *ast.NamedType:
			name := typ.Name.String()
			if id, ok := b.schema.typeByName[name]; ok {
				return TypeRef{Composite: id, IsComposite: true, Wrapping: wrapping}
			}
			return TypeRef{LeafName: b.schema.Strings.Intern(name), Wrapping: wrapping}
		default:
			return TypeRef{Wrapping: wrapping}
		}
	}
}

// argumentsFromAST converts a field's declared arguments, mirroring the
// field.Arguments walk in query_builder_v2.go's getArgumentTypeFromSchema
// (arg.Name.String() / arg.Type.String()), but keeping the parsed TypeRef
// instead of re-deriving it from the stringified type later.
func argumentsFromAST(b *builder, af *ast.FieldDefinition) []ArgumentDefinition {
	if len(af.Arguments) == 0 {
		return nil
	}
	out := make([]ArgumentDefinition, 0, len(af.Arguments))
	for _, a := range af.Arguments {
		out = append(out, ArgumentDefinition{Name: a.Name.String(), Type: typeRefFromAST(b, a.Type)})
	}
	return out
}

func memberTypeName(t ast.Type) string {
	if nt, ok := t.(*ast.NamedType); ok {
		return nt.Name.String()
	}
	return ""
}

func namedTypeName(t ast.Type) string {
	return memberTypeName(t)
}

// isInterfaceObject reports @interfaceObject, matching isEntity's pattern of
// scanning directives by bare Name.
func isInterfaceObject(directives []*ast.Directive) bool {
	for _, d := range directives {
		if d.Name == "interfaceObject" {
			return true
		}
	}
	return false
}

// findKeyDirectives parses every @key occurrence on a type, mirroring
// parseEntityKeys but producing schema.KeyDirective values with parsed
// FieldSets instead of raw strings.
func findKeyDirectives(directives []*ast.Directive) []KeyDirective {
	var keys []KeyDirective
	for _, d := range directives {
		if d.Name != "key" {
			continue
		}
		k := KeyDirective{Resolvable: true}
		for _, arg := range d.Arguments {
			switch arg.Name.String() {
			case "fields":
				k.FieldSet = ParseFieldSet(unquote(arg.Value.String()))
			case "resolvable":
				if arg.Value.String() == "false" {
					k.Resolvable = false
				}
			}
		}
		keys = append(keys, k)
	}
	return keys
}

// findOverride parses @override(from: "...") on a field, mirroring the
// directive-scan idiom of parseField.
func findOverride(directives []*ast.Directive) *OverrideDirective {
	for _, d := range directives {
		if d.Name != "override" {
			continue
		}
		ov := &OverrideDirective{}
		for _, arg := range d.Arguments {
			if arg.Name.String() == "from" {
				ov.From = unquote(arg.Value.String())
			}
		}
		return ov
	}
	return nil
}

// findFieldSetArg looks for a directive named dirName carrying a `fields`
// string argument and parses it, used for @provides/@requires (mirrors
// parseField's Requires/Provides handling, generalized to FieldSet instead
// of strings.Fields).
func findFieldSetArg(directives []*ast.Directive, dirName string) *FieldSet {
	for _, d := range directives {
		if d.Name != dirName {
			continue
		}
		for _, arg := range d.Arguments {
			if arg.Name.String() == "fields" {
				fs := ParseFieldSet(unquote(arg.Value.String()))
				return &fs
			}
		}
	}
	return nil
}

// parseFieldDirectives resolves every recognized field-level directive into
// a FieldDirectives record in one pass over the directive list, following
// parseField's switch-over-Name idiom.
func parseFieldDirectives(directives []*ast.Directive) FieldDirectives {
	var fd FieldDirectives
	for _, d := range directives {
		switch d.Name {
		case "external":
			fd.External = true
		case "shareable":
			fd.Shareable = true
		case "authenticated":
			fd.Authenticated = true
		case "inaccessible":
			fd.Inaccessible = true
		case "deprecated":
			reason := "No longer supported"
			for _, arg := range d.Arguments {
				if arg.Name.String() == "reason" {
					reason = unquote(arg.Value.String())
				}
			}
			fd.Deprecated = &reason
		case "requires_scopes", "requiresScopes":
			fd.RequiresScopes = &RequiresScopesDirective{Scopes: parseScopesArg(d.Arguments)}
		case "authorized":
			auth := AuthorizedDirective{DirectiveId: len(fd.Authorized)}
			for _, arg := range d.Arguments {
				switch arg.Name.String() {
				case "fields":
					fs := ParseFieldSet(unquote(arg.Value.String()))
					auth.Fields = &fs
				case "arguments":
					auth.Arguments = strings.Fields(unquote(arg.Value.String()))
				}
			}
			fd.Authorized = append(fd.Authorized, auth)
		case "cost":
			for _, arg := range d.Arguments {
				if arg.Name.String() == "weight" {
					if w, err := strconv.Atoi(arg.Value.String()); err == nil {
						fd.Cost = &CostDirective{Weight: w}
					}
				}
			}
		case "listSize":
			fd.ListSize = parseListSizeArg(d.Arguments)
		case "key", "override", "provides", "requires", "interfaceObject":
			// composed elsewhere; not a per-field directive record
		default:
			ext := Extension{Name: d.Name}
			if len(d.Arguments) > 0 {
				ext.Arguments = make(map[string]string, len(d.Arguments))
				for _, arg := range d.Arguments {
					ext.Arguments[arg.Name.String()] = arg.Value.String()
				}
			}
			fd.Extensions = append(fd.Extensions, ext)
		}
	}
	return fd
}

// parseScopesArg parses `scopes: [["a", "b"], ["c"]]` into [][]string. The
// grammar is a nested list of string lists; this is a small bracket-aware
// scanner rather than a full value-literal walk since the parser's Value
// AST shape for list literals is not load-bearing anywhere else in this
// package.
func parseScopesArg(args []*ast.Argument) [][]string {
	for _, arg := range args {
		if arg.Name.String() != "scopes" {
			continue
		}
		raw := arg.Value.String()
		return parseNestedStringLists(raw)
	}
	return nil
}

func parseNestedStringLists(raw string) [][]string {
	var out [][]string
	depth := 0
	var cur []string
	var tok strings.Builder
	flushTok := func() {
		t := strings.TrimSpace(tok.String())
		t = strings.Trim(t, "\"")
		if t != "" {
			cur = append(cur, t)
		}
		tok.Reset()
	}
	for _, r := range raw {
		switch r {
		case '[':
			depth++
			if depth == 2 {
				cur = nil
			}
		case ']':
			flushTok()
			if depth == 2 {
				out = append(out, cur)
			}
			depth--
		case ',':
			flushTok()
		default:
			tok.WriteRune(r)
		}
	}
	return out
}

func parseListSizeArg(args []*ast.Argument) *ListSizeDirective {
	ls := &ListSizeDirective{}
	found := false
	for _, arg := range args {
		switch arg.Name.String() {
		case "assumedSize":
			found = true
			if n, err := strconv.Atoi(arg.Value.String()); err == nil {
				ls.AssumedSize = &n
			}
		case "slicingArguments":
			found = true
			ls.SlicingArguments = parseStringListLiteral(arg.Value.String())
		case "sizedFields":
			found = true
			ls.SizedFields = parseStringListLiteral(arg.Value.String())
		}
	}
	if !found {
		return nil
	}
	return ls
}

func parseStringListLiteral(raw string) []string {
	raw = strings.Trim(raw, "[]")
	var out []string
	for _, part := range strings.Split(raw, ",") {
		p := strings.TrimSpace(part)
		p = strings.Trim(p, "\"")
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

func unquote(s string) string {
	return strings.Trim(s, "\"")
}
