package executor

import (
	"github.com/n9te9/federation-gateway/federation/operation"
	"github.com/n9te9/federation-gateway/federation/schema"
	"github.com/n9te9/federation-gateway/federation/shape"
)

// AuthContext is the caller identity/scope information a Plan's
// QueryModifiers are evaluated against, resolved once before any partition
// dispatches.
type AuthContext struct {
	Authenticated bool
	Scopes        map[string]bool
}

func (a AuthContext) satisfiesScopes(groups [][]string) bool {
	if len(groups) == 0 {
		return true
	}
	for _, group := range groups {
		ok := true
		for _, s := range group {
			if !a.Scopes[s] {
				ok = false
				break
			}
		}
		if ok {
			return true
		}
	}
	return false
}

// evaluateQueryModifiers checks every QueryModifier against auth, before
// any subgraph dispatch. A failing rule denies every field it names: those
// fields are dropped from their partition's rendered query text, so their
// keys are absent from the response data (no null is written in their
// place and nothing propagates), and one error per denied field is returned.
//
// RuleAuthenticated/RuleRequiresScopes are the only RuleKinds Compile ever
// emits into QueryModifiers (see federation/shape.builder.collectModifiers)
// — evaluateQueryModifiers only switches on those two for that reason, not
// because other RuleKinds are unsupported in general.
func evaluateQueryModifiers(sch *schema.Schema, doc *operation.Document, modifiers []shape.QueryModifier, auth AuthContext) (map[operation.QueryFieldId]bool, []GraphQLError) {
	denied := make(map[operation.QueryFieldId]bool)
	var errs []GraphQLError

	for _, qm := range modifiers {
		var allowed bool
		switch qm.Rule.Kind {
		case shape.RuleAuthenticated:
			allowed = auth.Authenticated
		case shape.RuleRequiresScopes:
			allowed = auth.Authenticated && auth.satisfiesScopes(qm.Rule.Scopes)
		default:
			allowed = true
		}
		if allowed {
			continue
		}

		fieldName := sch.Field(qm.Rule.DefinitionID).Name
		for _, fid := range qm.Fields {
			denied[fid] = true
			errs = append(errs, GraphQLError{
				Message: "not authorized to access field \"" + fieldName + "\"",
				Path:    fieldResponsePath(doc, fid),
			})
		}
	}

	return denied, errs
}

// fieldResponsePath renders the client-visible path (a mix of field
// response keys, deepest last) from the operation root down to fid, the
// same shape GraphQL error "path" entries use.
func fieldResponsePath(doc *operation.Document, fid operation.QueryFieldId) []interface{} {
	var path []interface{}
	cur := fid
	for {
		qf := doc.Field(cur)
		key := qf.ResponseKey
		if key == "" {
			key = "__typename"
		}
		path = append([]interface{}{key}, path...)

		ss, ok := enclosingSelectionSet(doc, cur)
		if !ok || !ss.HasParentField {
			break
		}
		cur = ss.ParentField
	}
	return path
}

// enclosingSelectionSet finds the selection set fid itself was declared in.
func enclosingSelectionSet(doc *operation.Document, fid operation.QueryFieldId) (*operation.QuerySelectionSet, bool) {
	ssID, ok := findContainingSelectionSet(doc, doc.RootSelectionSet, fid)
	if !ok {
		return nil, false
	}
	return doc.SelectionSet(ssID), true
}
