package solution

import (
	"fmt"

	"github.com/n9te9/federation-gateway/federation/apierror"
	"github.com/n9te9/federation-gateway/federation/operation"
	"github.com/n9te9/federation-gateway/federation/schema"
)

// requirementTask records one field set a placed node needs satisfied
// before it can run: either a resolver's own required-field set (its @key
// inputs) or a field's @requires set against the subgraph providing it.
type requirementTask struct {
	// parentSelectionSet is the selection set the required fields must be
	// found in (or synthesized into) — the same selection set dependent
	// belongs to.
	parentSelectionSet operation.SelectionSetId
	// petitioner is the node (ProvidableField or Resolver) whose candidacy
	// depends on the required fields being available; currently only used
	// for graph-construction symmetry, requirement edges are anchored at
	// dependent.
	petitioner NodeId
	// dependent is the QueryField node the requirement exists on behalf of.
	dependent NodeId

	requiredFieldSet schema.FieldSet
	indispensable    bool
}

// resolveRequirements drains the requirement-task queue, which may grow as
// resolving one task discovers fields with their own @requires sets.
func (b *builder) resolveRequirements() error {
	for i := 0; i < len(b.requirements); i++ {
		task := b.requirements[i]
		for _, item := range task.requiredFieldSet.Items {
			node, err := b.resolveRequiredItem(task.parentSelectionSet, item, task.indispensable)
			if err != nil {
				return err
			}
			b.g.addEdge(EdgeRequires, task.dependent, node, 0)
		}
	}
	return nil
}

// resolveRequiredItem finds an existing sibling field in ssID matching item
// (by field name, tie-broken on the lowest QueryFieldId), or synthesizes
// one if none exists. Nested key parts (item.SubSelection) are resolved
// the same way against the found/synthesized field's own selection set,
// without adding further Requires edges of their own — the edge the caller
// adds from the original dependent already covers the whole nested shape.
func (b *builder) resolveRequiredItem(ssID operation.SelectionSetId, item schema.FieldSetItem, indispensable bool) (NodeId, error) {
	ss := b.doc.SelectionSet(ssID)

	matchID, found := findMatchingField(b.doc, b.sch, ss, item.FieldName)

	var fieldNode NodeId
	var childSS operation.SelectionSetId
	var hasChild bool

	if found {
		ctx := b.ssContext[ssID]
		fieldNode = b.placeField(ssID, matchID, ctx, indispensable)
		qf := b.doc.Field(matchID)
		hasChild = qf.HasSelectionSet
		childSS = qf.SelectionSet
	} else {
		typeName := b.sch.Type(ss.OutputType).Name
		fd, ok := b.sch.FieldByName(typeName, item.FieldName)
		if !ok {
			return 0, apierror.OperationPlanning(fmt.Sprintf("required field %q not found on type %q — supergraph composition is inconsistent", item.FieldName, typeName))
		}

		withSelectionSet := fd.Output.IsComposite
		newID, newSS := b.doc.AddSynthesizedField(ssID, fd.ID, withSelectionSet, fd.Output.Composite)

		ctx := b.ssContext[ssID]
		// placeField recurses into the new field's own selection set itself
		// (registering its context in b.ssContext) whenever one exists, the
		// same way it does for client-visible fields.
		fieldNode = b.placeField(ssID, newID, ctx, indispensable)
		hasChild = withSelectionSet
		childSS = newSS
	}

	if hasChild && !item.SubSelection.Empty() {
		for _, sub := range item.SubSelection.Items {
			if _, err := b.resolveRequiredItem(childSS, sub, indispensable); err != nil {
				return 0, err
			}
		}
	}

	return fieldNode, nil
}

// findMatchingField searches ss for a bound field occurrence whose schema
// definition is named fieldName, tie-breaking on the lowest QueryFieldId
// when more than one alias of the same field is present. Argument
// equivalence is not checked: required field sets are @key/@requires
// selections, which schema composition already guarantees are argument-free.
func findMatchingField(doc *operation.Document, sch *schema.Schema, ss *operation.QuerySelectionSet, fieldName string) (operation.QueryFieldId, bool) {
	best := operation.QueryFieldId(-1)
	found := false
	for _, fid := range ss.Fields {
		qf := doc.Field(fid)
		if qf.IsTypename {
			continue
		}
		fd := sch.Field(qf.DefinitionID)
		if fd.Name != fieldName {
			continue
		}
		if !found || fid < best {
			best = fid
			found = true
		}
	}
	return best, found
}
