package operation

import "github.com/n9te9/federation-gateway/federation/schema"

// AddSynthesizedField appends a gateway-synthesized field occurrence — one
// with no client-visible response key — to selection set ssID, binding it
// to schema field defID. Synthesized fields arise from requirement
// resolution: a @key or @requires field set the client never asked for but
// a resolver needs in order to run. If withSelectionSet is true a new,
// initially empty child SelectionSetId is allocated and returned alongside
// the field id so the caller can populate it with further synthesized
// subfields.
func (d *Document) AddSynthesizedField(ssID SelectionSetId, defID schema.FieldId, withSelectionSet bool, outputType schema.TypeId) (QueryFieldId, SelectionSetId) {
	id := QueryFieldId(len(d.fields))
	qf := &QueryField{
		ID:            id,
		IsSynthesized: true,
		DefinitionID:  defID,
		Location:      -1,
	}
	d.fields = append(d.fields, qf)

	ss := d.selectionSets[ssID]
	ss.Fields = append(ss.Fields, id)

	var childSS SelectionSetId
	if withSelectionSet {
		childSS = SelectionSetId(len(d.selectionSets))
		d.selectionSets = append(d.selectionSets, &QuerySelectionSet{
			ID:             childSS,
			HasParentField: true,
			ParentField:    id,
			OutputType:     outputType,
		})
		qf.HasSelectionSet = true
		qf.SelectionSet = childSS
	}

	return id, childSS
}
