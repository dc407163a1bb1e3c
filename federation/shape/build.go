package shape

import (
	"fmt"
	"sort"

	"github.com/n9te9/federation-gateway/federation/operation"
	"github.com/n9te9/federation-gateway/federation/partition"
	"github.com/n9te9/federation-gateway/federation/schema"
)

type builder struct {
	sch *schema.Schema
	doc *operation.Document

	queryRules    map[ruleKey]*QueryModifier
	responseRules map[ruleKey]*ResponseModifier
}

// ruleKey identifies a ModifierRule for deduplication: same kind, same
// directive occurrence, same field definition merge into one entry with an
// accumulated field list.
type ruleKey struct {
	kind         RuleKind
	definitionID schema.FieldId
	directiveID  int
}

// Compile produces the per-partition output shapes and the deduplicated
// query/response modifier lists for a resolved plan.
func Compile(sch *schema.Schema, doc *operation.Document, ps *partition.PartitionSet) (*Set, error) {
	b := &builder{
		sch:           sch,
		doc:           doc,
		queryRules:    make(map[ruleKey]*QueryModifier),
		responseRules: make(map[ruleKey]*ResponseModifier),
	}

	set := &Set{}
	for _, p := range ps.Partitions {
		rootSS, err := b.partitionRootSelectionSet(p)
		if err != nil {
			return nil, err
		}

		member := make(map[operation.QueryFieldId]bool, len(p.Fields))
		for _, fid := range p.Fields {
			member[fid] = true
		}

		shape, err := b.compileSelectionSet(rootSS, member, b.aliasCapable(p))
		if err != nil {
			return nil, err
		}
		set.Partitions = append(set.Partitions, &PartitionShape{PartitionId: p.ID, Root: shape})
	}

	set.QueryModifiers = b.sortedQueryModifiers()
	set.ResponseModifiers = b.sortedResponseModifiers()
	return set, nil
}

// aliasCapable reports whether the subgraph a partition dispatches to
// returns fields under their requested alias.
func (b *builder) aliasCapable(p *partition.QueryPartition) bool {
	return AliasCapable(b.sch, p)
}

// AliasCapable reports whether partition p's subgraph returns fields under
// their requested alias. The gateway-internal introspection resolver (no
// backing subgraph) always can: the gateway writes its own synthetic
// response. Exported so the executor can apply the same rule when it needs
// a field's wire key outside of a compiled Shape (e.g. a cross-partition
// boundary field, which a Shape never contains a CollectedField for).
func AliasCapable(sch *schema.Schema, p *partition.QueryPartition) bool {
	if p.SubgraphId == schema.IntrospectionSubgraph {
		return true
	}
	return sch.Resolver(p.ResolverId).SupportsAliases
}

// partitionRootSelectionSet resolves the selection set a partition's field
// list is collected from: the operation's root selection set for a root
// partition, or the spawning field's own selection set for an entity
// partition.
func (b *builder) partitionRootSelectionSet(p *partition.QueryPartition) (operation.SelectionSetId, error) {
	if p.IsRoot {
		return b.doc.RootSelectionSet, nil
	}
	field := b.doc.Field(p.InputField)
	if !field.HasSelectionSet {
		return 0, fmt.Errorf("shape: partition %d's input field has no selection set", p.ID)
	}
	return field.SelectionSet, nil
}

// compileSelectionSet builds the Shape for selection set ssID, restricted
// to fields present in member (the owning partition's field set) — a
// nested composite field whose own sub-selection belongs to a different
// (child) partition is represented as a leaf CollectedField with no Child,
// since that subtree is compiled separately as that child partition's own
// Shape.
func (b *builder) compileSelectionSet(ssID operation.SelectionSetId, member map[operation.QueryFieldId]bool, aliasCapable bool) (*Shape, error) {
	ss := b.doc.SelectionSet(ssID)
	outputType := b.sch.Type(ss.OutputType)

	if outputType.Kind == schema.KindObject {
		fields, err := b.collectFieldsFor(ss, outputType.ID, member, aliasCapable)
		if err != nil {
			return nil, err
		}
		return &Shape{Kind: ShapeConcrete, Fields: fields}, nil
	}

	branches := make(map[schema.TypeId][]CollectedField)
	for _, possible := range b.sch.PossibleTypes(outputType.ID) {
		fields, err := b.collectFieldsFor(ss, possible, member, aliasCapable)
		if err != nil {
			return nil, err
		}
		branches[possible] = fields
	}
	return &Shape{Kind: ShapeConditional, Branches: branches}, nil
}

// collectFieldsFor lists every sibling in ss that applies to concreteType
// (its TypeConditions, if any, are all satisfied by concreteType), in
// expected-key order.
func (b *builder) collectFieldsFor(ss *operation.QuerySelectionSet, concreteType schema.TypeId, member map[operation.QueryFieldId]bool, aliasCapable bool) ([]CollectedField, error) {
	var out []CollectedField

	for _, fid := range ss.Fields {
		if !member[fid] {
			continue
		}
		qf := b.doc.Field(fid)
		if !appliesTo(b.sch, qf.TypeConditions, concreteType) {
			continue
		}

		cf, err := b.collectField(qf, member, aliasCapable)
		if err != nil {
			return nil, err
		}
		out = append(out, cf)
	}

	sort.Slice(out, func(i, j int) bool { return out[i].ExpectedKey < out[j].ExpectedKey })
	return out, nil
}

func (b *builder) collectField(qf *operation.QueryField, member map[operation.QueryFieldId]bool, aliasCapable bool) (CollectedField, error) {
	if qf.IsTypename {
		key := "__typename"
		if aliasCapable && qf.ResponseKey != "" {
			key = qf.ResponseKey
		}
		return CollectedField{ExpectedKey: key, IsTypename: true, QueryFieldId: qf.ID}, nil
	}

	fd := b.sch.Field(qf.DefinitionID)

	key := fd.Name
	if aliasCapable && !qf.IsSynthesized {
		key = qf.ResponseKey
	}

	cf := CollectedField{
		ExpectedKey:  key,
		DefinitionID: qf.DefinitionID,
		QueryFieldId: qf.ID,
		Output:       fd.Output,
	}

	if qf.HasSelectionSet {
		// Every descendant of qf that belongs to this partition was added
		// to the SAME flat member set when the partition was built (C6's
		// collectFields keeps recursing under the same partition id until
		// it crosses a Resolver boundary, which contributes no QueryField
		// of its own) — so member still applies unchanged one level down.
		child, err := b.compileSelectionSet(qf.SelectionSet, member, aliasCapable)
		if err != nil {
			return CollectedField{}, err
		}
		cf.Child = child
	}

	b.collectModifiers(fd, qf.ID)
	return cf, nil
}

// appliesTo reports whether every type condition in conds (each a possibly
// abstract type named by an enclosing inline fragment or fragment spread)
// is satisfied by concreteType.
func appliesTo(sch *schema.Schema, conds []schema.TypeId, concreteType schema.TypeId) bool {
	for _, c := range conds {
		if c == concreteType {
			continue
		}
		if !containsTypeID(sch.PossibleTypes(c), concreteType) {
			return false
		}
	}
	return true
}

func containsTypeID(xs []schema.TypeId, x schema.TypeId) bool {
	for _, v := range xs {
		if v == x {
			return true
		}
	}
	return false
}

// collectModifiers inspects fd's directives and records the modifier rules
// this occurrence of the field (fieldID) participates in, merging into an
// existing rule entry when another occurrence already generated the same
// one.
//
// Authenticated and RequiresScopes are evaluable from request context alone
// (the caller's identity/scopes), so they become QueryModifiers, checked
// once before any partition dispatches. Authorized / AuthorizedWithArguments
// need the resolved field value, so they become ResponseModifiers. The
// executor does not evaluate ResponseModifiers: a field they name is
// returned without an authorization check. AuthorizedDefinition/AuthorizedEdgeChild/AuthorizedParentEdge
// are part of the rule taxonomy but are never populated here: the schema IR
// this gateway builds on (federation/schema) only tracks directives at
// field granularity, not on the composite type itself or on the edges
// between types, so there is no data source to generate them from.
func (b *builder) collectModifiers(fd *schema.FieldDefinition, fieldID operation.QueryFieldId) {
	dirs := fd.Directives

	if dirs.Authenticated {
		b.addQueryRule(ModifierRule{Kind: RuleAuthenticated, DefinitionID: fd.ID}, fieldID)
	}
	if dirs.RequiresScopes != nil {
		b.addQueryRule(ModifierRule{Kind: RuleRequiresScopes, DefinitionID: fd.ID, Scopes: dirs.RequiresScopes.Scopes}, fieldID)
	}
	for _, auth := range dirs.Authorized {
		if len(auth.Arguments) > 0 {
			rule := ModifierRule{
				Kind:         RuleAuthorizedFieldWithArguments,
				DefinitionID: fd.ID,
				DirectiveId:  auth.DirectiveId,
				ArgumentIds:  argumentIndices(fd, auth.Arguments),
			}
			b.addResponseRule(rule, fieldID)
			continue
		}
		rule := ModifierRule{Kind: RuleAuthorizedField, DefinitionID: fd.ID, DirectiveId: auth.DirectiveId}
		b.addResponseRule(rule, fieldID)
	}
}

func argumentIndices(fd *schema.FieldDefinition, names []string) []int {
	out := make([]int, 0, len(names))
	for _, name := range names {
		for i, arg := range fd.Arguments {
			if arg.Name == name {
				out = append(out, i)
				break
			}
		}
	}
	return out
}

func (b *builder) addQueryRule(rule ModifierRule, fieldID operation.QueryFieldId) {
	key := ruleKey{kind: rule.Kind, definitionID: rule.DefinitionID, directiveID: rule.DirectiveId}
	qm, ok := b.queryRules[key]
	if !ok {
		qm = &QueryModifier{Rule: rule}
		b.queryRules[key] = qm
	}
	qm.Fields = append(qm.Fields, fieldID)
}

func (b *builder) addResponseRule(rule ModifierRule, fieldID operation.QueryFieldId) {
	key := ruleKey{kind: rule.Kind, definitionID: rule.DefinitionID, directiveID: rule.DirectiveId}
	rm, ok := b.responseRules[key]
	if !ok {
		rm = &ResponseModifier{Rule: rule}
		b.responseRules[key] = rm
	}
	rm.Fields = append(rm.Fields, fieldID)
}

func (b *builder) sortedQueryModifiers() []QueryModifier {
	out := make([]QueryModifier, 0, len(b.queryRules))
	for _, qm := range b.queryRules {
		sort.Slice(qm.Fields, func(i, j int) bool { return qm.Fields[i] < qm.Fields[j] })
		out = append(out, *qm)
	}
	sort.Slice(out, func(i, j int) bool { return modifierLess(out[i].Rule, out[j].Rule) })
	return out
}

func (b *builder) sortedResponseModifiers() []ResponseModifier {
	out := make([]ResponseModifier, 0, len(b.responseRules))
	for _, rm := range b.responseRules {
		sort.Slice(rm.Fields, func(i, j int) bool { return rm.Fields[i] < rm.Fields[j] })
		out = append(out, *rm)
	}
	sort.Slice(out, func(i, j int) bool { return modifierLess(out[i].Rule, out[j].Rule) })
	return out
}

func modifierLess(a, b ModifierRule) bool {
	if a.Kind != b.Kind {
		return a.Kind < b.Kind
	}
	if a.DefinitionID != b.DefinitionID {
		return a.DefinitionID < b.DefinitionID
	}
	return a.DirectiveId < b.DirectiveId
}
