package schema

import "sort"

// FieldSetItem is one element of a FieldSet: a field plus its sorted
// arguments (for key/requires/provides field sets that include arguments)
// and, for composite fields, a nested FieldSet over the sub-selection.
type FieldSetItem struct {
	FieldId       FieldId
	FieldName     string // kept alongside FieldId for synthesized items predating arena insertion
	SortedArgs    []ArgPair
	SubSelection  FieldSet
}

// ArgPair is a (name, literal-value-string) pair used for structural
// argument equality in FieldSetItem. Values are pre-rendered to a
// canonical string form so equality is a plain string compare.
type ArgPair struct {
	Name  string
	Value string
}

// FieldSet is an ordered list of FieldSetItem. Equality is structural, not
// order-sensitive at the top level.
type FieldSet struct {
	Items []FieldSetItem
}

// Empty reports whether the field set has no items.
func (fs FieldSet) Empty() bool {
	return len(fs.Items) == 0
}

// equalItem compares two FieldSetItems structurally.
func equalItem(a, b FieldSetItem) bool {
	if a.FieldName != b.FieldName {
		return false
	}
	if len(a.SortedArgs) != len(b.SortedArgs) {
		return false
	}
	for i := range a.SortedArgs {
		if a.SortedArgs[i] != b.SortedArgs[i] {
			return false
		}
	}
	return Equal(a.SubSelection, b.SubSelection)
}

// Equal reports whether two field sets are structurally equivalent: same
// cardinality, and every item in a has a matching item in b regardless of
// order (composition may emit sets in different orders from different
// subgraphs).
func Equal(a, b FieldSet) bool {
	if len(a.Items) != len(b.Items) {
		return false
	}
	used := make([]bool, len(b.Items))
	for _, ai := range a.Items {
		found := false
		for j, bj := range b.Items {
			if used[j] {
				continue
			}
			if equalItem(ai, bj) {
				used[j] = true
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

// Union returns the structural union of a and b: every item in a, plus
// every item in b that has no structural match in a. Sub-selections of
// matching items are recursively unioned.
func Union(a, b FieldSet) FieldSet {
	out := FieldSet{Items: append([]FieldSetItem{}, a.Items...)}
	for _, bi := range b.Items {
		merged := false
		for i, oi := range out.Items {
			if oi.FieldName == bi.FieldName && equalArgs(oi.SortedArgs, bi.SortedArgs) {
				out.Items[i].SubSelection = Union(oi.SubSelection, bi.SubSelection)
				merged = true
				break
			}
		}
		if !merged {
			out.Items = append(out.Items, bi)
		}
	}
	return out
}

func equalArgs(a, b []ArgPair) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// Contains reports whether the field set already has an item with the
// given field name (used when matching a query field against a @requires
// set).
func (fs FieldSet) Contains(fieldName string) (FieldSetItem, bool) {
	for _, it := range fs.Items {
		if it.FieldName == fieldName {
			return it, true
		}
	}
	return FieldSetItem{}, false
}

// FieldNames returns the flat, sorted list of top-level field names in the
// set, used for deterministic key-field ordering in representations.
func (fs FieldSet) FieldNames() []string {
	names := make([]string, 0, len(fs.Items))
	for _, it := range fs.Items {
		names = append(names, it.FieldName)
	}
	sort.Strings(names)
	return names
}

// ParseFieldSet parses a `@key`/`@requires`/`@provides` field-set string
// (a space-separated, possibly nested selection-set-like grammar, e.g.
// "id" or "id organization { id }") into a FieldSet. This is a minimal
// parser sufficient for the federation field-set grammar: bare names,
// whitespace-separated, with optional `{ ... }` nested sub-selections.
func ParseFieldSet(src string) FieldSet {
	toks := tokenizeFieldSet(src)
	items, _ := parseFieldSetItems(toks, 0)
	return FieldSet{Items: items}
}

func tokenizeFieldSet(src string) []string {
	var toks []string
	var cur []rune
	flush := func() {
		if len(cur) > 0 {
			toks = append(toks, string(cur))
			cur = cur[:0]
		}
	}
	for _, r := range src {
		switch r {
		case ' ', '\t', '\n', '\r':
			flush()
		case '{', '}':
			flush()
			toks = append(toks, string(r))
		default:
			cur = append(cur, r)
		}
	}
	flush()
	return toks
}

func parseFieldSetItems(toks []string, pos int) ([]FieldSetItem, int) {
	var items []FieldSetItem
	for pos < len(toks) {
		tok := toks[pos]
		if tok == "}" {
			return items, pos + 1
		}
		name := tok
		pos++
		item := FieldSetItem{FieldName: name}
		if pos < len(toks) && toks[pos] == "{" {
			var sub []FieldSetItem
			sub, pos = parseFieldSetItems(toks, pos+1)
			item.SubSelection = FieldSet{Items: sub}
		}
		items = append(items, item)
	}
	return items, pos
}
