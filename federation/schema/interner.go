package schema

// StringId is a handle into the schema's string arena. Stable for the
// lifetime of the Schema it was interned against.
type StringId int32

// Interner deduplicates strings into stable, dense ids. Schema IR never
// stores raw strings inline; every name is interned once so comparisons and
// map keys are cheap integers instead of string hashing.
type Interner struct {
	values []string
	index  map[string]StringId
}

// NewInterner creates an empty interner.
func NewInterner() *Interner {
	return &Interner{
		index: make(map[string]StringId),
	}
}

// Intern returns the StringId for s, allocating a new one if s was never
// seen before.
func (in *Interner) Intern(s string) StringId {
	if id, ok := in.index[s]; ok {
		return id
	}
	id := StringId(len(in.values))
	in.values = append(in.values, s)
	in.index[s] = id
	return id
}

// Lookup returns the string previously interned at id. Panics if id is out
// of range, which indicates a programming error (a stale handle from a
// different Schema).
func (in *Interner) Lookup(id StringId) string {
	return in.values[id]
}

// TryIntern returns the StringId for s without allocating a new entry.
func (in *Interner) TryIntern(s string) (StringId, bool) {
	id, ok := in.index[s]
	return id, ok
}
