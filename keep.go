package bdk

// KeepSet holds the original identifiers of one entity class which are
// allowed to appear in the output. It is populated by a single pass (single
// writer) and read-only afterwards, so it is safe to share across the
// dependent extraction passes without locking.
type KeepSet map[string]struct{}

// NewKeepSet returns a KeepSet holding the given identifiers.
func NewKeepSet(ids ...string) KeepSet {
	k := make(KeepSet, len(ids))
	for _, id := range ids {
		k.Add(id)
	}
	return k
}

// Add inserts id into the set. Adding the empty identifier is a no-op -
// records missing a key field never become keepable.
func (k KeepSet) Add(id string) {
	if id == "" {
		return
	}
	k[id] = struct{}{}
}

// Has reports whether id is in the set.
func (k KeepSet) Has(id string) bool {
	_, ok := k[id]
	return ok
}

// Len returns the number of identifiers in the set.
func (k KeepSet) Len() int {
	return len(k)
}
