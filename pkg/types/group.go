package types

import (
	"fmt"
	"sort"
)

// TotalGroups is the fixed number of shards an address can belong to.
const TotalGroups = 4

// Group is the shard an address is assigned to. It is always computed from
// the address hash, never chosen.
type Group int

// Valid reports whether g is in [0, TotalGroups).
func (g Group) Valid() bool {
	return g >= 0 && g < TotalGroups
}

// AllGroups returns every group in ascending order.
func AllGroups() []Group {
	groups := make([]Group, TotalGroups)
	for i := range groups {
		groups[i] = Group(i)
	}
	return groups
}

// ParseGroup validates an integer group value.
func ParseGroup(v int) (Group, error) {
	g := Group(v)
	if !g.Valid() {
		return 0, fmt.Errorf("group %d out of range [0, %d)", v, TotalGroups)
	}
	return g, nil
}

// AddressIndex is the BIP-32 child index of an address key.
type AddressIndex uint32

// IndexSet is a set of address indexes.
type IndexSet map[AddressIndex]struct{}

// NewIndexSet builds a set from the given indexes.
func NewIndexSet(indexes ...AddressIndex) IndexSet {
	s := make(IndexSet, len(indexes))
	for _, i := range indexes {
		s[i] = struct{}{}
	}
	return s
}

// Has reports whether i is in the set. A nil set contains nothing.
func (s IndexSet) Has(i AddressIndex) bool {
	_, ok := s[i]
	return ok
}

// Add inserts i into the set.
func (s IndexSet) Add(i AddressIndex) {
	s[i] = struct{}{}
}

// Clone returns an independent copy of the set. Cloning nil yields an empty set.
func (s IndexSet) Clone() IndexSet {
	c := make(IndexSet, len(s))
	for i := range s {
		c[i] = struct{}{}
	}
	return c
}

// Sorted returns the members in ascending order.
func (s IndexSet) Sorted() []AddressIndex {
	out := make([]AddressIndex, 0, len(s))
	for i := range s {
		out = append(out, i)
	}
	sort.Slice(out, func(a, b int) bool { return out[a] < out[b] })
	return out
}
