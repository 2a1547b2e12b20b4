package csvdoc

import (
	"sort"
	"strings"
)

// OptionSet is the allowed-value set of a constrained column. The zero value
// is an empty set. Mutating methods are only used on private copies; sets
// installed in a snapshot are never modified.
type OptionSet map[string]struct{}

// NewOptionSet builds a set from values, trimming each one and dropping
// blanks.
func NewOptionSet(values ...string) OptionSet {
	set := make(OptionSet, len(values))
	for _, value := range values {
		set.add(value)
	}
	return set
}

func (s OptionSet) add(value string) bool {
	value = strings.TrimSpace(value)
	if value == "" {
		return false
	}
	if _, ok := s[value]; ok {
		return false
	}
	s[value] = struct{}{}
	return true
}

// Has reports whether value (trimmed) is a member.
func (s OptionSet) Has(value string) bool {
	_, ok := s[strings.TrimSpace(value)]
	return ok
}

func (s OptionSet) Len() int {
	return len(s)
}

// Sorted returns the members in ascending order. This is the persisted form.
func (s OptionSet) Sorted() []string {
	out := make([]string, 0, len(s))
	for value := range s {
		out = append(out, value)
	}
	sort.Strings(out)
	return out
}

// Clone returns an independent copy.
func (s OptionSet) Clone() OptionSet {
	out := make(OptionSet, len(s))
	for value := range s {
		out[value] = struct{}{}
	}
	return out
}

// Union returns a new set holding the members of s and values.
func (s OptionSet) Union(values ...string) OptionSet {
	out := s.Clone()
	for _, value := range values {
		out.add(value)
	}
	return out
}

// Equal reports whether both sets hold the same members.
func (s OptionSet) Equal(other OptionSet) bool {
	if len(s) != len(other) {
		return false
	}
	for value := range s {
		if _, ok := other[value]; !ok {
			return false
		}
	}
	return true
}
