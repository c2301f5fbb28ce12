package types

import (
	"reflect"
	"testing"
)

func TestGroup_Valid(t *testing.T) {
	for g := Group(-1); g <= TotalGroups; g++ {
		want := g >= 0 && g < TotalGroups
		if got := g.Valid(); got != want {
			t.Errorf("Group(%d).Valid() = %v, want %v", g, got, want)
		}
	}
}

func TestParseGroup(t *testing.T) {
	if _, err := ParseGroup(TotalGroups); err == nil {
		t.Error("ParseGroup(TotalGroups) should fail")
	}
	g, err := ParseGroup(2)
	if err != nil {
		t.Fatalf("ParseGroup(2) error: %v", err)
	}
	if g != 2 {
		t.Errorf("ParseGroup(2) = %d", g)
	}
}

func TestAllGroups(t *testing.T) {
	want := []Group{0, 1, 2, 3}
	if got := AllGroups(); !reflect.DeepEqual(got, want) {
		t.Errorf("AllGroups() = %v, want %v", got, want)
	}
}

func TestIndexSet(t *testing.T) {
	s := NewIndexSet(5, 1, 3)
	if !s.Has(3) || s.Has(2) {
		t.Error("Has() mismatch")
	}

	c := s.Clone()
	c.Add(2)
	if s.Has(2) {
		t.Error("Clone() should not share storage")
	}

	want := []AddressIndex{1, 2, 3, 5}
	if got := c.Sorted(); !reflect.DeepEqual(got, want) {
		t.Errorf("Sorted() = %v, want %v", got, want)
	}

	var nilSet IndexSet
	if nilSet.Has(0) {
		t.Error("nil set should be empty")
	}
	if len(nilSet.Clone()) != 0 {
		t.Error("Clone() of nil set should be empty")
	}
}
