package wallet

import (
	"errors"
	"testing"

	"github.com/Klingon-tech/klingnet-groupwallet/pkg/types"
	"pgregory.net/rapid"
)

func TestOnePerGroup_Coverage(t *testing.T) {
	pairs, err := DeriveOnePerGroup(testSeed(t), types.AllGroups(), nil)
	if err != nil {
		t.Fatalf("DeriveOnePerGroup() error: %v", err)
	}
	if len(pairs) != types.TotalGroups {
		t.Fatalf("got %d pairs, want %d", len(pairs), types.TotalGroups)
	}
	seen := types.NewIndexSet()
	for i, kp := range pairs {
		if kp.Group != types.Group(i) {
			t.Errorf("pairs[%d].Group = %d, want %d", i, kp.Group, i)
		}
		if seen.Has(kp.Index) {
			t.Errorf("index %d returned twice", kp.Index)
		}
		seen.Add(kp.Index)
	}
}

func TestOnePerGroup_EmptyMeansAll(t *testing.T) {
	pairs, err := testDeriver(t).OnePerGroup(nil, nil)
	if err != nil {
		t.Fatalf("OnePerGroup() error: %v", err)
	}
	if len(pairs) != types.TotalGroups {
		t.Fatalf("got %d pairs, want %d", len(pairs), types.TotalGroups)
	}
}

func TestOnePerGroup_DuplicatesAndOrder(t *testing.T) {
	groups := []types.Group{2, 0, 2}
	pairs, err := testDeriver(t).OnePerGroup(groups, nil)
	if err != nil {
		t.Fatalf("OnePerGroup() error: %v", err)
	}
	if len(pairs) != 2 {
		t.Fatalf("got %d pairs, want 2", len(pairs))
	}
	if pairs[0].Group != 2 || pairs[1].Group != 0 {
		t.Errorf("groups = [%d %d], want [2 0]", pairs[0].Group, pairs[1].Group)
	}
}

func TestOnePerGroup_InvalidGroup(t *testing.T) {
	_, err := testDeriver(t).OnePerGroup([]types.Group{0, -1}, nil)
	if !errors.Is(err, ErrInvalidGroup) {
		t.Fatalf("OnePerGroup() error = %v, want ErrInvalidGroup", err)
	}
}

func TestOnePerGroup_SkipNotMutated(t *testing.T) {
	skip := types.NewIndexSet(0)
	if _, err := testDeriver(t).OnePerGroup(nil, skip); err != nil {
		t.Fatalf("OnePerGroup() error: %v", err)
	}
	if len(skip) != 1 {
		t.Errorf("skip set size = %d, want 1", len(skip))
	}
}

func TestOnePerGroup_IdempotentSkipProperty(t *testing.T) {
	d := testDeriver(t)
	rapid.Check(t, func(rt *rapid.T) {
		raw := rapid.SliceOfN(rapid.Uint32Range(0, 32), 0, 12).Draw(rt, "skip")
		skip := types.NewIndexSet()
		for _, i := range raw {
			skip.Add(types.AddressIndex(i))
		}

		first, err := d.OnePerGroup(nil, skip)
		if err != nil {
			rt.Fatalf("first OnePerGroup() error: %v", err)
		}
		for _, kp := range first {
			if skip.Has(kp.Index) {
				rt.Fatalf("first run returned skipped index %d", kp.Index)
			}
		}

		next := skip.Clone()
		for _, kp := range first {
			next.Add(kp.Index)
		}
		second, err := d.OnePerGroup(nil, next)
		if err != nil {
			rt.Fatalf("second OnePerGroup() error: %v", err)
		}
		for _, kp := range second {
			if next.Has(kp.Index) {
				rt.Fatalf("second run reproduced index %d", kp.Index)
			}
		}
	})
}

func TestDeriveIndexes_Order(t *testing.T) {
	indexes := []types.AddressIndex{9, 3, 3, 0}
	pairs, err := DeriveIndexes(testSeed(t), indexes)
	if err != nil {
		t.Fatalf("DeriveIndexes() error: %v", err)
	}
	got := Indexes(pairs)
	if len(got) != len(indexes) {
		t.Fatalf("got %d pairs, want %d", len(got), len(indexes))
	}
	for i := range indexes {
		if got[i] != indexes[i] {
			t.Errorf("pairs[%d].Index = %d, want %d", i, got[i], indexes[i])
		}
	}
	if !pairs[1].Equal(pairs[2]) {
		t.Error("duplicate index should derive the same pair")
	}
}

func TestDeriveIndexes_Empty(t *testing.T) {
	pairs, err := DeriveIndexes(testSeed(t), nil)
	if err != nil {
		t.Fatalf("DeriveIndexes() error: %v", err)
	}
	if len(pairs) != 0 {
		t.Errorf("got %d pairs, want 0", len(pairs))
	}
}
