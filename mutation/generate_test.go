// cafe: consensus and phasing of long sequencing reads.
// Copyright (c) 2020 imec vzw.

// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as
// published by the Free Software Foundation, either version 3 of the
// License, or (at your option) any later version, and Additional Terms
// (see below).

// This program is distributed in the hope that it will be useful, but
// WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the GNU
// Affero General Public License for more details.

// You should have received a copy of the GNU Affero General Public
// License and Additional Terms along with this program. If not, see
// <https://github.com/ExaScience/elprep/blob/master/LICENSE.txt>.

package mutation

import (
	"math"
	"testing"
)

func TestGenerateUniqueMutationsBounds(t *testing.T) {
	tpls := []TrialTemplate{
		NewTrialTemplate("ACGTTTTGACCA"),
		{Sequence: "GGGGACGTTTTGACCATTTT", StartAdapterBases: 4, EndAdapterBases: 4},
		{Sequence: "AACCGGTT", StartAdapterBases: 2},
	}
	for _, tpl := range tpls {
		start := max(1, tpl.StartAdapterBases)
		end := tpl.Length() - max(1, tpl.EndAdapterBases)
		muts := GenerateUniqueMutations(tpl, true)
		if len(muts) == 0 {
			t.Fatal("GenerateUniqueMutations produced nothing")
		}
		for _, m := range muts {
			if m.Position < start {
				t.Errorf("mutation %v before %v", m, start)
			}
			if m.Kind == Insertion && m.Position > end {
				t.Errorf("insertion %v beyond %v", m, end)
			}
			if m.Kind != Insertion && m.Position >= end {
				t.Errorf("mutation %v at or beyond %v", m, end)
			}
			if m.Kind == Substitution && (m.Base == tpl.Sequence[m.Position] || m.Base == tpl.Sequence[m.Position-1]) {
				t.Errorf("redundant substitution %v", m)
			}
		}
	}
}

func TestGenerateUniqueMutationsDistinct(t *testing.T) {
	tpl := NewTrialTemplate("ACGTTTTGACCA")
	seen := make(map[string]Mutation)
	for _, m := range GenerateUniqueMutations(tpl, true) {
		s := tpl.Mutate(m).Sequence
		if other, ok := seen[s]; ok {
			t.Errorf("mutations %v and %v give the same template", m, other)
		}
		seen[s] = m
	}
	var dels int
	for _, m := range GenerateUniqueMutations(tpl, false) {
		if m.Kind == Substitution {
			t.Error("substitution generated without request")
		}
		if m.Kind == Deletion && m.Position >= 3 && m.Position <= 6 {
			dels++
		}
	}
	if dels != 1 {
		t.Errorf("expected one deletion for the T run, got %v", dels)
	}
}

func TestGenerateLongHomopolymerMutations(t *testing.T) {
	tpl := NewTrialTemplate("ATGGGGGTACCCAGCCCCCCTA")
	muts := GenerateLongHomopolymerMutations(tpl, DefaultHomopolymerLength)
	if len(muts) != 4 {
		t.Fatalf("expected 4 mutations, got %v", muts)
	}
	if muts[0] != (Mutation{Position: 2, Kind: Insertion, Base: 'G'}) || muts[1].Kind != Deletion {
		t.Error("GenerateLongHomopolymerMutations G run failed")
	}
	if muts[2].Position != 14 || muts[2].Base != 'C' {
		t.Error("GenerateLongHomopolymerMutations C run failed")
	}
}

func TestPrevMutationFilter(t *testing.T) {
	candidates := []Mutation{
		{Position: 2, Kind: Insertion, Base: 'A'},
		{Position: 10, Kind: Insertion, Base: 'A'},
		{Position: 25, Kind: Insertion, Base: 'A'},
		{Position: 41, Kind: Insertion, Base: 'A'},
	}
	if PrevMutationFilter(candidates, nil, 5) != nil {
		t.Error("PrevMutationFilter without previous mutations failed")
	}
	prev := []Mutation{
		{Position: 40, Kind: Substitution, Base: 'C'},
		{Position: 20, Kind: Insertion, Base: 'C'},
		{Position: 8, Kind: Deletion},
	}
	// shifted positions are 8, 19 and 40
	got := PrevMutationFilter(candidates, prev, 5)
	if len(got) != 2 || got[0].Position != 10 || got[1].Position != 41 {
		t.Errorf("PrevMutationFilter failed: %v", got)
	}
}

func TestBestItemsExample(t *testing.T) {
	type item struct {
		pos   int
		score float64
	}
	pos := func(i item) int { return i.pos }
	score := func(i item) float64 { return i.score }
	total := func(items []item) (s float64) {
		for _, i := range items {
			s += i.score
		}
		return
	}
	tests := []struct {
		items    []item
		spacing  int
		expected float64
		count    int
	}{
		{[]item{{1, 6}, {3, 15}, {5, 6}, {8, 10}}, 3, 25, 2},
		{[]item{{1, 4}, {2, 25}, {5, 6}, {9, 10}}, 3, 35, 2},
		{[]item{{1, 4}, {2, 5}, {3, 6}, {9, 10}, {20, 50}}, 3, 66, 3},
	}
	for _, test := range tests {
		got := BestItems(test.items, pos, score, test.spacing)
		if total(got) != test.expected || len(got) != test.count {
			t.Errorf("BestItems failed: %v", got)
		}
	}
	got := BestItems([]item{{8, 10}, {5, 6}, {3, 15}, {1, 6}}, pos, score, 3)
	if len(got) != 2 || got[0].pos != 3 || got[1].pos != 8 {
		t.Errorf("BestItems selection failed: %v", got)
	}
}

func TestBestItemsBruteForce(t *testing.T) {
	type item struct {
		pos   int
		score float64
	}
	pos := func(i item) int { return i.pos }
	score := func(i item) float64 { return i.score }
	seed := uint32(17)
	next := func(n uint32) int {
		seed = seed*1664525 + 1013904223
		return int((seed >> 8) % n)
	}
	for trial := 0; trial < 200; trial++ {
		n := 1 + next(9)
		items := make([]item, n)
		for i := range items {
			items[i] = item{pos: next(30), score: float64(1 + next(20))}
		}
		spacing := next(6)
		got := BestItems(items, pos, score, spacing)
		var gotTotal float64
		for i, a := range got {
			gotTotal += a.score
			for _, b := range got[i+1:] {
				if d := a.pos - b.pos; d <= spacing && d >= -spacing {
					t.Fatalf("items %v and %v too close", a, b)
				}
			}
		}
		best := math.Inf(-1)
		for mask := 1; mask < 1<<n; mask++ {
			var s float64
			ok := true
			for i := 0; i < n && ok; i++ {
				if mask&(1<<i) == 0 {
					continue
				}
				s += items[i].score
				for j := i + 1; j < n; j++ {
					if mask&(1<<j) != 0 {
						if d := items[i].pos - items[j].pos; d <= spacing && d >= -spacing {
							ok = false
							break
						}
					}
				}
			}
			if ok && s > best {
				best = s
			}
		}
		if gotTotal != best {
			t.Fatalf("BestItems total %v, brute force %v for %v spacing %v", gotTotal, best, items, spacing)
		}
	}
}
